package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/router-for-me/ContactRelay/internal/db"
	"github.com/router-for-me/ContactRelay/internal/models"
	"github.com/router-for-me/ContactRelay/internal/notify"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// ErrNotFound is returned when a submission does not exist.
var ErrNotFound = errors.New("submission not found")

// ErrInvalidStatus is returned for an unknown status filter.
var ErrInvalidStatus = errors.New("invalid status filter")

// GormSubmissionStore persists contact submissions via GORM.
type GormSubmissionStore struct {
	db    *gorm.DB
	nowFn func() time.Time
}

// NewGormSubmissionStore constructs a GormSubmissionStore.
func NewGormSubmissionStore(conn *gorm.DB) *GormSubmissionStore {
	return &GormSubmissionStore{db: conn, nowFn: time.Now}
}

// ListOptions filters the admin listing.
type ListOptions struct {
	Status string // "", "all", "unread" or "read".
	Query  string // Case-insensitive match on email or name.
	Limit  int
	Offset int
}

// Save records an accepted submission together with its dispatch outcome.
func (s *GormSubmissionStore) Save(ctx context.Context, sub notify.Submission, clientID string, outcome notify.DispatchOutcome) (models.Submission, error) {
	if s == nil || s.db == nil {
		return models.Submission{}, fmt.Errorf("submission store: not initialized")
	}
	results := outcome.PerChannel
	if results == nil {
		results = []notify.ChannelResult{}
	}
	payload, errMarshal := json.Marshal(results)
	if errMarshal != nil {
		return models.Submission{}, fmt.Errorf("submission store: marshal results: %w", errMarshal)
	}

	now := s.nowFn().UTC()
	row := models.Submission{
		PublicID:  uuid.NewString(),
		Email:     sub.Email,
		Name:      sub.Name,
		Message:   sub.Message,
		ClientID:  clientID,
		Results:   datatypes.JSON(payload),
		Delivered: outcome.OverallSuccess,
		Status:    models.SubmissionStatusUnread,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if errCreate := s.db.WithContext(ctx).Create(&row).Error; errCreate != nil {
		return models.Submission{}, fmt.Errorf("submission store: create: %w", errCreate)
	}
	return row, nil
}

// List returns one page of submissions, newest first, and the total matching count.
func (s *GormSubmissionStore) List(ctx context.Context, opts ListOptions) ([]models.Submission, int64, error) {
	if s == nil || s.db == nil {
		return nil, 0, fmt.Errorf("submission store: not initialized")
	}
	q := s.db.WithContext(ctx).Model(&models.Submission{})

	switch status := strings.ToLower(strings.TrimSpace(opts.Status)); status {
	case "", "all":
	case models.SubmissionStatusUnread, models.SubmissionStatusRead:
		q = q.Where("status = ?", status)
	default:
		return nil, 0, fmt.Errorf("%w: %q", ErrInvalidStatus, opts.Status)
	}
	if query := strings.TrimSpace(opts.Query); query != "" {
		pattern := db.NormalizeLikePattern(s.db, "%"+db.EscapeLikePattern(query)+"%")
		q = q.Where(
			"("+db.CaseInsensitiveLikeExpr(s.db, "email")+" OR "+db.CaseInsensitiveLikeExpr(s.db, "name")+")",
			pattern, pattern,
		)
	}

	q = q.Session(&gorm.Session{})

	var total int64
	if errCount := q.Count(&total).Error; errCount != nil {
		return nil, 0, fmt.Errorf("submission store: count: %w", errCount)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	var rows []models.Submission
	if errFind := q.Order("created_at DESC").Order("id DESC").Limit(limit).Offset(offset).Find(&rows).Error; errFind != nil {
		return nil, 0, fmt.Errorf("submission store: list: %w", errFind)
	}
	return rows, total, nil
}

// Get loads a submission by its public ID.
func (s *GormSubmissionStore) Get(ctx context.Context, publicID string) (models.Submission, error) {
	if s == nil || s.db == nil {
		return models.Submission{}, fmt.Errorf("submission store: not initialized")
	}
	var row models.Submission
	errFind := s.db.WithContext(ctx).Where("public_id = ?", strings.TrimSpace(publicID)).First(&row).Error
	if errors.Is(errFind, gorm.ErrRecordNotFound) {
		return models.Submission{}, ErrNotFound
	}
	if errFind != nil {
		return models.Submission{}, fmt.Errorf("submission store: get: %w", errFind)
	}
	return row, nil
}

// MarkRead flags a submission as read. Marking an already read submission keeps its original ReadAt.
func (s *GormSubmissionStore) MarkRead(ctx context.Context, publicID string) (models.Submission, error) {
	row, errGet := s.Get(ctx, publicID)
	if errGet != nil {
		return models.Submission{}, errGet
	}
	if row.Status == models.SubmissionStatusRead {
		return row, nil
	}
	now := s.nowFn().UTC()
	if errUpdate := s.db.WithContext(ctx).Model(&row).Updates(map[string]any{
		"status":     models.SubmissionStatusRead,
		"read_at":    now,
		"updated_at": now,
	}).Error; errUpdate != nil {
		return models.Submission{}, fmt.Errorf("submission store: mark read: %w", errUpdate)
	}
	row.Status = models.SubmissionStatusRead
	row.ReadAt = &now
	return row, nil
}

// DecodeResults unpacks the stored per-channel results.
func DecodeResults(row models.Submission) []notify.ChannelResult {
	var results []notify.ChannelResult
	if len(row.Results) == 0 {
		return results
	}
	if errUnmarshal := json.Unmarshal(row.Results, &results); errUnmarshal != nil {
		return nil
	}
	return results
}
