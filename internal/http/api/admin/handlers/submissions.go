package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/ContactRelay/internal/models"
	"github.com/router-for-me/ContactRelay/internal/store"
)

// SubmissionStore reads and updates persisted submissions.
type SubmissionStore interface {
	List(ctx context.Context, opts store.ListOptions) ([]models.Submission, int64, error)
	Get(ctx context.Context, publicID string) (models.Submission, error)
	MarkRead(ctx context.Context, publicID string) (models.Submission, error)
}

// SubmissionHandler serves the submission review endpoints.
type SubmissionHandler struct {
	store SubmissionStore
}

// NewSubmissionHandler constructs a SubmissionHandler.
func NewSubmissionHandler(s SubmissionStore) *SubmissionHandler {
	return &SubmissionHandler{store: s}
}

// List returns submissions filtered by status and query, newest first.
func (h *SubmissionHandler) List(c *gin.Context) {
	opts := store.ListOptions{
		Status: c.Query("status"),
		Query:  c.Query("q"),
	}
	if raw := c.Query("limit"); raw != "" {
		limit, errParse := strconv.Atoi(raw)
		if errParse != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		opts.Limit = limit
	}
	if raw := c.Query("offset"); raw != "" {
		offset, errParse := strconv.Atoi(raw)
		if errParse != nil || offset < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid offset"})
			return
		}
		opts.Offset = offset
	}

	rows, total, errList := h.store.List(c.Request.Context(), opts)
	if errors.Is(errList, store.ErrInvalidStatus) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list submissions failed"})
		return
	}

	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, submissionView(row))
	}
	c.JSON(http.StatusOK, gin.H{"submissions": out, "total": total})
}

// Get returns one submission.
func (h *SubmissionHandler) Get(c *gin.Context) {
	row, errGet := h.store.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(errGet, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "submission not found"})
		return
	}
	if errGet != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get submission failed"})
		return
	}
	c.JSON(http.StatusOK, submissionView(row))
}

// MarkRead flags a submission as read.
func (h *SubmissionHandler) MarkRead(c *gin.Context) {
	row, errMark := h.store.MarkRead(c.Request.Context(), c.Param("id"))
	if errors.Is(errMark, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "submission not found"})
		return
	}
	if errMark != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "mark read failed"})
		return
	}
	c.JSON(http.StatusOK, submissionView(row))
}

func submissionView(row models.Submission) gin.H {
	return gin.H{
		"id":         row.PublicID,
		"email":      row.Email,
		"name":       row.Name,
		"message":    row.Message,
		"client_id":  row.ClientID,
		"results":    store.DecodeResults(row),
		"delivered":  row.Delivered,
		"status":     row.Status,
		"read_at":    row.ReadAt,
		"created_at": row.CreatedAt,
	}
}
