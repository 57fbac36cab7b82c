package models

import (
	"time"

	"gorm.io/datatypes"
)

// Submission status values.
const (
	SubmissionStatusUnread = "unread"
	SubmissionStatusRead   = "read"
)

// Submission stores one accepted contact form submission and its delivery results.
type Submission struct {
	ID       uint64 `gorm:"primaryKey;autoIncrement"`             // Primary key.
	PublicID string `gorm:"type:varchar(36);not null;uniqueIndex"` // Identifier exposed by the admin API.

	Email    string `gorm:"type:text;not null;index"` // Submitter address.
	Name     string `gorm:"type:text"`                // Optional submitter name.
	Message  string `gorm:"type:text"`                // Optional message body.
	ClientID string `gorm:"type:varchar(255);index"`  // Rate limit bucket the request used.

	Results   datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'"` // Per-channel delivery results.
	Delivered bool           `gorm:"not null;default:false"`           // Whether any channel delivered.

	Status string     `gorm:"type:varchar(16);not null;default:'unread';index"` // unread or read.
	ReadAt *time.Time // When an admin marked it read.

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"`       // Last update timestamp.
}

// TableName overrides the default table name.
func (Submission) TableName() string {
	return "contact_submissions"
}
