package _struct

import (
	"time"

	"github.com/google/uuid"
)

type AudioRecording struct {
	ID              uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	SessionID       uuid.UUID `json:"session_id" gorm:"type:uuid;uniqueIndex;not null"`
	StorageURL      string    `json:"storage_url" gorm:"not null"`
	DurationSeconds *int      `json:"duration_seconds"`
	MimeType        *string   `json:"mime_type"`
	SizeBytes       *int64    `json:"size_bytes"`
	QualityStatus   *string   `json:"quality_status"`
	CreatedAt       time.Time `json:"created_at"`
}
