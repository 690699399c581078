package _struct

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	SessionStatusActive     = "active"
	SessionStatusEnded      = "ended"
	SessionStatusRecovering = "recovering"
)

type Session struct {
	ID              uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	UserID          uuid.UUID      `json:"user_id" gorm:"type:uuid;not null;index"`
	TopicID         uuid.UUID      `json:"topic_id" gorm:"type:uuid;not null"`
	StartTime       time.Time      `json:"start_time" gorm:"not null"`
	EndTime         *time.Time     `json:"end_time"`
	DurationSeconds *int           `json:"duration_seconds"`
	Status          string         `json:"status" gorm:"default:active;not null"`
	Privacy         string         `json:"privacy" gorm:"default:private;not null"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `json:"deleted_at" gorm:"index"`
}

// Settled reports whether the session has already left its live state.
// A settled session's status and end time are never overwritten by a
// later finalize call.
func (s *Session) Settled() bool {
	return s.Status != SessionStatusActive
}
