package _struct

import (
	"time"

	"github.com/google/uuid"
)

// Credential is an ephemeral realtime client secret tied to one session.
// Rows are append-only history; old credentials are kept, never deleted.
type Credential struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	SessionID uuid.UUID `json:"session_id" gorm:"type:uuid;not null;index"`
	Token     string    `json:"token" gorm:"not null"`
	ExpiresAt time.Time `json:"expires_at" gorm:"not null;index"`
	CreatedAt time.Time `json:"created_at"`
}
