// Package store holds the persistence layer for sessions and the records
// hanging off them. The core components depend on the interfaces here so
// tests can substitute fakes; the GORM implementations are the only ones
// used in production.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	_struct "speech-dojo/models/struct"
)

// SessionStore reads and mutates session rows. Get returns
// gorm.ErrRecordNotFound when the session does not exist.
type SessionStore interface {
	Get(ctx context.Context, sessionID uuid.UUID) (*_struct.Session, error)
	UpdateStatus(ctx context.Context, sessionID uuid.UUID, status string) error
	Finalize(ctx context.Context, sessionID uuid.UUID, endTime time.Time, durationSeconds *int, status string) (*_struct.Session, error)
}

// CredentialStore appends realtime credentials and finds the one the
// caller should see. LatestForSession returns (nil, nil) when the session
// has no credential history.
type CredentialStore interface {
	Insert(ctx context.Context, sessionID uuid.UUID, token string, expiresAt time.Time) (*_struct.Credential, error)
	LatestForSession(ctx context.Context, sessionID uuid.UUID) (*_struct.Credential, error)
}

// TranscriptStore upserts the single transcript row per session.
// GetBySession returns (nil, nil) when no transcript exists yet.
type TranscriptStore interface {
	GetBySession(ctx context.Context, sessionID uuid.UUID) (*_struct.Transcript, error)
	Upsert(ctx context.Context, sessionID uuid.UUID, finalized bool, segments []_struct.TranscriptSegment) (uuid.UUID, error)
}

// AudioStore reads and upserts the per-session recording pointer.
// GetBySession returns (nil, nil) when no recording was uploaded.
type AudioStore interface {
	GetBySession(ctx context.Context, sessionID uuid.UUID) (*_struct.AudioRecording, error)
	Upsert(ctx context.Context, recording *_struct.AudioRecording) (*_struct.AudioRecording, error)
}
