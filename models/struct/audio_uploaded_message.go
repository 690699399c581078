package _struct

import (
	"github.com/google/uuid"
)

// AudioUploadedMessage is published to Kafka after a session recording
// lands in object storage. The background processor consumes it to
// pre-transcribe audio before the client finalizes.
type AudioUploadedMessage struct {
	SessionID       uuid.UUID `json:"session_id"`
	StorageURL      string    `json:"storage_url"`
	DurationSeconds *int      `json:"duration_seconds"`
	MimeType        string    `json:"mime_type,omitempty"`
}
