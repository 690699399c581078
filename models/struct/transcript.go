package _struct

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TranscriptSegment is one utterance in playback order.
type TranscriptSegment struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
	StartMs int64  `json:"start_ms"`
	EndMs   int64  `json:"end_ms"`
}

// Transcript is the authoritative text record for a session. At most one
// row exists per session; writes are upserts keyed on session_id.
type Transcript struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	SessionID uuid.UUID `json:"session_id" gorm:"type:uuid;uniqueIndex;not null"`
	Finalized bool      `json:"finalized" gorm:"default:false;not null"`
	Segments  string    `json:"segments" gorm:"type:jsonb;not null"`
	CreatedAt time.Time `json:"created_at"`
}

// ParseSegments decodes the stored segment JSON in submitted order.
func (t *Transcript) ParseSegments() ([]TranscriptSegment, error) {
	var segments []TranscriptSegment
	if err := json.Unmarshal([]byte(t.Segments), &segments); err != nil {
		return nil, err
	}
	return segments, nil
}

// SegmentsEqual reports structural equality of two segment sequences,
// including order.
func SegmentsEqual(a, b []TranscriptSegment) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
