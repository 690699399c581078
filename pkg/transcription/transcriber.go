package transcription

import (
	"context"

	_struct "speech-dojo/models/struct"
)

// Transcriber turns recorded audio into ordered transcript segments.
// Implementations make at most one provider call per invocation; callers
// must not retry blindly, a repeated call is billed again.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, durationHint *int) ([]_struct.TranscriptSegment, error)
}
