// Package reconcile seals a session's end state. It merges the client's
// submitted transcript, whatever was persisted earlier, and the recorded
// audio into one authoritative record, calling out to transcription only
// when no transcript exists anywhere else.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_struct "speech-dojo/models/struct"
	"speech-dojo/pkg/store"
	"speech-dojo/pkg/telemetry"
	"speech-dojo/pkg/transcription"
	"gorm.io/gorm"
)

var (
	ErrNotFound                = errors.New("session not found")
	ErrForbidden               = errors.New("session belongs to another user")
	ErrMissingTranscriptSource = errors.New("no transcript submitted, stored, or derivable from audio")
	ErrTranscriptionFailed     = errors.New("transcription call failed")
	ErrFinalizeUpdateFailed    = errors.New("session finalize update failed")
	ErrTranscriptPersistFailed = errors.New("transcript persist failed")
)

// AudioFetcher pulls recorded audio bytes out of object storage by URL.
type AudioFetcher interface {
	FetchBytes(ctx context.Context, storageURL string) ([]byte, error)
}

// Input is what the client hands to finalize; every field may be empty.
type Input struct {
	Segments        []_struct.TranscriptSegment
	Status          string
	DurationSeconds *int
	AudioURL        string
}

// Record is the authoritative finalized state. It is not necessarily what
// the client submitted: a settled session keeps its stored status and end
// time, and the transcript may have been backfilled via transcription.
type Record struct {
	SessionID       uuid.UUID                   `json:"session_id"`
	Status          string                      `json:"status"`
	Transcript      []_struct.TranscriptSegment `json:"transcript"`
	AudioURL        string                      `json:"audio_url,omitempty"`
	DurationSeconds *int                        `json:"duration_seconds,omitempty"`
	EndTime         *time.Time                  `json:"end_time,omitempty"`
}

type Reconciler struct {
	sessions    store.SessionStore
	transcripts store.TranscriptStore
	audio       store.AudioStore
	fetcher     AudioFetcher
	transcriber transcription.Transcriber
	now         func() time.Time
}

func New(
	sessions store.SessionStore,
	transcripts store.TranscriptStore,
	audio store.AudioStore,
	fetcher AudioFetcher,
	transcriber transcription.Transcriber,
) *Reconciler {
	return &Reconciler{
		sessions:    sessions,
		transcripts: transcripts,
		audio:       audio,
		fetcher:     fetcher,
		transcriber: transcriber,
		now:         time.Now,
	}
}

// Finalize computes and persists the end-of-session record. It is
// idempotent in substance: repeated calls with unchanged content settle
// on the same stored state without redundant writes.
func (r *Reconciler) Finalize(ctx context.Context, sessionID, userID uuid.UUID, in Input) (*Record, error) {
	session, err := r.sessions.Get(ctx, sessionID)
	if err != nil {
		telemetry.LogFailure("finalize_session_missing", sessionID, err.Error())
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}

	if session.UserID != userID {
		telemetry.LogFailure("finalize_forbidden", sessionID, "user mismatch")
		return nil, ErrForbidden
	}

	stored, err := r.transcripts.GetBySession(ctx, sessionID)
	if err != nil {
		telemetry.LogFailure("finalize_transcript_read_failed", sessionID, err.Error())
		return nil, ErrTranscriptPersistFailed
	}

	recording, err := r.audio.GetBySession(ctx, sessionID)
	if err != nil {
		telemetry.LogFailure("finalize_audio_read_failed", sessionID, err.Error())
		return nil, ErrFinalizeUpdateFailed
	}

	audioURL := resolveAudioURL(in.AudioURL, recording)

	segments, err := r.resolveTranscript(ctx, session, stored, in, audioURL, recording)
	if err != nil {
		return nil, err
	}

	status, endTime, duration := resolveOutcome(session, in, r.now())

	if _, err := r.sessions.Finalize(ctx, sessionID, endTime, duration, status); err != nil {
		telemetry.LogFailure("finalize_update_failed", sessionID, err.Error())
		return nil, ErrFinalizeUpdateFailed
	}

	if err := r.persistTranscript(ctx, sessionID, stored, segments); err != nil {
		return nil, err
	}

	telemetry.LogRecovery("session_finalized", sessionID, status)

	return &Record{
		SessionID:       sessionID,
		Status:          status,
		Transcript:      segments,
		AudioURL:        audioURL,
		DurationSeconds: duration,
		EndTime:         &endTime,
	}, nil
}

// resolveTranscript walks the source chain in precedence order:
// submitted segments, then the stored transcript, then transcription of
// the effective audio.
func (r *Reconciler) resolveTranscript(
	ctx context.Context,
	session *_struct.Session,
	stored *_struct.Transcript,
	in Input,
	audioURL string,
	recording *_struct.AudioRecording,
) ([]_struct.TranscriptSegment, error) {
	if len(in.Segments) > 0 {
		return in.Segments, nil
	}

	if stored != nil {
		segments, err := stored.ParseSegments()
		if err != nil {
			// A corrupt stored transcript counts as "no transcript",
			// not a fatal error.
			telemetry.LogFailure("finalize_transcript_parse_failed", session.ID, err.Error())
		} else if len(segments) > 0 {
			return segments, nil
		}
	}

	if audioURL == "" {
		telemetry.LogFailure("finalize_no_transcript_source", session.ID, "no submitted transcript, stored transcript, or audio")
		return nil, ErrMissingTranscriptSource
	}

	return r.transcribe(ctx, session, in, audioURL, recording)
}

// transcribe makes exactly one provider attempt; transcription is billed
// per call, so failures are surfaced rather than retried.
func (r *Reconciler) transcribe(
	ctx context.Context,
	session *_struct.Session,
	in Input,
	audioURL string,
	recording *_struct.AudioRecording,
) ([]_struct.TranscriptSegment, error) {
	audio, err := r.fetcher.FetchBytes(ctx, audioURL)
	if err != nil {
		telemetry.LogFailure("finalize_audio_fetch_failed", session.ID, err.Error())
		return nil, ErrTranscriptionFailed
	}

	hint := durationHint(session, in, recording)

	segments, err := r.transcriber.Transcribe(ctx, audio, hint)
	if err != nil {
		event := "finalize_transcription_failed"
		if errors.Is(err, context.DeadlineExceeded) {
			event = "finalize_transcription_timeout"
		}
		telemetry.LogFailure(event, session.ID, err.Error())
		return nil, ErrTranscriptionFailed
	}

	if len(segments) == 0 {
		telemetry.LogFailure("finalize_no_transcript_source", session.ID, "transcription returned no segments")
		return nil, ErrMissingTranscriptSource
	}

	telemetry.LogRecovery("finalize_transcript_backfilled", session.ID, "transcribed_from_audio")
	return segments, nil
}

// persistTranscript upserts the effective transcript, skipping the write
// when the stored copy is already finalized with identical content so
// client retries stay cheap.
func (r *Reconciler) persistTranscript(ctx context.Context, sessionID uuid.UUID, stored *_struct.Transcript, segments []_struct.TranscriptSegment) error {
	if stored != nil && stored.Finalized {
		existing, err := stored.ParseSegments()
		if err == nil && _struct.SegmentsEqual(existing, segments) {
			telemetry.LogRecovery("finalize_transcript_unchanged", sessionID, "skipped_write")
			return nil
		}
	}

	if _, err := r.transcripts.Upsert(ctx, sessionID, true, segments); err != nil {
		telemetry.LogFailure("finalize_transcript_persist_failed", sessionID, err.Error())
		return ErrTranscriptPersistFailed
	}
	return nil
}

func resolveAudioURL(submitted string, recording *_struct.AudioRecording) string {
	if submitted != "" {
		return submitted
	}
	if recording != nil {
		return recording.StorageURL
	}
	return ""
}

// resolveOutcome applies the non-regression rule: a settled session
// keeps its stored status and end time no matter what the client sent.
func resolveOutcome(session *_struct.Session, in Input, now time.Time) (string, time.Time, *int) {
	status := in.Status
	if status == "" {
		status = _struct.SessionStatusEnded
	}
	endTime := now

	if session.Settled() {
		status = session.Status
		if session.EndTime != nil {
			endTime = *session.EndTime
		}
	}

	duration := session.DurationSeconds
	if duration == nil {
		duration = in.DurationSeconds
	}

	return status, endTime, duration
}

func durationHint(session *_struct.Session, in Input, recording *_struct.AudioRecording) *int {
	if session.DurationSeconds != nil {
		return session.DurationSeconds
	}
	if in.DurationSeconds != nil {
		return in.DurationSeconds
	}
	if recording != nil && recording.DurationSeconds != nil {
		return recording.DurationSeconds
	}
	return nil
}
