package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_struct "speech-dojo/models/struct"
	"gorm.io/gorm"
)

type fakeSessionStore struct {
	sessions    map[uuid.UUID]*_struct.Session
	finalizeErr error
	finalized   []finalizeCall
}

type finalizeCall struct {
	endTime  time.Time
	duration *int
	status   string
}

func (f *fakeSessionStore) Get(ctx context.Context, sessionID uuid.UUID) (*_struct.Session, error) {
	session, ok := f.sessions[sessionID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *session
	return &copied, nil
}

func (f *fakeSessionStore) UpdateStatus(ctx context.Context, sessionID uuid.UUID, status string) error {
	return errors.New("not used by reconciler")
}

func (f *fakeSessionStore) Finalize(ctx context.Context, sessionID uuid.UUID, endTime time.Time, durationSeconds *int, status string) (*_struct.Session, error) {
	if f.finalizeErr != nil {
		return nil, f.finalizeErr
	}
	f.finalized = append(f.finalized, finalizeCall{endTime: endTime, duration: durationSeconds, status: status})
	session := f.sessions[sessionID]
	session.Status = status
	session.EndTime = &endTime
	session.DurationSeconds = durationSeconds
	copied := *session
	return &copied, nil
}

type fakeTranscriptStore struct {
	stored    *_struct.Transcript
	upserts   []upsertCall
	upsertErr error
}

type upsertCall struct {
	finalized bool
	segments  []_struct.TranscriptSegment
}

func (f *fakeTranscriptStore) GetBySession(ctx context.Context, sessionID uuid.UUID) (*_struct.Transcript, error) {
	return f.stored, nil
}

func (f *fakeTranscriptStore) Upsert(ctx context.Context, sessionID uuid.UUID, finalized bool, segments []_struct.TranscriptSegment) (uuid.UUID, error) {
	if f.upsertErr != nil {
		return uuid.Nil, f.upsertErr
	}
	f.upserts = append(f.upserts, upsertCall{finalized: finalized, segments: segments})
	return uuid.New(), nil
}

type fakeAudioStore struct {
	recording *_struct.AudioRecording
}

func (f *fakeAudioStore) GetBySession(ctx context.Context, sessionID uuid.UUID) (*_struct.AudioRecording, error) {
	return f.recording, nil
}

func (f *fakeAudioStore) Upsert(ctx context.Context, recording *_struct.AudioRecording) (*_struct.AudioRecording, error) {
	return recording, nil
}

type fakeFetcher struct {
	bytes    []byte
	err      error
	requests []string
}

func (f *fakeFetcher) FetchBytes(ctx context.Context, storageURL string) ([]byte, error) {
	f.requests = append(f.requests, storageURL)
	if f.err != nil {
		return nil, f.err
	}
	return f.bytes, nil
}

type fakeTranscriber struct {
	segments []_struct.TranscriptSegment
	err      error
	calls    int
	hints    []*int
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audio []byte, durationHint *int) ([]_struct.TranscriptSegment, error) {
	f.calls++
	f.hints = append(f.hints, durationHint)
	if f.err != nil {
		return nil, f.err
	}
	return f.segments, nil
}

type fixture struct {
	sessions    *fakeSessionStore
	transcripts *fakeTranscriptStore
	audio       *fakeAudioStore
	fetcher     *fakeFetcher
	transcriber *fakeTranscriber
	reconciler  *Reconciler
	now         time.Time
}

func newFixture(session *_struct.Session) *fixture {
	f := &fixture{
		sessions:    &fakeSessionStore{sessions: map[uuid.UUID]*_struct.Session{}},
		transcripts: &fakeTranscriptStore{},
		audio:       &fakeAudioStore{},
		fetcher:     &fakeFetcher{bytes: []byte("webm-bytes")},
		transcriber: &fakeTranscriber{},
		now:         time.Now(),
	}
	if session != nil {
		f.sessions.sessions[session.ID] = session
	}
	f.reconciler = New(f.sessions, f.transcripts, f.audio, f.fetcher, f.transcriber)
	f.reconciler.now = func() time.Time { return f.now }
	return f
}

func activeSession(userID uuid.UUID) *_struct.Session {
	return &_struct.Session{
		ID:        uuid.New(),
		UserID:    userID,
		TopicID:   uuid.New(),
		StartTime: time.Now().Add(-10 * time.Minute),
		Status:    _struct.SessionStatusActive,
	}
}

func storedTranscript(sessionID uuid.UUID, finalized bool, segments []_struct.TranscriptSegment) *_struct.Transcript {
	encoded, _ := json.Marshal(segments)
	return &_struct.Transcript{
		ID:        uuid.New(),
		SessionID: sessionID,
		Finalized: finalized,
		Segments:  string(encoded),
	}
}

func intPtr(v int) *int { return &v }

var sampleSegments = []_struct.TranscriptSegment{
	{Speaker: "user", Text: "hi", StartMs: 0, EndMs: 500},
}

func TestFinalizeNotFound(t *testing.T) {
	f := newFixture(nil)

	_, err := f.reconciler.Finalize(context.Background(), uuid.New(), uuid.New(), Input{Segments: sampleSegments})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, f.sessions.finalized)
	assert.Empty(t, f.transcripts.upserts)
}

func TestFinalizeForbiddenBeforeAnyWrite(t *testing.T) {
	owner := uuid.New()
	session := activeSession(owner)
	f := newFixture(session)

	_, err := f.reconciler.Finalize(context.Background(), session.ID, uuid.New(), Input{Segments: sampleSegments, Status: "ended"})
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Empty(t, f.sessions.finalized)
	assert.Empty(t, f.transcripts.upserts)
}

func TestFinalizeWithExplicitTranscript(t *testing.T) {
	userID := uuid.New()
	session := activeSession(userID)
	f := newFixture(session)

	record, err := f.reconciler.Finalize(context.Background(), session.ID, userID, Input{
		Segments:        sampleSegments,
		Status:          "ended",
		DurationSeconds: intPtr(42),
	})
	require.NoError(t, err)

	assert.Equal(t, "ended", record.Status)
	assert.Equal(t, sampleSegments, record.Transcript)
	require.NotNil(t, record.DurationSeconds)
	assert.Equal(t, 42, *record.DurationSeconds)
	require.NotNil(t, record.EndTime)
	assert.Equal(t, f.now, *record.EndTime)

	require.Len(t, f.sessions.finalized, 1)
	assert.Equal(t, "ended", f.sessions.finalized[0].status)

	require.Len(t, f.transcripts.upserts, 1)
	assert.True(t, f.transcripts.upserts[0].finalized)
	assert.Equal(t, sampleSegments, f.transcripts.upserts[0].segments)

	assert.Zero(t, f.transcriber.calls, "no transcription needed when transcript submitted")
}

func TestFinalizeIdempotentContentSkipsRewrite(t *testing.T) {
	userID := uuid.New()
	session := activeSession(userID)
	session.Status = "ended"
	endedAt := time.Now().Add(-time.Minute)
	session.EndTime = &endedAt

	f := newFixture(session)
	f.transcripts.stored = storedTranscript(session.ID, true, sampleSegments)

	record, err := f.reconciler.Finalize(context.Background(), session.ID, userID, Input{
		Segments: sampleSegments,
		Status:   "ended",
	})
	require.NoError(t, err)

	assert.Empty(t, f.transcripts.upserts, "unchanged finalized content must not be rewritten")
	assert.Equal(t, sampleSegments, record.Transcript)
}

func TestFinalizeRewritesWhenStoredNotFinalized(t *testing.T) {
	userID := uuid.New()
	session := activeSession(userID)
	f := newFixture(session)
	// Same content, but the stored row was never sealed: it is always
	// overwritten so the finalized flag lands.
	f.transcripts.stored = storedTranscript(session.ID, false, sampleSegments)

	_, err := f.reconciler.Finalize(context.Background(), session.ID, userID, Input{
		Segments: sampleSegments,
		Status:   "ended",
	})
	require.NoError(t, err)

	require.Len(t, f.transcripts.upserts, 1)
	assert.True(t, f.transcripts.upserts[0].finalized)
}

func TestFinalizeNeverRegressesSettledSession(t *testing.T) {
	userID := uuid.New()
	session := activeSession(userID)
	session.Status = "ended"
	endedAt := time.Now().Add(-time.Hour)
	session.EndTime = &endedAt
	session.DurationSeconds = intPtr(120)

	f := newFixture(session)
	f.transcripts.stored = storedTranscript(session.ID, true, sampleSegments)

	record, err := f.reconciler.Finalize(context.Background(), session.ID, userID, Input{
		Segments:        sampleSegments,
		Status:          "abandoned",
		DurationSeconds: intPtr(999),
	})
	require.NoError(t, err)

	assert.Equal(t, "ended", record.Status, "settled status wins over the submitted one")
	require.NotNil(t, record.EndTime)
	assert.Equal(t, endedAt, *record.EndTime, "settled end time wins")
	require.NotNil(t, record.DurationSeconds)
	assert.Equal(t, 120, *record.DurationSeconds, "stored duration wins")

	require.Len(t, f.sessions.finalized, 1)
	assert.Equal(t, "ended", f.sessions.finalized[0].status)
	assert.Equal(t, endedAt, f.sessions.finalized[0].endTime)
}

func TestFinalizeMissingTranscriptSource(t *testing.T) {
	userID := uuid.New()
	session := activeSession(userID)
	f := newFixture(session)

	_, err := f.reconciler.Finalize(context.Background(), session.ID, userID, Input{Status: "ended"})
	assert.ErrorIs(t, err, ErrMissingTranscriptSource)
	assert.Empty(t, f.sessions.finalized, "missing source must abort before any write")
	assert.Empty(t, f.transcripts.upserts)
	assert.Zero(t, f.transcriber.calls)
}

func TestFinalizeFallsBackToStoredTranscript(t *testing.T) {
	userID := uuid.New()
	session := activeSession(userID)
	f := newFixture(session)
	f.transcripts.stored = storedTranscript(session.ID, false, sampleSegments)

	record, err := f.reconciler.Finalize(context.Background(), session.ID, userID, Input{Status: "ended"})
	require.NoError(t, err)

	assert.Equal(t, sampleSegments, record.Transcript)
	assert.Zero(t, f.transcriber.calls)
}

func TestFinalizeTranscribesStoredAudio(t *testing.T) {
	userID := uuid.New()
	session := activeSession(userID)
	f := newFixture(session)
	f.audio.recording = &_struct.AudioRecording{
		ID:              uuid.New(),
		SessionID:       session.ID,
		StorageURL:      "http://localhost:9000/practice-audio/sessions/x/audio.webm",
		DurationSeconds: intPtr(30),
	}
	transcribed := []_struct.TranscriptSegment{
		{Speaker: "user", Text: "hello there", StartMs: 0, EndMs: 1500},
	}
	f.transcriber.segments = transcribed

	record, err := f.reconciler.Finalize(context.Background(), session.ID, userID, Input{Status: "ended"})
	require.NoError(t, err)

	assert.Equal(t, 1, f.transcriber.calls)
	assert.Equal(t, []string{f.audio.recording.StorageURL}, f.fetcher.requests)
	assert.Equal(t, transcribed, record.Transcript)
	assert.Equal(t, f.audio.recording.StorageURL, record.AudioURL)

	require.Len(t, f.transcripts.upserts, 1)
	assert.Equal(t, transcribed, f.transcripts.upserts[0].segments)
}

func TestFinalizeCorruptStoredTranscriptFallsThroughToAudio(t *testing.T) {
	userID := uuid.New()
	session := activeSession(userID)
	f := newFixture(session)
	f.transcripts.stored = &_struct.Transcript{
		ID:        uuid.New(),
		SessionID: session.ID,
		Segments:  "{not json",
	}
	f.audio.recording = &_struct.AudioRecording{
		ID:         uuid.New(),
		SessionID:  session.ID,
		StorageURL: "http://localhost:9000/practice-audio/sessions/x/audio.webm",
	}
	f.transcriber.segments = sampleSegments

	record, err := f.reconciler.Finalize(context.Background(), session.ID, userID, Input{Status: "ended"})
	require.NoError(t, err)

	assert.Equal(t, 1, f.transcriber.calls, "a corrupt stored transcript counts as absent")
	assert.Equal(t, sampleSegments, record.Transcript)
}

func TestFinalizeSubmittedAudioURLWins(t *testing.T) {
	userID := uuid.New()
	session := activeSession(userID)
	f := newFixture(session)
	f.audio.recording = &_struct.AudioRecording{
		ID:         uuid.New(),
		SessionID:  session.ID,
		StorageURL: "http://localhost:9000/practice-audio/stored.webm",
	}
	f.transcriber.segments = sampleSegments

	submitted := "http://localhost:9000/practice-audio/submitted.webm"
	record, err := f.reconciler.Finalize(context.Background(), session.ID, userID, Input{
		Status:   "ended",
		AudioURL: submitted,
	})
	require.NoError(t, err)

	assert.Equal(t, submitted, record.AudioURL)
	assert.Equal(t, []string{submitted}, f.fetcher.requests)
}

func TestFinalizeTranscriptionFailure(t *testing.T) {
	userID := uuid.New()
	session := activeSession(userID)
	f := newFixture(session)
	f.audio.recording = &_struct.AudioRecording{
		ID:         uuid.New(),
		SessionID:  session.ID,
		StorageURL: "http://localhost:9000/practice-audio/stored.webm",
	}
	f.transcriber.err = errors.New("provider 500")

	_, err := f.reconciler.Finalize(context.Background(), session.ID, userID, Input{Status: "ended"})
	assert.ErrorIs(t, err, ErrTranscriptionFailed)
	assert.Equal(t, 1, f.transcriber.calls, "exactly one attempt, never a blind retry")
	assert.Empty(t, f.sessions.finalized)
	assert.Empty(t, f.transcripts.upserts)
}

func TestFinalizeUpdateFailure(t *testing.T) {
	userID := uuid.New()
	session := activeSession(userID)
	f := newFixture(session)
	f.sessions.finalizeErr = errors.New("deadlock detected")

	_, err := f.reconciler.Finalize(context.Background(), session.ID, userID, Input{Segments: sampleSegments, Status: "ended"})
	assert.ErrorIs(t, err, ErrFinalizeUpdateFailed)
	assert.Empty(t, f.transcripts.upserts, "transcript write happens after the session update")
}

func TestFinalizeTranscriptPersistFailure(t *testing.T) {
	userID := uuid.New()
	session := activeSession(userID)
	f := newFixture(session)
	f.transcripts.upsertErr = errors.New("unique violation")

	_, err := f.reconciler.Finalize(context.Background(), session.ID, userID, Input{Segments: sampleSegments, Status: "ended"})
	assert.ErrorIs(t, err, ErrTranscriptPersistFailed)
}

func TestFinalizeDurationHintPrecedence(t *testing.T) {
	userID := uuid.New()
	session := activeSession(userID)
	session.DurationSeconds = intPtr(77)

	f := newFixture(session)
	f.audio.recording = &_struct.AudioRecording{
		ID:              uuid.New(),
		SessionID:       session.ID,
		StorageURL:      "http://localhost:9000/practice-audio/stored.webm",
		DurationSeconds: intPtr(30),
	}
	f.transcriber.segments = sampleSegments

	record, err := f.reconciler.Finalize(context.Background(), session.ID, userID, Input{
		Status:          "ended",
		DurationSeconds: intPtr(10),
	})
	require.NoError(t, err)

	require.Len(t, f.transcriber.hints, 1)
	require.NotNil(t, f.transcriber.hints[0])
	assert.Equal(t, 77, *f.transcriber.hints[0], "session duration outranks submitted and recording hints")
	require.NotNil(t, record.DurationSeconds)
	assert.Equal(t, 77, *record.DurationSeconds)
}

func TestFinalizeDefaultsStatusToEnded(t *testing.T) {
	userID := uuid.New()
	session := activeSession(userID)
	f := newFixture(session)

	record, err := f.reconciler.Finalize(context.Background(), session.ID, userID, Input{Segments: sampleSegments})
	require.NoError(t, err)
	assert.Equal(t, _struct.SessionStatusEnded, record.Status)
}
