package processor

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_struct "speech-dojo/models/struct"
)

type fakeTranscriptStore struct {
	existing  *_struct.Transcript
	getErr    error
	upsertErr error

	upserts   int
	finalized bool
	segments  []_struct.TranscriptSegment
}

func (f *fakeTranscriptStore) GetBySession(ctx context.Context, sessionID uuid.UUID) (*_struct.Transcript, error) {
	return f.existing, f.getErr
}

func (f *fakeTranscriptStore) Upsert(ctx context.Context, sessionID uuid.UUID, finalized bool, segments []_struct.TranscriptSegment) (uuid.UUID, error) {
	if f.upsertErr != nil {
		return uuid.Nil, f.upsertErr
	}
	f.upserts++
	f.finalized = finalized
	f.segments = segments
	return uuid.New(), nil
}

type fakeFetcher struct {
	data  []byte
	err   error
	calls int
}

func (f *fakeFetcher) FetchBytes(ctx context.Context, storageURL string) ([]byte, error) {
	f.calls++
	return f.data, f.err
}

type fakeTranscriber struct {
	segments []_struct.TranscriptSegment
	err      error
	calls    int
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audio []byte, durationHint *int) ([]_struct.TranscriptSegment, error) {
	f.calls++
	return f.segments, f.err
}

func testMessage() _struct.AudioUploadedMessage {
	return _struct.AudioUploadedMessage{
		SessionID:  uuid.New(),
		StorageURL: "localhost:9000/practice-audio/sessions/abc/audio.webm",
	}
}

func TestProcessStoresUnfinalizedTranscript(t *testing.T) {
	transcripts := &fakeTranscriptStore{}
	fetcher := &fakeFetcher{data: []byte("audio")}
	transcriber := &fakeTranscriber{segments: []_struct.TranscriptSegment{
		{Speaker: "user", Text: "hello there", StartMs: 0, EndMs: 1200},
	}}

	p := &TranscriptionProcessor{transcripts: transcripts, fetcher: fetcher, transcriber: transcriber}
	p.process(context.Background(), testMessage())

	require.Equal(t, 1, transcripts.upserts)
	assert.False(t, transcripts.finalized, "the background pass must not seal the transcript")
	assert.Equal(t, "hello there", transcripts.segments[0].Text)
}

func TestProcessSkipsSessionsWithAnyTranscript(t *testing.T) {
	transcripts := &fakeTranscriptStore{existing: &_struct.Transcript{Finalized: false}}
	fetcher := &fakeFetcher{data: []byte("audio")}
	transcriber := &fakeTranscriber{}

	p := &TranscriptionProcessor{transcripts: transcripts, fetcher: fetcher, transcriber: transcriber}
	p.process(context.Background(), testMessage())

	assert.Zero(t, fetcher.calls)
	assert.Zero(t, transcriber.calls)
	assert.Zero(t, transcripts.upserts)
}

func TestProcessFailuresAreDroppedNotRetried(t *testing.T) {
	t.Run("fetch failure", func(t *testing.T) {
		transcripts := &fakeTranscriptStore{}
		fetcher := &fakeFetcher{err: fmt.Errorf("bucket unreachable")}
		transcriber := &fakeTranscriber{}

		p := &TranscriptionProcessor{transcripts: transcripts, fetcher: fetcher, transcriber: transcriber}
		p.process(context.Background(), testMessage())

		assert.Equal(t, 1, fetcher.calls)
		assert.Zero(t, transcriber.calls)
		assert.Zero(t, transcripts.upserts)
	})

	t.Run("provider failure", func(t *testing.T) {
		transcripts := &fakeTranscriptStore{}
		fetcher := &fakeFetcher{data: []byte("audio")}
		transcriber := &fakeTranscriber{err: fmt.Errorf("rate limited")}

		p := &TranscriptionProcessor{transcripts: transcripts, fetcher: fetcher, transcriber: transcriber}
		p.process(context.Background(), testMessage())

		assert.Equal(t, 1, transcriber.calls, "exactly one billed attempt")
		assert.Zero(t, transcripts.upserts)
	})

	t.Run("empty result", func(t *testing.T) {
		transcripts := &fakeTranscriptStore{}
		fetcher := &fakeFetcher{data: []byte("audio")}
		transcriber := &fakeTranscriber{segments: []_struct.TranscriptSegment{}}

		p := &TranscriptionProcessor{transcripts: transcripts, fetcher: fetcher, transcriber: transcriber}
		p.process(context.Background(), testMessage())

		assert.Zero(t, transcripts.upserts)
	})
}
