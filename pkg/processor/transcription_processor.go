// Package processor pre-transcribes uploaded session audio in the
// background so the finalize path usually finds a stored transcript
// instead of paying for a synchronous transcription call.
package processor

import (
	"context"
	"encoding/json"
	"log"

	_struct "speech-dojo/models/struct"
	"speech-dojo/pkg/reconcile"
	"speech-dojo/pkg/store"
	"speech-dojo/pkg/telemetry"
	"speech-dojo/pkg/transcription"
	"speech-dojo/platform/kafka"
)

type TranscriptionProcessor struct {
	consumer    *kafka.Consumer
	transcripts store.TranscriptStore
	fetcher     reconcile.AudioFetcher
	transcriber transcription.Transcriber
}

func NewTranscriptionProcessor(
	kafkaConfig kafka.Config,
	transcripts store.TranscriptStore,
	fetcher reconcile.AudioFetcher,
	transcriber transcription.Transcriber,
) *TranscriptionProcessor {
	return &TranscriptionProcessor{
		consumer:    kafka.NewConsumer(kafkaConfig, kafka.TopicAudioUploaded),
		transcripts: transcripts,
		fetcher:     fetcher,
		transcriber: transcriber,
	}
}

func (p *TranscriptionProcessor) Start(ctx context.Context) error {
	log.Println("Starting transcription processor...")

	return p.consumer.ConsumeMessages(ctx, func(key, value []byte) error {
		var message _struct.AudioUploadedMessage
		if err := json.Unmarshal(value, &message); err != nil {
			log.Printf("Error parsing audio uploaded message: %v", err)
			return err
		}

		p.process(ctx, message)
		return nil
	})
}

func (p *TranscriptionProcessor) Stop() error {
	return p.consumer.Close()
}

// process transcribes one uploaded recording. Transcription is billed per
// call, so a failed attempt is logged and dropped, never retried, and a
// session that already has any transcript row is skipped.
func (p *TranscriptionProcessor) process(ctx context.Context, message _struct.AudioUploadedMessage) {
	existing, err := p.transcripts.GetBySession(ctx, message.SessionID)
	if err != nil {
		telemetry.LogFailure("pretranscribe_lookup_failed", message.SessionID, err.Error())
		return
	}
	if existing != nil {
		return
	}

	audio, err := p.fetcher.FetchBytes(ctx, message.StorageURL)
	if err != nil {
		telemetry.LogFailure("pretranscribe_audio_fetch_failed", message.SessionID, err.Error())
		return
	}

	segments, err := p.transcriber.Transcribe(ctx, audio, message.DurationSeconds)
	if err != nil {
		telemetry.LogFailure("pretranscribe_failed", message.SessionID, err.Error())
		return
	}
	if len(segments) == 0 {
		telemetry.LogFailure("pretranscribe_empty", message.SessionID, "transcription returned no segments")
		return
	}

	// Not finalized: the reconciler owns sealing the transcript.
	if _, err := p.transcripts.Upsert(ctx, message.SessionID, false, segments); err != nil {
		telemetry.LogFailure("pretranscribe_persist_failed", message.SessionID, err.Error())
		return
	}

	telemetry.LogRecovery("pretranscribe_completed", message.SessionID, "transcript_stored")
}
