package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"speech-dojo/pkg/processor"
	"speech-dojo/pkg/store"
	"speech-dojo/pkg/telemetry"
	"speech-dojo/pkg/transcription"
	"speech-dojo/platform/config"
	"speech-dojo/platform/database"
	"speech-dojo/platform/kafka"
	"speech-dojo/platform/storage"
)

func main() {
	log.Println("Starting Speech Dojo transcription processor")

	appConfig := config.LoadConfig()
	telemetry.Init(appConfig.LogLevel, appConfig.Environment)

	database.ConnectDatabase()
	storage.ConnectMinio()

	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	kafkaConfig := kafka.NewKafkaConfig()

	skipKafka := os.Getenv("KAFKA_SKIP") == "true"

	if !skipKafka {
		transcripts := store.NewTranscriptStore(database.DB)
		transcriber := transcription.NewOpenAIClient(
			appConfig.OpenAIAPIKey,
			appConfig.TranscriptionModel,
			appConfig.TranscriptionTimeout,
		)

		transcriptionProcessor := processor.NewTranscriptionProcessor(
			kafkaConfig, transcripts, storage.ObjectFetcher{}, transcriber,
		)

		go func() {
			if err := transcriptionProcessor.Start(ctx); err != nil {
				if ctx.Err() == nil {
					log.Printf("Error starting transcription processor: %v", err)
					log.Println("Retrying in 10 seconds...")
					time.Sleep(10 * time.Second)
				}
			}
		}()

		<-sigChan
		log.Println("Received shutdown signal, stopping...")

		cancel()

		if err := transcriptionProcessor.Stop(); err != nil {
			log.Printf("Error stopping transcription processor: %v", err)
		}
	} else {
		log.Println("Running in development mode without Kafka")
		log.Println("Waiting for shutdown signal...")

		<-sigChan
		log.Println("Received shutdown signal, stopping...")
		cancel()
	}

	database.CloseDatabase()

	log.Println("Transcription processor stopped")
}
