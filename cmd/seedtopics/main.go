package main

import (
	"context"
	"log"

	_struct "speech-dojo/models/struct"
	"speech-dojo/pkg/store"
	"speech-dojo/platform/config"
	"speech-dojo/platform/database"
)

func strPtr(s string) *string { return &s }

func main() {
	config.LoadConfig()
	database.ConnectDatabase()
	defer database.CloseDatabase()

	topics := []_struct.Topic{
		{Title: "Ordering at a restaurant", Difficulty: strPtr("beginner"), PromptHint: strPtr("You are ordering dinner; ask about the menu and request the bill.")},
		{Title: "Job interview practice", Difficulty: strPtr("intermediate"), PromptHint: strPtr("Answer common interview questions about your experience and goals.")},
		{Title: "Describing your hometown", Difficulty: strPtr("beginner"), PromptHint: strPtr("Talk about where you grew up and what makes it special.")},
		{Title: "Debating a news story", Difficulty: strPtr("advanced"), PromptHint: strPtr("Pick a recent headline and argue one side, then the other.")},
		{Title: "Making travel plans", Difficulty: strPtr("intermediate"), PromptHint: strPtr("Plan a weekend trip: transport, lodging, and an itinerary.")},
	}

	topicStore := store.NewTopicStore(database.DB)
	if err := topicStore.InsertMany(context.Background(), topics); err != nil {
		log.Fatalf("Failed to seed topics: %v", err)
	}

	log.Printf("Seeded %d topics", len(topics))
}
