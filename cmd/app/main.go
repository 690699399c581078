package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"speech-dojo/controllers"
	"speech-dojo/pkg/broker"
	"speech-dojo/pkg/reconcile"
	"speech-dojo/pkg/store"
	"speech-dojo/pkg/telemetry"
	"speech-dojo/pkg/transcription"
	"speech-dojo/platform/cache"
	"speech-dojo/platform/config"
	"speech-dojo/platform/database"
	"speech-dojo/platform/kafka"
	"speech-dojo/platform/middleware"
	"speech-dojo/platform/storage"

	"github.com/gin-gonic/gin"
)

func main() {
	appConfig := config.LoadConfig()
	telemetry.Init(appConfig.LogLevel, appConfig.Environment)

	if appConfig.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	database.ConnectDatabase()
	cache.ConnectRedis()
	storage.ConnectMinio()

	producer := kafka.NewProducer(kafka.NewKafkaConfig())
	setupGracefulShutdown(producer)

	sessions := store.NewSessionStore(database.DB)
	credentials := store.NewCredentialStore(database.DB)
	transcripts := store.NewTranscriptStore(database.DB)
	audio := store.NewAudioStore(database.DB)
	topics := store.NewTopicStore(database.DB)

	transcriber := transcription.NewOpenAIClient(
		appConfig.OpenAIAPIKey,
		appConfig.TranscriptionModel,
		appConfig.TranscriptionTimeout,
	)

	credentialBroker := broker.New(sessions, credentials)
	reconciler := reconcile.New(sessions, transcripts, audio, storage.ObjectFetcher{}, transcriber)

	sessionController := controllers.NewSessionController(
		database.DB, sessions, audio, reconciler, producer, appConfig.MinioBucket,
	)
	topicController := controllers.NewTopicController(topics)
	realtimeController := controllers.NewRealtimeController(credentialBroker)

	router := gin.Default()
	router.MaxMultipartMemory = appConfig.MaxUploadSize

	setupMiddleware(router)
	setupRoutes(router, sessionController, topicController, realtimeController)

	log.Printf("Starting speech practice service on :%s", appConfig.Port)
	if err := router.Run(":" + appConfig.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func setupMiddleware(router *gin.Engine) {
	router.Use(cors())
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
}

func setupRoutes(
	router *gin.Engine,
	sessionController *controllers.SessionController,
	topicController *controllers.TopicController,
	realtimeController *controllers.RealtimeController,
) {
	router.GET("/health", controllers.HealthCheck)

	auth := router.Group("/api/auth")
	{
		auth.POST("/token", controllers.GenerateToken)
	}

	api := router.Group("/api")
	api.Use(middleware.AuthMiddleware())
	{
		api.GET("/topics", topicController.ListTopics)

		sessions := api.Group("/sessions")
		{
			sessions.POST("", sessionController.CreateSession)
			sessions.GET("", sessionController.ListSessions)
			sessions.GET("/:id", sessionController.GetSessionDetail)
			sessions.DELETE("/:id", sessionController.DeleteSession)
			sessions.POST("/:id/upload", sessionController.UploadAudio)
			sessions.POST("/:id/finalize", sessionController.FinalizeSession)
		}

		api.POST("/realtime/session", realtimeController.MintClientSecret)
	}
}

func setupGracefulShutdown(producer *kafka.Producer) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("Shutting down services...")

		if err := producer.Close(); err != nil {
			log.Printf("Error closing Kafka producer: %v", err)
		}

		database.CloseDatabase()
		cache.CloseRedis()

		log.Println("All services shut down gracefully")
		os.Exit(0)
	}()
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
