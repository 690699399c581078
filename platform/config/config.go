package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	Environment string

	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string

	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	KafkaBrokers string
	KafkaGroupID string

	OpenAIAPIKey         string
	TranscriptionModel   string
	TranscriptionTimeout time.Duration

	LogLevel      string
	JWTSecret     string
	MaxUploadSize int64 // Maximum audio upload size in bytes
}

func LoadConfig() *Config {
	// Optional local overrides; a missing .env is not an error.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using process environment")
	}

	return &Config{
		// Server settings
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENV", "development"),

		// Database settings
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBName:     getEnv("DB_NAME", "speech_dojo"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),

		// Redis settings
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		// MinIO settings
		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", "adminUser"),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", "adminUser"),
		MinioBucket:    getEnv("MINIO_BUCKET", "practice-audio"),
		MinioUseSSL:    getEnvAsBool("MINIO_USE_SSL", false),

		// Kafka settings
		KafkaBrokers: getEnv("KAFKA_BROKERS", "localhost:9092"),
		KafkaGroupID: getEnv("KAFKA_GROUP_ID", "speech-dojo"),

		// Transcription settings
		OpenAIAPIKey:         getEnv("OPENAI_SECRET_KEY", ""),
		TranscriptionModel:   getEnv("TRANSCRIPTION_MODEL", "whisper-1"),
		TranscriptionTimeout: time.Duration(getEnvAsInt("TRANSCRIPTION_TIMEOUT", 30)) * time.Second,

		// Application settings
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		JWTSecret:     getEnv("JWT_SECRET", "E27E5C94368F2FE3C4862F53DD433B26"),
		MaxUploadSize: getEnvAsInt64("MAX_UPLOAD_SIZE", 50*1024*1024),
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}
