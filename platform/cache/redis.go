package cache

import (
	"context"
	"fmt"
	"log"
	"speech-dojo/platform/config"
	"time"

	"github.com/redis/go-redis/v9"
)

var RedisClient *redis.Client
var Ctx = context.Background()

func ConnectRedis() {
	cfg := config.LoadConfig()

	RedisClient = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	_, err := RedisClient.Ping(Ctx).Result()
	if err != nil {
		log.Printf("Failed to connect to Redis: %v", err)
	} else {
		log.Println("Connected to Redis server")
	}
}

func CacheSessionDetail(sessionID string, payload string, expiration time.Duration) error {
	if RedisClient == nil {
		return nil
	}
	return RedisClient.Set(Ctx, sessionDetailKey(sessionID), payload, expiration).Err()
}

func GetCachedSessionDetail(sessionID string) (string, error) {
	if RedisClient == nil {
		return "", redis.Nil
	}
	return RedisClient.Get(Ctx, sessionDetailKey(sessionID)).Result()
}

// InvalidateSessionDetail drops the cached detail payload after a write
// (finalize, upload) changes what the detail endpoint would return.
func InvalidateSessionDetail(sessionID string) error {
	if RedisClient == nil {
		return nil
	}
	return RedisClient.Del(Ctx, sessionDetailKey(sessionID)).Err()
}

func CacheTopicList(payload string, expiration time.Duration) error {
	if RedisClient == nil {
		return nil
	}
	return RedisClient.Set(Ctx, "topics:all", payload, expiration).Err()
}

func GetCachedTopicList() (string, error) {
	if RedisClient == nil {
		return "", redis.Nil
	}
	return RedisClient.Get(Ctx, "topics:all").Result()
}

func sessionDetailKey(sessionID string) string {
	return fmt.Sprintf("session:%s:detail", sessionID)
}

func CloseRedis() {
	if RedisClient != nil {
		err := RedisClient.Close()
		if err != nil {
			log.Printf("Error closing Redis connection: %v", err)
			return
		}
		log.Println("Redis connection closed")
	}
}
