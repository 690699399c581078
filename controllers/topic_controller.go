package controllers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	_struct "speech-dojo/models/struct"
	"speech-dojo/pkg/store"
	"speech-dojo/platform/cache"

	"github.com/gin-gonic/gin"
)

type TopicController struct {
	topics *store.GormTopicStore
}

func NewTopicController(topics *store.GormTopicStore) *TopicController {
	return &TopicController{topics: topics}
}

func (tc *TopicController) ListTopics(c *gin.Context) {
	if cached, err := cache.GetCachedTopicList(); err == nil {
		var topics []_struct.Topic
		if err := json.Unmarshal([]byte(cached), &topics); err == nil {
			c.JSON(http.StatusOK, topics)
			return
		}
	}

	topics, err := tc.topics.List(c.Request.Context())
	if err != nil {
		log.Printf("Error listing topics: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not list topics"})
		return
	}

	if payload, err := json.Marshal(topics); err == nil {
		cache.CacheTopicList(string(payload), time.Hour)
	}

	c.JSON(http.StatusOK, topics)
}
