package controllers

import (
	"errors"
	"net/http"
	"time"

	"speech-dojo/pkg/broker"
	"speech-dojo/platform/middleware"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type RealtimeSessionRequest struct {
	SessionID    uuid.UUID `json:"session_id" binding:"required"`
	ForceRefresh bool      `json:"force_refresh"`
	Status       string    `json:"status"`
}

type RealtimeController struct {
	broker *broker.Broker
}

func NewRealtimeController(b *broker.Broker) *RealtimeController {
	return &RealtimeController{broker: b}
}

// MintClientSecret issues or reuses the realtime credential for a
// session. Error bodies stay generic; the reason lands in the logs only.
func (rc *RealtimeController) MintClientSecret(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	var request RealtimeSessionRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	issued, err := rc.broker.IssueOrRefresh(c.Request.Context(), request.SessionID, userID, request.ForceRefresh, request.Status)
	if err != nil {
		switch {
		case errors.Is(err, broker.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		case errors.Is(err, broker.ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{"error": "Session belongs to another user"})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "Could not issue credential"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"client_secret": issued.Token,
		"expires_at":    issued.ExpiresAt.Format(time.RFC3339),
		"session_id":    issued.SessionID,
	})
}
