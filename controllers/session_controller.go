package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	_struct "speech-dojo/models/struct"
	"speech-dojo/pkg/reconcile"
	"speech-dojo/pkg/store"
	"speech-dojo/platform/cache"
	"speech-dojo/platform/kafka"
	"speech-dojo/platform/middleware"
	"speech-dojo/platform/storage"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}

type SessionController struct {
	db         *gorm.DB
	sessions   *store.GormSessionStore
	audio      *store.GormAudioStore
	reconciler *reconcile.Reconciler
	producer   *kafka.Producer
	bucket     string
}

func NewSessionController(
	db *gorm.DB,
	sessions *store.GormSessionStore,
	audio *store.GormAudioStore,
	reconciler *reconcile.Reconciler,
	producer *kafka.Producer,
	bucket string,
) *SessionController {
	return &SessionController{
		db:         db,
		sessions:   sessions,
		audio:      audio,
		reconciler: reconciler,
		producer:   producer,
		bucket:     bucket,
	}
}

type CreateSessionRequest struct {
	TopicID uuid.UUID `json:"topic_id" binding:"required"`
}

func (sc *SessionController) CreateSession(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	var request CreateSessionRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	session, err := sc.sessions.Create(c.Request.Context(), userID, request.TopicID)
	if err != nil {
		log.Printf("Error creating session: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not create session"})
		return
	}

	c.JSON(http.StatusCreated, session)
}

type sessionListRow struct {
	ID              uuid.UUID  `json:"id"`
	TopicID         uuid.UUID  `json:"topic_id"`
	TopicTitle      string     `json:"topic_title"`
	StartTime       time.Time  `json:"start_time"`
	DurationSeconds *int       `json:"duration_seconds"`
	Status          string     `json:"status"`
	Privacy         string     `json:"privacy"`
	AudioURL        *string    `json:"audio_url"`
	HasAudio        bool       `json:"has_audio"`
	HasTranscript   bool       `json:"has_transcript"`
}

func (sc *SessionController) ListSessions(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	var rows []sessionListRow
	err := sc.db.WithContext(c.Request.Context()).
		Table("sessions s").
		Select(`s.id, s.topic_id, t.title AS topic_title, s.start_time,
			s.duration_seconds, s.status, s.privacy,
			ar.storage_url AS audio_url,
			(ar.id IS NOT NULL) AS has_audio,
			(tr.id IS NOT NULL) AS has_transcript`).
		Joins("JOIN topics t ON t.id = s.topic_id").
		Joins("LEFT JOIN audio_recordings ar ON ar.session_id = s.id").
		Joins("LEFT JOIN transcripts tr ON tr.session_id = s.id").
		Where("s.user_id = ? AND s.deleted_at IS NULL", userID).
		Order("s.start_time DESC").
		Scan(&rows).Error
	if err != nil {
		log.Printf("Error listing sessions: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not list sessions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"sessions": rows})
}

type sessionDetail struct {
	ID              uuid.UUID                   `json:"id"`
	TopicID         uuid.UUID                   `json:"topic_id"`
	TopicTitle      string                      `json:"topic_title"`
	StartTime       time.Time                   `json:"start_time"`
	EndTime         *time.Time                  `json:"end_time"`
	DurationSeconds *int                        `json:"duration_seconds"`
	Status          string                      `json:"status"`
	Privacy         string                      `json:"privacy"`
	AudioURL        *string                     `json:"audio_url"`
	Transcript      []_struct.TranscriptSegment `json:"transcript"`
}

func (sc *SessionController) GetSessionDetail(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session ID"})
		return
	}

	if cached, err := cache.GetCachedSessionDetail(sessionID.String()); err == nil {
		var detail sessionDetail
		if err := json.Unmarshal([]byte(cached), &detail); err == nil {
			c.JSON(http.StatusOK, gin.H{"session": detail})
			return
		}
	}

	detail, err := sc.loadSessionDetail(c, sessionID, userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}

	if payload, err := json.Marshal(detail); err == nil {
		cache.CacheSessionDetail(sessionID.String(), string(payload), time.Hour)
	}

	c.JSON(http.StatusOK, gin.H{"session": detail})
}

type sessionDetailRow struct {
	ID                 uuid.UUID
	TopicID            uuid.UUID
	TopicTitle         string
	StartTime          time.Time
	EndTime            *time.Time
	DurationSeconds    *int
	Status             string
	Privacy            string
	AudioURL           *string
	TranscriptSegments *string
}

func (sc *SessionController) loadSessionDetail(c *gin.Context, sessionID, userID uuid.UUID) (*sessionDetail, error) {
	var row sessionDetailRow
	err := sc.db.WithContext(c.Request.Context()).
		Table("sessions s").
		Select(`s.id, s.topic_id, t.title AS topic_title, s.start_time, s.end_time,
			s.duration_seconds, s.status, s.privacy,
			ar.storage_url AS audio_url,
			tr.segments AS transcript_segments`).
		Joins("JOIN topics t ON t.id = s.topic_id").
		Joins("LEFT JOIN audio_recordings ar ON ar.session_id = s.id").
		Joins("LEFT JOIN transcripts tr ON tr.session_id = s.id").
		Where("s.id = ? AND s.user_id = ? AND s.deleted_at IS NULL", sessionID, userID).
		Take(&row).Error
	if err != nil {
		return nil, err
	}

	transcript := []_struct.TranscriptSegment{}
	if row.TranscriptSegments != nil {
		if err := json.Unmarshal([]byte(*row.TranscriptSegments), &transcript); err != nil {
			log.Printf("Error parsing transcript segments for session %s: %v", sessionID, err)
			transcript = []_struct.TranscriptSegment{}
		}
	}

	return &sessionDetail{
		ID:              row.ID,
		TopicID:         row.TopicID,
		TopicTitle:      row.TopicTitle,
		StartTime:       row.StartTime,
		EndTime:         row.EndTime,
		DurationSeconds: row.DurationSeconds,
		Status:          row.Status,
		Privacy:         row.Privacy,
		AudioURL:        row.AudioURL,
		Transcript:      transcript,
	}, nil
}

func (sc *SessionController) DeleteSession(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session ID"})
		return
	}

	if err := sc.sessions.Delete(c.Request.Context(), sessionID, userID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}

	cache.InvalidateSessionDetail(sessionID.String())
	c.Status(http.StatusNoContent)
}

func (sc *SessionController) UploadAudio(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session ID"})
		return
	}

	session, err := sc.sessions.Get(c.Request.Context(), sessionID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}
	if session.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Session belongs to another user"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing audio file"})
		return
	}

	var duration *int
	if raw := c.PostForm("duration_seconds"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			duration = &parsed
		}
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not read audio file"})
		return
	}
	defer file.Close()

	mimeType := fileHeader.Header.Get("Content-Type")
	objectName := fmt.Sprintf("sessions/%s/%s", sessionID, fileHeader.Filename)

	url, err := storage.UploadAudio(sc.bucket, objectName, file, fileHeader.Size, mimeType)
	if err != nil {
		log.Printf("Error uploading audio for session %s: %v", sessionID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error storing audio file"})
		return
	}

	recording := &_struct.AudioRecording{
		SessionID:       sessionID,
		StorageURL:      url,
		DurationSeconds: duration,
		SizeBytes:       &fileHeader.Size,
	}
	if mimeType != "" {
		recording.MimeType = &mimeType
	}

	saved, err := sc.audio.Upsert(c.Request.Context(), recording)
	if err != nil {
		log.Printf("Error saving audio record for session %s: %v", sessionID, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not save audio record"})
		return
	}

	sc.publishAudioUploaded(saved)
	cache.InvalidateSessionDetail(sessionID.String())

	c.JSON(http.StatusOK, saved)
}

// publishAudioUploaded hands the recording to the background transcription
// processor. Best-effort: a broker outage must not fail the upload.
func (sc *SessionController) publishAudioUploaded(recording *_struct.AudioRecording) {
	if sc.producer == nil {
		return
	}

	message := _struct.AudioUploadedMessage{
		SessionID:       recording.SessionID,
		StorageURL:      recording.StorageURL,
		DurationSeconds: recording.DurationSeconds,
	}
	if recording.MimeType != nil {
		message.MimeType = *recording.MimeType
	}

	payload, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error encoding audio uploaded message: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sc.producer.SendMessage(ctx, kafka.TopicAudioUploaded, []byte(recording.SessionID.String()), payload); err != nil {
		log.Printf("Error publishing audio uploaded event: %v", err)
	}
}

type FinalizeRequest struct {
	Transcript      []_struct.TranscriptSegment `json:"transcript"`
	Status          string                      `json:"status"`
	DurationSeconds *int                        `json:"duration_seconds"`
	AudioURL        string                      `json:"audio_url"`
}

func (sc *SessionController) FinalizeSession(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session ID"})
		return
	}

	var request FinalizeRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	record, err := sc.reconciler.Finalize(c.Request.Context(), sessionID, userID, reconcile.Input{
		Segments:        request.Transcript,
		Status:          request.Status,
		DurationSeconds: request.DurationSeconds,
		AudioURL:        request.AudioURL,
	})
	if err != nil {
		switch {
		case errors.Is(err, reconcile.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		case errors.Is(err, reconcile.ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{"error": "Session belongs to another user"})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "Could not finalize session"})
		}
		return
	}

	cache.InvalidateSessionDetail(sessionID.String())
	c.JSON(http.StatusOK, record)
}
