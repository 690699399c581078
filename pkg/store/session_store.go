package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	_struct "speech-dojo/models/struct"
	"gorm.io/gorm"
)

type GormSessionStore struct {
	db *gorm.DB
}

func NewSessionStore(db *gorm.DB) *GormSessionStore {
	return &GormSessionStore{db: db}
}

func (s *GormSessionStore) Create(ctx context.Context, userID, topicID uuid.UUID) (*_struct.Session, error) {
	session := _struct.Session{
		ID:        uuid.New(),
		UserID:    userID,
		TopicID:   topicID,
		StartTime: time.Now().UTC(),
		Status:    _struct.SessionStatusActive,
		Privacy:   "private",
	}
	if err := s.db.WithContext(ctx).Create(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *GormSessionStore) Get(ctx context.Context, sessionID uuid.UUID) (*_struct.Session, error) {
	var session _struct.Session
	if err := s.db.WithContext(ctx).First(&session, "id = ?", sessionID).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *GormSessionStore) UpdateStatus(ctx context.Context, sessionID uuid.UUID, status string) error {
	result := s.db.WithContext(ctx).Model(&_struct.Session{}).
		Where("id = ?", sessionID).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *GormSessionStore) Finalize(ctx context.Context, sessionID uuid.UUID, endTime time.Time, durationSeconds *int, status string) (*_struct.Session, error) {
	updates := map[string]interface{}{
		"end_time":         endTime,
		"duration_seconds": durationSeconds,
		"status":           status,
	}

	result := s.db.WithContext(ctx).Model(&_struct.Session{}).
		Where("id = ?", sessionID).
		Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}

	return s.Get(ctx, sessionID)
}

func (s *GormSessionStore) Delete(ctx context.Context, sessionID, userID uuid.UUID) error {
	result := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", sessionID, userID).
		Delete(&_struct.Session{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
