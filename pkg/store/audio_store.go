package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	_struct "speech-dojo/models/struct"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormAudioStore struct {
	db *gorm.DB
}

func NewAudioStore(db *gorm.DB) *GormAudioStore {
	return &GormAudioStore{db: db}
}

func (s *GormAudioStore) GetBySession(ctx context.Context, sessionID uuid.UUID) (*_struct.AudioRecording, error) {
	var recording _struct.AudioRecording
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		First(&recording).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &recording, nil
}

func (s *GormAudioStore) Upsert(ctx context.Context, recording *_struct.AudioRecording) (*_struct.AudioRecording, error) {
	if recording.ID == uuid.Nil {
		recording.ID = uuid.New()
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"storage_url", "duration_seconds", "mime_type", "size_bytes", "quality_status"}),
	}).Create(recording).Error
	if err != nil {
		return nil, err
	}

	return s.GetBySession(ctx, recording.SessionID)
}
