package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_struct "speech-dojo/models/struct"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormTranscriptStore struct {
	db *gorm.DB
}

func NewTranscriptStore(db *gorm.DB) *GormTranscriptStore {
	return &GormTranscriptStore{db: db}
}

func (s *GormTranscriptStore) GetBySession(ctx context.Context, sessionID uuid.UUID) (*_struct.Transcript, error) {
	var transcript _struct.Transcript
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		First(&transcript).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &transcript, nil
}

// Upsert writes the transcript keyed on session_id, replacing segments
// and the finalized flag in place when a row already exists.
func (s *GormTranscriptStore) Upsert(ctx context.Context, sessionID uuid.UUID, finalized bool, segments []_struct.TranscriptSegment) (uuid.UUID, error) {
	encoded, err := json.Marshal(segments)
	if err != nil {
		return uuid.Nil, fmt.Errorf("encode segments: %w", err)
	}

	transcript := _struct.Transcript{
		ID:        uuid.New(),
		SessionID: sessionID,
		Finalized: finalized,
		Segments:  string(encoded),
	}

	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"finalized", "segments"}),
	}).Create(&transcript).Error
	if err != nil {
		return uuid.Nil, err
	}

	// On conflict the generated id is discarded; read back the row id.
	existing, err := s.GetBySession(ctx, sessionID)
	if err != nil || existing == nil {
		return transcript.ID, nil
	}
	return existing.ID, nil
}
