package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	_struct "speech-dojo/models/struct"
	"gorm.io/gorm"
)

type GormCredentialStore struct {
	db *gorm.DB
}

func NewCredentialStore(db *gorm.DB) *GormCredentialStore {
	return &GormCredentialStore{db: db}
}

func (s *GormCredentialStore) Insert(ctx context.Context, sessionID uuid.UUID, token string, expiresAt time.Time) (*_struct.Credential, error) {
	credential := _struct.Credential{
		ID:        uuid.New(),
		SessionID: sessionID,
		Token:     token,
		ExpiresAt: expiresAt,
	}
	if err := s.db.WithContext(ctx).Create(&credential).Error; err != nil {
		return nil, err
	}
	return &credential, nil
}

// LatestForSession picks the credential with the latest expiry; with
// several rows in history that is the one a client could still be using.
func (s *GormCredentialStore) LatestForSession(ctx context.Context, sessionID uuid.UUID) (*_struct.Credential, error) {
	var credential _struct.Credential
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("expires_at DESC").
		First(&credential).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &credential, nil
}
