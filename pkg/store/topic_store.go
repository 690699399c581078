package store

import (
	"context"

	"github.com/google/uuid"
	_struct "speech-dojo/models/struct"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormTopicStore struct {
	db *gorm.DB
}

func NewTopicStore(db *gorm.DB) *GormTopicStore {
	return &GormTopicStore{db: db}
}

func (s *GormTopicStore) List(ctx context.Context) ([]_struct.Topic, error) {
	var topics []_struct.Topic
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&topics).Error
	if err != nil {
		return nil, err
	}
	return topics, nil
}

// InsertMany seeds topics, skipping any whose title already exists.
func (s *GormTopicStore) InsertMany(ctx context.Context, topics []_struct.Topic) error {
	for i := range topics {
		if topics[i].ID == uuid.Nil {
			topics[i].ID = uuid.New()
		}
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "title"}},
		DoNothing: true,
	}).Create(&topics).Error
}
