package _struct

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Topic struct {
	ID         uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	Title      string         `json:"title" gorm:"uniqueIndex;not null"`
	Difficulty *string        `json:"difficulty"`
	PromptHint *string        `json:"prompt_hint"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `json:"deleted_at" gorm:"index"`
}
