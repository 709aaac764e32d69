package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User carries at most one valid refresh token at a time; issuing a new
// one overwrites the slot, which is what invalidates the previous token.
type User struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name         string         `gorm:"size:100" json:"name"`
	Email        string         `gorm:"not null;size:255;uniqueIndex" json:"email"`
	Password     string         `gorm:"not null" json:"-"`
	RefreshToken *string        `gorm:"type:text" json:"-"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}
