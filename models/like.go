package models

import (
	"time"

	"github.com/google/uuid"
)

// Like is at most one row per (blog, user); the composite key is what makes concurrent likes safe.
type Like struct {
	BlogID    uuid.UUID `json:"blog_id" gorm:"type:uuid;primaryKey;not null"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;primaryKey;not null;index"`
	CreatedAt time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`

	User User `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE"`
}

func (Like) TableName() string {
	return "blog_likes"
}
