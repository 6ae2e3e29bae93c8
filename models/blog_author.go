package models

import (
	"time"

	"github.com/google/uuid"
)

// BlogAuthor links a user to a blog. Exactly one row per blog is the primary author.
type BlogAuthor struct {
	BlogID          uuid.UUID `json:"blog_id" gorm:"type:uuid;primaryKey;not null"`
	UserID          uuid.UUID `json:"user_id" gorm:"type:uuid;primaryKey;not null;index"`
	IsPrimaryAuthor bool      `json:"is_primary_author" gorm:"not null;default:false"`
	CreatedAt       time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`

	User User `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE"`
}
