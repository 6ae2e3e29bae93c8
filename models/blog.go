package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Blog is a post with one or more authors. Tags keep their submitted order.
type Blog struct {
	ID            uuid.UUID                   `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid();not null"`
	Title         string                      `json:"title" gorm:"type:varchar(500);not null"`
	Description   *string                     `json:"description,omitempty" gorm:"type:text"`
	Content       string                      `json:"content" gorm:"type:text;not null"`
	Tags          datatypes.JSONSlice[string] `json:"tags" gorm:"not null;default:'[]'"`
	CoverImageURL *string                     `json:"cover_image_url,omitempty" gorm:"type:text"`
	IsPublished   bool                        `json:"is_published" gorm:"not null;default:false;index"`
	IsFeatured    bool                        `json:"is_featured" gorm:"not null;default:false"`
	CreatedAt     time.Time                   `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP;index"`
	UpdatedAt     time.Time                   `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	PublishedAt   *time.Time                  `json:"published_at,omitempty"`

	Authors  []BlogAuthor `json:"-" gorm:"foreignKey:BlogID;references:ID;constraint:OnDelete:CASCADE"`
	Likes    []Like       `json:"-" gorm:"foreignKey:BlogID;references:ID;constraint:OnDelete:CASCADE"`
	Comments []Comment    `json:"-" gorm:"foreignKey:BlogID;references:ID;constraint:OnDelete:CASCADE"`
}
