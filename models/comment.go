package models

import (
	"time"

	"github.com/google/uuid"
)

// Comment is either a root (ParentCommentID nil) or a reply to a root of the same blog.
// The one-level rule is checked when writing; the schema only cascades deletes.
type Comment struct {
	ID              uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid();not null"`
	BlogID          uuid.UUID  `json:"blog_id" gorm:"type:uuid;not null;index:idx_comments_blog_parent,priority:1"`
	UserID          uuid.UUID  `json:"user_id" gorm:"type:uuid;not null;index"`
	Content         string     `json:"content" gorm:"type:text;not null"`
	ParentCommentID *uuid.UUID `json:"parent_comment_id,omitempty" gorm:"type:uuid;index:idx_comments_blog_parent,priority:2"`
	CreatedAt       time.Time  `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt       time.Time  `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`

	User    User      `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE"`
	Replies []Comment `json:"-" gorm:"foreignKey:ParentCommentID;references:ID;constraint:OnDelete:CASCADE"`
}

func (Comment) TableName() string {
	return "blog_comments"
}

// IsRoot reports whether the comment may receive replies.
func (c Comment) IsRoot() bool {
	return c.ParentCommentID == nil
}
