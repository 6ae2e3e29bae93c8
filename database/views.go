package database

import (
	"time"

	"github.com/google/uuid"
)

// AuthorView is one author of a blog joined with their profile.
type AuthorView struct {
	UserID          uuid.UUID `json:"user_id"`
	Username        *string   `json:"username"`
	DisplayName     *string   `json:"display_name"`
	AvatarURL       *string   `json:"avatar_url"`
	IsPrimaryAuthor bool      `json:"is_primary_author"`
}

// BlogView is a blog with its authors and counts. Summaries leave Content and UpdatedAt empty.
type BlogView struct {
	ID            uuid.UUID    `json:"id"`
	Title         string       `json:"title"`
	Description   *string      `json:"description"`
	Content       string       `json:"content,omitempty"`
	Tags          []string     `json:"tags"`
	CoverImageURL *string      `json:"cover_image_url"`
	IsPublished   bool         `json:"is_published"`
	IsFeatured    bool         `json:"is_featured"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     *time.Time   `json:"updated_at,omitempty"`
	PublishedAt   *time.Time   `json:"published_at"`
	Authors       []AuthorView `json:"authors"`
	LikeCount     int64        `json:"like_count"`
	CommentCount  int64        `json:"comment_count"`
}

// HasAuthor reports whether userID is among the blog's authors.
func (v BlogView) HasAuthor(userID uuid.UUID) bool {
	for _, a := range v.Authors {
		if a.UserID == userID {
			return true
		}
	}
	return false
}

// CommentUser is the public identity shown next to a comment.
type CommentUser struct {
	UserID      uuid.UUID `json:"user_id"`
	Username    *string   `json:"username"`
	DisplayName *string   `json:"display_name"`
	AvatarURL   *string   `json:"avatar_url"`
}

type CommentView struct {
	ID              uuid.UUID   `json:"id"`
	BlogID          uuid.UUID   `json:"blog_id"`
	Content         string      `json:"content"`
	ParentCommentID *uuid.UUID  `json:"parent_comment_id"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
	User            CommentUser `json:"user"`
}

// CommentThread is a root comment with every reply, oldest first.
type CommentThread struct {
	CommentView
	ReplyCount int           `json:"reply_count"`
	Replies    []CommentView `json:"replies"`
}

// FollowUser is one entry of a followers or following list.
type FollowUser struct {
	UserID      uuid.UUID `json:"user_id"`
	Username    *string   `json:"username"`
	DisplayName *string   `json:"display_name"`
	AvatarURL   *string   `json:"avatar_url"`
	FollowedAt  time.Time `json:"followed_at"`
}

// BlogFilter narrows a blog search. All set fields must match.
type BlogFilter struct {
	// Published restricts on the publish flag; nil matches both.
	Published *bool
	// Query is matched case-insensitively against title, description and content.
	Query string
	// Author is matched case-insensitively against an author's username or display name.
	Author string
	// AuthorID restricts to blogs the user authored; uuid.Nil matches any.
	AuthorID uuid.UUID
	// Tags must all be present on the blog.
	Tags []string
}

// PublishedOnly is the default visibility for listings.
func PublishedOnly() *bool {
	published := true
	return &published
}
