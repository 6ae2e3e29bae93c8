package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rpupo63/inkwell-backend/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CommentRepo struct {
	db *gorm.DB
}

func NewCommentRepo(db *gorm.DB) *CommentRepo {
	return &CommentRepo{db}
}

// Create inserts a comment
func (r *CommentRepo) Create(ctx context.Context, comment *models.Comment) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(comment).Error
}

// FindByID returns a comment by its ID
func (r *CommentRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Comment, error) {
	return first[models.Comment](r.db.WithContext(ctx).Where("id = ?", id))
}

// Update saves the comment's content
func (r *CommentRepo) Update(ctx context.Context, comment *models.Comment) error {
	return r.db.WithContext(ctx).Model(comment).Select("content", "updated_at").Updates(comment).Error
}

// Delete removes a comment; replies cascade
func (r *CommentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Comment{}).Error
}

type commentRow struct {
	ID              uuid.UUID
	BlogID          uuid.UUID
	UserID          uuid.UUID
	Content         string
	ParentCommentID *uuid.UUID
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Username        *string
	DisplayName     *string
	AvatarURL       *string
}

func (row commentRow) view() CommentView {
	return CommentView{
		ID:              row.ID,
		BlogID:          row.BlogID,
		Content:         row.Content,
		ParentCommentID: row.ParentCommentID,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
		User: CommentUser{
			UserID:      row.UserID,
			Username:    row.Username,
			DisplayName: row.DisplayName,
			AvatarURL:   row.AvatarURL,
		},
	}
}

func (r *CommentRepo) withAuthors(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Table("blog_comments").
		Select("blog_comments.*, user_profiles.username, user_profiles.display_name, user_profiles.avatar_url").
		Joins("LEFT JOIN user_profiles ON user_profiles.user_id = blog_comments.user_id")
}

// View returns one comment with its author.
func (r *CommentRepo) View(ctx context.Context, id uuid.UUID) (*CommentView, error) {
	var rows []commentRow
	if err := r.withAuthors(ctx).Where("blog_comments.id = ?", id).Limit(1).Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	view := rows[0].view()
	return &view, nil
}

// Roots returns one page of a blog's root comments, newest first, and the root total.
func (r *CommentRepo) Roots(ctx context.Context, blogID uuid.UUID, page Page) ([]CommentView, int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.Comment{}).
		Where("blog_id = ? AND parent_comment_id IS NULL", blogID).
		Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	var rows []commentRow
	err = r.withAuthors(ctx).
		Where("blog_comments.blog_id = ? AND blog_comments.parent_comment_id IS NULL", blogID).
		Order("blog_comments.created_at DESC, blog_comments.id DESC").
		Offset(page.Skip).
		Limit(page.Limit).
		Scan(&rows).Error
	if err != nil {
		return nil, 0, err
	}

	views := make([]CommentView, len(rows))
	for i, row := range rows {
		views[i] = row.view()
	}
	return views, total, nil
}

// RepliesByParent loads the replies of many roots with a single query, oldest first per parent.
func (r *CommentRepo) RepliesByParent(ctx context.Context, parentIDs []uuid.UUID) (map[uuid.UUID][]CommentView, error) {
	out := make(map[uuid.UUID][]CommentView, len(parentIDs))
	if len(parentIDs) == 0 {
		return out, nil
	}

	var rows []commentRow
	err := r.withAuthors(ctx).
		Where("blog_comments.parent_comment_id IN ?", parentIDs).
		Order("blog_comments.created_at ASC, blog_comments.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		parent := *row.ParentCommentID
		out[parent] = append(out[parent], row.view())
	}
	return out, nil
}
