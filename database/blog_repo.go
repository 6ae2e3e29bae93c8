package database

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rpupo63/inkwell-backend/models"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BlogRepo struct {
	db *gorm.DB
}

func NewBlogRepo(db *gorm.DB) *BlogRepo {
	return &BlogRepo{db}
}

// Create inserts a blog with its primary author and co-authors in one transaction
func (r *BlogRepo) Create(ctx context.Context, blog *models.Blog, primaryAuthorID uuid.UUID, coAuthorIDs []uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(blog).Error; err != nil {
			return err
		}

		authors := []models.BlogAuthor{{BlogID: blog.ID, UserID: primaryAuthorID, IsPrimaryAuthor: true}}
		for _, id := range coAuthorIDs {
			authors = append(authors, models.BlogAuthor{BlogID: blog.ID, UserID: id})
		}
		return tx.Omit(clause.Associations).Create(&authors).Error
	})
}

// FindByID returns a blog by its ID
func (r *BlogRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Blog, error) {
	return first[models.Blog](r.db.WithContext(ctx).Where("id = ?", id))
}

// Update saves the blog's columns and optionally replaces its co-authors
func (r *BlogRepo) Update(ctx context.Context, blog *models.Blog, coAuthorIDs []uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(blog).
			Select("title", "description", "content", "tags", "cover_image_url",
				"is_published", "is_featured", "published_at", "updated_at").
			Updates(blog).Error
		if err != nil || coAuthorIDs == nil {
			return err
		}

		err = tx.Where("blog_id = ? AND is_primary_author = ?", blog.ID, false).
			Delete(&models.BlogAuthor{}).Error
		if err != nil {
			return err
		}
		if len(coAuthorIDs) == 0 {
			return nil
		}

		authors := make([]models.BlogAuthor, 0, len(coAuthorIDs))
		for _, id := range coAuthorIDs {
			authors = append(authors, models.BlogAuthor{BlogID: blog.ID, UserID: id})
		}
		return tx.Omit(clause.Associations).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&authors).Error
	})
}

// Delete removes a blog; authors, likes and comments cascade
func (r *BlogRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Blog{}).Error
}

// IsAuthor reports whether userID is a primary or co-author of blogID.
func (r *BlogRepo) IsAuthor(ctx context.Context, blogID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.BlogAuthor{}).
		Where("blog_id = ? AND user_id = ?", blogID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *BlogRepo) IDsByAuthor(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&models.BlogAuthor{}).
		Where("user_id = ?", userID).
		Pluck("blog_id", &ids).Error
	return ids, err
}

// Detail returns the full view of one blog, or nil if it has no author rows.
func (r *BlogRepo) Detail(ctx context.Context, id uuid.UUID) (*BlogView, error) {
	views, err := r.views(ctx, []uuid.UUID{id}, true)
	if err != nil || len(views) == 0 {
		return nil, err
	}
	return &views[0], nil
}

// Summaries returns summary views for ids, in the same order.
func (r *BlogRepo) Summaries(ctx context.Context, ids []uuid.UUID) ([]BlogView, error) {
	return r.views(ctx, ids, false)
}

type authorRow struct {
	BlogID          uuid.UUID
	UserID          uuid.UUID
	IsPrimaryAuthor bool
	Username        *string
	DisplayName     *string
	AvatarURL       *string
}

type countRow struct {
	BlogID uuid.UUID
	Count  int64
}

// views loads blogs, their authors, like counts and root comment counts with one query
// each, run concurrently, and stitches them together in ids order.
func (r *BlogRepo) views(ctx context.Context, ids []uuid.UUID, full bool) ([]BlogView, error) {
	if len(ids) == 0 {
		return []BlogView{}, nil
	}

	var (
		blogs    []models.Blog
		authors  []authorRow
		likes    []countRow
		comments []countRow
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		q := r.db.WithContext(gctx).Where("id IN ?", ids)
		if !full {
			q = q.Omit("content")
		}
		return q.Find(&blogs).Error
	})
	g.Go(func() error {
		return r.db.WithContext(gctx).Table("blog_authors").
			Select("blog_authors.blog_id, blog_authors.user_id, blog_authors.is_primary_author, " +
				"user_profiles.username, user_profiles.display_name, user_profiles.avatar_url").
			Joins("JOIN user_profiles ON user_profiles.user_id = blog_authors.user_id").
			Where("blog_authors.blog_id IN ?", ids).
			Order("blog_authors.is_primary_author DESC, blog_authors.created_at ASC").
			Scan(&authors).Error
	})
	g.Go(func() error {
		return r.db.WithContext(gctx).Model(&models.Like{}).
			Select("blog_id, COUNT(*) AS count").
			Where("blog_id IN ?", ids).
			Group("blog_id").
			Scan(&likes).Error
	})
	g.Go(func() error {
		return r.db.WithContext(gctx).Model(&models.Comment{}).
			Select("blog_id, COUNT(*) AS count").
			Where("blog_id IN ? AND parent_comment_id IS NULL", ids).
			Group("blog_id").
			Scan(&comments).Error
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return assembleViews(ids, blogs, authors, likes, comments, full), nil
}

func assembleViews(ids []uuid.UUID, blogs []models.Blog, authors []authorRow, likes, comments []countRow, full bool) []BlogView {
	byID := make(map[uuid.UUID]models.Blog, len(blogs))
	for _, b := range blogs {
		byID[b.ID] = b
	}

	authorsByBlog := make(map[uuid.UUID][]AuthorView, len(ids))
	for _, a := range authors {
		authorsByBlog[a.BlogID] = append(authorsByBlog[a.BlogID], AuthorView{
			UserID:          a.UserID,
			Username:        a.Username,
			DisplayName:     a.DisplayName,
			AvatarURL:       a.AvatarURL,
			IsPrimaryAuthor: a.IsPrimaryAuthor,
		})
	}

	likeCounts := countsByBlog(likes)
	commentCounts := countsByBlog(comments)

	views := make([]BlogView, 0, len(ids))
	for _, id := range ids {
		blog, ok := byID[id]
		blogAuthors := authorsByBlog[id]
		if !ok || len(blogAuthors) == 0 {
			continue
		}
		views = append(views, NewBlogView(blog, blogAuthors, likeCounts[id], commentCounts[id], full))
	}
	return views
}

func countsByBlog(rows []countRow) map[uuid.UUID]int64 {
	out := make(map[uuid.UUID]int64, len(rows))
	for _, row := range rows {
		out[row.BlogID] = row.Count
	}
	return out
}

// NewBlogView builds the view of a blog. Summaries drop content and updated_at.
func NewBlogView(blog models.Blog, authors []AuthorView, likeCount, commentCount int64, full bool) BlogView {
	tags := []string(blog.Tags)
	if tags == nil {
		tags = []string{}
	}

	view := BlogView{
		ID:            blog.ID,
		Title:         blog.Title,
		Description:   blog.Description,
		Tags:          tags,
		CoverImageURL: blog.CoverImageURL,
		IsPublished:   blog.IsPublished,
		IsFeatured:    blog.IsFeatured,
		CreatedAt:     blog.CreatedAt,
		PublishedAt:   blog.PublishedAt,
		Authors:       authors,
		LikeCount:     likeCount,
		CommentCount:  commentCount,
	}
	if full {
		updatedAt := blog.UpdatedAt
		view.Content = blog.Content
		view.UpdatedAt = &updatedAt
	}
	return view
}

// Search returns one page of matching blog ids, newest first, and the total match count.
func (r *BlogRepo) Search(ctx context.Context, filter BlogFilter, page Page) ([]uuid.UUID, int64, error) {
	db := r.db.WithContext(ctx)

	var total int64
	if err := searchCount(db, filter, &total).Error; err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []uuid.UUID{}, 0, nil
	}

	var rows []searchRow
	if err := searchPage(db, filter, page, &rows).Error; err != nil {
		return nil, 0, err
	}

	ids := make([]uuid.UUID, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	return ids, total, nil
}

type searchRow struct {
	ID        uuid.UUID
	CreatedAt time.Time
}

// searchQuery applies the filter. The author join can yield one row per author,
// so callers select DISTINCT ids.
func searchQuery(db *gorm.DB, f BlogFilter) *gorm.DB {
	q := db.Model(&models.Blog{}).
		Joins("JOIN blog_authors ON blog_authors.blog_id = blogs.id")

	if f.Published != nil {
		q = q.Where("blogs.is_published = ?", *f.Published)
	}
	if f.AuthorID != uuid.Nil {
		q = q.Where("blog_authors.user_id = ?", f.AuthorID)
	}
	if f.Query != "" {
		pattern := "%" + escapeLike(f.Query) + "%"
		q = q.Where("(blogs.title ILIKE ? OR blogs.description ILIKE ? OR blogs.content ILIKE ?)", pattern, pattern, pattern)
	}
	if f.Author != "" {
		pattern := "%" + escapeLike(f.Author) + "%"
		q = q.Joins("JOIN user_profiles ON user_profiles.user_id = blog_authors.user_id").
			Where("(user_profiles.username ILIKE ? OR user_profiles.display_name ILIKE ?)", pattern, pattern)
	}
	for _, tag := range f.Tags {
		q = q.Where("blogs.tags @> ?::jsonb", jsonArray(tag))
	}
	return q
}

func searchCount(db *gorm.DB, f BlogFilter, total *int64) *gorm.DB {
	base := db.Session(&gorm.Session{})
	matched := searchQuery(base, f).Select("DISTINCT blogs.id")
	return base.Table("(?) AS matched", matched).Count(total)
}

func searchPage(db *gorm.DB, f BlogFilter, page Page, rows *[]searchRow) *gorm.DB {
	return searchQuery(db.Session(&gorm.Session{}), f).
		Select("DISTINCT blogs.id, blogs.created_at").
		Order("blogs.created_at DESC, blogs.id DESC").
		Offset(page.Skip).
		Limit(page.Limit).
		Find(rows)
}

func jsonArray(values ...string) string {
	b, _ := json.Marshal(values)
	return string(b)
}
