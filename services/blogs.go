package services

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rpupo63/inkwell-backend/cache"
	"github.com/rpupo63/inkwell-backend/database"
	"github.com/rpupo63/inkwell-backend/errs"
	"github.com/rpupo63/inkwell-backend/events"
	"github.com/rpupo63/inkwell-backend/models"
	"github.com/rpupo63/inkwell-backend/storage"
	"github.com/rpupo63/inkwell-backend/tags"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
)

const maxTitleLength = 255

type BlogService struct {
	store   database.Store
	objects storage.ObjectStore
	cache   cache.BlogCache
	events  events.Publisher
	now     func() time.Time
	logger  zerolog.Logger
}

func NewBlogService(d Deps) *BlogService {
	return &BlogService{
		store:   d.Store,
		objects: d.Objects,
		cache:   d.Cache,
		events:  d.Events,
		now:     d.Now,
		logger:  log.With().Str("service", "blogs").Logger(),
	}
}

type CreateBlogInput struct {
	Title       string   `json:"title"`
	Description *string  `json:"description"`
	Content     string   `json:"content"`
	Tags        []string `json:"tags"`
	CoAuthorIDs []string `json:"co_author_ids"`
	IsPublished bool     `json:"is_published"`
}

// UpdateBlogInput is a partial update: nil fields are left as they are.
type UpdateBlogInput struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Content     *string   `json:"content"`
	Tags        *[]string `json:"tags"`
	CoAuthorIDs *[]string `json:"co_author_ids"`
	IsPublished *bool     `json:"is_published"`
}

type CreateBlogResult struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	IsPublished bool      `json:"is_published"`
}

type BlogList struct {
	Blogs []database.BlogView `json:"blogs"`
	database.PageInfo
}

type SearchInput struct {
	Query  string
	Author string
	Tags   []string
}

type CoverImageResult struct {
	CoverImageURL string `json:"cover_image_url"`
	Message       string `json:"message"`
}

func validateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", errs.NewMissingRequiredFieldError("title")
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return "", errs.NewInvalidFieldError("title", "title must be at most 255 characters")
	}
	return title, nil
}

func validateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return errs.NewMissingRequiredFieldError("content")
	}
	return nil
}

// filterTags drops unknown and duplicate tags. A non-empty list that loses every
// entry is rejected; an explicitly empty one is fine.
func filterTags(candidates []string, filter func([]string) []string, field string) ([]string, error) {
	out := filter(candidates)
	if len(candidates) > 0 && len(out) == 0 {
		return nil, errs.NewInvalidFieldError(field, "none of the given values are allowed")
	}
	return out, nil
}

// resolveCoAuthors parses, dedupes and checks co-author ids. Unparseable ids, the
// excluded user and users without a profile are skipped with a warning.
func (s *BlogService) resolveCoAuthors(ctx context.Context, exclude uuid.UUID, raw []string) ([]uuid.UUID, error) {
	seen := make(map[uuid.UUID]bool, len(raw))
	candidates := make([]uuid.UUID, 0, len(raw))
	for _, value := range raw {
		id, err := uuid.Parse(strings.TrimSpace(value))
		if err != nil {
			s.logger.Warn().Str("coAuthorID", value).Msg("skipping invalid co-author id")
			continue
		}
		if id == exclude || seen[id] {
			continue
		}
		seen[id] = true
		candidates = append(candidates, id)
	}
	if len(candidates) == 0 {
		return []uuid.UUID{}, nil
	}

	existing, err := s.store.ProfileRepo().ExistingUserIDs(ctx, candidates)
	if err != nil {
		return nil, errs.NewDatabaseError("find", "co-authors", err)
	}
	if len(existing) < len(candidates) {
		s.logger.Warn().
			Int("requested", len(candidates)).
			Int("found", len(existing)).
			Msg("skipping unknown co-authors")
	}
	return existing, nil
}

// Create stores a blog with the caller as primary author.
func (s *BlogService) Create(ctx context.Context, userID uuid.UUID, in CreateBlogInput) (*CreateBlogResult, error) {
	title, err := validateTitle(in.Title)
	if err != nil {
		return nil, err
	}
	if err := validateContent(in.Content); err != nil {
		return nil, err
	}
	blogTags, err := filterTags(in.Tags, tags.FilterBlog, "tags")
	if err != nil {
		return nil, err
	}
	coAuthors, err := s.resolveCoAuthors(ctx, userID, in.CoAuthorIDs)
	if err != nil {
		return nil, err
	}

	blog := &models.Blog{
		Title:       title,
		Description: in.Description,
		Content:     in.Content,
		Tags:        datatypes.JSONSlice[string](blogTags),
		IsPublished: in.IsPublished,
	}
	if in.IsPublished {
		blog.PublishedAt = ptr(s.now())
	}

	if err := s.store.BlogRepo().Create(ctx, blog, userID, coAuthors); err != nil {
		return nil, errs.NewDatabaseError("create", "blog", err)
	}

	s.events.Publish(events.Event{Type: events.BlogCreated, ActorID: userID, BlogID: &blog.ID})
	message := "Blog created successfully"
	if blog.IsPublished {
		s.events.Publish(events.Event{Type: events.BlogPublished, ActorID: userID, BlogID: &blog.ID})
		message += " and published"
	}

	s.logger.Info().Str("blogID", blog.ID.String()).Int("coAuthors", len(coAuthors)).Msg("blog created")
	return &CreateBlogResult{
		ID:          blog.ID,
		Title:       blog.Title,
		Message:     message,
		IsPublished: blog.IsPublished,
	}, nil
}

// Get returns the full view of a blog the caller may see.
func (s *BlogService) Get(ctx context.Context, userID, blogID uuid.UUID) (*database.BlogView, error) {
	view, gen, hit := s.cache.Get(ctx, blogID)
	if !hit {
		var err error
		view, err = s.store.BlogRepo().Detail(ctx, blogID)
		if err != nil {
			return nil, errs.NewDatabaseError("find", "blog", err)
		}
		if view != nil {
			s.cache.Set(ctx, view, gen)
		}
	}
	if !canViewBlog(view, userID) {
		return nil, errBlogNotFound()
	}
	return view, nil
}

// editable loads a blog for modification by userID. Non-authors get 403 on
// published blogs and 404 on unpublished ones.
func (s *BlogService) editable(ctx context.Context, userID, blogID uuid.UUID, action string) (*models.Blog, error) {
	blog, err := s.store.BlogRepo().FindByID(ctx, blogID)
	if err != nil {
		return nil, errs.NewDatabaseError("find", "blog", err)
	}
	if blog == nil {
		return nil, errBlogNotFound()
	}

	allowed, err := canEditBlog(ctx, s.store.BlogRepo(), blogID, userID)
	if err != nil {
		return nil, errs.NewDatabaseError("check", "blog authors", err)
	}
	if !allowed {
		if !blog.IsPublished {
			return nil, errBlogNotFound()
		}
		return nil, errs.NewForbiddenError("you don't have permission to " + action + " this blog")
	}
	return blog, nil
}

// Update applies a partial update and returns the new detail view.
func (s *BlogService) Update(ctx context.Context, userID, blogID uuid.UUID, in UpdateBlogInput) (*database.BlogView, error) {
	blog, err := s.editable(ctx, userID, blogID, "edit")
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		if blog.Title, err = validateTitle(*in.Title); err != nil {
			return nil, err
		}
	}
	if in.Content != nil {
		if err := validateContent(*in.Content); err != nil {
			return nil, err
		}
		blog.Content = *in.Content
	}
	if in.Description != nil {
		blog.Description = in.Description
	}
	if in.Tags != nil {
		blogTags, err := filterTags(*in.Tags, tags.FilterBlog, "tags")
		if err != nil {
			return nil, err
		}
		blog.Tags = datatypes.JSONSlice[string](blogTags)
	}

	newlyPublished := false
	if in.IsPublished != nil {
		if *in.IsPublished && !blog.IsPublished {
			newlyPublished = true
		}
		blog.IsPublished = *in.IsPublished
		// published_at records the first publication only
		if blog.IsPublished && blog.PublishedAt == nil {
			blog.PublishedAt = ptr(s.now())
		}
	}

	var coAuthors []uuid.UUID
	if in.CoAuthorIDs != nil {
		if coAuthors, err = s.resolveCoAuthors(ctx, uuid.Nil, *in.CoAuthorIDs); err != nil {
			return nil, err
		}
	}

	blog.UpdatedAt = s.now()
	if err := s.store.BlogRepo().Update(ctx, blog, coAuthors); err != nil {
		return nil, errs.NewDatabaseError("update", "blog", err)
	}
	s.cache.Invalidate(ctx, blogID)

	if newlyPublished {
		s.events.Publish(events.Event{Type: events.BlogPublished, ActorID: userID, BlogID: &blog.ID})
	}

	view, err := s.store.BlogRepo().Detail(ctx, blogID)
	if err != nil {
		return nil, errs.NewDatabaseError("find", "blog", err)
	}
	if view == nil {
		return nil, errBlogNotFound()
	}
	return view, nil
}

// Delete removes a blog and everything attached to it.
func (s *BlogService) Delete(ctx context.Context, userID, blogID uuid.UUID) (*ActionResult, error) {
	blog, err := s.editable(ctx, userID, blogID, "delete")
	if err != nil {
		return nil, err
	}
	if err := s.store.BlogRepo().Delete(ctx, blogID); err != nil {
		return nil, errs.NewDatabaseError("delete", "blog", err)
	}
	s.cache.Invalidate(ctx, blogID)

	if blog.CoverImageURL != nil {
		removeImage(ctx, s.objects, s.logger, *blog.CoverImageURL)
	}
	return ptr(ok("Blog deleted successfully")), nil
}

func (s *BlogService) list(ctx context.Context, filter database.BlogFilter, page database.Page) (*BlogList, error) {
	ids, total, err := s.store.BlogRepo().Search(ctx, filter, page)
	if err != nil {
		return nil, errs.NewDatabaseError("search", "blogs", err)
	}
	views, err := s.store.BlogRepo().Summaries(ctx, ids)
	if err != nil {
		return nil, errs.NewDatabaseError("load", "blogs", err)
	}
	return &BlogList{Blogs: views, PageInfo: page.Info(total)}, nil
}

// ByUser lists blogs authored by authorID. Unpublished ones are included only when
// the caller asks for their own.
func (s *BlogService) ByUser(ctx context.Context, userID, authorID uuid.UUID, includeUnpublished bool, page database.Page) (*BlogList, error) {
	filter := database.BlogFilter{AuthorID: authorID, Published: database.PublishedOnly()}
	if includeUnpublished && userID == authorID {
		filter.Published = nil
	}
	return s.list(ctx, filter, page)
}

// Search lists published blogs matching every given criterion.
func (s *BlogService) Search(ctx context.Context, in SearchInput, page database.Page) (*BlogList, error) {
	searchTags, err := filterTags(in.Tags, tags.FilterBlog, "tags")
	if err != nil {
		return nil, err
	}
	return s.list(ctx, database.BlogFilter{
		Published: database.PublishedOnly(),
		Query:     strings.TrimSpace(in.Query),
		Author:    strings.TrimSpace(in.Author),
		Tags:      searchTags,
	}, page)
}

// Recommended lists published blogs carrying every one of the caller's interests
// that is also a blog tag. Reader-only interests such as "music" never appear on a
// blog, so they are left out of the match. With no such interest every published
// blog is listed.
func (s *BlogService) Recommended(ctx context.Context, userID uuid.UUID, page database.Page) (*BlogList, error) {
	profile, err := s.store.ProfileRepo().FindByUserID(ctx, userID)
	if err != nil {
		return nil, errs.NewDatabaseError("find", "profile", err)
	}

	filter := database.BlogFilter{Published: database.PublishedOnly()}
	if profile != nil {
		filter.Tags = tags.FilterBlog(profile.Interests)
	}
	return s.list(ctx, filter, page)
}

func (s *BlogService) UploadCover(ctx context.Context, userID, blogID uuid.UUID, img *Image) (*CoverImageResult, error) {
	blog, err := s.editable(ctx, userID, blogID, "edit")
	if err != nil {
		return nil, err
	}
	if err := ValidateImage(img, MaxCoverImageBytes); err != nil {
		return nil, err
	}

	url, err := replaceImage(ctx, s.objects, s.logger, blog.CoverImageURL,
		ObjectPath(EntityBlogCovers, blogID, img.Filename), img)
	if err != nil {
		return nil, err
	}

	blog.CoverImageURL = &url
	blog.UpdatedAt = s.now()
	if err := s.store.BlogRepo().Update(ctx, blog, nil); err != nil {
		return nil, errs.NewDatabaseError("update", "blog", err)
	}
	s.cache.Invalidate(ctx, blogID)

	return &CoverImageResult{CoverImageURL: url, Message: "Blog cover image uploaded successfully"}, nil
}

func (s *BlogService) DeleteCover(ctx context.Context, userID, blogID uuid.UUID) (*ActionResult, error) {
	blog, err := s.editable(ctx, userID, blogID, "edit")
	if err != nil {
		return nil, err
	}
	if blog.CoverImageURL == nil {
		return nil, errs.NewNotFoundError("no cover image found")
	}

	removeImage(ctx, s.objects, s.logger, *blog.CoverImageURL)
	blog.CoverImageURL = nil
	blog.UpdatedAt = s.now()
	if err := s.store.BlogRepo().Update(ctx, blog, nil); err != nil {
		return nil, errs.NewDatabaseError("update", "blog", err)
	}
	s.cache.Invalidate(ctx, blogID)

	return ptr(ok("Blog cover image deleted successfully")), nil
}

func AvailableTags() []string {
	return append([]string{}, tags.Blog...)
}

func AvailableInterests() []string {
	return append([]string{}, tags.Interests...)
}
