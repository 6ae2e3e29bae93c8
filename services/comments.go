package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/graph-gophers/dataloader"
	"github.com/rpupo63/inkwell-backend/cache"
	"github.com/rpupo63/inkwell-backend/database"
	"github.com/rpupo63/inkwell-backend/errs"
	"github.com/rpupo63/inkwell-backend/events"
	"github.com/rpupo63/inkwell-backend/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const maxCommentLength = 1000

// Placement says where a new comment goes: at the root of the blog or under a root comment.
type Placement struct {
	parent *uuid.UUID
}

func Root() Placement { return Placement{} }

func ReplyTo(parentID uuid.UUID) Placement { return Placement{parent: &parentID} }

func (p Placement) IsReply() bool { return p.parent != nil }

type CommentService struct {
	store  database.Store
	cache  cache.BlogCache
	events events.Publisher
	now    func() time.Time
	logger zerolog.Logger
}

func NewCommentService(d Deps) *CommentService {
	return &CommentService{
		store:  d.Store,
		cache:  d.Cache,
		events: d.Events,
		now:    d.Now,
		logger: log.With().Str("service", "comments").Logger(),
	}
}

type CommentResult struct {
	ActionResult
	CommentID *uuid.UUID            `json:"comment_id,omitempty"`
	Comment   *database.CommentView `json:"comment,omitempty"`
}

// result reloads the comment with its author for create and update responses.
func (s *CommentService) result(ctx context.Context, message string, commentID uuid.UUID) (*CommentResult, error) {
	view, err := s.store.CommentRepo().View(ctx, commentID)
	if err != nil {
		return nil, errs.NewDatabaseError("find", "comment", err)
	}
	return &CommentResult{ActionResult: ok(message), CommentID: &commentID, Comment: view}, nil
}

type CommentList struct {
	Comments []database.CommentThread `json:"comments"`
	database.PageInfo
}

func validateCommentContent(content string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", errs.NewMissingRequiredFieldError("content")
	}
	if utf8.RuneCountInString(content) > maxCommentLength {
		return "", errs.NewInvalidFieldError("content", fmt.Sprintf("content must be at most %d characters", maxCommentLength))
	}
	return content, nil
}

// Create adds a comment to a published blog. A reply's parent must be a root
// comment of the same blog.
func (s *CommentService) Create(ctx context.Context, userID, blogID uuid.UUID, at Placement, content string) (*CommentResult, error) {
	content, err := validateCommentContent(content)
	if err != nil {
		return nil, err
	}
	if _, err := publishedBlog(ctx, s.store.BlogRepo(), blogID); err != nil {
		return nil, err
	}

	if at.IsReply() {
		parent, err := s.store.CommentRepo().FindByID(ctx, *at.parent)
		if err != nil {
			return nil, errs.NewDatabaseError("find", "comment", err)
		}
		if parent == nil || parent.BlogID != blogID || !parent.IsRoot() {
			return nil, errs.NewBadRequestErrorWithField("invalid parent comment", "parent_comment_id")
		}
	}

	comment := &models.Comment{
		BlogID:          blogID,
		UserID:          userID,
		Content:         content,
		ParentCommentID: at.parent,
	}
	if err := s.store.CommentRepo().Create(ctx, comment); err != nil {
		return nil, errs.NewDatabaseError("create", "comment", err)
	}
	if comment.IsRoot() {
		s.cache.Invalidate(ctx, blogID)
	}
	s.events.Publish(events.Event{Type: events.CommentCreated, ActorID: userID, BlogID: &blogID, CommentID: &comment.ID})

	kind := "Comment"
	if at.IsReply() {
		kind = "Reply"
	}
	return s.result(ctx, kind+" created successfully", comment.ID)
}

// List pages root comments newest first, each with all of its replies oldest first.
func (s *CommentService) List(ctx context.Context, userID, blogID uuid.UUID, page database.Page) (*CommentList, error) {
	if _, err := visibleBlog(ctx, s.store.BlogRepo(), blogID, userID); err != nil {
		return nil, err
	}

	roots, total, err := s.store.CommentRepo().Roots(ctx, blogID, page)
	if err != nil {
		return nil, errs.NewDatabaseError("list", "comments", err)
	}

	threads := make([]database.CommentThread, len(roots))
	if len(roots) == 0 {
		return &CommentList{Comments: threads, PageInfo: page.Info(total)}, nil
	}

	ids := make([]string, len(roots))
	for i, root := range roots {
		ids[i] = root.ID.String()
	}
	loaded, loadErrs := repliesLoader(ctx, s.store.CommentRepo()).LoadMany(ctx, dataloader.NewKeysFromStrings(ids))()
	for _, err := range loadErrs {
		if err != nil {
			return nil, errs.NewDatabaseError("list", "replies", err)
		}
	}

	for i, root := range roots {
		replies, _ := loaded[i].([]database.CommentView)
		if replies == nil {
			replies = []database.CommentView{}
		}
		threads[i] = database.CommentThread{CommentView: root, ReplyCount: len(replies), Replies: replies}
	}
	return &CommentList{Comments: threads, PageInfo: page.Info(total)}, nil
}

// owned loads a comment that userID wrote.
func (s *CommentService) owned(ctx context.Context, userID, commentID uuid.UUID, action string) (*models.Comment, error) {
	comment, err := s.store.CommentRepo().FindByID(ctx, commentID)
	if err != nil {
		return nil, errs.NewDatabaseError("find", "comment", err)
	}
	if comment == nil {
		return nil, errs.NewNotFoundError("comment not found")
	}
	if !ownsComment(comment, userID) {
		return nil, errs.NewForbiddenError("you don't have permission to " + action + " this comment")
	}
	return comment, nil
}

func (s *CommentService) Update(ctx context.Context, userID, commentID uuid.UUID, content string) (*CommentResult, error) {
	content, err := validateCommentContent(content)
	if err != nil {
		return nil, err
	}
	comment, err := s.owned(ctx, userID, commentID, "edit")
	if err != nil {
		return nil, err
	}

	comment.Content = content
	comment.UpdatedAt = s.now()
	if err := s.store.CommentRepo().Update(ctx, comment); err != nil {
		return nil, errs.NewDatabaseError("update", "comment", err)
	}
	return s.result(ctx, "Comment updated successfully", comment.ID)
}

// Delete removes a comment; deleting a root removes its replies too.
func (s *CommentService) Delete(ctx context.Context, userID, commentID uuid.UUID) (*CommentResult, error) {
	comment, err := s.owned(ctx, userID, commentID, "delete")
	if err != nil {
		return nil, err
	}
	if err := s.store.CommentRepo().Delete(ctx, commentID); err != nil {
		return nil, errs.NewDatabaseError("delete", "comment", err)
	}
	if comment.IsRoot() {
		s.cache.Invalidate(ctx, comment.BlogID)
	}
	return &CommentResult{ActionResult: ok("Comment deleted successfully")}, nil
}

type loadersKey struct{}

// Loaders are per-request batch loaders. One request shares one set so that
// repeated lookups of the same parent hit the loader cache.
type Loaders struct {
	RepliesByParent *dataloader.Loader
}

// WithLoaders attaches fresh loaders to ctx.
func WithLoaders(ctx context.Context, comments database.CommentRepository) context.Context {
	return context.WithValue(ctx, loadersKey{}, &Loaders{RepliesByParent: newRepliesLoader(comments)})
}

func repliesLoader(ctx context.Context, comments database.CommentRepository) *dataloader.Loader {
	if l, ok := ctx.Value(loadersKey{}).(*Loaders); ok && l != nil {
		return l.RepliesByParent
	}
	return newRepliesLoader(comments)
}

// newRepliesLoader batches every parent id requested within a millisecond into
// one RepliesByParent query.
func newRepliesLoader(comments database.CommentRepository) *dataloader.Loader {
	batchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		results := make([]*dataloader.Result, len(keys))

		parentIDs := make([]uuid.UUID, 0, len(keys))
		for i, key := range keys {
			id, err := uuid.Parse(key.String())
			if err != nil {
				results[i] = &dataloader.Result{Error: err}
				continue
			}
			parentIDs = append(parentIDs, id)
		}

		replies, err := comments.RepliesByParent(ctx, parentIDs)
		for i, key := range keys {
			if results[i] != nil {
				continue
			}
			if err != nil {
				results[i] = &dataloader.Result{Error: err}
				continue
			}
			id, _ := uuid.Parse(key.String())
			results[i] = &dataloader.Result{Data: replies[id]}
		}
		return results
	}
	return dataloader.NewBatchedLoader(batchFn, dataloader.WithWait(time.Millisecond))
}
