package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/rpupo63/inkwell-backend/cache"
	"github.com/rpupo63/inkwell-backend/database"
	"github.com/rpupo63/inkwell-backend/errs"
	"github.com/rpupo63/inkwell-backend/events"
)

type LikeService struct {
	store  database.Store
	cache  cache.BlogCache
	events events.Publisher
}

func NewLikeService(d Deps) *LikeService {
	return &LikeService{store: d.Store, cache: d.Cache, events: d.Events}
}

type LikeResult struct {
	ActionResult
	IsLiked   bool  `json:"is_liked"`
	LikeCount int64 `json:"like_count"`
}

type LikeStats struct {
	LikeCount int64 `json:"like_count"`
	IsLiked   bool  `json:"is_liked"`
}

// Toggle likes a published blog, or removes the caller's like if present.
func (s *LikeService) Toggle(ctx context.Context, userID, blogID uuid.UUID) (*LikeResult, error) {
	if _, err := publishedBlog(ctx, s.store.BlogRepo(), blogID); err != nil {
		return nil, err
	}

	liked, count, err := s.store.LikeRepo().Toggle(ctx, blogID, userID)
	if err != nil {
		return nil, errs.NewDatabaseError("toggle", "like", err)
	}
	s.cache.Invalidate(ctx, blogID)

	message := "Blog unliked successfully"
	if liked {
		message = "Blog liked successfully"
		s.events.Publish(events.Event{Type: events.BlogLiked, ActorID: userID, BlogID: &blogID, LikeCount: &count})
	}
	return &LikeResult{ActionResult: ok(message), IsLiked: liked, LikeCount: count}, nil
}

func (s *LikeService) Stats(ctx context.Context, userID, blogID uuid.UUID) (*LikeStats, error) {
	if _, err := visibleBlog(ctx, s.store.BlogRepo(), blogID, userID); err != nil {
		return nil, err
	}
	count, liked, err := s.store.LikeRepo().Stats(ctx, blogID, userID)
	if err != nil {
		return nil, errs.NewDatabaseError("count", "likes", err)
	}
	return &LikeStats{LikeCount: count, IsLiked: liked}, nil
}
