package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rpupo63/inkwell-backend/database"
	"github.com/rpupo63/inkwell-backend/errs"
	"github.com/rpupo63/inkwell-backend/events"
	"github.com/rpupo63/inkwell-backend/notify"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const notifyTimeout = 10 * time.Second

type FollowService struct {
	store  database.Store
	events events.Publisher
	mailer notify.Mailer
	logger zerolog.Logger

	// notices tracks follow emails still being sent
	notices sync.WaitGroup
}

func NewFollowService(d Deps) *FollowService {
	return &FollowService{
		store:  d.Store,
		events: d.Events,
		mailer: d.Mailer,
		logger: log.With().Str("service", "follows").Logger(),
	}
}

type FollowResult struct {
	ActionResult
	IsFollowing bool `json:"is_following"`
}

type FollowersList struct {
	Followers []database.FollowUser `json:"followers"`
	database.PageInfo
}

type FollowingList struct {
	Following []database.FollowUser `json:"following"`
	database.PageInfo
}

type FollowStats struct {
	FollowersCount int64 `json:"followers_count"`
	FollowingCount int64 `json:"following_count"`
	// IsFollowing is set only when looking at another user.
	IsFollowing *bool `json:"is_following,omitempty"`
}

// Follow makes userID follow target. Following twice is a success.
func (s *FollowService) Follow(ctx context.Context, userID, target uuid.UUID) (*FollowResult, error) {
	if err := canFollow(ctx, s.store.UserRepo(), target, userID); err != nil {
		return nil, err
	}

	created, err := s.store.FollowRepo().Follow(ctx, userID, target)
	if err != nil {
		return nil, errs.NewDatabaseError("create", "follow", err)
	}
	if !created {
		return &FollowResult{ActionResult: ok("Already following this user"), IsFollowing: true}, nil
	}

	s.events.Publish(events.Event{Type: events.UserFollowed, ActorID: userID, TargetID: &target})
	s.notices.Add(1)
	go func() {
		defer s.notices.Done()
		s.notifyFollowed(context.WithoutCancel(ctx), userID, target)
	}()

	return &FollowResult{ActionResult: ok("Successfully followed user"), IsFollowing: true}, nil
}

// notifyFollowed emails target about the new follower. Failures are only logged.
func (s *FollowService) notifyFollowed(ctx context.Context, followerID, target uuid.UUID) {
	ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()

	logger := s.logger.With().Str("followerID", followerID.String()).Str("targetID", target.String()).Logger()

	user, err := s.store.UserRepo().FindByID(ctx, target)
	if err != nil || user == nil || user.Email == "" {
		logger.Debug().Err(err).Msg("no address for follow notice")
		return
	}

	name := "Someone"
	if profile, err := s.store.ProfileRepo().FindByUserID(ctx, followerID); err == nil && profile != nil {
		switch {
		case profile.DisplayName != nil && *profile.DisplayName != "":
			name = *profile.DisplayName
		case profile.Username != nil && *profile.Username != "":
			name = *profile.Username
		}
	}

	subject, body := notify.NewFollowerEmail(name)
	if err := s.mailer.SendEmail(ctx, subject, body, []string{user.Email}); err != nil {
		logger.Warn().Err(err).Msg("failed to send follow notice")
	}
}

// Wait blocks until in-flight follow emails finish or ctx is done.
func (s *FollowService) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.notices.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Unfollow removes the edge if it exists; either way the result is a success.
func (s *FollowService) Unfollow(ctx context.Context, userID, target uuid.UUID) (*FollowResult, error) {
	removed, err := s.store.FollowRepo().Unfollow(ctx, userID, target)
	if err != nil {
		return nil, errs.NewDatabaseError("delete", "follow", err)
	}
	message := "Not following this user"
	if removed {
		message = "Successfully unfollowed user"
	}
	return &FollowResult{ActionResult: ok(message), IsFollowing: false}, nil
}

func orSelf(target *uuid.UUID, userID uuid.UUID) uuid.UUID {
	if target == nil || *target == uuid.Nil {
		return userID
	}
	return *target
}

// Followers lists who follows target (the caller when nil), newest first.
func (s *FollowService) Followers(ctx context.Context, userID uuid.UUID, target *uuid.UUID, page database.Page) (*FollowersList, error) {
	users, total, err := s.store.FollowRepo().Followers(ctx, orSelf(target, userID), page)
	if err != nil {
		return nil, errs.NewDatabaseError("list", "followers", err)
	}
	return &FollowersList{Followers: users, PageInfo: page.Info(total)}, nil
}

// Following lists whom target (the caller when nil) follows, newest first.
func (s *FollowService) Following(ctx context.Context, userID uuid.UUID, target *uuid.UUID, page database.Page) (*FollowingList, error) {
	users, total, err := s.store.FollowRepo().Following(ctx, orSelf(target, userID), page)
	if err != nil {
		return nil, errs.NewDatabaseError("list", "following", err)
	}
	return &FollowingList{Following: users, PageInfo: page.Info(total)}, nil
}

func (s *FollowService) Stats(ctx context.Context, userID uuid.UUID, target *uuid.UUID) (*FollowStats, error) {
	who := orSelf(target, userID)
	followers, following, err := s.store.FollowRepo().Counts(ctx, who)
	if err != nil {
		return nil, errs.NewDatabaseError("count", "follows", err)
	}

	stats := &FollowStats{FollowersCount: followers, FollowingCount: following}
	if who != userID {
		isFollowing, err := s.store.FollowRepo().IsFollowing(ctx, userID, who)
		if err != nil {
			return nil, errs.NewDatabaseError("find", "follow", err)
		}
		stats.IsFollowing = &isFollowing
	}
	return stats, nil
}
