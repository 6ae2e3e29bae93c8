package database

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rpupo63/inkwell-backend/models"
	"gorm.io/gorm"
)

// ErrUsernameTaken is returned by profile updates that collide on username.
var ErrUsernameTaken = errors.New("username already taken")

// Finders return (nil, nil) when the row does not exist.

type UserRepository interface {
	Upsert(ctx context.Context, user *models.User) error
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type ProfileRepository interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	FindOrCreate(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	Update(ctx context.Context, profile *models.Profile) error
	UsernameTaken(ctx context.Context, username string, exceptUserID uuid.UUID) (bool, error)
	ExistingUserIDs(ctx context.Context, userIDs []uuid.UUID) ([]uuid.UUID, error)
}

type FollowRepository interface {
	Follow(ctx context.Context, followerID, followingID uuid.UUID) (bool, error)
	Unfollow(ctx context.Context, followerID, followingID uuid.UUID) (bool, error)
	IsFollowing(ctx context.Context, followerID, followingID uuid.UUID) (bool, error)
	Followers(ctx context.Context, userID uuid.UUID, page Page) ([]FollowUser, int64, error)
	Following(ctx context.Context, userID uuid.UUID, page Page) ([]FollowUser, int64, error)
	Counts(ctx context.Context, userID uuid.UUID) (followers int64, following int64, err error)
}

type BlogRepository interface {
	// Create inserts the blog, its primary author and co-authors atomically.
	Create(ctx context.Context, blog *models.Blog, primaryAuthorID uuid.UUID, coAuthorIDs []uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Blog, error)
	// Update saves the blog's fields. A non-nil coAuthorIDs replaces every non-primary
	// author in the same transaction; nil leaves authors untouched.
	Update(ctx context.Context, blog *models.Blog, coAuthorIDs []uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
	IsAuthor(ctx context.Context, blogID, userID uuid.UUID) (bool, error)
	// IDsByAuthor lists every blog userID is a primary or co-author of.
	IDsByAuthor(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	Detail(ctx context.Context, id uuid.UUID) (*BlogView, error)
	Summaries(ctx context.Context, ids []uuid.UUID) ([]BlogView, error)
	Search(ctx context.Context, filter BlogFilter, page Page) ([]uuid.UUID, int64, error)
}

type LikeRepository interface {
	// Toggle removes the caller's like if present and adds it otherwise.
	Toggle(ctx context.Context, blogID, userID uuid.UUID) (liked bool, count int64, err error)
	Stats(ctx context.Context, blogID, userID uuid.UUID) (count int64, liked bool, err error)
}

type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Comment, error)
	Update(ctx context.Context, comment *models.Comment) error
	Delete(ctx context.Context, id uuid.UUID) error
	View(ctx context.Context, id uuid.UUID) (*CommentView, error)
	Roots(ctx context.Context, blogID uuid.UUID, page Page) ([]CommentView, int64, error)
	RepliesByParent(ctx context.Context, parentIDs []uuid.UUID) (map[uuid.UUID][]CommentView, error)
}

// Store groups the repositories a request needs.
type Store interface {
	UserRepo() UserRepository
	ProfileRepo() ProfileRepository
	FollowRepo() FollowRepository
	BlogRepo() BlogRepository
	LikeRepo() LikeRepository
	CommentRepo() CommentRepository
}

// IsUniqueViolation reports a unique or primary key violation, whether gorm translated it or not.
func IsUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
