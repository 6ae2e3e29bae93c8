package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/rpupo63/inkwell-backend/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FollowRepo struct {
	db *gorm.DB
}

func NewFollowRepo(db *gorm.DB) *FollowRepo {
	return &FollowRepo{db}
}

// Follow adds the edge. It reports false without error when the edge already existed,
// including when a concurrent request inserted it first.
func (r *FollowRepo) Follow(ctx context.Context, followerID, followingID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Follow{FollowerID: followerID, FollowingID: followingID})
	if res.Error != nil {
		if IsUniqueViolation(res.Error) {
			return false, nil
		}
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Unfollow removes the edge, reporting whether it existed.
func (r *FollowRepo) Unfollow(ctx context.Context, followerID, followingID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Delete(&models.Follow{})
	return res.RowsAffected > 0, res.Error
}

// IsFollowing reports whether the edge exists
func (r *FollowRepo) IsFollowing(ctx context.Context, followerID, followingID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Count(&count).Error
	return count > 0, err
}

// Followers lists who follows userID, newest first.
func (r *FollowRepo) Followers(ctx context.Context, userID uuid.UUID, page Page) ([]FollowUser, int64, error) {
	return r.list(ctx, "following_id", "follower_id", userID, page)
}

// Following lists who userID follows, newest first.
func (r *FollowRepo) Following(ctx context.Context, userID uuid.UUID, page Page) ([]FollowUser, int64, error) {
	return r.list(ctx, "follower_id", "following_id", userID, page)
}

func (r *FollowRepo) list(ctx context.Context, matchColumn, otherColumn string, userID uuid.UUID, page Page) ([]FollowUser, int64, error) {
	db := r.db.WithContext(ctx)

	var total int64
	if err := db.Model(&models.Follow{}).Where(matchColumn+" = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	users := []FollowUser{}
	err := db.Table("user_followers").
		Select("user_followers."+otherColumn+" AS user_id, user_followers.created_at AS followed_at, "+
			"user_profiles.username, user_profiles.display_name, user_profiles.avatar_url").
		Joins("LEFT JOIN user_profiles ON user_profiles.user_id = user_followers."+otherColumn).
		Where("user_followers."+matchColumn+" = ?", userID).
		Order("user_followers.created_at DESC").
		Offset(page.Skip).
		Limit(page.Limit).
		Scan(&users).Error
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// Counts returns the follower and following totals of userID.
func (r *FollowRepo) Counts(ctx context.Context, userID uuid.UUID) (int64, int64, error) {
	db := r.db.WithContext(ctx)

	var followers, following int64
	if err := db.Model(&models.Follow{}).Where("following_id = ?", userID).Count(&followers).Error; err != nil {
		return 0, 0, err
	}
	if err := db.Model(&models.Follow{}).Where("follower_id = ?", userID).Count(&following).Error; err != nil {
		return 0, 0, err
	}
	return followers, following, nil
}
