package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/rpupo63/inkwell-backend/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LikeRepo struct {
	db *gorm.DB
}

func NewLikeRepo(db *gorm.DB) *LikeRepo {
	return &LikeRepo{db}
}

// Toggle flips the caller's like inside one transaction and returns the new state and count.
// A concurrent insert of the same like is absorbed by ON CONFLICT DO NOTHING and reads as liked.
func (r *LikeRepo) Toggle(ctx context.Context, blogID, userID uuid.UUID) (bool, int64, error) {
	var (
		liked bool
		count int64
	)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		removed := tx.Where("blog_id = ? AND user_id = ?", blogID, userID).Delete(&models.Like{})
		if removed.Error != nil {
			return removed.Error
		}

		if removed.RowsAffected == 0 {
			err := tx.Omit(clause.Associations).
				Clauses(clause.OnConflict{DoNothing: true}).
				Create(&models.Like{BlogID: blogID, UserID: userID}).Error
			if err != nil && !IsUniqueViolation(err) {
				return err
			}
			liked = true
		}

		return tx.Model(&models.Like{}).Where("blog_id = ?", blogID).Count(&count).Error
	})
	if err != nil {
		return false, 0, err
	}
	return liked, count, nil
}

// Stats returns the like count of a blog and whether userID liked it.
func (r *LikeRepo) Stats(ctx context.Context, blogID, userID uuid.UUID) (int64, bool, error) {
	db := r.db.WithContext(ctx)

	var count, mine int64
	if err := db.Model(&models.Like{}).Where("blog_id = ?", blogID).Count(&count).Error; err != nil {
		return 0, false, err
	}
	if err := db.Model(&models.Like{}).Where("blog_id = ? AND user_id = ?", blogID, userID).Count(&mine).Error; err != nil {
		return 0, false, err
	}
	return count, mine > 0, nil
}
