package database

import (
	"errors"

	"gorm.io/gorm"
)

type Database struct {
	userRepo    *UserRepo
	profileRepo *ProfileRepo
	followRepo  *FollowRepo
	blogRepo    *BlogRepo
	likeRepo    *LikeRepo
	commentRepo *CommentRepo
}

// New initializes a new Database struct with each repository using a shared GORM database instance
func New(db *gorm.DB) Database {
	return Database{
		userRepo:    NewUserRepo(db),
		profileRepo: NewProfileRepo(db),
		followRepo:  NewFollowRepo(db),
		blogRepo:    NewBlogRepo(db),
		likeRepo:    NewLikeRepo(db),
		commentRepo: NewCommentRepo(db),
	}
}

// Accessor methods for each repository

func (d Database) UserRepo() UserRepository {
	return d.userRepo
}

func (d Database) ProfileRepo() ProfileRepository {
	return d.profileRepo
}

func (d Database) FollowRepo() FollowRepository {
	return d.followRepo
}

func (d Database) BlogRepo() BlogRepository {
	return d.blogRepo
}

func (d Database) LikeRepo() LikeRepository {
	return d.likeRepo
}

func (d Database) CommentRepo() CommentRepository {
	return d.commentRepo
}

// first maps gorm's not-found error to a nil result.
func first[T any](tx *gorm.DB) (*T, error) {
	var out T
	if err := tx.First(&out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}
