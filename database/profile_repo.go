package database

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rpupo63/inkwell-backend/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProfileRepo struct {
	db *gorm.DB
}

func NewProfileRepo(db *gorm.DB) *ProfileRepo {
	return &ProfileRepo{db}
}

// FindByUserID returns the profile of a user
func (r *ProfileRepo) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	return first[models.Profile](r.db.WithContext(ctx).Where("user_id = ?", userID))
}

// FindOrCreate returns the user's profile, creating an empty one on first access.
// Concurrent first requests race on the unique user_id; the loser rereads the winner's row.
func (r *ProfileRepo) FindOrCreate(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	profile, err := r.FindByUserID(ctx, userID)
	if err != nil || profile != nil {
		return profile, err
	}

	fresh := NewProfile(userID)
	err = r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(fresh).Error
	if err != nil {
		return nil, err
	}
	return r.FindByUserID(ctx, userID)
}

// Update saves every profile column
func (r *ProfileRepo) Update(ctx context.Context, profile *models.Profile) error {
	err := r.db.WithContext(ctx).Omit(clause.Associations).Save(profile).Error
	if IsUniqueViolation(err) {
		return ErrUsernameTaken
	}
	return err
}

// UsernameTaken reports whether another user already holds the username.
func (r *ProfileRepo) UsernameTaken(ctx context.Context, username string, exceptUserID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Profile{}).
		Where("username = ? AND user_id <> ?", username, exceptUserID).
		Count(&count).Error
	return count > 0, err
}

// ExistingUserIDs returns the subset of userIDs that have a profile, in input order.
func (r *ProfileRepo) ExistingUserIDs(ctx context.Context, userIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(userIDs) == 0 {
		return []uuid.UUID{}, nil
	}

	var found []uuid.UUID
	err := r.db.WithContext(ctx).Model(&models.Profile{}).
		Where("user_id IN ?", userIDs).
		Pluck("user_id", &found).Error
	if err != nil {
		return nil, err
	}
	return keepOrder(userIDs, found), nil
}

// NewProfile is the empty profile created on first access.
func NewProfile(userID uuid.UUID) *models.Profile {
	return &models.Profile{
		UserID:       userID,
		Language:     "en",
		CustomColors: datatypes.JSONSlice[string]{},
		Interests:    datatypes.JSONSlice[string]{},
	}
}

func keepOrder(ordered, subset []uuid.UUID) []uuid.UUID {
	in := make(map[uuid.UUID]struct{}, len(subset))
	for _, id := range subset {
		in[id] = struct{}{}
	}
	out := make([]uuid.UUID, 0, len(subset))
	for _, id := range ordered {
		if _, ok := in[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// escapeLike escapes LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
