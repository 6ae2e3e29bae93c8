package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rpupo63/inkwell-backend/cache"
	"github.com/rpupo63/inkwell-backend/database"
	"github.com/rpupo63/inkwell-backend/errs"
	"github.com/rpupo63/inkwell-backend/models"
	"github.com/rpupo63/inkwell-backend/storage"
	"github.com/rpupo63/inkwell-backend/tags"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
)

const maxUsernameLength = 100

type ProfileService struct {
	store   database.Store
	objects storage.ObjectStore
	cache   cache.BlogCache
	now     func() time.Time
	logger  zerolog.Logger
}

func NewProfileService(d Deps) *ProfileService {
	return &ProfileService{
		store:   d.Store,
		objects: d.Objects,
		cache:   d.Cache,
		now:     d.Now,
		logger:  log.With().Str("service", "profiles").Logger(),
	}
}

// ProfileView is the owner's view of a profile.
type ProfileView struct {
	*models.Profile
	Email string `json:"email"`
}

// PublicProfile is what other users see.
type PublicProfile struct {
	ID           uuid.UUID       `json:"id"`
	UserID       uuid.UUID       `json:"user_id"`
	Username     *string         `json:"username,omitempty"`
	FirstName    *string         `json:"first_name,omitempty"`
	LastName     *string         `json:"last_name,omitempty"`
	DisplayName  *string         `json:"display_name,omitempty"`
	Bio          *string         `json:"bio,omitempty"`
	AvatarURL    *string         `json:"avatar_url,omitempty"`
	DateOfBirth  *datatypes.Date `json:"date_of_birth,omitempty"`
	Timezone     *string         `json:"timezone,omitempty"`
	Language     string          `json:"language"`
	CustomFont   *string         `json:"custom_font,omitempty"`
	CustomColors []string        `json:"custom_colors"`
	Interests    []string        `json:"interests"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func newPublicProfile(p *models.Profile) *PublicProfile {
	return &PublicProfile{
		ID:           p.ID,
		UserID:       p.UserID,
		Username:     p.Username,
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		DisplayName:  p.DisplayName,
		Bio:          p.Bio,
		AvatarURL:    p.AvatarURL,
		DateOfBirth:  p.DateOfBirth,
		Timezone:     p.Timezone,
		Language:     p.Language,
		CustomFont:   p.CustomFont,
		CustomColors: nonNil(p.CustomColors),
		Interests:    nonNil(p.Interests),
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// UpdateProfileInput is a partial update; nil fields are left alone. An empty
// string clears an optional text field.
type UpdateProfileInput struct {
	Username     *string        `json:"username"`
	FirstName    *string        `json:"first_name"`
	LastName     *string        `json:"last_name"`
	DisplayName  *string        `json:"display_name"`
	Bio          *string        `json:"bio"`
	DateOfBirth  *string        `json:"date_of_birth"`
	Timezone     *string        `json:"timezone"`
	Language     *string        `json:"language"`
	CustomFont   *string        `json:"custom_font"`
	CustomColors *[]string      `json:"custom_colors"`
	Interests    *[]string      `json:"interests"`
	Preferences  map[string]any `json:"preferences"`
}

type AvatarResult struct {
	AvatarURL string `json:"avatar_url"`
	Message   string `json:"message"`
}

type DeleteAvatarResult struct {
	Message        string `json:"message"`
	StorageDeleted bool   `json:"storage_deleted"`
}

func (s *ProfileService) view(ctx context.Context, profile *models.Profile) (*ProfileView, error) {
	user, err := s.store.UserRepo().FindByID(ctx, profile.UserID)
	if err != nil {
		return nil, errs.NewDatabaseError("find", "user", err)
	}
	v := &ProfileView{Profile: profile}
	if user != nil {
		v.Email = user.Email
	}
	return v, nil
}

func (s *ProfileService) own(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	profile, err := s.store.ProfileRepo().FindOrCreate(ctx, userID)
	if err != nil {
		return nil, errs.NewDatabaseError("create", "profile", err)
	}
	return profile, nil
}

// Me returns the caller's profile, creating it on first access.
func (s *ProfileService) Me(ctx context.Context, userID uuid.UUID) (*ProfileView, error) {
	profile, err := s.own(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, profile)
}

func optionalText(v *string, maxLen int, field string) (*string, error) {
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil, nil
	}
	if maxLen > 0 && utf8.RuneCountInString(trimmed) > maxLen {
		return nil, errs.NewInvalidFieldError(field, fmt.Sprintf("%s must be at most %d characters", field, maxLen))
	}
	return &trimmed, nil
}

func parseDateOfBirth(raw string) (*datatypes.Date, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			d := datatypes.Date(t.UTC().Truncate(24 * time.Hour))
			return &d, nil
		}
	}
	return nil, errs.NewInvalidFieldError("date_of_birth", "date_of_birth must be YYYY-MM-DD")
}

// Update applies a partial update to the caller's profile.
func (s *ProfileService) Update(ctx context.Context, userID uuid.UUID, in UpdateProfileInput) (*ProfileView, error) {
	profile, err := s.own(ctx, userID)
	if err != nil {
		return nil, err
	}

	if in.Username != nil {
		username, err := optionalText(in.Username, maxUsernameLength, "username")
		if err != nil {
			return nil, err
		}
		unchanged := username != nil && profile.Username != nil && *username == *profile.Username
		if username != nil && !unchanged {
			taken, err := s.store.ProfileRepo().UsernameTaken(ctx, *username, userID)
			if err != nil {
				return nil, errs.NewDatabaseError("find", "profile", err)
			}
			if taken {
				return nil, errs.NewConflictError(database.ErrUsernameTaken.Error())
			}
		}
		profile.Username = username
	}

	texts := []struct {
		in     *string
		dst    **string
		maxLen int
		field  string
	}{
		{in.FirstName, &profile.FirstName, 100, "first_name"},
		{in.LastName, &profile.LastName, 100, "last_name"},
		{in.DisplayName, &profile.DisplayName, 200, "display_name"},
		{in.Bio, &profile.Bio, 0, "bio"},
		{in.Timezone, &profile.Timezone, 50, "timezone"},
		{in.CustomFont, &profile.CustomFont, 100, "custom_font"},
	}
	for _, t := range texts {
		if t.in == nil {
			continue
		}
		v, err := optionalText(t.in, t.maxLen, t.field)
		if err != nil {
			return nil, err
		}
		*t.dst = v
	}

	if in.Language != nil {
		language := strings.TrimSpace(*in.Language)
		if language == "" || len(language) > 10 {
			return nil, errs.NewInvalidFieldError("language", "language must be 1 to 10 characters")
		}
		profile.Language = language
	}
	if in.DateOfBirth != nil {
		dob, err := parseDateOfBirth(*in.DateOfBirth)
		if err != nil {
			return nil, err
		}
		profile.DateOfBirth = dob
	}
	if in.CustomColors != nil {
		profile.CustomColors = datatypes.JSONSlice[string](nonNil(*in.CustomColors))
	}
	if in.Interests != nil {
		interests, err := filterTags(*in.Interests, tags.FilterInterests, "interests")
		if err != nil {
			return nil, err
		}
		profile.Interests = datatypes.JSONSlice[string](interests)
	}
	if in.Preferences != nil {
		profile.Preferences = datatypes.JSONMap(in.Preferences)
	}

	profile.UpdatedAt = s.now()
	if err := s.store.ProfileRepo().Update(ctx, profile); err != nil {
		if errors.Is(err, database.ErrUsernameTaken) {
			return nil, errs.NewConflictError(err.Error())
		}
		return nil, errs.NewDatabaseError("update", "profile", err)
	}
	s.invalidateAuthored(ctx, userID)
	return s.view(ctx, profile)
}

// invalidateAuthored drops cached blog views that embed the user's author card.
func (s *ProfileService) invalidateAuthored(ctx context.Context, userID uuid.UUID) {
	ids, err := s.store.BlogRepo().IDsByAuthor(ctx, userID)
	if err != nil {
		s.logger.Warn().Err(err).Str("userID", userID.String()).Msg("could not list authored blogs for cache invalidation")
		return
	}
	for _, id := range ids {
		s.cache.Invalidate(ctx, id)
	}
}

// Public returns another user's profile without private fields.
func (s *ProfileService) Public(ctx context.Context, userID uuid.UUID) (*PublicProfile, error) {
	profile, err := s.store.ProfileRepo().FindByUserID(ctx, userID)
	if err != nil {
		return nil, errs.NewDatabaseError("find", "profile", err)
	}
	if profile == nil {
		return nil, errs.NewNotFoundError("User not found")
	}
	return newPublicProfile(profile), nil
}

func (s *ProfileService) UploadAvatar(ctx context.Context, userID uuid.UUID, img *Image) (*AvatarResult, error) {
	if err := ValidateImage(img, MaxProfileImageBytes); err != nil {
		return nil, err
	}
	profile, err := s.own(ctx, userID)
	if err != nil {
		return nil, err
	}

	url, err := replaceImage(ctx, s.objects, s.logger, profile.AvatarURL,
		ObjectPath(EntityProfiles, userID, img.Filename), img)
	if err != nil {
		return nil, err
	}

	profile.AvatarURL = &url
	profile.UpdatedAt = s.now()
	if err := s.store.ProfileRepo().Update(ctx, profile); err != nil {
		return nil, errs.NewDatabaseError("update", "profile", err)
	}
	s.invalidateAuthored(ctx, userID)
	return &AvatarResult{AvatarURL: url, Message: "Profile image uploaded successfully"}, nil
}

func (s *ProfileService) DeleteAvatar(ctx context.Context, userID uuid.UUID) (*DeleteAvatarResult, error) {
	profile, err := s.own(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile.AvatarURL == nil {
		return nil, errs.NewNotFoundError("No profile image found")
	}

	deleted := removeImage(ctx, s.objects, s.logger, *profile.AvatarURL)
	profile.AvatarURL = nil
	profile.UpdatedAt = s.now()
	if err := s.store.ProfileRepo().Update(ctx, profile); err != nil {
		return nil, errs.NewDatabaseError("update", "profile", err)
	}
	s.invalidateAuthored(ctx, userID)
	return &DeleteAvatarResult{Message: "Profile image deleted successfully", StorageDeleted: deleted}, nil
}
