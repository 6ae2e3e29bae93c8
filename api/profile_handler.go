package api

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rpupo63/inkwell-backend/errs"
	"github.com/rpupo63/inkwell-backend/services"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type userHandler struct {
	responder Responder
	logger    zerolog.Logger
	profiles  *services.ProfileService
	follows   *services.FollowService
}

func newUserHandler(profiles *services.ProfileService, follows *services.FollowService) userHandler {
	logger := log.With().Str("handlerName", "userHandler").Logger()

	return userHandler{
		responder: NewResponder(logger),
		logger:    logger,
		profiles:  profiles,
		follows:   follows,
	}
}

// @Summary Available interests
// @Tags Users
// @Produce json
// @Success 200 {array} string
// @Router /users/interests [get]
func (h userHandler) getInterests() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.responder.WriteJSON(w, services.AvailableInterests())
	}
}

// getMe returns the caller's profile, creating it on first access
// @Summary Own profile
// @Tags Users
// @Produce json
// @Success 200 {object} services.ProfileView
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Router /users/me [get]
func (h userHandler) getMe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := callerID(r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		profile, err := h.profiles.Me(r.Context(), userID)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, profile)
	}
}

// updateMe applies a partial profile update
// @Summary Update own profile
// @Description Only the given fields change. Unknown interests are dropped.
// @Tags Users
// @Accept json
// @Produce json
// @Param profile body services.UpdateProfileInput true "Fields to change"
// @Success 200 {object} services.ProfileView
// @Failure 400 {object} ErrorResponse "Bad Request - Invalid profile data"
// @Failure 409 {object} ErrorResponse "Conflict - Username already taken"
// @Router /users/me [put]
func (h userHandler) updateMe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := callerID(r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		var in services.UpdateProfileInput
		if err := decodeJSON(w, r, &in); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		profile, err := h.profiles.Update(r.Context(), userID, in)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, profile)
	}
}

// uploadAvatar stores the caller's profile image
// @Summary Upload profile image
// @Description JPEG, PNG, GIF or WebP up to 5MB in the multipart field "file".
// @Tags Users
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Image"
// @Success 200 {object} services.AvatarResult
// @Failure 400 {object} ErrorResponse "Bad Request - Invalid file"
// @Router /users/me/profile-image [post]
func (h userHandler) uploadAvatar() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := callerID(r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		img, err := readImage(w, r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		res, err := h.profiles.UploadAvatar(r.Context(), userID, img)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, res)
	}
}

// @Summary Delete profile image
// @Tags Users
// @Produce json
// @Success 200 {object} services.DeleteAvatarResult
// @Failure 404 {object} ErrorResponse "Not Found - No profile image"
// @Router /users/me/profile-image [delete]
func (h userHandler) deleteAvatar() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := callerID(r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		res, err := h.profiles.DeleteAvatar(r.Context(), userID)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, res)
	}
}

// @Summary Public profile
// @Tags Users
// @Produce json
// @Param userID path string true "User ID" format(uuid)
// @Success 200 {object} services.PublicProfile
// @Failure 404 {object} ErrorResponse "Not Found"
// @Router /users/{userID}/profile [get]
func (h userHandler) publicProfile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := uuidParam(r, "userID")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		profile, err := h.profiles.Public(r.Context(), userID)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, profile)
	}
}

func (h userHandler) followTarget(w http.ResponseWriter, r *http.Request) (uuid.UUID, error) {
	var req FollowRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return uuid.Nil, err
	}
	if strings.TrimSpace(req.UserID) == "" {
		return uuid.Nil, errs.NewMissingRequiredFieldError("user_id")
	}
	target, err := uuid.Parse(strings.TrimSpace(req.UserID))
	if err != nil {
		return uuid.Nil, errs.NewBadRequestErrorWithField("invalid user_id", "user_id")
	}
	return target, nil
}

// follow makes the caller follow a user
// @Summary Follow user
// @Tags Follows
// @Accept json
// @Produce json
// @Param request body FollowRequest true "User to follow"
// @Success 200 {object} services.FollowResult
// @Failure 400 {object} ErrorResponse "Bad Request - Self follow"
// @Failure 404 {object} ErrorResponse "Not Found - Unknown user"
// @Router /users/follow [post]
func (h userHandler) follow() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := callerID(r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		target, err := h.followTarget(w, r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		res, err := h.follows.Follow(r.Context(), userID, target)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, res)
	}
}

// @Summary Unfollow user
// @Tags Follows
// @Accept json
// @Produce json
// @Param request body FollowRequest true "User to unfollow"
// @Success 200 {object} services.FollowResult
// @Router /users/unfollow [delete]
func (h userHandler) unfollow() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := callerID(r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		target, err := h.followTarget(w, r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		res, err := h.follows.Unfollow(r.Context(), userID, target)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, res)
	}
}

// followList serves /users/followers and /users/following.
// @Summary Followers or following
// @Description user_id defaults to the caller.
// @Tags Follows
// @Produce json
// @Param user_id query string false "User ID" format(uuid)
// @Param skip query int false "Offset" default(0)
// @Param limit query int false "Page size" default(20)
// @Success 200 {object} services.FollowersList
// @Router /users/followers [get]
// @Router /users/following [get]
func (h userHandler) followList(followers bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := callerID(r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		target, err := optionalUUIDQuery(r, "user_id")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		page, err := pageQuery(r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		var res any
		if followers {
			res, err = h.follows.Followers(r.Context(), userID, target, page)
		} else {
			res, err = h.follows.Following(r.Context(), userID, target, page)
		}
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, res)
	}
}

// @Summary Follow counts
// @Tags Follows
// @Produce json
// @Param user_id query string false "User ID" format(uuid)
// @Success 200 {object} services.FollowStats
// @Router /users/follow-stats [get]
func (h userHandler) followStats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := callerID(r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		target, err := optionalUUIDQuery(r, "user_id")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		stats, err := h.follows.Stats(r.Context(), userID, target)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, stats)
	}
}
