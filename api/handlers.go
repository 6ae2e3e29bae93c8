package api

import (
	"net/http"
	"time"

	"github.com/rpupo63/inkwell-backend/services"
	"github.com/rs/zerolog/log"
)

// initializeHandlers creates and returns all handlers organized in a routeHandlers struct
func initializeHandlers(svc *services.Services, startupTime time.Time) *routeHandlers {
	return &routeHandlers{
		blogHandler:    newBlogHandler(svc.Blogs, svc.Likes),
		commentHandler: newCommentHandler(svc.Comments),
		userHandler:    newUserHandler(svc.Profiles, svc.Follows),
		healthHandler:  newHealthHandler(startupTime),
	}
}

type healthHandler struct {
	responder   Responder
	startupTime time.Time
}

func newHealthHandler(startupTime time.Time) healthHandler {
	return healthHandler{
		responder:   NewResponder(log.With().Str("handlerName", "healthHandler").Logger()),
		startupTime: startupTime,
	}
}

// @Summary Health check
// @Tags Health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h healthHandler) health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.responder.WriteJSON(w, HealthResponse{
			Status:        "ok",
			StartedAt:     h.startupTime,
			UptimeSeconds: int64(time.Since(h.startupTime).Seconds()),
		})
	}
}
