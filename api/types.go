package api

import "time"

// routeHandlers contains all the handlers for different route types
type routeHandlers struct {
	blogHandler    blogHandler
	commentHandler commentHandler
	userHandler    userHandler
	healthHandler  healthHandler
}

// ErrorResponse represents an error response from the API
// @Description Error response structure
type ErrorResponse struct {
	Error   string `json:"error" example:"blog not found"`
	Status  int    `json:"status" example:"404"`
	Field   string `json:"field,omitempty" example:"title"`
	Details string `json:"details,omitempty" example:"title must be at most 255 characters"`
}

// HealthResponse reports liveness and uptime.
type HealthResponse struct {
	Status        string    `json:"status" example:"ok"`
	StartedAt     time.Time `json:"started_at"`
	UptimeSeconds int64     `json:"uptime_seconds"`
}

// CreateCommentRequest is the body of a new comment or reply.
type CreateCommentRequest struct {
	Content         string  `json:"content"`
	ParentCommentID *string `json:"parent_comment_id,omitempty"`
}

type UpdateCommentRequest struct {
	Content string `json:"content"`
}

// FollowRequest names the user to follow or unfollow.
type FollowRequest struct {
	UserID string `json:"user_id"`
}
