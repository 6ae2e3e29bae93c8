package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// setupPublicRoutes sets up the routes that need no token
func setupPublicRoutes(r chi.Router, handlers *routeHandlers, metricsHandler http.Handler) {
	r.Get("/health", handlers.healthHandler.health())
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}
	r.Get("/blogs/tags", handlers.blogHandler.getTags())
	r.Get("/users/interests", handlers.userHandler.getInterests())
}

// setupAuthenticatedRoutes sets up all routes behind the bearer token check
func setupAuthenticatedRoutes(r chi.Router, handlers *routeHandlers, auth authMiddleware) {
	r.Group(func(r chi.Router) {
		r.Use(auth.authenticate)

		// Blog Handler endpoints
		r.Get("/blogs", handlers.blogHandler.searchBlogs())
		r.Post("/blogs", handlers.blogHandler.createBlog())
		r.Get("/blogs/recommended", handlers.blogHandler.recommendedBlogs())
		r.Get("/blogs/user/{userID}", handlers.blogHandler.userBlogs())
		r.Get("/blogs/{blogID}", handlers.blogHandler.getBlog())
		r.Put("/blogs/{blogID}", handlers.blogHandler.updateBlog())
		r.Delete("/blogs/{blogID}", handlers.blogHandler.deleteBlog())
		r.Post("/blogs/{blogID}/cover-image", handlers.blogHandler.uploadCover())
		r.Delete("/blogs/{blogID}/cover-image", handlers.blogHandler.deleteCover())
		r.Post("/blogs/{blogID}/like", handlers.blogHandler.toggleLike())
		r.Get("/blogs/{blogID}/likes", handlers.blogHandler.likeStats())

		// Comment Handler endpoints
		r.Post("/blogs/{blogID}/comments", handlers.commentHandler.createComment())
		r.Get("/blogs/{blogID}/comments", handlers.commentHandler.listComments())
		r.Put("/blogs/comments/{commentID}", handlers.commentHandler.updateComment())
		r.Delete("/blogs/comments/{commentID}", handlers.commentHandler.deleteComment())

		// User Handler endpoints
		r.Get("/users/me", handlers.userHandler.getMe())
		r.Put("/users/me", handlers.userHandler.updateMe())
		r.Post("/users/me/profile-image", handlers.userHandler.uploadAvatar())
		r.Delete("/users/me/profile-image", handlers.userHandler.deleteAvatar())
		r.Get("/users/{userID}/profile", handlers.userHandler.publicProfile())
		r.Post("/users/follow", handlers.userHandler.follow())
		r.Delete("/users/unfollow", handlers.userHandler.unfollow())
		r.Get("/users/followers", handlers.userHandler.followList(true))
		r.Get("/users/following", handlers.userHandler.followList(false))
		r.Get("/users/follow-stats", handlers.userHandler.followStats())
	})
}
