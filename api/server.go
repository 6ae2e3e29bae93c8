package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rpupo63/inkwell-backend/config"
	"github.com/rpupo63/inkwell-backend/database"
	"github.com/rpupo63/inkwell-backend/identity"
	"github.com/rpupo63/inkwell-backend/metrics"
	"github.com/rpupo63/inkwell-backend/services"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Deps are what the router needs from main. Metrics is optional.
type Deps struct {
	Services *services.Services
	Store    database.Store
	Verifier identity.Verifier
	Metrics  *metrics.Metrics
}

type Server struct {
	*http.Server
	startupTime time.Time
}

func NewServer(c map[string]string, deps Deps) (Server, error) {
	if deps.Services == nil || deps.Store == nil || deps.Verifier == nil {
		return Server{}, errors.New("api: services, store and verifier are required")
	}

	port := config.GetString(c, "PORT", "8080")
	address := fmt.Sprintf("0.0.0.0:%s", port)

	startupTime := time.Now()

	router := newRouter(deps,
		withAcceptedOrigins(config.GetList(c, "ACCEPTED_ORIGINS")),
		withStartupTime(startupTime),
		withRequestLogger(log.With().Str("component", "http").Logger()),
	)

	server := &http.Server{
		Addr:         address,
		Handler:      router,
		ReadTimeout:  config.GetSeconds(c, "READ_TIMEOUT_SECONDS", 180),
		WriteTimeout: config.GetSeconds(c, "WRITE_TIMEOUT_SECONDS", 180),
		IdleTimeout:  config.GetSeconds(c, "IDLE_TIMEOUT_SECONDS", 180),
	}

	return Server{server, startupTime}, nil
}

type router struct {
	acceptedOrigins []string
	startupTime     time.Time
	requestLogger   *zerolog.Logger
}

func withAcceptedOrigins(origins []string) func(*router) {
	return func(r *router) {
		r.acceptedOrigins = origins
	}
}

func withStartupTime(startupTime time.Time) func(*router) {
	return func(r *router) {
		r.startupTime = startupTime
	}
}

func withRequestLogger(logger zerolog.Logger) func(*router) {
	return func(r *router) {
		r.requestLogger = &logger
	}
}

func newRouter(deps Deps, opts ...func(*router)) *chi.Mux {
	router := router{startupTime: time.Now()}
	for _, opt := range opts {
		opt(&router)
	}

	chiRouter := chi.NewRouter()
	chiRouter.Use(LogInternalServerErrors)
	if router.requestLogger != nil {
		chiRouter.Use(requestLogger(*router.requestLogger))
	}
	if deps.Metrics != nil {
		chiRouter.Use(deps.Metrics.Middleware)
	}

	if len(router.acceptedOrigins) > 0 {
		chiRouter.Use(CORSCheckMiddleware(router.acceptedOrigins))
		chiRouter.Use(corsMiddleware(router.acceptedOrigins))
	}
	chiRouter.Use(loadersMiddleware(deps.Store))

	handlers := initializeHandlers(deps.Services, router.startupTime)
	auth := newAuthMiddleware(deps.Verifier, deps.Store)

	var metricsHandler http.Handler
	if deps.Metrics != nil {
		metricsHandler = deps.Metrics.Handler()
	}

	setupPublicRoutes(chiRouter, handlers, metricsHandler)
	setupAuthenticatedRoutes(chiRouter, handlers, auth)

	return chiRouter
}

func (s Server) Start(errChannel chan<- error) {
	log.Info().Msgf("Server started on: %s", s.Addr)
	if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		errChannel <- err
	}
}

func (s Server) ShutdownGracefully(timeout time.Duration) {
	log.Info().Msg("Gracefully shutting down...")

	gracefullCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.Shutdown(gracefullCtx); err != nil {
		log.Error().Msgf("Error shutting down the server: %v", err)
	} else {
		log.Info().Msg("HttpServer gracefully shut down")
	}
}
