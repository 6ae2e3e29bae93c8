package main

import (
	"context"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/dbresolver"

	"github.com/rpupo63/inkwell-backend/api"
	"github.com/rpupo63/inkwell-backend/cache"
	"github.com/rpupo63/inkwell-backend/config"
	"github.com/rpupo63/inkwell-backend/database"
	"github.com/rpupo63/inkwell-backend/database/memory"
	"github.com/rpupo63/inkwell-backend/events"
	"github.com/rpupo63/inkwell-backend/identity"
	"github.com/rpupo63/inkwell-backend/metrics"
	"github.com/rpupo63/inkwell-backend/models"
	"github.com/rpupo63/inkwell-backend/notify"
	"github.com/rpupo63/inkwell-backend/services"
	"github.com/rpupo63/inkwell-backend/storage"
)

func main() {
	config.LoadDotEnv()
	c := config.New()

	ctx := context.Background()
	if path := config.GetString(c, "SSM_PARAMETER_PATH", ""); path != "" {
		if err := config.LoadSSMParameters(ctx, c, path, config.GetString(c, "AWS_REGION", "")); err != nil {
			fmt.Printf("Error loading SSM parameters: %v\n", err)
			os.Exit(1)
		}
	}

	setupLogger(c)
	log.Info().Msg("Initializing app...")

	// closers run in reverse order on shutdown
	var closers []func()
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}()

	dbType := config.GetString(c, "DB_TYPE", "")
	log.Info().Str("dbType", dbType).Msg("Selecting database")

	var store database.Store
	if dbType == "memory" {
		log.Warn().Msg("Using the in-memory store, data is lost on exit")
		store = memory.New()
	} else {
		db, err := openDatabase(c, dbType)
		if err != nil {
			log.Fatal().Err(err).Msg("Error connecting to database")
		}
		if sqlDB, err := db.DB(); err == nil {
			closers = append(closers, func() { _ = sqlDB.Close() })
		}

		// If generating models, run generation and exit
		if config.GetBool(c, "GENERATE_MODELS", false) {
			log.Info().Msg("Generating models and query helpers...")
			models.GenerateModels(db)
			return
		}

		// If generating column mismatch report, run report and exit
		if config.GetBool(c, "GENERATE_COLUMN_REPORT", false) {
			log.Info().Msg("Generating column mismatch report...")
			models.GenerateColumnMismatchReportStandalone(db)
			return
		}

		if config.GetBool(c, "AUTO_MIGRATE", false) {
			if err := models.Migrate(db); err != nil {
				log.Fatal().Err(err).Msg("Error migrating database")
			}
			log.Info().Msg("Database migrated")
		}

		store = database.New(db)
	}

	verifier, err := newVerifier(c)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing auth provider")
	}

	m := metrics.New("inkwell")
	deps := services.Deps{Store: store}

	if bucket := config.GetString(c, "STORAGE_BUCKET", ""); bucket != "" {
		objects, err := storage.NewS3Store(ctx, storage.Options{
			Bucket:    bucket,
			Region:    config.GetString(c, "STORAGE_REGION", config.GetString(c, "AWS_REGION", "")),
			Endpoint:  config.GetString(c, "STORAGE_ENDPOINT", ""),
			PublicURL: config.GetString(c, "STORAGE_PUBLIC_URL", ""),
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Error initializing object storage")
		}
		deps.Objects = objects
	} else {
		log.Warn().Msg("STORAGE_BUCKET not set, image uploads are disabled")
	}

	if addr := config.GetString(c, "REDIS_ADDR", ""); addr != "" {
		blogCache, client, err := cache.NewRedisCache(ctx, cache.Options{
			Addr:     addr,
			Password: config.GetString(c, "REDIS_PASSWORD", ""),
			TTL:      config.GetSeconds(c, "CACHE_TTL_SECONDS", 60),
			Observe:  m.ObserveCache,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Error connecting to redis")
		}
		closers = append(closers, func() { _ = client.Close() })
		deps.Cache = blogCache
	}

	if url := config.GetString(c, "NATS_URL", ""); url != "" {
		publisher, conn, err := events.Connect(url, config.GetString(c, "NATS_SUBJECT_PREFIX", "inkwell"))
		if err != nil {
			log.Fatal().Err(err).Msg("Error connecting to nats")
		}
		closers = append(closers, func() { _ = conn.Drain() })
		deps.Events = publisher
	}

	if apiKey := config.GetString(c, "RESEND_API_KEY", ""); apiKey != "" {
		mailer, err := notify.NewResend(apiKey, config.GetString(c, "RESEND_FROM_EMAIL", ""))
		if err != nil {
			log.Fatal().Err(err).Msg("Error initializing mailer")
		}
		deps.Mailer = mailer
	}

	errChannel := make(chan error, 2)

	svc := services.New(deps)
	server, err := api.NewServer(c, api.Deps{
		Services: svc,
		Store:    store,
		Verifier: verifier,
		Metrics:  m,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing server")
	}

	go server.Start(errChannel)

	// Listen for interrupt signals to gracefully shutdown the server
	go listenToInterrupt(errChannel)

	fatalErr := <-errChannel
	log.Info().Err(fatalErr).Msg("Closing server")

	server.ShutdownGracefully(30 * time.Second)

	waitCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := svc.Shutdown(waitCtx); err != nil {
		log.Warn().Err(err).Msg("Background work did not finish before shutdown")
	}
}

func setupLogger(c map[string]string) {
	level, err := zerolog.ParseLevel(strings.ToLower(config.GetString(c, "LOG_LEVEL", "info")))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	var out io.Writer = os.Stdout
	if config.GetString(c, "LOG_FORMAT", "") == "console" {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
}

func dsn(c map[string]string, dbType string) (string, error) {
	switch dbType {
	case "supa":
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=require",
			config.GetString(c, "SUPABASE_DB_HOST", ""),
			config.GetString(c, "SUPABASE_DB_USER", ""),
			config.GetString(c, "SUPABASE_DB_PASSWORD", ""),
			config.GetString(c, "SUPABASE_DB_NAME", ""),
			config.GetString(c, "SUPABASE_DB_PORT", "5432"),
		), nil
	case "postgres":
		url := config.GetString(c, "DATABASE_URL", "")
		if url == "" {
			return "", fmt.Errorf("DATABASE_URL is required for DB_TYPE=postgres")
		}
		return url, nil
	default:
		return "", fmt.Errorf("unsupported DB_TYPE %q", dbType)
	}
}

func openDatabase(c map[string]string, dbType string) (*gorm.DB, error) {
	connStr, err := dsn(c, dbType)
	if err != nil {
		return nil, err
	}

	newLogger := logger.New(
		stdlog.New(os.Stdout, "\r\n", stdlog.LstdFlags),
		logger.Config{
			SlowThreshold:             10 * time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  config.GetString(c, "LOG_FORMAT", "") == "console",
		},
	)

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  connStr,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		PrepareStmt:    false,
		TranslateError: true,
		Logger:         newLogger,
	})
	if err != nil {
		return nil, err
	}

	if replicas := config.GetList(c, "DB_REPLICA_DSNS"); len(replicas) > 0 {
		dialectors := make([]gorm.Dialector, 0, len(replicas))
		for _, replica := range replicas {
			dialectors = append(dialectors, postgres.New(postgres.Config{DSN: replica, PreferSimpleProtocol: true}))
		}
		if err := db.Use(dbresolver.Register(dbresolver.Config{
			Replicas: dialectors,
			Policy:   dbresolver.RandomPolicy{},
		})); err != nil {
			return nil, fmt.Errorf("register read replicas: %w", err)
		}
		log.Info().Int("replicas", len(dialectors)).Msg("Read replicas registered")
	}

	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\"").Error; err != nil {
		return nil, fmt.Errorf("enable uuid-ossp extension: %w", err)
	}

	// Test database connection
	var result int
	if err := db.Raw("SELECT 1").Scan(&result).Error; err != nil {
		return nil, fmt.Errorf("test connection: %w", err)
	}
	return db, nil
}

func newVerifier(c map[string]string) (identity.Verifier, error) {
	switch provider := config.GetString(c, "AUTH_PROVIDER", "jwt"); provider {
	case "jwt":
		return identity.NewJWTVerifier(config.GetString(c, "JWT_SECRET", ""), config.GetString(c, "JWT_ISSUER", ""))
	case "descope":
		return identity.NewDescopeVerifier(config.GetString(c, "DESCOPE_PROJECT_ID", ""))
	default:
		return nil, fmt.Errorf("unsupported AUTH_PROVIDER %q", provider)
	}
}

// listenToInterrupt waits for SIGINT or SIGTERM and then sends an error to the error channel.
func listenToInterrupt(errChannel chan<- error) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	errChannel <- fmt.Errorf("%s", <-c)
}
