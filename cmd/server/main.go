package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vomprater-server/internal/access"
	"vomprater-server/internal/config"
	"vomprater-server/internal/handler"
	"vomprater-server/internal/logger"
	"vomprater-server/internal/mailer"
	"vomprater-server/internal/service"
	"vomprater-server/internal/storage"
	"vomprater-server/internal/storage/postgres"
	"vomprater-server/internal/storage/strapi"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig(".env")
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Encoding: "json"})
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Storage backend ---
	var (
		storyRepo   storage.StoryRepository
		pageRepo    storage.PageRepository
		keywordRepo storage.KeywordRepository
		authorRepo  storage.AuthorRepository
		pool        *pgxpool.Pool
	)
	switch cfg.StorageBackend {
	case "strapi":
		client := strapi.NewClient(cfg.StrapiURL, cfg.StrapiToken, log)
		storyRepo = strapi.NewStoryRepository(client, log)
		pageRepo = strapi.NewPageRepository(client, log)
		keywordRepo = strapi.NewKeywordRepository(client, log)
		authorRepo = strapi.NewAuthorRepository(client, log)
		log.Info("Storage backend: strapi", zap.String("url", cfg.StrapiURL))
	default:
		pool, err = setupPostgres(ctx, cfg, log)
		if err != nil {
			log.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
		}
		defer pool.Close()

		if err := postgres.ApplyMigrations(migrateDSN(cfg), log); err != nil {
			log.Fatal("Failed to apply database migrations", zap.Error(err))
		}

		storyRepo = postgres.NewStoryRepository(pool, log)
		pageRepo = postgres.NewPageRepository(pool, log)
		keywordRepo = postgres.NewKeywordRepository(pool, log)
		authorRepo = postgres.NewAuthorRepository(pool, log)
		log.Info("Storage backend: postgres", zap.String("host", cfg.DBHost))
	}

	// --- Redis (verify-password rate limiter) ---
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			log.Warn("Redis unreachable, rate limiter falls back to in-memory store", zap.Error(err))
			redisClient = nil
		}
		cancel()
	}

	// --- Access / tokens ---
	accessSvc, err := access.NewService(cfg.StoryTokenSecret, cfg.StoryTokenTTL, log)
	if err != nil {
		log.Fatal("Failed to initialize access service", zap.Error(err))
	}
	moderatorVerifier, err := access.NewModeratorVerifier(cfg.ModeratorTokenSecret, log)
	if err != nil {
		log.Fatal("Failed to initialize moderator verifier", zap.Error(err))
	}

	// --- Mailer ---
	var mail mailer.Mailer
	if cfg.BrevoAPIKey != "" {
		mail = mailer.NewBrevoMailer(cfg.BrevoAPIKey, cfg.SenderEmail, cfg.SenderName, log)
	} else {
		log.Warn("No Brevo API key configured, emails go to the log only")
		mail = mailer.NewLogMailer(log)
	}
	dispatcher := mailer.NewDispatcher(mail, cfg.PublicURL, log)

	// --- Services ---
	storySvc := service.NewStoryService(storyRepo, accessSvc, dispatcher, log)
	pageSvc := service.NewPageService(storyRepo, pageRepo, log)
	metaSvc := service.NewMetaService(keywordRepo, authorRepo, log)

	// --- HTTP ---
	router := handler.NewRouter(handler.RouterDeps{
		Stories:          storySvc,
		Pages:            pageSvc,
		Meta:             metaSvc,
		Access:           accessSvc,
		Moderators:       moderatorVerifier,
		Logger:           log,
		AllowedOrigins:   cfg.GetAllowedOrigins(),
		RedisClient:      redisClient,
		VerifyRateLimit:  uint(cfg.VerifyRateLimit),
		VerifyRateWindow: cfg.VerifyRateWindow,
		Production:       cfg.IsProduction(),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Starting HTTP server", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced to shutdown", zap.Error(err))
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Error("Failed to close redis client", zap.Error(err))
		}
	}

	log.Info("Server exiting")
}

// setupPostgres initializes the connection pool with retry logic; the
// database container may come up after the server.
func setupPostgres(ctx context.Context, cfg *config.Config, log *zap.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("unable to parse postgres config: %w", err)
	}

	const maxRetries = 10
	const retryDelay = 3 * time.Second

	var pool *pgxpool.Pool
	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		pool, lastErr = pgxpool.NewWithConfig(connectCtx, poolConfig)
		if lastErr == nil {
			lastErr = pool.Ping(connectCtx)
		}
		cancel()
		if lastErr == nil {
			log.Info("Connected to PostgreSQL", zap.Int("attempt", attempt))
			return pool, nil
		}
		log.Warn("PostgreSQL not ready, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("delay", retryDelay),
			zap.Error(lastErr))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryDelay):
		}
	}
	return nil, fmt.Errorf("postgres unreachable after %d attempts: %w", maxRetries, lastErr)
}

// migrateDSN rewrites the connection string to the pgx5 scheme expected by
// golang-migrate.
func migrateDSN(cfg *config.Config) string {
	return fmt.Sprintf("pgx5://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.DBSSLMode)
}
