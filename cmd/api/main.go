package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"

	_ "github.com/bricabrac/listings-api/docs" // Swagger docs (generated)
	"github.com/bricabrac/listings-api/internal/auth"
	"github.com/bricabrac/listings-api/internal/config"
	"github.com/bricabrac/listings-api/internal/database"
	httpServer "github.com/bricabrac/listings-api/internal/http"
	"github.com/bricabrac/listings-api/internal/listing"
	"github.com/bricabrac/listings-api/internal/logging"
	"github.com/bricabrac/listings-api/internal/storage"
	"github.com/bricabrac/listings-api/internal/user"
)

// @title           Listings API
// @version         1.0
// @description     A listing-marketplace REST API with token authentication and owner-enforced mutations.

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the access token.

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	logger := logging.NewLogger(cfg.Server.IsDevelopment())
	logger.Info("starting application",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
	)

	// Initialize database connection
	db, err := initDB(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	// Initialize Redis connection
	redisClient, err := initRedis(cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to initialize Redis: %w", err)
	}
	defer redisClient.Close()

	// Initialize artifact storage
	artifactStore, err := initStorage(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize artifact storage: %w", err)
	}

	// Initialize token service
	tokenService, err := initTokenService(cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to initialize token service: %w", err)
	}

	// Initialize repositories
	userRepo := user.NewRepository(db)
	listingRepo := listing.NewRepository(db)
	listingCache := listing.NewRedisCache(redisClient, 5*time.Minute)

	// Initialize services
	authService := auth.NewService(
		userRepo,
		auth.NewBcryptHasher(),
		tokenService,
		logger,
		cfg.Auth.TokenDuration,
	)
	listingService := listing.NewService(listingRepo, artifactStore, listingCache, logger)

	// Initialize HTTP handlers
	authHandler := auth.NewHandler(authService, logger)
	listingHandler := listing.NewHandler(listingService, logger)
	authMiddleware := auth.NewMiddleware(tokenService)

	// Initialize router
	router := httpServer.NewRouter(cfg, authHandler, authMiddleware, listingHandler, logger)

	// Initialize HTTP server
	serverAddr := ":" + cfg.Server.Port
	server := httpServer.NewServer(
		serverAddr,
		router,
		cfg.Server.ReadTimeout,
		cfg.Server.WriteTimeout,
		logger,
	)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	// Wait for interrupt signal or server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		logger.Info("received shutdown signal", "signal", sig.String())

		// Graceful shutdown with timeout
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// initDB initializes the database connection and returns a Bun DB instance
func initDB(cfg config.DatabaseConfig) (*bun.DB, error) {
	sqlDB, err := sql.Open("postgres", cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Verify connection
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return database.NewBunDB(sqlDB), nil
}

// initRedis initializes the Redis connection and returns a Redis client
func initRedis(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Verify connection
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return client, nil
}

// initStorage builds the configured artifact store backend
func initStorage(cfg config.StorageConfig) (storage.ArtifactStore, error) {
	switch cfg.Backend {
	case config.StorageBackendS3:
		return storage.NewS3Store(
			context.Background(),
			cfg.S3AccessKey,
			cfg.S3SecretKey,
			cfg.S3Region,
			cfg.S3Bucket,
			cfg.S3BaseURL,
		)
	default:
		return storage.NewFilesystemStore(cfg.Dir, cfg.PublicPath)
	}
}

// initTokenService builds the configured token scheme
func initTokenService(cfg config.AuthConfig) (auth.TokenService, error) {
	if cfg.TokenScheme == config.TokenSchemePaseto {
		return auth.NewPasetoService(cfg.TokenSecret)
	}
	return auth.NewJWTService(cfg.TokenSecret)
}
