// File: app/app.go
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"go-auth-api/config"
	"go-auth-api/db"
	"go-auth-api/handler"
	"go-auth-api/logger"
	"go-auth-api/repository"
	"go-auth-api/router"
	"go-auth-api/service"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const sweepLockKey = "go-auth-api:sweep-lock"

// App holds the wired layers so tests can drive the router against a real database.
type App struct {
	DB      *sql.DB
	Router  http.Handler
	Auth    *service.AuthService
	Users   *service.UserService
	Sweeper *service.Sweeper
}

// New wires repositories, services and handlers. redisClient may be nil, in
// which case sweeps run without a distributed lock.
func New(cfg *config.Config, database *sql.DB, redisClient *redis.Client) (*App, error) {
	codec, err := service.NewJWTCodec(cfg.JWT.SecretKey, cfg.JWT.Algorithm, cfg.JWT.Issuer)
	if err != nil {
		return nil, err
	}
	hasher := service.NewBcryptHasher(cfg.Hashing.Cost)

	// Layers for users
	userRepo := repository.NewUserRepository(database)
	userService := service.NewUserService(userRepo, hasher)

	// Layers for sessions
	refreshRepo := repository.NewRefreshTokenRepository(database)
	sessions := service.NewRefreshTokenService(refreshRepo, hasher)
	authService := service.NewAuthService(codec, sessions, userService, service.AuthConfig{
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.Refresh.TTL,
		MaxDevices:    cfg.Refresh.MaxDevices,
		RevokeOnReuse: cfg.Refresh.RevokeOnReuse,
	})

	// Layers for verification tokens
	verificationRepo := repository.NewVerificationTokenRepository(database)
	verification := service.NewVerificationTokenService(verificationRepo, hasher, service.VerificationTTLs{
		Email:         cfg.Verification.EmailTTL,
		PasswordReset: cfg.Verification.PasswordResetTTL,
	})
	accountService := service.NewAccountService(userService, verification, authService, service.LogMailer{})

	var locker service.Locker
	if redisClient != nil {
		locker = service.NewRedisLocker(redisClient, sweepLockKey, cfg.Sweeper.LockTTL)
	}
	sweeper := service.NewSweeper(sessions, verification, locker, cfg.Sweeper.Interval, cfg.Verification.UsedRetention)

	r := router.NewRouter(
		handler.NewUserHandler(userService),
		handler.NewAuthHandler(authService, userService),
		handler.NewAccountHandler(accountService),
		authService,
	)

	return &App{
		DB:      database,
		Router:  r,
		Auth:    authService,
		Users:   userService,
		Sweeper: sweeper,
	}, nil
}

func Run() {
	logger.Init()
	config.LoadConfig(".")
	logger.SetLevel(config.AppConfig.Log.Level)
	logger.Log.Info("Configuration loaded successfully")

	if err := run(&config.AppConfig); err != nil {
		logger.Log.Fatalf("Server stopped with error: %v", err)
	}
	logger.Log.Info("Server exited properly")
}

func run(cfg *config.Config) error {
	database, err := db.Connect()
	if err != nil {
		return fmt.Errorf("error connecting to the database: %w", err)
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("error running migrations: %w", err)
	}

	redisClient, err := db.ConnectRedis()
	if err != nil {
		return fmt.Errorf("error connecting to redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	application, err := New(cfg, database, redisClient)
	if err != nil {
		return err
	}

	// --- Start the Server and Sweeper with Graceful Shutdown ---
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: application.Router,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Log.Infof("Server starting on port :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return application.Sweeper.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Log.Warn("Shutdown signal received. Starting graceful shutdown...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}
