package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"gymmanager/internal/config"
	"gymmanager/internal/dashboard"
	"gymmanager/internal/db"
	"gymmanager/internal/email"
	"gymmanager/internal/gym"
	"gymmanager/internal/logger"
	"gymmanager/internal/member"
	"gymmanager/internal/otp"
	"gymmanager/internal/plan"
	"gymmanager/internal/reminder"
	"gymmanager/internal/server"
	"gymmanager/internal/storage"
)

const shutdownTimeout = 30 * time.Second

// @title Gym Manager API
// @version 1.0
// @description Membership, plan and billing administration for gym owners.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	logger.Init()
	logger.Info("Starting Gym Manager")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	logger.Info("Connecting to database...")
	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	if err := db.RunMigrations(database, cfg.MigrationsPath); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}
	logger.Info("Migrations completed")

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer rdb.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("Redis unavailable at startup; emails and dashboard cache will retry", "error", err)
	}

	emailService := email.New(rdb, email.NewSMTPSender(email.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		User:     cfg.SMTPUser,
		Pass:     cfg.SMTPPass,
		From:     cfg.EmailFrom,
		FromName: cfg.EmailFromName,
	}))
	go emailService.Start(ctx)

	store := openStore(ctx, cfg)

	gymRepo := gym.NewRepository(database)
	otpRepo := otp.NewRepository(database)
	planRepo := plan.NewRepository(database)
	memberRepo := member.NewRepository(database)

	statsCache := dashboard.NewRedisCache(rdb, cfg.Now)
	planService := plan.NewService(planRepo)
	memberService := member.NewService(
		memberRepo,
		planService,
		store,
		statsCache,
		gym.NewNotifier(gymRepo, emailService),
		cfg.Now,
	)
	gymService := gym.NewService(gym.Deps{
		Repo:      gymRepo,
		OTPs:      otpRepo,
		Store:     store,
		Mailer:    emailService,
		JWTSecret: cfg.JWTSecret,
		Clock:     cfg.Now,
	})
	dashboardService := dashboard.NewService(memberRepo, statsCache, cfg.Now)

	digest := reminder.NewDigest(gymRepo, memberRepo, emailService, cfg.Now)
	scheduler, err := reminder.NewScheduler(reminder.Tasks{
		Digest:     digest,
		OTPs:       otpRepo,
		EmailQueue: emailService,
	}, cfg.ReminderCron, cfg.Location)
	if err != nil {
		logger.Fatalf("Failed to create reminder scheduler: %v", err)
	}
	scheduler.Start()

	srv := server.New(server.Options{
		Port:           cfg.Port,
		JWTSecret:      cfg.JWTSecret,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		Checks: map[string]server.Pinger{
			"postgres": server.PingFunc(database.PingContext),
			"redis":    server.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() }),
		},
	}, server.Handlers{
		Gym:       gym.NewHandler(gymService),
		Plan:      plan.NewHandler(planService),
		Member:    member.NewHandler(memberService),
		Dashboard: dashboard.NewHandler(dashboardService),
	})

	serverErrChan := make(chan error, 1)
	go func() {
		logger.Infof("Server starting on port %s", cfg.Port)
		if err := srv.Start(); err != nil {
			serverErrChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Infof("Received signal: %v", sig)
	case err := <-serverErrChan:
		logger.Errorf("Server error: %v", err)
	}

	logger.Info("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Error during server shutdown: %v", err)
	}
	if err := scheduler.Stop(); err != nil {
		logger.Errorf("Error stopping scheduler: %v", err)
	}
	cancel()

	logger.Info("Server stopped")
}

// openStore connects to object storage. Uploads are disabled when it is
// unreachable; everything else keeps working.
func openStore(ctx context.Context, cfg *config.Config) storage.Store {
	store, err := storage.NewMinio(storage.Options{
		Endpoint:  cfg.MinioEndpoint,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		Bucket:    cfg.MinioBucket,
		UseSSL:    cfg.MinioUseSSL,
		PublicURL: cfg.MinioPublicURL,
	})
	if err != nil {
		logger.Warn("Object storage disabled", "error", err)
		return nil
	}

	ensureCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := store.EnsureBucket(ensureCtx); err != nil {
		logger.Warn("Object storage disabled", "bucket", cfg.MinioBucket, "error", err)
		return nil
	}
	return store
}
