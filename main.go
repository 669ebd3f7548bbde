package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/khabaroff/staff-cards/src/config"
	"github.com/khabaroff/staff-cards/src/database"
	"github.com/khabaroff/staff-cards/src/handlers"
	"github.com/khabaroff/staff-cards/src/identity"
	"github.com/khabaroff/staff-cards/src/lockout"
	"github.com/khabaroff/staff-cards/src/logging"
	"github.com/khabaroff/staff-cards/src/middleware"
	"github.com/khabaroff/staff-cards/src/repositories/postgres"
	"github.com/khabaroff/staff-cards/src/services"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(1)
	}

	// Initialize structured logging
	logging.Setup(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	log.Info().
		Int("port", cfg.Port).
		Str("log_level", cfg.LogLevel).
		Msg("starting server")

	// Initialize database
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	db, err := database.New(ctx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer db.Close()

	log.Info().Msg("database connected")

	// Session store: Redis when configured, in-process otherwise
	var sessions identity.SessionStore
	var sessionHealth handlers.HealthChecker
	if cfg.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		redisStore, err := identity.NewRedisSessionStore(ctx, cfg.RedisURL)
		cancel()
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisStore.Close()
		sessions = redisStore
		sessionHealth = redisStore
		log.Info().Msg("redis session store connected")
	} else {
		sessions = identity.NewMemorySessionStore()
		log.Warn().Msg("REDIS_URL not set - sessions are kept in memory")
	}

	// Email delivery
	var mailer services.Mailer = services.LogMailer{}
	if cfg.MailgunAPIKey != "" && cfg.MailgunDomain != "" {
		mailer = services.NewEmailService(
			cfg.MailgunDomain,
			cfg.MailgunAPIKey,
			cfg.MailgunFromEmail,
			cfg.MailgunFromName,
		)
		log.Info().Str("domain", cfg.MailgunDomain).Msg("Mailgun email service initialized")
	} else {
		log.Warn().Msg("Mailgun credentials not configured - invite and reset links are only logged")
	}

	// Initialize Analytics Service
	analyticsService, err := services.NewAnalyticsService(services.AnalyticsConfig{
		PostHogAPIKey: cfg.PostHogAPIKey,
		PostHogHost:   cfg.PostHogHost,
		Enabled:       cfg.PostHogEnabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize analytics service")
	}
	defer analyticsService.Close()

	if cfg.PostHogEnabled {
		log.Info().Str("host", cfg.PostHogHost).Msg("PostHog analytics enabled")
	} else {
		log.Info().Msg("PostHog analytics disabled")
	}

	// Repositories
	pool := db.GetPool()
	adminRepo := postgres.NewAdminUserRepository(pool)
	employeeRepo := postgres.NewEmployeeRepository(pool)
	linkRepo := postgres.NewLinkRepository(pool)

	idp := identity.NewLocalProvider(postgres.NewIdentityRepository(pool), sessions, mailer, identity.Config{
		JWTSecret:   cfg.JWTSecret,
		SessionTTL:  cfg.SessionTTL,
		IdleTimeout: cfg.SessionIdleTimeout,
		TokenTTL:    cfg.IdentityTokenTTL,
		BaseURL:     cfg.BaseURL,
	})

	// Initialize services
	loginService := services.NewLoginService(adminRepo, idp, lockout.Policy{
		MaxAttempts: cfg.LockoutMaxAttempts,
		Window:      cfg.LockoutWindow,
	}, analyticsService, services.LoginOptions{
		DeferBlockedDisclosure: cfg.DeferBlockedDisclosure,
		SupportEmail:           cfg.SupportEmail,
	})
	adminService := services.NewAdminUserService(adminRepo, idp, analyticsService, services.AdminUserOptions{
		ActivationSendsReset:     cfg.ActivationSendsReset,
		BulkActivationSendsReset: cfg.BulkActivationSendsReset,
	})
	employeeService := services.NewEmployeeService(employeeRepo, linkRepo)
	importService := services.NewImportService(employeeRepo)
	cardService := services.NewCardService(employeeRepo, cfg.BaseURL, cfg.CompanyName)
	cleanupService := services.NewCleanupService(idp, cfg.EnableAutoCleanup)

	ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
	s3Client, err := services.NewS3Client(ctx, cfg.S3Region, cfg.S3Endpoint)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize photo storage")
	}
	photoService := services.NewPhotoService(s3Client, employeeRepo, services.PhotoConfig{
		Bucket:        cfg.S3Bucket,
		Region:        cfg.S3Region,
		PublicBaseURL: cfg.S3PublicBaseURL,
	})

	// Auto-seed the Overwatch account on first run (if OVERWATCH_EMAIL and OVERWATCH_PASSWORD are set)
	if cfg.OverwatchEmail != "" && cfg.OverwatchPassword != "" {
		created, err := adminService.SeedOverwatch(context.Background(), idp, cfg.OverwatchEmail, cfg.OverwatchPassword)
		if err != nil {
			log.Error().Err(err).Msg("failed to create initial overwatch account")
		} else if created {
			log.Info().Str("email", cfg.OverwatchEmail).Msg("initial overwatch account created")
		}
	}

	// Start background services
	go cleanupService.Start(context.Background())

	loginLimiter := middleware.NewLoginRateLimiter(cfg.LoginRequestsPerMinute)

	// Create Gin router
	router := gin.New()

	// Add middleware
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(gin.Recovery())
	router.Use(cors.New(corsConfig(cfg.AllowedOrigins)))

	// Setup routes
	routes := &handlers.Routes{
		Health:     handlers.NewHealthHandler(db, sessionHealth),
		Auth:       handlers.NewAuthHandler(loginService, idp, cfg.SupportEmail, strings.HasPrefix(cfg.BaseURL, "https://")),
		AdminUsers: handlers.NewAdminUserHandler(adminService, cfg.SupportEmail),
		Employees:  handlers.NewEmployeeHandler(employeeService, cfg.SupportEmail),
		Files:      handlers.NewFileHandler(importService, photoService, cfg.SupportEmail),
		Public:     handlers.NewPublicHandler(employeeService, cardService),
		Session:    middleware.SessionAuthMiddleware(idp, adminService, cfg.SupportEmail),
		LoginLimit: loginLimiter.Handler(),
	}
	routes.Register(router)

	// Create HTTP server with timeouts (G112: protect from Slowloris attack)
	srv := &http.Server{
		Addr:              ":" + formatPort(cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Int("port", cfg.Port).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	// Stop background workers
	cleanupService.Stop()
	loginLimiter.Stop()

	// Graceful shutdown with timeout
	ctx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}

	log.Info().Msg("server shut down successfully")
}

// corsConfig allows the comma-separated ALLOWED_ORIGINS list
func corsConfig(allowed string) cors.Config {
	origins := make(map[string]bool)
	for _, o := range strings.Split(allowed, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins[o] = true
		}
	}
	return cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return origins[origin]
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
}

func formatPort(port int) string {
	return fmt.Sprintf("%d", port)
}
