package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/vocaid/identity/internal/cache"
	"github.com/vocaid/identity/internal/config"
	httpserver "github.com/vocaid/identity/internal/http"
	"github.com/vocaid/identity/internal/notification"
	"github.com/vocaid/identity/pkg/auth"
	"github.com/vocaid/identity/pkg/domain"
	"github.com/vocaid/identity/pkg/repository"
	"github.com/vocaid/identity/pkg/sms"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Connect to database
	db, err := repository.NewDB(repository.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	logger.Info("connected to database")

	// Initialize repositories
	usersRepo := repository.NewUsersRepository(db)
	credsRepo := repository.NewCredentialsRepository(db)
	identitiesRepo := repository.NewIdentitiesRepository(db)
	sessionsRepo := repository.NewSessionsRepository(db)
	verificationTokensRepo := repository.NewVerificationTokensRepository(db)
	consentsRepo := repository.NewConsentsRepository(db)

	// Initialize services
	passwordPolicy := auth.NewPasswordPolicy(cfg.PasswordPolicy)
	passwordService := auth.NewPasswordService(
		db,
		usersRepo,
		credsRepo,
		passwordPolicy,
		cfg.Validation.StrictEmailValidation,
		cfg.Validation.BlockDisposableEmail,
	)
	sessionService := auth.NewSessionService(auth.SessionConfig{
		AccessTokenTTL:     cfg.AccessTokenTTL,
		RefreshTokenTTL:    cfg.RefreshTokenTTL,
		JWTSecret:          []byte(cfg.JWTSecret),
		Issuer:             cfg.JWTIssuer,
		FingerprintEnabled: cfg.SessionSecurity.FingerprintEnabled,
		DetectReuseEnabled: cfg.SessionSecurity.DetectReuse,
	}, sessionsRepo, usersRepo)

	verificationService := auth.NewVerificationService(auth.VerificationConfig{
		PasswordResetTTL: cfg.PasswordResetTTL,
	}, db, verificationTokensRepo)

	consentService := auth.NewConsentService(db, consentsRepo, []domain.ConsentRequirement{
		{Kind: domain.ConsentTerms, Version: cfg.TermsVersion},
		{Kind: domain.ConsentPrivacy, Version: cfg.PrivacyVersion},
	})

	onboardingService := auth.NewOnboardingService(usersRepo, credsRepo, consentService)

	// Initialize email service if configured
	var emailService *notification.EmailService
	if cfg.HasSMTP() {
		emailService = notification.NewEmailService(notification.EmailConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			FromName: cfg.SMTPFromName,
		})
		logger.Info("email service enabled")
	}

	// Phone verification needs Redis for challenge state. The SMS sender is
	// Twilio when configured, otherwise the log client so development codes
	// are readable off the server log.
	var phoneService *auth.PhoneService
	if cfg.HasRedis() {
		rdb, err := cache.NewClient(cache.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer rdb.Close()

		var sender sms.Client
		if cfg.HasTwilio() {
			sender = sms.NewTwilioClient(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber)
			logger.Info("twilio sms enabled")
		} else {
			sender = sms.NewLogClient(logger)
			logger.Warn("no twilio credentials, sms codes are logged only")
		}

		phoneService = auth.NewPhoneService(auth.PhoneConfig{
			CodeTTL:        cfg.PhoneCodeTTL,
			MaxSendsPerDay: cfg.PhoneMaxSendsPerDay,
			MaxAttempts:    cfg.PhoneMaxAttempts,
		}, usersRepo, cache.NewPhoneCodeStore(rdb), sms.NewBreakerClient(sender, logger), logger)
		logger.Info("phone verification enabled")
	}

	// Create router
	router := httpserver.NewRouter(httpserver.RouterConfig{
		Logger:              logger,
		PasswordService:     passwordService,
		SessionService:      sessionService,
		VerificationService: verificationService,
		OnboardingService:   onboardingService,
		ConsentService:      consentService,
		PhoneService:        phoneService,
		EmailService:        emailService,
		UsersRepo:           usersRepo,
		IdentitiesRepo:      identitiesRepo,
		AppBaseURL:          cfg.AppBaseURL,
		RateLimitConfig:     cfg.RateLimit,
		SecurityHeaders:     cfg.SecurityHeaders,
		Validation:          cfg.Validation,
		CookieSecure:        cfg.CookieSecure,
	})

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.ServerAddr, cfg.ServerPort)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting server", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("server stopped")
}
