// Package gate lets other Vocaid services enforce the same onboarding
// step ordering as the identity service without re-implementing it.
//
// Setup:
//
//  1. Run migrations from migrations/ folder using your preferred tool
//  2. Create a Gate and mount its router, or use the middleware alone
//
// Basic usage:
//
//	db, _ := sql.Open("postgres", "postgres://localhost/vocaid?sslmode=disable")
//
//	g, err := gate.New(gate.Config{
//	    DB:        db,
//	    JWTSecret: "your-secret-key-at-least-32-chars",
//	})
//	if err != nil {
//	    log.Fatal(err) // Will fail if migrations haven't been run
//	}
//
//	r := chi.NewRouter()
//	r.Mount("/v1", g.Router())
//	http.ListenAndServe(":8080", r)
//
// Protecting another service's routes:
//
//	r.Group(func(r chi.Router) {
//	    r.Use(g.AuthMiddleware())
//	    r.Use(g.OnboardingGate())
//	    r.Get("/interviews", listInterviews)
//	})
package gate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/vocaid/identity/internal/cache"
	"github.com/vocaid/identity/internal/http/features/consent"
	"github.com/vocaid/identity/internal/http/features/me"
	onboardingfeature "github.com/vocaid/identity/internal/http/features/onboarding"
	"github.com/vocaid/identity/internal/http/features/password"
	"github.com/vocaid/identity/internal/http/features/phone"
	"github.com/vocaid/identity/internal/http/features/session"
	"github.com/vocaid/identity/internal/http/middleware"
	"github.com/vocaid/identity/internal/httputil"
	"github.com/vocaid/identity/pkg/auth"
	"github.com/vocaid/identity/pkg/domain"
	"github.com/vocaid/identity/pkg/repository"
	"github.com/vocaid/identity/pkg/sms"
)

// Config holds the configuration for the gate.
type Config struct {
	// DB is the database connection (required).
	DB *sql.DB

	// JWTSecret is the secret key for signing JWT tokens (required, min 32 chars).
	JWTSecret string

	// JWTIssuer is the issuer claim in JWT tokens (default: "vocaid-identity").
	JWTIssuer string

	// AccessTokenTTL is the lifetime of access tokens (default: 15 minutes).
	AccessTokenTTL time.Duration

	// RefreshTokenTTL is the lifetime of refresh tokens (default: 7 days).
	RefreshTokenTTL time.Duration

	// TermsVersion is the terms-of-service version currently in force
	// (default: "2026-01-15").
	TermsVersion string

	// PrivacyVersion is the privacy-policy version currently in force
	// (default: "2026-01-15").
	PrivacyVersion string

	// Redis enables the phone verification routes (optional).
	Redis *redis.Client

	// SMS delivers phone verification codes (default: log-only client).
	// Only used when Redis is set.
	SMS sms.Client

	// CookieSecure sets the Secure flag on auth cookies (should be true
	// for HTTPS).
	CookieSecure bool

	// RefreshCookiePath scopes the refresh token cookie (default:
	// "/v1/auth"). Match it to wherever Router() is mounted.
	RefreshCookiePath string

	// Logger is the structured logger (default: JSON to stdout).
	Logger *slog.Logger
}

// Gate is an embeddable onboarding enforcement instance.
type Gate struct {
	config            Config
	db                *sql.DB
	usersRepo         *repository.UsersRepository
	credsRepo         *repository.CredentialsRepository
	identitiesRepo    *repository.IdentitiesRepository
	sessionsRepo      *repository.SessionsRepository
	consentsRepo      *repository.ConsentsRepository
	passwordService   *auth.PasswordService
	sessionService    *auth.SessionService
	consentService    *auth.ConsentService
	onboardingService *auth.OnboardingService
	phoneService      *auth.PhoneService
	cookieConfig      httputil.CookieConfig
}

// New creates a new Gate with the given configuration.
// Returns an error if required database tables don't exist.
// Run migrations first - see migrations/ folder for SQL files.
func New(cfg Config) (*Gate, error) {
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	// Validate schema exists
	if err := validateSchema(cfg.DB); err != nil {
		return nil, err
	}

	// Initialize repositories
	usersRepo := repository.NewUsersRepository(cfg.DB)
	credsRepo := repository.NewCredentialsRepository(cfg.DB)
	identitiesRepo := repository.NewIdentitiesRepository(cfg.DB)
	sessionsRepo := repository.NewSessionsRepository(cfg.DB)
	consentsRepo := repository.NewConsentsRepository(cfg.DB)

	// Initialize services
	passwordService := auth.NewPasswordService(cfg.DB, usersRepo, credsRepo, auth.DefaultPasswordPolicy(), true, false)
	sessionService := auth.NewSessionService(auth.SessionConfig{
		AccessTokenTTL:  cfg.AccessTokenTTL,
		RefreshTokenTTL: cfg.RefreshTokenTTL,
		JWTSecret:       []byte(cfg.JWTSecret),
		Issuer:          cfg.JWTIssuer,
	}, sessionsRepo, usersRepo)
	consentService := auth.NewConsentService(cfg.DB, consentsRepo, []domain.ConsentRequirement{
		{Kind: domain.ConsentTerms, Version: cfg.TermsVersion},
		{Kind: domain.ConsentPrivacy, Version: cfg.PrivacyVersion},
	})
	onboardingService := auth.NewOnboardingService(usersRepo, credsRepo, consentService)

	var phoneService *auth.PhoneService
	if cfg.Redis != nil {
		phoneService = auth.NewPhoneService(auth.PhoneConfig{
			CodeTTL:        5 * time.Minute,
			MaxSendsPerDay: 5,
			MaxAttempts:    5,
		}, usersRepo, cache.NewPhoneCodeStore(cfg.Redis), sms.NewBreakerClient(cfg.SMS, cfg.Logger), cfg.Logger)
	}

	cookieConfig := httputil.DefaultCookieConfig()
	cookieConfig.Secure = cfg.CookieSecure
	cookieConfig.RefreshPath = cfg.RefreshCookiePath

	return &Gate{
		config:            cfg,
		db:                cfg.DB,
		usersRepo:         usersRepo,
		credsRepo:         credsRepo,
		identitiesRepo:    identitiesRepo,
		sessionsRepo:      sessionsRepo,
		consentsRepo:      consentsRepo,
		passwordService:   passwordService,
		sessionService:    sessionService,
		consentService:    consentService,
		onboardingService: onboardingService,
		phoneService:      phoneService,
		cookieConfig:      cookieConfig,
	}, nil
}

// Router returns a chi router with the auth, onboarding, consent, and
// profile routes. Mount it on your main router:
//
//	r := chi.NewRouter()
//	r.Mount("/v1", g.Router())
//
// Routes:
//
//	POST /auth/password/register   - Register with email/password
//	POST /auth/password/login      - Login with email/password
//	POST /auth/refresh             - Refresh access token
//	POST /auth/logout              - Logout (revoke session)
//	POST /auth/logout/all          - Logout all sessions (protected)
//	GET  /onboarding/next          - Routing decision (protected)
//	GET  /onboarding/steps         - Step registry with state (protected)
//	GET  /onboarding/progress      - Progress for a step (protected)
//	POST /onboarding/account-type  - Confirm account type (protected)
//	POST /onboarding/password      - Set first password (protected)
//	GET  /consent/requirements     - Required documents and versions
//	GET  /consent/status           - Consent state (protected)
//	POST /consent/accept           - Record acceptances (protected)
//	GET  /consent/history          - Acceptance history (protected)
//	GET  /me, PATCH /me, DELETE /me, GET /me/identities (protected)
//	POST /phone/request-code, POST /phone/verify (protected, if Redis set)
func (g *Gate) Router() chi.Router {
	r := chi.NewRouter()

	requireAuth := middleware.Auth(g.sessionService)

	// Password auth routes. No email service here, so the reset flow is
	// left to the identity service proper.
	passwordHandler := password.NewHandler(
		g.config.Logger,
		g.passwordService,
		g.sessionService,
		nil, // verification service
		nil, // email service
		g.onboardingService,
		"", // app base URL
		g.cookieConfig,
	)
	r.Post("/auth/password/register", passwordHandler.Register)
	r.Post("/auth/password/login", passwordHandler.Login)

	// Session routes
	sessionHandler := session.NewHandler(g.sessionService, g.cookieConfig)
	r.Post("/auth/refresh", sessionHandler.Refresh)
	r.Post("/auth/logout", sessionHandler.Logout)
	r.With(requireAuth).Post("/auth/logout/all", sessionHandler.LogoutAll)

	// Onboarding routes
	onboardingHandler := onboardingfeature.NewHandler(g.config.Logger, g.onboardingService)
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/onboarding/next", onboardingHandler.Next)
		r.Get("/onboarding/steps", onboardingHandler.Steps)
		r.Get("/onboarding/progress", onboardingHandler.Progress)
		r.Post("/onboarding/account-type", onboardingHandler.ConfirmAccountType)
		r.Post("/onboarding/password", passwordHandler.SetPassword)
	})

	// Consent routes
	consentHandler := consent.NewHandler(g.config.Logger, g.consentService, g.onboardingService)
	r.Get("/consent/requirements", consentHandler.Requirements)
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/consent/status", consentHandler.Status)
		r.Post("/consent/accept", consentHandler.Accept)
		r.Get("/consent/history", consentHandler.History)
	})

	// Profile routes
	meHandler := me.NewHandler(
		g.config.Logger,
		g.usersRepo,
		g.identitiesRepo,
		g.sessionService,
		g.onboardingService,
		g.cookieConfig,
	)
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/me", meHandler.GetMe)
		r.Get("/me/identities", meHandler.ListIdentities)
		r.Patch("/me", meHandler.UpdateMe)
		r.Delete("/me", meHandler.DeleteMe)
	})

	// Phone verification routes (if Redis configured)
	if g.phoneService != nil {
		phoneHandler := phone.NewHandler(g.config.Logger, g.phoneService, g.onboardingService)
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/phone/request-code", phoneHandler.RequestCode)
			r.Post("/phone/verify", phoneHandler.Verify)
		})
	}

	return r
}

// AuthMiddleware returns middleware that validates JWT tokens.
// Use it to protect your own routes:
//
//	r.Group(func(r chi.Router) {
//	    r.Use(g.AuthMiddleware())
//	    r.Get("/protected", handler)
//	})
func (g *Gate) AuthMiddleware() func(http.Handler) http.Handler {
	return middleware.Auth(g.sessionService)
}

// OnboardingGate returns middleware that blocks users who have not
// finished onboarding. Must run after AuthMiddleware. The 403 body
// carries the route of the first incomplete step.
func (g *Gate) OnboardingGate() func(http.Handler) http.Handler {
	return middleware.RequireOnboarded(g.onboardingService)
}

// Resolver returns the onboarding service for direct decisions:
//
//	decision, err := g.Resolver().Decide(ctx, userID)
func (g *Gate) Resolver() *auth.OnboardingService {
	return g.onboardingService
}

// SessionService returns the session service for advanced usage.
func (g *Gate) SessionService() *auth.SessionService {
	return g.sessionService
}

// GetUserID extracts the user ID from a context.
// Use after AuthMiddleware:
//
//	userID, ok := gate.GetUserID(r.Context())
func GetUserID(ctx context.Context) (uuid.UUID, bool) {
	return middleware.GetUserID(ctx)
}

// User represents basic user info returned by GetUser.
type User struct {
	ID            string
	Email         string
	Name          *string
	AccountType   *string
	PhoneVerified bool
}

// GetUser retrieves the current user from the database.
// Use after AuthMiddleware:
//
//	user, err := g.GetUser(r)
func (g *Gate) GetUser(r *http.Request) (*User, error) {
	id, ok := middleware.GetUserID(r.Context())
	if !ok {
		return nil, errors.New("user not authenticated")
	}

	u, err := g.usersRepo.GetByID(r.Context(), id)
	if err != nil {
		return nil, err
	}

	return &User{
		ID:            u.ID.String(),
		Email:         u.Email,
		Name:          u.Name,
		AccountType:   u.AccountType,
		PhoneVerified: u.PhoneVerified,
	}, nil
}

// HealthHandler returns a simple health check handler.
func (g *Gate) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func validateConfig(cfg *Config) error {
	if cfg.DB == nil {
		return errors.New("gate: DB is required")
	}
	if cfg.JWTSecret == "" {
		return errors.New("gate: JWTSecret is required")
	}
	if len(cfg.JWTSecret) < 32 {
		return errors.New("gate: JWTSecret must be at least 32 characters")
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.JWTIssuer == "" {
		cfg.JWTIssuer = "vocaid-identity"
	}
	if cfg.AccessTokenTTL == 0 {
		cfg.AccessTokenTTL = 15 * time.Minute
	}
	if cfg.RefreshTokenTTL == 0 {
		cfg.RefreshTokenTTL = 7 * 24 * time.Hour
	}
	if cfg.TermsVersion == "" {
		cfg.TermsVersion = "2026-01-15"
	}
	if cfg.PrivacyVersion == "" {
		cfg.PrivacyVersion = "2026-01-15"
	}
	if cfg.RefreshCookiePath == "" {
		cfg.RefreshCookiePath = "/v1/auth"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	if cfg.SMS == nil {
		cfg.SMS = sms.NewLogClient(cfg.Logger)
	}
}

// validateSchema checks that required database tables exist.
func validateSchema(db *sql.DB) error {
	requiredTables := []string{"users", "user_password", "user_identities", "sessions", "consent_records"}

	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public' AND table_name = $1
	`

	for _, table := range requiredTables {
		var name string
		err := db.QueryRow(query, table).Scan(&name)
		if err == sql.ErrNoRows {
			return fmt.Errorf("gate: missing table '%s' - run migrations first (see migrations/ folder)", table)
		}
		if err != nil {
			return fmt.Errorf("gate: failed to check schema: %w", err)
		}
	}

	return nil
}
