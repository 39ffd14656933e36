package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vocaid/identity/internal/config"
	"github.com/vocaid/identity/internal/http/features/consent"
	"github.com/vocaid/identity/internal/http/features/me"
	"github.com/vocaid/identity/internal/http/features/onboarding"
	"github.com/vocaid/identity/internal/http/features/password"
	"github.com/vocaid/identity/internal/http/features/phone"
	"github.com/vocaid/identity/internal/http/features/postlogin"
	"github.com/vocaid/identity/internal/http/features/session"
	"github.com/vocaid/identity/internal/http/middleware"
	"github.com/vocaid/identity/internal/httputil"
	"github.com/vocaid/identity/internal/notification"
	"github.com/vocaid/identity/pkg/auth"
	"github.com/vocaid/identity/pkg/repository"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Logger              *slog.Logger
	PasswordService     *auth.PasswordService
	SessionService      *auth.SessionService
	VerificationService *auth.VerificationService
	OnboardingService   *auth.OnboardingService
	ConsentService      *auth.ConsentService
	PhoneService        *auth.PhoneService // nil disables the phone routes
	EmailService        *notification.EmailService
	UsersRepo           *repository.UsersRepository
	IdentitiesRepo      *repository.IdentitiesRepository
	AppBaseURL          string
	RateLimitConfig     config.RateLimitConfig
	SecurityHeaders     config.SecurityHeadersConfig
	Validation          config.ValidationConfig
	CookieSecure        bool // Whether to use Secure flag on cookies (should be true for HTTPS)
}

// NewRouter creates a new HTTP router with all routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply global middleware
	r.Use(middleware.Recover(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.SecurityHeaders(cfg.SecurityHeaders))
	r.Use(middleware.RequestSizeLimit(cfg.Validation.MaxRequestBodySize))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Create rate limiters for different endpoint types
	rateLimiters := middleware.CreateRateLimiters(cfg.RateLimitConfig, cfg.Logger)

	cookieConfig := httputil.DefaultCookieConfig()
	cookieConfig.Secure = cfg.CookieSecure

	requireAuth := middleware.Auth(cfg.SessionService)

	// Register password authentication routes
	passwordHandler := password.NewHandler(
		cfg.Logger,
		cfg.PasswordService,
		cfg.SessionService,
		cfg.VerificationService,
		cfg.EmailService,
		cfg.OnboardingService,
		cfg.AppBaseURL,
		cookieConfig,
	)
	r.Group(func(r chi.Router) {
		r.Use(rateLimiters["auth"])
		r.Post("/v1/auth/password/register", passwordHandler.Register)
		r.Post("/v1/auth/password/login", passwordHandler.Login)
	})
	r.Group(func(r chi.Router) {
		r.Use(rateLimiters["reset"])
		r.Post("/v1/auth/password/reset-request", passwordHandler.RequestPasswordReset)
		r.Post("/v1/auth/password/reset", passwordHandler.ResetPassword)
	})

	// Register session routes
	sessionHandler := session.NewHandler(cfg.SessionService, cookieConfig)
	r.Group(func(r chi.Router) {
		r.Use(rateLimiters["refresh"])
		r.Post("/v1/auth/refresh", sessionHandler.Refresh)
	})
	r.Post("/v1/auth/logout", sessionHandler.Logout)
	r.With(requireAuth).Post("/v1/auth/logout/all", sessionHandler.LogoutAll)

	// Register onboarding routes. The password step endpoint lives here so
	// the step-completion operations share one namespace.
	onboardingHandler := onboarding.NewHandler(cfg.Logger, cfg.OnboardingService)
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Use(rateLimiters["profile"])
		r.Get("/v1/onboarding/next", onboardingHandler.Next)
		r.Get("/v1/onboarding/steps", onboardingHandler.Steps)
		r.Get("/v1/onboarding/progress", onboardingHandler.Progress)
		r.Post("/v1/onboarding/account-type", onboardingHandler.ConfirmAccountType)
		r.Post("/v1/onboarding/password", passwordHandler.SetPassword)
	})

	// Register consent routes
	consentHandler := consent.NewHandler(cfg.Logger, cfg.ConsentService, cfg.OnboardingService)
	r.Get("/v1/consent/requirements", consentHandler.Requirements)
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Use(rateLimiters["profile"])
		r.Get("/v1/consent/status", consentHandler.Status)
		r.Post("/v1/consent/accept", consentHandler.Accept)
		r.Get("/v1/consent/history", consentHandler.History)
	})

	// Phone verification routes (if Redis and an SMS sender are configured)
	if cfg.PhoneService != nil {
		phoneHandler := phone.NewHandler(cfg.Logger, cfg.PhoneService, cfg.OnboardingService)
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Use(rateLimiters["phone"])
			r.Post("/v1/phone/request-code", phoneHandler.RequestCode)
			r.Post("/v1/phone/verify", phoneHandler.Verify)
		})
	}

	// Register user profile routes
	meHandler := me.NewHandler(
		cfg.Logger,
		cfg.UsersRepo,
		cfg.IdentitiesRepo,
		cfg.SessionService,
		cfg.OnboardingService,
		cookieConfig,
	)
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Use(rateLimiters["profile"])
		r.Get("/v1/me", meHandler.GetMe)
		r.Get("/v1/me/identities", meHandler.ListIdentities)
		r.Patch("/v1/me", meHandler.UpdateMe)
		r.Delete("/v1/me", meHandler.DeleteMe)
	})

	// Browser landing after a sign-in flow. OptionalAuth, not Auth: a
	// signed-out visitor is redirected to sign-in rather than handed 401
	// JSON.
	postLoginHandler := postlogin.NewHandler(cfg.Logger, cfg.OnboardingService, cfg.AppBaseURL)
	r.With(middleware.OptionalAuth(cfg.SessionService)).Get("/auth/post-login", postLoginHandler.Redirect)

	return r
}
