package password

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/vocaid/identity/internal/http/middleware"
	"github.com/vocaid/identity/internal/httputil"
	"github.com/vocaid/identity/internal/notification"
	"github.com/vocaid/identity/pkg/auth"
	"github.com/vocaid/identity/pkg/domain"
	"github.com/vocaid/identity/pkg/onboarding"
)

// Alias for cleaner code
type tokenPair = domain.TokenPair

// Handler handles password authentication endpoints.
type Handler struct {
	logger              *slog.Logger
	passwordService     *auth.PasswordService
	sessionService      *auth.SessionService
	verificationService *auth.VerificationService
	emailService        *notification.EmailService
	onboardingService   *auth.OnboardingService
	cookieConfig        httputil.CookieConfig
	appBaseURL          string
}

// NewHandler creates a new password handler.
func NewHandler(
	logger *slog.Logger,
	passwordService *auth.PasswordService,
	sessionService *auth.SessionService,
	verificationService *auth.VerificationService,
	emailService *notification.EmailService,
	onboardingService *auth.OnboardingService,
	appBaseURL string,
	cookieConfig httputil.CookieConfig,
) *Handler {
	return &Handler{
		logger:              logger,
		passwordService:     passwordService,
		sessionService:      sessionService,
		verificationService: verificationService,
		emailService:        emailService,
		onboardingService:   onboardingService,
		cookieConfig:        cookieConfig,
		appBaseURL:          appBaseURL,
	}
}

// RegisterRequest represents a registration request.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// LoginRequest represents a login request.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse represents a token response. NextRoute tells the SPA which
// onboarding step to show next; it is empty once onboarding is complete.
type TokenResponse struct {
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	NextRoute    string `json:"next_route,omitempty"`
}

// Register handles user registration.
// POST /v1/auth/password/register
//
// For web clients: Sets HttpOnly cookies, returns minimal response.
// For mobile clients (X-Client-Type: mobile): Returns tokens in response body.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Email == "" || req.Password == "" {
		httputil.Error(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := h.passwordService.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUserAlreadyExists):
			httputil.Error(w, http.StatusConflict, "user already exists")
		case errors.Is(err, domain.ErrInvalidEmail):
			httputil.Error(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrWeakPassword):
			httputil.Error(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("registration failed", "error", err)
			httputil.Error(w, http.StatusInternalServerError, "registration failed")
		}
		return
	}

	opts := auth.IssueSessionOpts{
		IP:        r.RemoteAddr,
		UserAgent: r.UserAgent(),
		Request:   r,
	}
	tokens, err := h.sessionService.IssueSession(r.Context(), user.ID, opts)
	if err != nil {
		h.logger.Error("failed to issue session", "error", err, "user_id", user.ID)
		httputil.Error(w, http.StatusInternalServerError, "failed to issue session")
		return
	}

	h.writeTokenResponse(w, r, tokens, http.StatusCreated, h.nextRoute(r.Context(), user.ID))
}

// Login handles user login.
// POST /v1/auth/password/login
//
// For web clients: Sets HttpOnly cookies, returns minimal response.
// For mobile clients (X-Client-Type: mobile): Returns tokens in response body.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Email == "" || req.Password == "" {
		httputil.Error(w, http.StatusBadRequest, "email and password are required")
		return
	}

	userID, err := h.passwordService.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidCredentials):
			httputil.Error(w, http.StatusUnauthorized, "invalid email or password")
		case errors.Is(err, domain.ErrAccountLocked):
			httputil.Error(w, http.StatusForbidden, "account temporarily locked due to too many failed login attempts. Please try again in 15 minutes.")
		default:
			h.logger.Error("authentication failed", "error", err)
			httputil.Error(w, http.StatusInternalServerError, "authentication failed")
		}
		return
	}

	opts := auth.IssueSessionOpts{
		IP:        r.RemoteAddr,
		UserAgent: r.UserAgent(),
		Request:   r,
	}
	tokens, err := h.sessionService.IssueSession(r.Context(), userID, opts)
	if err != nil {
		h.logger.Error("failed to issue session", "error", err, "user_id", userID)
		httputil.Error(w, http.StatusInternalServerError, "failed to issue session")
		return
	}

	h.writeTokenResponse(w, r, tokens, http.StatusOK, h.nextRoute(r.Context(), userID))
}

// SetPasswordRequest represents an add-password request.
type SetPasswordRequest struct {
	Password string `json:"password"`
}

// SetPasswordResponse carries the route of the next onboarding step.
type SetPasswordResponse struct {
	Message   string `json:"message"`
	NextRoute string `json:"next_route"`
}

// SetPassword adds a password to an account that has none. Used by the
// onboarding password step for accounts created through a federated
// provider. Requires authentication.
// POST /v1/onboarding/password
func (h *Handler) SetPassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req SetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Password == "" {
		httputil.Error(w, http.StatusBadRequest, "password is required")
		return
	}

	if err := h.passwordService.SetPassword(r.Context(), userID, req.Password); err != nil {
		switch {
		case errors.Is(err, domain.ErrPasswordAlreadySet):
			httputil.Error(w, http.StatusConflict, "a password is already set for this account")
		case errors.Is(err, domain.ErrWeakPassword):
			httputil.Error(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("failed to set password", "error", err, "user_id", userID)
			httputil.Error(w, http.StatusInternalServerError, "failed to set password")
		}
		return
	}

	if h.emailService != nil {
		if user, err := h.passwordService.GetUserByID(r.Context(), userID); err == nil {
			if err := h.emailService.SendPasswordChangedEmail(user.Email); err != nil {
				h.logger.Error("failed to send password changed email", "error", err, "user_id", userID)
			}
		}
	}

	next, err := h.onboardingService.NextAfter(r.Context(), userID, onboarding.StepPassword)
	if err != nil {
		h.logger.Error("failed to resolve next step", "error", err, "user_id", userID)
		next = ""
	}

	httputil.JSON(w, http.StatusOK, SetPasswordResponse{
		Message:   "password set",
		NextRoute: next,
	})
}

// nextRoute resolves the onboarding route to include in auth responses.
// Resolution failures fall back to empty; the SPA then asks /v1/onboarding/next.
func (h *Handler) nextRoute(ctx context.Context, userID uuid.UUID) string {
	decision, err := h.onboardingService.Decide(ctx, userID)
	if err != nil {
		h.logger.Error("failed to resolve onboarding route", "error", err, "user_id", userID)
		return ""
	}
	return decision.NextRoute
}

// writeTokenResponse writes tokens as cookies (web) or JSON (mobile).
func (h *Handler) writeTokenResponse(w http.ResponseWriter, r *http.Request, tokens *tokenPair, status int, nextRoute string) {
	if httputil.IsMobileClient(r) {
		// Mobile: return tokens in response body
		httputil.JSON(w, status, TokenResponse{
			AccessToken:  tokens.AccessToken,
			RefreshToken: tokens.RefreshToken,
			TokenType:    tokens.TokenType,
			ExpiresIn:    tokens.ExpiresIn,
			NextRoute:    nextRoute,
		})
		return
	}

	// Web: set HttpOnly cookies
	httputil.SetAuthCookies(
		w,
		tokens.AccessToken,
		tokens.RefreshToken,
		h.sessionService.AccessTokenTTL(),
		h.sessionService.RefreshTokenTTL(),
		h.cookieConfig,
	)

	httputil.JSON(w, status, TokenResponse{
		TokenType: tokens.TokenType,
		ExpiresIn: tokens.ExpiresIn,
		NextRoute: nextRoute,
	})
}

// PasswordResetRequestRequest represents a password reset request.
type PasswordResetRequestRequest struct {
	Email string `json:"email"`
}

// PasswordResetRequest represents a password reset.
type PasswordResetRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// MessageResponse represents a simple message response.
type MessageResponse struct {
	Message string `json:"message"`
}

// RequestPasswordReset handles password reset requests.
// POST /v1/auth/password/reset-request
func (h *Handler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req PasswordResetRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Email == "" {
		httputil.Error(w, http.StatusBadRequest, "email is required")
		return
	}

	if h.emailService == nil {
		httputil.Error(w, http.StatusServiceUnavailable, "email service not configured")
		return
	}

	// Look up user by email (don't reveal if user exists)
	user, err := h.passwordService.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		// Don't reveal whether user exists - always return success
		if !errors.Is(err, domain.ErrUserNotFound) {
			h.logger.Error("failed to get user by email", "error", err)
		}
		httputil.JSON(w, http.StatusOK, MessageResponse{
			Message: "If an account exists with that email, a password reset link has been sent",
		})
		return
	}

	opts := auth.CreateVerificationTokenOpts{
		IP:        r.RemoteAddr,
		UserAgent: r.UserAgent(),
	}
	token, err := h.verificationService.CreatePasswordResetToken(r.Context(), user.ID, opts)
	if err != nil {
		h.logger.Error("failed to create password reset token", "error", err, "user_id", user.ID)
		httputil.Error(w, http.StatusInternalServerError, "failed to create reset token")
		return
	}

	resetURL := fmt.Sprintf("%s/reset-password/confirm?token=%s", h.appBaseURL, token)
	if err := h.emailService.SendPasswordResetEmail(user.Email, resetURL); err != nil {
		h.logger.Error("failed to send password reset email", "error", err, "user_id", user.ID)
		httputil.Error(w, http.StatusInternalServerError, "failed to send reset email")
		return
	}

	h.logger.Info("password reset email sent", "user_id", user.ID)

	httputil.JSON(w, http.StatusOK, MessageResponse{
		Message: "If an account exists with that email, a password reset link has been sent",
	})
}

// ResetPassword handles password resets.
// POST /v1/auth/password/reset
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req PasswordResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Token == "" {
		httputil.Error(w, http.StatusBadRequest, "token is required")
		return
	}

	if req.NewPassword == "" {
		httputil.Error(w, http.StatusBadRequest, "new password is required")
		return
	}

	userID, err := h.verificationService.ValidatePasswordResetToken(r.Context(), req.Token)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrVerificationTokenInvalid):
			httputil.Error(w, http.StatusBadRequest, "invalid reset token")
		case errors.Is(err, domain.ErrVerificationTokenExpired):
			httputil.Error(w, http.StatusBadRequest, "reset token expired")
		case errors.Is(err, domain.ErrVerificationTokenConsumed):
			httputil.Error(w, http.StatusBadRequest, "reset token already used")
		default:
			h.logger.Error("failed to validate password reset token", "error", err)
			httputil.Error(w, http.StatusInternalServerError, "validation failed")
		}
		return
	}

	// ChangePassword also covers accounts that have no password yet, so
	// reset links work for federated-only accounts.
	if err := h.passwordService.ChangePassword(r.Context(), userID, req.NewPassword); err != nil {
		if errors.Is(err, domain.ErrWeakPassword) {
			httputil.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to change password", "error", err, "user_id", userID)
		httputil.Error(w, http.StatusInternalServerError, "failed to change password")
		return
	}

	// Consume token
	if err := h.verificationService.ConsumePasswordResetToken(r.Context(), req.Token); err != nil {
		h.logger.Error("failed to consume password reset token", "error", err, "user_id", userID)
		// Don't fail the request since password was already changed
	}

	// Revoke all existing sessions for security
	if err := h.sessionService.RevokeAllSessions(r.Context(), userID); err != nil {
		h.logger.Error("failed to revoke sessions", "error", err, "user_id", userID)
		// Don't fail the request
	}

	if h.emailService != nil {
		if user, err := h.passwordService.GetUserByID(r.Context(), userID); err == nil {
			if err := h.emailService.SendPasswordChangedEmail(user.Email); err != nil {
				h.logger.Error("failed to send password changed email", "error", err, "user_id", userID)
			}
		}
	}

	h.logger.Info("password reset successful", "user_id", userID)

	httputil.JSON(w, http.StatusOK, MessageResponse{
		Message: "Password reset successful",
	})
}
