package me

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/vocaid/identity/internal/http/middleware"
	"github.com/vocaid/identity/internal/httputil"
	"github.com/vocaid/identity/pkg/auth"
	"github.com/vocaid/identity/pkg/repository"
)

// Handler handles user profile endpoints.
type Handler struct {
	logger            *slog.Logger
	users             *repository.UsersRepository
	identities        *repository.IdentitiesRepository
	sessionService    *auth.SessionService
	onboardingService *auth.OnboardingService
	cookieConfig      httputil.CookieConfig
}

// NewHandler creates a new me handler.
func NewHandler(
	logger *slog.Logger,
	users *repository.UsersRepository,
	identities *repository.IdentitiesRepository,
	sessionService *auth.SessionService,
	onboardingService *auth.OnboardingService,
	cookieConfig httputil.CookieConfig,
) *Handler {
	return &Handler{
		logger:            logger,
		users:             users,
		identities:        identities,
		sessionService:    sessionService,
		onboardingService: onboardingService,
		cookieConfig:      cookieConfig,
	}
}

// IdentityResponse is one linked external identity.
type IdentityResponse struct {
	Provider    string    `json:"provider"`
	Email       *string   `json:"email,omitempty"`
	ConnectedAt time.Time `json:"connected_at"`
}

// OnboardingResponse summarizes where the user stands in onboarding.
type OnboardingResponse struct {
	Complete  bool   `json:"complete"`
	NextRoute string `json:"next_route,omitempty"`
}

// UserResponse represents the user profile response.
type UserResponse struct {
	ID                   string             `json:"id"`
	Email                string             `json:"email"`
	Name                 *string            `json:"name,omitempty"`
	AccountType          *string            `json:"account_type,omitempty"`
	AccountTypeConfirmed bool               `json:"account_type_confirmed"`
	Phone                *string            `json:"phone,omitempty"`
	PhoneVerified        bool               `json:"phone_verified"`
	CreatedAt            time.Time          `json:"created_at"`
	Identities           []IdentityResponse `json:"identities"`
	Onboarding           OnboardingResponse `json:"onboarding"`
}

// GetMe returns the current user's profile, linked identities, and
// onboarding position.
// GET /v1/me
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		httputil.Error(w, http.StatusNotFound, "user not found")
		return
	}

	identities, err := h.identities.ListByUserID(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to list identities", "error", err, "user_id", userID)
		httputil.Error(w, http.StatusInternalServerError, "failed to load profile")
		return
	}

	linked := make([]IdentityResponse, 0, len(identities))
	for _, id := range identities {
		linked = append(linked, IdentityResponse{
			Provider:    id.Provider,
			Email:       id.Email,
			ConnectedAt: id.CreatedAt,
		})
	}

	ob := OnboardingResponse{}
	decision, err := h.onboardingService.Decide(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to resolve onboarding state", "error", err, "user_id", userID)
	} else {
		ob.Complete = decision.AllowAccess
		if !decision.AllowAccess {
			ob.NextRoute = decision.NextRoute
		}
	}

	httputil.JSON(w, http.StatusOK, UserResponse{
		ID:                   user.ID.String(),
		Email:                user.Email,
		Name:                 user.Name,
		AccountType:          user.AccountType,
		AccountTypeConfirmed: user.AccountTypeConfirmedAt != nil,
		Phone:                user.Phone,
		PhoneVerified:        user.PhoneVerified,
		CreatedAt:            user.CreatedAt,
		Identities:           linked,
		Onboarding:           ob,
	})
}

// ListIdentities returns the current user's linked external identities.
// GET /v1/me/identities
func (h *Handler) ListIdentities(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	identities, err := h.identities.ListByUserID(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to list identities", "error", err, "user_id", userID)
		httputil.Error(w, http.StatusInternalServerError, "failed to load identities")
		return
	}

	out := make([]IdentityResponse, 0, len(identities))
	for _, id := range identities {
		out = append(out, IdentityResponse{
			Provider:    id.Provider,
			Email:       id.Email,
			ConnectedAt: id.CreatedAt,
		})
	}
	httputil.JSON(w, http.StatusOK, map[string][]IdentityResponse{"identities": out})
}

// UpdateRequest represents a profile update request. Email is owned by the
// identity provider and cannot be changed here.
type UpdateRequest struct {
	Name *string `json:"name"`
}

// UpdateMe updates the current user's display name.
// PATCH /v1/me
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == nil {
		httputil.Error(w, http.StatusBadRequest, "name is required")
		return
	}

	var name *string
	if sanitized := auth.SanitizeName(*req.Name); sanitized != "" {
		name = &sanitized
	}

	if err := h.users.UpdateName(r.Context(), userID, name); err != nil {
		h.logger.Error("failed to update name", "error", err, "user_id", userID)
		httputil.Error(w, http.StatusInternalServerError, "failed to update profile")
		return
	}

	h.GetMe(w, r)
}

// DeleteMe soft-deletes the current user's account and revokes all
// sessions.
// DELETE /v1/me
func (h *Handler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.users.SoftDelete(r.Context(), userID); err != nil {
		h.logger.Error("failed to delete account", "error", err, "user_id", userID)
		httputil.Error(w, http.StatusInternalServerError, "failed to delete account")
		return
	}

	if err := h.sessionService.RevokeAllSessions(r.Context(), userID); err != nil {
		h.logger.Error("failed to revoke sessions", "error", err, "user_id", userID)
	}

	if !httputil.IsMobileClient(r) {
		httputil.ClearAuthCookies(w, h.cookieConfig)
	}

	h.logger.Info("account deleted", "user_id", userID)
	w.WriteHeader(http.StatusNoContent)
}
