package onboarding

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/vocaid/identity/internal/http/middleware"
	"github.com/vocaid/identity/internal/httputil"
	"github.com/vocaid/identity/pkg/auth"
	"github.com/vocaid/identity/pkg/domain"
	"github.com/vocaid/identity/pkg/onboarding"
)

// Handler handles onboarding state endpoints. All endpoints require
// authentication; the SPA calls them to decide which step to render.
type Handler struct {
	logger            *slog.Logger
	onboardingService *auth.OnboardingService
}

// NewHandler creates a new onboarding handler.
func NewHandler(logger *slog.Logger, onboardingService *auth.OnboardingService) *Handler {
	return &Handler{
		logger:            logger,
		onboardingService: onboardingService,
	}
}

// DecisionResponse is the routing decision for the current user.
// NextRoute is null once onboarding is complete.
type DecisionResponse struct {
	NextRoute   *string `json:"next_route"`
	AllowAccess bool    `json:"allow_access"`
	Reason      string  `json:"reason,omitempty"`
}

// Next returns where the SPA should route the current user.
// GET /v1/onboarding/next
func (h *Handler) Next(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	decision, err := h.onboardingService.Decide(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to resolve onboarding decision", "error", err, "user_id", userID)
		httputil.Error(w, http.StatusInternalServerError, "failed to resolve onboarding state")
		return
	}

	resp := DecisionResponse{
		AllowAccess: decision.AllowAccess,
		Reason:      decision.Reason,
	}
	if decision.NextRoute != "" {
		resp.NextRoute = &decision.NextRoute
	}
	httputil.JSON(w, http.StatusOK, resp)
}

// StepResponse is one onboarding step with its state for the current user.
type StepResponse struct {
	Key      string `json:"key"`
	Route    string `json:"route"`
	Required bool   `json:"required"`
	Inline   bool   `json:"inline"`
	Complete bool   `json:"complete"`
}

// Steps returns every onboarding step with per-user state.
// GET /v1/onboarding/steps
func (h *Handler) Steps(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, consent, err := h.onboardingService.Snapshot(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to load onboarding snapshot", "error", err, "user_id", userID)
		httputil.Error(w, http.StatusInternalServerError, "failed to load onboarding state")
		return
	}

	steps := onboarding.Steps()
	out := make([]StepResponse, 0, len(steps))
	for _, s := range steps {
		out = append(out, StepResponse{
			Key:      string(s.Key),
			Route:    s.Route,
			Required: s.RequiredFor(user),
			Inline:   s.Inline,
			Complete: s.CompleteFor(user, consent),
		})
	}

	httputil.JSON(w, http.StatusOK, map[string][]StepResponse{"steps": out})
}

// ProgressResponse describes the user's position in the visible step list.
type ProgressResponse struct {
	Position int                  `json:"position"`
	Total    int                  `json:"total"`
	Percent  int                  `json:"percent"`
	Steps    []ProgressStepStatus `json:"steps"`
}

// ProgressStepStatus is one entry of the progress indicator.
type ProgressStepStatus struct {
	Key      string `json:"key"`
	Active   bool   `json:"active"`
	Complete bool   `json:"complete"`
}

// Progress returns progress-indicator state for the step named in the
// "step" query parameter.
// GET /v1/onboarding/progress?step=accountType
func (h *Handler) Progress(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	stepParam := r.URL.Query().Get("step")
	if stepParam == "" {
		httputil.Error(w, http.StatusBadRequest, "step query parameter is required")
		return
	}
	if _, ok := onboarding.StepByKey(onboarding.StepKey(stepParam)); !ok {
		httputil.Error(w, http.StatusBadRequest, "unknown step")
		return
	}

	progress, err := h.onboardingService.Progress(r.Context(), userID, onboarding.StepKey(stepParam))
	if err != nil {
		h.logger.Error("failed to compute onboarding progress", "error", err, "user_id", userID)
		httputil.Error(w, http.StatusInternalServerError, "failed to compute progress")
		return
	}

	steps := make([]ProgressStepStatus, 0, len(progress.Steps))
	for _, s := range progress.Steps {
		steps = append(steps, ProgressStepStatus{
			Key:      string(s.Key),
			Active:   s.Active,
			Complete: s.Complete,
		})
	}

	httputil.JSON(w, http.StatusOK, ProgressResponse{
		Position: progress.Position,
		Total:    progress.Total,
		Percent:  progress.Percent,
		Steps:    steps,
	})
}

// AccountTypeRequest is an account type confirmation.
type AccountTypeRequest struct {
	AccountType string `json:"account_type"`
}

// AccountTypeResponse confirms the choice and names the next step route.
type AccountTypeResponse struct {
	AccountType string `json:"account_type"`
	NextRoute   string `json:"next_route"`
}

// ConfirmAccountType stamps the user's account type choice. The choice is
// permanent once confirmed.
// POST /v1/onboarding/account-type
func (h *Handler) ConfirmAccountType(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req AccountTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.AccountType == "" {
		httputil.Error(w, http.StatusBadRequest, "account_type is required")
		return
	}

	next, err := h.onboardingService.ConfirmAccountType(r.Context(), userID, req.AccountType)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidAccountType):
			httputil.Error(w, http.StatusBadRequest, "account_type must be personal or business")
		case errors.Is(err, domain.ErrAccountTypeConfirmed):
			httputil.Error(w, http.StatusConflict, "account type already confirmed")
		case errors.Is(err, domain.ErrUserNotFound):
			httputil.Error(w, http.StatusNotFound, "user not found")
		default:
			h.logger.Error("failed to confirm account type", "error", err, "user_id", userID)
			httputil.Error(w, http.StatusInternalServerError, "failed to confirm account type")
		}
		return
	}

	httputil.JSON(w, http.StatusOK, AccountTypeResponse{
		AccountType: req.AccountType,
		NextRoute:   next,
	})
}
