package consent

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/vocaid/identity/internal/http/middleware"
	"github.com/vocaid/identity/internal/httputil"
	"github.com/vocaid/identity/pkg/auth"
	"github.com/vocaid/identity/pkg/domain"
	"github.com/vocaid/identity/pkg/onboarding"
)

// Handler handles legal-consent endpoints.
type Handler struct {
	logger            *slog.Logger
	consentService    *auth.ConsentService
	onboardingService *auth.OnboardingService
}

// NewHandler creates a new consent handler.
func NewHandler(logger *slog.Logger, consentService *auth.ConsentService, onboardingService *auth.OnboardingService) *Handler {
	return &Handler{
		logger:            logger,
		consentService:    consentService,
		onboardingService: onboardingService,
	}
}

// RequirementResponse is one document the product currently requires.
type RequirementResponse struct {
	Kind    string `json:"kind"`
	Version string `json:"version"`
}

// Requirements lists the required documents and the versions in force.
// Public: the consent screen needs the versions before the user can accept.
// GET /v1/consent/requirements
func (h *Handler) Requirements(w http.ResponseWriter, r *http.Request) {
	docs := h.consentService.RequiredDocuments()
	out := make([]RequirementResponse, 0, len(docs))
	for _, doc := range docs {
		out = append(out, RequirementResponse{
			Kind:    string(doc.Kind),
			Version: doc.Version,
		})
	}
	httputil.JSON(w, http.StatusOK, map[string][]RequirementResponse{"documents": out})
}

// StatusResponse is the user's consent state.
type StatusResponse struct {
	HasRequiredConsents bool `json:"has_required_consents"`
	NeedsReConsent      bool `json:"needs_re_consent"`
	Complete            bool `json:"complete"`
}

// Status returns the caller's consent state. Requires authentication.
// GET /v1/consent/status
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	status, err := h.consentService.Status(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to load consent status", "error", err, "user_id", userID)
		httputil.Error(w, http.StatusInternalServerError, "failed to load consent status")
		return
	}

	httputil.JSON(w, http.StatusOK, StatusResponse{
		HasRequiredConsents: status.HasRequiredConsents,
		NeedsReConsent:      status.NeedsReConsent,
		Complete:            status.Complete(),
	})
}

// AcceptItem is one document acceptance submitted by the client.
type AcceptItem struct {
	Kind    string `json:"kind"`
	Version string `json:"version"`
}

// AcceptRequest represents a consent acceptance request.
type AcceptRequest struct {
	Consents []AcceptItem `json:"consents"`
}

// AcceptResponse carries the route of the next onboarding step.
type AcceptResponse struct {
	Message   string `json:"message"`
	NextRoute string `json:"next_route"`
}

// Accept records acceptance of one or more documents at their current
// versions. Requires authentication.
// POST /v1/consent/accept
func (h *Handler) Accept(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req AcceptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if len(req.Consents) == 0 {
		httputil.Error(w, http.StatusBadRequest, "consents is required")
		return
	}

	items := make([]auth.ConsentAcceptance, 0, len(req.Consents))
	for _, item := range req.Consents {
		if item.Kind == "" || item.Version == "" {
			httputil.Error(w, http.StatusBadRequest, "each consent needs a kind and a version")
			return
		}
		items = append(items, auth.ConsentAcceptance{
			Kind:    domain.ConsentKind(item.Kind),
			Version: item.Version,
		})
	}

	opts := auth.AcceptOpts{
		IP:        auth.ClientIP(r),
		UserAgent: r.UserAgent(),
	}
	if err := h.consentService.Accept(r.Context(), userID, items, opts); err != nil {
		switch {
		case errors.Is(err, domain.ErrUnknownConsentDocument):
			httputil.Error(w, http.StatusBadRequest, "unknown consent document")
		case errors.Is(err, domain.ErrStaleConsentVersion):
			httputil.Error(w, http.StatusConflict, "a newer version of this document is in force. Please reload and accept the current version.")
		default:
			h.logger.Error("failed to record consent", "error", err, "user_id", userID)
			httputil.Error(w, http.StatusInternalServerError, "failed to record consent")
		}
		return
	}

	next, err := h.onboardingService.NextAfter(r.Context(), userID, onboarding.StepConsent)
	if err != nil {
		h.logger.Error("failed to resolve next step", "error", err, "user_id", userID)
		next = ""
	}

	httputil.JSON(w, http.StatusOK, AcceptResponse{
		Message:   "consent recorded",
		NextRoute: next,
	})
}

// HistoryEntry is one acceptance in the user's history.
type HistoryEntry struct {
	Kind       string    `json:"kind"`
	Version    string    `json:"version"`
	AcceptedAt time.Time `json:"accepted_at"`
}

// History returns the caller's acceptance history, newest first.
// Requires authentication.
// GET /v1/consent/history
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	records, err := h.consentService.History(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to load consent history", "error", err, "user_id", userID)
		httputil.Error(w, http.StatusInternalServerError, "failed to load consent history")
		return
	}

	out := make([]HistoryEntry, 0, len(records))
	for _, rec := range records {
		out = append(out, HistoryEntry{
			Kind:       string(rec.Kind),
			Version:    rec.Version,
			AcceptedAt: rec.AcceptedAt,
		})
	}
	httputil.JSON(w, http.StatusOK, map[string][]HistoryEntry{"history": out})
}
