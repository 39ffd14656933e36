package phone

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

// Handler handles phone verification endpoints.
type Handler struct {
	logger            *slog.Logger
	phoneService      *auth.PhoneService
	onboardingService *auth.OnboardingService
}

// NewHandler creates a new phone handler.
func NewHandler(logger *slog.Logger, phoneService *auth.PhoneService, onboardingService *auth.OnboardingService) *Handler {
	return &Handler{
		logger:            logger,
		phoneService:      phoneService,
		onboardingService: onboardingService,
	}
}

// RequestCodeRequest represents a verification code request.
type RequestCodeRequest struct {
	Phone string `json:"phone"`
}

// MessageResponse represents a simple message response.
type MessageResponse struct {
	Message string `json:"message"`
}

// RequestCode sends a verification code to the given number. Requesting
// again resends a fresh code; the previous one stops working. Requires
// authentication.
// POST /v1/phone/request-code
func (h *Handler) RequestCode(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req RequestCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Phone == "" {
		httputil.Error(w, http.StatusBadRequest, "phone is required")
		return
	}

	if err := h.phoneService.RequestCode(r.Context(), userID, req.Phone); err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidPhoneNumber):
			httputil.Error(w, http.StatusBadRequest, "phone number must be in E.164 format, like +14155550123")
		case errors.Is(err, domain.ErrPhoneSendLimit):
			httputil.Error(w, http.StatusTooManyRequests, "daily verification code limit reached. Please try again tomorrow.")
		case errors.Is(err, domain.ErrSMSUnavailable):
			httputil.Error(w, http.StatusServiceUnavailable, "could not send the verification code. Please try again shortly.")
		default:
			h.logger.Error("failed to request verification code", "error", err, "user_id", userID)
			httputil.Error(w, http.StatusInternalServerError, "failed to request verification code")
		}
		return
	}

	httputil.JSON(w, http.StatusOK, MessageResponse{Message: "verification code sent"})
}

// VerifyRequest represents a code verification request.
type VerifyRequest struct {
	Code string `json:"code"`
}

// VerifyResponse carries the route of the next onboarding step.
type VerifyResponse struct {
	Message   string `json:"message"`
	NextRoute string `json:"next_route"`
}

// Verify checks a submitted code and marks the phone verified. Requires
// authentication.
// POST /v1/phone/verify
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Code == "" {
		httputil.Error(w, http.StatusBadRequest, "code is required")
		return
	}

	if err := h.phoneService.VerifyCode(r.Context(), userID, req.Code); err != nil {
		switch {
		case errors.Is(err, domain.ErrPhoneCodeExpired):
			httputil.Error(w, http.StatusBadRequest, "verification code expired or not requested. Request a new code.")
		case errors.Is(err, domain.ErrPhoneCodeInvalid):
			httputil.Error(w, http.StatusBadRequest, "invalid verification code")
		case errors.Is(err, domain.ErrPhoneAttemptLimit):
			httputil.Error(w, http.StatusTooManyRequests, "too many failed attempts. Request a new code.")
		default:
			h.logger.Error("failed to verify code", "error", err, "user_id", userID)
			httputil.Error(w, http.StatusInternalServerError, "failed to verify code")
		}
		return
	}

	next, err := h.onboardingService.NextAfter(r.Context(), userID, onboarding.StepPhone)
	if err != nil {
		h.logger.Error("failed to resolve next step", "error", err, "user_id", userID)
		next = ""
	}

	httputil.JSON(w, http.StatusOK, VerifyResponse{
		Message:   "phone verified",
		NextRoute: next,
	})
}
