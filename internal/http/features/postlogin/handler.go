package postlogin

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"github.com/vocaid/identity/internal/http/middleware"
	"github.com/vocaid/identity/pkg/onboarding"
)

// returnToCookie is set by the SPA before it starts an auth flow, so the
// intended destination survives the round trip through the provider.
const returnToCookie = "return_to"

// OnboardingDecider resolves where an authenticated user should be routed.
// Satisfied by auth.OnboardingService.
type OnboardingDecider interface {
	Decide(ctx context.Context, userID uuid.UUID) (onboarding.Decision, error)
}

// Handler sends the browser to the right SPA route after sign-in.
type Handler struct {
	logger     *slog.Logger
	decider    OnboardingDecider
	appBaseURL string
}

// NewHandler creates a new post-login handler. appBaseURL is the SPA's
// origin; all redirects land on it.
func NewHandler(logger *slog.Logger, decider OnboardingDecider, appBaseURL string) *Handler {
	return &Handler{
		logger:     logger,
		decider:    decider,
		appBaseURL: appBaseURL,
	}
}

// Redirect lands the browser after a sign-in flow. Signed-out visitors
// bounce to the sign-in page carrying returnTo. Signed-in users go to
// their next onboarding step, or to the validated returnTo target once
// onboarding is complete. The cookie-carried returnTo wins over the query
// parameter. Mounted behind OptionalAuth.
// GET /auth/post-login
func (h *Handler) Redirect(w http.ResponseWriter, r *http.Request) {
	stateValue := h.consumeReturnToCookie(w, r)
	queryValue := r.URL.Query().Get("returnTo")

	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		candidate := stateValue
		if candidate == "" {
			candidate = queryValue
		}
		http.Redirect(w, r, h.appBaseURL+onboarding.BuildSignInURL(candidate), http.StatusFound)
		return
	}

	decision, err := h.decider.Decide(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to resolve onboarding state", "error", err, "user_id", userID)
		http.Redirect(w, r, h.appBaseURL+onboarding.RouteAuthError, http.StatusFound)
		return
	}

	if !decision.AllowAccess {
		http.Redirect(w, r, h.appBaseURL+decision.NextRoute, http.StatusFound)
		return
	}

	http.Redirect(w, r, h.appBaseURL+onboarding.ParseReturnTo(stateValue, queryValue), http.StatusFound)
}

// consumeReturnToCookie reads the one-shot returnTo cookie and expires it.
func (h *Handler) consumeReturnToCookie(w http.ResponseWriter, r *http.Request) string {
	c, err := r.Cookie(returnToCookie)
	if err != nil || c.Value == "" {
		return ""
	}

	http.SetCookie(w, &http.Cookie{
		Name:   returnToCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	if decoded, err := url.QueryUnescape(c.Value); err == nil {
		return decoded
	}
	return c.Value
}
