package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/vocaid/identity/internal/httputil"
	"github.com/vocaid/identity/pkg/onboarding"
)

// OnboardingDecider resolves where a user stands in onboarding.
type OnboardingDecider interface {
	Decide(ctx context.Context, userID uuid.UUID) (onboarding.Decision, error)
}

// onboardingRequiredResponse tells the SPA where to send the user.
type onboardingRequiredResponse struct {
	Error     string `json:"error"`
	NextRoute string `json:"next_route"`
	Reason    string `json:"reason,omitempty"`
}

// RequireOnboarded creates middleware that blocks requests from users who
// have not finished onboarding. Must run after Auth. The 403 body carries
// the route of the first incomplete step so clients can redirect.
func RequireOnboarded(decider OnboardingDecider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := GetUserID(r.Context())
			if !ok {
				httputil.Error(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			decision, err := decider.Decide(r.Context(), userID)
			if err != nil {
				httputil.Error(w, http.StatusInternalServerError, "failed to resolve onboarding state")
				return
			}

			if !decision.AllowAccess {
				httputil.JSON(w, http.StatusForbidden, onboardingRequiredResponse{
					Error:     "onboarding incomplete",
					NextRoute: decision.NextRoute,
					Reason:    decision.Reason,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
