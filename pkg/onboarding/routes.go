// Package onboarding is the single authority on Vocaid's onboarding step
// ordering: which step a user must clear next, when the authenticated app may
// be reached, and which redirect targets are safe after sign-in. Route guards
// and the post-login redirector delegate here rather than re-deriving step
// precedence.
package onboarding

import (
	"net/url"
	"strings"
)

// Route paths shared with the SPA router. These are a stable contract;
// renaming one requires a coordinated router change.
const (
	RouteAccountType = "/onboarding/account-type"
	RoutePassword    = "/onboarding/password"
	RouteConsent     = "/onboarding/consent"
	RouteSignIn      = "/sign-in"
	RouteSignUp      = "/sign-up"
	RoutePostLogin   = "/auth/post-login"
	RouteAuthError   = "/auth/error"

	// RouteDefaultLanding is where fully onboarded users land.
	RouteDefaultLanding = "/dashboard"
)

const (
	onboardingPrefix = "/onboarding"
	authPrefix       = "/auth"
	returnToParam    = "returnTo"
)

// IsOnboardingRoute reports whether path belongs to the onboarding namespace.
func IsOnboardingRoute(path string) bool {
	return strings.HasPrefix(path, onboardingPrefix)
}

// IsAuthRoute reports whether path is the sign-in or sign-up page, or lives
// under the auth namespace.
func IsAuthRoute(path string) bool {
	return path == RouteSignIn || path == RouteSignUp || strings.HasPrefix(path, authPrefix)
}

// IsValidReturnTo reports whether path is safe to redirect to after sign-in.
// Only same-origin relative paths are accepted. Auth and onboarding routes
// are rejected because redirecting into them loops back through the gate.
func IsValidReturnTo(path string) bool {
	if !strings.HasPrefix(path, "/") {
		return false
	}
	// Browsers resolve "//host" and "/\host" as absolute URLs.
	if strings.HasPrefix(path, "//") || strings.HasPrefix(path, `/\`) {
		return false
	}
	if strings.Contains(path, "://") {
		return false
	}
	if IsAuthRoute(path) || IsOnboardingRoute(path) {
		return false
	}
	return true
}

// ParseReturnTo picks a redirect target from navigation state (preferred)
// or the query string and validates it. Invalid or absent candidates fall
// back to the default landing route.
func ParseReturnTo(stateValue, queryValue string) string {
	candidate := stateValue
	if candidate == "" {
		candidate = queryValue
	}
	if candidate != "" && IsValidReturnTo(candidate) {
		return candidate
	}
	return RouteDefaultLanding
}

// BuildSignInURL returns the sign-in route carrying a percent-encoded
// returnTo parameter, or the bare sign-in route when the candidate is missing
// or unsafe.
func BuildSignInURL(returnTo string) string {
	if returnTo == "" || !IsValidReturnTo(returnTo) {
		return RouteSignIn
	}
	return RouteSignIn + "?" + returnToParam + "=" + url.QueryEscape(returnTo)
}
