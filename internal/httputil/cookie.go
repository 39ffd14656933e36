package httputil

import (
	"net/http"
	"time"
)

const (
	accessTokenCookie  = "access_token"
	refreshTokenCookie = "refresh_token"
)

// CookieConfig holds cookie configuration.
type CookieConfig struct {
	Domain string
	Path   string
	// RefreshPath scopes the refresh token cookie to the auth endpoints,
	// so it is not sent with every API request.
	RefreshPath string
	Secure      bool // true in production (HTTPS)
	SameSite    http.SameSite
}

// DefaultCookieConfig returns default cookie configuration.
func DefaultCookieConfig() CookieConfig {
	return CookieConfig{
		Path:        "/",
		RefreshPath: "/v1/auth",
		Secure:      false,
		SameSite:    http.SameSiteLaxMode,
	}
}

// SetAuthCookies sets HttpOnly cookies for access and refresh tokens.
func SetAuthCookies(w http.ResponseWriter, accessToken, refreshToken string, accessTTL, refreshTTL time.Duration, cfg CookieConfig) {
	setCookie(w, cfg, accessTokenCookie, accessToken, cfg.Path, int(accessTTL.Seconds()))
	setCookie(w, cfg, refreshTokenCookie, refreshToken, cfg.RefreshPath, int(refreshTTL.Seconds()))
}

// ClearAuthCookies clears auth cookies.
func ClearAuthCookies(w http.ResponseWriter, cfg CookieConfig) {
	setCookie(w, cfg, accessTokenCookie, "", cfg.Path, -1)
	setCookie(w, cfg, refreshTokenCookie, "", cfg.RefreshPath, -1)
}

func setCookie(w http.ResponseWriter, cfg CookieConfig, name, value, path string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Domain:   cfg.Domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: cfg.SameSite,
	})
}

// GetRefreshTokenFromCookie extracts the refresh token from its cookie.
func GetRefreshTokenFromCookie(r *http.Request) (string, bool) {
	return cookieValue(r, refreshTokenCookie)
}

// GetAccessTokenFromCookie extracts the access token from its cookie.
func GetAccessTokenFromCookie(r *http.Request) (string, bool) {
	return cookieValue(r, accessTokenCookie)
}

func cookieValue(r *http.Request, name string) (string, bool) {
	cookie, err := r.Cookie(name)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

// IsMobileClient checks if the request is from a mobile client.
// Mobile clients set the header X-Client-Type: mobile and exchange tokens
// in request/response bodies instead of cookies.
func IsMobileClient(r *http.Request) bool {
	return r.Header.Get("X-Client-Type") == "mobile"
}
