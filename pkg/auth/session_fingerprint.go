package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
)

// SessionFingerprint represents a session's device fingerprint.
type SessionFingerprint struct {
	IPAddress string
	UserAgent string
	Hash      string
}

// GenerateFingerprint creates a fingerprint from request metadata.
func GenerateFingerprint(r *http.Request) *SessionFingerprint {
	ip := ClientIP(r)
	ua := r.UserAgent()

	return &SessionFingerprint{
		IPAddress: ip,
		UserAgent: ua,
		Hash:      hashFingerprint(ip, ua),
	}
}

// hashFingerprint creates a SHA-256 hash of the fingerprint components.
func hashFingerprint(ip, userAgent string) string {
	data := fmt.Sprintf("%s|%s", ip, userAgent)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ClientIP extracts the client IP address from the request. Checks
// X-Forwarded-For and X-Real-IP headers before falling back to RemoteAddr.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		// First entry is the client IP.
		ips := strings.Split(forwarded, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	// RemoteAddr is "IP:port".
	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		return addr[:idx]
	}

	return addr
}
