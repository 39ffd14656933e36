package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/vocaid/identity/pkg/domain"
	"github.com/vocaid/identity/pkg/repository"
)

const (
	refreshTokenLen = 32

	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// SessionConfig holds session configuration.
type SessionConfig struct {
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
	JWTSecret          []byte
	Issuer             string
	FingerprintEnabled bool
	DetectReuseEnabled bool
}

// SessionService issues and validates sessions. All auth methods create
// sessions through IssueSession.
type SessionService struct {
	config   SessionConfig
	sessions *repository.SessionsRepository
	users    *repository.UsersRepository
}

// NewSessionService creates a new session service.
func NewSessionService(config SessionConfig, sessions *repository.SessionsRepository, users *repository.UsersRepository) *SessionService {
	if config.AccessTokenTTL == 0 {
		config.AccessTokenTTL = DefaultAccessTokenTTL
	}
	if config.RefreshTokenTTL == 0 {
		config.RefreshTokenTTL = DefaultRefreshTokenTTL
	}
	return &SessionService{
		config:   config,
		sessions: sessions,
		users:    users,
	}
}

// AccessTokenTTL returns the access token TTL.
func (s *SessionService) AccessTokenTTL() time.Duration {
	return s.config.AccessTokenTTL
}

// RefreshTokenTTL returns the refresh token TTL.
func (s *SessionService) RefreshTokenTTL() time.Duration {
	return s.config.RefreshTokenTTL
}

// IssueSessionOpts holds options for session issuance.
type IssueSessionOpts struct {
	// IP address of the client
	IP string
	// User agent of the client
	UserAgent string
	// Request is the HTTP request (for fingerprinting)
	Request *http.Request
}

// AccessTokenClaims represents the claims in an access token. AccountType
// is a snapshot at issue time; onboarding checks always read live state.
type AccessTokenClaims struct {
	jwt.RegisteredClaims
	Email       string `json:"email,omitempty"`
	Name        string `json:"name,omitempty"`
	AccountType string `json:"account_type,omitempty"`
}

// IssueSession creates a new session and returns access/refresh tokens.
func (s *SessionService) IssueSession(ctx context.Context, userID uuid.UUID, opts IssueSessionOpts) (*domain.TokenPair, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now()

	// Refresh token is opaque and stored hashed.
	refreshToken, err := GenerateToken(refreshTokenLen)
	if err != nil {
		return nil, err
	}

	sessionID := uuid.New()
	session := &domain.Session{
		ID:        sessionID,
		UserID:    userID,
		TokenHash: HashToken(refreshToken),
		CreatedAt: now,
		ExpiresAt: now.Add(s.config.RefreshTokenTTL),
	}

	if opts.IP != "" || opts.UserAgent != "" || opts.Request != nil {
		metadata := domain.SessionMetadata{
			IP:        opts.IP,
			UserAgent: opts.UserAgent,
		}

		if s.config.FingerprintEnabled && opts.Request != nil {
			fp := GenerateFingerprint(opts.Request)
			metadata.FingerprintHash = fp.Hash
			metadata.FingerprintIP = fp.IPAddress
			metadata.FingerprintUA = fp.UserAgent
		}

		metadataJSON, _ := json.Marshal(metadata)
		session.Metadata = metadataJSON
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	return s.tokenPair(user, sessionID, refreshToken, now)
}

// RefreshSession issues a new access token for a valid refresh token.
func (s *SessionService) RefreshSession(ctx context.Context, refreshToken string, opts IssueSessionOpts) (*domain.TokenPair, error) {
	session, err := s.sessions.GetByTokenHash(ctx, HashToken(refreshToken))
	if err != nil {
		return nil, err
	}

	if !session.IsValid() {
		if session.RevokedAt != nil {
			return nil, domain.ErrSessionRevoked
		}
		return nil, domain.ErrSessionExpired
	}

	if s.config.FingerprintEnabled && opts.Request != nil && len(session.Metadata) > 0 {
		var metadata domain.SessionMetadata
		if err := json.Unmarshal(session.Metadata, &metadata); err == nil && metadata.FingerprintHash != "" {
			currentFp := GenerateFingerprint(opts.Request)

			if metadata.FingerprintHash != currentFp.Hash {
				// Fingerprint mismatch: possible token theft.
				if s.config.DetectReuseEnabled {
					_ = s.sessions.Revoke(ctx, session.ID)
					return nil, domain.ErrSessionFingerprint
				}
			}
		}
	}

	_ = s.sessions.UpdateLastSeen(ctx, session.ID)

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}

	return s.tokenPair(user, session.ID, refreshToken, time.Now())
}

// tokenPair signs an access token for the user and bundles it with the
// refresh token.
func (s *SessionService) tokenPair(user *domain.User, sessionID uuid.UUID, refreshToken string, now time.Time) (*domain.TokenPair, error) {
	expiresAt := now.Add(s.config.AccessTokenTTL)

	name := ""
	if user.Name != nil {
		name = *user.Name
	}
	accountType := ""
	if user.AccountType != nil && user.AccountTypeConfirmedAt != nil {
		accountType = *user.AccountType
	}

	claims := AccessTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Issuer:    s.config.Issuer,
			ID:        sessionID.String(),
		},
		Email:       user.Email,
		Name:        name,
		AccountType: accountType,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	accessToken, err := token.SignedString(s.config.JWTSecret)
	if err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.config.AccessTokenTTL.Seconds()),
		ExpiresAt:    expiresAt,
	}, nil
}

// RevokeSession revokes a session by refresh token.
func (s *SessionService) RevokeSession(ctx context.Context, refreshToken string) error {
	return s.sessions.RevokeByTokenHash(ctx, HashToken(refreshToken))
}

// RevokeAllSessions revokes all sessions for a user.
func (s *SessionService) RevokeAllSessions(ctx context.Context, userID uuid.UUID) error {
	return s.sessions.RevokeAllByUserID(ctx, userID)
}

// ValidateAccessToken validates an access token and returns the claims.
func (s *SessionService) ValidateAccessToken(tokenString string) (*AccessTokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AccessTokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrInvalidToken
		}
		return s.config.JWTSecret, nil
	})
	if err != nil {
		return nil, domain.ErrInvalidToken
	}

	claims, ok := token.Claims.(*AccessTokenClaims)
	if !ok || !token.Valid {
		return nil, domain.ErrInvalidToken
	}

	return claims, nil
}

// GetUserIDFromToken extracts the user ID from an access token.
func (s *SessionService) GetUserIDFromToken(tokenString string) (uuid.UUID, error) {
	claims, err := s.ValidateAccessToken(tokenString)
	if err != nil {
		return uuid.Nil, err
	}

	return uuid.Parse(claims.Subject)
}
