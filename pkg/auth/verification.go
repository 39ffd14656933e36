package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vocaid/identity/pkg/domain"
	"github.com/vocaid/identity/pkg/repository"
)

// VerificationConfig holds token lifetimes.
type VerificationConfig struct {
	PasswordResetTTL time.Duration
}

// VerificationService issues and consumes password reset tokens.
type VerificationService struct {
	config VerificationConfig
	db     *sql.DB
	tokens *repository.VerificationTokensRepository
}

// CreateVerificationTokenOpts carries request context stored with the token.
type CreateVerificationTokenOpts struct {
	IP        string
	UserAgent string
}

// NewVerificationService creates a new verification service.
func NewVerificationService(config VerificationConfig, db *sql.DB, tokens *repository.VerificationTokensRepository) *VerificationService {
	return &VerificationService{
		config: config,
		db:     db,
		tokens: tokens,
	}
}

// CreatePasswordResetToken creates a new password reset token for a user.
// It revokes any existing active tokens of the same kind before creating a new one.
func (s *VerificationService) CreatePasswordResetToken(ctx context.Context, userID uuid.UUID, opts CreateVerificationTokenOpts) (string, error) {
	rawToken, err := GenerateToken(32)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	metadata := map[string]string{
		"ip":         opts.IP,
		"user_agent": opts.UserAgent,
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return "", fmt.Errorf("failed to marshal metadata: %w", err)
	}

	token := &domain.VerificationToken{
		ID:        uuid.New(),
		UserID:    userID,
		TokenHash: HashToken(rawToken),
		Kind:      domain.TokenKindPasswordReset,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(s.config.PasswordResetTTL),
		Metadata:  metadataJSON,
	}

	err = repository.Tx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.tokens.RevokeActiveTokensTx(ctx, tx, userID, domain.TokenKindPasswordReset); err != nil {
			return fmt.Errorf("failed to revoke active tokens: %w", err)
		}
		if err := s.tokens.CreateTx(ctx, tx, token); err != nil {
			return fmt.Errorf("failed to create token: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	return rawToken, nil
}

// ValidatePasswordResetToken validates a password reset token without
// consuming it. Returns the user ID if the token is valid.
func (s *VerificationService) ValidatePasswordResetToken(ctx context.Context, rawToken string) (uuid.UUID, error) {
	token, err := s.tokens.GetByTokenHash(ctx, HashToken(rawToken), domain.TokenKindPasswordReset)
	if err != nil {
		return uuid.Nil, domain.ErrVerificationTokenInvalid
	}

	if !token.IsValid() {
		if token.ConsumedAt != nil {
			return uuid.Nil, domain.ErrVerificationTokenConsumed
		}
		return uuid.Nil, domain.ErrVerificationTokenExpired
	}

	return token.UserID, nil
}

// ConsumePasswordResetToken marks a password reset token as consumed.
func (s *VerificationService) ConsumePasswordResetToken(ctx context.Context, rawToken string) error {
	token, err := s.tokens.GetByTokenHash(ctx, HashToken(rawToken), domain.TokenKindPasswordReset)
	if err != nil {
		return domain.ErrVerificationTokenInvalid
	}

	if !token.IsValid() {
		if token.ConsumedAt != nil {
			return domain.ErrVerificationTokenConsumed
		}
		return domain.ErrVerificationTokenExpired
	}

	return s.tokens.MarkConsumed(ctx, token.ID)
}
