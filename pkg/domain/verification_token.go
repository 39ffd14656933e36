package domain

import (
	"time"

	"github.com/google/uuid"
)

// VerificationTokenKind tags what a verification token is for.
type VerificationTokenKind string

const (
	TokenKindPasswordReset VerificationTokenKind = "password_reset"
)

// VerificationToken is a single-use, hashed, TTL-bound token.
type VerificationToken struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	TokenHash  string
	Kind       VerificationTokenKind
	CreatedAt  time.Time
	ExpiresAt  time.Time
	ConsumedAt *time.Time
	Metadata   []byte
}

// IsValid reports whether the token is unconsumed and unexpired.
func (t *VerificationToken) IsValid() bool {
	return t.ConsumedAt == nil && time.Now().Before(t.ExpiresAt)
}
