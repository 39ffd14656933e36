package domain

import (
	"time"

	"github.com/google/uuid"
)

// User represents a Vocaid account.
type User struct {
	ID                     uuid.UUID
	Email                  string
	Name                   *string
	AccountType            *string
	AccountTypeConfirmedAt *time.Time
	Phone                  *string
	PhoneVerified          bool
	FailedLoginAttempts    int
	LockedUntil            *time.Time
	CreatedAt              time.Time
	UpdatedAt              time.Time
	DeletedAt              *time.Time
}

// IsLocked returns true if the account is currently locked.
func (u *User) IsLocked() bool {
	if u.LockedUntil == nil {
		return false
	}
	return time.Now().Before(*u.LockedUntil)
}

// OnboardingSnapshot builds the read-only view the onboarding resolver
// consumes. hasPassword is derived from credential-row existence, which the
// user row does not carry.
func (u *User) OnboardingSnapshot(hasPassword bool) *OnboardingUser {
	return &OnboardingUser{
		ID:                     u.ID,
		AccountTypeConfirmedAt: u.AccountTypeConfirmedAt,
		HasPassword:            hasPassword,
		PhoneVerified:          u.PhoneVerified,
	}
}

// OnboardingUser is a snapshot of a user's account-completion state.
// The resolver never mutates it; callers re-fetch after a step completes.
type OnboardingUser struct {
	ID                     uuid.UUID
	AccountTypeConfirmedAt *time.Time
	HasPassword            bool
	PhoneVerified          bool
}

// UserPassword stores password credentials separately from user profile.
// A federated account has no row here until it sets a local credential.
type UserPassword struct {
	UserID            uuid.UUID
	PasswordHash      string
	PasswordUpdatedAt time.Time
}

// UserIdentity is a federated identity linked to the account. The provider
// handshake happens elsewhere; only its outcome is stored.
type UserIdentity struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	Provider        string
	ProviderSubject string
	Email           *string
	CreatedAt       time.Time
}

// IdentityProvider constants
const (
	ProviderGoogle   = "google"
	ProviderLinkedIn = "linkedin"
)

// AccountType constants
const (
	AccountTypePersonal = "personal"
	AccountTypeBusiness = "business"
)

// ValidAccountType reports whether t is one of the supported account types.
func ValidAccountType(t string) bool {
	switch t {
	case AccountTypePersonal, AccountTypeBusiness:
		return true
	}
	return false
}
