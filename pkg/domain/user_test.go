package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestUser_IsLocked(t *testing.T) {
	now := time.Now()
	past := now.Add(-1 * time.Hour)
	future := now.Add(1 * time.Hour)

	tests := []struct {
		name        string
		lockedUntil *time.Time
		want        bool
	}{
		{
			name:        "not locked (nil)",
			lockedUntil: nil,
			want:        false,
		},
		{
			name:        "locked (future time)",
			lockedUntil: &future,
			want:        true,
		},
		{
			name:        "not locked (past time)",
			lockedUntil: &past,
			want:        false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := &User{
				ID:          uuid.New(),
				Email:       "test@example.com",
				LockedUntil: tt.lockedUntil,
			}

			if got := user.IsLocked(); got != tt.want {
				t.Errorf("IsLocked() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUser_OnboardingSnapshot(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name          string
		confirmedAt   *time.Time
		phoneVerified bool
		hasPassword   bool
	}{
		{
			name:          "fresh account",
			confirmedAt:   nil,
			phoneVerified: false,
			hasPassword:   true,
		},
		{
			name:          "federated account without credential",
			confirmedAt:   &now,
			phoneVerified: false,
			hasPassword:   false,
		},
		{
			name:          "fully set up",
			confirmedAt:   &now,
			phoneVerified: true,
			hasPassword:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := &User{
				ID:                     uuid.New(),
				Email:                  "test@example.com",
				AccountTypeConfirmedAt: tt.confirmedAt,
				PhoneVerified:          tt.phoneVerified,
			}

			snap := user.OnboardingSnapshot(tt.hasPassword)

			if snap.ID != user.ID {
				t.Errorf("ID: got %v, want %v", snap.ID, user.ID)
			}
			if snap.AccountTypeConfirmedAt != tt.confirmedAt {
				t.Errorf("AccountTypeConfirmedAt: got %v, want %v", snap.AccountTypeConfirmedAt, tt.confirmedAt)
			}
			if snap.HasPassword != tt.hasPassword {
				t.Errorf("HasPassword: got %v, want %v", snap.HasPassword, tt.hasPassword)
			}
			if snap.PhoneVerified != tt.phoneVerified {
				t.Errorf("PhoneVerified: got %v, want %v", snap.PhoneVerified, tt.phoneVerified)
			}
		})
	}
}

func TestValidAccountType(t *testing.T) {
	tests := []struct {
		name        string
		accountType string
		want        bool
	}{
		{
			name:        "personal",
			accountType: "personal",
			want:        true,
		},
		{
			name:        "business",
			accountType: "business",
			want:        true,
		},
		{
			name:        "empty string",
			accountType: "",
			want:        false,
		},
		{
			name:        "unknown value",
			accountType: "enterprise",
			want:        false,
		},
		{
			name:        "case sensitive",
			accountType: "Personal",
			want:        false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidAccountType(tt.accountType); got != tt.want {
				t.Errorf("ValidAccountType(%q) = %v, want %v", tt.accountType, got, tt.want)
			}
		})
	}
}

func TestUserIdentity_Struct(t *testing.T) {
	id := uuid.New()
	userID := uuid.New()
	email := "test@example.com"
	now := time.Now()

	identity := UserIdentity{
		ID:              id,
		UserID:          userID,
		Provider:        ProviderGoogle,
		ProviderSubject: "12345",
		Email:           &email,
		CreatedAt:       now,
	}

	if identity.Provider != "google" {
		t.Errorf("Provider: got %q, want %q", identity.Provider, "google")
	}
	if identity.ProviderSubject != "12345" {
		t.Errorf("ProviderSubject: got %q, want %q", identity.ProviderSubject, "12345")
	}
	if identity.Email == nil || *identity.Email != email {
		t.Errorf("Email: got %v, want %v", identity.Email, email)
	}
	if !identity.CreatedAt.Equal(now) {
		t.Errorf("CreatedAt: got %v, want %v", identity.CreatedAt, now)
	}
}

func TestProviderConstants(t *testing.T) {
	if ProviderGoogle != "google" {
		t.Errorf("ProviderGoogle: got %q, want %q", ProviderGoogle, "google")
	}
	if ProviderLinkedIn != "linkedin" {
		t.Errorf("ProviderLinkedIn: got %q, want %q", ProviderLinkedIn, "linkedin")
	}
}
