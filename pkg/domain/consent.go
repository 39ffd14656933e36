package domain

import (
	"time"

	"github.com/google/uuid"
)

// ConsentKind identifies a legal document a user must accept.
type ConsentKind string

const (
	ConsentTerms   ConsentKind = "terms"
	ConsentPrivacy ConsentKind = "privacy"
)

// ConsentRecord is one acceptance of one document version. Records are
// append-only; re-consent writes a new row.
type ConsentRecord struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	Kind       ConsentKind
	Version    string
	AcceptedAt time.Time
	IP         string
	UserAgent  string
}

// ConsentRequirement names a document and the version currently in force.
// Versions are ISO dates ("2025-06-01"), so string ordering is version
// ordering.
type ConsentRequirement struct {
	Kind    ConsentKind
	Version string
}

// ConsentStatus is a snapshot of a user's legal-consent state.
type ConsentStatus struct {
	HasRequiredConsents bool
	NeedsReConsent      bool
}

// Complete reports whether the user is consent-complete: every required
// document accepted and no acceptance stale.
func (s ConsentStatus) Complete() bool {
	return s.HasRequiredConsents && !s.NeedsReConsent
}
