package auth

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/vocaid/identity/pkg/domain"
	"github.com/vocaid/identity/pkg/repository"
)

// ConsentService tracks which legal documents a user has accepted and at
// which version. Acceptance is append-only; bumping a document's current
// version flips users into the re-consent state without touching history.
type ConsentService struct {
	db       *sql.DB
	consents *repository.ConsentsRepository
	required []domain.ConsentRequirement
}

// NewConsentService creates a new consent service. required lists the
// documents every user must accept, with the version currently in force.
func NewConsentService(db *sql.DB, consents *repository.ConsentsRepository, required []domain.ConsentRequirement) *ConsentService {
	return &ConsentService{
		db:       db,
		consents: consents,
		required: required,
	}
}

// RequiredDocuments returns the documents and versions currently in force.
func (s *ConsentService) RequiredDocuments() []domain.ConsentRequirement {
	out := make([]domain.ConsentRequirement, len(s.required))
	copy(out, s.required)
	return out
}

// Status derives the user's consent state from their acceptance history.
func (s *ConsentService) Status(ctx context.Context, userID uuid.UUID) (*domain.ConsentStatus, error) {
	accepted, err := s.consents.LatestVersions(ctx, userID)
	if err != nil {
		return nil, err
	}

	status := &domain.ConsentStatus{HasRequiredConsents: true}
	for _, req := range s.required {
		version, ok := accepted[req.Kind]
		if !ok {
			status.HasRequiredConsents = false
			continue
		}
		if version < req.Version {
			status.NeedsReConsent = true
		}
	}
	return status, nil
}

// ConsentAcceptance is one document acceptance submitted by a client.
type ConsentAcceptance struct {
	Kind    domain.ConsentKind
	Version string
}

// AcceptOpts carries request context recorded with each acceptance.
type AcceptOpts struct {
	IP        string
	UserAgent string
}

// Accept records acceptance of one or more documents. Every item must name
// a known document at its current version; clients holding a stale page get
// ErrStaleConsentVersion and must reload.
func (s *ConsentService) Accept(ctx context.Context, userID uuid.UUID, items []ConsentAcceptance, opts AcceptOpts) error {
	if len(items) == 0 {
		return nil
	}
	for _, item := range items {
		req, ok := s.requirementFor(item.Kind)
		if !ok {
			return domain.ErrUnknownConsentDocument
		}
		if item.Version != req.Version {
			return domain.ErrStaleConsentVersion
		}
	}

	now := time.Now()
	return repository.Tx(ctx, s.db, func(tx *sql.Tx) error {
		for _, item := range items {
			record := &domain.ConsentRecord{
				ID:         uuid.New(),
				UserID:     userID,
				Kind:       item.Kind,
				Version:    item.Version,
				AcceptedAt: now,
				IP:         opts.IP,
				UserAgent:  opts.UserAgent,
			}
			if err := s.consents.CreateTx(ctx, tx, record); err != nil {
				return err
			}
		}
		return nil
	})
}

// History returns the user's full acceptance history, newest first.
func (s *ConsentService) History(ctx context.Context, userID uuid.UUID) ([]*domain.ConsentRecord, error) {
	return s.consents.ListByUserID(ctx, userID)
}

func (s *ConsentService) requirementFor(kind domain.ConsentKind) (domain.ConsentRequirement, bool) {
	for _, req := range s.required {
		if req.Kind == kind {
			return req, true
		}
	}
	return domain.ConsentRequirement{}, false
}
