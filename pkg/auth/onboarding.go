package auth

import (
	"context"

	"github.com/google/uuid"

	"github.com/vocaid/identity/pkg/domain"
	"github.com/vocaid/identity/pkg/onboarding"
	"github.com/vocaid/identity/pkg/repository"
)

// OnboardingService assembles the onboarding snapshot from persisted state
// and answers routing questions about it. The routing rules themselves live
// in the onboarding package; this service only feeds them data.
type OnboardingService struct {
	users   *repository.UsersRepository
	creds   *repository.CredentialsRepository
	consent *ConsentService
}

// NewOnboardingService creates a new onboarding service.
func NewOnboardingService(users *repository.UsersRepository, creds *repository.CredentialsRepository, consent *ConsentService) *OnboardingService {
	return &OnboardingService{
		users:   users,
		creds:   creds,
		consent: consent,
	}
}

// Snapshot loads the user's onboarding-relevant state.
func (s *OnboardingService) Snapshot(ctx context.Context, userID uuid.UUID) (*domain.OnboardingUser, *domain.ConsentStatus, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	hasPassword, err := s.creds.ExistsByUserID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	// A consent read failure must not block routing. The resolver treats
	// a nil status as unknown and sends the user to the consent step.
	status, err := s.consent.Status(ctx, userID)
	if err != nil {
		status = nil
	}

	return user.OnboardingSnapshot(hasPassword), status, nil
}

// Decide resolves where an authenticated user should be routed. Auth state
// is settled by construction here, so the decision is never a loading one.
func (s *OnboardingService) Decide(ctx context.Context, userID uuid.UUID) (onboarding.Decision, error) {
	ou, status, err := s.Snapshot(ctx, userID)
	if err != nil {
		return onboarding.Decision{}, err
	}

	return onboarding.Next(onboarding.Input{
		AuthLoaded: true,
		SignedIn:   true,
		User:       ou,
		Consent:    status,
	}), nil
}

// IsComplete reports whether every required onboarding step is satisfied.
func (s *OnboardingService) IsComplete(ctx context.Context, userID uuid.UUID) (bool, error) {
	ou, status, err := s.Snapshot(ctx, userID)
	if err != nil {
		return false, err
	}
	return onboarding.IsComplete(ou, status), nil
}

// ConfirmAccountType stamps the user's account type choice. The choice is
// permanent; a second confirmation returns ErrAccountTypeConfirmed. On
// success it returns the route for the next incomplete step.
func (s *OnboardingService) ConfirmAccountType(ctx context.Context, userID uuid.UUID, accountType string) (string, error) {
	if !domain.ValidAccountType(accountType) {
		return "", domain.ErrInvalidAccountType
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if user.AccountTypeConfirmedAt != nil {
		return "", domain.ErrAccountTypeConfirmed
	}

	// The UPDATE re-checks the unconfirmed condition, so a concurrent
	// confirm loses here instead of overwriting.
	if err := s.users.ConfirmAccountType(ctx, userID, accountType); err != nil {
		return "", err
	}

	return s.NextAfter(ctx, userID, onboarding.StepAccountType)
}

// NextAfter returns the route to send the user to after completing the
// given step.
func (s *OnboardingService) NextAfter(ctx context.Context, userID uuid.UUID, completed onboarding.StepKey) (string, error) {
	ou, status, err := s.Snapshot(ctx, userID)
	if err != nil {
		return "", err
	}
	return onboarding.NextStepAfter(completed, ou, status), nil
}

// Progress reports the user's position in the visible step sequence.
func (s *OnboardingService) Progress(ctx context.Context, userID uuid.UUID, current onboarding.StepKey) (onboarding.Progress, error) {
	ou, _, err := s.Snapshot(ctx, userID)
	if err != nil {
		return onboarding.Progress{}, err
	}
	return onboarding.StepProgress(current, ou), nil
}
