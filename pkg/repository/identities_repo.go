package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/vocaid/identity/pkg/domain"
)

// IdentitiesRepository handles federated identity records imported from the
// legacy IdP or linked after sign-up.
type IdentitiesRepository struct {
	db *sql.DB
}

// NewIdentitiesRepository creates a new identities repository.
func NewIdentitiesRepository(db *sql.DB) *IdentitiesRepository {
	return &IdentitiesRepository{db: db}
}

// Create inserts a federated identity.
func (r *IdentitiesRepository) Create(ctx context.Context, identity *domain.UserIdentity) error {
	return r.CreateTx(ctx, r.db, identity)
}

// CreateTx inserts a federated identity within a transaction.
func (r *IdentitiesRepository) CreateTx(ctx context.Context, q Querier, identity *domain.UserIdentity) error {
	query := `
		INSERT INTO user_identities (id, user_id, provider, provider_subject, email, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := q.ExecContext(ctx, query,
		identity.ID, identity.UserID, identity.Provider, identity.ProviderSubject,
		identity.Email, identity.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create identity: %w", err)
	}
	return nil
}

// GetByProviderSubject finds the identity for a provider's subject claim.
func (r *IdentitiesRepository) GetByProviderSubject(ctx context.Context, provider, subject string) (*domain.UserIdentity, error) {
	query := `
		SELECT id, user_id, provider, provider_subject, email, created_at
		FROM user_identities
		WHERE provider = $1 AND provider_subject = $2
	`
	identity := &domain.UserIdentity{}
	err := r.db.QueryRowContext(ctx, query, provider, subject).Scan(
		&identity.ID, &identity.UserID, &identity.Provider, &identity.ProviderSubject,
		&identity.Email, &identity.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrIdentityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get identity: %w", err)
	}
	return identity, nil
}

// ListByUserID returns all federated identities linked to a user.
func (r *IdentitiesRepository) ListByUserID(ctx context.Context, userID uuid.UUID) ([]*domain.UserIdentity, error) {
	query := `
		SELECT id, user_id, provider, provider_subject, email, created_at
		FROM user_identities
		WHERE user_id = $1
		ORDER BY created_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list identities: %w", err)
	}
	defer rows.Close()

	var identities []*domain.UserIdentity
	for rows.Next() {
		identity := &domain.UserIdentity{}
		if err := rows.Scan(
			&identity.ID, &identity.UserID, &identity.Provider, &identity.ProviderSubject,
			&identity.Email, &identity.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan identity: %w", err)
		}
		identities = append(identities, identity)
	}
	return identities, rows.Err()
}

// ExistsByUserID reports whether the user has any federated identity.
func (r *IdentitiesRepository) ExistsByUserID(ctx context.Context, userID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM user_identities WHERE user_id = $1)`
	var exists bool
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&exists)
	return exists, err
}
