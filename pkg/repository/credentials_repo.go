package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/vocaid/identity/pkg/domain"
)

// CredentialsRepository handles password credential persistence. A user has
// at most one row here; federated-only accounts have none.
type CredentialsRepository struct {
	db *sql.DB
}

// NewCredentialsRepository creates a new credentials repository.
func NewCredentialsRepository(db *sql.DB) *CredentialsRepository {
	return &CredentialsRepository{db: db}
}

// ExistsByUserID reports whether the user has a password credential.
func (r *CredentialsRepository) ExistsByUserID(ctx context.Context, userID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM user_password WHERE user_id = $1)`
	var exists bool
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&exists)
	return exists, err
}

// GetByUserID retrieves the user's password credential.
func (r *CredentialsRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.UserPassword, error) {
	query := `
		SELECT user_id, password_hash, password_updated_at
		FROM user_password
		WHERE user_id = $1
	`
	up := &domain.UserPassword{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&up.UserID, &up.PasswordHash, &up.PasswordUpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrPasswordNotSet
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get password credential: %w", err)
	}
	return up, nil
}

// Create inserts a password credential.
func (r *CredentialsRepository) Create(ctx context.Context, up *domain.UserPassword) error {
	return r.CreateTx(ctx, r.db, up)
}

// CreateTx inserts a password credential within a transaction.
func (r *CredentialsRepository) CreateTx(ctx context.Context, q Querier, up *domain.UserPassword) error {
	query := `
		INSERT INTO user_password (user_id, password_hash, password_updated_at)
		VALUES ($1, $2, $3)
	`
	_, err := q.ExecContext(ctx, query, up.UserID, up.PasswordHash, up.PasswordUpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create password credential: %w", err)
	}
	return nil
}

// Update replaces the stored password hash.
func (r *CredentialsRepository) Update(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	query := `
		UPDATE user_password
		SET password_hash = $2, password_updated_at = NOW()
		WHERE user_id = $1
	`
	result, err := r.db.ExecContext(ctx, query, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("failed to update password credential: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrPasswordNotSet
	}
	return nil
}

// Delete removes the password credential, leaving the account federated-only.
func (r *CredentialsRepository) Delete(ctx context.Context, userID uuid.UUID) error {
	query := `DELETE FROM user_password WHERE user_id = $1`
	_, err := r.db.ExecContext(ctx, query, userID)
	return err
}
