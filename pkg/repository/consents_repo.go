package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/vocaid/identity/pkg/domain"
)

// ConsentsRepository handles consent records. The table is append-only:
// re-accepting a document inserts a new row, it never updates an old one.
type ConsentsRepository struct {
	db *sql.DB
}

// NewConsentsRepository creates a new consents repository.
func NewConsentsRepository(db *sql.DB) *ConsentsRepository {
	return &ConsentsRepository{db: db}
}

// Create inserts a consent record.
func (r *ConsentsRepository) Create(ctx context.Context, record *domain.ConsentRecord) error {
	return r.CreateTx(ctx, r.db, record)
}

// CreateTx inserts a consent record within a transaction.
func (r *ConsentsRepository) CreateTx(ctx context.Context, q Querier, record *domain.ConsentRecord) error {
	query := `
		INSERT INTO consent_records (id, user_id, kind, version, accepted_at, ip, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := q.ExecContext(ctx, query,
		record.ID, record.UserID, record.Kind, record.Version,
		record.AcceptedAt, record.IP, record.UserAgent,
	)
	if err != nil {
		return fmt.Errorf("failed to create consent record: %w", err)
	}
	return nil
}

// LatestVersions returns the newest accepted version per document kind.
// Versions are ISO dates, so MAX is version order.
func (r *ConsentsRepository) LatestVersions(ctx context.Context, userID uuid.UUID) (map[domain.ConsentKind]string, error) {
	query := `
		SELECT kind, MAX(version)
		FROM consent_records
		WHERE user_id = $1
		GROUP BY kind
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query consent versions: %w", err)
	}
	defer rows.Close()

	versions := make(map[domain.ConsentKind]string)
	for rows.Next() {
		var kind domain.ConsentKind
		var version string
		if err := rows.Scan(&kind, &version); err != nil {
			return nil, fmt.Errorf("failed to scan consent version: %w", err)
		}
		versions[kind] = version
	}
	return versions, rows.Err()
}

// ListByUserID returns the full consent history for a user, newest first.
func (r *ConsentsRepository) ListByUserID(ctx context.Context, userID uuid.UUID) ([]*domain.ConsentRecord, error) {
	query := `
		SELECT id, user_id, kind, version, accepted_at, ip, user_agent
		FROM consent_records
		WHERE user_id = $1
		ORDER BY accepted_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list consent records: %w", err)
	}
	defer rows.Close()

	var records []*domain.ConsentRecord
	for rows.Next() {
		record := &domain.ConsentRecord{}
		if err := rows.Scan(
			&record.ID, &record.UserID, &record.Kind, &record.Version,
			&record.AcceptedAt, &record.IP, &record.UserAgent,
		); err != nil {
			return nil, fmt.Errorf("failed to scan consent record: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
