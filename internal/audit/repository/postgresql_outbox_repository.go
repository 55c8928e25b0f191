// Package repository provides audit outbox persistence for PostgreSQL and MySQL.
package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/allisson/tenantvault/internal/audit/domain"
	"github.com/allisson/tenantvault/internal/database"
	apperrors "github.com/allisson/tenantvault/internal/errors"
)

// PostgreSQLOutboxRepository handles audit outbox persistence for PostgreSQL.
type PostgreSQLOutboxRepository struct {
	db *sql.DB
}

// NewPostgreSQLOutboxRepository creates a new PostgreSQLOutboxRepository.
func NewPostgreSQLOutboxRepository(db *sql.DB) *PostgreSQLOutboxRepository {
	return &PostgreSQLOutboxRepository{db: db}
}

// Create inserts a new outbox entry.
func (r *PostgreSQLOutboxRepository) Create(ctx context.Context, entry *domain.OutboxEntry) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO audit_outbox (id, action, tenant_id, record_id, occurred_at, status, retries, last_error, processed_at, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := querier.ExecContext(
		ctx,
		query,
		entry.ID,
		string(entry.Action),
		nullableTenantID(entry.TenantID),
		entry.RecordID,
		entry.OccurredAt,
		string(entry.Status),
		entry.Retries,
		entry.LastError,
		entry.ProcessedAt,
		entry.CreatedAt,
		entry.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create audit outbox entry")
	}
	return nil
}

// GetPending retrieves up to limit pending entries, oldest first. Rows are locked
// with SKIP LOCKED so concurrent dispatchers never pick the same entry; callers
// run it inside a transaction.
func (r *PostgreSQLOutboxRepository) GetPending(ctx context.Context, limit int) ([]*domain.OutboxEntry, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, action, tenant_id, record_id, occurred_at, status, retries, last_error, processed_at, created_at, updated_at
			  FROM audit_outbox
			  WHERE status = $1
			  ORDER BY created_at ASC
			  LIMIT $2
			  FOR UPDATE SKIP LOCKED`

	rows, err := querier.QueryContext(ctx, query, string(domain.OutboxStatusPending), limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to get pending audit outbox entries")
	}
	defer rows.Close() //nolint:errcheck

	var entries []*domain.OutboxEntry
	for rows.Next() {
		var entry domain.OutboxEntry
		var action, status string
		var tenantID uuid.NullUUID

		err := rows.Scan(&entry.ID, &action, &tenantID, &entry.RecordID, &entry.OccurredAt, &status,
			&entry.Retries, &entry.LastError, &entry.ProcessedAt, &entry.CreatedAt, &entry.UpdatedAt)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan audit outbox entry")
		}

		entry.Action = domain.Action(action)
		entry.Status = domain.OutboxStatus(status)
		if tenantID.Valid {
			entry.TenantID = tenantID.UUID
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate audit outbox entries")
	}
	return entries, nil
}

// Update persists the delivery state of an entry.
func (r *PostgreSQLOutboxRepository) Update(ctx context.Context, entry *domain.OutboxEntry) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE audit_outbox
			  SET status = $1, retries = $2, last_error = $3, processed_at = $4, updated_at = $5
			  WHERE id = $6`

	_, err := querier.ExecContext(ctx, query, string(entry.Status), entry.Retries, entry.LastError,
		entry.ProcessedAt, entry.UpdatedAt, entry.ID)
	if err != nil {
		return apperrors.Wrap(err, "failed to update audit outbox entry")
	}
	return nil
}

// nullableTenantID stores events without a resolved tenant as NULL.
func nullableTenantID(id uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: id, Valid: id != uuid.Nil}
}
