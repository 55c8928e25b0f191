package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/allisson/tenantvault/internal/audit/domain"
	"github.com/allisson/tenantvault/internal/database"
	apperrors "github.com/allisson/tenantvault/internal/errors"
)

// MySQLOutboxRepository handles audit outbox persistence for MySQL.
type MySQLOutboxRepository struct {
	db *sql.DB
}

// NewMySQLOutboxRepository creates a new MySQLOutboxRepository.
func NewMySQLOutboxRepository(db *sql.DB) *MySQLOutboxRepository {
	return &MySQLOutboxRepository{db: db}
}

// Create inserts a new outbox entry.
func (r *MySQLOutboxRepository) Create(ctx context.Context, entry *domain.OutboxEntry) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO audit_outbox (id, action, tenant_id, record_id, occurred_at, status, retries, last_error, processed_at, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	// Convert UUID to bytes for MySQL BINARY(16)
	idBytes, err := entry.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal audit event id")
	}

	var tenantID []byte
	if entry.TenantID != uuid.Nil {
		if tenantID, err = entry.TenantID.MarshalBinary(); err != nil {
			return apperrors.Wrap(err, "failed to marshal tenant id")
		}
	}

	_, err = querier.ExecContext(ctx, query, idBytes, string(entry.Action), tenantID, entry.RecordID,
		entry.OccurredAt, string(entry.Status), entry.Retries, entry.LastError, entry.ProcessedAt,
		entry.CreatedAt, entry.UpdatedAt)
	if err != nil {
		return apperrors.Wrap(err, "failed to create audit outbox entry")
	}
	return nil
}

// GetPending retrieves up to limit pending entries, oldest first, locking them
// with SKIP LOCKED (MySQL 8.0+).
func (r *MySQLOutboxRepository) GetPending(ctx context.Context, limit int) ([]*domain.OutboxEntry, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, action, tenant_id, record_id, occurred_at, status, retries, last_error, processed_at, created_at, updated_at
			  FROM audit_outbox
			  WHERE status = ?
			  ORDER BY created_at ASC
			  LIMIT ?
			  FOR UPDATE SKIP LOCKED`

	rows, err := querier.QueryContext(ctx, query, string(domain.OutboxStatusPending), limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to get pending audit outbox entries")
	}
	defer rows.Close() //nolint:errcheck

	var entries []*domain.OutboxEntry
	for rows.Next() {
		var entry domain.OutboxEntry
		var idBytes, tenantIDBytes []byte
		var action, status string

		err := rows.Scan(&idBytes, &action, &tenantIDBytes, &entry.RecordID, &entry.OccurredAt, &status,
			&entry.Retries, &entry.LastError, &entry.ProcessedAt, &entry.CreatedAt, &entry.UpdatedAt)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan audit outbox entry")
		}

		if err := entry.ID.UnmarshalBinary(idBytes); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal audit event id")
		}
		if len(tenantIDBytes) > 0 {
			if err := entry.TenantID.UnmarshalBinary(tenantIDBytes); err != nil {
				return nil, apperrors.Wrap(err, "failed to unmarshal tenant id")
			}
		}
		entry.Action = domain.Action(action)
		entry.Status = domain.OutboxStatus(status)
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate audit outbox entries")
	}
	return entries, nil
}

// Update persists the delivery state of an entry.
func (r *MySQLOutboxRepository) Update(ctx context.Context, entry *domain.OutboxEntry) error {
	querier := database.GetTx(ctx, r.db)

	idBytes, err := entry.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal audit event id")
	}

	query := `UPDATE audit_outbox
			  SET status = ?, retries = ?, last_error = ?, processed_at = ?, updated_at = ?
			  WHERE id = ?`

	_, err = querier.ExecContext(ctx, query, string(entry.Status), entry.Retries, entry.LastError,
		entry.ProcessedAt, entry.UpdatedAt, idBytes)
	if err != nil {
		return apperrors.Wrap(err, "failed to update audit outbox entry")
	}
	return nil
}
