// Package repository implements TenantKey persistence for PostgreSQL and MySQL.
//
// The "one active key per tenant" and "one row per (tenant, version)" invariants
// are enforced by unique indexes, not by application locks. Any unique violation
// is reported as ErrConcurrentActivationConflict so the key hierarchy can retry.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/tenantvault/internal/crypto/domain"
	"github.com/allisson/tenantvault/internal/database"
	apperrors "github.com/allisson/tenantvault/internal/errors"
	keysDomain "github.com/allisson/tenantvault/internal/keys/domain"
)

const tenantKeyColumns = `id, tenant_id, version, algorithm, wrapped_key, nonce, tag, active, created_at, deactivated_at`

// PostgreSQLTenantKeyRepository implements TenantKey persistence for PostgreSQL.
type PostgreSQLTenantKeyRepository struct {
	db *sql.DB
}

// NewPostgreSQLTenantKeyRepository creates a new PostgreSQL TenantKey repository.
func NewPostgreSQLTenantKeyRepository(db *sql.DB) *PostgreSQLTenantKeyRepository {
	return &PostgreSQLTenantKeyRepository{db: db}
}

// Create inserts a new TenantKey.
func (p *PostgreSQLTenantKeyRepository) Create(ctx context.Context, key *keysDomain.TenantKey) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO tenant_keys (` + tenantKeyColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := querier.ExecContext(
		ctx,
		query,
		key.ID,
		key.TenantID,
		int64(key.Version),
		string(key.Algorithm),
		key.WrappedKey,
		key.Nonce,
		key.Tag,
		key.Active,
		key.CreatedAt,
		key.DeactivatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return keysDomain.ErrConcurrentActivationConflict
		}
		return apperrors.Wrap(err, "failed to create tenant key")
	}
	return nil
}

// GetActive retrieves the active key of a tenant.
func (p *PostgreSQLTenantKeyRepository) GetActive(
	ctx context.Context,
	tenantID uuid.UUID,
) (*keysDomain.TenantKey, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + tenantKeyColumns + ` FROM tenant_keys WHERE tenant_id = $1 AND active`

	key, err := scanPostgresTenantKey(querier.QueryRowContext(ctx, query, tenantID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, keysDomain.ErrNoActiveKey
		}
		return nil, apperrors.Wrap(err, "failed to get active tenant key")
	}
	return key, nil
}

// GetByVersion retrieves a specific version of a tenant's key.
func (p *PostgreSQLTenantKeyRepository) GetByVersion(
	ctx context.Context,
	tenantID uuid.UUID,
	version uint32,
) (*keysDomain.TenantKey, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + tenantKeyColumns + ` FROM tenant_keys WHERE tenant_id = $1 AND version = $2`

	key, err := scanPostgresTenantKey(querier.QueryRowContext(ctx, query, tenantID, int64(version)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, keysDomain.ErrKeyNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get tenant key")
	}
	return key, nil
}

// GetMaxVersion returns the highest version ever issued to the tenant, or 0.
func (p *PostgreSQLTenantKeyRepository) GetMaxVersion(ctx context.Context, tenantID uuid.UUID) (uint32, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT COALESCE(MAX(version), 0) FROM tenant_keys WHERE tenant_id = $1`

	var version int64
	if err := querier.QueryRowContext(ctx, query, tenantID).Scan(&version); err != nil {
		return 0, apperrors.Wrap(err, "failed to get max tenant key version")
	}
	return uint32(version), nil
}

// DeactivateActive deactivates the tenant's active key, if any.
func (p *PostgreSQLTenantKeyRepository) DeactivateActive(
	ctx context.Context,
	tenantID uuid.UUID,
	deactivatedAt time.Time,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE tenant_keys SET active = FALSE, deactivated_at = $1 WHERE tenant_id = $2 AND active`

	if _, err := querier.ExecContext(ctx, query, deactivatedAt, tenantID); err != nil {
		return apperrors.Wrap(err, "failed to deactivate tenant key")
	}
	return nil
}

// Activate marks a version active. The caller deactivates the previous active key
// in the same transaction.
func (p *PostgreSQLTenantKeyRepository) Activate(ctx context.Context, tenantID uuid.UUID, version uint32) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE tenant_keys SET active = TRUE, deactivated_at = NULL WHERE tenant_id = $1 AND version = $2`

	result, err := querier.ExecContext(ctx, query, tenantID, int64(version))
	if err != nil {
		if database.IsUniqueViolation(err) {
			return keysDomain.ErrConcurrentActivationConflict
		}
		return apperrors.Wrap(err, "failed to activate tenant key")
	}
	return requireAffected(result)
}

// Deactivate marks a version inactive.
func (p *PostgreSQLTenantKeyRepository) Deactivate(
	ctx context.Context,
	tenantID uuid.UUID,
	version uint32,
	deactivatedAt time.Time,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE tenant_keys SET active = FALSE, deactivated_at = $1 WHERE tenant_id = $2 AND version = $3`

	result, err := querier.ExecContext(ctx, query, deactivatedAt, tenantID, int64(version))
	if err != nil {
		return apperrors.Wrap(err, "failed to deactivate tenant key")
	}
	return requireAffected(result)
}

// List returns every key version of a tenant, newest first.
func (p *PostgreSQLTenantKeyRepository) List(
	ctx context.Context,
	tenantID uuid.UUID,
) ([]*keysDomain.TenantKey, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + tenantKeyColumns + ` FROM tenant_keys WHERE tenant_id = $1 ORDER BY version DESC`

	rows, err := querier.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list tenant keys")
	}
	defer func() {
		_ = rows.Close()
	}()

	keys := make([]*keysDomain.TenantKey, 0)
	for rows.Next() {
		key, err := scanPostgresTenantKey(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan tenant key")
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate tenant keys")
	}
	return keys, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPostgresTenantKey(row rowScanner) (*keysDomain.TenantKey, error) {
	var key keysDomain.TenantKey
	var version int64
	var algorithm string
	var deactivatedAt sql.NullTime

	err := row.Scan(
		&key.ID,
		&key.TenantID,
		&version,
		&algorithm,
		&key.WrappedKey,
		&key.Nonce,
		&key.Tag,
		&key.Active,
		&key.CreatedAt,
		&deactivatedAt,
	)
	if err != nil {
		return nil, err
	}

	key.Version = uint32(version)
	key.Algorithm = cryptoDomain.Algorithm(algorithm)
	if deactivatedAt.Valid {
		key.DeactivatedAt = &deactivatedAt.Time
	}
	return &key, nil
}

func requireAffected(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get affected rows")
	}
	if rows == 0 {
		return keysDomain.ErrKeyNotFound
	}
	return nil
}
