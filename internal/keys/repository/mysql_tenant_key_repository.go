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

// MySQLTenantKeyRepository implements TenantKey persistence for MySQL.
// Uses BINARY(16) for UUID storage; the single active key per tenant is enforced by a
// unique index over a generated column that is NULL for inactive rows.
type MySQLTenantKeyRepository struct {
	db *sql.DB
}

// NewMySQLTenantKeyRepository creates a new MySQL TenantKey repository.
func NewMySQLTenantKeyRepository(db *sql.DB) *MySQLTenantKeyRepository {
	return &MySQLTenantKeyRepository{db: db}
}

// Create inserts a new TenantKey.
func (m *MySQLTenantKeyRepository) Create(ctx context.Context, key *keysDomain.TenantKey) error {
	querier := database.GetTx(ctx, m.db)

	id, err := key.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal tenant key id")
	}
	tenantID, err := key.TenantID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal tenant id")
	}

	query := `INSERT INTO tenant_keys (` + tenantKeyColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		tenantID,
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
func (m *MySQLTenantKeyRepository) GetActive(
	ctx context.Context,
	tenantID uuid.UUID,
) (*keysDomain.TenantKey, error) {
	querier := database.GetTx(ctx, m.db)

	tid, err := tenantID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal tenant id")
	}

	query := `SELECT ` + tenantKeyColumns + ` FROM tenant_keys WHERE tenant_id = ? AND active = TRUE`

	key, err := scanMySQLTenantKey(querier.QueryRowContext(ctx, query, tid))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, keysDomain.ErrNoActiveKey
		}
		return nil, apperrors.Wrap(err, "failed to get active tenant key")
	}
	return key, nil
}

// GetByVersion retrieves a specific version of a tenant's key.
func (m *MySQLTenantKeyRepository) GetByVersion(
	ctx context.Context,
	tenantID uuid.UUID,
	version uint32,
) (*keysDomain.TenantKey, error) {
	querier := database.GetTx(ctx, m.db)

	tid, err := tenantID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal tenant id")
	}

	query := `SELECT ` + tenantKeyColumns + ` FROM tenant_keys WHERE tenant_id = ? AND version = ?`

	key, err := scanMySQLTenantKey(querier.QueryRowContext(ctx, query, tid, int64(version)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, keysDomain.ErrKeyNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get tenant key")
	}
	return key, nil
}

// GetMaxVersion returns the highest version ever issued to the tenant, or 0.
func (m *MySQLTenantKeyRepository) GetMaxVersion(ctx context.Context, tenantID uuid.UUID) (uint32, error) {
	querier := database.GetTx(ctx, m.db)

	tid, err := tenantID.MarshalBinary()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to marshal tenant id")
	}

	query := `SELECT COALESCE(MAX(version), 0) FROM tenant_keys WHERE tenant_id = ?`

	var version int64
	if err := querier.QueryRowContext(ctx, query, tid).Scan(&version); err != nil {
		return 0, apperrors.Wrap(err, "failed to get max tenant key version")
	}
	return uint32(version), nil
}

// DeactivateActive deactivates the tenant's active key, if any.
func (m *MySQLTenantKeyRepository) DeactivateActive(
	ctx context.Context,
	tenantID uuid.UUID,
	deactivatedAt time.Time,
) error {
	querier := database.GetTx(ctx, m.db)

	tid, err := tenantID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal tenant id")
	}

	query := `UPDATE tenant_keys SET active = FALSE, deactivated_at = ? WHERE tenant_id = ? AND active = TRUE`

	if _, err := querier.ExecContext(ctx, query, deactivatedAt, tid); err != nil {
		return apperrors.Wrap(err, "failed to deactivate tenant key")
	}
	return nil
}

// Activate marks a version active. The caller deactivates the previous active key
// in the same transaction.
func (m *MySQLTenantKeyRepository) Activate(ctx context.Context, tenantID uuid.UUID, version uint32) error {
	querier := database.GetTx(ctx, m.db)

	tid, err := tenantID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal tenant id")
	}

	query := `UPDATE tenant_keys SET active = TRUE, deactivated_at = NULL WHERE tenant_id = ? AND version = ?`

	result, err := querier.ExecContext(ctx, query, tid, int64(version))
	if err != nil {
		if database.IsUniqueViolation(err) {
			return keysDomain.ErrConcurrentActivationConflict
		}
		return apperrors.Wrap(err, "failed to activate tenant key")
	}
	return requireAffected(result)
}

// Deactivate marks a version inactive.
func (m *MySQLTenantKeyRepository) Deactivate(
	ctx context.Context,
	tenantID uuid.UUID,
	version uint32,
	deactivatedAt time.Time,
) error {
	querier := database.GetTx(ctx, m.db)

	tid, err := tenantID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal tenant id")
	}

	query := `UPDATE tenant_keys SET active = FALSE, deactivated_at = ? WHERE tenant_id = ? AND version = ?`

	result, err := querier.ExecContext(ctx, query, deactivatedAt, tid, int64(version))
	if err != nil {
		return apperrors.Wrap(err, "failed to deactivate tenant key")
	}
	return requireAffected(result)
}

// List returns every key version of a tenant, newest first.
func (m *MySQLTenantKeyRepository) List(
	ctx context.Context,
	tenantID uuid.UUID,
) ([]*keysDomain.TenantKey, error) {
	querier := database.GetTx(ctx, m.db)

	tid, err := tenantID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal tenant id")
	}

	query := `SELECT ` + tenantKeyColumns + ` FROM tenant_keys WHERE tenant_id = ? ORDER BY version DESC`

	rows, err := querier.QueryContext(ctx, query, tid)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list tenant keys")
	}
	defer func() {
		_ = rows.Close()
	}()

	keys := make([]*keysDomain.TenantKey, 0)
	for rows.Next() {
		key, err := scanMySQLTenantKey(rows)
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

func scanMySQLTenantKey(row rowScanner) (*keysDomain.TenantKey, error) {
	var key keysDomain.TenantKey
	var idBytes, tenantIDBytes []byte
	var version int64
	var algorithm string
	var deactivatedAt sql.NullTime

	err := row.Scan(
		&idBytes,
		&tenantIDBytes,
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

	if err := key.ID.UnmarshalBinary(idBytes); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal tenant key id")
	}
	if err := key.TenantID.UnmarshalBinary(tenantIDBytes); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal tenant id")
	}
	key.Version = uint32(version)
	key.Algorithm = cryptoDomain.Algorithm(algorithm)
	if deactivatedAt.Valid {
		key.DeactivatedAt = &deactivatedAt.Time
	}
	return &key, nil
}
