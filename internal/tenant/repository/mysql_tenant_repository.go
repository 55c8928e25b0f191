package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/allisson/tenantvault/internal/database"
	apperrors "github.com/allisson/tenantvault/internal/errors"
	tenantDomain "github.com/allisson/tenantvault/internal/tenant/domain"
)

const mysqlTenantColumns = `id, name, routing_key, plan, is_active, is_admin, created_at, updated_at`

// MySQLTenantRepository implements Tenant persistence for MySQL.
// Uses BINARY(16) for UUID storage with transaction support via database.GetTx().
type MySQLTenantRepository struct {
	db *sql.DB
}

// NewMySQLTenantRepository creates a new MySQL Tenant repository.
func NewMySQLTenantRepository(db *sql.DB) *MySQLTenantRepository {
	return &MySQLTenantRepository{db: db}
}

// Create inserts a new Tenant. A duplicate routing key, or a second admin tenant,
// returns ErrRoutingKeyTaken.
func (m *MySQLTenantRepository) Create(ctx context.Context, tenant *tenantDomain.Tenant) error {
	querier := database.GetTx(ctx, m.db)

	id, err := tenant.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal tenant id")
	}

	query := `INSERT INTO tenants (id, name, routing_key, plan, is_active, is_admin, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		tenant.Name,
		tenant.RoutingKey,
		string(tenant.Plan),
		tenant.IsActive,
		tenant.IsAdmin,
		tenant.CreatedAt,
		tenant.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return tenantDomain.ErrRoutingKeyTaken
		}
		return apperrors.Wrap(err, "failed to create tenant")
	}
	return nil
}

// Update persists the mutable attributes of a Tenant.
func (m *MySQLTenantRepository) Update(ctx context.Context, tenant *tenantDomain.Tenant) error {
	querier := database.GetTx(ctx, m.db)

	id, err := tenant.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal tenant id")
	}

	// MySQL counts changed rows, not matched rows; callers always move updated_at.
	query := `UPDATE tenants
			  SET name = ?,
				  plan = ?,
				  is_active = ?,
				  updated_at = ?
			  WHERE id = ?`

	result, err := querier.ExecContext(
		ctx,
		query,
		tenant.Name,
		string(tenant.Plan),
		tenant.IsActive,
		tenant.UpdatedAt,
		id,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update tenant")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get affected rows")
	}
	if rows == 0 {
		return tenantDomain.ErrTenantRecordNotFound
	}
	return nil
}

// Get retrieves a Tenant by ID.
func (m *MySQLTenantRepository) Get(ctx context.Context, tenantID uuid.UUID) (*tenantDomain.Tenant, error) {
	id, err := tenantID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal tenant id")
	}

	query := `SELECT ` + mysqlTenantColumns + ` FROM tenants WHERE id = ?`
	return m.getOne(ctx, query, id)
}

// GetByRoutingKey retrieves a Tenant by routing key.
func (m *MySQLTenantRepository) GetByRoutingKey(
	ctx context.Context,
	routingKey string,
) (*tenantDomain.Tenant, error) {
	query := `SELECT ` + mysqlTenantColumns + ` FROM tenants WHERE routing_key = ?`
	return m.getOne(ctx, query, routingKey)
}

// GetAdmin retrieves the platform-admin tenant.
func (m *MySQLTenantRepository) GetAdmin(ctx context.Context) (*tenantDomain.Tenant, error) {
	query := `SELECT ` + mysqlTenantColumns + ` FROM tenants WHERE is_admin = TRUE`
	return m.getOne(ctx, query)
}

// List retrieves all tenants ordered by routing key.
func (m *MySQLTenantRepository) List(ctx context.Context) ([]*tenantDomain.Tenant, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + mysqlTenantColumns + ` FROM tenants ORDER BY routing_key`

	rows, err := querier.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list tenants")
	}
	defer func() {
		_ = rows.Close()
	}()

	tenants := make([]*tenantDomain.Tenant, 0)
	for rows.Next() {
		tenant, err := scanMySQLTenant(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan tenant")
		}
		tenants = append(tenants, tenant)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate tenants")
	}
	return tenants, nil
}

func (m *MySQLTenantRepository) getOne(
	ctx context.Context,
	query string,
	args ...any,
) (*tenantDomain.Tenant, error) {
	querier := database.GetTx(ctx, m.db)

	tenant, err := scanMySQLTenant(querier.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, tenantDomain.ErrTenantRecordNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get tenant")
	}
	return tenant, nil
}

func scanMySQLTenant(row rowScanner) (*tenantDomain.Tenant, error) {
	var tenant tenantDomain.Tenant
	var idBytes []byte
	var plan string

	err := row.Scan(
		&idBytes,
		&tenant.Name,
		&tenant.RoutingKey,
		&plan,
		&tenant.IsActive,
		&tenant.IsAdmin,
		&tenant.CreatedAt,
		&tenant.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := tenant.ID.UnmarshalBinary(idBytes); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal tenant id")
	}
	tenant.Plan = tenantDomain.Plan(plan)
	return &tenant, nil
}
