// Package repository implements tenant persistence and the cached tenant lookup
// used by the resolver.
//
// Provides PostgreSQL and MySQL implementations with transaction support via database.GetTx().
// PostgreSQL uses native UUID types, MySQL uses BINARY(16) types. Lookups here are
// the only reads in the system that run without a tenant filter.
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

const postgresTenantColumns = `id, name, routing_key, plan, is_active, is_admin, created_at, updated_at`

// PostgreSQLTenantRepository implements Tenant persistence for PostgreSQL.
type PostgreSQLTenantRepository struct {
	db *sql.DB
}

// NewPostgreSQLTenantRepository creates a new PostgreSQL Tenant repository.
func NewPostgreSQLTenantRepository(db *sql.DB) *PostgreSQLTenantRepository {
	return &PostgreSQLTenantRepository{db: db}
}

// Create inserts a new Tenant. A duplicate routing key, or a second admin tenant,
// returns ErrRoutingKeyTaken.
func (p *PostgreSQLTenantRepository) Create(ctx context.Context, tenant *tenantDomain.Tenant) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO tenants (id, name, routing_key, plan, is_active, is_admin, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := querier.ExecContext(
		ctx,
		query,
		tenant.ID,
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

// Update persists the mutable attributes of a Tenant. The routing key and the
// admin flag are never updated.
func (p *PostgreSQLTenantRepository) Update(ctx context.Context, tenant *tenantDomain.Tenant) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE tenants
			  SET name = $1,
				  plan = $2,
				  is_active = $3,
				  updated_at = $4
			  WHERE id = $5`

	result, err := querier.ExecContext(
		ctx,
		query,
		tenant.Name,
		string(tenant.Plan),
		tenant.IsActive,
		tenant.UpdatedAt,
		tenant.ID,
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
func (p *PostgreSQLTenantRepository) Get(ctx context.Context, tenantID uuid.UUID) (*tenantDomain.Tenant, error) {
	query := `SELECT ` + postgresTenantColumns + ` FROM tenants WHERE id = $1`
	return p.getOne(ctx, query, tenantID)
}

// GetByRoutingKey retrieves a Tenant by routing key.
func (p *PostgreSQLTenantRepository) GetByRoutingKey(
	ctx context.Context,
	routingKey string,
) (*tenantDomain.Tenant, error) {
	query := `SELECT ` + postgresTenantColumns + ` FROM tenants WHERE routing_key = $1`
	return p.getOne(ctx, query, routingKey)
}

// GetAdmin retrieves the platform-admin tenant.
func (p *PostgreSQLTenantRepository) GetAdmin(ctx context.Context) (*tenantDomain.Tenant, error) {
	query := `SELECT ` + postgresTenantColumns + ` FROM tenants WHERE is_admin = TRUE`
	return p.getOne(ctx, query)
}

// List retrieves all tenants ordered by routing key.
func (p *PostgreSQLTenantRepository) List(ctx context.Context) ([]*tenantDomain.Tenant, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + postgresTenantColumns + ` FROM tenants ORDER BY routing_key`

	rows, err := querier.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list tenants")
	}
	defer func() {
		_ = rows.Close()
	}()

	tenants := make([]*tenantDomain.Tenant, 0)
	for rows.Next() {
		tenant, err := scanPostgresTenant(rows)
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

func (p *PostgreSQLTenantRepository) getOne(
	ctx context.Context,
	query string,
	args ...any,
) (*tenantDomain.Tenant, error) {
	querier := database.GetTx(ctx, p.db)

	tenant, err := scanPostgresTenant(querier.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, tenantDomain.ErrTenantRecordNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get tenant")
	}
	return tenant, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPostgresTenant(row rowScanner) (*tenantDomain.Tenant, error) {
	var tenant tenantDomain.Tenant
	var plan string

	err := row.Scan(
		&tenant.ID,
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
	tenant.Plan = tenantDomain.Plan(plan)
	return &tenant, nil
}
