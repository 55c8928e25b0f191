// Package repository implements tenant-scoped credential persistence.
//
// Every method takes the scope.Context of the caller and filters on its tenant id;
// there is no method that reads or writes a credential without one. Envelopes are
// stored in separate ciphertext, nonce, tag and key version columns.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	credentialsDomain "github.com/allisson/tenantvault/internal/credentials/domain"
	"github.com/allisson/tenantvault/internal/database"
	apperrors "github.com/allisson/tenantvault/internal/errors"
	tenantDomain "github.com/allisson/tenantvault/internal/tenant/domain"
	"github.com/allisson/tenantvault/internal/tenant/scope"
)

const credentialColumns = `id, tenant_id, name, username, email, url, category, notes, tags,
	secret_ciphertext, secret_nonce, secret_tag, secret_key_version,
	ssh_ciphertext, ssh_nonce, ssh_tag, ssh_key_version,
	active, last_rotated_at, created_at, updated_at,
	ssh_public_key, ssh_fingerprint, viewed_at`

// PostgreSQLCredentialRepository implements Credential persistence for PostgreSQL.
type PostgreSQLCredentialRepository struct {
	db *sql.DB
}

// NewPostgreSQLCredentialRepository creates a new PostgreSQL Credential repository.
func NewPostgreSQLCredentialRepository(db *sql.DB) *PostgreSQLCredentialRepository {
	return &PostgreSQLCredentialRepository{db: db}
}

// Create inserts a credential owned by the context's tenant.
func (p *PostgreSQLCredentialRepository) Create(
	ctx context.Context,
	sc scope.Context,
	credential *credentialsDomain.Credential,
) error {
	tenantID, err := ownerOf(sc, credential)
	if err != nil {
		return err
	}

	querier := database.GetTx(ctx, p.db)
	ssh := sshColumnsOf(credential)

	query := `INSERT INTO credentials (` + credentialColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)`

	_, err = querier.ExecContext(
		ctx,
		query,
		credential.ID,
		tenantID,
		credential.Name,
		credential.Username,
		credential.Email,
		credential.URL,
		string(credential.Category),
		credential.Notes,
		pq.Array(credential.Tags),
		credential.Secret.Ciphertext,
		credential.Secret.Nonce,
		credential.Secret.Tag,
		int64(credential.Secret.KeyVersion),
		ssh.ciphertext,
		ssh.nonce,
		ssh.tag,
		ssh.keyVersion,
		credential.Active,
		credential.LastRotatedAt,
		credential.CreatedAt,
		credential.UpdatedAt,
		credential.SSHPublicKey,
		credential.SSHFingerprint,
		credential.ViewedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.Wrap(apperrors.ErrConflict, "credential already exists")
		}
		return apperrors.Wrap(err, "failed to create credential")
	}
	return nil
}

// Update persists metadata and envelopes of an existing credential.
func (p *PostgreSQLCredentialRepository) Update(
	ctx context.Context,
	sc scope.Context,
	credential *credentialsDomain.Credential,
) error {
	tenantID, err := ownerOf(sc, credential)
	if err != nil {
		return err
	}

	querier := database.GetTx(ctx, p.db)
	ssh := sshColumnsOf(credential)

	query := `UPDATE credentials
			  SET name = $1, username = $2, email = $3, url = $4, category = $5, notes = $6, tags = $7,
				  secret_ciphertext = $8, secret_nonce = $9, secret_tag = $10, secret_key_version = $11,
				  ssh_ciphertext = $12, ssh_nonce = $13, ssh_tag = $14, ssh_key_version = $15,
				  active = $16, last_rotated_at = $17, ssh_public_key = $18, ssh_fingerprint = $19,
				  updated_at = $20
			  WHERE tenant_id = $21 AND id = $22`

	result, err := querier.ExecContext(
		ctx,
		query,
		credential.Name,
		credential.Username,
		credential.Email,
		credential.URL,
		string(credential.Category),
		credential.Notes,
		pq.Array(credential.Tags),
		credential.Secret.Ciphertext,
		credential.Secret.Nonce,
		credential.Secret.Tag,
		int64(credential.Secret.KeyVersion),
		ssh.ciphertext,
		ssh.nonce,
		ssh.tag,
		ssh.keyVersion,
		credential.Active,
		credential.LastRotatedAt,
		credential.SSHPublicKey,
		credential.SSHFingerprint,
		credential.UpdatedAt,
		tenantID,
		credential.ID,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update credential")
	}
	return requireAffected(result)
}

// MarkViewed records when the credential's secret was last revealed.
func (p *PostgreSQLCredentialRepository) MarkViewed(
	ctx context.Context,
	sc scope.Context,
	credentialID uuid.UUID,
	viewedAt time.Time,
) error {
	tenantID, err := tenantOf(sc)
	if err != nil {
		return err
	}

	querier := database.GetTx(ctx, p.db)

	result, err := querier.ExecContext(
		ctx,
		`UPDATE credentials SET viewed_at = $1 WHERE tenant_id = $2 AND id = $3`,
		viewedAt,
		tenantID,
		credentialID,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to mark credential viewed")
	}
	return requireAffected(result)
}

// Get retrieves one credential of the context's tenant.
func (p *PostgreSQLCredentialRepository) Get(
	ctx context.Context,
	sc scope.Context,
	credentialID uuid.UUID,
) (*credentialsDomain.Credential, error) {
	tenantID, err := tenantOf(sc)
	if err != nil {
		return nil, err
	}

	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + credentialColumns + ` FROM credentials WHERE tenant_id = $1 AND id = $2`

	credential, err := scanPostgresCredential(querier.QueryRowContext(ctx, query, tenantID, credentialID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, credentialsDomain.ErrCredentialNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get credential")
	}
	return credential, nil
}

// List retrieves credentials of the context's tenant ordered by name.
func (p *PostgreSQLCredentialRepository) List(
	ctx context.Context,
	sc scope.Context,
	filter credentialsDomain.ListFilter,
) ([]*credentialsDomain.Credential, error) {
	tenantID, err := tenantOf(sc)
	if err != nil {
		return nil, err
	}

	conditions := []string{"tenant_id = $1"}
	args := []any{tenantID}
	if filter.Category != nil {
		args = append(args, string(*filter.Category))
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)))
	}
	if filter.RotatedBefore != nil {
		args = append(args, *filter.RotatedBefore)
		conditions = append(
			conditions,
			fmt.Sprintf("(last_rotated_at IS NULL OR last_rotated_at < $%d)", len(args)),
		)
	}
	args = append(args, filter.Limit, filter.Offset)

	query := fmt.Sprintf(
		`SELECT %s FROM credentials WHERE %s ORDER BY name, id LIMIT $%d OFFSET $%d`,
		credentialColumns,
		strings.Join(conditions, " AND "),
		len(args)-1,
		len(args),
	)
	return p.query(ctx, query, args...)
}

// ListSealedBefore returns up to limit credentials with an envelope under a key
// version older than version.
func (p *PostgreSQLCredentialRepository) ListSealedBefore(
	ctx context.Context,
	sc scope.Context,
	version uint32,
	limit int,
) ([]*credentialsDomain.Credential, error) {
	tenantID, err := tenantOf(sc)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + credentialColumns + ` FROM credentials
			  WHERE tenant_id = $1 AND (secret_key_version < $2 OR ssh_key_version < $2)
			  ORDER BY id
			  LIMIT $3`
	return p.query(ctx, query, tenantID, int64(version), limit)
}

// Delete removes a credential of the context's tenant.
func (p *PostgreSQLCredentialRepository) Delete(
	ctx context.Context,
	sc scope.Context,
	credentialID uuid.UUID,
) error {
	tenantID, err := tenantOf(sc)
	if err != nil {
		return err
	}

	querier := database.GetTx(ctx, p.db)

	result, err := querier.ExecContext(
		ctx,
		`DELETE FROM credentials WHERE tenant_id = $1 AND id = $2`,
		tenantID,
		credentialID,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete credential")
	}
	return requireAffected(result)
}

func (p *PostgreSQLCredentialRepository) query(
	ctx context.Context,
	query string,
	args ...any,
) ([]*credentialsDomain.Credential, error) {
	querier := database.GetTx(ctx, p.db)

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list credentials")
	}
	defer rows.Close() //nolint:errcheck

	credentials := make([]*credentialsDomain.Credential, 0)
	for rows.Next() {
		credential, err := scanPostgresCredential(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan credential")
		}
		credentials = append(credentials, credential)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate credentials")
	}
	return credentials, nil
}

func scanPostgresCredential(row rowScanner) (*credentialsDomain.Credential, error) {
	var credential credentialsDomain.Credential
	var category string
	var tags pq.StringArray
	var secretVersion int64
	var ssh sshColumns
	var lastRotatedAt, viewedAt sql.NullTime

	err := row.Scan(
		&credential.ID,
		&credential.TenantID,
		&credential.Name,
		&credential.Username,
		&credential.Email,
		&credential.URL,
		&category,
		&credential.Notes,
		&tags,
		&credential.Secret.Ciphertext,
		&credential.Secret.Nonce,
		&credential.Secret.Tag,
		&secretVersion,
		&ssh.ciphertext,
		&ssh.nonce,
		&ssh.tag,
		&ssh.keyVersion,
		&credential.Active,
		&lastRotatedAt,
		&credential.CreatedAt,
		&credential.UpdatedAt,
		&credential.SSHPublicKey,
		&credential.SSHFingerprint,
		&viewedAt,
	)
	if err != nil {
		return nil, err
	}

	credential.Category = credentialsDomain.Category(category)
	credential.Tags = []string(tags)
	credential.Secret.KeyVersion = uint32(secretVersion)
	credential.SSHPrivateKey = ssh.envelope()
	credential.LastRotatedAt = nullTimePtr(lastRotatedAt)
	credential.ViewedAt = nullTimePtr(viewedAt)
	return &credential, nil
}

// tenantOf returns the tenant every statement is filtered on.
func tenantOf(sc scope.Context) (uuid.UUID, error) {
	if !sc.IsResolved() {
		return uuid.Nil, tenantDomain.ErrTenantRequired
	}
	return sc.TenantID(), nil
}

// ownerOf rejects writes of a credential that names a different tenant than sc.
func ownerOf(sc scope.Context, credential *credentialsDomain.Credential) (uuid.UUID, error) {
	tenantID, err := tenantOf(sc)
	if err != nil {
		return uuid.Nil, err
	}
	if credential.TenantID != tenantID {
		return uuid.Nil, tenantDomain.ErrCrossTenantAccessDenied
	}
	return tenantID, nil
}

func requireAffected(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get affected rows")
	}
	if rows == 0 {
		return credentialsDomain.ErrCredentialNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}
