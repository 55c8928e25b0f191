package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	credentialsDomain "github.com/allisson/tenantvault/internal/credentials/domain"
	"github.com/allisson/tenantvault/internal/database"
	apperrors "github.com/allisson/tenantvault/internal/errors"
	"github.com/allisson/tenantvault/internal/tenant/scope"
)

// MySQLCredentialRepository implements Credential persistence for MySQL.
// Uses BINARY(16) for UUID storage and a JSON text column for tags.
type MySQLCredentialRepository struct {
	db *sql.DB
}

// NewMySQLCredentialRepository creates a new MySQL Credential repository.
func NewMySQLCredentialRepository(db *sql.DB) *MySQLCredentialRepository {
	return &MySQLCredentialRepository{db: db}
}

// Create inserts a credential owned by the context's tenant.
func (m *MySQLCredentialRepository) Create(
	ctx context.Context,
	sc scope.Context,
	credential *credentialsDomain.Credential,
) error {
	tenantID, err := ownerOf(sc, credential)
	if err != nil {
		return err
	}
	tenantBin, idBin, err := marshalIDs(tenantID, credential.ID)
	if err != nil {
		return err
	}
	tags, err := marshalTags(credential.Tags)
	if err != nil {
		return err
	}

	querier := database.GetTx(ctx, m.db)
	ssh := sshColumnsOf(credential)

	query := `INSERT INTO credentials (` + credentialColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		idBin,
		tenantBin,
		credential.Name,
		credential.Username,
		credential.Email,
		credential.URL,
		string(credential.Category),
		credential.Notes,
		tags,
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
func (m *MySQLCredentialRepository) Update(
	ctx context.Context,
	sc scope.Context,
	credential *credentialsDomain.Credential,
) error {
	tenantID, err := ownerOf(sc, credential)
	if err != nil {
		return err
	}
	tenantBin, idBin, err := marshalIDs(tenantID, credential.ID)
	if err != nil {
		return err
	}
	tags, err := marshalTags(credential.Tags)
	if err != nil {
		return err
	}

	querier := database.GetTx(ctx, m.db)
	ssh := sshColumnsOf(credential)

	query := `UPDATE credentials
			  SET name = ?, username = ?, email = ?, url = ?, category = ?, notes = ?, tags = ?,
				  secret_ciphertext = ?, secret_nonce = ?, secret_tag = ?, secret_key_version = ?,
				  ssh_ciphertext = ?, ssh_nonce = ?, ssh_tag = ?, ssh_key_version = ?,
				  active = ?, last_rotated_at = ?, ssh_public_key = ?, ssh_fingerprint = ?,
				  updated_at = ?
			  WHERE tenant_id = ? AND id = ?`

	result, err := querier.ExecContext(
		ctx,
		query,
		credential.Name,
		credential.Username,
		credential.Email,
		credential.URL,
		string(credential.Category),
		credential.Notes,
		tags,
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
		tenantBin,
		idBin,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update credential")
	}
	return m.confirmAffected(ctx, sc, credential.ID, result)
}

// MarkViewed records when the credential's secret was last revealed.
func (m *MySQLCredentialRepository) MarkViewed(
	ctx context.Context,
	sc scope.Context,
	credentialID uuid.UUID,
	viewedAt time.Time,
) error {
	tenantID, err := tenantOf(sc)
	if err != nil {
		return err
	}
	tenantBin, idBin, err := marshalIDs(tenantID, credentialID)
	if err != nil {
		return err
	}

	querier := database.GetTx(ctx, m.db)

	result, err := querier.ExecContext(
		ctx,
		`UPDATE credentials SET viewed_at = ? WHERE tenant_id = ? AND id = ?`,
		viewedAt,
		tenantBin,
		idBin,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to mark credential viewed")
	}
	return m.confirmAffected(ctx, sc, credentialID, result)
}

// confirmAffected maps a zero-row update to ErrCredentialNotFound. MySQL reports
// zero affected rows when nothing changed, so a miss is confirmed by reading.
func (m *MySQLCredentialRepository) confirmAffected(
	ctx context.Context,
	sc scope.Context,
	credentialID uuid.UUID,
	result sql.Result,
) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get affected rows")
	}
	if rows == 0 {
		_, err := m.Get(ctx, sc, credentialID)
		return err
	}
	return nil
}

// Get retrieves one credential of the context's tenant.
func (m *MySQLCredentialRepository) Get(
	ctx context.Context,
	sc scope.Context,
	credentialID uuid.UUID,
) (*credentialsDomain.Credential, error) {
	tenantID, err := tenantOf(sc)
	if err != nil {
		return nil, err
	}
	tenantBin, idBin, err := marshalIDs(tenantID, credentialID)
	if err != nil {
		return nil, err
	}

	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + credentialColumns + ` FROM credentials WHERE tenant_id = ? AND id = ?`

	credential, err := scanMySQLCredential(querier.QueryRowContext(ctx, query, tenantBin, idBin))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, credentialsDomain.ErrCredentialNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get credential")
	}
	return credential, nil
}

// List retrieves credentials of the context's tenant ordered by name.
func (m *MySQLCredentialRepository) List(
	ctx context.Context,
	sc scope.Context,
	filter credentialsDomain.ListFilter,
) ([]*credentialsDomain.Credential, error) {
	tenantID, err := tenantOf(sc)
	if err != nil {
		return nil, err
	}
	tenantBin, err := tenantID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal tenant id")
	}

	conditions := []string{"tenant_id = ?"}
	args := []any{tenantBin}
	if filter.Category != nil {
		conditions = append(conditions, "category = ?")
		args = append(args, string(*filter.Category))
	}
	if filter.Active != nil {
		conditions = append(conditions, "active = ?")
		args = append(args, *filter.Active)
	}
	if filter.RotatedBefore != nil {
		conditions = append(conditions, "(last_rotated_at IS NULL OR last_rotated_at < ?)")
		args = append(args, *filter.RotatedBefore)
	}
	args = append(args, filter.Limit, filter.Offset)

	query := `SELECT ` + credentialColumns + ` FROM credentials WHERE ` +
		strings.Join(conditions, " AND ") + ` ORDER BY name, id LIMIT ? OFFSET ?`
	return m.query(ctx, query, args...)
}

// ListSealedBefore returns up to limit credentials with an envelope under a key
// version older than version.
func (m *MySQLCredentialRepository) ListSealedBefore(
	ctx context.Context,
	sc scope.Context,
	version uint32,
	limit int,
) ([]*credentialsDomain.Credential, error) {
	tenantID, err := tenantOf(sc)
	if err != nil {
		return nil, err
	}
	tenantBin, err := tenantID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal tenant id")
	}

	query := `SELECT ` + credentialColumns + ` FROM credentials
			  WHERE tenant_id = ? AND (secret_key_version < ? OR ssh_key_version < ?)
			  ORDER BY id
			  LIMIT ?`
	return m.query(ctx, query, tenantBin, int64(version), int64(version), limit)
}

// Delete removes a credential of the context's tenant.
func (m *MySQLCredentialRepository) Delete(
	ctx context.Context,
	sc scope.Context,
	credentialID uuid.UUID,
) error {
	tenantID, err := tenantOf(sc)
	if err != nil {
		return err
	}
	tenantBin, idBin, err := marshalIDs(tenantID, credentialID)
	if err != nil {
		return err
	}

	querier := database.GetTx(ctx, m.db)

	result, err := querier.ExecContext(
		ctx,
		`DELETE FROM credentials WHERE tenant_id = ? AND id = ?`,
		tenantBin,
		idBin,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete credential")
	}
	return requireAffected(result)
}

func (m *MySQLCredentialRepository) query(
	ctx context.Context,
	query string,
	args ...any,
) ([]*credentialsDomain.Credential, error) {
	querier := database.GetTx(ctx, m.db)

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list credentials")
	}
	defer rows.Close() //nolint:errcheck

	credentials := make([]*credentialsDomain.Credential, 0)
	for rows.Next() {
		credential, err := scanMySQLCredential(rows)
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

func scanMySQLCredential(row rowScanner) (*credentialsDomain.Credential, error) {
	var credential credentialsDomain.Credential
	var idBin, tenantBin []byte
	var category string
	var tags []byte
	var secretVersion int64
	var ssh sshColumns
	var lastRotatedAt, viewedAt sql.NullTime
	var sshPublicKey sql.NullString

	err := row.Scan(
		&idBin,
		&tenantBin,
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
		&sshPublicKey,
		&credential.SSHFingerprint,
		&viewedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := credential.ID.UnmarshalBinary(idBin); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal credential id")
	}
	if err := credential.TenantID.UnmarshalBinary(tenantBin); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal tenant id")
	}
	credential.Tags = make([]string, 0)
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &credential.Tags); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal credential tags")
		}
	}

	credential.Category = credentialsDomain.Category(category)
	credential.Secret.KeyVersion = uint32(secretVersion)
	credential.SSHPrivateKey = ssh.envelope()
	credential.SSHPublicKey = sshPublicKey.String
	credential.LastRotatedAt = nullTimePtr(lastRotatedAt)
	credential.ViewedAt = nullTimePtr(viewedAt)
	return &credential, nil
}

func marshalIDs(tenantID, credentialID uuid.UUID) ([]byte, []byte, error) {
	tenantBin, err := tenantID.MarshalBinary()
	if err != nil {
		return nil, nil, apperrors.Wrap(err, "failed to marshal tenant id")
	}
	idBin, err := credentialID.MarshalBinary()
	if err != nil {
		return nil, nil, apperrors.Wrap(err, "failed to marshal credential id")
	}
	return tenantBin, idBin, nil
}

func marshalTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return "", apperrors.Wrap(err, "failed to marshal credential tags")
	}
	return string(data), nil
}
