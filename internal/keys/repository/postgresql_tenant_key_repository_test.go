package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/allisson/tenantvault/internal/crypto/domain"
	keysDomain "github.com/allisson/tenantvault/internal/keys/domain"
)

var keyColumns = []string{
	"id", "tenant_id", "version", "algorithm", "wrapped_key", "nonce", "tag", "active", "created_at", "deactivated_at",
}

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db, mock
}

func newKeyFixture(tenantID uuid.UUID, version uint32) *keysDomain.TenantKey {
	return &keysDomain.TenantKey{
		ID:         uuid.Must(uuid.NewV7()),
		TenantID:   tenantID,
		Version:    version,
		Algorithm:  cryptoDomain.AESGCM,
		WrappedKey: []byte("wrapped-key-bytes-of-32-length!!"),
		Nonce:      []byte("123456789012"),
		Tag:        []byte("1234567890123456"),
		Active:     true,
		CreatedAt:  time.Now().UTC().Truncate(time.Second),
	}
}

func TestPostgreSQLTenantKeyRepository_Create(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.Must(uuid.NewV7())

	t.Run("Success", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLTenantKeyRepository(db)
		key := newKeyFixture(tenantID, 1)

		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO tenant_keys")).
			WithArgs(key.ID, key.TenantID, int64(1), "aes-gcm", key.WrappedKey, key.Nonce, key.Tag, true, key.CreatedAt, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Create(ctx, key))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("UniqueViolationIsActivationConflict", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLTenantKeyRepository(db)

		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO tenant_keys")).
			WillReturnError(&pq.Error{Code: "23505"})

		err := repo.Create(ctx, newKeyFixture(tenantID, 1))
		assert.ErrorIs(t, err, keysDomain.ErrConcurrentActivationConflict)
	})

	t.Run("OtherError", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLTenantKeyRepository(db)

		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO tenant_keys")).
			WillReturnError(errors.New("connection reset"))

		err := repo.Create(ctx, newKeyFixture(tenantID, 1))
		require.Error(t, err)
		assert.NotErrorIs(t, err, keysDomain.ErrConcurrentActivationConflict)
	})
}

func TestPostgreSQLTenantKeyRepository_GetActive(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.Must(uuid.NewV7())

	t.Run("Success", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLTenantKeyRepository(db)
		key := newKeyFixture(tenantID, 3)

		rows := sqlmock.NewRows(keyColumns).AddRow(
			key.ID.String(), key.TenantID.String(), int64(3), "aes-gcm", key.WrappedKey, key.Nonce, key.Tag, true, key.CreatedAt, nil,
		)
		mock.ExpectQuery(regexp.QuoteMeta("FROM tenant_keys WHERE tenant_id = $1 AND active")).
			WithArgs(tenantID).
			WillReturnRows(rows)

		got, err := repo.GetActive(ctx, tenantID)
		require.NoError(t, err)
		assert.Equal(t, key.ID, got.ID)
		assert.Equal(t, uint32(3), got.Version)
		assert.Equal(t, cryptoDomain.AESGCM, got.Algorithm)
		assert.True(t, got.Active)
		assert.Nil(t, got.DeactivatedAt)
	})

	t.Run("NoActiveKey", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLTenantKeyRepository(db)

		mock.ExpectQuery(regexp.QuoteMeta("FROM tenant_keys")).WillReturnError(sql.ErrNoRows)

		_, err := repo.GetActive(ctx, tenantID)
		assert.ErrorIs(t, err, keysDomain.ErrNoActiveKey)
	})
}

func TestPostgreSQLTenantKeyRepository_GetByVersion(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.Must(uuid.NewV7())

	t.Run("Success", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLTenantKeyRepository(db)
		key := newKeyFixture(tenantID, 1)
		deactivatedAt := key.CreatedAt.Add(time.Hour)

		rows := sqlmock.NewRows(keyColumns).AddRow(
			key.ID.String(), key.TenantID.String(), int64(1), "chacha20-poly1305", key.WrappedKey, key.Nonce, key.Tag, false, key.CreatedAt, deactivatedAt,
		)
		mock.ExpectQuery(regexp.QuoteMeta("WHERE tenant_id = $1 AND version = $2")).
			WithArgs(tenantID, int64(1)).
			WillReturnRows(rows)

		got, err := repo.GetByVersion(ctx, tenantID, 1)
		require.NoError(t, err)
		assert.Equal(t, cryptoDomain.ChaCha20, got.Algorithm)
		assert.False(t, got.Active)
		require.NotNil(t, got.DeactivatedAt)
		assert.Equal(t, deactivatedAt, *got.DeactivatedAt)
	})

	t.Run("NotFound", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLTenantKeyRepository(db)

		mock.ExpectQuery(regexp.QuoteMeta("FROM tenant_keys")).WillReturnError(sql.ErrNoRows)

		_, err := repo.GetByVersion(ctx, tenantID, 9)
		assert.ErrorIs(t, err, keysDomain.ErrKeyNotFound)
	})
}

func TestPostgreSQLTenantKeyRepository_GetMaxVersion(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.Must(uuid.NewV7())

	t.Run("Existing", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLTenantKeyRepository(db)

		mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(version), 0) FROM tenant_keys")).
			WithArgs(tenantID).
			WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(int64(4)))

		version, err := repo.GetMaxVersion(ctx, tenantID)
		require.NoError(t, err)
		assert.Equal(t, uint32(4), version)
	})

	t.Run("Empty", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLTenantKeyRepository(db)

		mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(version), 0)")).
			WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(int64(0)))

		version, err := repo.GetMaxVersion(ctx, tenantID)
		require.NoError(t, err)
		assert.Zero(t, version)
	})
}

func TestPostgreSQLTenantKeyRepository_ActivateDeactivate(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.Must(uuid.NewV7())
	now := time.Now().UTC()

	t.Run("DeactivateActive", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLTenantKeyRepository(db)

		mock.ExpectExec(regexp.QuoteMeta("UPDATE tenant_keys SET active = FALSE, deactivated_at = $1 WHERE tenant_id = $2 AND active")).
			WithArgs(now, tenantID).
			WillReturnResult(sqlmock.NewResult(0, 0))

		require.NoError(t, repo.DeactivateActive(ctx, tenantID, now))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Activate", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLTenantKeyRepository(db)

		mock.ExpectExec(regexp.QuoteMeta("UPDATE tenant_keys SET active = TRUE")).
			WithArgs(tenantID, int64(2)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Activate(ctx, tenantID, 2))
	})

	t.Run("ActivateMissingVersion", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLTenantKeyRepository(db)

		mock.ExpectExec(regexp.QuoteMeta("UPDATE tenant_keys SET active = TRUE")).
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, repo.Activate(ctx, tenantID, 7), keysDomain.ErrKeyNotFound)
	})

	t.Run("ActivateConflict", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLTenantKeyRepository(db)

		mock.ExpectExec(regexp.QuoteMeta("UPDATE tenant_keys SET active = TRUE")).
			WillReturnError(&pq.Error{Code: "23505"})

		assert.ErrorIs(t, repo.Activate(ctx, tenantID, 2), keysDomain.ErrConcurrentActivationConflict)
	})

	t.Run("Deactivate", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLTenantKeyRepository(db)

		mock.ExpectExec(regexp.QuoteMeta("WHERE tenant_id = $2 AND version = $3")).
			WithArgs(now, tenantID, int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Deactivate(ctx, tenantID, 1, now))
	})
}

func TestPostgreSQLTenantKeyRepository_List(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.Must(uuid.NewV7())
	db, mock := newMockDB(t)
	repo := NewPostgreSQLTenantKeyRepository(db)

	v2 := newKeyFixture(tenantID, 2)
	v1 := newKeyFixture(tenantID, 1)
	rows := sqlmock.NewRows(keyColumns).
		AddRow(v2.ID.String(), tenantID.String(), int64(2), "aes-gcm", v2.WrappedKey, v2.Nonce, v2.Tag, true, v2.CreatedAt, nil).
		AddRow(v1.ID.String(), tenantID.String(), int64(1), "aes-gcm", v1.WrappedKey, v1.Nonce, v1.Tag, false, v1.CreatedAt, v2.CreatedAt)
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY version DESC")).
		WithArgs(tenantID).
		WillReturnRows(rows)

	keys, err := repo.List(ctx, tenantID)
	require.NoError(t, err)
	require.Len(t, keys, 2)
	assert.Equal(t, uint32(2), keys[0].Version)
	assert.Equal(t, uint32(1), keys[1].Version)
	assert.NotNil(t, keys[1].DeactivatedAt)
}
