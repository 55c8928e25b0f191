package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	cryptoDomain "github.com/allisson/tenantvault/internal/crypto/domain"
	cryptoService "github.com/allisson/tenantvault/internal/crypto/service"
	"github.com/allisson/tenantvault/internal/database"
	apperrors "github.com/allisson/tenantvault/internal/errors"
	keysDomain "github.com/allisson/tenantvault/internal/keys/domain"
	"github.com/allisson/tenantvault/internal/keys/keystest"
	"github.com/allisson/tenantvault/internal/keys/usecase/mocks"
	"github.com/allisson/tenantvault/internal/metrics"
	tenantDomain "github.com/allisson/tenantvault/internal/tenant/domain"
	"github.com/allisson/tenantvault/internal/tenant/scope"
	"github.com/allisson/tenantvault/internal/tenant/scope/scopetest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recordingSecurityMetrics struct {
	mu    sync.Mutex
	kinds []string
}

func (r *recordingSecurityMetrics) RecordSecurityEvent(_ context.Context, kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds = append(r.kinds, kind)
}

func (r *recordingSecurityMetrics) Kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.kinds...)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("entropy source unavailable")
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestDeriver(secret string) *cryptoService.WrappingKeyDeriver {
	return cryptoService.NewWrappingKeyDeriver(cryptoService.NewStaticRootSecret(secret), "test-salt", 1000)
}

type testDeps struct {
	repo      TenantKeyRepository
	txManager database.TxManager
	wrapping  cryptoService.WrappingKeyProvider
	security  metrics.SecurityMetrics
	retries   int
}

func newTestUseCase(t *testing.T, deps testDeps) *keyHierarchyUseCase {
	t.Helper()

	if deps.repo == nil {
		deps.repo = keystest.NewRepository()
	}
	if deps.txManager == nil {
		deps.txManager = &keystest.TxManager{}
	}
	if deps.wrapping == nil {
		deps.wrapping = newTestDeriver("root-secret-for-tests")
	}
	if deps.security == nil {
		deps.security = metrics.NewNoOpSecurityMetrics()
	}
	if deps.retries == 0 {
		deps.retries = 5
	}

	logger := newTestLogger()
	uc := NewKeyHierarchyUseCase(
		deps.txManager,
		deps.repo,
		cryptoService.NewCodec(cryptoService.NewAEADManager()),
		deps.wrapping,
		scope.NewGuard(deps.security, logger),
		cryptoDomain.AESGCM,
		deps.retries,
		deps.security,
		logger,
	).(*keyHierarchyUseCase)
	uc.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	return uc
}

func TestKeyHierarchyUseCase_GetActiveKey(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_CreatesFirstVersionOnFirstUse", func(t *testing.T) {
		repo := keystest.NewRepository()
		uc := newTestUseCase(t, testDeps{repo: repo})
		sc := scopetest.Resolve(t, scopetest.NewTenant("acme"))

		first, err := uc.GetActiveKey(ctx, sc)
		require.NoError(t, err)
		assert.Equal(t, uint32(1), first.Version)
		assert.Equal(t, sc.TenantID(), first.TenantID)
		assert.Equal(t, cryptoDomain.AESGCM, first.Algorithm)
		assert.Len(t, first.Key, cryptoDomain.KeySize)

		second, err := uc.GetActiveKey(ctx, sc)
		require.NoError(t, err)
		assert.Equal(t, uint32(1), second.Version)
		assert.Equal(t, first.Key, second.Key)

		keys, err := repo.List(ctx, sc.TenantID())
		require.NoError(t, err)
		require.Len(t, keys, 1)
		assert.NotEqual(t, first.Key, keys[0].WrappedKey)
	})

	t.Run("Success_TenantsHaveIndependentKeys", func(t *testing.T) {
		uc := newTestUseCase(t, testDeps{})
		acme := scopetest.Resolve(t, scopetest.NewTenant("acme"))
		globex := scopetest.Resolve(t, scopetest.NewTenant("globex"))

		acmeKey, err := uc.GetActiveKey(ctx, acme)
		require.NoError(t, err)
		globexKey, err := uc.GetActiveKey(ctx, globex)
		require.NoError(t, err)

		assert.Equal(t, uint32(1), acmeKey.Version)
		assert.Equal(t, uint32(1), globexKey.Version)
		assert.NotEqual(t, acmeKey.Key, globexKey.Key)
	})

	t.Run("Success_ConcurrentFirstUseCreatesOneActiveKey", func(t *testing.T) {
		repo := keystest.NewRepository()
		txManager := &keystest.TxManager{}
		// Two use case instances stand in for two worker processes.
		workers := []*keyHierarchyUseCase{
			newTestUseCase(t, testDeps{repo: repo, txManager: txManager}),
			newTestUseCase(t, testDeps{repo: repo, txManager: txManager}),
		}
		sc := scopetest.Resolve(t, scopetest.NewTenant("acme"))

		const callers = 20
		results := make([]*keysDomain.DataKey, callers)
		errs := make([]error, callers)

		var wg sync.WaitGroup
		start := make(chan struct{})
		for i := range callers {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				<-start
				results[i], errs[i] = workers[i%len(workers)].GetActiveKey(ctx, sc)
			}(i)
		}
		close(start)
		wg.Wait()

		for i := range callers {
			require.NoError(t, errs[i])
			assert.Equal(t, uint32(1), results[i].Version)
			assert.Equal(t, results[0].Key, results[i].Key)
		}
		assert.Equal(t, 1, repo.ActiveCount(sc.TenantID()))
	})

	t.Run("Error_UnresolvedContext", func(t *testing.T) {
		uc := newTestUseCase(t, testDeps{})

		_, err := uc.GetActiveKey(ctx, scope.Context{})
		assert.ErrorIs(t, err, tenantDomain.ErrTenantRequired)
	})

	t.Run("Error_ConflictRetriesExhausted", func(t *testing.T) {
		repo := &mocks.MockTenantKeyRepository{}
		uc := newTestUseCase(t, testDeps{repo: repo, retries: 2})
		sc := scopetest.Resolve(t, scopetest.NewTenant("acme"))

		repo.On("GetActive", mock.Anything, sc.TenantID()).Return(nil, keysDomain.ErrNoActiveKey)
		repo.On("GetMaxVersion", mock.Anything, sc.TenantID()).Return(uint32(0), nil)
		repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.TenantKey")).
			Return(keysDomain.ErrConcurrentActivationConflict)

		_, err := uc.GetActiveKey(ctx, sc)
		assert.ErrorIs(t, err, keysDomain.ErrConcurrentActivationConflict)
		assert.ErrorIs(t, err, apperrors.ErrUnavailable)
		repo.AssertNumberOfCalls(t, "Create", 3)
	})

	t.Run("Error_RepositoryFailureIsNotRetried", func(t *testing.T) {
		repo := &mocks.MockTenantKeyRepository{}
		uc := newTestUseCase(t, testDeps{repo: repo})
		sc := scopetest.Resolve(t, scopetest.NewTenant("acme"))
		dbErr := errors.New("connection refused")

		repo.On("GetActive", mock.Anything, sc.TenantID()).Return(nil, keysDomain.ErrNoActiveKey)
		repo.On("GetMaxVersion", mock.Anything, sc.TenantID()).Return(uint32(0), nil)
		repo.On("Create", mock.Anything, mock.Anything).Return(dbErr).Once()

		_, err := uc.GetActiveKey(ctx, sc)
		assert.ErrorIs(t, err, dbErr)
		repo.AssertExpectations(t)
	})

	t.Run("Error_RandomSourceFailure", func(t *testing.T) {
		repo := keystest.NewRepository()
		uc := newTestUseCase(t, testDeps{repo: repo})
		uc.random = failingReader{}
		sc := scopetest.Resolve(t, scopetest.NewTenant("acme"))

		_, err := uc.GetActiveKey(ctx, sc)
		assert.ErrorIs(t, err, cryptoDomain.ErrCryptoFault)
		assert.Zero(t, repo.ActiveCount(sc.TenantID()))
	})

	t.Run("Error_RootSecretUnavailable", func(t *testing.T) {
		repo := keystest.NewRepository()
		uc := newTestUseCase(t, testDeps{repo: repo, wrapping: newTestDeriver("")})
		sc := scopetest.Resolve(t, scopetest.NewTenant("acme"))

		_, err := uc.GetActiveKey(ctx, sc)
		assert.ErrorIs(t, err, cryptoDomain.ErrRootSecretUnavailable)
		assert.Zero(t, repo.ActiveCount(sc.TenantID()))
	})

	t.Run("Error_WrongRootSecretIsCryptoFault", func(t *testing.T) {
		repo := keystest.NewRepository()
		security := &recordingSecurityMetrics{}
		sc := scopetest.Resolve(t, scopetest.NewTenant("acme"))

		_, err := newTestUseCase(t, testDeps{repo: repo}).EnsureActiveKey(ctx, sc)
		require.NoError(t, err)

		other := newTestUseCase(t, testDeps{repo: repo, wrapping: newTestDeriver("another-root-secret"), security: security})
		_, err = other.GetActiveKey(ctx, sc)
		assert.ErrorIs(t, err, cryptoDomain.ErrCryptoFault)
		assert.Equal(t, []string{metrics.SecurityEventCryptoFault}, security.Kinds())
	})
}

func TestKeyHierarchyUseCase_GetKeyByVersion(t *testing.T) {
	ctx := context.Background()

	t.Run("Error_MissingVersion", func(t *testing.T) {
		security := &recordingSecurityMetrics{}
		uc := newTestUseCase(t, testDeps{security: security})
		sc := scopetest.Resolve(t, scopetest.NewTenant("acme"))

		_, err := uc.GetKeyByVersion(ctx, sc, 3)
		assert.ErrorIs(t, err, keysDomain.ErrKeyNotFound)
		assert.ErrorIs(t, err, apperrors.ErrIntegrity)
		assert.Equal(t, []string{metrics.SecurityEventKeyNotFound}, security.Kinds())
	})

	t.Run("Error_RowOfAnotherTenant", func(t *testing.T) {
		repo := &mocks.MockTenantKeyRepository{}
		security := &recordingSecurityMetrics{}
		uc := newTestUseCase(t, testDeps{repo: repo, security: security})
		acme := scopetest.Resolve(t, scopetest.NewTenant("acme"))

		foreign := &keysDomain.TenantKey{
			ID:        uuid.Must(uuid.NewV7()),
			TenantID:  uuid.Must(uuid.NewV7()),
			Version:   1,
			Algorithm: cryptoDomain.AESGCM,
			Active:    true,
		}
		repo.On("GetByVersion", mock.Anything, acme.TenantID(), uint32(1)).Return(foreign, nil).Once()

		_, err := uc.GetKeyByVersion(ctx, acme, 1)
		assert.ErrorIs(t, err, keysDomain.ErrKeyNotFound)
		assert.Equal(t, []string{metrics.SecurityEventKeyNotFound}, security.Kinds())
		repo.AssertExpectations(t)
	})

	t.Run("Error_WrappedKeyMovedToAnotherTenant", func(t *testing.T) {
		repo := keystest.NewRepository()
		uc := newTestUseCase(t, testDeps{repo: repo})
		acme := scopetest.Resolve(t, scopetest.NewTenant("acme"))
		globex := scopetest.Resolve(t, scopetest.NewTenant("globex"))

		tk, err := uc.EnsureActiveKey(ctx, acme)
		require.NoError(t, err)

		moved := *tk
		moved.ID = uuid.Must(uuid.NewV7())
		moved.TenantID = globex.TenantID()
		repo.Put(&moved)

		_, err = uc.GetKeyByVersion(ctx, globex, tk.Version)
		assert.ErrorIs(t, err, cryptoDomain.ErrCryptoFault)
	})

	t.Run("Error_UnresolvedContext", func(t *testing.T) {
		uc := newTestUseCase(t, testDeps{})

		_, err := uc.GetKeyByVersion(ctx, scope.Context{}, 1)
		assert.ErrorIs(t, err, tenantDomain.ErrTenantRequired)
	})
}

func TestKeyHierarchyUseCase_Rotate(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_OldVersionsStayReadable", func(t *testing.T) {
		repo := keystest.NewRepository()
		uc := newTestUseCase(t, testDeps{repo: repo})
		sc := scopetest.Resolve(t, scopetest.NewTenant("acme"))

		v1, err := uc.GetActiveKey(ctx, sc)
		require.NoError(t, err)

		rotated, err := uc.Rotate(ctx, sc)
		require.NoError(t, err)
		assert.Equal(t, uint32(2), rotated.Version)
		assert.True(t, rotated.Active)

		active, err := uc.GetActiveKey(ctx, sc)
		require.NoError(t, err)
		assert.Equal(t, uint32(2), active.Version)
		assert.NotEqual(t, v1.Key, active.Key)

		old, err := uc.GetKeyByVersion(ctx, sc, 1)
		require.NoError(t, err)
		assert.Equal(t, v1.Key, old.Key)

		keys, err := uc.List(ctx, sc)
		require.NoError(t, err)
		require.Len(t, keys, 2)
		assert.Equal(t, uint32(2), keys[0].Version)
		assert.False(t, keys[1].Active)
		assert.NotNil(t, keys[1].DeactivatedAt)
		assert.Equal(t, 1, repo.ActiveCount(sc.TenantID()))
	})

	t.Run("Success_WithoutPriorKey", func(t *testing.T) {
		uc := newTestUseCase(t, testDeps{})
		sc := scopetest.Resolve(t, scopetest.NewTenant("acme"))

		rotated, err := uc.Rotate(ctx, sc)
		require.NoError(t, err)
		assert.Equal(t, uint32(1), rotated.Version)
	})

	t.Run("Success_ConcurrentRotationsKeepOneActiveKey", func(t *testing.T) {
		repo := keystest.NewRepository()
		uc := newTestUseCase(t, testDeps{repo: repo})
		sc := scopetest.Resolve(t, scopetest.NewTenant("acme"))

		var wg sync.WaitGroup
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := uc.Rotate(ctx, sc)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		keys, err := uc.List(ctx, sc)
		require.NoError(t, err)
		assert.Len(t, keys, 8)
		assert.Equal(t, 1, repo.ActiveCount(sc.TenantID()))
		assert.Equal(t, uint32(8), keys[0].Version)
		assert.True(t, keys[0].Active)
	})

	t.Run("Error_UnresolvedContext", func(t *testing.T) {
		uc := newTestUseCase(t, testDeps{})

		_, err := uc.Rotate(ctx, scope.Context{})
		assert.ErrorIs(t, err, tenantDomain.ErrTenantRequired)
	})
}

func TestKeyHierarchyUseCase_ActivateDeactivate(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_ReactivateOlderVersion", func(t *testing.T) {
		repo := keystest.NewRepository()
		uc := newTestUseCase(t, testDeps{repo: repo})
		sc := scopetest.Resolve(t, scopetest.NewTenant("acme"))

		_, err := uc.Rotate(ctx, sc)
		require.NoError(t, err)
		_, err = uc.Rotate(ctx, sc)
		require.NoError(t, err)

		require.NoError(t, uc.Activate(ctx, sc, 1))

		active, err := uc.GetActiveKey(ctx, sc)
		require.NoError(t, err)
		assert.Equal(t, uint32(1), active.Version)
		assert.Equal(t, 1, repo.ActiveCount(sc.TenantID()))
	})

	t.Run("Success_ActivateAlreadyActive", func(t *testing.T) {
		uc := newTestUseCase(t, testDeps{})
		sc := scopetest.Resolve(t, scopetest.NewTenant("acme"))

		_, err := uc.EnsureActiveKey(ctx, sc)
		require.NoError(t, err)
		assert.NoError(t, uc.Activate(ctx, sc, 1))
	})

	t.Run("Error_ActivateMissingVersion", func(t *testing.T) {
		uc := newTestUseCase(t, testDeps{})
		sc := scopetest.Resolve(t, scopetest.NewTenant("acme"))

		assert.ErrorIs(t, uc.Activate(ctx, sc, 4), keysDomain.ErrKeyNotFound)
	})

	t.Run("Success_DeactivatingActiveKeyLeadsToNextVersion", func(t *testing.T) {
		uc := newTestUseCase(t, testDeps{})
		sc := scopetest.Resolve(t, scopetest.NewTenant("acme"))

		_, err := uc.EnsureActiveKey(ctx, sc)
		require.NoError(t, err)
		require.NoError(t, uc.Deactivate(ctx, sc, 1))

		active, err := uc.GetActiveKey(ctx, sc)
		require.NoError(t, err)
		assert.Equal(t, uint32(2), active.Version)

		old, err := uc.GetKeyByVersion(ctx, sc, 1)
		require.NoError(t, err)
		assert.Len(t, old.Key, cryptoDomain.KeySize)
	})

	t.Run("Error_DeactivateMissingVersion", func(t *testing.T) {
		uc := newTestUseCase(t, testDeps{})
		sc := scopetest.Resolve(t, scopetest.NewTenant("acme"))

		assert.ErrorIs(t, uc.Deactivate(ctx, sc, 9), keysDomain.ErrKeyNotFound)
	})
}

func TestKeyHierarchyUseCase_ContextCancelled(t *testing.T) {
	repo := &mocks.MockTenantKeyRepository{}
	uc := newTestUseCase(t, testDeps{repo: repo})
	uc.newBackOff = func() backoff.BackOff { return backoff.NewConstantBackOff(time.Hour) }
	sc := scopetest.Resolve(t, scopetest.NewTenant("acme"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	repo.On("GetActive", mock.Anything, sc.TenantID()).Return(nil, keysDomain.ErrNoActiveKey)
	repo.On("GetMaxVersion", mock.Anything, sc.TenantID()).Return(uint32(0), nil)
	repo.On("Create", mock.Anything, mock.Anything).Return(keysDomain.ErrConcurrentActivationConflict)

	uc.flightTimeout = 50 * time.Millisecond

	_, err := uc.GetActiveKey(ctx, sc)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// A caller without a deadline waits for the shared creation, which ends on its own timeout.
	_, err = uc.GetActiveKey(context.Background(), sc)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// gatedRepository blocks the first Create until released and then reports a lost
// activation race, so a second caller can join the first-use creation.
type gatedRepository struct {
	TenantKeyRepository

	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (g *gatedRepository) Create(ctx context.Context, key *keysDomain.TenantKey) error {
	first := false
	g.once.Do(func() { first = true })
	if !first {
		return g.TenantKeyRepository.Create(ctx, key)
	}

	close(g.entered)
	select {
	case <-g.release:
		return keysDomain.ErrConcurrentActivationConflict
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestKeyHierarchyUseCase_FirstUseSurvivesCallerTimeout(t *testing.T) {
	repo := &gatedRepository{
		TenantKeyRepository: keystest.NewRepository(),
		entered:             make(chan struct{}),
		release:             make(chan struct{}),
	}
	uc := newTestUseCase(t, testDeps{repo: repo})
	sc := scopetest.Resolve(t, scopetest.NewTenant("acme"))

	shortCtx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	shortErr := make(chan error, 1)
	go func() {
		_, err := uc.GetActiveKey(shortCtx, sc)
		shortErr <- err
	}()
	<-repo.entered

	type result struct {
		key *keysDomain.DataKey
		err error
	}
	patient := make(chan result, 1)
	go func() {
		key, err := uc.GetActiveKey(context.Background(), sc)
		patient <- result{key: key, err: err}
	}()

	assert.ErrorIs(t, <-shortErr, context.DeadlineExceeded)

	close(repo.release)
	res := <-patient
	require.NoError(t, res.err)
	assert.Equal(t, uint32(1), res.key.Version)
	assert.Equal(t, 1, repo.TenantKeyRepository.(*keystest.Repository).ActiveCount(sc.TenantID()))
}
