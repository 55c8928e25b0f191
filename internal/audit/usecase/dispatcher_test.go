package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/allisson/tenantvault/internal/audit/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// MockTxManager is a mock implementation of database.TxManager.
type MockTxManager struct {
	mock.Mock
}

func (m *MockTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	args := m.Called(ctx, fn)
	if args.Get(0) != nil {
		return args.Error(0)
	}
	return fn(ctx)
}

type MockOutboxRepository struct {
	mock.Mock
}

func (m *MockOutboxRepository) GetPending(ctx context.Context, limit int) ([]*domain.OutboxEntry, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.OutboxEntry), args.Error(1)
}

func (m *MockOutboxRepository) Update(ctx context.Context, entry *domain.OutboxEntry) error {
	return m.Called(ctx, entry).Error(0)
}

type MockEventProcessor struct {
	mock.Mock
}

func (m *MockEventProcessor) Process(ctx context.Context, event domain.Event) error {
	return m.Called(ctx, event).Error(0)
}

var testConfig = Config{
	Interval:   10 * time.Millisecond,
	BatchSize:  10,
	MaxRetries: 3,
}

func newTestDispatcher() (*Dispatcher, *MockTxManager, *MockOutboxRepository, *MockEventProcessor) {
	txManager := &MockTxManager{}
	repo := &MockOutboxRepository{}
	processor := &MockEventProcessor{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewDispatcher(testConfig, txManager, repo, processor, logger), txManager, repo, processor
}

func newPendingEntry(action domain.Action) *domain.OutboxEntry {
	return domain.NewOutboxEntry(domain.NewEvent(action, uuid.Must(uuid.NewV7()), "cred-1"))
}

func TestDispatcher_Start_ContextCancellation(t *testing.T) {
	d, _, _, _ := newTestDispatcher()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := d.Start(ctx)
	assert.Equal(t, context.Canceled, err)
}

func TestDispatcher_Start_ProcessesOnTick(t *testing.T) {
	d, txManager, repo, _ := newTestDispatcher()

	ctx, cancel := context.WithCancel(context.Background())
	txManager.On("WithTx", mock.Anything, mock.Anything).Return(nil)
	repo.On("GetPending", mock.Anything, testConfig.BatchSize).
		Run(func(mock.Arguments) { cancel() }).
		Return([]*domain.OutboxEntry{}, nil)

	done := make(chan error, 1)
	go func() { done <- d.Start(ctx) }()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not stop")
	}
	repo.AssertCalled(t, "GetPending", mock.Anything, testConfig.BatchSize)
}

func TestDispatcher_ProcessEvents(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		d, txManager, repo, processor := newTestDispatcher()
		entries := []*domain.OutboxEntry{newPendingEntry(domain.ActionSealed), newPendingEntry(domain.ActionOpened)}

		txManager.On("WithTx", ctx, mock.AnythingOfType("func(context.Context) error")).Return(nil)
		repo.On("GetPending", ctx, testConfig.BatchSize).Return(entries, nil)
		processor.On("Process", ctx, entries[0].Event).Return(nil)
		processor.On("Process", ctx, entries[1].Event).Return(nil)
		repo.On("Update", ctx, mock.MatchedBy(func(e *domain.OutboxEntry) bool {
			return e.Status == domain.OutboxStatusProcessed && e.ProcessedAt != nil
		})).Return(nil).Times(2)

		require.NoError(t, d.ProcessEvents(ctx))
		repo.AssertExpectations(t)
		processor.AssertExpectations(t)
	})

	t.Run("NoEvents", func(t *testing.T) {
		d, txManager, repo, processor := newTestDispatcher()

		txManager.On("WithTx", ctx, mock.Anything).Return(nil)
		repo.On("GetPending", ctx, testConfig.BatchSize).Return([]*domain.OutboxEntry{}, nil)

		require.NoError(t, d.ProcessEvents(ctx))
		processor.AssertNotCalled(t, "Process", mock.Anything, mock.Anything)
	})

	t.Run("GetPendingError", func(t *testing.T) {
		d, txManager, repo, _ := newTestDispatcher()
		getErr := errors.New("database error")

		txManager.On("WithTx", ctx, mock.Anything).Return(nil)
		repo.On("GetPending", ctx, testConfig.BatchSize).Return(nil, getErr)

		assert.ErrorIs(t, d.ProcessEvents(ctx), getErr)
	})

	t.Run("ProcessorFailureIncrementsRetries", func(t *testing.T) {
		d, txManager, repo, processor := newTestDispatcher()
		entry := newPendingEntry(domain.ActionOpenDenied)

		txManager.On("WithTx", ctx, mock.Anything).Return(nil)
		repo.On("GetPending", ctx, testConfig.BatchSize).Return([]*domain.OutboxEntry{entry}, nil)
		processor.On("Process", ctx, entry.Event).Return(errors.New("consumer unavailable"))
		repo.On("Update", ctx, mock.MatchedBy(func(e *domain.OutboxEntry) bool {
			return e.Status == domain.OutboxStatusPending && e.Retries == 1 && e.LastError != nil
		})).Return(nil).Once()

		require.NoError(t, d.ProcessEvents(ctx))
		repo.AssertExpectations(t)
	})

	t.Run("ProcessorFailureMarksFailedAfterMaxRetries", func(t *testing.T) {
		d, txManager, repo, processor := newTestDispatcher()
		entry := newPendingEntry(domain.ActionOpenFailed)
		entry.Retries = testConfig.MaxRetries - 1

		txManager.On("WithTx", ctx, mock.Anything).Return(nil)
		repo.On("GetPending", ctx, testConfig.BatchSize).Return([]*domain.OutboxEntry{entry}, nil)
		processor.On("Process", ctx, entry.Event).Return(errors.New("consumer unavailable"))
		repo.On("Update", ctx, mock.MatchedBy(func(e *domain.OutboxEntry) bool {
			return e.Status == domain.OutboxStatusFailed && e.Retries == testConfig.MaxRetries
		})).Return(nil).Once()

		require.NoError(t, d.ProcessEvents(ctx))
		repo.AssertExpectations(t)
	})

	t.Run("UpdateError", func(t *testing.T) {
		d, txManager, repo, processor := newTestDispatcher()
		entry := newPendingEntry(domain.ActionSealed)
		updateErr := errors.New("update failed")

		txManager.On("WithTx", ctx, mock.Anything).Return(nil)
		repo.On("GetPending", ctx, testConfig.BatchSize).Return([]*domain.OutboxEntry{entry}, nil)
		processor.On("Process", ctx, entry.Event).Return(nil)
		repo.On("Update", ctx, mock.Anything).Return(updateErr)

		assert.ErrorIs(t, d.ProcessEvents(ctx), updateErr)
	})
}

func TestLogEventProcessor_Process(t *testing.T) {
	p := NewLogEventProcessor(slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.NoError(t, p.Process(context.Background(), domain.NewEvent(domain.ActionOpened, uuid.Nil, "")))
}
