package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/allisson/tenantvault/internal/audit/domain"
)

type mockOutboxRepository struct {
	mock.Mock
}

func (m *mockOutboxRepository) Create(ctx context.Context, entry *domain.OutboxEntry) error {
	return m.Called(ctx, entry).Error(0)
}

func TestLogSink_Emit(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogSink(slog.New(slog.NewJSONHandler(&buf, nil)))
	tenantID := uuid.Must(uuid.NewV7())

	require.NoError(t, sink.Emit(context.Background(), domain.NewEvent(domain.ActionOpened, tenantID, "cred-1")))

	var line struct {
		Msg   string `json:"msg"`
		Audit struct {
			Action   string `json:"action"`
			TenantID string `json:"tenant_id"`
			RecordID string `json:"record_id"`
		} `json:"audit"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "audit event", line.Msg)
	assert.Equal(t, "opened", line.Audit.Action)
	assert.Equal(t, tenantID.String(), line.Audit.TenantID)
	assert.Equal(t, "cred-1", line.Audit.RecordID)
}

func TestOutboxSink_Emit(t *testing.T) {
	ctx := context.Background()
	event := domain.NewEvent(domain.ActionSealed, uuid.Must(uuid.NewV7()), "")

	t.Run("Success", func(t *testing.T) {
		repo := &mockOutboxRepository{}
		repo.On("Create", ctx, mock.MatchedBy(func(entry *domain.OutboxEntry) bool {
			return entry.ID == event.ID && entry.Status == domain.OutboxStatusPending && entry.Retries == 0
		})).Return(nil).Once()

		assert.NoError(t, NewOutboxSink(repo).Emit(ctx, event))
		repo.AssertExpectations(t)
	})

	t.Run("Error", func(t *testing.T) {
		repo := &mockOutboxRepository{}
		repoErr := errors.New("db down")
		repo.On("Create", ctx, mock.Anything).Return(repoErr).Once()

		assert.ErrorIs(t, NewOutboxSink(repo).Emit(ctx, event), repoErr)
	})
}
