// Package service provides audit sinks. A sink records what happened; retention
// and formatting of the trail belong to the consumer behind it.
package service

import (
	"context"
	"log/slog"

	"github.com/allisson/tenantvault/internal/audit/domain"
)

// OutboxRepository persists outbox entries.
type OutboxRepository interface {
	Create(ctx context.Context, entry *domain.OutboxEntry) error
}

// LogSink writes audit events as structured log lines.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a LogSink.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Emit logs event at INFO under the "audit" group.
func (s *LogSink) Emit(ctx context.Context, event domain.Event) error {
	s.logger.InfoContext(ctx, "audit event", slog.Group("audit",
		slog.String("id", event.ID.String()),
		slog.String("action", string(event.Action)),
		slog.String("tenant_id", event.TenantID.String()),
		slog.String("record_id", event.RecordID),
		slog.Time("occurred_at", event.OccurredAt),
	))
	return nil
}

// OutboxSink stores audit events in the audit outbox for the Dispatcher. When the
// caller runs inside a transaction the entry joins it.
type OutboxSink struct {
	repo OutboxRepository
}

// NewOutboxSink creates an OutboxSink.
func NewOutboxSink(repo OutboxRepository) *OutboxSink {
	return &OutboxSink{repo: repo}
}

// Emit inserts event as a pending outbox entry.
func (s *OutboxSink) Emit(ctx context.Context, event domain.Event) error {
	return s.repo.Create(ctx, domain.NewOutboxEntry(event))
}
