// Package usecase implements the audit outbox dispatcher, which forwards pending
// audit events to an external consumer.
package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/allisson/tenantvault/internal/audit/domain"
	"github.com/allisson/tenantvault/internal/database"
)

// Config holds dispatcher configuration.
type Config struct {
	Interval   time.Duration
	BatchSize  int
	MaxRetries int
}

// OutboxRepository defines audit outbox operations used by the dispatcher.
type OutboxRepository interface {
	GetPending(ctx context.Context, limit int) ([]*domain.OutboxEntry, error)
	Update(ctx context.Context, entry *domain.OutboxEntry) error
}

// EventProcessor delivers one audit event to its consumer.
type EventProcessor interface {
	Process(ctx context.Context, event domain.Event) error
}

// Dispatcher polls the audit outbox and hands pending entries to an EventProcessor.
//
// Each batch runs in one transaction; rows are claimed with SKIP LOCKED so several
// dispatchers can run side by side. An entry that keeps failing is marked failed
// after MaxRetries attempts and no longer picked up.
type Dispatcher struct {
	config    Config
	txManager database.TxManager
	repo      OutboxRepository
	processor EventProcessor
	logger    *slog.Logger
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher(
	config Config,
	txManager database.TxManager,
	repo OutboxRepository,
	processor EventProcessor,
	logger *slog.Logger,
) *Dispatcher {
	return &Dispatcher{
		config:    config,
		txManager: txManager,
		repo:      repo,
		processor: processor,
		logger:    logger,
	}
}

// Start runs the dispatch loop until ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.logger.InfoContext(ctx, "starting audit dispatcher",
		slog.Duration("interval", d.config.Interval),
		slog.Int("batch_size", d.config.BatchSize),
	)

	ticker := time.NewTicker(d.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.InfoContext(ctx, "stopping audit dispatcher")
			return ctx.Err()
		case <-ticker.C:
			if err := d.ProcessEvents(ctx); err != nil {
				d.logger.ErrorContext(ctx, "failed to dispatch audit events", slog.Any("error", err))
			}
		}
	}
}

// ProcessEvents dispatches one batch of pending entries.
func (d *Dispatcher) ProcessEvents(ctx context.Context) error {
	return d.txManager.WithTx(ctx, func(ctx context.Context) error {
		entries, err := d.repo.GetPending(ctx, d.config.BatchSize)
		if err != nil {
			return err
		}

		if len(entries) == 0 {
			return nil
		}

		d.logger.DebugContext(ctx, "dispatching audit events", slog.Int("count", len(entries)))

		for _, entry := range entries {
			now := time.Now().UTC()
			entry.UpdatedAt = now

			if err := d.processor.Process(ctx, entry.Event); err != nil {
				d.logger.ErrorContext(ctx, "failed to dispatch audit event",
					slog.String("event_id", entry.ID.String()),
					slog.String("action", string(entry.Action)),
					slog.Any("error", err),
				)

				entry.Retries++
				errorMsg := err.Error()
				entry.LastError = &errorMsg
				if entry.Retries >= d.config.MaxRetries {
					entry.Status = domain.OutboxStatusFailed
				}

				if err := d.repo.Update(ctx, entry); err != nil {
					return err
				}
				continue
			}

			entry.Status = domain.OutboxStatusProcessed
			entry.ProcessedAt = &now
			if err := d.repo.Update(ctx, entry); err != nil {
				return err
			}
		}

		return nil
	})
}

// LogEventProcessor forwards audit events to the structured log. It is the
// default consumer when no external audit system is wired.
type LogEventProcessor struct {
	logger *slog.Logger
}

// NewLogEventProcessor creates a LogEventProcessor.
func NewLogEventProcessor(logger *slog.Logger) *LogEventProcessor {
	return &LogEventProcessor{logger: logger}
}

// Process logs the event.
func (p *LogEventProcessor) Process(ctx context.Context, event domain.Event) error {
	p.logger.InfoContext(ctx, "audit event dispatched",
		slog.String("event_id", event.ID.String()),
		slog.String("action", string(event.Action)),
		slog.String("tenant_id", event.TenantID.String()),
		slog.String("record_id", event.RecordID),
		slog.Time("occurred_at", event.OccurredAt),
	)
	return nil
}
