package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// Worker is a long running background loop that returns when ctx is canceled.
type Worker interface {
	Start(ctx context.Context) error
}

// RunAuditDispatcher runs the audit outbox dispatcher until SIGINT/SIGTERM.
// Events are only written to the outbox when AUDIT_SINK=outbox.
func RunAuditDispatcher(ctx context.Context, dispatcher Worker, logger *slog.Logger, auditSink string) error {
	if auditSink != "outbox" {
		logger.Warn("audit sink is not the outbox, dispatcher will only drain existing entries",
			slog.String("audit_sink", auditSink),
		)
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := dispatcher.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("audit dispatcher error: %w", err)
	}

	logger.Info("audit dispatcher stopped")
	return nil
}
