// Package domain defines the audit events emitted by the envelope API and the
// outbox rows that carry them to an external audit consumer.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Action is the outcome recorded by an audit event.
type Action string

const (
	ActionSealed     Action = "sealed"
	ActionOpened     Action = "opened"
	ActionOpenDenied Action = "open_denied"
	ActionOpenFailed Action = "open_failed"
)

// Event is one audit record. It never contains key material or plaintext.
type Event struct {
	ID         uuid.UUID
	Action     Action
	TenantID   uuid.UUID // uuid.Nil when no tenant was resolved
	RecordID   string    // Empty for seals not tied to a record
	OccurredAt time.Time
}

// NewEvent creates an Event stamped with the current time.
func NewEvent(action Action, tenantID uuid.UUID, recordID string) Event {
	return Event{
		ID:         uuid.Must(uuid.NewV7()),
		Action:     action,
		TenantID:   tenantID,
		RecordID:   recordID,
		OccurredAt: time.Now().UTC(),
	}
}

// OutboxStatus is the delivery state of an outbox entry.
type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusProcessed OutboxStatus = "processed"
	OutboxStatusFailed    OutboxStatus = "failed"
)

// OutboxEntry is an audit event waiting in the audit_outbox table.
type OutboxEntry struct {
	Event
	Status      OutboxStatus
	Retries     int
	LastError   *string
	ProcessedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewOutboxEntry wraps event as a pending entry.
func NewOutboxEntry(event Event) *OutboxEntry {
	now := time.Now().UTC()
	return &OutboxEntry{
		Event:     event,
		Status:    OutboxStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
