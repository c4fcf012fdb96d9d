// Package audit turns fee domain events into audit log rows.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/feeledger/backend/internal/domain/fee"
	"github.com/feeledger/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Entry is one audit log row
type Entry struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	Action     string
	EntityType string
	EntityID   uuid.UUID
	UserID     *uuid.UUID
	EventID    uuid.UUID
	Payload    map[string]any
	OccurredAt time.Time
}

// Store appends audit entries
type Store interface {
	Append(ctx context.Context, entry *Entry) error
}

// Sink subscribes to every event on the bus and records the auditable ones.
// Store failures are logged and never surface to the publisher.
type Sink struct {
	store  Store
	logger *zap.Logger
}

// NewSink creates an audit sink
func NewSink(store Store, logger *zap.Logger) *Sink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sink{store: store, logger: logger}
}

// EventTypes implements shared.EventHandler. Nil subscribes to all events.
func (s *Sink) EventTypes() []string {
	return nil
}

// Handle implements shared.EventHandler
func (s *Sink) Handle(ctx context.Context, event shared.DomainEvent) error {
	auditable, ok := event.(fee.AuditableEvent)
	if !ok {
		return nil
	}

	entry := EntryFromEvent(auditable)
	if err := s.store.Append(ctx, entry); err != nil {
		s.logger.Warn("Failed to write audit log",
			zap.String("action", entry.Action),
			zap.String("entity_id", entry.EntityID.String()),
			zap.Error(err),
		)
		return nil
	}
	return nil
}

// EntryFromEvent maps an auditable event to its audit row
func EntryFromEvent(e fee.AuditableEvent) *Entry {
	entry := &Entry{
		ID:         uuid.New(),
		TenantID:   e.TenantID(),
		Action:     e.AuditAction(),
		EntityType: e.AggregateType(),
		EntityID:   e.AggregateID(),
		EventID:    e.EventID(),
		Payload:    e.AuditPayload(),
		OccurredAt: e.OccurredAt(),
	}
	if actor := e.Actor(); actor != uuid.Nil {
		entry.UserID = &actor
	}
	if entry.Payload == nil {
		entry.Payload = map[string]any{}
	}
	return entry
}

// String renders the entry for logs
func (e *Entry) String() string {
	return fmt.Sprintf("%s %s/%s", e.Action, e.EntityType, e.EntityID)
}

var _ shared.EventHandler = (*Sink)(nil)
