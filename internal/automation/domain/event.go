// Package domain holds the automation engine model: the persisted
// event log, declarative rules, and the runs that audit their
// execution.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	sharedDomain "github.com/bookline/bookline/internal/shared/domain"
)

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateRun is returned when a run already exists for a
	// (rule, event) pair.
	ErrDuplicateRun = errors.New("run already exists for rule and event")
)

// EventRecord is one appended row of the event log. Records are never
// mutated.
type EventRecord struct {
	ID            uuid.UUID
	Seq           int64
	WorkspaceID   uuid.UUID
	EventType     string
	EntityType    string
	EntityID      string
	Actor         sharedDomain.Actor
	CorrelationID string
	Payload       map[string]any
	CreatedAt     time.Time
}

// RecordFromDomainEvent projects a live domain event into a record.
// Seq stays zero until the record comes back from the store.
func RecordFromDomainEvent(event sharedDomain.DomainEvent) *EventRecord {
	return &EventRecord{
		ID:            event.EventID(),
		WorkspaceID:   event.WorkspaceID(),
		EventType:     event.EventType(),
		EntityType:    event.EntityType(),
		EntityID:      event.EntityID(),
		Actor:         event.Actor(),
		CorrelationID: event.CorrelationID(),
		Payload:       event.Payload(),
		CreatedAt:     event.OccurredAt(),
	}
}

// Cursor points after an event in log order: created_at first, then
// the insertion sequence as tie-breaker.
type Cursor struct {
	CreatedAt time.Time
	Seq       int64
}

// IsZero reports whether the cursor points at the beginning of the log.
func (c Cursor) IsZero() bool {
	return c.CreatedAt.IsZero() && c.Seq == 0
}

// After returns the cursor pointing past the given record.
func After(record *EventRecord) Cursor {
	return Cursor{CreatedAt: record.CreatedAt, Seq: record.Seq}
}

// EventStore is the append-only event log. Append is the only
// mutation.
type EventStore interface {
	// Append persists an event and returns the stored record with its
	// assigned sequence.
	Append(ctx context.Context, event sharedDomain.DomainEvent) (*EventRecord, error)

	// FindByID loads one record.
	FindByID(ctx context.Context, workspaceID, id uuid.UUID) (*EventRecord, error)

	// ReadSince returns an ordered, restartable page after the cursor.
	// An empty eventType matches all types; a uuid.Nil workspaceID
	// reads across every workspace. Pagination with the cursor of the
	// last returned record resumes exactly where the previous page
	// ended.
	ReadSince(ctx context.Context, workspaceID uuid.UUID, eventType string, since Cursor, limit int) ([]*EventRecord, error)
}
