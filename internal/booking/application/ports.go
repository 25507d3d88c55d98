package application

import (
	"context"
	"time"

	"github.com/google/uuid"

	sharedDomain "github.com/bookline/bookline/internal/shared/domain"
)

// EventAppender persists domain events to the append-only event log.
// Producers append inside the same transaction as the state change.
type EventAppender interface {
	Append(ctx context.Context, event sharedDomain.DomainEvent) error
}

// Dispatcher hands appended events to the automation engine after the
// producing transaction commits. Dispatch failures never fail the
// producing operation.
type Dispatcher interface {
	Dispatch(ctx context.Context, event sharedDomain.DomainEvent)
}

// DatesCache caches dates-with-availability query results. A nil cache
// is allowed everywhere it is used.
type DatesCache interface {
	Get(ctx context.Context, key string) ([]time.Time, bool)
	Set(ctx context.Context, key string, dates []time.Time)
	// Invalidate drops cached date sets for a workspace and booking
	// type after a successful reservation.
	Invalidate(ctx context.Context, workspaceID uuid.UUID, bookingType string)
}

// InventoryDeductor records inventory usage when a booking completes.
type InventoryDeductor interface {
	DeductForBooking(ctx context.Context, workspaceID, bookingID uuid.UUID, bookingType string, actor sharedDomain.Actor) error
}

// FormTracker opens pending follow-up forms when a booking completes.
type FormTracker interface {
	TrackForBooking(ctx context.Context, workspaceID, bookingID uuid.UUID, bookingType string) error
}

// ContactIntake resolves or creates the contact and conversation a
// reservation belongs to.
type ContactIntake interface {
	Resolve(ctx context.Context, workspaceID uuid.UUID, details ContactDetails, actor sharedDomain.Actor) (contactID, conversationID uuid.UUID, err error)
}

// ContactDetails identifies the person a reservation is for. Email or
// phone is used for find-or-create matching.
type ContactDetails struct {
	Name    string
	Email   string
	Phone   string
	Channel string
}

// Empty reports whether no identifying details were supplied.
func (d ContactDetails) Empty() bool {
	return d.Email == "" && d.Phone == "" && d.Name == ""
}
