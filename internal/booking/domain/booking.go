package domain

import (
	"time"

	"github.com/google/uuid"

	sharedDomain "github.com/bookline/bookline/internal/shared/domain"
)

// MaxBookingDuration caps a single reservation.
const MaxBookingDuration = 2 * time.Hour

// Status is the lifecycle state of a booking.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
	StatusNoShow    Status = "no_show"
)

// IsTerminal reports whether no further transitions are allowed.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCancelled, StatusCompleted, StatusNoShow:
		return true
	}
	return false
}

// legalTransitions lists the only forward moves the lifecycle allows.
// A booking must be confirmed before it can complete or no-show;
// cancellation is reachable from both live states.
var legalTransitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusNoShow, StatusCancelled},
}

func canTransition(from, to Status) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Source records how a booking entered the system.
type Source string

const (
	SourcePublic   Source = "public"
	SourceInternal Source = "internal"
	SourceImport   Source = "import"
)

// Booking is a reserved time range for a contact, optionally assigned
// to a staff member. Bookings are never hard-deleted; cancellation is a
// status change.
type Booking struct {
	sharedDomain.BaseAggregateRoot
	workspaceID    uuid.UUID
	contactID      *uuid.UUID
	conversationID *uuid.UUID
	staffID        *uuid.UUID
	bookingType    string
	timeRange      TimeRange
	status         Status
	source         Source
}

// NewBooking creates a booking in its initial status. Public creation
// enters directly at confirmed; internal creation starts pending.
func NewBooking(
	workspaceID uuid.UUID,
	bookingType string,
	staffID *uuid.UUID,
	timeRange TimeRange,
	source Source,
) (*Booking, error) {
	if timeRange.Duration() <= 0 || timeRange.Duration() > MaxBookingDuration {
		return nil, ErrInvalidRange
	}

	status := StatusPending
	if source == SourcePublic {
		status = StatusConfirmed
	}

	b := &Booking{
		BaseAggregateRoot: sharedDomain.NewBaseAggregateRoot(),
		workspaceID:       workspaceID,
		staffID:           staffID,
		bookingType:       bookingType,
		timeRange:         timeRange,
		status:            status,
		source:            source,
	}
	return b, nil
}

// Getters
func (b *Booking) WorkspaceID() uuid.UUID     { return b.workspaceID }
func (b *Booking) ContactID() *uuid.UUID      { return b.contactID }
func (b *Booking) ConversationID() *uuid.UUID { return b.conversationID }
func (b *Booking) StaffID() *uuid.UUID        { return b.staffID }
func (b *Booking) BookingType() string        { return b.bookingType }
func (b *Booking) Range() TimeRange           { return b.timeRange }
func (b *Booking) Status() Status             { return b.status }
func (b *Booking) Source() Source             { return b.source }

// AttachContact links the booking to the contact and conversation it
// was created for.
func (b *Booking) AttachContact(contactID, conversationID uuid.UUID) {
	b.contactID = &contactID
	b.conversationID = &conversationID
	b.Touch()
}

// Confirm moves a pending booking to confirmed.
func (b *Booking) Confirm(actor sharedDomain.Actor) error {
	return b.transition(StatusConfirmed, EventBookingConfirmed, actor)
}

// Cancel moves a pending or confirmed booking to cancelled.
func (b *Booking) Cancel(actor sharedDomain.Actor) error {
	return b.transition(StatusCancelled, EventBookingCancelled, actor)
}

// Complete moves a booking to completed. Side effects (inventory
// deduction, form tracking) are owned by the application layer.
func (b *Booking) Complete(actor sharedDomain.Actor) error {
	return b.transition(StatusCompleted, EventBookingCompleted, actor)
}

// MarkNoShow moves a booking to no_show.
func (b *Booking) MarkNoShow(actor sharedDomain.Actor) error {
	return b.transition(StatusNoShow, EventBookingNoShow, actor)
}

func (b *Booking) transition(to Status, eventType string, actor sharedDomain.Actor) error {
	if !canTransition(b.status, to) {
		return ErrInvalidTransition
	}
	from := b.status
	b.status = to
	b.Touch()
	b.AddDomainEvent(NewBookingStatusEvent(b, eventType, from, actor))
	return nil
}

// RecordCreated emits the creation event with the given actor.
func (b *Booking) RecordCreated(actor sharedDomain.Actor) {
	b.AddDomainEvent(NewBookingCreatedEvent(b, actor))
}

// RehydrateBooking recreates a booking from persisted state.
func RehydrateBooking(
	id uuid.UUID,
	workspaceID uuid.UUID,
	contactID, conversationID, staffID *uuid.UUID,
	bookingType string,
	timeRange TimeRange,
	status Status,
	source Source,
	createdAt, updatedAt time.Time,
) *Booking {
	return &Booking{
		BaseAggregateRoot: sharedDomain.RehydrateBaseAggregateRoot(sharedDomain.RehydrateBaseEntity(id, createdAt, updatedAt)),
		workspaceID:       workspaceID,
		contactID:         contactID,
		conversationID:    conversationID,
		staffID:           staffID,
		bookingType:       bookingType,
		timeRange:         timeRange,
		status:            status,
		source:            source,
	}
}
