package domain

import (
	sharedDomain "github.com/bookline/bookline/internal/shared/domain"
)

// Event types emitted by the booking lifecycle.
const (
	EventBookingCreated   = "booking.created"
	EventBookingConfirmed = "booking.confirmed"
	EventBookingCancelled = "booking.cancelled"
	EventBookingCompleted = "booking.completed"
	EventBookingNoShow    = "booking.no_show"
)

const entityTypeBooking = "booking"

// NewBookingCreatedEvent builds the creation event for a booking.
func NewBookingCreatedEvent(b *Booking, actor sharedDomain.Actor) sharedDomain.DomainEvent {
	event := sharedDomain.NewBaseEvent(
		b.WorkspaceID(), EventBookingCreated, entityTypeBooking, b.ID().String(), actor,
	)
	event.SetPayload(bookingPayload(b))
	return &event
}

// NewBookingStatusEvent builds a status-transition event for a booking.
func NewBookingStatusEvent(b *Booking, eventType string, from Status, actor sharedDomain.Actor) sharedDomain.DomainEvent {
	event := sharedDomain.NewBaseEvent(
		b.WorkspaceID(), eventType, entityTypeBooking, b.ID().String(), actor,
	)
	payload := bookingPayload(b)
	payload["previous_status"] = string(from)
	event.SetPayload(payload)
	return &event
}

func bookingPayload(b *Booking) map[string]any {
	payload := map[string]any{
		"booking_type": b.BookingType(),
		"status":       string(b.Status()),
		"source":       string(b.Source()),
		"start_at":     b.Range().Start,
		"end_at":       b.Range().End,
	}
	if b.StaffID() != nil {
		payload["staff_id"] = b.StaffID().String()
	}
	if b.ContactID() != nil {
		payload["contact_id"] = b.ContactID().String()
	}
	if b.ConversationID() != nil {
		payload["conversation_id"] = b.ConversationID().String()
	}
	return payload
}
