package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// BookingRepository defines the interface for booking persistence.
type BookingRepository interface {
	// Create inserts a new booking. An overlap with an existing
	// non-cancelled booking on the same staff identity returns
	// ErrConflict.
	Create(ctx context.Context, booking *Booking) error

	// Save persists status and association changes.
	Save(ctx context.Context, booking *Booking) error

	// FindByID finds a booking by its ID within a workspace.
	FindByID(ctx context.Context, workspaceID, id uuid.UUID) (*Booking, error)

	// FindOverlapping returns the non-cancelled bookings of a workspace
	// overlapping the given range. When staffID is nil the match is
	// restricted to unassigned bookings of the given type; otherwise to
	// that staff member regardless of type.
	FindOverlapping(ctx context.Context, workspaceID uuid.UUID, bookingType string, staffID *uuid.UUID, timeRange TimeRange) ([]*Booking, error)

	// FindAllInRange returns every non-cancelled booking of a workspace
	// overlapping the given range, regardless of type or staff.
	FindAllInRange(ctx context.Context, workspaceID uuid.UUID, timeRange TimeRange) ([]*Booking, error)
}

// AvailabilityRepository defines persistence for the availability
// sources the index reads.
type AvailabilityRepository interface {
	// SaveRule persists a weekly availability rule.
	SaveRule(ctx context.Context, rule *AvailabilityRule) error

	// SaveSlot persists an ad-hoc slot.
	SaveSlot(ctx context.Context, slot *AdHocSlot) error

	// SaveBlockedRange persists a blocked range.
	SaveBlockedRange(ctx context.Context, blocked *BlockedRange) error

	// RulesForDay returns the active weekly rules of a booking type
	// applying to the given weekday.
	RulesForDay(ctx context.Context, workspaceID uuid.UUID, bookingType string, day time.Weekday) ([]*AvailabilityRule, error)

	// SlotsInRange returns the ad-hoc slots of a booking type
	// overlapping the given range.
	SlotsInRange(ctx context.Context, workspaceID uuid.UUID, bookingType string, timeRange TimeRange) ([]*AdHocSlot, error)

	// BlockedInRange returns the blocked ranges of a workspace
	// overlapping the given range.
	BlockedInRange(ctx context.Context, workspaceID uuid.UUID, timeRange TimeRange) ([]*BlockedRange, error)
}
