package domain

import (
	"time"

	"github.com/google/uuid"

	sharedDomain "github.com/bookline/bookline/internal/shared/domain"
)

// AvailabilityRule is a recurring weekly opening: a day of week plus a
// start/end time of day, optionally bound to one staff member.
type AvailabilityRule struct {
	sharedDomain.BaseEntity
	workspaceID uuid.UUID
	staffID     *uuid.UUID
	bookingType string
	dayOfWeek   time.Weekday
	startMinute int
	endMinute   int
	active      bool
}

// NewAvailabilityRule creates a weekly availability rule. Minutes are
// offsets from midnight in UTC.
func NewAvailabilityRule(
	workspaceID uuid.UUID,
	staffID *uuid.UUID,
	bookingType string,
	dayOfWeek time.Weekday,
	startMinute, endMinute int,
) (*AvailabilityRule, error) {
	if startMinute < 0 || endMinute > 24*60 || startMinute >= endMinute {
		return nil, ErrInvalidRange
	}
	return &AvailabilityRule{
		BaseEntity:  sharedDomain.NewBaseEntity(),
		workspaceID: workspaceID,
		staffID:     staffID,
		bookingType: bookingType,
		dayOfWeek:   dayOfWeek,
		startMinute: startMinute,
		endMinute:   endMinute,
		active:      true,
	}, nil
}

// Getters
func (r *AvailabilityRule) WorkspaceID() uuid.UUID  { return r.workspaceID }
func (r *AvailabilityRule) StaffID() *uuid.UUID     { return r.staffID }
func (r *AvailabilityRule) BookingType() string     { return r.bookingType }
func (r *AvailabilityRule) DayOfWeek() time.Weekday { return r.dayOfWeek }
func (r *AvailabilityRule) StartMinute() int        { return r.startMinute }
func (r *AvailabilityRule) EndMinute() int          { return r.endMinute }
func (r *AvailabilityRule) IsActive() bool          { return r.active }

// Deactivate turns the rule off without deleting it.
func (r *AvailabilityRule) Deactivate() {
	r.active = false
	r.Touch()
}

// InstantiateOn projects the rule onto a concrete date. The second
// return is false when the rule does not apply to that weekday or the
// rule is inactive.
func (r *AvailabilityRule) InstantiateOn(day time.Time) (TimeRange, bool) {
	day = day.UTC()
	if !r.active || day.Weekday() != r.dayOfWeek {
		return TimeRange{}, false
	}
	midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	return TimeRange{
		Start: midnight.Add(time.Duration(r.startMinute) * time.Minute),
		End:   midnight.Add(time.Duration(r.endMinute) * time.Minute),
	}, true
}

// RehydrateAvailabilityRule recreates a rule from persisted state.
func RehydrateAvailabilityRule(
	id uuid.UUID,
	workspaceID uuid.UUID,
	staffID *uuid.UUID,
	bookingType string,
	dayOfWeek time.Weekday,
	startMinute, endMinute int,
	active bool,
	createdAt, updatedAt time.Time,
) *AvailabilityRule {
	return &AvailabilityRule{
		BaseEntity:  sharedDomain.RehydrateBaseEntity(id, createdAt, updatedAt),
		workspaceID: workspaceID,
		staffID:     staffID,
		bookingType: bookingType,
		dayOfWeek:   dayOfWeek,
		startMinute: startMinute,
		endMinute:   endMinute,
		active:      active,
	}
}

// AdHocSlot is a one-off bookable window at an absolute time. A slot
// without a staff member offers the shared unassigned pool.
type AdHocSlot struct {
	sharedDomain.BaseEntity
	workspaceID uuid.UUID
	staffID     *uuid.UUID
	bookingType string
	timeRange   TimeRange
}

// NewAdHocSlot creates a one-off availability window.
func NewAdHocSlot(
	workspaceID uuid.UUID,
	staffID *uuid.UUID,
	bookingType string,
	timeRange TimeRange,
) (*AdHocSlot, error) {
	if timeRange.Duration() <= 0 {
		return nil, ErrInvalidRange
	}
	return &AdHocSlot{
		BaseEntity:  sharedDomain.NewBaseEntity(),
		workspaceID: workspaceID,
		staffID:     staffID,
		bookingType: bookingType,
		timeRange:   timeRange,
	}, nil
}

func (s *AdHocSlot) WorkspaceID() uuid.UUID { return s.workspaceID }
func (s *AdHocSlot) StaffID() *uuid.UUID    { return s.staffID }
func (s *AdHocSlot) BookingType() string    { return s.bookingType }
func (s *AdHocSlot) Range() TimeRange       { return s.timeRange }

// RehydrateAdHocSlot recreates a slot from persisted state.
func RehydrateAdHocSlot(
	id uuid.UUID,
	workspaceID uuid.UUID,
	staffID *uuid.UUID,
	bookingType string,
	timeRange TimeRange,
	createdAt, updatedAt time.Time,
) *AdHocSlot {
	return &AdHocSlot{
		BaseEntity:  sharedDomain.RehydrateBaseEntity(id, createdAt, updatedAt),
		workspaceID: workspaceID,
		staffID:     staffID,
		bookingType: bookingType,
		timeRange:   timeRange,
	}
}

// BlockedRange subtracts time from availability. It never produces a
// booking.
type BlockedRange struct {
	sharedDomain.BaseEntity
	workspaceID uuid.UUID
	staffID     *uuid.UUID
	timeRange   TimeRange
	reason      string
}

// NewBlockedRange creates a blocked window, optionally scoped to one
// staff member.
func NewBlockedRange(
	workspaceID uuid.UUID,
	staffID *uuid.UUID,
	timeRange TimeRange,
	reason string,
) (*BlockedRange, error) {
	if timeRange.Duration() <= 0 {
		return nil, ErrInvalidRange
	}
	return &BlockedRange{
		BaseEntity:  sharedDomain.NewBaseEntity(),
		workspaceID: workspaceID,
		staffID:     staffID,
		timeRange:   timeRange,
		reason:      reason,
	}, nil
}

func (b *BlockedRange) WorkspaceID() uuid.UUID { return b.workspaceID }
func (b *BlockedRange) StaffID() *uuid.UUID    { return b.staffID }
func (b *BlockedRange) Range() TimeRange       { return b.timeRange }
func (b *BlockedRange) Reason() string         { return b.reason }

// Covers reports whether the block applies to a candidate slot. A
// block without a staff member covers every staff identity.
func (b *BlockedRange) Covers(candidate TimeRange, staffID *uuid.UUID) bool {
	if !b.timeRange.Overlaps(candidate) {
		return false
	}
	if b.staffID == nil {
		return true
	}
	return staffID != nil && *b.staffID == *staffID
}

// RehydrateBlockedRange recreates a blocked range from persisted state.
func RehydrateBlockedRange(
	id uuid.UUID,
	workspaceID uuid.UUID,
	staffID *uuid.UUID,
	timeRange TimeRange,
	reason string,
	createdAt, updatedAt time.Time,
) *BlockedRange {
	return &BlockedRange{
		BaseEntity:  sharedDomain.RehydrateBaseEntity(id, createdAt, updatedAt),
		workspaceID: workspaceID,
		staffID:     staffID,
		timeRange:   timeRange,
		reason:      reason,
	}
}

// CandidateSlot is one bookable unit produced by splitting an
// availability window.
type CandidateSlot struct {
	Range    TimeRange
	StaffID  *uuid.UUID
	Occupied bool
}
