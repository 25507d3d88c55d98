package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/bookline/bookline/internal/booking/domain"
)

// DefaultSlotUnit is the bookable unit a window is partitioned into.
const DefaultSlotUnit = time.Hour

// AvailabilityIndex answers the two availability queries: the candidate
// slots of a single day and the dates of a range that still have room.
// Both are pure reads.
type AvailabilityIndex struct {
	availability domain.AvailabilityRepository
	bookings     domain.BookingRepository
	slotUnit     time.Duration
	cache        DatesCache
	logger       *slog.Logger
}

// NewAvailabilityIndex creates the index. A zero slotUnit falls back to
// DefaultSlotUnit; cache may be nil.
func NewAvailabilityIndex(
	availability domain.AvailabilityRepository,
	bookings domain.BookingRepository,
	slotUnit time.Duration,
	cache DatesCache,
	logger *slog.Logger,
) *AvailabilityIndex {
	if slotUnit <= 0 {
		slotUnit = DefaultSlotUnit
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AvailabilityIndex{
		availability: availability,
		bookings:     bookings,
		slotUnit:     slotUnit,
		cache:        cache,
		logger:       logger,
	}
}

// SlotsForDay partitions every availability window touching the given
// day into bookable candidates and marks each as occupied or free.
// Candidates are ordered by start, ties by staff with the unassigned
// pool first.
func (idx *AvailabilityIndex) SlotsForDay(
	ctx context.Context,
	workspaceID uuid.UUID,
	bookingType string,
	day time.Time,
) ([]domain.CandidateSlot, error) {
	day = day.UTC()
	midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	dayRange := domain.TimeRange{Start: midnight, End: midnight.AddDate(0, 0, 1)}

	windows, err := idx.windowsForDay(ctx, workspaceID, bookingType, midnight, dayRange)
	if err != nil {
		return nil, err
	}
	if len(windows) == 0 {
		return nil, nil
	}

	booked, err := idx.bookings.FindAllInRange(ctx, workspaceID, dayRange)
	if err != nil {
		return nil, fmt.Errorf("failed to load bookings: %w", err)
	}

	blocked, err := idx.availability.BlockedInRange(ctx, workspaceID, dayRange)
	if err != nil {
		return nil, fmt.Errorf("failed to load blocked ranges: %w", err)
	}

	var candidates []domain.CandidateSlot
	for _, w := range windows {
		for _, unit := range idx.split(w.timeRange) {
			candidates = append(candidates, domain.CandidateSlot{
				Range:    unit,
				StaffID:  w.staffID,
				Occupied: occupied(unit, w.staffID, bookingType, booked, blocked),
			})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if !a.Range.Start.Equal(b.Range.Start) {
			return a.Range.Start.Before(b.Range.Start)
		}
		// Unassigned pool sorts before any assigned staff.
		if (a.StaffID == nil) != (b.StaffID == nil) {
			return a.StaffID == nil
		}
		if a.StaffID == nil {
			return false
		}
		return a.StaffID.String() < b.StaffID.String()
	})

	return candidates, nil
}

// DatesWithAvailability returns the dates in [from, to] with at least
// one free candidate, ascending. Each day short-circuits at the first
// free candidate. Results are served from the cache when present.
func (idx *AvailabilityIndex) DatesWithAvailability(
	ctx context.Context,
	workspaceID uuid.UUID,
	bookingType string,
	from, to time.Time,
) ([]time.Time, error) {
	from = truncateToDay(from)
	to = truncateToDay(to)
	if to.Before(from) {
		return nil, domain.ErrInvalidRange
	}

	key := datesCacheKey(workspaceID, bookingType, from, to)
	if idx.cache != nil {
		if dates, ok := idx.cache.Get(ctx, key); ok {
			return dates, nil
		}
	}

	var dates []time.Time
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		slots, err := idx.SlotsForDay(ctx, workspaceID, bookingType, day)
		if err != nil {
			return nil, err
		}
		for _, slot := range slots {
			if !slot.Occupied {
				dates = append(dates, day)
				break
			}
		}
	}

	if idx.cache != nil {
		idx.cache.Set(ctx, key, dates)
	}
	return dates, nil
}

type availabilityWindow struct {
	timeRange domain.TimeRange
	staffID   *uuid.UUID
}

func (idx *AvailabilityIndex) windowsForDay(
	ctx context.Context,
	workspaceID uuid.UUID,
	bookingType string,
	midnight time.Time,
	dayRange domain.TimeRange,
) ([]availabilityWindow, error) {
	var windows []availabilityWindow

	slots, err := idx.availability.SlotsInRange(ctx, workspaceID, bookingType, dayRange)
	if err != nil {
		return nil, fmt.Errorf("failed to load ad-hoc slots: %w", err)
	}
	for _, slot := range slots {
		if clipped, ok := slot.Range().Intersect(dayRange); ok {
			windows = append(windows, availabilityWindow{timeRange: clipped, staffID: slot.StaffID()})
		}
	}

	rules, err := idx.availability.RulesForDay(ctx, workspaceID, bookingType, midnight.Weekday())
	if err != nil {
		return nil, fmt.Errorf("failed to load availability rules: %w", err)
	}
	for _, rule := range rules {
		if window, ok := rule.InstantiateOn(midnight); ok {
			windows = append(windows, availabilityWindow{timeRange: window, staffID: rule.StaffID()})
		}
	}

	return windows, nil
}

// split partitions a window into slot units by a sweep from its start.
// A shorter trailing remainder becomes a final shorter candidate.
func (idx *AvailabilityIndex) split(window domain.TimeRange) []domain.TimeRange {
	var units []domain.TimeRange
	for cursor := window.Start; cursor.Before(window.End); {
		next := cursor.Add(idx.slotUnit)
		if next.After(window.End) {
			next = window.End
		}
		units = append(units, domain.TimeRange{Start: cursor, End: next})
		cursor = next
	}
	return units
}

// occupied applies the occupancy rules: an assigned candidate is taken
// by any overlapping booking of that staff member; an unassigned
// candidate is taken by any overlapping booking of the same type, since
// the pool has a single shared capacity. A covering blocked range takes
// the candidate regardless of staff.
func occupied(
	unit domain.TimeRange,
	staffID *uuid.UUID,
	bookingType string,
	booked []*domain.Booking,
	blocked []*domain.BlockedRange,
) bool {
	for _, block := range blocked {
		if block.Covers(unit, staffID) {
			return true
		}
	}
	for _, booking := range booked {
		if booking.Status() == domain.StatusCancelled || !booking.Range().Overlaps(unit) {
			continue
		}
		if staffID != nil {
			if booking.StaffID() != nil && *booking.StaffID() == *staffID {
				return true
			}
			continue
		}
		if booking.BookingType() == bookingType {
			return true
		}
	}
	return false
}

func truncateToDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func datesCacheKey(workspaceID uuid.UUID, bookingType string, from, to time.Time) string {
	return fmt.Sprintf("availability:dates:%s:%s:%s:%s",
		workspaceID, bookingType, from.Format("2006-01-02"), to.Format("2006-01-02"))
}
