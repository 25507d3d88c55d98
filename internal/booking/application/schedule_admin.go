package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bookline/bookline/internal/booking/domain"
)

// ScheduleAdminService maintains the availability sources the index
// reads: weekly rules, ad-hoc slots, and blocked ranges. Writes
// invalidate the cached date sets of the affected booking type.
type ScheduleAdminService struct {
	availability domain.AvailabilityRepository
	cache        DatesCache
	logger       *slog.Logger
}

// NewScheduleAdminService creates the admin service. cache may be nil.
func NewScheduleAdminService(
	availability domain.AvailabilityRepository,
	cache DatesCache,
	logger *slog.Logger,
) *ScheduleAdminService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScheduleAdminService{
		availability: availability,
		cache:        cache,
		logger:       logger,
	}
}

// DefineWeeklyRule adds a recurring weekly opening. Minutes are offsets
// from midnight UTC.
func (s *ScheduleAdminService) DefineWeeklyRule(
	ctx context.Context,
	workspaceID uuid.UUID,
	staffID *uuid.UUID,
	bookingType string,
	day time.Weekday,
	startMinute, endMinute int,
) (*domain.AvailabilityRule, error) {
	rule, err := domain.NewAvailabilityRule(workspaceID, staffID, bookingType, day, startMinute, endMinute)
	if err != nil {
		return nil, err
	}
	if err := s.availability.SaveRule(ctx, rule); err != nil {
		return nil, fmt.Errorf("failed to save availability rule: %w", err)
	}

	s.invalidate(ctx, workspaceID, bookingType)
	s.logger.InfoContext(ctx, "weekly availability rule defined",
		"workspace_id", workspaceID,
		"booking_type", bookingType,
		"day", day.String(),
	)
	return rule, nil
}

// DeactivateRule turns a weekly rule off without deleting it.
func (s *ScheduleAdminService) DeactivateRule(ctx context.Context, rule *domain.AvailabilityRule) error {
	rule.Deactivate()
	if err := s.availability.SaveRule(ctx, rule); err != nil {
		return fmt.Errorf("failed to save availability rule: %w", err)
	}
	s.invalidate(ctx, rule.WorkspaceID(), rule.BookingType())
	return nil
}

// AddSlot adds a one-off bookable window at an absolute time.
func (s *ScheduleAdminService) AddSlot(
	ctx context.Context,
	workspaceID uuid.UUID,
	staffID *uuid.UUID,
	bookingType string,
	start, end time.Time,
) (*domain.AdHocSlot, error) {
	timeRange, err := domain.NewTimeRange(start, end)
	if err != nil {
		return nil, err
	}
	slot, err := domain.NewAdHocSlot(workspaceID, staffID, bookingType, timeRange)
	if err != nil {
		return nil, err
	}
	if err := s.availability.SaveSlot(ctx, slot); err != nil {
		return nil, fmt.Errorf("failed to save slot: %w", err)
	}

	s.invalidate(ctx, workspaceID, bookingType)
	return slot, nil
}

// BlockRange subtracts a window from availability, optionally scoped to
// one staff member.
func (s *ScheduleAdminService) BlockRange(
	ctx context.Context,
	workspaceID uuid.UUID,
	staffID *uuid.UUID,
	start, end time.Time,
	reason string,
) (*domain.BlockedRange, error) {
	timeRange, err := domain.NewTimeRange(start, end)
	if err != nil {
		return nil, err
	}
	blocked, err := domain.NewBlockedRange(workspaceID, staffID, timeRange, reason)
	if err != nil {
		return nil, err
	}
	if err := s.availability.SaveBlockedRange(ctx, blocked); err != nil {
		return nil, fmt.Errorf("failed to save blocked range: %w", err)
	}

	// A block has no booking type; cached date sets of other types go
	// stale until their TTL expires.
	return blocked, nil
}

func (s *ScheduleAdminService) invalidate(ctx context.Context, workspaceID uuid.UUID, bookingType string) {
	if s.cache == nil {
		return
	}
	s.cache.Invalidate(ctx, workspaceID, bookingType)
}
