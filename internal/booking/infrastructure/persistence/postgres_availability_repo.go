package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bookline/bookline/internal/booking/domain"
	"github.com/bookline/bookline/internal/shared/infrastructure/database"
)

// PostgresAvailabilityRepository implements domain.AvailabilityRepository
// using PostgreSQL.
type PostgresAvailabilityRepository struct {
	conn database.Connection
}

// NewPostgresAvailabilityRepository creates a new PostgreSQL
// availability repository.
func NewPostgresAvailabilityRepository(conn database.Connection) *PostgresAvailabilityRepository {
	return &PostgresAvailabilityRepository{conn: conn}
}

// SaveRule upserts a weekly availability rule.
func (r *PostgresAvailabilityRepository) SaveRule(ctx context.Context, rule *domain.AvailabilityRule) error {
	exec := database.ExecutorFromContext(ctx, r.conn)

	query := `
		INSERT INTO availability_rules (
			id, workspace_id, staff_id, booking_type, day_of_week,
			start_minute, end_minute, active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			active = EXCLUDED.active,
			updated_at = EXCLUDED.updated_at
	`
	_, err := exec.Exec(ctx, query,
		rule.ID(),
		rule.WorkspaceID(),
		rule.StaffID(),
		rule.BookingType(),
		int(rule.DayOfWeek()),
		rule.StartMinute(),
		rule.EndMinute(),
		rule.IsActive(),
		rule.CreatedAt(),
		rule.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to save availability rule: %w", err)
	}
	return nil
}

// SaveSlot inserts an ad-hoc slot.
func (r *PostgresAvailabilityRepository) SaveSlot(ctx context.Context, slot *domain.AdHocSlot) error {
	exec := database.ExecutorFromContext(ctx, r.conn)

	query := `
		INSERT INTO adhoc_slots (id, workspace_id, staff_id, booking_type, start_at, end_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := exec.Exec(ctx, query,
		slot.ID(),
		slot.WorkspaceID(),
		slot.StaffID(),
		slot.BookingType(),
		slot.Range().Start,
		slot.Range().End,
		slot.CreatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to save ad-hoc slot: %w", err)
	}
	return nil
}

// SaveBlockedRange inserts a blocked range.
func (r *PostgresAvailabilityRepository) SaveBlockedRange(ctx context.Context, blocked *domain.BlockedRange) error {
	exec := database.ExecutorFromContext(ctx, r.conn)

	query := `
		INSERT INTO blocked_ranges (id, workspace_id, staff_id, start_at, end_at, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := exec.Exec(ctx, query,
		blocked.ID(),
		blocked.WorkspaceID(),
		blocked.StaffID(),
		blocked.Range().Start,
		blocked.Range().End,
		blocked.Reason(),
		blocked.CreatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to save blocked range: %w", err)
	}
	return nil
}

// RulesForDay returns the active weekly rules applying to a weekday.
func (r *PostgresAvailabilityRepository) RulesForDay(
	ctx context.Context,
	workspaceID uuid.UUID,
	bookingType string,
	day time.Weekday,
) ([]*domain.AvailabilityRule, error) {
	exec := database.ExecutorFromContext(ctx, r.conn)

	query := `
		SELECT id, workspace_id, staff_id, booking_type, day_of_week,
		       start_minute, end_minute, active, created_at, updated_at
		FROM availability_rules
		WHERE workspace_id = $1 AND booking_type = $2 AND day_of_week = $3 AND active
		ORDER BY start_minute
	`
	rows, err := exec.Query(ctx, query, workspaceID, bookingType, int(day))
	if err != nil {
		return nil, fmt.Errorf("failed to query availability rules: %w", err)
	}
	defer rows.Close()

	var rules []*domain.AvailabilityRule
	for rows.Next() {
		var (
			id                       uuid.UUID
			wsID                     uuid.UUID
			staffID                  *uuid.UUID
			bType                    string
			dayOfWeek                int
			startMinute, endMinute   int
			active                   bool
			createdAt, updatedAt     time.Time
		)
		if err := rows.Scan(&id, &wsID, &staffID, &bType, &dayOfWeek, &startMinute, &endMinute, &active, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan availability rule: %w", err)
		}
		rules = append(rules, domain.RehydrateAvailabilityRule(
			id, wsID, staffID, bType, time.Weekday(dayOfWeek),
			startMinute, endMinute, active, createdAt, updatedAt,
		))
	}
	return rules, rows.Err()
}

// SlotsInRange returns the ad-hoc slots overlapping the given range.
func (r *PostgresAvailabilityRepository) SlotsInRange(
	ctx context.Context,
	workspaceID uuid.UUID,
	bookingType string,
	timeRange domain.TimeRange,
) ([]*domain.AdHocSlot, error) {
	exec := database.ExecutorFromContext(ctx, r.conn)

	query := `
		SELECT id, workspace_id, staff_id, booking_type, start_at, end_at, created_at
		FROM adhoc_slots
		WHERE workspace_id = $1 AND booking_type = $2
		  AND start_at < $3 AND end_at > $4
		ORDER BY start_at
	`
	rows, err := exec.Query(ctx, query, workspaceID, bookingType, timeRange.End, timeRange.Start)
	if err != nil {
		return nil, fmt.Errorf("failed to query ad-hoc slots: %w", err)
	}
	defer rows.Close()

	var slots []*domain.AdHocSlot
	for rows.Next() {
		var (
			id, wsID       uuid.UUID
			staffID        *uuid.UUID
			bType          string
			startAt, endAt time.Time
			createdAt      time.Time
		)
		if err := rows.Scan(&id, &wsID, &staffID, &bType, &startAt, &endAt, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan ad-hoc slot: %w", err)
		}
		slotRange, err := domain.NewTimeRange(startAt, endAt)
		if err != nil {
			return nil, fmt.Errorf("corrupt slot range %s: %w", id, err)
		}
		slots = append(slots, domain.RehydrateAdHocSlot(id, wsID, staffID, bType, slotRange, createdAt, createdAt))
	}
	return slots, rows.Err()
}

// BlockedInRange returns the blocked ranges overlapping the given range.
func (r *PostgresAvailabilityRepository) BlockedInRange(
	ctx context.Context,
	workspaceID uuid.UUID,
	timeRange domain.TimeRange,
) ([]*domain.BlockedRange, error) {
	exec := database.ExecutorFromContext(ctx, r.conn)

	query := `
		SELECT id, workspace_id, staff_id, start_at, end_at, COALESCE(reason, ''), created_at
		FROM blocked_ranges
		WHERE workspace_id = $1
		  AND start_at < $2 AND end_at > $3
		ORDER BY start_at
	`
	rows, err := exec.Query(ctx, query, workspaceID, timeRange.End, timeRange.Start)
	if err != nil {
		return nil, fmt.Errorf("failed to query blocked ranges: %w", err)
	}
	defer rows.Close()

	var blocks []*domain.BlockedRange
	for rows.Next() {
		var (
			id, wsID       uuid.UUID
			staffID        *uuid.UUID
			startAt, endAt time.Time
			reason         string
			createdAt      time.Time
		)
		if err := rows.Scan(&id, &wsID, &staffID, &startAt, &endAt, &reason, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan blocked range: %w", err)
		}
		blockRange, err := domain.NewTimeRange(startAt, endAt)
		if err != nil {
			return nil, fmt.Errorf("corrupt blocked range %s: %w", id, err)
		}
		blocks = append(blocks, domain.RehydrateBlockedRange(id, wsID, staffID, blockRange, reason, createdAt, createdAt))
	}
	return blocks, rows.Err()
}
