package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bookline/bookline/internal/booking/domain"
	"github.com/bookline/bookline/internal/shared/infrastructure/database"
)

// exclBookingConstraint is the range-exclusion constraint enforcing the
// no-overlap invariant at the storage layer.
const exclBookingConstraint = "excl_booking_per_staff_time"

// PostgresBookingRepository implements domain.BookingRepository using
// PostgreSQL.
type PostgresBookingRepository struct {
	conn database.Connection
}

// NewPostgresBookingRepository creates a new PostgreSQL booking repository.
func NewPostgresBookingRepository(conn database.Connection) *PostgresBookingRepository {
	return &PostgresBookingRepository{conn: conn}
}

// bookingRow represents a database row for bookings.
type bookingRow struct {
	ID             uuid.UUID
	WorkspaceID    uuid.UUID
	ContactID      *uuid.UUID
	ConversationID *uuid.UUID
	StaffID        *uuid.UUID
	BookingType    string
	StartAt        time.Time
	EndAt          time.Time
	Status         string
	Source         string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (r bookingRow) toDomain() (*domain.Booking, error) {
	timeRange, err := domain.NewTimeRange(r.StartAt, r.EndAt)
	if err != nil {
		return nil, fmt.Errorf("corrupt booking range %s: %w", r.ID, err)
	}
	return domain.RehydrateBooking(
		r.ID, r.WorkspaceID, r.ContactID, r.ConversationID, r.StaffID,
		r.BookingType, timeRange, domain.Status(r.Status), domain.Source(r.Source),
		r.CreatedAt, r.UpdatedAt,
	), nil
}

// Create inserts a new booking. A violation of the range-exclusion
// constraint is translated to domain.ErrConflict and never propagated
// raw.
func (r *PostgresBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	exec := database.ExecutorFromContext(ctx, r.conn)

	query := `
		INSERT INTO bookings (
			id, workspace_id, contact_id, conversation_id, staff_id,
			booking_type, start_at, end_at, status, source, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := exec.Exec(ctx, query,
		booking.ID(),
		booking.WorkspaceID(),
		booking.ContactID(),
		booking.ConversationID(),
		booking.StaffID(),
		booking.BookingType(),
		booking.Range().Start,
		booking.Range().End,
		string(booking.Status()),
		string(booking.Source()),
		booking.CreatedAt(),
		booking.UpdatedAt(),
	)
	if err != nil {
		if database.IsExclusionViolation(err, exclBookingConstraint) {
			return domain.ErrConflict
		}
		return fmt.Errorf("failed to insert booking: %w", err)
	}
	return nil
}

// Save persists status and association changes.
func (r *PostgresBookingRepository) Save(ctx context.Context, booking *domain.Booking) error {
	exec := database.ExecutorFromContext(ctx, r.conn)

	query := `
		UPDATE bookings
		SET contact_id = $3, conversation_id = $4, status = $5, updated_at = $6
		WHERE workspace_id = $1 AND id = $2
	`
	result, err := exec.Exec(ctx, query,
		booking.WorkspaceID(),
		booking.ID(),
		booking.ContactID(),
		booking.ConversationID(),
		string(booking.Status()),
		booking.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", err)
	}
	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// FindByID finds a booking by its ID within a workspace.
func (r *PostgresBookingRepository) FindByID(ctx context.Context, workspaceID, id uuid.UUID) (*domain.Booking, error) {
	exec := database.ExecutorFromContext(ctx, r.conn)

	query := `
		SELECT id, workspace_id, contact_id, conversation_id, staff_id,
		       booking_type, start_at, end_at, status, source, created_at, updated_at
		FROM bookings
		WHERE workspace_id = $1 AND id = $2
	`
	var row bookingRow
	err := exec.QueryRow(ctx, query, workspaceID, id).Scan(
		&row.ID, &row.WorkspaceID, &row.ContactID, &row.ConversationID, &row.StaffID,
		&row.BookingType, &row.StartAt, &row.EndAt, &row.Status, &row.Source,
		&row.CreatedAt, &row.UpdatedAt,
	)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load booking: %w", err)
	}
	return row.toDomain()
}

// FindOverlapping returns the non-cancelled bookings overlapping the
// given range on the effective staff identity.
func (r *PostgresBookingRepository) FindOverlapping(
	ctx context.Context,
	workspaceID uuid.UUID,
	bookingType string,
	staffID *uuid.UUID,
	timeRange domain.TimeRange,
) ([]*domain.Booking, error) {
	exec := database.ExecutorFromContext(ctx, r.conn)

	var (
		query string
		args  []any
	)
	if staffID != nil {
		query = `
			SELECT id, workspace_id, contact_id, conversation_id, staff_id,
			       booking_type, start_at, end_at, status, source, created_at, updated_at
			FROM bookings
			WHERE workspace_id = $1 AND staff_id = $2
			  AND status <> 'cancelled'
			  AND start_at < $3 AND end_at > $4
		`
		args = []any{workspaceID, *staffID, timeRange.End, timeRange.Start}
	} else {
		query = `
			SELECT id, workspace_id, contact_id, conversation_id, staff_id,
			       booking_type, start_at, end_at, status, source, created_at, updated_at
			FROM bookings
			WHERE workspace_id = $1 AND staff_id IS NULL AND booking_type = $2
			  AND status <> 'cancelled'
			  AND start_at < $3 AND end_at > $4
		`
		args = []any{workspaceID, bookingType, timeRange.End, timeRange.Start}
	}

	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query overlapping bookings: %w", err)
	}
	return scanBookings(rows)
}

// FindAllInRange returns every non-cancelled booking overlapping the
// given range.
func (r *PostgresBookingRepository) FindAllInRange(
	ctx context.Context,
	workspaceID uuid.UUID,
	timeRange domain.TimeRange,
) ([]*domain.Booking, error) {
	exec := database.ExecutorFromContext(ctx, r.conn)

	query := `
		SELECT id, workspace_id, contact_id, conversation_id, staff_id,
		       booking_type, start_at, end_at, status, source, created_at, updated_at
		FROM bookings
		WHERE workspace_id = $1
		  AND status <> 'cancelled'
		  AND start_at < $2 AND end_at > $3
		ORDER BY start_at
	`
	rows, err := exec.Query(ctx, query, workspaceID, timeRange.End, timeRange.Start)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings in range: %w", err)
	}
	return scanBookings(rows)
}

func scanBookings(rows database.Rows) ([]*domain.Booking, error) {
	defer rows.Close()

	var bookings []*domain.Booking
	for rows.Next() {
		var row bookingRow
		err := rows.Scan(
			&row.ID, &row.WorkspaceID, &row.ContactID, &row.ConversationID, &row.StaffID,
			&row.BookingType, &row.StartAt, &row.EndAt, &row.Status, &row.Source,
			&row.CreatedAt, &row.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		booking, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}
	return bookings, rows.Err()
}
