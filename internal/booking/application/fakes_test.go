package application_test

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bookline/bookline/internal/booking/domain"
	sharedDomain "github.com/bookline/bookline/internal/shared/domain"
	"github.com/bookline/bookline/internal/shared/infrastructure/database"
)

// stubConn satisfies database.Connection with no real storage so the
// unit of work can hand out transactions in tests.
type stubConn struct{}

func (stubConn) Exec(ctx context.Context, query string, args ...any) (database.Result, error) {
	return nil, nil
}
func (stubConn) QueryRow(ctx context.Context, query string, args ...any) database.Row { return nil }
func (stubConn) Query(ctx context.Context, query string, args ...any) (database.Rows, error) {
	return nil, nil
}
func (stubConn) BeginTx(ctx context.Context) (database.Transaction, error) { return stubTx{}, nil }
func (stubConn) Close() error                                              { return nil }
func (stubConn) Ping(ctx context.Context) error                            { return nil }
func (stubConn) Driver() database.Driver                                   { return database.DriverSQLite }

type stubTx struct{}

func (stubTx) Exec(ctx context.Context, query string, args ...any) (database.Result, error) {
	return nil, nil
}
func (stubTx) QueryRow(ctx context.Context, query string, args ...any) database.Row { return nil }
func (stubTx) Query(ctx context.Context, query string, args ...any) (database.Rows, error) {
	return nil, nil
}
func (stubTx) Commit(ctx context.Context) error   { return nil }
func (stubTx) Rollback(ctx context.Context) error { return nil }

// memAvailability is an in-memory availability repository.
type memAvailability struct {
	rules   []*domain.AvailabilityRule
	slots   []*domain.AdHocSlot
	blocked []*domain.BlockedRange
}

func (m *memAvailability) SaveRule(ctx context.Context, rule *domain.AvailabilityRule) error {
	m.rules = append(m.rules, rule)
	return nil
}

func (m *memAvailability) SaveSlot(ctx context.Context, slot *domain.AdHocSlot) error {
	m.slots = append(m.slots, slot)
	return nil
}

func (m *memAvailability) SaveBlockedRange(ctx context.Context, blocked *domain.BlockedRange) error {
	m.blocked = append(m.blocked, blocked)
	return nil
}

func (m *memAvailability) RulesForDay(ctx context.Context, workspaceID uuid.UUID, bookingType string, day time.Weekday) ([]*domain.AvailabilityRule, error) {
	var out []*domain.AvailabilityRule
	for _, r := range m.rules {
		if r.WorkspaceID() == workspaceID && r.BookingType() == bookingType && r.DayOfWeek() == day && r.IsActive() {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memAvailability) SlotsInRange(ctx context.Context, workspaceID uuid.UUID, bookingType string, timeRange domain.TimeRange) ([]*domain.AdHocSlot, error) {
	var out []*domain.AdHocSlot
	for _, s := range m.slots {
		if s.WorkspaceID() == workspaceID && s.BookingType() == bookingType && s.Range().Overlaps(timeRange) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memAvailability) BlockedInRange(ctx context.Context, workspaceID uuid.UUID, timeRange domain.TimeRange) ([]*domain.BlockedRange, error) {
	var out []*domain.BlockedRange
	for _, b := range m.blocked {
		if b.WorkspaceID() == workspaceID && b.Range().Overlaps(timeRange) {
			out = append(out, b)
		}
	}
	return out, nil
}

// memBookings is an in-memory booking repository that emulates the
// storage exclusion constraint inside Create, guarded by a mutex so
// concurrent reserves race the same way they would against the
// database.
type memBookings struct {
	mu    sync.Mutex
	items []*domain.Booking
}

func effectiveIdentity(bookingType string, staffID *uuid.UUID) string {
	if staffID != nil {
		return staffID.String()
	}
	return "pool:" + bookingType
}

func (m *memBookings) Create(ctx context.Context, booking *domain.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	identity := effectiveIdentity(booking.BookingType(), booking.StaffID())
	for _, existing := range m.items {
		if existing.WorkspaceID() != booking.WorkspaceID() || existing.Status() == domain.StatusCancelled {
			continue
		}
		if effectiveIdentity(existing.BookingType(), existing.StaffID()) != identity {
			continue
		}
		if existing.Range().Overlaps(booking.Range()) {
			return domain.ErrConflict
		}
	}
	m.items = append(m.items, booking)
	return nil
}

func (m *memBookings) Save(ctx context.Context, booking *domain.Booking) error {
	return nil
}

func (m *memBookings) FindByID(ctx context.Context, workspaceID, id uuid.UUID) (*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.items {
		if b.WorkspaceID() == workspaceID && b.ID() == id {
			return b, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memBookings) FindOverlapping(ctx context.Context, workspaceID uuid.UUID, bookingType string, staffID *uuid.UUID, timeRange domain.TimeRange) ([]*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	identity := effectiveIdentity(bookingType, staffID)
	var out []*domain.Booking
	for _, b := range m.items {
		if b.WorkspaceID() != workspaceID || b.Status() == domain.StatusCancelled {
			continue
		}
		if effectiveIdentity(b.BookingType(), b.StaffID()) != identity {
			continue
		}
		if b.Range().Overlaps(timeRange) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memBookings) FindAllInRange(ctx context.Context, workspaceID uuid.UUID, timeRange domain.TimeRange) ([]*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*domain.Booking
	for _, b := range m.items {
		if b.WorkspaceID() == workspaceID && b.Status() != domain.StatusCancelled && b.Range().Overlaps(timeRange) {
			out = append(out, b)
		}
	}
	return out, nil
}

// memEvents records appended events in order.
type memEvents struct {
	mu     sync.Mutex
	events []sharedDomain.DomainEvent
}

func (m *memEvents) Append(ctx context.Context, event sharedDomain.DomainEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *memEvents) all() []sharedDomain.DomainEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sharedDomain.DomainEvent(nil), m.events...)
}

// memDispatcher records dispatched events.
type memDispatcher struct {
	mu     sync.Mutex
	events []sharedDomain.DomainEvent
}

func (m *memDispatcher) Dispatch(ctx context.Context, event sharedDomain.DomainEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

func (m *memDispatcher) all() []sharedDomain.DomainEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sharedDomain.DomainEvent(nil), m.events...)
}
