package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bookline/bookline/internal/booking/domain"
	sharedDomain "github.com/bookline/bookline/internal/shared/domain"
	"github.com/bookline/bookline/internal/shared/infrastructure/database"
	"github.com/bookline/bookline/pkg/observability"
)

// ReserveCommand is a request to reserve a time range.
type ReserveCommand struct {
	WorkspaceID uuid.UUID
	BookingType string
	StaffID     *uuid.UUID
	Start       time.Time
	End         time.Time
	Source      domain.Source
	Actor       sharedDomain.Actor
	Contact     ContactDetails
}

// ReservationService is the conflict guard: it turns a reserve request
// into at most one booking per overlapping range and staff identity.
// The pre-check against existing bookings fails fast; the storage
// exclusion constraint is the authoritative, race-safe guarantee.
type ReservationService struct {
	uow        *database.UnitOfWork
	bookings   domain.BookingRepository
	events     EventAppender
	intake     ContactIntake
	dispatcher Dispatcher
	cache      DatesCache
	logger     *slog.Logger
}

// NewReservationService wires the reserve path. intake, dispatcher and
// cache may be nil.
func NewReservationService(
	uow *database.UnitOfWork,
	bookings domain.BookingRepository,
	events EventAppender,
	intake ContactIntake,
	dispatcher Dispatcher,
	cache DatesCache,
	logger *slog.Logger,
) *ReservationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReservationService{
		uow:        uow,
		bookings:   bookings,
		events:     events,
		intake:     intake,
		dispatcher: dispatcher,
		cache:      cache,
		logger:     logger,
	}
}

// Reserve validates, pre-checks, and inserts a booking. Overlap with an
// existing non-cancelled booking on the same staff identity returns
// domain.ErrConflict; an empty, inverted, or over-long range returns
// domain.ErrInvalidRange before any storage interaction.
func (s *ReservationService) Reserve(ctx context.Context, cmd ReserveCommand) (*domain.Booking, error) {
	timeRange, err := domain.NewTimeRange(cmd.Start, cmd.End)
	if err != nil {
		return nil, err
	}

	booking, err := domain.NewBooking(cmd.WorkspaceID, cmd.BookingType, cmd.StaffID, timeRange, cmd.Source)
	if err != nil {
		return nil, err
	}

	ctx = observability.WithWorkspaceID(ctx, cmd.WorkspaceID.String())

	err = s.uow.WithinTx(ctx, func(txCtx context.Context) error {
		if s.intake != nil && !cmd.Contact.Empty() {
			contactID, conversationID, err := s.intake.Resolve(txCtx, cmd.WorkspaceID, cmd.Contact, cmd.Actor)
			if err != nil {
				return fmt.Errorf("contact intake failed: %w", err)
			}
			booking.AttachContact(contactID, conversationID)
		}

		// Optimistic pre-check: an optimization, never the safety
		// mechanism.
		overlapping, err := s.bookings.FindOverlapping(txCtx, cmd.WorkspaceID, cmd.BookingType, cmd.StaffID, timeRange)
		if err != nil {
			return fmt.Errorf("overlap pre-check failed: %w", err)
		}
		if len(overlapping) > 0 {
			return domain.ErrConflict
		}

		if err := s.bookings.Create(txCtx, booking); err != nil {
			return err
		}

		booking.RecordCreated(cmd.Actor)
		return s.appendEvents(txCtx, booking)
	})
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx, cmd.WorkspaceID, cmd.BookingType)
	}
	s.dispatch(ctx, booking)

	s.logger.InfoContext(ctx, "booking reserved",
		"booking_id", booking.ID(),
		"booking_type", booking.BookingType(),
		"status", booking.Status(),
	)
	return booking, nil
}

func (s *ReservationService) appendEvents(ctx context.Context, booking *domain.Booking) error {
	for _, event := range booking.DomainEvents() {
		if err := s.events.Append(ctx, event); err != nil {
			return fmt.Errorf("failed to append %s: %w", event.EventType(), err)
		}
	}
	return nil
}

// dispatch hands committed events to the automation engine. Failures
// are logged, never propagated.
func (s *ReservationService) dispatch(ctx context.Context, booking *domain.Booking) {
	if s.dispatcher == nil {
		booking.ClearDomainEvents()
		return
	}
	for _, event := range booking.DomainEvents() {
		s.dispatcher.Dispatch(ctx, event)
	}
	booking.ClearDomainEvents()
}
