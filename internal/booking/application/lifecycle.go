package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/bookline/bookline/internal/booking/domain"
	sharedDomain "github.com/bookline/bookline/internal/shared/domain"
	"github.com/bookline/bookline/internal/shared/infrastructure/database"
	"github.com/bookline/bookline/pkg/observability"
)

// LifecycleService applies status transitions to existing bookings and
// owns the completion side effects.
type LifecycleService struct {
	uow        *database.UnitOfWork
	bookings   domain.BookingRepository
	events     EventAppender
	inventory  InventoryDeductor
	forms      FormTracker
	dispatcher Dispatcher
	logger     *slog.Logger
}

// NewLifecycleService wires the lifecycle path. inventory, forms and
// dispatcher may be nil.
func NewLifecycleService(
	uow *database.UnitOfWork,
	bookings domain.BookingRepository,
	events EventAppender,
	inventory InventoryDeductor,
	forms FormTracker,
	dispatcher Dispatcher,
	logger *slog.Logger,
) *LifecycleService {
	if logger == nil {
		logger = slog.Default()
	}
	return &LifecycleService{
		uow:        uow,
		bookings:   bookings,
		events:     events,
		inventory:  inventory,
		forms:      forms,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Confirm moves a pending booking to confirmed.
func (s *LifecycleService) Confirm(ctx context.Context, workspaceID, bookingID uuid.UUID, actor sharedDomain.Actor) (*domain.Booking, error) {
	return s.transition(ctx, workspaceID, bookingID, actor, (*domain.Booking).Confirm)
}

// Cancel moves a pending or confirmed booking to cancelled.
func (s *LifecycleService) Cancel(ctx context.Context, workspaceID, bookingID uuid.UUID, actor sharedDomain.Actor) (*domain.Booking, error) {
	return s.transition(ctx, workspaceID, bookingID, actor, (*domain.Booking).Cancel)
}

// MarkNoShow moves a booking to no_show.
func (s *LifecycleService) MarkNoShow(ctx context.Context, workspaceID, bookingID uuid.UUID, actor sharedDomain.Actor) (*domain.Booking, error) {
	return s.transition(ctx, workspaceID, bookingID, actor, (*domain.Booking).MarkNoShow)
}

// Complete moves a booking to completed and triggers the two
// externally-owned side effects: inventory deduction and pending-form
// tracking.
func (s *LifecycleService) Complete(ctx context.Context, workspaceID, bookingID uuid.UUID, actor sharedDomain.Actor) (*domain.Booking, error) {
	booking, err := s.transition(ctx, workspaceID, bookingID, actor, (*domain.Booking).Complete)
	if err != nil {
		return nil, err
	}

	if s.inventory != nil {
		if err := s.inventory.DeductForBooking(ctx, workspaceID, bookingID, booking.BookingType(), actor); err != nil {
			s.logger.ErrorContext(ctx, "inventory deduction failed",
				"booking_id", bookingID,
				"error", err,
			)
		}
	}
	if s.forms != nil {
		if err := s.forms.TrackForBooking(ctx, workspaceID, bookingID, booking.BookingType()); err != nil {
			s.logger.ErrorContext(ctx, "form tracking failed",
				"booking_id", bookingID,
				"error", err,
			)
		}
	}
	return booking, nil
}

func (s *LifecycleService) transition(
	ctx context.Context,
	workspaceID, bookingID uuid.UUID,
	actor sharedDomain.Actor,
	apply func(*domain.Booking, sharedDomain.Actor) error,
) (*domain.Booking, error) {
	ctx = observability.WithWorkspaceID(ctx, workspaceID.String())

	var booking *domain.Booking
	err := s.uow.WithinTx(ctx, func(txCtx context.Context) error {
		var err error
		booking, err = s.bookings.FindByID(txCtx, workspaceID, bookingID)
		if err != nil {
			return err
		}

		if err := apply(booking, actor); err != nil {
			return err
		}

		if err := s.bookings.Save(txCtx, booking); err != nil {
			return fmt.Errorf("failed to save booking: %w", err)
		}

		for _, event := range booking.DomainEvents() {
			if err := s.events.Append(txCtx, event); err != nil {
				return fmt.Errorf("failed to append %s: %w", event.EventType(), err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.dispatcher != nil {
		for _, event := range booking.DomainEvents() {
			s.dispatcher.Dispatch(ctx, event)
		}
	}
	booking.ClearDomainEvents()

	s.logger.InfoContext(ctx, "booking transitioned",
		"booking_id", bookingID,
		"status", booking.Status(),
	)
	return booking, nil
}
