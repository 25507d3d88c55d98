// Package application implements the inventory use cases.
package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/bookline/bookline/internal/inventory/domain"
	sharedDomain "github.com/bookline/bookline/internal/shared/domain"
)

// EventAppender persists domain events to the append-only event log.
type EventAppender interface {
	Append(ctx context.Context, event sharedDomain.DomainEvent) error
}

// Dispatcher hands appended events to the automation engine.
type Dispatcher interface {
	Dispatch(ctx context.Context, event sharedDomain.DomainEvent)
}

// DeductionService consumes stock when bookings complete. It satisfies
// the booking context's InventoryDeductor port.
type DeductionService struct {
	items      domain.ItemRepository
	usage      domain.UsageRepository
	events     EventAppender
	dispatcher Dispatcher
	logger     *slog.Logger
}

// NewDeductionService creates a deduction service. dispatcher may be
// nil when no automation engine is attached.
func NewDeductionService(
	items domain.ItemRepository,
	usage domain.UsageRepository,
	events EventAppender,
	dispatcher Dispatcher,
	logger *slog.Logger,
) *DeductionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DeductionService{
		items:      items,
		usage:      usage,
		events:     events,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// DeductForBooking consumes the stock mapped to a booking type. A
// booking type with no mapping is a no-op. Items that drop to their
// reorder threshold emit a low-stock event for the automation engine
// to act on.
func (s *DeductionService) DeductForBooking(
	ctx context.Context,
	workspaceID, bookingID uuid.UUID,
	bookingType string,
	actor sharedDomain.Actor,
) error {
	mappings, err := s.items.ItemsForBookingType(ctx, workspaceID, bookingType)
	if err != nil {
		return fmt.Errorf("failed to load inventory mapping: %w", err)
	}

	for _, mapping := range mappings {
		item := mapping.Item
		wasLow := item.IsLowStock()

		if err := item.Deduct(mapping.Quantity); err != nil {
			return err
		}
		if err := s.items.Save(ctx, item); err != nil {
			return fmt.Errorf("failed to save item %s: %w", item.ID(), err)
		}
		if err := s.usage.Record(ctx, domain.NewUsage(workspaceID, item.ID(), &bookingID, mapping.Quantity)); err != nil {
			return fmt.Errorf("failed to record usage for item %s: %w", item.ID(), err)
		}

		s.emit(ctx, domain.NewItemDeductedEvent(item, bookingID, mapping.Quantity, actor))

		// Only the crossing emits, so a stuck-low item does not alert on
		// every completion.
		if item.IsLowStock() && !wasLow {
			s.emit(ctx, domain.NewLowStockEvent(item, sharedDomain.SystemActor()))
		}
	}
	return nil
}

func (s *DeductionService) emit(ctx context.Context, event sharedDomain.DomainEvent) {
	if err := s.events.Append(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to append inventory event",
			"event_type", event.EventType(),
			"error", err,
		)
		return
	}
	if s.dispatcher != nil {
		s.dispatcher.Dispatch(ctx, event)
	}
}
