package domain

import (
	"github.com/google/uuid"

	sharedDomain "github.com/bookline/bookline/internal/shared/domain"
)

// Inventory event types.
const (
	EventItemDeducted = "inventory.deducted"
	EventLowStock     = "inventory.low_stock"
)

// NewItemDeductedEvent records stock consumed for a booking.
func NewItemDeductedEvent(item *Item, bookingID uuid.UUID, quantity int, actor sharedDomain.Actor) sharedDomain.DomainEvent {
	event := sharedDomain.NewBaseEvent(item.WorkspaceID(), EventItemDeducted, "inventory_item", item.ID().String(), actor)
	event.SetPayload(map[string]any{
		"item_id":    item.ID().String(),
		"item_name":  item.Name(),
		"booking_id": bookingID.String(),
		"quantity":   quantity,
		"remaining":  item.Quantity(),
	})
	return &event
}

// NewLowStockEvent records an item dropping to its reorder threshold.
// Merchants typically attach a raise_alert rule to this event type.
func NewLowStockEvent(item *Item, actor sharedDomain.Actor) sharedDomain.DomainEvent {
	event := sharedDomain.NewBaseEvent(item.WorkspaceID(), EventLowStock, "inventory_item", item.ID().String(), actor)
	event.SetPayload(map[string]any{
		"item_id":           item.ID().String(),
		"item_name":         item.Name(),
		"quantity":          item.Quantity(),
		"reorder_threshold": item.ReorderThreshold(),
	})
	return &event
}
