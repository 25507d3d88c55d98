package domain

import (
	"context"

	"github.com/google/uuid"
)

// BookingTypeItem is one line of a booking type's consumption mapping:
// completing a booking of that type consumes Quantity units of Item.
type BookingTypeItem struct {
	Item     *Item
	Quantity int
}

// ItemRepository persists inventory items and their booking type
// mappings.
type ItemRepository interface {
	// Save inserts or updates an item.
	Save(ctx context.Context, item *Item) error

	// FindByID loads one item.
	FindByID(ctx context.Context, workspaceID, id uuid.UUID) (*Item, error)

	// FindByWorkspace returns all items of a workspace.
	FindByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]*Item, error)

	// ItemsForBookingType returns the consumption mapping for a booking
	// type. An unmapped type returns an empty slice.
	ItemsForBookingType(ctx context.Context, workspaceID uuid.UUID, bookingType string) ([]BookingTypeItem, error)

	// MapBookingType upserts one line of a booking type's mapping.
	MapBookingType(ctx context.Context, workspaceID uuid.UUID, bookingType string, itemID uuid.UUID, quantity int) error
}

// UsageRepository persists the consumption trail.
type UsageRepository interface {
	Record(ctx context.Context, usage *Usage) error
}
