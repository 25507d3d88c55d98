// Package domain holds the inventory model: stock items consumed by
// bookings and the usage trail left behind.
package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	sharedDomain "github.com/bookline/bookline/internal/shared/domain"
)

// ErrNotFound is returned when a requested item does not exist.
var ErrNotFound = errors.New("not found")

// Item is a stocked good consumed when bookings complete.
type Item struct {
	sharedDomain.BaseEntity
	workspaceID      uuid.UUID
	name             string
	quantity         int
	reorderThreshold int
}

// NewItem creates a new inventory item.
func NewItem(workspaceID uuid.UUID, name string, quantity, reorderThreshold int) (*Item, error) {
	if name == "" {
		return nil, errors.New("item name is required")
	}
	if quantity < 0 {
		return nil, errors.New("item quantity cannot be negative")
	}
	return &Item{
		BaseEntity:       sharedDomain.NewBaseEntity(),
		workspaceID:      workspaceID,
		name:             name,
		quantity:         quantity,
		reorderThreshold: reorderThreshold,
	}, nil
}

func (i *Item) WorkspaceID() uuid.UUID { return i.workspaceID }
func (i *Item) Name() string           { return i.name }
func (i *Item) Quantity() int          { return i.quantity }
func (i *Item) ReorderThreshold() int  { return i.reorderThreshold }

// Deduct removes qty units of stock. Stock never goes below zero: a
// deduction larger than the remaining stock empties the item and the
// usage record keeps the real consumption.
func (i *Item) Deduct(qty int) error {
	if qty <= 0 {
		return fmt.Errorf("deduction quantity must be positive, got %d", qty)
	}
	i.quantity -= qty
	if i.quantity < 0 {
		i.quantity = 0
	}
	i.Touch()
	return nil
}

// Restock adds qty units of stock.
func (i *Item) Restock(qty int) error {
	if qty <= 0 {
		return fmt.Errorf("restock quantity must be positive, got %d", qty)
	}
	i.quantity += qty
	i.Touch()
	return nil
}

// IsLowStock reports whether the item is at or below its reorder
// threshold.
func (i *Item) IsLowStock() bool {
	return i.quantity <= i.reorderThreshold
}

// RehydrateItem recreates an item from persisted state.
func RehydrateItem(
	id uuid.UUID,
	workspaceID uuid.UUID,
	name string,
	quantity, reorderThreshold int,
	createdAt, updatedAt time.Time,
) *Item {
	return &Item{
		BaseEntity:       sharedDomain.RehydrateBaseEntity(id, createdAt, updatedAt),
		workspaceID:      workspaceID,
		name:             name,
		quantity:         quantity,
		reorderThreshold: reorderThreshold,
	}
}

// Usage is one consumption record tying stock movement to the booking
// that caused it.
type Usage struct {
	sharedDomain.BaseEntity
	workspaceID uuid.UUID
	itemID      uuid.UUID
	bookingID   *uuid.UUID
	quantity    int
}

// NewUsage creates a usage record.
func NewUsage(workspaceID, itemID uuid.UUID, bookingID *uuid.UUID, quantity int) *Usage {
	return &Usage{
		BaseEntity:  sharedDomain.NewBaseEntity(),
		workspaceID: workspaceID,
		itemID:      itemID,
		bookingID:   bookingID,
		quantity:    quantity,
	}
}

func (u *Usage) WorkspaceID() uuid.UUID { return u.workspaceID }
func (u *Usage) ItemID() uuid.UUID      { return u.itemID }
func (u *Usage) BookingID() *uuid.UUID  { return u.bookingID }
func (u *Usage) Quantity() int          { return u.quantity }
