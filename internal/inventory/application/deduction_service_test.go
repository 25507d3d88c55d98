package application_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookline/bookline/internal/inventory/application"
	"github.com/bookline/bookline/internal/inventory/domain"
	sharedDomain "github.com/bookline/bookline/internal/shared/domain"
)

type memItems struct {
	items    map[uuid.UUID]*domain.Item
	mappings map[string][]mappingRow
}

type mappingRow struct {
	itemID   uuid.UUID
	quantity int
}

func newMemItems() *memItems {
	return &memItems{items: map[uuid.UUID]*domain.Item{}, mappings: map[string][]mappingRow{}}
}

func (m *memItems) Save(ctx context.Context, item *domain.Item) error {
	m.items[item.ID()] = item
	return nil
}

func (m *memItems) FindByID(ctx context.Context, workspaceID, id uuid.UUID) (*domain.Item, error) {
	item, ok := m.items[id]
	if !ok || item.WorkspaceID() != workspaceID {
		return nil, domain.ErrNotFound
	}
	return item, nil
}

func (m *memItems) FindByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]*domain.Item, error) {
	var out []*domain.Item
	for _, item := range m.items {
		if item.WorkspaceID() == workspaceID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (m *memItems) ItemsForBookingType(ctx context.Context, workspaceID uuid.UUID, bookingType string) ([]domain.BookingTypeItem, error) {
	var out []domain.BookingTypeItem
	for _, row := range m.mappings[bookingType] {
		if item, ok := m.items[row.itemID]; ok && item.WorkspaceID() == workspaceID {
			out = append(out, domain.BookingTypeItem{Item: item, Quantity: row.quantity})
		}
	}
	return out, nil
}

func (m *memItems) MapBookingType(ctx context.Context, workspaceID uuid.UUID, bookingType string, itemID uuid.UUID, quantity int) error {
	m.mappings[bookingType] = append(m.mappings[bookingType], mappingRow{itemID: itemID, quantity: quantity})
	return nil
}

type memUsage struct {
	records []*domain.Usage
}

func (m *memUsage) Record(ctx context.Context, usage *domain.Usage) error {
	m.records = append(m.records, usage)
	return nil
}

type memAppender struct {
	events []sharedDomain.DomainEvent
}

func (m *memAppender) Append(ctx context.Context, event sharedDomain.DomainEvent) error {
	m.events = append(m.events, event)
	return nil
}

func (m *memAppender) byType(eventType string) []sharedDomain.DomainEvent {
	var out []sharedDomain.DomainEvent
	for _, event := range m.events {
		if event.EventType() == eventType {
			out = append(out, event)
		}
	}
	return out
}

func newItem(t *testing.T, workspaceID uuid.UUID, name string, quantity, threshold int) *domain.Item {
	t.Helper()
	item, err := domain.NewItem(workspaceID, name, quantity, threshold)
	require.NoError(t, err)
	return item
}

func TestDeductForBooking_ConsumesMappedStock(t *testing.T) {
	workspaceID := uuid.New()
	bookingID := uuid.New()
	items := newMemItems()
	usage := &memUsage{}
	appender := &memAppender{}

	shampoo := newItem(t, workspaceID, "shampoo", 10, 2)
	towels := newItem(t, workspaceID, "towels", 20, 5)
	require.NoError(t, items.Save(context.Background(), shampoo))
	require.NoError(t, items.Save(context.Background(), towels))
	require.NoError(t, items.MapBookingType(context.Background(), workspaceID, "haircut", shampoo.ID(), 1))
	require.NoError(t, items.MapBookingType(context.Background(), workspaceID, "haircut", towels.ID(), 2))

	service := application.NewDeductionService(items, usage, appender, nil, nil)
	err := service.DeductForBooking(context.Background(), workspaceID, bookingID, "haircut", sharedDomain.SystemActor())
	require.NoError(t, err)

	assert.Equal(t, 9, shampoo.Quantity())
	assert.Equal(t, 18, towels.Quantity())
	require.Len(t, usage.records, 2)
	assert.Equal(t, bookingID, *usage.records[0].BookingID())
	assert.Len(t, appender.byType(domain.EventItemDeducted), 2)
	assert.Empty(t, appender.byType(domain.EventLowStock))
}

func TestDeductForBooking_UnmappedTypeIsANoOp(t *testing.T) {
	workspaceID := uuid.New()
	items := newMemItems()
	usage := &memUsage{}
	appender := &memAppender{}

	service := application.NewDeductionService(items, usage, appender, nil, nil)
	err := service.DeductForBooking(context.Background(), workspaceID, uuid.New(), "consultation", sharedDomain.SystemActor())
	require.NoError(t, err)

	assert.Empty(t, usage.records)
	assert.Empty(t, appender.events)
}

func TestDeductForBooking_EmitsLowStockOnThresholdCrossing(t *testing.T) {
	workspaceID := uuid.New()
	items := newMemItems()
	appender := &memAppender{}

	dye := newItem(t, workspaceID, "hair dye", 3, 2)
	require.NoError(t, items.Save(context.Background(), dye))
	require.NoError(t, items.MapBookingType(context.Background(), workspaceID, "coloring", dye.ID(), 1))

	service := application.NewDeductionService(items, &memUsage{}, appender, nil, nil)

	// 3 -> 2 crosses the threshold and alerts once.
	require.NoError(t, service.DeductForBooking(context.Background(), workspaceID, uuid.New(), "coloring", sharedDomain.SystemActor()))
	require.Len(t, appender.byType(domain.EventLowStock), 1)

	low := appender.byType(domain.EventLowStock)[0]
	assert.Equal(t, "hair dye", low.Payload()["item_name"])
	assert.Equal(t, 2, low.Payload()["quantity"])

	// 2 -> 1 is already below threshold, no second alert.
	require.NoError(t, service.DeductForBooking(context.Background(), workspaceID, uuid.New(), "coloring", sharedDomain.SystemActor()))
	assert.Len(t, appender.byType(domain.EventLowStock), 1)
}

func TestDeductForBooking_StockNeverGoesNegative(t *testing.T) {
	workspaceID := uuid.New()
	items := newMemItems()
	usage := &memUsage{}

	towels := newItem(t, workspaceID, "towels", 1, 0)
	require.NoError(t, items.Save(context.Background(), towels))
	require.NoError(t, items.MapBookingType(context.Background(), workspaceID, "massage", towels.ID(), 3))

	service := application.NewDeductionService(items, usage, &memAppender{}, nil, nil)
	require.NoError(t, service.DeductForBooking(context.Background(), workspaceID, uuid.New(), "massage", sharedDomain.SystemActor()))

	assert.Equal(t, 0, towels.Quantity())
	require.Len(t, usage.records, 1)
	assert.Equal(t, 3, usage.records[0].Quantity())
}
