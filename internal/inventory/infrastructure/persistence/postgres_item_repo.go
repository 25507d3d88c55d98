// Package persistence implements the inventory repositories on
// PostgreSQL.
package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bookline/bookline/internal/inventory/domain"
	"github.com/bookline/bookline/internal/shared/infrastructure/database"
)

// PostgresItemRepository implements domain.ItemRepository using
// PostgreSQL.
type PostgresItemRepository struct {
	conn database.Connection
}

// NewPostgresItemRepository creates a new PostgreSQL item repository.
func NewPostgresItemRepository(conn database.Connection) *PostgresItemRepository {
	return &PostgresItemRepository{conn: conn}
}

// Save inserts or updates an item.
func (r *PostgresItemRepository) Save(ctx context.Context, item *domain.Item) error {
	exec := database.ExecutorFromContext(ctx, r.conn)

	query := `
		INSERT INTO inventory_items (
			id, workspace_id, name, quantity, reorder_threshold, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			quantity = EXCLUDED.quantity,
			reorder_threshold = EXCLUDED.reorder_threshold,
			updated_at = EXCLUDED.updated_at
	`
	_, err := exec.Exec(ctx, query,
		item.ID(),
		item.WorkspaceID(),
		item.Name(),
		item.Quantity(),
		item.ReorderThreshold(),
		item.CreatedAt(),
		item.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to save inventory item: %w", err)
	}
	return nil
}

// FindByID loads one item.
func (r *PostgresItemRepository) FindByID(ctx context.Context, workspaceID, id uuid.UUID) (*domain.Item, error) {
	exec := database.ExecutorFromContext(ctx, r.conn)

	query := itemColumns + ` WHERE workspace_id = $1 AND id = $2`
	item, err := scanItem(exec.QueryRow(ctx, query, workspaceID, id))
	if err != nil {
		if database.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load inventory item: %w", err)
	}
	return item, nil
}

// FindByWorkspace returns all items of a workspace.
func (r *PostgresItemRepository) FindByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]*domain.Item, error) {
	exec := database.ExecutorFromContext(ctx, r.conn)

	query := itemColumns + ` WHERE workspace_id = $1 ORDER BY name`
	rows, err := exec.Query(ctx, query, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query inventory items: %w", err)
	}
	defer rows.Close()

	var items []*domain.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan inventory item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ItemsForBookingType returns the consumption mapping for a booking
// type.
func (r *PostgresItemRepository) ItemsForBookingType(ctx context.Context, workspaceID uuid.UUID, bookingType string) ([]domain.BookingTypeItem, error) {
	exec := database.ExecutorFromContext(ctx, r.conn)

	query := `
		SELECT i.id, i.workspace_id, i.name, i.quantity, i.reorder_threshold,
		       i.created_at, i.updated_at, m.quantity
		FROM booking_type_items m
		JOIN inventory_items i ON i.id = m.item_id
		WHERE m.workspace_id = $1 AND m.booking_type = $2
		ORDER BY i.name
	`
	rows, err := exec.Query(ctx, query, workspaceID, bookingType)
	if err != nil {
		return nil, fmt.Errorf("failed to query booking type items: %w", err)
	}
	defer rows.Close()

	var mappings []domain.BookingTypeItem
	for rows.Next() {
		var (
			row      itemRow
			quantity int
		)
		err := rows.Scan(&row.ID, &row.WorkspaceID, &row.Name, &row.Quantity,
			&row.ReorderThreshold, &row.CreatedAt, &row.UpdatedAt, &quantity)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking type item: %w", err)
		}
		mappings = append(mappings, domain.BookingTypeItem{Item: row.toDomain(), Quantity: quantity})
	}
	return mappings, rows.Err()
}

// MapBookingType upserts one line of a booking type's mapping.
func (r *PostgresItemRepository) MapBookingType(ctx context.Context, workspaceID uuid.UUID, bookingType string, itemID uuid.UUID, quantity int) error {
	exec := database.ExecutorFromContext(ctx, r.conn)

	query := `
		INSERT INTO booking_type_items (workspace_id, booking_type, item_id, quantity)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (workspace_id, booking_type, item_id) DO UPDATE SET
			quantity = EXCLUDED.quantity
	`
	_, err := exec.Exec(ctx, query, workspaceID, bookingType, itemID, quantity)
	if err != nil {
		return fmt.Errorf("failed to map booking type item: %w", err)
	}
	return nil
}

type itemRow struct {
	ID               uuid.UUID
	WorkspaceID      uuid.UUID
	Name             string
	Quantity         int
	ReorderThreshold int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (r itemRow) toDomain() *domain.Item {
	return domain.RehydrateItem(r.ID, r.WorkspaceID, r.Name, r.Quantity, r.ReorderThreshold,
		r.CreatedAt.UTC(), r.UpdatedAt.UTC())
}

const itemColumns = `
	SELECT id, workspace_id, name, quantity, reorder_threshold, created_at, updated_at
	FROM inventory_items`

func scanItem(row database.Row) (*domain.Item, error) {
	var r itemRow
	err := row.Scan(&r.ID, &r.WorkspaceID, &r.Name, &r.Quantity, &r.ReorderThreshold,
		&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return r.toDomain(), nil
}

// PostgresUsageRepository implements domain.UsageRepository using
// PostgreSQL.
type PostgresUsageRepository struct {
	conn database.Connection
}

// NewPostgresUsageRepository creates a new PostgreSQL usage repository.
func NewPostgresUsageRepository(conn database.Connection) *PostgresUsageRepository {
	return &PostgresUsageRepository{conn: conn}
}

// Record inserts a usage record. Usage is append-only.
func (r *PostgresUsageRepository) Record(ctx context.Context, usage *domain.Usage) error {
	exec := database.ExecutorFromContext(ctx, r.conn)

	query := `
		INSERT INTO inventory_usage (id, workspace_id, item_id, booking_id, quantity, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := exec.Exec(ctx, query,
		usage.ID(),
		usage.WorkspaceID(),
		usage.ItemID(),
		usage.BookingID(),
		usage.Quantity(),
		usage.CreatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to record inventory usage: %w", err)
	}
	return nil
}
