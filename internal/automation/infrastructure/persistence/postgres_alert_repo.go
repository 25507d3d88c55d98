package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bookline/bookline/internal/automation/domain"
	"github.com/bookline/bookline/internal/shared/infrastructure/database"
)

// PostgresAlertRepository implements domain.AlertRepository using
// PostgreSQL.
type PostgresAlertRepository struct {
	conn database.Connection
}

// NewPostgresAlertRepository creates a new PostgreSQL alert repository.
func NewPostgresAlertRepository(conn database.Connection) *PostgresAlertRepository {
	return &PostgresAlertRepository{conn: conn}
}

// Save inserts an alert. Alerts are never updated.
func (r *PostgresAlertRepository) Save(ctx context.Context, alert *domain.Alert) error {
	exec := database.ExecutorFromContext(ctx, r.conn)

	metadata, err := marshalJSON(alert.Metadata())
	if err != nil {
		return err
	}

	query := `
		INSERT INTO alerts (id, workspace_id, kind, message, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = exec.Exec(ctx, query,
		alert.ID(),
		alert.WorkspaceID(),
		alert.Kind(),
		alert.Message(),
		metadata,
		alert.CreatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	return nil
}

// FindByWorkspace returns the newest alerts for a workspace.
func (r *PostgresAlertRepository) FindByWorkspace(ctx context.Context, workspaceID uuid.UUID, limit int) ([]*domain.Alert, error) {
	exec := database.ExecutorFromContext(ctx, r.conn)

	query := `
		SELECT id, workspace_id, kind, message, metadata, created_at
		FROM alerts
		WHERE workspace_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := exec.Query(ctx, query, workspaceID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*domain.Alert
	for rows.Next() {
		var (
			id, wsID      uuid.UUID
			kind, message string
			metadata      []byte
			createdAt     time.Time
		)
		if err := rows.Scan(&id, &wsID, &kind, &message, &metadata, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		parsed, err := unmarshalMap(metadata)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, domain.RehydrateAlert(id, wsID, kind, message, parsed, createdAt.UTC()))
	}
	return alerts, rows.Err()
}
