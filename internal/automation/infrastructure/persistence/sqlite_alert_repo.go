package persistence

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/bookline/bookline/internal/automation/domain"
	"github.com/bookline/bookline/internal/shared/infrastructure/database"
)

// SQLiteAlertRepository implements domain.AlertRepository for local
// mode.
type SQLiteAlertRepository struct {
	conn database.Connection
}

// NewSQLiteAlertRepository creates a new SQLite alert repository.
func NewSQLiteAlertRepository(conn database.Connection) *SQLiteAlertRepository {
	return &SQLiteAlertRepository{conn: conn}
}

// Save inserts an alert. Alerts are never updated.
func (r *SQLiteAlertRepository) Save(ctx context.Context, alert *domain.Alert) error {
	exec := database.ExecutorFromContext(ctx, r.conn)

	metadata, err := marshalJSON(alert.Metadata())
	if err != nil {
		return err
	}

	query := `
		INSERT INTO alerts (id, workspace_id, kind, message, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err = exec.Exec(ctx, query,
		alert.ID().String(),
		alert.WorkspaceID().String(),
		alert.Kind(),
		alert.Message(),
		string(metadata),
		formatSQLiteTime(alert.CreatedAt()),
	)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	return nil
}

// FindByWorkspace returns the newest alerts for a workspace.
func (r *SQLiteAlertRepository) FindByWorkspace(ctx context.Context, workspaceID uuid.UUID, limit int) ([]*domain.Alert, error) {
	exec := database.ExecutorFromContext(ctx, r.conn)

	query := `
		SELECT id, workspace_id, kind, message, metadata, created_at
		FROM alerts
		WHERE workspace_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`
	rows, err := exec.Query(ctx, query, workspaceID.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*domain.Alert
	for rows.Next() {
		var (
			id, wsID      uuid.UUID
			kind, message string
			metadata      string
			createdAt     string
		)
		if err := rows.Scan(&id, &wsID, &kind, &message, &metadata, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		parsed, err := unmarshalMap([]byte(metadata))
		if err != nil {
			return nil, err
		}
		created, err := parseSQLiteTime(createdAt)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, domain.RehydrateAlert(id, wsID, kind, message, parsed, created))
	}
	return alerts, rows.Err()
}
