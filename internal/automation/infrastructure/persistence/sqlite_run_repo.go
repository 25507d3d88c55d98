package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bookline/bookline/internal/automation/domain"
	"github.com/bookline/bookline/internal/shared/infrastructure/database"
)

// SQLiteRunRepository implements domain.RunRepository for local mode.
type SQLiteRunRepository struct {
	conn database.Connection
}

// NewSQLiteRunRepository creates a new SQLite run repository.
func NewSQLiteRunRepository(conn database.Connection) *SQLiteRunRepository {
	return &SQLiteRunRepository{conn: conn}
}

// Create inserts a new run. A second run for the same (rule, event)
// pair is rejected with domain.ErrDuplicateRun.
func (r *SQLiteRunRepository) Create(ctx context.Context, run *domain.AutomationRun) error {
	exec := database.ExecutorFromContext(ctx, r.conn)

	result, err := marshalJSON(run.Result())
	if err != nil {
		return err
	}

	query := `
		INSERT INTO automation_runs (
			id, workspace_id, rule_id, event_id, status, error, result,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, NULLIF(?, ''), ?, ?, ?)
	`
	_, err = exec.Exec(ctx, query,
		run.ID().String(),
		run.WorkspaceID().String(),
		run.RuleID().String(),
		run.EventID().String(),
		string(run.Status()),
		run.ErrorMessage(),
		string(result),
		formatSQLiteTime(run.CreatedAt()),
		formatSQLiteTime(run.UpdatedAt()),
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return domain.ErrDuplicateRun
		}
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// Save persists status, error and result changes.
func (r *SQLiteRunRepository) Save(ctx context.Context, run *domain.AutomationRun) error {
	exec := database.ExecutorFromContext(ctx, r.conn)

	result, err := marshalJSON(run.Result())
	if err != nil {
		return err
	}

	query := `
		UPDATE automation_runs
		SET status = ?, error = NULLIF(?, ''), result = ?, updated_at = ?
		WHERE workspace_id = ? AND id = ?
	`
	res, err := exec.Exec(ctx, query,
		string(run.Status()),
		run.ErrorMessage(),
		string(result),
		formatSQLiteTime(run.UpdatedAt()),
		run.WorkspaceID().String(),
		run.ID().String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// FindByID loads one run.
func (r *SQLiteRunRepository) FindByID(ctx context.Context, workspaceID, id uuid.UUID) (*domain.AutomationRun, error) {
	exec := database.ExecutorFromContext(ctx, r.conn)

	query := sqliteRunColumns + ` WHERE workspace_id = ? AND id = ?`
	run, err := scanSQLiteRun(exec.QueryRow(ctx, query, workspaceID.String(), id.String()))
	if err != nil {
		if database.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load run: %w", err)
	}
	return run, nil
}

// FindPending returns the oldest pending runs, up to limit.
func (r *SQLiteRunRepository) FindPending(ctx context.Context, limit int) ([]*domain.AutomationRun, error) {
	exec := database.ExecutorFromContext(ctx, r.conn)

	query := sqliteRunColumns + `
		WHERE status = 'pending'
		ORDER BY created_at
		LIMIT ?`
	rows, err := exec.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending runs: %w", err)
	}
	defer rows.Close()

	var runs []*domain.AutomationRun
	for rows.Next() {
		run, err := scanSQLiteRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// MarkRunning atomically claims a pending run.
func (r *SQLiteRunRepository) MarkRunning(ctx context.Context, id uuid.UUID) (bool, error) {
	exec := database.ExecutorFromContext(ctx, r.conn)

	query := `
		UPDATE automation_runs
		SET status = 'running', updated_at = ?
		WHERE id = ? AND status = 'pending'
	`
	res, err := exec.Exec(ctx, query, formatSQLiteTime(time.Now()), id.String())
	if err != nil {
		return false, fmt.Errorf("failed to claim run: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// CountByStatus returns run counts per status.
func (r *SQLiteRunRepository) CountByStatus(ctx context.Context) (map[domain.RunStatus]int, error) {
	exec := database.ExecutorFromContext(ctx, r.conn)

	rows, err := exec.Query(ctx, `SELECT status, COUNT(*) FROM automation_runs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count runs: %w", err)
	}
	defer rows.Close()

	counts := map[domain.RunStatus]int{}
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan run count: %w", err)
		}
		counts[domain.RunStatus(status)] = count
	}
	return counts, rows.Err()
}

const sqliteRunColumns = `
	SELECT id, workspace_id, rule_id, event_id, status,
	       COALESCE(error, ''), result, created_at, updated_at
	FROM automation_runs`

func scanSQLiteRun(row database.Row) (*domain.AutomationRun, error) {
	var (
		id, workspaceID      uuid.UUID
		ruleID, eventID      uuid.UUID
		status, errorMsg     string
		result               string
		createdAt, updatedAt string
	)
	err := row.Scan(&id, &workspaceID, &ruleID, &eventID, &status, &errorMsg,
		&result, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	parsedResult, err := unmarshalMap([]byte(result))
	if err != nil {
		return nil, err
	}
	created, err := parseSQLiteTime(createdAt)
	if err != nil {
		return nil, err
	}
	updated, err := parseSQLiteTime(updatedAt)
	if err != nil {
		return nil, err
	}
	return domain.RehydrateAutomationRun(
		id, workspaceID, ruleID, eventID, domain.RunStatus(status),
		errorMsg, parsedResult, created, updated,
	), nil
}
