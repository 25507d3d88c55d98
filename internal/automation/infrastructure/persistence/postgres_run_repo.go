package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bookline/bookline/internal/automation/domain"
	"github.com/bookline/bookline/internal/shared/infrastructure/database"
)

// PostgresRunRepository implements domain.RunRepository using
// PostgreSQL. MarkRunning is a compare-and-set on the status column,
// which is what makes redelivered runs safe to hand to any worker.
type PostgresRunRepository struct {
	conn database.Connection
}

// NewPostgresRunRepository creates a new PostgreSQL run repository.
func NewPostgresRunRepository(conn database.Connection) *PostgresRunRepository {
	return &PostgresRunRepository{conn: conn}
}

// Create inserts a new run. A second run for the same (rule, event)
// pair is rejected with domain.ErrDuplicateRun.
func (r *PostgresRunRepository) Create(ctx context.Context, run *domain.AutomationRun) error {
	exec := database.ExecutorFromContext(ctx, r.conn)

	result, err := marshalJSON(run.Result())
	if err != nil {
		return err
	}

	query := `
		INSERT INTO automation_runs (
			id, workspace_id, rule_id, event_id, status, error, result,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9)
	`
	_, err = exec.Exec(ctx, query,
		run.ID(),
		run.WorkspaceID(),
		run.RuleID(),
		run.EventID(),
		string(run.Status()),
		run.ErrorMessage(),
		result,
		run.CreatedAt(),
		run.UpdatedAt(),
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
func (r *PostgresRunRepository) Save(ctx context.Context, run *domain.AutomationRun) error {
	exec := database.ExecutorFromContext(ctx, r.conn)

	result, err := marshalJSON(run.Result())
	if err != nil {
		return err
	}

	query := `
		UPDATE automation_runs
		SET status = $3, error = NULLIF($4, ''), result = $5, updated_at = $6
		WHERE workspace_id = $1 AND id = $2
	`
	res, err := exec.Exec(ctx, query,
		run.WorkspaceID(),
		run.ID(),
		string(run.Status()),
		run.ErrorMessage(),
		result,
		run.UpdatedAt(),
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
func (r *PostgresRunRepository) FindByID(ctx context.Context, workspaceID, id uuid.UUID) (*domain.AutomationRun, error) {
	exec := database.ExecutorFromContext(ctx, r.conn)

	query := runColumns + ` WHERE workspace_id = $1 AND id = $2`
	run, err := scanPostgresRun(exec.QueryRow(ctx, query, workspaceID, id))
	if err != nil {
		if database.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load run: %w", err)
	}
	return run, nil
}

// FindPending returns the oldest pending runs, up to limit.
func (r *PostgresRunRepository) FindPending(ctx context.Context, limit int) ([]*domain.AutomationRun, error) {
	exec := database.ExecutorFromContext(ctx, r.conn)

	query := runColumns + `
		WHERE status = 'pending'
		ORDER BY created_at
		LIMIT $1`
	rows, err := exec.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending runs: %w", err)
	}
	defer rows.Close()

	var runs []*domain.AutomationRun
	for rows.Next() {
		run, err := scanPostgresRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// MarkRunning atomically claims a pending run. It returns false when
// the run was already claimed or finished.
func (r *PostgresRunRepository) MarkRunning(ctx context.Context, id uuid.UUID) (bool, error) {
	exec := database.ExecutorFromContext(ctx, r.conn)

	query := `
		UPDATE automation_runs
		SET status = 'running', updated_at = $2
		WHERE id = $1 AND status = 'pending'
	`
	res, err := exec.Exec(ctx, query, id, time.Now().UTC())
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
func (r *PostgresRunRepository) CountByStatus(ctx context.Context) (map[domain.RunStatus]int, error) {
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

const runColumns = `
	SELECT id, workspace_id, rule_id, event_id, status,
	       COALESCE(error, ''), result, created_at, updated_at
	FROM automation_runs`

func scanPostgresRun(row database.Row) (*domain.AutomationRun, error) {
	var (
		id, workspaceID      uuid.UUID
		ruleID, eventID      uuid.UUID
		status, errorMsg     string
		result               []byte
		createdAt, updatedAt time.Time
	)
	err := row.Scan(&id, &workspaceID, &ruleID, &eventID, &status, &errorMsg,
		&result, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	parsedResult, err := unmarshalMap(result)
	if err != nil {
		return nil, err
	}
	return domain.RehydrateAutomationRun(
		id, workspaceID, ruleID, eventID, domain.RunStatus(status),
		errorMsg, parsedResult, createdAt.UTC(), updatedAt.UTC(),
	), nil
}
