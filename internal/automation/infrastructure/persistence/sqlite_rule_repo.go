package persistence

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/bookline/bookline/internal/automation/domain"
	"github.com/bookline/bookline/internal/shared/infrastructure/database"
)

// SQLiteRuleRepository implements domain.RuleRepository for local mode.
type SQLiteRuleRepository struct {
	conn database.Connection
}

// NewSQLiteRuleRepository creates a new SQLite rule repository.
func NewSQLiteRuleRepository(conn database.Connection) *SQLiteRuleRepository {
	return &SQLiteRuleRepository{conn: conn}
}

// Save inserts or updates a rule.
func (r *SQLiteRuleRepository) Save(ctx context.Context, rule *domain.AutomationRule) error {
	exec := database.ExecutorFromContext(ctx, r.conn)

	conditions, err := marshalJSON(rule.RuleConditions())
	if err != nil {
		return err
	}
	actions, err := marshalJSON(rule.Actions())
	if err != nil {
		return err
	}

	query := `
		INSERT INTO automation_rules (
			id, workspace_id, name, event_type, conditions, actions,
			priority, active, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			event_type = excluded.event_type,
			conditions = excluded.conditions,
			actions = excluded.actions,
			priority = excluded.priority,
			active = excluded.active,
			updated_at = excluded.updated_at
	`
	_, err = exec.Exec(ctx, query,
		rule.ID().String(),
		rule.WorkspaceID().String(),
		rule.Name(),
		rule.EventType(),
		string(conditions),
		string(actions),
		rule.Priority(),
		boolToInt(rule.IsActive()),
		formatSQLiteTime(rule.CreatedAt()),
		formatSQLiteTime(rule.UpdatedAt()),
	)
	if err != nil {
		return fmt.Errorf("failed to save rule: %w", err)
	}
	return nil
}

// FindByID loads one rule.
func (r *SQLiteRuleRepository) FindByID(ctx context.Context, workspaceID, id uuid.UUID) (*domain.AutomationRule, error) {
	exec := database.ExecutorFromContext(ctx, r.conn)

	query := sqliteRuleColumns + ` WHERE workspace_id = ? AND id = ?`
	rule, err := scanSQLiteRule(exec.QueryRow(ctx, query, workspaceID.String(), id.String()))
	if err != nil {
		if database.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load rule: %w", err)
	}
	return rule, nil
}

// FindActiveByEventType returns the active rules subscribed to an
// event type, in creation order.
func (r *SQLiteRuleRepository) FindActiveByEventType(ctx context.Context, workspaceID uuid.UUID, eventType string) ([]*domain.AutomationRule, error) {
	exec := database.ExecutorFromContext(ctx, r.conn)

	query := sqliteRuleColumns + `
		WHERE workspace_id = ? AND event_type = ? AND active = 1
		ORDER BY created_at, id`
	rows, err := exec.Query(ctx, query, workspaceID.String(), eventType)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer rows.Close()

	var rules []*domain.AutomationRule
	for rows.Next() {
		rule, err := scanSQLiteRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

const sqliteRuleColumns = `
	SELECT id, workspace_id, name, event_type, conditions, actions,
	       priority, active, created_at, updated_at
	FROM automation_rules`

func scanSQLiteRule(row database.Row) (*domain.AutomationRule, error) {
	var (
		id, workspaceID      uuid.UUID
		name, eventType      string
		conditions, actions  string
		priority, active     int
		createdAt, updatedAt string
	)
	err := row.Scan(&id, &workspaceID, &name, &eventType, &conditions, &actions,
		&priority, &active, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	parsedConditions, err := unmarshalConditions([]byte(conditions))
	if err != nil {
		return nil, err
	}
	parsedActions, err := unmarshalActions([]byte(actions))
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
	return domain.RehydrateAutomationRule(
		id, workspaceID, name, eventType, parsedConditions, parsedActions,
		priority, active == 1, created, updated,
	), nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
