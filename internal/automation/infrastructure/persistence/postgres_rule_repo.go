package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bookline/bookline/internal/automation/domain"
	"github.com/bookline/bookline/internal/shared/infrastructure/database"
)

// PostgresRuleRepository implements domain.RuleRepository using
// PostgreSQL. Conditions and actions are stored as JSONB documents.
type PostgresRuleRepository struct {
	conn database.Connection
}

// NewPostgresRuleRepository creates a new PostgreSQL rule repository.
func NewPostgresRuleRepository(conn database.Connection) *PostgresRuleRepository {
	return &PostgresRuleRepository{conn: conn}
}

// Save inserts or updates a rule.
func (r *PostgresRuleRepository) Save(ctx context.Context, rule *domain.AutomationRule) error {
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
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			event_type = EXCLUDED.event_type,
			conditions = EXCLUDED.conditions,
			actions = EXCLUDED.actions,
			priority = EXCLUDED.priority,
			active = EXCLUDED.active,
			updated_at = EXCLUDED.updated_at
	`
	_, err = exec.Exec(ctx, query,
		rule.ID(),
		rule.WorkspaceID(),
		rule.Name(),
		rule.EventType(),
		conditions,
		actions,
		rule.Priority(),
		rule.IsActive(),
		rule.CreatedAt(),
		rule.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to save rule: %w", err)
	}
	return nil
}

// FindByID loads one rule.
func (r *PostgresRuleRepository) FindByID(ctx context.Context, workspaceID, id uuid.UUID) (*domain.AutomationRule, error) {
	exec := database.ExecutorFromContext(ctx, r.conn)

	query := ruleColumns + ` WHERE workspace_id = $1 AND id = $2`
	rule, err := scanPostgresRule(exec.QueryRow(ctx, query, workspaceID, id))
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
func (r *PostgresRuleRepository) FindActiveByEventType(ctx context.Context, workspaceID uuid.UUID, eventType string) ([]*domain.AutomationRule, error) {
	exec := database.ExecutorFromContext(ctx, r.conn)

	query := ruleColumns + `
		WHERE workspace_id = $1 AND event_type = $2 AND active
		ORDER BY created_at, id`
	rows, err := exec.Query(ctx, query, workspaceID, eventType)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer rows.Close()

	var rules []*domain.AutomationRule
	for rows.Next() {
		rule, err := scanPostgresRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

const ruleColumns = `
	SELECT id, workspace_id, name, event_type, conditions, actions,
	       priority, active, created_at, updated_at
	FROM automation_rules`

func scanPostgresRule(row database.Row) (*domain.AutomationRule, error) {
	var (
		id, workspaceID      uuid.UUID
		name, eventType      string
		conditions, actions  []byte
		priority             int
		active               bool
		createdAt, updatedAt time.Time
	)
	err := row.Scan(&id, &workspaceID, &name, &eventType, &conditions, &actions,
		&priority, &active, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	parsedConditions, err := unmarshalConditions(conditions)
	if err != nil {
		return nil, err
	}
	parsedActions, err := unmarshalActions(actions)
	if err != nil {
		return nil, err
	}
	return domain.RehydrateAutomationRule(
		id, workspaceID, name, eventType, parsedConditions, parsedActions,
		priority, active, createdAt.UTC(), updatedAt.UTC(),
	), nil
}
