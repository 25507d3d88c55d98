package domain

import (
	"context"

	"github.com/google/uuid"
)

// RuleRepository defines automation rule persistence.
type RuleRepository interface {
	// Save persists a rule (create or update).
	Save(ctx context.Context, rule *AutomationRule) error

	// FindByID loads one rule.
	FindByID(ctx context.Context, workspaceID, id uuid.UUID) (*AutomationRule, error)

	// FindActiveByEventType returns the active rules of a workspace for
	// an event type, ordered by priority descending then creation
	// order.
	FindActiveByEventType(ctx context.Context, workspaceID uuid.UUID, eventType string) ([]*AutomationRule, error)
}

// RunRepository defines automation run persistence.
type RunRepository interface {
	// Create inserts a pending run. A second run for the same
	// (rule, event) pair returns ErrDuplicateRun.
	Create(ctx context.Context, run *AutomationRun) error

	// Save persists a status change.
	Save(ctx context.Context, run *AutomationRun) error

	// FindByID loads one run.
	FindByID(ctx context.Context, workspaceID, id uuid.UUID) (*AutomationRun, error)

	// FindPending returns up to limit pending runs, oldest first.
	FindPending(ctx context.Context, limit int) ([]*AutomationRun, error)

	// MarkRunning atomically claims a pending run. It returns false
	// when the run was already claimed or finished, making redelivery
	// safe.
	MarkRunning(ctx context.Context, id uuid.UUID) (bool, error)

	// CountByStatus returns run counts for worker stats.
	CountByStatus(ctx context.Context) (map[RunStatus]int, error)
}

// AlertRepository defines alert persistence.
type AlertRepository interface {
	// Save inserts an alert.
	Save(ctx context.Context, alert *Alert) error

	// FindByWorkspace returns the newest alerts of a workspace.
	FindByWorkspace(ctx context.Context, workspaceID uuid.UUID, limit int) ([]*Alert, error)
}
