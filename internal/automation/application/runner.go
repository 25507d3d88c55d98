package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bookline/bookline/internal/automation/domain"
	sharedDomain "github.com/bookline/bookline/internal/shared/domain"
)

// Audit event types appended when a run finishes.
const (
	EventRunSucceeded = "automation.run_succeeded"
	EventRunFailed    = "automation.run_failed"
)

// RunExecutor drives one automation run from claim to terminal status.
// It is shared by the synchronous dispatch path and the deferred
// worker, and is safe to call twice for the same run: a run already
// claimed is left alone.
type RunExecutor struct {
	runs     domain.RunRepository
	events   domain.EventStore
	alerts   domain.AlertRepository
	executor *ActionExecutor
	logger   *slog.Logger
}

// NewRunExecutor creates a run executor. alerts may be nil.
func NewRunExecutor(
	runs domain.RunRepository,
	events domain.EventStore,
	alerts domain.AlertRepository,
	executor *ActionExecutor,
	logger *slog.Logger,
) *RunExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	return &RunExecutor{
		runs:     runs,
		events:   events,
		alerts:   alerts,
		executor: executor,
		logger:   logger,
	}
}

// ExecuteRun claims and finishes one run. Action failures land on the
// run's status and error message, never in the returned error; the
// error covers infrastructure problems only.
func (r *RunExecutor) ExecuteRun(
	ctx context.Context,
	rule *domain.AutomationRule,
	record *domain.EventRecord,
	run *domain.AutomationRun,
) error {
	claimed, err := r.runs.MarkRunning(ctx, run.ID())
	if err != nil {
		return fmt.Errorf("failed to claim run: %w", err)
	}
	if !claimed {
		// Redelivered: some other worker already has it.
		return nil
	}
	if err := run.Start(); err != nil {
		return err
	}

	// Conditions are re-checked at execution time; state may have moved
	// since the run was created.
	if !rule.Matches(record) {
		if err := run.Skip("conditions no longer match"); err != nil {
			return err
		}
		return r.runs.Save(ctx, run)
	}

	result, execErr := r.executor.Execute(ctx, rule, record)
	if execErr != nil {
		if err := run.Fail(execErr.Error()); err != nil {
			return err
		}
		if err := r.runs.Save(ctx, run); err != nil {
			return fmt.Errorf("failed to save failed run: %w", err)
		}
		r.appendAudit(ctx, EventRunFailed, rule, record, run)
		r.raiseFailureAlert(ctx, rule, record, run)
		r.logger.WarnContext(ctx, "automation run failed",
			"run_id", run.ID(),
			"rule_id", rule.ID(),
			"error", execErr,
		)
		return nil
	}

	if err := run.Succeed(result); err != nil {
		return err
	}
	if err := r.runs.Save(ctx, run); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	r.appendAudit(ctx, EventRunSucceeded, rule, record, run)
	return nil
}

// raiseFailureAlert leaves an operator-visible alert for a terminally
// failed run. Retry policy lives outside the engine; the alert is what
// a retry process or a human acts on.
func (r *RunExecutor) raiseFailureAlert(ctx context.Context, rule *domain.AutomationRule, record *domain.EventRecord, run *domain.AutomationRun) {
	if r.alerts == nil {
		return
	}
	alert := domain.NewAlert(run.WorkspaceID(), "automation_run_failed",
		fmt.Sprintf("rule %q failed: %s", rule.Name(), run.ErrorMessage()),
		map[string]any{
			"rule_id":    rule.ID().String(),
			"run_id":     run.ID().String(),
			"event_id":   record.ID.String(),
			"event_type": record.EventType,
		})
	if err := r.alerts.Save(ctx, alert); err != nil {
		r.logger.ErrorContext(ctx, "failed to save run failure alert",
			"run_id", run.ID(),
			"error", err,
		)
	}
}

// appendAudit writes the run outcome to the event log. Audit events are
// never dispatched back into the engine. A failed append is a logged
// gap, never a crash.
func (r *RunExecutor) appendAudit(ctx context.Context, eventType string, rule *domain.AutomationRule, record *domain.EventRecord, run *domain.AutomationRun) {
	event := sharedDomain.NewBaseEvent(
		run.WorkspaceID(), eventType, "automation_run", run.ID().String(), sharedDomain.SystemActor(),
	)
	event.SetCorrelationID(record.CorrelationID)
	event.SetPayload(map[string]any{
		"rule_id":    rule.ID().String(),
		"rule_name":  rule.Name(),
		"event_id":   record.ID.String(),
		"event_type": record.EventType,
		"error":      run.ErrorMessage(),
	})
	if _, err := r.events.Append(ctx, &event); err != nil {
		r.logger.ErrorContext(ctx, "failed to append audit event",
			"run_id", run.ID(),
			"event_type", eventType,
			"error", err,
		)
	}
}
