package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"

	sharedDomain "github.com/bookline/bookline/internal/shared/domain"
)

// ErrRunTransition is returned when a run status change is not legal.
var ErrRunTransition = errors.New("invalid run status transition")

// RunStatus is the lifecycle state of an automation run.
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
	RunSkipped   RunStatus = "skipped"
)

// IsTerminal reports whether the run is finished.
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunSucceeded, RunFailed, RunSkipped:
		return true
	}
	return false
}

// AutomationRun is the audit record of one rule firing on one event.
// There is at most one run per (rule, event) pair.
type AutomationRun struct {
	sharedDomain.BaseEntity
	workspaceID  uuid.UUID
	ruleID       uuid.UUID
	eventID      uuid.UUID
	status       RunStatus
	errorMessage string
	result       map[string]any
}

// NewAutomationRun creates a pending run.
func NewAutomationRun(workspaceID, ruleID, eventID uuid.UUID) *AutomationRun {
	return &AutomationRun{
		BaseEntity:  sharedDomain.NewBaseEntity(),
		workspaceID: workspaceID,
		ruleID:      ruleID,
		eventID:     eventID,
		status:      RunPending,
		result:      map[string]any{},
	}
}

// Getters
func (r *AutomationRun) WorkspaceID() uuid.UUID { return r.workspaceID }
func (r *AutomationRun) RuleID() uuid.UUID      { return r.ruleID }
func (r *AutomationRun) EventID() uuid.UUID     { return r.eventID }
func (r *AutomationRun) Status() RunStatus      { return r.status }
func (r *AutomationRun) ErrorMessage() string   { return r.errorMessage }
func (r *AutomationRun) Result() map[string]any { return r.result }

// Start claims a pending run for execution.
func (r *AutomationRun) Start() error {
	if r.status != RunPending {
		return ErrRunTransition
	}
	r.status = RunRunning
	r.Touch()
	return nil
}

// Succeed finishes a running run with its result metadata.
func (r *AutomationRun) Succeed(result map[string]any) error {
	if r.status != RunRunning {
		return ErrRunTransition
	}
	r.status = RunSucceeded
	if result != nil {
		r.result = result
	}
	r.Touch()
	return nil
}

// Fail finishes a running run with the error that aborted it.
func (r *AutomationRun) Fail(message string) error {
	if r.status != RunRunning {
		return ErrRunTransition
	}
	r.status = RunFailed
	r.errorMessage = message
	r.Touch()
	return nil
}

// Skip finishes a running run whose conditions no longer matched at
// execution time.
func (r *AutomationRun) Skip(reason string) error {
	if r.status != RunRunning {
		return ErrRunTransition
	}
	r.status = RunSkipped
	r.errorMessage = reason
	r.Touch()
	return nil
}

// RehydrateAutomationRun recreates a run from persisted state.
func RehydrateAutomationRun(
	id uuid.UUID,
	workspaceID, ruleID, eventID uuid.UUID,
	status RunStatus,
	errorMessage string,
	result map[string]any,
	createdAt, updatedAt time.Time,
) *AutomationRun {
	if result == nil {
		result = map[string]any{}
	}
	return &AutomationRun{
		BaseEntity:   sharedDomain.RehydrateBaseEntity(id, createdAt, updatedAt),
		workspaceID:  workspaceID,
		ruleID:       ruleID,
		eventID:      eventID,
		status:       status,
		errorMessage: errorMessage,
		result:       result,
	}
}
