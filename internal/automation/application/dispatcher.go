package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/bookline/bookline/internal/automation/domain"
	sharedDomain "github.com/bookline/bookline/internal/shared/domain"
)

// EngineDispatcher matches an appended event against the rule set and
// creates one run per matching rule. In synchronous mode runs execute
// inline; in deferred mode the worker picks pending runs up later.
//
// Dispatch never returns an error: the producing operation has already
// committed, and anything dispatch misses is recreated from the event
// log by the worker's replay pass.
type EngineDispatcher struct {
	matcher  *RuleMatcher
	runs     domain.RunRepository
	runner   *RunExecutor
	deferred bool
	logger   *slog.Logger
}

// NewEngineDispatcher creates a dispatcher.
func NewEngineDispatcher(
	matcher *RuleMatcher,
	runs domain.RunRepository,
	runner *RunExecutor,
	deferred bool,
	logger *slog.Logger,
) *EngineDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &EngineDispatcher{
		matcher:  matcher,
		runs:     runs,
		runner:   runner,
		deferred: deferred,
		logger:   logger,
	}
}

// Dispatch fans one event out to its matching rules. Each rule is
// isolated: one rule's failure never stops the others.
func (d *EngineDispatcher) Dispatch(ctx context.Context, event sharedDomain.DomainEvent) {
	record := domain.RecordFromDomainEvent(event)

	rules, err := d.matcher.Match(ctx, record)
	if err != nil {
		d.logger.ErrorContext(ctx, "rule matching failed",
			"event_id", record.ID,
			"event_type", record.EventType,
			"error", err,
		)
		return
	}

	for _, rule := range rules {
		run := domain.NewAutomationRun(record.WorkspaceID, rule.ID(), record.ID)
		if err := d.runs.Create(ctx, run); err != nil {
			if errors.Is(err, domain.ErrDuplicateRun) {
				continue
			}
			d.logger.ErrorContext(ctx, "failed to create run",
				"rule_id", rule.ID(),
				"event_id", record.ID,
				"error", err,
			)
			continue
		}

		if d.deferred {
			continue
		}
		if err := d.runner.ExecuteRun(ctx, rule, record, run); err != nil {
			d.logger.ErrorContext(ctx, "run execution failed",
				"run_id", run.ID(),
				"rule_id", rule.ID(),
				"error", err,
			)
		}
	}
}
