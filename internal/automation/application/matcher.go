// Package application implements the automation engine: rule matching,
// action execution, and the sync/deferred dispatch paths.
package application

import (
	"context"
	"fmt"
	"sort"

	"github.com/bookline/bookline/internal/automation/domain"
)

// RuleMatcher selects the rules an event record fires, in a
// deterministic order.
type RuleMatcher struct {
	rules domain.RuleRepository
}

// NewRuleMatcher creates a matcher.
func NewRuleMatcher(rules domain.RuleRepository) *RuleMatcher {
	return &RuleMatcher{rules: rules}
}

// Match returns the active rules matching the record, ordered by
// priority descending, then creation order. Evaluation is stateless:
// the same record and rule set always yields the same sequence.
func (m *RuleMatcher) Match(ctx context.Context, record *domain.EventRecord) ([]*domain.AutomationRule, error) {
	candidates, err := m.rules.FindActiveByEventType(ctx, record.WorkspaceID, record.EventType)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}

	var matched []*domain.AutomationRule
	for _, rule := range candidates {
		if rule.Matches(record) {
			matched = append(matched, rule)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].Priority() != matched[j].Priority() {
			return matched[i].Priority() > matched[j].Priority()
		}
		return matched[i].CreatedAt().Before(matched[j].CreatedAt())
	})
	return matched, nil
}
