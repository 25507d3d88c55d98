package application_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookline/bookline/internal/automation/application"
	"github.com/bookline/bookline/internal/automation/domain"
)

func TestMatch_FiltersAndOrders(t *testing.T) {
	workspaceID := uuid.New()
	rules := &memRules{}

	low := domain.NewAutomationRule(workspaceID, "low", "booking.created", domain.Conditions{}, nil, 1)
	high := domain.NewAutomationRule(workspaceID, "high", "booking.created", domain.Conditions{}, nil, 10)
	other := domain.NewAutomationRule(workspaceID, "other type", "booking.cancelled", domain.Conditions{}, nil, 99)
	inactive := domain.NewAutomationRule(workspaceID, "inactive", "booking.created", domain.Conditions{}, nil, 99)
	inactive.Deactivate()

	for _, r := range []*domain.AutomationRule{low, high, other, inactive} {
		require.NoError(t, rules.Save(context.Background(), r))
	}

	matcher := application.NewRuleMatcher(rules)
	matched, err := matcher.Match(context.Background(), eventRecord(workspaceID, "booking.created", nil))
	require.NoError(t, err)

	require.Len(t, matched, 2)
	assert.Equal(t, "high", matched[0].Name())
	assert.Equal(t, "low", matched[1].Name())
}

func TestMatch_EqualPriorityKeepsCreationOrder(t *testing.T) {
	workspaceID := uuid.New()
	rules := &memRules{}

	first := domain.NewAutomationRule(workspaceID, "first", "booking.created", domain.Conditions{}, nil, 5)
	second := domain.NewAutomationRule(workspaceID, "second", "booking.created", domain.Conditions{}, nil, 5)
	require.NoError(t, rules.Save(context.Background(), first))
	require.NoError(t, rules.Save(context.Background(), second))

	matcher := application.NewRuleMatcher(rules)
	rec := eventRecord(workspaceID, "booking.created", nil)

	// Deterministic: repeated matching yields the same sequence.
	for i := 0; i < 3; i++ {
		matched, err := matcher.Match(context.Background(), rec)
		require.NoError(t, err)
		require.Len(t, matched, 2)
		assert.Equal(t, "first", matched[0].Name())
		assert.Equal(t, "second", matched[1].Name())
	}
}

func TestMatch_ConditionsFilter(t *testing.T) {
	workspaceID := uuid.New()
	rules := &memRules{}

	haircut := domain.NewAutomationRule(workspaceID, "haircut rule", "booking.created",
		domain.Conditions{PayloadEquals: map[string]any{"booking_type": "haircut"}}, nil, 0)
	require.NoError(t, rules.Save(context.Background(), haircut))

	matcher := application.NewRuleMatcher(rules)

	matched, err := matcher.Match(context.Background(), eventRecord(workspaceID, "booking.created", map[string]any{"booking_type": "haircut"}))
	require.NoError(t, err)
	assert.Len(t, matched, 1)

	matched, err = matcher.Match(context.Background(), eventRecord(workspaceID, "booking.created", map[string]any{"booking_type": "massage"}))
	require.NoError(t, err)
	assert.Empty(t, matched)
}
