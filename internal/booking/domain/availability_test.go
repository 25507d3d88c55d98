package domain_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookline/bookline/internal/booking/domain"
)

func TestAvailabilityRule_InstantiateOn(t *testing.T) {
	rule, err := domain.NewAvailabilityRule(
		uuid.New(), nil, "haircut", time.Monday, 9*60, 17*60,
	)
	require.NoError(t, err)

	monday := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC) // a Monday
	window, ok := rule.InstantiateOn(monday)
	require.True(t, ok)
	assert.True(t, window.Start.Equal(monday.Add(9*time.Hour)))
	assert.True(t, window.End.Equal(monday.Add(17*time.Hour)))

	_, ok = rule.InstantiateOn(monday.AddDate(0, 0, 1))
	assert.False(t, ok, "rule must not apply to other weekdays")

	rule.Deactivate()
	_, ok = rule.InstantiateOn(monday)
	assert.False(t, ok, "inactive rule must not apply")
}

func TestNewAvailabilityRule_InvalidMinutes(t *testing.T) {
	_, err := domain.NewAvailabilityRule(uuid.New(), nil, "haircut", time.Monday, 600, 600)
	assert.ErrorIs(t, err, domain.ErrInvalidRange)

	_, err = domain.NewAvailabilityRule(uuid.New(), nil, "haircut", time.Monday, -10, 60)
	assert.ErrorIs(t, err, domain.ErrInvalidRange)

	_, err = domain.NewAvailabilityRule(uuid.New(), nil, "haircut", time.Monday, 0, 25*60)
	assert.ErrorIs(t, err, domain.ErrInvalidRange)
}

func TestBlockedRange_Covers(t *testing.T) {
	workspaceID := uuid.New()
	staffA := uuid.New()
	staffB := uuid.New()
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	candidate := mustRange(t, base, base.Add(time.Hour))

	global, err := domain.NewBlockedRange(workspaceID, nil, mustRange(t, base, base.Add(4*time.Hour)), "holiday")
	require.NoError(t, err)
	assert.True(t, global.Covers(candidate, nil))
	assert.True(t, global.Covers(candidate, &staffA))

	scoped, err := domain.NewBlockedRange(workspaceID, &staffA, mustRange(t, base, base.Add(4*time.Hour)), "sick")
	require.NoError(t, err)
	assert.True(t, scoped.Covers(candidate, &staffA))
	assert.False(t, scoped.Covers(candidate, &staffB))
	assert.False(t, scoped.Covers(candidate, nil))

	elsewhere, err := domain.NewBlockedRange(workspaceID, nil, mustRange(t, base.Add(5*time.Hour), base.Add(6*time.Hour)), "")
	require.NoError(t, err)
	assert.False(t, elsewhere.Covers(candidate, nil))
}
