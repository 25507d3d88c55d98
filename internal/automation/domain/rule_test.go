package domain_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookline/bookline/internal/automation/domain"
	sharedDomain "github.com/bookline/bookline/internal/shared/domain"
)

func record(workspaceID uuid.UUID, eventType string, actor sharedDomain.Actor, payload map[string]any) *domain.EventRecord {
	return &domain.EventRecord{
		ID:          uuid.New(),
		WorkspaceID: workspaceID,
		EventType:   eventType,
		EntityType:  "booking",
		EntityID:    uuid.New().String(),
		Actor:       actor,
		Payload:     payload,
		CreatedAt:   time.Now().UTC(),
	}
}

func TestRule_Matches_EventTypeAndWorkspace(t *testing.T) {
	workspaceID := uuid.New()
	rule := domain.NewAutomationRule(workspaceID, "on created", "booking.created", domain.Conditions{}, nil, 0)

	assert.True(t, rule.Matches(record(workspaceID, "booking.created", sharedDomain.SystemActor(), nil)))
	assert.False(t, rule.Matches(record(workspaceID, "booking.cancelled", sharedDomain.SystemActor(), nil)))
	assert.False(t, rule.Matches(record(uuid.New(), "booking.created", sharedDomain.SystemActor(), nil)))

	rule.Deactivate()
	assert.False(t, rule.Matches(record(workspaceID, "booking.created", sharedDomain.SystemActor(), nil)))
}

func TestConditions_PayloadEquals(t *testing.T) {
	workspaceID := uuid.New()
	rule := domain.NewAutomationRule(workspaceID, "haircuts only", "booking.created",
		domain.Conditions{PayloadEquals: map[string]any{"booking_type": "haircut"}}, nil, 0)

	haircut := record(workspaceID, "booking.created", sharedDomain.SystemActor(), map[string]any{"booking_type": "haircut"})
	massage := record(workspaceID, "booking.created", sharedDomain.SystemActor(), map[string]any{"booking_type": "massage"})
	missing := record(workspaceID, "booking.created", sharedDomain.SystemActor(), map[string]any{})

	assert.True(t, rule.Matches(haircut))
	assert.False(t, rule.Matches(massage))
	assert.False(t, rule.Matches(missing), "a missing key is a no-match")
}

func TestConditions_PayloadEquals_NumericJSONRoundTrip(t *testing.T) {
	// A payload read back from storage carries float64 where the
	// producer wrote int.
	c := domain.Conditions{PayloadEquals: map[string]any{"party_size": 2}}
	rec := record(uuid.New(), "booking.created", sharedDomain.SystemActor(), map[string]any{"party_size": float64(2)})
	assert.True(t, c.Match(rec))
}

func TestConditions_PayloadEquals_StructuredValues(t *testing.T) {
	// Condition values loaded from the JSON conditions column can be
	// objects or arrays; comparing them must not crash.
	c := domain.Conditions{PayloadEquals: map[string]any{
		"meta": map[string]any{"source": "web", "party_size": float64(2)},
		"tags": []any{"vip", "returning"},
	}}

	matching := record(uuid.New(), "booking.created", sharedDomain.SystemActor(), map[string]any{
		"meta": map[string]any{"source": "web", "party_size": float64(2)},
		"tags": []any{"vip", "returning"},
	})
	differing := record(uuid.New(), "booking.created", sharedDomain.SystemActor(), map[string]any{
		"meta": map[string]any{"source": "phone", "party_size": float64(2)},
		"tags": []any{"vip", "returning"},
	})

	assert.True(t, c.Match(matching))
	assert.False(t, c.Match(differing))
}

func TestConditions_ActorTypeIn(t *testing.T) {
	workspaceID := uuid.New()
	rule := domain.NewAutomationRule(workspaceID, "human only", "booking.cancelled",
		domain.Conditions{ActorTypeIn: []sharedDomain.ActorType{sharedDomain.ActorStaff, sharedDomain.ActorContact}}, nil, 0)

	staff := record(workspaceID, "booking.cancelled", sharedDomain.Actor{Type: sharedDomain.ActorStaff, ID: "s1"}, nil)
	system := record(workspaceID, "booking.cancelled", sharedDomain.SystemActor(), nil)

	assert.True(t, rule.Matches(staff))
	assert.False(t, rule.Matches(system))
}

func TestAction_UnmarshalUnknownKind(t *testing.T) {
	var action domain.Action
	require.NoError(t, json.Unmarshal([]byte(`{"kind":"launch_rocket","params":{"target":"moon"}}`), &action))

	assert.Equal(t, domain.ActionUnknown, action.Kind)
	assert.Equal(t, "launch_rocket", action.RawKind)
	assert.False(t, action.IsKnown())

	// Saving back preserves the original kind.
	out, err := json.Marshal(action)
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"launch_rocket","params":{"target":"moon"}}`, string(out))
}

func TestAction_UnmarshalKnownKinds(t *testing.T) {
	var actions []domain.Action
	raw := `[{"kind":"send_message","params":{"template":"reminder"}},{"kind":"raise_alert"},{"kind":"pause_automation"}]`
	require.NoError(t, json.Unmarshal([]byte(raw), &actions))

	require.Len(t, actions, 3)
	assert.Equal(t, domain.ActionSendMessage, actions[0].Kind)
	assert.Equal(t, domain.ActionRaiseAlert, actions[1].Kind)
	assert.Equal(t, domain.ActionPauseAutomation, actions[2].Kind)
	for _, a := range actions {
		assert.True(t, a.IsKnown())
	}
}

func TestRun_StatusMachine(t *testing.T) {
	run := domain.NewAutomationRun(uuid.New(), uuid.New(), uuid.New())
	assert.Equal(t, domain.RunPending, run.Status())

	require.NoError(t, run.Start())
	assert.Equal(t, domain.RunRunning, run.Status())
	assert.ErrorIs(t, run.Start(), domain.ErrRunTransition, "a claimed run cannot be claimed again")

	require.NoError(t, run.Succeed(map[string]any{"actions": 2}))
	assert.Equal(t, domain.RunSucceeded, run.Status())
	assert.ErrorIs(t, run.Fail("late"), domain.ErrRunTransition, "terminal runs stay terminal")

	run = domain.NewAutomationRun(uuid.New(), uuid.New(), uuid.New())
	require.NoError(t, run.Start())
	require.NoError(t, run.Fail("action raise_alert failed"))
	assert.Equal(t, domain.RunFailed, run.Status())
	assert.Equal(t, "action raise_alert failed", run.ErrorMessage())

	run = domain.NewAutomationRun(uuid.New(), uuid.New(), uuid.New())
	require.NoError(t, run.Start())
	require.NoError(t, run.Skip("conditions no longer match"))
	assert.Equal(t, domain.RunSkipped, run.Status())
}
