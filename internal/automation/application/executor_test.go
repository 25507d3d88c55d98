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

func sendAction(body string) domain.Action {
	return domain.Action{Kind: domain.ActionSendMessage, Params: map[string]any{"body": body}}
}

func TestExecute_ActionsRunInOrder(t *testing.T) {
	workspaceID := uuid.New()
	sender := &fakeSender{}
	alerts := &memAlerts{}
	executor := application.NewActionExecutor(sender, alerts, &fakePauser{}, nil)

	rule := domain.NewAutomationRule(workspaceID, "welcome", "booking.created", domain.Conditions{},
		[]domain.Action{sendAction("first"), sendAction("second")}, 0)
	rec := eventRecord(workspaceID, "booking.created", map[string]any{"conversation_id": uuid.New().String()})

	result, err := executor.Execute(context.Background(), rule, rec)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, sender.sent)
	assert.Equal(t, 2, result["actions_executed"])
}

func TestExecute_SendMessageForwardsSubject(t *testing.T) {
	workspaceID := uuid.New()
	sender := &fakeSender{}
	executor := application.NewActionExecutor(sender, &memAlerts{}, &fakePauser{}, nil)

	withSubject := domain.Action{Kind: domain.ActionSendMessage, Params: map[string]any{
		"subject": "Booking confirmed",
		"body":    "see you soon",
	}}
	rule := domain.NewAutomationRule(workspaceID, "confirmation", "booking.confirmed", domain.Conditions{},
		[]domain.Action{withSubject, sendAction("no subject here")}, 0)
	rec := eventRecord(workspaceID, "booking.confirmed", map[string]any{"conversation_id": uuid.New().String()})

	_, err := executor.Execute(context.Background(), rule, rec)
	require.NoError(t, err)
	assert.Equal(t, []string{"see you soon", "no subject here"}, sender.sent)
	assert.Equal(t, []string{"Booking confirmed", ""}, sender.subjects)
}

func TestExecute_FirstErrorAbortsRemainder(t *testing.T) {
	workspaceID := uuid.New()
	sender := &fakeSender{failOn: "B"}
	executor := application.NewActionExecutor(sender, &memAlerts{}, &fakePauser{}, nil)

	rule := domain.NewAutomationRule(workspaceID, "three steps", "booking.created", domain.Conditions{},
		[]domain.Action{sendAction("A"), sendAction("B"), sendAction("C")}, 0)
	rec := eventRecord(workspaceID, "booking.created", map[string]any{"conversation_id": uuid.New().String()})

	result, err := executor.Execute(context.Background(), rule, rec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "action 1 (send_message)", "error must reference the failing action")
	assert.Equal(t, []string{"A"}, sender.sent, "C must never run")
	assert.Equal(t, 1, result["actions_executed"])
}

func TestExecute_UnknownActionIsIgnored(t *testing.T) {
	workspaceID := uuid.New()
	sender := &fakeSender{}
	executor := application.NewActionExecutor(sender, &memAlerts{}, &fakePauser{}, nil)

	unknown := domain.Action{Kind: domain.ActionUnknown, RawKind: "launch_rocket"}
	rule := domain.NewAutomationRule(workspaceID, "mixed", "booking.created", domain.Conditions{},
		[]domain.Action{unknown, sendAction("hello")}, 0)
	rec := eventRecord(workspaceID, "booking.created", map[string]any{"conversation_id": uuid.New().String()})

	result, err := executor.Execute(context.Background(), rule, rec)
	require.NoError(t, err)
	assert.Equal(t, []string{"hello"}, sender.sent)
	assert.Equal(t, 1, result["actions_executed"])
	assert.Equal(t, 1, result["actions_ignored"])
}

func TestExecute_RaiseAlert(t *testing.T) {
	workspaceID := uuid.New()
	alerts := &memAlerts{}
	executor := application.NewActionExecutor(&fakeSender{}, alerts, &fakePauser{}, nil)

	rule := domain.NewAutomationRule(workspaceID, "alerter", "booking.no_show", domain.Conditions{},
		[]domain.Action{{Kind: domain.ActionRaiseAlert, Params: map[string]any{"kind": "no_show", "message": "repeat no-show"}}}, 0)
	rec := eventRecord(workspaceID, "booking.no_show", nil)

	_, err := executor.Execute(context.Background(), rule, rec)
	require.NoError(t, err)

	stored, err := alerts.FindByWorkspace(context.Background(), workspaceID, 10)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "no_show", stored[0].Kind())
	assert.Equal(t, "repeat no-show", stored[0].Message())
	assert.Equal(t, rec.ID.String(), stored[0].Metadata()["event_id"])
}

func TestExecute_PauseAutomation(t *testing.T) {
	workspaceID := uuid.New()
	conversationID := uuid.New()
	pauser := &fakePauser{}
	executor := application.NewActionExecutor(&fakeSender{}, &memAlerts{}, pauser, nil)

	rule := domain.NewAutomationRule(workspaceID, "takeover", "conversation.staff_replied", domain.Conditions{},
		[]domain.Action{{Kind: domain.ActionPauseAutomation}}, 0)
	rec := eventRecord(workspaceID, "conversation.staff_replied", map[string]any{"conversation_id": conversationID.String()})

	_, err := executor.Execute(context.Background(), rule, rec)
	require.NoError(t, err)
	require.Len(t, pauser.paused, 1)
	assert.Equal(t, conversationID, pauser.paused[0])
}

func TestExecute_MissingConversationFails(t *testing.T) {
	workspaceID := uuid.New()
	executor := application.NewActionExecutor(&fakeSender{}, &memAlerts{}, &fakePauser{}, nil)

	rule := domain.NewAutomationRule(workspaceID, "no target", "booking.created", domain.Conditions{},
		[]domain.Action{sendAction("hello")}, 0)
	rec := eventRecord(workspaceID, "booking.created", nil)

	_, err := executor.Execute(context.Background(), rule, rec)
	assert.ErrorIs(t, err, application.ErrMissingConversation)
}
