package application_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookline/bookline/internal/automation/application"
	"github.com/bookline/bookline/internal/automation/domain"
	sharedDomain "github.com/bookline/bookline/internal/shared/domain"
)

type engine struct {
	rules      *memRules
	runs       *memRuns
	events     *memEventStore
	sender     *fakeSender
	alerts     *memAlerts
	dispatcher *application.EngineDispatcher
	processor  *application.RunProcessor
}

func newEngine(t *testing.T, deferred bool) *engine {
	t.Helper()

	e := &engine{
		rules:  &memRules{},
		runs:   newMemRuns(),
		events: &memEventStore{},
		sender: &fakeSender{},
		alerts: &memAlerts{},
	}
	executor := application.NewActionExecutor(e.sender, e.alerts, &fakePauser{}, nil)
	runner := application.NewRunExecutor(e.runs, e.events, e.alerts, executor, nil)
	matcher := application.NewRuleMatcher(e.rules)
	e.dispatcher = application.NewEngineDispatcher(matcher, e.runs, runner, deferred, nil)
	e.processor = application.NewRunProcessor(e.runs, e.rules, e.events, runner,
		application.ProcessorConfig{PollInterval: time.Millisecond, BatchSize: 10}, nil)
	return e
}

func bookingCreated(workspaceID uuid.UUID, payload map[string]any) sharedDomain.DomainEvent {
	event := sharedDomain.NewBaseEvent(workspaceID, "booking.created", "booking", uuid.New().String(), sharedDomain.SystemActor())
	event.SetPayload(payload)
	return &event
}

func TestDispatch_SyncExecutesMatchingRules(t *testing.T) {
	workspaceID := uuid.New()
	conversationID := uuid.New().String()
	e := newEngine(t, false)

	rule := domain.NewAutomationRule(workspaceID, "welcome", "booking.created", domain.Conditions{},
		[]domain.Action{sendAction("welcome!")}, 0)
	require.NoError(t, e.rules.Save(context.Background(), rule))

	e.dispatcher.Dispatch(context.Background(), bookingCreated(workspaceID, map[string]any{"conversation_id": conversationID}))

	assert.Equal(t, []string{"welcome!"}, e.sender.sent)

	run := e.runs.byRule(rule.ID())
	require.NotNil(t, run)
	assert.Equal(t, domain.RunSucceeded, run.Status())

	audits := e.events.byType(application.EventRunSucceeded)
	require.Len(t, audits, 1)
	assert.Equal(t, rule.ID().String(), audits[0].Payload["rule_id"])
}

func TestDispatch_FailingRuleDoesNotStopOthers(t *testing.T) {
	workspaceID := uuid.New()
	conversationID := uuid.New().String()
	e := newEngine(t, false)
	e.sender.failOn = "broken"

	failing := domain.NewAutomationRule(workspaceID, "failing", "booking.created", domain.Conditions{},
		[]domain.Action{sendAction("A"), sendAction("broken"), sendAction("never")}, 10)
	healthy := domain.NewAutomationRule(workspaceID, "healthy", "booking.created", domain.Conditions{},
		[]domain.Action{sendAction("B")}, 0)
	require.NoError(t, e.rules.Save(context.Background(), failing))
	require.NoError(t, e.rules.Save(context.Background(), healthy))

	e.dispatcher.Dispatch(context.Background(), bookingCreated(workspaceID, map[string]any{"conversation_id": conversationID}))

	assert.Equal(t, []string{"A", "B"}, e.sender.sent, "the third action of the failing rule never runs, the second rule still does")

	failedRun := e.runs.byRule(failing.ID())
	require.NotNil(t, failedRun)
	assert.Equal(t, domain.RunFailed, failedRun.Status())
	assert.Contains(t, failedRun.ErrorMessage(), "action 1 (send_message)")

	healthyRun := e.runs.byRule(healthy.ID())
	require.NotNil(t, healthyRun)
	assert.Equal(t, domain.RunSucceeded, healthyRun.Status())

	assert.Len(t, e.events.byType(application.EventRunFailed), 1)
	assert.Len(t, e.events.byType(application.EventRunSucceeded), 1)

	alerts, err := e.alerts.FindByWorkspace(context.Background(), workspaceID, 0)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "automation_run_failed", alerts[0].Kind())
	assert.Contains(t, alerts[0].Message(), `rule "failing" failed`)
}

func TestDispatch_DeferredLeavesRunsPending(t *testing.T) {
	workspaceID := uuid.New()
	e := newEngine(t, true)

	rule := domain.NewAutomationRule(workspaceID, "later", "booking.created", domain.Conditions{},
		[]domain.Action{sendAction("later")}, 0)
	require.NoError(t, e.rules.Save(context.Background(), rule))

	e.dispatcher.Dispatch(context.Background(), bookingCreated(workspaceID, map[string]any{"conversation_id": uuid.New().String()}))

	assert.Empty(t, e.sender.sent)
	run := e.runs.byRule(rule.ID())
	require.NotNil(t, run)
	assert.Equal(t, domain.RunPending, run.Status())
}

func TestDispatch_DuplicateEventCreatesOneRun(t *testing.T) {
	workspaceID := uuid.New()
	e := newEngine(t, true)

	rule := domain.NewAutomationRule(workspaceID, "once", "booking.created", domain.Conditions{}, nil, 0)
	require.NoError(t, e.rules.Save(context.Background(), rule))

	event := bookingCreated(workspaceID, nil)
	e.dispatcher.Dispatch(context.Background(), event)
	e.dispatcher.Dispatch(context.Background(), event)

	counts, err := e.runs.CountByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, counts[domain.RunPending], "one run per (rule, event)")
}

func TestProcessor_DrainsPendingRuns(t *testing.T) {
	workspaceID := uuid.New()
	e := newEngine(t, true)

	rule := domain.NewAutomationRule(workspaceID, "deferred", "booking.created", domain.Conditions{},
		[]domain.Action{sendAction("deferred hello")}, 0)
	require.NoError(t, e.rules.Save(context.Background(), rule))

	event := bookingCreated(workspaceID, map[string]any{"conversation_id": uuid.New().String()})
	_, err := e.events.Append(context.Background(), event)
	require.NoError(t, err)
	e.dispatcher.Dispatch(context.Background(), event)

	require.NoError(t, e.processor.ProcessBatch(context.Background()))

	assert.Equal(t, []string{"deferred hello"}, e.sender.sent)
	run := e.runs.byRule(rule.ID())
	require.NotNil(t, run)
	assert.Equal(t, domain.RunSucceeded, run.Status())

	// A second pass finds nothing to do.
	require.NoError(t, e.processor.ProcessBatch(context.Background()))
	assert.Len(t, e.sender.sent, 1)
}

func TestProcessor_SkipsWhenConditionsNoLongerMatch(t *testing.T) {
	workspaceID := uuid.New()
	e := newEngine(t, true)

	rule := domain.NewAutomationRule(workspaceID, "conditional", "booking.created", domain.Conditions{},
		[]domain.Action{sendAction("hi")}, 0)
	require.NoError(t, e.rules.Save(context.Background(), rule))

	event := bookingCreated(workspaceID, map[string]any{"conversation_id": uuid.New().String()})
	_, err := e.events.Append(context.Background(), event)
	require.NoError(t, err)
	e.dispatcher.Dispatch(context.Background(), event)

	// State moved between dispatch and execution.
	rule.Deactivate()
	require.NoError(t, e.rules.Save(context.Background(), rule))

	require.NoError(t, e.processor.ProcessBatch(context.Background()))

	assert.Empty(t, e.sender.sent)
	run := e.runs.byRule(rule.ID())
	require.NotNil(t, run)
	assert.Equal(t, domain.RunSkipped, run.Status())
}

func TestProcessor_RecoversRunForUndispatchedEvent(t *testing.T) {
	workspaceID := uuid.New()
	e := newEngine(t, true)

	rule := domain.NewAutomationRule(workspaceID, "recovered", "booking.created", domain.Conditions{},
		[]domain.Action{sendAction("caught up")}, 0)
	require.NoError(t, e.rules.Save(context.Background(), rule))

	// The event made it into the log but the producer died before
	// dispatch; no run exists.
	event := bookingCreated(workspaceID, map[string]any{"conversation_id": uuid.New().String()})
	_, err := e.events.Append(context.Background(), event)
	require.NoError(t, err)

	require.NoError(t, e.processor.ProcessBatch(context.Background()))

	assert.Equal(t, []string{"caught up"}, e.sender.sent)
	run := e.runs.byRule(rule.ID())
	require.NotNil(t, run)
	assert.Equal(t, domain.RunSucceeded, run.Status())

	// Replay is idempotent across passes.
	require.NoError(t, e.processor.ProcessBatch(context.Background()))
	assert.Len(t, e.sender.sent, 1)
}

func TestProcessor_ReplaySkipsEngineAuditEvents(t *testing.T) {
	workspaceID := uuid.New()
	e := newEngine(t, true)

	rule := domain.NewAutomationRule(workspaceID, "self-referential", application.EventRunSucceeded, domain.Conditions{},
		[]domain.Action{sendAction("never")}, 0)
	require.NoError(t, e.rules.Save(context.Background(), rule))

	audit := sharedDomain.NewBaseEvent(workspaceID, application.EventRunSucceeded, "automation_run", uuid.New().String(), sharedDomain.SystemActor())
	_, err := e.events.Append(context.Background(), &audit)
	require.NoError(t, err)

	require.NoError(t, e.processor.ProcessBatch(context.Background()))

	assert.Empty(t, e.sender.sent)
	counts, err := e.runs.CountByStatus(context.Background())
	require.NoError(t, err)
	assert.Empty(t, counts)
}

func TestProcessor_StartStop(t *testing.T) {
	e := newEngine(t, true)

	require.NoError(t, e.processor.Start(context.Background()))
	assert.True(t, e.processor.IsRunning())

	e.processor.Stop()
	assert.False(t, e.processor.IsRunning())
}
