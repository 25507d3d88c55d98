package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/bookline/bookline/internal/automation/domain"
)

// ErrMissingConversation is returned when a message or pause action has
// no conversation to act on.
var ErrMissingConversation = errors.New("no conversation in action params or event payload")

// MessageSender delivers an automated message into a conversation. The
// subject may be empty.
type MessageSender interface {
	Send(ctx context.Context, workspaceID, conversationID uuid.UUID, subject, body string) error
}

// ConversationPauser silences further automated messages on a
// conversation.
type ConversationPauser interface {
	Pause(ctx context.Context, workspaceID, conversationID uuid.UUID) error
}

// ActionExecutor runs a rule's action list against an event record.
// Actions run in order; the first error aborts the remainder. Unknown
// action kinds are ignored, never an error.
type ActionExecutor struct {
	sender MessageSender
	alerts domain.AlertRepository
	pauser ConversationPauser
	logger *slog.Logger
}

// NewActionExecutor creates an executor. sender and pauser may be nil;
// their actions then fail rather than silently succeed.
func NewActionExecutor(
	sender MessageSender,
	alerts domain.AlertRepository,
	pauser ConversationPauser,
	logger *slog.Logger,
) *ActionExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	return &ActionExecutor{
		sender: sender,
		alerts: alerts,
		pauser: pauser,
		logger: logger,
	}
}

// Execute runs the rule's actions against the record. The returned
// result metadata is stored on the run. On error, the result covers the
// actions that completed before the abort and the error names the
// failing action.
func (e *ActionExecutor) Execute(ctx context.Context, rule *domain.AutomationRule, record *domain.EventRecord) (map[string]any, error) {
	executed := 0
	ignored := 0

	result := func() map[string]any {
		return map[string]any{
			"actions_executed": executed,
			"actions_ignored":  ignored,
		}
	}

	for i, action := range rule.Actions() {
		if !action.IsKnown() {
			ignored++
			e.logger.WarnContext(ctx, "ignoring unknown action kind",
				"rule_id", rule.ID(),
				"position", i,
				"kind", action.RawKind,
			)
			continue
		}

		if err := e.runAction(ctx, rule, record, action); err != nil {
			return result(), fmt.Errorf("action %d (%s): %w", i, action.Kind, err)
		}
		executed++
	}

	return result(), nil
}

func (e *ActionExecutor) runAction(ctx context.Context, rule *domain.AutomationRule, record *domain.EventRecord, action domain.Action) error {
	switch action.Kind {
	case domain.ActionSendMessage:
		return e.sendMessage(ctx, record, action)
	case domain.ActionRaiseAlert:
		return e.raiseAlert(ctx, rule, record, action)
	case domain.ActionPauseAutomation:
		return e.pauseAutomation(ctx, record, action)
	}
	return fmt.Errorf("unhandled action kind %q", action.Kind)
}

func (e *ActionExecutor) sendMessage(ctx context.Context, record *domain.EventRecord, action domain.Action) error {
	if e.sender == nil {
		return errors.New("no message sender configured")
	}

	conversationID, err := conversationFor(record, action)
	if err != nil {
		return err
	}

	body, _ := action.Params["body"].(string)
	if body == "" {
		body, _ = action.Params["template"].(string)
	}
	if body == "" {
		return errors.New("send_message needs a body or template param")
	}
	subject, _ := action.Params["subject"].(string)

	return e.sender.Send(ctx, record.WorkspaceID, conversationID, subject, body)
}

func (e *ActionExecutor) raiseAlert(ctx context.Context, rule *domain.AutomationRule, record *domain.EventRecord, action domain.Action) error {
	kind, _ := action.Params["kind"].(string)
	if kind == "" {
		kind = "automation"
	}
	message, _ := action.Params["message"].(string)
	if message == "" {
		message = fmt.Sprintf("rule %q fired on %s", rule.Name(), record.EventType)
	}

	alert := domain.NewAlert(record.WorkspaceID, kind, message, map[string]any{
		"rule_id":    rule.ID().String(),
		"event_id":   record.ID.String(),
		"event_type": record.EventType,
	})
	return e.alerts.Save(ctx, alert)
}

func (e *ActionExecutor) pauseAutomation(ctx context.Context, record *domain.EventRecord, action domain.Action) error {
	if e.pauser == nil {
		return errors.New("no conversation pauser configured")
	}

	conversationID, err := conversationFor(record, action)
	if err != nil {
		return err
	}
	return e.pauser.Pause(ctx, record.WorkspaceID, conversationID)
}

// conversationFor resolves the target conversation: an explicit param
// wins over the event payload.
func conversationFor(record *domain.EventRecord, action domain.Action) (uuid.UUID, error) {
	if raw, ok := action.Params["conversation_id"].(string); ok && raw != "" {
		return uuid.Parse(raw)
	}
	if raw, ok := record.Payload["conversation_id"].(string); ok && raw != "" {
		return uuid.Parse(raw)
	}
	return uuid.Nil, ErrMissingConversation
}
