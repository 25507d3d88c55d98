package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	inboxDomain "github.com/bookline/bookline/internal/inbox/domain"
	sharedDomain "github.com/bookline/bookline/internal/shared/domain"
)

// EventAppender persists domain events to the append-only event log.
type EventAppender interface {
	Append(ctx context.Context, event sharedDomain.DomainEvent) error
}

// EventAutomationPaused marks a conversation silenced by a rule.
const EventAutomationPaused = "conversation.automation_paused"

// ConversationPauser pauses automation on a conversation. It satisfies
// the automation engine's pause_automation port.
type ConversationPauser struct {
	conversations inboxDomain.ConversationRepository
	events        EventAppender
	logger        *slog.Logger
}

// NewConversationPauser creates a conversation pauser. events may be
// nil.
func NewConversationPauser(
	conversations inboxDomain.ConversationRepository,
	events EventAppender,
	logger *slog.Logger,
) *ConversationPauser {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConversationPauser{
		conversations: conversations,
		events:        events,
		logger:        logger,
	}
}

// Pause silences automated messages on the conversation. Pausing an
// already paused conversation is a no-op.
func (p *ConversationPauser) Pause(ctx context.Context, workspaceID, conversationID uuid.UUID) error {
	conversation, err := p.conversations.FindByID(ctx, workspaceID, conversationID)
	if err != nil {
		return fmt.Errorf("failed to load conversation %s: %w", conversationID, err)
	}
	if conversation.IsAutomationPaused() {
		return nil
	}

	conversation.PauseAutomation()
	if err := p.conversations.Save(ctx, conversation); err != nil {
		return fmt.Errorf("failed to save conversation %s: %w", conversationID, err)
	}

	if p.events != nil {
		event := sharedDomain.NewBaseEvent(workspaceID, EventAutomationPaused,
			"conversation", conversationID.String(), sharedDomain.SystemActor())
		if err := p.events.Append(ctx, &event); err != nil {
			p.logger.ErrorContext(ctx, "failed to append pause event",
				"conversation_id", conversationID,
				"error", err,
			)
		}
	}
	return nil
}
