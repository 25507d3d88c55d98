package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	inboxDomain "github.com/bookline/bookline/internal/inbox/domain"
)

// ErrNoDestination is returned when the contact has no address on the
// conversation's channel.
var ErrNoDestination = errors.New("contact has no destination for channel")

// ConversationSender resolves a conversation to its contact's address
// and delivers through the gateway. It satisfies the automation
// engine's MessageSender port.
//
// A paused conversation swallows the send: a staff member has taken
// over and automated messages must stay out of the thread.
type ConversationSender struct {
	contacts      inboxDomain.ContactRepository
	conversations inboxDomain.ConversationRepository
	gateway       Gateway
	logger        *slog.Logger
}

// NewConversationSender creates a conversation sender.
func NewConversationSender(
	contacts inboxDomain.ContactRepository,
	conversations inboxDomain.ConversationRepository,
	gateway Gateway,
	logger *slog.Logger,
) *ConversationSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConversationSender{
		contacts:      contacts,
		conversations: conversations,
		gateway:       gateway,
		logger:        logger,
	}
}

// Send delivers a message into a conversation. An empty subject is
// fine; only email makes use of one.
func (s *ConversationSender) Send(ctx context.Context, workspaceID, conversationID uuid.UUID, subject, body string) error {
	conversation, err := s.conversations.FindByID(ctx, workspaceID, conversationID)
	if err != nil {
		return fmt.Errorf("failed to load conversation %s: %w", conversationID, err)
	}
	if conversation.IsAutomationPaused() {
		s.logger.InfoContext(ctx, "skipping send, automation paused",
			"conversation_id", conversationID,
		)
		return nil
	}

	contact, err := s.contacts.FindByID(ctx, workspaceID, conversation.ContactID())
	if err != nil {
		return fmt.Errorf("failed to load contact %s: %w", conversation.ContactID(), err)
	}

	to := destinationFor(contact, conversation.Channel())
	if to == "" {
		return fmt.Errorf("%w: contact %s, channel %s", ErrNoDestination, contact.ID(), conversation.Channel())
	}
	return s.gateway.Send(ctx, string(conversation.Channel()), to, subject, body)
}

func destinationFor(contact *inboxDomain.Contact, channel inboxDomain.Channel) string {
	switch channel {
	case inboxDomain.ChannelEmail:
		return contact.Email()
	case inboxDomain.ChannelSMS, inboxDomain.ChannelWhatsApp:
		return contact.Phone()
	default:
		return ""
	}
}
