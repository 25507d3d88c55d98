// Package application provides the contact intake service used by the
// reservation path.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	bookingApp "github.com/bookline/bookline/internal/booking/application"
	"github.com/bookline/bookline/internal/inbox/domain"
	sharedDomain "github.com/bookline/bookline/internal/shared/domain"
)

// IntakeService finds or creates the contact and conversation a
// reservation belongs to. It runs inside the caller's transaction.
type IntakeService struct {
	contacts      domain.ContactRepository
	conversations domain.ConversationRepository
	events        bookingApp.EventAppender
	logger        *slog.Logger
}

// NewIntakeService creates the intake service.
func NewIntakeService(
	contacts domain.ContactRepository,
	conversations domain.ConversationRepository,
	events bookingApp.EventAppender,
	logger *slog.Logger,
) *IntakeService {
	if logger == nil {
		logger = slog.Default()
	}
	return &IntakeService{
		contacts:      contacts,
		conversations: conversations,
		events:        events,
		logger:        logger,
	}
}

// Resolve returns the contact and conversation for the given details,
// creating either when missing. Newly created entities emit
// contact.created / conversation.opened events through the appender.
func (s *IntakeService) Resolve(
	ctx context.Context,
	workspaceID uuid.UUID,
	details bookingApp.ContactDetails,
	actor sharedDomain.Actor,
) (uuid.UUID, uuid.UUID, error) {
	contact, err := s.resolveContact(ctx, workspaceID, details, actor)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}

	channel := domain.Channel(details.Channel)
	if channel == "" {
		channel = contact.PreferredChannel()
	}

	conversation, err := s.conversations.FindOpenByContact(ctx, workspaceID, contact.ID(), channel)
	if errors.Is(err, domain.ErrNotFound) {
		conversation = domain.NewConversation(workspaceID, contact.ID(), channel)
		if err := s.conversations.Save(ctx, conversation); err != nil {
			return uuid.Nil, uuid.Nil, fmt.Errorf("failed to open conversation: %w", err)
		}
		if err := s.events.Append(ctx, domain.NewConversationOpenedEvent(conversation, actor)); err != nil {
			return uuid.Nil, uuid.Nil, err
		}
	} else if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("failed to look up conversation: %w", err)
	}

	return contact.ID(), conversation.ID(), nil
}

func (s *IntakeService) resolveContact(
	ctx context.Context,
	workspaceID uuid.UUID,
	details bookingApp.ContactDetails,
	actor sharedDomain.Actor,
) (*domain.Contact, error) {
	contact, err := s.contacts.FindByIdentity(ctx, workspaceID, details.Email, details.Phone)
	if err == nil {
		// Fill in a name learned later.
		if details.Name != "" && contact.Name() == "" {
			contact.UpdateName(details.Name)
			if err := s.contacts.Save(ctx, contact); err != nil {
				return nil, fmt.Errorf("failed to update contact: %w", err)
			}
		}
		return contact, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up contact: %w", err)
	}

	contact, err = domain.NewContact(workspaceID, details.Name, details.Email, details.Phone, domain.Channel(details.Channel))
	if err != nil {
		return nil, err
	}
	if err := s.contacts.Save(ctx, contact); err != nil {
		return nil, fmt.Errorf("failed to create contact: %w", err)
	}
	if err := s.events.Append(ctx, domain.NewContactCreatedEvent(contact, actor)); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "contact created", "contact_id", contact.ID())
	return contact, nil
}
