package domain

import (
	"time"

	"github.com/google/uuid"

	sharedDomain "github.com/bookline/bookline/internal/shared/domain"
)

// Conversation is the thread a contact's bookings and automated
// messages attach to. The pause flag lets a staff takeover silence
// automations for the thread.
type Conversation struct {
	sharedDomain.BaseEntity
	workspaceID      uuid.UUID
	contactID        uuid.UUID
	channel          Channel
	automationPaused bool
	lastStaffReplyAt *time.Time
}

// NewConversation opens a conversation for a contact on a channel.
func NewConversation(workspaceID, contactID uuid.UUID, channel Channel) *Conversation {
	if channel == "" {
		channel = ChannelEmail
	}
	return &Conversation{
		BaseEntity:  sharedDomain.NewBaseEntity(),
		workspaceID: workspaceID,
		contactID:   contactID,
		channel:     channel,
	}
}

// Getters
func (c *Conversation) WorkspaceID() uuid.UUID       { return c.workspaceID }
func (c *Conversation) ContactID() uuid.UUID         { return c.contactID }
func (c *Conversation) Channel() Channel             { return c.channel }
func (c *Conversation) IsAutomationPaused() bool     { return c.automationPaused }
func (c *Conversation) LastStaffReplyAt() *time.Time { return c.lastStaffReplyAt }

// PauseAutomation silences automated messages on this thread.
func (c *Conversation) PauseAutomation() {
	c.automationPaused = true
	c.Touch()
}

// ResumeAutomation re-enables automated messages.
func (c *Conversation) ResumeAutomation() {
	c.automationPaused = false
	c.Touch()
}

// RecordStaffReply marks a human takeover at the given instant.
func (c *Conversation) RecordStaffReply(at time.Time) {
	at = at.UTC()
	c.lastStaffReplyAt = &at
	c.Touch()
}

// RehydrateConversation recreates a conversation from persisted state.
func RehydrateConversation(
	id uuid.UUID,
	workspaceID, contactID uuid.UUID,
	channel Channel,
	automationPaused bool,
	lastStaffReplyAt *time.Time,
	createdAt, updatedAt time.Time,
) *Conversation {
	return &Conversation{
		BaseEntity:       sharedDomain.RehydrateBaseEntity(id, createdAt, updatedAt),
		workspaceID:      workspaceID,
		contactID:        contactID,
		channel:          channel,
		automationPaused: automationPaused,
		lastStaffReplyAt: lastStaffReplyAt,
	}
}

// Event types emitted by the intake path.
const (
	EventContactCreated     = "contact.created"
	EventConversationOpened = "conversation.opened"
)

// NewContactCreatedEvent builds the contact creation event.
func NewContactCreatedEvent(contact *Contact, actor sharedDomain.Actor) sharedDomain.DomainEvent {
	event := sharedDomain.NewBaseEvent(
		contact.WorkspaceID(), EventContactCreated, "contact", contact.ID().String(), actor,
	)
	event.SetPayload(map[string]any{
		"name":              contact.Name(),
		"preferred_channel": string(contact.PreferredChannel()),
	})
	return &event
}

// NewConversationOpenedEvent builds the conversation open event.
func NewConversationOpenedEvent(conversation *Conversation, actor sharedDomain.Actor) sharedDomain.DomainEvent {
	event := sharedDomain.NewBaseEvent(
		conversation.WorkspaceID(), EventConversationOpened, "conversation", conversation.ID().String(), actor,
	)
	event.SetPayload(map[string]any{
		"contact_id": conversation.ContactID().String(),
		"channel":    string(conversation.Channel()),
	})
	return &event
}
