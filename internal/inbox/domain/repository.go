package domain

import (
	"context"

	"github.com/google/uuid"
)

// ContactRepository defines contact persistence.
type ContactRepository interface {
	// Save persists a contact (create or update).
	Save(ctx context.Context, contact *Contact) error

	// FindByID finds a contact by its ID within a workspace.
	FindByID(ctx context.Context, workspaceID, id uuid.UUID) (*Contact, error)

	// FindByIdentity matches on email first, then phone. Returns
	// ErrNotFound when neither matches.
	FindByIdentity(ctx context.Context, workspaceID uuid.UUID, email, phone string) (*Contact, error)
}

// ConversationRepository defines conversation persistence.
type ConversationRepository interface {
	// Save persists a conversation (create or update).
	Save(ctx context.Context, conversation *Conversation) error

	// FindByID finds a conversation by its ID within a workspace.
	FindByID(ctx context.Context, workspaceID, id uuid.UUID) (*Conversation, error)

	// FindOpenByContact returns the newest conversation of a contact on
	// a channel, or ErrNotFound.
	FindOpenByContact(ctx context.Context, workspaceID, contactID uuid.UUID, channel Channel) (*Conversation, error)
}
