// Package domain holds the contact and conversation model backing the
// booking intake path.
package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"

	sharedDomain "github.com/bookline/bookline/internal/shared/domain"
)

var (
	// ErrNoIdentity is returned when a contact has neither email nor
	// phone to match on.
	ErrNoIdentity = errors.New("contact needs an email or phone")

	// ErrNotFound is returned when a contact or conversation does not
	// exist.
	ErrNotFound = errors.New("not found")
)

// Channel is the medium a conversation runs over.
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelSMS      Channel = "sms"
	ChannelWhatsApp Channel = "whatsapp"
)

// Contact is a person bookings are made for, identified per workspace
// by email or phone.
type Contact struct {
	sharedDomain.BaseEntity
	workspaceID      uuid.UUID
	name             string
	email            string
	phone            string
	preferredChannel Channel
}

// NewContact creates a contact. At least one of email or phone is
// required for later find-or-create matching.
func NewContact(workspaceID uuid.UUID, name, email, phone string, preferred Channel) (*Contact, error) {
	if email == "" && phone == "" {
		return nil, ErrNoIdentity
	}
	if preferred == "" {
		preferred = ChannelEmail
	}
	return &Contact{
		BaseEntity:       sharedDomain.NewBaseEntity(),
		workspaceID:      workspaceID,
		name:             name,
		email:            email,
		phone:            phone,
		preferredChannel: preferred,
	}, nil
}

// Getters
func (c *Contact) WorkspaceID() uuid.UUID      { return c.workspaceID }
func (c *Contact) Name() string                { return c.name }
func (c *Contact) Email() string               { return c.email }
func (c *Contact) Phone() string               { return c.phone }
func (c *Contact) PreferredChannel() Channel   { return c.preferredChannel }

// UpdateName fills in a missing or changed name.
func (c *Contact) UpdateName(name string) {
	if name != "" && name != c.name {
		c.name = name
		c.Touch()
	}
}

// RehydrateContact recreates a contact from persisted state.
func RehydrateContact(
	id uuid.UUID,
	workspaceID uuid.UUID,
	name, email, phone string,
	preferred Channel,
	createdAt, updatedAt time.Time,
) *Contact {
	return &Contact{
		BaseEntity:       sharedDomain.RehydrateBaseEntity(id, createdAt, updatedAt),
		workspaceID:      workspaceID,
		name:             name,
		email:            email,
		phone:            phone,
		preferredChannel: preferred,
	}
}
