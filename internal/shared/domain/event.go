package domain

import (
	"time"

	"github.com/google/uuid"
)

// ActorType identifies who caused a domain event.
type ActorType string

const (
	ActorSystem      ActorType = "system"
	ActorStaff       ActorType = "staff"
	ActorContact     ActorType = "contact"
	ActorIntegration ActorType = "integration"
)

// Actor is the originator of a domain event.
type Actor struct {
	Type ActorType
	ID   string
}

// SystemActor is the default actor for engine-originated events.
func SystemActor() Actor {
	return Actor{Type: ActorSystem}
}

// DomainEvent is an immutable fact describing a state change inside a
// workspace. Events drive the automation dispatcher; producers append
// every state change they want automatable.
type DomainEvent interface {
	EventID() uuid.UUID
	WorkspaceID() uuid.UUID
	// EventType is a dotted routing key, e.g. "booking.created".
	EventType() string
	EntityType() string
	EntityID() string
	Actor() Actor
	CorrelationID() string
	OccurredAt() time.Time
	// Payload is an opaque map carried to rule conditions and actions.
	Payload() map[string]any
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	eventID       uuid.UUID
	workspaceID   uuid.UUID
	eventType     string
	entityType    string
	entityID      string
	actor         Actor
	correlationID string
	occurredAt    time.Time
	payload       map[string]any
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(workspaceID uuid.UUID, eventType, entityType, entityID string, actor Actor) BaseEvent {
	return BaseEvent{
		eventID:     uuid.New(),
		workspaceID: workspaceID,
		eventType:   eventType,
		entityType:  entityType,
		entityID:    entityID,
		actor:       actor,
		occurredAt:  time.Now().UTC(),
	}
}

func (e BaseEvent) EventID() uuid.UUID       { return e.eventID }
func (e BaseEvent) WorkspaceID() uuid.UUID   { return e.workspaceID }
func (e BaseEvent) EventType() string        { return e.eventType }
func (e BaseEvent) EntityType() string       { return e.entityType }
func (e BaseEvent) EntityID() string         { return e.entityID }
func (e BaseEvent) Actor() Actor             { return e.actor }
func (e BaseEvent) CorrelationID() string    { return e.correlationID }
func (e BaseEvent) OccurredAt() time.Time    { return e.occurredAt }
func (e BaseEvent) Payload() map[string]any  { return e.payload }

// SetCorrelationID sets the correlation ID used to trace the event back to
// the request that produced it.
func (e *BaseEvent) SetCorrelationID(id string) {
	e.correlationID = id
}

// SetPayload replaces the event payload.
func (e *BaseEvent) SetPayload(payload map[string]any) {
	e.payload = payload
}
