package eventbus

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	sharedDomain "github.com/bookline/bookline/internal/shared/domain"
)

// EngineDispatcher is the in-process automation dispatch the relay
// forwards to after publishing.
type EngineDispatcher interface {
	Dispatch(ctx context.Context, event sharedDomain.DomainEvent)
}

// RelayDispatcher publishes every dispatched event to the message bus
// for external consumers (webhooks, analytics) and then hands it to
// the in-process automation engine. Publish failures are logged, never
// propagated: the bus is a mirror of the event log, not its owner.
type RelayDispatcher struct {
	publisher Publisher
	next      EngineDispatcher
	logger    *slog.Logger
}

// NewRelayDispatcher creates a relay. next may be nil when no
// automation engine is attached.
func NewRelayDispatcher(publisher Publisher, next EngineDispatcher, logger *slog.Logger) *RelayDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &RelayDispatcher{publisher: publisher, next: next, logger: logger}
}

type eventEnvelope struct {
	EventID       string         `json:"event_id"`
	WorkspaceID   string         `json:"workspace_id"`
	EventType     string         `json:"event_type"`
	EntityType    string         `json:"entity_type"`
	EntityID      string         `json:"entity_id"`
	ActorType     string         `json:"actor_type"`
	ActorID       string         `json:"actor_id,omitempty"`
	CorrelationID string         `json:"correlation_id,omitempty"`
	Payload       map[string]any `json:"payload,omitempty"`
	OccurredAt    time.Time      `json:"occurred_at"`
}

// Dispatch publishes the event and forwards it to the engine.
func (d *RelayDispatcher) Dispatch(ctx context.Context, event sharedDomain.DomainEvent) {
	envelope := eventEnvelope{
		EventID:       event.EventID().String(),
		WorkspaceID:   event.WorkspaceID().String(),
		EventType:     event.EventType(),
		EntityType:    event.EntityType(),
		EntityID:      event.EntityID(),
		ActorType:     string(event.Actor().Type),
		ActorID:       event.Actor().ID,
		CorrelationID: event.CorrelationID(),
		Payload:       event.Payload(),
		OccurredAt:    event.OccurredAt(),
	}
	body, err := json.Marshal(envelope)
	if err != nil {
		d.logger.ErrorContext(ctx, "failed to marshal event envelope",
			"event_type", event.EventType(),
			"error", err,
		)
	} else if err := d.publisher.Publish(ctx, event.EventType(), body); err != nil {
		d.logger.ErrorContext(ctx, "failed to publish event",
			"event_type", event.EventType(),
			"error", err,
		)
	}

	if d.next != nil {
		d.next.Dispatch(ctx, event)
	}
}
