package domain

import (
	"reflect"
	"time"

	"github.com/google/uuid"

	sharedDomain "github.com/bookline/bookline/internal/shared/domain"
)

// Conditions are the declarative filters a rule applies beyond its
// event type.
type Conditions struct {
	// PayloadEquals requires every listed key to equal the payload
	// value. A key missing from the payload is a no-match.
	PayloadEquals map[string]any `json:"payload_equals,omitempty"`

	// ActorTypeIn, when non-empty, requires the event actor's type to
	// be in the set.
	ActorTypeIn []sharedDomain.ActorType `json:"actor_type_in,omitempty"`
}

// Match evaluates the conditions against an event record. Evaluation
// is stateless and deterministic.
func (c Conditions) Match(record *EventRecord) bool {
	for key, want := range c.PayloadEquals {
		got, ok := record.Payload[key]
		if !ok || !looselyEqual(got, want) {
			return false
		}
	}
	if len(c.ActorTypeIn) > 0 {
		found := false
		for _, t := range c.ActorTypeIn {
			if record.Actor.Type == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// looselyEqual compares payload values across the numeric types JSON
// round-trips produce. Condition values may themselves be JSON objects
// or arrays, so the fallback must not use ==, which panics on
// uncomparable types.
func looselyEqual(a, b any) bool {
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if aok && bok {
		return af == bf
	}
	return reflect.DeepEqual(a, b)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// AutomationRule reacts to events of one type with an ordered action
// list. Rules are evaluated statelessly per event.
type AutomationRule struct {
	sharedDomain.BaseEntity
	workspaceID uuid.UUID
	name        string
	eventType   string
	conditions  Conditions
	actions     []Action
	priority    int
	active      bool
}

// NewAutomationRule creates an active rule.
func NewAutomationRule(
	workspaceID uuid.UUID,
	name string,
	eventType string,
	conditions Conditions,
	actions []Action,
	priority int,
) *AutomationRule {
	return &AutomationRule{
		BaseEntity:  sharedDomain.NewBaseEntity(),
		workspaceID: workspaceID,
		name:        name,
		eventType:   eventType,
		conditions:  conditions,
		actions:     actions,
		priority:    priority,
		active:      true,
	}
}

// Getters
func (r *AutomationRule) WorkspaceID() uuid.UUID     { return r.workspaceID }
func (r *AutomationRule) Name() string               { return r.name }
func (r *AutomationRule) EventType() string          { return r.eventType }
func (r *AutomationRule) RuleConditions() Conditions { return r.conditions }
func (r *AutomationRule) Actions() []Action          { return r.actions }
func (r *AutomationRule) Priority() int              { return r.priority }
func (r *AutomationRule) IsActive() bool             { return r.active }

// Matches reports whether the rule applies to an event record: same
// workspace, active, matching event type, and passing conditions.
func (r *AutomationRule) Matches(record *EventRecord) bool {
	if !r.active || r.workspaceID != record.WorkspaceID || r.eventType != record.EventType {
		return false
	}
	return r.conditions.Match(record)
}

// Deactivate turns the rule off without deleting it.
func (r *AutomationRule) Deactivate() {
	r.active = false
	r.Touch()
}

// Activate turns the rule back on.
func (r *AutomationRule) Activate() {
	r.active = true
	r.Touch()
}

// RehydrateAutomationRule recreates a rule from persisted state.
func RehydrateAutomationRule(
	id uuid.UUID,
	workspaceID uuid.UUID,
	name, eventType string,
	conditions Conditions,
	actions []Action,
	priority int,
	active bool,
	createdAt, updatedAt time.Time,
) *AutomationRule {
	return &AutomationRule{
		BaseEntity:  sharedDomain.RehydrateBaseEntity(id, createdAt, updatedAt),
		workspaceID: workspaceID,
		name:        name,
		eventType:   eventType,
		conditions:  conditions,
		actions:     actions,
		priority:    priority,
		active:      active,
	}
}
