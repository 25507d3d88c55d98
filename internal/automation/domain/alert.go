package domain

import (
	"time"

	"github.com/google/uuid"

	sharedDomain "github.com/bookline/bookline/internal/shared/domain"
)

// Alert is a persisted operator notification raised by an automation
// action or by inventory falling under its reorder threshold.
type Alert struct {
	sharedDomain.BaseEntity
	workspaceID uuid.UUID
	kind        string
	message     string
	metadata    map[string]any
}

// NewAlert creates an alert.
func NewAlert(workspaceID uuid.UUID, kind, message string, metadata map[string]any) *Alert {
	if metadata == nil {
		metadata = map[string]any{}
	}
	return &Alert{
		BaseEntity:  sharedDomain.NewBaseEntity(),
		workspaceID: workspaceID,
		kind:        kind,
		message:     message,
		metadata:    metadata,
	}
}

// Getters
func (a *Alert) WorkspaceID() uuid.UUID   { return a.workspaceID }
func (a *Alert) Kind() string             { return a.kind }
func (a *Alert) Message() string          { return a.message }
func (a *Alert) Metadata() map[string]any { return a.metadata }

// RehydrateAlert recreates an alert from persisted state.
func RehydrateAlert(
	id uuid.UUID,
	workspaceID uuid.UUID,
	kind, message string,
	metadata map[string]any,
	createdAt time.Time,
) *Alert {
	if metadata == nil {
		metadata = map[string]any{}
	}
	return &Alert{
		BaseEntity:  sharedDomain.RehydrateBaseEntity(id, createdAt, createdAt),
		workspaceID: workspaceID,
		kind:        kind,
		message:     message,
		metadata:    metadata,
	}
}
