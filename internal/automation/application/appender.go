package application

import (
	"context"

	"github.com/bookline/bookline/internal/automation/domain"
	sharedDomain "github.com/bookline/bookline/internal/shared/domain"
)

// LogAppender adapts the event store to the error-only Append port the
// producing contexts depend on. Producers never need the stored
// record back.
type LogAppender struct {
	store domain.EventStore
}

// NewLogAppender creates an appender over the event store.
func NewLogAppender(store domain.EventStore) *LogAppender {
	return &LogAppender{store: store}
}

// Append persists the event to the log.
func (a *LogAppender) Append(ctx context.Context, event sharedDomain.DomainEvent) error {
	_, err := a.store.Append(ctx, event)
	return err
}
