package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	sharedDomain "github.com/bookline/bookline/internal/shared/domain"
)

// EventFollowUpFormOpened marks a follow-up form waiting for the
// contact after a completed booking. Rules on this event type send the
// form link out.
const EventFollowUpFormOpened = "booking.follow_up_form_opened"

// FollowUpFormTracker implements FormTracker by appending a form
// event per completed booking and handing it to the automation engine.
type FollowUpFormTracker struct {
	events     EventAppender
	dispatcher Dispatcher
	logger     *slog.Logger
}

// NewFollowUpFormTracker creates a form tracker. dispatcher may be nil.
func NewFollowUpFormTracker(events EventAppender, dispatcher Dispatcher, logger *slog.Logger) *FollowUpFormTracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &FollowUpFormTracker{events: events, dispatcher: dispatcher, logger: logger}
}

// TrackForBooking opens a follow-up form for a completed booking.
func (t *FollowUpFormTracker) TrackForBooking(ctx context.Context, workspaceID, bookingID uuid.UUID, bookingType string) error {
	event := sharedDomain.NewBaseEvent(workspaceID, EventFollowUpFormOpened,
		"booking", bookingID.String(), sharedDomain.SystemActor())
	event.SetPayload(map[string]any{
		"booking_id":   bookingID.String(),
		"booking_type": bookingType,
	})
	if err := t.events.Append(ctx, &event); err != nil {
		return fmt.Errorf("failed to append form event: %w", err)
	}
	if t.dispatcher != nil {
		t.dispatcher.Dispatch(ctx, &event)
	}
	return nil
}
