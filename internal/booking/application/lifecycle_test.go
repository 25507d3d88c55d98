package application_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookline/bookline/internal/booking/application"
	"github.com/bookline/bookline/internal/booking/domain"
	sharedDomain "github.com/bookline/bookline/internal/shared/domain"
	"github.com/bookline/bookline/internal/shared/infrastructure/database"
)

type recordingDeductor struct {
	calls []uuid.UUID
}

func (r *recordingDeductor) DeductForBooking(ctx context.Context, workspaceID, bookingID uuid.UUID, bookingType string, actor sharedDomain.Actor) error {
	r.calls = append(r.calls, bookingID)
	return nil
}

type recordingFormTracker struct {
	calls []uuid.UUID
}

func (r *recordingFormTracker) TrackForBooking(ctx context.Context, workspaceID, bookingID uuid.UUID, bookingType string) error {
	r.calls = append(r.calls, bookingID)
	return nil
}

func setupLifecycle(t *testing.T) (*application.LifecycleService, *memBookings, *memEvents, *recordingDeductor, *recordingFormTracker, uuid.UUID, *domain.Booking) {
	t.Helper()

	workspaceID := uuid.New()
	bookings := &memBookings{}
	events := &memEvents{}
	deductor := &recordingDeductor{}
	forms := &recordingFormTracker{}

	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	r, err := domain.NewTimeRange(start, start.Add(time.Hour))
	require.NoError(t, err)
	booking, err := domain.NewBooking(workspaceID, "haircut", nil, r, domain.SourceInternal)
	require.NoError(t, err)
	require.NoError(t, bookings.Create(context.Background(), booking))

	uow := database.NewUnitOfWork(stubConn{})
	svc := application.NewLifecycleService(uow, bookings, events, deductor, forms, nil, nil)
	return svc, bookings, events, deductor, forms, workspaceID, booking
}

func TestLifecycle_ConfirmAppendsEvent(t *testing.T) {
	svc, _, events, _, _, workspaceID, booking := setupLifecycle(t)

	updated, err := svc.Confirm(context.Background(), workspaceID, booking.ID(), sharedDomain.SystemActor())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, updated.Status())

	appended := events.all()
	require.Len(t, appended, 1)
	assert.Equal(t, domain.EventBookingConfirmed, appended[0].EventType())
}

func TestLifecycle_CompleteTriggersSideEffects(t *testing.T) {
	svc, _, events, deductor, forms, workspaceID, booking := setupLifecycle(t)

	_, err := svc.Confirm(context.Background(), workspaceID, booking.ID(), sharedDomain.SystemActor())
	require.NoError(t, err)

	updated, err := svc.Complete(context.Background(), workspaceID, booking.ID(), sharedDomain.SystemActor())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, updated.Status())

	require.Len(t, deductor.calls, 1)
	assert.Equal(t, booking.ID(), deductor.calls[0])
	require.Len(t, forms.calls, 1)
	assert.Equal(t, booking.ID(), forms.calls[0])

	appended := events.all()
	require.Len(t, appended, 2)
	assert.Equal(t, domain.EventBookingCompleted, appended[1].EventType())
}

func TestLifecycle_InvalidTransitionLeavesNoTrace(t *testing.T) {
	svc, _, events, deductor, _, workspaceID, booking := setupLifecycle(t)

	_, err := svc.Cancel(context.Background(), workspaceID, booking.ID(), sharedDomain.SystemActor())
	require.NoError(t, err)

	_, err = svc.Complete(context.Background(), workspaceID, booking.ID(), sharedDomain.SystemActor())
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	assert.Empty(t, deductor.calls, "side effects must not run on a failed transition")

	appended := events.all()
	require.Len(t, appended, 1, "only the cancel event may exist")
	assert.Equal(t, domain.EventBookingCancelled, appended[0].EventType())
}

func TestLifecycle_UnknownBooking(t *testing.T) {
	svc, _, _, _, _, workspaceID, _ := setupLifecycle(t)

	_, err := svc.Confirm(context.Background(), workspaceID, uuid.New(), sharedDomain.SystemActor())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
