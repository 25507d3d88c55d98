package domain_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookline/bookline/internal/booking/domain"
	sharedDomain "github.com/bookline/bookline/internal/shared/domain"
)

func newTestBooking(t *testing.T, source domain.Source) *domain.Booking {
	t.Helper()
	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	r := mustRange(t, start, start.Add(time.Hour))

	b, err := domain.NewBooking(uuid.New(), "haircut", nil, r, source)
	require.NoError(t, err)
	return b
}

func TestNewBooking_InternalStartsPending(t *testing.T) {
	b := newTestBooking(t, domain.SourceInternal)
	assert.Equal(t, domain.StatusPending, b.Status())
}

func TestNewBooking_PublicStartsConfirmed(t *testing.T) {
	b := newTestBooking(t, domain.SourcePublic)
	assert.Equal(t, domain.StatusConfirmed, b.Status())
}

func TestNewBooking_DurationCap(t *testing.T) {
	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	r := mustRange(t, start, start.Add(3*time.Hour))

	_, err := domain.NewBooking(uuid.New(), "haircut", nil, r, domain.SourcePublic)
	assert.ErrorIs(t, err, domain.ErrInvalidRange)
}

func TestBooking_LegalTransitions(t *testing.T) {
	actor := sharedDomain.SystemActor()

	b := newTestBooking(t, domain.SourceInternal)
	require.NoError(t, b.Confirm(actor))
	assert.Equal(t, domain.StatusConfirmed, b.Status())

	require.NoError(t, b.Complete(actor))
	assert.Equal(t, domain.StatusCompleted, b.Status())

	b = newTestBooking(t, domain.SourceInternal)
	require.NoError(t, b.Confirm(actor))
	require.NoError(t, b.Cancel(actor))
	assert.Equal(t, domain.StatusCancelled, b.Status())

	b = newTestBooking(t, domain.SourceInternal)
	require.NoError(t, b.Confirm(actor))
	require.NoError(t, b.MarkNoShow(actor))
	assert.Equal(t, domain.StatusNoShow, b.Status())
}

func TestBooking_PendingMustConfirmBeforeClosing(t *testing.T) {
	actor := sharedDomain.SystemActor()

	b := newTestBooking(t, domain.SourceInternal)
	assert.ErrorIs(t, b.Complete(actor), domain.ErrInvalidTransition)
	assert.ErrorIs(t, b.MarkNoShow(actor), domain.ErrInvalidTransition)
	assert.Equal(t, domain.StatusPending, b.Status())

	// Cancellation is the one closing move a pending booking has.
	require.NoError(t, b.Cancel(actor))
	assert.Equal(t, domain.StatusCancelled, b.Status())
}

func TestBooking_TerminalStatesAreFinal(t *testing.T) {
	actor := sharedDomain.SystemActor()

	terminal := []func(b *domain.Booking){
		func(b *domain.Booking) { require.NoError(t, b.Cancel(actor)) },
		func(b *domain.Booking) { require.NoError(t, b.Complete(actor)) },
		func(b *domain.Booking) { require.NoError(t, b.MarkNoShow(actor)) },
	}

	for _, reach := range terminal {
		b := newTestBooking(t, domain.SourcePublic)
		reach(b)
		was := b.Status()

		assert.ErrorIs(t, b.Confirm(actor), domain.ErrInvalidTransition)
		assert.ErrorIs(t, b.Cancel(actor), domain.ErrInvalidTransition)
		assert.ErrorIs(t, b.Complete(actor), domain.ErrInvalidTransition)
		assert.ErrorIs(t, b.MarkNoShow(actor), domain.ErrInvalidTransition)
		assert.Equal(t, was, b.Status(), "failed transition must not change state")
	}
}

func TestBooking_TransitionEmitsEvent(t *testing.T) {
	actor := sharedDomain.Actor{Type: sharedDomain.ActorStaff, ID: uuid.New().String()}

	b := newTestBooking(t, domain.SourceInternal)
	b.ClearDomainEvents()

	require.NoError(t, b.Confirm(actor))

	events := b.DomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventBookingConfirmed, events[0].EventType())
	assert.Equal(t, "pending", events[0].Payload()["previous_status"])
	assert.Equal(t, actor, events[0].Actor())
}

func TestBooking_FailedTransitionEmitsNothing(t *testing.T) {
	actor := sharedDomain.SystemActor()

	b := newTestBooking(t, domain.SourceInternal)
	require.NoError(t, b.Cancel(actor))
	b.ClearDomainEvents()

	assert.ErrorIs(t, b.Confirm(actor), domain.ErrInvalidTransition)
	assert.Empty(t, b.DomainEvents())
}
