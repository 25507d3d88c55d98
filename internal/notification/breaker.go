package notification

import (
	"context"
	"time"

	"github.com/sony/gobreaker/v2"
)

// BreakerGateway wraps a Gateway with a circuit breaker. Once the
// provider starts failing, further sends fail fast with
// gobreaker.ErrOpenState until the provider recovers; the automation
// engine records those as failed runs instead of piling up timeouts.
type BreakerGateway struct {
	gateway Gateway
	breaker *gobreaker.CircuitBreaker[struct{}]
}

// NewBreakerGateway wraps a gateway with a circuit breaker that opens
// after threshold consecutive failures and probes again after timeout.
// Zero values fall back to 5 failures and 30 seconds.
func NewBreakerGateway(gateway Gateway, threshold uint32, timeout time.Duration) *BreakerGateway {
	if threshold == 0 {
		threshold = 5
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	settings := gobreaker.Settings{
		Name:    "notification-gateway",
		Timeout: timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
	}
	return &BreakerGateway{
		gateway: gateway,
		breaker: gobreaker.NewCircuitBreaker[struct{}](settings),
	}
}

// Send delivers through the breaker.
func (g *BreakerGateway) Send(ctx context.Context, channel, to, subject, body string) error {
	_, err := g.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, g.gateway.Send(ctx, channel, to, subject, body)
	})
	return err
}
