package sms

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerClient wraps a Client with a circuit breaker. After enough
// consecutive failures the breaker opens and sends fail fast until the
// upstream recovers.
type BreakerClient struct {
	next Client
	cb   *gobreaker.CircuitBreaker
}

// NewBreakerClient creates a breaker-guarded client. The breaker opens
// after five consecutive failures and probes again after 30 seconds.
func NewBreakerClient(next Client, logger *slog.Logger) *BreakerClient {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	settings := gobreaker.Settings{
		Name:        "sms",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("sms circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}
	return &BreakerClient{
		next: next,
		cb:   gobreaker.NewCircuitBreaker(settings),
	}
}

// Send delivers through the wrapped client unless the breaker is open.
func (c *BreakerClient) Send(ctx context.Context, to, body string) error {
	_, err := c.cb.Execute(func() (interface{}, error) {
		return nil, c.next.Send(ctx, to, body)
	})
	return err
}
