// Package sms delivers text messages through Twilio. A circuit breaker
// guards the upstream API and a recording mock stands in for it in tests
// and local development.
package sms

import "context"

// Client sends a single text message.
type Client interface {
	Send(ctx context.Context, to, body string) error
}
