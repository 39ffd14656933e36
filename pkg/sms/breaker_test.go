package sms

import (
	"context"
	"errors"
	"testing"

	"github.com/sony/gobreaker"
)

func TestBreakerClient_PassesThroughOnSuccess(t *testing.T) {
	mock := NewMockClient()
	client := NewBreakerClient(mock, nil)

	if err := client.Send(context.Background(), "+15550100123", "your code is 123456"); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}

	calls := mock.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 recorded call, got %d", len(calls))
	}
	if calls[0].To != "+15550100123" {
		t.Errorf("To = %q, want %q", calls[0].To, "+15550100123")
	}
}

func TestBreakerClient_OpensAfterConsecutiveFailures(t *testing.T) {
	mock := NewMockClient()
	mock.FailWith(errors.New("upstream down"))
	client := NewBreakerClient(mock, nil)

	for i := 0; i < 5; i++ {
		if err := client.Send(context.Background(), "+15550100123", "code"); err == nil {
			t.Fatalf("send %d: expected error while upstream is down", i+1)
		}
	}

	// Breaker is now open: the next send must fail fast without reaching
	// the upstream.
	mock.FailWith(nil)
	err := client.Send(context.Background(), "+15550100123", "code")
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected ErrOpenState, got %v", err)
	}
	if got := len(mock.Calls()); got != 0 {
		t.Errorf("upstream reached %d times while breaker open, want 0", got)
	}
}

func TestBreakerClient_StaysClosedBelowThreshold(t *testing.T) {
	mock := NewMockClient()
	client := NewBreakerClient(mock, nil)

	mock.FailWith(errors.New("transient"))
	for i := 0; i < 4; i++ {
		client.Send(context.Background(), "+15550100123", "code")
	}

	mock.FailWith(nil)
	if err := client.Send(context.Background(), "+15550100123", "code"); err != nil {
		t.Fatalf("breaker opened below failure threshold: %v", err)
	}
}
