package backend_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/uday-incquet/AiVoice/internal/backend"
	"github.com/uday-incquet/AiVoice/internal/relay"
)

type flakyConnector struct {
	err   error
	calls int
}

func (c *flakyConnector) Connect(ctx context.Context, cfg relay.BackendConfig) (relay.BackendSession, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return nil, nil
}

func TestGuard_PassesThroughWhileClosed(t *testing.T) {
	inner := &flakyConnector{}
	g := backend.NewGuard(inner, backend.GuardConfig{})

	for range 5 {
		if _, err := g.Connect(context.Background(), relay.BackendConfig{}); err != nil {
			t.Fatalf("Connect: %v", err)
		}
	}
	if inner.calls != 5 {
		t.Errorf("inner calls = %d, want 5", inner.calls)
	}
	if g.Open() {
		t.Error("guard open after successes")
	}
}

func TestGuard_OpensAfterConsecutiveFailures(t *testing.T) {
	inner := &flakyConnector{err: errors.New("dial refused")}
	g := backend.NewGuard(inner, backend.GuardConfig{MaxFailures: 3, RetryAfter: time.Minute})

	for range 3 {
		if _, err := g.Connect(context.Background(), relay.BackendConfig{}); err == nil {
			t.Fatal("Connect succeeded unexpectedly")
		}
	}
	if !g.Open() {
		t.Fatal("guard not open after threshold failures")
	}

	_, err := g.Connect(context.Background(), relay.BackendConfig{})
	if !errors.Is(err, backend.ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
	if inner.calls != 3 {
		t.Errorf("inner calls = %d, want 3 (open guard must not dial)", inner.calls)
	}
}

func TestGuard_ProbeClosesAfterRetryWindow(t *testing.T) {
	inner := &flakyConnector{err: errors.New("dial refused")}
	g := backend.NewGuard(inner, backend.GuardConfig{MaxFailures: 2, RetryAfter: 20 * time.Millisecond})

	for range 2 {
		_, _ = g.Connect(context.Background(), relay.BackendConfig{})
	}
	if !g.Open() {
		t.Fatal("guard not open")
	}

	time.Sleep(30 * time.Millisecond)
	inner.err = nil // service recovered

	if _, err := g.Connect(context.Background(), relay.BackendConfig{}); err != nil {
		t.Fatalf("probe connect: %v", err)
	}
	if g.Open() {
		t.Error("guard still open after successful probe")
	}
}

func TestGuard_ProbeFailureReArmsWindow(t *testing.T) {
	inner := &flakyConnector{err: errors.New("dial refused")}
	g := backend.NewGuard(inner, backend.GuardConfig{MaxFailures: 1, RetryAfter: 20 * time.Millisecond})

	_, _ = g.Connect(context.Background(), relay.BackendConfig{})
	time.Sleep(30 * time.Millisecond)

	// Probe fails; the guard should reject again without dialling.
	if _, err := g.Connect(context.Background(), relay.BackendConfig{}); err == nil {
		t.Fatal("probe connect succeeded unexpectedly")
	}
	calls := inner.calls
	_, err := g.Connect(context.Background(), relay.BackendConfig{})
	if !errors.Is(err, backend.ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
	if inner.calls != calls {
		t.Errorf("inner dialled during re-armed window (%d calls)", inner.calls)
	}
}
