package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/uday-incquet/AiVoice/internal/relay"
)

// ErrUnavailable is returned by [Guard.Connect] while the guard is open and
// the retry window has not yet elapsed. Calls fail immediately instead of
// dialling a service that is known to be down.
var ErrUnavailable = errors.New("backend: service unavailable")

var _ relay.BackendConnector = (*Guard)(nil)

// GuardConfig holds tuning knobs for a [Guard].
type GuardConfig struct {
	// MaxFailures is the number of consecutive connect failures before the
	// guard opens. Default: 3.
	MaxFailures int

	// RetryAfter is how long the guard stays open before allowing a probe
	// connect. Default: 15s.
	RetryAfter time.Duration
}

// Guard wraps a connector with connect-failure tracking. After MaxFailures
// consecutive failed connects it rejects new calls immediately until
// RetryAfter has elapsed, then lets a single probe connect through. A probe
// success closes the guard; a probe failure re-arms the rejection window.
//
// Individual calls are never retried, only refused while the service is
// known to be down.
type Guard struct {
	inner       relay.BackendConnector
	maxFailures int
	retryAfter  time.Duration

	mu       sync.Mutex
	failures int
	openedAt time.Time
	probing  bool
}

// NewGuard wraps inner with a connect guard.
func NewGuard(inner relay.BackendConnector, cfg GuardConfig) *Guard {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 3
	}
	if cfg.RetryAfter <= 0 {
		cfg.RetryAfter = 15 * time.Second
	}
	return &Guard{
		inner:       inner,
		maxFailures: cfg.MaxFailures,
		retryAfter:  cfg.RetryAfter,
	}
}

// Open reports whether the guard is currently rejecting connects.
func (g *Guard) Open() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.open() && time.Since(g.openedAt) < g.retryAfter
}

// open reports whether the failure threshold has been reached. Callers must
// hold g.mu.
func (g *Guard) open() bool {
	return g.failures >= g.maxFailures
}

// Connect dials through the wrapped connector unless the guard is open.
func (g *Guard) Connect(ctx context.Context, cfg relay.BackendConfig) (relay.BackendSession, error) {
	g.mu.Lock()
	if g.open() {
		if time.Since(g.openedAt) < g.retryAfter || g.probing {
			g.mu.Unlock()
			return nil, ErrUnavailable
		}
		// Retry window elapsed; let this call probe the service.
		g.probing = true
		slog.Info("backend guard probing after retry window")
	}
	g.mu.Unlock()

	sess, err := g.inner.Connect(ctx, cfg)

	g.mu.Lock()
	defer g.mu.Unlock()
	g.probing = false

	if err != nil {
		g.failures++
		g.openedAt = time.Now()
		if g.failures == g.maxFailures {
			slog.Warn("backend guard opened",
				"consecutive_failures", g.failures,
				"retry_after", g.retryAfter,
			)
		}
		return nil, fmt.Errorf("backend: connect: %w", err)
	}

	if g.failures >= g.maxFailures {
		slog.Info("backend guard closed after successful connect")
	}
	g.failures = 0
	return sess, nil
}
