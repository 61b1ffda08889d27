// Package app wires the relay server's subsystems into a running application.
//
// The App struct owns the full lifecycle: New builds the backend connector,
// token issuer, metrics and HTTP surface from config, Run serves until the
// context is cancelled, and Shutdown drains active calls and stops the
// server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/uday-incquet/AiVoice/internal/backend"
	"github.com/uday-incquet/AiVoice/internal/config"
	"github.com/uday-incquet/AiVoice/internal/observe"
	"github.com/uday-incquet/AiVoice/internal/relay"
	"github.com/uday-incquet/AiVoice/internal/telephony"
)

// App owns all subsystem lifetimes for the relay server.
type App struct {
	cfg       atomic.Pointer[config.Config]
	connector relay.BackendConnector
	tokens    *telephony.TokenIssuer
	metrics   *observe.Metrics
	guard     *backend.Guard
	calls     *CallManager
	handler   http.Handler
	server    *http.Server

	// baseCtx outlives individual HTTP requests; media sessions are bound
	// to it so a hijacked WebSocket is not torn down by request-scoped
	// cancellation. Set by Run.
	baseCtx    atomic.Pointer[context.Context]
	shutdownTO time.Duration
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithConnector injects a backend connector instead of building the Gemini
// connector from config.
func WithConnector(c relay.BackendConnector) Option {
	return func(a *App) { a.connector = c }
}

// WithMetrics injects a metrics set instead of using the default provider.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// New creates an App from a validated config. Use Option functions to inject
// test doubles for any subsystem.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{
		calls:      NewCallManager(),
		shutdownTO: cfg.Server.ShutdownTimeout,
	}
	a.cfg.Store(cfg)
	for _, o := range opts {
		o(a)
	}

	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	if a.connector == nil {
		var beOpts []backend.Option
		if cfg.Gemini.Model != "" {
			beOpts = append(beOpts, backend.WithModel(cfg.Gemini.Model))
		}
		if cfg.Gemini.BaseURL != "" {
			beOpts = append(beOpts, backend.WithBaseURL(cfg.Gemini.BaseURL))
		}
		a.guard = backend.NewGuard(backend.New(cfg.Gemini.APIKey, beOpts...), backend.GuardConfig{})
		a.connector = a.guard
	}

	if cfg.Twilio.APIKeySID != "" {
		issuer, err := telephony.NewTokenIssuer(
			cfg.Twilio.AccountSID,
			cfg.Twilio.APIKeySID,
			cfg.Twilio.APIKeySecret,
			cfg.Twilio.AppSID,
			cfg.Twilio.TokenTTL,
		)
		if err != nil {
			return nil, fmt.Errorf("app: token issuer: %w", err)
		}
		a.tokens = issuer
	}

	a.handler = a.routes()
	a.server = &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return a, nil
}

// Handler returns the full HTTP surface, including middleware. Exposed for
// tests that serve the app through httptest.
func (a *App) Handler() http.Handler { return a.handler }

// Calls returns the active call registry.
func (a *App) Calls() *CallManager { return a.calls }

// currentConfig returns the most recently applied config.
func (a *App) currentConfig() *config.Config { return a.cfg.Load() }

// ApplyConfig applies a hot-reloaded config. Only session settings and the
// greeting take effect here; address, TLS and credential changes require a
// restart. Intended as a config.Watcher callback.
func (a *App) ApplyConfig(old, new *config.Config) {
	d := config.Diff(old, new)
	a.cfg.Store(new)
	if d.Empty() {
		return
	}
	if d.SessionChanged {
		slog.Info("session settings updated; applies to new calls",
			"voice", new.Gemini.Voice, "model", new.Gemini.Model)
	}
	if d.GreetingChanged {
		slog.Info("call greeting updated")
	}
}

// backendConfig builds the per-call backend session settings from the
// current config.
func (a *App) backendConfig() relay.BackendConfig {
	cfg := a.currentConfig()
	return relay.BackendConfig{
		Modalities:     cfg.Gemini.Modalities,
		Voice:          cfg.Gemini.Voice,
		SystemPreamble: cfg.Gemini.SystemPreamble,
	}
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully. It
// returns nil on clean shutdown.
func (a *App) Run(ctx context.Context) error {
	a.baseCtx.Store(&ctx)

	cfg := a.currentConfig()
	slog.Info("server listening",
		"addr", cfg.Server.ListenAddr,
		"tls", cfg.Server.TLS != nil,
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		if tls := cfg.Server.TLS; tls != nil {
			err = a.server.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
		} else {
			err = a.server.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTO)
		defer cancel()
		return a.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("app: run: %w", err)
	}
	return nil
}

// Shutdown drains active calls and stops the HTTP server.
func (a *App) Shutdown(ctx context.Context) error {
	slog.Info("shutting down", "active_calls", a.calls.Count())
	a.calls.CloseAll()
	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("app: shutdown: %w", err)
	}
	return nil
}
