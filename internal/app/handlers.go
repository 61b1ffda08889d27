package app

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/uday-incquet/AiVoice/internal/health"
	"github.com/uday-incquet/AiVoice/internal/observe"
	"github.com/uday-incquet/AiVoice/internal/relay"
	"github.com/uday-incquet/AiVoice/internal/telephony"
)

// routes builds the HTTP surface:
//
//   - POST /voice   — Twilio webhook answering a call with stream TwiML
//   - GET  /token   — client access token issuance
//   - GET  /media   — Twilio Media Streams WebSocket
//   - GET  /calls   — active call listing
//   - GET  /metrics — Prometheus metrics
//   - GET  /healthz, /readyz — probes
func (a *App) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /voice", a.handleVoice)
	mux.HandleFunc("GET /token", a.handleToken)
	mux.HandleFunc("GET /media", a.handleMedia)
	mux.HandleFunc("GET /calls", a.handleCalls)
	mux.Handle("GET /metrics", promhttp.Handler())

	health.New(
		health.Checker{Name: "backend", Check: a.checkBackend},
		health.Checker{Name: "telephony", Check: a.checkTelephony},
	).Register(mux)

	return observe.Middleware(a.metrics)(mux)
}

func (a *App) checkBackend(context.Context) error {
	if a.currentConfig().Gemini.APIKey == "" {
		return errors.New("gemini api key not configured")
	}
	if a.guard != nil && a.guard.Open() {
		return errors.New("backend connects are failing")
	}
	return nil
}

func (a *App) checkTelephony(context.Context) error {
	if a.currentConfig().Server.PublicHost == "" {
		return errors.New("public host not configured")
	}
	return nil
}

// handleVoice answers Twilio's incoming-call webhook with TwiML that bridges
// the call audio to the /media WebSocket.
func (a *App) handleVoice(w http.ResponseWriter, r *http.Request) {
	cfg := a.currentConfig()
	streamURL := "wss://" + cfg.Server.PublicHost + "/media"

	body, err := telephony.ConnectStreamTwiML(streamURL, cfg.Twilio.Greeting, nil)
	if err != nil {
		slog.Error("twiml rendering failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	_, _ = w.Write(body)
}

// handleToken mints a client access token for the identity query parameter.
func (a *App) handleToken(w http.ResponseWriter, r *http.Request) {
	if a.tokens == nil {
		http.Error(w, "token issuance not configured", http.StatusServiceUnavailable)
		return
	}

	identity := r.URL.Query().Get("identity")
	if identity == "" {
		http.Error(w, "identity query parameter is required", http.StatusBadRequest)
		return
	}

	token, err := a.tokens.Issue(identity)
	if err != nil {
		slog.Error("token issuance failed", "identity", identity, "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"identity": identity,
		"token":    token,
	})
}

// handleMedia upgrades to the Media Streams WebSocket and runs one relay
// session for the lifetime of the call.
func (a *App) handleMedia(w http.ResponseWriter, r *http.Request) {
	stream, err := telephony.Accept(w, r)
	if err != nil {
		// Accept has already written the HTTP error response.
		slog.Warn("media upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	sess := relay.NewSession(relay.Config{
		Telephony: stream,
		Connector: a.connector,
		Backend:   a.backendConfig(),
		Metrics:   a.metrics,
	})

	a.calls.Register(sess, CallInfo{
		SessionID:  sess.ID(),
		RemoteAddr: r.RemoteAddr,
		StartedAt:  time.Now().UTC(),
	})
	defer a.calls.Unregister(sess.ID())

	// The WebSocket is hijacked; bind the session to the server lifetime
	// rather than the request context.
	ctx := context.Background()
	if p := a.baseCtx.Load(); p != nil {
		ctx = *p
	}

	if err := sess.Run(ctx); err != nil {
		slog.Error("relay session ended with error", "session", sess.ID(), "err", err)
		return
	}
	slog.Info("relay session ended", "session", sess.ID(), "call_sid", stream.CallSID())
}

// handleCalls lists active calls.
func (a *App) handleCalls(w http.ResponseWriter, r *http.Request) {
	calls := a.calls.List()
	writeJSON(w, http.StatusOK, map[string]any{
		"active_calls": len(calls),
		"calls":        calls,
		"timestamp":    time.Now().UTC(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("response encoding failed", "err", err)
	}
}
