// Package relay implements the per-call audio relay between a telephony
// media stream and a generative-voice backend session.
//
// One Session exists per accepted telephony connection. The session owns the
// call state machine and the cross-wiring between the two endpoints: inbound
// telephony audio is transcoded from 8 kHz μ-law to 16 kHz linear PCM and
// forwarded to the backend (buffered until the backend signals readiness),
// and backend audio is brought down to 8 kHz μ-law and forwarded back as
// telephony media. Sessions share no mutable state with each other.
package relay

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"

	"github.com/uday-incquet/AiVoice/internal/observe"
	"github.com/uday-incquet/AiVoice/pkg/audio"
)

// State is the lifecycle phase of a call session. There is no transition out
// of StateClosed.
type State int

const (
	// StateConnecting: telephony connection accepted, backend session not
	// yet requested.
	StateConnecting State = iota

	// StateAwaitingReady: backend session requested; inbound media frames
	// are buffered until it signals readiness.
	StateAwaitingReady

	// StateStreaming: backend ready; buffered frames drained, live frames
	// pass straight through.
	StateStreaming

	// StateDraining: one side signalled a logical stop; the other side is
	// being released.
	StateDraining

	// StateClosed: terminal. Both endpoint handles released.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAwaitingReady:
		return "awaiting-ready"
	case StateStreaming:
		return "streaming"
	case StateDraining:
		return "draining"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

const (
	// telephonyRateHz is the sample rate of the telephony leg.
	telephonyRateHz = 8000

	// backendRateHz is the linear-PCM rate the backend accepts as input and
	// the working rate outbound audio is normalised to before decimation.
	backendRateHz = 16000
)

// backendInputMIME declares the format of audio sent to the backend.
const backendInputMIME = "audio/pcm;rate=16000"

// Config carries the dependencies for a Session.
type Config struct {
	Telephony TelephonyEndpoint
	Connector BackendConnector
	Backend   BackendConfig

	// Metrics is optional; when nil no instruments are recorded.
	Metrics *observe.Metrics
}

// Session is the relay orchestrator for one call. Create it with NewSession
// and drive it with Run; all state is owned by the Run goroutine.
type Session struct {
	id        string
	streamSID string
	state     State
	buf       *SessionBuffer

	tel       TelephonyEndpoint
	connector BackendConnector
	beCfg     BackendConfig
	be        BackendSession

	telClosed bool
	beClosed  bool

	done      chan struct{}
	closeOnce sync.Once

	metrics *observe.Metrics
	logger  *slog.Logger
	started time.Time
}

// NewSession creates a session in StateConnecting. The stream identifier
// stays empty until the telephony side sends its start event; the generated
// id only names the session in logs until then.
func NewSession(cfg Config) *Session {
	id := uuid.NewString()
	return &Session{
		id:        id,
		state:     StateConnecting,
		buf:       NewSessionBuffer(),
		done:      make(chan struct{}),
		tel:       cfg.Telephony,
		connector: cfg.Connector,
		beCfg:     cfg.Backend,
		metrics:   cfg.Metrics,
		logger:    slog.Default().With("session", id),
	}
}

// ID returns the generated session identifier used in logs.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle phase. Only meaningful from the Run
// goroutine or after Run has returned.
func (s *Session) State() State { return s.state }

// StreamSID returns the telephony stream identifier, or "" before the start
// event has been seen.
func (s *Session) StreamSID() string { return s.streamSID }

// Close requests session teardown. Safe to call from any goroutine and more
// than once; the Run goroutine performs the actual endpoint release, so each
// endpoint handle is closed exactly once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return nil
}

// Run connects the backend session and relays events until both sides are
// closed or ctx is cancelled. It always leaves the session in StateClosed
// with both endpoints released.
func (s *Session) Run(ctx context.Context) error {
	s.started = time.Now()
	if s.metrics != nil {
		s.metrics.ActiveCalls.Add(ctx, 1)
		defer s.metrics.ActiveCalls.Add(context.WithoutCancel(ctx), -1)
		defer func() {
			s.metrics.CallDuration.Record(context.WithoutCancel(ctx),
				time.Since(s.started).Seconds())
		}()
	}
	defer s.close()

	// Request the backend session. A setup failure is session-fatal: the
	// call goes straight to Closed with no retry.
	connectStart := time.Now()
	be, err := s.connector.Connect(ctx, s.beCfg)
	if err != nil {
		if s.metrics != nil {
			s.metrics.SessionErrors.Add(ctx, 1,
				metric.WithAttributes(observe.Attr("side", "backend")))
		}
		s.logger.Error("backend session setup failed", "err", err)
		return fmt.Errorf("relay: backend connect: %w", err)
	}
	s.be = be
	s.state = StateAwaitingReady
	if s.metrics != nil {
		s.metrics.BackendConnectDuration.Record(ctx, time.Since(connectStart).Seconds())
	}
	s.logger.Debug("backend session requested", "state", s.state.String())

	telEvents := s.tel.Events()
	beEvents := s.be.Events()

	for s.state != StateClosed && (telEvents != nil || beEvents != nil) {
		select {
		case <-ctx.Done():
			s.logger.Debug("context cancelled, closing session")
			s.close()
			return ctx.Err()

		case <-s.done:
			s.close()
			return nil

		case ev, ok := <-telEvents:
			if !ok {
				telEvents = nil
				s.handleEvent(ctx, Event{Kind: TelephonyClosed})
				continue
			}
			s.handleEvent(ctx, ev)

		case ev, ok := <-beEvents:
			if !ok {
				beEvents = nil
				s.handleEvent(ctx, Event{Kind: BackendClosed})
				continue
			}
			s.handleEvent(ctx, ev)
		}
	}
	return nil
}

// handleEvent applies one event to the state machine. Events on a closed
// session are ignored idempotently.
func (s *Session) handleEvent(ctx context.Context, ev Event) {
	if s.state == StateClosed {
		return
	}

	switch ev.Kind {
	case TelephonyStart:
		s.streamSID = ev.StreamSID
		s.logger = s.logger.With("stream_sid", ev.StreamSID)
		s.logger.Info("telephony stream started", "state", s.state.String())

	case TelephonyMedia:
		s.forwardInbound(ctx, ev.Frame)

	case TelephonyStop:
		s.logger.Info("telephony stream stopped")
		s.close()

	case TelephonyClosed:
		if ev.Err != nil {
			s.logger.Warn("telephony connection error", "err", ev.Err)
			if s.metrics != nil {
				s.metrics.SessionErrors.Add(ctx, 1,
					metric.WithAttributes(observe.Attr("side", "telephony")))
			}
		}
		s.telClosed = true
		s.close()

	case BackendReady:
		if s.state != StateAwaitingReady {
			s.logger.Debug("backend ready ignored", "state", s.state.String())
			return
		}
		s.buf.MarkReady()
		frames := s.buf.Drain()
		for _, f := range frames {
			s.sendToBackend(ctx, f)
		}
		s.state = StateStreaming
		s.logger.Info("backend ready, streaming", "drained_frames", len(frames))

	case BackendAudio:
		s.forwardOutbound(ctx, ev.Audio, ev.MIMEType)

	case BackendError:
		s.logger.Warn("backend session error", "err", ev.Err)
		if s.metrics != nil {
			s.metrics.SessionErrors.Add(ctx, 1,
				metric.WithAttributes(observe.Attr("side", "backend")))
		}
		s.close()

	case BackendClosed:
		if ev.Err != nil {
			s.logger.Warn("backend session closed with error", "err", ev.Err)
		} else {
			s.logger.Info("backend session closed")
		}
		s.beClosed = true
		s.close()

	default:
		// Unrecognised event kinds are logged and discarded; session state
		// is unchanged.
		s.logger.Warn("discarding unrecognised event", "kind", int(ev.Kind))
	}
}

// forwardInbound transcodes a telephony media frame to the backend's input
// format and either buffers it (AwaitingReady) or sends it (Streaming).
func (s *Session) forwardInbound(ctx context.Context, frame audio.AudioFrame) {
	if !frame.Valid() {
		s.logger.Warn("dropping malformed inbound frame",
			"bytes", len(frame.Data), "encoding", string(frame.Encoding))
		if s.metrics != nil {
			s.metrics.RecordDrop(ctx, "malformed")
		}
		return
	}

	converted, err := toBackendFrame(frame)
	if err != nil {
		s.logger.Warn("dropping inbound frame", "err", err)
		if s.metrics != nil {
			s.metrics.RecordDrop(ctx, "unsupported")
		}
		return
	}

	switch s.state {
	case StateAwaitingReady:
		s.buf.Enqueue(converted)
		if s.metrics != nil {
			s.metrics.FramesBuffered.Add(ctx, 1)
		}
	case StateStreaming:
		s.sendToBackend(ctx, converted)
	default:
		s.logger.Debug("inbound media ignored", "state", s.state.String())
	}
}

// sendToBackend delivers one already-converted frame to the backend session.
func (s *Session) sendToBackend(ctx context.Context, frame audio.AudioFrame) {
	if err := s.be.SendAudio(frame.Data, backendInputMIME); err != nil {
		s.logger.Warn("backend send failed", "err", err)
		return
	}
	if s.metrics != nil {
		s.metrics.RecordFrame(ctx, "inbound")
	}
}

// forwardOutbound transcodes a backend audio chunk to telephony μ-law and
// sends it as a media frame tagged with the stream identifier.
func (s *Session) forwardOutbound(ctx context.Context, data []byte, mimeType string) {
	if s.streamSID == "" {
		// No start event yet: there is no destination to address.
		s.logger.Debug("dropping backend audio, no stream id yet", "bytes", len(data))
		if s.metrics != nil {
			s.metrics.RecordDrop(ctx, "no_stream_id")
		}
		return
	}

	rate := mimeRate(mimeType, backendRateHz)
	samples := audio.BytesToInt16(data)
	if rate != backendRateHz {
		samples = audio.DownsampleRatio(samples, rate, backendRateHz)
	}
	samples = audio.Downsample2x(samples)

	frame := audio.AudioFrame{
		Data:       audio.EncodeMuLaw(samples),
		Encoding:   audio.MuLaw8,
		SampleRate: telephonyRateHz,
	}
	if err := s.tel.SendMedia(s.streamSID, frame); err != nil {
		s.logger.Warn("telephony send failed", "err", err)
		return
	}
	if s.metrics != nil {
		s.metrics.RecordFrame(ctx, "outbound")
	}
}

// close moves the session through Draining to Closed and releases both
// endpoint handles exactly once. Calling close on a closed session is a
// no-op.
func (s *Session) close() {
	if s.state == StateClosed {
		return
	}
	s.state = StateDraining

	if s.be != nil && !s.beClosed {
		if err := s.be.Close(); err != nil {
			s.logger.Debug("backend close", "err", err)
		}
		s.beClosed = true
	}
	if !s.telClosed {
		if err := s.tel.Close(); err != nil {
			s.logger.Debug("telephony close", "err", err)
		}
		s.telClosed = true
	}

	s.state = StateClosed
	s.logger.Info("session closed", "duration", time.Since(s.started))
}

// toBackendFrame converts a telephony frame to the backend's 16 kHz PCM16
// input format.
func toBackendFrame(frame audio.AudioFrame) (audio.AudioFrame, error) {
	var samples []int16
	switch frame.Encoding {
	case audio.MuLaw8:
		samples = audio.DecodeMuLaw(frame.Data)
	case audio.Pcm16:
		samples = audio.BytesToInt16(frame.Data)
	default:
		return audio.AudioFrame{}, fmt.Errorf("relay: unsupported inbound encoding %q", frame.Encoding)
	}

	switch frame.SampleRate {
	case backendRateHz:
		// Already at the backend rate.
	case backendRateHz / 2:
		samples = audio.Upsample2x(samples)
	default:
		return audio.AudioFrame{}, fmt.Errorf("relay: unsupported inbound rate %d", frame.SampleRate)
	}

	return audio.AudioFrame{
		Data:       audio.Int16ToBytes(samples),
		Encoding:   audio.Pcm16,
		SampleRate: backendRateHz,
	}, nil
}

// mimeRate extracts the sample rate from a MIME type of the form
// "audio/pcm;rate=24000". Returns def when no parseable rate parameter is
// present.
func mimeRate(mimeType string, def int) int {
	for part := range strings.SplitSeq(mimeType, ";") {
		part = strings.TrimSpace(part)
		if val, ok := strings.CutPrefix(part, "rate="); ok {
			if rate, err := strconv.Atoi(val); err == nil && rate > 0 {
				return rate
			}
		}
	}
	return def
}
