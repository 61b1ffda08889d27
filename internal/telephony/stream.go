// Package telephony implements the phone-call side of the relay over Twilio
// Media Streams.
//
// Twilio delivers call audio over a WebSocket as JSON messages: a "start"
// message announcing the stream identifier and media format, "media" messages
// carrying base64-encoded μ-law audio, and a "stop" message when the call
// ends. Outbound audio is written back the same way, addressed by stream SID.
package telephony

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/uday-incquet/AiVoice/internal/relay"
	"github.com/uday-incquet/AiVoice/pkg/audio"
)

var _ relay.TelephonyEndpoint = (*Stream)(nil)

// upgrader accepts the Media Streams WebSocket. Twilio connects from its own
// infrastructure, so origin checking does not apply.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ── Wire messages ─────────────────────────────────────────────────────────────

type mediaStreamMessage struct {
	Event     string        `json:"event"`
	StreamSID string        `json:"streamSid,omitempty"`
	Start     *startMessage `json:"start,omitempty"`
	Media     *mediaPayload `json:"media,omitempty"`
	Stop      *stopMessage  `json:"stop,omitempty"`
	DTMF      *dtmfMessage  `json:"dtmf,omitempty"`
	Mark      *markMessage  `json:"mark,omitempty"`
}

type startMessage struct {
	StreamSID    string            `json:"streamSid"`
	AccountSID   string            `json:"accountSid"`
	CallSID      string            `json:"callSid"`
	Tracks       []string          `json:"tracks"`
	MediaFormat  mediaFormat       `json:"mediaFormat"`
	CustomParams map[string]string `json:"customParameters"`
}

type mediaFormat struct {
	Encoding   string `json:"encoding"`
	SampleRate int    `json:"sampleRate"`
	Channels   int    `json:"channels"`
}

type mediaPayload struct {
	Track     string `json:"track,omitempty"`
	Chunk     string `json:"chunk,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   string `json:"payload"` // base64-encoded audio
}

type stopMessage struct {
	AccountSID string `json:"accountSid"`
	CallSID    string `json:"callSid"`
}

type dtmfMessage struct {
	Digit string `json:"digit"`
}

type markMessage struct {
	Name string `json:"name"`
}

// ── Stream ────────────────────────────────────────────────────────────────────

// Stream implements relay.TelephonyEndpoint over one Twilio Media Streams
// WebSocket connection. A single read loop owns the events channel and closes
// it when the connection ends.
type Stream struct {
	conn   *websocket.Conn
	events chan relay.Event
	logger *slog.Logger

	// format is the inbound media format announced by the start message.
	// Twilio sends μ-law at 8 kHz unless the stream was configured otherwise.
	format struct {
		encoding   audio.Encoding
		sampleRate int
	}

	writeMu   sync.Mutex
	closed    bool
	done      chan struct{}
	closeOnce sync.Once

	callSID   string
	streamSID string
}

// StreamOption configures an accepted Stream.
type StreamOption func(*Stream)

// WithLogger sets the logger used for protocol-level diagnostics.
func WithLogger(logger *slog.Logger) StreamOption {
	return func(s *Stream) { s.logger = logger }
}

// Accept upgrades the HTTP request to a Media Streams WebSocket and starts
// reading. The caller consumes Stream.Events until it is closed.
func Accept(w http.ResponseWriter, r *http.Request, opts ...StreamOption) (*Stream, error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("telephony: upgrade: %w", err)
	}

	s := newStream(conn, opts...)
	go s.readLoop()
	return s, nil
}

func newStream(conn *websocket.Conn, opts ...StreamOption) *Stream {
	s := &Stream{
		conn:   conn,
		events: make(chan relay.Event, 64),
		done:   make(chan struct{}),
		logger: slog.Default(),
	}
	s.format.encoding = audio.MuLaw8
	s.format.sampleRate = 8000
	for _, o := range opts {
		o(s)
	}
	return s
}

// CallSID returns the Twilio call SID, available after the start message.
func (s *Stream) CallSID() string {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.callSID
}

// Events returns the ordered stream of inbound telephony events.
func (s *Stream) Events() <-chan relay.Event { return s.events }

// emit delivers an event unless the stream has been closed.
func (s *Stream) emit(ev relay.Event) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.done:
		return false
	}
}

// readLoop reads Media Streams messages until the connection ends. It owns
// the events channel and closes it on exit.
func (s *Stream) readLoop() {
	defer close(s.events)

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.done:
				return // locally closed, events already consumed
			default:
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.emit(relay.Event{Kind: relay.TelephonyClosed})
			} else {
				s.emit(relay.Event{Kind: relay.TelephonyClosed, Err: err})
			}
			return
		}

		var msg mediaStreamMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Debug("skipping malformed media stream message", "error", err)
			continue
		}

		if !s.handleMessage(&msg) {
			return
		}
	}
}

// handleMessage dispatches one wire message. Returns false when the loop
// should stop.
func (s *Stream) handleMessage(msg *mediaStreamMessage) bool {
	switch msg.Event {
	case "connected":
		s.logger.Debug("media stream connected")

	case "start":
		if msg.Start == nil {
			return true
		}
		s.writeMu.Lock()
		s.streamSID = msg.Start.StreamSID
		s.callSID = msg.Start.CallSID
		s.writeMu.Unlock()
		if enc := msg.Start.MediaFormat.Encoding; enc == "audio/x-l16" {
			s.format.encoding = audio.Pcm16
		}
		if rate := msg.Start.MediaFormat.SampleRate; rate > 0 {
			s.format.sampleRate = rate
		}
		s.logger.Info("media stream started",
			"stream_sid", msg.Start.StreamSID,
			"call_sid", msg.Start.CallSID,
			"encoding", msg.Start.MediaFormat.Encoding,
			"sample_rate", msg.Start.MediaFormat.SampleRate,
		)
		return s.emit(relay.Event{Kind: relay.TelephonyStart, StreamSID: msg.Start.StreamSID})

	case "media":
		if msg.Media == nil || msg.Media.Payload == "" {
			return true
		}
		data, err := base64.StdEncoding.DecodeString(msg.Media.Payload)
		if err != nil {
			s.logger.Debug("skipping media payload with invalid base64", "error", err)
			return true
		}
		return s.emit(relay.Event{
			Kind: relay.TelephonyMedia,
			Frame: audio.AudioFrame{
				Data:       data,
				Encoding:   s.format.encoding,
				SampleRate: s.format.sampleRate,
			},
		})

	case "stop":
		s.logger.Info("media stream stopped", "stream_sid", msg.StreamSID)
		s.emit(relay.Event{Kind: relay.TelephonyStop})
		return false

	case "dtmf":
		if msg.DTMF != nil {
			s.logger.Debug("dtmf digit received", "digit", msg.DTMF.Digit)
		}

	case "mark":
		// Playback checkpoint acknowledgement; nothing to relay.

	default:
		s.logger.Debug("ignoring unknown media stream event", "event", msg.Event)
	}
	return true
}

// SendMedia encodes one outbound audio frame as a Media Streams media
// message addressed to streamSID.
func (s *Stream) SendMedia(streamSID string, frame audio.AudioFrame) error {
	msg := mediaStreamMessage{
		Event:     "media",
		StreamSID: streamSID,
		Media: &mediaPayload{
			Payload: base64.StdEncoding.EncodeToString(frame.Data),
		},
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.closed {
		return fmt.Errorf("telephony: stream closed")
	}
	if err := s.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("telephony: write media: %w", err)
	}
	return nil
}

// SendMark sends a playback checkpoint; Twilio echoes it back as a mark
// event once the queued audio before it has played.
func (s *Stream) SendMark(streamSID, name string) error {
	msg := map[string]any{
		"event":     "mark",
		"streamSid": streamSID,
		"mark":      map[string]string{"name": name},
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.closed {
		return fmt.Errorf("telephony: stream closed")
	}
	return s.conn.WriteJSON(msg)
}

// Close tears down the WebSocket. Safe to call more than once.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		s.writeMu.Lock()
		s.closed = true
		s.writeMu.Unlock()
		close(s.done)
		_ = s.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		_ = s.conn.Close()
	})
	return nil
}
