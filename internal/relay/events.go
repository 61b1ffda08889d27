package relay

import (
	"context"

	"github.com/uday-incquet/AiVoice/pkg/audio"
)

// EventKind tags the variants of Event. Every transition of the session state
// machine is driven by one of these kinds; unknown input on the wire never
// reaches the relay as an event.
type EventKind int

const (
	// TelephonyStart carries the stream identifier assigned by the
	// telephony side. StreamSID is set.
	TelephonyStart EventKind = iota

	// TelephonyMedia carries one inbound audio frame. Frame is set.
	TelephonyMedia

	// TelephonyStop signals the logical end of the media stream.
	TelephonyStop

	// TelephonyClosed signals that the telephony connection closed or
	// errored. Err may be set.
	TelephonyClosed

	// BackendReady signals that the backend session completed setup and can
	// accept streamed audio.
	BackendReady

	// BackendAudio carries synthesised audio from the backend. Audio and
	// MIMEType are set; the MIME type may declare the sample rate as
	// "audio/pcm;rate=<Hz>".
	BackendAudio

	// BackendClosed signals that the backend session ended. Err may be set.
	BackendClosed

	// BackendError signals a backend failure. Err is set.
	BackendError
)

func (k EventKind) String() string {
	switch k {
	case TelephonyStart:
		return "telephony-start"
	case TelephonyMedia:
		return "telephony-media"
	case TelephonyStop:
		return "telephony-stop"
	case TelephonyClosed:
		return "telephony-closed"
	case BackendReady:
		return "backend-ready"
	case BackendAudio:
		return "backend-audio"
	case BackendClosed:
		return "backend-closed"
	case BackendError:
		return "backend-error"
	}
	return "unknown"
}

// Event is the tagged variant consumed by the session state machine. Exactly
// the fields implied by Kind are populated.
type Event struct {
	Kind      EventKind
	StreamSID string
	Frame     audio.AudioFrame
	Audio     []byte
	MIMEType  string
	Err       error
}

// TelephonyEndpoint is the capability the relay consumes for the telephony
// leg of a call. The concrete transport behind it is opaque to the session.
type TelephonyEndpoint interface {
	// Events returns the ordered stream of inbound telephony events. The
	// channel is closed after a TelephonyClosed event (or on transport
	// teardown).
	Events() <-chan Event

	// SendMedia delivers an outbound audio frame addressed to streamSID.
	SendMedia(streamSID string, frame audio.AudioFrame) error

	// Close releases the transport. Safe to call more than once.
	Close() error
}

// BackendSession is the capability the relay consumes for an established
// generative-voice session.
type BackendSession interface {
	// Events returns the ordered stream of backend events. The channel is
	// closed after a BackendClosed event (or on transport teardown).
	Events() <-chan Event

	// SendAudio delivers an audio chunk with its MIME type to the backend.
	SendAudio(data []byte, mimeType string) error

	// Close releases the session. Safe to call more than once.
	Close() error
}

// BackendConnector establishes backend sessions. Implementations talk to the
// concrete voice service; the relay only sees the resulting BackendSession.
type BackendConnector interface {
	Connect(ctx context.Context, cfg BackendConfig) (BackendSession, error)
}

// BackendConfig is the session setup passed through to the backend.
type BackendConfig struct {
	// Modalities lists the desired response modalities (e.g. "audio").
	Modalities []string

	// Voice selects the backend voice for synthesised speech.
	Voice string

	// SystemPreamble is an optional system-level prompt for the session.
	SystemPreamble string
}
