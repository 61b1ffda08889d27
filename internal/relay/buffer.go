package relay

import "github.com/uday-incquet/AiVoice/pkg/audio"

// SessionBuffer holds audio frames that arrive before the backend session is
// ready to accept them and releases them in arrival order. It exists solely
// to cover the pre-ready window: once the session is streaming, frames bypass
// the buffer entirely.
//
// The buffer is owned by a single session goroutine and is not safe for
// concurrent use.
type SessionBuffer struct {
	frames []audio.AudioFrame
	ready  bool
}

// NewSessionBuffer creates an empty buffer in the pre-ready state.
func NewSessionBuffer() *SessionBuffer {
	return &SessionBuffer{}
}

// Enqueue appends a frame to the buffer. Valid regardless of readiness.
func (b *SessionBuffer) Enqueue(frame audio.AudioFrame) {
	b.frames = append(b.frames, frame)
}

// MarkReady transitions the buffer to flowing. The caller must Drain once
// afterwards; subsequent frames are expected to be forwarded directly.
func (b *SessionBuffer) MarkReady() {
	b.ready = true
}

// Ready reports whether MarkReady has been called.
func (b *SessionBuffer) Ready() bool {
	return b.ready
}

// Drain returns all buffered frames in arrival order and empties the buffer.
// A second Drain after a single buffering period returns nil.
func (b *SessionBuffer) Drain() []audio.AudioFrame {
	frames := b.frames
	b.frames = nil
	return frames
}

// Len returns the number of buffered frames.
func (b *SessionBuffer) Len() int {
	return len(b.frames)
}
