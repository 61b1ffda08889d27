package audio

import "fmt"

// Encoding identifies the sample representation of an AudioFrame.
type Encoding string

const (
	// MuLaw8 is 8-bit ITU-T G.711 μ-law, one byte per sample.
	MuLaw8 Encoding = "mulaw8"

	// Pcm16 is 16-bit signed linear PCM, little-endian, two bytes per sample.
	Pcm16 Encoding = "pcm16"
)

// BytesPerSample returns the wire width of one sample for this encoding.
func (e Encoding) BytesPerSample() int {
	if e == Pcm16 {
		return 2
	}
	return 1
}

// AudioFrame is a contiguous run of audio samples flowing through the relay.
// Frames are immutable once created: every conversion stage returns a new
// frame rather than mutating Data in place.
type AudioFrame struct {
	// Data holds the raw samples: 1 byte per sample for MuLaw8,
	// 2 bytes per sample (little-endian) for Pcm16.
	Data []byte

	// Encoding describes how Data is to be interpreted.
	Encoding Encoding

	// SampleRate in Hz (8000 for the telephony leg, 16000 for the backend
	// input leg; the backend may emit other rates such as 24000).
	SampleRate int
}

// Valid reports whether the frame's byte length is an integer number of
// samples for its encoding.
func (f AudioFrame) Valid() bool {
	return len(f.Data)%f.Encoding.BytesPerSample() == 0
}

// Samples returns the number of samples in the frame.
func (f AudioFrame) Samples() int {
	return len(f.Data) / f.Encoding.BytesPerSample()
}

func (f AudioFrame) String() string {
	return fmt.Sprintf("%s@%dHz[%d samples]", f.Encoding, f.SampleRate, f.Samples())
}
