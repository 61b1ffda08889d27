package audio_test

import (
	"testing"

	"github.com/uday-incquet/AiVoice/pkg/audio"
)

func TestDecodeMuLawSample_KnownValues(t *testing.T) {
	tests := []struct {
		in   byte
		want int16
	}{
		{0xFF, 0},      // positive zero
		{0x7F, 0},      // negative zero decodes to 0 after bias removal
		{0xFE, 8},      // smallest positive step
		{0x80, 32124},  // largest positive magnitude
		{0x00, -32124}, // largest negative magnitude
	}
	for _, tt := range tests {
		if got := audio.DecodeMuLawSample(tt.in); got != tt.want {
			t.Errorf("DecodeMuLawSample(%#02x) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestEncodeMuLawSample_KnownValues(t *testing.T) {
	tests := []struct {
		in   int16
		want byte
	}{
		{0, 0xFF},
		{32124, 0x80},
		{-32124, 0x00},
		{32767, 0x80},  // clipped to max segment
		{-32768, 0x00}, // clipped to max segment
	}
	for _, tt := range tests {
		if got := audio.EncodeMuLawSample(tt.in); got != tt.want {
			t.Errorf("EncodeMuLawSample(%d) = %#02x, want %#02x", tt.in, got, tt.want)
		}
	}
}

// TestMuLawRoundTrip_AllBytes verifies decode is total and that
// encode(decode(b)) is the identity for every byte value except the two
// zero representations, which collapse onto the positive zero code.
func TestMuLawRoundTrip_AllBytes(t *testing.T) {
	for b := 0; b < 256; b++ {
		in := byte(b)
		s := audio.DecodeMuLawSample(in)
		out := audio.EncodeMuLawSample(s)
		if in == 0x7F {
			// Negative zero decodes to 0, which re-encodes as 0xFF.
			if out != 0xFF {
				t.Errorf("encode(decode(0x7f)) = %#02x, want 0xff", out)
			}
			continue
		}
		if out != in {
			t.Errorf("encode(decode(%#02x)) = %#02x", in, out)
		}
	}
}

// TestMuLawRoundTrip_ErrorBound verifies the lossy round trip: the
// reconstruction error stays within the μ-law quantization step for the
// sample's segment, which grows monotonically with magnitude.
func TestMuLawRoundTrip_ErrorBound(t *testing.T) {
	bounds := []struct {
		upTo int32
		step int
	}{
		{0x00FF, 8},
		{0x01FF, 16},
		{0x03FF, 32},
		{0x07FF, 64},
		{0x0FFF, 128},
		{0x1FFF, 256},
		{0x3FFF, 512},
		{0x7FFF, 1024},
	}
	stepFor := func(mag int32) int32 {
		for _, b := range bounds {
			if mag <= b.upTo {
				return int32(b.step)
			}
		}
		return 1024
	}

	for x := -32768; x <= 32767; x += 7 {
		in := int16(x)
		got := audio.DecodeMuLawSample(audio.EncodeMuLawSample(in))
		diff := int32(got) - int32(in)
		if diff < 0 {
			diff = -diff
		}
		mag := int32(in)
		if mag < 0 {
			mag = -mag
		}
		if bound := stepFor(mag); diff > bound {
			t.Errorf("round trip of %d: got %d (error %d > step %d)", in, got, diff, bound)
		}
	}
}

func TestEncodeMuLawSample_Deterministic(t *testing.T) {
	for _, s := range []int16{-32768, -1, 0, 1, 500, 32767} {
		a := audio.EncodeMuLawSample(s)
		b := audio.EncodeMuLawSample(s)
		if a != b {
			t.Fatalf("EncodeMuLawSample(%d) not deterministic: %#02x vs %#02x", s, a, b)
		}
	}
}

func TestDecodeMuLaw_Buffer(t *testing.T) {
	got := audio.DecodeMuLaw([]byte{0x00, 0xFF})
	want := []int16{-32124, 0}
	if len(got) != len(want) {
		t.Fatalf("length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: got %d, want %d", i, got[i], want[i])
		}
	}
}

func TestEncodeMuLaw_EmptyBuffer(t *testing.T) {
	if got := audio.EncodeMuLaw(nil); len(got) != 0 {
		t.Errorf("EncodeMuLaw(nil) returned %d bytes", len(got))
	}
}
