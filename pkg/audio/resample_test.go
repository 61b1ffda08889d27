package audio_test

import (
	"testing"

	"github.com/uday-incquet/AiVoice/pkg/audio"
)

func int16Equal(t *testing.T, got, want []int16) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: got %d, want %d", i, got[i], want[i])
		}
	}
}

func TestUpsample2x(t *testing.T) {
	tests := []struct {
		name string
		in   []int16
		want []int16
	}{
		{"empty", nil, nil},
		{"single sample duplicated", []int16{100}, []int16{100, 100}},
		{"midpoints interpolated", []int16{0, 100, 200}, []int16{0, 50, 100, 150, 200, 200}},
		{"negative midpoint", []int16{-100, -200}, []int16{-100, -150, -200, -200}},
		{"odd sum rounds half up", []int16{0, 1}, []int16{0, 1, 1, 1}},
		{"negative odd sum", []int16{0, -1}, []int16{0, 0, -1, -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := audio.Upsample2x(tt.in)
			if len(got) != 2*len(tt.in) {
				t.Fatalf("length = %d, want %d", len(got), 2*len(tt.in))
			}
			int16Equal(t, got, tt.want)
		})
	}
}

func TestDownsample2x(t *testing.T) {
	tests := []struct {
		name string
		in   []int16
		want []int16
	}{
		{"empty", nil, nil},
		{"even length", []int16{1, 2, 3, 4}, []int16{1, 3}},
		{"odd length keeps last", []int16{1, 2, 3}, []int16{1, 3}},
		{"single", []int16{7}, []int16{7}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := audio.Downsample2x(tt.in)
			wantLen := (len(tt.in) + 1) / 2
			if len(got) != wantLen {
				t.Fatalf("length = %d, want %d", len(got), wantLen)
			}
			int16Equal(t, got, tt.want)
		})
	}
}

func TestDownsample2x_InvertsUpsampleLength(t *testing.T) {
	in := []int16{5, 10, 15, 20, 25}
	roundTrip := audio.Downsample2x(audio.Upsample2x(in))
	if len(roundTrip) != len(in) {
		t.Fatalf("length = %d, want %d", len(roundTrip), len(in))
	}
	// Even indices of the upsampled signal are the original samples.
	int16Equal(t, roundTrip, in)
}

func TestDownsampleRatio_SameRateIsIdentity(t *testing.T) {
	in := []int16{1, 2, 3}
	for _, rate := range []int{8000, 16000, 24000} {
		got := audio.DownsampleRatio(in, rate, rate)
		int16Equal(t, got, in)
	}
}

func TestDownsampleRatio_24kTo16k(t *testing.T) {
	// 120 samples at 24 kHz decimate to floor(120*16000/24000) = 80.
	in := make([]int16, 120)
	for i := range in {
		in[i] = int16(i)
	}
	got := audio.DownsampleRatio(in, 24000, 16000)
	if len(got) != 80 {
		t.Fatalf("length = %d, want 80", len(got))
	}
	// Output index i takes input index floor(i*1.5).
	for i, s := range got {
		want := int16(i * 3 / 2)
		if s != want {
			t.Errorf("sample %d: got %d, want %d", i, s, want)
		}
	}
}

func TestDownsampleRatio_Empty(t *testing.T) {
	if got := audio.DownsampleRatio(nil, 24000, 16000); len(got) != 0 {
		t.Errorf("got %d samples, want 0", len(got))
	}
}

func TestBytesToInt16_RoundTrip(t *testing.T) {
	in := []int16{-32768, -1, 0, 1, 32767}
	got := audio.BytesToInt16(audio.Int16ToBytes(in))
	int16Equal(t, got, in)
}

func TestBytesToInt16_OddTrailingByteTruncated(t *testing.T) {
	got := audio.BytesToInt16([]byte{0x01, 0x00, 0xFF})
	int16Equal(t, got, []int16{1})
}
