package audio

import "encoding/binary"

// Sample-rate conversion for linear PCM. The algorithms here are intentionally
// simple — linear interpolation up, unfiltered decimation down — which is
// adequate for voice-grade telephony audio. Callers must decode μ-law to
// linear PCM before resampling and re-encode afterwards.

// Upsample2x doubles the sample rate by inserting the rounded midpoint
// between each adjacent pair of samples. The final output pair duplicates the
// last input sample, so len(out) == 2*len(in). An empty input yields an empty
// output; a single sample is duplicated.
func Upsample2x(samples []int16) []int16 {
	out := make([]int16, 0, len(samples)*2)
	for i, s := range samples {
		out = append(out, s)
		if i+1 < len(samples) {
			// Arithmetic shift floors the division, which matches
			// round-half-up of the real-valued midpoint for negatives too.
			mid := (int32(s) + int32(samples[i+1]) + 1) >> 1
			out = append(out, int16(mid))
		} else {
			out = append(out, s)
		}
	}
	return out
}

// Downsample2x halves the sample rate by keeping every even-indexed sample.
// No anti-alias filtering is applied. len(out) == ceil(len(in)/2).
func Downsample2x(samples []int16) []int16 {
	out := make([]int16, 0, (len(samples)+1)/2)
	for i := 0; i < len(samples); i += 2 {
		out = append(out, samples[i])
	}
	return out
}

// DownsampleRatio decimates samples from fromHz to toHz by nearest-neighbor
// selection: output index i takes input index floor(i*fromHz/toHz), and the
// output length is floor(len(in)*toHz/fromHz). When the rates are equal the
// input is returned unchanged. Intended for fromHz > toHz; aliasing-prone by
// construction.
func DownsampleRatio(samples []int16, fromHz, toHz int) []int16 {
	if fromHz == toHz || fromHz <= 0 || toHz <= 0 {
		return samples
	}
	ratio := float64(fromHz) / float64(toHz)
	n := int(float64(len(samples)) / ratio)
	out := make([]int16, n)
	for i := range out {
		out[i] = samples[int(float64(i)*ratio)]
	}
	return out
}

// BytesToInt16 reinterprets little-endian PCM16 bytes as samples. A trailing
// odd byte is truncated.
func BytesToInt16(data []byte) []int16 {
	out := make([]int16, len(data)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return out
}

// Int16ToBytes serialises samples as little-endian PCM16 bytes.
func Int16ToBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}
