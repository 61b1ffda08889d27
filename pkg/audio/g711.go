package audio

// ITU-T G.711 μ-law codec. Both directions are pure and total: every byte
// decodes to a valid int16 and every int16 encodes to a byte, so the codec
// has no error path. The bit layout must match G.711 exactly — the telephony
// side interoperates with an external protocol that expects standard framing.

const (
	// muLawBias is the G.711 μ-law bias added before segment search.
	muLawBias = 0x84

	// muLawClip is the largest magnitude representable after biasing.
	muLawClip = 32635
)

// DecodeMuLawSample converts one μ-law byte to a linear 16-bit sample.
func DecodeMuLawSample(b byte) int16 {
	b = ^b
	sign := b & 0x80
	exponent := (b >> 4) & 0x07
	mantissa := b & 0x0F

	magnitude := (int32(mantissa)<<3 + muLawBias) << exponent
	magnitude -= muLawBias

	if sign != 0 {
		magnitude = -magnitude
	}
	if magnitude > 32767 {
		magnitude = 32767
	} else if magnitude < -32768 {
		magnitude = -32768
	}
	return int16(magnitude)
}

// EncodeMuLawSample converts one linear 16-bit sample to a μ-law byte.
// The conversion is lossy: μ-law carries roughly 12 bits of precision.
func EncodeMuLawSample(s int16) byte {
	var sign byte
	magnitude := int32(s)
	if magnitude < 0 {
		sign = 0x80
		magnitude = -magnitude
	}
	if magnitude > muLawClip {
		magnitude = muLawClip
	}
	magnitude += muLawBias

	// Find the smallest exponent such that the biased magnitude fits an
	// 11-bit window.
	exponent := byte(7)
	for mask := int32(0x4000); exponent > 0 && magnitude&mask == 0; mask >>= 1 {
		exponent--
	}

	mantissa := byte(magnitude>>(exponent+3)) & 0x0F
	return ^(sign | exponent<<4 | mantissa)
}

// DecodeMuLaw converts a μ-law byte sequence to linear PCM samples.
func DecodeMuLaw(data []byte) []int16 {
	out := make([]int16, len(data))
	for i, b := range data {
		out[i] = DecodeMuLawSample(b)
	}
	return out
}

// EncodeMuLaw converts linear PCM samples to a μ-law byte sequence.
func EncodeMuLaw(samples []int16) []byte {
	out := make([]byte, len(samples))
	for i, s := range samples {
		out[i] = EncodeMuLawSample(s)
	}
	return out
}
