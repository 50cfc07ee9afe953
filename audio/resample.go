package audio

import (
	"encoding/binary"
	"fmt"
)

// Session sample rates.
const (
	SampleRate16kHz = 16000 // live input
	SampleRate24kHz = 24000 // live output
)

// ResamplePCM16 converts mono little-endian PCM16 between sample rates
// using linear interpolation. Equal rates return a copy.
func ResamplePCM16(input []byte, fromRate, toRate int) ([]byte, error) {
	if fromRate <= 0 || toRate <= 0 {
		return nil, fmt.Errorf("invalid sample rates: from=%d, to=%d", fromRate, toRate)
	}
	if len(input)%bytesPerSample != 0 {
		return nil, fmt.Errorf("input length %d is not a multiple of %d bytes per sample", len(input), bytesPerSample)
	}
	if fromRate == toRate {
		result := make([]byte, len(input))
		copy(result, input)
		return result, nil
	}

	n := len(input) / bytesPerSample
	outN := int(float64(n) * float64(toRate) / float64(fromRate))
	if n == 0 || outN == 0 {
		return []byte{}, nil
	}

	sample := func(i int) float64 {
		return float64(int16(binary.LittleEndian.Uint16(input[i*bytesPerSample:]))) //nolint:gosec // Safe PCM16 conversion
	}

	output := make([]byte, outN*bytesPerSample)
	ratio := float64(fromRate) / float64(toRate)
	for i := 0; i < outN; i++ {
		pos := float64(i) * ratio
		idx := int(pos)
		var v float64
		if idx >= n-1 {
			v = sample(n - 1)
		} else {
			s0, s1 := sample(idx), sample(idx+1)
			v = s0 + (pos-float64(idx))*(s1-s0)
		}
		//nolint:gosec // Safe PCM16 conversion
		binary.LittleEndian.PutUint16(output[i*bytesPerSample:], uint16(int16(v)))
	}
	return output, nil
}

// ResampleFloat32 converts mono float samples between rates with linear
// interpolation. Equal rates return the input unchanged.
func ResampleFloat32(input []float32, fromRate, toRate int) []float32 {
	if fromRate == toRate || fromRate <= 0 || toRate <= 0 || len(input) == 0 {
		return input
	}
	outN := int(float64(len(input)) * float64(toRate) / float64(fromRate))
	out := make([]float32, outN)
	ratio := float64(fromRate) / float64(toRate)
	last := len(input) - 1
	for i := range out {
		pos := float64(i) * ratio
		idx := int(pos)
		if idx >= last {
			out[i] = input[last]
			continue
		}
		frac := float32(pos - float64(idx))
		out[i] = input[idx] + frac*(input[idx+1]-input[idx])
	}
	return out
}
