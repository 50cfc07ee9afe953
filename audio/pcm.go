package audio

import (
	"encoding/binary"
	"fmt"
	"mime"
	"strconv"
	"strings"
	"time"
)

const bytesPerSample = 2

// Float32ToPCM16 quantizes samples in [-1, 1] to little-endian PCM16.
// Out-of-range samples are clipped.
func Float32ToPCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*bytesPerSample)
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		v := int16(s * 32767)
		binary.LittleEndian.PutUint16(out[i*bytesPerSample:], uint16(v)) //nolint:gosec // Safe PCM16 conversion
	}
	return out
}

// PCM16ToFloat32 decodes little-endian PCM16 into samples in [-1, 1).
func PCM16ToFloat32(pcm []byte) ([]float32, error) {
	if len(pcm)%bytesPerSample != 0 {
		return nil, fmt.Errorf("input length %d is not a multiple of %d bytes per sample", len(pcm), bytesPerSample)
	}
	out := make([]float32, len(pcm)/bytesPerSample)
	for i := range out {
		v := int16(binary.LittleEndian.Uint16(pcm[i*bytesPerSample:])) //nolint:gosec // Safe PCM16 conversion
		out[i] = float32(v) / 32768
	}
	return out, nil
}

// Int16ToBytes encodes device samples as little-endian PCM16.
func Int16ToBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*bytesPerSample)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*bytesPerSample:], uint16(s)) //nolint:gosec // Safe PCM16 conversion
	}
	return out
}

// Int16ToFloat32 converts device samples to float32 in [-1, 1).
func Int16ToFloat32(samples []int16) []float32 {
	out := make([]float32, len(samples))
	for i, s := range samples {
		out[i] = float32(s) / 32768
	}
	return out
}

// Float32ToInt16 converts samples in [-1, 1] to device samples, clipping.
func Float32ToInt16(samples []float32, out []int16) {
	for i := range out {
		if i >= len(samples) {
			out[i] = 0
			continue
		}
		s := samples[i]
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		out[i] = int16(s * 32767)
	}
}

// PCMDuration returns the playing time of a mono PCM16 buffer.
func PCMDuration(numBytes, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	samples := numBytes / bytesPerSample
	return time.Duration(samples) * time.Second / time.Duration(sampleRate)
}

// PCMMimeType formats the MIME type for mono PCM16 at rate.
func PCMMimeType(rate int) string {
	return "audio/pcm;rate=" + strconv.Itoa(rate)
}

// ParsePCMMimeType extracts the sample rate from an "audio/pcm;rate=N"
// MIME type. A missing rate yields fallback.
func ParsePCMMimeType(mimeType string, fallback int) (int, error) {
	mediaType, params, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return 0, fmt.Errorf("invalid audio mime type %q: %w", mimeType, err)
	}
	if !strings.HasPrefix(mediaType, "audio/pcm") && mediaType != "audio/l16" {
		return 0, fmt.Errorf("unsupported audio mime type %q", mediaType)
	}
	raw, ok := params["rate"]
	if !ok {
		return fallback, nil
	}
	rate, err := strconv.Atoi(raw)
	if err != nil || rate <= 0 {
		return 0, fmt.Errorf("invalid sample rate %q in %q", raw, mimeType)
	}
	return rate, nil
}
