package media

import (
	"time"

	"github.com/JECH20102004/dayugame/audio"
	"github.com/JECH20102004/dayugame/types"
)

// AudioEncoder converts microphone buffers to PCM16 chunks at OutputRate,
// applying the ramped input gain first.
type AudioEncoder struct {
	OutputRate int
	ramp       *audio.GainRamp
}

// NewAudioEncoder creates an encoder whose gain starts at initialGain and
// ramps with time constant tau.
func NewAudioEncoder(outputRate int, tau time.Duration, initialGain float64) *AudioEncoder {
	if outputRate <= 0 {
		outputRate = audio.SampleRate16kHz
	}
	return &AudioEncoder{OutputRate: outputRate, ramp: audio.NewGainRamp(tau, initialGain)}
}

// SetGain sets the effective gain (0 when muted). The change is ramped.
func (e *AudioEncoder) SetGain(g float64) {
	e.ramp.SetTarget(g)
}

// Gain returns the instantaneous gain.
func (e *AudioEncoder) Gain() float64 {
	return e.ramp.Current()
}

// Encode scales samples captured at inputRate in place and returns them
// as one audio chunk at OutputRate.
func (e *AudioEncoder) Encode(samples []float32, inputRate int) types.MediaChunk {
	e.ramp.Process(samples, inputRate)
	resampled := audio.ResampleFloat32(samples, inputRate, e.OutputRate)
	return types.NewAudioChunk(audio.Float32ToPCM16(resampled), e.OutputRate)
}

// EffectiveGain is the capture gain implied by a mute flag and a
// configured gain.
func EffectiveGain(muted bool, gain float64) float64 {
	if muted {
		return 0
	}
	return audio.ClampGain(gain)
}
