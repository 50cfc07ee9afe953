package audio

import (
	"math"
	"sync"
	"time"
)

// Gain limits for microphone input.
const (
	MinGain = 0.0
	MaxGain = 3.0
)

// ClampGain limits g to [MinGain, MaxGain].
func ClampGain(g float64) float64 {
	if math.IsNaN(g) {
		return MinGain
	}
	return math.Max(MinGain, math.Min(MaxGain, g))
}

// GainRamp applies a gain that approaches its target exponentially with
// time constant tau, one step per sample, so target changes never jump.
// SetTarget and Process may be called from different goroutines.
type GainRamp struct {
	mu      sync.Mutex
	tau     time.Duration
	current float64
	target  float64
}

// NewGainRamp creates a ramp resting at initial.
func NewGainRamp(tau time.Duration, initial float64) *GainRamp {
	g := ClampGain(initial)
	return &GainRamp{tau: tau, current: g, target: g}
}

// SetTarget sets the gain the ramp moves toward.
func (r *GainRamp) SetTarget(target float64) {
	r.mu.Lock()
	r.target = ClampGain(target)
	r.mu.Unlock()
}

// Target returns the gain the ramp is moving toward.
func (r *GainRamp) Target() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.target
}

// Current returns the instantaneous gain.
func (r *GainRamp) Current() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Process scales samples in place, advancing the ramp by one step per sample.
func (r *GainRamp) Process(samples []float32, sampleRate int) {
	if len(samples) == 0 || sampleRate <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	alpha := 1.0
	if r.tau > 0 {
		alpha = 1 - math.Exp(-1/(r.tau.Seconds()*float64(sampleRate)))
	}
	g, target := r.current, r.target
	for i, s := range samples {
		g += (target - g) * alpha
		samples[i] = s * float32(g)
	}
	// Snap once the residual is inaudible so a muted stream is exactly zero.
	if math.Abs(target-g) < 1e-4 {
		g = target
	}
	r.current = g
}
