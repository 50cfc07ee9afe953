package audio

import (
	"math"
	"sync"
)

// levelDecay is how much the meter falls per tick when nothing is playing.
const levelDecay = 5.0

// RMSLevel returns the RMS of samples scaled to 0..100.
func RMSLevel(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Min(100, math.Sqrt(sum/float64(len(samples)))*100)
}

// LevelMeter tracks the output level for the speaking indicator. Observe
// raises it to the level of rendered audio; Decay lowers it on idle ticks.
type LevelMeter struct {
	mu    sync.Mutex
	level float64
}

// Observe records rendered samples.
func (m *LevelMeter) Observe(samples []float32) {
	l := RMSLevel(samples)
	m.mu.Lock()
	if l > m.level {
		m.level = l
	} else {
		m.level = math.Max(l, m.level-levelDecay)
	}
	m.mu.Unlock()
}

// Decay lowers the level by one step, stopping at zero.
func (m *LevelMeter) Decay() {
	m.mu.Lock()
	m.level = math.Max(0, m.level-levelDecay)
	m.mu.Unlock()
}

// Level returns the current level in 0..100.
func (m *LevelMeter) Level() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.level
}
