package playback

import (
	"sync"
	"time"

	"github.com/JECH20102004/dayugame/audio"
)

// Timeline mixes scheduled segments into a PCM16 mono stream at a fixed
// output rate. Its clock is the number of samples rendered so far, so it
// only advances while the speaker pulls audio.
type Timeline struct {
	rate int

	mu       sync.Mutex
	position int64 // samples rendered
	queued   []*placed
	meter    audio.LevelMeter
}

type placed struct {
	start   int64
	samples []float32
	ended   func()
}

func (p *placed) end() int64 {
	return p.start + int64(len(p.samples))
}

// NewTimeline creates a timeline rendering at rate samples per second.
func NewTimeline(rate int) *Timeline {
	if rate <= 0 {
		rate = DefaultSampleRate
	}
	return &Timeline{rate: rate}
}

// SampleRate returns the output rate.
func (t *Timeline) SampleRate() int {
	return t.rate
}

// Now returns the rendered duration.
func (t *Timeline) Now() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.durationOf(t.position)
}

// Play places seg at its scheduled start, resampled to the output rate,
// and returns its end. A segment whose start has already been rendered
// starts immediately. Positions are whole output samples, so a segment
// queued at the returned end abuts this one exactly.
func (t *Timeline) Play(seg *Segment, ended func()) time.Duration {
	samples := seg.Samples
	if seg.SampleRate != t.rate {
		samples = audio.ResampleFloat32(samples, seg.SampleRate, t.rate)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	p := &placed{start: max(t.samplesIn(seg.Start), t.position), samples: samples, ended: ended}
	t.queued = append(t.queued, p)
	return t.durationOf(p.end())
}

// Stop discards every queued segment without calling their ended callbacks.
func (t *Timeline) Stop() {
	t.mu.Lock()
	t.queued = nil
	t.mu.Unlock()
}

// Level returns the RMS level of recently rendered audio, 0..100.
func (t *Timeline) Level() float64 {
	return t.meter.Level()
}

// Read renders the next len(p)/2 samples as little-endian PCM16. It never
// blocks and fills silence where nothing is scheduled.
func (t *Timeline) Read(p []byte) (int, error) {
	n := len(p) / 2
	if n == 0 {
		return 0, nil
	}
	mixed := t.Render(n)
	copy(p, audio.Float32ToPCM16(mixed))
	return n * 2, nil
}

// Render mixes the next n samples and advances the clock by n. Segments
// that finish inside the window have their ended callbacks run before
// Render returns.
func (t *Timeline) Render(n int) []float32 {
	out := make([]float32, n)
	var finished []func()

	t.mu.Lock()
	from, to := t.position, t.position+int64(n)
	keep := t.queued[:0]
	audible := false
	for _, q := range t.queued {
		lo, hi := max(q.start, from), min(q.end(), to)
		for i := lo; i < hi; i++ {
			out[i-from] += q.samples[i-q.start]
			audible = true
		}
		if q.end() <= to {
			if q.ended != nil {
				finished = append(finished, q.ended)
			}
			continue
		}
		keep = append(keep, q)
	}
	for i := len(keep); i < len(t.queued); i++ {
		t.queued[i] = nil
	}
	t.queued = keep
	t.position = to
	t.mu.Unlock()

	if audible {
		t.meter.Observe(out)
	} else {
		t.meter.Decay()
	}
	for _, fn := range finished {
		fn()
	}
	return out
}

// RenderInt16 renders into a device buffer.
func (t *Timeline) RenderInt16(out []int16) {
	audio.Float32ToInt16(t.Render(len(out)), out)
}

// samplesIn rounds up, so samplesIn(durationOf(n)) == n.
func (t *Timeline) samplesIn(d time.Duration) int64 {
	return (int64(d)*int64(t.rate) + int64(time.Second) - 1) / int64(time.Second)
}

func (t *Timeline) durationOf(samples int64) time.Duration {
	return time.Duration(samples * int64(time.Second) / int64(t.rate))
}

var (
	_ Clock = (*Timeline)(nil)
	_ Sink  = (*Timeline)(nil)
)
