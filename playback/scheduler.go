// Package playback schedules response audio for gapless output.
//
// A Scheduler places each decoded fragment on the output timeline at
// max(clock, cursor), so consecutive segments abut exactly regardless of
// network jitter. Interrupt discards everything scheduled and rewinds the
// cursor to the clock. Timeline is the default Clock and Sink: a mixer
// the speaker device pulls PCM16 from.
package playback

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/JECH20102004/dayugame/audio"
	"github.com/JECH20102004/dayugame/logger"
	pkgerrors "github.com/JECH20102004/dayugame/pkg/errors"
	"github.com/JECH20102004/dayugame/types"
)

// DefaultSampleRate is assumed for fragments whose MIME type carries no rate.
const DefaultSampleRate = audio.SampleRate24kHz

// ErrEmptyFragment is returned for fragments with no audio data.
var ErrEmptyFragment = errors.New("empty audio fragment")

// Clock reports the output position: how much audio has been rendered.
type Clock interface {
	Now() time.Duration
}

// Sink renders scheduled segments. Play returns when seg will actually
// finish; the next segment is placed there. The sink calls ended exactly
// once when seg has been fully rendered, unless Stop discards it first.
// ended must not be called from inside Play or while the sink holds its
// own locks.
type Sink interface {
	Play(seg *Segment, ended func()) time.Duration
	Stop()
}

// Segment is a decoded fragment with its place on the output timeline.
type Segment struct {
	Seq        int64
	Samples    []float32
	SampleRate int
	Start      time.Duration
	Duration   time.Duration

	id uint64
}

// End returns when the segment stops playing.
func (s *Segment) End() time.Duration {
	return s.Start + s.Duration
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithDefaultSampleRate sets the rate used when a fragment's MIME type has none.
func WithDefaultSampleRate(rate int) Option {
	return func(s *Scheduler) {
		if rate > 0 {
			s.defaultRate = rate
		}
	}
}

// WithOnSpeaking registers fn for speaking transitions.
func WithOnSpeaking(fn func(speaking bool)) Option {
	return func(s *Scheduler) { s.onSpeaking = fn }
}

// WithOnScheduled registers fn for every scheduled segment.
func WithOnScheduled(fn func(seg *Segment)) Option {
	return func(s *Scheduler) { s.onScheduled = fn }
}

// Scheduler places audio fragments on the output timeline without gaps or
// overlaps. It is safe for concurrent use.
type Scheduler struct {
	clock       Clock
	sink        Sink
	defaultRate int
	onSpeaking  func(bool)
	onScheduled func(*Segment)

	// notifyMu serializes speaking callbacks; notified is the last value reported.
	notifyMu sync.Mutex
	notified bool

	mu       sync.Mutex
	cursor   time.Duration
	active   map[uint64]*Segment
	nextID   uint64
	gen      uint64
	speaking bool
}

// NewScheduler creates a scheduler rendering to sink against clock.
func NewScheduler(clock Clock, sink Sink, opts ...Option) *Scheduler {
	s := &Scheduler{
		clock:       clock,
		sink:        sink,
		defaultRate: DefaultSampleRate,
		active:      make(map[uint64]*Segment),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Enqueue decodes frag and schedules it at max(clock, cursor). A fragment
// that cannot be decoded is dropped with an ErrPlaybackDecode error and
// leaves the schedule untouched.
func (s *Scheduler) Enqueue(frag types.AudioFragment) (*Segment, error) {
	samples, rate, err := s.decode(frag)
	if err != nil {
		logger.Debug("Dropping undecodable audio fragment", "seq", frag.Seq, "error", err)
		return nil, pkgerrors.Decode("Enqueue", err).WithDetails(map[string]any{"seq": frag.Seq})
	}

	seg := &Segment{
		Seq:        frag.Seq,
		Samples:    samples,
		SampleRate: rate,
		Duration:   time.Duration(len(samples)) * time.Second / time.Duration(rate),
	}

	s.mu.Lock()
	s.nextID++
	seg.id = s.nextID
	seg.Start = max(s.clock.Now(), s.cursor)
	s.active[seg.id] = seg
	gen := s.gen
	changed := !s.speaking
	s.speaking = true
	s.cursor = s.sink.Play(seg, func() { s.ended(gen, seg) })
	s.mu.Unlock()

	if changed {
		s.notifySpeaking()
	}
	if s.onScheduled != nil {
		s.onScheduled(seg)
	}
	return seg, nil
}

// Interrupt stops every active or queued segment and rewinds the cursor to
// the current clock.
func (s *Scheduler) Interrupt() {
	s.mu.Lock()
	s.sink.Stop()
	s.gen++
	s.active = make(map[uint64]*Segment)
	s.cursor = s.clock.Now()
	changed := s.speaking
	s.speaking = false
	s.mu.Unlock()

	if changed {
		s.notifySpeaking()
	}
}

// Speaking reports whether any segment is active.
func (s *Scheduler) Speaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speaking
}

// Cursor returns where the sink placed the end of the last segment.
func (s *Scheduler) Cursor() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// Pending returns the number of active segments.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

func (s *Scheduler) ended(gen uint64, seg *Segment) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	delete(s.active, seg.id)
	changed := s.speaking && len(s.active) == 0
	if changed {
		s.speaking = false
	}
	s.mu.Unlock()

	if changed {
		s.notifySpeaking()
	}
}

// notifySpeaking reports the settled speaking value if it differs from the
// last one reported, so listeners only ever see alternating transitions.
func (s *Scheduler) notifySpeaking() {
	if s.onSpeaking == nil {
		return
	}
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	speaking := s.Speaking()
	if speaking == s.notified {
		return
	}
	s.notified = speaking
	s.onSpeaking(speaking)
}

func (s *Scheduler) decode(frag types.AudioFragment) ([]float32, int, error) {
	if len(frag.Data) == 0 {
		return nil, 0, ErrEmptyFragment
	}
	rate := s.defaultRate
	if frag.MIMEType != "" {
		r, err := audio.ParsePCMMimeType(frag.MIMEType, s.defaultRate)
		if err != nil {
			return nil, 0, err
		}
		rate = r
	}
	samples, err := audio.PCM16ToFloat32(frag.Data)
	if err != nil {
		return nil, 0, fmt.Errorf("fragment %d: %w", frag.Seq, err)
	}
	return samples, rate, nil
}
