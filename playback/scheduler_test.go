package playback

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JECH20102004/dayugame/audio"
	pkgerrors "github.com/JECH20102004/dayugame/pkg/errors"
	"github.com/JECH20102004/dayugame/types"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Duration
}

func (c *manualClock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Set(d time.Duration) {
	c.mu.Lock()
	c.now = d
	c.mu.Unlock()
}

type recordingSink struct {
	mu     sync.Mutex
	played []*Segment
	ended  []func()
	stops  int
	// late delays every placement, as a sink whose clock moved on does.
	late time.Duration
}

func (s *recordingSink) Play(seg *Segment, ended func()) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.played = append(s.played, seg)
	s.ended = append(s.ended, ended)
	return seg.End() + s.late
}

func (s *recordingSink) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops++
}

func (s *recordingSink) finish(i int) {
	s.mu.Lock()
	fn := s.ended[i]
	s.mu.Unlock()
	fn()
}

// fragment builds a 24 kHz fragment of the given duration.
func fragment(seq int64, d time.Duration) types.AudioFragment {
	n := int(d * audio.SampleRate24kHz / time.Second)
	return types.AudioFragment{
		Data:     make([]byte, n*2),
		MIMEType: "audio/pcm;rate=24000",
		Seq:      seq,
	}
}

func TestEnqueue_GaplessScenario(t *testing.T) {
	clock := &manualClock{}
	sink := &recordingSink{}
	s := NewScheduler(clock, sink)

	seg1, err := s.Enqueue(fragment(1, 200*time.Millisecond))
	require.NoError(t, err)
	clock.Set(50 * time.Millisecond)
	seg2, err := s.Enqueue(fragment(2, 150*time.Millisecond))
	require.NoError(t, err)

	assert.Equal(t, time.Duration(0), seg1.Start)
	assert.Equal(t, 200*time.Millisecond, seg1.End())
	assert.Equal(t, 200*time.Millisecond, seg2.Start)
	assert.Equal(t, 350*time.Millisecond, seg2.End())
	assert.Equal(t, 350*time.Millisecond, s.Cursor())
	assert.Len(t, sink.played, 2)
}

func TestEnqueue_StartsAtClockAfterIdle(t *testing.T) {
	clock := &manualClock{}
	s := NewScheduler(clock, &recordingSink{})

	_, err := s.Enqueue(fragment(1, 100*time.Millisecond))
	require.NoError(t, err)

	clock.Set(time.Second)
	seg, err := s.Enqueue(fragment(2, 100*time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, time.Second, seg.Start)
}

func TestEnqueue_StartTimesProperty(t *testing.T) {
	clock := &manualClock{}
	s := NewScheduler(clock, &recordingSink{})

	arrivals := []time.Duration{0, 10, 30, 400, 410, 900, 905}
	durations := []time.Duration{100, 50, 200, 20, 300, 10, 40}

	var prevEnd time.Duration
	for i := range arrivals {
		clock.Set(arrivals[i] * time.Millisecond)
		seg, err := s.Enqueue(fragment(int64(i+1), durations[i]*time.Millisecond))
		require.NoError(t, err)
		want := max(arrivals[i]*time.Millisecond, prevEnd)
		assert.Equal(t, want, seg.Start, "segment %d", i)
		prevEnd = seg.End()
	}
}

func TestEnqueue_CursorFollowsSinkPlacement(t *testing.T) {
	sink := &recordingSink{late: 7 * time.Millisecond}
	s := NewScheduler(&manualClock{}, sink)

	_, err := s.Enqueue(fragment(1, 100*time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, 107*time.Millisecond, s.Cursor())

	seg, err := s.Enqueue(fragment(2, 100*time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, 107*time.Millisecond, seg.Start)
}

func TestInterrupt_ResetsCursorToClock(t *testing.T) {
	clock := &manualClock{}
	sink := &recordingSink{}
	s := NewScheduler(clock, sink)

	for i := 1; i <= 3; i++ {
		_, err := s.Enqueue(fragment(int64(i), 500*time.Millisecond))
		require.NoError(t, err)
	}
	assert.Equal(t, 1500*time.Millisecond, s.Cursor())

	clock.Set(120 * time.Millisecond)
	s.Interrupt()
	assert.Equal(t, 1, sink.stops)
	assert.False(t, s.Speaking())
	assert.Equal(t, 0, s.Pending())
	assert.Equal(t, 120*time.Millisecond, s.Cursor())

	seg, err := s.Enqueue(fragment(4, 100*time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, 120*time.Millisecond, seg.Start)
}

func TestSpeaking_FollowsActiveSet(t *testing.T) {
	var mu sync.Mutex
	var transitions []bool
	sink := &recordingSink{}
	s := NewScheduler(&manualClock{}, sink, WithOnSpeaking(func(v bool) {
		mu.Lock()
		transitions = append(transitions, v)
		mu.Unlock()
	}))

	assert.False(t, s.Speaking())
	_, _ = s.Enqueue(fragment(1, 100*time.Millisecond))
	_, _ = s.Enqueue(fragment(2, 100*time.Millisecond))
	assert.True(t, s.Speaking())

	sink.finish(0)
	assert.True(t, s.Speaking(), "one segment still active")
	sink.finish(1)
	assert.False(t, s.Speaking())

	mu.Lock()
	assert.Equal(t, []bool{true, false}, transitions)
	mu.Unlock()
}

func TestInterrupt_IgnoresStaleEndedCallbacks(t *testing.T) {
	sink := &recordingSink{}
	s := NewScheduler(&manualClock{}, sink)

	_, _ = s.Enqueue(fragment(1, 100*time.Millisecond))
	s.Interrupt()
	_, _ = s.Enqueue(fragment(2, 100*time.Millisecond))

	sink.finish(0) // belongs to the interrupted generation
	assert.True(t, s.Speaking())
	assert.Equal(t, 1, s.Pending())
}

func TestEnqueue_DecodeErrorsLeaveScheduleIntact(t *testing.T) {
	clock := &manualClock{}
	s := NewScheduler(clock, &recordingSink{})

	_, err := s.Enqueue(fragment(1, 100*time.Millisecond))
	require.NoError(t, err)

	bad := []types.AudioFragment{
		{Seq: 2},
		{Seq: 3, Data: []byte{1, 2, 3}, MIMEType: "audio/pcm;rate=24000"},
		{Seq: 4, Data: []byte{1, 2}, MIMEType: "video/mp4"},
		{Seq: 5, Data: []byte{1, 2}, MIMEType: "audio/pcm;rate=zero"},
	}
	for _, f := range bad {
		seg, err := s.Enqueue(f)
		assert.Nil(t, seg)
		assert.ErrorIs(t, err, pkgerrors.ErrPlaybackDecode, "seq %d", f.Seq)
	}

	seg, err := s.Enqueue(fragment(6, 100*time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, 100*time.Millisecond, seg.Start)
}

func TestEnqueue_RateFromMIMEType(t *testing.T) {
	s := NewScheduler(&manualClock{}, &recordingSink{}, WithDefaultSampleRate(16000))

	seg, err := s.Enqueue(types.AudioFragment{Data: make([]byte, 3200), MIMEType: "audio/pcm"})
	require.NoError(t, err)
	assert.Equal(t, 16000, seg.SampleRate)
	assert.Equal(t, 100*time.Millisecond, seg.Duration)

	seg, err = s.Enqueue(types.AudioFragment{Data: make([]byte, 3200)})
	require.NoError(t, err)
	assert.Equal(t, 16000, seg.SampleRate)
}

func TestOnScheduled(t *testing.T) {
	var got []*Segment
	s := NewScheduler(&manualClock{}, &recordingSink{}, WithOnScheduled(func(seg *Segment) {
		got = append(got, seg)
	}))
	_, _ = s.Enqueue(fragment(7, 20*time.Millisecond))
	require.Len(t, got, 1)
	assert.Equal(t, int64(7), got[0].Seq)
}
