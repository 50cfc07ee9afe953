package session

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"

	"github.com/JECH20102004/dayugame/device"
	pkgerrors "github.com/JECH20102004/dayugame/pkg/errors"
	"github.com/JECH20102004/dayugame/providers/gemini"
	"github.com/JECH20102004/dayugame/types"
)

type fakeStream struct {
	events chan types.InboundEvent

	mu      sync.Mutex
	sent    []types.MediaChunk
	results []types.ToolCallResult
	closed  bool
	once    sync.Once
}

func newFakeStream() *fakeStream {
	return &fakeStream{events: make(chan types.InboundEvent, 64)}
}

func (s *fakeStream) Events() <-chan types.InboundEvent { return s.events }

func (s *fakeStream) Send(chunk types.MediaChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return gemini.ErrStreamClosed
	}
	s.sent = append(s.sent, chunk)
	return nil
}

func (s *fakeStream) SendToolResult(r types.ToolCallResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return gemini.ErrStreamClosed
	}
	s.results = append(s.results, r)
	return nil
}

// Close mirrors the real stream: one final Closed, then the channel closes.
func (s *fakeStream) Close() error {
	s.end(nil)
	return nil
}

// remoteClose simulates the server ending the stream.
func (s *fakeStream) remoteClose(reason error) {
	s.end(reason)
}

func (s *fakeStream) end(reason error) {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		s.events <- types.Closed{Reason: reason}
		close(s.events)
	})
}

func (s *fakeStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *fakeStream) chunks(kind types.MediaKind) []types.MediaChunk {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []types.MediaChunk
	for _, c := range s.sent {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

func (s *fakeStream) toolResults() []types.ToolCallResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.ToolCallResult(nil), s.results...)
}

type fakeTransport struct {
	mu      sync.Mutex
	streams []*fakeStream
	configs []gemini.LiveConfig
}

func (t *fakeTransport) Open(_ context.Context, cfg gemini.LiveConfig, _ func(types.MediaChunk)) Stream {
	s := newFakeStream()
	t.mu.Lock()
	t.streams = append(t.streams, s)
	t.configs = append(t.configs, cfg)
	t.mu.Unlock()
	return s
}

func (t *fakeTransport) opens() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.streams)
}

func (t *fakeTransport) stream(i int) *fakeStream {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.streams[i]
}

func (t *fakeTransport) config(i int) gemini.LiveConfig {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.configs[i]
}

type fakeMic struct {
	rate    int
	samples chan []float32
	closed  atomic.Bool
}

func (m *fakeMic) SampleRate() int           { return m.rate }
func (m *fakeMic) Samples() <-chan []float32 { return m.samples }
func (m *fakeMic) Close() error {
	m.closed.Store(true)
	return nil
}

type fakeSpeaker struct{ closed atomic.Bool }

func (s *fakeSpeaker) Close() error {
	s.closed.Store(true)
	return nil
}

type fakeSource struct {
	mu     sync.Mutex
	frame  image.Image
	done   chan struct{}
	once   sync.Once
	closed atomic.Bool
}

func newFakeSource(withFrame bool) *fakeSource {
	s := &fakeSource{done: make(chan struct{})}
	if withFrame {
		s.frame = image.NewRGBA(image.Rect(0, 0, 64, 48))
	}
	return s
}

func (s *fakeSource) Frame() (image.Image, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame, s.frame != nil, nil
}

func (s *fakeSource) Done() <-chan struct{} { return s.done }

func (s *fakeSource) Close() error {
	s.closed.Store(true)
	s.end()
	return nil
}

// end simulates the source stopping on its own.
func (s *fakeSource) end() {
	s.once.Do(func() { close(s.done) })
}

type fakeDevices struct {
	mu      sync.Mutex
	mic     *fakeMic
	speaker *fakeSpeaker
	camera  *fakeSource
	screens []*fakeSource

	micErr    error
	screenErr error
}

func newFakeDevices() *fakeDevices {
	return &fakeDevices{
		mic:     &fakeMic{rate: 16000, samples: make(chan []float32, 16)},
		speaker: &fakeSpeaker{},
		camera:  newFakeSource(true),
	}
}

func (d *fakeDevices) OpenMicrophone(context.Context, int) (device.Microphone, error) {
	if d.micErr != nil {
		return nil, pkgerrors.Device("OpenMicrophone", d.micErr)
	}
	return d.mic, nil
}

func (d *fakeDevices) OpenSpeaker(context.Context, device.Renderer) (device.Speaker, error) {
	return d.speaker, nil
}

func (d *fakeDevices) OpenCamera(context.Context) (device.FrameSource, error) {
	return d.camera, nil
}

func (d *fakeDevices) OpenScreen(context.Context) (device.FrameSource, error) {
	if d.screenErr != nil {
		return nil, pkgerrors.Device("OpenScreen", d.screenErr)
	}
	s := newFakeSource(true)
	d.mu.Lock()
	d.screens = append(d.screens, s)
	d.mu.Unlock()
	return s, nil
}

func (d *fakeDevices) screen(i int) *fakeSource {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.screens[i]
}

var errNoMic = errors.New("microphone busy")
