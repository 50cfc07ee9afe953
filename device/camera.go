package device

import (
	"image"
	"sync"
)

// PushSource holds the latest frame pushed by the host application, for
// platforms where the process does not own the camera.
type PushSource struct {
	mu    sync.RWMutex
	frame image.Image
}

// NewPushSource creates a source with no frame.
func NewPushSource() *PushSource {
	return &PushSource{}
}

// Push replaces the current frame. A nil image clears it.
func (s *PushSource) Push(img image.Image) {
	s.mu.Lock()
	s.frame = img
	s.mu.Unlock()
}

// Frame returns the latest pushed frame.
func (s *PushSource) Frame() (image.Image, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frame, s.frame != nil, nil
}

// Handle returns a session-scoped FrameSource over s. Closing the handle
// leaves s usable.
func (s *PushSource) Handle() FrameSource {
	return &pushHandle{src: s, done: make(chan struct{})}
}

type pushHandle struct {
	src  *PushSource
	done chan struct{}
	once sync.Once
}

func (h *pushHandle) Frame() (image.Image, bool, error) {
	select {
	case <-h.done:
		return nil, false, nil
	default:
	}
	return h.src.Frame()
}

func (h *pushHandle) Done() <-chan struct{} { return h.done }

func (h *pushHandle) Close() error {
	h.once.Do(func() { close(h.done) })
	return nil
}
