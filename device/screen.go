package device

import (
	"image"
	"sync"

	"github.com/kbinani/screenshot"

	"github.com/JECH20102004/dayugame/logger"
	pkgerrors "github.com/JECH20102004/dayugame/pkg/errors"
)

// ScreenSource captures one display on demand. It ends on its own when the
// display disappears.
type ScreenSource struct {
	display  int
	displays func() int
	capture  func(display int) (*image.RGBA, error)

	done chan struct{}
	once sync.Once
}

// NewScreenSource starts sharing display. It fails when the display does
// not exist.
func NewScreenSource(display int) (*ScreenSource, error) {
	return newScreenSource(display, screenshot.NumActiveDisplays, screenshot.CaptureDisplay)
}

func newScreenSource(
	display int,
	displays func() int,
	capture func(int) (*image.RGBA, error),
) (*ScreenSource, error) {
	if display < 0 || display >= displays() {
		return nil, pkgerrors.Device("OpenScreen", ErrNoDisplay).
			WithDetails(map[string]any{"display": display})
	}
	return &ScreenSource{
		display:  display,
		displays: displays,
		capture:  capture,
		done:     make(chan struct{}),
	}, nil
}

// Frame captures the display. Once the display is gone the source ends
// and every later call returns no frame.
func (s *ScreenSource) Frame() (image.Image, bool, error) {
	select {
	case <-s.done:
		return nil, false, nil
	default:
	}
	if s.display >= s.displays() {
		logger.Info("Shared display disappeared; ending screen share", "display", s.display)
		s.end()
		return nil, false, nil
	}
	img, err := s.capture(s.display)
	if err != nil {
		return nil, false, pkgerrors.Device("CaptureDisplay", err)
	}
	return img, true, nil
}

// Done is closed when sharing ends.
func (s *ScreenSource) Done() <-chan struct{} {
	return s.done
}

// Close ends sharing.
func (s *ScreenSource) Close() error {
	s.end()
	return nil
}

func (s *ScreenSource) end() {
	s.once.Do(func() { close(s.done) })
}

var _ FrameSource = (*ScreenSource)(nil)
