package device

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/JECH20102004/dayugame/pkg/errors"
)

func TestPushSource_NoFrameYet(t *testing.T) {
	src := NewPushSource()
	img, ok, err := src.Frame()
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, img)

	frame := image.NewRGBA(image.Rect(0, 0, 4, 4))
	src.Push(frame)
	img, ok, err = src.Frame()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Same(t, frame, img)
}

func TestPushSource_HandleCloseLeavesSourceUsable(t *testing.T) {
	src := NewPushSource()
	src.Push(image.NewRGBA(image.Rect(0, 0, 2, 2)))

	h := src.Handle()
	_, ok, _ := h.Frame()
	assert.True(t, ok)

	require.NoError(t, h.Close())
	require.NoError(t, h.Close())
	select {
	case <-h.Done():
	default:
		t.Fatal("Done not closed after Close")
	}
	_, ok, _ = h.Frame()
	assert.False(t, ok)

	_, ok, _ = src.Handle().Frame()
	assert.True(t, ok)
}

type fakeDisplays struct {
	count    int
	captures int
	err      error
}

func (f *fakeDisplays) num() int { return f.count }

func (f *fakeDisplays) capture(int) (*image.RGBA, error) {
	f.captures++
	if f.err != nil {
		return nil, f.err
	}
	return image.NewRGBA(image.Rect(0, 0, 8, 8)), nil
}

func TestScreenSource_Capture(t *testing.T) {
	d := &fakeDisplays{count: 1}
	s, err := newScreenSource(0, d.num, d.capture)
	require.NoError(t, err)

	img, ok, err := s.Frame()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 8, img.Bounds().Dx())
}

func TestScreenSource_MissingDisplay(t *testing.T) {
	d := &fakeDisplays{count: 1}
	_, err := newScreenSource(2, d.num, d.capture)
	assert.ErrorIs(t, err, ErrNoDisplay)
	assert.ErrorIs(t, err, pkgerrors.ErrDeviceAcquisition)
}

func TestScreenSource_EndsWhenDisplayDisappears(t *testing.T) {
	d := &fakeDisplays{count: 1}
	s, err := newScreenSource(0, d.num, d.capture)
	require.NoError(t, err)

	d.count = 0
	_, ok, err := s.Frame()
	assert.NoError(t, err)
	assert.False(t, ok)
	select {
	case <-s.Done():
	default:
		t.Fatal("screen source did not end")
	}

	d.count = 1
	_, ok, _ = s.Frame()
	assert.False(t, ok, "an ended source stays ended")
	assert.Equal(t, 0, d.captures)
}

func TestScreenSource_CaptureError(t *testing.T) {
	d := &fakeDisplays{count: 1, err: errors.New("permission denied")}
	s, err := newScreenSource(0, d.num, d.capture)
	require.NoError(t, err)

	_, ok, err := s.Frame()
	assert.False(t, ok)
	assert.ErrorIs(t, err, pkgerrors.ErrDeviceAcquisition)
	assert.NoError(t, s.Close())
}

func TestLocal_OpenCamera(t *testing.T) {
	l := NewLocal()
	cam, err := l.OpenCamera(context.Background())
	require.NoError(t, err)
	_, ok, _ := cam.Frame()
	assert.False(t, ok)

	l.Camera.Push(image.NewGray(image.Rect(0, 0, 1, 1)))
	_, ok, _ = cam.Frame()
	assert.True(t, ok)
}
