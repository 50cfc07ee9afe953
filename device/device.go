// Package device provides the capture and output handles a live session
// holds while it is active: a microphone stream, a speaker that pulls from
// the playback mixer, a camera fed by the host application, and a screen
// capture source.
//
// Microphone and speaker streams use PortAudio when built with the
// portaudio tag. Without it, opening them fails with ErrNoAudioBackend.
package device

import (
	"context"
	"errors"
	"image"
)

// Audio stream defaults.
const (
	// MicFramesPerBuffer is the capture block size in frames.
	MicFramesPerBuffer = 4096
	// SpeakerFramesPerBuffer is 40ms of audio at 24kHz.
	SpeakerFramesPerBuffer = 960
	// micQueueSize bounds captured blocks waiting for the encoder.
	micQueueSize = 32
)

var (
	// ErrNoAudioBackend is returned when the binary has no audio backend.
	ErrNoAudioBackend = errors.New("no audio backend; build with -tags portaudio")
	// ErrNoDisplay is returned when no active display can be captured.
	ErrNoDisplay = errors.New("no active display")
)

// Microphone delivers captured mono sample blocks in [-1, 1].
type Microphone interface {
	// SampleRate is the capture rate of every block.
	SampleRate() int
	// Samples is closed when the stream stops.
	Samples() <-chan []float32
	Close() error
}

// Renderer produces output audio on demand. playback.Timeline satisfies it.
type Renderer interface {
	SampleRate() int
	RenderInt16(out []int16)
}

// Speaker plays audio pulled from a Renderer until closed.
type Speaker interface {
	Close() error
}

// FrameSource yields the most recent video frame. ok is false when no
// frame is available yet.
type FrameSource interface {
	Frame() (img image.Image, ok bool, err error)
	// Done is closed when the source ends, on its own or through Close.
	Done() <-chan struct{}
	Close() error
}

// Opener acquires device handles for one session.
type Opener interface {
	OpenMicrophone(ctx context.Context, sampleRate int) (Microphone, error)
	OpenSpeaker(ctx context.Context, src Renderer) (Speaker, error)
	OpenCamera(ctx context.Context) (FrameSource, error)
	OpenScreen(ctx context.Context) (FrameSource, error)
}

// Local opens the devices of the machine the process runs on.
type Local struct {
	// Camera receives frames from the host application.
	Camera *PushSource
	// Display is the screen index captured while sharing.
	Display int
}

// NewLocal creates a Local with an empty camera feed.
func NewLocal() *Local {
	return &Local{Camera: NewPushSource()}
}

// OpenMicrophone opens the default input device at sampleRate.
func (l *Local) OpenMicrophone(ctx context.Context, sampleRate int) (Microphone, error) {
	return openMicrophone(ctx, sampleRate)
}

// OpenSpeaker opens the default output device at src's rate.
func (l *Local) OpenSpeaker(ctx context.Context, src Renderer) (Speaker, error) {
	return openSpeaker(ctx, src)
}

// OpenCamera returns a handle on the pushed camera feed.
func (l *Local) OpenCamera(_ context.Context) (FrameSource, error) {
	return l.Camera.Handle(), nil
}

// OpenScreen starts capturing the configured display.
func (l *Local) OpenScreen(_ context.Context) (FrameSource, error) {
	return NewScreenSource(l.Display)
}

var _ Opener = (*Local)(nil)
