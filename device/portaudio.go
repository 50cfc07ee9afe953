//go:build portaudio

package device

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"

	"github.com/JECH20102004/dayugame/audio"
	"github.com/JECH20102004/dayugame/logger"
	pkgerrors "github.com/JECH20102004/dayugame/pkg/errors"
)

// PortAudio is initialised once per open stream and terminated when the
// last one closes.
var (
	paMu   sync.Mutex
	paRefs int
)

func acquirePortAudio() error {
	paMu.Lock()
	defer paMu.Unlock()
	if paRefs == 0 {
		if err := portaudio.Initialize(); err != nil {
			return fmt.Errorf("failed to initialize PortAudio: %w", err)
		}
	}
	paRefs++
	return nil
}

func releasePortAudio() {
	paMu.Lock()
	defer paMu.Unlock()
	paRefs--
	if paRefs == 0 {
		_ = portaudio.Terminate()
	}
}

type paMicrophone struct {
	stream  *portaudio.Stream
	rate    int
	out     chan []float32
	dropped atomic.Uint64

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func openMicrophone(ctx context.Context, sampleRate int) (Microphone, error) {
	if err := acquirePortAudio(); err != nil {
		return nil, pkgerrors.Device("OpenMicrophone", err)
	}
	in := make([]int16, MicFramesPerBuffer)
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(sampleRate), len(in), in)
	if err != nil {
		releasePortAudio()
		return nil, pkgerrors.Device("OpenMicrophone", fmt.Errorf("failed to open input stream: %w", err))
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		releasePortAudio()
		return nil, pkgerrors.Device("OpenMicrophone", fmt.Errorf("failed to start input stream: %w", err))
	}

	ctx, cancel := context.WithCancel(ctx)
	m := &paMicrophone{
		stream: stream,
		rate:   sampleRate,
		out:    make(chan []float32, micQueueSize),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	logger.Debug("Microphone stream opened", "sample_rate", sampleRate, "frames_per_buffer", len(in))
	go m.captureLoop(ctx, in)
	return m, nil
}

func (m *paMicrophone) captureLoop(ctx context.Context, in []int16) {
	defer close(m.done)
	defer close(m.out)
	for ctx.Err() == nil {
		if err := m.stream.Read(); err != nil {
			if ctx.Err() == nil {
				logger.Warn("Microphone read failed", "error", err)
			}
			return
		}
		block := audio.Int16ToFloat32(in)
		select {
		case m.out <- block:
		default:
			if n := m.dropped.Add(1); n%100 == 1 {
				logger.Warn("Microphone blocks dropped", "dropped", n)
			}
		}
	}
}

func (m *paMicrophone) SampleRate() int           { return m.rate }
func (m *paMicrophone) Samples() <-chan []float32 { return m.out }

func (m *paMicrophone) Close() error {
	var err error
	m.once.Do(func() {
		m.cancel()
		err = m.stream.Stop()
		<-m.done
		if cerr := m.stream.Close(); err == nil {
			err = cerr
		}
		releasePortAudio()
	})
	return err
}

type paSpeaker struct {
	stream *portaudio.Stream
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func openSpeaker(ctx context.Context, src Renderer) (Speaker, error) {
	if err := acquirePortAudio(); err != nil {
		return nil, pkgerrors.Device("OpenSpeaker", err)
	}
	out := make([]int16, SpeakerFramesPerBuffer)
	stream, err := portaudio.OpenDefaultStream(0, 1, float64(src.SampleRate()), len(out), out)
	if err != nil {
		releasePortAudio()
		return nil, pkgerrors.Device("OpenSpeaker", fmt.Errorf("failed to open output stream: %w", err))
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		releasePortAudio()
		return nil, pkgerrors.Device("OpenSpeaker", fmt.Errorf("failed to start output stream: %w", err))
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &paSpeaker{stream: stream, cancel: cancel, done: make(chan struct{})}
	go s.playbackLoop(ctx, src, out)
	return s, nil
}

// playbackLoop pulls one buffer at a time; Write blocks at the device rate,
// which is what advances the mixer clock.
func (s *paSpeaker) playbackLoop(ctx context.Context, src Renderer, out []int16) {
	defer close(s.done)
	for ctx.Err() == nil {
		src.RenderInt16(out)
		if err := s.stream.Write(); err != nil {
			if ctx.Err() == nil {
				logger.Debug("Speaker write failed", "error", err)
			}
			if !errors.Is(err, portaudio.OutputUnderflowed) {
				return
			}
		}
	}
}

func (s *paSpeaker) Close() error {
	var err error
	s.once.Do(func() {
		s.cancel()
		err = s.stream.Stop()
		<-s.done
		if cerr := s.stream.Close(); err == nil {
			err = cerr
		}
		releasePortAudio()
	})
	return err
}
