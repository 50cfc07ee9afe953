package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/JECH20102004/dayugame/device"
	"github.com/JECH20102004/dayugame/events"
	"github.com/JECH20102004/dayugame/logger"
	"github.com/JECH20102004/dayugame/media"
	"github.com/JECH20102004/dayugame/playback"
	"github.com/JECH20102004/dayugame/providers/gemini"
	"github.com/JECH20102004/dayugame/types"
)

// Frame sources, as reported in video.frame_sent events.
const (
	sourceCamera = "camera"
	sourceScreen = "screen"
)

// liveSession holds everything one connection owns. It is created by
// Activate and released exactly once by teardown.
type liveSession struct {
	c       *Controller
	id      string
	agent   *types.AgentProfile
	ctx     context.Context //nolint:containedctx // session-scoped; cancelled on teardown
	cancel  context.CancelFunc
	group   *errgroup.Group
	emitter *events.Emitter

	timeline  *playback.Timeline
	scheduler *playback.Scheduler
	audioEnc  *media.AudioEncoder
	frameEnc  *media.FrameEncoder
	limiter   *rate.Limiter

	mic     device.Microphone
	speaker device.Speaker
	camera  device.FrameSource
	stream  Stream

	mu     sync.Mutex
	screen device.FrameSource
}

func newLiveSession(ctx context.Context, c *Controller, id string, agent *types.AgentProfile) *liveSession {
	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	group, gctx := errgroup.WithContext(ctx)
	ls := &liveSession{
		c:       c,
		id:      id,
		agent:   agent,
		ctx:     gctx,
		cancel:  cancel,
		group:   group,
		emitter: events.NewEmitter(c.bus, id, agent.ID),
	}

	ls.timeline = playback.NewTimeline(c.spec.OutputSampleRate)
	ls.scheduler = playback.NewScheduler(ls.timeline, ls.timeline,
		playback.WithDefaultSampleRate(c.spec.OutputSampleRate),
		playback.WithOnSpeaking(ls.emitter.PlaybackSpeakingChanged),
		playback.WithOnScheduled(func(seg *playback.Segment) {
			ls.emitter.PlaybackSegmentScheduled(seg.Seq, seg.Start, seg.Duration, seg.Start-ls.timeline.Now())
		}),
	)

	st := c.devState.Load()
	ls.audioEnc = media.NewAudioEncoder(c.spec.InputSampleRate, c.spec.GainRampTimeConstant,
		media.EffectiveGain(st.MicMuted, st.InputGain))
	ls.frameEnc = media.NewFrameEncoder(c.spec.FrameScale, c.spec.JPEGQuality)
	ls.limiter = newFrameLimiter(c.spec.MaxFramesPerSecond)
	return ls
}

// newFrameLimiter allows maxFPS frames per second; zero means unlimited.
func newFrameLimiter(maxFPS float64) *rate.Limiter {
	if maxFPS <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(maxFPS), 1)
}

// acquire opens the microphone, speaker and camera. The first failure is
// returned and whatever was opened is released by teardown.
func (ls *liveSession) acquire(ctx context.Context) error {
	var err error
	if ls.mic, err = ls.c.devices.OpenMicrophone(ctx, ls.c.spec.InputSampleRate); err != nil {
		return err
	}
	if ls.speaker, err = ls.c.devices.OpenSpeaker(ctx, ls.timeline); err != nil {
		return err
	}
	if ls.camera, err = ls.c.devices.OpenCamera(ctx); err != nil {
		return err
	}
	return nil
}

// open connects the transport and starts the session goroutines.
func (ls *liveSession) open(t Transport, cfg gemini.LiveConfig) {
	ls.stream = t.Open(ls.ctx, cfg, ls.emitter.MediaDropped)
	logger.InfoContext(ls.ctx, "Live session connecting",
		"voice", cfg.Voice, "tools", len(cfg.Tools))

	ls.group.Go(ls.consumeEvents)
	ls.group.Go(ls.captureAudio)
	ls.group.Go(ls.sampleVideo)
}

// release stops every goroutine and closes every handle. Called once, with
// the controller lock held.
func (ls *liveSession) release() {
	ls.cancel()
	if ls.stream != nil {
		_ = ls.stream.Close()
	}
	ls.scheduler.Interrupt()

	ls.mu.Lock()
	screen := ls.screen
	ls.screen = nil
	ls.mu.Unlock()

	for _, h := range []interface{ Close() error }{ls.mic, ls.speaker, ls.camera, screen} {
		if h == nil {
			continue
		}
		if err := h.Close(); err != nil {
			logger.DebugContext(ls.ctx, "Device close failed", "error", err)
		}
	}
}

// wait blocks until the session goroutines have returned.
func (ls *liveSession) wait() error {
	if err := ls.group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// consumeEvents processes inbound events strictly in arrival order.
func (ls *liveSession) consumeEvents() error {
	inbound := ls.stream.Events()
	for {
		select {
		case <-ls.ctx.Done():
			return nil
		case ev, ok := <-inbound:
			if !ok {
				ls.c.closeSession(ls, nil)
				return nil
			}
			if done := ls.handle(ev); done {
				return nil
			}
		}
	}
}

// handle processes one inbound event and reports whether the stream ended.
func (ls *liveSession) handle(ev types.InboundEvent) bool {
	switch ev := ev.(type) {
	case types.Opened:
		ls.c.markOpen(ls)
	case types.AudioFragment:
		if _, err := ls.scheduler.Enqueue(ev); err != nil {
			ls.emitter.PlaybackDecodeFailed(ev.Seq, err)
		}
	case types.ToolCallRequest:
		ls.dispatch(ev)
	case types.Interrupted:
		discarded := ls.scheduler.Pending()
		ls.scheduler.Interrupt()
		logger.DebugContext(ls.ctx, "Response interrupted", "discarded", discarded)
		ls.emitter.PlaybackInterrupted(discarded)
	case types.Transcript:
		ls.emitter.TranscriptReceived(string(ev.Source), ev.Text)
	case types.TurnComplete:
		logger.DebugContext(ls.ctx, "Turn complete")
	case types.Usage:
		ls.emitter.UsageReported(ev.PromptTokens, ev.ResponseTokens, ev.TotalTokens)
	case types.Closed:
		ls.c.closeSession(ls, ev.Reason)
		return true
	}
	return false
}

// dispatch answers one tool call. The bridge never fails, so every call
// id gets exactly one reply.
func (ls *liveSession) dispatch(req types.ToolCallRequest) {
	ls.emitter.ToolCallStarted(req.Name, req.ID, req.Args)
	start := time.Now()
	result := ls.c.bridge.Dispatch(ls.ctx, req)
	elapsed := time.Since(start)

	if result.IsError {
		msg, _ := result.Result["error"].(string)
		ls.emitter.ToolCallFailed(req.Name, req.ID, msg, elapsed)
	} else {
		ls.emitter.ToolCallCompleted(req.Name, req.ID, elapsed)
	}
	if err := ls.stream.SendToolResult(result); err != nil {
		logger.DebugContext(ls.ctx, "Tool result not sent", "call_id", req.ID, "error", err)
	}
}

// captureAudio encodes microphone blocks as they arrive. Capture keeps
// running while muted; the gain ramps to zero instead.
func (ls *liveSession) captureAudio() error {
	samples := ls.mic.Samples()
	sampleRate := ls.mic.SampleRate()
	for {
		select {
		case <-ls.ctx.Done():
			return nil
		case block, ok := <-samples:
			if !ok {
				return nil
			}
			st := ls.c.devState.Load()
			ls.audioEnc.SetGain(media.EffectiveGain(st.MicMuted, st.InputGain))
			chunk := ls.audioEnc.Encode(block, sampleRate)
			if err := ls.stream.Send(chunk); err != nil {
				if errors.Is(err, gemini.ErrStreamClosed) {
					return nil
				}
				logger.DebugContext(ls.ctx, "Audio chunk not sent", "error", err)
				continue
			}
			ls.emitter.AudioChunkSent(len(chunk.Data), chunk.SampleRate, ls.audioEnc.Gain())
		}
	}
}

// sampleVideo sends one frame per interval while frames are enabled.
func (ls *liveSession) sampleVideo() error {
	ticker := time.NewTicker(ls.c.spec.FrameInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ls.ctx.Done():
			return nil
		case <-ticker.C:
			ls.tick()
		}
	}
}

// tick sends the current frame of the active source, if any. It reports
// whether a frame was sent.
func (ls *liveSession) tick() bool {
	if !ls.c.devState.Load().SendsFrames() {
		return false
	}
	src, name := ls.activeSource()
	if src == nil {
		return false
	}
	img, ok, err := src.Frame()
	if err != nil {
		logger.DebugContext(ls.ctx, "Frame capture failed", "source", name, "error", err)
		return false
	}
	if !ok || !ls.limiter.Allow() {
		return false
	}
	chunk, err := ls.frameEnc.Encode(img)
	if err != nil {
		logger.DebugContext(ls.ctx, "Frame encode failed", "source", name, "error", err)
		return false
	}
	if err := ls.stream.Send(chunk); err != nil {
		return false
	}
	ls.emitter.VideoFrameSent(len(chunk.Data), chunk.MIMEType, name)
	return true
}

// activeSource is the screen while sharing, else the camera.
func (ls *liveSession) activeSource() (device.FrameSource, string) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	if ls.screen != nil && ls.c.devState.Load().ScreenSharing {
		return ls.screen, sourceScreen
	}
	return ls.camera, sourceCamera
}

// startScreenShare acquires the display and watches for it ending.
func (ls *liveSession) startScreenShare() error {
	src, err := ls.c.devices.OpenScreen(ls.ctx)
	if err != nil {
		return err
	}
	ls.mu.Lock()
	prev := ls.screen
	ls.screen = src
	ls.mu.Unlock()
	if prev != nil {
		_ = prev.Close()
	}

	ls.group.Go(func() error {
		select {
		case <-ls.ctx.Done():
		case <-src.Done():
			ls.c.screenEnded(ls, src)
		}
		return nil
	})
	return nil
}

// stopScreenShare releases the display; the next tick uses the camera.
func (ls *liveSession) stopScreenShare() {
	ls.mu.Lock()
	src := ls.screen
	ls.screen = nil
	ls.mu.Unlock()
	if src != nil {
		_ = src.Close()
	}
}

func (ls *liveSession) isScreen(src device.FrameSource) bool {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return ls.screen == src
}
