// Package gemini implements the live transport against the Gemini Live
// bidirectional websocket API.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/JECH20102004/dayugame/credentials"
	"github.com/JECH20102004/dayugame/logger"
	pkgerrors "github.com/JECH20102004/dayugame/pkg/errors"
	"github.com/JECH20102004/dayugame/providers/internal/streaming"
	"github.com/JECH20102004/dayugame/types"
)

// ErrStreamClosed is returned by sends on a stream that has ended.
var ErrStreamClosed = errors.New("live stream is closed")

// MaxMessageSize is the maximum allowed WebSocket message size (16MB).
const MaxMessageSize = 16 * 1024 * 1024

const (
	eventBufferSize    = 64
	resultBufferSize   = 16
	finalEventDeadline = 5 * time.Second
)

// LiveTransport opens live streams. The zero value has no credential and
// is only useful against unauthenticated endpoints.
type LiveTransport struct {
	Credential credentials.Credential

	// OnDrop, if set, is called for every media chunk that is not sent:
	// audio refused by a full audio lane, or a frame superseded by a newer
	// one before the writer took it.
	OnDrop func(types.MediaChunk)
}

// NewLiveTransport creates a transport authenticating with cred.
func NewLiveTransport(cred credentials.Credential) *LiveTransport {
	return &LiveTransport{Credential: cred}
}

// Open returns a stream immediately and connects in the background. The
// stream's first event is Opened on success; its last is always Closed.
func (t *LiveTransport) Open(ctx context.Context, cfg LiveConfig) *LiveStream {
	if cfg.SetupTimeout <= 0 {
		cfg.SetupTimeout = DefaultSetupTimeout
	}
	if cfg.SendQueueSize <= 0 {
		cfg.SendQueueSize = DefaultSendQueueSize
	}

	streamCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s := &LiveStream{
		cfg:        cfg,
		ctx:        streamCtx,
		cancel:     cancel,
		audio:      make(chan types.MediaChunk, cfg.SendQueueSize),
		frameReady: make(chan struct{}, 1),
		results:    make(chan types.ToolCallResult, resultBufferSize),
		events:     make(chan types.InboundEvent, eventBufferSize),
		onDrop:     t.OnDrop,
	}
	go s.run(ctx, t.Credential)
	return s
}

// LiveStream is one open live session. Send and SendToolResult may be
// called from any goroutine; Events must be drained by one consumer.
type LiveStream struct {
	cfg    LiveConfig
	ctx    context.Context
	cancel context.CancelFunc

	audio   chan types.MediaChunk
	results chan types.ToolCallResult
	events  chan types.InboundEvent
	onDrop  func(types.MediaChunk)

	// frame holds the newest unsent frame; frameReady signals the writer.
	frameMu    sync.Mutex
	frame      *types.MediaChunk
	frameReady chan struct{}

	dropped atomic.Uint64
	opened  atomic.Bool

	mu         sync.Mutex
	conn       *streaming.Conn // set once by connect
	terminated bool
	reason     error

	writerDone chan struct{}
}

// Events delivers inbound events in arrival order. It is closed after the
// single Closed event.
func (s *LiveStream) Events() <-chan types.InboundEvent {
	return s.events
}

// Send queues a media chunk without blocking. Audio goes to a FIFO lane of
// SendQueueSize chunks and is dropped only when that lane is full, which
// means the connection has stopped draining. A frame replaces any frame the
// writer has not taken yet.
func (s *LiveStream) Send(chunk types.MediaChunk) error {
	if s.isTerminated() {
		return ErrStreamClosed
	}
	if chunk.Kind == types.MediaFrame {
		s.offerFrame(chunk)
		return nil
	}
	select {
	case s.audio <- chunk:
	default:
		s.drop(chunk)
	}
	return nil
}

func (s *LiveStream) offerFrame(chunk types.MediaChunk) {
	s.frameMu.Lock()
	stale := s.frame
	s.frame = &chunk
	s.frameMu.Unlock()

	if stale != nil {
		s.drop(*stale)
	}
	select {
	case s.frameReady <- struct{}{}:
	default:
	}
}

func (s *LiveStream) takeFrame() (types.MediaChunk, bool) {
	s.frameMu.Lock()
	defer s.frameMu.Unlock()
	if s.frame == nil {
		return types.MediaChunk{}, false
	}
	c := *s.frame
	s.frame = nil
	return c, true
}

func (s *LiveStream) drop(chunk types.MediaChunk) {
	s.dropped.Add(1)
	if s.onDrop != nil {
		s.onDrop(chunk)
	}
}

// SendToolResult queues a tool reply ahead of pending media. It blocks
// only until the reply is queued or the stream ends.
func (s *LiveStream) SendToolResult(r types.ToolCallResult) error {
	if s.isTerminated() {
		return ErrStreamClosed
	}
	select {
	case s.results <- r:
		return nil
	case <-s.ctx.Done():
		return ErrStreamClosed
	}
}

// Dropped returns how many media chunks were not sent.
func (s *LiveStream) Dropped() uint64 {
	return s.dropped.Load()
}

// Opened reports whether setup completed.
func (s *LiveStream) Opened() bool {
	return s.opened.Load()
}

// Close ends the stream. Closed{Reason: nil} is delivered unless a failure
// was already recorded. Close is idempotent.
func (s *LiveStream) Close() error {
	s.terminate(nil)
	return nil
}

func (s *LiveStream) isTerminated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terminated
}

// terminate records the first reason and tears the connection down.
func (s *LiveStream) terminate(reason error) {
	s.mu.Lock()
	if !s.terminated {
		s.terminated = true
		s.reason = reason
	}
	conn := s.conn
	s.mu.Unlock()
	s.cancel()
	if conn != nil {
		_ = conn.Close()
	}
}

func (s *LiveStream) closeReason() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

func (s *LiveStream) run(ctx context.Context, cred credentials.Credential) {
	defer s.finish()

	if err := s.connect(ctx, cred); err != nil {
		s.terminate(err)
		return
	}
	if s.isTerminated() {
		return
	}

	s.opened.Store(true)
	if !s.emit(types.Opened{}) {
		return
	}

	s.writerDone = make(chan struct{})
	go s.writeLoop()
	s.conn.StartHeartbeat(s.ctx, s.cfg.HeartbeatInterval)

	s.readLoop()
}

// connect dials, sends setup and waits for setupComplete.
func (s *LiveStream) connect(ctx context.Context, cred credentials.Credential) error {
	headers, err := credentials.Headers(s.ctx, cred, s.cfg.Endpoint)
	if err != nil {
		return pkgerrors.Transport("Authenticate", err)
	}
	conn := streaming.NewConn(streaming.ConnConfig{
		URL:            s.cfg.Endpoint,
		Headers:        headers,
		DialTimeout:    s.cfg.DialTimeout,
		MaxAttempts:    s.cfg.DialAttempts,
		MaxMessageSize: MaxMessageSize,
	})
	s.mu.Lock()
	if s.terminated {
		s.mu.Unlock()
		return nil
	}
	s.conn = conn
	s.mu.Unlock()

	if err := s.conn.ConnectWithRetry(s.ctx); err != nil {
		return pkgerrors.Transport("Dial", err)
	}

	setup := buildSetupMessage(&s.cfg)
	if logger.DefaultLogger.Enabled(ctx, slog.LevelDebug) {
		if setupJSON, err := json.Marshal(setup); err == nil {
			logger.DebugContext(ctx, "Gemini setup message", "setup", string(setupJSON))
		}
	}
	if err := s.conn.Send(setup); err != nil {
		return pkgerrors.Transport("Setup", err)
	}

	if err := s.conn.SetReadDeadline(time.Now().Add(s.cfg.SetupTimeout)); err != nil {
		return pkgerrors.Transport("Setup", err)
	}
	raw, err := s.conn.Receive()
	if err != nil {
		return pkgerrors.Transport("Setup", fmt.Errorf("failed to receive setup response: %w", err))
	}
	_ = s.conn.SetReadDeadline(time.Time{})

	var resp ServerMessage
	if err := json.Unmarshal(raw, &resp); err != nil {
		return pkgerrors.Transport("Setup", fmt.Errorf("failed to parse setup response: %w", err))
	}
	if resp.SetupComplete == nil {
		return pkgerrors.Transport("Setup", errors.New("invalid setup response: setupComplete not received"))
	}

	logger.InfoContext(ctx, "Gemini live session open", "model", modelPath(s.cfg.Model))
	return nil
}

func (s *LiveStream) readLoop() {
	var dec decoder
	for {
		raw, err := s.conn.Receive()
		if err != nil {
			if s.isTerminated() {
				return
			}
			if streaming.IsNormalClose(err) {
				s.terminate(pkgerrors.Transport("Receive", fmt.Errorf("server closed session: %w", err)))
				return
			}
			s.terminate(pkgerrors.Transport("Receive", err).WithStatusCode(streaming.CloseCode(err)))
			return
		}

		if logger.DefaultLogger.Enabled(s.ctx, slog.LevelDebug) {
			logRawMessage(raw)
		}

		var msg ServerMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			logger.Warn("Failed to parse Gemini server message", "error", err)
			continue
		}
		for _, ev := range dec.decode(&msg) {
			if !s.emit(ev) {
				return
			}
		}
	}
}

// writeLoop drains the result lane before media on every turn.
func (s *LiveStream) writeLoop() {
	defer close(s.writerDone)
	for {
		select {
		case r := <-s.results:
			if !s.writeResult(r) {
				return
			}
			continue
		default:
		}

		select {
		case r := <-s.results:
			if !s.writeResult(r) {
				return
			}
		case c := <-s.audio:
			if !s.writeMedia(c) {
				return
			}
		case <-s.frameReady:
			if c, ok := s.takeFrame(); ok && !s.writeMedia(c) {
				return
			}
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *LiveStream) writeMedia(c types.MediaChunk) bool {
	data, err := encodeMedia(c)
	if err != nil {
		logger.Warn("Dropping unencodable media chunk", "kind", c.Kind.String(), "error", err)
		return true
	}
	if err := s.conn.SendRaw(data); err != nil {
		s.writeFailed(err)
		return false
	}
	return true
}

func (s *LiveStream) writeResult(r types.ToolCallResult) bool {
	data, err := encodeToolResult(r)
	if err != nil {
		// The call id still gets exactly one reply.
		data, _ = encodeToolResult(types.ToolCallResult{
			ID: r.ID, Name: r.Name, IsError: true,
			Result: map[string]any{"error": "unencodable tool result: " + err.Error()},
		})
	}
	if err := s.conn.SendRaw(data); err != nil {
		s.writeFailed(err)
		return false
	}
	return true
}

func (s *LiveStream) writeFailed(err error) {
	if s.isTerminated() {
		return
	}
	s.terminate(pkgerrors.Transport("Send", err))
}

// emit delivers ev unless the stream has been terminated.
func (s *LiveStream) emit(ev types.InboundEvent) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.ctx.Done():
		return false
	}
}

// finish delivers the final Closed event and closes the event channel.
func (s *LiveStream) finish() {
	s.terminate(nil)
	if s.writerDone != nil {
		<-s.writerDone
	}

	reason := s.closeReason()
	if reason != nil {
		logger.TransportFailure(context.Background(), "live stream", reason)
	}

	timer := time.NewTimer(finalEventDeadline)
	defer timer.Stop()
	select {
	case s.events <- types.Closed{Reason: reason}:
	case <-timer.C:
		logger.Debug("Closed event not consumed; dropping", "reason", reason)
	}
	close(s.events)
}
