// Package streaming provides the WebSocket connection used by the live
// provider. It handles dialing with retry, serialized writes, reads,
// heartbeat pings and graceful close, leaving message encoding to the caller.
package streaming

import (
	"context"
	"crypto/rand"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/JECH20102004/dayugame/logger"
)

// Default connection constants.
const (
	DefaultDialTimeout      = 10 * time.Second
	DefaultWriteWait        = 10 * time.Second
	DefaultMaxMessageSize   = 16 * 1024 * 1024 // 16MB
	DefaultMaxAttempts      = 1
	DefaultRetryBackoffBase = 1 * time.Second
	DefaultRetryBackoffMax  = 30 * time.Second
	DefaultCloseGracePeriod = 2 * time.Second
)

// jitterFactor is the +-25% jitter applied to backoff delays.
const jitterFactor = 0.25

const jitterPrecision = 1000

// ErrNotConnected is returned by I/O on a Conn that is not open.
var ErrNotConnected = errors.New("websocket is not connected")

// ConnConfig configures the WebSocket connection behavior.
type ConnConfig struct {
	// URL is the WebSocket endpoint URL.
	URL string

	// Headers are sent during the WebSocket handshake.
	Headers http.Header

	// DialTimeout is the handshake timeout. Defaults to DefaultDialTimeout.
	DialTimeout time.Duration

	// WriteWait is the write deadline for each message. Defaults to DefaultWriteWait.
	WriteWait time.Duration

	// MaxMessageSize is the read limit. Defaults to DefaultMaxMessageSize.
	MaxMessageSize int64

	// MaxAttempts is the number of dial attempts made by ConnectWithRetry.
	MaxAttempts int

	RetryBackoffBase time.Duration
	RetryBackoffMax  time.Duration

	// CloseGracePeriod is the deadline for writing the close frame.
	CloseGracePeriod time.Duration
}

func (c *ConnConfig) defaults() {
	if c.DialTimeout == 0 {
		c.DialTimeout = DefaultDialTimeout
	}
	if c.WriteWait == 0 {
		c.WriteWait = DefaultWriteWait
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = DefaultMaxMessageSize
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.RetryBackoffBase == 0 {
		c.RetryBackoffBase = DefaultRetryBackoffBase
	}
	if c.RetryBackoffMax == 0 {
		c.RetryBackoffMax = DefaultRetryBackoffMax
	}
	if c.CloseGracePeriod == 0 {
		c.CloseGracePeriod = DefaultCloseGracePeriod
	}
}

// Conn is a single-use WebSocket connection. Writes may come from any
// goroutine; reads must come from one.
type Conn struct {
	cfg ConnConfig

	conn    *websocket.Conn
	mu      sync.Mutex
	writeMu sync.Mutex // gorilla/websocket allows one concurrent writer
	closed  bool
	closeCh chan struct{}
}

// NewConn creates a new Conn. Call Connect or ConnectWithRetry to establish the connection.
func NewConn(cfg ConnConfig) *Conn {
	cfg.defaults()
	return &Conn{
		cfg:     cfg,
		closeCh: make(chan struct{}),
	}
}

// Connect dials the endpoint once.
func (c *Conn) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("connection is closed")
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: c.cfg.DialTimeout,
		TLSClientConfig:  &tls.Config{MinVersion: tls.VersionTLS12},
	}

	logger.DebugContext(ctx, "Connecting to WebSocket", "url", logger.RedactSensitiveData(c.cfg.URL))

	conn, resp, err := dialer.DialContext(ctx, c.cfg.URL, c.cfg.Headers)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return fmt.Errorf("failed to connect (status %d): %w", resp.StatusCode, err)
		}
		return fmt.Errorf("failed to connect: %w", err)
	}

	conn.SetReadLimit(c.cfg.MaxMessageSize)
	c.conn = conn
	return nil
}

// ConnectWithRetry dials up to MaxAttempts times with exponential backoff and jitter.
func (c *Conn) ConnectWithRetry(ctx context.Context) error {
	var lastErr error
	backoff := c.cfg.RetryBackoffBase

	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = c.Connect(ctx)
		if lastErr == nil {
			return nil
		}

		logger.WarnContext(ctx, "Connection attempt failed",
			"attempt", attempt, "max_attempts", c.cfg.MaxAttempts, "error", lastErr)

		if attempt < c.cfg.MaxAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(calculateBackoff(backoff, c.cfg.RetryBackoffMax)):
			}
			backoff = min(backoff*2, c.cfg.RetryBackoffMax)
		}
	}

	if c.cfg.MaxAttempts == 1 {
		return lastErr
	}
	return fmt.Errorf("failed to connect after %d attempts: %w", c.cfg.MaxAttempts, lastErr)
}

// Send JSON-encodes msg and writes it as a text message.
func (c *Conn) Send(msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	return c.write(websocket.TextMessage, data)
}

// SendRaw writes pre-encoded data as a text message.
func (c *Conn) SendRaw(data []byte) error {
	return c.write(websocket.TextMessage, data)
}

func (c *Conn) write(messageType int, data []byte) error {
	conn, err := c.current()
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait)); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}
	if err := conn.WriteMessage(messageType, data); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

func (c *Conn) current() (*websocket.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.conn == nil {
		return nil, ErrNotConnected
	}
	return c.conn, nil
}

// Receive blocks for the next text or binary message. Close unblocks it.
func (c *Conn) Receive() ([]byte, error) {
	conn, err := c.current()
	if err != nil {
		return nil, err
	}
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if msgType == websocket.TextMessage || msgType == websocket.BinaryMessage {
			return data, nil
		}
	}
}

// SetReadDeadline bounds the next Receive. A zero time clears it.
func (c *Conn) SetReadDeadline(t time.Time) error {
	conn, err := c.current()
	if err != nil {
		return err
	}
	return conn.SetReadDeadline(t)
}

// IsNormalClose reports whether err is a clean close from the peer.
func IsNormalClose(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}

// CloseCode returns the websocket close code carried by err, or 0.
func CloseCode(err error) int {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return 0
}

// StartHeartbeat sends ping frames at interval until ctx ends or the Conn closes.
func (c *Conn) StartHeartbeat(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.closeCh:
				return
			case <-ticker.C:
				if err := c.write(websocket.PingMessage, nil); err != nil {
					logger.WarnContext(ctx, "Ping failed", "error", err)
					return
				}
			}
		}
	}()
}

// Close sends a normal close frame and closes the socket. It is idempotent.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	close(c.closeCh)

	if c.conn == nil {
		return nil
	}

	c.writeMu.Lock()
	closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.CloseGracePeriod))
	_ = c.conn.WriteMessage(websocket.CloseMessage, closeMsg)
	c.writeMu.Unlock()

	return c.conn.Close()
}

// IsClosed returns whether Close has been called.
func (c *Conn) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// calculateBackoff computes a backoff duration with +-25% jitter, capped at maxDelay.
func calculateBackoff(base, maxDelay time.Duration) time.Duration {
	delay := math.Min(float64(base), float64(maxDelay))
	n, _ := rand.Int(rand.Reader, big.NewInt(jitterPrecision))
	jitter := delay * jitterFactor * (float64(n.Int64())/(jitterPrecision/2) - 1)
	return time.Duration(math.Max(0, math.Min(delay+jitter, float64(maxDelay))))
}
