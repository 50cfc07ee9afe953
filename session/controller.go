// Package session runs one live conversation at a time: it acquires the
// capture devices, streams encoded audio and frames to the remote model,
// plays back response audio and answers tool calls.
//
// A Controller moves through IDLE → CONNECTING → OPEN → CLOSING → CLOSED.
// CLOSED may be re-activated. Any session-fatal error forces CLOSING →
// CLOSED and is reported through Err and a session.failed event.
package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/JECH20102004/dayugame/device"
	"github.com/JECH20102004/dayugame/events"
	"github.com/JECH20102004/dayugame/logger"
	"github.com/JECH20102004/dayugame/pkg/config"
	pkgerrors "github.com/JECH20102004/dayugame/pkg/errors"
	"github.com/JECH20102004/dayugame/providers/gemini"
	"github.com/JECH20102004/dayugame/tools"
	"github.com/JECH20102004/dayugame/types"
)

// ErrSessionActive is returned by Activate while a session exists.
var ErrSessionActive = errors.New("session already active")

// handlerBox lets atomic.Value hold a nil CommandHandler.
type handlerBox struct {
	h tools.CommandHandler
}

// Option configures a Controller.
type Option func(*Controller)

// WithEventBus publishes session events on bus.
func WithEventBus(bus *events.EventBus) Option {
	return func(c *Controller) { c.bus = bus }
}

// WithRegistry answers tool calls from reg. The UI tools are added to it.
func WithRegistry(reg *tools.Registry) Option {
	return func(c *Controller) { c.registry = reg }
}

// WithAgent sets the agent used when Activate is given none.
func WithAgent(agent *types.AgentProfile) Option {
	return func(c *Controller) { c.agent.Store(agent) }
}

// WithCommandHandler sets the initial UI command handler.
func WithCommandHandler(h tools.CommandHandler) Option {
	return func(c *Controller) { c.handler.Store(handlerBox{h: h}) }
}

// Controller owns the live session lifecycle. All methods are safe for
// concurrent use, but must not be called from a CommandHandler inline
// with a tool call.
type Controller struct {
	spec      config.LiveConfigSpec
	transport Transport
	devices   device.Opener
	bus       *events.EventBus
	registry  *tools.Registry
	bridge    *tools.Bridge

	// Shared cells read at the moment of use.
	agent    atomic.Pointer[types.AgentProfile]
	handler  atomic.Value // handlerBox
	devState atomic.Pointer[DeviceState]

	mu           sync.Mutex
	state        State
	live         *liveSession
	err          error
	reconnect    *time.Timer
	reconnectGen uint64
}

// NewController creates an idle controller. It fails only if the UI tools
// cannot be registered.
func NewController(
	spec *config.LiveConfigSpec,
	transport Transport,
	devices device.Opener,
	opts ...Option,
) (*Controller, error) {
	c := &Controller{
		spec:      *spec,
		transport: transport,
		devices:   devices,
		state:     StateIdle,
	}
	c.handler.Store(handlerBox{})
	initial := DefaultDeviceState()
	c.devState.Store(&initial)
	for _, opt := range opts {
		opt(c)
	}
	if c.registry == nil {
		c.registry = tools.NewRegistry()
	}
	if err := tools.RegisterUITools(c.registry, c.commandHandler); err != nil {
		return nil, err
	}
	c.bridge = tools.NewBridge(c.registry)
	return c, nil
}

// Registry returns the tool registry. Tools registered before Activate are
// declared to the remote model.
func (c *Controller) Registry() *tools.Registry {
	return c.registry
}

// Activate opens a session for agent, or for the latest agent when nil.
// Device failures end the session before it reaches OPEN and are returned.
func (c *Controller) Activate(ctx context.Context, agent *types.AgentProfile) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activateLocked(ctx, agent)
}

// Deactivate ends the current session, if any, and cancels a pending
// reconnect. It is idempotent.
func (c *Controller) Deactivate() error {
	c.mu.Lock()
	c.cancelReconnectLocked()
	ls := c.live
	if ls != nil {
		c.teardownLocked(ls, nil)
	}
	c.mu.Unlock()

	if ls != nil {
		return ls.wait()
	}
	return nil
}

// UpdateAgent stores agent as the latest agent. If a session is running
// for a different agent it is torn down and reactivated after the
// reconnect grace period; a newer update restarts the wait.
func (c *Controller) UpdateAgent(ctx context.Context, agent *types.AgentProfile) error {
	if agent == nil {
		return nil
	}
	c.agent.Store(agent)

	c.mu.Lock()
	ls := c.live
	switch {
	case ls == nil && c.reconnect == nil:
		c.mu.Unlock()
		return nil
	case ls != nil && types.SameAgent(ls.agent, agent):
		c.mu.Unlock()
		return nil
	}
	if ls != nil {
		logger.InfoContext(ls.ctx, "Agent changed; reconnecting",
			"from", ls.agent.ID, "to", agent.ID, "grace", c.spec.ReconnectGrace)
		c.teardownLocked(ls, nil)
	}
	c.scheduleReconnectLocked(ctx)
	c.mu.Unlock()

	if ls != nil {
		return ls.wait()
	}
	return nil
}

// SetDeviceState applies patch and returns the resulting state. Changes
// take effect on the next capture tick. Turning screen sharing on acquires
// the display; if that fails sharing stays off.
func (c *Controller) SetDeviceState(patch DeviceStatePatch) DeviceState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setDeviceStateLocked(patch)
}

func (c *Controller) setDeviceStateLocked(patch DeviceStatePatch) DeviceState {
	prev := *c.devState.Load()
	next := prev.Apply(patch)

	if ls := c.live; ls != nil && next.ScreenSharing != prev.ScreenSharing {
		if next.ScreenSharing {
			if err := ls.startScreenShare(); err != nil {
				logger.WarnContext(ls.ctx, "Screen share failed", "error", err)
				next.ScreenSharing = false
			}
		} else {
			ls.stopScreenShare()
		}
	}

	c.devState.Store(&next)
	logger.Debug("Device state updated",
		"mic_muted", next.MicMuted,
		"camera_muted", next.CameraMuted,
		"screen_sharing", next.ScreenSharing,
		"input_gain", next.InputGain)
	return next
}

// DeviceState returns the current device state snapshot.
func (c *Controller) DeviceState() DeviceState {
	return *c.devState.Load()
}

// SetCommandHandler replaces the UI command handler used by later tool calls.
func (c *Controller) SetCommandHandler(h tools.CommandHandler) {
	c.handler.Store(handlerBox{h: h})
}

func (c *Controller) commandHandler() tools.CommandHandler {
	return c.handler.Load().(handlerBox).h
}

// Agent returns the latest agent, or nil if none was set.
func (c *Controller) Agent() *types.AgentProfile {
	return c.agent.Load()
}

// State returns the connection state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the error that ended the last session, or nil.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// SessionID returns the current session's id, or "" when none is active.
func (c *Controller) SessionID() string {
	if ls := c.current(); ls != nil {
		return ls.id
	}
	return ""
}

// Speaking reports whether response audio is playing.
func (c *Controller) Speaking() bool {
	if ls := c.current(); ls != nil {
		return ls.scheduler.Speaking()
	}
	return false
}

// Level returns the output level in [0, 100].
func (c *Controller) Level() float64 {
	if ls := c.current(); ls != nil {
		return ls.timeline.Level()
	}
	return 0
}

// Capabilities returns what the remote model can currently perceive.
func (c *Controller) Capabilities() Capabilities {
	return c.DeviceState().Capabilities()
}

func (c *Controller) current() *liveSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.live
}

func (c *Controller) activateLocked(ctx context.Context, agent *types.AgentProfile) error {
	if c.live != nil {
		return ErrSessionActive
	}
	c.cancelReconnectLocked()

	if agent != nil {
		c.agent.Store(agent)
	} else if agent = c.agent.Load(); agent == nil {
		def := types.DefaultAgent
		agent = &def
		c.agent.Store(agent)
	}

	id := uuid.NewString()
	ctx = logger.WithSessionID(ctx, id)
	ctx = logger.WithAgentID(ctx, agent.ID)
	ctx = logger.WithModel(ctx, c.spec.Model)

	ls := newLiveSession(ctx, c, id, agent)
	c.live = ls
	c.err = nil
	c.transitionLocked(ls, StateConnecting)

	if err := ls.acquire(ctx); err != nil {
		c.teardownLocked(ls, err)
		return err
	}
	if c.devState.Load().ScreenSharing {
		if err := ls.startScreenShare(); err != nil {
			logger.WarnContext(ctx, "Screen share unavailable; using camera", "error", err)
			next := c.devState.Load().Apply(DeviceStatePatch{ScreenSharing: Bool(false)})
			c.devState.Store(&next)
		}
	}
	decls := functionDeclarations(c.registry)
	ls.open(c.transport, gemini.NewLiveConfig(&c.spec, agent, decls))
	return nil
}

// markOpen moves a connecting session to OPEN.
func (c *Controller) markOpen(ls *liveSession) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.live == ls && c.state == StateConnecting {
		c.transitionLocked(ls, StateOpen)
	}
}

// closeSession ends ls after its stream closed. A nil reason is a local
// close.
func (c *Controller) closeSession(ls *liveSession, reason error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if reason != nil && !errors.Is(reason, pkgerrors.ErrTransport) {
		reason = pkgerrors.Transport("Receive", reason)
	}
	c.teardownLocked(ls, reason)
}

// screenEnded reverts to the camera when the shared display ends on its own.
func (c *Controller) screenEnded(ls *liveSession, src device.FrameSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.live != ls || !ls.isScreen(src) {
		return
	}
	logger.InfoContext(ls.ctx, "Screen share ended; reverting to camera")
	c.setDeviceStateLocked(DeviceStatePatch{ScreenSharing: Bool(false)})
}

// teardownLocked releases ls. It is a no-op once ls is no longer current.
func (c *Controller) teardownLocked(ls *liveSession, cause error) {
	if c.live != ls {
		return
	}
	failedIn := c.state
	c.live = nil
	c.transitionLocked(ls, StateClosing)
	ls.release()

	c.err = cause
	if cause != nil {
		logger.ErrorContext(ls.ctx, "Live session failed", "state", failedIn.String(), "error", cause)
		ls.emitter.SessionFailed(cause, failedIn.String())
	}
	c.transitionLocked(ls, StateClosed)
}

func (c *Controller) transitionLocked(ls *liveSession, to State) {
	from := c.state
	if from == to {
		return
	}
	c.state = to
	logger.SessionState(ls.ctx, from.String(), to.String())
	ls.emitter.SessionStateChanged(from.String(), to.String())
}

func (c *Controller) scheduleReconnectLocked(ctx context.Context) {
	c.cancelReconnectLocked()
	c.reconnectGen++
	gen := c.reconnectGen
	ctx = context.WithoutCancel(ctx)
	c.reconnect = time.AfterFunc(c.spec.ReconnectGrace, func() {
		c.reactivate(ctx, gen)
	})
}

func (c *Controller) cancelReconnectLocked() {
	if c.reconnect != nil {
		c.reconnect.Stop()
		c.reconnect = nil
	}
	c.reconnectGen++
}

func (c *Controller) reactivate(ctx context.Context, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.reconnectGen || c.reconnect == nil {
		return
	}
	c.reconnect = nil
	if err := c.activateLocked(ctx, nil); err != nil {
		logger.ErrorContext(ctx, "Reconnect failed", "error", err)
	}
}
