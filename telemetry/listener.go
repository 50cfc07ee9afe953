package telemetry

import (
	"context"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/JECH20102004/dayugame/events"
)

// Session states that open and close the root span.
const (
	stateConnecting = "CONNECTING"
	stateClosed     = "CLOSED"
)

// Span names.
const (
	spanSession = "dayugame.session"
	spanTool    = "dayugame.tool"
)

// sessionState tracks the root span for a session.
type sessionState struct {
	span trace.Span
	ctx  context.Context //nolint:containedctx // needed to parent child spans
}

// OTelEventListener converts session events into OTel spans in real time.
// A session's root span runs from CONNECTING to CLOSED; tool calls become
// child spans and playback interruptions become span events on the root.
// It is safe for concurrent use.
type OTelEventListener struct {
	tracer trace.Tracer

	mu       sync.Mutex
	sessions map[string]*sessionState // sessionID → root span + ctx
	inflight map[string]trace.Span    // "<sessionID>/<callID>" → tool span
}

// NewOTelEventListener creates a listener that creates OTel spans from session events.
func NewOTelEventListener(tracer trace.Tracer) *OTelEventListener {
	return &OTelEventListener{
		tracer:   tracer,
		sessions: make(map[string]*sessionState),
		inflight: make(map[string]trace.Span),
	}
}

// StartSession creates a root span for the given session, optionally parented
// under the span context in parentCtx. A second start for the same session
// is ignored.
func (l *OTelEventListener) StartSession(parentCtx context.Context, sessionID, agentID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.sessions[sessionID]; ok {
		return
	}
	ctx, span := l.tracer.Start(parentCtx, spanSession,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
			attribute.String("agent.id", agentID),
		),
	)
	l.sessions[sessionID] = &sessionState{span: span, ctx: ctx}
}

// EndSession ends the root span for the given session, and any tool spans
// still open under it.
func (l *OTelEventListener) EndSession(sessionID string) {
	l.mu.Lock()
	ss, ok := l.sessions[sessionID]
	if ok {
		delete(l.sessions, sessionID)
	}
	var orphans []trace.Span
	prefix := sessionID + "/"
	for key, span := range l.inflight {
		if strings.HasPrefix(key, prefix) {
			orphans = append(orphans, span)
			delete(l.inflight, key)
		}
	}
	l.mu.Unlock()

	for _, span := range orphans {
		span.SetStatus(codes.Error, "session ended")
		span.End()
	}
	if ok {
		ss.span.End()
	}
}

// OnEvent handles a single session event and creates or completes spans.
// It can be passed to EventBus.SubscribeAll.
func (l *OTelEventListener) OnEvent(evt *events.Event) {
	switch data := evt.Data.(type) {
	case events.SessionStateChangedData:
		switch data.To {
		case stateConnecting:
			l.StartSession(context.Background(), evt.SessionID, evt.AgentID)
		case stateClosed:
			l.EndSession(evt.SessionID)
		}
	case events.SessionFailedData:
		l.withRoot(evt.SessionID, func(span trace.Span) {
			span.SetStatus(codes.Error, data.Error)
			span.SetAttributes(attribute.String("session.failed_state", data.State))
		})
	case events.ToolCallStartedData:
		l.startTool(evt, data)
	case events.ToolCallCompletedData:
		l.endTool(evt.SessionID, data.CallID, "",
			attribute.Int64("tool.duration_ms", data.Duration.Milliseconds()))
	case events.ToolCallFailedData:
		l.endTool(evt.SessionID, data.CallID, data.Message,
			attribute.Int64("tool.duration_ms", data.Duration.Milliseconds()))
	case events.PlaybackInterruptedData:
		l.withRoot(evt.SessionID, func(span trace.Span) {
			span.AddEvent("playback.interrupted", trace.WithAttributes(
				attribute.Int("playback.discarded", data.Discarded),
			), trace.WithTimestamp(evt.Timestamp))
		})
	case events.UsageReportedData:
		l.withRoot(evt.SessionID, func(span trace.Span) {
			span.SetAttributes(
				attribute.Int("usage.prompt_tokens", data.PromptTokens),
				attribute.Int("usage.response_tokens", data.ResponseTokens),
				attribute.Int("usage.total_tokens", data.TotalTokens),
			)
		})
	default:
	}
}

// sessionCtx returns the context for the session (to parent child spans).
// Falls back to context.Background() if the session is unknown.
func (l *OTelEventListener) sessionCtx(sessionID string) context.Context {
	l.mu.Lock()
	defer l.mu.Unlock()
	if ss, ok := l.sessions[sessionID]; ok {
		return ss.ctx
	}
	return context.Background()
}

func (l *OTelEventListener) withRoot(sessionID string, fn func(trace.Span)) {
	l.mu.Lock()
	ss, ok := l.sessions[sessionID]
	l.mu.Unlock()
	if ok {
		fn(ss.span)
	}
}

func (l *OTelEventListener) startTool(evt *events.Event, data events.ToolCallStartedData) {
	_, span := l.tracer.Start(l.sessionCtx(evt.SessionID), spanTool,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithTimestamp(evt.Timestamp),
		trace.WithAttributes(
			attribute.String("tool.name", data.ToolName),
			attribute.String("tool.call_id", data.CallID),
		),
	)
	l.mu.Lock()
	l.inflight[toolKey(evt.SessionID, data.CallID)] = span
	l.mu.Unlock()
}

// endTool ends a tool span. An empty errMsg marks success.
func (l *OTelEventListener) endTool(sessionID, callID, errMsg string, attrs ...attribute.KeyValue) {
	key := toolKey(sessionID, callID)
	l.mu.Lock()
	span, ok := l.inflight[key]
	delete(l.inflight, key)
	l.mu.Unlock()
	if !ok {
		return
	}
	span.SetAttributes(attrs...)
	if errMsg != "" {
		span.SetStatus(codes.Error, errMsg)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

func toolKey(sessionID, callID string) string {
	return sessionID + "/" + callID
}
