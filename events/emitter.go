package events

import (
	"time"

	"github.com/JECH20102004/dayugame/types"
)

// Emitter publishes session events with shared metadata. A nil Emitter is
// valid and discards everything.
type Emitter struct {
	bus       *EventBus
	sessionID string
	agentID   string
}

// NewEmitter creates a new event emitter.
func NewEmitter(bus *EventBus, sessionID, agentID string) *Emitter {
	return &Emitter{bus: bus, sessionID: sessionID, agentID: agentID}
}

// SessionID returns the session the emitter is bound to.
func (e *Emitter) SessionID() string {
	if e == nil {
		return ""
	}
	return e.sessionID
}

// emit publishes an event with shared context fields.
func (e *Emitter) emit(eventType EventType, data EventData) {
	if e == nil || e.bus == nil {
		return
	}
	e.bus.Publish(&Event{
		Type:      eventType,
		Timestamp: time.Now(),
		SessionID: e.sessionID,
		AgentID:   e.agentID,
		Data:      data,
	})
}

// SessionStateChanged emits the session.state_changed event.
func (e *Emitter) SessionStateChanged(from, to string) {
	e.emit(EventSessionStateChanged, SessionStateChangedData{From: from, To: to})
}

// SessionFailed emits the session.failed event.
func (e *Emitter) SessionFailed(err error, state string) {
	e.emit(EventSessionFailed, SessionFailedData{Error: err, State: state})
}

// AudioChunkSent emits the audio.chunk_sent event.
func (e *Emitter) AudioChunkSent(bytes, sampleRate int, gain float64) {
	e.emit(EventAudioChunkSent, AudioChunkSentData{Bytes: bytes, SampleRate: sampleRate, Gain: gain})
}

// VideoFrameSent emits the video.frame_sent event.
func (e *Emitter) VideoFrameSent(bytes int, mimeType, source string) {
	e.emit(EventVideoFrameSent, VideoFrameSentData{Bytes: bytes, MIMEType: mimeType, Source: source})
}

// MediaDropped emits the media.dropped event.
func (e *Emitter) MediaDropped(chunk types.MediaChunk) {
	e.emit(EventMediaDropped, MediaDroppedData{Kind: chunk.Kind.String(), Bytes: len(chunk.Data)})
}

// PlaybackSegmentScheduled emits the playback.segment_scheduled event.
func (e *Emitter) PlaybackSegmentScheduled(seq int64, start, duration, lead time.Duration) {
	e.emit(EventPlaybackSegmentScheduled, PlaybackSegmentScheduledData{
		Seq:      seq,
		Start:    start,
		Duration: duration,
		Lead:     lead,
	})
}

// PlaybackDecodeFailed emits the playback.decode_failed event.
func (e *Emitter) PlaybackDecodeFailed(seq int64, err error) {
	e.emit(EventPlaybackDecodeFailed, PlaybackDecodeFailedData{Seq: seq, Error: err})
}

// PlaybackInterrupted emits the playback.interrupted event.
func (e *Emitter) PlaybackInterrupted(discarded int) {
	e.emit(EventPlaybackInterrupted, PlaybackInterruptedData{Discarded: discarded})
}

// PlaybackSpeakingChanged emits the playback.speaking_changed event.
func (e *Emitter) PlaybackSpeakingChanged(speaking bool) {
	e.emit(EventPlaybackSpeakingChanged, PlaybackSpeakingChangedData{Speaking: speaking})
}

// ToolCallStarted emits the tool.call_started event.
func (e *Emitter) ToolCallStarted(toolName, callID string, args map[string]any) {
	e.emit(EventToolCallStarted, ToolCallStartedData{ToolName: toolName, CallID: callID, Args: args})
}

// ToolCallCompleted emits the tool.call_completed event.
func (e *Emitter) ToolCallCompleted(toolName, callID string, duration time.Duration) {
	e.emit(EventToolCallCompleted, ToolCallCompletedData{ToolName: toolName, CallID: callID, Duration: duration})
}

// ToolCallFailed emits the tool.call_failed event.
func (e *Emitter) ToolCallFailed(toolName, callID, message string, duration time.Duration) {
	e.emit(EventToolCallFailed, ToolCallFailedData{
		ToolName: toolName,
		CallID:   callID,
		Message:  message,
		Duration: duration,
	})
}

// TranscriptReceived emits the transcript.received event.
func (e *Emitter) TranscriptReceived(source, text string) {
	e.emit(EventTranscriptReceived, TranscriptReceivedData{Source: source, Text: text})
}

// UsageReported emits the usage.reported event.
func (e *Emitter) UsageReported(prompt, response, total int) {
	e.emit(EventUsageReported, UsageReportedData{PromptTokens: prompt, ResponseTokens: response, TotalTokens: total})
}
