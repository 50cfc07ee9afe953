package events

import "time"

// EventType identifies the type of event emitted by the live session.
type EventType string

const (
	// EventSessionStateChanged marks a lifecycle transition.
	EventSessionStateChanged EventType = "session.state_changed"
	// EventSessionFailed marks a session-fatal error.
	EventSessionFailed EventType = "session.failed"

	// EventAudioChunkSent marks a microphone chunk handed to the transport.
	EventAudioChunkSent EventType = "audio.chunk_sent"
	// EventVideoFrameSent marks a video frame handed to the transport.
	EventVideoFrameSent EventType = "video.frame_sent"
	// EventMediaDropped marks a chunk dropped on a full send queue.
	EventMediaDropped EventType = "media.dropped"

	// EventPlaybackSegmentScheduled marks a response segment placed on the timeline.
	EventPlaybackSegmentScheduled EventType = "playback.segment_scheduled"
	// EventPlaybackDecodeFailed marks a response fragment dropped as undecodable.
	EventPlaybackDecodeFailed EventType = "playback.decode_failed"
	// EventPlaybackInterrupted marks an interruption from the remote side.
	EventPlaybackInterrupted EventType = "playback.interrupted"
	// EventPlaybackSpeakingChanged marks the speaking indicator flipping.
	EventPlaybackSpeakingChanged EventType = "playback.speaking_changed"

	// EventToolCallStarted marks tool call start.
	EventToolCallStarted EventType = "tool.call_started"
	// EventToolCallCompleted marks tool call completion.
	EventToolCallCompleted EventType = "tool.call_completed"
	// EventToolCallFailed marks a tool call answered with an error result.
	EventToolCallFailed EventType = "tool.call_failed"

	// EventTranscriptReceived marks an input or output transcription.
	EventTranscriptReceived EventType = "transcript.received"
	// EventUsageReported marks token usage reported by the model.
	EventUsageReported EventType = "usage.reported"
)

// EventData is a marker interface for event payloads.
type EventData interface {
	eventData()
}

// Event represents a session event delivered to listeners.
type Event struct {
	Type      EventType
	Timestamp time.Time
	SessionID string
	AgentID   string
	Data      EventData
}

// baseEventData provides a shared marker implementation for all event payloads.
type baseEventData struct{}

func (baseEventData) eventData() {}

// SessionStateChangedData contains data for session state transitions.
type SessionStateChangedData struct {
	baseEventData
	From string
	To   string
}

// SessionFailedData contains data for session-fatal errors.
type SessionFailedData struct {
	baseEventData
	Error error
	State string
}

// AudioChunkSentData contains data for outbound audio chunks.
type AudioChunkSentData struct {
	baseEventData
	Bytes      int
	SampleRate int
	Gain       float64
}

// VideoFrameSentData contains data for outbound video frames.
type VideoFrameSentData struct {
	baseEventData
	Bytes    int
	MIMEType string
	Source   string // "camera" | "screen"
}

// MediaDroppedData contains data for chunks dropped on a full send queue.
type MediaDroppedData struct {
	baseEventData
	Kind  string
	Bytes int
}

// PlaybackSegmentScheduledData contains data for scheduled response audio.
type PlaybackSegmentScheduledData struct {
	baseEventData
	Seq      int64
	Start    time.Duration
	Duration time.Duration
	// Lead is how far ahead of the output clock the segment starts.
	Lead time.Duration
}

// PlaybackDecodeFailedData contains data for dropped response fragments.
type PlaybackDecodeFailedData struct {
	baseEventData
	Seq   int64
	Error error
}

// PlaybackInterruptedData contains data for interruptions.
type PlaybackInterruptedData struct {
	baseEventData
	// Discarded is the number of segments that were active or queued.
	Discarded int
}

// PlaybackSpeakingChangedData contains data for speaking transitions.
type PlaybackSpeakingChangedData struct {
	baseEventData
	Speaking bool
}

// ToolCallStartedData contains data for tool call start events.
type ToolCallStartedData struct {
	baseEventData
	ToolName string
	CallID   string
	Args     map[string]any
}

// ToolCallCompletedData contains data for tool call completion events.
type ToolCallCompletedData struct {
	baseEventData
	ToolName string
	CallID   string
	Duration time.Duration
}

// ToolCallFailedData contains data for tool calls answered with an error.
type ToolCallFailedData struct {
	baseEventData
	ToolName string
	CallID   string
	Message  string
	Duration time.Duration
}

// TranscriptReceivedData contains data for transcription events.
type TranscriptReceivedData struct {
	baseEventData
	Source string // "input" | "output"
	Text   string
}

// UsageReportedData contains data for token usage events.
type UsageReportedData struct {
	baseEventData
	PromptTokens   int
	ResponseTokens int
	TotalTokens    int
}
