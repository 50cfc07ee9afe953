package prometheus

import (
	"github.com/JECH20102004/dayugame/events"
)

// Status constants for metric labels.
const (
	statusSuccess = "success"
	statusError   = "error"
)

const (
	stateOpen        = "OPEN"
	sourceMicrophone = "microphone"
)

// MetricsListener records session events as Prometheus metrics.
// It should be registered with an EventBus using SubscribeAll.
type MetricsListener struct{}

// NewMetricsListener creates a new MetricsListener.
func NewMetricsListener() *MetricsListener {
	return &MetricsListener{}
}

// Handle processes an event and records relevant metrics.
func (l *MetricsListener) Handle(event *events.Event) {
	switch data := event.Data.(type) {
	case events.SessionStateChangedData:
		RecordTransition(data.From, data.To)
	case events.SessionFailedData:
		RecordSessionFailure(data.State)
	case events.AudioChunkSentData:
		RecordMediaSent("audio", sourceMicrophone, data.Bytes)
	case events.VideoFrameSentData:
		RecordMediaSent("frame", data.Source, data.Bytes)
	case events.MediaDroppedData:
		RecordMediaDropped(data.Kind)
	case events.PlaybackSegmentScheduledData:
		RecordSegment(data.Duration.Seconds(), data.Lead.Seconds())
	case events.PlaybackDecodeFailedData:
		RecordDecodeError()
	case events.PlaybackInterruptedData:
		RecordInterruption()
	case events.ToolCallCompletedData:
		RecordToolCall(data.ToolName, statusSuccess, data.Duration.Seconds())
	case events.ToolCallFailedData:
		RecordToolCall(data.ToolName, statusError, data.Duration.Seconds())
	case events.UsageReportedData:
		RecordTokens(data.PromptTokens, data.ResponseTokens)
	case events.TranscriptReceivedData:
		RecordTranscript(data.Source)
	default:
		// Ignore events that don't have metrics
	}
}

// Listener returns an events.Listener function that can be registered with an EventBus.
func (l *MetricsListener) Listener() events.Listener {
	return l.Handle
}
