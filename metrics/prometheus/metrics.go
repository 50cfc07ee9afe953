// Package prometheus provides Prometheus metrics for live sessions.
package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "dayugame"

var (
	// sessionsActive is a gauge of sessions currently OPEN.
	sessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of live sessions currently open",
		},
	)

	// sessionTransitionsTotal counts lifecycle transitions by target state.
	sessionTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_transitions_total",
			Help:      "Total number of live session state transitions",
		},
		[]string{"to"},
	)

	// sessionFailuresTotal counts session-fatal errors by the state they ended.
	sessionFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_failures_total",
			Help:      "Total number of session-fatal errors",
		},
		[]string{"state"},
	)

	// mediaChunksTotal counts chunks handed to the transport.
	mediaChunksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "media_chunks_sent_total",
			Help:      "Total number of media chunks handed to the transport",
		},
		[]string{"kind", "source"}, // kind: audio, frame
	)

	// mediaBytesTotal counts payload bytes handed to the transport.
	mediaBytesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "media_bytes_sent_total",
			Help:      "Total media payload bytes handed to the transport",
		},
		[]string{"kind"},
	)

	// mediaDroppedTotal counts chunks dropped on a full send queue.
	mediaDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "media_dropped_total",
			Help:      "Total number of media chunks dropped on a full send queue",
		},
		[]string{"kind"},
	)

	// playbackSegmentDuration is a histogram of scheduled segment lengths.
	playbackSegmentDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "playback_segment_duration_seconds",
			Help:      "Duration of scheduled response audio segments in seconds",
			Buckets:   []float64{.01, .025, .05, .1, .2, .5, 1, 2},
		},
	)

	// playbackLead is a histogram of how far ahead of the output clock
	// segments were scheduled. Zero means playback had run dry.
	playbackLead = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "playback_lead_seconds",
			Help:      "How far ahead of the output clock response segments start",
			Buckets:   []float64{0, .02, .05, .1, .25, .5, 1, 2.5, 5},
		},
	)

	// playbackDecodeErrorsTotal counts dropped response fragments.
	playbackDecodeErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "playback_decode_errors_total",
			Help:      "Total number of undecodable response fragments",
		},
	)

	// playbackInterruptionsTotal counts interruptions.
	playbackInterruptionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "playback_interruptions_total",
			Help:      "Total number of playback interruptions",
		},
	)

	// toolCallDuration is a histogram of tool call duration.
	toolCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_call_duration_seconds",
			Help:      "Duration of tool calls in seconds",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
		},
		[]string{"tool"},
	)

	// toolCallsTotal is a counter of tool calls.
	toolCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Total number of tool calls",
		},
		[]string{"tool", "status"}, // status: success, error
	)

	// tokensTotal counts tokens reported by the model.
	tokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_total",
			Help:      "Total tokens reported by the live model",
		},
		[]string{"type"}, // type: prompt, response
	)

	// transcriptsTotal counts transcription fragments.
	transcriptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcripts_total",
			Help:      "Total number of transcription fragments received",
		},
		[]string{"source"},
	)

	// allMetrics is a list of all metrics for registration.
	allMetrics = []prometheus.Collector{
		sessionsActive,
		sessionTransitionsTotal,
		sessionFailuresTotal,
		mediaChunksTotal,
		mediaBytesTotal,
		mediaDroppedTotal,
		playbackSegmentDuration,
		playbackLead,
		playbackDecodeErrorsTotal,
		playbackInterruptionsTotal,
		toolCallDuration,
		toolCallsTotal,
		tokensTotal,
		transcriptsTotal,
	}
)

// RecordTransition records a session state transition. Entering OPEN
// raises the active gauge; leaving it lowers the gauge.
func RecordTransition(from, to string) {
	sessionTransitionsTotal.WithLabelValues(to).Inc()
	if to == stateOpen {
		sessionsActive.Inc()
	}
	if from == stateOpen {
		sessionsActive.Dec()
	}
}

// RecordSessionFailure records a session-fatal error.
func RecordSessionFailure(state string) {
	sessionFailuresTotal.WithLabelValues(state).Inc()
}

// RecordMediaSent records a chunk handed to the transport.
func RecordMediaSent(kind, source string, bytes int) {
	mediaChunksTotal.WithLabelValues(kind, source).Inc()
	mediaBytesTotal.WithLabelValues(kind).Add(float64(bytes))
}

// RecordMediaDropped records a chunk dropped on a full send queue.
func RecordMediaDropped(kind string) {
	mediaDroppedTotal.WithLabelValues(kind).Inc()
}

// RecordSegment records a scheduled response segment.
func RecordSegment(durationSeconds, leadSeconds float64) {
	playbackSegmentDuration.Observe(durationSeconds)
	playbackLead.Observe(leadSeconds)
}

// RecordDecodeError records an undecodable response fragment.
func RecordDecodeError() {
	playbackDecodeErrorsTotal.Inc()
}

// RecordInterruption records a playback interruption.
func RecordInterruption() {
	playbackInterruptionsTotal.Inc()
}

// RecordToolCall records a tool call.
func RecordToolCall(toolName, status string, durationSeconds float64) {
	toolCallDuration.WithLabelValues(toolName).Observe(durationSeconds)
	toolCallsTotal.WithLabelValues(toolName, status).Inc()
}

// RecordTokens records token usage.
func RecordTokens(promptTokens, responseTokens int) {
	if promptTokens > 0 {
		tokensTotal.WithLabelValues("prompt").Add(float64(promptTokens))
	}
	if responseTokens > 0 {
		tokensTotal.WithLabelValues("response").Add(float64(responseTokens))
	}
}

// RecordTranscript records a transcription fragment.
func RecordTranscript(source string) {
	transcriptsTotal.WithLabelValues(source).Inc()
}
