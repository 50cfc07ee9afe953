// Package types holds the data shared between the live session components:
// outbound media chunks, inbound events, tool call requests and results, and
// the agent profile snapshot.
package types

import (
	"encoding/json"
	"time"
)

// MediaKind distinguishes the two MediaChunk variants.
type MediaKind int

const (
	// MediaAudio is a PCM16 mono audio chunk.
	MediaAudio MediaKind = iota
	// MediaFrame is a compressed still image.
	MediaFrame
)

// String returns "audio" or "frame".
func (k MediaKind) String() string {
	switch k {
	case MediaAudio:
		return "audio"
	case MediaFrame:
		return "frame"
	default:
		return "unknown"
	}
}

// MediaChunk is one unit of outbound media. Exactly one of the audio or
// frame field groups is meaningful, selected by Kind.
type MediaChunk struct {
	Kind MediaKind

	// Data is raw little-endian PCM16 for audio, or encoded image bytes for frames.
	Data []byte

	// SampleRate is set for audio chunks.
	SampleRate int

	// MIMEType is set for frames, e.g. "image/jpeg".
	MIMEType string

	// Timestamp is when the chunk was captured.
	Timestamp time.Time
}

// NewAudioChunk builds an audio MediaChunk.
func NewAudioChunk(pcm []byte, sampleRate int) MediaChunk {
	return MediaChunk{Kind: MediaAudio, Data: pcm, SampleRate: sampleRate, Timestamp: time.Now()}
}

// NewFrameChunk builds a frame MediaChunk.
func NewFrameChunk(data []byte, mimeType string) MediaChunk {
	return MediaChunk{Kind: MediaFrame, Data: data, MIMEType: mimeType, Timestamp: time.Now()}
}

// InboundEvent is one event received from the remote session, in arrival
// order. The concrete types below are the only implementations.
type InboundEvent interface {
	inboundEvent()
}

// Opened signals that setup completed and the session accepts media.
type Opened struct{}

// AudioFragment carries one piece of response audio.
type AudioFragment struct {
	// Data is decoded (not base64) audio.
	Data []byte
	// MIMEType is as sent by the server, e.g. "audio/pcm;rate=24000".
	MIMEType string
	// Seq is the fragment's position in the response stream.
	Seq int64
}

// ToolCallRequest asks the local side to run a named function.
type ToolCallRequest struct {
	ID   string
	Name string
	Args map[string]any
}

// ArgsJSON returns the arguments as a JSON document; nil args encode as {}.
func (r ToolCallRequest) ArgsJSON() json.RawMessage {
	if r.Args == nil {
		return json.RawMessage("{}")
	}
	data, err := json.Marshal(r.Args)
	if err != nil {
		return json.RawMessage("{}")
	}
	return data
}

// Interrupted signals that the remote model cut its own output short.
type Interrupted struct{}

// Closed is the final event of a stream. Reason is nil for a local close.
type Closed struct {
	Reason error
}

// TranscriptSource tells whose speech a transcript belongs to.
type TranscriptSource string

// Transcript sources.
const (
	TranscriptInput  TranscriptSource = "input"
	TranscriptOutput TranscriptSource = "output"
)

// Transcript carries a speech transcription fragment.
type Transcript struct {
	Source TranscriptSource
	Text   string
}

// TurnComplete marks the end of a model turn.
type TurnComplete struct{}

// Usage reports token accounting sent by the server.
type Usage struct {
	PromptTokens   int
	ResponseTokens int
	TotalTokens    int
}

func (Opened) inboundEvent()          {}
func (AudioFragment) inboundEvent()   {}
func (ToolCallRequest) inboundEvent() {}
func (Interrupted) inboundEvent()     {}
func (Closed) inboundEvent()          {}
func (Transcript) inboundEvent()      {}
func (TurnComplete) inboundEvent()    {}
func (Usage) inboundEvent()           {}

// ToolCallResult answers exactly one ToolCallRequest.
type ToolCallResult struct {
	ID      string
	Name    string
	Result  map[string]any
	IsError bool
}
