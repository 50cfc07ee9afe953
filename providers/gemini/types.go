package gemini

import "encoding/json"

// ServerMessage represents a message from the Gemini server (BidiGenerateContentServerMessage)
type ServerMessage struct {
	SetupComplete        *SetupComplete        `json:"setupComplete,omitempty"`
	ServerContent        *ServerContent        `json:"serverContent,omitempty"`
	ToolCall             *ToolCallMsg          `json:"toolCall,omitempty"`
	ToolCallCancellation *ToolCallCancellation `json:"toolCallCancellation,omitempty"`
	UsageMetadata        *UsageMetadata        `json:"usageMetadata,omitempty"`
	GoAway               *GoAway               `json:"goAway,omitempty"`
}

// UsageMetadata contains token usage information
type UsageMetadata struct {
	PromptTokenCount   int `json:"promptTokenCount,omitempty"`
	ResponseTokenCount int `json:"responseTokenCount,omitempty"`
	TotalTokenCount    int `json:"totalTokenCount,omitempty"`
}

// SetupComplete indicates setup is complete (empty object per docs)
type SetupComplete struct{}

// ToolCallMsg represents a tool call from the model
type ToolCallMsg struct {
	FunctionCalls []FunctionCall `json:"functionCalls,omitempty"`
}

// ToolCallCancellation lists call ids the server no longer wants answered.
type ToolCallCancellation struct {
	IDs []string `json:"ids,omitempty"`
}

// GoAway warns that the server will disconnect soon.
type GoAway struct {
	TimeLeft string `json:"timeLeft,omitempty"`
}

// FunctionCall represents a function call
type FunctionCall struct {
	Name string         `json:"name,omitempty"`
	ID   string         `json:"id,omitempty"`
	Args map[string]any `json:"args,omitempty"`
}

// ServerContent represents the server content (BidiGenerateContentServerContent)
type ServerContent struct {
	ModelTurn           *ModelTurn     `json:"modelTurn,omitempty"`
	TurnComplete        bool           `json:"turnComplete,omitempty"`
	GenerationComplete  bool           `json:"generationComplete,omitempty"`
	Interrupted         bool           `json:"interrupted,omitempty"`
	InputTranscription  *Transcription `json:"inputTranscription,omitempty"`
	OutputTranscription *Transcription `json:"outputTranscription,omitempty"`
}

// Transcription represents audio transcription (BidiGenerateContentTranscription)
type Transcription struct {
	Text string `json:"text,omitempty"`
}

// ModelTurn represents a model response turn
type ModelTurn struct {
	Parts []Part `json:"parts,omitempty"`
}

// Part represents a content part (text or inline data)
type Part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inlineData,omitempty"`
}

// InlineData represents inline media data
type InlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"` // base64
}

// Client messages.

type setupMessage struct {
	Setup setupContent `json:"setup"`
}

type setupContent struct {
	Model                    string               `json:"model"`
	GenerationConfig         generationConfig     `json:"generationConfig"`
	SystemInstruction        *content             `json:"systemInstruction,omitempty"`
	Tools                    []toolSet            `json:"tools,omitempty"`
	RealtimeInputConfig      *realtimeInputConfig `json:"realtimeInputConfig,omitempty"`
	InputAudioTranscription  *struct{}            `json:"inputAudioTranscription,omitempty"`
	OutputAudioTranscription *struct{}            `json:"outputAudioTranscription,omitempty"`
}

type generationConfig struct {
	ResponseModalities []string      `json:"responseModalities"`
	SpeechConfig       *speechConfig `json:"speechConfig,omitempty"`
}

type speechConfig struct {
	VoiceConfig voiceConfig `json:"voiceConfig"`
}

type voiceConfig struct {
	PrebuiltVoiceConfig prebuiltVoiceConfig `json:"prebuiltVoiceConfig"`
}

type prebuiltVoiceConfig struct {
	VoiceName string `json:"voiceName"`
}

type content struct {
	Parts []textPart `json:"parts"`
}

type textPart struct {
	Text string `json:"text"`
}

type toolSet struct {
	FunctionDeclarations []FunctionDeclaration `json:"functionDeclarations"`
}

// FunctionDeclaration describes one callable tool to the model.
type FunctionDeclaration struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

type realtimeInputConfig struct {
	AutomaticActivityDetection map[string]any `json:"automaticActivityDetection"`
}

type realtimeInputMessage struct {
	RealtimeInput realtimeInput `json:"realtime_input"`
}

type realtimeInput struct {
	MediaChunks []mediaChunk `json:"media_chunks"`
}

type mediaChunk struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type toolResponseMessage struct {
	ToolResponse toolResponse `json:"toolResponse"`
}

type toolResponse struct {
	FunctionResponses []functionResponse `json:"functionResponses"`
}

type functionResponse struct {
	ID       string         `json:"id"`
	Name     string         `json:"name,omitempty"`
	Response map[string]any `json:"response"`
	Error    bool           `json:"error,omitempty"`
}
