package gemini

import (
	"strings"
	"time"

	"github.com/JECH20102004/dayugame/pkg/config"
	"github.com/JECH20102004/dayugame/types"
)

const (
	modalityAudio = "AUDIO"
	modelPrefix   = "models/"
)

// LiveConfig describes one live session: what to connect to and how the
// model should behave.
type LiveConfig struct {
	Model             string
	Endpoint          string
	Voice             string
	SystemInstruction string
	Tools             []FunctionDeclaration
	VAD               *VADConfig

	InputTranscription  bool
	OutputTranscription bool

	DialTimeout       time.Duration
	DialAttempts      int
	SetupTimeout      time.Duration
	HeartbeatInterval time.Duration
	SendQueueSize     int
}

// VADConfig configures server-side automatic activity detection.
type VADConfig struct {
	Disabled          bool
	StartSensitivity  string
	EndSensitivity    string
	PrefixPaddingMs   int
	SilenceDurationMs int
}

// Defaults for a LiveConfig built by hand.
const (
	DefaultSetupTimeout  = 10 * time.Second
	DefaultSendQueueSize = 64
)

// NewLiveConfig builds a LiveConfig from runtime settings and an agent
// snapshot.
func NewLiveConfig(spec *config.LiveConfigSpec, agent *types.AgentProfile, tools []FunctionDeclaration) LiveConfig {
	cfg := LiveConfig{
		Model:               spec.Model,
		Endpoint:            spec.Endpoint,
		Voice:               agent.VoiceName(),
		SystemInstruction:   agent.Instruction(),
		Tools:               tools,
		InputTranscription:  spec.Transcription.Input,
		OutputTranscription: spec.Transcription.Output,
		DialTimeout:         spec.DialTimeout,
		DialAttempts:        spec.DialAttempts,
		SetupTimeout:        spec.SetupTimeout,
		HeartbeatInterval:   spec.HeartbeatInterval,
		SendQueueSize:       spec.SendQueueSize,
	}
	v := spec.VAD
	if v.Disabled || v.StartSensitivity != "" || v.EndSensitivity != "" || v.PrefixPadding > 0 || v.SilenceDuration > 0 {
		cfg.VAD = &VADConfig{
			Disabled:          v.Disabled,
			StartSensitivity:  v.StartSensitivity,
			EndSensitivity:    v.EndSensitivity,
			PrefixPaddingMs:   int(v.PrefixPadding / time.Millisecond),
			SilenceDurationMs: int(v.SilenceDuration / time.Millisecond),
		}
	}
	return cfg
}

// buildSetupMessage constructs the initial setup message for the Live API.
func buildSetupMessage(cfg *LiveConfig) setupMessage {
	voice := cfg.Voice
	if voice == "" {
		voice = types.DefaultVoice
	}

	setup := setupContent{
		Model: modelPath(cfg.Model),
		GenerationConfig: generationConfig{
			ResponseModalities: []string{modalityAudio},
			SpeechConfig: &speechConfig{
				VoiceConfig: voiceConfig{PrebuiltVoiceConfig: prebuiltVoiceConfig{VoiceName: voice}},
			},
		},
	}

	if cfg.SystemInstruction != "" {
		setup.SystemInstruction = &content{Parts: []textPart{{Text: cfg.SystemInstruction}}}
	}
	if len(cfg.Tools) > 0 {
		setup.Tools = []toolSet{{FunctionDeclarations: cfg.Tools}}
	}
	if vad := buildVADConfigMap(cfg.VAD); len(vad) > 0 {
		setup.RealtimeInputConfig = &realtimeInputConfig{AutomaticActivityDetection: vad}
	}
	if cfg.InputTranscription {
		setup.InputAudioTranscription = &struct{}{}
	}
	if cfg.OutputTranscription {
		setup.OutputAudioTranscription = &struct{}{}
	}

	return setupMessage{Setup: setup}
}

// modelPath ensures model is in the form models/{model}.
func modelPath(model string) string {
	if model == "" {
		model = config.DefaultModel
	}
	if strings.HasPrefix(model, modelPrefix) {
		return model
	}
	return modelPrefix + model
}

func buildVADConfigMap(vad *VADConfig) map[string]any {
	if vad == nil {
		return nil
	}
	if vad.Disabled {
		return map[string]any{"disabled": true}
	}

	m := map[string]any{}
	if vad.StartSensitivity != "" {
		m["startOfSpeechSensitivity"] = vad.StartSensitivity
	}
	if vad.EndSensitivity != "" {
		m["endOfSpeechSensitivity"] = vad.EndSensitivity
	}
	if vad.PrefixPaddingMs > 0 {
		m["prefixPaddingMs"] = vad.PrefixPaddingMs
	}
	if vad.SilenceDurationMs > 0 {
		m["silenceDurationMs"] = vad.SilenceDurationMs
	}
	return m
}
