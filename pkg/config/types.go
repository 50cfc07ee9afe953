// Package config loads the LiveConfig manifest that tunes the live session
// runtime: endpoint and model, timings, media encoding, voice activity
// detection, authentication, logging, metrics and tracing.
package config

import (
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// Manifest identifiers.
const (
	APIVersion = "dayugame.app/v1alpha1"
	KindLive   = "LiveConfig"
)

// Auth methods.
const (
	AuthAPIKey = "apiKey"
	AuthADC    = "adc"
)

// LiveConfig is the K8s-style manifest wrapping LiveConfigSpec.
type LiveConfig struct {
	APIVersion string            `yaml:"apiVersion"`
	Kind       string            `yaml:"kind"`
	Metadata   metav1.ObjectMeta `yaml:"metadata,omitempty"`
	Spec       LiveConfigSpec    `yaml:"spec"`
}

// LiveConfigSpec holds every tunable of the live session runtime.
type LiveConfigSpec struct {
	Model    string `yaml:"model"`
	Endpoint string `yaml:"endpoint"`

	DialTimeout       time.Duration `yaml:"dialTimeout"`
	DialAttempts      int           `yaml:"dialAttempts"`
	SetupTimeout      time.Duration `yaml:"setupTimeout"`
	HeartbeatInterval time.Duration `yaml:"heartbeatInterval"`
	SendQueueSize     int           `yaml:"sendQueueSize"`

	// ReconnectGrace is the pause between teardown and reactivation when
	// the agent identity changes mid-session.
	ReconnectGrace time.Duration `yaml:"reconnectGrace"`

	FrameInterval      time.Duration `yaml:"frameInterval"`
	FrameScale         int           `yaml:"frameScale"`
	JPEGQuality        int           `yaml:"jpegQuality"`
	MaxFramesPerSecond float64       `yaml:"maxFramesPerSecond"`

	InputSampleRate      int           `yaml:"inputSampleRate"`
	OutputSampleRate     int           `yaml:"outputSampleRate"`
	GainRampTimeConstant time.Duration `yaml:"gainRampTimeConstant"`

	VAD           VADConfig           `yaml:"vad"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Auth          AuthConfig          `yaml:"auth"`
	Logging       LoggingConfigSpec   `yaml:"logging"`
	Metrics       MetricsConfig       `yaml:"metrics"`
	Tracing       TracingConfig       `yaml:"tracing"`
}

// VADConfig configures server-side automatic activity detection.
type VADConfig struct {
	Disabled         bool          `yaml:"disabled"`
	StartSensitivity string        `yaml:"startSensitivity,omitempty"`
	EndSensitivity   string        `yaml:"endSensitivity,omitempty"`
	PrefixPadding    time.Duration `yaml:"prefixPadding,omitempty"`
	SilenceDuration  time.Duration `yaml:"silenceDuration,omitempty"`
}

// TranscriptionConfig toggles server-side transcription of each direction.
type TranscriptionConfig struct {
	Input  bool `yaml:"input"`
	Output bool `yaml:"output"`
}

// AuthConfig selects how the Live endpoint is authenticated.
type AuthConfig struct {
	Method string `yaml:"method"`
	APIKey string `yaml:"apiKey,omitempty"`
}

// MetricsConfig configures the Prometheus exporter. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr,omitempty"`
}

// TracingConfig configures OTLP trace export. An empty Endpoint disables it.
type TracingConfig struct {
	Endpoint   string  `yaml:"endpoint,omitempty"`
	Insecure   bool    `yaml:"insecure,omitempty"`
	SampleRate float64 `yaml:"sampleRate,omitempty"`
}

// Default values.
const (
	DefaultModel    = "gemini-2.5-flash-native-audio-preview-09-2025"
	DefaultEndpoint = "wss://generativelanguage.googleapis.com/ws/" +
		"google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"
)

// Default returns the settings used when no manifest is supplied.
func Default() LiveConfigSpec {
	return LiveConfigSpec{
		Model:                DefaultModel,
		Endpoint:             DefaultEndpoint,
		DialTimeout:          10 * time.Second,
		DialAttempts:         1,
		SetupTimeout:         10 * time.Second,
		HeartbeatInterval:    30 * time.Second,
		SendQueueSize:        64,
		ReconnectGrace:       500 * time.Millisecond,
		FrameInterval:        time.Second,
		FrameScale:           4,
		JPEGQuality:          50,
		MaxFramesPerSecond:   2,
		InputSampleRate:      16000,
		OutputSampleRate:     24000,
		GainRampTimeConstant: 100 * time.Millisecond,
		Transcription:        TranscriptionConfig{Input: true, Output: true},
		Auth:                 AuthConfig{Method: AuthAPIKey},
		Logging:              DefaultLoggingConfig(),
		Tracing:              TracingConfig{SampleRate: 1.0},
	}
}

// Validate checks value ranges that the schema cannot express.
func (s *LiveConfigSpec) Validate() error {
	positive := []struct {
		field string
		ok    bool
	}{
		{"dialTimeout", s.DialTimeout > 0},
		{"dialAttempts", s.DialAttempts > 0},
		{"setupTimeout", s.SetupTimeout > 0},
		{"sendQueueSize", s.SendQueueSize > 0},
		{"frameInterval", s.FrameInterval > 0},
		{"frameScale", s.FrameScale > 0},
		{"inputSampleRate", s.InputSampleRate > 0},
		{"outputSampleRate", s.OutputSampleRate > 0},
		{"gainRampTimeConstant", s.GainRampTimeConstant > 0},
	}
	for _, p := range positive {
		if !p.ok {
			return &ValidationError{Field: p.field, Message: "must be positive"}
		}
	}
	if s.ReconnectGrace < 0 {
		return &ValidationError{Field: "reconnectGrace", Message: "must not be negative"}
	}
	if s.JPEGQuality < 1 || s.JPEGQuality > 100 {
		return &ValidationError{Field: "jpegQuality", Message: "must be between 1 and 100"}
	}
	switch s.Auth.Method {
	case AuthAPIKey, AuthADC:
	default:
		return &ValidationError{Field: "auth.method", Message: "must be one of: apiKey, adc", Value: s.Auth.Method}
	}
	return s.Logging.Validate()
}
