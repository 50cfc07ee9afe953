package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullManifest = `apiVersion: dayugame.app/v1alpha1
kind: LiveConfig
metadata:
  name: desk
  labels:
    env: test
spec:
  model: gemini-live-test
  endpoint: ws://127.0.0.1:9000/live
  dialTimeout: 3s
  reconnectGrace: 250ms
  jpegQuality: 70
  maxFramesPerSecond: 1.5
  vad:
    startSensitivity: START_SENSITIVITY_LOW
    silenceDuration: 800ms
  transcription:
    input: false
  auth:
    method: adc
  logging:
    defaultLevel: debug
    format: json
    modules:
      - name: providers.gemini
        level: warn
  metrics:
    addr: ":9090"
`

func TestParse_Full(t *testing.T) {
	cfg, err := Parse([]byte(fullManifest))
	require.NoError(t, err)

	assert.Equal(t, "desk", cfg.Metadata.Name)
	assert.Equal(t, "test", cfg.Metadata.Labels["env"])

	s := cfg.Spec
	assert.Equal(t, "gemini-live-test", s.Model)
	assert.Equal(t, "ws://127.0.0.1:9000/live", s.Endpoint)
	assert.Equal(t, 3*time.Second, s.DialTimeout)
	assert.Equal(t, 250*time.Millisecond, s.ReconnectGrace)
	assert.Equal(t, 70, s.JPEGQuality)
	assert.InDelta(t, 1.5, s.MaxFramesPerSecond, 1e-9)
	assert.Equal(t, "START_SENSITIVITY_LOW", s.VAD.StartSensitivity)
	assert.Equal(t, 800*time.Millisecond, s.VAD.SilenceDuration)
	assert.False(t, s.Transcription.Input)
	assert.Equal(t, AuthADC, s.Auth.Method)
	assert.Equal(t, LogFormatJSON, s.Logging.Format)
	require.Len(t, s.Logging.Modules, 1)
	assert.Equal(t, ":9090", s.Metrics.Addr)
}

func TestParse_KeepsDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`apiVersion: dayugame.app/v1alpha1
kind: LiveConfig
spec:
  model: other-model
`))
	require.NoError(t, err)

	def := Default()
	assert.Equal(t, "other-model", cfg.Spec.Model)
	assert.Equal(t, def.Endpoint, cfg.Spec.Endpoint)
	assert.Equal(t, 500*time.Millisecond, cfg.Spec.ReconnectGrace)
	assert.Equal(t, 4, cfg.Spec.FrameScale)
	assert.Equal(t, 50, cfg.Spec.JPEGQuality)
	assert.Equal(t, 16000, cfg.Spec.InputSampleRate)
	assert.Equal(t, 24000, cfg.Spec.OutputSampleRate)
	assert.Equal(t, 100*time.Millisecond, cfg.Spec.GainRampTimeConstant)
	assert.True(t, cfg.Spec.Transcription.Output)
}

func TestParse_SchemaErrors(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
		contains string
	}{
		{
			name:     "wrong kind",
			manifest: "apiVersion: dayugame.app/v1alpha1\nkind: Arena\nspec: {}\n",
			contains: "kind",
		},
		{
			name:     "missing spec",
			manifest: "apiVersion: dayugame.app/v1alpha1\nkind: LiveConfig\n",
			contains: "spec",
		},
		{
			name:     "unknown field",
			manifest: "apiVersion: dayugame.app/v1alpha1\nkind: LiveConfig\nspec:\n  modle: x\n",
			contains: "modle",
		},
		{
			name:     "bad duration",
			manifest: "apiVersion: dayugame.app/v1alpha1\nkind: LiveConfig\nspec:\n  dialTimeout: soon\n",
			contains: "dialTimeout",
		},
		{
			name:     "quality out of range",
			manifest: "apiVersion: dayugame.app/v1alpha1\nkind: LiveConfig\nspec:\n  jpegQuality: 101\n",
			contains: "jpegQuality",
		},
		{
			name:     "bad auth method",
			manifest: "apiVersion: dayugame.app/v1alpha1\nkind: LiveConfig\nspec:\n  auth:\n    method: basic\n",
			contains: "method",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.manifest))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("apiVersion: [unterminated"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "live.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fullManifest), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gemini-live-test", cfg.Spec.Model)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestDefault_Validates(t *testing.T) {
	spec := Default()
	require.NoError(t, spec.Validate())
	assert.Equal(t, DefaultModel, spec.Model)
}

func TestValidate_Ranges(t *testing.T) {
	spec := Default()
	spec.SendQueueSize = 0
	err := spec.Validate()
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "sendQueueSize", ve.Field)

	spec = Default()
	spec.ReconnectGrace = -time.Second
	require.Error(t, spec.Validate())

	spec = Default()
	spec.Logging.Modules = []ModuleLoggingConfig{{Name: "", Level: "info"}}
	err = spec.Validate()
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "logging.modules[0].name", ve.Field)
}

func TestLoggingConfigSpec_Validate(t *testing.T) {
	good := LoggingConfigSpec{DefaultLevel: "warn", Format: "text"}
	assert.NoError(t, good.Validate())

	badLevel := LoggingConfigSpec{DefaultLevel: "verbose"}
	err := badLevel.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "(got: verbose)")

	badFormat := LoggingConfigSpec{Format: "xml"}
	assert.Error(t, badFormat.Validate())
}

func TestResolveAPIKey(t *testing.T) {
	t.Setenv(EnvAPIKey, "")
	t.Setenv(EnvAPIKeyFallback, "fallback-key")

	spec := Default()
	assert.Equal(t, "fallback-key", spec.ResolveAPIKey())

	t.Setenv(EnvAPIKey, "primary-key")
	assert.Equal(t, "primary-key", spec.ResolveAPIKey())

	spec.Auth.APIKey = "inline-key"
	assert.Equal(t, "inline-key", spec.ResolveAPIKey())
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("DAYUGAME_TEST_VAR=from-file\n"), 0o600))

	t.Setenv("DAYUGAME_TEST_VAR", "")
	require.NoError(t, os.Unsetenv("DAYUGAME_TEST_VAR"))

	LoadEnv(envFile, filepath.Join(dir, "absent.env"))
	assert.Equal(t, "from-file", os.Getenv("DAYUGAME_TEST_VAR"))
}
