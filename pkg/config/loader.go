package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed schemas/liveconfig.json
var liveConfigSchema []byte

const errorFormat = "  - %s"

// API key environment variables, in lookup order.
const (
	EnvAPIKey         = "GEMINI_API_KEY"
	EnvAPIKeyFallback = "API_KEY"
)

// SchemaValidationError represents a validation error from JSON schema validation.
type SchemaValidationError struct {
	Field       string
	Description string
	Value       interface{}
}

// Error implements the error interface.
func (e SchemaValidationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("%s: %s (value: %v)", e.Field, e.Description, e.Value)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Description)
}

// ValidateManifest checks YAML manifest bytes against the embedded LiveConfig schema.
func ValidateManifest(yamlData []byte) error {
	var data interface{}
	if err := yaml.Unmarshal(yamlData, &data); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to convert to JSON: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(liveConfigSchema),
		gojsonschema.NewBytesLoader(jsonData),
	)
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	if result.Valid() {
		return nil
	}

	var errorMessages []string
	for _, e := range result.Errors() {
		ve := SchemaValidationError{Field: e.Field(), Description: e.Description(), Value: e.Value()}
		errorMessages = append(errorMessages, fmt.Sprintf(errorFormat, ve.Error()))
	}
	return fmt.Errorf("live configuration does not match schema:\n%s", strings.Join(errorMessages, "\n"))
}

// Parse validates and decodes a manifest. Fields absent from the manifest
// keep their Default() values.
func Parse(data []byte) (*LiveConfig, error) {
	if err := ValidateManifest(data); err != nil {
		return nil, err
	}

	manifest := LiveConfig{Spec: Default()}
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := manifest.Spec.Validate(); err != nil {
		return nil, err
	}
	return &manifest, nil
}

// Load reads and parses the manifest at filename.
func Load(filename string) (*LiveConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return cfg, nil
}

// LoadEnv loads .env files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		_ = godotenv.Load(f)
	}
}

// ResolveAPIKey returns the explicit key from the manifest, else the first
// non-empty of GEMINI_API_KEY and API_KEY.
func (s *LiveConfigSpec) ResolveAPIKey() string {
	if s.Auth.APIKey != "" {
		return s.Auth.APIKey
	}
	for _, name := range []string{EnvAPIKey, EnvAPIKeyFallback} {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v
		}
	}
	return ""
}
