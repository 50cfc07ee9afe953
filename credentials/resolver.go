package credentials

import (
	"context"
	"errors"

	"github.com/JECH20102004/dayugame/pkg/config"
)

// ErrNoAPIKey is returned when API key auth is selected but no key is set.
var ErrNoAPIKey = errors.New("no API key: set GEMINI_API_KEY or API_KEY")

// Resolve builds the credential selected by spec.Auth.
func Resolve(ctx context.Context, spec *config.LiveConfigSpec) (Credential, error) {
	switch spec.Auth.Method {
	case config.AuthADC:
		return NewGCPCredential(ctx)
	default:
		key := spec.ResolveAPIKey()
		if key == "" {
			return nil, ErrNoAPIKey
		}
		return NewAPIKeyCredential(key), nil
	}
}
