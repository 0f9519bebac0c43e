package config

import (
	"os"
	"strings"

	"github.com/ShayCichocki/treewriter/internal/errors"
)

// ErrNoAPIKey is returned when no API key is configured.
var ErrNoAPIKey = errors.New("no Anthropic API key configured (set ANTHROPIC_API_KEY, model.api_key or --api-key)")

// GetAPIKey returns the Anthropic API key.
// It checks in order: the resolved configuration (flags, environment and
// files already merged), then the ANTHROPIC_API_KEY variable directly.
func GetAPIKey(cfg *Config) (string, error) {
	if cfg != nil && cfg.Model.APIKey != "" {
		// Expand any remaining env var references
		key := os.ExpandEnv(cfg.Model.APIKey)
		if key != "" && !strings.HasPrefix(key, "${") {
			return key, nil
		}
	}

	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		return key, nil
	}

	return "", ErrNoAPIKey
}

// MaskAPIKey returns a masked version of the API key for display.
// Shows the first 7 characters (sk-ant-) and last 4 characters.
func MaskAPIKey(key string) string {
	if key == "" {
		return "(not set)"
	}

	if len(key) <= 15 {
		return "***"
	}

	return key[:7] + "..." + key[len(key)-4:]
}

// KeySource represents where an API key was loaded from.
type KeySource string

const (
	KeySourceEnv    KeySource = "environment"
	KeySourceConfig KeySource = "config"
	KeySourceNone   KeySource = "none"
)

// GetAPIKeySource returns where the API key was sourced from.
func GetAPIKeySource(cfg *Config) KeySource {
	key, err := GetAPIKey(cfg)
	if err != nil {
		return KeySourceNone
	}
	if env := os.Getenv("ANTHROPIC_API_KEY"); env != "" && env == key {
		return KeySourceEnv
	}
	return KeySourceConfig
}
