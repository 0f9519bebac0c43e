package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ShayCichocki/treewriter/internal/decompose"
	"github.com/ShayCichocki/treewriter/internal/errors"
)

// Validate checks every setting and returns a *errors.ConfigurationError for
// the first invalid one.
func (c *Config) Validate() error {
	if err := c.Model.Validate(); err != nil {
		return err
	}
	if err := c.Thresholds.Validate(); err != nil {
		return err
	}
	if err := c.Generation.Validate(); err != nil {
		return err
	}

	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		return errors.NewConfigurationError("logging.format", "must be text or json, got %q", c.Logging.Format)
	}
	if c.Cache.RedisAddr != "" && c.Cache.TTL < 0 {
		return errors.NewConfigurationError("cache.ttl", "must not be negative, got %s", c.Cache.TTL)
	}
	if c.State.Enabled && c.State.DBPath == "" {
		return errors.NewConfigurationError("state.db_path", "must be set when run history is enabled")
	}
	return nil
}

// Validate checks the model settings.
func (m ModelConfig) Validate() error {
	if m.Name == "" {
		return errors.NewConfigurationError("model.name", "must not be empty")
	}
	if m.Temperature < 0 || m.Temperature > 1 {
		return errors.NewConfigurationError("model.temperature", "must be between 0 and 1, got %v", m.Temperature)
	}
	if m.TopP <= 0 || m.TopP > 1 {
		return errors.NewConfigurationError("model.top_p", "must be in (0, 1], got %v", m.TopP)
	}
	if m.MaxTokens <= 0 {
		return errors.NewConfigurationError("model.max_tokens", "must be positive, got %d", m.MaxTokens)
	}
	if m.MaxRetries < 0 {
		return errors.NewConfigurationError("model.max_retries", "must not be negative, got %d", m.MaxRetries)
	}
	return nil
}

// Validate checks the decomposition thresholds.
func (t ThresholdsConfig) Validate() error {
	return t.Decompose().Validate()
}

// Decompose converts t to the planner's thresholds.
func (t ThresholdsConfig) Decompose() decompose.Thresholds {
	return decompose.Thresholds{
		MinWordCount: t.MinWordCount,
		MaxWordCount: t.MaxWordCount,
		MinChildren:  t.MinChildren,
		MaxChildren:  t.MaxChildren,
	}
}

// Validate checks the pipeline settings.
func (g GenerationConfig) Validate() error {
	if g.Language != "cn" && g.Language != "en" {
		return errors.NewConfigurationError("generation.language", "must be cn or en, got %q", g.Language)
	}
	if g.MaxDepth < 1 {
		return errors.NewConfigurationError("generation.max_depth", "must be at least 1, got %d", g.MaxDepth)
	}
	if g.MaxNodes < 0 {
		return errors.NewConfigurationError("generation.max_nodes", "must not be negative, got %d", g.MaxNodes)
	}
	if g.Workers < 1 {
		return errors.NewConfigurationError("generation.workers", "must be at least 1, got %d", g.Workers)
	}
	return nil
}

// Entry is one displayable configuration value.
type Entry struct {
	Key   string
	Value string
}

// Entries returns every configuration value as dotted key/value pairs in a
// stable order. The API key is masked.
func (c *Config) Entries() []Entry {
	itoa := strconv.Itoa
	ftoa := func(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) }
	btoa := strconv.FormatBool
	return []Entry{
		{"model.api_key", MaskAPIKey(c.Model.APIKey)},
		{"model.endpoint", c.Model.Endpoint},
		{"model.name", c.Model.Name},
		{"model.temperature", ftoa(c.Model.Temperature)},
		{"model.top_p", ftoa(c.Model.TopP)},
		{"model.max_tokens", itoa(c.Model.MaxTokens)},
		{"model.max_retries", itoa(c.Model.MaxRetries)},
		{"model.bedrock", btoa(c.Model.Bedrock)},
		{"model.aws_region", c.Model.AWSRegion},
		{"model.aws_profile", c.Model.AWSProfile},
		{"thresholds.min_word_count", itoa(c.Thresholds.MinWordCount)},
		{"thresholds.max_word_count", itoa(c.Thresholds.MaxWordCount)},
		{"thresholds.min_children", itoa(c.Thresholds.MinChildren)},
		{"thresholds.max_children", itoa(c.Thresholds.MaxChildren)},
		{"generation.language", c.Generation.Language},
		{"generation.max_depth", itoa(c.Generation.MaxDepth)},
		{"generation.max_nodes", itoa(c.Generation.MaxNodes)},
		{"generation.workers", itoa(c.Generation.Workers)},
		{"decompose.reuse_agent_reply", btoa(c.Decompose.ReuseAgentReply)},
		{"prompts.file", c.Prompts.File},
		{"logging.level", c.Logging.Level},
		{"logging.format", c.Logging.Format},
		{"logging.file", c.Logging.File},
		{"cache.redis_addr", c.Cache.RedisAddr},
		{"cache.ttl", c.Cache.TTL.String()},
		{"cache.prefix", c.Cache.Prefix},
		{"state.db_path", c.State.DBPath},
		{"state.enabled", btoa(c.State.Enabled)},
	}
}

// Get returns the display value for a dotted key.
func (c *Config) Get(key string) (string, error) {
	key = strings.ToLower(key)
	for _, e := range c.Entries() {
		if e.Key == key {
			return e.Value, nil
		}
	}
	return "", fmt.Errorf("unknown configuration key: %s", key)
}
