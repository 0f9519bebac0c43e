// Package config handles configuration loading and management for treewriter.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for treewriter.
type Config struct {
	Model      ModelConfig      `mapstructure:"model"`
	Thresholds ThresholdsConfig `mapstructure:"thresholds"`
	Generation GenerationConfig `mapstructure:"generation"`
	Decompose  DecomposeConfig  `mapstructure:"decompose"`
	Prompts    PromptsConfig    `mapstructure:"prompts"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Cache      CacheConfig      `mapstructure:"cache"`
	State      StateConfig      `mapstructure:"state"`
}

// ModelConfig holds completion model settings.
type ModelConfig struct {
	APIKey string `mapstructure:"api_key"`
	// Endpoint overrides the API base URL. Empty uses the SDK default.
	Endpoint    string  `mapstructure:"endpoint"`
	Name        string  `mapstructure:"name"`
	Temperature float64 `mapstructure:"temperature"`
	// TopP of 1.0 means nucleus sampling is not sent.
	TopP       float64 `mapstructure:"top_p"`
	MaxTokens  int     `mapstructure:"max_tokens"`
	MaxRetries int     `mapstructure:"max_retries"`
	// Bedrock routes requests through AWS Bedrock instead of the Anthropic API.
	Bedrock    bool   `mapstructure:"bedrock"`
	AWSRegion  string `mapstructure:"aws_region"`
	AWSProfile string `mapstructure:"aws_profile"`
}

// ThresholdsConfig holds the word-count and fan-out limits for decomposition.
type ThresholdsConfig struct {
	MinWordCount int `mapstructure:"min_word_count"`
	MaxWordCount int `mapstructure:"max_word_count"`
	MinChildren  int `mapstructure:"min_children"`
	MaxChildren  int `mapstructure:"max_children"`
}

// GenerationConfig holds pipeline settings.
type GenerationConfig struct {
	Language string `mapstructure:"language"`
	MaxDepth int    `mapstructure:"max_depth"`
	// MaxNodes caps the tree size. Zero means unlimited.
	MaxNodes int `mapstructure:"max_nodes"`
	// Workers is the number of leaves processed concurrently per pass.
	Workers int `mapstructure:"workers"`
}

// DecomposeConfig holds decomposition policy toggles.
type DecomposeConfig struct {
	// ReuseAgentReply takes children from the agent-check reply instead of
	// asking the model a second time.
	ReuseAgentReply bool `mapstructure:"reuse_agent_reply"`
}

// PromptsConfig points at an optional template override file.
type PromptsConfig struct {
	File string `mapstructure:"file"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// CacheConfig holds completion cache settings. An empty RedisAddr disables
// the cache.
type CacheConfig struct {
	RedisAddr string        `mapstructure:"redis_addr"`
	TTL       time.Duration `mapstructure:"ttl"`
	Prefix    string        `mapstructure:"prefix"`
}

// StateConfig holds run history settings.
type StateConfig struct {
	DBPath  string `mapstructure:"db_path"`
	Enabled bool   `mapstructure:"enabled"`
}

// Default model and limits.
const (
	DefaultModel        = "claude-sonnet-4-20250514"
	DefaultTemperature  = 0.8
	DefaultTopP         = 1.0
	DefaultMaxTokens    = 4096
	DefaultMaxRetries   = 2
	DefaultMinWordCount = 1000
	DefaultMaxWordCount = 5000
	DefaultMinChildren  = 2
	DefaultMaxChildren  = 5
	DefaultLanguage     = "en"
	DefaultMaxDepth     = 10
	DefaultCacheTTL     = 24 * time.Hour
	DefaultCachePrefix  = "treewriter:completion:"
	projectConfigName   = ".treewriter.yaml"
	envPrefix           = "TREEWRITER"
)

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. overrides (explicitly set command flags), keyed by dotted config key
// 2. Environment variables (TREEWRITER_MODEL_NAME, ANTHROPIC_API_KEY, ...)
// 3. Project config (.treewriter.yaml in current directory or parent)
// 4. User config (~/.config/treewriter/config.yaml)
// 5. Built-in defaults
//
// A non-empty configFile replaces the user and project lookup.
func Load(configFile string, overrides map[string]any) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config from %s: %w", configFile, err)
		}
	} else {
		// Load user config from XDG path
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(getUserConfigDir())

		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("reading user config: %w", err)
			}
		}

		// Load project config if present
		if projectConfig := findProjectConfig(); projectConfig != "" {
			projectViper := viper.New()
			projectViper.SetConfigFile(projectConfig)
			if err := projectViper.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("reading project config %s: %w", projectConfig, err)
			}
			// Merge project config (takes precedence)
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	bindEnv(v)

	for key, value := range overrides {
		v.Set(key, value)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Expand ${VAR} references
	cfg.Model.APIKey = expandEnv(cfg.Model.APIKey)
	cfg.State.DBPath = expandEnv(cfg.State.DBPath)
	cfg.Logging.File = expandEnv(cfg.Logging.File)
	cfg.Prompts.File = expandEnv(cfg.Prompts.File)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path with no overrides.
func LoadFromPath(path string) (*Config, error) {
	return Load(path, nil)
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// bindEnv maps TREEWRITER_SECTION_KEY variables onto section.key, plus the
// conventional ANTHROPIC_API_KEY.
func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("model.api_key", envPrefix+"_MODEL_API_KEY", "ANTHROPIC_API_KEY")
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	// Model defaults
	v.SetDefault("model.api_key", "")
	v.SetDefault("model.endpoint", "")
	v.SetDefault("model.name", DefaultModel)
	v.SetDefault("model.temperature", DefaultTemperature)
	v.SetDefault("model.top_p", DefaultTopP)
	v.SetDefault("model.max_tokens", DefaultMaxTokens)
	v.SetDefault("model.max_retries", DefaultMaxRetries)
	v.SetDefault("model.bedrock", false)
	v.SetDefault("model.aws_region", "")
	v.SetDefault("model.aws_profile", "")

	// Decomposition thresholds
	v.SetDefault("thresholds.min_word_count", DefaultMinWordCount)
	v.SetDefault("thresholds.max_word_count", DefaultMaxWordCount)
	v.SetDefault("thresholds.min_children", DefaultMinChildren)
	v.SetDefault("thresholds.max_children", DefaultMaxChildren)

	// Pipeline defaults
	v.SetDefault("generation.language", DefaultLanguage)
	v.SetDefault("generation.max_depth", DefaultMaxDepth)
	v.SetDefault("generation.max_nodes", 0)
	v.SetDefault("generation.workers", 1)

	v.SetDefault("decompose.reuse_agent_reply", false)
	v.SetDefault("prompts.file", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.file", "")

	v.SetDefault("cache.redis_addr", "")
	v.SetDefault("cache.ttl", DefaultCacheTTL.String())
	v.SetDefault("cache.prefix", DefaultCachePrefix)

	v.SetDefault("state.db_path", DefaultDBPath())
	v.SetDefault("state.enabled", true)
}

// getUserConfigDir returns the XDG config directory for treewriter.
func getUserConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "treewriter")
	}

	// Fall back to ~/.config/treewriter
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "treewriter")
	}
	return filepath.Join(home, ".config", "treewriter")
}

// DefaultDBPath returns the XDG data path of the run history database.
func DefaultDBPath() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "treewriter", "history.db")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".local", "share", "treewriter", "history.db")
	}
	return filepath.Join(home, ".local", "share", "treewriter", "history.db")
}

// findProjectConfig searches for .treewriter.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, projectConfigName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// expandEnv expands ${VAR} references in a string.
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Model: ModelConfig{
			Name:        DefaultModel,
			Temperature: DefaultTemperature,
			TopP:        DefaultTopP,
			MaxTokens:   DefaultMaxTokens,
			MaxRetries:  DefaultMaxRetries,
		},
		Thresholds: ThresholdsConfig{
			MinWordCount: DefaultMinWordCount,
			MaxWordCount: DefaultMaxWordCount,
			MinChildren:  DefaultMinChildren,
			MaxChildren:  DefaultMaxChildren,
		},
		Generation: GenerationConfig{
			Language: DefaultLanguage,
			MaxDepth: DefaultMaxDepth,
			Workers:  1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Cache: CacheConfig{
			TTL:    DefaultCacheTTL,
			Prefix: DefaultCachePrefix,
		},
		State: StateConfig{
			DBPath:  DefaultDBPath(),
			Enabled: true,
		},
	}
}
