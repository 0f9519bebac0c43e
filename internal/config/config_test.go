package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ShayCichocki/treewriter/internal/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Model.Name != DefaultModel {
		t.Errorf("expected default model %q, got %q", DefaultModel, cfg.Model.Name)
	}
	if cfg.Model.Temperature != 0.8 {
		t.Errorf("expected temperature 0.8, got %v", cfg.Model.Temperature)
	}
	if cfg.Thresholds.MinWordCount != 1000 || cfg.Thresholds.MaxWordCount != 5000 {
		t.Errorf("expected word thresholds 1000/5000, got %d/%d", cfg.Thresholds.MinWordCount, cfg.Thresholds.MaxWordCount)
	}
	if cfg.Thresholds.MinChildren != 2 || cfg.Thresholds.MaxChildren != 5 {
		t.Errorf("expected children 2/5, got %d/%d", cfg.Thresholds.MinChildren, cfg.Thresholds.MaxChildren)
	}
	if cfg.Generation.MaxDepth != 10 {
		t.Errorf("expected max depth 10, got %d", cfg.Generation.MaxDepth)
	}
	if cfg.Cache.TTL != 24*time.Hour {
		t.Errorf("expected cache ttl 24h, got %v", cfg.Cache.TTL)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadFromPath(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	path := writeConfig(t, `
model:
  api_key: test-key
  name: claude-haiku
  temperature: 0.3
thresholds:
  min_word_count: 500
  max_children: 4
generation:
  language: cn
  workers: 3
cache:
  redis_addr: localhost:6379
  ttl: 1h
state:
  enabled: false
`)

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if cfg.Model.APIKey != "test-key" {
		t.Errorf("expected api_key 'test-key', got %q", cfg.Model.APIKey)
	}
	if cfg.Model.Name != "claude-haiku" {
		t.Errorf("expected model 'claude-haiku', got %q", cfg.Model.Name)
	}
	if cfg.Model.Temperature != 0.3 {
		t.Errorf("expected temperature 0.3, got %v", cfg.Model.Temperature)
	}
	if cfg.Model.MaxTokens != DefaultMaxTokens {
		t.Errorf("expected default max_tokens, got %d", cfg.Model.MaxTokens)
	}
	if cfg.Thresholds.MinWordCount != 500 {
		t.Errorf("expected min_word_count 500, got %d", cfg.Thresholds.MinWordCount)
	}
	if cfg.Thresholds.MaxWordCount != DefaultMaxWordCount {
		t.Errorf("expected default max_word_count, got %d", cfg.Thresholds.MaxWordCount)
	}
	if cfg.Generation.Language != "cn" || cfg.Generation.Workers != 3 {
		t.Errorf("unexpected generation section: %+v", cfg.Generation)
	}
	if cfg.Cache.TTL != time.Hour {
		t.Errorf("expected ttl 1h, got %v", cfg.Cache.TTL)
	}
	if cfg.State.Enabled {
		t.Error("expected state.enabled to be false")
	}
}

func TestLoad_Precedence(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	path := writeConfig(t, `
model:
  name: from-file
  max_tokens: 1000
thresholds:
  min_children: 3
`)
	t.Setenv("TREEWRITER_MODEL_NAME", "from-env")
	t.Setenv("TREEWRITER_MODEL_MAX_TOKENS", "2000")

	cfg, err := Load(path, map[string]any{"model.max_tokens": 3000})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Model.Name != "from-env" {
		t.Errorf("env should beat file: got %q", cfg.Model.Name)
	}
	if cfg.Model.MaxTokens != 3000 {
		t.Errorf("override should beat env: got %d", cfg.Model.MaxTokens)
	}
	if cfg.Thresholds.MinChildren != 3 {
		t.Errorf("file should beat default: got %d", cfg.Thresholds.MinChildren)
	}
}

func TestLoad_AnthropicKeyFromEnv(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-from-env-123456")
	path := writeConfig(t, "model:\n  name: m\n")

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.Model.APIKey != "sk-ant-from-env-123456" {
		t.Errorf("expected key from ANTHROPIC_API_KEY, got %q", cfg.Model.APIKey)
	}
}

func TestLoad_ExpandsEnvReferences(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("MY_KEY", "sk-ant-expanded")
	path := writeConfig(t, "model:\n  api_key: ${MY_KEY}\n")

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.Model.APIKey != "sk-ant-expanded" {
		t.Errorf("expected expanded key, got %q", cfg.Model.APIKey)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing explicit config file")
	}
}

func TestGetUserConfigDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")

	if dir := getUserConfigDir(); dir != "/custom/config/treewriter" {
		t.Errorf("expected %q, got %q", "/custom/config/treewriter", dir)
	}
	if path := GetUserConfigPath(); path != "/custom/config/treewriter/config.yaml" {
		t.Errorf("unexpected user config path %q", path)
	}
}

func TestDefaultDBPath(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/custom/data")

	if got := DefaultDBPath(); got != "/custom/data/treewriter/history.db" {
		t.Errorf("unexpected db path %q", got)
	}
}

func TestFindProjectConfig(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(root, projectConfigName)
	if err := os.WriteFile(want, []byte("generation:\n  max_depth: 4\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Chdir(nested)

	got := findProjectConfig()
	// Resolve symlinks (macOS /var -> /private/var).
	wantReal, _ := filepath.EvalSymlinks(want)
	gotReal, _ := filepath.EvalSymlinks(got)
	if gotReal != wantReal {
		t.Errorf("findProjectConfig() = %q, want %q", got, want)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"empty model", func(c *Config) { c.Model.Name = "" }, "model.name"},
		{"temperature too high", func(c *Config) { c.Model.Temperature = 1.5 }, "model.temperature"},
		{"negative temperature", func(c *Config) { c.Model.Temperature = -0.1 }, "model.temperature"},
		{"zero top_p", func(c *Config) { c.Model.TopP = 0 }, "model.top_p"},
		{"zero max tokens", func(c *Config) { c.Model.MaxTokens = 0 }, "model.max_tokens"},
		{"zero min words", func(c *Config) { c.Thresholds.MinWordCount = 0 }, "thresholds.min_word_count"},
		{"max equals min", func(c *Config) { c.Thresholds.MaxWordCount = c.Thresholds.MinWordCount }, "thresholds.max_word_count"},
		{"one child", func(c *Config) { c.Thresholds.MinChildren = 1 }, "thresholds.min_children"},
		{"max below min children", func(c *Config) { c.Thresholds.MaxChildren = 1 }, "thresholds.max_children"},
		{"bad language", func(c *Config) { c.Generation.Language = "fr" }, "generation.language"},
		{"zero depth", func(c *Config) { c.Generation.MaxDepth = 0 }, "generation.max_depth"},
		{"negative node cap", func(c *Config) { c.Generation.MaxNodes = -1 }, "generation.max_nodes"},
		{"zero workers", func(c *Config) { c.Generation.Workers = 0 }, "generation.workers"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"history without path", func(c *Config) { c.State.DBPath = "" }, "state.db_path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			var cfgErr *errors.ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected *ConfigurationError, got %T", err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("Field = %q, want %q", cfgErr.Field, tt.field)
			}
		})
	}
}

func TestThresholdsConfig_Decompose(t *testing.T) {
	cfg := Default()
	cfg.Thresholds.MinChildren = 3

	got := cfg.Thresholds.Decompose()
	if got.MinWordCount != cfg.Thresholds.MinWordCount || got.MaxWordCount != cfg.Thresholds.MaxWordCount {
		t.Errorf("word bounds = %d/%d, want %d/%d", got.MinWordCount, got.MaxWordCount,
			cfg.Thresholds.MinWordCount, cfg.Thresholds.MaxWordCount)
	}
	if got.MinChildren != 3 || got.MaxChildren != cfg.Thresholds.MaxChildren {
		t.Errorf("children = %d/%d, want 3/%d", got.MinChildren, got.MaxChildren, cfg.Thresholds.MaxChildren)
	}
	if err := got.Validate(); err != nil {
		t.Errorf("default thresholds should validate: %v", err)
	}
}

func TestEntriesAndGet(t *testing.T) {
	cfg := Default()
	cfg.Model.APIKey = "sk-ant-REDACTED"

	v, err := cfg.Get("MODEL.API_KEY")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if v != "sk-ant-...mnop" {
		t.Errorf("api key should be masked, got %q", v)
	}

	v, err = cfg.Get("thresholds.max_children")
	if err != nil || v != "5" {
		t.Errorf("Get(thresholds.max_children) = %q, %v", v, err)
	}

	if _, err := cfg.Get("nope.key"); err == nil {
		t.Error("expected error for unknown key")
	}

	seen := map[string]bool{}
	for _, e := range cfg.Entries() {
		if seen[e.Key] {
			t.Errorf("duplicate key %q", e.Key)
		}
		seen[e.Key] = true
	}
}
