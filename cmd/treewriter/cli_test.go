package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShayCichocki/treewriter/internal/config"
	"github.com/ShayCichocki/treewriter/internal/errors"
	"github.com/ShayCichocki/treewriter/internal/state"
)

func newFlagCommand(t *testing.T, args ...string) (*cobra.Command, *taskFlags) {
	t.Helper()
	var tf taskFlags
	cmd := &cobra.Command{Use: "test"}
	registerGenerationFlags(cmd, &tf)
	require.NoError(t, cmd.Flags().Parse(args))
	return cmd, &tf
}

func TestBuildOverrides_OnlyChangedFlags(t *testing.T) {
	cmd, _ := newFlagCommand(t,
		"--word-count", "6000",
		"--temperature", "0.3",
		"--workers", "4",
		"--model", "claude-test",
		"--setting", "a harbor",
	)

	got := buildOverrides(cmd)
	assert.Equal(t, map[string]any{
		"model.temperature":  0.3,
		"generation.workers": 4,
		"model.name":         "claude-test",
	}, got)
}

func TestBuildOverrides_None(t *testing.T) {
	cmd, _ := newFlagCommand(t, "--word-count", "100")
	assert.Empty(t, buildOverrides(cmd))
}

func TestThresholdFlagUsage(t *testing.T) {
	cmd, _ := newFlagCommand(t, "--word-count", "100")

	// A node of exactly min_word_count is still eligible for splitting.
	assert.Equal(t, "Nodes below this length are never split", cmd.Flags().Lookup("min-word-count").Usage)
	assert.NotContains(t, cmd.Flags().Lookup("min-word-count").Usage, "at or below")
}

func TestTaskFlags_Request(t *testing.T) {
	_, tf := newFlagCommand(t,
		"--word-count", "6000",
		"--setting", "a northern island",
		"--characters", "Mara,Ivo",
		"--theme", "solitude",
	)

	req := tf.request("A story about a lighthouse keeper")
	assert.Equal(t, "A story about a lighthouse keeper", req.Task)
	assert.Equal(t, 6000, req.WordCount)
	require.NotNil(t, req.Context.StorySetting)
	assert.Equal(t, "a northern island", *req.Context.StorySetting)
	assert.Equal(t, []string{"Mara", "Ivo"}, req.Context.CharacterList)
	require.NotNil(t, req.Context.Theme)
	assert.Equal(t, "solitude", *req.Context.Theme)
	assert.Nil(t, req.Context.WritingTone)
	assert.Nil(t, req.Context.WritingGoals)
}

func useConfigFile(t *testing.T, content string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	prevFile, prevVerbose, prevLog := configFile, verbose, logFilePath
	t.Cleanup(func() { configFile, verbose, logFilePath = prevFile, prevVerbose, prevLog })
	configFile = path
	verbose = false
	logFilePath = ""
}

func TestLoadConfig_FlagsOverrideFile(t *testing.T) {
	useConfigFile(t, "generation:\n  workers: 2\n  language: cn\n")
	verbose = true

	cfg, err := loadConfig(map[string]any{"generation.workers": 6})
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Generation.Workers)
	assert.Equal(t, "cn", cfg.Generation.Language)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadConfig_Invalid(t *testing.T) {
	useConfigFile(t, "thresholds:\n  min_children: 1\n")

	_, err := loadConfig(nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConfiguration))
}

func TestNewApp_MissingAPIKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	cfg := config.Default()

	_, err := newApp(context.Background(), cfg, nil)
	assert.ErrorIs(t, err, config.ErrNoAPIKey)
}

func TestNewApp_WiresPipeline(t *testing.T) {
	cfg := config.Default()
	cfg.Model.APIKey = "sk-ant-test-key-0000"
	cfg.Logging.File = filepath.Join(t.TempDir(), "treewriter.log")

	a, err := newApp(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.pipeline)
	assert.NotNil(t, a.client)
	assert.Nil(t, a.cache)
}

func TestNewApp_WithCache(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.Default()
	cfg.Model.APIKey = "sk-ant-test-key-0000"
	cfg.Logging.File = filepath.Join(t.TempDir(), "treewriter.log")
	cfg.Cache.RedisAddr = mr.Addr()

	a, err := newApp(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.cache)
}

func TestNewApp_PromptFile(t *testing.T) {
	dir := t.TempDir()
	promptFile := filepath.Join(dir, "prompts.yaml")
	require.NoError(t, os.WriteFile(promptFile, []byte("outline: \"Outline {content}\"\n"), 0644))

	cfg := config.Default()
	set, err := loadPrompts(cfg)
	require.NoError(t, err)
	assert.Equal(t, "en", set.Language)

	cfg.Prompts.File = promptFile
	set, err = loadPrompts(cfg)
	require.NoError(t, err)
	assert.Equal(t, "Outline {content}", set.Outline)

	cfg.Prompts.File = filepath.Join(dir, "missing.yaml")
	_, err = loadPrompts(cfg)
	assert.Error(t, err)
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0s"},
		{45 * time.Second, "45s"},
		{2 * time.Minute, "2m"},
		{2*time.Minute + 5*time.Second, "2m5s"},
		{3 * time.Hour, "3h"},
		{3*time.Hour + 20*time.Minute, "3h20m"},
		{50 * time.Hour, "2d"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{123456, "123,456"},
		{1234567, "1,234,567"},
		{-4200, "-4,200"},
	}
	for _, tt := range tests {
		if got := formatNumber(tt.n); got != tt.want {
			t.Errorf("formatNumber(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestFormatRun(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	started := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	finished := started.Add(90 * time.Second)
	line := formatRun(state.Run{
		ID:           "0f8c2a91-aaaa-bbbb-cccc-000000000000",
		Task:         "A story about a lighthouse keeper",
		TargetWords:  6000,
		Status:       state.RunCompleted,
		Leaves:       4,
		FailedLeaves: 1,
		OutputWords:  5800,
		StartedAt:    started,
		FinishedAt:   &finished,
	})

	assert.True(t, strings.HasPrefix(line, "0f8c2a91  "), line)
	assert.Contains(t, line, "completed")
	assert.Contains(t, line, "5,800 words / 6,000 target  4 leaves (1 failed)")
	assert.Contains(t, line, "1m30s")
	assert.Contains(t, line, "A story about a lighthouse keeper")
	assert.NotContains(t, line, "\n")

	failed := formatRun(state.Run{ID: "x", Task: "t", Status: state.RunFailed, StartedAt: started, Error: "boom"})
	assert.Contains(t, failed, "\n    boom")
	assert.Contains(t, failed, "  -  ")
}

func TestTruncateTask(t *testing.T) {
	assert.Equal(t, "short", truncateTask("short", 10))
	assert.Equal(t, "a b", truncateTask("a\n b", 10))
	assert.Equal(t, "abcdefg...", truncateTask("abcdefghijklmnop", 10))
}
