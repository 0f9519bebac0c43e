package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/ShayCichocki/treewriter/internal/cache"
	"github.com/ShayCichocki/treewriter/internal/config"
	"github.com/ShayCichocki/treewriter/internal/decompose"
	"github.com/ShayCichocki/treewriter/internal/errors"
	"github.com/ShayCichocki/treewriter/internal/llm"
	"github.com/ShayCichocki/treewriter/internal/logging"
	"github.com/ShayCichocki/treewriter/internal/orchestrator"
	"github.com/ShayCichocki/treewriter/internal/prompts"
)

// app holds the components one command run needs.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	client   *llm.Client
	cache    *cache.Completer
	pipeline *orchestrator.Pipeline
	closers  []func() error
}

// loadConfig resolves configuration with the persistent flags and the
// given flag overrides applied, then validates it.
func loadConfig(overrides map[string]any) (*config.Config, error) {
	if overrides == nil {
		overrides = make(map[string]any)
	}
	if verbose {
		overrides["logging.level"] = "debug"
	}
	if logFilePath != "" {
		overrides["logging.file"] = logFilePath
	}

	cfg, err := config.Load(configFile, overrides)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newApp wires the completion client, the optional cache, the prompts, the
// builder and the pipeline from cfg. events may be nil.
func newApp(ctx context.Context, cfg *config.Config, events *orchestrator.EventEmitter) (*app, error) {
	logger, closeLog, err := logging.Open(cfg.Logging.File, cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, closers: []func() error{closeLog}}

	var apiKey string
	if !cfg.Model.Bedrock {
		apiKey, err = config.GetAPIKey(cfg)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
	}

	a.client, err = llm.NewClient(llm.ClientConfig{
		Model:         anthropic.Model(cfg.Model.Name),
		APIKey:        apiKey,
		Endpoint:      cfg.Model.Endpoint,
		Temperature:   cfg.Model.Temperature,
		TopP:          cfg.Model.TopP,
		MaxTokens:     cfg.Model.MaxTokens,
		MaxRetries:    cfg.Model.MaxRetries,
		UseAWSBedrock: cfg.Model.Bedrock,
		AWSRegion:     cfg.Model.AWSRegion,
		AWSProfile:    cfg.Model.AWSProfile,
		Logger:        logger,
	})
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("create completion client: %w", err)
	}

	var completer llm.Completer = a.client
	if cfg.Cache.RedisAddr != "" {
		a.cache = cache.New(a.client, cfg.Cache.RedisAddr,
			cache.WithTTL(cfg.Cache.TTL),
			cache.WithPrefix(cfg.Cache.Prefix),
			cache.WithLogger(logger),
		)
		a.closers = append(a.closers, a.cache.Close)

		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := a.cache.Ping(pingCtx); err != nil {
			logger.Warn("completion cache unreachable, requests will bypass it", "addr", cfg.Cache.RedisAddr, "error", err)
		}
		cancel()
		completer = a.cache
	}

	set, err := loadPrompts(cfg)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	policy, err := decompose.NewPolicy(decompose.PolicyConfig{
		Thresholds: cfg.Thresholds.Decompose(),
		Completer: completer,
		Prompts:   set,
		Logger:    logger,
	})
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	builder, err := decompose.NewBuilder(decompose.BuilderConfig{
		Policy:          policy,
		MaxDepth:        cfg.Generation.MaxDepth,
		MaxNodes:        cfg.Generation.MaxNodes,
		ReuseAgentReply: cfg.Decompose.ReuseAgentReply,
		Logger:          logger,
	})
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.pipeline, err = orchestrator.New(orchestrator.Config{
		Builder:  builder,
		Outliner: completer,
		Writer:   completer,
		Prompts:  set,
		Workers:  cfg.Generation.Workers,
		Events:   events,
		Logger:   logger,
	})
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

// loadPrompts returns the built-in templates for the configured language
// with the optional override file applied.
func loadPrompts(cfg *config.Config) (prompts.Set, error) {
	set, err := prompts.ForLanguage(cfg.Generation.Language)
	if err != nil {
		return prompts.Set{}, err
	}
	if cfg.Prompts.File == "" {
		return set, nil
	}
	return prompts.LoadFile(cfg.Prompts.File, set)
}

// Close releases the cache connection and the log file.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
