// Package cache provides a Redis-backed completion cache that decorates any
// llm.Completer.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/ShayCichocki/treewriter/internal/errors"
	"github.com/ShayCichocki/treewriter/internal/llm"
)

// DefaultPrefix is the key prefix used when none is configured.
const DefaultPrefix = "treewriter:completion:"

// Completer serves replies from Redis when the same prompt has been seen
// with the same model settings, and stores fresh replies otherwise.
// Redis failures are logged and bypassed; they never fail a completion.
type Completer struct {
	inner  llm.Completer
	client *backend.Client
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

type Option func(*Completer)

// WithTTL sets the expiration for cached replies. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(c *Completer) {
		c.ttl = ttl
	}
}

// WithPrefix sets the key prefix for cached replies.
func WithPrefix(prefix string) Option {
	return func(c *Completer) {
		if prefix != "" {
			c.prefix = prefix
		}
	}
}

// WithLogger sets the logger used to report bypassed Redis failures.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Completer) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a cache in front of inner using the Redis server at address.
func New(inner llm.Completer, address string, opts ...Option) *Completer {
	return NewFromClient(inner, backend.NewClient(&backend.Options{Addr: address}), opts...)
}

// NewFromClient creates a cache from an existing Redis client.
func NewFromClient(inner llm.Completer, client *backend.Client, opts ...Option) *Completer {
	c := &Completer{
		inner:  inner,
		client: client,
		prefix: DefaultPrefix,
		ttl:    24 * time.Hour,
		logger: slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "cache")

	return c
}

// Key returns the Redis key for prompt sent during stage.
func (c *Completer) Key(stage, prompt string) string {
	h := sha256.New()
	if fp, ok := c.inner.(llm.Fingerprinter); ok {
		h.Write([]byte(fp.Fingerprint()))
	}
	h.Write([]byte{0})
	h.Write([]byte(stage))
	h.Write([]byte{0})
	h.Write([]byte(prompt))
	return c.prefix + hex.EncodeToString(h.Sum(nil))
}

// Complete returns the cached reply for prompt, or asks the inner completer
// and caches its reply. The stage from llm.WithStage is part of the key.
// Blank replies are returned but not stored.
func (c *Completer) Complete(ctx context.Context, prompt string) (string, error) {
	key := c.Key(llm.StageFrom(ctx), prompt)

	cached, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		c.logger.Debug("cache hit", "key", key)
		return cached, nil
	case errors.Is(err, backend.Nil):
		c.logger.Debug("cache miss", "key", key)
	default:
		c.logger.Warn("cache read failed, bypassing", "key", key, "error", err)
	}

	reply, err := c.inner.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(reply) == "" {
		c.logger.Debug("blank reply, not caching", "key", key)
		return reply, nil
	}
	if err := c.client.Set(ctx, key, reply, c.ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", "key", key, "error", err)
	}
	return reply, nil
}

// Fingerprint forwards the inner completer's fingerprint so caches can be
// stacked.
func (c *Completer) Fingerprint() string {
	if fp, ok := c.inner.(llm.Fingerprinter); ok {
		return fp.Fingerprint()
	}
	return ""
}

// Ping checks that the Redis server is reachable.
func (c *Completer) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (c *Completer) Close() error {
	return c.client.Close()
}

var (
	_ llm.Completer     = (*Completer)(nil)
	_ llm.Fingerprinter = (*Completer)(nil)
)
