// Package llm provides the text-completion collaborator used by the planner,
// outline and writing stages.
package llm

import (
	"context"

	"github.com/ShayCichocki/treewriter/internal/errors"
)

// ErrEmptyCompletion is returned when the model replies without any text.
var ErrEmptyCompletion = errors.New("completion contained no text")

// Completer turns a prompt into a reply.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Fingerprinter is implemented by completers whose output depends on
// settings beyond the prompt. The fingerprint identifies those settings.
type Fingerprinter interface {
	Fingerprint() string
}

type stageKey struct{}

// WithStage tags ctx with the pipeline stage a completion is made for.
// Identical prompts sent for different stages are independent calls.
func WithStage(ctx context.Context, stage string) context.Context {
	return context.WithValue(ctx, stageKey{}, stage)
}

// StageFrom returns the stage set by WithStage, or "" if none was set.
func StageFrom(ctx context.Context) string {
	stage, _ := ctx.Value(stageKey{}).(string)
	return stage
}

// Compile-time interface checks.
var (
	_ Completer     = (*Client)(nil)
	_ Fingerprinter = (*Client)(nil)
	_ Completer     = CompleterFunc(nil)
)
