// Package decompose decides whether a writing task should be split and grows
// the writing tree from a single root.
package decompose

import (
	"context"
	"log/slog"
	"math"

	"github.com/ShayCichocki/treewriter/internal/errors"
	"github.com/ShayCichocki/treewriter/internal/llm"
	"github.com/ShayCichocki/treewriter/internal/prompts"
	"github.com/ShayCichocki/treewriter/pkg/models"
)

// Thresholds bound when and how far a node is split.
type Thresholds struct {
	MinWordCount int
	MaxWordCount int
	MinChildren  int
	MaxChildren  int
}

// Validate returns a *errors.ConfigurationError for the first invalid bound.
func (t Thresholds) Validate() error {
	if t.MinWordCount <= 0 {
		return errors.NewConfigurationError("thresholds.min_word_count", "must be positive, got %d", t.MinWordCount)
	}
	if t.MaxWordCount <= t.MinWordCount {
		return errors.NewConfigurationError("thresholds.max_word_count",
			"must be greater than min_word_count (%d), got %d", t.MinWordCount, t.MaxWordCount)
	}
	if t.MinChildren < 2 {
		return errors.NewConfigurationError("thresholds.min_children", "must be at least 2, got %d", t.MinChildren)
	}
	if t.MaxChildren < t.MinChildren {
		return errors.NewConfigurationError("thresholds.max_children",
			"must be at least min_children (%d), got %d", t.MinChildren, t.MaxChildren)
	}
	return nil
}

// ChildSpec is one proposed sub-task. Nil context fields are inherited from
// the parent when the child node is created.
type ChildSpec struct {
	Content   string
	WordCount int
	Context   models.CreativeContext
}

// Decision is the planner's verdict for one node.
type Decision struct {
	ShouldDecompose bool
	Reasoning       string
	// Children proposed in the same reply, if any.
	Children []ChildSpec
}

// PolicyConfig contains configuration for creating a Policy.
type PolicyConfig struct {
	Thresholds Thresholds
	// Completer answers planning prompts.
	Completer llm.Completer
	Prompts   prompts.Set
	Logger    *slog.Logger
}

// Policy decides per node whether to split it, and into what.
type Policy struct {
	thresholds Thresholds
	completer  llm.Completer
	prompts    prompts.Set
	logger     *slog.Logger
}

// NewPolicy validates cfg and creates a Policy.
func NewPolicy(cfg PolicyConfig) (*Policy, error) {
	if err := cfg.Thresholds.Validate(); err != nil {
		return nil, err
	}
	if cfg.Completer == nil {
		return nil, errors.NewConfigurationError("model", "no completer configured for planning")
	}
	if cfg.Prompts.Planning == "" {
		return nil, errors.NewConfigurationError("prompts.planning", "template is empty")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Policy{
		thresholds: cfg.Thresholds,
		completer:  cfg.Completer,
		prompts:    cfg.Prompts,
		logger:     logger.With("component", "planner"),
	}, nil
}

// Thresholds returns the configured bounds.
func (p *Policy) Thresholds() Thresholds {
	return p.thresholds
}

// ThresholdCheck is the word-count gate. Nodes above MaxWordCount are always
// eligible, nodes below MinWordCount never are, and everything in between
// (both bounds included) is eligible pending the agent check.
func (p *Policy) ThresholdCheck(node models.Node) bool {
	switch {
	case node.WordCount > p.thresholds.MaxWordCount:
		return true
	case node.WordCount < p.thresholds.MinWordCount:
		return false
	default:
		return true
	}
}

// AgentCheck asks the model whether node should be split.
// An unparseable reply yields a "do not decompose" decision, not an error;
// only render and transport failures are returned, as *errors.GenerationError.
func (p *Policy) AgentCheck(ctx context.Context, node models.Node) (Decision, error) {
	reply, err := p.ask(ctx, node, errors.StageAgentCheck)
	if err != nil {
		return Decision{}, err
	}
	d := ParseDecision(reply)
	p.logger.Debug("agent decision",
		"node", node.ID,
		"decompose", d.ShouldDecompose,
		"children", len(d.Children),
		"reasoning", d.Reasoning,
	)
	return d, nil
}

// Decompose asks the model for node's children and validates them.
// An empty result means the node should become a leaf.
func (p *Policy) Decompose(ctx context.Context, node models.Node) ([]ChildSpec, error) {
	reply, err := p.ask(ctx, node, errors.StageDecompose)
	if err != nil {
		return nil, err
	}
	return p.ValidateChildren(node, ParseDecision(reply).Children), nil
}

func (p *Policy) ask(ctx context.Context, node models.Node, stage string) (string, error) {
	vars := p.prompts.NodeVars(node)
	vars[prompts.VarMinWordCount] = p.thresholds.MinWordCount
	vars[prompts.VarMaxWordCount] = p.thresholds.MaxWordCount
	vars[prompts.VarMinChildren] = p.thresholds.MinChildren
	vars[prompts.VarMaxChildren] = p.thresholds.MaxChildren

	prompt, err := prompts.Render(p.prompts.Planning, vars)
	if err != nil {
		return "", errors.NewGenerationError(node.ID, stage, err)
	}
	reply, err := p.completer.Complete(llm.WithStage(ctx, stage), prompt)
	if err != nil {
		return "", errors.NewGenerationError(node.ID, stage, err)
	}
	return reply, nil
}

// ValidateChildren applies the fan-out and word-count rules to a proposed
// child list:
//   - fewer than MinChildren (including none) yields an empty list;
//   - more than MaxChildren is truncated, keeping order;
//   - word counts are bounded to [0, MaxChildWordCount];
//   - when the child total misses the parent's count by more than 10%, every
//     child is rescaled proportionally (rounding down).
func (p *Policy) ValidateChildren(node models.Node, children []ChildSpec) []ChildSpec {
	if len(children) == 0 {
		return nil
	}
	if len(children) < p.thresholds.MinChildren {
		p.logger.Warn("too few children, keeping node whole",
			"node", node.ID, "got", len(children), "min", p.thresholds.MinChildren)
		return nil
	}

	out := make([]ChildSpec, len(children))
	copy(out, children)
	for i := range out {
		out[i].WordCount = max(0, min(out[i].WordCount, MaxChildWordCount))
	}
	if len(out) > p.thresholds.MaxChildren {
		p.logger.Warn("too many children, truncating",
			"node", node.ID, "got", len(out), "max", p.thresholds.MaxChildren)
		out = out[:p.thresholds.MaxChildren]
	}

	return rebalance(node.ID, node.WordCount, out, p.logger)
}

// rebalance rescales child word counts so they sum to roughly parent.
func rebalance(nodeID string, parent int, children []ChildSpec, logger *slog.Logger) []ChildSpec {
	sum := 0
	for _, c := range children {
		sum += c.WordCount
	}
	if sum <= 0 || math.Abs(float64(sum-parent)) <= float64(parent)*0.1 {
		return children
	}

	logger.Info("rebalancing child word counts", "node", nodeID, "sum", sum, "parent", parent)
	ratio := float64(parent) / float64(sum)
	for i := range children {
		children[i].WordCount = int(float64(children[i].WordCount) * ratio)
	}
	return children
}
