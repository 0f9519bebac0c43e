package decompose

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ShayCichocki/treewriter/internal/errors"
	"github.com/ShayCichocki/treewriter/internal/tree"
	"github.com/ShayCichocki/treewriter/pkg/models"
)

// LeafReason records why the builder stopped splitting a node.
type LeafReason string

const (
	LeafDepthLimit      LeafReason = "depth_limit"
	LeafBelowThreshold  LeafReason = "below_threshold"
	LeafAgentFailed     LeafReason = "agent_failed"
	LeafAgentDeclined   LeafReason = "agent_declined"
	LeafDecomposeFailed LeafReason = "decompose_failed"
	LeafNoChildren      LeafReason = "no_children"
	LeafNodeCap         LeafReason = "node_cap"
)

// BuildStats summarizes a finished build.
type BuildStats struct {
	Nodes    int
	Leaves   int
	MaxDepth int
	// Reasons maps every leaf created by the builder to why it is a leaf.
	Reasons map[string]LeafReason
}

// Count returns how many leaves stopped for reason.
func (s BuildStats) Count(reason LeafReason) int {
	n := 0
	for _, r := range s.Reasons {
		if r == reason {
			n++
		}
	}
	return n
}

// BuilderConfig contains configuration for creating a Builder.
type BuilderConfig struct {
	Policy *Policy
	// MaxDepth stops splitting at this depth. The root is at depth 0.
	MaxDepth int
	// MaxNodes refuses splits that would grow the tree past this size.
	// Zero means unlimited.
	MaxNodes int
	// ReuseAgentReply takes children from the agent-check reply when it
	// carries any, skipping the second planning call.
	ReuseAgentReply bool
	Logger          *slog.Logger
}

// Builder grows a tree top-down from its root by repeatedly applying the
// Policy.
type Builder struct {
	policy   *Policy
	maxDepth int
	maxNodes int
	reuse    bool
	logger   *slog.Logger
}

// NewBuilder validates cfg and creates a Builder.
func NewBuilder(cfg BuilderConfig) (*Builder, error) {
	if cfg.Policy == nil {
		return nil, errors.NewConfigurationError("", "builder requires a decomposition policy")
	}
	if cfg.MaxDepth < 1 {
		return nil, errors.NewConfigurationError("generation.max_depth", "must be at least 1, got %d", cfg.MaxDepth)
	}
	if cfg.MaxNodes < 0 {
		return nil, errors.NewConfigurationError("generation.max_nodes", "must not be negative, got %d", cfg.MaxNodes)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Builder{
		policy:   cfg.Policy,
		maxDepth: cfg.MaxDepth,
		maxNodes: cfg.MaxNodes,
		reuse:    cfg.ReuseAgentReply,
		logger:   logger.With("component", "builder"),
	}, nil
}

// Build adds the root described by rootSpec to t and decomposes it
// recursively. Collaborator failures turn the affected node into a leaf;
// only structural misuse (such as t already holding a root) and context
// cancellation are returned as errors.
func (b *Builder) Build(ctx context.Context, t *tree.Tree, rootSpec models.NodeSpec) (BuildStats, error) {
	stats := BuildStats{Reasons: make(map[string]LeafReason)}

	if err := t.AddRoot(rootSpec); err != nil {
		return stats, err
	}
	b.logger.Info("building tree", "words", rootSpec.WordCount, "max_depth", b.maxDepth)

	if err := b.process(ctx, t, models.RootID, 0, &stats); err != nil {
		return stats, err
	}

	stats.Nodes = t.Len()
	stats.Leaves = len(t.Leaves())
	b.logger.Info("tree built", "nodes", stats.Nodes, "leaves", stats.Leaves, "depth", stats.MaxDepth)
	return stats, nil
}

func (b *Builder) process(ctx context.Context, t *tree.Tree, id string, depth int, stats *BuildStats) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if depth > stats.MaxDepth {
		stats.MaxDepth = depth
	}

	if depth >= b.maxDepth {
		return b.leaf(t, id, LeafDepthLimit, stats)
	}

	node, err := t.Node(id)
	if err != nil {
		return err
	}
	log := b.logger.With("node", id, "depth", depth)

	passed := b.policy.ThresholdCheck(node)
	if err := t.Update(id, models.NodeUpdate{ThresholdPassed: &passed}); err != nil {
		return err
	}
	if !passed {
		return b.leaf(t, id, LeafBelowThreshold, stats)
	}

	decision, err := b.policy.AgentCheck(ctx, node)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("agent check failed, keeping node whole", "error", err)
		return b.leaf(t, id, LeafAgentFailed, stats)
	}
	if err := t.Update(id, models.NodeUpdate{
		AgentDecision:  &decision.ShouldDecompose,
		AgentReasoning: &decision.Reasoning,
	}); err != nil {
		return err
	}
	if !decision.ShouldDecompose {
		return b.leaf(t, id, LeafAgentDeclined, stats)
	}

	var children []ChildSpec
	if b.reuse && len(decision.Children) > 0 {
		children = b.policy.ValidateChildren(node, decision.Children)
	} else {
		children, err = b.policy.Decompose(ctx, node)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Warn("decomposition failed, keeping node whole", "error", err)
			return b.leaf(t, id, LeafDecomposeFailed, stats)
		}
	}
	if len(children) == 0 {
		return b.leaf(t, id, LeafNoChildren, stats)
	}

	if b.maxNodes > 0 && t.Len()+len(children) > b.maxNodes {
		log.Warn("node cap reached, keeping node whole", "nodes", t.Len(), "children", len(children), "cap", b.maxNodes)
		return b.leaf(t, id, LeafNodeCap, stats)
	}

	ids := make([]string, len(children))
	for i, child := range children {
		ids[i] = fmt.Sprintf("%s_child%d", id, i+1)
		err := t.AddNode(ids[i], models.NodeSpec{
			Content:   child.Content,
			WordCount: child.WordCount,
			Kind:      models.KindInternal,
			Context:   child.Context.Inherit(node.Context),
		})
		if err != nil {
			return err
		}
		if err := t.AddEdge(id, ids[i]); err != nil {
			return err
		}
	}
	log.Info("node decomposed", "children", len(children))

	for _, childID := range ids {
		if err := b.process(ctx, t, childID, depth+1, stats); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) leaf(t *tree.Tree, id string, reason LeafReason, stats *BuildStats) error {
	if err := t.MarkLeaf(id); err != nil {
		return err
	}
	stats.Reasons[id] = reason
	b.logger.Debug("leaf", "node", id, "reason", reason)
	return nil
}
