package orchestrator

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/ShayCichocki/treewriter/internal/decompose"
	"github.com/ShayCichocki/treewriter/internal/errors"
	"github.com/ShayCichocki/treewriter/internal/llm"
	"github.com/ShayCichocki/treewriter/internal/logging"
	"github.com/ShayCichocki/treewriter/internal/prompts"
	"github.com/ShayCichocki/treewriter/internal/tree"
	"github.com/ShayCichocki/treewriter/pkg/models"
)

// Config contains configuration options for the Pipeline.
type Config struct {
	// Builder grows the tree in the build phase. Required.
	Builder *decompose.Builder
	// Outliner answers outline prompts. Required.
	Outliner llm.Completer
	// Writer answers writing prompts. Required.
	Writer llm.Completer
	// Prompts supplies the outline and writing templates.
	Prompts prompts.Set
	// Workers bounds concurrent completer calls in the outline and text
	// phases. Zero means one.
	Workers int
	// Events receives progress events. Optional.
	Events *EventEmitter
	Logger *slog.Logger
}

// Request is one generation request: the root task and its context.
type Request struct {
	Task      string
	WordCount int
	Context   models.CreativeContext
}

// Validate checks that the request can seed a tree.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Task) == "" {
		return errors.NewConfigurationError("task", "must not be empty")
	}
	if r.WordCount < 0 {
		return errors.NewConfigurationError("word_count", "must not be negative, got %d", r.WordCount)
	}
	return nil
}

// PassStats counts leaf outcomes for one phase.
type PassStats struct {
	Succeeded int
	Failed    int
	Skipped   int
}

// Result is the outcome of a full generation run.
type Result struct {
	// Text is the concatenated output. Empty when no leaf succeeded.
	Text string
	// Tree is the finished tree, with outlines and text on its leaves.
	Tree  *tree.Tree
	Stats decompose.BuildStats

	Outlines PassStats
	Texts    PassStats
	// FailedLeaves lists leaves that failed in either phase, in leaf order.
	FailedLeaves []string
	// WordCount is the word count of Text.
	WordCount int
	Duration  time.Duration
}

// Pipeline sequences build, outline, text and concatenation.
type Pipeline struct {
	builder  *decompose.Builder
	outliner llm.Completer
	writer   llm.Completer
	prompts  prompts.Set
	workers  int
	events   *EventEmitter
	logger   *slog.Logger
}

// New validates cfg and creates a Pipeline.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Builder == nil {
		return nil, errors.NewConfigurationError("", "pipeline requires a tree builder")
	}
	if cfg.Outliner == nil || cfg.Writer == nil {
		return nil, errors.NewConfigurationError("model", "pipeline requires outline and writing completers")
	}
	if cfg.Prompts.Outline == "" {
		return nil, errors.NewConfigurationError("prompts.outline", "template is empty")
	}
	if cfg.Prompts.Writing == "" {
		return nil, errors.NewConfigurationError("prompts.writing", "template is empty")
	}
	if cfg.Workers < 0 {
		return nil, errors.NewConfigurationError("generation.workers", "must be at least 1, got %d", cfg.Workers)
	}
	workers := cfg.Workers
	if workers == 0 {
		workers = 1
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	return &Pipeline{
		builder:  cfg.Builder,
		outliner: cfg.Outliner,
		writer:   cfg.Writer,
		prompts:  cfg.Prompts,
		workers:  workers,
		events:   cfg.Events,
		logger:   logger.With("component", "pipeline"),
	}, nil
}

// Plan runs the build phase only and returns the finished tree.
func (p *Pipeline) Plan(ctx context.Context, req Request) (*tree.Tree, decompose.BuildStats, error) {
	if err := req.Validate(); err != nil {
		return nil, decompose.BuildStats{}, err
	}

	t := tree.New()
	t.SetDebugLog(logging.DebugFunc(p.logger.With("component", "tree")))

	p.events.Emit(Event{Type: EventPhaseStarted, Phase: PhaseBuild})
	stats, err := p.builder.Build(ctx, t, models.NodeSpec{
		Content:   req.Task,
		WordCount: req.WordCount,
		Context:   req.Context,
	})
	if err != nil {
		return nil, stats, err
	}
	p.events.Emit(Event{Type: EventPhaseCompleted, Phase: PhaseBuild, Done: stats.Leaves, Total: stats.Nodes})
	return t, stats, nil
}

// Generate runs all four phases. Per-leaf failures are logged and counted
// in the Result; only request validation, tree misuse and cancellation
// return an error.
func (p *Pipeline) Generate(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	t, stats, err := p.Plan(ctx, req)
	if err != nil {
		return nil, err
	}
	res := &Result{Tree: t, Stats: stats}

	leaves := t.Leaves()
	root, err := t.Node(t.Root())
	if err != nil {
		return nil, err
	}
	p.logger.Info("tree ready", "nodes", stats.Nodes, "leaves", len(leaves))

	failed := make(map[string]bool)

	// Outline phase.
	jobs := make([]job, 0, len(leaves))
	for _, id := range leaves {
		node, err := t.Node(id)
		if err != nil {
			return nil, err
		}
		vars, err := p.leafVars(t, node, root)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, p.newJob(id, p.prompts.Outline, vars))
	}
	outcomes := p.runPass(ctx, PhaseOutline, errors.StageOutline, p.outliner, jobs)
	for i, o := range outcomes {
		id := jobs[i].id
		if o.err != nil {
			res.Outlines.Failed++
			failed[id] = true
			continue
		}
		if err := t.Update(id, models.NodeUpdate{Outline: models.Ptr(o.reply)}); err != nil {
			return nil, err
		}
		res.Outlines.Succeeded++
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Text phase.
	jobs = jobs[:0]
	for _, id := range leaves {
		node, err := t.Node(id)
		if err != nil {
			return nil, err
		}
		if !node.HasOutline() {
			p.logger.Warn("leaf has no outline, skipping text", "node", id)
			p.events.Emit(Event{Type: EventLeafSkipped, Phase: PhaseText, NodeID: id})
			res.Texts.Skipped++
			continue
		}
		vars, err := p.leafVars(t, node, root)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, p.newJob(id, p.prompts.Writing, vars))
	}
	outcomes = p.runPass(ctx, PhaseText, errors.StageText, p.writer, jobs)
	for i, o := range outcomes {
		id := jobs[i].id
		if o.err != nil {
			res.Texts.Failed++
			failed[id] = true
			continue
		}
		if err := t.Update(id, models.NodeUpdate{GeneratedText: models.Ptr(o.reply)}); err != nil {
			return nil, err
		}
		res.Texts.Succeeded++
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, id := range leaves {
		if failed[id] {
			res.FailedLeaves = append(res.FailedLeaves, id)
		}
	}

	// Concatenation phase.
	p.events.Emit(Event{Type: EventPhaseStarted, Phase: PhaseConcatenate})
	res.Text, err = Concatenate(t)
	if err != nil {
		return nil, err
	}
	res.WordCount = CountWords(res.Text)
	res.Duration = time.Since(start)
	p.events.Emit(Event{Type: EventPhaseCompleted, Phase: PhaseConcatenate})

	p.logger.Info("generation complete",
		"words", res.WordCount,
		"target", req.WordCount,
		"texts", res.Texts.Succeeded,
		"failed_leaves", len(res.FailedLeaves),
		"duration", res.Duration.Round(time.Millisecond),
	)
	return res, nil
}

// leafVars collects the template variables for a leaf: its own fields, the
// root task, the enclosing section and, once set, its outline.
func (p *Pipeline) leafVars(t *tree.Tree, node, root models.Node) (map[string]any, error) {
	vars := p.prompts.NodeVars(node)
	vars[prompts.VarRootContent] = root.Content

	parentContent := root.Content
	parentID, ok, err := t.Parent(node.ID)
	if err != nil {
		return nil, err
	}
	if ok {
		parent, err := t.Node(parentID)
		if err != nil {
			return nil, err
		}
		parentContent = parent.Content
	}
	vars[prompts.VarParentContent] = parentContent

	outline := ""
	if node.Outline != nil {
		outline = *node.Outline
	}
	vars[prompts.VarOutline] = outline
	// Leaves are written independently, so no preceding text is available.
	vars[prompts.VarPreviousContent] = ""
	return vars, nil
}
