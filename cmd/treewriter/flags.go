package main

import (
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/treewriter/internal/orchestrator"
	"github.com/ShayCichocki/treewriter/pkg/models"
)

// configFlags maps command flags onto dotted configuration keys. A flag is
// only applied when it was set explicitly, so it overrides config files and
// the environment without masking them with its default.
var configFlags = []struct {
	flag string
	key  string
}{
	{"api-key", "model.api_key"},
	{"api-endpoint", "model.endpoint"},
	{"model", "model.name"},
	{"temperature", "model.temperature"},
	{"top-p", "model.top_p"},
	{"max-tokens", "model.max_tokens"},
	{"min-word-count", "thresholds.min_word_count"},
	{"max-word-count", "thresholds.max_word_count"},
	{"min-children", "thresholds.min_children"},
	{"max-children", "thresholds.max_children"},
	{"language", "generation.language"},
	{"max-depth", "generation.max_depth"},
	{"max-nodes", "generation.max_nodes"},
	{"workers", "generation.workers"},
}

// taskFlags holds the root task's word count and creative context.
type taskFlags struct {
	wordCount     int
	setting       string
	characters    []string
	theme         string
	tone          string
	style         string
	structure     string
	plot          string
	worldbuilding string
	goals         string
}

// registerGenerationFlags adds the model, threshold, pipeline and creative
// context flags shared by write and plan.
func registerGenerationFlags(cmd *cobra.Command, tf *taskFlags) {
	f := cmd.Flags()

	f.IntVar(&tf.wordCount, "word-count", 0, "Target length of the whole text in words (required)")
	_ = cmd.MarkFlagRequired("word-count")

	f.String("api-key", "", "Anthropic API key (default: ANTHROPIC_API_KEY)")
	f.String("api-endpoint", "", "API base URL")
	f.String("model", "", "Model name")
	f.Float64("temperature", 0, "Sampling temperature, 0 to 1")
	f.Float64("top-p", 0, "Nucleus sampling probability")
	f.Int("max-tokens", 0, "Maximum output tokens per completion")

	f.Int("min-word-count", 0, "Nodes below this length are never split")
	f.Int("max-word-count", 0, "Nodes above this length are split when the model agrees")
	f.Int("min-children", 0, "Fewest children a split may produce")
	f.Int("max-children", 0, "Most children a split may produce")

	f.String("language", "", "Prompt language: cn or en")
	f.Int("max-depth", 0, "Deepest level that may still be split")
	f.Int("max-nodes", 0, "Cap on the number of tree nodes (0 = unlimited)")
	f.Int("workers", 0, "Leaves processed concurrently per pass")

	f.StringVar(&tf.setting, "setting", "", "Story setting")
	f.StringSliceVar(&tf.characters, "characters", nil, "Characters, comma-separated")
	f.StringVar(&tf.theme, "theme", "", "Theme")
	f.StringVar(&tf.tone, "tone", "", "Writing tone")
	f.StringVar(&tf.style, "style", "", "Language style")
	f.StringVar(&tf.structure, "structure", "", "Story structure")
	f.StringVar(&tf.plot, "plot", "", "Plot development")
	f.StringVar(&tf.worldbuilding, "worldbuilding", "", "Worldbuilding notes")
	f.StringVar(&tf.goals, "goals", "", "Writing goals")
}

// buildOverrides returns the explicitly set config flags keyed by config key.
func buildOverrides(cmd *cobra.Command) map[string]any {
	fs := cmd.Flags()
	overrides := make(map[string]any)
	for _, b := range configFlags {
		f := fs.Lookup(b.flag)
		if f == nil || !f.Changed {
			continue
		}
		switch f.Value.Type() {
		case "int":
			v, _ := fs.GetInt(b.flag)
			overrides[b.key] = v
		case "float64":
			v, _ := fs.GetFloat64(b.flag)
			overrides[b.key] = v
		default:
			overrides[b.key] = f.Value.String()
		}
	}
	return overrides
}

// request builds the pipeline request for task.
func (tf *taskFlags) request(task string) orchestrator.Request {
	return orchestrator.Request{
		Task:      task,
		WordCount: tf.wordCount,
		Context: models.CreativeContext{
			StorySetting:    optional(tf.setting),
			CharacterList:   tf.characters,
			WritingTone:     optional(tf.tone),
			LanguageStyle:   optional(tf.style),
			Theme:           optional(tf.theme),
			StoryStructure:  optional(tf.structure),
			PlotDevelopment: optional(tf.plot),
			Worldbuilding:   optional(tf.worldbuilding),
			WritingGoals:    optional(tf.goals),
		},
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
