package prompts

import (
	"strings"

	"github.com/ShayCichocki/treewriter/internal/errors"
	"github.com/ShayCichocki/treewriter/pkg/models"
)

// Variable names shared by the built-in templates.
const (
	VarContent         = "content"
	VarWordCount       = "word_count"
	VarStorySetting    = "story_setting"
	VarCharacterList   = "character_list"
	VarWritingTone     = "writing_tone"
	VarLanguageStyle   = "language_style"
	VarTheme           = "theme"
	VarStoryStructure  = "story_structure"
	VarPlotDevelopment = "plot_development"
	VarWorldbuilding   = "worldbuilding"
	VarWritingGoals    = "writing_goals"

	VarMinWordCount = "min_word_count"
	VarMaxWordCount = "max_word_count"
	VarMinChildren  = "min_children"
	VarMaxChildren  = "max_children"

	VarRootContent     = "root_content"
	VarParentContent   = "parent_content"
	VarOutline         = "outline"
	VarPreviousContent = "previous_content"
)

// NodeVars returns the content, word count and creative context of n as
// template variables. Unset context fields render as the set's marker.
func (s Set) NodeVars(n models.Node) map[string]any {
	c := n.Context
	or := func(v *string) string {
		if v == nil {
			return s.Unspecified
		}
		return *v
	}
	characters := s.Unspecified
	if c.CharacterList != nil {
		characters = strings.Join(c.CharacterList, ", ")
	}
	return map[string]any{
		VarContent:         n.Content,
		VarWordCount:       n.WordCount,
		VarStorySetting:    or(c.StorySetting),
		VarCharacterList:   characters,
		VarWritingTone:     or(c.WritingTone),
		VarLanguageStyle:   or(c.LanguageStyle),
		VarTheme:           or(c.Theme),
		VarStoryStructure:  or(c.StoryStructure),
		VarPlotDevelopment: or(c.PlotDevelopment),
		VarWorldbuilding:   or(c.Worldbuilding),
		VarWritingGoals:    or(c.WritingGoals),
	}
}

var (
	nodeVarNames     = []string{VarContent, VarWordCount, VarStorySetting, VarCharacterList, VarWritingTone, VarLanguageStyle, VarTheme, VarStoryStructure, VarPlotDevelopment, VarWorldbuilding, VarWritingGoals}
	planningVarNames = []string{VarMinWordCount, VarMaxWordCount, VarMinChildren, VarMaxChildren}
	leafVarNames     = []string{VarRootContent, VarParentContent, VarOutline, VarPreviousContent}
)

// Check reports a *errors.ConfigurationError for the first template that uses
// a placeholder its stage never provides.
func (s Set) Check() error {
	templates := []struct {
		field string
		tmpl  string
		extra []string
	}{
		{"prompts.planning", s.Planning, planningVarNames},
		{"prompts.outline", s.Outline, leafVarNames},
		{"prompts.writing", s.Writing, leafVarNames},
	}
	for _, t := range templates {
		known := make(map[string]bool, len(nodeVarNames)+len(t.extra))
		for _, name := range nodeVarNames {
			known[name] = true
		}
		for _, name := range t.extra {
			known[name] = true
		}
		var unknown []string
		for _, name := range Placeholders(t.tmpl) {
			if !known[name] {
				unknown = append(unknown, name)
			}
		}
		if len(unknown) > 0 {
			return errors.NewConfigurationError(t.field, "unknown placeholders: %s", strings.Join(unknown, ", "))
		}
	}
	return nil
}
