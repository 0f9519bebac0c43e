package prompts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShayCichocki/treewriter/internal/errors"
	"github.com/ShayCichocki/treewriter/pkg/models"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		tmpl string
		vars map[string]any
		want string
	}{
		{"simple", "Write {n} words about {topic}.", map[string]any{"n": 300, "topic": "rain"}, "Write 300 words about rain."},
		{"escaped braces", `{{"key": {v}}}`, map[string]any{"v": 1}, `{"key": 1}`},
		{"escaped placeholder stays literal", "{{name}}", map[string]any{}, "{name}"},
		{"repeated placeholder", "{a}-{a}", map[string]any{"a": "x"}, "x-x"},
		{"extra values ignored", "{a}", map[string]any{"a": "x", "b": "y"}, "x"},
		{"non identifier braces kept", "{ not a var }", nil, "{ not a var }"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Render(tt.tmpl, tt.vars)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRender_MissingVariables(t *testing.T) {
	_, err := Render("{b} {a} {b} {c}", map[string]any{"c": 1})
	require.Error(t, err)
	assert.Equal(t, "missing required variables: a, b", err.Error())
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, Placeholders("{b} {{skip}} {a} {b}"))
}

func TestForLanguage(t *testing.T) {
	for _, lang := range []string{LanguageEnglish, LanguageChinese} {
		t.Run(lang, func(t *testing.T) {
			set, err := ForLanguage(lang)
			require.NoError(t, err)
			assert.Equal(t, lang, set.Language)
			assert.NotEmpty(t, set.Unspecified)

			// Every built-in template renders with the variables its caller provides.
			n := models.Node{Content: "c", WordCount: 100}
			vars := set.NodeVars(n)
			vars[VarMinWordCount] = 1
			vars[VarMaxWordCount] = 2
			vars[VarMinChildren] = 2
			vars[VarMaxChildren] = 5
			vars[VarRootContent] = "r"
			vars[VarParentContent] = "p"
			vars[VarOutline] = "o"
			vars[VarPreviousContent] = ""

			for _, tmpl := range []string{set.Planning, set.Outline, set.Writing} {
				_, err := Render(tmpl, vars)
				assert.NoError(t, err)
			}

			planning, err := Render(set.Planning, vars)
			require.NoError(t, err)
			assert.Contains(t, planning, `"should_decompose"`)
		})
	}

	_, err := ForLanguage("fr")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConfiguration))
}

func TestNodeVars(t *testing.T) {
	set, err := ForLanguage(LanguageEnglish)
	require.NoError(t, err)

	vars := set.NodeVars(models.Node{
		Content:   "Chapter one",
		WordCount: 2000,
		Context: models.CreativeContext{
			CharacterList: []string{"Ada", "Lin"},
			Theme:         models.Ptr(""),
		},
	})

	assert.Equal(t, "Chapter one", vars[VarContent])
	assert.Equal(t, 2000, vars[VarWordCount])
	assert.Equal(t, "Ada, Lin", vars[VarCharacterList])
	assert.Equal(t, "", vars[VarTheme], "explicit empty stays empty")
	assert.Equal(t, "unspecified", vars[VarStorySetting])

	cn, err := ForLanguage(LanguageChinese)
	require.NoError(t, err)
	assert.Equal(t, "未指定", cn.NodeVars(models.Node{})[VarCharacterList])
}

func TestLoadFile(t *testing.T) {
	base, err := ForLanguage(LanguageEnglish)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "prompts.yaml")
	content := "outline: |\n  Outline {content} in {word_count} words.\nunspecified: n/a\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	set, err := LoadFile(path, base)
	require.NoError(t, err)
	assert.Equal(t, "Outline {content} in {word_count} words.\n", set.Outline)
	assert.Equal(t, "n/a", set.Unspecified)
	assert.Equal(t, base.Planning, set.Planning)
	assert.Equal(t, base.Writing, set.Writing)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"), base)
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("outline: [unclosed"), 0o644))
	_, err = LoadFile(bad, base)
	assert.Error(t, err)

	unknown := filepath.Join(t.TempDir(), "unknown.yaml")
	require.NoError(t, os.WriteFile(unknown, []byte("writing: \"Write {content} about {villain}.\"\n"), 0o644))
	_, err = LoadFile(unknown, base)
	assert.ErrorIs(t, err, errors.ErrConfiguration)
	assert.Contains(t, err.Error(), "villain")
}

func TestSet_Check(t *testing.T) {
	for _, lang := range []string{LanguageEnglish, LanguageChinese} {
		set, err := ForLanguage(lang)
		require.NoError(t, err)
		assert.NoError(t, set.Check(), lang)
	}

	set, _ := ForLanguage(LanguageEnglish)
	set.Outline = "Outline {content} under {{literal}} braces using {parent_content}."
	assert.NoError(t, set.Check())

	// Threshold variables are only filled in for planning.
	set.Writing = "Write {word_count} words, at least {min_word_count}."
	var cfgErr *errors.ConfigurationError
	require.ErrorAs(t, set.Check(), &cfgErr)
	assert.Equal(t, "prompts.writing", cfgErr.Field)
}
