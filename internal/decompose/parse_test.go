package decompose

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDecision(t *testing.T) {
	tests := []struct {
		name      string
		reply     string
		decompose bool
		reasoning string
		children  int
	}{
		{
			name:      "fenced json",
			reply:     "Sure.\n```json\n{\"should_decompose\": true, \"reasoning\": \"two plot lines\"}\n```\nDone.",
			decompose: true,
			reasoning: "two plot lines",
		},
		{
			name:      "untagged fence",
			reply:     "```\n{\"should_decompose\": false, \"reasoning\": \"single scene\"}\n```",
			reasoning: "single scene",
		},
		{
			name:      "bare object",
			reply:     `My answer: {"should_decompose": true, "reasoning": "long", "children": [{"content": "a", "word_count": 10}, {"content": "b", "word_count": 10}]} thanks`,
			decompose: true,
			reasoning: "long",
			children:  2,
		},
		{
			name:      "missing reasoning",
			reply:     `{"should_decompose": true}`,
			decompose: true,
			reasoning: ReasonNotProvided,
		},
		{
			name:      "no json",
			reply:     "The task is short enough.",
			reasoning: ReasonParseFailure,
		},
		{
			name:      "malformed fenced json",
			reply:     "```json\n{\"should_decompose\": tru}\n```",
			reasoning: ReasonParseFailure,
		},
		{
			name:      "object without decision key",
			reply:     `{"answer": "yes"}`,
			reasoning: ReasonParseFailure,
		},
		{
			name:      "bad word count",
			reply:     `{"should_decompose": true, "children": [{"content": "a", "word_count": "many"}]}`,
			reasoning: ReasonParseFailure,
		},
		{
			name:      "infinite word count",
			reply:     `{"should_decompose": true, "children": [{"content": "a", "word_count": "Infinity"}, {"content": "b", "word_count": 3000}]}`,
			reasoning: ReasonParseFailure,
		},
		{
			name:      "huge word count",
			reply:     `{"should_decompose": true, "reasoning": "big", "children": [{"content": "a", "word_count": 1e30}, {"content": "b", "word_count": 3000}]}`,
			decompose: true,
			reasoning: "big",
			children:  2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := ParseDecision(tt.reply)
			assert.Equal(t, tt.decompose, d.ShouldDecompose)
			assert.Equal(t, tt.reasoning, d.Reasoning)
			assert.Len(t, d.Children, tt.children)
		})
	}
}

func TestParseDecision_Children(t *testing.T) {
	reply := "```json\n" + `{
  "should_decompose": true,
  "reasoning": "three acts",
  "children": [
    {"content": "Act one", "word_count": 1200.7, "story_setting": "a harbor town", "character_list": ["Mara", "Ivo"]},
    {"name": "Act two", "word_count": "900", "character_list": []},
    {"content": "Act three", "word_count": null, "theme": null}
  ]
}` + "\n```"

	d := ParseDecision(reply)
	require.True(t, d.ShouldDecompose)
	require.Len(t, d.Children, 3)

	first := d.Children[0]
	assert.Equal(t, "Act one", first.Content)
	assert.Equal(t, 1200, first.WordCount)
	require.NotNil(t, first.Context.StorySetting)
	assert.Equal(t, "a harbor town", *first.Context.StorySetting)
	assert.Equal(t, []string{"Mara", "Ivo"}, first.Context.CharacterList)
	assert.Nil(t, first.Context.Theme)

	second := d.Children[1]
	assert.Equal(t, "Act two", second.Content, "name is used when content is absent")
	assert.Equal(t, 900, second.WordCount)
	assert.NotNil(t, second.Context.CharacterList, "explicit empty list is kept")
	assert.Empty(t, second.Context.CharacterList)

	third := d.Children[2]
	assert.Equal(t, 0, third.WordCount)
	assert.Nil(t, third.Context.Theme)
	assert.Nil(t, third.Context.CharacterList)
}

func TestParseDecision_WordCountBounds(t *testing.T) {
	d := ParseDecision(`{"should_decompose": true, "children": [
  {"content": "a", "word_count": 1e30},
  {"content": "b", "word_count": "-40"},
  {"content": "c", "word_count": "1e12"}
]}`)
	require.Len(t, d.Children, 3)
	assert.Equal(t, math.MaxInt32, d.Children[0].WordCount)
	assert.Equal(t, 0, d.Children[1].WordCount)
	assert.Equal(t, math.MaxInt32, d.Children[2].WordCount)
}
