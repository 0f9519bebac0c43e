package decompose

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"

	"github.com/ShayCichocki/treewriter/pkg/models"
)

// Reasoning strings used when the reply cannot be interpreted.
const (
	ReasonParseFailure = "parse failure"
	ReasonNotProvided  = "No reasoning provided"
)

var (
	// fencedObject matches a JSON object inside a ``` or ```json fence.
	fencedObject = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")
	// bareObject matches the widest object mentioning should_decompose.
	bareObject = regexp.MustCompile(`(?s)\{.*"should_decompose".*\}`)
)

// rawDecision is the JSON structure returned by the planner.
type rawDecision struct {
	ShouldDecompose bool       `json:"should_decompose"`
	Reasoning       *string    `json:"reasoning"`
	Children        []rawChild `json:"children"`
}

// rawChild is one proposed child as returned by the planner.
type rawChild struct {
	Name            string    `json:"name"`
	Content         string    `json:"content"`
	WordCount       wordCount `json:"word_count"`
	StorySetting    *string   `json:"story_setting"`
	CharacterList   []string  `json:"character_list"`
	WritingTone     *string   `json:"writing_tone"`
	LanguageStyle   *string   `json:"language_style"`
	Theme           *string   `json:"theme"`
	StoryStructure  *string   `json:"story_structure"`
	PlotDevelopment *string   `json:"plot_development"`
	Worldbuilding   *string   `json:"worldbuilding"`
	WritingGoals    *string   `json:"writing_goals"`
}

// MaxChildWordCount caps a child's word count taken from a planner reply.
const MaxChildWordCount = math.MaxInt32

// wordCount accepts a JSON number or a numeric string. Negative values
// become 0 and values above MaxChildWordCount are clamped to it; NaN and
// infinities are rejected.
type wordCount int

func (w *wordCount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*w = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(s)
	}
	f, err := strconv.ParseFloat(string(bytes.TrimSpace(data)), 64)
	if err != nil {
		return err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("invalid word count %q", data)
	}
	switch {
	case f < 0:
		f = 0
	case f > MaxChildWordCount:
		f = MaxChildWordCount
	}
	*w = wordCount(int(f))
	return nil
}

// ParseDecision extracts the planner's decision from a free-form reply.
// It tries a fenced JSON object first, then a bare object containing
// "should_decompose". Anything else, including malformed JSON, yields
// Decision{ShouldDecompose: false, Reasoning: ReasonParseFailure}.
func ParseDecision(reply string) Decision {
	var candidate string
	if m := fencedObject.FindStringSubmatch(reply); m != nil {
		candidate = m[1]
	} else if m := bareObject.FindString(reply); m != "" {
		candidate = m
	} else {
		return Decision{Reasoning: ReasonParseFailure}
	}

	var raw rawDecision
	if err := json.Unmarshal([]byte(candidate), &raw); err != nil {
		return Decision{Reasoning: ReasonParseFailure}
	}

	d := Decision{
		ShouldDecompose: raw.ShouldDecompose,
		Reasoning:       ReasonNotProvided,
	}
	if raw.Reasoning != nil {
		d.Reasoning = *raw.Reasoning
	}
	for _, rc := range raw.Children {
		content := rc.Content
		if content == "" {
			content = rc.Name
		}
		d.Children = append(d.Children, ChildSpec{
			Content:   content,
			WordCount: int(rc.WordCount),
			Context: models.CreativeContext{
				StorySetting:    rc.StorySetting,
				CharacterList:   rc.CharacterList,
				WritingTone:     rc.WritingTone,
				LanguageStyle:   rc.LanguageStyle,
				Theme:           rc.Theme,
				StoryStructure:  rc.StoryStructure,
				PlotDevelopment: rc.PlotDevelopment,
				Worldbuilding:   rc.Worldbuilding,
				WritingGoals:    rc.WritingGoals,
			},
		})
	}
	return d
}
