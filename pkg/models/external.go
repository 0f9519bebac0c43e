package models

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// External representation keys. The set is fixed: ToMap always emits every
// key and NodeFromMap rejects anything else.
const (
	KeyContent         = "content"
	KeyWordCount       = "word_count"
	KeyNodeType        = "node_type"
	KeyStorySetting    = "story_setting"
	KeyCharacterList   = "character_list"
	KeyWritingTone     = "writing_tone"
	KeyLanguageStyle   = "language_style"
	KeyTheme           = "theme"
	KeyStoryStructure  = "story_structure"
	KeyPlotDevelopment = "plot_development"
	KeyWorldbuilding   = "worldbuilding"
	KeyWritingGoals    = "writing_goals"
	KeyOutline         = "outline"
	KeyGeneratedText   = "generated_text"
	KeyThresholdPassed = "decompose_threshold_passed"
	KeyAgentDecision   = "decompose_agent_decision"
	KeyAgentReasoning  = "decompose_agent_reasoning"
)

// ExternalKeys lists the keys of the external node representation in
// canonical order.
var ExternalKeys = []string{
	KeyContent, KeyWordCount, KeyNodeType,
	KeyStorySetting, KeyCharacterList, KeyWritingTone, KeyLanguageStyle,
	KeyTheme, KeyStoryStructure, KeyPlotDevelopment, KeyWorldbuilding, KeyWritingGoals,
	KeyOutline, KeyGeneratedText,
	KeyThresholdPassed, KeyAgentDecision, KeyAgentReasoning,
}

// ToMap converts the node to its flat external representation.
// Unset optional fields map to nil. The id is not part of the mapping.
func (n Node) ToMap() map[string]any {
	c := n.Context
	var characters any
	if c.CharacterList != nil {
		characters = append([]string{}, c.CharacterList...)
	}
	return map[string]any{
		KeyContent:         n.Content,
		KeyWordCount:       n.WordCount,
		KeyNodeType:        string(n.Kind),
		KeyStorySetting:    stringOrNil(c.StorySetting),
		KeyCharacterList:   characters,
		KeyWritingTone:     stringOrNil(c.WritingTone),
		KeyLanguageStyle:   stringOrNil(c.LanguageStyle),
		KeyTheme:           stringOrNil(c.Theme),
		KeyStoryStructure:  stringOrNil(c.StoryStructure),
		KeyPlotDevelopment: stringOrNil(c.PlotDevelopment),
		KeyWorldbuilding:   stringOrNil(c.Worldbuilding),
		KeyWritingGoals:    stringOrNil(c.WritingGoals),
		KeyOutline:         stringOrNil(n.Outline),
		KeyGeneratedText:   stringOrNil(n.GeneratedText),
		KeyThresholdPassed: boolOrNil(n.ThresholdPassed),
		KeyAgentDecision:   boolOrNil(n.AgentDecision),
		KeyAgentReasoning:  stringOrNil(n.AgentReasoning),
	}
}

// NodeFromMap rebuilds a node from its external representation.
// content and word_count are required; node_type defaults to internal and
// every other key defaults to unset. Values decoded from JSON or YAML
// (float64 numbers, []any lists) are accepted.
func NodeFromMap(id string, m map[string]any) (Node, error) {
	var unknown []string
	for k := range m {
		if !isExternalKey(k) {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return Node{}, fmt.Errorf("unknown node fields: %v", unknown)
	}

	n := Node{ID: id, Kind: KindInternal}

	raw, ok := m[KeyContent]
	if !ok {
		return Node{}, fmt.Errorf("missing required field %q", KeyContent)
	}
	content, err := asString(KeyContent, raw)
	if err != nil {
		return Node{}, err
	}
	if content == nil {
		return Node{}, fmt.Errorf("field %q must not be null", KeyContent)
	}
	n.Content = *content

	raw, ok = m[KeyWordCount]
	if !ok {
		return Node{}, fmt.Errorf("missing required field %q", KeyWordCount)
	}
	if n.WordCount, err = asInt(KeyWordCount, raw); err != nil {
		return Node{}, err
	}

	if raw, ok := m[KeyNodeType]; ok && raw != nil {
		kind, err := asString(KeyNodeType, raw)
		if err != nil {
			return Node{}, err
		}
		n.Kind = NodeKind(*kind)
		if !n.Kind.Valid() {
			return Node{}, fmt.Errorf("field %q: unknown node type %q", KeyNodeType, *kind)
		}
	}

	strFields := []struct {
		key string
		dst **string
	}{
		{KeyStorySetting, &n.Context.StorySetting},
		{KeyWritingTone, &n.Context.WritingTone},
		{KeyLanguageStyle, &n.Context.LanguageStyle},
		{KeyTheme, &n.Context.Theme},
		{KeyStoryStructure, &n.Context.StoryStructure},
		{KeyPlotDevelopment, &n.Context.PlotDevelopment},
		{KeyWorldbuilding, &n.Context.Worldbuilding},
		{KeyWritingGoals, &n.Context.WritingGoals},
		{KeyOutline, &n.Outline},
		{KeyGeneratedText, &n.GeneratedText},
		{KeyAgentReasoning, &n.AgentReasoning},
	}
	for _, f := range strFields {
		if *f.dst, err = asString(f.key, m[f.key]); err != nil {
			return Node{}, err
		}
	}

	if n.Context.CharacterList, err = asStringList(KeyCharacterList, m[KeyCharacterList]); err != nil {
		return Node{}, err
	}
	if n.ThresholdPassed, err = asBool(KeyThresholdPassed, m[KeyThresholdPassed]); err != nil {
		return Node{}, err
	}
	if n.AgentDecision, err = asBool(KeyAgentDecision, m[KeyAgentDecision]); err != nil {
		return Node{}, err
	}

	return n, nil
}

func isExternalKey(k string) bool {
	for _, key := range ExternalKeys {
		if key == k {
			return true
		}
	}
	return false
}

func stringOrNil(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func boolOrNil(b *bool) any {
	if b == nil {
		return nil
	}
	return *b
}

func asString(key string, v any) (*string, error) {
	switch s := v.(type) {
	case nil:
		return nil, nil
	case string:
		return &s, nil
	default:
		return nil, fmt.Errorf("field %q: expected string, got %T", key, v)
	}
}

func asBool(key string, v any) (*bool, error) {
	switch b := v.(type) {
	case nil:
		return nil, nil
	case bool:
		return &b, nil
	default:
		return nil, fmt.Errorf("field %q: expected bool, got %T", key, v)
	}
}

func asInt(key string, v any) (int, error) {
	var n int
	switch x := v.(type) {
	case int:
		n = x
	case int64:
		n = int(x)
	case int32:
		n = int(x)
	case uint64:
		n = int(x)
	case float64:
		if x != math.Trunc(x) {
			return 0, fmt.Errorf("field %q: expected integer, got %v", key, x)
		}
		n = int(x)
	case json.Number:
		i, err := x.Int64()
		if err != nil {
			return 0, fmt.Errorf("field %q: %w", key, err)
		}
		n = int(i)
	default:
		return 0, fmt.Errorf("field %q: expected integer, got %T", key, v)
	}
	if n < 0 {
		return 0, fmt.Errorf("field %q: must be non-negative, got %d", key, n)
	}
	return n, nil
}

func asStringList(key string, v any) ([]string, error) {
	switch list := v.(type) {
	case nil:
		return nil, nil
	case []string:
		return append([]string{}, list...), nil
	case []any:
		out := make([]string, 0, len(list))
		for i, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("field %q: element %d is %T, not string", key, i, item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("field %q: expected list of strings, got %T", key, v)
	}
}
