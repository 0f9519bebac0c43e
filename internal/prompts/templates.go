// Package prompts holds the planning, outline and writing templates and the
// renderer that fills them.
package prompts

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/ShayCichocki/treewriter/internal/errors"
)

// Supported languages.
const (
	LanguageEnglish = "en"
	LanguageChinese = "cn"
)

// Set is the group of templates used for one generation request.
type Set struct {
	Language string `yaml:"language"`
	// Planning decides whether to split a node, and into which children.
	Planning string `yaml:"planning"`
	// Outline produces the plan for one leaf.
	Outline string `yaml:"outline"`
	// Writing turns a leaf's outline into prose.
	Writing string `yaml:"writing"`
	// Unspecified replaces unset creative context fields.
	Unspecified string `yaml:"unspecified"`
}

// ForLanguage returns the built-in templates for lang.
func ForLanguage(lang string) (Set, error) {
	switch lang {
	case LanguageEnglish:
		return Set{
			Language:    LanguageEnglish,
			Planning:    planningEN,
			Outline:     outlineEN,
			Writing:     writingEN,
			Unspecified: "unspecified",
		}, nil
	case LanguageChinese:
		return Set{
			Language:    LanguageChinese,
			Planning:    planningCN,
			Outline:     outlineCN,
			Writing:     writingCN,
			Unspecified: "未指定",
		}, nil
	default:
		return Set{}, errors.NewConfigurationError("generation.language", "unsupported language %q (want cn or en)", lang)
	}
}

// LoadFile reads a YAML file of template overrides and applies it on top of
// base. Keys that are absent or empty keep the base template. The merged set
// must pass Check.
func LoadFile(path string, base Set) (Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Set{}, fmt.Errorf("read prompt file: %w", err)
	}

	var override Set
	if err := yaml.Unmarshal(data, &override); err != nil {
		return Set{}, fmt.Errorf("parse prompt file %s: %w", path, err)
	}

	out := base
	if override.Planning != "" {
		out.Planning = override.Planning
	}
	if override.Outline != "" {
		out.Outline = override.Outline
	}
	if override.Writing != "" {
		out.Writing = override.Writing
	}
	if override.Unspecified != "" {
		out.Unspecified = override.Unspecified
	}
	if err := out.Check(); err != nil {
		return Set{}, fmt.Errorf("prompt file %s: %w", path, err)
	}
	return out, nil
}

const planningEN = `## Role
You plan long-form writing. Your job is to decide whether a writing task should be split into smaller sub-tasks, and if so, how.

## Task
{content}

## Requirements
- Target length: {word_count} words
- Setting: {story_setting}
- Characters: {character_list}
- Tone: {writing_tone}
- Language style: {language_style}
- Theme: {theme}
- Structure: {story_structure}
- Plot notes: {plot_development}
- Worldbuilding: {worldbuilding}
- Goals: {writing_goals}

## Deciding
Split the task when it is long (more than {max_word_count} words is usually too long for one pass), when it mixes several plot lines or themes, or when it breaks naturally into consecutive parts. Keep it whole when it is already a single focused scene. Tasks under {min_word_count} words are rarely worth splitting.

If you split it:
- produce between {min_children} and {max_children} sub-tasks, in reading order
- make the sub-task word counts add up to {word_count}
- give every sub-task a concrete goal and enough detail to be written on its own
- keep the sub-tasks consistent with each other

## Output
Reply with a single JSON object:

` + "```json" + `
{{
  "should_decompose": true,
  "reasoning": "why you decided this",
  "children": [
    {{
      "content": "what this part must cover",
      "word_count": 1200,
      "story_setting": "where this part happens",
      "character_list": ["name"],
      "writing_goals": "what this part must achieve"
    }}
  ]
}}
` + "```" + `

Omit any child field you want inherited from the parent task. When should_decompose is false, return an empty children list.
`

const outlineEN = `## Role
You write outlines that a writer will expand into finished prose.

## Part to outline
{content}

## Requirements
- Target length: {word_count} words
- Setting: {story_setting}
- Characters: {character_list}
- Tone: {writing_tone}
- Language style: {language_style}
- Theme: {theme}
- Structure: {story_structure}
- Plot notes: {plot_development}
- Worldbuilding: {worldbuilding}
- Goals: {writing_goals}

## Where this part fits
Whole work: {root_content}
Enclosing section: {parent_content}

## Instructions
Write an outline with three to five main beats. For each beat, say how it develops, which details and images to bring forward, and how it connects to the rest of the work. Size the outline to the target length and keep to the tone, style, characters and setting above.

Reply with the outline only, as a numbered list or headed sections.
`

const writingEN = `## Role
You are a fiction writer. Turn the outline below into finished prose.

## Part to write
{content}

## Outline
{outline}

## Requirements
- Target length: {word_count} words (stay within 20%)
- Setting: {story_setting}
- Characters: {character_list}
- Tone: {writing_tone}
- Language style: {language_style}
- Theme: {theme}
- Plot notes: {plot_development}
- Worldbuilding: {worldbuilding}
- Goals: {writing_goals}

## Context
Whole work: {root_content}
Text so far:
{previous_content}

## Instructions
Follow the outline beat by beat. Stay consistent with the text so far. Show the characters and places through concrete detail, and keep the tone and style throughout.

Reply with the prose only. No titles, notes or commentary.
`

const planningCN = `## 角色
你负责长篇写作的规划，判断一个写作任务是否需要拆分为更小的子任务，以及如何拆分。

## 任务
{content}

## 要求
- 目标字数：{word_count} 字
- 故事背景：{story_setting}
- 人物：{character_list}
- 基调：{writing_tone}
- 语言风格：{language_style}
- 主题：{theme}
- 结构：{story_structure}
- 情节：{plot_development}
- 世界观：{worldbuilding}
- 目标：{writing_goals}

## 判断
任务篇幅较长（通常超过 {max_word_count} 字）、包含多条情节线或主题、或者可以自然地分成前后衔接的几段时，应当拆分。任务已经是一个聚焦的场景时保持完整。少于 {min_word_count} 字的任务一般不需要拆分。

如果拆分：
- 拆成 {min_children} 到 {max_children} 个子任务，按阅读顺序排列
- 子任务字数之和等于 {word_count}
- 每个子任务都有明确的目标和足够独立写作的细节
- 子任务之间保持连贯

## 输出
只输出一个 JSON 对象：

` + "```json" + `
{{
  "should_decompose": true,
  "reasoning": "判断理由",
  "children": [
    {{
      "content": "这一部分需要写的内容",
      "word_count": 1200,
      "story_setting": "这一部分的场景",
      "character_list": ["人物"],
      "writing_goals": "这一部分要达成的目标"
    }}
  ]
}}
` + "```" + `

希望沿用父任务设定的字段可以省略。should_decompose 为 false 时，children 为空数组。
`

const outlineCN = `## 角色
你负责撰写写作大纲，写作者会根据大纲扩写成正文。

## 本部分任务
{content}

## 要求
- 目标字数：{word_count} 字
- 故事背景：{story_setting}
- 人物：{character_list}
- 基调：{writing_tone}
- 语言风格：{language_style}
- 主题：{theme}
- 结构：{story_structure}
- 情节：{plot_development}
- 世界观：{worldbuilding}
- 目标：{writing_goals}

## 上下文
整体任务：{root_content}
上级任务：{parent_content}

## 说明
列出三到五个主要情节点。每个情节点说明如何展开、需要突出的细节与描写，以及与整体作品的衔接。大纲篇幅与目标字数相称，并符合上述基调、风格、人物和场景。

只输出大纲，使用编号列表或分级标题。
`

const writingCN = `## 角色
你是一名小说作者，请把下面的大纲写成完整的正文。

## 本部分任务
{content}

## 大纲
{outline}

## 要求
- 目标字数：{word_count} 字（偏差不超过 20%）
- 故事背景：{story_setting}
- 人物：{character_list}
- 基调：{writing_tone}
- 语言风格：{language_style}
- 主题：{theme}
- 情节：{plot_development}
- 世界观：{worldbuilding}
- 目标：{writing_goals}

## 上下文
整体任务：{root_content}
已有正文：
{previous_content}

## 说明
逐条按照大纲写作，与已有正文保持一致。用具体的细节呈现人物与场景，全篇保持基调与风格。

只输出正文，不要标题、注释或说明。
`
