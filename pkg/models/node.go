package models

import "slices"

// RootID is the id of the unique entry node of every writing tree.
const RootID = "root"

// NodeKind classifies a node's position in the writing tree.
type NodeKind string

const (
	// KindRoot is the single entry node holding the overall writing task.
	KindRoot NodeKind = "root"
	// KindInternal is a node that has been (or may be) decomposed further.
	KindInternal NodeKind = "internal"
	// KindLeaf is a terminal node that receives an outline and prose.
	KindLeaf NodeKind = "leaf"
)

// Valid returns true if the kind is a known value.
func (k NodeKind) Valid() bool {
	switch k {
	case KindRoot, KindInternal, KindLeaf:
		return true
	default:
		return false
	}
}

// CreativeContext holds the optional creative parameters of a writing task.
// A nil field is unset and is inherited from the parent node when a child is
// created; an empty but non-nil value is an explicit choice.
type CreativeContext struct {
	StorySetting    *string
	CharacterList   []string
	WritingTone     *string
	LanguageStyle   *string
	Theme           *string
	StoryStructure  *string
	PlotDevelopment *string
	Worldbuilding   *string
	WritingGoals    *string
}

// Inherit returns a copy of c where every unset field is taken from parent.
func (c CreativeContext) Inherit(parent CreativeContext) CreativeContext {
	out := c.Clone()
	pick := func(own, from *string) *string {
		if own != nil {
			return own
		}
		return cloneString(from)
	}
	out.StorySetting = pick(out.StorySetting, parent.StorySetting)
	out.WritingTone = pick(out.WritingTone, parent.WritingTone)
	out.LanguageStyle = pick(out.LanguageStyle, parent.LanguageStyle)
	out.Theme = pick(out.Theme, parent.Theme)
	out.StoryStructure = pick(out.StoryStructure, parent.StoryStructure)
	out.PlotDevelopment = pick(out.PlotDevelopment, parent.PlotDevelopment)
	out.Worldbuilding = pick(out.Worldbuilding, parent.Worldbuilding)
	out.WritingGoals = pick(out.WritingGoals, parent.WritingGoals)
	if out.CharacterList == nil {
		out.CharacterList = slices.Clone(parent.CharacterList)
	}
	return out
}

// Clone returns a deep copy of c.
func (c CreativeContext) Clone() CreativeContext {
	return CreativeContext{
		StorySetting:    cloneString(c.StorySetting),
		CharacterList:   slices.Clone(c.CharacterList),
		WritingTone:     cloneString(c.WritingTone),
		LanguageStyle:   cloneString(c.LanguageStyle),
		Theme:           cloneString(c.Theme),
		StoryStructure:  cloneString(c.StoryStructure),
		PlotDevelopment: cloneString(c.PlotDevelopment),
		Worldbuilding:   cloneString(c.Worldbuilding),
		WritingGoals:    cloneString(c.WritingGoals),
	}
}

// Node is a writing sub-task in the tree.
type Node struct {
	// ID is the unique, immutable key of the node.
	ID string
	// Content describes what this part of the text must cover.
	Content string
	// WordCount is the target length of this part.
	WordCount int
	// Kind is the node's role in the tree.
	Kind NodeKind
	// Context carries the optional creative parameters.
	Context CreativeContext

	// Outline is set by the outline pass, on leaves only.
	Outline *string
	// GeneratedText is set by the text pass, on leaves with an outline.
	GeneratedText *string

	// Decomposition audit trail. Recorded for traceability only.
	ThresholdPassed *bool
	AgentDecision   *bool
	AgentReasoning  *string
}

// Clone returns a deep copy of n.
func (n Node) Clone() Node {
	out := n
	out.Context = n.Context.Clone()
	out.Outline = cloneString(n.Outline)
	out.GeneratedText = cloneString(n.GeneratedText)
	out.ThresholdPassed = cloneBool(n.ThresholdPassed)
	out.AgentDecision = cloneBool(n.AgentDecision)
	out.AgentReasoning = cloneString(n.AgentReasoning)
	return out
}

// HasOutline reports whether the node carries a non-empty outline.
func (n Node) HasOutline() bool {
	return n.Outline != nil && *n.Outline != ""
}

// NodeSpec describes a node to insert into a tree.
type NodeSpec struct {
	Content   string
	WordCount int
	// Kind defaults to KindInternal for AddNode. AddRoot always uses KindRoot.
	Kind    NodeKind
	Context CreativeContext
}

// NodeUpdate is a partial set of node fields. Nil fields are left untouched.
type NodeUpdate struct {
	Content         *string
	WordCount       *int
	Kind            *NodeKind
	Context         *CreativeContext
	Outline         *string
	GeneratedText   *string
	ThresholdPassed *bool
	AgentDecision   *bool
	AgentReasoning  *string
}

// Apply merges the non-nil fields of u onto n.
func (u NodeUpdate) Apply(n *Node) {
	if u.Content != nil {
		n.Content = *u.Content
	}
	if u.WordCount != nil {
		n.WordCount = *u.WordCount
	}
	if u.Kind != nil {
		n.Kind = *u.Kind
	}
	if u.Context != nil {
		n.Context = u.Context.Clone()
	}
	if u.Outline != nil {
		n.Outline = cloneString(u.Outline)
	}
	if u.GeneratedText != nil {
		n.GeneratedText = cloneString(u.GeneratedText)
	}
	if u.ThresholdPassed != nil {
		n.ThresholdPassed = cloneBool(u.ThresholdPassed)
	}
	if u.AgentDecision != nil {
		n.AgentDecision = cloneBool(u.AgentDecision)
	}
	if u.AgentReasoning != nil {
		n.AgentReasoning = cloneString(u.AgentReasoning)
	}
}

// Ptr returns a pointer to v. Handy for optional fields.
func Ptr[T any](v T) *T {
	return &v
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}
