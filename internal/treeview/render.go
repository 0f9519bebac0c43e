// Package treeview renders a writing tree for the terminal and exports it
// as YAML.
package treeview

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ShayCichocki/treewriter/internal/decompose"
	"github.com/ShayCichocki/treewriter/internal/tree"
	"github.com/ShayCichocki/treewriter/pkg/models"
)

// Kind icons.
const (
	iconRoot     = "◆"
	iconInternal = "▸"
	iconLeaf     = "•"
)

// Styles holds the lipgloss styles used by Render.
type Styles struct {
	Root     lipgloss.Style
	Internal lipgloss.Style
	Leaf     lipgloss.Style
	Arrow    lipgloss.Style
	Words    lipgloss.Style
	Reason   lipgloss.Style
	Content  lipgloss.Style
}

// DefaultStyles returns the colored styles used on a terminal.
func DefaultStyles() Styles {
	return Styles{
		Root:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("213")),
		Internal: lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		Leaf:     lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		Arrow:    lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		Words:    lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		Reason:   lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("214")),
		Content:  lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
	}
}

// PlainStyles returns styles that add no formatting.
func PlainStyles() Styles {
	plain := lipgloss.NewStyle()
	return Styles{
		Root: plain, Internal: plain, Leaf: plain, Arrow: plain,
		Words: plain, Reason: plain, Content: plain,
	}
}

// Options controls Render.
type Options struct {
	Styles Styles
	// Reasons annotates leaves with why they were not split further.
	Reasons map[string]decompose.LeafReason
	// ContentWidth truncates task text to this many characters.
	// Zero means 60; negative disables truncation.
	ContentWidth int
}

// Render draws t as an indented outline, one node per line in pre-order.
func Render(t *tree.Tree, opts Options) (string, error) {
	if t.Root() == "" {
		return "", nil
	}
	width := opts.ContentWidth
	if width == 0 {
		width = 60
	}

	seq, err := t.Preorder(t.Root())
	if err != nil {
		return "", err
	}

	s := opts.Styles
	var b strings.Builder
	for id := range seq {
		node, err := t.Node(id)
		if err != nil {
			return "", err
		}
		depth, err := t.Depth(id)
		if err != nil {
			return "", err
		}

		indent := strings.Repeat("  ", depth)
		prefix := ""
		if depth > 0 {
			indent = strings.Repeat("  ", depth-1)
			prefix = s.Arrow.Render("|-- ")
		}

		line := fmt.Sprintf("%s%s%s %s %s",
			indent,
			prefix,
			kindLabel(s, node, id == t.Root()),
			s.Words.Render(fmt.Sprintf("(%d words)", node.WordCount)),
			s.Content.Render(truncate(node.Content, width)),
		)
		if reason, ok := opts.Reasons[id]; ok {
			line += " " + s.Reason.Render("["+string(reason)+"]")
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String(), nil
}

// kindLabel renders the icon and id. The root keeps its root styling even
// when it was marked a leaf.
func kindLabel(s Styles, n models.Node, isRoot bool) string {
	switch {
	case isRoot:
		return s.Root.Render(iconRoot + " " + n.ID)
	case n.Kind == models.KindLeaf:
		return s.Leaf.Render(iconLeaf + " " + n.ID)
	default:
		return s.Internal.Render(iconInternal + " " + n.ID)
	}
}

// truncate shortens s to maxLen characters, counting runes.
func truncate(s string, maxLen int) string {
	s = strings.Join(strings.Fields(s), " ")
	if maxLen < 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
