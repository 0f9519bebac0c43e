package orchestrator

import (
	"strings"
	"unicode"

	"github.com/ShayCichocki/treewriter/internal/tree"
	"github.com/ShayCichocki/treewriter/pkg/models"
)

// Separator joins the text of consecutive leaves.
const Separator = "\n\n"

// Concatenate walks t in pre-order from the root and joins the generated
// text of every leaf that has some. A tree without a root yields "".
func Concatenate(t *tree.Tree) (string, error) {
	if t.Root() == "" {
		return "", nil
	}
	seq, err := t.Preorder(t.Root())
	if err != nil {
		return "", err
	}

	var parts []string
	for id := range seq {
		node, err := t.Node(id)
		if err != nil {
			return "", err
		}
		if node.Kind == models.KindLeaf && node.GeneratedText != nil {
			parts = append(parts, *node.GeneratedText)
		}
	}
	return strings.Join(parts, Separator), nil
}

// CountWords counts whitespace-separated words. Han characters count one
// word each, so Chinese text is measured by character.
func CountWords(text string) int {
	n := 0
	for _, field := range strings.Fields(text) {
		inWord := false
		for _, r := range field {
			if unicode.Is(unicode.Han, r) {
				n++
				inWord = false
				continue
			}
			if !inWord && !unicode.IsPunct(r) {
				n++
				inWord = true
			}
		}
	}
	return n
}
