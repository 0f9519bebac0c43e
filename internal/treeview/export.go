package treeview

import (
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"

	"github.com/ShayCichocki/treewriter/internal/tree"
	"github.com/ShayCichocki/treewriter/pkg/models"
)

// Document is the YAML form of a tree.
type Document struct {
	Root  string       `yaml:"root"`
	Nodes []ExportNode `yaml:"nodes"`
}

// ExportNode is one node: its position in the tree plus the external
// representation of its fields.
type ExportNode struct {
	ID       string         `yaml:"id"`
	Parent   string         `yaml:"parent,omitempty"`
	Children []string       `yaml:"children,omitempty"`
	Fields   map[string]any `yaml:",inline"`
}

// node rebuilds the models.Node described by e.
func (e ExportNode) node() (models.Node, error) {
	n, err := models.NodeFromMap(e.ID, e.Fields)
	if err != nil {
		return models.Node{}, fmt.Errorf("node %s: %w", e.ID, err)
	}
	return n, nil
}

// Export collects t's nodes in pre-order.
func Export(t *tree.Tree) (*Document, error) {
	doc := &Document{Root: t.Root()}
	if t.Root() == "" {
		return doc, nil
	}

	seq, err := t.Preorder(t.Root())
	if err != nil {
		return nil, err
	}
	for id := range seq {
		node, err := t.Node(id)
		if err != nil {
			return nil, err
		}
		children, err := t.Children(id)
		if err != nil {
			return nil, err
		}
		parent, _, err := t.Parent(id)
		if err != nil {
			return nil, err
		}
		doc.Nodes = append(doc.Nodes, ExportNode{
			ID:       id,
			Parent:   parent,
			Children: children,
			Fields:   node.ToMap(),
		})
	}
	return doc, nil
}

// WriteYAML writes t to w as a YAML Document.
func WriteYAML(w io.Writer, t *tree.Tree) error {
	doc, err := Export(t)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode tree: %w", err)
	}
	return enc.Close()
}

// readYAML decodes a Document written by WriteYAML.
func readYAML(r io.Reader) (*Document, error) {
	var doc Document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode tree: %w", err)
	}
	return &doc, nil
}
