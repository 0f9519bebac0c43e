// Package tree provides the writing tree: nodes keyed by id plus ordered
// parent->children edges. It knows nothing about generation.
package tree

import (
	"fmt"
	"iter"
	"slices"
	"sync"

	"github.com/ShayCichocki/treewriter/internal/errors"
	"github.com/ShayCichocki/treewriter/pkg/models"
)

// Tree holds the nodes of one generation request.
// It is owned by a single goroutine while being built; the lock only makes
// concurrent reads from worker goroutines safe.
type Tree struct {
	mu sync.RWMutex
	// nodes maps node ID to the node itself.
	nodes map[string]*models.Node
	// order records node IDs in insertion order.
	order []string
	// children maps node ID to its child IDs in edge-insertion order.
	children map[string][]string
	// parent maps child ID to its parent ID.
	parent map[string]string
	// rootID is empty until AddRoot succeeds.
	rootID string
	// debugLog is an optional logging function.
	debugLog func(format string, args ...any)
}

// New creates a new empty tree.
func New() *Tree {
	return &Tree{
		nodes:    make(map[string]*models.Node),
		children: make(map[string][]string),
		parent:   make(map[string]string),
		debugLog: func(format string, args ...any) {}, // no-op by default
	}
}

// SetDebugLog sets the debug logging function.
func (t *Tree) SetDebugLog(fn func(format string, args ...any)) {
	if fn != nil {
		t.debugLog = fn
	}
}

// AddRoot inserts the root node under models.RootID.
func (t *Tree) AddRoot(spec models.NodeSpec) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.rootID != "" {
		return errors.DuplicateNode("add_root", models.RootID)
	}
	spec.Kind = models.KindRoot
	if err := t.insertLocked("add_root", models.RootID, spec); err != nil {
		return err
	}
	t.rootID = models.RootID
	return nil
}

// AddNode inserts a node without connecting it. Kind defaults to internal.
func (t *Tree) AddNode(id string, spec models.NodeSpec) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if spec.Kind == "" {
		spec.Kind = models.KindInternal
	}
	if spec.Kind == models.KindRoot {
		return errors.NewStructureError("add_node", id, nil, "root nodes must be created with AddRoot")
	}
	return t.insertLocked("add_node", id, spec)
}

func (t *Tree) insertLocked(op, id string, spec models.NodeSpec) error {
	if id == "" {
		return errors.NewStructureError(op, id, nil, "node id must not be empty")
	}
	if _, exists := t.nodes[id]; exists {
		return errors.DuplicateNode(op, id)
	}
	if !spec.Kind.Valid() {
		return errors.NewStructureError(op, id, nil, fmt.Sprintf("unknown node kind %q", spec.Kind))
	}
	if spec.WordCount < 0 {
		return errors.NewStructureError(op, id, nil, fmt.Sprintf("word count must be non-negative, got %d", spec.WordCount))
	}

	t.nodes[id] = &models.Node{
		ID:        id,
		Content:   spec.Content,
		WordCount: spec.WordCount,
		Kind:      spec.Kind,
		Context:   spec.Context.Clone(),
	}
	t.order = append(t.order, id)
	t.debugLog("[tree.%s] id=%s kind=%s words=%d", op, id, spec.Kind, spec.WordCount)
	return nil
}

// AddEdge appends child to parent's ordered child list.
// Re-adding an existing edge is a no-op.
func (t *Tree) AddEdge(parentID, childID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	const op = "add_edge"
	if _, ok := t.nodes[parentID]; !ok {
		return errors.NodeNotFound(op, parentID)
	}
	if _, ok := t.nodes[childID]; !ok {
		return errors.NodeNotFound(op, childID)
	}
	if childID == t.rootID {
		return errors.NewStructureError(op, childID, nil, "the root cannot be a child")
	}
	if current, ok := t.parent[childID]; ok {
		if current == parentID {
			return nil
		}
		return errors.NewStructureError(op, childID, nil,
			fmt.Sprintf("node %q already has parent %q", childID, current))
	}

	// A node has at most one parent, so a cycle can only close if the child
	// is the parent itself or one of its ancestors.
	for id, ok := parentID, true; ok; id, ok = t.parent[id] {
		if id == childID {
			return errors.NewStructureError(op, childID, nil,
				fmt.Sprintf("edge %s -> %s would create a cycle", parentID, childID))
		}
	}

	t.children[parentID] = append(t.children[parentID], childID)
	t.parent[childID] = parentID
	t.debugLog("[tree.add_edge] %s -> %s", parentID, childID)
	return nil
}

// Node returns a deep copy of the node.
func (t *Tree) Node(id string) (models.Node, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n, ok := t.nodes[id]
	if !ok {
		return models.Node{}, errors.NodeNotFound("get_node", id)
	}
	return n.Clone(), nil
}

// Children returns a copy of the node's ordered child ids.
func (t *Tree) Children(id string) ([]string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if _, ok := t.nodes[id]; !ok {
		return nil, errors.NodeNotFound("get_children", id)
	}
	return slices.Clone(t.children[id]), nil
}

// Parent returns the node's parent id. ok is false for nodes without a
// parent, such as the root.
func (t *Tree) Parent(id string) (parentID string, ok bool, err error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if _, exists := t.nodes[id]; !exists {
		return "", false, errors.NodeNotFound("get_parent", id)
	}
	parentID, ok = t.parent[id]
	return parentID, ok, nil
}

// Leaves returns the ids of all nodes that are marked leaf or have no
// children, in node insertion order.
func (t *Tree) Leaves() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var leaves []string
	for _, id := range t.order {
		if t.nodes[id].Kind == models.KindLeaf || len(t.children[id]) == 0 {
			leaves = append(leaves, id)
		}
	}
	return leaves
}

// MarkLeaf sets the node's kind to leaf.
func (t *Tree) MarkLeaf(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	n, ok := t.nodes[id]
	if !ok {
		return errors.NodeNotFound("mark_leaf", id)
	}
	n.Kind = models.KindLeaf
	t.debugLog("[tree.mark_leaf] id=%s", id)
	return nil
}

// Update merges the non-nil fields of u onto the node.
func (t *Tree) Update(id string, u models.NodeUpdate) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	n, ok := t.nodes[id]
	if !ok {
		return errors.NodeNotFound("update_node", id)
	}
	if u.Kind != nil && !u.Kind.Valid() {
		return errors.NewStructureError("update_node", id, nil, fmt.Sprintf("unknown node kind %q", *u.Kind))
	}
	if u.WordCount != nil && *u.WordCount < 0 {
		return errors.NewStructureError("update_node", id, nil, "word count must be non-negative")
	}
	u.Apply(n)
	return nil
}

// Preorder returns a lazy pre-order traversal starting at start: the node
// itself, then each child subtree in child-insertion order. The sequence
// can be ranged over any number of times.
func (t *Tree) Preorder(start string) (iter.Seq[string], error) {
	if !t.Contains(start) {
		return nil, errors.NodeNotFound("traverse_preorder", start)
	}

	return func(yield func(string) bool) {
		stack := []string{start}
		for len(stack) > 0 {
			id := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if !yield(id) {
				return
			}

			t.mu.RLock()
			kids := t.children[id]
			for i := len(kids) - 1; i >= 0; i-- {
				stack = append(stack, kids[i])
			}
			t.mu.RUnlock()
		}
	}, nil
}

// Root returns the root id, or "" if AddRoot has not been called.
func (t *Tree) Root() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.rootID
}

// Len returns the number of nodes in the tree.
func (t *Tree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.nodes)
}

// Contains reports whether a node with the given id exists.
func (t *Tree) Contains(id string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.nodes[id]
	return ok
}

// Depth returns the number of edges between the root and id.
func (t *Tree) Depth(id string) (int, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if _, ok := t.nodes[id]; !ok {
		return 0, errors.NodeNotFound("depth", id)
	}
	depth := 0
	for p, ok := t.parent[id]; ok; p, ok = t.parent[p] {
		depth++
	}
	return depth, nil
}
