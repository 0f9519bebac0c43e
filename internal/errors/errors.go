// Package errors defines the error taxonomy shared by treewriter components.
//
// Three error kinds exist:
//   - ConfigurationError: invalid model, threshold or generation settings,
//     detected when a component is constructed. Always fatal.
//   - StructureError: a Tree Store contract violation (missing node,
//     duplicate id, bad edge). Indicates a programming bug.
//   - GenerationError: a completion call failed or produced unusable output.
//     Carries the originating node id and the stage that failed.
//
// Callers classify errors with Is/As, re-exported here so that importing
// this package is enough:
//
//	var genErr *errors.GenerationError
//	if errors.As(err, &genErr) {
//		logger.Warn("leaf skipped", "node", genErr.NodeID)
//	}
package errors

import (
	"errors"
	"fmt"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Sentinel errors matched by the typed errors below.
var (
	// ErrConfiguration matches every *ConfigurationError.
	ErrConfiguration = New("configuration error")
	// ErrStructure matches every *StructureError.
	ErrStructure = New("tree structure error")
	// ErrGeneration matches every *GenerationError.
	ErrGeneration = New("generation error")

	// ErrNodeNotFound indicates a reference to a node id the tree does not hold.
	ErrNodeNotFound = New("node not found")
	// ErrDuplicateNode indicates an insert with an id that already exists.
	ErrDuplicateNode = New("node already exists")
)

// ConfigurationError reports an invalid setting.
type ConfigurationError struct {
	// Field is the dotted configuration key, e.g. "thresholds.max_children".
	Field  string
	Reason string
}

// NewConfigurationError creates a ConfigurationError for field.
func NewConfigurationError(field, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return "invalid configuration: " + e.Reason
	}
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// Is reports whether target is ErrConfiguration.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// StructureError reports a violated tree invariant.
type StructureError struct {
	// Op is the tree operation that failed, e.g. "add_edge".
	Op     string
	NodeID string
	Reason string
	// Kind is ErrNodeNotFound, ErrDuplicateNode or nil.
	Kind error
}

// NewStructureError creates a StructureError.
func NewStructureError(op, nodeID string, kind error, reason string) *StructureError {
	return &StructureError{Op: op, NodeID: nodeID, Kind: kind, Reason: reason}
}

// NodeNotFound is shorthand for a StructureError wrapping ErrNodeNotFound.
func NodeNotFound(op, nodeID string) *StructureError {
	return NewStructureError(op, nodeID, ErrNodeNotFound, fmt.Sprintf("node %q does not exist", nodeID))
}

// DuplicateNode is shorthand for a StructureError wrapping ErrDuplicateNode.
func DuplicateNode(op, nodeID string) *StructureError {
	return NewStructureError(op, nodeID, ErrDuplicateNode, fmt.Sprintf("node %q already exists", nodeID))
}

func (e *StructureError) Error() string {
	return fmt.Sprintf("tree %s: %s", e.Op, e.Reason)
}

// Is reports whether target is ErrStructure or the error's Kind.
func (e *StructureError) Is(target error) bool {
	if target == ErrStructure {
		return true
	}
	return e.Kind != nil && target == e.Kind
}

// Stages reported by GenerationError.
const (
	StageAgentCheck = "agent_check"
	StageDecompose  = "decompose"
	StageOutline    = "outline"
	StageText       = "text"
)

// GenerationError reports a failed completion for a node.
type GenerationError struct {
	NodeID string
	Stage  string
	Err    error
}

// NewGenerationError wraps err with the node and stage it failed in.
func NewGenerationError(nodeID, stage string, err error) *GenerationError {
	return &GenerationError{NodeID: nodeID, Stage: stage, Err: err}
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s failed for node %q: %v", e.Stage, e.NodeID, e.Err)
}

// Unwrap returns the underlying cause.
func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrGeneration.
func (e *GenerationError) Is(target error) bool {
	return target == ErrGeneration
}
