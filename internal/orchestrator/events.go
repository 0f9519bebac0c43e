package orchestrator

import (
	"time"
)

// EventType represents the type of pipeline event.
type EventType string

const (
	// EventPhaseStarted indicates a phase has started.
	EventPhaseStarted EventType = "phase_started"
	// EventPhaseCompleted indicates a phase finished.
	EventPhaseCompleted EventType = "phase_completed"
	// EventLeafCompleted indicates a leaf call in the outline or text phase succeeded.
	EventLeafCompleted EventType = "leaf_completed"
	// EventLeafFailed indicates a leaf call failed and the leaf was skipped.
	EventLeafFailed EventType = "leaf_failed"
	// EventLeafSkipped indicates a leaf had no outline and was not written.
	EventLeafSkipped EventType = "leaf_skipped"
)

// Phase names a pipeline phase.
type Phase string

const (
	PhaseBuild       Phase = "build"
	PhaseOutline     Phase = "outline"
	PhaseText        Phase = "text"
	PhaseConcatenate Phase = "concatenate"
)

// Event represents a progress event emitted by the pipeline.
type Event struct {
	Type  EventType
	Phase Phase
	// NodeID is the leaf the event is about, if any.
	NodeID string
	// Done and Total report progress through the current phase.
	Done  int
	Total int
	// Error contains error details for failure events.
	Error     error
	Timestamp time.Time
}
