package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ShayCichocki/treewriter/internal/orchestrator"
)

// =============================================================================
// Event handling
// =============================================================================

func sendEvents(v *ProgressView, events ...orchestrator.Event) {
	for _, ev := range events {
		v.Update(EventMsg{Event: ev})
	}
}

func TestProgressView_ZeroState(t *testing.T) {
	v := NewProgressView("A story", nil)
	state := v.State()

	if state.Phase != "" {
		t.Errorf("expected empty phase, got %q", state.Phase)
	}
	if state.Done != 0 || state.Total != 0 {
		t.Errorf("expected 0/0, got %d/%d", state.Done, state.Total)
	}
	if state.Finished {
		t.Error("expected Finished=false")
	}
}

func TestProgressView_BuildPhase(t *testing.T) {
	v := NewProgressView("A story", nil)
	sendEvents(v,
		orchestrator.Event{Type: orchestrator.EventPhaseStarted, Phase: orchestrator.PhaseBuild},
		orchestrator.Event{Type: orchestrator.EventPhaseCompleted, Phase: orchestrator.PhaseBuild, Done: 3, Total: 4},
	)

	state := v.State()
	if state.Phase != orchestrator.PhaseBuild {
		t.Errorf("expected phase %q, got %q", orchestrator.PhaseBuild, state.Phase)
	}
	if state.Nodes != 4 || state.Leaves != 3 {
		t.Errorf("expected 4 nodes / 3 leaves, got %d / %d", state.Nodes, state.Leaves)
	}
}

func TestProgressView_LeafEvents(t *testing.T) {
	v := NewProgressView("A story", nil)
	sendEvents(v,
		orchestrator.Event{Type: orchestrator.EventPhaseStarted, Phase: orchestrator.PhaseOutline, Total: 3},
		orchestrator.Event{Type: orchestrator.EventLeafCompleted, Phase: orchestrator.PhaseOutline, NodeID: "root_child1", Done: 1, Total: 3},
		orchestrator.Event{Type: orchestrator.EventLeafFailed, Phase: orchestrator.PhaseOutline, NodeID: "root_child2", Done: 2, Total: 3, Error: errors.New("timeout")},
		orchestrator.Event{Type: orchestrator.EventPhaseStarted, Phase: orchestrator.PhaseText, Total: 2},
		orchestrator.Event{Type: orchestrator.EventLeafSkipped, Phase: orchestrator.PhaseText, NodeID: "root_child2"},
	)

	state := v.State()
	if state.Phase != orchestrator.PhaseText {
		t.Errorf("expected phase %q, got %q", orchestrator.PhaseText, state.Phase)
	}
	if state.Done != 0 || state.Total != 2 {
		t.Errorf("expected counters reset to 0/2, got %d/%d", state.Done, state.Total)
	}
	if state.Failed != 1 || state.Skipped != 1 {
		t.Errorf("expected 1 failed / 1 skipped, got %d / %d", state.Failed, state.Skipped)
	}
	if len(state.Recent) != 3 {
		t.Fatalf("expected 3 recent results, got %d", len(state.Recent))
	}
	if !state.Recent[1].Failed || state.Recent[1].Detail != "timeout" {
		t.Errorf("expected failed result with detail, got %+v", state.Recent[1])
	}
	if state.Recent[2].Detail != "no outline" {
		t.Errorf("expected skip detail, got %q", state.Recent[2].Detail)
	}
}

func TestProgressView_RecentIsBounded(t *testing.T) {
	v := NewProgressView("A story", nil)
	for i := range maxRecent + 5 {
		sendEvents(v, orchestrator.Event{
			Type:   orchestrator.EventLeafCompleted,
			Phase:  orchestrator.PhaseText,
			NodeID: strings.Repeat("x", i+1),
			Done:   i + 1,
			Total:  maxRecent + 5,
		})
	}

	state := v.State()
	if len(state.Recent) != maxRecent {
		t.Fatalf("expected %d recent results, got %d", maxRecent, len(state.Recent))
	}
	if got := state.Recent[maxRecent-1].NodeID; len(got) != maxRecent+5 {
		t.Errorf("expected newest result last, got %q", got)
	}
}

// =============================================================================
// Program control
// =============================================================================

func TestProgressView_DoneQuits(t *testing.T) {
	v := NewProgressView("A story", nil)
	_, cmd := v.Update(DoneMsg{Err: errors.New("boom")})

	if cmd == nil {
		t.Fatal("expected a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
	state := v.State()
	if !state.Finished || state.Err == nil {
		t.Errorf("expected finished with error, got %+v", state)
	}
}

func TestProgressView_InterruptOnce(t *testing.T) {
	calls := 0
	v := NewProgressView("A story", func() { calls++ })

	v.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})

	if calls != 1 {
		t.Errorf("expected interrupt callback once, got %d", calls)
	}
	if !v.State().Interrupted {
		t.Error("expected Interrupted=true")
	}
	if !strings.Contains(v.View(), "Stopping after in-flight requests") {
		t.Error("expected stopping notice in view")
	}
}

func TestProgressView_WindowSize(t *testing.T) {
	v := NewProgressView("A story", nil)
	v.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	if v.width != 80 {
		t.Errorf("expected width 80, got %d", v.width)
	}
}

// =============================================================================
// Rendering
// =============================================================================

func TestProgressView_View_ContainsExpectedElements(t *testing.T) {
	v := NewProgressView("A story about a lighthouse keeper", nil)
	sendEvents(v,
		orchestrator.Event{Type: orchestrator.EventPhaseCompleted, Phase: orchestrator.PhaseBuild, Done: 2, Total: 3},
		orchestrator.Event{Type: orchestrator.EventPhaseStarted, Phase: orchestrator.PhaseText, Total: 2},
		orchestrator.Event{Type: orchestrator.EventLeafCompleted, Phase: orchestrator.PhaseText, NodeID: "root_child1", Done: 1, Total: 2},
		orchestrator.Event{Type: orchestrator.EventLeafFailed, Phase: orchestrator.PhaseText, NodeID: "root_child2", Done: 2, Total: 2, Error: errors.New("rate limited")},
	)
	view := v.View()

	for _, want := range []string{
		"Writing: A story about a lighthouse keeper",
		"text",
		"3 nodes, 2 leaves",
		"2/2",
		"100%",
		"1 failed",
		"root_child1",
		"root_child2: rate limited",
	} {
		if !strings.Contains(view, want) {
			t.Errorf("expected view to contain %q\n%s", want, view)
		}
	}
}

func TestProgressView_View_StartingPhase(t *testing.T) {
	v := NewProgressView("A story", nil)
	if !strings.Contains(v.View(), "starting") {
		t.Error("expected 'starting' before any event")
	}
}

func TestRenderProgressBar(t *testing.T) {
	v := NewProgressView("A story", nil)

	tests := []struct {
		pct  float64
		want string
	}{
		{0, "0%"},
		{50, "50%"},
		{150, "100%"},
		{-10, "0%"},
	}
	for _, tt := range tests {
		if got := v.renderProgressBar(tt.pct, 10); !strings.HasSuffix(got, tt.want) {
			t.Errorf("renderProgressBar(%v) = %q, want suffix %q", tt.pct, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate short = %q", got)
	}
	if got := truncate("abcdefghijkl", 8); got != "abcde..." {
		t.Errorf("truncate long = %q", got)
	}
}
