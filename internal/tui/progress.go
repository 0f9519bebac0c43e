package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ShayCichocki/treewriter/internal/orchestrator"
)

// maxRecent bounds the leaf results kept on screen.
const maxRecent = 8

// ProgressState tracks the pipeline as seen through its events.
type ProgressState struct {
	Phase orchestrator.Phase
	// Done and Total count leaves in the current phase.
	Done  int
	Total int
	// Nodes and Leaves describe the tree once the build phase completes.
	Nodes   int
	Leaves  int
	Failed  int
	Skipped int
	Recent  []LeafResult

	Interrupted bool
	Finished    bool
	Err         error
}

// LeafResult is one finished leaf in the recent list.
type LeafResult struct {
	Phase  orchestrator.Phase
	NodeID string
	Failed bool
	// Detail is the error text for failures and the skip reason for skips.
	Detail string
}

// EventMsg carries one pipeline event into the program.
type EventMsg struct {
	Event orchestrator.Event
}

// DoneMsg is sent once the pipeline has returned.
type DoneMsg struct {
	Err error
}

// ProgressView displays generation progress.
type ProgressView struct {
	task        string
	state       ProgressState
	spinner     spinner.Model
	width       int
	onInterrupt func()

	headerStyle   lipgloss.Style
	labelStyle    lipgloss.Style
	valueStyle    lipgloss.Style
	progressFull  lipgloss.Style
	progressEmpty lipgloss.Style
	phaseStyle    lipgloss.Style
	warningStyle  lipgloss.Style
	failedStyle   lipgloss.Style
	okStyle       lipgloss.Style
}

// NewProgressView creates a view for task. onInterrupt is called when the
// user asks to stop and may be nil.
func NewProgressView(task string, onInterrupt func()) *ProgressView {
	return &ProgressView{
		task:        task,
		onInterrupt: onInterrupt,
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("205"))),
		),

		headerStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(lipgloss.Color("238")).
			MarginBottom(1),

		labelStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Width(10),

		valueStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Bold(true),

		progressFull: lipgloss.NewStyle().
			Foreground(lipgloss.Color("34")),

		progressEmpty: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),

		phaseStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true),

		warningStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")),

		failedStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")),

		okStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("34")),
	}
}

// NewProgressProgram creates a bubbletea program around a new ProgressView
// that draws to out.
func NewProgressProgram(task string, onInterrupt func(), out io.Writer) (*tea.Program, *ProgressView) {
	view := NewProgressView(task, onInterrupt)
	return tea.NewProgram(view, tea.WithOutput(out)), view
}

// Init starts the spinner.
func (v *ProgressView) Init() tea.Cmd {
	return v.spinner.Tick
}

// Update handles input messages.
func (v *ProgressView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if !v.state.Interrupted {
				v.state.Interrupted = true
				if v.onInterrupt != nil {
					v.onInterrupt()
				}
			}
		}
	case EventMsg:
		v.apply(msg.Event)
	case DoneMsg:
		v.state.Finished = true
		v.state.Err = msg.Err
		return v, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		return v, cmd
	}
	return v, nil
}

func (v *ProgressView) apply(ev orchestrator.Event) {
	switch ev.Type {
	case orchestrator.EventPhaseStarted:
		v.state.Phase = ev.Phase
		v.state.Done = 0
		v.state.Total = ev.Total
	case orchestrator.EventPhaseCompleted:
		if ev.Phase == orchestrator.PhaseBuild {
			v.state.Nodes = ev.Total
			v.state.Leaves = ev.Done
		}
	case orchestrator.EventLeafCompleted:
		v.state.Done = ev.Done
		v.push(LeafResult{Phase: ev.Phase, NodeID: ev.NodeID})
	case orchestrator.EventLeafFailed:
		v.state.Done = ev.Done
		v.state.Failed++
		detail := ""
		if ev.Error != nil {
			detail = ev.Error.Error()
		}
		v.push(LeafResult{Phase: ev.Phase, NodeID: ev.NodeID, Failed: true, Detail: detail})
	case orchestrator.EventLeafSkipped:
		v.state.Skipped++
		v.push(LeafResult{Phase: ev.Phase, NodeID: ev.NodeID, Detail: "no outline"})
	}
}

func (v *ProgressView) push(r LeafResult) {
	v.state.Recent = append(v.state.Recent, r)
	if len(v.state.Recent) > maxRecent {
		v.state.Recent = v.state.Recent[len(v.state.Recent)-maxRecent:]
	}
}

// View renders the progress display.
func (v *ProgressView) View() string {
	var b strings.Builder

	b.WriteString(v.headerStyle.Render(truncate("Writing: "+v.task, v.lineWidth())))
	b.WriteString("\n")

	phase := string(v.state.Phase)
	if phase == "" {
		phase = "starting"
	}
	b.WriteString(v.labelStyle.Render("Phase:"))
	if !v.state.Finished {
		b.WriteString(v.spinner.View())
		b.WriteString(" ")
	}
	b.WriteString(v.phaseStyle.Render(phase))
	b.WriteString("\n")

	if v.state.Nodes > 0 {
		b.WriteString(v.labelStyle.Render("Tree:"))
		b.WriteString(v.valueStyle.Render(fmt.Sprintf("%d nodes, %d leaves", v.state.Nodes, v.state.Leaves)))
		b.WriteString("\n")
	}

	if v.state.Total > 0 {
		pct := float64(v.state.Done) / float64(v.state.Total) * 100
		b.WriteString(v.labelStyle.Render("Leaves:"))
		b.WriteString(v.valueStyle.Render(fmt.Sprintf("%d/%d", v.state.Done, v.state.Total)))
		b.WriteString("\n")
		b.WriteString(v.renderProgressBar(pct, 30))
		b.WriteString("\n")
	}

	if v.state.Failed > 0 || v.state.Skipped > 0 {
		b.WriteString(v.labelStyle.Render("Problems:"))
		b.WriteString(v.failedStyle.Render(fmt.Sprintf("%d failed", v.state.Failed)))
		b.WriteString(", ")
		b.WriteString(v.warningStyle.Render(fmt.Sprintf("%d skipped", v.state.Skipped)))
		b.WriteString("\n")
	}

	if len(v.state.Recent) > 0 {
		b.WriteString("\n")
		for _, r := range v.state.Recent {
			b.WriteString(v.renderLeaf(r))
			b.WriteString("\n")
		}
	}

	if v.state.Interrupted && !v.state.Finished {
		b.WriteString("\n")
		b.WriteString(v.warningStyle.Render("Stopping after in-flight requests..."))
		b.WriteString("\n")
	}

	return b.String()
}

func (v *ProgressView) renderLeaf(r LeafResult) string {
	switch {
	case r.Failed:
		line := fmt.Sprintf("%s %s %s", v.failedStyle.Render("✗"), r.Phase, r.NodeID)
		if r.Detail != "" {
			line += ": " + r.Detail
		}
		return "  " + truncate(line, v.lineWidth())
	case r.Detail != "":
		return fmt.Sprintf("  %s %s %s (%s)", v.warningStyle.Render("⚠"), r.Phase, r.NodeID, r.Detail)
	default:
		return fmt.Sprintf("  %s %s %s", v.okStyle.Render("✓"), r.Phase, r.NodeID)
	}
}

// renderProgressBar renders a progress bar.
func (v *ProgressView) renderProgressBar(pct float64, width int) string {
	if pct > 100 {
		pct = 100
	}
	if pct < 0 {
		pct = 0
	}

	filled := int(pct / 100 * float64(width))
	empty := width - filled

	bar := v.progressFull.Render(strings.Repeat("█", filled)) +
		v.progressEmpty.Render(strings.Repeat("░", empty))

	return fmt.Sprintf("  %s %.0f%%", bar, pct)
}

func (v *ProgressView) lineWidth() int {
	if v.width <= 0 {
		return 100
	}
	return v.width - 2
}

// State returns the current progress state.
func (v *ProgressView) State() ProgressState {
	return v.state
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if maxLen <= 3 || len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
