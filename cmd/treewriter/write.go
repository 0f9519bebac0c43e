package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/treewriter/internal/config"
	"github.com/ShayCichocki/treewriter/internal/orchestrator"
	"github.com/ShayCichocki/treewriter/internal/state"
	"github.com/ShayCichocki/treewriter/internal/treeview"
	"github.com/ShayCichocki/treewriter/internal/tui"
)

var (
	writeTask      taskFlags
	writeOutput    string
	writeTreeOut   string
	writeNoHistory bool
	writeTUI       bool
)

var writeCmd = &cobra.Command{
	Use:   "write <task>",
	Short: "Generate a text for a writing task",
	Long: `Generate a long text for a writing task.

The task is split into a tree of smaller tasks, every leaf is outlined and
written, and the leaves are joined in tree order. The text is written to
--output, or to stdout. Progress and a summary go to stderr.

Example:
  treewriter write "A novella about a lighthouse keeper" --word-count 20000 \
      --setting "a northern island" --characters Mara,Ivo -o novella.txt`,
	Args: cobra.ExactArgs(1),
	RunE: runWrite,
}

func init() {
	registerGenerationFlags(writeCmd, &writeTask)
	writeCmd.Flags().StringVarP(&writeOutput, "output", "o", "", "Write the text to this file instead of stdout")
	writeCmd.Flags().StringVar(&writeTreeOut, "tree-out", "", "Write the finished tree as YAML to this file")
	writeCmd.Flags().BoolVar(&writeNoHistory, "no-history", false, "Do not record this run in the history database")
	writeCmd.Flags().BoolVar(&writeTUI, "tui", false, "Show a live progress display instead of progress lines")
}

func runWrite(cmd *cobra.Command, args []string) error {
	req := writeTask.request(args[0])
	if err := req.Validate(); err != nil {
		return err
	}

	cfg, err := loadConfig(buildOverrides(cmd))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			printStatus("⚠", "Interrupted, stopping after in-flight requests", color.FgYellow)
			cancel()
		case <-ctx.Done():
		}
	}()

	if writeTUI && cfg.Logging.File == "" {
		// stderr belongs to the progress display
		cfg.Logging.Level = "error"
	}

	events := orchestrator.NewEventEmitter(256, nil)
	a, err := newApp(ctx, cfg, events)
	if err != nil {
		return err
	}
	defer a.Close()

	history := openHistory(a, cfg)
	defer func() {
		if history != nil {
			history.Close()
		}
	}()
	run := &state.Run{
		Task:        req.Task,
		TargetWords: req.WordCount,
		Language:    cfg.Generation.Language,
		Model:       cfg.Model.Name,
	}
	if history != nil {
		if err := history.CreateRun(run); err != nil {
			a.logger.Warn("failed to record run", "error", err)
			history.Close()
			history = nil
		}
	}

	result, genErr := generate(ctx, cancel, a, events, req)
	if n := events.DroppedCount(); n > 0 {
		a.logger.Warn("progress events dropped", "count", n)
	}

	if genErr == nil && result.Text == "" {
		genErr = fmt.Errorf("no leaf produced text (%d failed)", len(result.FailedLeaves))
	}
	if genErr == nil {
		genErr = writeResult(result)
	}

	finishRun(a, history, run, result, genErr)
	if genErr != nil {
		printStatus("✗", "Generation failed", color.FgRed)
		return genErr
	}

	printSummary(a, result)
	return nil
}

// generate runs the pipeline while reporting its events, either as
// progress lines or through the live display.
func generate(ctx context.Context, cancel context.CancelFunc, a *app, events *orchestrator.EventEmitter, req orchestrator.Request) (*orchestrator.Result, error) {
	var (
		result *orchestrator.Result
		genErr error
	)

	if !writeTUI {
		progressDone := make(chan struct{})
		go func() {
			defer close(progressDone)
			for ev := range events.Events() {
				printEvent(ev)
			}
		}()
		result, genErr = a.pipeline.Generate(ctx, req)
		events.Close()
		<-progressDone
		return result, genErr
	}

	program, _ := tui.NewProgressProgram(req.Task, cancel, os.Stderr)
	genDone := make(chan struct{})
	go func() {
		defer close(genDone)
		result, genErr = a.pipeline.Generate(ctx, req)
		events.Close()
	}()
	go func() {
		for ev := range events.Events() {
			program.Send(tui.EventMsg{Event: ev})
		}
		<-genDone
		program.Send(tui.DoneMsg{Err: genErr})
	}()

	if _, err := program.Run(); err != nil {
		a.logger.Warn("progress display failed", "error", err)
	}
	<-genDone
	return result, genErr
}

// openHistory opens the run history database unless it is disabled. History
// is best effort: failures are logged and the run continues without it.
func openHistory(a *app, cfg *config.Config) state.Store {
	if writeNoHistory || !cfg.State.Enabled {
		return nil
	}
	db, err := state.OpenAndMigrate(cfg.State.DBPath)
	if err != nil {
		a.logger.Warn("run history unavailable", "path", cfg.State.DBPath, "error", err)
		return nil
	}
	return db
}

// writeResult writes the text and, when asked, the tree.
func writeResult(result *orchestrator.Result) error {
	if writeTreeOut != "" {
		if err := writeFile(writeTreeOut, func(f *os.File) error {
			return treeview.WriteYAML(f, result.Tree)
		}); err != nil {
			return fmt.Errorf("write tree: %w", err)
		}
	}

	if writeOutput == "" {
		_, err := fmt.Fprintln(os.Stdout, result.Text)
		return err
	}
	if err := writeFile(writeOutput, func(f *os.File) error {
		_, err := f.WriteString(result.Text + "\n")
		return err
	}); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

func writeFile(path string, fill func(*os.File) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fill(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// finishRun records the outcome of the run in history.
func finishRun(a *app, history state.RunStore, run *state.Run, result *orchestrator.Result, runErr error) {
	if history == nil {
		return
	}

	now := time.Now()
	run.FinishedAt = &now
	run.InputTokens, run.OutputTokens = a.client.Tracker().Total()
	if result != nil {
		run.Nodes = result.Stats.Nodes
		run.Leaves = result.Stats.Leaves
		run.FailedLeaves = len(result.FailedLeaves)
		run.OutputWords = result.WordCount
	}
	if runErr != nil {
		run.Status = state.RunFailed
		run.Error = runErr.Error()
	} else {
		run.Status = state.RunCompleted
		if writeOutput != "" {
			if abs, err := filepath.Abs(writeOutput); err == nil {
				run.OutputPath = abs
			}
		}
	}

	if err := history.UpdateRun(run); err != nil {
		a.logger.Warn("failed to update run", "id", run.ID, "error", err)
	}
}

// printEvent prints one progress line.
func printEvent(ev orchestrator.Event) {
	switch ev.Type {
	case orchestrator.EventPhaseStarted:
		if ev.Total > 0 {
			printStatus("→", fmt.Sprintf("%s (%d leaves)", ev.Phase, ev.Total), color.FgCyan)
		} else {
			printStatus("→", string(ev.Phase), color.FgCyan)
		}
	case orchestrator.EventPhaseCompleted:
		if ev.Phase == orchestrator.PhaseBuild {
			printStatus("✓", fmt.Sprintf("tree built: %d nodes, %d leaves", ev.Total, ev.Done), color.FgGreen)
		}
	case orchestrator.EventLeafCompleted:
		printStatus("✓", fmt.Sprintf("[%d/%d] %s %s", ev.Done, ev.Total, ev.Phase, ev.NodeID), color.FgGreen)
	case orchestrator.EventLeafFailed:
		printStatus("✗", fmt.Sprintf("[%d/%d] %s %s: %v", ev.Done, ev.Total, ev.Phase, ev.NodeID, ev.Error), color.FgRed)
	case orchestrator.EventLeafSkipped:
		printStatus("⚠", fmt.Sprintf("%s %s skipped: no outline", ev.Phase, ev.NodeID), color.FgYellow)
	}
}

func printSummary(a *app, result *orchestrator.Result) {
	in, out := a.client.Tracker().Total()
	fmt.Fprintln(os.Stderr)
	printStatus("✓", fmt.Sprintf("Wrote %s words from %d leaves in %s",
		formatNumber(int64(result.WordCount)), result.Stats.Leaves, formatDuration(result.Duration)), color.FgGreen)
	if n := len(result.FailedLeaves); n > 0 {
		printStatus("⚠", fmt.Sprintf("%d leaves failed and were left out: %v", n, result.FailedLeaves), color.FgYellow)
	}
	printStatus("•", fmt.Sprintf("Tokens: %s in / %s out over %d calls (~$%.2f)",
		formatNumber(in), formatNumber(out), a.client.Tracker().Calls(), a.client.Tracker().Cost()), color.FgWhite)
	if writeOutput != "" {
		printStatus("•", "Output: "+writeOutput, color.FgWhite)
	}
}
