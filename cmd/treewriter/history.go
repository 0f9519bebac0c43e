package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/treewriter/internal/config"
	"github.com/ShayCichocki/treewriter/internal/state"
)

var (
	historyLimit int
	historyPrune time.Duration
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past generation runs",
	Long: `List past runs recorded in the history database, newest first.

The database location is state.db_path (default
$XDG_DATA_HOME/treewriter/history.db).`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Number of runs to show (0 = all)")
	historyCmd.Flags().DurationVar(&historyPrune, "prune", 0, "Delete runs started longer ago than this (e.g. 720h) before listing")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if _, err := os.Stat(cfg.State.DBPath); os.IsNotExist(err) {
		printStatus("•", "No runs recorded yet", color.FgWhite)
		return nil
	}

	db, err := state.OpenAndMigrate(cfg.State.DBPath)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer db.Close()

	if historyPrune > 0 {
		n, err := db.PurgeOldRuns(historyPrune)
		if err != nil {
			return fmt.Errorf("prune runs: %w", err)
		}
		printStatus("✓", fmt.Sprintf("Pruned %d runs older than %s", n, formatDuration(historyPrune)), color.FgGreen)
	}

	runs, err := db.ListRuns(historyLimit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		printStatus("•", "No runs recorded yet", color.FgWhite)
		return nil
	}

	for _, r := range runs {
		fmt.Println(formatRun(r))
	}
	return nil
}

// formatRun renders one history line.
func formatRun(r state.Run) string {
	statusColor := color.New(color.FgYellow)
	switch r.Status {
	case state.RunCompleted:
		statusColor = color.New(color.FgGreen)
	case state.RunFailed:
		statusColor = color.New(color.FgRed)
	}

	duration := "-"
	if r.FinishedAt != nil {
		duration = formatDuration(r.Duration())
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s  %-9s  %s words / %s target  %d leaves",
		r.ID[:min(8, len(r.ID))],
		r.StartedAt.Local().Format("2006-01-02 15:04"),
		statusColor.Sprint(r.Status),
		formatNumber(int64(r.OutputWords)),
		formatNumber(int64(r.TargetWords)),
		r.Leaves,
	)
	if r.FailedLeaves > 0 {
		fmt.Fprintf(&b, " (%d failed)", r.FailedLeaves)
	}
	fmt.Fprintf(&b, "  %s  %s", duration, truncateTask(r.Task, 48))
	if r.Error != "" {
		fmt.Fprintf(&b, "\n    %s", color.RedString(r.Error))
	}
	return b.String()
}

func truncateTask(s string, maxLen int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
