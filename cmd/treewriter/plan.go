package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/treewriter/internal/treeview"
)

var (
	planTask  taskFlags
	planYAML  bool
	planWidth int
)

var planCmd = &cobra.Command{
	Use:   "plan <task>",
	Short: "Build and show the task tree without writing",
	Long: `Build the decomposition tree for a writing task and print it.

Only planning requests are sent; no outline or text is generated. Leaves
are annotated with why they were not split further. Use --yaml for a
machine-readable dump.`,
	Args: cobra.ExactArgs(1),
	RunE: runPlan,
}

func init() {
	registerGenerationFlags(planCmd, &planTask)
	planCmd.Flags().BoolVar(&planYAML, "yaml", false, "Print the tree as YAML")
	planCmd.Flags().IntVar(&planWidth, "width", 0, "Truncate task text to this many characters (-1 = no limit)")
}

func runPlan(cmd *cobra.Command, args []string) error {
	req := planTask.request(args[0])
	if err := req.Validate(); err != nil {
		return err
	}

	cfg, err := loadConfig(buildOverrides(cmd))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	t, stats, err := a.pipeline.Plan(ctx, req)
	if err != nil {
		return err
	}

	if planYAML {
		return treeview.WriteYAML(os.Stdout, t)
	}

	out, err := treeview.Render(t, treeview.Options{
		Styles:       treeview.DefaultStyles(),
		Reasons:      stats.Reasons,
		ContentWidth: planWidth,
	})
	if err != nil {
		return err
	}
	fmt.Print(out)

	fmt.Fprintln(os.Stderr)
	printStatus("✓", fmt.Sprintf("%d nodes, %d leaves, depth %d", stats.Nodes, stats.Leaves, stats.MaxDepth), color.FgGreen)
	return nil
}
