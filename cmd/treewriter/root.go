package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	configFile  string
	verbose     bool
	logFilePath string
)

var rootCmd = &cobra.Command{
	Use:   "treewriter",
	Short: "Long-form writing by recursive task decomposition",
	Long: `Treewriter splits a long writing task into a tree of smaller tasks,
asks a language model to outline and write every leaf, and joins the
leaves back into one text.

Each node is split while it is longer than the configured word limit and
the model agrees it should be. Leaves are outlined first, then written
from their outline.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (replaces user and project config lookup)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFilePath, "log-file", "", "Write logs to this file instead of stderr")

	rootCmd.AddCommand(writeCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
