package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/treewriter/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key]",
	Short: "Show configuration",
	Long: `Show the effective treewriter configuration.

Without arguments, displays every value.
With one argument (key), displays the value for that key.

Configuration is read from ~/.config/treewriter/config.yaml.
Project-specific overrides can be placed in .treewriter.yaml, and any
value can be set with a TREEWRITER_SECTION_KEY environment variable.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile, nil)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		if len(args) == 1 {
			value, err := cfg.Get(args[0])
			if err != nil {
				return err
			}
			fmt.Println(value)
			return nil
		}

		for _, e := range cfg.Entries() {
			fmt.Printf("%s: %s\n", e.Key, e.Value)
		}
		fmt.Printf("\napi key source: %s\n", config.GetAPIKeySource(cfg))
		return nil
	},
}
