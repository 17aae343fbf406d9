package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/PabloGalante/quicknotes-agent/internal/config"
	"github.com/PabloGalante/quicknotes-agent/internal/observability"
)

var (
	verbose bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "quicknotes",
	Short: "A note-taking assistant that understands plain language",
	Long: `Quicknotes keeps short notes per user and lets you manage them by chatting:
"add a note to buy milk", "mark note 3 as done", "delete note 2".`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		cfg = loaded

		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		// Logs go to stderr so stdout stays free for the chat and MCP transports.
		observability.Configure(os.Stderr, level, cfg.Logging.Format)
		return nil
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}
