package main

import (
	"github.com/spf13/cobra"

	mcpadapter "github.com/PabloGalante/quicknotes-agent/internal/adapters/mcp"
	"github.com/PabloGalante/quicknotes-agent/internal/domain"
)

var mcpUser string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run as an MCP server over stdio",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := build(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer func() { _ = a.close() }()

		user := mcpUser
		if user == "" {
			user = cfg.Auth.DevUserID
		}

		s := mcpadapter.New(a.assistant, a.executor, a.formatter, domain.UserID(user))
		return mcpadapter.Serve(s)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().StringVar(&mcpUser, "user", "", "Owner id every tool call runs as (defaults to the dev user)")
}
