package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	httpadapter "github.com/PabloGalante/quicknotes-agent/internal/adapters/http"
	"github.com/PabloGalante/quicknotes-agent/internal/domain"
)

var (
	tokenUser string
	tokenTTL  time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Sign a bearer token for a user with JWT_SECRET",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Auth.JWTSecret == "" {
			return errors.New("JWT_SECRET is not set")
		}
		if tokenUser == "" {
			return errors.New("--user is required")
		}

		auth := &httpadapter.Authenticator{Secret: []byte(cfg.Auth.JWTSecret)}
		tok, err := auth.Issue(domain.UserID(tokenUser), tokenTTL)
		if err != nil {
			return fmt.Errorf("signing token: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "Owner id to put in the userId claim")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "Token lifetime")
}
