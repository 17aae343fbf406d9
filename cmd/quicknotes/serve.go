package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	httpadapter "github.com/PabloGalante/quicknotes-agent/internal/adapters/http"
	"github.com/PabloGalante/quicknotes-agent/internal/domain"
	"github.com/PabloGalante/quicknotes-agent/internal/observability"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := build(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() { _ = a.close() }()

		auth := &httpadapter.Authenticator{
			Secret:    []byte(cfg.Auth.JWTSecret),
			Bypass:    cfg.AuthBypassed(),
			DevUserID: domain.UserID(cfg.Auth.DevUserID),
		}
		if auth.Bypass {
			observability.Logger().Warn("authentication bypassed", "user_id", cfg.Auth.DevUserID)
		}

		srv := &http.Server{
			Addr:         ":" + cfg.Server.Port,
			Handler:      httpadapter.NewServer(a.assistant, a.notes, auth),
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			observability.Logger().Info("quicknotes API listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			observability.Logger().Info("shutting down")
			return srv.Shutdown(shutdownCtx)
		})
		return g.Wait()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
