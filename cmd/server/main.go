package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tendant/tagged-content/pkg/taggedcontent/api"
	"github.com/tendant/tagged-content/pkg/taggedcontent/config"
)

var rootCmd = &cobra.Command{
	Use:   "tagged-content",
	Short: "Tagged content repository server",
	Long: `tagged-content serves a repository of tagged posts backed by a
database, an object store, and a search index. Configuration is read
from the environment.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(),
			os.Interrupt, syscall.SIGTERM)
		defer stop()

		repo, err := cfg.BuildRepo(ctx, log)
		if err != nil {
			return err
		}
		defer repo.Shutdown()

		handler := api.NewHandler(repo, log)
		server := &http.Server{
			Addr:    cfg.Server.Addr(),
			Handler: handler.Routes(),
		}

		errs := make(chan error, 1)
		go func() {
			log.Info("server listening", "addr", server.Addr)
			errs <- server.ListenAndServe()
		}()

		select {
		case err := <-errs:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
		case <-ctx.Done():
			log.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
