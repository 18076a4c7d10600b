package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/ragsearch/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Starts the HTTP API: document upload and batch processing, catalog
listing, retrieval search, and cited chat answers with optional
streaming.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()

		srv := server.New(server.Config{
			Host:           app.cfg.Server.Host,
			Port:           app.cfg.Server.Port,
			CORSOrigins:    app.cfg.Server.CORSOrigins,
			RequestTimeout: time.Duration(app.cfg.Server.TimeoutSeconds) * time.Second,
			SearchMode:     app.cfg.Retrieval.Mode,
			TopK:           app.cfg.Retrieval.TopK,
			Overfetch:      app.cfg.Retrieval.Overfetch,
			RewriteQuery:   app.cfg.Retrieval.RewriteQuery,
		}, app.logger, app.catalog, app.paths, app.retriever, app.composer, app.pipeline)

		errCh := make(chan error, 1)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-errCh:
			return err
		case <-sigCh:
		}

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
