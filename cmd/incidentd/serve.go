package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/spf13/cobra"

	"github.com/linnemanlabs/incidentd/internal/cfg"
	"github.com/linnemanlabs/incidentd/internal/devin"
	"github.com/linnemanlabs/incidentd/internal/triage"
	"github.com/linnemanlabs/incidentd/internal/webhookapi"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a development webhook listener",
	Long: `Serve starts a bare webhook listener for local development. It mounts
the same /webhook routes as the daemon but skips metrics, tracing, and the
ops server. Use cmd/server for production.

Requires DEVIN_API_KEY in the environment.

Examples:
  incidentd serve
  incidentd serve --port 8090`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 3000, "listen port")
}

func runServe(cmd *cobra.Command, args []string) error {
	apiKey := os.Getenv("DEVIN_API_KEY")
	if apiKey == "" {
		return fmt.Errorf("DEVIN_API_KEY is not set")
	}

	// Build a logger from the library defaults. Parsing an empty flag set
	// fills log.Config with the same defaults the daemon registers.
	var logCfg log.Config
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	logCfg.RegisterFlags(fs)
	if err := fs.Parse(nil); err != nil {
		return err
	}
	lg, err := log.New(logCfg.ToOptions("incidentd"))
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	pipeline, err := cfg.LoadPipelineOrDefault(cfgPath)
	if err != nil {
		return err
	}

	client := devin.New(apiKey, os.Getenv("DEVIN_BASE_URL"), lg)
	runner := triage.NewRunner(client, pipeline, triage.RunnerOptions{
		FixturesDir: fixturesDir,
	}, nil, lg)
	svc := triage.NewService(runner, nil, lg)

	r := chi.NewRouter()
	webhookapi.New(lg, svc, pipeline.Signals).RegisterRoutes(r)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", servePort),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		lg.Info(ctx, "dev webhook listener started", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}
	lg.Info(context.Background(), "dev webhook listener stopped")
	return nil
}
