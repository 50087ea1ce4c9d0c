package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/rsned/production-planner/internal/production/engine"
	"github.com/rsned/production-planner/internal/production/mcp"
	"github.com/rsned/production-planner/internal/production/metrics"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server on stdin and stdout",
	Long: `Serve the planner over the Model Context Protocol.

Requests are read from stdin one JSON-RPC message per line and responses are
written to stdout. Logs go to stderr.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		database, cat, err := openCatalog(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = database.Close() }()

		counts, err := database.Counts(ctx)
		if err != nil {
			return err
		}
		if counts.Empty() {
			logger.Warn("catalog is empty, run import first", "db", database.Path())
		}

		m := metrics.New()
		if cfg.MetricsAddr != "" {
			stop := serveMetrics(ctx, cfg.MetricsAddr, m)
			defer stop()
		}

		eng, err := engine.New(cat, cfg, m, logger)
		if err != nil {
			return err
		}
		defer eng.Close()

		server := mcp.NewServer(eng, logger)

		logger.Info("starting MCP server",
			"db", database.Path(),
			"items", humanize.Comma(int64(counts.Items)),
			"recipes", humanize.Comma(int64(counts.Recipes)))
		if err := server.Run(ctx); err != nil && ctx.Err() == nil {
			return err
		}
		logger.Info("server stopped")
		return nil
	},
}

// serveMetrics exposes m on addr until the returned stop func is called.
func serveMetrics(ctx context.Context, addr string, m *metrics.Metrics) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
}
