package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"gopkg.in/yaml.v3"

	"github.com/rsned/production-planner/internal/production/catalog"
	"github.com/rsned/production-planner/internal/production/db"
	"github.com/rsned/production-planner/pkg/production"
)

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// openCatalog opens the configured database and loads the catalog from it.
// The caller closes the returned database.
func openCatalog(ctx context.Context) (*db.DB, *catalog.Catalog, error) {
	database, err := db.OpenAndInit(ctx, cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	cat, err := catalog.Load(ctx, database)
	if err != nil {
		_ = database.Close()
		return nil, nil, fmt.Errorf("loading catalog: %w", err)
	}
	return database, cat, nil
}

// readRequestFile reads a SolverRequest from a JSON or YAML file. Files
// ending in .json are decoded strictly as JSON, everything else as YAML.
func readRequestFile(path string) (production.SolverRequest, error) {
	var req production.SolverRequest

	data, err := os.ReadFile(path)
	if err != nil {
		return req, fmt.Errorf("reading request: %w", err)
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			return req, fmt.Errorf("parsing JSON request: %w", err)
		}
		return req, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&req); err != nil {
		return req, fmt.Errorf("parsing YAML request: %w", err)
	}
	return req, nil
}

// outputJSON writes v as indented JSON.
func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
