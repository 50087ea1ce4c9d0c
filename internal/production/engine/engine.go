// Package engine contains the production planner query logic used by the
// transports.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/patrickmn/go-cache"

	"github.com/rsned/production-planner/internal/production/catalog"
	"github.com/rsned/production-planner/internal/production/config"
	"github.com/rsned/production-planner/internal/production/metrics"
	"github.com/rsned/production-planner/internal/production/session"
	"github.com/rsned/production-planner/internal/production/solver"
)

// ErrNotFound is returned when a requested recipe or item does not exist.
var ErrNotFound = errors.New("not found")

// Engine is the main query engine for planning operations.
type Engine struct {
	catalog *catalog.Catalog
	opts    session.Options
	metrics *metrics.Metrics
	logger  *slog.Logger

	mu       sync.Mutex
	sessions *lru.Cache[string, *session.Session]
}

// New creates an Engine over the catalog. m may be nil.
func New(cat *catalog.Catalog, cfg config.Config, m *metrics.Metrics, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	e := &Engine{
		catalog: cat,
		metrics: m,
		logger:  logger,
		opts: session.Options{
			Engine:       solver.NewSimplexEngine(cfg.Solver.Tolerance),
			Timeout:      cfg.Solver.Timeout,
			Epsilon:      cfg.Solver.Epsilon,
			ScarceWeight: cfg.Solver.ScarceWeight,
			Metrics:      m,
			Logger:       logger,
		},
	}
	if cfg.Cache.TTL > 0 {
		e.opts.Cache = cache.New(cfg.Cache.TTL, cfg.Cache.Cleanup)
	}

	sessions, err := lru.NewWithEvict(cfg.Sessions.Max, func(id string, s *session.Session) {
		s.Close()
		m.SessionClosed()
		logger.Debug("session closed", "session", id)
	})
	if err != nil {
		return nil, fmt.Errorf("creating session registry: %w", err)
	}
	e.sessions = sessions

	return e, nil
}

// Catalog returns the catalog the engine serves.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}

// session returns the session for id, creating it when missing. An empty id
// creates a session with a fresh id.
func (e *Engine) session(id string) *session.Session {
	e.mu.Lock()
	defer e.mu.Unlock()

	if id == "" {
		id = uuid.NewString()
	}
	if s, ok := e.sessions.Get(id); ok {
		return s
	}

	s := session.New(id, e.catalog, e.opts)
	e.sessions.Add(id, s)
	e.metrics.SessionOpened()
	e.logger.Debug("session opened", "session", id)
	return s
}

// SessionCount returns the number of open sessions.
func (e *Engine) SessionCount() int {
	return e.sessions.Len()
}

// Close closes every session.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sessions.Purge()
}
