// Package session runs solves for one planning screen.
//
// A Session serializes its own solves with last-request-wins ordering:
// starting a solve cancels the one in flight, and a solve that finishes
// after being superseded returns a KindCancelled error instead of a graph.
// Different sessions share nothing but the read-only catalog and the result
// cache, so they solve fully in parallel.
package session

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/rsned/production-planner/internal/production/catalog"
	"github.com/rsned/production-planner/internal/production/metrics"
	"github.com/rsned/production-planner/internal/production/solver"
	"github.com/rsned/production-planner/pkg/production"
)

// DefaultTimeout bounds a single solve when Options.Timeout is zero.
const DefaultTimeout = 5 * time.Second

// Options configures a Session. Zero values select defaults.
type Options struct {
	Engine       solver.Engine
	Timeout      time.Duration
	Epsilon      float64
	ScarceWeight float64
	Cache        *cache.Cache
	Metrics      *metrics.Metrics
	Logger       *slog.Logger
}

// Session owns the solves of one request stream.
type Session struct {
	id      string
	catalog *catalog.Catalog
	builder *solver.Builder
	engine  solver.Engine
	timeout time.Duration
	epsilon float64
	cache   *cache.Cache
	metrics *metrics.Metrics
	logger  *slog.Logger

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
	closed bool
}

// New creates a session over the catalog.
func New(id string, cat *catalog.Catalog, opts Options) *Session {
	s := &Session{
		id:      id,
		catalog: cat,
		builder: solver.NewBuilder(cat, solver.WithScarceWeight(opts.ScarceWeight)),
		engine:  opts.Engine,
		timeout: opts.Timeout,
		epsilon: opts.Epsilon,
		cache:   opts.Cache,
		metrics: opts.Metrics,
		logger:  opts.Logger,
	}
	if s.engine == nil {
		s.engine = solver.NewSimplexEngine(solver.DefaultTolerance)
	}
	if s.timeout <= 0 {
		s.timeout = DefaultTimeout
	}
	if s.epsilon <= 0 {
		s.epsilon = solver.DefaultEpsilon
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	s.logger = s.logger.With("session", id)
	return s
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// begin registers a new solve, cancelling any solve still running.
func (s *Session) begin(parent context.Context) (uint64, context.Context, context.CancelFunc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, nil, nil, ErrClosed
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.seq++
	ctx, cancel := context.WithTimeout(parent, s.timeout)
	s.cancel = cancel
	return s.seq, ctx, cancel, nil
}

func (s *Session) finish(ticket uint64, cancel context.CancelFunc) {
	s.mu.Lock()
	if s.seq == ticket {
		s.cancel = nil
	}
	s.mu.Unlock()
	cancel()
}

// stale reports why a solve's result must be discarded, or nil.
func (s *Session) stale(ticket uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.closed:
		return ErrClosed
	case s.seq != ticket:
		return ErrSuperseded
	}
	return nil
}

// Solve builds, solves and reconstructs req. On success the returned graph
// belongs to the caller. On failure the error is always an *Error.
func (s *Session) Solve(ctx context.Context, req production.SolverRequest) (*production.FlowGraph, error) {
	start := time.Now()

	ticket, solveCtx, cancel, err := s.begin(ctx)
	if err != nil {
		return nil, &Error{Kind: KindCancelled, Err: err}
	}
	defer s.finish(ticket, cancel)

	key, err := Fingerprint(req)
	if err != nil {
		return nil, s.fail(start, &Error{Kind: KindInvalidRequest, Err: err})
	}

	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			s.metrics.CacheHit()
			s.logger.Debug("solve served from cache", "key", key)
			return cloneGraph(cached.(*production.FlowGraph)), nil
		}
	}

	model, err := s.builder.Build(req)
	if err != nil {
		return nil, s.fail(start, classify(err))
	}
	s.logger.Debug("model built",
		"variables", len(model.Variables),
		"constraints", len(model.Constraints),
		"mode", model.Mode)

	sol, err := s.engine.Solve(solveCtx, model)
	if reason := s.stale(ticket); reason != nil {
		return nil, s.fail(start, &Error{Kind: KindCancelled, Err: reason})
	}
	if err != nil {
		return nil, s.fail(start, classify(err))
	}

	graph := solver.Reconstruct(sol, s.catalog, s.epsilon)
	for _, w := range graph.Warnings {
		s.logger.Warn("flow reconstruction", "warning", w)
	}

	if s.cache != nil {
		s.cache.SetDefault(key, cloneGraph(graph))
	}
	s.metrics.ObserveSolve(string(production.StatusOptimal), time.Since(start))
	s.logger.Debug("solve finished",
		"objective", sol.Objective,
		"machines", graph.Stats.Machines,
		"elapsed", time.Since(start))

	return graph, nil
}

func (s *Session) fail(start time.Time, se *Error) *Error {
	s.metrics.ObserveSolve(outcome(se), time.Since(start))

	switch {
	case errors.Is(se, solver.ErrUnbounded):
		s.logger.Error("model is unbounded", "error", se.Err)
	case se.Kind == KindEngine:
		s.logger.Error("solve failed", "error", se.Err)
	case se.Kind == KindInfeasible, se.Kind == KindCancelled:
		s.logger.Warn("solve returned no plan", "kind", se.Kind.String(), "error", se.Err)
	default:
		s.logger.Debug("request rejected", "error", se.Err)
	}
	return se
}

func outcome(se *Error) string {
	switch se.Kind {
	case KindInvalidRequest:
		return "invalid_request"
	case KindCancelled:
		return "cancelled"
	default:
		return solver.StatusOf(se.Err)
	}
}

// Close cancels any running solve and rejects further solves.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func cloneGraph(g *production.FlowGraph) *production.FlowGraph {
	out := *g
	out.Nodes = append(make([]production.Node, 0, len(g.Nodes)), g.Nodes...)
	out.Edges = append(make([]production.Edge, 0, len(g.Edges)), g.Edges...)
	if g.Warnings != nil {
		out.Warnings = append([]string(nil), g.Warnings...)
	}
	return &out
}
