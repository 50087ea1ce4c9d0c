package engine

import (
	"context"
	"errors"

	"github.com/rsned/production-planner/internal/production/session"
	"github.com/rsned/production-planner/pkg/production"
)

// Solve executes the solve_production tool logic.
//
// An infeasible request is a normal result with Feasible false and a user
// message. Every other failure is returned as an error wrapping a
// *session.Error.
func (e *Engine) Solve(ctx context.Context, req production.SolveRequest) (*production.SolveResponse, error) {
	s := e.session(req.SessionID)
	resp := &production.SolveResponse{SessionID: s.ID()}

	graph, err := s.Solve(ctx, req.Request)
	if err != nil {
		var se *session.Error
		if errors.As(err, &se) && se.Kind == session.KindInfeasible {
			resp.Message = se.UserMessage()
			return resp, nil
		}
		return nil, err
	}

	resp.Feasible = true
	resp.Graph = graph
	if len(graph.Warnings) > 0 {
		resp.Message = graph.Warnings[0]
	}
	return resp, nil
}

// CloseSession executes the close_session tool logic.
func (e *Engine) CloseSession(_ context.Context, req production.CloseSessionRequest) (*production.CloseSessionResponse, error) {
	e.mu.Lock()
	closed := e.sessions.Remove(req.SessionID)
	e.mu.Unlock()

	return &production.CloseSessionResponse{
		SessionID: req.SessionID,
		Closed:    closed,
	}, nil
}
