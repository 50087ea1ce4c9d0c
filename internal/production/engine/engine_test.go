package engine

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rsned/production-planner/internal/production/catalog/catalogtest"
	"github.com/rsned/production-planner/internal/production/config"
	"github.com/rsned/production-planner/internal/production/metrics"
	"github.com/rsned/production-planner/internal/production/session"
	"github.com/rsned/production-planner/pkg/production"
)

func newTestEngine(t *testing.T, mutate func(*config.Config)) *Engine {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(&cfg)
	}
	e, err := New(catalogtest.New(t), cfg, metrics.New(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e
}

func plateSolve(sessionID string, ore float64) production.SolveRequest {
	in := production.InputSpec{ItemID: "iron_ore", Amount: ore}
	if ore == 0 {
		in.Source = production.WorldSourceID
	}
	return production.SolveRequest{
		SessionID: sessionID,
		Request: production.SolverRequest{
			Outputs:        []production.OutputSpec{{ItemID: "iron_plate", Amount: 30}},
			Inputs:         []production.InputSpec{in},
			AllowedRecipes: []string{"iron_plate"},
		},
	}
}

func TestEngine_Solve(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	resp, err := e.Solve(ctx, plateSolve("", 0))
	require.NoError(t, err)
	assert.True(t, resp.Feasible)
	assert.NotEmpty(t, resp.SessionID)
	require.NotNil(t, resp.Graph)
	assert.InDelta(t, 60, resp.Graph.Stats.Objective, 1e-4)

	again, err := e.Solve(ctx, plateSolve(resp.SessionID, 0))
	require.NoError(t, err)
	assert.Equal(t, resp.SessionID, again.SessionID)
	assert.Equal(t, 1, e.SessionCount())
}

func TestEngine_SolveInfeasible(t *testing.T) {
	e := newTestEngine(t, nil)

	resp, err := e.Solve(context.Background(), plateSolve("planner-1", 40))
	require.NoError(t, err)
	assert.False(t, resp.Feasible)
	assert.Nil(t, resp.Graph)
	assert.Equal(t, "planner-1", resp.SessionID)
	assert.Contains(t, resp.Message, "No solution found")
}

func TestEngine_SolveInvalid(t *testing.T) {
	e := newTestEngine(t, nil)
	req := plateSolve("", 0)
	req.Request.Outputs[0].ItemID = "gold"

	_, err := e.Solve(context.Background(), req)
	assert.True(t, session.IsKind(err, session.KindInvalidRequest))
}

func TestEngine_SessionEviction(t *testing.T) {
	e := newTestEngine(t, func(c *config.Config) { c.Sessions.Max = 2 })
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		_, err := e.Solve(ctx, plateSolve(id, 0))
		require.NoError(t, err)
	}
	assert.Equal(t, 2, e.SessionCount())

	closed, err := e.CloseSession(ctx, production.CloseSessionRequest{SessionID: "a"})
	require.NoError(t, err)
	assert.False(t, closed.Closed)

	closed, err = e.CloseSession(ctx, production.CloseSessionRequest{SessionID: "c"})
	require.NoError(t, err)
	assert.True(t, closed.Closed)
	assert.Equal(t, 1, e.SessionCount())
}

func TestEngine_RecipeLookup(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	resp, err := e.RecipeLookup(ctx, production.RecipeLookupRequest{RecipeID: "plastic"})
	require.NoError(t, err)
	require.NotNil(t, resp.Recipe)
	assert.Equal(t, "refinery", resp.Building.ID)

	resp, err = e.RecipeLookup(ctx, production.RecipeLookupRequest{Search: "screw"})
	require.NoError(t, err)
	require.Len(t, resp.SearchResults, 1)
	require.NotNil(t, resp.Recipe)
	assert.Equal(t, "screw", resp.Recipe.ID)

	resp, err = e.RecipeLookup(ctx, production.RecipeLookupRequest{Search: "plate", Limit: 2})
	require.NoError(t, err)
	assert.Len(t, resp.SearchResults, 2)
	assert.Nil(t, resp.Recipe)

	_, err = e.RecipeLookup(ctx, production.RecipeLookupRequest{RecipeID: "nuclear"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEngine_ItemRecipes(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	resp, err := e.ItemRecipes(ctx, production.ItemRecipesRequest{ItemID: "iron_plate"})
	require.NoError(t, err)
	require.Len(t, resp.ProducedBy, 2)
	assert.Equal(t, "alt_iron_plate", resp.ProducedBy[0].RecipeID)
	assert.Equal(t, 2.0, resp.ProducedBy[0].PerMinute)
	require.Len(t, resp.ConsumedBy, 1)
	assert.Equal(t, 6.0, resp.ConsumedBy[0].PerMinute)
	assert.Nil(t, resp.WorldResource)

	resp, err = e.ItemRecipes(ctx, production.ItemRecipesRequest{ItemID: "iron_ore"})
	require.NoError(t, err)
	require.NotNil(t, resp.WorldResource)
	assert.Equal(t, 780.0, resp.WorldResource.MaxRate)

	_, err = e.ItemRecipes(ctx, production.ItemRecipesRequest{ItemID: "gold"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEngine_WorldResources(t *testing.T) {
	e := newTestEngine(t, nil)

	resp, err := e.WorldResources(context.Background())
	require.NoError(t, err)
	require.Len(t, resp.Resources, 3)
	assert.Equal(t, "Copper Ore", resp.Resources[0].Name)
	assert.Equal(t, 300.0, resp.Resources[1].MaxRate)
}
