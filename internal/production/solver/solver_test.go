package solver_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rsned/production-planner/internal/production/catalog"
	"github.com/rsned/production-planner/internal/production/catalog/catalogtest"
	"github.com/rsned/production-planner/internal/production/solver"
	"github.com/rsned/production-planner/pkg/production"
)

const delta = 1e-4

func solve(t *testing.T, cat *catalog.Catalog, req production.SolverRequest) (*production.Solution, error) {
	t.Helper()
	model, err := solver.Build(req, cat)
	require.NoError(t, err)
	return solver.NewSimplexEngine(0).Solve(context.Background(), model)
}

func mustSolve(t *testing.T, cat *catalog.Catalog, req production.SolverRequest) *production.Solution {
	t.Helper()
	sol, err := solve(t, cat, req)
	require.NoError(t, err)
	require.Equal(t, production.StatusOptimal, sol.Status)
	assertBalanced(t, sol)
	return sol
}

func assertBalanced(t *testing.T, sol *production.Solution) {
	t.Helper()
	for _, b := range sol.Items {
		net := b.Produced + b.Supplied - b.Consumed - b.Withdrawn - b.Surplus
		assert.InDelta(t, 0, net, delta, "item %s is not balanced", b.ItemID)
		assert.GreaterOrEqual(t, b.Surplus, -delta, "item %s", b.ItemID)
	}
	for _, rr := range sol.RunRates {
		assert.GreaterOrEqual(t, rr.Rate, -delta, "recipe %s", rr.RecipeID)
	}
}

func plateRequest(amount float64) production.SolverRequest {
	return production.SolverRequest{
		Outputs:        []production.OutputSpec{{ItemID: "iron_plate", Amount: amount}},
		Inputs:         []production.InputSpec{{ItemID: "iron_ore", Source: production.WorldSourceID}},
		AllowedRecipes: []string{"iron_plate"},
	}
}

func TestSolve_SingleRecipe(t *testing.T) {
	cat := catalogtest.New(t)
	sol := mustSolve(t, cat, plateRequest(30))

	assert.Equal(t, production.MinimizeResources, sol.Mode)
	assert.InDelta(t, 30, sol.RunRate("iron_plate"), delta)
	assert.InDelta(t, 60, sol.Objective, delta)

	ore, ok := sol.Item("iron_ore")
	require.True(t, ok)
	assert.InDelta(t, 60, ore.Supplied, delta)
	assert.InDelta(t, 60, ore.Consumed, delta)

	plate, ok := sol.Item("iron_plate")
	require.True(t, ok)
	assert.InDelta(t, 30, plate.Withdrawn, delta)
	assert.InDelta(t, 0, plate.Surplus, delta)
}

func TestSolve_InputCapInfeasible(t *testing.T) {
	cat := catalogtest.New(t)
	req := plateRequest(30)
	req.Inputs = []production.InputSpec{{ItemID: "iron_ore", Amount: 40}}

	_, err := solve(t, cat, req)
	assert.ErrorIs(t, err, solver.ErrInfeasible)

	req.Inputs[0].Amount = 60
	sol := mustSolve(t, cat, req)
	assert.InDelta(t, 30, sol.RunRate("iron_plate"), delta)
}

func TestSolve_ObjectiveModes(t *testing.T) {
	cat := catalogtest.New(t)

	tests := []struct {
		mode      production.ObjectiveMode
		recipe    string
		rate      float64
		objective float64
	}{
		{mode: production.MinimizeResources, recipe: "alt_iron_plate", rate: 15, objective: 45},
		{mode: production.MinimizePower, recipe: "iron_plate", rate: 30, objective: 120},
		{mode: production.MinimizeArea, recipe: "alt_iron_plate", rate: 15, objective: 2250},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			req := plateRequest(30)
			req.AllowedRecipes = []string{"iron_plate", "alt_iron_plate"}
			req.Objective = tt.mode

			sol := mustSolve(t, cat, req)
			assert.InDelta(t, tt.rate, sol.RunRate(tt.recipe), delta)
			assert.InDelta(t, tt.objective, sol.Objective, delta)
			assert.Equal(t, tt.mode, sol.Mode)
		})
	}
}

func TestSolve_Chain(t *testing.T) {
	cat := catalogtest.New(t)
	sol := mustSolve(t, cat, production.SolverRequest{
		Outputs:           []production.OutputSpec{{ItemID: "reinforced_iron_plate", Amount: 5}},
		UseWorldResources: true,
	})

	assert.InDelta(t, 5, sol.RunRate("reinforced_iron_plate"), delta)
	assert.InDelta(t, 30, sol.RunRate("iron_plate"), delta)
	assert.InDelta(t, 15, sol.RunRate("screw"), delta)
	assert.InDelta(t, 15, sol.RunRate("iron_rod"), delta)
	assert.InDelta(t, 0, sol.RunRate("alt_iron_plate"), delta)
	assert.InDelta(t, 75, sol.Objective, delta)
}

func TestSolve_WorldResourceCap(t *testing.T) {
	cat := catalogtest.New(t)
	_, err := solve(t, cat, production.SolverRequest{
		Outputs:           []production.OutputSpec{{ItemID: "iron_plate", Amount: 400}},
		AllowedRecipes:    []string{"iron_plate"},
		UseWorldResources: true,
	})
	assert.ErrorIs(t, err, solver.ErrInfeasible)
}

func TestSolve_ScarceWeight(t *testing.T) {
	cat := catalogtest.New(t)
	req := production.SolverRequest{
		Outputs: []production.OutputSpec{{ItemID: "plastic", Amount: 20}},
		Inputs:  []production.InputSpec{{ItemID: "crude_oil", Source: production.WorldSourceID}},
	}

	sol := mustSolve(t, cat, req)
	assert.InDelta(t, 10, sol.RunRate("plastic"), delta)
	assert.InDelta(t, 300, sol.Objective, delta)

	model, err := solver.NewBuilder(cat, solver.WithScarceWeight(2)).Build(req)
	require.NoError(t, err)
	sol, err = solver.NewSimplexEngine(0).Solve(context.Background(), model)
	require.NoError(t, err)
	assert.InDelta(t, 60, sol.Objective, delta)

	residue, ok := sol.Item("heavy_oil_residue")
	require.True(t, ok)
	assert.InDelta(t, 10, residue.Surplus, delta)
}

func TestSolve_AtLeastOutput(t *testing.T) {
	cat := catalogtest.New(t)
	sol := mustSolve(t, cat, production.SolverRequest{
		Outputs: []production.OutputSpec{
			{ItemID: "plastic", Amount: 20},
			{ItemID: "heavy_oil_residue", Amount: 4, Objective: production.OutputAtLeast},
		},
		Inputs: []production.InputSpec{{ItemID: "crude_oil", Source: production.WorldSourceID}},
	})

	residue, ok := sol.Item("heavy_oil_residue")
	require.True(t, ok)
	assert.InDelta(t, 10, residue.Withdrawn, delta)
	assert.InDelta(t, 0, residue.Surplus, delta)
}

func TestSolve_ForceUsage(t *testing.T) {
	cat := catalogtest.New(t)

	t.Run("at least output absorbs", func(t *testing.T) {
		sol := mustSolve(t, cat, production.SolverRequest{
			Outputs:        []production.OutputSpec{{ItemID: "iron_plate", Amount: 30, Objective: production.OutputAtLeast}},
			Inputs:         []production.InputSpec{{ItemID: "iron_ore", Amount: 100, ForceUsage: true}},
			AllowedRecipes: []string{"iron_plate"},
		})
		assert.InDelta(t, 50, sol.RunRate("iron_plate"), delta)
		plate, _ := sol.Item("iron_plate")
		assert.InDelta(t, 50, plate.Withdrawn, delta)
	})

	t.Run("exact output leaves surplus", func(t *testing.T) {
		sol := mustSolve(t, cat, production.SolverRequest{
			Outputs:        []production.OutputSpec{{ItemID: "iron_plate", Amount: 30}},
			Inputs:         []production.InputSpec{{ItemID: "iron_ore", Amount: 100, ForceUsage: true}},
			AllowedRecipes: []string{"iron_plate"},
		})
		ore, _ := sol.Item("iron_ore")
		assert.InDelta(t, 100, ore.Consumed, delta)
		plate, _ := sol.Item("iron_plate")
		assert.InDelta(t, 30, plate.Withdrawn, delta)
		assert.InDelta(t, 20, plate.Surplus, delta)
	})
}

func TestSolve_RecipeMaxRate(t *testing.T) {
	recipes := catalogtest.Recipes()
	for i := range recipes {
		if recipes[i].ID == "alt_iron_plate" {
			recipes[i].MaxRate = 5
		}
	}
	cat, err := catalog.New(catalogtest.Items(), catalogtest.Buildings(), recipes, catalogtest.WorldResources())
	require.NoError(t, err)

	req := plateRequest(30)
	req.AllowedRecipes = []string{"iron_plate", "alt_iron_plate"}
	sol := mustSolve(t, cat, req)

	assert.InDelta(t, 5, sol.RunRate("alt_iron_plate"), delta)
	assert.InDelta(t, 20, sol.RunRate("iron_plate"), delta)
	assert.InDelta(t, 55, sol.Objective, delta)
}

func TestSolve_Monotonicity(t *testing.T) {
	cat := catalogtest.New(t)

	narrow := mustSolve(t, cat, plateRequest(30))
	req := plateRequest(30)
	req.AllowedRecipes = append(req.AllowedRecipes, "alt_iron_plate")
	wide := mustSolve(t, cat, req)
	assert.LessOrEqual(t, wide.Objective, narrow.Objective+delta)

	capped := plateRequest(30)
	capped.Inputs = []production.InputSpec{{ItemID: "iron_ore", Amount: 60}}
	a := mustSolve(t, cat, capped)
	capped.Inputs[0].Amount = 600
	b := mustSolve(t, cat, capped)
	assert.LessOrEqual(t, b.Objective, a.Objective+delta)
}

func TestSolve_Deterministic(t *testing.T) {
	cat := catalogtest.New(t)
	req := production.SolverRequest{
		Outputs: []production.OutputSpec{
			{ItemID: "reinforced_iron_plate", Amount: 2},
			{ItemID: "plastic", Amount: 10},
		},
		AllowedRecipes:    cat.RecipeIDs(),
		UseWorldResources: true,
	}

	first := solver.Reconstruct(mustSolve(t, cat, req), cat, 0)
	for i := 0; i < 3; i++ {
		again := solver.Reconstruct(mustSolve(t, cat, req), cat, 0)
		if diff := cmp.Diff(first, again); diff != "" {
			t.Fatalf("graph changed between runs (-first +again):\n%s", diff)
		}
	}
}

func TestBuild_Errors(t *testing.T) {
	cat := catalogtest.New(t)

	tests := []struct {
		name string
		req  production.SolverRequest
		want error
	}{
		{
			name: "unknown recipe",
			req:  production.SolverRequest{AllowedRecipes: []string{"nuclear"}},
			want: solver.ErrUnknownRecipe,
		},
		{
			name: "unknown output",
			req:  production.SolverRequest{Outputs: []production.OutputSpec{{ItemID: "gold", Amount: 1}}},
			want: solver.ErrUnknownItem,
		},
		{
			name: "unknown input",
			req:  production.SolverRequest{Inputs: []production.InputSpec{{ItemID: "gold", Amount: 1}}},
			want: solver.ErrUnknownItem,
		},
		{
			name: "negative output",
			req:  production.SolverRequest{Outputs: []production.OutputSpec{{ItemID: "screw", Amount: -1}}},
			want: solver.ErrInvalidRequest,
		},
		{
			name: "nan input",
			req:  production.SolverRequest{Inputs: []production.InputSpec{{ItemID: "iron_ore", Amount: math.NaN()}}},
			want: solver.ErrInvalidRequest,
		},
		{
			name: "explicitly empty recipe list",
			req: production.SolverRequest{
				Outputs:        []production.OutputSpec{{ItemID: "iron_plate", Amount: 30}},
				Inputs:         []production.InputSpec{{ItemID: "iron_ore", Unlimited: true}},
				AllowedRecipes: []string{},
			},
			want: solver.ErrEmptyModel,
		},
		{
			name: "bad objective",
			req:  production.SolverRequest{Objective: "minimize_fun"},
			want: solver.ErrInvalidRequest,
		},
		{
			name: "bad output objective",
			req:  production.SolverRequest{Outputs: []production.OutputSpec{{ItemID: "screw", Amount: 1, Objective: "most"}}},
			want: solver.ErrInvalidRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := solver.Build(tt.req, cat)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	t.Run("empty model", func(t *testing.T) {
		empty, err := catalog.New(catalogtest.Items(), catalogtest.Buildings(), nil, nil)
		require.NoError(t, err)
		_, err = solver.Build(production.SolverRequest{
			Outputs: []production.OutputSpec{{ItemID: "screw", Amount: 1}},
		}, empty)
		assert.ErrorIs(t, err, solver.ErrEmptyModel)
	})
}

func TestBuild_Layout(t *testing.T) {
	cat := catalogtest.New(t)
	model, err := solver.Build(production.SolverRequest{
		Outputs: []production.OutputSpec{{ItemID: "iron_plate", Amount: 10, Objective: production.OutputAtLeast}},
		Inputs:  []production.InputSpec{{ItemID: "iron_ore", Amount: 50, ForceUsage: true}},
	}, cat)
	require.NoError(t, err)

	var names []string
	for _, v := range model.Variables {
		names = append(names, v.Name)
	}
	// Default recipes only, then per item: forced ore has no surplus and the
	// at-least plate output has no surplus.
	assert.Equal(t, []string{
		"recipe:iron_plate",
		"recipe:iron_rod",
		"recipe:plastic",
		"recipe:reinforced_iron_plate",
		"recipe:screw",
		"surplus:crude_oil",
		"surplus:heavy_oil_residue",
		"supply:iron_ore",
		"withdrawal:iron_plate",
		"surplus:iron_rod",
		"surplus:plastic",
		"surplus:reinforced_iron_plate",
		"surplus:screw",
	}, names)

	require.Len(t, model.Constraints, 8)
	assert.Equal(t, "balance:crude_oil", model.Constraints[0].Name)
	assert.Equal(t, "balance:screw", model.Constraints[7].Name)

	ore := model.Variables[5+2]
	assert.Equal(t, 50.0, ore.Lower)
	assert.Equal(t, 50.0, ore.Upper)
}

func TestSimplexEngine_Unbounded(t *testing.T) {
	m := &solver.Model{}
	x := m.AddVariable(solver.Variable{Name: "x", Upper: math.Inf(1), Cost: -1}, -1)
	y := m.AddVariable(solver.Variable{Name: "y", Upper: math.Inf(1)}, 0)
	m.Constraints = []solver.Constraint{{
		Name:  "link",
		Terms: []solver.Term{{Var: x, Coef: 1}, {Var: y, Coef: -1}},
	}}

	_, err := solver.NewSimplexEngine(0).Solve(context.Background(), m)
	assert.ErrorIs(t, err, solver.ErrUnbounded)

	free := &solver.Model{}
	free.AddVariable(solver.Variable{Name: "z", Upper: math.Inf(1), Cost: -1}, -1)
	_, err = solver.NewSimplexEngine(0).Solve(context.Background(), free)
	assert.ErrorIs(t, err, solver.ErrUnbounded)
}

func TestSimplexEngine_Inequalities(t *testing.T) {
	// minimize -x - y subject to x + y <= 4, x >= 1, x <= 3.
	m := &solver.Model{}
	x := m.AddVariable(solver.Variable{Name: "x", Upper: 3, Cost: -1}, -1)
	y := m.AddVariable(solver.Variable{Name: "y", Upper: math.Inf(1), Cost: -1}, -1)
	m.Constraints = []solver.Constraint{
		{Name: "sum", Terms: []solver.Term{{Var: x, Coef: 1}, {Var: y, Coef: 1}}, Sense: solver.SenseLE, RHS: 4},
		{Name: "floor", Terms: []solver.Term{{Var: x, Coef: 1}}, Sense: solver.SenseGE, RHS: 1},
	}

	sol, err := solver.NewSimplexEngine(0).Solve(context.Background(), m)
	require.NoError(t, err)
	assert.InDelta(t, -4, sol.Objective, delta)
}

func TestSimplexEngine_BoundsInfeasible(t *testing.T) {
	m := &solver.Model{}
	m.AddVariable(solver.Variable{Name: "x", Lower: 5, Upper: 2}, 0)

	_, err := solver.NewSimplexEngine(0).Solve(context.Background(), m)
	assert.ErrorIs(t, err, solver.ErrInfeasible)
}

func TestSimplexEngine_Context(t *testing.T) {
	cat := catalogtest.New(t)
	model, err := solver.Build(plateRequest(30), cat)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = solver.NewSimplexEngine(0).Solve(ctx, model)
	assert.ErrorIs(t, err, solver.ErrCancelled)

	ctx, cancel = context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	_, err = solver.NewSimplexEngine(0).Solve(ctx, model)
	assert.ErrorIs(t, err, solver.ErrTimeout)
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, "optimal", solver.StatusOf(nil))
	assert.Equal(t, "infeasible", solver.StatusOf(solver.ErrInfeasible))
	assert.Equal(t, "timeout", solver.StatusOf(solver.ErrTimeout))
	assert.Equal(t, "failed", solver.StatusOf(assert.AnError))
}
