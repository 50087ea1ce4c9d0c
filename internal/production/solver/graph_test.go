package solver_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rsned/production-planner/internal/production/catalog"
	"github.com/rsned/production-planner/internal/production/catalog/catalogtest"
	"github.com/rsned/production-planner/internal/production/solver"
	"github.com/rsned/production-planner/pkg/production"
)

func edgeRates(g *production.FlowGraph) map[string]float64 {
	out := make(map[string]float64, len(g.Edges))
	for _, e := range g.Edges {
		out[e.ID] = e.Rate
	}
	return out
}

func TestReconstruct_GreedyMatching(t *testing.T) {
	cat := catalogtest.New(t)
	sol := &production.Solution{
		Status:    production.StatusOptimal,
		Mode:      production.MinimizeResources,
		Objective: 35,
		RunRates: []production.RecipeRate{
			{RecipeID: "alt_iron_plate", Rate: 5},
			{RecipeID: "iron_plate", Rate: 10},
			{RecipeID: "iron_rod", Rate: 1e-9},
		},
		Items: []production.ItemBalance{
			{ItemID: "iron_ore", Supplied: 35, Consumed: 35},
			{ItemID: "iron_plate", Produced: 20, Withdrawn: 15, Surplus: 5},
		},
	}

	g := solver.Reconstruct(sol, cat, 0)

	var ids []string
	for _, n := range g.Nodes {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []string{
		"machine:alt_iron_plate",
		"machine:iron_plate",
		"input:iron_ore",
		"output:iron_plate",
		"byproduct:iron_plate",
	}, ids)

	assert.Equal(t, []string{
		"input:iron_ore->machine:alt_iron_plate:iron_ore",
		"input:iron_ore->machine:iron_plate:iron_ore",
		"machine:alt_iron_plate->output:iron_plate:iron_plate",
		"machine:iron_plate->output:iron_plate:iron_plate",
		"machine:iron_plate->byproduct:iron_plate:iron_plate",
	}, func() []string {
		var out []string
		for _, e := range g.Edges {
			out = append(out, e.ID)
		}
		return out
	}())

	rates := edgeRates(g)
	assert.InDelta(t, 15, rates["input:iron_ore->machine:alt_iron_plate:iron_ore"], delta)
	assert.InDelta(t, 20, rates["input:iron_ore->machine:iron_plate:iron_ore"], delta)
	assert.InDelta(t, 10, rates["machine:alt_iron_plate->output:iron_plate:iron_plate"], delta)
	assert.InDelta(t, 5, rates["machine:iron_plate->output:iron_plate:iron_plate"], delta)
	assert.InDelta(t, 5, rates["machine:iron_plate->byproduct:iron_plate:iron_plate"], delta)

	assert.Empty(t, g.Warnings)
	assert.InDelta(t, 15, g.Stats.Machines, delta)
	assert.InDelta(t, 5*15+10*4, g.Stats.TotalPowerMW, delta)
	assert.InDelta(t, 5*150+10*80, g.Stats.TotalAreaM2, delta)
	assert.Equal(t, 1, g.Stats.Inputs)
	assert.Equal(t, 1, g.Stats.Outputs)
	assert.Equal(t, 1, g.Stats.Byproducts)
	assert.Equal(t, 35.0, g.Stats.Objective)
}

func TestReconstruct_UnmetDemand(t *testing.T) {
	cat := catalogtest.New(t)
	g := solver.Reconstruct(&production.Solution{
		RunRates: []production.RecipeRate{{RecipeID: "iron_plate", Rate: 10}},
		Items: []production.ItemBalance{
			{ItemID: "iron_ore", Supplied: 15, Consumed: 20},
			{ItemID: "iron_plate", Produced: 10, Withdrawn: 10},
		},
	}, cat, 0)

	require.Len(t, g.Warnings, 1)
	assert.Contains(t, g.Warnings[0], "iron_ore")
}

func TestReconstruct_FlowConservation(t *testing.T) {
	cat := catalogtest.New(t)
	sol := mustSolve(t, cat, production.SolverRequest{
		Outputs: []production.OutputSpec{
			{ItemID: "reinforced_iron_plate", Amount: 3},
			{ItemID: "plastic", Amount: 12},
		},
		UseWorldResources: true,
	})
	g := solver.Reconstruct(sol, cat, 0)
	require.Empty(t, g.Warnings)

	in := make(map[string]float64)
	out := make(map[string]float64)
	for _, e := range g.Edges {
		out[e.Source+"|"+e.ItemID] += e.Rate
		in[e.Target+"|"+e.ItemID] += e.Rate
	}

	for _, n := range g.Nodes {
		switch n.Kind {
		case production.NodeMachine:
			r, ok := cat.Recipe(n.RecipeID)
			require.True(t, ok)
			for _, p := range r.Products {
				assert.InDelta(t, n.Rate*p.Rate(), out[n.ID+"|"+p.ItemID], delta, "%s output %s", n.ID, p.ItemID)
			}
			for _, ing := range r.Ingredients {
				assert.InDelta(t, n.Rate*ing.Amount, in[n.ID+"|"+ing.ItemID], delta, "%s input %s", n.ID, ing.ItemID)
			}
		case production.NodeInput:
			assert.InDelta(t, n.Rate, out[n.ID+"|"+n.ItemID], delta)
		case production.NodeOutput, production.NodeByproduct:
			assert.InDelta(t, n.Rate, in[n.ID+"|"+n.ItemID], delta)
		}
	}

	byproduct, ok := g.Node(production.ByproductNodeID("heavy_oil_residue"))
	require.True(t, ok)
	assert.InDelta(t, 6, byproduct.Rate, delta)

	output, ok := g.Node(production.OutputNodeID("reinforced_iron_plate"))
	require.True(t, ok)
	assert.InDelta(t, 3, output.Rate, delta)
}

func TestReconstruct_PassThrough(t *testing.T) {
	cat := catalogtest.New(t)
	sol := mustSolve(t, cat, production.SolverRequest{
		Outputs: []production.OutputSpec{{ItemID: "screw", Amount: 8}},
		Inputs:  []production.InputSpec{{ItemID: "screw", Amount: 8}},
	})
	assert.InDelta(t, 0, sol.RunRate("screw"), delta)

	g := solver.Reconstruct(sol, cat, 0)
	require.Len(t, g.Edges, 1)
	assert.Equal(t, "input:screw", g.Edges[0].Source)
	assert.Equal(t, "output:screw", g.Edges[0].Target)
}

func TestReconstruct_SelfConsumingRecipe(t *testing.T) {
	cat, err := catalog.New(
		[]production.Item{{ID: "fuel", Name: "Fuel"}, {ID: "water", Name: "Water", Form: "liquid"}},
		[]production.Building{{ID: "blender", Name: "Blender", PowerMW: 75, AreaM2: 288}},
		[]production.Recipe{{
			ID:          "wloop",
			Name:        "Water Loop",
			BuildingID:  "blender",
			Ingredients: []production.Ingredient{{ItemID: "water", Amount: 2}},
			Products:    []production.Product{{ItemID: "water", Amount: 1}, {ItemID: "fuel", Amount: 1}},
		}},
		nil,
	)
	require.NoError(t, err)

	sol := mustSolve(t, cat, production.SolverRequest{
		Outputs: []production.OutputSpec{{ItemID: "fuel", Amount: 10}},
		Inputs:  []production.InputSpec{{ItemID: "water", Source: production.WorldSourceID}},
	})
	assert.InDelta(t, 10, sol.RunRate("wloop"), delta)

	g := solver.Reconstruct(sol, cat, 0)
	for _, e := range g.Edges {
		assert.NotEqual(t, e.Source, e.Target, e.ID)
	}
	rates := edgeRates(g)
	assert.Len(t, rates, 2)
	assert.InDelta(t, 10, rates["input:water->machine:wloop:water"], delta)
	assert.InDelta(t, 10, rates["machine:wloop->output:fuel:fuel"], delta)
	assert.Empty(t, g.Warnings)
}
