// Package catalogtest provides a small fixed catalog for tests.
package catalogtest

import (
	"testing"

	"github.com/rsned/production-planner/internal/production/catalog"
	"github.com/rsned/production-planner/pkg/production"
)

// Items returns the fixture items.
func Items() []production.Item {
	return []production.Item{
		{ID: "copper_ore", Name: "Copper Ore"},
		{ID: "crude_oil", Name: "Crude Oil", Form: "liquid", Scarce: true},
		{ID: "heavy_oil_residue", Name: "Heavy Oil Residue", Form: "liquid"},
		{ID: "iron_ore", Name: "Iron Ore"},
		{ID: "iron_plate", Name: "Iron Plate"},
		{ID: "iron_rod", Name: "Iron Rod"},
		{ID: "plastic", Name: "Plastic"},
		{ID: "reinforced_iron_plate", Name: "Reinforced Iron Plate"},
		{ID: "screw", Name: "Screw"},
	}
}

// Buildings returns the fixture buildings.
func Buildings() []production.Building {
	return []production.Building{
		{ID: "assembler", Name: "Assembler", PowerMW: 15, AreaM2: 150},
		{ID: "constructor", Name: "Constructor", PowerMW: 4, AreaM2: 80},
		{ID: "refinery", Name: "Refinery", PowerMW: 30, AreaM2: 200},
	}
}

// Recipes returns the fixture recipes. Rates are per minute at run-rate 1.
//
// Plate production has a default recipe (2 ore per plate on a cheap
// constructor) and an alternate (1.5 ore per plate on an expensive
// assembler), so resource and power objectives pick different recipes.
func Recipes() []production.Recipe {
	return []production.Recipe{
		{
			ID:          "alt_iron_plate",
			Name:        "Alternate: Iron Plate",
			BuildingID:  "assembler",
			Alternate:   true,
			Ingredients: []production.Ingredient{{ItemID: "iron_ore", Amount: 3}},
			Products:    []production.Product{{ItemID: "iron_plate", Amount: 2}},
		},
		{
			ID:          "iron_plate",
			Name:        "Iron Plate",
			BuildingID:  "constructor",
			Ingredients: []production.Ingredient{{ItemID: "iron_ore", Amount: 2}},
			Products:    []production.Product{{ItemID: "iron_plate", Amount: 1}},
		},
		{
			ID:          "iron_rod",
			Name:        "Iron Rod",
			BuildingID:  "constructor",
			Ingredients: []production.Ingredient{{ItemID: "iron_ore", Amount: 1}},
			Products:    []production.Product{{ItemID: "iron_rod", Amount: 1}},
		},
		{
			ID:         "plastic",
			Name:       "Plastic",
			BuildingID: "refinery",
			Ingredients: []production.Ingredient{
				{ItemID: "crude_oil", Amount: 3},
			},
			Products: []production.Product{
				{ItemID: "plastic", Amount: 2},
				{ItemID: "heavy_oil_residue", Amount: 1},
			},
		},
		{
			ID:         "reinforced_iron_plate",
			Name:       "Reinforced Iron Plate",
			BuildingID: "assembler",
			Ingredients: []production.Ingredient{
				{ItemID: "iron_plate", Amount: 6},
				{ItemID: "screw", Amount: 12},
			},
			Products: []production.Product{{ItemID: "reinforced_iron_plate", Amount: 1}},
		},
		{
			ID:          "screw",
			Name:        "Screw",
			BuildingID:  "constructor",
			Ingredients: []production.Ingredient{{ItemID: "iron_rod", Amount: 1}},
			Products:    []production.Product{{ItemID: "screw", Amount: 4}},
		},
	}
}

// WorldResources returns the fixture world resources.
func WorldResources() []production.WorldResource {
	return []production.WorldResource{
		{ItemID: "copper_ore"},
		{ItemID: "crude_oil", MaxRate: 300},
		{ItemID: "iron_ore", MaxRate: 780},
	}
}

// New returns the fixture catalog, failing the test on error.
func New(t testing.TB) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New(Items(), Buildings(), Recipes(), WorldResources())
	if err != nil {
		t.Fatalf("building fixture catalog: %v", err)
	}
	return cat
}
