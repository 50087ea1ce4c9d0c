package engine

import (
	"context"
	"fmt"

	"github.com/rsned/production-planner/pkg/production"
)

// ItemRecipes executes the item_recipes tool logic.
func (e *Engine) ItemRecipes(_ context.Context, req production.ItemRecipesRequest) (*production.ItemRecipesResponse, error) {
	item, ok := e.catalog.Item(req.ItemID)
	if !ok {
		return nil, fmt.Errorf("item %q: %w", req.ItemID, ErrNotFound)
	}

	resp := &production.ItemRecipesResponse{
		Item:       item,
		ProducedBy: []production.RecipeUse{},
		ConsumedBy: []production.RecipeUse{},
	}

	for _, id := range e.catalog.RecipesProducing(item.ID) {
		r, _ := e.catalog.Recipe(id)
		resp.ProducedBy = append(resp.ProducedBy, production.RecipeUse{
			RecipeID:  r.ID,
			Name:      r.Name,
			PerMinute: r.ProducedPerRun(item.ID),
			Alternate: r.Alternate,
		})
	}
	for _, id := range e.catalog.RecipesConsuming(item.ID) {
		r, _ := e.catalog.Recipe(id)
		resp.ConsumedBy = append(resp.ConsumedBy, production.RecipeUse{
			RecipeID:  r.ID,
			Name:      r.Name,
			PerMinute: r.ConsumedPerRun(item.ID),
			Alternate: r.Alternate,
		})
	}

	if wr, ok := e.catalog.WorldResource(item.ID); ok {
		resp.WorldResource = &wr
	}

	return resp, nil
}

// WorldResources executes the world_resources tool logic.
func (e *Engine) WorldResources(_ context.Context) (*production.WorldResourcesResponse, error) {
	world := e.catalog.WorldResources()
	resp := &production.WorldResourcesResponse{
		Resources: make([]production.WorldResourceInfo, 0, len(world)),
	}
	for _, wr := range world {
		resp.Resources = append(resp.Resources, production.WorldResourceInfo{
			ItemID:  wr.ItemID,
			Name:    e.catalog.ItemName(wr.ItemID),
			MaxRate: wr.MaxRate,
		})
	}
	return resp, nil
}
