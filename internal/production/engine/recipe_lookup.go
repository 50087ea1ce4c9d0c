package engine

import (
	"context"
	"fmt"

	"github.com/rsned/production-planner/pkg/production"
)

const defaultSearchLimit = 10

// RecipeLookup executes the recipe_lookup tool logic.
func (e *Engine) RecipeLookup(_ context.Context, req production.RecipeLookupRequest) (*production.RecipeLookupResponse, error) {
	resp := &production.RecipeLookupResponse{}

	if req.Search != "" {
		limit := req.Limit
		if limit <= 0 {
			limit = defaultSearchLimit
		}
		resp.SearchResults = e.catalog.SearchRecipes(req.Search, limit)

		// A single hit stands in for an explicit id.
		if len(resp.SearchResults) == 1 && req.RecipeID == "" {
			req.RecipeID = resp.SearchResults[0].RecipeID
		}
	}

	if req.RecipeID == "" {
		return resp, nil
	}

	r, ok := e.catalog.Recipe(req.RecipeID)
	if !ok {
		if req.Search != "" {
			return resp, nil
		}
		return nil, fmt.Errorf("recipe %q: %w", req.RecipeID, ErrNotFound)
	}

	recipe := *r
	building := e.catalog.RecipeBuilding(r)
	resp.Recipe = &recipe
	resp.Building = &building
	return resp, nil
}
