package mcp

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rsned/production-planner/pkg/production"
)

// ToolDefinition describes an MCP tool.
type ToolDefinition struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	InputSchema JSONSchema `json:"inputSchema"`
}

// JSONSchema is a simplified JSON Schema representation.
type JSONSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties,omitempty"`
	Required   []string            `json:"required,omitempty"`
}

// Property describes a schema property.
type Property struct {
	Type        string              `json:"type,omitempty"`
	Description string              `json:"description,omitempty"`
	Default     any                 `json:"default,omitempty"`
	Enum        []string            `json:"enum,omitempty"`
	Minimum     *float64            `json:"minimum,omitempty"`
	Maximum     *float64            `json:"maximum,omitempty"`
	Items       *Property           `json:"items,omitempty"`
	Properties  map[string]Property `json:"properties,omitempty"`
	Required    []string            `json:"required,omitempty"`
}

// GetToolDefinitions returns all tool definitions.
func GetToolDefinitions() []ToolDefinition {
	return []ToolDefinition{
		solveProductionTool(),
		recipeLookupTool(),
		itemRecipesTool(),
		worldResourcesTool(),
		closeSessionTool(),
	}
}

func objectiveEnum() []string {
	modes := production.ValidObjectives()
	out := make([]string, 0, len(modes))
	for _, m := range modes {
		out = append(out, string(m))
	}
	return out
}

func solveProductionTool() ToolDefinition {
	zero := 0.0

	return ToolDefinition{
		Name: "solve_production",
		Description: "Plan a production chain. Computes recipe run-rates that deliver the requested outputs " +
			"from the available inputs while minimizing resources, power or area, and returns the flow graph. " +
			"Reuse session_id across edits of the same plan; a newer solve cancels an older one still running.",
		InputSchema: JSONSchema{
			Type: "object",
			Properties: map[string]Property{
				"session_id": {
					Type:        "string",
					Description: "Planner session. Omit to open a new session; the response carries its id.",
				},
				"request": {
					Type:        "object",
					Description: "The planning request",
					Properties: map[string]Property{
						"outputs": {
							Type:        "array",
							Description: "Requested outputs per minute",
							Items: &Property{
								Type: "object",
								Properties: map[string]Property{
									"item_id": {Type: "string", Description: "Item ID"},
									"amount":  {Type: "number", Description: "Items per minute", Minimum: &zero},
									"objective": {
										Type:        "string",
										Description: "default = exactly this amount, max = at least this amount",
										Enum:        []string{string(production.OutputExact), string(production.OutputAtLeast)},
										Default:     string(production.OutputExact),
									},
								},
								Required: []string{"item_id", "amount"},
							},
						},
						"inputs": {
							Type:        "array",
							Description: "Externally available inputs",
							Items: &Property{
								Type: "object",
								Properties: map[string]Property{
									"item_id":     {Type: "string", Description: "Item ID"},
									"amount":      {Type: "number", Description: "Available items per minute", Minimum: &zero},
									"source":      {Type: "string", Description: "Source factory id, or WORLD for unlimited supply"},
									"unlimited":   {Type: "boolean", Description: "Ignore amount and allow any supply"},
									"force_usage": {Type: "boolean", Description: "Require the full amount to be consumed"},
									"note":        {Type: "string", Description: "Free text, ignored by the solver"},
								},
								Required: []string{"item_id"},
							},
						},
						"allowed_recipes": {
							Type:        "array",
							Description: "Recipe IDs the plan may use. Omit for all default (non-alternate) recipes; an empty list allows none.",
							Items:       &Property{Type: "string"},
						},
						"objective": {
							Type:        "string",
							Description: "What to minimize",
							Enum:        objectiveEnum(),
							Default:     string(production.MinimizeResources),
						},
						"use_world_resources": {
							Type:        "boolean",
							Description: "Also allow every world resource, up to its extraction limit",
							Default:     false,
						},
					},
					Required: []string{"outputs"},
				},
			},
			Required: []string{"request"},
		},
	}
}

func (s *Server) toolSolveProduction(ctx context.Context, args json.RawMessage) (any, error) {
	var req production.SolveRequest
	if err := decodeArgs(args, &req); err != nil {
		return nil, err
	}
	return s.engine.Solve(ctx, req)
}

func recipeLookupTool() ToolDefinition {
	minLimit := 1.0
	maxLimit := 100.0

	return ToolDefinition{
		Name:        "recipe_lookup",
		Description: "Look up a recipe by ID, or search recipes by name. A search with a single hit also returns that recipe.",
		InputSchema: JSONSchema{
			Type: "object",
			Properties: map[string]Property{
				"recipe_id": {Type: "string", Description: "Recipe ID"},
				"search":    {Type: "string", Description: "Case-insensitive name or ID fragment"},
				"limit": {
					Type:        "integer",
					Description: "Max search results",
					Default:     10,
					Minimum:     &minLimit,
					Maximum:     &maxLimit,
				},
			},
		},
	}
}

func (s *Server) toolRecipeLookup(ctx context.Context, args json.RawMessage) (any, error) {
	var req production.RecipeLookupRequest
	if err := decodeArgs(args, &req); err != nil {
		return nil, err
	}
	if req.RecipeID == "" && req.Search == "" {
		return nil, &paramsError{errors.New("recipe_id or search is required")}
	}
	return s.engine.RecipeLookup(ctx, req)
}

func itemRecipesTool() ToolDefinition {
	return ToolDefinition{
		Name:        "item_recipes",
		Description: "List the recipes that produce and consume an item, with per-minute rates at one machine.",
		InputSchema: JSONSchema{
			Type: "object",
			Properties: map[string]Property{
				"item_id": {Type: "string", Description: "Item ID"},
			},
			Required: []string{"item_id"},
		},
	}
}

func (s *Server) toolItemRecipes(ctx context.Context, args json.RawMessage) (any, error) {
	var req production.ItemRecipesRequest
	if err := decodeArgs(args, &req); err != nil {
		return nil, err
	}
	return s.engine.ItemRecipes(ctx, req)
}

func worldResourcesTool() ToolDefinition {
	return ToolDefinition{
		Name:        "world_resources",
		Description: "List raw resources that can be drawn from the world and their extraction limits.",
		InputSchema: JSONSchema{Type: "object"},
	}
}

func closeSessionTool() ToolDefinition {
	return ToolDefinition{
		Name:        "close_session",
		Description: "Close a planner session, cancelling any solve still running in it.",
		InputSchema: JSONSchema{
			Type: "object",
			Properties: map[string]Property{
				"session_id": {Type: "string", Description: "Session to close"},
			},
			Required: []string{"session_id"},
		},
	}
}

func (s *Server) toolCloseSession(ctx context.Context, args json.RawMessage) (any, error) {
	var req production.CloseSessionRequest
	if err := decodeArgs(args, &req); err != nil {
		return nil, err
	}
	return s.engine.CloseSession(ctx, req)
}
