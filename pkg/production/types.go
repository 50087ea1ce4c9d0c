// Package production contains the core types for the production planner.
package production

import "math"

// WorldSourceID marks an input that is drawn from the world rather than
// from another factory.
const WorldSourceID = "WORLD"

// ============================================
// CATALOG TYPES
// ============================================

// Item is anything that flows between machines.
type Item struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Form        string `json:"form,omitempty" yaml:"form,omitempty"` // "solid", "liquid", "gas"
	Scarce      bool   `json:"scarce,omitempty" yaml:"scarce,omitempty"`
}

// Building is a machine type that recipes run on.
type Building struct {
	ID      string  `json:"id" yaml:"id"`
	Name    string  `json:"name" yaml:"name"`
	PowerMW float64 `json:"power_mw" yaml:"power_mw"` // negative for generators
	AreaM2  float64 `json:"area_m2" yaml:"area_m2"`
}

// Ingredient is an item consumed by a recipe, per minute at run-rate 1.
type Ingredient struct {
	ItemID string  `json:"item_id" yaml:"item_id"`
	Amount float64 `json:"amount" yaml:"amount"`
}

// Product is an item produced by a recipe, per minute at run-rate 1.
// Multiplier is the production boost slot; values <= 0 mean no boost.
type Product struct {
	ItemID     string  `json:"item_id" yaml:"item_id"`
	Amount     float64 `json:"amount" yaml:"amount"`
	Multiplier float64 `json:"multiplier,omitempty" yaml:"multiplier,omitempty"`
}

// Rate returns the effective amount per minute including the multiplier.
func (p Product) Rate() float64 {
	if p.Multiplier <= 0 {
		return p.Amount
	}
	return p.Amount * p.Multiplier
}

// Recipe converts ingredients into products on a building.
type Recipe struct {
	ID          string       `json:"id" yaml:"id"`
	Name        string       `json:"name" yaml:"name"`
	BuildingID  string       `json:"building_id" yaml:"building_id"`
	DurationSec float64      `json:"duration_sec,omitempty" yaml:"duration_sec,omitempty"`
	Alternate   bool         `json:"alternate,omitempty" yaml:"alternate,omitempty"`
	MaxRate     float64      `json:"max_rate,omitempty" yaml:"max_rate,omitempty"` // 0 = uncapped
	Ingredients []Ingredient `json:"ingredients" yaml:"ingredients"`
	Products    []Product    `json:"products" yaml:"products"`
}

// ProducedPerRun returns how much of itemID one unit of run-rate produces.
func (r *Recipe) ProducedPerRun(itemID string) float64 {
	var total float64
	for _, p := range r.Products {
		if p.ItemID == itemID {
			total += p.Rate()
		}
	}
	return total
}

// ConsumedPerRun returns how much of itemID one unit of run-rate consumes.
func (r *Recipe) ConsumedPerRun(itemID string) float64 {
	var total float64
	for _, in := range r.Ingredients {
		if in.ItemID == itemID {
			total += in.Amount
		}
	}
	return total
}

// WorldResource is a raw resource that can be extracted from the world.
type WorldResource struct {
	ItemID  string  `json:"item_id" yaml:"item_id"`
	MaxRate float64 `json:"max_rate,omitempty" yaml:"max_rate,omitempty"` // 0 = unlimited
}

// ============================================
// REQUEST TYPES
// ============================================

// ObjectiveMode selects the quantity the solver minimizes.
type ObjectiveMode string

const (
	MinimizeResources ObjectiveMode = "minimize_resources"
	MinimizePower     ObjectiveMode = "minimize_power"
	MinimizeArea      ObjectiveMode = "minimize_area"
)

// ValidObjectives returns all valid objective modes.
func ValidObjectives() []ObjectiveMode {
	return []ObjectiveMode{
		MinimizeResources,
		MinimizePower,
		MinimizeArea,
	}
}

// IsValid checks if the objective is a known mode.
func (m ObjectiveMode) IsValid() bool {
	for _, valid := range ValidObjectives() {
		if m == valid {
			return true
		}
	}
	return false
}

// OutputObjective says whether an output amount is exact or a minimum.
type OutputObjective string

const (
	OutputExact   OutputObjective = "default"
	OutputAtLeast OutputObjective = "max"
)

// OutputSpec is a requested output rate.
type OutputSpec struct {
	ItemID    string          `json:"item_id" yaml:"item_id"`
	Amount    float64         `json:"amount" yaml:"amount"`
	Objective OutputObjective `json:"objective,omitempty" yaml:"objective,omitempty"`
}

// AtLeast reports whether the output may exceed Amount.
func (o OutputSpec) AtLeast() bool {
	return o.Objective == OutputAtLeast
}

// InputSpec is an externally available input.
type InputSpec struct {
	ItemID     string  `json:"item_id" yaml:"item_id"`
	Amount     float64 `json:"amount,omitempty" yaml:"amount,omitempty"`
	Source     string  `json:"source,omitempty" yaml:"source,omitempty"` // factory id or WORLD
	Unlimited  bool    `json:"unlimited,omitempty" yaml:"unlimited,omitempty"`
	ForceUsage bool    `json:"force_usage,omitempty" yaml:"force_usage,omitempty"`
	Note       string  `json:"note,omitempty" yaml:"note,omitempty"`
}

// IsUnlimited reports whether the input has no upper bound.
func (in InputSpec) IsUnlimited() bool {
	return in.Unlimited || in.Source == WorldSourceID
}

// Cap returns the upper bound on supply, +Inf when unlimited.
func (in InputSpec) Cap() float64 {
	if in.IsUnlimited() {
		return math.Inf(1)
	}
	return in.Amount
}

// Floor returns the minimum forced consumption of the input.
func (in InputSpec) Floor() float64 {
	if !in.ForceUsage || in.Amount <= 0 {
		return 0
	}
	return in.Amount
}

// SolverRequest describes one planning problem.
type SolverRequest struct {
	Outputs           []OutputSpec  `json:"outputs" yaml:"outputs"`
	Inputs            []InputSpec   `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	AllowedRecipes    []string      `json:"allowed_recipes,omitempty" yaml:"allowed_recipes,omitempty"`
	Objective         ObjectiveMode `json:"objective,omitempty" yaml:"objective,omitempty"`
	UseWorldResources bool          `json:"use_world_resources,omitempty" yaml:"use_world_resources,omitempty"`
}

// ============================================
// SOLUTION TYPES
// ============================================

// Status is the outcome reported by the LP engine.
type Status string

const (
	StatusOptimal    Status = "optimal"
	StatusInfeasible Status = "infeasible"
	StatusUnbounded  Status = "unbounded"
	StatusTimeout    Status = "timeout"
	StatusFailed     Status = "failed"
)

// RecipeRate is the solved run-rate of one recipe.
type RecipeRate struct {
	RecipeID string  `json:"recipe_id"`
	Rate     float64 `json:"rate"`
}

// ItemBalance is the solved flow of one item.
type ItemBalance struct {
	ItemID    string  `json:"item_id"`
	Produced  float64 `json:"produced"`
	Consumed  float64 `json:"consumed"`
	Supplied  float64 `json:"supplied"`
	Withdrawn float64 `json:"withdrawn"`
	Surplus   float64 `json:"surplus"`
}

// Net returns production minus consumption.
func (b ItemBalance) Net() float64 {
	return b.Produced - b.Consumed
}

// Solution is the result of one LP solve. Slices are sorted by id.
type Solution struct {
	Status    Status        `json:"status"`
	Mode      ObjectiveMode `json:"mode"`
	Objective float64       `json:"objective"`
	RunRates  []RecipeRate  `json:"run_rates"`
	Items     []ItemBalance `json:"items"`
}

// RunRate returns the run-rate of a recipe, zero when absent.
func (s *Solution) RunRate(recipeID string) float64 {
	for _, rr := range s.RunRates {
		if rr.RecipeID == recipeID {
			return rr.Rate
		}
	}
	return 0
}

// Item returns the balance of an item.
func (s *Solution) Item(itemID string) (ItemBalance, bool) {
	for _, b := range s.Items {
		if b.ItemID == itemID {
			return b, true
		}
	}
	return ItemBalance{}, false
}

// ============================================
// GRAPH TYPES
// ============================================

// NodeKind classifies flow graph nodes.
type NodeKind string

const (
	NodeMachine   NodeKind = "machine"
	NodeInput     NodeKind = "input"
	NodeOutput    NodeKind = "output"
	NodeByproduct NodeKind = "byproduct"
)

// Node is a machine group or a resource endpoint in the flow graph.
type Node struct {
	ID         string   `json:"id"`
	Kind       NodeKind `json:"kind"`
	Label      string   `json:"label"`
	RecipeID   string   `json:"recipe_id,omitempty"`
	BuildingID string   `json:"building_id,omitempty"`
	ItemID     string   `json:"item_id,omitempty"`
	Rate       float64  `json:"rate"` // machine count for machines, items/min otherwise
	PowerMW    float64  `json:"power_mw,omitempty"`
	AreaM2     float64  `json:"area_m2,omitempty"`
}

// Edge is a directed item flow between two nodes.
type Edge struct {
	ID     string  `json:"id"`
	Source string  `json:"source"`
	Target string  `json:"target"`
	ItemID string  `json:"item_id"`
	Rate   float64 `json:"rate"`
}

// GraphStats summarises a flow graph.
type GraphStats struct {
	Objective    float64       `json:"objective"`
	Mode         ObjectiveMode `json:"mode"`
	TotalPowerMW float64       `json:"total_power_mw"`
	TotalAreaM2  float64       `json:"total_area_m2"`
	Machines     float64       `json:"machines"`
	Inputs       int           `json:"inputs"`
	Outputs      int           `json:"outputs"`
	Byproducts   int           `json:"byproducts"`
}

// FlowGraph is the solved production chain.
type FlowGraph struct {
	Nodes    []Node     `json:"nodes"`
	Edges    []Edge     `json:"edges"`
	Warnings []string   `json:"warnings,omitempty"`
	Stats    GraphStats `json:"stats"`
}

// Node returns the node with the given id.
func (g *FlowGraph) Node(id string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// MachineNodeID returns the node id for a recipe.
func MachineNodeID(recipeID string) string { return "machine:" + recipeID }

// InputNodeID returns the node id for an external supply.
func InputNodeID(itemID string) string { return "input:" + itemID }

// OutputNodeID returns the node id for a requested output.
func OutputNodeID(itemID string) string { return "output:" + itemID }

// ByproductNodeID returns the node id for a byproduct sink.
func ByproductNodeID(itemID string) string { return "byproduct:" + itemID }

// ============================================
// TOOL REQUEST/RESPONSE TYPES
// ============================================

// SolveRequest is the input for the solve_production tool.
type SolveRequest struct {
	SessionID string        `json:"session_id,omitempty"`
	Request   SolverRequest `json:"request"`
}

// SolveResponse is the output for the solve_production tool.
type SolveResponse struct {
	SessionID string     `json:"session_id"`
	Feasible  bool       `json:"feasible"`
	Message   string     `json:"message,omitempty"`
	Graph     *FlowGraph `json:"graph,omitempty"`
}

// CloseSessionRequest is the input for the close_session tool.
type CloseSessionRequest struct {
	SessionID string `json:"session_id"`
}

// CloseSessionResponse is the output for the close_session tool.
type CloseSessionResponse struct {
	SessionID string `json:"session_id"`
	Closed    bool   `json:"closed"`
}

// RecipeLookupRequest is the input for the recipe_lookup tool.
type RecipeLookupRequest struct {
	RecipeID string `json:"recipe_id,omitempty"`
	Search   string `json:"search,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

// RecipeLookupResponse is the output for the recipe_lookup tool.
type RecipeLookupResponse struct {
	Recipe        *Recipe           `json:"recipe,omitempty"`
	Building      *Building         `json:"building,omitempty"`
	SearchResults []RecipeSearchHit `json:"search_results,omitempty"`
}

// RecipeSearchHit is a lightweight recipe match for search results.
type RecipeSearchHit struct {
	RecipeID  string `json:"recipe_id"`
	Name      string `json:"name"`
	Alternate bool   `json:"alternate,omitempty"`
}

// ItemRecipesRequest is the input for the item_recipes tool.
type ItemRecipesRequest struct {
	ItemID string `json:"item_id"`
}

// ItemRecipesResponse is the output for the item_recipes tool.
type ItemRecipesResponse struct {
	Item          Item           `json:"item"`
	ProducedBy    []RecipeUse    `json:"produced_by"`
	ConsumedBy    []RecipeUse    `json:"consumed_by"`
	WorldResource *WorldResource `json:"world_resource,omitempty"`
}

// RecipeUse describes how a recipe touches an item.
type RecipeUse struct {
	RecipeID  string  `json:"recipe_id"`
	Name      string  `json:"name"`
	PerMinute float64 `json:"per_minute"`
	Alternate bool    `json:"alternate,omitempty"`
}

// WorldResourcesResponse is the output for the world_resources tool.
type WorldResourcesResponse struct {
	Resources []WorldResourceInfo `json:"resources"`
}

// WorldResourceInfo pairs a world resource with its item name.
type WorldResourceInfo struct {
	ItemID  string  `json:"item_id"`
	Name    string  `json:"name"`
	MaxRate float64 `json:"max_rate,omitempty"`
}
