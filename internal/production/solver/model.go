package solver

import (
	"fmt"
	"math"
	"sort"

	"github.com/rsned/production-planner/internal/production/catalog"
	"github.com/rsned/production-planner/pkg/production"
)

// DefaultScarceWeight is the resource objective weight of a scarce item.
const DefaultScarceWeight = 10

// tieBreakWeight nudges the solver away from idle supply and idle machines
// when the primary objective does not price them.
const tieBreakWeight = 1e-6

// VarKind classifies LP variables.
type VarKind int

const (
	VarRecipe VarKind = iota
	VarSupply
	VarWithdrawal
	VarSurplus
)

func (k VarKind) String() string {
	switch k {
	case VarRecipe:
		return "recipe"
	case VarSupply:
		return "supply"
	case VarWithdrawal:
		return "withdrawal"
	case VarSurplus:
		return "surplus"
	default:
		return fmt.Sprintf("VarKind(%d)", int(k))
	}
}

// Variable is one bounded LP column. Ref is the recipe id for recipe
// variables and the item id for all others.
type Variable struct {
	Name  string
	Kind  VarKind
	Ref   string
	Lower float64
	Upper float64 // math.Inf(1) when unbounded
	Cost  float64 // contribution per unit to the reported objective
}

// Sense is the relation of a constraint row to its right-hand side.
type Sense int

const (
	SenseEQ Sense = iota
	SenseLE
	SenseGE
)

// Term is a coefficient on a variable in a constraint row.
type Term struct {
	Var  int
	Coef float64
}

// Constraint is one LP row. Item is set on item balance rows.
type Constraint struct {
	Name  string
	Item  string
	Terms []Term
	Sense Sense
	RHS   float64
}

// Model is a bounded linear program: minimize Objective·x subject to the
// constraints and Lower <= x <= Upper.
type Model struct {
	Mode        production.ObjectiveMode
	Variables   []Variable
	Constraints []Constraint
	Objective   []float64
}

// AddVariable appends a variable and returns its index.
func (m *Model) AddVariable(v Variable, objective float64) int {
	m.Variables = append(m.Variables, v)
	m.Objective = append(m.Objective, objective)
	return len(m.Variables) - 1
}

// Validate checks that every term references a variable.
func (m *Model) Validate() error {
	if len(m.Objective) != len(m.Variables) {
		return fmt.Errorf("%w: objective has %d entries for %d variables",
			ErrEngineFailure, len(m.Objective), len(m.Variables))
	}
	for _, c := range m.Constraints {
		for _, t := range c.Terms {
			if t.Var < 0 || t.Var >= len(m.Variables) {
				return fmt.Errorf("%w: row %s references variable %d", ErrEngineFailure, c.Name, t.Var)
			}
		}
	}
	return nil
}

// Solution assembles a Solution from per-variable values.
func (m *Model) Solution(values []float64) *production.Solution {
	sol := &production.Solution{
		Status: production.StatusOptimal,
		Mode:   m.Mode,
	}

	for j, v := range m.Variables {
		sol.Objective += v.Cost * values[j]
		if v.Kind == VarRecipe {
			sol.RunRates = append(sol.RunRates, production.RecipeRate{RecipeID: v.Ref, Rate: values[j]})
		}
	}
	sort.Slice(sol.RunRates, func(a, b int) bool {
		return sol.RunRates[a].RecipeID < sol.RunRates[b].RecipeID
	})

	for _, c := range m.Constraints {
		if c.Item == "" {
			continue
		}
		bal := production.ItemBalance{ItemID: c.Item}
		for _, t := range c.Terms {
			val := values[t.Var]
			switch m.Variables[t.Var].Kind {
			case VarRecipe:
				if t.Coef > 0 {
					bal.Produced += t.Coef * val
				} else {
					bal.Consumed -= t.Coef * val
				}
			case VarSupply:
				bal.Supplied += val
			case VarWithdrawal:
				bal.Withdrawn += val
			case VarSurplus:
				bal.Surplus += val
			}
		}
		sol.Items = append(sol.Items, bal)
	}
	sort.Slice(sol.Items, func(a, b int) bool {
		return sol.Items[a].ItemID < sol.Items[b].ItemID
	})

	return sol
}

// Builder encodes requests against a catalog.
type Builder struct {
	catalog      *catalog.Catalog
	scarceWeight float64
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithScarceWeight sets the resource weight applied to scarce items.
func WithScarceWeight(w float64) BuilderOption {
	return func(b *Builder) {
		if w > 0 {
			b.scarceWeight = w
		}
	}
}

// NewBuilder creates a Builder for the catalog.
func NewBuilder(cat *catalog.Catalog, opts ...BuilderOption) *Builder {
	b := &Builder{catalog: cat, scarceWeight: DefaultScarceWeight}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build encodes a request with default options.
func Build(req production.SolverRequest, cat *catalog.Catalog) (*Model, error) {
	return NewBuilder(cat).Build(req)
}

type outputBound struct {
	amount  float64
	atLeast bool
}

type supplyBound struct {
	lower float64
	upper float64
}

// Build encodes req as a Model.
//
// Variables are laid out as all recipe run-rates in ascending recipe id,
// followed by supply, withdrawal and surplus variables per item in ascending
// item id. There is one equality row per item:
//
//	produced - consumed + supply - withdrawal - surplus = 0
//
// Items that are force-consumed or requested as at-least outputs get no
// surplus variable.
func (b *Builder) Build(req production.SolverRequest) (*Model, error) {
	mode := req.Objective
	if mode == "" {
		mode = production.MinimizeResources
	}
	if !mode.IsValid() {
		return nil, fmt.Errorf("%w: objective %q", ErrInvalidRequest, mode)
	}

	outputs, err := b.mergeOutputs(req.Outputs)
	if err != nil {
		return nil, err
	}
	supplies, err := b.mergeInputs(req.Inputs)
	if err != nil {
		return nil, err
	}
	recipes, err := b.allowedRecipes(req.AllowedRecipes)
	if err != nil {
		return nil, err
	}
	if len(recipes) == 0 && len(outputs) > 0 {
		return nil, ErrEmptyModel
	}

	touched := make(map[string]bool)
	for _, r := range recipes {
		for _, in := range r.Ingredients {
			touched[in.ItemID] = true
		}
		for _, p := range r.Products {
			touched[p.ItemID] = true
		}
	}
	for id := range outputs {
		touched[id] = true
	}
	for id := range supplies {
		touched[id] = true
	}
	itemIDs := make([]string, 0, len(touched))
	for id := range touched {
		itemIDs = append(itemIDs, id)
	}
	sort.Strings(itemIDs)

	if req.UseWorldResources {
		for _, id := range itemIDs {
			if _, declared := supplies[id]; declared {
				continue
			}
			wr, ok := b.catalog.WorldResource(id)
			if !ok {
				continue
			}
			upper := math.Inf(1)
			if wr.MaxRate > 0 {
				upper = wr.MaxRate
			}
			supplies[id] = supplyBound{upper: upper}
		}
	}

	m := &Model{Mode: mode}
	rows := make(map[string][]Term, len(itemIDs))

	for _, r := range recipes {
		upper := math.Inf(1)
		if r.MaxRate > 0 {
			upper = r.MaxRate
		}
		building := b.catalog.RecipeBuilding(r)
		var cost float64
		switch mode {
		case production.MinimizePower:
			cost = building.PowerMW
		case production.MinimizeArea:
			cost = building.AreaM2
		}
		j := m.AddVariable(Variable{
			Name:  "recipe:" + r.ID,
			Kind:  VarRecipe,
			Ref:   r.ID,
			Upper: upper,
			Cost:  cost,
		}, cost+tieBreakWeight)

		for _, p := range r.Products {
			rows[p.ItemID] = append(rows[p.ItemID], Term{Var: j, Coef: p.Rate()})
		}
		for _, in := range r.Ingredients {
			rows[in.ItemID] = append(rows[in.ItemID], Term{Var: j, Coef: -in.Amount})
		}
	}

	for _, id := range itemIDs {
		sup, hasSupply := supplies[id]
		out, hasOutput := outputs[id]

		if hasSupply {
			var cost float64
			if mode == production.MinimizeResources {
				cost = 1
				if it, _ := b.catalog.Item(id); it.Scarce {
					cost = b.scarceWeight
				}
			}
			j := m.AddVariable(Variable{
				Name:  "supply:" + id,
				Kind:  VarSupply,
				Ref:   id,
				Lower: sup.lower,
				Upper: sup.upper,
				Cost:  cost,
			}, cost+tieBreakWeight)
			rows[id] = append(rows[id], Term{Var: j, Coef: 1})
		}

		if hasOutput {
			upper := out.amount
			if out.atLeast {
				upper = math.Inf(1)
			}
			j := m.AddVariable(Variable{
				Name:  "withdrawal:" + id,
				Kind:  VarWithdrawal,
				Ref:   id,
				Lower: out.amount,
				Upper: upper,
			}, 0)
			rows[id] = append(rows[id], Term{Var: j, Coef: -1})
		}

		forced := hasSupply && sup.lower > 0
		if !forced && !(hasOutput && out.atLeast) {
			j := m.AddVariable(Variable{
				Name:  "surplus:" + id,
				Kind:  VarSurplus,
				Ref:   id,
				Upper: math.Inf(1),
			}, 0)
			rows[id] = append(rows[id], Term{Var: j, Coef: -1})
		}
	}

	for _, id := range itemIDs {
		m.Constraints = append(m.Constraints, Constraint{
			Name:  "balance:" + id,
			Item:  id,
			Terms: rows[id],
			Sense: SenseEQ,
		})
	}

	return m, nil
}

func (b *Builder) mergeOutputs(specs []production.OutputSpec) (map[string]outputBound, error) {
	outputs := make(map[string]outputBound, len(specs))
	for _, o := range specs {
		if _, ok := b.catalog.Item(o.ItemID); !ok {
			return nil, fmt.Errorf("%w: output %q", ErrUnknownItem, o.ItemID)
		}
		if !validAmount(o.Amount) {
			return nil, fmt.Errorf("%w: output %q has amount %v", ErrInvalidRequest, o.ItemID, o.Amount)
		}
		switch o.Objective {
		case "", production.OutputExact, production.OutputAtLeast:
		default:
			return nil, fmt.Errorf("%w: output %q has objective %q", ErrInvalidRequest, o.ItemID, o.Objective)
		}
		if o.Amount == 0 {
			continue
		}
		cur := outputs[o.ItemID]
		cur.amount += o.Amount
		cur.atLeast = cur.atLeast || o.AtLeast()
		outputs[o.ItemID] = cur
	}
	return outputs, nil
}

func (b *Builder) mergeInputs(specs []production.InputSpec) (map[string]supplyBound, error) {
	supplies := make(map[string]supplyBound, len(specs))
	for _, in := range specs {
		if _, ok := b.catalog.Item(in.ItemID); !ok {
			return nil, fmt.Errorf("%w: input %q", ErrUnknownItem, in.ItemID)
		}
		if !validAmount(in.Amount) {
			return nil, fmt.Errorf("%w: input %q has amount %v", ErrInvalidRequest, in.ItemID, in.Amount)
		}
		cur := supplies[in.ItemID]
		cur.lower += in.Floor()
		cur.upper += in.Cap()
		supplies[in.ItemID] = cur
	}
	return supplies, nil
}

// allowedRecipes resolves the allowed recipe ids. A nil list means the
// catalog defaults; an empty non-nil list allows nothing.
func (b *Builder) allowedRecipes(ids []string) ([]*production.Recipe, error) {
	if ids == nil {
		ids = b.catalog.DefaultRecipeIDs()
	}
	seen := make(map[string]bool, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, id)
	}
	sort.Strings(unique)

	recipes := make([]*production.Recipe, 0, len(unique))
	for _, id := range unique {
		r, ok := b.catalog.Recipe(id)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownRecipe, id)
		}
		recipes = append(recipes, r)
	}
	return recipes, nil
}

func validAmount(v float64) bool {
	return v >= 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}
