package session

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"

	"github.com/rsned/production-planner/pkg/production"
)

// Normalize returns a copy of req with every field that does not affect the
// solve cleared and every list in canonical order.
func Normalize(req production.SolverRequest) production.SolverRequest {
	out := production.SolverRequest{
		Objective:         req.Objective,
		UseWorldResources: req.UseWorldResources,
	}
	if out.Objective == "" {
		out.Objective = production.MinimizeResources
	}

	for _, o := range req.Outputs {
		if o.Objective == "" {
			o.Objective = production.OutputExact
		}
		out.Outputs = append(out.Outputs, o)
	}
	sort.Slice(out.Outputs, func(i, j int) bool {
		a, b := out.Outputs[i], out.Outputs[j]
		if a.ItemID != b.ItemID {
			return a.ItemID < b.ItemID
		}
		if a.Amount != b.Amount {
			return a.Amount < b.Amount
		}
		return a.Objective < b.Objective
	})

	for _, in := range req.Inputs {
		in.Note = ""
		out.Inputs = append(out.Inputs, in)
	}
	sort.Slice(out.Inputs, func(i, j int) bool {
		a, b := out.Inputs[i], out.Inputs[j]
		if a.ItemID != b.ItemID {
			return a.ItemID < b.ItemID
		}
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		if a.Amount != b.Amount {
			return a.Amount < b.Amount
		}
		if a.Unlimited != b.Unlimited {
			return !a.Unlimited
		}
		return !a.ForceUsage && b.ForceUsage
	})

	// nil selects the catalog defaults, empty selects nothing.
	if req.AllowedRecipes != nil {
		out.AllowedRecipes = make([]string, 0, len(req.AllowedRecipes))
	}
	seen := make(map[string]bool, len(req.AllowedRecipes))
	for _, id := range req.AllowedRecipes {
		if !seen[id] {
			seen[id] = true
			out.AllowedRecipes = append(out.AllowedRecipes, id)
		}
	}
	sort.Strings(out.AllowedRecipes)

	return out
}

// fingerprintKey is the hashed form of a request. allowed_recipes is
// omitempty on the wire, so the nil case is recorded separately.
type fingerprintKey struct {
	Request        production.SolverRequest `json:"request"`
	DefaultRecipes bool                     `json:"default_recipes"`
}

// Fingerprint returns a stable cache key for the solver-relevant content of
// req. Requests that differ only in notes or list order share a key.
func Fingerprint(req production.SolverRequest) (string, error) {
	data, err := json.Marshal(fingerprintKey{
		Request:        Normalize(req),
		DefaultRecipes: req.AllowedRecipes == nil,
	})
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}
	return fmt.Sprintf("%016x", xxhash.Sum64(data)), nil
}
