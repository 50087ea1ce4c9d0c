package solver

import (
	"fmt"

	"github.com/rsned/production-planner/internal/production/catalog"
	"github.com/rsned/production-planner/pkg/production"
)

// DefaultEpsilon is the rate below which machines and flows are dropped.
const DefaultEpsilon = 1e-6

type endpoint struct {
	node string
	left float64
}

type graphBuilder struct {
	graph *production.FlowGraph
	nodes map[string]bool
}

func (gb *graphBuilder) addNode(n production.Node) {
	if gb.nodes[n.ID] {
		return
	}
	gb.nodes[n.ID] = true
	gb.graph.Nodes = append(gb.graph.Nodes, n)
	switch n.Kind {
	case production.NodeInput:
		gb.graph.Stats.Inputs++
	case production.NodeOutput:
		gb.graph.Stats.Outputs++
	case production.NodeByproduct:
		gb.graph.Stats.Byproducts++
	}
}

func (gb *graphBuilder) addEdge(source, target, itemID string, rate float64) {
	gb.graph.Edges = append(gb.graph.Edges, production.Edge{
		ID:     fmt.Sprintf("%s->%s:%s", source, target, itemID),
		Source: source,
		Target: target,
		ItemID: itemID,
		Rate:   rate,
	})
}

// Reconstruct converts a solution into a flow graph.
//
// Every recipe running above eps becomes a machine node. For each item, in
// ascending id order, producers (external supply first, then machines by
// recipe id) are matched greedily against consumers (machines by recipe id,
// then the requested output). Production left over after matching flows to
// a byproduct node; unmet demand is reported in Warnings.
//
// A machine that both consumes and produces an item takes part with its net
// amount only, so the graph never holds an edge from a node to itself.
func Reconstruct(sol *production.Solution, cat *catalog.Catalog, eps float64) *production.FlowGraph {
	if eps <= 0 {
		eps = DefaultEpsilon
	}
	gb := &graphBuilder{
		graph: &production.FlowGraph{
			Nodes: []production.Node{},
			Edges: []production.Edge{},
			Stats: production.GraphStats{
				Objective: sol.Objective,
				Mode:      sol.Mode,
			},
		},
		nodes: make(map[string]bool),
	}
	g := gb.graph

	type machine struct {
		recipe *production.Recipe
		rate   float64
	}
	var machines []machine
	for _, rr := range sol.RunRates {
		if rr.Rate <= eps {
			continue
		}
		r, ok := cat.Recipe(rr.RecipeID)
		if !ok {
			g.Warnings = append(g.Warnings, fmt.Sprintf("recipe %s is not in the catalog", rr.RecipeID))
			continue
		}
		b := cat.RecipeBuilding(r)
		gb.addNode(production.Node{
			ID:         production.MachineNodeID(r.ID),
			Kind:       production.NodeMachine,
			Label:      r.Name,
			RecipeID:   r.ID,
			BuildingID: b.ID,
			Rate:       rr.Rate,
			PowerMW:    rr.Rate * b.PowerMW,
			AreaM2:     rr.Rate * b.AreaM2,
		})
		g.Stats.Machines += rr.Rate
		g.Stats.TotalPowerMW += rr.Rate * b.PowerMW
		g.Stats.TotalAreaM2 += rr.Rate * b.AreaM2
		machines = append(machines, machine{recipe: r, rate: rr.Rate})
	}

	for _, bal := range sol.Items {
		item := bal.ItemID
		label := cat.ItemName(item)

		var producers, consumers []endpoint
		if bal.Supplied > eps {
			id := production.InputNodeID(item)
			gb.addNode(production.Node{ID: id, Kind: production.NodeInput, Label: label, ItemID: item, Rate: bal.Supplied})
			producers = append(producers, endpoint{node: id, left: bal.Supplied})
		}
		for _, m := range machines {
			net := m.rate * (m.recipe.ProducedPerRun(item) - m.recipe.ConsumedPerRun(item))
			switch {
			case net > eps:
				producers = append(producers, endpoint{node: production.MachineNodeID(m.recipe.ID), left: net})
			case net < -eps:
				consumers = append(consumers, endpoint{node: production.MachineNodeID(m.recipe.ID), left: -net})
			}
		}
		if bal.Withdrawn > eps {
			id := production.OutputNodeID(item)
			gb.addNode(production.Node{ID: id, Kind: production.NodeOutput, Label: label, ItemID: item, Rate: bal.Withdrawn})
			consumers = append(consumers, endpoint{node: id, left: bal.Withdrawn})
		}

		i, j := 0, 0
		for i < len(producers) && j < len(consumers) {
			p, c := &producers[i], &consumers[j]
			flow := min(p.left, c.left)
			if flow > eps {
				gb.addEdge(p.node, c.node, item, flow)
			}
			p.left -= flow
			c.left -= flow
			if p.left <= eps {
				i++
			}
			if c.left <= eps {
				j++
			}
		}

		var leftover float64
		for ; i < len(producers); i++ {
			if producers[i].left > eps {
				leftover += producers[i].left
			}
		}
		if leftover > eps {
			id := production.ByproductNodeID(item)
			gb.addNode(production.Node{ID: id, Kind: production.NodeByproduct, Label: label, ItemID: item, Rate: leftover})
			for k := range producers {
				if producers[k].left > eps {
					gb.addEdge(producers[k].node, id, item, producers[k].left)
				}
			}
		}

		var unmet float64
		for ; j < len(consumers); j++ {
			if consumers[j].left > eps {
				unmet += consumers[j].left
			}
		}
		if unmet > eps {
			g.Warnings = append(g.Warnings, fmt.Sprintf("unmatched demand for %s: %.6g/min", item, unmet))
		}
	}

	return g
}
