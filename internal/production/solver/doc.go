// Package solver turns a production request into a linear program, solves
// it, and rebuilds the result as a flow graph.
//
// The work is split into three steps that can be used independently:
//
//   - Builder.Build encodes a SolverRequest against a Catalog as a Model:
//     one variable per recipe run-rate, per external supply, per output
//     withdrawal and per surplus sink, and one balance row per item.
//   - An Engine solves a Model. SimplexEngine converts the bounded model to
//     standard form and runs the gonum simplex implementation.
//   - Reconstruct converts a Solution into a FlowGraph of machine groups,
//     resource endpoints and item edges.
//
// Every step is deterministic: variables, rows, nodes and edges are emitted
// in ascending id order, so identical inputs give identical graphs.
package solver
