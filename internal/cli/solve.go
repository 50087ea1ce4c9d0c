package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rsned/production-planner/internal/production/engine"
	"github.com/rsned/production-planner/internal/production/metrics"
	"github.com/rsned/production-planner/pkg/production"
)

// ErrNoSolution is returned by solve when the request is infeasible.
var ErrNoSolution = errors.New("no solution")

var (
	requestFile    string
	objectiveFlag  string
	worldResources bool
)

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Solve a production request file",
	Long: `Solve one production request read from a JSON or YAML file and print the
resulting production chain.

Example request (YAML):

  outputs:
    - item_id: iron_plate
      amount: 30
  inputs:
    - item_id: iron_ore
      source: WORLD
  objective: minimize_resources`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := readRequestFile(requestFile)
		if err != nil {
			return err
		}
		if objectiveFlag != "" {
			req.Objective = production.ObjectiveMode(objectiveFlag)
		}
		if worldResources {
			req.UseWorldResources = true
		}

		ctx, cancel := signalContext()
		defer cancel()

		database, cat, err := openCatalog(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = database.Close() }()

		eng, err := engine.New(cat, cfg, metrics.New(), logger)
		if err != nil {
			return err
		}
		defer eng.Close()

		resp, err := eng.Solve(ctx, production.SolveRequest{Request: req})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if jsonOutput {
			if err := outputJSON(out, resp); err != nil {
				return err
			}
		} else if resp.Feasible {
			PrintSuccess(out, "solution found")
			PrintGraph(out, resp.Graph)
		} else {
			PrintWarning(out, resp.Message)
		}

		if !resp.Feasible {
			return ErrNoSolution
		}
		return nil
	},
}

func init() {
	solveCmd.Flags().StringVarP(&requestFile, "request", "r", "", "Request file (.json, .yaml or .yml)")
	solveCmd.Flags().StringVar(&objectiveFlag, "objective", "",
		fmt.Sprintf("Override the request objective (%s, %s, %s)",
			production.MinimizeResources, production.MinimizePower, production.MinimizeArea))
	solveCmd.Flags().BoolVar(&worldResources, "world-resources", false, "Allow every world resource as an input")
	_ = solveCmd.MarkFlagRequired("request")
}
