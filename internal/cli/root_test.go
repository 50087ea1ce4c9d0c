package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rsned/production-planner/pkg/production"
)

const testCatalog = `{
  "items": [
    {"id": "iron_ore", "name": "Iron Ore"},
    {"id": "iron_plate", "name": "Iron Plate"}
  ],
  "buildings": [{"id": "constructor", "name": "Constructor", "power_mw": 4, "area_m2": 80}],
  "recipes": [{
    "id": "iron_plate",
    "name": "Iron Plate",
    "building_id": "constructor",
    "ingredients": [{"item_id": "iron_ore", "per_minute": 2}],
    "products": [{"item_id": "iron_plate", "per_minute": 1}]
  }],
  "world_resources": [{"item_id": "iron_ore", "max_rate": 780}]
}`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func importedDB(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "planner.db")
	_, err := execute(t, "import", "--db", dbPath, "--json=false", writeTemp(t, "catalog.json", testCatalog))
	require.NoError(t, err)
	return dbPath
}

func TestRootCommand_Help(t *testing.T) {
	out, err := execute(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "production-planner")
}

func TestRootCommand_InvalidCommand(t *testing.T) {
	_, err := execute(t, "invalid-command")
	assert.Error(t, err)
}

func TestSetVersion(t *testing.T) {
	tests := []struct {
		name    string
		version string
		want    string
	}{
		{"normal version", "1.2.3", "1.2.3"},
		{"empty version keeps previous", "", "1.2.3"},
		{"dev version", "dev", "dev"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			SetVersion(tt.version)
			assert.Equal(t, tt.want, rootCmd.Version)
		})
	}
}

func TestRootCommand_Subcommands(t *testing.T) {
	for _, name := range []string{"serve", "solve", "import", "version"} {
		cmd, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestImportCommand(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "planner.db")
	out, err := execute(t, "import", "--db", dbPath, "--json", writeTemp(t, "catalog.json", testCatalog))
	require.NoError(t, err)

	var counts map[string]int
	require.NoError(t, json.Unmarshal([]byte(out), &counts))
	assert.Equal(t, 1, counts["recipes"])
	assert.Equal(t, 2, counts["items"])
	assert.Equal(t, 1, counts["world_resources"])
}

func TestSolveCommand(t *testing.T) {
	dbPath := importedDB(t)

	yamlReq := writeTemp(t, "request.yaml", `
outputs:
  - item_id: iron_plate
    amount: 30
inputs:
  - item_id: iron_ore
    source: WORLD
`)

	out, err := execute(t, "solve", "--db", dbPath, "--json", "--request", yamlReq)
	require.NoError(t, err)

	var resp production.SolveResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.True(t, resp.Feasible)
	assert.InDelta(t, 60, resp.Graph.Stats.Objective, 1e-4)

	out, err = execute(t, "solve", "--db", dbPath, "--json=false", "--request", yamlReq)
	require.NoError(t, err)
	assert.Contains(t, out, "solution found")
	assert.Contains(t, out, "Iron Plate")
}

func TestSolveCommand_Infeasible(t *testing.T) {
	dbPath := importedDB(t)

	jsonReq := writeTemp(t, "request.json", `{
  "outputs": [{"item_id": "iron_plate", "amount": 30}],
  "inputs": [{"item_id": "iron_ore", "amount": 40}]
}`)

	out, err := execute(t, "solve", "--db", dbPath, "--json=false", "--request", jsonReq)
	assert.ErrorIs(t, err, ErrNoSolution)
	assert.Contains(t, out, "No solution found")
}

func TestReadRequestFile(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantErr bool
	}{
		{
			name:    "yaml",
			file:    "req.yml",
			content: "outputs:\n  - item_id: iron_plate\n    amount: 30\nobjective: minimize_power\n",
		},
		{
			name:    "json",
			file:    "req.json",
			content: `{"outputs": [{"item_id": "iron_plate", "amount": 30}], "objective": "minimize_power"}`,
		},
		{
			name:    "unknown yaml field",
			file:    "req.yaml",
			content: "outputs: []\nspeed: 3\n",
			wantErr: true,
		},
		{
			name:    "unknown json field",
			file:    "req.json",
			content: `{"outputs": [], "speed": 3}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := readRequestFile(writeTemp(t, tt.file, tt.content))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Len(t, req.Outputs, 1)
			assert.Equal(t, "iron_plate", req.Outputs[0].ItemID)
			assert.Equal(t, 30.0, req.Outputs[0].Amount)
			assert.Equal(t, production.MinimizePower, req.Objective)
		})
	}
}

func TestPrintGraph(t *testing.T) {
	g := &production.FlowGraph{
		Nodes: []production.Node{
			{ID: "machine:iron_plate", Kind: production.NodeMachine, Label: "Iron Plate", Rate: 1234.5, PowerMW: 4},
			{ID: "output:iron_plate", Kind: production.NodeOutput, Label: "Iron Plate", Rate: 30},
		},
		Edges: []production.Edge{
			{ID: "machine:iron_plate->output:iron_plate:iron_plate", Source: "machine:iron_plate", Target: "output:iron_plate", ItemID: "iron_plate", Rate: 30},
		},
		Warnings: []string{"unmet demand"},
		Stats:    production.GraphStats{Objective: 60, Mode: production.MinimizeResources},
	}

	var buf bytes.Buffer
	PrintGraph(&buf, g)
	out := buf.String()

	assert.Contains(t, out, "1,234.5")
	assert.Contains(t, out, "minimize_resources")
	assert.Contains(t, out, "machine:iron_plate -> output:iron_plate")
	assert.Contains(t, out, "unmet demand")
	assert.NotContains(t, out, "Byproducts")
}
