// Production chain planner: CLI and MCP server.
package main

import (
	"fmt"
	"os"

	"github.com/rsned/production-planner/internal/cli"
)

var version = "dev"

func main() {
	cli.SetVersion(version)

	if err := cli.Execute(); err != nil {
		cli.PrintError(os.Stderr, fmt.Sprintf("%v", err))
		os.Exit(1)
	}
}
