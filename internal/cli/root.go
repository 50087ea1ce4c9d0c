// Package cli implements the production-planner command line.
package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/rsned/production-planner/internal/production/config"
)

var (
	// Global flags
	configFile string
	jsonOutput bool

	// v holds flag, env and file settings; cfg is decoded from it before
	// every command runs.
	v      = viper.New()
	cfg    config.Config
	logger *slog.Logger
)

// rootCmd is the root command for production-planner.
var rootCmd = &cobra.Command{
	Use:     "production-planner",
	Version: "dev",
	Short:   "Factory production chain planner",
	Long: `production-planner computes optimal production chains from a recipe catalog.

It solves a linear program over recipe run-rates that delivers the requested
outputs from the available inputs while minimizing resources, power or area,
and serves the planner to agents over the Model Context Protocol.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(v, configFile)
		if err != nil {
			return err
		}
		cfg = loaded
		logger = newLogger(cmd.ErrOrStderr(), cfg.Verbose)
		slog.SetDefault(logger)
		return nil
	},
}

// SetVersion overrides the reported version. Empty is ignored.
func SetVersion(ver string) {
	if ver == "" {
		return
	}
	rootCmd.Version = ver
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "Path to a YAML config file")
	flags.String("db", "production.db", "Path to the SQLite catalog database")
	flags.BoolP("verbose", "v", false, "Enable debug logging")
	flags.String("metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
	flags.BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	mustBind(flags, "db", "db")
	mustBind(flags, "verbose", "verbose")
	mustBind(flags, "metrics_addr", "metrics-addr")

	rootCmd.AddGroup(&cobra.Group{
		ID:    "planning",
		Title: "Planning:",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "catalog",
		Title: "Catalog:",
	})

	serveCmd.GroupID = "planning"
	solveCmd.GroupID = "planning"
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(solveCmd)

	importCmd.GroupID = "catalog"
	rootCmd.AddCommand(importCmd)

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the production-planner version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), rootCmd.Version)
		},
	}
	rootCmd.AddCommand(versionCmd)
}

// mustBind ties a config key to a flag so that an explicit flag overrides
// env and file settings.
func mustBind(fs *pflag.FlagSet, key, flag string) {
	if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
		panic(fmt.Sprintf("binding flag %s: %v", flag, err))
	}
}

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}
