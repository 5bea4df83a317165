package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/NREL/Spawn-sub001/spawn/engine"
	// Registers the reference kernel under its engine name.
	_ "github.com/NREL/Spawn-sub001/spawn/engine/lumped"
	"github.com/NREL/Spawn-sub001/spawn/fmi"
)

// Version is stamped at build time with -ldflags "-X .../cmd.Version=...".
var Version = "dev"

var logLevel string // Log verbosity level

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "spawn",
	Short: "Run building energy models as FMI 2.0 model-exchange FMUs",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version, FMI version and available engines",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "spawn %s (FMI %s, engines: %s)\n",
			Version, fmi.Version, strings.Join(engine.Names(), ", "))
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(createFMUCmd)
	rootCmd.AddCommand(modelDescriptionCmd)
	rootCmd.AddCommand(versionCmd)
}
