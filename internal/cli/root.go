// Package cli implements the sofastatus command: one subcommand per pipeline
// stage, each recording that stage's outcome into the shared status document,
// plus show for inspecting it. The stage tools themselves (gathering,
// fetching, feed building) live outside this module; these commands only own
// the status records.
package cli

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/macadmins/sofa-status/internal/config"
	"github.com/macadmins/sofa-status/internal/manifest"
)

var version = "dev"

var (
	flagManifestPath string
	flagDataDir      string
	flagPipelineFile string
	flagLogLevel     string
)

var rootCmd = &cobra.Command{
	Use:           "sofastatus",
	Short:         "Record and inspect SOFA pipeline status",
	Long:          "sofastatus maintains the unified status document for the SOFA data pipeline.\nEach pipeline stage records its outcome into its own section; the dashboard\nand CI read the document to show freshness and decide whether to commit data.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogger()
	},
}

// SetVersion is set by the build via main.
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagManifestPath, "manifest", "", "path to the status document (default <data-dir>/manifest.json)")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "./data", "pipeline data directory")
	rootCmd.PersistentFlags().StringVar(&flagPipelineFile, "pipeline-config", "", "path to pipeline.yaml overriding sources and platforms")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "log level (debug, info, warn, error)")
}

func setupLogger() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch flagLogLevel {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

func openStore() *manifest.Store {
	path := flagManifestPath
	if path == "" {
		path = flagDataDir + "/manifest.json"
	}
	return manifest.NewStore(path)
}

func loadPipeline() (*config.Pipeline, error) {
	return config.LoadPipeline(flagPipelineFile)
}
