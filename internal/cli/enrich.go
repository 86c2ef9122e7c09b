package cli

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/macadmins/sofa-status/internal/domain"
	"github.com/macadmins/sofa-status/internal/stage"
)

var (
	flagEnrichArtifact string
	flagEnrichCVEs     int
	flagEnrichDone     int
	flagEnrichStatus   string
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Record a CVE enrichment run",
	RunE: func(cmd *cobra.Command, args []string) error {
		pipeline, err := loadPipeline()
		if err != nil {
			return err
		}

		artifact := flagEnrichArtifact
		if artifact == "" {
			artifact = filepath.Join(flagDataDir, "resources", pipeline.EnrichArtifact)
		}

		_, err = stage.RecordEnrich(openStore(), stage.EnrichResult{
			Artifact:       artifact,
			CVECount:       flagEnrichCVEs,
			ProcessedCount: flagEnrichDone,
			Status:         domain.StageState(flagEnrichStatus),
		})
		return err
	},
}

func init() {
	enrichCmd.Flags().StringVar(&flagEnrichArtifact, "artifact", "", "CVE detail artifact (default from pipeline config)")
	enrichCmd.Flags().IntVar(&flagEnrichCVEs, "cve-count", 0, "number of CVEs in the artifact")
	enrichCmd.Flags().IntVar(&flagEnrichDone, "processed-count", 0, "number of CVEs processed this run")
	enrichCmd.Flags().StringVar(&flagEnrichStatus, "status", string(domain.StageCompleted), "run outcome (completed, failed, partial)")
	rootCmd.AddCommand(enrichCmd)
}
