package cli

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/macadmins/sofa-status/internal/domain"
	"github.com/macadmins/sofa-status/internal/stage"
)

var (
	flagBulletinArtifact string
	flagBulletinCount    int
	flagBulletinCVEs     int
	flagLiveCheck        bool
	flagBulletinStatus   string
)

var bulletinCmd = &cobra.Command{
	Use:   "bulletin",
	Short: "Record a bulletin generation run",
	RunE: func(cmd *cobra.Command, args []string) error {
		pipeline, err := loadPipeline()
		if err != nil {
			return err
		}

		artifact := flagBulletinArtifact
		if artifact == "" {
			artifact = filepath.Join(flagDataDir, "resources", pipeline.BulletinArtifact)
		}

		_, err = stage.RecordBulletin(openStore(), stage.BulletinResult{
			Artifact:         artifact,
			BulletinCount:    flagBulletinCount,
			CVECount:         flagBulletinCVEs,
			LiveCheckEnabled: flagLiveCheck,
			Status:           domain.StageState(flagBulletinStatus),
		})
		return err
	},
}

func init() {
	bulletinCmd.Flags().StringVar(&flagBulletinArtifact, "artifact", "", "bulletin artifact (default from pipeline config)")
	bulletinCmd.Flags().IntVar(&flagBulletinCount, "bulletin-count", 0, "number of bulletins generated")
	bulletinCmd.Flags().IntVar(&flagBulletinCVEs, "cve-count", 0, "number of CVEs referenced")
	bulletinCmd.Flags().BoolVar(&flagLiveCheck, "live-check", false, "whether live checking was enabled for this run")
	bulletinCmd.Flags().StringVar(&flagBulletinStatus, "status", string(domain.StageCompleted), "run outcome (completed, failed, partial)")
	rootCmd.AddCommand(bulletinCmd)
}
