package cli

import (
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/macadmins/sofa-status/internal/domain"
	"github.com/macadmins/sofa-status/internal/stage"
)

var (
	flagFetchMode     string
	flagFetchReleases int
	flagFetchDuration time.Duration
	flagFetchArtifact string
	flagFetchStatus   string
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Record a security-page fetch run",
	RunE: func(cmd *cobra.Command, args []string) error {
		pipeline, err := loadPipeline()
		if err != nil {
			return err
		}

		artifact := flagFetchArtifact
		if artifact == "" {
			artifact = filepath.Join(flagDataDir, "resources", pipeline.FetchArtifact)
		}

		finished := time.Now()
		_, err = stage.RecordFetch(openStore(), stage.FetchResult{
			Mode:            flagFetchMode,
			ReleasesFetched: flagFetchReleases,
			Started:         finished.Add(-flagFetchDuration),
			Finished:        finished,
			Artifact:        artifact,
			Status:          domain.StageState(flagFetchStatus),
		})
		return err
	},
}

func init() {
	fetchCmd.Flags().StringVar(&flagFetchMode, "mode", domain.ModeOnline, "fetch mode (online or offline)")
	fetchCmd.Flags().IntVar(&flagFetchReleases, "releases-fetched", 0, "number of releases fetched")
	fetchCmd.Flags().DurationVar(&flagFetchDuration, "duration", 0, "how long the fetch run took")
	fetchCmd.Flags().StringVar(&flagFetchArtifact, "artifact", "", "fetched releases artifact (default from pipeline config)")
	fetchCmd.Flags().StringVar(&flagFetchStatus, "status", string(domain.StageCompleted), "run outcome (completed, failed, partial)")
	rootCmd.AddCommand(fetchCmd)
}
