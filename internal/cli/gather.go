package cli

import (
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/macadmins/sofa-status/internal/stage"
)

var flagResourcesDir string

var gatherCmd = &cobra.Command{
	Use:   "gather",
	Short: "Record gather results: hash every source artifact and detect changes",
	RunE: func(cmd *cobra.Command, args []string) error {
		pipeline, err := loadPipeline()
		if err != nil {
			return err
		}

		resourcesDir := flagResourcesDir
		if resourcesDir == "" {
			resourcesDir = filepath.Join(flagDataDir, "resources")
		}

		sources := make([]stage.Source, 0, len(pipeline.Sources))
		for _, src := range pipeline.Sources {
			sources = append(sources, stage.Source{
				Key:      src.Key,
				Artifact: filepath.Join(resourcesDir, src.Artifact),
			})
		}

		m, err := stage.RecordGather(openStore(), stage.GatherOptions{Sources: sources})
		if err != nil {
			return err
		}

		log.Info().
			Strs("changes_detected", m.Pipeline.Gather.ChangesDetected).
			Msg("Gather recorded")
		return nil
	},
}

func init() {
	gatherCmd.Flags().StringVar(&flagResourcesDir, "resources-dir", "", "directory holding gathered source artifacts (default <data-dir>/resources)")
	rootCmd.AddCommand(gatherCmd)
}
