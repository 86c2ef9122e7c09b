package cli

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/macadmins/sofa-status/internal/stage"
)

var (
	flagFeedsDir       string
	flagBuildPlatforms []string
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Record feed build results from each feed's embedded UpdateHash",
	RunE: func(cmd *cobra.Command, args []string) error {
		pipeline, err := loadPipeline()
		if err != nil {
			return err
		}

		feedsDir := flagFeedsDir
		if feedsDir == "" {
			feedsDir = filepath.Join(flagDataDir, "feeds")
		}

		platforms := flagBuildPlatforms
		if len(platforms) == 0 {
			platforms = pipeline.Platforms
		}

		_, err = stage.RecordBuild(openStore(), stage.BuildOptions{
			FeedsDir:  feedsDir,
			Platforms: platforms,
		})
		return err
	},
}

func init() {
	buildCmd.Flags().StringVar(&flagFeedsDir, "feeds-dir", "", "directory holding v1/ and v2/ feed outputs (default <data-dir>/feeds)")
	buildCmd.Flags().StringSliceVar(&flagBuildPlatforms, "platforms", nil, "platforms to record (default from pipeline config)")
	rootCmd.AddCommand(buildCmd)
}
