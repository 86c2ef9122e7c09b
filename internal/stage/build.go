package stage

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/macadmins/sofa-status/internal/domain"
	"github.com/macadmins/sofa-status/internal/feed"
	"github.com/macadmins/sofa-status/internal/manifest"
)

// FormatVersions are the feed format generations the build stage produces.
var FormatVersions = []string{"v1", "v2"}

// BuildOptions configures one build status update. Feeds are expected at
// <FeedsDir>/<format>/<platform>_data_feed.json.
type BuildOptions struct {
	FeedsDir  string
	Platforms []string
	Now       time.Time
}

// RecordBuild reads every generated feed's embedded UpdateHash and rewrites
// the build section. The hash is taken from the artifact, never recomputed,
// so the manifest's record for a platform always equals the hash the feed
// itself carries. Platforms whose feed file does not exist keep their prior
// record; a feed that exists but cannot be parsed aborts the update.
func RecordBuild(store *manifest.Store, opts BuildOptions) (*domain.Manifest, error) {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	m, err := store.UpdateSection("pipeline.build", func(section any) error {
		b := section.(*domain.BuildStatus)

		for _, format := range FormatVersions {
			platforms := b.V1.Platforms
			if format == "v2" {
				platforms = b.V2.Platforms
			}

			for _, platform := range opts.Platforms {
				path := filepath.Join(opts.FeedsDir, format, fmt.Sprintf("%s_data_feed.json", platform))

				summary, err := feed.ReadSummary(path)
				if err != nil {
					if errors.Is(err, fs.ErrNotExist) {
						log.Warn().
							Str("platform", platform).
							Str("format", format).
							Str("path", path).
							Msg("Feed artifact missing, keeping prior record")
						continue
					}
					return err
				}

				record := platforms[platform]
				if record.CurrentHash != "" {
					old := record.CurrentHash
					record.PreviousHash = &old
				}
				record.CurrentHash = summary.UpdateHash
				record.Entries = summary.Entries
				record.SizeBytes = summary.SizeBytes
				modTime := summary.ModTime.UTC()
				record.LastUpdated = &modTime
				platforms[platform] = record

				log.Debug().
					Str("platform", platform).
					Str("format", format).
					Str("update_hash", summary.UpdateHash).
					Int("entries", summary.Entries).
					Msg("Feed recorded from embedded hash")
			}
		}

		b.LastRun = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := store.Persist(m); err != nil {
		return nil, err
	}

	log.Info().
		Int("platforms", len(opts.Platforms)).
		Str("feeds_dir", opts.FeedsDir).
		Msg("Build status recorded")

	return m, nil
}
