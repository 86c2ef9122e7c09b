package stage

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/macadmins/sofa-status/internal/change"
	"github.com/macadmins/sofa-status/internal/domain"
	"github.com/macadmins/sofa-status/internal/hashing"
	"github.com/macadmins/sofa-status/internal/manifest"
)

// FetchResult describes one completed (or failed) run of the security-page
// fetch tool.
type FetchResult struct {
	Mode            string
	ReleasesFetched int
	Started         time.Time
	Finished        time.Time
	Artifact        string
	Status          domain.StageState
}

// RecordFetch rewrites the fetch section. A failed or partial run updates
// the run metadata and status but keeps the prior hashes: an interrupted
// stage must look identical, hash-wise, to one that never ran this cycle.
func RecordFetch(store *manifest.Store, res FetchResult) (*domain.Manifest, error) {
	if res.Mode != domain.ModeOnline && res.Mode != domain.ModeOffline {
		return nil, domain.NewAppError(
			domain.ErrInvalidInput,
			"fetch mode must be online or offline",
			400,
			map[string]any{"mode": res.Mode},
		)
	}
	if !res.Status.Valid() {
		return nil, invalidStageState(res.Status)
	}

	started := res.Started.UTC()
	finished := res.Finished.UTC()

	m, err := store.UpdateSection("pipeline.fetch", func(section any) error {
		f := section.(*domain.FetchStatus)

		f.LastRunStart = &started
		f.LastRunEnd = &finished
		f.Mode = res.Mode
		f.Status = res.Status

		if res.Status != domain.StageCompleted {
			// Preserve prior hashes; never record a hash of incomplete data.
			return nil
		}

		digest, err := hashing.File(res.Artifact)
		if err != nil {
			return err
		}

		baseline := f.PreviousHash
		if f.CurrentHash != "" {
			old := f.CurrentHash
			f.PreviousHash = &old
			baseline = &old
		}
		f.CurrentHash = digest
		f.ReleasesFetched = res.ReleasesFetched
		f.PerformanceStats = performanceStats(res.ReleasesFetched, finished.Sub(started))

		result := change.Detect(domain.StageFetch, digest, baseline)
		log.Debug().
			Str("hash", digest).
			Bool("changed", result.Changed).
			Str("performance", f.PerformanceStats).
			Msg("Fetch artifact hashed")
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := store.Persist(m); err != nil {
		return nil, err
	}

	log.Info().
		Str("mode", res.Mode).
		Str("status", string(res.Status)).
		Int("releases_fetched", res.ReleasesFetched).
		Msg("Fetch status recorded")

	return m, nil
}

// performanceStats renders the derived rate string stored in the document,
// e.g. "128 releases in 12.4s (10.3/s)".
func performanceStats(releases int, elapsed time.Duration) string {
	secs := elapsed.Seconds()
	if secs <= 0 {
		return fmt.Sprintf("%d releases in 0.0s", releases)
	}
	return fmt.Sprintf("%d releases in %.1fs (%.1f/s)", releases, secs, float64(releases)/secs)
}

func invalidStageState(s domain.StageState) error {
	return domain.NewAppError(
		domain.ErrInvalidInput,
		"stage status must be completed, failed or partial",
		400,
		map[string]any{"status": string(s)},
	)
}
