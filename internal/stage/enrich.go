package stage

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/macadmins/sofa-status/internal/change"
	"github.com/macadmins/sofa-status/internal/domain"
	"github.com/macadmins/sofa-status/internal/hashing"
	"github.com/macadmins/sofa-status/internal/manifest"
)

// EnrichResult describes one run of the CVE enrichment tool.
type EnrichResult struct {
	Artifact       string
	CVECount       int
	ProcessedCount int
	Status         domain.StageState
	Now            time.Time
}

// RecordEnrich rewrites the enrich section. Non-completed runs record status
// and run time only, preserving the prior hashes and counts.
func RecordEnrich(store *manifest.Store, res EnrichResult) (*domain.Manifest, error) {
	if !res.Status.Valid() {
		return nil, invalidStageState(res.Status)
	}

	now := res.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	m, err := store.UpdateSection("pipeline.enrich", func(section any) error {
		e := section.(*domain.EnrichStatus)

		e.LastRun = &now
		e.Status = res.Status

		if res.Status != domain.StageCompleted {
			return nil
		}

		digest, err := hashing.File(res.Artifact)
		if err != nil {
			return err
		}

		baseline := e.PreviousHash
		if e.CurrentHash != "" {
			old := e.CurrentHash
			e.PreviousHash = &old
			baseline = &old
		}
		e.CurrentHash = digest
		e.CVECount = res.CVECount
		e.ProcessedCount = res.ProcessedCount

		result := change.Detect(domain.StageEnrich, digest, baseline)
		log.Debug().
			Str("hash", digest).
			Bool("changed", result.Changed).
			Msg("Enrichment artifact hashed")
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := store.Persist(m); err != nil {
		return nil, err
	}

	log.Info().
		Str("status", string(res.Status)).
		Int("cve_count", res.CVECount).
		Int("processed_count", res.ProcessedCount).
		Msg("Enrich status recorded")

	return m, nil
}
