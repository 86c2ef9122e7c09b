package stage

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/macadmins/sofa-status/internal/change"
	"github.com/macadmins/sofa-status/internal/domain"
	"github.com/macadmins/sofa-status/internal/hashing"
	"github.com/macadmins/sofa-status/internal/manifest"
)

// BulletinResult describes one run of the bulletin generator. When the
// bulletin document was built in memory, Content carries the exact bytes
// that were persisted and is hashed directly; otherwise Artifact names the
// file to hash.
type BulletinResult struct {
	Content          []byte
	Artifact         string
	BulletinCount    int
	CVECount         int
	LiveCheckEnabled bool
	Status           domain.StageState
	Now              time.Time
}

// RecordBulletin rewrites the bulletin section. Non-completed runs record
// status and run time only, preserving the prior hashes and counts.
func RecordBulletin(store *manifest.Store, res BulletinResult) (*domain.Manifest, error) {
	if !res.Status.Valid() {
		return nil, invalidStageState(res.Status)
	}

	now := res.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	m, err := store.UpdateSection("pipeline.bulletin", func(section any) error {
		b := section.(*domain.BulletinStatus)

		b.LastRun = &now
		b.Status = res.Status

		if res.Status != domain.StageCompleted {
			return nil
		}

		var digest string
		if res.Content != nil {
			digest = hashing.Content(res.Content)
		} else {
			var err error
			digest, err = hashing.File(res.Artifact)
			if err != nil {
				return err
			}
		}

		baseline := b.PreviousHash
		if b.CurrentHash != "" {
			old := b.CurrentHash
			b.PreviousHash = &old
			baseline = &old
		}
		b.CurrentHash = digest
		b.BulletinCount = res.BulletinCount
		b.CVECount = res.CVECount
		b.LiveCheckEnabled = res.LiveCheckEnabled

		result := change.Detect(domain.StageBulletin, digest, baseline)
		log.Debug().
			Str("hash", digest).
			Bool("changed", result.Changed).
			Msg("Bulletin artifact hashed")
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
		Int("bulletin_count", res.BulletinCount).
		Int("cve_count", res.CVECount).
		Msg("Bulletin status recorded")

	return m, nil
}
