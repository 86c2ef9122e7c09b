// Package stage contains the status-recording adapters invoked by the five
// pipeline tools. Each adapter hashes its own stage's artifacts, compares
// against the previously persisted hashes, rewrites only its own section and
// persists the document once. The adapters know nothing about how the
// artifacts were produced.
package stage

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/macadmins/sofa-status/internal/change"
	"github.com/macadmins/sofa-status/internal/domain"
	"github.com/macadmins/sofa-status/internal/hashing"
	"github.com/macadmins/sofa-status/internal/manifest"
)

// Source pairs a gather source key with the artifact file it produces.
type Source struct {
	Key      string
	Artifact string
}

// GatherOptions configures one gather status update. Sources are processed
// in order; that order also determines changes_detected.
type GatherOptions struct {
	Sources []Source
	Now     time.Time
}

// RecordGather hashes every gather artifact, detects per-source change
// against the persisted baseline and rewrites the gather section. Any
// unreadable artifact aborts the whole update before anything is persisted.
func RecordGather(store *manifest.Store, opts GatherOptions) (*domain.Manifest, error) {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	m, err := store.UpdateSection("pipeline.gather", func(section any) error {
		g := section.(*domain.GatherStatus)

		results := make([]change.Result, 0, len(opts.Sources))
		for _, src := range opts.Sources {
			digest, err := hashing.File(src.Artifact)
			if err != nil {
				return err
			}

			record := domain.SourceStatus{
				LastFetch:   &now,
				CurrentHash: digest,
			}

			prev, exists := g.Sources[src.Key]
			var baseline *string
			if exists {
				old := prev.CurrentHash
				record.PreviousHash = &old
				baseline = &old
			}

			result := change.Detect(src.Key, digest, baseline)
			record.Changed = result.Changed
			results = append(results, result)

			g.Sources[src.Key] = record

			log.Debug().
				Str("source", src.Key).
				Str("hash", digest).
				Bool("changed", result.Changed).
				Msg("Gather source hashed")
		}

		g.LastRun = &now
		g.ChangesDetected = change.AggregateChanges(results)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := store.Persist(m); err != nil {
		return nil, err
	}

	log.Info().
		Int("sources", len(opts.Sources)).
		Strs("changes_detected", m.Pipeline.Gather.ChangesDetected).
		Msg("Gather status recorded")

	return m, nil
}
