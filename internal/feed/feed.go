// Package feed reads generated data-feed artifacts. The feed builder embeds
// an UpdateHash field in every document it writes; the manifest reads that
// hash from the artifact rather than recomputing it, so the status record and
// the feed can never disagree.
package feed

import (
	"encoding/json"
	"os"
	"time"

	"github.com/macadmins/sofa-status/internal/domain"
)

// Summary is the status-relevant metadata of one feed artifact.
type Summary struct {
	UpdateHash string
	Entries    int
	SizeBytes  int64
	ModTime    time.Time
}

// document covers both feed formats: v1 carries a flat Updates list, v2
// nests SecurityReleases under OSVersions.
type document struct {
	UpdateHash string `json:"UpdateHash"`
	OSVersions []struct {
		SecurityReleases []json.RawMessage `json:"SecurityReleases"`
	} `json:"OSVersions"`
	Updates []json.RawMessage `json:"Updates"`
}

// ReadSummary parses the feed at path and returns its embedded hash, logical
// entry count and size. A feed without an UpdateHash is rejected: the builder
// is authoritative for its own hash and a feed missing one cannot be tracked.
func ReadSummary(path string) (*Summary, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, domain.NewAppErrorWithCause(
			domain.ErrIO,
			"failed to stat feed artifact",
			500,
			err,
			map[string]any{"path": path},
		)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.NewAppErrorWithCause(
			domain.ErrIO,
			"failed to read feed artifact",
			500,
			err,
			map[string]any{"path": path},
		)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, domain.NewAppErrorWithCause(
			domain.ErrValidationFailed,
			"feed artifact is not valid JSON",
			422,
			err,
			map[string]any{"path": path},
		)
	}

	if doc.UpdateHash == "" {
		return nil, domain.NewAppError(
			domain.ErrValidationFailed,
			"feed artifact has no embedded UpdateHash",
			422,
			map[string]any{"path": path},
		)
	}

	return &Summary{
		UpdateHash: doc.UpdateHash,
		Entries:    countEntries(&doc),
		SizeBytes:  info.Size(),
		ModTime:    info.ModTime(),
	}, nil
}

// countEntries counts logical version entries: v2 sums SecurityReleases
// across OSVersions, v1 counts Updates.
func countEntries(doc *document) int {
	if doc.OSVersions != nil {
		total := 0
		for _, v := range doc.OSVersions {
			total += len(v.SecurityReleases)
		}
		return total
	}
	return len(doc.Updates)
}
