// Package health reports on the freshness and completeness of the pipeline's
// outputs: whether the status document is readable, which feeds exist, and
// which are stale.
package health

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/macadmins/sofa-status/internal/cache"
	"github.com/macadmins/sofa-status/internal/manifest"
)

// FeedHealth describes one expected feed artifact.
type FeedHealth struct {
	Available  bool       `json:"available"`
	Entries    int        `json:"entries,omitempty"`
	SizeBytes  int64      `json:"size_bytes,omitempty"`
	LastUpdate *time.Time `json:"last_update,omitempty"`
}

// Status is the aggregated health report served at /health.
type Status struct {
	Status     string                `json:"status"` // healthy | degraded | unhealthy
	Score      int                   `json:"score"`  // percentage of expected feeds available
	ManifestOK bool                  `json:"manifest_ok"`
	Generated  *time.Time            `json:"generated,omitempty"`
	Feeds      map[string]FeedHealth `json:"feeds"`
	Staleness  map[string]string     `json:"staleness"`
	Errors     []string              `json:"errors"`
	Timestamp  time.Time             `json:"timestamp"`
}

// Checker computes health reports. Results are cached briefly so dashboard
// polling does not stat every feed on every request.
type Checker struct {
	store      *manifest.Store
	feeds      *cache.FeedCache
	feedsDir   string
	platforms  []string
	staleAfter time.Duration
	now        func() time.Time

	cacheTTL   time.Duration
	lastCheck  time.Time
	lastStatus Status
	mutex      sync.Mutex
}

// NewChecker creates a health checker over the given store and feed layout.
func NewChecker(store *manifest.Store, feeds *cache.FeedCache, feedsDir string, platforms []string, staleAfter time.Duration) *Checker {
	return &Checker{
		store:      store,
		feeds:      feeds,
		feedsDir:   feedsDir,
		platforms:  platforms,
		staleAfter: staleAfter,
		now:        time.Now,
		cacheTTL:   30 * time.Second,
	}
}

// NewCheckerWithClock creates a checker with an injected clock and no result
// caching, for tests.
func NewCheckerWithClock(store *manifest.Store, feeds *cache.FeedCache, feedsDir string, platforms []string, staleAfter time.Duration, now func() time.Time) *Checker {
	c := NewChecker(store, feeds, feedsDir, platforms, staleAfter)
	c.now = now
	c.cacheTTL = 0
	return c
}

// Check builds the health report.
func (c *Checker) Check() Status {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.now()
	if c.cacheTTL > 0 && now.Sub(c.lastCheck) < c.cacheTTL {
		return c.lastStatus
	}

	status := Status{
		Status:     "healthy",
		ManifestOK: true,
		Feeds:      make(map[string]FeedHealth),
		Staleness:  make(map[string]string),
		Errors:     []string{},
		Timestamp:  now.UTC(),
	}

	m, err := c.store.Load()
	if err != nil {
		status.ManifestOK = false
		status.Status = "unhealthy"
		status.Errors = append(status.Errors, err.Error())
	} else if !m.Generated.IsZero() {
		generated := m.Generated
		status.Generated = &generated
	}

	available := 0
	total := 0
	for _, format := range []string{"v1", "v2"} {
		for _, platform := range c.platforms {
			total++
			key := format + "/" + platform
			path := filepath.Join(c.feedsDir, format, platform+"_data_feed.json")

			summary, err := c.feeds.ReadSummary(path)
			if err != nil {
				status.Feeds[key] = FeedHealth{Available: false}
				continue
			}

			available++
			modTime := summary.ModTime.UTC()
			status.Feeds[key] = FeedHealth{
				Available:  true,
				Entries:    summary.Entries,
				SizeBytes:  summary.SizeBytes,
				LastUpdate: &modTime,
			}

			if age := now.Sub(summary.ModTime); age > c.staleAfter {
				status.Staleness[key] = fmt.Sprintf("%.1f hours old", age.Hours())
			}
		}
	}

	if total > 0 {
		status.Score = available * 100 / total
	}
	if status.Status == "healthy" && status.Score <= 80 {
		status.Status = "degraded"
	}

	c.lastCheck = now
	c.lastStatus = status
	return status
}

// HTTPStatus maps the report to a response code: degraded states still serve
// 200 since the last-known-good document remains valid; only an unreadable
// manifest is a 503.
func (s Status) HTTPStatus() int {
	if !s.ManifestOK {
		return 503
	}
	return 200
}
