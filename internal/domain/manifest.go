// Package domain defines the persisted pipeline status document and the
// error taxonomy shared across the module.
//
// The document tracks one SOFA pipeline deployment: gather pulls raw upstream
// data (KEV catalog, GDMF, IPSW, beta feeds, UMA, XProtect), fetch collects
// Apple security release pages, build generates the v1/v2 platform data feeds,
// bulletin produces the front-page bulletin document and enrich attaches CVE
// detail. Every stage records its outcome into its own section of this single
// document, which the dashboard reads over HTTP and CI inspects to decide
// whether regenerated data should be committed.
package domain

import "time"

// SchemaVersion identifies the wire shape of the status document.
// Bumped only when the dashboard contract changes.
const SchemaVersion = "3.0"

// Stage section names as they appear under "pipeline" in the document.
const (
	StageGather   = "gather"
	StageFetch    = "fetch"
	StageBuild    = "build"
	StageBulletin = "bulletin"
	StageEnrich   = "enrich"
)

// StageNames lists the pipeline sections in execution order.
var StageNames = []string{StageGather, StageFetch, StageBuild, StageBulletin, StageEnrich}

// StageState is the outcome of a stage run.
type StageState string

const (
	StageCompleted StageState = "completed"
	StageFailed    StageState = "failed"
	StagePartial   StageState = "partial"
)

// Valid reports whether s is one of the known stage states.
func (s StageState) Valid() bool {
	switch s {
	case StageCompleted, StageFailed, StagePartial:
		return true
	}
	return false
}

// Fetch run modes.
const (
	ModeOnline  = "online"
	ModeOffline = "offline"
)

// Manifest is the root aggregate: one document per deployment, read-modified-
// written by every stage and served read-only to the dashboard.
type Manifest struct {
	Version   string    `json:"version"`
	Generated time.Time `json:"generated"`
	Pipeline  Pipeline  `json:"pipeline"`
}

// Pipeline holds one section per stage.
type Pipeline struct {
	Gather   GatherStatus   `json:"gather"`
	Fetch    FetchStatus    `json:"fetch"`
	Build    BuildStatus    `json:"build"`
	Bulletin BulletinStatus `json:"bulletin"`
	Enrich   EnrichStatus   `json:"enrich"`
}

// StageEnvelope carries the fields every stage section shares. The concrete
// stage types embed it so the JSON fields are flattened into each section.
type StageEnvelope struct {
	Status       StageState `json:"status"`
	CurrentHash  string     `json:"current_hash"`
	PreviousHash *string    `json:"previous_hash"`
}

// SourceStatus is the per-source record kept under gather. Created on the
// first successful fetch of that source, updated every run, never deleted.
type SourceStatus struct {
	LastFetch    *time.Time `json:"last_fetch"`
	CurrentHash  string     `json:"current_hash"`
	PreviousHash *string    `json:"previous_hash"`
	Changed      bool       `json:"changed"`
}

// GatherStatus records the raw-data gathering stage. ChangesDetected is the
// ordered subset of source keys whose content changed this run; it is derived
// on every gather run, never carried forward.
type GatherStatus struct {
	LastRun         *time.Time              `json:"last_run"`
	Sources         map[string]SourceStatus `json:"sources"`
	ChangesDetected []string                `json:"changes_detected"`
}

// FetchStatus records the security-page fetch stage.
type FetchStatus struct {
	StageEnvelope
	LastRunStart     *time.Time `json:"last_run_start"`
	LastRunEnd       *time.Time `json:"last_run_end"`
	Mode             string     `json:"mode"`
	ReleasesFetched  int        `json:"releases_fetched"`
	PerformanceStats string     `json:"performance_stats"`
}

// BuildStatus records the feed build stage, one record per platform and
// format version.
type BuildStatus struct {
	LastRun *time.Time   `json:"last_run"`
	V1      FormatStatus `json:"v1"`
	V2      FormatStatus `json:"v2"`
}

// FormatStatus groups the per-platform records of one feed format version.
type FormatStatus struct {
	Platforms map[string]PlatformFeedStatus `json:"platforms"`
}

// PlatformFeedStatus describes one generated feed document. CurrentHash is
// the UpdateHash embedded in the feed artifact itself; the feed builder is
// authoritative for its own hash and the manifest never recomputes it.
type PlatformFeedStatus struct {
	CurrentHash  string     `json:"current_hash"`
	PreviousHash *string    `json:"previous_hash"`
	Entries      int        `json:"entries"`
	SizeBytes    int64      `json:"size_bytes"`
	LastUpdated  *time.Time `json:"last_updated"`
}

// BulletinStatus records the bulletin generation stage.
type BulletinStatus struct {
	StageEnvelope
	LastRun          *time.Time `json:"last_run"`
	BulletinCount    int        `json:"bulletin_count"`
	CVECount         int        `json:"cve_count"`
	LiveCheckEnabled bool       `json:"live_check_enabled"`
}

// EnrichStatus records the CVE enrichment stage.
type EnrichStatus struct {
	StageEnvelope
	LastRun        *time.Time `json:"last_run"`
	CVECount       int        `json:"cve_count"`
	ProcessedCount int        `json:"processed_count"`
}

// NewManifest returns an empty document for the bootstrap case, before any
// stage has ever run.
func NewManifest() *Manifest {
	return &Manifest{
		Version: SchemaVersion,
		Pipeline: Pipeline{
			Gather: GatherStatus{
				Sources:         make(map[string]SourceStatus),
				ChangesDetected: []string{},
			},
			Build: BuildStatus{
				V1: FormatStatus{Platforms: make(map[string]PlatformFeedStatus)},
				V2: FormatStatus{Platforms: make(map[string]PlatformFeedStatus)},
			},
		},
	}
}

// Normalize fills in nil maps and slices after deserialization so mutators
// can always index into them.
func (m *Manifest) Normalize() {
	if m.Version == "" {
		m.Version = SchemaVersion
	}
	if m.Pipeline.Gather.Sources == nil {
		m.Pipeline.Gather.Sources = make(map[string]SourceStatus)
	}
	if m.Pipeline.Gather.ChangesDetected == nil {
		m.Pipeline.Gather.ChangesDetected = []string{}
	}
	if m.Pipeline.Build.V1.Platforms == nil {
		m.Pipeline.Build.V1.Platforms = make(map[string]PlatformFeedStatus)
	}
	if m.Pipeline.Build.V2.Platforms == nil {
		m.Pipeline.Build.V2.Platforms = make(map[string]PlatformFeedStatus)
	}
}

// Clone returns a deep copy of the document.
func (m *Manifest) Clone() *Manifest {
	out := *m

	out.Pipeline.Gather.Sources = make(map[string]SourceStatus, len(m.Pipeline.Gather.Sources))
	for k, v := range m.Pipeline.Gather.Sources {
		out.Pipeline.Gather.Sources[k] = v
	}
	out.Pipeline.Gather.ChangesDetected = append([]string{}, m.Pipeline.Gather.ChangesDetected...)

	out.Pipeline.Build.V1.Platforms = make(map[string]PlatformFeedStatus, len(m.Pipeline.Build.V1.Platforms))
	for k, v := range m.Pipeline.Build.V1.Platforms {
		out.Pipeline.Build.V1.Platforms[k] = v
	}
	out.Pipeline.Build.V2.Platforms = make(map[string]PlatformFeedStatus, len(m.Pipeline.Build.V2.Platforms))
	for k, v := range m.Pipeline.Build.V2.Platforms {
		out.Pipeline.Build.V2.Platforms[k] = v
	}

	return &out
}
