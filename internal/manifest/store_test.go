package manifest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macadmins/sofa-status/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	tempDir, err := os.MkdirTemp("", "manifest_test")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tempDir) })
	return NewStore(filepath.Join(tempDir, "manifest.json"))
}

func TestLoad_BootstrapOnAbsentFile(t *testing.T) {
	store := newTestStore(t)

	m, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, domain.SchemaVersion, m.Version)
	assert.True(t, m.Generated.IsZero())
	assert.Empty(t, m.Pipeline.Gather.Sources)
	assert.NotNil(t, m.Pipeline.Gather.Sources)
	assert.NotNil(t, m.Pipeline.Build.V1.Platforms)
}

func TestLoad_CorruptDocumentIsFatal(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, os.WriteFile(store.Path(), []byte("{not json"), 0644))

	_, err := store.Load()
	require.Error(t, err)
	assert.True(t, domain.IsCorruptManifest(err))

	// The corrupt file must not be reset or rewritten by the failed load.
	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(data))
}

func TestPersist_RoundTrip(t *testing.T) {
	store := newTestStore(t)

	now := time.Date(2025, 8, 12, 10, 30, 0, 0, time.UTC)
	m := domain.NewManifest()
	m.Generated = now
	m.Pipeline.Gather.Sources["kev"] = domain.SourceStatus{
		LastFetch:   &now,
		CurrentHash: "abc123",
		Changed:     true,
	}

	require.NoError(t, store.Persist(m))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, domain.SchemaVersion, loaded.Version)
	assert.True(t, loaded.Generated.Equal(now))
	assert.Equal(t, "abc123", loaded.Pipeline.Gather.Sources["kev"].CurrentHash)
	assert.Nil(t, loaded.Pipeline.Gather.Sources["kev"].PreviousHash)
	assert.True(t, loaded.Pipeline.Gather.Sources["kev"].Changed)
}

func TestPersist_LeavesNoTempFiles(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Persist(domain.NewManifest()))

	entries, err := os.ReadDir(filepath.Dir(store.Path()))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "manifest.json", entries[0].Name())
}

func TestPersist_CrashBeforeRenameKeepsOldDocument(t *testing.T) {
	store := newTestStore(t)

	now := time.Date(2025, 8, 12, 10, 30, 0, 0, time.UTC)
	m := domain.NewManifest()
	m.Generated = now
	require.NoError(t, store.Persist(m))

	// Simulate a crash between the temp-file write and the rename: the temp
	// file is fully written but never becomes visible at the target path.
	original := renameFile
	renameFile = func(oldpath, newpath string) error {
		return os.ErrClosed
	}
	defer func() { renameFile = original }()

	m2 := m.Clone()
	m2.Pipeline.Gather.Sources["kev"] = domain.SourceStatus{CurrentHash: "partial", Changed: true}
	err := store.Persist(m2)
	require.Error(t, err)

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.True(t, loaded.Generated.Equal(now))
	assert.NotContains(t, loaded.Pipeline.Gather.Sources, "kev")
}

func TestLoad_IgnoresStrayTempFiles(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Persist(domain.NewManifest()))

	// A leftover temp file from an interrupted writer must not affect reads.
	stray := filepath.Join(filepath.Dir(store.Path()), ".manifest-dead.tmp")
	require.NoError(t, os.WriteFile(stray, []byte("garbage"), 0644))

	_, err := store.Load()
	require.NoError(t, err)
}

func TestUpdateSection_RefreshesGenerated(t *testing.T) {
	fixed := time.Date(2025, 8, 12, 10, 30, 0, 0, time.UTC)
	tempDir, err := os.MkdirTemp("", "manifest_test")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	store := NewStoreWithClock(filepath.Join(tempDir, "manifest.json"), func() time.Time { return fixed })

	m, err := store.UpdateSection("pipeline.fetch", func(section any) error {
		f := section.(*domain.FetchStatus)
		f.Mode = domain.ModeOnline
		return nil
	})
	require.NoError(t, err)
	assert.True(t, m.Generated.Equal(fixed))
	assert.Equal(t, domain.ModeOnline, m.Pipeline.Fetch.Mode)
}

func TestUpdateSection_InvalidPath(t *testing.T) {
	store := newTestStore(t)

	for _, path := range []string{
		"",
		"pipeline",
		"pipeline.rss",
		"pipeline.gather.sources",
		"pipeline.build.v3.platforms.macos",
		"feeds.v1",
	} {
		_, err := store.UpdateSection(path, func(any) error { return nil })
		require.Error(t, err, "path %q", path)
		assert.True(t, domain.IsInvalidSection(err), "path %q", path)
	}
}

func TestUpdateSection_SourceLeafCommitsBack(t *testing.T) {
	store := newTestStore(t)

	m, err := store.Apply("pipeline.gather.sources.kev", func(section any) error {
		src := section.(*domain.SourceStatus)
		src.CurrentHash = "h1"
		src.Changed = true
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "h1", m.Pipeline.Gather.Sources["kev"].CurrentHash)

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "h1", loaded.Pipeline.Gather.Sources["kev"].CurrentHash)
}

func TestUpdateSection_PlatformLeafCommitsBack(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Apply("pipeline.build.v2.platforms.macos", func(section any) error {
		feed := section.(*domain.PlatformFeedStatus)
		feed.CurrentHash = "feedhash"
		feed.Entries = 4
		return nil
	})
	require.NoError(t, err)

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "feedhash", loaded.Pipeline.Build.V2.Platforms["macos"].CurrentHash)
	assert.Equal(t, 4, loaded.Pipeline.Build.V2.Platforms["macos"].Entries)
	assert.Empty(t, loaded.Pipeline.Build.V1.Platforms)
}

// sectionsJSON marshals each pipeline section separately so tests can
// compare untouched sections byte for byte.
func sectionsJSON(t *testing.T, m *domain.Manifest) map[string]string {
	t.Helper()
	out := make(map[string]string)
	for name, section := range map[string]any{
		"gather":   m.Pipeline.Gather,
		"fetch":    m.Pipeline.Fetch,
		"build":    m.Pipeline.Build,
		"bulletin": m.Pipeline.Bulletin,
		"enrich":   m.Pipeline.Enrich,
	} {
		data, err := json.Marshal(section)
		require.NoError(t, err)
		out[name] = string(data)
	}
	return out
}

func TestUpdateSection_IsolatesOtherSections(t *testing.T) {
	store := newTestStore(t)

	// Populate every section first.
	now := time.Date(2025, 8, 12, 10, 30, 0, 0, time.UTC)
	seed := domain.NewManifest()
	seed.Generated = now
	seed.Pipeline.Gather.Sources["gdmf"] = domain.SourceStatus{CurrentHash: "g1"}
	seed.Pipeline.Fetch.Mode = domain.ModeOnline
	seed.Pipeline.Fetch.CurrentHash = "f1"
	seed.Pipeline.Build.V1.Platforms["ios"] = domain.PlatformFeedStatus{CurrentHash: "b1", Entries: 2}
	seed.Pipeline.Bulletin.BulletinCount = 7
	seed.Pipeline.Bulletin.CurrentHash = "bl1"
	seed.Pipeline.Enrich.ProcessedCount = 12
	require.NoError(t, store.Persist(seed))

	before := sectionsJSON(t, seed)

	updated, err := store.Apply("pipeline.gather.sources.kev", func(section any) error {
		src := section.(*domain.SourceStatus)
		src.CurrentHash = "k1"
		src.Changed = true
		return nil
	})
	require.NoError(t, err)

	after := sectionsJSON(t, updated)
	for _, name := range []string{"fetch", "build", "bulletin", "enrich"} {
		assert.Equal(t, before[name], after[name], "section %s must be byte-identical", name)
	}

	// Within gather, the other source must also be untouched.
	assert.Equal(t, domain.SourceStatus{CurrentHash: "g1"}, updated.Pipeline.Gather.Sources["gdmf"])
	assert.Equal(t, "k1", updated.Pipeline.Gather.Sources["kev"].CurrentHash)
}

func TestUpdateSection_MutatorErrorPersistsNothing(t *testing.T) {
	store := newTestStore(t)

	seed := domain.NewManifest()
	seed.Pipeline.Bulletin.CurrentHash = "keep"
	require.NoError(t, store.Persist(seed))

	_, err := store.UpdateSection("pipeline.bulletin", func(section any) error {
		b := section.(*domain.BulletinStatus)
		b.CurrentHash = "discarded"
		return os.ErrPermission
	})
	require.Error(t, err)

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "keep", loaded.Pipeline.Bulletin.CurrentHash)
}
