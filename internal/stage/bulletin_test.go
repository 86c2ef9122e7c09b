package stage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macadmins/sofa-status/internal/domain"
	"github.com/macadmins/sofa-status/internal/hashing"
	"github.com/macadmins/sofa-status/internal/manifest"
)

func newStageStore(t *testing.T) *manifest.Store {
	t.Helper()
	tempDir, err := os.MkdirTemp("", "stage_test")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tempDir) })
	return manifest.NewStore(filepath.Join(tempDir, "manifest.json"))
}

func TestRecordBulletin_HashesInMemoryContent(t *testing.T) {
	store := newStageStore(t)
	content := []byte(`{"bulletins": [{"id": 1}]}`)

	m, err := RecordBulletin(store, BulletinResult{
		Content:          content,
		BulletinCount:    1,
		CVECount:         9,
		LiveCheckEnabled: true,
		Status:           domain.StageCompleted,
	})
	require.NoError(t, err)

	b := m.Pipeline.Bulletin
	assert.Equal(t, hashing.Content(content), b.CurrentHash)
	assert.Equal(t, 1, b.BulletinCount)
	assert.Equal(t, 9, b.CVECount)
	assert.True(t, b.LiveCheckEnabled)
	assert.Equal(t, domain.StageCompleted, b.Status)
	assert.NotNil(t, b.LastRun)
}

func TestRecordBulletin_ContentHashMatchesPersistedFile(t *testing.T) {
	store := newStageStore(t)
	content := []byte(`{"bulletins": []}`)

	// The generator writes the same bytes it hands to the recorder, so the
	// recorded hash must equal a hash of the file on disk.
	artifact := filepath.Join(filepath.Dir(store.Path()), "bulletin_data.json")
	require.NoError(t, os.WriteFile(artifact, content, 0644))

	m, err := RecordBulletin(store, BulletinResult{Content: content, Status: domain.StageCompleted})
	require.NoError(t, err)

	fromFile, err := hashing.File(artifact)
	require.NoError(t, err)
	assert.Equal(t, fromFile, m.Pipeline.Bulletin.CurrentHash)
}

func TestRecordBulletin_FallsBackToArtifactFile(t *testing.T) {
	store := newStageStore(t)
	artifact := filepath.Join(filepath.Dir(store.Path()), "bulletin_data.json")
	require.NoError(t, os.WriteFile(artifact, []byte("x"), 0644))

	m, err := RecordBulletin(store, BulletinResult{
		Artifact: artifact,
		Status:   domain.StageCompleted,
	})
	require.NoError(t, err)
	assert.Equal(t, hashing.Content([]byte("x")), m.Pipeline.Bulletin.CurrentHash)
}

func TestRecordBulletin_PartialPreservesHashesAndCounts(t *testing.T) {
	store := newStageStore(t)

	m, err := RecordBulletin(store, BulletinResult{
		Content:       []byte("good"),
		BulletinCount: 5,
		CVECount:      40,
		Status:        domain.StageCompleted,
	})
	require.NoError(t, err)
	goodHash := m.Pipeline.Bulletin.CurrentHash

	m, err = RecordBulletin(store, BulletinResult{
		Content:       []byte("half-written junk"),
		BulletinCount: 1,
		Status:        domain.StagePartial,
	})
	require.NoError(t, err)

	b := m.Pipeline.Bulletin
	assert.Equal(t, domain.StagePartial, b.Status)
	assert.Equal(t, goodHash, b.CurrentHash)
	assert.Nil(t, b.PreviousHash)
	assert.Equal(t, 5, b.BulletinCount)
	assert.Equal(t, 40, b.CVECount)
}

func TestRecordBulletin_CompletedImpliesNonEmptyHash(t *testing.T) {
	store := newStageStore(t)

	m, err := RecordBulletin(store, BulletinResult{Content: []byte{}, Status: domain.StageCompleted})
	require.NoError(t, err)
	assert.NotEmpty(t, m.Pipeline.Bulletin.CurrentHash)
}
