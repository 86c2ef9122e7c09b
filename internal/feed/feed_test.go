package feed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macadmins/sofa-status/internal/domain"
)

func writeFeed(t *testing.T, name, content string) string {
	t.Helper()
	tempDir, err := os.MkdirTemp("", "feed_test")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	path := filepath.Join(tempDir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestReadSummary_V2Format(t *testing.T) {
	path := writeFeed(t, "macos_data_feed.json", `{
		"UpdateHash": "c6cd9b6a8d9f4f1e",
		"OSVersions": [
			{"SecurityReleases": [{"ProductVersion": "15.6"}, {"ProductVersion": "15.5"}]},
			{"SecurityReleases": [{"ProductVersion": "14.7.7"}]},
			{"SecurityReleases": []}
		]
	}`)

	summary, err := ReadSummary(path)
	require.NoError(t, err)
	assert.Equal(t, "c6cd9b6a8d9f4f1e", summary.UpdateHash)
	assert.Equal(t, 3, summary.Entries)
	assert.Greater(t, summary.SizeBytes, int64(0))
	assert.False(t, summary.ModTime.IsZero())
}

func TestReadSummary_V1Format(t *testing.T) {
	path := writeFeed(t, "ios_data_feed.json", `{
		"UpdateHash": "deadbeef",
		"Updates": [{"ProductVersion": "18.6"}, {"ProductVersion": "18.5"}]
	}`)

	summary, err := ReadSummary(path)
	require.NoError(t, err)
	assert.Equal(t, "deadbeef", summary.UpdateHash)
	assert.Equal(t, 2, summary.Entries)
}

func TestReadSummary_EmptyV2CountsZero(t *testing.T) {
	path := writeFeed(t, "visionos_data_feed.json", `{"UpdateHash": "aa", "OSVersions": []}`)

	summary, err := ReadSummary(path)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Entries)
}

func TestReadSummary_MissingUpdateHashRejected(t *testing.T) {
	path := writeFeed(t, "tvos_data_feed.json", `{"Updates": []}`)

	_, err := ReadSummary(path)
	require.Error(t, err)
	appErr, ok := err.(*domain.AppError)
	require.True(t, ok)
	assert.Equal(t, domain.ErrValidationFailed, appErr.Code)
}

func TestReadSummary_InvalidJSONRejected(t *testing.T) {
	path := writeFeed(t, "watchos_data_feed.json", `{broken`)

	_, err := ReadSummary(path)
	require.Error(t, err)
}

func TestReadSummary_MissingFileIsIOError(t *testing.T) {
	_, err := ReadSummary("/nonexistent/macos_data_feed.json")
	require.Error(t, err)
	assert.True(t, domain.IsIOError(err))
}
