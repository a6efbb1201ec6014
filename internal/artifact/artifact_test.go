package artifact

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStoreCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "output")

	store, err := NewStore(dir)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, dir, store.Dir())
}

func TestWriteAndReadJSON(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	require.NoError(t, store.WriteJSON(Phase1Metadata, payload{Name: "apex", Count: 42}))

	var got payload
	require.NoError(t, store.ReadJSON(Phase1Metadata, &got))
	assert.Equal(t, payload{Name: "apex", Count: 42}, got)
}

func TestWriteJSONReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.WriteJSON(FinalDataset, map[string]int{"v": 1}))
	require.NoError(t, store.WriteJSON(FinalDataset, map[string]int{"v": 2}))

	var got map[string]int
	require.NoError(t, store.ReadJSON(FinalDataset, &got))
	assert.Equal(t, 2, got["v"])

	// No temp files left behind
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, FinalDataset, entries[0].Name())
}

func TestReadJSONMissingArtifact(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	var v map[string]any
	assert.Error(t, store.ReadJSON("does_not_exist.json", &v))
}

func TestSnapshotName(t *testing.T) {
	day := time.Date(2025, 3, 9, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, "subnet_data_2025-03-09.json", SnapshotName(day))

	// Same calendar day maps to the same snapshot regardless of clock time
	later := time.Date(2025, 3, 9, 0, 1, 0, 0, time.UTC)
	assert.Equal(t, SnapshotName(day), SnapshotName(later))
}
