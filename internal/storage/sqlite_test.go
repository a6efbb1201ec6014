package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStorage(t *testing.T) *Storage {
	t.Helper()
	store, err := NewStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRunLifecycle(t *testing.T) {
	store := testStorage(t)

	started := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, store.BeginRun("run-1", "out", started))

	run, err := store.GetRun("run-1")
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, "run-1", run.RunID)
	assert.Equal(t, "running", run.Status)
	assert.Equal(t, "out", run.OutputDir)
	assert.Nil(t, run.FinishedAt)

	require.NoError(t, store.FinishRun("run-1", "completed", 10, 2))

	run, err = store.GetRun("run-1")
	require.NoError(t, err)
	assert.Equal(t, "completed", run.Status)
	assert.Equal(t, 10, run.SubnetsTotal)
	assert.Equal(t, 2, run.SubnetsFailed)
	assert.NotNil(t, run.FinishedAt)
}

func TestGetRunNotFound(t *testing.T) {
	store := testStorage(t)

	run, err := store.GetRun("missing")
	require.NoError(t, err)
	assert.Nil(t, run)
}

func TestUpsertSubnetResultPhaseByPhase(t *testing.T) {
	store := testStorage(t)
	require.NoError(t, store.BeginRun("run-1", "out", time.Now()))

	// Crawl phase writes its fields first
	require.NoError(t, store.UpsertSubnetResult(SubnetResult{
		RunID:       "run-1",
		NetUID:      8,
		Name:        "apex",
		CrawlStatus: "success",
		HealthScore: 66.7,
		UpdatedAt:   time.Now(),
	}))

	// Research phase updates its own fields later
	overall := 3.8
	require.NoError(t, store.UpsertSubnetResult(SubnetResult{
		RunID:          "run-1",
		NetUID:         8,
		Name:           "apex",
		CrawlStatus:    "success",
		HealthScore:    66.7,
		ResearchStatus: "completed",
		ScoringStatus:  "completed",
		OverallScore:   &overall,
		UpdatedAt:      time.Now(),
	}))

	results, err := store.LoadRunResults("run-1")
	require.NoError(t, err)
	require.Len(t, results, 1)

	got := results[0]
	assert.Equal(t, 8, got.NetUID)
	assert.Equal(t, "apex", got.Name)
	assert.Equal(t, "success", got.CrawlStatus)
	assert.Equal(t, 66.7, got.HealthScore)
	assert.Equal(t, "completed", got.ResearchStatus)
	require.NotNil(t, got.OverallScore)
	assert.Equal(t, 3.8, *got.OverallScore)
}

func TestLoadRunResultsOrderedByNetuid(t *testing.T) {
	store := testStorage(t)
	require.NoError(t, store.BeginRun("run-1", "out", time.Now()))

	for _, netuid := range []int{5, 1, 3} {
		require.NoError(t, store.UpsertSubnetResult(SubnetResult{
			RunID:     "run-1",
			NetUID:    netuid,
			UpdatedAt: time.Now(),
		}))
	}

	results, err := store.LoadRunResults("run-1")
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, 1, results[0].NetUID)
	assert.Equal(t, 3, results[1].NetUID)
	assert.Equal(t, 5, results[2].NetUID)
}

func TestRunsAreIsolated(t *testing.T) {
	store := testStorage(t)
	require.NoError(t, store.BeginRun("run-1", "out", time.Now()))
	require.NoError(t, store.BeginRun("run-2", "out", time.Now()))

	require.NoError(t, store.UpsertSubnetResult(SubnetResult{RunID: "run-1", NetUID: 1, UpdatedAt: time.Now()}))
	require.NoError(t, store.UpsertSubnetResult(SubnetResult{RunID: "run-2", NetUID: 2, UpdatedAt: time.Now()}))

	results, err := store.LoadRunResults("run-1")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 1, results[0].NetUID)
}
