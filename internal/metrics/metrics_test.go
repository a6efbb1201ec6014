package metrics

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerCounters(t *testing.T) {
	tracker := NewTracker()

	tracker.SetSubnetsFetched(12)
	tracker.IncrementWebsitesCrawled()
	tracker.IncrementWebsitesCrawled()
	tracker.IncrementCrawlsFailed()
	tracker.AddSourcesVerified(5)
	tracker.IncrementResearchCompleted()
	tracker.IncrementResearchFailed()
	tracker.IncrementScoresComputed()
	tracker.SetRecordsAssembled(12)

	snapshot := tracker.GetSnapshot()
	assert.Equal(t, 12, snapshot.SubnetsFetched)
	assert.Equal(t, 2, snapshot.WebsitesCrawled)
	assert.Equal(t, 1, snapshot.CrawlsFailed)
	assert.Equal(t, 5, snapshot.SourcesVerified)
	assert.Equal(t, 1, snapshot.ResearchCompleted)
	assert.Equal(t, 1, snapshot.ResearchFailed)
	assert.Equal(t, 1, snapshot.ScoresComputed)
	assert.Equal(t, 12, snapshot.RecordsAssembled)
	assert.False(t, snapshot.StartTime.IsZero())
}

func TestTrackerConcurrentIncrements(t *testing.T) {
	tracker := NewTracker()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.IncrementWebsitesCrawled()
			tracker.AddSourcesVerified(2)
		}()
	}
	wg.Wait()

	snapshot := tracker.GetSnapshot()
	assert.Equal(t, 50, snapshot.WebsitesCrawled)
	assert.Equal(t, 100, snapshot.SourcesVerified)
}

func TestWriteToFile(t *testing.T) {
	tracker := NewTracker()
	tracker.SetSubnetsFetched(3)

	path := filepath.Join(t.TempDir(), "metrics.json")
	require.NoError(t, tracker.WriteToFile(path, "completed"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var snapshot Snapshot
	require.NoError(t, json.Unmarshal(data, &snapshot))
	assert.Equal(t, 3, snapshot.SubnetsFetched)
	assert.Equal(t, "completed", snapshot.TerminationReason)
	assert.False(t, snapshot.EndTime.IsZero())
}

func TestLogProgress(t *testing.T) {
	tracker := NewTracker()
	tracker.SetSubnetsFetched(7)
	tracker.IncrementWebsitesCrawled()

	progress := tracker.LogProgress()
	assert.Contains(t, progress, "Subnets: 7 fetched")
	assert.Contains(t, progress, "Crawls: 1 ok")
}
