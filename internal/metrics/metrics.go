package metrics

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// Snapshot tracks pipeline statistics for export on exit
type Snapshot struct {
	StartTime         time.Time `json:"start_time"`
	EndTime           time.Time `json:"end_time"`
	SubnetsFetched    int       `json:"subnets_fetched"`
	WebsitesCrawled   int       `json:"websites_crawled"`
	CrawlsFailed      int       `json:"crawls_failed"`
	SourcesVerified   int       `json:"sources_verified"`
	ResearchCompleted int       `json:"research_completed"`
	ResearchFailed    int       `json:"research_failed"`
	ScoresComputed    int       `json:"scores_computed"`
	ScoringFailed     int       `json:"scoring_failed"`
	RecordsAssembled  int       `json:"records_assembled"`
	TerminationReason string    `json:"termination_reason"`
}

// Tracker holds and manages pipeline metrics
type Tracker struct {
	mu   sync.Mutex
	data Snapshot
}

// NewTracker creates a new metrics tracker
func NewTracker() *Tracker {
	return &Tracker{
		data: Snapshot{
			StartTime: time.Now(),
		},
	}
}

// SetSubnetsFetched records the phase 1 subnet count
func (t *Tracker) SetSubnetsFetched(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.SubnetsFetched = n
}

// IncrementWebsitesCrawled increments the successful crawl counter
func (t *Tracker) IncrementWebsitesCrawled() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.WebsitesCrawled++
}

// IncrementCrawlsFailed increments the failed crawl counter
func (t *Tracker) IncrementCrawlsFailed() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.CrawlsFailed++
}

// AddSourcesVerified adds to the verified source channel counter
func (t *Tracker) AddSourcesVerified(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.SourcesVerified += n
}

// IncrementResearchCompleted increments the completed research counter
func (t *Tracker) IncrementResearchCompleted() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.ResearchCompleted++
}

// IncrementResearchFailed increments the failed research counter
func (t *Tracker) IncrementResearchFailed() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.ResearchFailed++
}

// IncrementScoresComputed increments the completed scoring counter
func (t *Tracker) IncrementScoresComputed() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.ScoresComputed++
}

// IncrementScoringFailed increments the failed scoring counter
func (t *Tracker) IncrementScoringFailed() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.ScoringFailed++
}

// SetRecordsAssembled records the final dataset size
func (t *Tracker) SetRecordsAssembled(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.RecordsAssembled = n
}

// GetSnapshot returns a copy of current metrics
func (t *Tracker) GetSnapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.data
}

// WriteToFile exports metrics to a JSON file
func (t *Tracker) WriteToFile(path, reason string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	// Finalize metrics
	t.data.EndTime = time.Now()
	t.data.TerminationReason = reason

	// Marshal to JSON
	jsonData, err := json.MarshalIndent(t.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}

	// Write to file
	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}

	return nil
}

// LogProgress prints current metrics to console (for periodic updates)
func (t *Tracker) LogProgress() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return fmt.Sprintf("Subnets: %d fetched | Crawls: %d ok, %d failed | Research: %d ok, %d failed | Scores: %d ok, %d failed",
		t.data.SubnetsFetched,
		t.data.WebsitesCrawled,
		t.data.CrawlsFailed,
		t.data.ResearchCompleted,
		t.data.ResearchFailed,
		t.data.ScoresComputed,
		t.data.ScoringFailed,
	)
}
