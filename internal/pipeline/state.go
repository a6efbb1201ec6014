package pipeline

import (
	"sort"
	"sync"
	"time"

	"github.com/allanbellahsene/tao-galaxy-pipeline/internal/research"
	"github.com/allanbellahsene/tao-galaxy-pipeline/internal/scraper"
	"github.com/allanbellahsene/tao-galaxy-pipeline/internal/storage"
	"github.com/allanbellahsene/tao-galaxy-pipeline/internal/taostats"
	"github.com/allanbellahsene/tao-galaxy-pipeline/internal/verifier"
	"github.com/sirupsen/logrus"
)

// SubnetState accumulates one subnet's outputs as the run advances through
// the phases. Nil pointers mean the phase has not reached this subnet yet.
type SubnetState struct {
	Subnet   taostats.Subnet
	Crawl    *scraper.Result
	Records  []verifier.SourceRecord
	Health   *verifier.HealthSummary
	Analysis *research.Analysis
}

// RunState holds all per-subnet state for one run in memory. Every phase
// reads from and writes to it; nothing is carried over between runs.
type RunState struct {
	runID   string
	subnets map[int]*SubnetState
	mu      sync.RWMutex
}

// NewRunState creates an empty run state
func NewRunState(runID string) *RunState {
	return &RunState{
		runID:   runID,
		subnets: make(map[int]*SubnetState),
	}
}

// AddSubnet registers a subnet from the metadata phase
func (rs *RunState) AddSubnet(subnet taostats.Subnet) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	rs.subnets[subnet.NetUID] = &SubnetState{Subnet: subnet}
}

// SetCrawl records the crawl outcome for a subnet
func (rs *RunState) SetCrawl(netuid int, result scraper.Result) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if state, exists := rs.subnets[netuid]; exists {
		state.Crawl = &result
	}
}

// SetVerification records the reconciled source records for a subnet
func (rs *RunState) SetVerification(netuid int, records []verifier.SourceRecord, health verifier.HealthSummary) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if state, exists := rs.subnets[netuid]; exists {
		state.Records = records
		state.Health = &health
	}
}

// SetAnalysis records the research and scoring outcome for a subnet
func (rs *RunState) SetAnalysis(netuid int, analysis research.Analysis) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if state, exists := rs.subnets[netuid]; exists {
		state.Analysis = &analysis
	}
}

// Get retrieves a copy of one subnet's state
func (rs *RunState) Get(netuid int) (SubnetState, bool) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	state, exists := rs.subnets[netuid]
	if !exists {
		return SubnetState{}, false
	}
	return *state, true
}

// NetUIDs returns all registered netuids in ascending order
func (rs *RunState) NetUIDs() []int {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	ids := make([]int, 0, len(rs.subnets))
	for netuid := range rs.subnets {
		ids = append(ids, netuid)
	}
	sort.Ints(ids)
	return ids
}

// Count returns the number of registered subnets
func (rs *RunState) Count() int {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return len(rs.subnets)
}

// FailedCount returns how many subnets ended the run without a completed
// research pass
func (rs *RunState) FailedCount() int {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	failed := 0
	for _, state := range rs.subnets {
		if state.Analysis == nil || state.Analysis.ResearchStatus != research.OpCompleted {
			failed++
		}
	}
	return failed
}

// Flush writes all in-memory subnet results to the audit store
func (rs *RunState) Flush(store *storage.Storage) error {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	startTime := time.Now()
	logrus.Info("Flushing run state to database...")

	rowsWritten := 0
	var firstErr error

	for netuid, state := range rs.subnets {
		row := storage.SubnetResult{
			RunID:          rs.runID,
			NetUID:         netuid,
			Name:           state.Subnet.Name,
			ResearchStatus: research.OpPending,
			ScoringStatus:  research.OpPending,
			UpdatedAt:      time.Now(),
		}

		if state.Crawl != nil {
			row.CrawlStatus = state.Crawl.Status
		}
		if state.Health != nil {
			row.HealthScore = state.Health.HealthScore
		}
		if state.Analysis != nil {
			row.ResearchStatus = state.Analysis.ResearchStatus
			row.ScoringStatus = state.Analysis.ScoringStatus
			if state.Analysis.Score != nil {
				overall := state.Analysis.Score.OverallScore
				row.OverallScore = &overall
			}
		}

		if err := store.UpsertSubnetResult(row); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			logrus.Warnf("Failed to flush subnet %d: %v", netuid, err)
			continue
		}

		rowsWritten++
	}

	duration := time.Since(startTime)
	logrus.Infof("Flush complete: %d subnet rows written in %v", rowsWritten, duration)

	return firstErr
}
