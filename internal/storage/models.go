package storage

import "time"

// Run is one recorded pipeline execution
type Run struct {
	RunID         string
	StartedAt     time.Time
	FinishedAt    *time.Time
	Status        string
	SubnetsTotal  int
	SubnetsFailed int
	OutputDir     string
}

// SubnetResult is the per-subnet audit row for one run, updated as each
// phase completes
type SubnetResult struct {
	RunID          string
	NetUID         int
	Name           string
	CrawlStatus    string
	HealthScore    float64
	ResearchStatus string
	ScoringStatus  string
	OverallScore   *float64
	UpdatedAt      time.Time
}
