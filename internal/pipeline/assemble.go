package pipeline

import (
	"time"

	"github.com/allanbellahsene/tao-galaxy-pipeline/internal/research"
	"github.com/allanbellahsene/tao-galaxy-pipeline/internal/scraper"
	"github.com/allanbellahsene/tao-galaxy-pipeline/internal/taostats"
	"github.com/allanbellahsene/tao-galaxy-pipeline/internal/verifier"
)

// lowHealthThreshold marks subnets whose source verification is too weak to
// trust the research context without a flag.
const lowHealthThreshold = 50.0

// NormalizedSubnet is the merged registry-plus-site view handed to the
// research phase and written as the phase 3 artifact. Identity fields always
// come from the registry; the site only contributes discovered links.
type NormalizedSubnet struct {
	NetUID                int                     `json:"netuid"`
	Name                  string                  `json:"name"`
	Description           string                  `json:"description"`
	Emission              float64                 `json:"emission"`
	Active                bool                    `json:"active"`
	RegistrationTimestamp string                  `json:"registration_timestamp,omitempty"`
	WebsiteTitle          string                  `json:"website_title,omitempty"`
	WebsiteDescription    string                  `json:"website_description,omitempty"`
	CrawlStatus           string                  `json:"crawl_status"`
	SourceRecords         []verifier.SourceRecord `json:"source_records"`
	Health                verifier.HealthSummary  `json:"health"`
}

// DashboardRecord is one row of the final dataset: everything a dashboard
// needs to render a subnet without joining the phase artifacts.
type DashboardRecord struct {
	NetUID                   int                               `json:"netuid"`
	Name                     string                            `json:"name"`
	Description              string                            `json:"description"`
	Emission                 float64                           `json:"emission"`
	Active                   bool                              `json:"active"`
	RegistrationTimestamp    string                            `json:"registration_timestamp,omitempty"`
	WebsiteAvailable         bool                              `json:"website_available"`
	CrawlStatus              string                            `json:"crawl_status"`
	HealthScore              float64                           `json:"health_score"`
	VerifiedSourcesCount     int                               `json:"verified_sources_count"`
	PrimaryLinks             map[string]string                 `json:"primary_links"`
	HasGithub                bool                              `json:"has_github"`
	HasDocumentation         bool                              `json:"has_documentation"`
	SourceRecords            []verifier.SourceRecord           `json:"source_records"`
	ResearchStatus           string                            `json:"research_status"`
	DataCompleteness         float64                           `json:"data_completeness"`
	ResearchConfidence       string                            `json:"research_confidence,omitempty"`
	ScoringStatus            string                            `json:"scoring_status"`
	OverallScore             *float64                          `json:"overall_score"`
	InvestmentRecommendation string                            `json:"investment_recommendation,omitempty"`
	CategoryScores           map[string]research.CategoryScore `json:"category_scores,omitempty"`
	Strengths                []string                          `json:"strengths,omitempty"`
	Weaknesses               []string                          `json:"weaknesses,omitempty"`
	RiskFlags                []string                          `json:"risk_flags,omitempty"`
	LastUpdated              time.Time                         `json:"last_updated"`
}

// RunSummary aggregates one run for the final dataset header.
type RunSummary struct {
	RunID           string         `json:"run_id"`
	GeneratedAt     time.Time      `json:"generated_at"`
	SubnetsTotal    int            `json:"subnets_total"`
	SubnetsScored   int            `json:"subnets_scored"`
	SubnetsFailed   int            `json:"subnets_failed"`
	AverageHealth   float64        `json:"average_health"`
	Recommendations map[string]int `json:"recommendations"`
}

// FinalDataset is the top-level shape of final_subnet_analysis.json.
type FinalDataset struct {
	Summary RunSummary        `json:"summary"`
	Subnets []DashboardRecord `json:"subnets"`
}

// assembleRecord merges every phase's output for one subnet into a dashboard
// row. Missing phases degrade to pending statuses, never to substitute data.
func assembleRecord(state SubnetState, now time.Time) DashboardRecord {
	subnet := state.Subnet

	record := DashboardRecord{
		NetUID:                subnet.NetUID,
		Name:                  subnet.Name,
		Description:           subnet.Description,
		Emission:              subnet.Emission,
		Active:                subnet.Active,
		RegistrationTimestamp: subnet.RegistrationTimestamp,
		PrimaryLinks:          make(map[string]string),
		ResearchStatus:        research.OpPending,
		ScoringStatus:         research.OpPending,
		LastUpdated:           now,
	}

	if state.Crawl != nil {
		record.CrawlStatus = state.Crawl.Status
		record.WebsiteAvailable = state.Crawl.Status == scraper.StatusSuccess
	}

	if state.Health != nil {
		record.HealthScore = state.Health.HealthScore
		record.VerifiedSourcesCount = state.Health.VerifiedSources
	}

	record.SourceRecords = state.Records
	for _, rec := range state.Records {
		if rec.URL == "" || rec.Status == verifier.StatusMissing {
			continue
		}
		record.PrimaryLinks[string(rec.Channel)] = rec.URL
		switch rec.Channel {
		case verifier.ChannelGithub:
			record.HasGithub = true
		case verifier.ChannelDocs:
			record.HasDocumentation = true
		}
	}

	if state.Analysis != nil {
		record.ResearchStatus = state.Analysis.ResearchStatus
		record.ScoringStatus = state.Analysis.ScoringStatus

		if state.Analysis.Research != nil {
			record.DataCompleteness = state.Analysis.Research.DataCompleteness
			record.ResearchConfidence = state.Analysis.Research.ConfidenceLevel
		}

		if state.Analysis.Score != nil {
			score := state.Analysis.Score
			overall := score.OverallScore
			record.OverallScore = &overall
			record.InvestmentRecommendation = score.InvestmentRecommendation
			record.CategoryScores = score.CategoryScores
			record.Strengths = score.Strengths
			record.Weaknesses = score.Weaknesses
			record.RiskFlags = score.RiskFlags
		}
	}

	if state.Health != nil && state.Health.HealthScore < lowHealthThreshold {
		record.RiskFlags = append(record.RiskFlags, "Low source verification")
	}

	return record
}

// normalizeSubnet builds the phase 3 view for one subnet. The registry wins
// every identity field; the crawl only contributes titles and links.
func normalizeSubnet(state SubnetState) NormalizedSubnet {
	normalized := NormalizedSubnet{
		NetUID:                state.Subnet.NetUID,
		Name:                  state.Subnet.Name,
		Description:           state.Subnet.Description,
		Emission:              state.Subnet.Emission,
		Active:                state.Subnet.Active,
		RegistrationTimestamp: state.Subnet.RegistrationTimestamp,
		SourceRecords:         state.Records,
	}

	if state.Crawl != nil {
		normalized.CrawlStatus = state.Crawl.Status
		normalized.WebsiteTitle = state.Crawl.Title
		normalized.WebsiteDescription = state.Crawl.Description
	}
	if state.Health != nil {
		normalized.Health = *state.Health
	}

	return normalized
}

// summarizeRun computes the dataset header from the assembled rows.
func summarizeRun(runID string, records []DashboardRecord, failed int, now time.Time) RunSummary {
	summary := RunSummary{
		RunID:           runID,
		GeneratedAt:     now,
		SubnetsTotal:    len(records),
		SubnetsFailed:   failed,
		Recommendations: make(map[string]int),
	}

	healthSum := 0.0
	for _, record := range records {
		healthSum += record.HealthScore
		if record.OverallScore != nil {
			summary.SubnetsScored++
			summary.Recommendations[record.InvestmentRecommendation]++
		}
	}
	if len(records) > 0 {
		summary.AverageHealth = healthSum / float64(len(records))
	}

	return summary
}

// completeRecord is one subnet's full cross-phase state as written to
// complete_subnet_data.json.
type completeRecord struct {
	Subnet   taostats.Subnet         `json:"subnet"`
	Crawl    *scraper.Result         `json:"crawl,omitempty"`
	Records  []verifier.SourceRecord `json:"source_records,omitempty"`
	Health   *verifier.HealthSummary `json:"health,omitempty"`
	Analysis *research.Analysis      `json:"analysis,omitempty"`
}
