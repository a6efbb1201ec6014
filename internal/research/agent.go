package research

import (
	"context"
	"fmt"
	"strings"

	"github.com/allanbellahsene/tao-galaxy-pipeline/internal/scraper"
	"github.com/allanbellahsene/tao-galaxy-pipeline/internal/taostats"
	"github.com/allanbellahsene/tao-galaxy-pipeline/internal/verifier"
)

// Input is everything phase 4 knows about a subnet: identity, reconciled
// sources, and the crawl result feeding the research context.
type Input struct {
	Subnet  taostats.Subnet         `json:"subnet"`
	Records []verifier.SourceRecord `json:"source_records"`
	Health  verifier.HealthSummary  `json:"health"`
	Crawl   scraper.Result          `json:"crawl"`
}

// AnswerPayload is the per-question JSON shape the research agent must
// return. It is the wire contract validated on receipt.
type AnswerPayload struct {
	Key        string   `json:"key"`
	Answer     string   `json:"answer"`
	Confidence int      `json:"confidence"`
	Sources    []string `json:"sources"`
	Status     string   `json:"status"`
}

// ResearchResponse is the research agent's structured output.
type ResearchResponse struct {
	Answers []AnswerPayload `json:"answers"`
}

// ScoreResponse is the scoring agent's structured output. OverallScore is
// advisory only; the coordinator recomputes it from the category scores.
type ScoreResponse struct {
	CategoryScores map[string]int `json:"category_scores"`
	Strengths      []string       `json:"strengths"`
	Weaknesses     []string       `json:"weaknesses"`
	RiskFlags      []string       `json:"risk_flags"`
	OverallScore   float64        `json:"overall_score"`
}

// Agent is the external reasoning collaborator. Implementations return
// structured JSON matching the payload types above; anything else is a
// MalformedResponse for that subnet only.
type Agent interface {
	Research(ctx context.Context, input Input) (*ResearchResponse, error)
	Score(ctx context.Context, input Input, research *ResearchResult) (*ScoreResponse, error)
}

// BuildContext renders the subnet's verified data into the text block both
// agents receive. Only verified facts go in; no substitute content is ever
// injected for missing data.
func BuildContext(input Input) string {
	var b strings.Builder

	fmt.Fprintf(&b, "SUBNET: %s (NetUID: %d)\n", input.Subnet.Name, input.Subnet.NetUID)
	if input.Subnet.Description != "" {
		fmt.Fprintf(&b, "DESCRIPTION: %s\n", input.Subnet.Description)
	}
	fmt.Fprintf(&b, "EMISSION: %.4f%% of network, ACTIVE: %t\n", input.Subnet.Emission, input.Subnet.Active)

	b.WriteString("\nVERIFIED SOURCES:\n")
	for _, record := range input.Records {
		if record.URL == "" {
			continue
		}
		fmt.Fprintf(&b, "- %s: %s (status: %s, confidence: %.2f)\n",
			strings.ToUpper(string(record.Channel)), record.URL, record.Status, record.MatchConfidence)
	}

	if input.Crawl.Status == scraper.StatusSuccess {
		if input.Crawl.Title != "" {
			fmt.Fprintf(&b, "\nWEBSITE TITLE: %s\n", input.Crawl.Title)
		}
		if input.Crawl.Description != "" {
			fmt.Fprintf(&b, "WEBSITE DESCRIPTION: %s\n", input.Crawl.Description)
		}
		if input.Crawl.TextSample != "" {
			fmt.Fprintf(&b, "\nWEBSITE CONTENT SAMPLE:\n%s\n", input.Crawl.TextSample)
		}
	} else {
		b.WriteString("\nWEBSITE: not available (crawl did not succeed)\n")
	}

	return b.String()
}
