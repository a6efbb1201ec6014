package research

import (
	"fmt"
	"math"
)

// ScoringWeights are the fixed category weights. They sum to exactly 1.0;
// the overall score is a pure function of the five category scores.
var ScoringWeights = map[string]float64{
	"team_strength":      0.25,
	"product_viability":  0.25,
	"market_opportunity": 0.20,
	"execution_progress": 0.15,
	"risk_management":    0.15,
}

// ScoringCategories lists the categories in fixed output order.
var ScoringCategories = []string{
	"team_strength",
	"product_viability",
	"market_opportunity",
	"execution_progress",
	"risk_management",
}

// OverallScore computes the weighted overall rating from category scores,
// rounded half-up to one decimal place. The weights are fixed hundredths and
// the scores integers, so the sum is computed exactly in integer hundredths;
// float accumulation would land true .x5 midpoints just below the midpoint
// and round them down.
func OverallScore(scores map[string]CategoryScore) float64 {
	hundredths := 0
	for _, name := range ScoringCategories {
		cs := scores[name]
		hundredths += cs.Score * int(math.Round(cs.Weight*100))
	}
	return float64((hundredths+5)/10) / 10
}

// Recommendation maps an overall score onto the fixed recommendation
// buckets. It is computed locally and never taken from the scoring agent.
func Recommendation(overallScore float64) string {
	switch {
	case overallScore >= 4.0:
		return "Strong Buy"
	case overallScore >= 3.5:
		return "Buy"
	case overallScore >= 2.5:
		return "Hold"
	case overallScore >= 2.0:
		return "Weak Hold"
	default:
		return "Avoid"
	}
}

// VerifyScoreRecord checks that a record's stored overall score matches its
// formula and that its recommendation matches its score. Used when loading
// persisted phase output before assembling the final dataset.
func VerifyScoreRecord(record *ScoreRecord) error {
	expected := OverallScore(record.CategoryScores)
	if math.Abs(record.OverallScore-expected) > 1e-9 {
		return fmt.Errorf("overall score %.2f does not match weighted formula %.2f",
			record.OverallScore, expected)
	}
	if record.InvestmentRecommendation != Recommendation(record.OverallScore) {
		return fmt.Errorf("recommendation %q does not match score %.1f",
			record.InvestmentRecommendation, record.OverallScore)
	}
	return nil
}

// categoryRiskFlags flags every category scored at 2 or below.
func categoryRiskFlags(scores map[string]CategoryScore) []string {
	var flags []string
	for _, name := range ScoringCategories {
		if cs, ok := scores[name]; ok && cs.Score <= 2 {
			flags = append(flags, fmt.Sprintf("Low score in %s: %d/5", name, cs.Score))
		}
	}
	return flags
}

// dedupeLimited removes duplicates preserving order, capped at limit entries.
func dedupeLimited(items []string, limit int) []string {
	seen := make(map[string]bool, len(items))
	var out []string
	for _, item := range items {
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
		if len(out) == limit {
			break
		}
	}
	return out
}
