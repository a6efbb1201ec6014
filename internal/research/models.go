package research

import "time"

// AnswerSentinel is the literal answer for every question whose status is
// not completed. Downstream consumers rely on it to distinguish "not
// computed" from an empty result.
const AnswerSentinel = "Data not available"

// Research answer statuses.
const (
	AnswerCompleted        = "completed"
	AnswerInsufficientData = "insufficient_data"
	AnswerFailed           = "failed"
)

// Per-subnet operation statuses recorded by the coordinator.
const (
	OpCompleted = "completed"
	OpFailed    = "failed"
	OpSkipped   = "skipped"
	OpPending   = "pending"
)

// ResearchAnswer is one answered question for one subnet. Answers are
// immutable once written for a run.
type ResearchAnswer struct {
	Category   string   `json:"category"`
	Key        string   `json:"key"`
	Question   string   `json:"question"`
	Answer     string   `json:"answer"`
	Confidence int      `json:"confidence"`
	Sources    []string `json:"sources"`
	Status     string   `json:"status"`
}

// ResearchResult is the full question-bank outcome for one subnet.
type ResearchResult struct {
	NetUID           int              `json:"netuid"`
	Name             string           `json:"name"`
	Timestamp        time.Time        `json:"timestamp"`
	Answers          []ResearchAnswer `json:"answers"`
	DataCompleteness float64          `json:"data_completeness"`
	ConfidenceLevel  string           `json:"confidence_level"`
}

// CategoryScore is one scored category with its fixed weight.
type CategoryScore struct {
	Score  int     `json:"score"`
	Weight float64 `json:"weight"`
}

// ScoreRecord holds the weighted category scores and derived fields for one
// subnet. OverallScore is always recomputed locally from CategoryScores;
// a stored value that disagrees with the formula is an integrity bug.
type ScoreRecord struct {
	NetUID                   int                      `json:"netuid"`
	Timestamp                time.Time                `json:"timestamp"`
	CategoryScores           map[string]CategoryScore `json:"category_scores"`
	OverallScore             float64                  `json:"overall_score"`
	InvestmentRecommendation string                   `json:"investment_recommendation"`
	Strengths                []string                 `json:"strengths"`
	Weaknesses               []string                 `json:"weaknesses"`
	RiskFlags                []string                 `json:"risk_flags"`
	ConfidenceLevel          string                   `json:"confidence_level"`
}

// Analysis is the combined phase-4 outcome for one subnet. Either pointer may
// be nil when the corresponding operation did not complete; the status fields
// always say why.
type Analysis struct {
	NetUID         int             `json:"netuid"`
	ResearchStatus string          `json:"research_status"`
	Research       *ResearchResult `json:"research,omitempty"`
	ScoringStatus  string          `json:"scoring_status"`
	Score          *ScoreRecord    `json:"score,omitempty"`
	FailureReason  string          `json:"failure_reason,omitempty"`
}
