// Package research drives the external research and scoring agents over the
// fixed question bank and turns their structured JSON into validated,
// deterministic records.
package research

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/allanbellahsene/tao-galaxy-pipeline/internal/config"
	"github.com/allanbellahsene/tao-galaxy-pipeline/internal/faults"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

// Coordinator runs research and scoring per subnet under a bounded in-flight
// cap and a minimum inter-call delay. One subnet's failure never propagates
// to another.
type Coordinator struct {
	agent     Agent
	sem       *semaphore.Weighted
	opTimeout time.Duration
	minDelay  time.Duration

	mu           sync.Mutex
	lastDispatch time.Time
}

// NewCoordinator creates a coordinator from the runtime configuration.
func NewCoordinator(agent Agent, cfg *config.Config) *Coordinator {
	return &Coordinator{
		agent:     agent,
		sem:       semaphore.NewWeighted(int64(cfg.AgentConcurrency)),
		opTimeout: time.Duration(cfg.AgentTimeoutMs) * time.Millisecond,
		minDelay:  time.Duration(cfg.AgentDelayMs) * time.Millisecond,
	}
}

// Analyze researches and scores one subnet. Failures are recorded on the
// returned Analysis; the call itself never fails.
func (c *Coordinator) Analyze(ctx context.Context, input Input) Analysis {
	analysis := Analysis{
		NetUID:         input.Subnet.NetUID,
		ResearchStatus: OpPending,
		ScoringStatus:  OpPending,
	}

	logrus.Infof("Researching subnet %d: %s", input.Subnet.NetUID, input.Subnet.Name)

	research, err := c.runResearch(ctx, input)
	if err != nil {
		logrus.Errorf("Research failed for subnet %d: %v", input.Subnet.NetUID, err)
		analysis.ResearchStatus = OpFailed
		analysis.ScoringStatus = OpSkipped
		analysis.FailureReason = err.Error()
		return analysis
	}
	analysis.ResearchStatus = OpCompleted
	analysis.Research = research

	score, err := c.runScore(ctx, input, research)
	if err != nil {
		logrus.Errorf("Scoring failed for subnet %d: %v", input.Subnet.NetUID, err)
		analysis.ScoringStatus = OpFailed
		analysis.FailureReason = err.Error()
		return analysis
	}
	analysis.ScoringStatus = OpCompleted
	analysis.Score = score

	logrus.Infof("Subnet %d scored %.1f (%s)", input.Subnet.NetUID,
		score.OverallScore, score.InvestmentRecommendation)
	return analysis
}

func (c *Coordinator) runResearch(ctx context.Context, input Input) (*ResearchResult, error) {
	response, err := c.dispatch(ctx, "research", func(callCtx context.Context) (any, error) {
		return c.agent.Research(callCtx, input)
	})
	if err != nil {
		return nil, err
	}
	return c.validateResearch(input, response.(*ResearchResponse))
}

func (c *Coordinator) runScore(ctx context.Context, input Input, research *ResearchResult) (*ScoreRecord, error) {
	response, err := c.dispatch(ctx, "scoring", func(callCtx context.Context) (any, error) {
		return c.agent.Score(callCtx, input, research)
	})
	if err != nil {
		return nil, err
	}
	return c.validateScore(input.Subnet.NetUID, response.(*ScoreResponse), research)
}

// dispatch applies the concurrency cap, rate pacing, and per-call timeout
// around one agent call, mapping deadline errors into the fault taxonomy.
func (c *Coordinator) dispatch(ctx context.Context, operation string, call func(context.Context) (any, error)) (any, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer c.sem.Release(1)

	c.pace()

	callCtx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	result, err := call(callCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return nil, &faults.TimeoutError{Operation: operation, Err: err}
		}
		return nil, err
	}
	return result, nil
}

// pace enforces the minimum delay between successive agent dispatches.
func (c *Coordinator) pace() {
	c.mu.Lock()
	elapsed := time.Since(c.lastDispatch)
	wait := c.minDelay - elapsed
	if wait > 0 {
		c.lastDispatch = c.lastDispatch.Add(c.minDelay)
	} else {
		c.lastDispatch = time.Now()
		wait = 0
	}
	c.mu.Unlock()

	if wait > 0 {
		time.Sleep(wait)
	}
}

// validateResearch enforces the answer contract: one answer per bank
// question, sentinel text and confidence 1 whenever a question was not
// completed, non-empty sources otherwise.
func (c *Coordinator) validateResearch(input Input, response *ResearchResponse) (*ResearchResult, error) {
	if response == nil {
		return nil, &faults.MalformedResponseError{Source: "research agent", Detail: "nil response"}
	}

	byKey := make(map[string]AnswerPayload, len(response.Answers))
	for _, payload := range response.Answers {
		byKey[payload.Key] = payload
	}

	result := &ResearchResult{
		NetUID:    input.Subnet.NetUID,
		Name:      input.Subnet.Name,
		Timestamp: time.Now().UTC(),
		Answers:   make([]ResearchAnswer, 0, len(QuestionBank)),
	}

	completed := 0
	confident := 0
	for _, question := range QuestionBank {
		answer := ResearchAnswer{
			Category: question.Category,
			Key:      question.Key,
			Question: question.Text,
		}

		payload, ok := byKey[question.Key]
		text := strings.TrimSpace(payload.Answer)
		if ok && payload.Status == AnswerCompleted && text != "" && text != AnswerSentinel && len(payload.Sources) > 0 {
			answer.Status = AnswerCompleted
			answer.Answer = text
			answer.Confidence = clampConfidence(payload.Confidence)
			answer.Sources = payload.Sources
			completed++
			if answer.Confidence >= 4 {
				confident++
			}
		} else {
			answer.Status = AnswerInsufficientData
			answer.Answer = AnswerSentinel
			answer.Confidence = 1
			answer.Sources = []string{}
		}

		result.Answers = append(result.Answers, answer)
	}

	total := len(QuestionBank)
	result.DataCompleteness = math.Round(float64(completed)/float64(total)*1000) / 10
	result.ConfidenceLevel = confidenceLevel(confident, total)

	return result, nil
}

// validateScore enforces the category score contract and recomputes the
// overall score and recommendation locally. A divergent agent-supplied
// overall is an integrity violation; the recomputed value wins.
func (c *Coordinator) validateScore(netuid int, response *ScoreResponse, research *ResearchResult) (*ScoreRecord, error) {
	if response == nil {
		return nil, &faults.MalformedResponseError{Source: "scoring agent", Detail: "nil response"}
	}

	scores := make(map[string]CategoryScore, len(ScoringCategories))
	for _, name := range ScoringCategories {
		value, ok := response.CategoryScores[name]
		if !ok {
			return nil, &faults.MalformedResponseError{
				Source: "scoring agent",
				Detail: "missing category score: " + name,
			}
		}
		if value < 1 || value > 5 {
			return nil, &faults.MalformedResponseError{
				Source: "scoring agent",
				Detail: "category score out of range: " + name,
			}
		}
		scores[name] = CategoryScore{Score: value, Weight: ScoringWeights[name]}
	}

	overall := OverallScore(scores)
	if response.OverallScore != 0 && math.Abs(response.OverallScore-overall) > 0.05 {
		violation := &faults.IntegrityError{
			Subject: "score record",
			Detail:  "agent overall score disagrees with weighted formula, recomputed locally",
		}
		logrus.Warnf("Subnet %d: %v", netuid, violation)
	}

	record := &ScoreRecord{
		NetUID:                   netuid,
		Timestamp:                time.Now().UTC(),
		CategoryScores:           scores,
		OverallScore:             overall,
		InvestmentRecommendation: Recommendation(overall),
		Strengths:                dedupeLimited(response.Strengths, 5),
		Weaknesses:               dedupeLimited(response.Weaknesses, 5),
		RiskFlags:                dedupeLimited(append(append([]string{}, response.RiskFlags...), categoryRiskFlags(scores)...), 10),
		ConfidenceLevel:          research.ConfidenceLevel,
	}

	return record, nil
}

func clampConfidence(confidence int) int {
	if confidence < 1 {
		return 1
	}
	if confidence > 5 {
		return 5
	}
	return confidence
}

func confidenceLevel(confident, total int) string {
	if total == 0 {
		return "Low"
	}
	ratio := float64(confident) / float64(total)
	switch {
	case ratio >= 0.7:
		return "High"
	case ratio >= 0.3:
		return "Medium"
	default:
		return "Low"
	}
}
