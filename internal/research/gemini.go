package research

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/allanbellahsene/tao-galaxy-pipeline/internal/faults"
	"google.golang.org/genai"
)

// GeminiAgent implements Agent on the Gemini API. Responses are requested as
// JSON and validated against the payload contract by the coordinator.
type GeminiAgent struct {
	client *genai.Client
	model  string
}

// NewGeminiAgent creates a Gemini-backed research/scoring agent.
func NewGeminiAgent(ctx context.Context, apiKey, model string) (*GeminiAgent, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiAgent{client: client, model: model}, nil
}

// Research asks the agent to answer the full question bank for one subnet.
func (a *GeminiAgent) Research(ctx context.Context, input Input) (*ResearchResponse, error) {
	prompt := buildResearchPrompt(input)

	raw, err := a.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var response ResearchResponse
	if err := json.Unmarshal([]byte(raw), &response); err != nil {
		return nil, &faults.MalformedResponseError{
			Source: "research agent",
			Detail: fmt.Sprintf("invalid answer JSON: %v", err),
		}
	}
	return &response, nil
}

// Score asks the agent to rate the five fixed categories from the research
// answers.
func (a *GeminiAgent) Score(ctx context.Context, input Input, research *ResearchResult) (*ScoreResponse, error) {
	prompt := buildScorePrompt(input, research)

	raw, err := a.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var response ScoreResponse
	if err := json.Unmarshal([]byte(raw), &response); err != nil {
		return nil, &faults.MalformedResponseError{
			Source: "scoring agent",
			Detail: fmt.Sprintf("invalid score JSON: %v", err),
		}
	}
	return &response, nil
}

func (a *GeminiAgent) generate(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}

	result, err := a.client.Models.GenerateContent(ctx, a.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.1),
	})
	if err != nil {
		return "", fmt.Errorf("Gemini call failed: %w", err)
	}

	text := strings.TrimSpace(result.Text())
	if text == "" {
		return "", &faults.MalformedResponseError{Source: "gemini", Detail: "empty response"}
	}

	// Some models wrap JSON in markdown fences despite the MIME hint.
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text), nil
}

func buildResearchPrompt(input Input) string {
	var b strings.Builder

	b.WriteString("You are a research analyst evaluating a Bittensor subnet. ")
	b.WriteString("Answer every question below using ONLY the provided context. ")
	b.WriteString("When the context has no information for a question, set status to \"insufficient_data\".\n\n")
	b.WriteString(BuildContext(input))

	b.WriteString("\nQUESTIONS:\n")
	for _, q := range QuestionBank {
		fmt.Fprintf(&b, "- key=%q category=%q: %s\n", q.Key, q.Category, q.Text)
	}

	b.WriteString(`
Respond with JSON only, shaped exactly as:
{"answers":[{"key":"<question key>","answer":"<factual answer>","confidence":<1-5>,"sources":["<citation>"],"status":"completed"|"insufficient_data"}]}
Include one entry per question key.`)

	return b.String()
}

func buildScorePrompt(input Input, research *ResearchResult) string {
	var b strings.Builder

	b.WriteString("You are an investment analyst scoring a Bittensor subnet. ")
	b.WriteString("Rate each category from 1 (poor) to 5 (excellent) based on the research below.\n\n")
	fmt.Fprintf(&b, "SUBNET: %s (NetUID: %d)\n", input.Subnet.Name, input.Subnet.NetUID)

	b.WriteString("\nRESEARCH FINDINGS:\n")
	for _, answer := range research.Answers {
		if answer.Status != AnswerCompleted {
			continue
		}
		fmt.Fprintf(&b, "[%s] %s\n  %s (confidence %d/5)\n",
			answer.Category, answer.Question, answer.Answer, answer.Confidence)
	}

	fmt.Fprintf(&b, "\nSOURCE HEALTH: %d of %d sources verified (%.1f%%)\n",
		input.Health.VerifiedSources, input.Health.TotalSources, input.Health.HealthScore)

	b.WriteString("\nCATEGORIES TO SCORE: ")
	b.WriteString(strings.Join(ScoringCategories, ", "))
	b.WriteString(`

Respond with JSON only, shaped exactly as:
{"category_scores":{"team_strength":<1-5>,"product_viability":<1-5>,"market_opportunity":<1-5>,"execution_progress":<1-5>,"risk_management":<1-5>},"strengths":["..."],"weaknesses":["..."],"risk_flags":["..."]}`)

	return b.String()
}
