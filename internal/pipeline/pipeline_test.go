package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/allanbellahsene/tao-galaxy-pipeline/internal/artifact"
	"github.com/allanbellahsene/tao-galaxy-pipeline/internal/config"
	"github.com/allanbellahsene/tao-galaxy-pipeline/internal/metrics"
	"github.com/allanbellahsene/tao-galaxy-pipeline/internal/research"
	"github.com/allanbellahsene/tao-galaxy-pipeline/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedAgent answers the full question bank for every subnet except the
// ones listed in failNetuids.
type scriptedAgent struct {
	failNetuids map[int]bool
}

func (s *scriptedAgent) Research(ctx context.Context, input research.Input) (*research.ResearchResponse, error) {
	if s.failNetuids[input.Subnet.NetUID] {
		return nil, fmt.Errorf("scripted research failure")
	}

	response := &research.ResearchResponse{}
	for _, question := range research.QuestionBank {
		response.Answers = append(response.Answers, research.AnswerPayload{
			Key:        question.Key,
			Answer:     "Answer for " + question.Key,
			Confidence: 4,
			Sources:    []string{input.Subnet.Sources.Website},
			Status:     research.AnswerCompleted,
		})
	}
	return response, nil
}

func (s *scriptedAgent) Score(ctx context.Context, input research.Input, result *research.ResearchResult) (*research.ScoreResponse, error) {
	return &research.ScoreResponse{
		CategoryScores: map[string]int{
			"team_strength":      4,
			"product_viability":  4,
			"market_opportunity": 4,
			"execution_progress": 4,
			"risk_management":    4,
		},
		Strengths: []string{"strong fundamentals"},
	}, nil
}

func subnetSite(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><title>Apex</title></head><body>
			<a href="https://github.com/apex/subnet">GitHub</a>
			<a href="https://discord.gg/apex">Discord</a>
		</body></html>`))
	}))
	t.Cleanup(server.Close)
	return server
}

func registryFor(t *testing.T, siteURL string) *httptest.Server {
	t.Helper()
	identity := fmt.Sprintf(`{"data": [
		{"netuid": 1, "subnet_name": "apex", "description": "Inference",
		 "subnet_url": %q, "github_repo": "https://github.com/apex/subnet"},
		{"netuid": 2, "subnet_name": "nova"},
		{"netuid": 3, "subnet_name": "flux", "subnet_url": "http://127.0.0.1:1/unreachable"}
	]}`, siteURL)
	stats := `{"data": [
		{"netuid": 1, "emission": 60.0, "subtoken_enabled": true},
		{"netuid": 2, "emission": 20.0, "subtoken_enabled": true},
		{"netuid": 3, "emission": 20.0, "subtoken_enabled": false}
	]}`

	mux := http.NewServeMux()
	mux.HandleFunc("/subnet/identity/v1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(identity))
	})
	mux.HandleFunc("/subnet/latest/v1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(stats))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func pipelineConfig(t *testing.T, registryURL string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		TaostatsBaseURL:   registryURL,
		OutputDir:         filepath.Join(dir, "output"),
		DBPath:            filepath.Join(dir, "pipeline.db"),
		RequestTimeoutMs:  2000,
		RetryAttempts:     1,
		RetryDelayMs:      1,
		CrawlWorkers:      2,
		MaxPagesPerSubnet: 2,
		AgentConcurrency:  2,
		AgentDelayMs:      1,
		AgentTimeoutMs:    5000,
		GlobalTimeoutMin:  2,
	}
}

func TestPipelineRunEndToEnd(t *testing.T) {
	site := subnetSite(t)
	registry := registryFor(t, site.URL)
	cfg := pipelineConfig(t, registry.URL)

	store, err := storage.NewStorage(cfg.DBPath)
	require.NoError(t, err)
	defer store.Close()

	tracker := metrics.NewTracker()
	agent := &scriptedAgent{failNetuids: map[int]bool{2: true}}

	p, err := New(cfg, agent, store, tracker, nil)
	require.NoError(t, err)

	require.NoError(t, p.Run(context.Background()))

	// Every phase artifact plus the snapshot exists
	artifacts, err := artifact.NewStore(cfg.OutputDir)
	require.NoError(t, err)
	for _, name := range []string{
		artifact.Phase1Metadata,
		artifact.Phase2Sources,
		artifact.Phase3Normalized,
		artifact.Phase4Research,
		artifact.FinalDataset,
		artifact.CompleteDataset,
	} {
		_, statErr := os.Stat(artifacts.Path(name))
		assert.NoError(t, statErr, "artifact %s must exist", name)
	}

	var dataset FinalDataset
	require.NoError(t, artifacts.ReadJSON(artifact.FinalDataset, &dataset))
	require.Len(t, dataset.Subnets, 3)

	byNetuid := make(map[int]DashboardRecord)
	for _, record := range dataset.Subnets {
		byNetuid[record.NetUID] = record
	}

	// Subnet 1: full pipeline success
	apex := byNetuid[1]
	assert.True(t, apex.WebsiteAvailable)
	assert.True(t, apex.HasGithub)
	assert.Equal(t, research.OpCompleted, apex.ResearchStatus)
	require.NotNil(t, apex.OverallScore)
	assert.Equal(t, 4.0, *apex.OverallScore)
	assert.Equal(t, "Strong Buy", apex.InvestmentRecommendation)

	// Subnet 2: research failed, scoring skipped, no score invented
	nova := byNetuid[2]
	assert.Equal(t, research.OpFailed, nova.ResearchStatus)
	assert.Equal(t, research.OpSkipped, nova.ScoringStatus)
	assert.Nil(t, nova.OverallScore)

	// Subnet 3: crawl failed but the subnet still flows through every phase
	flux := byNetuid[3]
	assert.False(t, flux.WebsiteAvailable)
	assert.Contains(t, flux.RiskFlags, "Low source verification")

	assert.Equal(t, 3, dataset.Summary.SubnetsTotal)
	assert.Equal(t, 1, dataset.Summary.SubnetsFailed)

	// Audit rows recorded per subnet
	run, err := store.GetRun(p.RunID())
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, RunCompleted, run.Status)
	assert.Equal(t, 3, run.SubnetsTotal)

	results, err := store.LoadRunResults(p.RunID())
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestPipelineRunNetuidFilter(t *testing.T) {
	site := subnetSite(t)
	registry := registryFor(t, site.URL)
	cfg := pipelineConfig(t, registry.URL)

	store, err := storage.NewStorage(cfg.DBPath)
	require.NoError(t, err)
	defer store.Close()

	p, err := New(cfg, &scriptedAgent{}, store, metrics.NewTracker(), []int{1})
	require.NoError(t, err)
	require.NoError(t, p.Run(context.Background()))

	artifacts, err := artifact.NewStore(cfg.OutputDir)
	require.NoError(t, err)

	var dataset FinalDataset
	require.NoError(t, artifacts.ReadJSON(artifact.FinalDataset, &dataset))
	require.Len(t, dataset.Subnets, 1)
	assert.Equal(t, 1, dataset.Subnets[0].NetUID)
}

func TestPipelineRunFailsWhenRegistryUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	cfg := pipelineConfig(t, server.URL)
	store, err := storage.NewStorage(cfg.DBPath)
	require.NoError(t, err)
	defer store.Close()

	p, err := New(cfg, &scriptedAgent{}, store, metrics.NewTracker(), nil)
	require.NoError(t, err)

	err = p.Run(context.Background())
	require.Error(t, err, "a dead registry aborts the run: no fallback data")

	run, getErr := store.GetRun(p.RunID())
	require.NoError(t, getErr)
	require.NotNil(t, run)
	assert.Equal(t, RunFailed, run.Status)
}

// Guard against accidental JSON shape drift in the final dataset.
func TestDashboardRecordJSONShape(t *testing.T) {
	record := assembleRecord(baseState(), time.Now())

	data, err := json.Marshal(record)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	for _, key := range []string{"netuid", "name", "health_score", "primary_links",
		"research_status", "scoring_status", "overall_score", "last_updated"} {
		assert.Contains(t, decoded, key)
	}

	assert.Nil(t, decoded["overall_score"], "pending score serializes as JSON null")
}
