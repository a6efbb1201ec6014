package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/allanbellahsene/tao-galaxy-pipeline/internal/artifact"
	"github.com/allanbellahsene/tao-galaxy-pipeline/internal/config"
	"github.com/allanbellahsene/tao-galaxy-pipeline/internal/metrics"
	"github.com/allanbellahsene/tao-galaxy-pipeline/internal/research"
	"github.com/allanbellahsene/tao-galaxy-pipeline/internal/scraper"
	"github.com/allanbellahsene/tao-galaxy-pipeline/internal/storage"
	"github.com/allanbellahsene/tao-galaxy-pipeline/internal/taostats"
	"github.com/allanbellahsene/tao-galaxy-pipeline/internal/verifier"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Run statuses recorded in the audit store.
const (
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// Pipeline orchestrates the five research phases for one run. Each phase is
// a strict barrier: no subnet enters a phase before every subnet has left
// the previous one.
type Pipeline struct {
	cfg         *config.Config
	runID       string
	netuids     []int
	fetcher     *taostats.Client
	crawler     *scraper.Crawler
	coordinator *research.Coordinator
	artifacts   *artifact.Store
	store       *storage.Storage
	tracker     *metrics.Tracker
	state       *RunState
}

// New wires a pipeline from its collaborators. An empty netuids slice means
// every subnet the registry returns is processed.
func New(cfg *config.Config, agent research.Agent, store *storage.Storage, tracker *metrics.Tracker, netuids []int) (*Pipeline, error) {
	artifacts, err := artifact.NewStore(cfg.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create artifact store: %w", err)
	}

	runID := uuid.NewString()

	return &Pipeline{
		cfg:         cfg,
		runID:       runID,
		netuids:     netuids,
		fetcher:     taostats.NewClient(cfg),
		crawler:     scraper.NewCrawler(cfg),
		coordinator: research.NewCoordinator(agent, cfg),
		artifacts:   artifacts,
		store:       store,
		tracker:     tracker,
		state:       NewRunState(runID),
	}, nil
}

// RunID returns this run's identifier
func (p *Pipeline) RunID() string {
	return p.runID
}

// Run executes all five phases in order. A phase error aborts the run; a
// single subnet's failure inside a phase never does.
func (p *Pipeline) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(p.cfg.GlobalTimeoutMin)*time.Minute)
	defer cancel()

	if err := p.store.BeginRun(p.runID, p.cfg.OutputDir, time.Now()); err != nil {
		return fmt.Errorf("failed to record run start: %w", err)
	}

	phases := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"fetch metadata", p.fetchMetadata},
		{"crawl sites", p.crawlSites},
		{"reconcile sources", p.reconcileSources},
		{"research subnets", p.researchSubnets},
		{"assemble dataset", p.assembleDataset},
	}

	for i, phase := range phases {
		logrus.Infof("Phase %d/%d: %s", i+1, len(phases), phase.name)

		if err := phase.fn(ctx); err != nil {
			p.finishRun(RunFailed)
			return fmt.Errorf("phase %q failed: %w", phase.name, err)
		}
	}

	p.finishRun(RunCompleted)
	return nil
}

// finishRun flushes state and closes the audit record
func (p *Pipeline) finishRun(status string) {
	if err := p.state.Flush(p.store); err != nil {
		logrus.Errorf("Failed to flush run state: %v", err)
	}

	if err := p.store.FinishRun(p.runID, status, p.state.Count(), p.state.FailedCount()); err != nil {
		logrus.Errorf("Failed to record run finish: %v", err)
	}
}

// fetchMetadata is phase 1: pull all subnet identities and stats from the
// registry and persist the raw snapshot.
func (p *Pipeline) fetchMetadata(ctx context.Context) error {
	subnets, err := p.fetcher.FetchAllSubnets(ctx)
	if err != nil {
		return err
	}

	subnets = p.filterSubnets(subnets)
	if len(subnets) == 0 {
		return fmt.Errorf("no subnets to process after filtering")
	}

	for _, subnet := range subnets {
		p.state.AddSubnet(subnet)
	}
	p.tracker.SetSubnetsFetched(len(subnets))

	payload := struct {
		FetchedAt time.Time         `json:"fetched_at"`
		Count     int               `json:"count"`
		Subnets   []taostats.Subnet `json:"subnets"`
	}{time.Now(), len(subnets), subnets}

	if err := p.artifacts.WriteJSON(artifact.Phase1Metadata, payload); err != nil {
		return err
	}

	logrus.Infof("Fetched %d subnets from registry", len(subnets))
	return nil
}

// filterSubnets keeps only the requested netuids when a filter was given
func (p *Pipeline) filterSubnets(subnets []taostats.Subnet) []taostats.Subnet {
	if len(p.netuids) == 0 {
		return subnets
	}

	wanted := make(map[int]bool, len(p.netuids))
	for _, netuid := range p.netuids {
		wanted[netuid] = true
	}

	filtered := make([]taostats.Subnet, 0, len(p.netuids))
	for _, subnet := range subnets {
		if wanted[subnet.NetUID] {
			filtered = append(filtered, subnet)
		}
	}
	return filtered
}

// crawlSites is phase 2: fetch every subnet's declared website with a
// bounded worker pool. Crawl failures degrade the subnet, never the run.
func (p *Pipeline) crawlSites(ctx context.Context) error {
	netuids := p.state.NetUIDs()

	jobs := make(chan int)
	var wg sync.WaitGroup

	logrus.Infof("Starting %d crawl workers for %d subnets", p.cfg.CrawlWorkers, len(netuids))

	for i := 0; i < p.cfg.CrawlWorkers; i++ {
		wg.Add(1)
		go p.crawlWorker(ctx, i+1, jobs, &wg)
	}

	for _, netuid := range netuids {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return ctx.Err()
		case jobs <- netuid:
		}
	}

	close(jobs)
	wg.Wait()

	return ctx.Err()
}

// crawlWorker processes crawl jobs until the channel closes
func (p *Pipeline) crawlWorker(ctx context.Context, id int, jobs <-chan int, wg *sync.WaitGroup) {
	defer wg.Done()

	for netuid := range jobs {
		state, exists := p.state.Get(netuid)
		if !exists {
			continue
		}

		website := state.Subnet.Sources.Website
		if website == "" {
			p.state.SetCrawl(netuid, scraper.Result{
				Status:    scraper.StatusNoWebsite,
				ScrapedAt: time.Now(),
			})
			logrus.Debugf("Worker %d: subnet %d has no declared website", id, netuid)
			continue
		}

		result := p.crawler.Crawl(ctx, website)
		p.state.SetCrawl(netuid, result)

		if result.Status == scraper.StatusSuccess {
			p.tracker.IncrementWebsitesCrawled()
			logrus.Infof("Worker %d: crawled subnet %d (%s, %d pages)", id, netuid, result.URL, result.PagesFetched)
		} else {
			p.tracker.IncrementCrawlsFailed()
			logrus.Warnf("Worker %d: crawl failed for subnet %d: %s", id, netuid, result.FailureReason)
		}
	}
}

// reconcileSources is phase 3: cross-check declared links against crawled
// links for every subnet, then persist both the verification detail and the
// normalized view the research phase consumes.
func (p *Pipeline) reconcileSources(ctx context.Context) error {
	verified := make(map[int]struct {
		Crawl   *scraper.Result         `json:"crawl,omitempty"`
		Records []verifier.SourceRecord `json:"source_records"`
		Health  verifier.HealthSummary  `json:"health"`
	})
	normalized := make([]NormalizedSubnet, 0, p.state.Count())

	for _, netuid := range p.state.NetUIDs() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		state, exists := p.state.Get(netuid)
		if !exists {
			continue
		}

		var crawl scraper.Result
		if state.Crawl != nil {
			crawl = *state.Crawl
		}

		declared := verifier.NormalizeDeclared(state.Subnet.Sources)
		records, health := verifier.Reconcile(declared, crawl)

		p.state.SetVerification(netuid, records, health)
		p.tracker.AddSourcesVerified(health.VerifiedSources)

		state, _ = p.state.Get(netuid)
		verified[netuid] = struct {
			Crawl   *scraper.Result         `json:"crawl,omitempty"`
			Records []verifier.SourceRecord `json:"source_records"`
			Health  verifier.HealthSummary  `json:"health"`
		}{state.Crawl, records, health}
		normalized = append(normalized, normalizeSubnet(state))

		logrus.Infof("Subnet %d: %d/%d sources verified (health %.1f)",
			netuid, health.VerifiedSources, health.TotalSources, health.HealthScore)
	}

	if err := p.artifacts.WriteJSON(artifact.Phase2Sources, verified); err != nil {
		return err
	}
	return p.artifacts.WriteJSON(artifact.Phase3Normalized, normalized)
}

// researchSubnets is phase 4: run the research and scoring agents over every
// subnet. Concurrency and pacing live in the coordinator; a subnet that
// fails is recorded as failed and the phase moves on.
func (p *Pipeline) researchSubnets(ctx context.Context) error {
	netuids := p.state.NetUIDs()

	var wg sync.WaitGroup
	for _, netuid := range netuids {
		state, exists := p.state.Get(netuid)
		if !exists {
			continue
		}

		input := research.Input{
			Subnet:  state.Subnet,
			Records: state.Records,
		}
		if state.Health != nil {
			input.Health = *state.Health
		}
		if state.Crawl != nil {
			input.Crawl = *state.Crawl
		}

		wg.Add(1)
		go func(netuid int, input research.Input) {
			defer wg.Done()

			analysis := p.coordinator.Analyze(ctx, input)
			p.state.SetAnalysis(netuid, analysis)

			if analysis.ResearchStatus == research.OpCompleted {
				p.tracker.IncrementResearchCompleted()
			} else {
				p.tracker.IncrementResearchFailed()
			}
			switch analysis.ScoringStatus {
			case research.OpCompleted:
				p.tracker.IncrementScoresComputed()
			case research.OpFailed:
				p.tracker.IncrementScoringFailed()
			}
		}(netuid, input)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}

	analyses := make([]research.Analysis, 0, len(netuids))
	for _, netuid := range netuids {
		state, exists := p.state.Get(netuid)
		if !exists || state.Analysis == nil {
			continue
		}
		analyses = append(analyses, *state.Analysis)
	}

	return p.artifacts.WriteJSON(artifact.Phase4Research, analyses)
}

// assembleDataset is phase 5: merge every phase's output into the final
// dashboard dataset, the complete cross-phase dump, and the daily snapshot.
func (p *Pipeline) assembleDataset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	now := time.Now()
	netuids := p.state.NetUIDs()

	records := make([]DashboardRecord, 0, len(netuids))
	complete := make([]completeRecord, 0, len(netuids))

	for _, netuid := range netuids {
		state, exists := p.state.Get(netuid)
		if !exists {
			continue
		}

		records = append(records, assembleRecord(state, now))
		complete = append(complete, completeRecord{
			Subnet:   state.Subnet,
			Crawl:    state.Crawl,
			Records:  state.Records,
			Health:   state.Health,
			Analysis: state.Analysis,
		})
	}

	p.tracker.SetRecordsAssembled(len(records))

	dataset := FinalDataset{
		Summary: summarizeRun(p.runID, records, p.state.FailedCount(), now),
		Subnets: records,
	}

	if err := p.artifacts.WriteJSON(artifact.FinalDataset, dataset); err != nil {
		return err
	}
	if err := p.artifacts.WriteJSON(artifact.CompleteDataset, complete); err != nil {
		return err
	}

	// Daily snapshot alongside the canonical name
	if err := p.artifacts.WriteJSON(artifact.SnapshotName(now), dataset); err != nil {
		return err
	}

	logrus.Infof("Assembled %d subnet records (%d scored, %d failed)",
		len(records), dataset.Summary.SubnetsScored, dataset.Summary.SubnetsFailed)

	return nil
}
