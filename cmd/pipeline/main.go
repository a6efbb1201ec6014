package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/allanbellahsene/tao-galaxy-pipeline/internal/config"
	"github.com/allanbellahsene/tao-galaxy-pipeline/internal/metrics"
	"github.com/allanbellahsene/tao-galaxy-pipeline/internal/pipeline"
	"github.com/allanbellahsene/tao-galaxy-pipeline/internal/research"
	"github.com/allanbellahsene/tao-galaxy-pipeline/internal/storage"
	"github.com/allanbellahsene/tao-galaxy-pipeline/internal/version"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configPath string
	outputDir  string
	netuids    []int
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Automated subnet research and verification pipeline",
		Long: `Fetches subnet metadata from the taostats registry, crawls declared
websites, cross-checks published links, runs agent-driven research and
scoring, and assembles a dashboard-ready dataset.`,
		Version: version.Version,
		RunE:    run,
	}

	rootCmd.Flags().StringVarP(&configPath, "config", "c", "config.json", "path to config file")
	rootCmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "override output directory")
	rootCmd.Flags().IntSliceVarP(&netuids, "subnets", "s", nil, "netuids to process (default: all)")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	// Configure logging
	logrus.SetLevel(logrus.InfoLevel)
	if verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	logrus.Infof("Subnet pipeline v%s starting...", version.Version)

	// Load configuration
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	if outputDir != "" {
		cfg.OutputDir = outputDir
	}

	logrus.Infof("Configuration loaded: output=%s, crawl_workers=%d, agent_model=%s",
		cfg.OutputDir, cfg.CrawlWorkers, cfg.AgentModel)

	// Cancel the run on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize storage
	store, err := storage.NewStorage(cfg.DBPath)
	if err != nil {
		logrus.Fatalf("Failed to initialize storage: %v", err)
	}
	defer store.Close()

	logrus.Infof("Database initialized: %s", cfg.DBPath)

	// Initialize metrics tracker
	tracker := metrics.NewTracker()

	// Initialize research agent
	agent, err := research.NewGeminiAgent(ctx, cfg.GeminiAPIKey, cfg.AgentModel)
	if err != nil {
		logrus.Fatalf("Failed to initialize research agent: %v", err)
	}

	// Build the pipeline
	p, err := pipeline.New(cfg, agent, store, tracker, netuids)
	if err != nil {
		logrus.Fatalf("Failed to build pipeline: %v", err)
	}

	logrus.Infof("Run %s starting", p.RunID())

	// Start progress logger
	stopProgress := make(chan struct{})
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				logrus.Info(tracker.LogProgress())
			case <-stopProgress:
				return
			}
		}
	}()

	// Run all phases
	runErr := p.Run(ctx)
	close(stopProgress)

	terminationReason := "completed"
	if runErr != nil {
		if ctx.Err() != nil {
			terminationReason = "signal"
		} else {
			terminationReason = "phase_failure"
		}
		logrus.Errorf("Pipeline run failed: %v", runErr)
	}

	// Final progress log
	logrus.Info("Final stats: " + tracker.LogProgress())

	// Write metrics to file
	if err := tracker.WriteToFile(cfg.MetricsPath, terminationReason); err != nil {
		logrus.Errorf("Failed to write metrics: %v", err)
	} else {
		logrus.Infof("Metrics written to %s", cfg.MetricsPath)
	}

	if runErr != nil {
		os.Exit(1)
	}

	logrus.Infof("Run %s complete. Output in %s", p.RunID(), cfg.OutputDir)
	return nil
}
