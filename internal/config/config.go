package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config holds all runtime configuration parameters
type Config struct {
	TaostatsBaseURL   string `json:"taostats_base_url"`
	OutputDir         string `json:"output_dir"`
	DBPath            string `json:"db_path"`
	MetricsPath       string `json:"metrics_path"`
	RequestTimeoutMs  int    `json:"request_timeout_ms"`
	RetryAttempts     int    `json:"retry_attempts"`
	RetryDelayMs      int    `json:"retry_delay_ms"`
	CrawlWorkers      int    `json:"crawl_workers"`
	MaxPagesPerSubnet int    `json:"max_pages_per_subnet"`
	AgentModel        string `json:"agent_model"`
	AgentConcurrency  int    `json:"agent_concurrency"`
	AgentDelayMs      int    `json:"agent_delay_ms"`
	AgentTimeoutMs    int    `json:"agent_timeout_ms"`
	GlobalTimeoutMin  int    `json:"global_timeout_min"`

	// Secrets come from the environment, never the config file
	TaostatsAPIKey string `json:"-"`
	GeminiAPIKey   string `json:"-"`
}

// LoadConfig reads and validates configuration from a JSON file. A missing
// file is not an error: the pipeline runs on defaults plus environment
// variables.
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	file, err := os.Open(path)
	if err == nil {
		defer file.Close()
		decoder := json.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}

	// Apply defaults for missing values
	applyDefaults(&cfg)

	cfg.TaostatsAPIKey = os.Getenv("TAOSTATS_API_KEY")
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")

	// Validate configuration
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for unspecified fields
func applyDefaults(cfg *Config) {
	if cfg.TaostatsBaseURL == "" {
		cfg.TaostatsBaseURL = "https://api.taostats.io/api"
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "pipeline_output"
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "pipeline.db"
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "metrics.json"
	}
	if cfg.RequestTimeoutMs == 0 {
		cfg.RequestTimeoutMs = 10000
	}
	if cfg.RetryAttempts == 0 {
		cfg.RetryAttempts = 3
	}
	if cfg.RetryDelayMs == 0 {
		cfg.RetryDelayMs = 2000
	}
	if cfg.CrawlWorkers == 0 {
		cfg.CrawlWorkers = 3
	}
	if cfg.MaxPagesPerSubnet == 0 {
		cfg.MaxPagesPerSubnet = 3
	}
	if cfg.AgentModel == "" {
		cfg.AgentModel = "gemini-2.0-flash"
	}
	if cfg.AgentConcurrency == 0 {
		cfg.AgentConcurrency = 2
	}
	if cfg.AgentDelayMs == 0 {
		cfg.AgentDelayMs = 2000
	}
	if cfg.AgentTimeoutMs == 0 {
		cfg.AgentTimeoutMs = 120000
	}
	if cfg.GlobalTimeoutMin == 0 {
		cfg.GlobalTimeoutMin = 120
	}
}

// validate checks that required fields are present and values are sensible
func validate(cfg *Config) error {
	if cfg.OutputDir == "" {
		return fmt.Errorf("output_dir is required")
	}
	if cfg.RequestTimeoutMs < 1000 {
		return fmt.Errorf("request_timeout_ms must be >= 1000")
	}
	if cfg.RetryAttempts < 1 {
		return fmt.Errorf("retry_attempts must be >= 1")
	}
	if cfg.CrawlWorkers < 1 {
		return fmt.Errorf("crawl_workers must be >= 1")
	}
	if cfg.MaxPagesPerSubnet < 1 {
		return fmt.Errorf("max_pages_per_subnet must be >= 1")
	}
	if cfg.AgentConcurrency < 1 {
		return fmt.Errorf("agent_concurrency must be >= 1")
	}
	return nil
}
