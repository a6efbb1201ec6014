package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Storage records pipeline runs and per-subnet phase outcomes for audit and
// resume inspection
type Storage struct {
	db *sql.DB
}

// NewStorage creates a new Storage instance, opening/creating the DB and initializing schema
func NewStorage(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	storage := &Storage{db: db}

	// Initialize schema
	if err := storage.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

// initSchema creates tables and indices if they don't exist
func (s *Storage) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS pipeline_runs (
		run_id TEXT PRIMARY KEY,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP,
		status TEXT NOT NULL DEFAULT 'running',
		subnets_total INTEGER DEFAULT 0,
		subnets_failed INTEGER DEFAULT 0,
		output_dir TEXT
	);

	CREATE TABLE IF NOT EXISTS subnet_results (
		run_id TEXT NOT NULL,
		netuid INTEGER NOT NULL,
		name TEXT,
		crawl_status TEXT,
		health_score REAL DEFAULT 0,
		research_status TEXT,
		scoring_status TEXT,
		overall_score REAL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (run_id, netuid),
		FOREIGN KEY (run_id) REFERENCES pipeline_runs(run_id)
	);

	CREATE INDEX IF NOT EXISTS idx_subnet_results_netuid ON subnet_results(netuid);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON pipeline_runs(started_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// BeginRun records the start of a pipeline run
func (s *Storage) BeginRun(runID, outputDir string, startedAt time.Time) error {
	_, err := s.db.Exec(`
		INSERT INTO pipeline_runs (run_id, started_at, status, output_dir)
		VALUES (?, ?, 'running', ?)
	`, runID, startedAt, outputDir)

	if err != nil {
		return fmt.Errorf("failed to record run start: %w", err)
	}
	return nil
}

// FinishRun records the outcome of a pipeline run
func (s *Storage) FinishRun(runID, status string, total, failed int) error {
	_, err := s.db.Exec(`
		UPDATE pipeline_runs
		SET finished_at = ?, status = ?, subnets_total = ?, subnets_failed = ?
		WHERE run_id = ?
	`, time.Now().UTC(), status, total, failed, runID)

	if err != nil {
		return fmt.Errorf("failed to record run finish: %w", err)
	}
	return nil
}

// UpsertSubnetResult inserts or updates the audit row for one subnet in one
// run. Later phases overwrite only the fields they own.
func (s *Storage) UpsertSubnetResult(result SubnetResult) error {
	_, err := s.db.Exec(`
		INSERT INTO subnet_results
			(run_id, netuid, name, crawl_status, health_score, research_status, scoring_status, overall_score, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(run_id, netuid) DO UPDATE SET
			name = EXCLUDED.name,
			crawl_status = COALESCE(NULLIF(EXCLUDED.crawl_status, ''), subnet_results.crawl_status),
			health_score = EXCLUDED.health_score,
			research_status = COALESCE(NULLIF(EXCLUDED.research_status, ''), subnet_results.research_status),
			scoring_status = COALESCE(NULLIF(EXCLUDED.scoring_status, ''), subnet_results.scoring_status),
			overall_score = COALESCE(EXCLUDED.overall_score, subnet_results.overall_score),
			updated_at = CURRENT_TIMESTAMP
	`, result.RunID, result.NetUID, result.Name, result.CrawlStatus, result.HealthScore,
		result.ResearchStatus, result.ScoringStatus, result.OverallScore)

	if err != nil {
		return fmt.Errorf("failed to upsert subnet result: %w", err)
	}
	return nil
}

// GetRun retrieves a run by id, returns nil if not found
func (s *Storage) GetRun(runID string) (*Run, error) {
	var run Run
	var finished sql.NullTime
	err := s.db.QueryRow(`
		SELECT run_id, started_at, finished_at, status, subnets_total, subnets_failed, output_dir
		FROM pipeline_runs
		WHERE run_id = ?
	`, runID).Scan(&run.RunID, &run.StartedAt, &finished, &run.Status,
		&run.SubnetsTotal, &run.SubnetsFailed, &run.OutputDir)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	if finished.Valid {
		run.FinishedAt = &finished.Time
	}
	return &run, nil
}

// LoadRunResults returns all per-subnet rows for a run, ordered by netuid
func (s *Storage) LoadRunResults(runID string) ([]SubnetResult, error) {
	rows, err := s.db.Query(`
		SELECT run_id, netuid, name, crawl_status, health_score,
		       research_status, scoring_status, overall_score, updated_at
		FROM subnet_results
		WHERE run_id = ?
		ORDER BY netuid ASC
	`, runID)

	if err != nil {
		return nil, fmt.Errorf("failed to load run results: %w", err)
	}
	defer rows.Close()

	var results []SubnetResult
	for rows.Next() {
		var result SubnetResult
		var overall sql.NullFloat64
		if err := rows.Scan(&result.RunID, &result.NetUID, &result.Name, &result.CrawlStatus,
			&result.HealthScore, &result.ResearchStatus, &result.ScoringStatus,
			&overall, &result.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan subnet result: %w", err)
		}
		if overall.Valid {
			value := overall.Float64
			result.OverallScore = &value
		}
		results = append(results, result)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating subnet results: %w", err)
	}

	return results, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}
