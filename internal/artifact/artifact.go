// Package artifact persists per-phase pipeline output as durable JSON files.
// Writes go to a temp file and are renamed into place, so a crashed run can
// never leave a half-written canonical artifact.
package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

// Canonical artifact filenames, one per phase.
const (
	Phase1Metadata   = "phase_1_taostats_data.json"
	Phase2Sources    = "phase_2_verified_sources.json"
	Phase3Normalized = "phase_3_normalized_data.json"
	Phase4Research   = "phase_4_research_scores.json"
	FinalDataset     = "final_subnet_analysis.json"
	CompleteDataset  = "complete_subnet_data.json"
)

// Store reads and writes JSON artifacts under one output directory.
type Store struct {
	dir string
}

// NewStore creates the output directory if needed and returns a store for it.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the store's output directory.
func (s *Store) Dir() string { return s.dir }

// Path returns the absolute path of a named artifact.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// WriteJSON marshals v and atomically replaces the named artifact.
func (s *Store) WriteJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}

	target := s.Path(name)
	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", name, err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close temp file for %s: %w", name, err)
	}

	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace %s: %w", name, err)
	}

	logrus.Debugf("Wrote artifact %s (%d bytes)", target, len(data))
	return nil
}

// ReadJSON loads the named artifact into v.
func (s *Store) ReadJSON(name string, v any) error {
	data, err := os.ReadFile(s.Path(name))
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return nil
}

// SnapshotName returns the dated snapshot filename for the given run day.
// Re-running on the same calendar day overwrites that day's snapshot only.
func SnapshotName(t time.Time) string {
	return fmt.Sprintf("subnet_data_%s.json", t.Format("2006-01-02"))
}
