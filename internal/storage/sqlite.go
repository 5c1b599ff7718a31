// Package storage provides SQLite-based persistence for run summaries.
// Uses the pure-Go modernc.org/sqlite driver to avoid CGO dependencies.
package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// Store manages the SQLite database connection for run history.
type Store struct {
	db *sql.DB
}

// RunSummary is one recorded headless run of a layout.
type RunSummary struct {
	ID         int64
	RunID      string
	LayoutID   string
	Seed       int64
	Resumed    bool   // Run continued from a snapshot
	StartTick  uint64 // Simulation tick the run started at
	Ticks      uint64 // Simulation tick the run ended at
	Delivered  int
	Transfers  int
	Teleports  int
	Orphaned   int
	Stalls     map[string]int
	Throughput float64 // Delivered items per 1000 ticks
	MeanHeld   float64
	CreatedAt  time.Time
}

// StallCount returns the total number of stall events of the run.
func (r RunSummary) StallCount() int {
	n := 0
	for _, v := range r.Stalls {
		n += v
	}
	return n
}

// Open creates or opens a SQLite database at the given path.
// It creates the parent directories if needed and runs migrations.
func Open(dbPath string) (*Store, error) {
	// Expand ~ to home directory
	if dbPath != "" && dbPath[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("storage: cannot expand home directory: %w", err)
		}
		dbPath = filepath.Join(home, dbPath[1:])
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: cannot create directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: cannot connect to database: %w", err)
	}

	store := &Store{db: db}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: migration failed: %w", err)
	}

	return store, nil
}

// migrate creates the database schema if it doesn't exist.
func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL UNIQUE,
			layout_id TEXT NOT NULL,
			seed INTEGER NOT NULL DEFAULT 0,
			resumed INTEGER NOT NULL DEFAULT 0,
			start_tick INTEGER NOT NULL DEFAULT 0,
			ticks INTEGER NOT NULL,
			delivered INTEGER NOT NULL DEFAULT 0,
			transfers INTEGER NOT NULL DEFAULT 0,
			teleports INTEGER NOT NULL DEFAULT 0,
			orphaned INTEGER NOT NULL DEFAULT 0,
			stalls TEXT NOT NULL DEFAULT '{}',
			throughput REAL NOT NULL DEFAULT 0,
			mean_held REAL NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_runs_layout_id ON runs(layout_id);
		CREATE INDEX IF NOT EXISTS idx_runs_best ON runs(layout_id, throughput DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

const runColumns = `id, run_id, layout_id, seed, resumed, start_tick, ticks, delivered,
		        transfers, teleports, orphaned, stalls, throughput, mean_held, created_at`

// SaveRun records a run summary. RunID must be unique.
// Returns the ID of the inserted record.
func (s *Store) SaveRun(run RunSummary) (int64, error) {
	if run.RunID == "" {
		return 0, fmt.Errorf("storage: run has no id")
	}
	stalls, err := json.Marshal(run.Stalls)
	if err != nil {
		return 0, fmt.Errorf("storage: cannot encode stalls: %w", err)
	}
	if run.Stalls == nil {
		stalls = []byte("{}")
	}
	resumed := 0
	if run.Resumed {
		resumed = 1
	}

	result, err := s.db.Exec(
		`INSERT INTO runs
		 (run_id, layout_id, seed, resumed, start_tick, ticks, delivered, transfers, teleports, orphaned, stalls, throughput, mean_held)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID,
		run.LayoutID,
		run.Seed,
		resumed,
		int64(run.StartTick),
		int64(run.Ticks),
		run.Delivered,
		run.Transfers,
		run.Teleports,
		run.Orphaned,
		string(stalls),
		run.Throughput,
		run.MeanHeld,
	)
	if err != nil {
		return 0, fmt.Errorf("storage: cannot save run: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("storage: cannot get inserted ID: %w", err)
	}

	return id, nil
}

// RunByID retrieves a run by its run ID. Returns nil if it does not exist.
func (s *Store) RunByID(runID string) (*RunSummary, error) {
	row := s.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query run: %w", err)
	}
	return run, nil
}

// RecentRuns retrieves the most recent runs of a layout, newest first.
func (s *Store) RecentRuns(layoutID string, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.Query(
		`SELECT `+runColumns+`
		 FROM runs
		 WHERE layout_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		layoutID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		runs = append(runs, *run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}

	return runs, nil
}

// BestThroughput returns the highest throughput recorded for a layout.
// Returns 0 if no runs exist.
func (s *Store) BestThroughput(layoutID string) (float64, error) {
	var best sql.NullFloat64
	err := s.db.QueryRow(
		"SELECT MAX(throughput) FROM runs WHERE layout_id = ?",
		layoutID,
	).Scan(&best)

	if err != nil {
		return 0, fmt.Errorf("storage: cannot query best throughput: %w", err)
	}

	if !best.Valid {
		return 0, nil
	}

	return best.Float64, nil
}

// ClearRuns deletes all runs of the given layout.
func (s *Store) ClearRuns(layoutID string) error {
	_, err := s.db.Exec("DELETE FROM runs WHERE layout_id = ?", layoutID)
	if err != nil {
		return fmt.Errorf("storage: cannot clear runs: %w", err)
	}
	return nil
}

// LayoutStats contains aggregated statistics for a layout.
type LayoutStats struct {
	LayoutID       string
	Runs           int
	BestThroughput float64
	AvgThroughput  float64
	TotalDelivered int64
	LastRun        time.Time
}

// GetLayoutStats retrieves aggregated statistics for a specific layout.
func (s *Store) GetLayoutStats(layoutID string) (*LayoutStats, error) {
	stats := &LayoutStats{LayoutID: layoutID}

	var lastRun any
	err := s.db.QueryRow(
		`SELECT COUNT(*), COALESCE(MAX(throughput), 0), COALESCE(AVG(throughput), 0),
		        COALESCE(SUM(delivered), 0), MAX(created_at)
		 FROM runs WHERE layout_id = ?`,
		layoutID,
	).Scan(&stats.Runs, &stats.BestThroughput, &stats.AvgThroughput, &stats.TotalDelivered, &lastRun)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot get layout stats: %w", err)
	}
	stats.LastRun = parseTime(lastRun)

	return stats, nil
}

// GetAllLayoutStats retrieves statistics for every layout that has runs.
func (s *Store) GetAllLayoutStats() (map[string]*LayoutStats, error) {
	rows, err := s.db.Query(
		`SELECT layout_id, COUNT(*), MAX(throughput), AVG(throughput), SUM(delivered), MAX(created_at)
		 FROM runs
		 GROUP BY layout_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot get all layout stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]*LayoutStats)
	for rows.Next() {
		var ls LayoutStats
		var lastRun any
		if err := rows.Scan(&ls.LayoutID, &ls.Runs, &ls.BestThroughput, &ls.AvgThroughput, &ls.TotalDelivered, &lastRun); err != nil {
			return nil, fmt.Errorf("storage: cannot scan stats row: %w", err)
		}
		ls.LastRun = parseTime(lastRun)
		stats[ls.LayoutID] = &ls
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}

	return stats, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*RunSummary, error) {
	var run RunSummary
	var startTick, ticks int64
	var resumed int
	var stalls string
	var createdAt any

	if err := sc.Scan(
		&run.ID,
		&run.RunID,
		&run.LayoutID,
		&run.Seed,
		&resumed,
		&startTick,
		&ticks,
		&run.Delivered,
		&run.Transfers,
		&run.Teleports,
		&run.Orphaned,
		&stalls,
		&run.Throughput,
		&run.MeanHeld,
		&createdAt,
	); err != nil {
		return nil, err
	}

	run.Resumed = resumed != 0
	run.StartTick = uint64(startTick)
	run.Ticks = uint64(ticks)
	if stalls != "" && stalls != "{}" {
		if err := json.Unmarshal([]byte(stalls), &run.Stalls); err != nil {
			return nil, fmt.Errorf("decode stalls: %w", err)
		}
	}
	run.CreatedAt = parseTime(createdAt)

	return &run, nil
}

// parseTime handles the datetime both as time.Time and as a string.
func parseTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		if parsed, err := time.Parse("2006-01-02 15:04:05", t); err == nil {
			return parsed
		}
	}
	return time.Time{}
}
