// Package history archives terminal job snapshots in SQLite.
//
// The live registry is in-memory only; this store exists for operators.
// Snapshots are written once when a job reaches a terminal status and are
// queried by the CLI for history listings and aggregate stats. Writes are
// best-effort from the orchestrator's point of view.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"platen/internal/jobs"
)

const schema = `
CREATE TABLE IF NOT EXISTS job_history (
    job_id        TEXT PRIMARY KEY,
    status        TEXT NOT NULL,
    input_path    TEXT NOT NULL,
    output_dir    TEXT NOT NULL,
    error_message TEXT,
    quality_score REAL,
    output_count  INTEGER NOT NULL DEFAULT 0,
    asset_count   INTEGER NOT NULL DEFAULT 0,
    stages_json   TEXT,
    created_at    TEXT NOT NULL,
    started_at    TEXT,
    completed_at  TEXT,
    duration_ms   INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_job_history_completed_at ON job_history(completed_at);
`

// Store manages the job archive backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Entry is one archived job row.
type Entry struct {
	JobID        string
	Status       jobs.Status
	InputPath    string
	OutputDir    string
	ErrorMessage string
	QualityScore *float64
	OutputCount  int
	AssetCount   int
	CreatedAt    time.Time
	CompletedAt  *time.Time
	Duration     time.Duration
}

// Open initializes or connects to the archive database.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure history directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record archives a terminal job snapshot. Re-recording the same job ID
// replaces the row.
func (s *Store) Record(ctx context.Context, job *jobs.Job) error {
	if !job.IsTerminal() {
		return fmt.Errorf("job %s is not terminal", job.ID)
	}

	stageSummaries := make([]map[string]any, 0, len(job.Stages))
	for _, rec := range job.Stages {
		stageSummaries = append(stageSummaries, map[string]any{
			"name":   rec.Name,
			"status": string(rec.Status),
			"error":  rec.ErrorMessage,
		})
	}
	stagesJSON, err := json.Marshal(stageSummaries)
	if err != nil {
		return fmt.Errorf("marshal stage summaries: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
        INSERT OR REPLACE INTO job_history (
            job_id, status, input_path, output_dir, error_message,
            quality_score, output_count, asset_count, stages_json,
            created_at, started_at, completed_at, duration_ms
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID,
		string(job.Status),
		job.InputPath,
		job.OutputDir,
		nullableString(job.ErrorMessage),
		job.QualityScore,
		len(job.OutputFiles),
		len(job.Assets),
		string(stagesJSON),
		job.CreatedAt.Format(time.RFC3339Nano),
		nullableTime(job.StartedAt),
		nullableTime(job.CompletedAt),
		job.Duration().Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert history row: %w", err)
	}
	return nil
}

// List returns archived jobs newest-first, up to limit.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT job_id, status, input_path, output_dir, error_message,
               quality_score, output_count, asset_count,
               created_at, completed_at, duration_ms
        FROM job_history
        ORDER BY completed_at DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var status, createdAt string
		var errorMessage, completedAt sql.NullString
		var quality sql.NullFloat64
		var durationMS int64
		if err := rows.Scan(
			&entry.JobID, &status, &entry.InputPath, &entry.OutputDir,
			&errorMessage, &quality, &entry.OutputCount, &entry.AssetCount,
			&createdAt, &completedAt, &durationMS,
		); err != nil {
			return nil, err
		}
		entry.Status = jobs.Status(status)
		entry.ErrorMessage = errorMessage.String
		if quality.Valid {
			v := quality.Float64
			entry.QualityScore = &v
		}
		if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			entry.CreatedAt = ts
		}
		if completedAt.Valid {
			if ts, err := time.Parse(time.RFC3339Nano, completedAt.String); err == nil {
				entry.CompletedAt = &ts
			}
		}
		entry.Duration = time.Duration(durationMS) * time.Millisecond
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Stats returns archived job counts grouped by status.
func (s *Store) Stats(ctx context.Context) (map[jobs.Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM job_history GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("history stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[jobs.Status]int)
	for rows.Next() {
		var status jobs.Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.Format(time.RFC3339Nano)
}
