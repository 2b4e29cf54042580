// Package history keeps a SQLite ledger of crawl runs and the URLs that
// failed in them. It is write-mostly: crawls never read it back.
package history

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// ErrRunNotFound is returned for unknown run IDs.
var ErrRunNotFound = errors.New("run not found")

// RunStore manages the run ledger using SQLite.
type RunStore struct {
	db *sql.DB
}

// Run is one crawl run.
type Run struct {
	RunID      uuid.UUID  `json:"run_id"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Pages      int        `json:"pages"`
	Links      int        `json:"links"`
	Articles   int        `json:"articles"`
	Failures   int        `json:"failures"`
	OutputPath *string    `json:"output_path,omitempty"`
}

// IsFinished reports whether FinishRun was called for the run.
func (r *Run) IsFinished() bool {
	return r.FinishedAt != nil
}

// Summary is what a finished run reports.
type Summary struct {
	Pages      int
	Links      int
	Articles   int
	Failures   int
	OutputPath string
}

// Failure is one URL that could not be scraped during a run.
type Failure struct {
	RunID   uuid.UUID `json:"run_id"`
	URL     string    `json:"url"`
	Kind    string    `json:"kind"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// NewRunStore opens (and if needed creates) the ledger at dbPath.
func NewRunStore(dbPath string) (*RunStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &RunStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates the tables if they don't exist.
func (s *RunStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		pages INTEGER DEFAULT 0,
		links INTEGER DEFAULT 0,
		articles INTEGER DEFAULT 0,
		failures INTEGER DEFAULT 0,
		output_path TEXT
	);
	CREATE TABLE IF NOT EXISTS failures (
		run_id TEXT NOT NULL REFERENCES runs(run_id),
		url TEXT NOT NULL,
		kind TEXT NOT NULL,
		message TEXT NOT NULL,
		at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS failures_run_id ON failures(run_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *RunStore) Close() error {
	return s.db.Close()
}

// StartRun inserts a new unfinished run.
func (s *RunStore) StartRun() (*Run, error) {
	run := &Run{
		RunID:     uuid.New(),
		StartedAt: time.Now().Truncate(0),
	}

	_, err := s.db.Exec(
		"INSERT INTO runs (run_id, started_at) VALUES (?, ?)",
		run.RunID.String(),
		formatTime(&run.StartedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert run: %w", err)
	}

	return run, nil
}

// FinishRun stores the summary of a run and marks it finished.
func (s *RunStore) FinishRun(runID uuid.UUID, summary Summary) error {
	now := time.Now()

	var outputPath any
	if summary.OutputPath != "" {
		outputPath = summary.OutputPath
	}

	res, err := s.db.Exec(`
		UPDATE runs
		SET finished_at = ?, pages = ?, links = ?, articles = ?, failures = ?, output_path = ?
		WHERE run_id = ?
	`,
		formatTime(&now),
		summary.Pages,
		summary.Links,
		summary.Articles,
		summary.Failures,
		outputPath,
		runID.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return ErrRunNotFound
	}

	return nil
}

// RecordFailures stores the failures of a run in one transaction.
func (s *RunStore) RecordFailures(runID uuid.UUID, failures []Failure) error {
	if len(failures) == 0 {
		return nil
	}

	if _, err := s.GetRun(runID); err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare("INSERT INTO failures (run_id, url, kind, message, at) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, f := range failures {
		at := f.At
		if at.IsZero() {
			at = time.Now()
		}
		if _, err := stmt.Exec(runID.String(), f.URL, f.Kind, f.Message, formatTime(&at)); err != nil {
			return fmt.Errorf("failed to insert failure: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit failures: %w", err)
	}

	return nil
}

// GetRun retrieves a run by ID.
func (s *RunStore) GetRun(runID uuid.UUID) (*Run, error) {
	query := `
		SELECT run_id, started_at, finished_at, pages, links, articles, failures, output_path
		FROM runs
		WHERE run_id = ?
	`

	run, err := scanRun(s.db.QueryRow(query, runID.String()))
	if err == sql.ErrNoRows {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}

	return run, nil
}

// ListRuns returns the most recent runs first. A limit of zero or less
// returns every run.
func (s *RunStore) ListRuns(limit int) ([]Run, error) {
	query := `
		SELECT run_id, started_at, finished_at, pages, links, articles, failures, output_path
		FROM runs
		ORDER BY started_at DESC, rowid DESC
	`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}

	return runs, rows.Err()
}

// ListFailures returns the failures of one run in insertion order.
func (s *RunStore) ListFailures(runID uuid.UUID) ([]Failure, error) {
	rows, err := s.db.Query(
		"SELECT url, kind, message, at FROM failures WHERE run_id = ? ORDER BY rowid",
		runID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query failures: %w", err)
	}
	defer rows.Close()

	failures := []Failure{}
	for rows.Next() {
		var url, kind, message, atStr string
		if err := rows.Scan(&url, &kind, &message, &atStr); err != nil {
			return nil, fmt.Errorf("failed to scan failure: %w", err)
		}
		failures = append(failures, Failure{
			RunID:   runID,
			URL:     url,
			Kind:    kind,
			Message: message,
			At:      parseTime(atStr),
		})
	}

	return failures, rows.Err()
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var runIDStr, startedAtStr string
	var finishedAtStr, outputPath sql.NullString
	var pages, links, articles, failures int

	err := row.Scan(&runIDStr, &startedAtStr, &finishedAtStr, &pages, &links, &articles, &failures, &outputPath)
	if err != nil {
		return nil, err
	}

	runID, err := uuid.Parse(runIDStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse run ID: %w", err)
	}

	run := &Run{
		RunID:     runID,
		StartedAt: parseTime(startedAtStr),
		Pages:     pages,
		Links:     links,
		Articles:  articles,
		Failures:  failures,
	}

	if finishedAtStr.Valid {
		t := parseTime(finishedAtStr.String)
		run.FinishedAt = &t
	}
	if outputPath.Valid {
		run.OutputPath = &outputPath.String
	}

	return run, nil
}

const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	// Fixed-width UTC so that stored values sort chronologically
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339, s)
	}
	return t.Truncate(0)
}
