// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ledger persists acquisition outcomes in SQLite so later runs can
// skip identifiers already on disk and users can review past attempts.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paperfetch/pkg/types"
)

const defaultRecent = 20

// timeLayout is fixed-width so acquired_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store is the acquisition ledger.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the ledger database at path, creating parent
// directories and the schema as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating ledger directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS acquisitions (
			id TEXT PRIMARY KEY,
			run_id TEXT,
			query TEXT,
			identifier TEXT NOT NULL,
			title TEXT,
			status TEXT NOT NULL,
			reason TEXT,
			pdf_path TEXT,
			source_url TEXT,
			acquired_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_acquisitions_identifier ON acquisitions(identifier)`,
		`CREATE INDEX IF NOT EXISTS idx_acquisitions_run_id ON acquisitions(run_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// Record appends one outcome. A zero AcquiredAt is stamped with the
// current time.
func (s *Store) Record(ctx context.Context, p types.AcquiredPaper) error {
	if strings.TrimSpace(p.Identifier) == "" {
		return errors.New("recording acquisition: identifier is empty")
	}
	at := p.AcquiredAt
	if at.IsZero() {
		at = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO acquisitions (id, run_id, query, identifier, title, status, reason, pdf_path, source_url, acquired_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), p.RunID, p.Query, p.Identifier, p.Title, string(p.Status),
		p.Reason, p.PDFPath, p.SourceURL, at.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("recording acquisition of %s: %w", p.Identifier, err)
	}
	return nil
}

// LastSuccess returns the path of the most recent successful download of
// identifier.
func (s *Store) LastSuccess(ctx context.Context, identifier string) (string, bool, error) {
	var path string
	err := s.db.QueryRowContext(ctx,
		`SELECT pdf_path FROM acquisitions
		 WHERE identifier = ? AND status = ?
		 ORDER BY acquired_at DESC LIMIT 1`,
		identifier, string(types.StatusDownloaded),
	).Scan(&path)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("looking up %s: %w", identifier, err)
	}
	return path, path != "", nil
}

// Filter narrows Recent.
type Filter struct {
	RunID  string
	Status types.AcquisitionStatus
	Limit  int
}

// Recent returns the newest outcomes first.
func (s *Store) Recent(ctx context.Context, f Filter) ([]types.AcquiredPaper, error) {
	var conds []string
	var args []any
	if f.RunID != "" {
		conds = append(conds, "run_id = ?")
		args = append(args, f.RunID)
	}
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(f.Status))
	}
	limit := f.Limit
	if limit <= 0 {
		limit = defaultRecent
	}

	q := `SELECT run_id, query, identifier, title, status, reason, pdf_path, source_url, acquired_at FROM acquisitions`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY acquired_at DESC, rowid DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying acquisitions: %w", err)
	}
	defer rows.Close()

	var out []types.AcquiredPaper
	for rows.Next() {
		var p types.AcquiredPaper
		var runID, query, title, reason, path, srcURL sql.NullString
		var status, at string
		if err := rows.Scan(&runID, &query, &p.Identifier, &title, &status, &reason, &path, &srcURL, &at); err != nil {
			return nil, fmt.Errorf("scanning acquisition: %w", err)
		}
		p.RunID = runID.String
		p.Query = query.String
		p.Title = title.String
		p.Status = types.AcquisitionStatus(status)
		p.Reason = reason.String
		p.PDFPath = path.String
		p.SourceURL = srcURL.String
		if t, err := time.Parse(timeLayout, at); err == nil {
			p.AcquiredAt = t
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Counts tallies outcomes by status.
type Counts struct {
	Downloaded int
	Skipped    int
	Failed     int
}

// Total returns the number of recorded outcomes.
func (c Counts) Total() int {
	return c.Downloaded + c.Skipped + c.Failed
}

// Count tallies outcomes, optionally restricted to one run.
func (s *Store) Count(ctx context.Context, runID string) (Counts, error) {
	q := `SELECT status, count(*) FROM acquisitions`
	var args []any
	if runID != "" {
		q += ` WHERE run_id = ?`
		args = append(args, runID)
	}
	q += ` GROUP BY status`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return Counts{}, fmt.Errorf("counting acquisitions: %w", err)
	}
	defer rows.Close()

	var c Counts
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return Counts{}, fmt.Errorf("scanning count: %w", err)
		}
		switch types.AcquisitionStatus(status) {
		case types.StatusDownloaded:
			c.Downloaded = n
		case types.StatusSkipped:
			c.Skipped = n
		case types.StatusFailed:
			c.Failed = n
		}
	}
	return c, rows.Err()
}

// FormatTable writes outcomes as a human-readable table to w.
func FormatTable(papers []types.AcquiredPaper, w io.Writer) {
	if len(papers) == 0 {
		fmt.Fprintln(w, "No acquisitions recorded.")
		return
	}
	fmt.Fprintf(w, "%-20s  %-10s  %-18s  %-40s  %s\n", "When", "Status", "Reason", "Identifier", "Path")
	fmt.Fprintln(w, strings.Repeat("-", 110))
	for _, p := range papers {
		id := p.Identifier
		if len(id) > 40 {
			id = id[:37] + "..."
		}
		fmt.Fprintf(w, "%-20s  %-10s  %-18s  %-40s  %s\n",
			p.AcquiredAt.Local().Format("2006-01-02 15:04:05"), p.Status, p.Reason, id, p.PDFPath)
	}
}

// WriteYAML writes outcomes as a YAML list to w.
func WriteYAML(papers []types.AcquiredPaper, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(papers); err != nil {
		return fmt.Errorf("encoding history: %w", err)
	}
	return enc.Close()
}
