// Package history records every pipeline stage execution in a local SQLite
// database so past runs can be inspected after the fact. The pipeline state
// store keeps only the latest record per stage; this store is append-only.
package history

import (
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Run is one recorded stage execution.
type Run struct {
	ID         string
	Document   string
	Command    string
	Violations int
	Warnings   int
	Passed     bool
	CreatedAt  time.Time
}

// Store manages the SQLite run-history database.
type Store struct {
	db     *sql.DB
	dbPath string
}

// NewStore opens (creating if needed) the database at dbPath and ensures the
// schema exists. ":memory:" is supported for tests.
func NewStore(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// busy_timeout must come first so the remaining pragmas wait on locks
	// held by concurrent invocations of the same database file.
	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if err := execWithRetry(db, pragma, 5, 10*time.Millisecond); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db, dbPath: dbPath}, nil
}

// execWithRetry executes a SQL statement with exponential backoff retry on
// "database is locked" errors.
func execWithRetry(db *sql.DB, stmt string, maxRetries int, baseDelay time.Duration) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := db.Exec(stmt)
		if err == nil {
			return nil
		}
		if !strings.Contains(err.Error(), "database is locked") {
			return err
		}
		lastErr = err
		time.Sleep(baseDelay * time.Duration(1<<attempt))
	}
	return lastErr
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// RecordRun inserts a run row. A fresh run ID is assigned when r.ID is empty;
// the assigned ID is returned.
func (s *Store) RecordRun(r Run) (string, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.Exec(
		`INSERT INTO runs (id, document, command, violations, warnings, passed, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Document, r.Command, r.Violations, r.Warnings, boolToInt(r.Passed), r.CreatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("record run: %w", err)
	}
	return r.ID, nil
}

// ListRuns returns up to limit runs, newest first. When document is non-empty
// only runs for that document are returned.
func (s *Store) ListRuns(document string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT id, document, command, violations, warnings, passed, created_at
	          FROM runs`
	args := []interface{}{}
	if document != "" {
		query += ` WHERE document = ?`
		args = append(args, document)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var passed int
		if err := rows.Scan(&r.ID, &r.Document, &r.Command, &r.Violations, &r.Warnings, &passed, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Passed = passed != 0
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// DocumentStats summarizes recorded runs for one document.
type DocumentStats struct {
	TotalRuns  int
	PassedRuns int
	LastRun    time.Time
}

// Stats returns aggregate counts for a document. A document with no runs
// yields zero stats, not an error.
func (s *Store) Stats(document string) (DocumentStats, error) {
	var stats DocumentStats

	err := s.db.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(passed), 0)
		 FROM runs WHERE document = ?`,
		document,
	).Scan(&stats.TotalRuns, &stats.PassedRuns)
	if err != nil {
		return stats, fmt.Errorf("document stats: %w", err)
	}

	// MAX(created_at) would drop the column's declared type, so fetch the
	// newest row's timestamp directly.
	var last time.Time
	err = s.db.QueryRow(
		`SELECT created_at FROM runs WHERE document = ?
		 ORDER BY created_at DESC LIMIT 1`,
		document,
	).Scan(&last)
	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		return stats, fmt.Errorf("last run: %w", err)
	default:
		stats.LastRun = last
	}
	return stats, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
