// Package history keeps a SQLite ledger of finished merge jobs so `stitch
// history` can show what was merged, where it went, and why a run failed.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by Get for unknown job IDs.
var ErrNotFound = errors.New("merge job not found")

// Entry is one recorded merge job.
type Entry struct {
	ID             string     `json:"id"`
	Folder         string     `json:"folder,omitempty"`
	Inputs         []string   `json:"inputs"`
	Output         string     `json:"output"`
	Command        string     `json:"command,omitempty"`
	Status         string     `json:"status"`
	Error          string     `json:"error,omitempty"`
	ExitCode       *int       `json:"exit_code,omitempty"`
	PredictedBytes int64      `json:"predicted_bytes"`
	OutputBytes    *int64     `json:"output_bytes,omitempty"`
	RetainedCount  int        `json:"retained_count"`
	RetainFailures int        `json:"retain_failures"`
	StartedAt      time.Time  `json:"started_at"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
}

// Duration is the wall time of a finished job.
func (e Entry) Duration() time.Duration {
	if e.FinishedAt == nil {
		return 0
	}
	return e.FinishedAt.Sub(e.StartedAt)
}

// Store manages history persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database and applies migrations.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("ensure history directory: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
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

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record inserts or replaces the entry with the same ID.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		return errors.New("history entry requires an id")
	}
	inputs, err := json.Marshal(e.Inputs)
	if err != nil {
		return fmt.Errorf("encode inputs: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO merge_jobs (
            id, folder, inputs_json, output, command, status, error_message, exit_code,
            predicted_bytes, output_bytes, retained_count, retain_failures, started_at, finished_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID,
		e.Folder,
		string(inputs),
		e.Output,
		e.Command,
		e.Status,
		nullableString(e.Error),
		nullableInt(e.ExitCode),
		e.PredictedBytes,
		nullableInt64(e.OutputBytes),
		e.RetainedCount,
		e.RetainFailures,
		e.StartedAt.UTC().Format(time.RFC3339Nano),
		nullableTime(e.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("record merge job %s: %w", e.ID, err)
	}
	return nil
}

// Recent returns up to limit entries, newest first. limit <= 0 returns all.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	query := selectColumns + ` ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Get returns the entry with id.
func (s *Store) Get(ctx context.Context, id string) (Entry, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return entry, err
}

// Prune deletes all but the newest keep entries and returns how many were removed.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM merge_jobs WHERE id NOT IN (
            SELECT id FROM merge_jobs ORDER BY started_at DESC LIMIT ?
        )`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	return res.RowsAffected()
}

const selectColumns = `SELECT id, folder, inputs_json, output, command, status, error_message, exit_code,
    predicted_bytes, output_bytes, retained_count, retain_failures, started_at, finished_at
    FROM merge_jobs`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var (
		e          Entry
		inputs     string
		errMsg     sql.NullString
		exitCode   sql.NullInt64
		outBytes   sql.NullInt64
		startedAt  string
		finishedAt sql.NullString
	)
	if err := row.Scan(&e.ID, &e.Folder, &inputs, &e.Output, &e.Command, &e.Status, &errMsg, &exitCode,
		&e.PredictedBytes, &outBytes, &e.RetainedCount, &e.RetainFailures, &startedAt, &finishedAt); err != nil {
		return Entry{}, err
	}
	if err := json.Unmarshal([]byte(inputs), &e.Inputs); err != nil {
		return Entry{}, fmt.Errorf("decode inputs for %s: %w", e.ID, err)
	}
	e.Error = errMsg.String
	if exitCode.Valid {
		code := int(exitCode.Int64)
		e.ExitCode = &code
	}
	if outBytes.Valid {
		size := outBytes.Int64
		e.OutputBytes = &size
	}
	started, err := time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return Entry{}, fmt.Errorf("parse started_at for %s: %w", e.ID, err)
	}
	e.StartedAt = started
	if finishedAt.Valid {
		finished, err := time.Parse(time.RFC3339Nano, finishedAt.String)
		if err != nil {
			return Entry{}, fmt.Errorf("parse finished_at for %s: %w", e.ID, err)
		}
		e.FinishedAt = &finished
	}
	return e, nil
}

func nullableString(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableTime(v *time.Time) any {
	if v == nil {
		return nil
	}
	return v.UTC().Format(time.RFC3339Nano)
}
