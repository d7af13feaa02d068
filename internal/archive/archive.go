package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/golang/snappy"
	_ "github.com/mattn/go-sqlite3"

	"github.com/openeurope/energyaudit/pkg/types"
)

// ErrNotFound is returned when no run with the requested ID is archived.
var ErrNotFound = errors.New("archive: run not found")

var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id          TEXT PRIMARY KEY,
		input       TEXT NOT NULL,
		finished_at INTEGER NOT NULL,
		run_json    TEXT NOT NULL,
		report      BLOB
	)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_finished_at ON runs(finished_at)`,
}

// Archive is a SQLite-backed run archive. It is safe for concurrent use.
type Archive struct {
	db *sql.DB
	mu sync.Mutex // single writer
}

// Open opens (creating if needed) the archive database at path.
func Open(path string) (*Archive, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("archive: open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("archive: initialize schema: %w", err)
		}
	}
	return &Archive{db: db}, nil
}

// Close closes the database.
func (a *Archive) Close() error {
	return a.db.Close()
}

// Save stores run and its rendered report, replacing any run with the same ID.
func (a *Archive) Save(ctx context.Context, run *types.Run, report []byte) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("archive: encode run %s: %w", run.ID, err)
	}
	var blob interface{} // NULL when there is no report
	if report != nil {
		blob = snappy.Encode(nil, report)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	_, err = a.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs (id, input, finished_at, run_json, report) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.Input, nanos(run.FinishedAt), string(data), blob)
	if err != nil {
		return fmt.Errorf("archive: insert run %s: %w", run.ID, err)
	}
	return nil
}

// Recent returns the runs that finished at or after since, newest first.
func (a *Archive) Recent(ctx context.Context, since time.Time) ([]*types.Run, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT run_json FROM runs WHERE finished_at >= ? ORDER BY finished_at DESC, id`,
		nanos(since))
	if err != nil {
		return nil, fmt.Errorf("archive: query runs: %w", err)
	}
	defer rows.Close()

	var out []*types.Run
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("archive: scan run: %w", err)
		}
		run := &types.Run{}
		if err := json.Unmarshal([]byte(data), run); err != nil {
			return nil, fmt.Errorf("archive: decode run: %w", err)
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("archive: iterate runs: %w", err)
	}
	return out, nil
}

// Report returns the report archived with run id.
// It returns ErrNotFound when the run is unknown or was saved without one.
func (a *Archive) Report(ctx context.Context, id string) ([]byte, error) {
	var blob []byte
	err := a.db.QueryRowContext(ctx, `SELECT report FROM runs WHERE id = ?`, id).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && blob == nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("archive: query report %s: %w", id, err)
	}
	md, err := snappy.Decode(nil, blob)
	if err != nil {
		return nil, fmt.Errorf("archive: decompress report %s: %w", id, err)
	}
	return md, nil
}

// DeleteBefore removes runs that finished before cutoff and returns how many
// were removed.
func (a *Archive) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	res, err := a.db.ExecContext(ctx, `DELETE FROM runs WHERE finished_at < ?`, nanos(cutoff))
	if err != nil {
		return 0, fmt.Errorf("archive: delete expired runs: %w", err)
	}
	return res.RowsAffected()
}

// nanos converts t to Unix nanoseconds; the zero time sorts before everything.
func nanos(t time.Time) int64 {
	if t.IsZero() {
		return math.MinInt64
	}
	return t.UnixNano()
}
