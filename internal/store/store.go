// Package store persists estimation runs and their decoded commands in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/ieee0824/fujisakiest-go/estimation"
	"github.com/ieee0824/fujisakiest-go/fujisaki"
)

// ErrRunNotFound is returned when a run id is unknown.
var ErrRunNotFound = errors.New("store: run not found")

// Run is one persisted estimation summary.
type Run struct {
	ID           string
	BatchID      string
	InputIndex   int
	RMSE         float64
	VoicedFrames int
	CommandCount int
	CreatedAt    time.Time
}

// Store is a SQLite-backed run store. It is safe for concurrent use.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens (and creates if needed) the database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		batch_id TEXT NOT NULL,
		input_index INTEGER NOT NULL,
		rmse REAL NOT NULL,
		voiced_frames INTEGER NOT NULL,
		command_count INTEGER NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_batch_id ON runs(batch_id, input_index);

	CREATE TABLE IF NOT EXISTS commands (
		run_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		type INTEGER NOT NULL,
		onset REAL NOT NULL,
		"offset" REAL NOT NULL,
		amplitude REAL NOT NULL,
		omega REAL NOT NULL,
		PRIMARY KEY (run_id, seq),
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// NewBatchID returns a fresh id grouping the runs of one invocation.
func NewBatchID() string {
	return uuid.NewString()
}

// SaveRun stores the summary and commands of one result and returns the run id.
func (s *Store) SaveRun(ctx context.Context, batchID string, index int, res estimation.Result) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("save run: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
	INSERT INTO runs (id, batch_id, input_index, rmse, voiced_frames, command_count, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, batchID, index, res.RMSE, res.VoicedFrameNum, len(res.Commands),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("save run: %w", err)
	}

	for i, c := range res.Commands {
		_, err = tx.ExecContext(ctx, `
		INSERT INTO commands (run_id, seq, type, onset, "offset", amplitude, omega)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id, i, int(c.Type), c.Onset, c.Offset, c.IntegratedAmplitude, c.Omega,
		)
		if err != nil {
			return "", fmt.Errorf("save command %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("save run: %w", err)
	}
	return id, nil
}

// Runs returns the runs of a batch ordered by input index.
func (s *Store) Runs(ctx context.Context, batchID string) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
	SELECT id, batch_id, input_index, rmse, voiced_frames, command_count, created_at
	FROM runs
	WHERE batch_id = ?
	ORDER BY input_index`, batchID)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var createdAt string
		if err := rows.Scan(&r.ID, &r.BatchID, &r.InputIndex, &r.RMSE, &r.VoicedFrames, &r.CommandCount, &createdAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Commands returns the commands of a run in decoding order.
func (s *Store) Commands(ctx context.Context, runID string) ([]fujisaki.Command, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE id = ?`, runID).Scan(&n)
	if err != nil {
		return nil, fmt.Errorf("load run: %w", err)
	}
	if n == 0 {
		return nil, ErrRunNotFound
	}

	rows, err := s.db.QueryContext(ctx, `
	SELECT type, onset, "offset", amplitude, omega
	FROM commands
	WHERE run_id = ?
	ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("list commands: %w", err)
	}
	defer rows.Close()

	cmds := []fujisaki.Command{}
	for rows.Next() {
		var c fujisaki.Command
		var typ int
		if err := rows.Scan(&typ, &c.Onset, &c.Offset, &c.IntegratedAmplitude, &c.Omega); err != nil {
			return nil, fmt.Errorf("scan command: %w", err)
		}
		c.Type = fujisaki.CommandType(typ)
		cmds = append(cmds, c)
	}
	return cmds, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
