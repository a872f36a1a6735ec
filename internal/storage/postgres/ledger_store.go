// Package postgres provides the Postgres-backed download ledger.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/gallery-grabber/internal/store"
)

const defaultTable = "downloads"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the connection pool and table names. Runs are kept in
// <Table>_runs.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// LedgerStore implements store.DownloadRepository.
type LedgerStore struct {
	pool      execCloser
	table     string
	runsTable string
}

// New connects to Postgres using cfg.
func New(ctx context.Context, cfg Config) (*LedgerStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	table, err := tableName(cfg.Table)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &LedgerStore{pool: pool, table: table, runsTable: table + "_runs"}, nil
}

// NewWithPool builds a store over an existing pool (primarily for testing).
func NewWithPool(pool execCloser, table string) (*LedgerStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	name, err := tableName(table)
	if err != nil {
		return nil, err
	}
	return &LedgerStore{pool: pool, table: name, runsTable: name + "_runs"}, nil
}

func tableName(table string) (string, error) {
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}

// Close releases the pool.
func (s *LedgerStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// EnsureSchema creates the ledger tables when missing.
func (s *LedgerStore) EnsureSchema(ctx context.Context) error {
	runs := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id UUID PRIMARY KEY,
	mode TEXT NOT NULL,
	target TEXT NOT NULL DEFAULT '',
	started_at TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ,
	status TEXT NOT NULL,
	downloaded INTEGER NOT NULL DEFAULT 0,
	skipped INTEGER NOT NULL DEFAULT 0,
	failed INTEGER NOT NULL DEFAULT 0,
	total_bytes BIGINT NOT NULL DEFAULT 0,
	error_message TEXT
)`, s.runsTable)
	downloads := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	run_id UUID NOT NULL REFERENCES %s (id),
	recorded_at TIMESTAMPTZ NOT NULL,
	file_name TEXT NOT NULL,
	url TEXT NOT NULL,
	result TEXT NOT NULL,
	path TEXT NOT NULL DEFAULT '',
	bytes BIGINT NOT NULL DEFAULT 0,
	checksum TEXT NOT NULL DEFAULT '',
	worker INTEGER NOT NULL,
	duration_ms BIGINT NOT NULL,
	error TEXT NOT NULL DEFAULT ''
)`, s.table, s.runsTable)
	for _, ddl := range []string{runs, downloads} {
		if _, err := s.pool.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("ensure ledger schema: %w", err)
		}
	}
	return nil
}

// StartRun inserts run as running. Re-inserting the same id is a no-op.
func (s *LedgerStore) StartRun(ctx context.Context, run store.Run) error {
	query := fmt.Sprintf(`
INSERT INTO %s (id, mode, target, started_at, status)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO NOTHING`, s.runsTable)
	if _, err := s.pool.Exec(ctx, query, run.ID, run.Mode, run.Target, run.StartedAt, store.RunRunning); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// RecordDownloads inserts one row per download.
func (s *LedgerStore) RecordDownloads(ctx context.Context, downloads []store.Download) error {
	query := fmt.Sprintf(`
INSERT INTO %s (
	run_id,
	recorded_at,
	file_name,
	url,
	result,
	path,
	bytes,
	checksum,
	worker,
	duration_ms,
	error
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
)`, s.table)
	for _, d := range downloads {
		args := []any{
			d.RunID,
			d.RecordedAt,
			d.FileName,
			d.URL,
			d.Result,
			d.Path,
			d.Bytes,
			d.Checksum,
			d.Worker,
			d.Duration.Milliseconds(),
			d.Error,
		}
		if _, err := s.pool.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("insert download %s: %w", d.FileName, err)
		}
	}
	return nil
}

// CompleteRun stores the final status and totals.
func (s *LedgerStore) CompleteRun(ctx context.Context, run store.Run) error {
	query := fmt.Sprintf(`
UPDATE %s
SET finished_at = $1, status = $2, downloaded = $3, skipped = $4, failed = $5, total_bytes = $6, error_message = $7
WHERE id = $8`, s.runsTable)
	tag, err := s.pool.Exec(ctx, query,
		run.FinishedAt,
		run.Status,
		run.Downloaded,
		run.Skipped,
		run.Failed,
		run.TotalBytes,
		run.ErrorMessage,
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("complete run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("complete run %s: %w", run.ID, store.ErrNotFound)
	}
	return nil
}
