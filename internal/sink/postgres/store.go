// Package postgres persists vacancy records into a Postgres table.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/vacancy-crawler/internal/vacancy"
)

const defaultTable = "vacancies"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

var (
	ErrDSNRequired  = errors.New("postgres.dsn is required")
	ErrPoolRequired = errors.New("pool is required")
)

// Config controls the Postgres connection pool used for vacancy rows.
type Config struct {
	DSN             string        `mapstructure:"dsn"`
	Table           string        `mapstructure:"table"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// Store writes one row per vacancy, tagged with the run that produced it.
type Store struct {
	pool  execCloser
	table string
	runID string
}

// New connects to Postgres and creates the table when it does not exist.
func New(ctx context.Context, cfg Config, runID string) (*Store, error) {
	if cfg.DSN == "" {
		return nil, ErrDSNRequired
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	store, err := NewWithPool(pool, cfg.Table, runID)
	if err != nil {
		pool.Close()
		return nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

// NewWithPool constructs a store from an existing pool (primarily for testing).
func NewWithPool(pool execCloser, table, runID string) (*Store, error) {
	if pool == nil {
		return nil, ErrPoolRequired
	}
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &Store{pool: pool, table: table, runID: runID}, nil
}

// EnsureSchema creates the vacancy table if needed.
func (s *Store) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	run_id      text        NOT NULL,
	vacancy_id  integer     NOT NULL,
	url         text        NOT NULL,
	title       text        NOT NULL,
	levels      text[]      NOT NULL,
	employer    text        NOT NULL,
	location    text,
	remote      boolean     NOT NULL,
	hybrid      boolean     NOT NULL,
	salary_min  bigint,
	salary_max  bigint,
	created_at  timestamptz NOT NULL DEFAULT now(),
	PRIMARY KEY (run_id, vacancy_id)
)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	return nil
}

// AppendRecord inserts rec.
func (s *Store) AppendRecord(ctx context.Context, rec *vacancy.Record) error {
	query := fmt.Sprintf(`
INSERT INTO %s (
	run_id,
	vacancy_id,
	url,
	title,
	levels,
	employer,
	location,
	remote,
	hybrid,
	salary_min,
	salary_max
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
)`, s.table)

	args := []any{
		s.runID,
		rec.ID,
		rec.URL,
		rec.Title,
		levelNames(rec.Levels),
		rec.Employer,
		rec.Location,
		rec.Remote,
		rec.Hybrid,
		rec.SalaryMin,
		rec.SalaryMax,
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert vacancy %d: %w", rec.ID, err)
	}
	return nil
}

// Finalize has nothing to flush; rows are written as they arrive.
func (s *Store) Finalize(context.Context) error { return nil }

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func levelNames(set vacancy.LevelSet) []string {
	members := set.Members()
	out := make([]string, len(members))
	for i, l := range members {
		out[i] = l.String()
	}
	return out
}
