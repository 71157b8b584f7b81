// Package repository is the transactional store for parsed chain data: the
// raw height ledger plus the normalized blocks/txs/logs/messages tables,
// and the two discovery cursors the backfiller drives.
package repository

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"flowscan-clone/internal/parsing"
)

// MetricsRecorder is satisfied by metrics.Sink; declared narrowly here so
// repository does not need to import the Prometheus client directly.
type MetricsRecorder interface {
	ObserveDBUpsert(chainID string, d time.Duration)
	IncHeightsPersisted()
}

type noopRecorder struct{}

func (noopRecorder) ObserveDBUpsert(string, time.Duration) {}
func (noopRecorder) IncHeightsPersisted()                  {}

// Repository wraps a pooled Postgres-compatible connection scoped to one
// schema (one chain's dataset lives in its own schema).
type Repository struct {
	pool    *pgxpool.Pool
	schema  string
	metrics MetricsRecorder
}

// NewRepository parses dbURL, applies DB_POOL_SIZE-style pool sizing, and
// connects. schema is substituted verbatim into DDL and queries — callers
// are responsible for it being a trusted, non-user-supplied identifier.
func NewRepository(ctx context.Context, dbURL, schema string, poolSize int) (*Repository, error) {
	cfg, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("repository: parse db url: %w", err)
	}
	if poolSize > 0 {
		cfg.MaxConns = int32(poolSize)
	} else if v := os.Getenv("DB_POOL_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxConns = int32(n)
		}
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("repository: connect: %w", err)
	}

	return &Repository{pool: pool, schema: schema, metrics: noopRecorder{}}, nil
}

// WithMetrics attaches a metrics recorder, returning the repository for
// chaining.
func (r *Repository) WithMetrics(m MetricsRecorder) *Repository {
	r.metrics = m
	return r
}

// Close releases the pool.
func (r *Repository) Close() {
	r.pool.Close()
}

func (r *Repository) table(name string) string {
	return r.schema + "." + name
}

// MaxHeight returns the highest persisted height for chainID, or nil if
// the raw table holds no rows for that chain yet.
func (r *Repository) MaxHeight(ctx context.Context, chainID string) (*int64, error) {
	var height *int64
	err := r.pool.QueryRow(ctx, fmt.Sprintf(
		`SELECT MAX(height) FROM %s WHERE chain_id = $1`, r.table("raw"),
	), chainID).Scan(&height)
	if err != nil {
		return nil, err
	}
	return height, nil
}

// InsertRaw persists a parsed Raw in one transaction: the raw ledger row
// (upserted, refreshing only tx_tx_count on conflict), the block row (if
// present), tx/log/message rows, and the two column registries. It
// returns false without rolling back if raw is not persistable (invariant
// 1): height and chain_id must both be set.
func (r *Repository) InsertRaw(ctx context.Context, raw *parsing.Raw) (bool, error) {
	if !raw.Persistable() {
		return false, nil
	}
	start := time.Now()
	defer func() { r.metrics.ObserveDBUpsert(*raw.ChainID, time.Since(start)) }()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (chain_id, height, block_tx_count, tx_tx_count)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (chain_id, height) DO UPDATE SET tx_tx_count = EXCLUDED.tx_tx_count
	`, r.table("raw")), *raw.ChainID, *raw.Height, raw.BlockTxCount, raw.TxResponsesTxCount)
	if err != nil {
		return false, fmt.Errorf("insert raw: %w", err)
	}

	if raw.Block != nil {
		if err := r.insertBlock(ctx, tx, raw.Block); err != nil {
			return false, err
		}
	}

	if err := r.insertTxs(ctx, tx, raw.Txs); err != nil {
		return false, err
	}
	if err := r.insertLogs(ctx, tx, raw.Logs); err != nil {
		return false, err
	}
	if err := r.insertMessages(ctx, tx, raw.Messages); err != nil {
		return false, err
	}
	if err := r.insertLogColumns(ctx, tx, raw.LogColumns); err != nil {
		return false, err
	}
	if err := r.insertMsgColumns(ctx, tx, raw.MessageColumns); err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	r.metrics.IncHeightsPersisted()
	return true, nil
}
