package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// MissingBlockGap is one row yielded by MissingBlocksCursor: height is the
// persisted height found just above a gap, and Gap is the size of that
// gap (height - predecessor_height), or -1 when height is the lowest
// persisted row and has no predecessor at all.
type MissingBlockGap struct {
	Height int64
	Gap    int64
}

// WrongTxCount is one row yielded by WrongTxCountCursor: a height whose
// tx_tx_count does not match block_tx_count (or either is null).
type WrongTxCount struct {
	Height       int64
	BlockTxCount *int64
}

// Cursor is a pull-based iterator backed by a held transaction. The
// transaction's connection is not released until Close is called — the
// consumer must always drain the cursor to exhaustion (Next returns
// false, Err() == nil) or explicitly Close it early.
type Cursor[T any] struct {
	tx   pgx.Tx
	rows pgx.Rows
	scan func(pgx.Rows) (T, error)
	cur  T
	err  error
}

// Next advances the cursor. It returns false once rows are exhausted or
// an error occurred; check Err() to distinguish the two.
func (c *Cursor[T]) Next() bool {
	if c.err != nil || !c.rows.Next() {
		return false
	}
	v, err := c.scan(c.rows)
	if err != nil {
		c.err = err
		return false
	}
	c.cur = v
	return true
}

// Value returns the row produced by the most recent successful Next call.
func (c *Cursor[T]) Value() T { return c.cur }

// Err returns the first error encountered, if any.
func (c *Cursor[T]) Err() error {
	if c.err != nil {
		return c.err
	}
	return c.rows.Err()
}

// Close releases the rows and ends the held transaction. Safe to call
// more than once, and safe to call before the cursor is drained.
func (c *Cursor[T]) Close(ctx context.Context) {
	c.rows.Close()
	_ = c.tx.Rollback(ctx)
}

// MissingBlocksCursor yields persisted heights that sit just above a gap
// in the height sequence, ordered descending and capped at 100 rows —
// enough for the backfiller's historical sweep to make steady progress
// without scanning the whole table on every pass.
func (r *Repository) MissingBlocksCursor(ctx context.Context, chainID string) (*Cursor[MissingBlockGap], error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, fmt.Sprintf(`
		SELECT height, gap FROM (
			SELECT height,
				COALESCE(height - LAG(height) OVER (ORDER BY height), -1) AS gap
			FROM %s
			WHERE chain_id = $1
		) g
		WHERE gap <> 1
		ORDER BY height DESC
		LIMIT 100
	`, r.table("raw")), chainID)
	if err != nil {
		tx.Rollback(ctx)
		return nil, err
	}

	return &Cursor[MissingBlockGap]{
		tx:   tx,
		rows: rows,
		scan: func(rows pgx.Rows) (MissingBlockGap, error) {
			var g MissingBlockGap
			err := rows.Scan(&g.Height, &g.Gap)
			return g, err
		},
	}, nil
}

// WrongTxCountCursor yields every height whose tx_tx_count doesn't match
// block_tx_count, or where either is null — unlimited, since the caller
// (the repair sweep) drains it in step_size chunks of its own choosing.
func (r *Repository) WrongTxCountCursor(ctx context.Context, chainID string) (*Cursor[WrongTxCount], error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, fmt.Sprintf(`
		SELECT height, block_tx_count
		FROM %s
		WHERE chain_id = $1
			AND (tx_tx_count <> block_tx_count OR tx_tx_count IS NULL OR block_tx_count IS NULL)
		ORDER BY height DESC
	`, r.table("raw")), chainID)
	if err != nil {
		tx.Rollback(ctx)
		return nil, err
	}

	return &Cursor[WrongTxCount]{
		tx:   tx,
		rows: rows,
		scan: func(rows pgx.Rows) (WrongTxCount, error) {
			var w WrongTxCount
			err := rows.Scan(&w.Height, &w.BlockTxCount)
			return w, err
		},
	}, nil
}
