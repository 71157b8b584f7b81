package repository

import (
	"context"
	"fmt"
)

// ResetCheckpoint deletes every raw, blocks, and txs row above aboveHeight
// for chainID, forcing the live tailer to rediscover that range on its
// next run instead of trusting a stale MaxHeight. logs/messages rows are
// left in place: they aren't keyed by (chain_id, height), only by
// tx_hash. Re-persisting a height inserts new logs/messages rows beside
// the old ones rather than overwriting them.
func (r *Repository) ResetCheckpoint(ctx context.Context, chainID string, aboveHeight int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, fmt.Sprintf(
		`DELETE FROM %s WHERE chain_id = $1 AND height > $2`, r.table("blocks"),
	), chainID, aboveHeight); err != nil {
		return fmt.Errorf("reset checkpoint: delete blocks: %w", err)
	}

	if _, err := tx.Exec(ctx, fmt.Sprintf(
		`DELETE FROM %s WHERE chain_id = $1 AND height > $2`, r.table("txs"),
	), chainID, aboveHeight); err != nil {
		return fmt.Errorf("reset checkpoint: delete txs: %w", err)
	}

	if _, err := tx.Exec(ctx, fmt.Sprintf(
		`DELETE FROM %s WHERE chain_id = $1 AND height > $2`, r.table("raw"),
	), chainID, aboveHeight); err != nil {
		return fmt.Errorf("reset checkpoint: delete raw: %w", err)
	}

	return tx.Commit(ctx)
}
