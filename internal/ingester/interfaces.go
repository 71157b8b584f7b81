package ingester

import (
	"context"
	"encoding/json"

	"flowscan-clone/internal/parsing"
	"flowscan-clone/internal/repository"
)

// Store is the persistence surface Persister and LiveTailer depend on.
// *repository.Repository satisfies it; tests substitute a fake.
type Store interface {
	InsertRaw(ctx context.Context, raw *parsing.Raw) (bool, error)
	MaxHeight(ctx context.Context, chainID string) (*int64, error)
}

// BackfillStore additionally exposes the two discovery cursors the
// backfiller drives.
type BackfillStore interface {
	Store
	MissingBlocksCursor(ctx context.Context, chainID string) (*repository.Cursor[repository.MissingBlockGap], error)
	WrongTxCountCursor(ctx context.Context, chainID string) (*repository.Cursor[repository.WrongTxCount], error)
}

// ChainFetcher is the upstream surface LiveTailer and Backfiller depend
// on. *chain.Client satisfies it; tests substitute a fake.
type ChainFetcher interface {
	GetBlock(ctx context.Context, h int64) (json.RawMessage, error)
	GetBlockTxs(ctx context.Context, h int64) (json.RawMessage, error)
	GetLatestHeight(ctx context.Context) (*int64, error)
	GetLowestHeight(ctx context.Context) (int64, error)
}
