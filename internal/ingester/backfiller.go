package ingester

import (
	"context"
	"log"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"flowscan-clone/internal/parsing"
	"flowscan-clone/internal/repository"
)

// Backfiller runs the historical sweep (G1) and the repair sweep (G2) as
// sibling loops, each internally bounded to batchSize concurrent fetches
// and working through its flagged heights stepSize at a time.
type Backfiller struct {
	client    ChainFetcher
	repo      BackfillStore
	persister *Persister
	chainID   string
	batchSize int
	stepSize  int
	interval  time.Duration
}

// NewBackfiller builds a Backfiller for one chain.
func NewBackfiller(client ChainFetcher, repo BackfillStore, persister *Persister, chainID string, batchSize, stepSize int, interval time.Duration) *Backfiller {
	if batchSize < 1 {
		batchSize = 1
	}
	if stepSize < 1 {
		stepSize = 1
	}
	return &Backfiller{
		client: client, repo: repo, persister: persister, chainID: chainID,
		batchSize: batchSize, stepSize: stepSize, interval: interval,
	}
}

// RunHistorical drives G1 until ctx is cancelled.
func (b *Backfiller) RunHistorical(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		n, err := b.historicalPass(ctx)
		if err != nil {
			log.Printf("[backfill:historical] %s: %v", b.chainID, err)
		}
		if n == 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(b.interval):
			}
		}
	}
}

// RunRepair drives G2 until ctx is cancelled.
func (b *Backfiller) RunRepair(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		n, err := b.repairPass(ctx)
		if err != nil {
			log.Printf("[backfill:repair] %s: %v", b.chainID, err)
		}
		if n == 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(b.interval):
			}
		}
	}
}

// historicalPass drains MissingBlocksCursor once, enqueueing every gap's
// missing heights, and fetches/persists them in groups of stepSize, each
// group with at most batchSize concurrent fetches. It returns the number
// of heights processed.
func (b *Backfiller) historicalPass(ctx context.Context) (int, error) {
	lowest, err := b.client.GetLowestHeight(ctx)
	if err != nil {
		return 0, err
	}

	cursor, err := b.repo.MissingBlocksCursor(ctx, b.chainID)
	if err != nil {
		return 0, err
	}
	defer cursor.Close(ctx)

	var heights []int64
	for cursor.Next() {
		gap := cursor.Value()
		if gap.Gap == -1 {
			for h := lowest; h < gap.Height; h++ {
				heights = append(heights, h)
			}
			continue
		}
		for h := gap.Height - gap.Gap + 1; h < gap.Height; h++ {
			heights = append(heights, h)
		}
	}
	if err := cursor.Err(); err != nil {
		return 0, err
	}
	cursor.Close(ctx)

	for start := 0; start < len(heights); start += b.stepSize {
		end := min(start+b.stepSize, len(heights))
		b.processHeights(ctx, heights[start:end])
	}
	return len(heights), nil
}

// repairPass drains WrongTxCountCursor in stepSize chunks, re-fetching
// tx_responses for each flagged height and re-persisting.
func (b *Backfiller) repairPass(ctx context.Context) (int, error) {
	cursor, err := b.repo.WrongTxCountCursor(ctx, b.chainID)
	if err != nil {
		return 0, err
	}
	defer cursor.Close(ctx)

	total := 0
	chunk := make([]repository.WrongTxCount, 0, b.stepSize)

	flush := func() {
		if len(chunk) == 0 {
			return
		}
		b.processRepairChunk(ctx, chunk)
		total += len(chunk)
		chunk = chunk[:0]
	}

	for cursor.Next() {
		chunk = append(chunk, cursor.Value())
		if len(chunk) >= b.stepSize {
			flush()
		}
	}
	flush()

	if err := cursor.Err(); err != nil {
		return total, err
	}
	return total, nil
}

// processHeights fetches and persists each height in heights, at most
// batchSize at a time.
func (b *Backfiller) processHeights(ctx context.Context, heights []int64) {
	sem := semaphore.NewWeighted(int64(b.batchSize))
	g, ctx := errgroup.WithContext(ctx)

	for _, h := range heights {
		h := h
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			b.fetchAndPersist(ctx, h)
			return nil
		})
	}
	_ = g.Wait()
}

func (b *Backfiller) fetchAndPersist(ctx context.Context, h int64) {
	blockJSON, err := b.client.GetBlock(ctx, h)
	if err != nil || blockJSON == nil {
		return
	}
	raw, err := parsing.ParseBlock(blockJSON)
	if err != nil {
		log.Printf("[backfill:historical] %s: malformed block at height %d: %v", b.chainID, h, err)
		return
	}

	txsJSON, err := b.client.GetBlockTxs(ctx, h)
	if err == nil && txsJSON != nil {
		if err := parsing.ParseTxResponses(raw, txsJSON); err != nil {
			log.Printf("[backfill:historical] %s: malformed tx_responses at height %d: %v", b.chainID, h, err)
		}
	}

	if !b.persister.Persist(ctx, raw) {
		log.Printf("[backfill:historical] %s: persist failed at height %d", b.chainID, h)
	}
}

// processRepairChunk re-fetches tx_responses for each flagged height and
// persists a Raw carrying only the primary key, block_tx_count, and the
// refreshed tx data, at most batchSize at a time.
func (b *Backfiller) processRepairChunk(ctx context.Context, chunk []repository.WrongTxCount) {
	sem := semaphore.NewWeighted(int64(b.batchSize))
	g, ctx := errgroup.WithContext(ctx)

	for _, row := range chunk {
		row := row
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			b.repairHeight(ctx, row)
			return nil
		})
	}
	_ = g.Wait()
}

func (b *Backfiller) repairHeight(ctx context.Context, row repository.WrongTxCount) {
	txsJSON, err := b.client.GetBlockTxs(ctx, row.Height)
	if err != nil || txsJSON == nil {
		return
	}

	height := row.Height
	chainID := b.chainID
	var blockTxCount *int
	if row.BlockTxCount != nil {
		v := int(*row.BlockTxCount)
		blockTxCount = &v
	}

	raw := &parsing.Raw{
		Height:       &height,
		ChainID:      &chainID,
		BlockTxCount: blockTxCount,
	}
	if err := parsing.ParseTxResponses(raw, txsJSON); err != nil {
		log.Printf("[backfill:repair] %s: malformed tx_responses at height %d: %v", b.chainID, height, err)
		return
	}

	if !b.persister.Persist(ctx, raw) {
		log.Printf("[backfill:repair] %s: persist failed at height %d", b.chainID, height)
	}
}
