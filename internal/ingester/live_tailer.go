package ingester

import (
	"context"
	"log"
	"time"

	"flowscan-clone/internal/parsing"
)

// LiveTailer polls the chain tip and persists every new height as it
// appears. It never re-fetches a height at or below its current cursor.
type LiveTailer struct {
	client    ChainFetcher
	repo      Store
	persister *Persister
	chainID   string
	interval  time.Duration
}

// NewLiveTailer builds a LiveTailer for one chain.
func NewLiveTailer(client ChainFetcher, repo Store, persister *Persister, chainID string, interval time.Duration) *LiveTailer {
	return &LiveTailer{client: client, repo: repo, persister: persister, chainID: chainID, interval: interval}
}

// Run blocks until ctx is cancelled. Cancellation is checked between poll
// ticks and before each height within a tick; a Persist call already in
// progress is allowed to finish.
func (t *LiveTailer) Run(ctx context.Context) {
	currentHeight := int64(0)
	if max, err := t.repo.MaxHeight(ctx, t.chainID); err != nil {
		log.Printf("[live] failed to read max height for %s: %v", t.chainID, err)
	} else if max != nil {
		currentHeight = *max
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		currentHeight = t.poll(ctx, currentHeight)

		select {
		case <-ctx.Done():
			return
		case <-time.After(t.interval):
		}
	}
}

// poll fetches and persists every height above currentHeight up to the
// current tip, returning the new high-water mark.
func (t *LiveTailer) poll(ctx context.Context, currentHeight int64) int64 {
	tip, err := t.client.GetLatestHeight(ctx)
	if err != nil || tip == nil {
		log.Printf("[live] %s: could not read latest height: %v", t.chainID, err)
		return currentHeight
	}

	for h := currentHeight + 1; h <= *tip; h++ {
		select {
		case <-ctx.Done():
			return currentHeight
		default:
		}

		raw, ok := t.fetch(ctx, h)
		if !ok {
			return currentHeight
		}

		if !t.persister.Persist(context.WithoutCancel(ctx), raw) {
			log.Printf("[live] %s: persist failed at height %d", t.chainID, h)
			return currentHeight
		}
		currentHeight = h
	}
	return currentHeight
}

// fetch builds the Raw for height h. ok is false when the block itself
// could not be fetched — the tick is skipped and retried next poll.
func (t *LiveTailer) fetch(ctx context.Context, h int64) (*parsing.Raw, bool) {
	blockJSON, err := t.client.GetBlock(ctx, h)
	if err != nil || blockJSON == nil {
		return nil, false
	}

	raw, err := parsing.ParseBlock(blockJSON)
	if err != nil {
		log.Printf("[live] %s: malformed block at height %d: %v", t.chainID, h, err)
		return nil, false
	}

	txsJSON, err := t.client.GetBlockTxs(ctx, h)
	if err == nil && txsJSON != nil {
		if err := parsing.ParseTxResponses(raw, txsJSON); err != nil {
			log.Printf("[live] %s: malformed tx_responses at height %d: %v", t.chainID, h, err)
		}
	}

	return raw, true
}
