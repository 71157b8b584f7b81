// Package ingester hosts the three long-lived components that turn a
// ChainClient and a Repository into a self-healing dataset: Persister,
// LiveTailer, and Backfiller.
package ingester

import (
	"context"
	"sync"

	"flowscan-clone/internal/blobstore"
	"flowscan-clone/internal/parsing"
)

// Persister is the single write path for a parsed Raw: it drives the DB
// upsert and the two blob uploads concurrently and independently. Each
// path's failure is isolated — a failed blob upload never rolls back the
// DB row, and vice versa; there is no shared transaction. A height whose
// DB write failed is picked up again by the backfill sweeps; a blob upload
// that failed while the DB write succeeded is not retried later.
type Persister struct {
	repo         Store
	blob         blobstore.Sink
	registryName string
}

// NewPersister builds a Persister. registryName is the chain-registry
// name used to namespace blob keys.
func NewPersister(repo Store, blob blobstore.Sink, registryName string) *Persister {
	return &Persister{repo: repo, blob: blob, registryName: registryName}
}

// Persist returns false immediately if raw isn't persistable (no
// height/chain_id). Otherwise it fans out to the DB upsert and up to two
// blob uploads (block payload, tx_responses payload — only for whichever
// is non-nil) and returns the conjunction of every path attempted.
func (p *Persister) Persist(ctx context.Context, raw *parsing.Raw) bool {
	if !raw.Persistable() {
		return false
	}

	var wg sync.WaitGroup
	results := make([]bool, 0, 3)
	var mu sync.Mutex
	record := func(ok bool) {
		mu.Lock()
		results = append(results, ok)
		mu.Unlock()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		ok, err := p.repo.InsertRaw(ctx, raw)
		record(err == nil && ok)
	}()

	if len(raw.RawBlock) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key := blobstore.BlockKey(p.registryName, *raw.ChainID, *raw.Height)
			record(p.blob.PutJSON(ctx, key, raw.RawBlock))
		}()
	}

	if len(raw.RawTx) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key := blobstore.TxsKey(p.registryName, *raw.ChainID, *raw.Height)
			record(p.blob.PutJSON(ctx, key, raw.RawTx))
		}()
	}

	wg.Wait()

	for _, ok := range results {
		if !ok {
			return false
		}
	}
	return true
}
