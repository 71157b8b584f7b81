// Package chain talks to a chain's REST API across a pool of endpoints,
// failing over to the next endpoint on a per-request basis.
package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

const (
	blockPath        = "/cosmos/base/tendermint/v1beta1/blocks/%d"
	latestBlockPath  = "/cosmos/base/tendermint/v1beta1/blocks/latest"
	txsByBlockPath   = "/cosmos/tx/v1beta1/txs/block/%d"
	nodeStatusPath   = "/cosmos/base/node/v1beta1/status"
	requestTimeout   = 10 * time.Second
)

// Client is a round-robin REST client over a chain's API endpoint pool. It
// never retries against the same endpoint: a failed request moves on to
// the next endpoint, and only fails the whole operation once every
// endpoint has been tried once.
type Client struct {
	endpoints []string
	http      *http.Client
	limiter   *rate.Limiter
	rr        uint32
}

// NewClient builds a Client over the given endpoints, rate limited to rps
// requests/sec across the whole pool (burst equal to rps, minimum 1).
func NewClient(endpoints []string, rps float64) *Client {
	var limiter *rate.Limiter
	if rps > 0 {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
	return &Client{
		endpoints: endpoints,
		http:      &http.Client{Timeout: requestTimeout},
		limiter:   limiter,
	}
}

// GetBlock fetches the raw block envelope for height h, trying each
// endpoint in round-robin order until one returns a parseable 2xx body.
// Returns nil and an error wrapping ErrAllEndpointsFailed if every
// endpoint failed.
func (c *Client) GetBlock(ctx context.Context, h int64) (json.RawMessage, error) {
	return c.fetchJSON(ctx, fmt.Sprintf(blockPath, h))
}

// GetBlockTxs fetches the raw tx_responses envelope for height h.
func (c *Client) GetBlockTxs(ctx context.Context, h int64) (json.RawMessage, error) {
	return c.fetchJSON(ctx, fmt.Sprintf(txsByBlockPath, h))
}

// GetLatestHeight reads the chain tip from whichever endpoint answers
// first. Returns nil if every endpoint failed.
func (c *Client) GetLatestHeight(ctx context.Context) (*int64, error) {
	body, err := c.fetchJSON(ctx, latestBlockPath)
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, nil
	}

	var envelope struct {
		Block struct {
			Header struct {
				Height flexInt64 `json:"height"`
			} `json:"header"`
		} `json:"block"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, err
	}
	h := int64(envelope.Block.Header.Height)
	return &h, nil
}

// GetLowestHeight returns the earliest height any endpoint will serve,
// i.e. the chain's pruning window floor. Nodes that expose
// cosmos/base/node/v1beta1/status report earliest_store_height directly;
// a node that omits it, or that cannot be reached at all, is assumed to
// retain full history from height 1.
func (c *Client) GetLowestHeight(ctx context.Context) (int64, error) {
	body, err := c.fetchJSON(ctx, nodeStatusPath)
	if err != nil {
		return 1, nil
	}
	if body == nil {
		return 1, nil
	}

	var status struct {
		EarliestStoreHeight flexInt64 `json:"earliest_store_height"`
	}
	if err := json.Unmarshal(body, &status); err != nil {
		return 1, nil
	}
	if status.EarliestStoreHeight == 0 {
		return 1, nil
	}
	return int64(status.EarliestStoreHeight), nil
}

// fetchJSON tries each endpoint once, in round-robin order starting from
// the next endpoint after the last pick, returning the first 2xx body.
func (c *Client) fetchJSON(ctx context.Context, path string) (json.RawMessage, error) {
	if len(c.endpoints) == 0 {
		return nil, ErrNoEndpoints
	}

	start := int(atomic.AddUint32(&c.rr, 1) % uint32(len(c.endpoints)))

	var lastErr error
	for i := 0; i < len(c.endpoints); i++ {
		endpoint := c.endpoints[(start+i)%len(c.endpoints)]

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		body, err := c.fetchOnce(ctx, endpoint, path)
		if err == nil {
			return body, nil
		}
		lastErr = &EndpointError{Endpoint: endpoint, Err: err}
	}

	return nil, fmt.Errorf("%w: %s", ErrAllEndpointsFailed, lastErr)
}

func (c *Client) fetchOnce(ctx context.Context, endpoint, path string) (json.RawMessage, error) {
	url := strings.TrimRight(endpoint, "/") + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("response body is not valid json")
	}
	return body, nil
}

type flexInt64 int64

func (f *flexInt64) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	var v int64
	if _, err := fmt.Sscanf(s, "%d", &v); err != nil {
		return err
	}
	*f = flexInt64(v)
	return nil
}
