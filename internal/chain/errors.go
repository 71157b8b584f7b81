package chain

import "errors"

// ErrNoEndpoints is returned when a Client has no configured API endpoints
// to try.
var ErrNoEndpoints = errors.New("chain: no api endpoints configured")

// ErrAllEndpointsFailed is returned by GetBlock/GetBlockTxs when every
// endpoint in the round-robin list failed the request.
var ErrAllEndpointsFailed = errors.New("chain: all endpoints failed")

// EndpointError records one endpoint's failure during a round-robin sweep,
// kept so callers/logs can see which hosts are misbehaving without losing
// the underlying cause.
type EndpointError struct {
	Endpoint string
	Err      error
}

func (e *EndpointError) Error() string { return e.Endpoint + ": " + e.Err.Error() }
func (e *EndpointError) Unwrap() error { return e.Err }
