package parsing

import "errors"

// ErrBlockPrimaryKeyNotDefined is returned by ParseTxResponses when the
// Raw does not already carry a height and chain_id (from a prior
// ParseBlock call). It is the parser's only error of its own; besides it,
// ParseBlock, ParseTxResponses and ParseMessages return the JSON decoding
// error for a payload that does not decode into the upstream shape.
// Malformed per-tx log JSON is captured as a failed Log and never returned.
var ErrBlockPrimaryKeyNotDefined = errors.New("parsing: block primary key (height, chain_id) not defined")
