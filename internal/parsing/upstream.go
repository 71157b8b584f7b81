package parsing

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// flexInt64 decodes a JSON number that upstream sometimes quotes as a
// string (Cosmos SDK REST responses routinely stringify int64 fields to
// avoid JS precision loss) and sometimes leaves bare.
type flexInt64 int64

func (f *flexInt64) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	if len(b) == 0 || string(b) == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return err
	}
	*f = flexInt64(v)
	return nil
}

// flexString decodes a JSON value that may be a number or a string into a
// Go string, for fields like "code" that upstream sometimes returns as a
// bare integer.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	*f = flexString(b)
	return nil
}

// upstreamBlockEnvelope mirrors the shape of
// /cosmos/base/tendermint/v1beta1/blocks/{height}. All fields are
// permissively optional: a malformed-but-parseable payload should still
// decode into zero values rather than failing JSON unmarshal.
type upstreamBlockEnvelope struct {
	BlockID struct {
		Hash string `json:"hash"`
	} `json:"block_id"`
	Block struct {
		Header struct {
			Height          flexInt64 `json:"height"`
			ChainID         string    `json:"chain_id"`
			Time            string    `json:"time"`
			ProposerAddress string    `json:"proposer_address"`
		} `json:"header"`
		Data struct {
			Txs []json.RawMessage `json:"txs"`
		} `json:"data"`
	} `json:"block"`
}

// upstreamTxResponsesEnvelope mirrors the shape of
// /cosmos/tx/v1beta1/txs/block/{height}. Whether tx_responses_tx_count is
// 0 or null is decided by hasTxResponsesKey before this envelope is
// decoded, not by TxResponses being nil.
type upstreamTxResponsesEnvelope struct {
	TxResponses []upstreamTxResponse `json:"tx_responses"`
}

type upstreamTxResponse struct {
	TxHash    string          `json:"txhash"`
	Height    flexInt64       `json:"height"`
	Code      flexString      `json:"code"`
	Data      string          `json:"data"`
	Info      string          `json:"info"`
	Logs      json.RawMessage `json:"logs"`
	Events    json.RawMessage `json:"events"`
	RawLog    string          `json:"raw_log"`
	GasUsed   flexInt64       `json:"gas_used"`
	GasWanted flexInt64       `json:"gas_wanted"`
	Codespace string          `json:"codespace"`
	Timestamp string          `json:"timestamp"`
	Tx        json.RawMessage `json:"tx"`
}

// hasTxResponsesKey reports whether the raw envelope bytes contain a
// "tx_responses" key at all, distinguishing "absent envelope" from
// "envelope present with an empty list" per invariant handling of
// tx_responses_tx_count.
func hasTxResponsesKey(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return false
	}
	_, ok := probe["tx_responses"]
	return ok
}

type rawMessageBody struct {
	Body struct {
		Messages []json.RawMessage `json:"messages"`
	} `json:"body"`
}
