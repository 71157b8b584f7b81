// Package parsing converts raw upstream block and tx-response JSON into the
// normalized entities the store persists.
package parsing

import (
	"encoding/json"
	"time"
)

// LogColumn identifies one (event type, attribute key) pair seen across a
// transaction's event logs. It is the unit tracked by the log_columns
// registry table.
type LogColumn struct {
	Event     string
	Attribute string
}

// Block is the normalized block row.
type Block struct {
	ChainID         string
	Height          int64
	Time            time.Time
	BlockHash       string
	ProposerAddress string
}

// Tx is the normalized transaction row.
type Tx struct {
	TxHash     string
	ChainID    string
	Height     int64
	Code       string
	Data       string
	Info       string
	Logs       json.RawMessage
	Events     json.RawMessage
	RawLog     string
	GasUsed    int64
	GasWanted  int64
	Codespace  string
	Timestamp  time.Time
	Tx         json.RawMessage
}

// Log is one parsed log entry for a single message within a transaction.
// EventAttributes maps an (event, attribute) pair to the list of values
// seen for it; Failed/FailedMsg capture the case where raw_log was not
// parseable JSON.
type Log struct {
	TxHash          string
	MsgIndex        string
	EventAttributes map[LogColumn][]string
	Failed          bool
	FailedMsg       string
}

// Columns returns the set of (event, attribute) pairs referenced by this log.
func (l Log) Columns() map[LogColumn]struct{} {
	cols := make(map[LogColumn]struct{}, len(l.EventAttributes))
	for k := range l.EventAttributes {
		cols[k] = struct{}{}
	}
	return cols
}

// Dump serializes the log's event attributes the way the store expects:
// one JSON object keyed by "{event}_{attribute}" with an array of values.
func (l Log) Dump() (json.RawMessage, error) {
	final := make(map[string][]string, len(l.EventAttributes))
	for col, values := range l.EventAttributes {
		key := col.Event + "_" + col.Attribute
		final[key] = append(final[key], values...)
	}
	return json.Marshal(final)
}

// Message is one parsed Cosmos SDK Any message from a transaction body.
type Message struct {
	TxHash     string
	MsgIndex   string
	Type       string
	Attributes map[string]string
}

// Columns returns the set of attribute names referenced by this message.
func (m Message) Columns() map[string]struct{} {
	cols := make(map[string]struct{}, len(m.Attributes))
	for k := range m.Attributes {
		cols[k] = struct{}{}
	}
	return cols
}

// Raw is the per-height work item threaded through the pipeline: a
// partially or fully parsed height along with its verbatim upstream
// payloads. Height and ChainID are pointers because a Raw is only
// persistable once both are populated (invariant 1 in spec.md §3).
type Raw struct {
	Height  *int64
	ChainID *string

	RawBlock json.RawMessage
	RawTx    json.RawMessage

	BlockTxCount       *int
	TxResponsesTxCount *int

	Block    *Block
	Txs      []Tx
	Logs     []Log
	Messages []Message

	LogColumns     map[LogColumn]struct{}
	MessageColumns map[string]struct{}
}

// Persistable reports whether this Raw carries both halves of the primary
// key and can therefore be upserted (invariant 1).
func (r *Raw) Persistable() bool {
	return r != nil && r.Height != nil && r.ChainID != nil
}
