package parsing

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

const (
	blockTimeLayout = "2006-01-02T15:04:05.999999Z07:00"
	txTimeLayout    = "2006-01-02T15:04:05Z"
)

// normalizeColumn applies the store's column-name rule: '.', '/', '-'
// become '_'; '@' is deleted. ParseLogs applies it to every event type,
// attribute key and attribute value; ParseMessages does not apply it, so
// message attribute names are kept as upstream sends them.
func normalizeColumn(s string) string {
	r := strings.NewReplacer(".", "_", "/", "_", "-", "_", "@", "")
	return r.Replace(s)
}

// truncateFractionalSeconds keeps at most 6 digits of fractional-second
// precision so time.Parse never chokes on upstream timestamps with
// nanosecond (9-digit) precision.
func truncateFractionalSeconds(s string) string {
	dot := strings.Index(s, ".")
	if dot == -1 {
		return s
	}
	end := dot + 1
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	frac := s[dot+1 : end]
	if len(frac) > 6 {
		frac = frac[:6]
	}
	return s[:dot+1] + frac + s[end:]
}

// ParseBlock extracts a Block and the derived block_tx_count from a raw
// block payload, and seeds the Raw's height/chain_id primary key.
func ParseBlock(rawBlock json.RawMessage) (*Raw, error) {
	var env upstreamBlockEnvelope
	if err := json.Unmarshal(rawBlock, &env); err != nil {
		return nil, err
	}

	height := int64(env.Block.Header.Height)
	chainID := env.Block.Header.ChainID

	parsedTime, err := time.Parse(blockTimeLayout, truncateFractionalSeconds(env.Block.Header.Time))
	if err != nil {
		parsedTime = time.Time{}
	}

	txCount := len(env.Block.Data.Txs)

	raw := &Raw{
		RawBlock:     rawBlock,
		Height:       &height,
		ChainID:      &chainID,
		BlockTxCount: &txCount,
		Block: &Block{
			ChainID:         chainID,
			Height:          height,
			Time:            parsedTime,
			BlockHash:       env.BlockID.Hash,
			ProposerAddress: env.Block.Header.ProposerAddress,
		},
		LogColumns:     make(map[LogColumn]struct{}),
		MessageColumns: make(map[string]struct{}),
	}
	return raw, nil
}

// ParseTxResponses populates raw.Txs/Logs/Messages (and their column
// registries) from the tx_responses envelope returned by
// /cosmos/tx/v1beta1/txs/block/{height}. raw.Height and raw.ChainID must
// already be set (by a prior ParseBlock call), or
// ErrBlockPrimaryKeyNotDefined is returned.
//
// rawTxResponses may be nil (the envelope was entirely absent from the
// upstream response) in which case raw.TxResponsesTxCount is left nil
// rather than set to 0.
func ParseTxResponses(raw *Raw, rawTxResponses json.RawMessage) error {
	if raw.Height == nil || raw.ChainID == nil {
		return ErrBlockPrimaryKeyNotDefined
	}

	if raw.LogColumns == nil {
		raw.LogColumns = make(map[LogColumn]struct{})
	}
	if raw.MessageColumns == nil {
		raw.MessageColumns = make(map[string]struct{})
	}

	if len(rawTxResponses) == 0 || !hasTxResponsesKey(rawTxResponses) {
		return nil
	}

	raw.RawTx = rawTxResponses

	var env upstreamTxResponsesEnvelope
	if err := json.Unmarshal(rawTxResponses, &env); err != nil {
		return err
	}

	count := len(env.TxResponses)
	raw.TxResponsesTxCount = &count

	chainID := *raw.ChainID

	for _, resp := range env.TxResponses {
		height := int64(resp.Height)
		if height == 0 {
			height = *raw.Height
		}

		gasUsed := int64(resp.GasUsed)
		gasWanted := int64(resp.GasWanted)

		timestamp, err := time.Parse(txTimeLayout, resp.Timestamp)
		if err != nil {
			timestamp = time.Time{}
		}

		tx := Tx{
			TxHash:    resp.TxHash,
			ChainID:   chainID,
			Height:    height,
			Code:      string(resp.Code),
			Data:      resp.Data,
			Info:      resp.Info,
			Logs:      resp.Logs,
			Events:    resp.Events,
			RawLog:    resp.RawLog,
			GasUsed:   gasUsed,
			GasWanted: gasWanted,
			Codespace: resp.Codespace,
			Timestamp: timestamp,
			Tx:        resp.Tx,
		}
		raw.Txs = append(raw.Txs, tx)

		logs := ParseLogs(resp.RawLog, resp.TxHash)
		raw.Logs = append(raw.Logs, logs...)
		for _, l := range logs {
			for col := range l.Columns() {
				raw.LogColumns[col] = struct{}{}
			}
		}

		messages, err := ParseMessages(resp.Tx, resp.TxHash)
		if err != nil {
			continue
		}
		raw.Messages = append(raw.Messages, messages...)
		for _, m := range messages {
			for col := range m.Columns() {
				raw.MessageColumns[col] = struct{}{}
			}
		}
	}

	return nil
}

// ParseLogs parses a transaction's raw_log string. A non-JSON raw_log is
// the "tx failed before execution" case and is captured as a single
// failed Log rather than raised as an error.
func ParseLogs(rawLog string, txhash string) []Log {
	var entries []json.RawMessage
	if err := json.Unmarshal([]byte(rawLog), &entries); err != nil {
		return []Log{{TxHash: txhash, Failed: true, FailedMsg: rawLog}}
	}

	logs := make([]Log, 0, len(entries))
	for i, entry := range entries {
		var parsed struct {
			Events []struct {
				Type       string `json:"type"`
				Attributes []struct {
					Key   string `json:"key"`
					Value string `json:"value"`
				} `json:"attributes"`
			} `json:"events"`
		}
		if err := json.Unmarshal(entry, &parsed); err != nil {
			continue
		}

		log := Log{
			TxHash:          txhash,
			MsgIndex:        strconv.Itoa(i),
			EventAttributes: make(map[LogColumn][]string),
		}
		for _, event := range parsed.Events {
			for col, values := range parseLogEvent(event.Type, event.Attributes) {
				log.EventAttributes[col] = values
			}
		}
		log.normalize()
		logs = append(logs, log)
	}
	return logs
}

// parseLogEvent builds the (event, key) -> values map for a single event.
// Wasm events are special-cased: only the contract_address attribute
// survives; every other wasm attribute is dropped.
func parseLogEvent(eventType string, attrs []struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}) map[LogColumn][]string {
	out := make(map[LogColumn][]string)
	if eventType == "wasm" {
		for _, a := range attrs {
			if a.Key != "contract_address" {
				continue
			}
			col := LogColumn{Event: eventType, Attribute: a.Key}
			out[col] = append(out[col], a.Value)
		}
		return out
	}

	for _, a := range attrs {
		col := LogColumn{Event: eventType, Attribute: a.Key}
		out[col] = append(out[col], a.Value)
	}
	return out
}

// normalize rewrites event/attribute keys and values through the
// column-name rule, in place.
func (l *Log) normalize() {
	normalized := make(map[LogColumn][]string, len(l.EventAttributes))
	for col, values := range l.EventAttributes {
		newCol := LogColumn{Event: normalizeColumn(col.Event), Attribute: normalizeColumn(col.Attribute)}
		newValues := make([]string, len(values))
		for i, v := range values {
			newValues[i] = normalizeColumn(v)
		}
		normalized[newCol] = append(normalized[newCol], newValues...)
	}
	l.EventAttributes = normalized
}

// ParseMessages parses the tx.body.messages array into Message values,
// popping "@type" into Message.Type.
func ParseMessages(rawTx json.RawMessage, txhash string) ([]Message, error) {
	var body rawMessageBody
	if err := json.Unmarshal(rawTx, &body); err != nil {
		return nil, err
	}

	messages := make([]Message, 0, len(body.Body.Messages))
	for i, raw := range body.Body.Messages {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			continue
		}

		typeRaw, ok := fields["@type"]
		if !ok {
			continue
		}
		var msgType string
		_ = json.Unmarshal(typeRaw, &msgType)
		delete(fields, "@type")

		attrs := make(map[string]string, len(fields))
		for k, v := range fields {
			attrs[k] = rawValueToString(v)
		}

		messages = append(messages, Message{
			TxHash:     txhash,
			MsgIndex:   strconv.Itoa(i),
			Type:       msgType,
			Attributes: attrs,
		})
	}
	return messages, nil
}

// rawValueToString renders a JSON field value as a string for storage in
// Message.Attributes, unwrapping quoted strings and leaving other JSON
// (numbers, objects, arrays) as their compact textual form.
func rawValueToString(v json.RawMessage) string {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	return string(v)
}
