package parsing

import (
	"encoding/json"
	"testing"
)

func TestNormalizeColumn(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"wasm-contract.address/foo", "wasm_contract_address_foo"},
		{"@type", "type"},
		{"plain", "plain"},
	}
	for _, tc := range cases {
		if got := normalizeColumn(tc.in); got != tc.want {
			t.Fatalf("normalizeColumn(%q)=%q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseBlockExtractsHeaderFields(t *testing.T) {
	raw := json.RawMessage(`{
		"block_id": {"hash": "ABCD"},
		"block": {
			"header": {
				"height": "2316139",
				"chain_id": "jackal-1",
				"time": "2024-01-01T00:00:00.123456789Z",
				"proposer_address": "proposerXYZ"
			},
			"data": {"txs": ["dGVzdA==", "dGVzdDI="]}
		}
	}`)

	r, err := ParseBlock(raw)
	if err != nil {
		t.Fatalf("ParseBlock: %v", err)
	}
	if r.Height == nil || *r.Height != 2316139 {
		t.Fatalf("height = %v, want 2316139", r.Height)
	}
	if r.ChainID == nil || *r.ChainID != "jackal-1" {
		t.Fatalf("chain_id = %v, want jackal-1", r.ChainID)
	}
	if r.BlockTxCount == nil || *r.BlockTxCount != 2 {
		t.Fatalf("block_tx_count = %v, want 2", r.BlockTxCount)
	}
	if r.Block.BlockHash != "ABCD" {
		t.Fatalf("block_hash = %q, want ABCD", r.Block.BlockHash)
	}
	if r.Block.Time.Year() != 2024 {
		t.Fatalf("block time not parsed: %v", r.Block.Time)
	}
}

func TestParseTxResponsesRequiresPrimaryKey(t *testing.T) {
	r := &Raw{}
	err := ParseTxResponses(r, json.RawMessage(`{"tx_responses": []}`))
	if err != ErrBlockPrimaryKeyNotDefined {
		t.Fatalf("err = %v, want ErrBlockPrimaryKeyNotDefined", err)
	}
}

func TestParseTxResponsesAbsentEnvelopeLeavesCountNil(t *testing.T) {
	height := int64(100)
	chainID := "jackal-1"
	r := &Raw{Height: &height, ChainID: &chainID}

	if err := ParseTxResponses(r, json.RawMessage(`{}`)); err != nil {
		t.Fatalf("ParseTxResponses: %v", err)
	}
	if r.TxResponsesTxCount != nil {
		t.Fatalf("tx_responses_tx_count = %v, want nil", r.TxResponsesTxCount)
	}
}

func TestParseTxResponsesEmptyEnvelopeSetsZero(t *testing.T) {
	height := int64(100)
	chainID := "jackal-1"
	r := &Raw{Height: &height, ChainID: &chainID}

	if err := ParseTxResponses(r, json.RawMessage(`{"tx_responses": []}`)); err != nil {
		t.Fatalf("ParseTxResponses: %v", err)
	}
	if r.TxResponsesTxCount == nil || *r.TxResponsesTxCount != 0 {
		t.Fatalf("tx_responses_tx_count = %v, want 0", r.TxResponsesTxCount)
	}
}

func TestParseLogsMalformedRawLogCapturedAsFailed(t *testing.T) {
	logs := ParseLogs("not json", "txhash1")
	if len(logs) != 1 || !logs[0].Failed {
		t.Fatalf("logs = %+v, want single failed log", logs)
	}
	if logs[0].FailedMsg != "not json" {
		t.Fatalf("failed_msg = %q, want %q", logs[0].FailedMsg, "not json")
	}
}

func TestParseLogsWasmEventKeepsOnlyContractAddress(t *testing.T) {
	rawLog := `[{"events":[{"type":"wasm","attributes":[
		{"key":"contract_address","value":"cosmos1abc"},
		{"key":"action","value":"transfer"}
	]}]}]`
	logs := ParseLogs(rawLog, "txhash1")
	if len(logs) != 1 {
		t.Fatalf("got %d logs, want 1", len(logs))
	}
	if len(logs[0].EventAttributes) != 1 {
		t.Fatalf("event attributes = %+v, want exactly contract_address", logs[0].EventAttributes)
	}
	col := LogColumn{Event: "wasm", Attribute: "contract_address"}
	values, ok := logs[0].EventAttributes[col]
	if !ok || len(values) != 1 || values[0] != "cosmos1abc" {
		t.Fatalf("wasm contract_address values = %v", values)
	}
}

func TestParseLogsNonWasmEventKeepsAllAttributes(t *testing.T) {
	rawLog := `[{"events":[{"type":"transfer","attributes":[
		{"key":"recipient","value":"cosmos1xyz"},
		{"key":"amount","value":"100ujkl"}
	]}]}]`
	logs := ParseLogs(rawLog, "txhash1")
	if len(logs) != 1 || len(logs[0].EventAttributes) != 2 {
		t.Fatalf("event attributes = %+v, want 2 entries", logs[0].EventAttributes)
	}
}

func TestParseLogsLaterEventOverwritesSharedColumn(t *testing.T) {
	rawLog := `[{"events":[
		{"type":"transfer","attributes":[{"key":"amount","value":"100ujkl"}]},
		{"type":"transfer","attributes":[{"key":"amount","value":"200ujkl"}]}
	]}]`
	logs := ParseLogs(rawLog, "txhash1")
	if len(logs) != 1 {
		t.Fatalf("got %d logs, want 1", len(logs))
	}
	col := LogColumn{Event: "transfer", Attribute: "amount"}
	values, ok := logs[0].EventAttributes[col]
	if !ok || len(values) != 1 || values[0] != "200ujkl" {
		t.Fatalf("transfer.amount = %v, want [200ujkl] (later event overwrites)", values)
	}
}

func TestParseMessagesPopsTypeField(t *testing.T) {
	rawTx := json.RawMessage(`{
		"body": {
			"messages": [
				{"@type": "/cosmos.bank.v1beta1.MsgSend", "from_address": "a", "to_address": "b"}
			]
		}
	}`)
	messages, err := ParseMessages(rawTx, "txhash1")
	if err != nil {
		t.Fatalf("ParseMessages: %v", err)
	}
	if len(messages) != 1 {
		t.Fatalf("got %d messages, want 1", len(messages))
	}
	if messages[0].Type != "/cosmos.bank.v1beta1.MsgSend" {
		t.Fatalf("type = %q", messages[0].Type)
	}
	if _, ok := messages[0].Attributes["@type"]; ok {
		t.Fatalf("attributes still contain @type: %+v", messages[0].Attributes)
	}
	if messages[0].Attributes["from_address"] != "a" {
		t.Fatalf("from_address = %q, want a", messages[0].Attributes["from_address"])
	}
}
