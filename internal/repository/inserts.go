package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"flowscan-clone/internal/parsing"
)

func (r *Repository) insertBlock(ctx context.Context, tx pgx.Tx, b *parsing.Block) error {
	_, err := tx.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (chain_id, height, block_time, block_hash, proposer_address)
		VALUES ($1, $2, $3, $4, $5)
	`, r.table("blocks")), b.ChainID, b.Height, b.Time, b.BlockHash, b.ProposerAddress)
	if err != nil {
		return fmt.Errorf("insert block: %w", err)
	}
	return nil
}

// insertTxs bulk-inserts transaction rows via UNNEST, one round trip
// regardless of batch size.
func (r *Repository) insertTxs(ctx context.Context, tx pgx.Tx, txs []parsing.Tx) error {
	if len(txs) == 0 {
		return nil
	}

	hashes := make([]string, len(txs))
	chainIDs := make([]string, len(txs))
	heights := make([]int64, len(txs))
	codes := make([]string, len(txs))
	data := make([]string, len(txs))
	info := make([]string, len(txs))
	logsRaw := make([][]byte, len(txs))
	eventsRaw := make([][]byte, len(txs))
	rawLogs := make([]string, len(txs))
	gasUsed := make([]int64, len(txs))
	gasWanted := make([]int64, len(txs))
	codespaces := make([]string, len(txs))
	timestamps := make([]interface{}, len(txs))
	txBodies := make([][]byte, len(txs))

	for i, t := range txs {
		hashes[i] = t.TxHash
		chainIDs[i] = t.ChainID
		heights[i] = t.Height
		codes[i] = t.Code
		data[i] = t.Data
		info[i] = t.Info
		logsRaw[i] = t.Logs
		eventsRaw[i] = t.Events
		rawLogs[i] = t.RawLog
		gasUsed[i] = t.GasUsed
		gasWanted[i] = t.GasWanted
		codespaces[i] = t.Codespace
		timestamps[i] = t.Timestamp
		txBodies[i] = t.Tx
	}

	_, err := tx.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (
			tx_hash, chain_id, height, code, data, info,
			logs, events, raw_log, gas_used, gas_wanted,
			codespace, tx_timestamp, tx
		)
		SELECT u.tx_hash, u.chain_id, u.height, u.code, u.data, u.info,
			u.logs, u.events, u.raw_log, u.gas_used, u.gas_wanted,
			u.codespace, u.tx_timestamp, u.tx
		FROM UNNEST(
			$1::text[], $2::text[], $3::bigint[], $4::text[], $5::text[], $6::text[],
			$7::jsonb[], $8::jsonb[], $9::text[], $10::bigint[], $11::bigint[],
			$12::text[], $13::timestamptz[], $14::jsonb[]
		) AS u(
			tx_hash, chain_id, height, code, data, info,
			logs, events, raw_log, gas_used, gas_wanted,
			codespace, tx_timestamp, tx
		)
	`, r.table("txs")),
		hashes, chainIDs, heights, codes, data, info,
		logsRaw, eventsRaw, rawLogs, gasUsed, gasWanted,
		codespaces, timestamps, txBodies,
	)
	if err != nil {
		return fmt.Errorf("insert txs batch: %w", err)
	}
	return nil
}

func (r *Repository) insertLogs(ctx context.Context, tx pgx.Tx, logs []parsing.Log) error {
	for _, l := range logs {
		dump, err := l.Dump()
		if err != nil {
			return fmt.Errorf("dump log: %w", err)
		}
		_, err = tx.Exec(ctx, fmt.Sprintf(`
			INSERT INTO %s (tx_hash, msg_index, failed, failed_msg, attributes)
			VALUES ($1, $2, $3, $4, $5)
		`, r.table("logs")), l.TxHash, l.MsgIndex, l.Failed, l.FailedMsg, dump)
		if err != nil {
			return fmt.Errorf("insert log: %w", err)
		}
	}
	return nil
}

func (r *Repository) insertMessages(ctx context.Context, tx pgx.Tx, messages []parsing.Message) error {
	for _, m := range messages {
		attrs := make(map[string]string, len(m.Attributes))
		for k, v := range m.Attributes {
			attrs[k] = v
		}
		_, err := tx.Exec(ctx, fmt.Sprintf(`
			INSERT INTO %s (tx_hash, msg_index, msg_type, attributes)
			VALUES ($1, $2, $3, $4)
		`, r.table("messages")), m.TxHash, m.MsgIndex, m.Type, attrs)
		if err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
	}
	return nil
}

func (r *Repository) insertLogColumns(ctx context.Context, tx pgx.Tx, cols map[parsing.LogColumn]struct{}) error {
	if len(cols) == 0 {
		return nil
	}
	events := make([]string, 0, len(cols))
	attrs := make([]string, 0, len(cols))
	for c := range cols {
		events = append(events, c.Event)
		attrs = append(attrs, c.Attribute)
	}
	_, err := tx.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (event, attribute)
		SELECT * FROM UNNEST($1::text[], $2::text[])
		ON CONFLICT (event, attribute) DO NOTHING
	`, r.table("log_columns")), events, attrs)
	if err != nil {
		return fmt.Errorf("insert log columns: %w", err)
	}
	return nil
}

func (r *Repository) insertMsgColumns(ctx context.Context, tx pgx.Tx, cols map[string]struct{}) error {
	if len(cols) == 0 {
		return nil
	}
	attrs := make([]string, 0, len(cols))
	for c := range cols {
		attrs = append(attrs, c)
	}
	_, err := tx.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (attribute)
		SELECT * FROM UNNEST($1::text[])
		ON CONFLICT (attribute) DO NOTHING
	`, r.table("msg_columns")), attrs)
	if err != nil {
		return fmt.Errorf("insert msg columns: %w", err)
	}
	return nil
}
