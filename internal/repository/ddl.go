package repository

import (
	"context"
	"fmt"
)

// CreateTables runs the schema DDL verbatim, substituting the configured
// schema name. Idempotent: safe to call against an already-migrated
// database.
func (r *Repository) CreateTables(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, fmt.Sprintf(ddlTemplate, r.schema))
	if err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}

// DropTables tears down the schema and everything in it.
func (r *Repository) DropTables(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, fmt.Sprintf(`DROP SCHEMA IF EXISTS %s CASCADE`, r.schema))
	if err != nil {
		return fmt.Errorf("drop tables: %w", err)
	}
	return nil
}

const ddlTemplate = `
CREATE SCHEMA IF NOT EXISTS %[1]s;

CREATE TABLE IF NOT EXISTS %[1]s.raw (
	chain_id       text NOT NULL,
	height         bigint NOT NULL,
	block_tx_count int,
	tx_tx_count    int,
	PRIMARY KEY (chain_id, height)
);

CREATE TABLE IF NOT EXISTS %[1]s.blocks (
	chain_id         text NOT NULL,
	height           bigint NOT NULL,
	block_time       timestamptz,
	block_hash       text,
	proposer_address text
);

CREATE TABLE IF NOT EXISTS %[1]s.txs (
	tx_hash       text NOT NULL,
	chain_id      text NOT NULL,
	height        bigint NOT NULL,
	code          text,
	data          text,
	info          text,
	logs          jsonb,
	events        jsonb,
	raw_log       text,
	gas_used      bigint,
	gas_wanted    bigint,
	codespace     text,
	tx_timestamp  timestamptz,
	tx            jsonb
);

CREATE TABLE IF NOT EXISTS %[1]s.logs (
	id          bigserial PRIMARY KEY,
	tx_hash     text NOT NULL,
	msg_index   text NOT NULL,
	failed      boolean NOT NULL DEFAULT false,
	failed_msg  text,
	attributes  jsonb
);

CREATE TABLE IF NOT EXISTS %[1]s.log_columns (
	event     text NOT NULL,
	attribute text NOT NULL,
	PRIMARY KEY (event, attribute)
);

CREATE TABLE IF NOT EXISTS %[1]s.messages (
	id         bigserial PRIMARY KEY,
	tx_hash    text NOT NULL,
	msg_index  text NOT NULL,
	msg_type   text,
	attributes jsonb
);

CREATE TABLE IF NOT EXISTS %[1]s.msg_columns (
	attribute text PRIMARY KEY
);

CREATE INDEX IF NOT EXISTS idx_%[1]s_raw_height ON %[1]s.raw (height);
CREATE INDEX IF NOT EXISTS idx_%[1]s_logs_tx_hash ON %[1]s.logs (tx_hash);
CREATE INDEX IF NOT EXISTS idx_%[1]s_messages_tx_hash ON %[1]s.messages (tx_hash);
`
