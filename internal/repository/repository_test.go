package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

func TestNewRepositoryRejectsMalformedURL(t *testing.T) {
	_, err := NewRepository(context.Background(), "not-a-valid-url", "public", 0)
	if err == nil {
		t.Fatal("expected error for a malformed db url")
	}
}

func TestTableQualifiesWithSchema(t *testing.T) {
	r := &Repository{schema: "jackal"}
	if got, want := r.table("raw"), "jackal.raw"; got != want {
		t.Fatalf("table(%q) = %q, want %q", "raw", got, want)
	}
}

func TestDDLTemplateSubstitutesSchemaEverywhere(t *testing.T) {
	ddl := fmt.Sprintf(ddlTemplate, "jackal")
	for _, want := range []string{
		"CREATE SCHEMA IF NOT EXISTS jackal;",
		"CREATE TABLE IF NOT EXISTS jackal.raw (",
		"CREATE TABLE IF NOT EXISTS jackal.blocks (",
		"CREATE TABLE IF NOT EXISTS jackal.txs (",
		"CREATE TABLE IF NOT EXISTS jackal.logs (",
		"CREATE TABLE IF NOT EXISTS jackal.log_columns (",
		"CREATE TABLE IF NOT EXISTS jackal.messages (",
		"CREATE TABLE IF NOT EXISTS jackal.msg_columns (",
	} {
		if !strings.Contains(ddl, want) {
			t.Fatalf("ddl missing %q", want)
		}
	}
	if strings.Contains(ddl, "%[1]s") {
		t.Fatal("ddl template left an unsubstituted verb")
	}
}
