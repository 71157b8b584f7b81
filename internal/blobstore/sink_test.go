package blobstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestBlockKey(t *testing.T) {
	got := BlockKey("jackal", "jackal-1", 42)
	want := "jackal/jackal-1/blocks/42.json"
	if got != want {
		t.Fatalf("BlockKey = %q, want %q", got, want)
	}
}

func TestTxsKey(t *testing.T) {
	got := TxsKey("jackal", "jackal-1", 42)
	want := "jackal/jackal-1/txs/42.json"
	if got != want {
		t.Fatalf("TxsKey = %q, want %q", got, want)
	}
}

func TestPutJSONFailsOnUnmarshalablePayload(t *testing.T) {
	s := &S3Sink{metrics: noopRecorder{}}
	// a bare channel value cannot be marshaled to JSON, so PutJSON must
	// fail before ever touching the S3 client.
	ok := s.PutJSON(context.Background(), "some/key.json", make(chan int))
	if ok {
		t.Fatal("expected PutJSON to fail for an unmarshalable payload")
	}
}

func TestPutOnceStagesToDiskAndCleansUpOnFailure(t *testing.T) {
	// client is nil, so the upload itself fails once it gets there; this
	// only verifies that no staging temp file is left behind when the
	// upload fails.
	s := &S3Sink{bucket: "bucket", metrics: noopRecorder{}, stageToDisk: true}

	func() {
		defer func() { recover() }()
		s.putOnce(context.Background(), "some/key.json", []byte(`{"a":1}`))
	}()

	leftover, _ := filepath.Glob(filepath.Join(os.TempDir(), "blobstore-*.json"))
	if len(leftover) != 0 {
		t.Fatalf("staging temp file leaked: %v", leftover)
	}
}
