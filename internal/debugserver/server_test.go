package debugserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

type fakeHeightReader struct {
	height *int64
	err    error
}

func (f *fakeHeightReader) MaxHeight(ctx context.Context, chainID string) (*int64, error) {
	return f.height, f.err
}

func TestHandleHealthzReportsMaxHeight(t *testing.T) {
	h := int64(42)
	s := &Server{repo: &fakeHeightReader{height: &h}, chainID: "jackal-1"}

	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()
	s.handleHealthz(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["status"] != "ok" || body["chain_id"] != "jackal-1" {
		t.Fatalf("body = %+v", body)
	}
	if body["max_height"].(float64) != 42 {
		t.Fatalf("max_height = %v, want 42", body["max_height"])
	}
}

func TestHandleHealthzReportsStoreError(t *testing.T) {
	s := &Server{repo: &fakeHeightReader{err: errors.New("db down")}, chainID: "jackal-1"}

	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()
	s.handleHealthz(rec, req)

	if rec.Code != 500 {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestNewRegistersMetricsRoute(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := New(":0", reg, &fakeHeightReader{}, "jackal-1")
	if s.httpServer.Addr != ":0" {
		t.Fatalf("addr = %q, want :0", s.httpServer.Addr)
	}

	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 200 {
		t.Fatalf("GET /metrics status = %d, want 200", rec.Code)
	}
}
