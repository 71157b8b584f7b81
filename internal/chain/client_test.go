package chain

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetchJSONFailsOverToNextEndpoint(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()

	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true}`))
	}))
	defer good.Close()

	// The first call on a fresh Client starts at index 1, so bad is tried
	// first and good is reached only by failing over.
	c := NewClient([]string{good.URL, bad.URL}, 0)
	body, err := c.fetchJSON(context.Background(), "/anything")
	if err != nil {
		t.Fatalf("fetchJSON: %v", err)
	}
	if string(body) != `{"ok":true}` {
		t.Fatalf("body = %s", body)
	}
}

func TestFetchJSONFailsWhenAllEndpointsFail(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()

	c := NewClient([]string{bad.URL}, 0)
	_, err := c.fetchJSON(context.Background(), "/anything")
	if !errors.Is(err, ErrAllEndpointsFailed) {
		t.Fatalf("err = %v, want ErrAllEndpointsFailed", err)
	}
}

func TestFetchJSONNoEndpoints(t *testing.T) {
	c := NewClient(nil, 0)
	_, err := c.fetchJSON(context.Background(), "/anything")
	if !errors.Is(err, ErrNoEndpoints) {
		t.Fatalf("err = %v, want ErrNoEndpoints", err)
	}
}

func TestFetchJSONRejectsInvalidBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	c := NewClient([]string{srv.URL}, 0)
	_, err := c.fetchJSON(context.Background(), "/anything")
	if err == nil {
		t.Fatal("expected error for non-JSON body")
	}
}

func TestGetLatestHeightParsesStringHeight(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"block":{"header":{"height":"100"}}}`))
	}))
	defer srv.Close()

	c := NewClient([]string{srv.URL}, 0)
	h, err := c.GetLatestHeight(context.Background())
	if err != nil {
		t.Fatalf("GetLatestHeight: %v", err)
	}
	if h == nil || *h != 100 {
		t.Fatalf("height = %v, want 100", h)
	}
}

func TestGetLowestHeightDefaultsToOneWhenStatusFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient([]string{srv.URL}, 0)
	h, err := c.GetLowestHeight(context.Background())
	if err != nil {
		t.Fatalf("GetLowestHeight: %v, want nil error even when every endpoint fails", err)
	}
	if h != 1 {
		t.Fatalf("height = %d, want 1 (assume full history on failure)", h)
	}
}

func TestGetLowestHeightReadsEarliestStoreHeight(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"earliest_store_height":"500"}`))
	}))
	defer srv.Close()

	c := NewClient([]string{srv.URL}, 0)
	h, err := c.GetLowestHeight(context.Background())
	if err != nil {
		t.Fatalf("GetLowestHeight: %v", err)
	}
	if h != 500 {
		t.Fatalf("height = %d, want 500", h)
	}
}

func TestFlexInt64UnmarshalsBareAndQuoted(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{`"42"`, 42},
		{`42`, 42},
		{`""`, 0},
		{`null`, 0},
	}
	for _, tc := range cases {
		var f flexInt64
		if err := f.UnmarshalJSON([]byte(tc.in)); err != nil {
			t.Fatalf("UnmarshalJSON(%s): %v", tc.in, err)
		}
		if int64(f) != tc.want {
			t.Fatalf("UnmarshalJSON(%s) = %d, want %d", tc.in, f, tc.want)
		}
	}
}
