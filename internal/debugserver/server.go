// Package debugserver exposes the ingester's health and metrics endpoints.
// It carries none of the teacher's data-serving routes — this spec's
// Non-goals exclude querying the indexed dataset over HTTP — but keeps
// the teacher's router/bootstrap shape for the narrow operational
// surface an ingestion service still needs.
package debugserver

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HeightReader is the narrow status surface the /healthz handler reads
// from, satisfied by *repository.Repository.
type HeightReader interface {
	MaxHeight(ctx context.Context, chainID string) (*int64, error)
}

// Server hosts /healthz and /metrics on its own port, separate from any
// chain-facing traffic.
type Server struct {
	httpServer *http.Server
	repo       HeightReader
	chainID    string
}

// New builds a Server bound to addr (e.g. ":9102"). reg is the
// Prometheus registry /metrics serves.
func New(addr string, reg *prometheus.Registry, repo HeightReader, chainID string) *Server {
	r := mux.NewRouter()
	s := &Server{repo: repo, chainID: chainID}

	r.HandleFunc("/healthz", s.handleHealthz).Methods("GET")
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{})).Methods("GET")

	s.httpServer = &http.Server{Addr: addr, Handler: r}
	return s
}

// Start blocks serving until the listener fails or is shut down.
func (s *Server) Start() error {
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	height, err := s.repo.MaxHeight(r.Context(), s.chainID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":     "ok",
		"chain_id":   s.chainID,
		"max_height": height,
	})
}
