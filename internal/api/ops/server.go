package ops

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"service_market/internal/domain"
	"service_market/internal/service"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const DefaultAddr = "127.0.0.1:9090"

// SeqSource reports the last committed sequence number.
type SeqSource interface {
	LastSeq() uint64
}

// Server exposes metrics, health, the listing index and the live event feed.
type Server struct {
	httpServer *http.Server
	seq        SeqSource
	query      *service.MarketService
	hub        *Hub
}

func NewServer(addr string, reg *prometheus.Registry, seq SeqSource, query *service.MarketService, hub *Hub) *Server {
	if addr == "" {
		addr = DefaultAddr
	}

	mux := http.NewServeMux()
	s := &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		seq:   seq,
		query: query,
		hub:   hub,
	}
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /v1/marketplaces/{address}/listings", s.handleListings)
	mux.HandleFunc("GET /ws/events", hub.ServeWS)
	return s
}

// Handler returns the router, used by tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("Ops server listening", slog.String("addr", s.httpServer.Addr))
		err := s.httpServer.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
			return
		}
		errCh <- err
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.hub.Close()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-errCh
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"last_seq": s.seq.LastSeq(),
		"clients":  s.hub.Len(),
	})
}

func (s *Server) handleListings(w http.ResponseWriter, r *http.Request) {
	addr, err := domain.ParseAddress(r.PathValue("address"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	listings, err := s.query.ListingsByMarketplace(addr)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrMarketplaceNotFound) {
			status = http.StatusNotFound
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, listings)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to write response", slog.Any("error", err))
	}
}
