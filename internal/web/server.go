// Package web serves health, status and metrics while a run is active.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/rail-scheduler/internal/runs"
	"github.com/example/rail-scheduler/internal/scheduler"
)

// Status tracks the current run for /status.
type Status struct {
	mu       sync.Mutex
	attempts int
	elapsed  time.Duration
	last     string
	state    string
}

type statusView struct {
	State       string  `json:"state"`
	Attempts    int     `json:"attempts"`
	ElapsedSecs float64 `json:"elapsed_seconds"`
	LastFailure string  `json:"last_failure,omitempty"`
}

func (s *Status) Attempt(n int, elapsed time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts, s.elapsed, s.state = n, elapsed, "running"
}

func (s *Status) Failure(rec scheduler.Recovery, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = rec.Category.String() + ": " + err.Error()
}

func (s *Status) Finished(res scheduler.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts, s.elapsed, s.state = res.Attempts, res.Elapsed, res.State.String()
}

func (s *Status) view() statusView {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.state
	if state == "" {
		state = "starting"
	}
	return statusView{State: state, Attempts: s.attempts, ElapsedSecs: s.elapsed.Seconds(), LastFailure: s.last}
}

type Server struct {
	Status *Status
	// Runs is optional; without it /runs answers 404.
	Runs *runs.Repo
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/runs", s.handleRuns)

	return mux
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.Status == nil {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, s.Status.view())
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.Runs == nil {
		http.NotFound(w, r)
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	rs, err := s.Runs.Recent(r.Context(), limit)
	if err != nil {
		slog.Error("list runs", "error", err)
		http.Error(w, "failed to list runs", http.StatusInternalServerError)
		return
	}
	writeJSON(w, rs)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// Start serves h on addr until ctx is done.
func Start(ctx context.Context, addr string, h http.Handler) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return Serve(ctx, ln, h)
}

func Serve(ctx context.Context, ln net.Listener, h http.Handler) error {
	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	slog.Info("metrics listening", "addr", ln.Addr().String())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
