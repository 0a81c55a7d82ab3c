package server

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"wagerboard/internal/observability"
	"wagerboard/internal/store"
)

// Server exposes the read-only leaderboard API. Reads go straight to the
// snapshot store and never block on the scheduler's writes: a request during
// a rollover sees either the pre- or post-rollover view. Absent data is 404,
// only genuine storage faults surface as 500.
type Server struct {
	addr    string
	records *store.Records
	health  *observability.HealthChecker
	metrics *observability.Metrics
	log     zerolog.Logger
}

func New(addr string, records *store.Records, health *observability.HealthChecker,
	metrics *observability.Metrics, log zerolog.Logger) *Server {
	return &Server{
		addr:    addr,
		records: records,
		health:  health,
		metrics: metrics,
		log:     log,
	}
}

// Handler builds the routed handler with CORS and request logging applied.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/leaderboard", s.handleLeaderboard).Methods(http.MethodGet)
	r.HandleFunc("/previous-leaderboards", s.handlePrevious).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.health.LivenessHandler).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.health.ReadinessHandler).Methods(http.MethodGet)

	h := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet}),
	)(r)
	return handlers.LoggingHandler(os.Stdout, h)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutCtx)
	}()

	s.log.Info().Str("addr", s.addr).Msg("read API listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	const endpoint = "leaderboard"
	start := time.Now()

	snap, err := s.records.Current(r.Context())
	switch {
	case err != nil:
		s.log.Error().Err(err).Msg("read current leaderboard")
		s.writeJSON(w, endpoint, http.StatusInternalServerError,
			map[string]string{"error": "Failed to read leaderboard"})
	case snap == nil:
		s.writeJSON(w, endpoint, http.StatusNotFound,
			map[string]string{"error": "Leaderboard not found"})
	default:
		s.writeJSON(w, endpoint, http.StatusOK, snap)
	}
	s.observe(endpoint, start)
}

func (s *Server) handlePrevious(w http.ResponseWriter, r *http.Request) {
	const endpoint = "previous-leaderboards"
	start := time.Now()

	snap, err := s.records.Archived(r.Context())
	switch {
	case err != nil:
		s.log.Error().Err(err).Msg("read archived leaderboard")
		s.writeJSON(w, endpoint, http.StatusInternalServerError,
			map[string]string{"error": "Failed to read archived leaderboards"})
	case snap == nil:
		s.writeJSON(w, endpoint, http.StatusNotFound,
			map[string]string{"error": "No archived leaderboards found"})
	default:
		// A single archived week is retained, served as a one-element array.
		s.writeJSON(w, endpoint, http.StatusOK, []interface{}{snap})
	}
	s.observe(endpoint, start)
}

func (s *Server) writeJSON(w http.ResponseWriter, endpoint string, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Error().Err(err).Str("endpoint", endpoint).Msg("write response")
	}
	if s.metrics != nil {
		s.metrics.QueryRequests.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	}
}

func (s *Server) observe(endpoint string, start time.Time) {
	if s.metrics != nil {
		s.metrics.QueryDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}
}
