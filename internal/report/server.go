package report

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router serves /metrics, /failures and /health.
func Router(m *Metrics, failures *FailureLog) *mux.Router {
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{})).Methods(http.MethodGet)
	router.HandleFunc("/failures", func(w http.ResponseWriter, r *http.Request) {
		n, _ := strconv.Atoi(r.URL.Query().Get("n"))
		w.Header().Set("Content-Type", "application/json")
		samples := failures.GetRecent(n)
		if err := json.NewEncoder(w).Encode(samples); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}).Methods(http.MethodGet)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)
	return router
}

// Server exposes metrics over HTTP while a batch runs.
type Server struct {
	srv    *http.Server
	logger hclog.Logger
	done   chan error
}

// Serve starts listening on addr in the background.
func Serve(addr string, m *Metrics, failures *FailureLog, logger hclog.Logger) *Server {
	s := &Server{
		srv: &http.Server{
			Addr:         addr,
			Handler:      Router(m, failures),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
		done:   make(chan error, 1),
	}
	go func() {
		logger.Info("metrics server listening", "addr", addr)
		err := s.srv.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		if err != nil {
			logger.Error("metrics server failed", "error", err)
		}
		s.done <- err
	}()
	return s
}

// Shutdown stops the server, waiting up to the context deadline for
// in-flight scrapes.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.srv.Shutdown(ctx); err != nil {
		return err
	}
	return <-s.done
}
