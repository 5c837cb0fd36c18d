// Package webserver exposes read-only JSON views of a project's memory
// plus a live server-sent-events stream of published messages, for
// dashboards and local tooling.
// It never accepts writes — capture and the MCP surface own that path.
package webserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/laminark/laminark/internal/store"
)

// maxPortRetries bounds how many times Start will try the next port
// after a bind failure before giving up and logging instead of crashing
// the whole process over an unavailable port.
const maxPortRetries = 5

// Server is a loopback-only HTTP server over a project's repositories.
type Server struct {
	repos  *store.Repositories
	log    zerolog.Logger
	router chi.Router
	broker *broker
}

// New builds a Server bound to repos.
func New(repos *store.Repositories, log zerolog.Logger) *Server {
	s := &Server{repos: repos, log: log, broker: newBroker()}
	s.router = s.routes()
	return s
}

// Handler returns the chi router, mainly for tests that want to drive
// it through httptest.Server without going through Start's port logic.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/observations", s.handleListObservations)
	r.Get("/observations/{id}", s.handleGetObservation)
	r.Get("/sessions/latest", s.handleLatestSession)
	r.Get("/tools", s.handleListTools)
	r.Get("/search", s.handleSearch)
	r.Get("/graph/stats", s.handleGraphStats)
	r.Get("/events/stream", s.handleEventStream)
	return r
}

// Start binds to loopback starting at startPort, retrying on the next
// port up to maxPortRetries times. If every attempt fails it logs and
// returns without error — a dashboard that can't bind is not a reason
// to take down the RPC process that embeds it.
func (s *Server) Start(ctx context.Context, startPort int) {
	port := startPort
	var ln net.Listener
	for attempt := 0; attempt <= maxPortRetries; attempt++ {
		l, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
		if err == nil {
			ln = l
			break
		}
		s.log.Warn().Err(err).Int("port", port).Msg("web server bind failed, trying next port")
		port++
	}
	if ln == nil {
		s.log.Warn().Msg("web server could not bind after retrying, continuing without it")
		return
	}

	httpServer := &http.Server{Handler: s.router}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	s.log.Info().Int("port", port).Msg("web server listening")
	if err := httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
		s.log.Warn().Err(err).Msg("web server stopped")
	}
}

func (s *Server) handleListObservations(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	obs, err := s.repos.Observations.List(store.ObservationListOptions{Limit: limit})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, obs)
}

func (s *Server) handleGetObservation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	obs, err := s.repos.Observations.GetByID(id)
	if err == store.ErrNotFound {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, obs)
}

func (s *Server) handleLatestSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.repos.Sessions.GetLatest()
	if err == store.ErrNotFound {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	entries, err := s.repos.ToolRegistry.GetAvailableForSession()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("q is required"))
		return
	}
	results, err := s.repos.Search.SearchKeyword(query, store.SearchOptions{})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleGraphStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.repos.Graph.Stats()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleEventStream streams every message passed to Publish as a
// server-sent event. Each connection subscribes to the broker and reads
// from its own channel; the stream ends when the client's request
// context is done or a write fails.
func (s *Server) handleEventStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("streaming unsupported"))
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	sub := s.broker.subscribe()
	defer s.broker.unsubscribe(sub)

	for {
		select {
		case <-r.Context().Done():
			return
		case msg := <-sub:
			if _, err := fmt.Fprintf(w, "data: %s\n\n", msg); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// Publish notifies every connected stream subscriber. Safe to call
// concurrently; a slow or absent subscriber never blocks the caller.
func (s *Server) Publish(message string) {
	s.broker.publish(message)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
