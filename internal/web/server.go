// Package web exposes the scheduler's HTTP API.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"taskd/internal/db"
	"taskd/internal/metrics"
	"taskd/internal/tasks"
)

// Server handles the HTTP API.
type Server struct {
	store   db.Store
	service *tasks.Service
	metrics *metrics.Metrics
	addr    string
}

// NewServer creates an API server on addr.
func NewServer(store db.Store, service *tasks.Service, m *metrics.Metrics, addr string) *Server {
	return &Server{
		store:   store,
		service: service,
		metrics: m,
		addr:    addr,
	}
}

// Handler builds the route table. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /db-health", s.handleDBHealth)
	mux.HandleFunc("POST /tasks", s.handleCreateTask)
	mux.HandleFunc("GET /tasks", s.handleListTasks)
	mux.HandleFunc("GET /tasks/{id}", s.handleGetTask)
	mux.Handle("GET /metrics", s.metrics.Handler())

	return s.metrics.RequestTrackingMiddleware(mux)
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

type taskView struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	DurationMS int64  `json:"duration_ms"`
	Status     string `json:"status"`
}

func viewOf(t *db.Task) taskView {
	return taskView{
		ID:         t.ID,
		Type:       t.Type,
		DurationMS: t.DurationMS,
		Status:     string(t.Status),
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeDetail(w http.ResponseWriter, code int, detail string) {
	writeJSON(w, code, map[string]string{"detail": detail})
}

// handleHealth never touches the store.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDBHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.HealthCheck(r.Context()); err != nil {
		slog.Error("database health check failed", "error", err)
		writeDetail(w, http.StatusServiceUnavailable, "Database connection failed")
		return
	}
	slog.Debug("database health check passed")
	writeJSON(w, http.StatusOK, map[string]string{"db": "ok"})
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req tasks.SubmitRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid request body: "+err.Error())
		return
	}

	result, err := s.service.Submit(r.Context(), req)
	if err != nil {
		s.writeSubmitError(w, err)
		return
	}

	s.metrics.TasksSubmitted.Inc()
	writeJSON(w, http.StatusCreated, result)
}

func (s *Server) writeSubmitError(w http.ResponseWriter, err error) {
	var (
		validationErr *tasks.ValidationError
		existsErr     *tasks.AlreadyExistsError
		missingErr    *tasks.MissingDependencyError
		cycleErr      *tasks.CycleError
	)
	switch {
	case errors.As(err, &validationErr):
		writeDetail(w, http.StatusUnprocessableEntity, validationErr.Detail)
	case errors.As(err, &existsErr):
		writeDetail(w, http.StatusConflict, "Task with this ID already exists")
	case errors.As(err, &missingErr):
		writeDetail(w, http.StatusBadRequest, missingErr.Error())
	case errors.As(err, &cycleErr):
		writeDetail(w, http.StatusBadRequest, "Task dependency cycle detected")
	default:
		slog.Error("unexpected error creating task", "error", err)
		writeDetail(w, http.StatusInternalServerError, "An internal server error occurred")
	}
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	task, err := s.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrTaskNotFound) {
			writeDetail(w, http.StatusNotFound, "Task not found")
			return
		}
		slog.Error("unexpected error fetching task", "task_id", id, "error", err)
		writeDetail(w, http.StatusInternalServerError, "An internal server error occurred")
		return
	}

	writeJSON(w, http.StatusOK, viewOf(task))
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	all, err := s.service.List(r.Context())
	if err != nil {
		slog.Error("unexpected error listing tasks", "error", err)
		writeDetail(w, http.StatusInternalServerError, "An internal server error occurred")
		return
	}

	views := make([]taskView, 0, len(all))
	for i := range all {
		views = append(views, viewOf(&all[i]))
	}
	writeJSON(w, http.StatusOK, map[string][]taskView{"tasks": views})
}
