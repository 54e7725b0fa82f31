package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"platen/internal/api"
	"platen/internal/config"
	"platen/internal/jobs"
	"platen/internal/logging"
	"platen/internal/services"
)

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || d == nil {
		return nil, nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, nil
	}

	mux := http.NewServeMux()
	srv := &apiServer{
		bind:   bind,
		logger: logger,
		daemon: d,
	}

	mux.HandleFunc("/api/status", srv.handleStatus)
	mux.HandleFunc("/api/jobs", srv.handleJobs)
	mux.HandleFunc("/api/jobs/", srv.handleJob)
	mux.HandleFunc("/api/cleanup", srv.handleCleanup)

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status := s.daemon.Status()
	payload := api.StatusView{
		Running:      status.Running,
		Active:       status.Stats.Active,
		Submitted:    status.Stats.Submitted,
		Completed:    status.Stats.Completed,
		Failed:       status.Stats.Failed,
		Cancelled:    status.Stats.Cancelled,
		StatusCounts: status.StatusCounts,
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *apiServer) handleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listJobs(w, r)
	case http.MethodPost:
		s.submitJob(w, r)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) listJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	statusFilter := jobs.Status(strings.TrimSpace(query.Get("status")))
	limit, _ := strconv.Atoi(query.Get("limit"))
	offset, _ := strconv.Atoi(query.Get("offset"))

	list := s.daemon.orch.ListJobs(statusFilter, limit, offset)
	s.writeJSON(w, http.StatusOK, api.JobListResponse{Jobs: api.NewJobViews(list)})
}

func (s *apiServer) submitJob(w http.ResponseWriter, r *http.Request) {
	var req api.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.InputPath) == "" {
		s.writeError(w, http.StatusBadRequest, "input_path is required")
		return
	}

	jobID, err := s.daemon.orch.StartConversion(req.InputPath, req.OutputDir, req.Options, req.JobID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, api.SubmitResponse{JobID: jobID})
}

// handleJob routes /api/jobs/{id} and its /progress and /result subresources.
func (s *apiServer) handleJob(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	jobID, sub, _ := strings.Cut(rest, "/")
	if jobID == "" || strings.Contains(sub, "/") {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}

	switch {
	case sub == "" && r.Method == http.MethodGet:
		job, err := s.daemon.orch.GetJob(jobID)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.NewJobView(job))
	case sub == "" && r.Method == http.MethodDelete:
		if !s.daemon.orch.CancelJob(jobID) {
			s.writeError(w, http.StatusConflict, "job is unknown or already finished")
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]string{"job_id": jobID, "status": "cancelling"})
	case sub == "progress" && r.Method == http.MethodGet:
		progress, err := s.daemon.orch.GetProgress(jobID)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.NewProgressView(progress))
	case sub == "result" && r.Method == http.MethodGet:
		result, err := s.daemon.orch.GetResult(jobID)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.NewResultView(result))
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleCleanup runs a retention sweep on demand. Without an explicit
// older_than_hours parameter the configured retention window applies.
func (s *apiServer) handleCleanup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	hours := s.daemon.cfg.Orchestrator.RetentionHours
	if raw := strings.TrimSpace(r.URL.Query().Get("older_than_hours")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			s.writeError(w, http.StatusBadRequest, "older_than_hours must be a non-negative integer")
			return
		}
		hours = parsed
	}

	removed := s.daemon.orch.CleanupCompletedJobs(hours)
	s.writeJSON(w, http.StatusOK, api.CleanupResponse{Removed: removed, OlderThanHours: hours})
}

// writeServiceError maps classified service errors to HTTP statuses.
func (s *apiServer) writeServiceError(w http.ResponseWriter, err error) {
	details := services.Details(err)
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrJobNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrDuplicateJob):
		status = http.StatusConflict
	case errors.Is(err, services.ErrResourceLimit):
		status = http.StatusTooManyRequests
	case errors.Is(err, services.ErrValidation):
		status = http.StatusBadRequest
	}
	s.writeJSON(w, status, api.ErrorResponse{Error: details.Message, Category: details.Category})
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String(logging.FieldComponent, "api-server"))
	}
	return logging.NewNop()
}
