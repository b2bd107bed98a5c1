package daemon

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"racefeed/internal/api"
	"racefeed/internal/config"
	"racefeed/internal/logging"
	"racefeed/internal/scheduler"
	"racefeed/internal/services"
)

const defaultHistoryLimit = 20

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon
	server *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	if cfg == nil || d == nil {
		return nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil
	}
	srv := &apiServer{
		bind:   bind,
		logger: logger,
		daemon: d,
	}
	srv.server = &http.Server{
		Handler:           srv.routes(cfg.Paths.APIToken),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) routes(token string) http.Handler {
	mux := http.NewServeMux()
	guard := func(h http.HandlerFunc) http.HandlerFunc {
		return withRequestID(s.requireToken(token, h))
	}
	mux.HandleFunc("/api/status", guard(s.handleStatus))
	mux.HandleFunc("/api/run", guard(s.handleRun))
	mux.HandleFunc("/api/history", guard(s.handleHistory))
	mux.HandleFunc("/api/test-notification", guard(s.handleTestNotification))
	mux.HandleFunc("/healthz", s.handleHealth)
	if m := s.daemon.metrics; m != nil {
		mux.Handle("/metrics", m.Handler())
	}
	return mux
}

// requireToken rejects requests without "Authorization: Bearer <token>".
// An empty token disables the check.
func (s *apiServer) requireToken(token string, next http.HandlerFunc) http.HandlerFunc {
	if token == "" {
		return next
	}
	want := []byte(token)
	return func(w http.ResponseWriter, r *http.Request) {
		presented, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(presented), want) != 1 {
			logging.WithContext(r.Context(), s.log()).Warn("api request rejected",
				logging.String("path", r.URL.Path),
				logging.String("remote", r.RemoteAddr),
				logging.String(logging.FieldEventType, "api_unauthorized"),
			)
			s.writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	}
}

// withRequestID tags the request context with the caller's X-Request-ID or a
// fresh one, and echoes it back.
func withRequestID(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next(w, r.WithContext(services.WithRequestID(r.Context(), id)))
	}
}

// serve listens until ctx is cancelled, then shuts the server down.
func (s *apiServer) serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api server: %w", err)
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		s.log().Warn("api server shutdown incomplete", logging.Error(err))
	}
	return nil
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status := s.daemon.Status()
	payload := api.DaemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		LockFilePath: status.LockFilePath,
		JournalPath:  status.JournalPath,
		Scheduler:    api.FromSchedulerStatus(status.Scheduler),
	}
	if !status.StartedAt.IsZero() {
		payload.StartedAt = status.StartedAt.UTC().Format(time.RFC3339)
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *apiServer) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	trigger := scheduler.TriggerAPI
	var body struct {
		Trigger string `json:"trigger"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if t := strings.TrimSpace(body.Trigger); t != "" {
		trigger = t
	}

	err := s.daemon.RequestPass(trigger)
	switch {
	case errors.Is(err, scheduler.ErrTriggerPending):
		s.writeJSON(w, http.StatusConflict, api.RunResponse{Trigger: trigger, Message: err.Error()})
	case err != nil:
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		logging.WithContext(r.Context(), s.log()).Info("pass requested",
			logging.String("trigger", trigger),
			logging.String(logging.FieldEventType, "pass_requested"),
		)
		s.writeJSON(w, http.StatusAccepted, api.RunResponse{Accepted: true, Trigger: trigger, Message: "pass requested"})
	}
}

func (s *apiServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	limit := defaultHistoryLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}
	passes, err := s.daemon.History(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := api.HistoryResponse{Passes: make([]api.Pass, 0, len(passes))}
	for _, p := range passes {
		out.Passes = append(out.Passes, api.FromJournalPass(p))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *apiServer) handleTestNotification(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	sent, message, err := s.daemon.TestNotification(r.Context())
	if err != nil {
		s.writeError(w, http.StatusBadGateway, fmt.Sprintf("%s: %v", message, err))
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"sent": sent, "message": message})
}

func (s *apiServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	if !s.daemon.running.Load() {
		s.writeError(w, http.StatusServiceUnavailable, "daemon not running")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
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
