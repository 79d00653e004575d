// Package httpapi exposes the lesson and recording operations as a JSON
// HTTP API.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"codelevels/internal/app/lessons"
	"codelevels/internal/ports"
)

const (
	maxJSONBody     = 1 << 20
	shutdownTimeout = 5 * time.Second
)

// Lessons is the lesson surface served over HTTP.
type Lessons interface {
	GetLevel(ctx context.Context, id string) (lessons.LevelView, error)
	RunCode(ctx context.Context, levelID, code string) (lessons.Outcome, error)
	ModifyCode(ctx context.Context, req lessons.ModifyRequest) (lessons.ModifyResult, error)
	Attempts(ctx context.Context, levelID string, limit int) ([]ports.Attempt, error)
}

// Recordings is the recording-session surface served over HTTP.
type Recordings interface {
	Start() string
	Append(id string, chunk []byte) error
	Stop(ctx context.Context, id string) (string, error)
}

// Config tunes the server.
type Config struct {
	Addr string
	// MaxAudioChunk caps one audio upload in bytes.
	MaxAudioChunk int64
	Logger        *slog.Logger
}

// Server routes HTTP requests to the lesson service and recording manager.
type Server struct {
	lessons    Lessons
	recordings Recordings
	cfg        Config
	logger     *slog.Logger
	started    time.Time
}

// NewServer constructs a Server. recordings may be nil when voice input is
// disabled.
func NewServer(lessonSvc Lessons, recordings Recordings, cfg Config) *Server {
	if cfg.MaxAudioChunk <= 0 {
		cfg.MaxAudioChunk = 25 << 20
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		lessons:    lessonSvc,
		recordings: recordings,
		cfg:        cfg,
		logger:     logger,
		started:    time.Now(),
	}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/levels/{id}", s.handleGetLevel)
	mux.HandleFunc("POST /api/levels/{id}/run", s.handleRun)
	mux.HandleFunc("POST /api/levels/{id}/modify", s.handleModify)
	mux.HandleFunc("GET /api/levels/{id}/attempts", s.handleAttempts)
	mux.HandleFunc("POST /api/recordings", s.handleStartRecording)
	mux.HandleFunc("POST /api/recordings/{session}/audio", s.handleAppendAudio)
	mux.HandleFunc("POST /api/recordings/{session}/stop", s.handleStopRecording)
	return s.logRequests(mux)
}

// Serve listens on cfg.Addr and blocks until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return s.serve(ctx, ln)
}

func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("http shutdown", "error", err)
		}
	}()

	s.logger.Info("http server listening", "addr", ln.Addr().String())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid json")
		return false
	}
	return true
}
