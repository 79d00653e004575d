package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"codelevels/internal/app/lessons"
	"codelevels/internal/app/recording"
	"codelevels/internal/domain/execution"
	"codelevels/internal/ports"
	"codelevels/internal/runtime"
)

type healthResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

type levelResponse struct {
	ID          int    `json:"id"`
	Objective   string `json:"objective"`
	Code        string `json:"code"`
	Testing     string `json:"testing"`
	TotalLevels int    `json:"total_levels"`
	Found       bool   `json:"found"`
}

type runRequest struct {
	Code string `json:"code"`
}

type modifyRequest struct {
	Code        string `json:"code"`
	Instruction string `json:"instruction"`
	Testing     string `json:"testing,omitempty"`
}

type outcomeResponse struct {
	SubmissionID string                `json:"submission_id"`
	Verdict      execution.VerdictKind `json:"verdict"`
	NextLevel    string                `json:"next_level,omitempty"`
	Diagnostic   string                `json:"diagnostic,omitempty"`
	Output       string                `json:"output"`
	ExitCode     *int64                `json:"exit_code,omitempty"`
	TimedOut     bool                  `json:"timed_out"`
	DurationMs   int64                 `json:"duration_ms"`
}

type modifyResponse struct {
	ModifiedCode string `json:"modified_code"`
	outcomeResponse
}

type attemptResponse struct {
	SubmissionID string                `json:"submission_id"`
	Origin       execution.Origin      `json:"origin"`
	Verdict      execution.VerdictKind `json:"verdict"`
	ExitCode     int64                 `json:"exit_code"`
	DurationMs   int64                 `json:"duration_ms"`
	CreatedAt    time.Time             `json:"created_at"`
}

type attemptsResponse struct {
	Attempts []attemptResponse `json:"attempts"`
}

type recordingResponse struct {
	Session string `json:"session,omitempty"`
	Status  string `json:"status"`
	Text    string `json:"text,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status: "ok",
		Uptime: time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) handleGetLevel(w http.ResponseWriter, r *http.Request) {
	view, err := s.lessons.GetLevel(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, levelResponse{
		ID:          view.ID,
		Objective:   view.Objective,
		Code:        view.Code,
		Testing:     view.Testing,
		TotalLevels: view.Total,
		Found:       view.Found,
	})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	outcome, err := s.lessons.RunCode(r.Context(), r.PathValue("id"), req.Code)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, makeOutcomeResponse(outcome))
}

func (s *Server) handleModify(w http.ResponseWriter, r *http.Request) {
	var req modifyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Instruction == "" {
		writeError(w, http.StatusBadRequest, "instruction required")
		return
	}

	res, err := s.lessons.ModifyCode(r.Context(), lessons.ModifyRequest{
		LevelID:     r.PathValue("id"),
		Code:        req.Code,
		Instruction: req.Instruction,
		Testing:     req.Testing,
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, modifyResponse{
		ModifiedCode:    res.ModifiedCode,
		outcomeResponse: makeOutcomeResponse(res.Outcome),
	})
}

func (s *Server) handleAttempts(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	attempts, err := s.lessons.Attempts(r.Context(), r.PathValue("id"), limit)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	resp := attemptsResponse{Attempts: make([]attemptResponse, 0, len(attempts))}
	for _, a := range attempts {
		resp.Attempts = append(resp.Attempts, attemptResponse{
			SubmissionID: a.SubmissionID,
			Origin:       a.Origin,
			Verdict:      a.Verdict,
			ExitCode:     a.ExitCode,
			DurationMs:   a.Duration.Milliseconds(),
			CreatedAt:    a.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStartRecording(w http.ResponseWriter, r *http.Request) {
	if s.recordings == nil {
		writeError(w, http.StatusNotImplemented, "voice input is disabled")
		return
	}
	writeJSON(w, http.StatusCreated, recordingResponse{
		Session: s.recordings.Start(),
		Status:  "recording",
	})
}

func (s *Server) handleAppendAudio(w http.ResponseWriter, r *http.Request) {
	if s.recordings == nil {
		writeError(w, http.StatusNotImplemented, "voice input is disabled")
		return
	}

	chunk, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxAudioChunk))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "audio chunk too large")
			return
		}
		writeError(w, http.StatusBadRequest, "read audio")
		return
	}

	if err := s.recordings.Append(r.PathValue("session"), chunk); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStopRecording(w http.ResponseWriter, r *http.Request) {
	if s.recordings == nil {
		writeError(w, http.StatusNotImplemented, "voice input is disabled")
		return
	}

	session := r.PathValue("session")
	text, err := s.recordings.Stop(r.Context(), session)
	if errors.Is(err, recording.ErrNoAudio) {
		writeJSON(w, http.StatusOK, recordingResponse{Session: session, Status: "no_audio"})
		return
	}
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recordingResponse{Session: session, Status: "transcribed", Text: text})
}

func makeOutcomeResponse(outcome lessons.Outcome) outcomeResponse {
	resp := outcomeResponse{
		SubmissionID: outcome.SubmissionID,
		Verdict:      outcome.Verdict.Kind,
		NextLevel:    outcome.Verdict.NextLevelID,
		Diagnostic:   outcome.Verdict.Diagnostic,
		Output:       outcome.Output(),
	}
	if outcome.Result != nil {
		exit := outcome.Result.ExitCode
		resp.ExitCode = &exit
		resp.TimedOut = outcome.Result.TimedOut
		resp.DurationMs = outcome.Result.Duration.Milliseconds()
	}
	return resp
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	var gatewayErr *lessons.GatewayError
	switch {
	case errors.Is(err, execution.ErrInvalidLevelID):
		return http.StatusBadRequest
	case errors.Is(err, ports.ErrLevelNotFound), errors.Is(err, recording.ErrUnknownSession):
		return http.StatusNotFound
	case errors.Is(err, recording.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &gatewayErr):
		return http.StatusBadGateway
	case errors.Is(err, runtime.ErrSaturated):
		return http.StatusServiceUnavailable
	case errors.Is(err, lessons.ErrHistoryDisabled):
		return http.StatusNotImplemented
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
		writeError(w, status, "internal error")
		return
	}
	if status > http.StatusInternalServerError {
		s.logger.Warn("request failed", "status", status, "error", err)
	}
	writeError(w, status, err.Error())
}
