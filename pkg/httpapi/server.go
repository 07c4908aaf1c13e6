// Package httpapi exposes the identification engine over REST. It is
// a thin transport: request parsing, token checking, and error-class
// to status-code mapping live here; all semantics live in the
// voiceprint package.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/haivivi/voiceprint/pkg/voiceprint"
)

// maxUploadBytes bounds one multipart upload. 30s of 48kHz stereo
// 16-bit audio is under 6MB; 32MB leaves ample headroom.
const maxUploadBytes = 32 << 20

// Server serves the voiceprint REST API.
type Server struct {
	svc    *voiceprint.Service
	token  string
	logger *slog.Logger
	http   *http.Server
}

// New creates a Server around svc. Every endpoint except /health
// requires the Authorization header to equal token.
func New(svc *voiceprint.Service, token string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{svc: svc, token: token, logger: logger}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /api/v1/voiceprint/register", s.auth(s.handleRegister))
	mux.HandleFunc("POST /api/v1/voiceprint/identify", s.auth(s.handleIdentify))
	mux.HandleFunc("DELETE /api/v1/voiceprint/{speaker_id}", s.auth(s.handleDelete))
	mux.HandleFunc("GET /api/v1/voiceprint/stats", s.auth(s.handleStats))
	return mux
}

// ListenAndServe blocks until ctx is cancelled, then drains in-flight
// requests before returning.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("voiceprint API listening", "addr", addr)
		errCh <- s.http.ListenAndServe()
	}()
	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.http.Shutdown(shutCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// auth rejects requests whose Authorization header does not match the
// configured token.
func (s *Server) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != s.token {
			s.logger.Warn("rejected request with invalid token", "path", r.URL.Path)
			writeJSON(w, http.StatusUnauthorized, errorBody{Detail: "invalid API token"})
			return
		}
		next(w, r)
	}
}

type errorBody struct {
	Detail string `json:"detail"`
}

type registerResponse struct {
	Success bool   `json:"success"`
	Msg     string `json:"msg"`
}

type identifyResponse struct {
	SpeakerID string             `json:"speaker_id"`
	Score     float32            `json:"score"`
	Scores    map[string]float32 `json:"scores,omitempty"`
}

type statsResponse struct {
	TotalVoiceprints int    `json:"total_voiceprints"`
	Status           string `json:"status"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"message": "voiceprint API service running",
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	speakerID, audio, ok := s.readUpload(w, r, "speaker_id")
	if !ok {
		return
	}
	if err := s.svc.Enroll(r.Context(), speakerID, audio); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, registerResponse{Success: true, Msg: "registered: " + speakerID})
}

func (s *Server) handleIdentify(w http.ResponseWriter, r *http.Request) {
	speakerIDs, audio, ok := s.readUpload(w, r, "speaker_ids")
	if !ok {
		return
	}
	verdict, err := s.svc.Identify(r.Context(), strings.Split(speakerIDs, ","), audio)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, identifyResponse{
		SpeakerID: verdict.Winner,
		Score:     verdict.Score,
		Scores:    verdict.Scores,
	})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	speakerID := r.PathValue("speaker_id")
	existed, err := s.svc.Delete(r.Context(), speakerID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !existed {
		writeJSON(w, http.StatusNotFound, errorBody{Detail: "speaker not found: " + speakerID})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "msg": "deleted: " + speakerID})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	count, err := s.svc.Count(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{TotalVoiceprints: count, Status: "healthy"})
}

// readUpload parses the multipart form shared by register and
// identify: one text field plus a WAV file under "file". On failure it
// writes the error response and returns ok=false.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request, field string) (value string, audio []byte, ok bool) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Detail: fmt.Sprintf("invalid multipart form: %v", err)})
		return "", nil, false
	}
	value = r.FormValue(field)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Detail: "missing audio file"})
		return "", nil, false
	}
	defer file.Close()
	if !strings.HasSuffix(strings.ToLower(header.Filename), ".wav") {
		writeJSON(w, http.StatusBadRequest, errorBody{Detail: "only WAV audio files are supported"})
		return "", nil, false
	}
	audio, err = io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Detail: fmt.Sprintf("read audio file: %v", err)})
		return "", nil, false
	}
	return value, audio, true
}

// writeError maps the engine's error taxonomy to HTTP status codes:
// input errors are the caller's fault, resource errors are retryable
// server trouble, integrity errors are server-side data corruption.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var status int
	switch voiceprint.Classify(err) {
	case voiceprint.ClassInput:
		status = http.StatusBadRequest
	case voiceprint.ClassResource:
		status = http.StatusServiceUnavailable
	default:
		status = http.StatusInternalServerError
	}
	if status >= 500 {
		s.logger.Error("request failed", "status", status, "error", err)
	}
	writeJSON(w, status, errorBody{Detail: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
