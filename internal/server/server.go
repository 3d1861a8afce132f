// Package server exposes the engine over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"codeloom/internal/client"
	"codeloom/internal/engine"
	"codeloom/internal/logging"
)

// Server is the HTTP front of one engine.
type Server struct {
	engine *engine.Engine
	mux    *http.ServeMux
}

// New creates a server around an engine.
func New(e *engine.Engine) *Server {
	s := &Server{engine: e, mux: http.NewServeMux()}
	s.mux.HandleFunc("POST /api/agent", s.handleAgent)
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe runs the server until the listener fails.
func (s *Server) ListenAndServe(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	logging.Info("http server listening", "addr", addr)
	return srv.ListenAndServe()
}

func (s *Server) handleAgent(w http.ResponseWriter, r *http.Request) {
	var req engine.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	resp, err := s.engine.Run(r.Context(), req)
	if err != nil {
		writeErr(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusFor maps the engine's error taxonomy onto HTTP: bad requests
// and missing keys are the caller's fault, provider failures are a bad
// gateway, the rest is on us.
func statusFor(err error) int {
	var vErr *engine.ValidationError
	var cErr *engine.ConfigError
	if errors.As(err, &vErr) || errors.As(err, &cErr) {
		return http.StatusBadRequest
	}
	var httpErr *client.HTTPError
	if errors.As(err, &httpErr) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("writing response", "error", err)
	}
}

func writeErr(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
