package main

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"i4.energy/across/gpstracker/tracker"
)

// Tracker is the view of the state machine the operator server needs.
type Tracker interface {
	Snapshot() tracker.Status
	RequestReset(hard bool) bool
}

// Submitter queues operator lines for the modem.
type Submitter interface {
	Submit(line string) bool
}

// Server handles incoming HTTP requests for inspecting the tracker and
// talking to its modem. It never touches the modem directly: commands are
// queued and executed by the tracking loop.
type Server struct {
	Logger  *slog.Logger
	Tracker Tracker
	Console Submitter
}

// ServeHTTP implements the http.Handler interface for the Server struct
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("POST /command", s.handleCommand)
	mux.HandleFunc("POST /reset", s.handleReset)
	mux.ServeHTTP(w, r)
}

func (s *Server) sendError(w http.ResponseWriter, message string, statusCode int) {
	if message == "" {
		w.WriteHeader(statusCode)
		return
	}

	type ErrorResponse struct {
		Message string `json:"message"`
	}
	resp := ErrorResponse{Message: message}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.Tracker.Snapshot()); err != nil {
		s.Logger.Error("Failed to encode status", "error", err)
	}
}

// handleCommand queues a raw AT command, as if typed on the console
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	type CommandRequest struct {
		Command string `json:"command"`
	}

	var req CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if req.Command == "" {
		s.sendError(w, "'command' field is required", http.StatusBadRequest)
		return
	}

	if !s.Console.Submit(req.Command) {
		s.sendError(w, "command queue is full", http.StatusServiceUnavailable)
		return
	}

	s.Logger.Info("Command queued", "command", req.Command)
	w.WriteHeader(http.StatusAccepted)
}

// handleReset asks the tracking loop to reset the modem
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	type ResetRequest struct {
		Hard bool `json:"hard"`
	}

	var req ResetRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.sendError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	if !s.Tracker.RequestReset(req.Hard) {
		s.sendError(w, "a reset is already pending", http.StatusConflict)
		return
	}

	s.Logger.Info("Reset requested", "hard", req.Hard)
	w.WriteHeader(http.StatusAccepted)
}
