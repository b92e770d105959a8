package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	sendSuccess(w, map[string]string{"status": "healthy"})
}

func (s *Server) handleListChannels(w http.ResponseWriter, r *http.Request) {
	sendSuccess(w, s.registry.Names())
}

func (s *Server) handleChannelStats(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	ch, err := s.registry.Get(name)
	if err != nil {
		sendError(w, err.Error(), http.StatusNotFound)
		return
	}
	sendSuccess(w, ch.Stats())
}

// handleListSegments lists sealed segments. With both "from" and "to" query
// parameters it returns only the segments overlapping that time range.
func (s *Server) handleListSegments(w http.ResponseWriter, r *http.Request) {
	if s.index == nil {
		sendError(w, "no archive index configured", http.StatusNotFound)
		return
	}

	fromStr := r.URL.Query().Get("from")
	toStr := r.URL.Query().Get("to")
	if fromStr != "" || toStr != "" {
		from, err := strconv.ParseFloat(fromStr, 64)
		if err != nil {
			sendError(w, "invalid 'from' parameter", http.StatusBadRequest)
			return
		}
		to, err := strconv.ParseFloat(toStr, 64)
		if err != nil {
			sendError(w, "invalid 'to' parameter", http.StatusBadRequest)
			return
		}
		segs, err := s.index.Overlapping(from, to)
		if err != nil {
			sendError(w, err.Error(), http.StatusInternalServerError)
			return
		}
		sendSuccess(w, segs)
		return
	}

	segs, err := s.index.Segments()
	if err != nil {
		sendError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	sendSuccess(w, segs)
}

func sendSuccess(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(APIResponse{Success: true, Data: data})
}

func sendError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(APIResponse{Success: false, Error: message})
}
