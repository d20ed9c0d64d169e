package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// handleStream pushes the job as an SSE data event whenever its progress
// changes, and closes once the job is terminal or the client goes away.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	id := chi.URLParam(r, "id")
	interval := s.cfg.StreamInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := -1
	for {
		job, ok := s.runner.Get(r.Context(), id)
		if !ok {
			sendEvent(w, flusher, map[string]string{"error": "Job not found"})
			return
		}
		if job.Progress != last {
			last = job.Progress
			if !sendEvent(w, flusher, job) {
				return
			}
		}
		if job.Status.Terminal() {
			return
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

func sendEvent(w http.ResponseWriter, f http.Flusher, v any) bool {
	payload, err := json.Marshal(v)
	if err != nil {
		zap.L().Error("server: encode event", zap.Error(err))
		return false
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return false
	}
	f.Flush()
	return true
}
