package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ngocvu/shopdash/internal/models"
	"github.com/ngocvu/shopdash/internal/stream"
)

// A newly attached browser replays at most this many buffered entries; the
// buffer itself is unbounded.
const sseReplayLimit = 500

// handleLogStream re-publishes the consumed backend log feed to the browser
// as a server-sent-event stream. `?filter=1` restricts this call site to
// significant lines regardless of how the upstream consumer is configured.
func (s *Server) handleLogStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		RespondWithError(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	filtered := r.URL.Query().Get("filter") == "1" || r.URL.Query().Get("filter") == "true"

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	writeEntry := func(entry models.LogEntry) bool {
		if filtered && !stream.Relevant(entry.Message) {
			return true
		}
		payload, err := json.Marshal(entry)
		if err != nil {
			return true
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	// Attach before replaying so nothing arriving in between is lost;
	// duplicates are preferable to gaps for a log view.
	live, cancel := s.app.LogRelay().Listen()
	defer cancel()

	entries := s.app.LogRelay().Entries()
	if len(entries) > sseReplayLimit {
		entries = entries[len(entries)-sseReplayLimit:]
	}
	for _, entry := range entries {
		if !writeEntry(entry) {
			return
		}
	}

	keepAlive := time.NewTicker(15 * time.Second)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case entry := <-live:
			if !writeEntry(entry) {
				return
			}
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
