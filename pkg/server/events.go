package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

func formatRevision(rev uint64) string {
	return strconv.FormatUint(rev, 10)
}

// handleEvents serves GET /api/events as a server-sent event stream of
// "state" and "document" events. The current state and document are sent
// first.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	states, stopStates := s.ws.Subscribe()
	defer stopStates()
	docs, stopDocs := s.ws.Bridge().Subscribe()
	defer stopDocs()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, "document", "", s.ws.Bridge().Current()); err != nil {
		return
	}
	flusher.Flush()

	keepAlive := time.NewTicker(s.opts.KeepAlive)
	defer keepAlive.Stop()

	for {
		var err error
		select {
		case <-r.Context().Done():
			return
		case state, ok := <-states:
			if !ok {
				return
			}
			err = writeEvent(w, "state", "", newStateView(state))
		case doc, ok := <-docs:
			if !ok {
				return
			}
			err = writeEvent(w, "document", formatRevision(doc.Revision), doc)
		case <-keepAlive.C:
			_, err = fmt.Fprint(w, ": keep-alive\n\n")
		}
		if err != nil {
			s.log.Debug("event stream closed", "error", err)
			return
		}
		flusher.Flush()
	}
}

func writeEvent(w http.ResponseWriter, event, id string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if id != "" {
		if _, err := fmt.Fprintf(w, "id: %s\n", id); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}
