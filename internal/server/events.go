package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/mgpai22/cuesync/internal/playback"
)

// streamEvents opens an SSE connection that sends the playback state on
// connect and after every change. A slow client only ever sees the latest
// state.
func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	updates := make(chan playback.State, 1)
	cancel := s.session.Subscribe(func(st playback.State) {
		for {
			select {
			case updates <- st:
				return
			default:
			}
			// drop the stale state and retry
			select {
			case <-updates:
			default:
			}
		}
	})
	defer cancel()

	keepalive := time.NewTicker(s.keepalive)
	defer keepalive.Stop()

	log := s.log.With("request_id", middleware.GetReqID(r.Context()))
	log.Info("SSE client connected")
	s.metrics.SSEClientConnected()
	defer s.metrics.SSEClientDisconnected()

	seq := 0
	send := func(st playback.State) error {
		data, err := json.Marshal(st)
		if err != nil {
			return err
		}
		seq++
		if _, err := fmt.Fprintf(w, "id: %d\nevent: state\ndata: %s\n\n", seq, data); err != nil {
			return err
		}
		flusher.Flush()
		s.metrics.IncSSEEvents()
		return nil
	}

	if err := send(s.session.State()); err != nil {
		return
	}

	for {
		select {
		case <-r.Context().Done():
			log.Info("SSE client disconnected")
			return
		case st := <-updates:
			if err := send(st); err != nil {
				log.Debugw("SSE write failed", "error", err)
				return
			}
		case <-keepalive.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		}
	}
}
