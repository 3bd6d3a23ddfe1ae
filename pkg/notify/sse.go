package notify

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	apperrors "github.com/raspay/raspay-server/pkg/app/errors"
)

const heartbeatInterval = 30 * time.Second

// StreamHandler serves the admin SSE stream. Each connected client gets a
// hub subscription and a comment heartbeat to keep proxies from closing the
// connection.
func (h *Hub) StreamHandler(w http.ResponseWriter, r *http.Request) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return apperrors.GeneralError(fmt.Errorf("response writer does not support streaming"))
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	events, cancel := h.Subscribe()
	defer cancel()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, payload)
			flusher.Flush()
		case <-heartbeat.C:
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()
		case <-r.Context().Done():
			return nil
		}
	}
}
