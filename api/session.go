package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/garnizeh/timesheet/internal/session"
)

const sseBuffer = 16

// SessionHandler streams session events as Server-Sent Events.
type SessionHandler struct {
	notifier  *session.Notifier
	heartbeat time.Duration
}

func NewSessionHandler(n *session.Notifier, heartbeat time.Duration) *SessionHandler {
	if heartbeat <= 0 {
		heartbeat = 25 * time.Second
	}
	return &SessionHandler{notifier: n, heartbeat: heartbeat}
}

// Events sends the caller's own events until the client goes away. Events
// that arrive while the buffer is full are dropped.
func (h *SessionHandler) Events(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	// the server write timeout would otherwise end the stream
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	events := make(chan session.Event, sseBuffer)
	unsubscribe := h.notifier.Subscribe(func(e session.Event) {
		if e.UserID != userID {
			return
		}
		select {
		case events <- e:
		default:
			logger.Warn("session event dropped", slog.Int64("user_id", userID), slog.String("kind", string(e.Kind)))
		}
	})
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case e := <-events:
			data, err := json.Marshal(e)
			if err != nil {
				logger.Error("encode session event", slog.Any("err", err))
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Kind, data)
			flusher.Flush()
		}
	}
}
