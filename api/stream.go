package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/DGISsoft/prodreport/middleware"
	"github.com/DGISsoft/prodreport/models"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const wsWriteWait = 10 * time.Second

// streamNotifications serves live notifications as Server-Sent Events until
// the client disconnects or the hub shuts down.
func (h *handler) streamNotifications(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeMessage(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	claims := middleware.ClaimsFrom(r.Context())
	sub := h.Hub.Subscribe(claims.UserID, []models.UserRole{claims.Role})
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, ": connected %s\n\n", sub.ID)
	flusher.Flush()

	heartbeat := time.NewTicker(h.Heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case n, open := <-sub.Events():
			if !open {
				return
			}
			data, err := json.Marshal(n)
			if err != nil {
				h.log.Error("failed to encode live notification", zap.Error(err))
				continue
			}
			if _, err := fmt.Fprintf(w, "id: %s\nevent: notification\ndata: %s\n\n", n.ID.Hex(), data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (h *handler) upgrader() *websocket.Upgrader {
	allowAll := false
	allowed := make(map[string]bool, len(h.CORSOrigins))
	for _, o := range h.CORSOrigins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = true
	}
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || allowAll || allowed[origin]
		},
	}
}

// websocketNotifications is the WebSocket twin of streamNotifications.
// Clients only listen; inbound frames are read to notice disconnects.
func (h *handler) websocketNotifications(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader().Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	claims := middleware.ClaimsFrom(r.Context())
	sub := h.Hub.Subscribe(claims.UserID, []models.UserRole{claims.Role})
	defer sub.Close()

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(h.Heartbeat)
	defer ping.Stop()

	for {
		select {
		case <-gone:
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		case n, open := <-sub.Events():
			if !open {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
					time.Now().Add(wsWriteWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(n); err != nil {
				h.log.Debug("websocket write failed", zap.String("subscriber", sub.ID), zap.Error(err))
				return
			}
		}
	}
}
