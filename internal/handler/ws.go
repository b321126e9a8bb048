package handler

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/devaloi/toastbox/internal/client"
	"github.com/devaloi/toastbox/internal/hub"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeWS handles WebSocket upgrade requests from renderers.
func ServeWS(h *hub.Hub, logger *slog.Logger) http.HandlerFunc {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Query().Get("client")
		if name == "" {
			writeError(w, http.StatusBadRequest, "client query param required")
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("ws upgrade failed", slog.String("client", name), slog.Any("error", err))
			return
		}

		c := client.New(h, conn, name, logger)
		go c.ReadPump()
		go c.WritePump()
	}
}
