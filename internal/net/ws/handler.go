package ws

import (
	"log"
	nethttp "net/http"

	"github.com/gorilla/websocket"

	"riftward/server/internal/arena"
)

// HandlerConfig carries optional collaborators for the websocket endpoint.
type HandlerConfig struct {
	Logger *log.Logger
}

// Handler upgrades HTTP requests to websocket sessions bound to a caster.
type Handler struct {
	hub      *arena.Hub
	logger   *log.Logger
	upgrader websocket.Upgrader
}

// NewHandler constructs a websocket endpoint for the given hub.
func NewHandler(hub *arena.Hub, cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *nethttp.Request) bool {
			return true
		},
	}

	return &Handler{
		hub:      hub,
		logger:   logger,
		upgrader: upgrader,
	}
}

// Handle upgrades the connection and runs the session until it closes. The
// caster id comes from the join handshake and rides the query string.
func (h *Handler) Handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	casterID := r.URL.Query().Get("id")
	if casterID == "" {
		nethttp.Error(w, "missing id", nethttp.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("upgrade failed for %s: %v", casterID, err)
		return
	}

	h.serve(casterID, conn)
}
