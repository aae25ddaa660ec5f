// Package ws streams pipeline progress events to browser clients over
// WebSocket.
package ws

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/spendlyhq/invoice-ingest/internal/notify"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Handler upgrades HTTP connections and bridges them onto the event hub.
// Each connection gets its own hub subscription; a disconnect tears the
// subscription down so the hub never accumulates dead channels.
type Handler struct {
	hub      *notify.Hub
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *notify.Hub, logger *zap.Logger) *Handler {
	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(_ *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Serve handles GET /ws
func (h *Handler) Serve(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	events, cancel := h.hub.Subscribe()
	h.logger.Debug("WebSocket client connected",
		zap.String("remote", conn.RemoteAddr().String()))

	go h.writeLoop(conn, events)

	// The read loop only drains control frames; its exit means the client
	// is gone.
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	cancel()
	h.logger.Debug("WebSocket client disconnected",
		zap.String("remote", conn.RemoteAddr().String()))
}

func (h *Handler) writeLoop(conn *websocket.Conn, events <-chan notify.Event) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case evt, ok := <-events:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := conn.WriteJSON(evt); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
