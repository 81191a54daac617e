package handlers

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/Polytraders/polytraders/syncer"
)

const (
	pingPeriod = 30 * time.Second
	pongWait   = 60 * time.Second
	writeWait  = 10 * time.Second
)

// wsHub tracks open live feed websocket connections.
type wsHub struct {
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

func newWSHub() *wsHub {
	// A nil CheckOrigin rejects browser requests whose Origin host differs
	// from the request Host.
	return &wsHub{
		upgrader: websocket.Upgrader{},
		conns: make(map[*websocket.Conn]struct{}),
	}
}

func (hub *wsHub) add(conn *websocket.Conn) {
	hub.mu.Lock()
	hub.conns[conn] = struct{}{}
	hub.mu.Unlock()
}

func (hub *wsHub) remove(conn *websocket.Conn) {
	hub.mu.Lock()
	delete(hub.conns, conn)
	hub.mu.Unlock()
}

// closeAll sends a close frame to every open connection.
func (hub *wsHub) closeAll() {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	for conn := range hub.conns {
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		_ = conn.Close()
	}
}

// CloseStreams closes every live websocket stream.
func (h *Handler) CloseStreams() {
	h.hub.closeAll()
}

// LiveStream upgrades to a websocket and pushes a feed snapshot on every
// state change, starting with the current one.
func (h *Handler) LiveStream(c *gin.Context) {
	conn, err := h.hub.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	h.hub.add(conn)

	updates, unsubscribe := h.feed.Subscribe()
	done := make(chan struct{})

	defer func() {
		unsubscribe()
		h.hub.remove(conn)
		conn.Close()
	}()

	go readPump(conn, done)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	if !writeSnapshot(conn, h.feed.Snapshot()) {
		return
	}
	for {
		select {
		case <-done:
			return
		case snap, ok := <-updates:
			if !ok || !writeSnapshot(conn, snap) {
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

// readPump discards client messages and closes done when the peer goes away.
func readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writeSnapshot(conn *websocket.Conn, snap syncer.Snapshot) bool {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(snap) == nil
}
