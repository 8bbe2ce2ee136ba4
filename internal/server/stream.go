package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/craftd/craftd/internal/events"
)

// frame is the wire envelope pushed to websocket subscribers.
type frame struct {
	Type string `json:"type"` // status | log | ready
	Data any    `json:"data"`
}

const (
	writeWait      = 10 * time.Second
	clientBufDepth = 256
)

// hub fans bus events out to websocket connections. It subscribes to the
// bus exactly once; per-connection buffers decouple slow clients from the
// orchestrator (a client that falls behind is dropped).
type hub struct {
	mu    sync.Mutex
	conns map[*client]struct{}
}

type client struct {
	send chan frame
}

func newHub() *hub {
	return &hub{conns: make(map[*client]struct{})}
}

func (h *hub) attach(bus *events.Bus) {
	bus.SubscribeStatus(func(e events.StatusChange) { h.broadcast(frame{Type: "status", Data: e}) })
	bus.SubscribeLog(func(e events.LogEntry) { h.broadcast(frame{Type: "log", Data: e}) })
	bus.SubscribeReady(func(e events.Ready) { h.broadcast(frame{Type: "ready", Data: e}) })
}

func (h *hub) broadcast(f frame) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.conns {
		select {
		case c.send <- f:
		default:
			// Slow consumer; closing send makes its writer exit.
			close(c.send)
			delete(h.conns, c)
		}
	}
}

func (h *hub) add(c *client) {
	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()
}

func (h *hub) remove(c *client) {
	h.mu.Lock()
	if _, ok := h.conns[c]; ok {
		delete(h.conns, c)
		close(c.send)
	}
	h.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The daemon binds to loopback; remote origins are not expected.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleEvents upgrades the connection and streams frames until the client
// disconnects.
func (r *Router) handleEvents(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	cl := &client{send: make(chan frame, clientBufDepth)}
	r.hub.add(cl)

	// Reader: discard inbound messages, detect disconnect.
	go func() {
		defer r.hub.remove(cl)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for f := range cl.send {
		_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := ws.WriteJSON(f); err != nil {
			break
		}
	}
	_ = ws.Close()
}
