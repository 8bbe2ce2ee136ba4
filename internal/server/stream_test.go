package server

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craftd/craftd/internal/events"
	"github.com/craftd/craftd/internal/logline"
)

func TestEventStream(t *testing.T) {
	r, _ := newTestRouter(t)
	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/events"
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer func() { _ = ws.Close() }()

	// Give the hub a moment to register the connection before publishing.
	time.Sleep(50 * time.Millisecond)

	bus := r.mgr.Bus()
	bus.PublishStatus(events.StatusChange{ID: "id-1", Status: "starting"})
	bus.PublishLog(events.LogEntry{ID: "id-1", Level: logline.LevelInfo, Message: "booting"})
	bus.PublishReady(events.Ready{ID: "id-1"})

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))

	var types []string
	for i := 0; i < 3; i++ {
		var f struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		require.NoError(t, ws.ReadJSON(&f))
		types = append(types, f.Type)
	}
	assert.Equal(t, []string{"status", "log", "ready"}, types)
}

func TestSlowClientIsDropped(t *testing.T) {
	h := newHub()
	c := &client{send: make(chan frame, 1)}
	h.add(c)

	// Fill the buffer, then overflow it.
	h.broadcast(frame{Type: "status"})
	h.broadcast(frame{Type: "status"})

	h.mu.Lock()
	_, stillThere := h.conns[c]
	h.mu.Unlock()
	assert.False(t, stillThere)

	// The send channel was closed so the writer goroutine unblocks.
	select {
	case _, ok := <-c.send:
		// First buffered frame is still readable.
		assert.True(t, ok)
	default:
		t.Fatal("expected buffered frame")
	}
}
