package broadcast

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/stefanpenner/intersection-control/state"
)

// wsClient pairs a websocket connection with a buffered outbound
// channel. The hub never writes to a connection directly, only ever
// to the client's channel, so one slow client can't block a broadcast
// to the rest.
type wsClient struct {
	conn *websocket.Conn
	send chan []byte
	gone chan struct{}
}

// Hub fans semaphore state changes out to websocket subscribers of
// /ws/semaphore. Unlike the MJPEG broadcaster it only pushes on
// change, not on a fixed frame rate, since light/emergency state
// changes far less often than camera frames arrive.
type Hub struct {
	mu      sync.RWMutex
	clients map[*wsClient]struct{}

	last        state.SemaphoreData
	haveLast    bool
	subscribers int64
}

// NewHub returns an empty Hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*wsClient]struct{})}
}

// Register adds conn to the broadcast set and blocks, pumping writes
// to conn, until the connection closes. Callers run it in the
// connection's own handler goroutine (one goroutine per client). A
// second goroutine drains reads purely to learn when the peer hangs
// up; inbound messages are discarded, this is a push-only endpoint.
func (h *Hub) Register(conn *websocket.Conn) {
	client := &wsClient{conn: conn, send: make(chan []byte, 8), gone: make(chan struct{})}

	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.subscribers++
	last, haveLast := h.last, h.haveLast
	h.mu.Unlock()

	defer h.unregister(client)

	go func() {
		for {
			if _, _, err := conn.NextReader(); err != nil {
				close(client.gone)
				return
			}
		}
	}()

	if haveLast {
		if payload, err := json.Marshal(last); err == nil {
			select {
			case client.send <- payload:
			default:
			}
		}
	}

	for {
		select {
		case <-client.gone:
			return
		case payload, ok := <-client.send:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		}
	}
}

func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		h.subscribers--
	}
}

// Subscribers returns the current number of connected websocket
// clients.
func (h *Hub) Subscribers() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.subscribers
}

// Publish pushes data to every connected client if it differs from the
// last published value. Per-client delivery is a non-blocking send
// onto a buffered channel, so a client whose buffer is full is skipped
// for this update rather than stalling the broadcast. Sends happen
// under the hub lock; unregister closes a client's channel under the
// same lock only after removing it from the set, so Publish can never
// send on a closed channel.
func (h *Hub) Publish(data state.SemaphoreData) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.haveLast && sameSemaphoreData(h.last, data) {
		return
	}
	h.last = data
	h.haveLast = true

	payload, err := json.Marshal(data)
	if err != nil {
		return
	}
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
		}
	}
}

func sameSemaphoreData(a, b state.SemaphoreData) bool {
	if a.Emergency != b.Emergency {
		return false
	}
	if len(a.Lights) != len(b.Lights) {
		return false
	}
	for i := range a.Lights {
		if a.Lights[i].Group != b.Lights[i].Group || a.Lights[i].Color != b.Lights[i].Color {
			return false
		}
	}
	return true
}
