// Package realtime pushes ticket thread updates to connected browsers over
// websockets.
package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 16
)

// Event is one JSON frame sent to subscribers of a topic.
type Event struct {
	Type    string `json:"type"`
	Topic   string `json:"topic"`
	Payload any    `json:"payload,omitempty"`
}

type client struct {
	hub   *Hub
	conn  *websocket.Conn
	topic string
	send  chan []byte
}

type envelope struct {
	topic string
	data  []byte
}

// Hub fans events out to websocket clients grouped by topic (a ticket ID).
// All client bookkeeping happens on the Run goroutine.
type Hub struct {
	upgrader   websocket.Upgrader
	register   chan *client
	unregister chan *client
	broadcast  chan envelope
	topics     map[string]map[*client]struct{}
	done       chan struct{}
}

// NewHub creates a hub. checkOrigin may be nil to require same-origin requests.
func NewHub(checkOrigin func(*http.Request) bool) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan envelope, 64),
		topics:     make(map[string]map[*client]struct{}),
		done:       make(chan struct{}),
	}
}

// Run processes registrations and broadcasts until ctx is cancelled, then
// closes every client connection.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for _, clients := range h.topics {
				for c := range clients {
					close(c.send)
				}
			}
			h.topics = map[string]map[*client]struct{}{}
			return
		case c := <-h.register:
			if h.topics[c.topic] == nil {
				h.topics[c.topic] = make(map[*client]struct{})
			}
			h.topics[c.topic][c] = struct{}{}
			slog.Debug("realtime_event", "event", "subscribed", "topic", c.topic, "subscribers", len(h.topics[c.topic]))
		case c := <-h.unregister:
			h.remove(c)
		case env := <-h.broadcast:
			for c := range h.topics[env.topic] {
				select {
				case c.send <- env.data:
				default:
					// Slow consumer.
					h.remove(c)
				}
			}
		}
	}
}

func (h *Hub) remove(c *client) {
	clients, ok := h.topics[c.topic]
	if !ok {
		return
	}
	if _, ok := clients[c]; !ok {
		return
	}
	delete(clients, c)
	close(c.send)
	if len(clients) == 0 {
		delete(h.topics, c.topic)
	}
}

// Publish queues an event for every subscriber of topic. It never blocks the
// caller for long: events are dropped once the hub has stopped.
func (h *Hub) Publish(topic, eventType string, payload any) {
	data, err := json.Marshal(Event{Type: eventType, Topic: topic, Payload: payload})
	if err != nil {
		slog.Error("realtime_event", "event", "marshal_failed", "topic", topic, "error", err)
		return
	}
	select {
	case h.broadcast <- envelope{topic: topic, data: data}:
	case <-h.done:
	}
}

// Serve upgrades the request and subscribes the connection to topic. The
// caller must have authorised the request.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, topic string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("realtime_event", "event", "upgrade_failed", "topic", topic, "error", err)
		return
	}
	c := &client{hub: h, conn: conn, topic: topic, send: make(chan []byte, sendBuffer)}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}
	go c.writePump()
	go c.readPump()
}

// readPump discards inbound frames and detects disconnects.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}
