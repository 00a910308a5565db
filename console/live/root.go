// SPDX-FileCopyrightText: 2026 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

// Package live pushes overview updates to browsers connected with a
// WebSocket.
package live

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"unifimon/common/reporter"
	"unifimon/common/schema"
)

// Hub keeps track of connected WebSocket clients and broadcasts
// messages to them.
type Hub struct {
	r            *reporter.Reporter
	upgrader     websocket.Upgrader
	writeTimeout time.Duration

	clientsLock sync.Mutex
	clients     map[*client]struct{}

	metrics struct {
		connections reporter.Counter
		messages    reporter.Counter
		dropped     reporter.Counter
	}
}

// client is one connection. gorilla/websocket does not support
// concurrent writers.
type client struct {
	conn      *websocket.Conn
	writeLock sync.Mutex
}

// Message is what is sent to clients.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// New creates a new hub.
func New(r *reporter.Reporter) *Hub {
	h := Hub{
		r: r,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		writeTimeout: 10 * time.Second,
		clients:      make(map[*client]struct{}),
	}
	h.metrics.connections = r.Counter(
		reporter.CounterOpts{
			Name: "connections_total",
			Help: "Number of accepted WebSocket connections.",
		})
	h.metrics.messages = r.Counter(
		reporter.CounterOpts{
			Name: "messages_total",
			Help: "Number of messages written to WebSocket clients.",
		})
	h.metrics.dropped = r.Counter(
		reporter.CounterOpts{
			Name: "dropped_clients_total",
			Help: "Number of clients dropped after a write error.",
		})
	r.GaugeFunc(
		reporter.GaugeOpts{
			Name: "clients",
			Help: "Number of connected WebSocket clients.",
		}, func() float64 {
			return float64(h.Count())
		})
	return &h
}

// ServeHTTP upgrades the connection and keeps it registered until the
// client goes away. Messages from the client are ignored.
func (h *Hub) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	conn, err := h.upgrader.Upgrade(w, req, nil)
	if err != nil {
		h.r.Debug().Err(err).Msg("cannot upgrade connection")
		return
	}
	c := &client{conn: conn}
	h.register(c)
	defer h.unregister(c)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) register(c *client) {
	h.clientsLock.Lock()
	h.clients[c] = struct{}{}
	count := len(h.clients)
	h.clientsLock.Unlock()
	h.metrics.connections.Inc()
	h.r.Debug().Int("clients", count).Msg("WebSocket client connected")
}

func (h *Hub) unregister(c *client) {
	h.clientsLock.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	count := len(h.clients)
	h.clientsLock.Unlock()
	if ok {
		c.conn.Close()
		h.r.Debug().Int("clients", count).Msg("WebSocket client disconnected")
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.clientsLock.Lock()
	defer h.clientsLock.Unlock()
	return len(h.clients)
}

// Broadcast sends v as JSON to every client. Clients failing to receive
// it are disconnected.
func (h *Hub) Broadcast(v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.clientsLock.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clientsLock.Unlock()

	for _, c := range clients {
		c.writeLock.Lock()
		c.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
		err := c.conn.WriteMessage(websocket.TextMessage, payload)
		c.writeLock.Unlock()
		if err != nil {
			h.metrics.dropped.Inc()
			h.unregister(c)
			continue
		}
		h.metrics.messages.Inc()
	}
	return nil
}

// Publish broadcasts an overview.
func (h *Hub) Publish(overview schema.Overview) {
	if err := h.Broadcast(Message{Type: "overview", Data: overview}); err != nil {
		h.r.Err(err).Msg("cannot broadcast overview")
	}
}

// Close disconnects all clients.
func (h *Hub) Close() {
	h.clientsLock.Lock()
	clients := h.clients
	h.clients = make(map[*client]struct{})
	h.clientsLock.Unlock()
	for c := range clients {
		c.writeLock.Lock()
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
			time.Now().Add(time.Second))
		c.writeLock.Unlock()
		c.conn.Close()
	}
}
