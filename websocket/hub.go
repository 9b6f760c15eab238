package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"awards-voting-backend/mq"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Client is one websocket connection watching a voting session
type Client struct {
	SessionID string

	conn *websocket.Conn
	send chan []byte
}

// Hub keeps the live connections per session and pushes voting events to them.
// It implements mq.Publisher.
type Hub struct {
	clients    map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	stop       chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex
	log        *zap.Logger
}

// NewHub creates a hub; call Run to start it
func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stop:       make(chan struct{}),
		log:        log.Named("ws_hub"),
	}
}

// Run processes registrations until Stop is called
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if _, ok := h.clients[client.SessionID]; !ok {
				h.clients[client.SessionID] = make(map[*Client]bool)
			}
			h.clients[client.SessionID][client] = true
			n := len(h.clients[client.SessionID])
			h.mu.Unlock()
			h.log.Debug("client registered", zap.String("session_id", client.SessionID), zap.Int("clients", n))

		case client := <-h.unregister:
			h.mu.Lock()
			h.removeLocked(client)
			h.mu.Unlock()
			h.log.Debug("client unregistered", zap.String("session_id", client.SessionID))

		case <-h.stop:
			h.mu.Lock()
			for _, clients := range h.clients {
				for client := range clients {
					h.removeLocked(client)
				}
			}
			h.mu.Unlock()
			return
		}
	}
}

// Stop ends Run and closes every client's send channel
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
}

func (h *Hub) removeLocked(client *Client) {
	clients, ok := h.clients[client.SessionID]
	if !ok || !clients[client] {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.clients, client.SessionID)
	}
}

// Publish forwards an event to every client watching its session. Clients
// whose buffer is full are dropped. Voter ids never leave the server.
func (h *Hub) Publish(_ context.Context, event mq.Event) error {
	event.VoterID = ""
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	var slow []*Client
	h.mu.RLock()
	clients := h.clients[event.SessionID]
	for client := range clients {
		select {
		case client.send <- payload:
		default:
			slow = append(slow, client)
		}
	}
	delivered := len(clients) - len(slow)
	h.mu.RUnlock()

	if len(slow) > 0 {
		h.mu.Lock()
		for _, client := range slow {
			h.removeLocked(client)
		}
		h.mu.Unlock()
	}
	h.log.Debug("event broadcast",
		zap.String("type", string(event.Type)),
		zap.String("session_id", event.SessionID),
		zap.Int("clients", delivered))
	return nil
}

// ClientCount returns how many clients watch a session
func (h *Hub) ClientCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[sessionID])
}

// RegisterClient adds a client to its session's audience
func (h *Hub) RegisterClient(client *Client) {
	select {
	case h.register <- client:
	case <-h.stop:
	}
}

// UnregisterClient removes a client and closes its send channel
func (h *Hub) UnregisterClient(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.stop:
	}
}
