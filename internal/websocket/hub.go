// Package websocket keeps a hub of connected terminals and pushes sync
// results to them, so every register refreshes its view after a cycle
// merges remote changes.
package websocket

import (
	"encoding/json"
	"log"
	"sync"
)

// Hub maintains the set of active clients and broadcasts messages
type Hub struct {
	// Registered clients map: TerminalID -> Client
	clients map[string]*Client

	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte

	mu sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 64),
		clients:    make(map[string]*Client),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			// Drop any earlier entry for this same connection, such as the
			// temporary id a terminal held before identifying itself
			for id, existing := range h.clients {
				if existing == client {
					delete(h.clients, id)
				}
			}
			if client.TerminalID != "" {
				// A reconnecting terminal replaces its old connection
				if old, ok := h.clients[client.TerminalID]; ok {
					close(old.send)
					delete(h.clients, client.TerminalID)
				}
				h.clients[client.TerminalID] = client
				log.Printf("📱 Terminal connected: %s", client.TerminalID)
			}
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			// Match on the connection, not the id: the client may be in the
			// map under an id it no longer carries
			found := false
			for id, existing := range h.clients {
				if existing == client {
					delete(h.clients, id)
					found = true
				}
			}
			if found {
				close(client.send)
				log.Printf("📴 Terminal disconnected: %s", client.TerminalID)
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.Lock()
			for id, client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Buffer full or client dead; drop it
					log.Printf("⚠️ Dropping slow terminal %s", id)
					close(client.send)
					delete(h.clients, id)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast sends a JSON message to every connected terminal
func (h *Hub) Broadcast(message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshaling broadcast: %v", err)
		return
	}
	h.broadcast <- data
}

// SendToTerminal sends a message to a specific terminal
func (h *Hub) SendToTerminal(terminalID string, message interface{}) bool {
	h.mu.RLock()
	client, ok := h.clients[terminalID]
	h.mu.RUnlock()

	if !ok {
		return false
	}

	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshaling message: %v", err)
		return false
	}

	select {
	case client.send <- data:
		return true
	default:
		return false
	}
}

// ConnectedCount returns the number of registered terminals
func (h *Hub) ConnectedCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
