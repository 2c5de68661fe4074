package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"safaisetu/models"

	"github.com/apex/log"
)

// BroadcastMessage is the frame pushed to map clients
type BroadcastMessage struct {
	Type      string       `json:"type"`
	Data      models.Event `json:"data"`
	Timestamp time.Time    `json:"timestamp"`
}

// Hub manages WebSocket connections and broadcasting
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Outbound messages for all clients
	broadcast chan []byte

	// Register requests from clients
	Register chan *Client

	// Unregister requests from clients
	Unregister chan *Client

	// Closed when Run returns
	done chan struct{}

	mutex sync.RWMutex

	// Statistics
	connectedClients int
	broadcasts       int
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop and returns when ctx is done
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.connectedClients = 0
			h.mutex.Unlock()
			return

		case client := <-h.Register:
			h.mutex.Lock()
			h.clients[client] = true
			h.connectedClients = len(h.clients)
			h.mutex.Unlock()
			log.Infof("Client connected. Total clients: %d", h.connectedClients)

		case client := <-h.Unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.connectedClients = len(h.clients)
			}
			h.mutex.Unlock()
			log.Infof("Client disconnected. Total clients: %d", h.connectedClients)

		case message := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Slow client, drop it.
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.connectedClients = len(h.clients)
			h.broadcasts++
			h.mutex.Unlock()
		}
	}
}

// BroadcastEvent tells every connected client that the report collection
// changed. It never blocks; when the queue is full the event is dropped.
func (h *Hub) BroadcastEvent(ev models.Event) {
	data, err := json.Marshal(BroadcastMessage{
		Type:      ev.Type,
		Data:      ev,
		Timestamp: time.Now(),
	})
	if err != nil {
		log.Errorf("Failed to marshal broadcast message: %v", err)
		return
	}

	select {
	case h.broadcast <- data:
	default:
		log.Warnf("Broadcast queue full, dropped %s event for %s", ev.Type, ev.ReportID)
	}
}

// GetStats returns the number of connected clients and of broadcasts sent
func (h *Hub) GetStats() (int, int) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.connectedClients, h.broadcasts
}
