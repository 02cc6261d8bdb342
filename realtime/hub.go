package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"QueueFM/logger"
	"QueueFM/model"
)

// UpdateType is the event name carried by every queue snapshot push.
const UpdateType = "playlist-update"

// Update is the message pushed to every observer after a successful mutation.
type Update struct {
	Type      string        `json:"type"`
	Songs     []*model.Song `json:"songs"`
	Count     int           `json:"count"`
	Timestamp int64         `json:"timestamp"`
}

// Hub manages the set of connected observers and fans queue snapshots out to
// them. Delivery is best-effort: there is no acknowledgment, no retry and no
// backlog, so an observer that connects after a broadcast fetches current
// state over the REST API instead.
type Hub struct {
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte

	mu   sync.RWMutex
	done chan struct{}
}

// NewHub creates a hub. Call Run in a goroutine before registering clients.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
		done:       make(chan struct{}),
	}
}

// Run starts the hub main loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastToClients(message)

		case <-h.done:
			h.cleanup()
			return
		}
	}
}

// Stop stops the hub and disconnects all observers.
func (h *Hub) Stop() {
	close(h.done)
}

// Register registers an observer.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes an observer.
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// BroadcastUpdate pushes the given unplayed queue to every connected observer.
// It implements service.Broadcaster.
func (h *Hub) BroadcastUpdate(songs []*model.Song) {
	if songs == nil {
		songs = []*model.Song{}
	}

	update := Update{
		Type:      UpdateType,
		Songs:     songs,
		Count:     len(songs),
		Timestamp: time.Now().UnixMilli(),
	}
	data, err := json.Marshal(update)
	if err != nil {
		logger.Error("failed to marshal playlist update", logger.ErrorField(err))
		return
	}

	h.broadcast <- data
}

// ClientCount returns the number of connected observers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true
	logger.Info("observer connected",
		logger.String("client", client.ID),
		logger.Int("observers", len(h.clients)))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeClient(client)
}

// removeClient must be called with the lock held.
func (h *Hub) removeClient(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.Send)

	logger.Info("observer disconnected",
		logger.String("client", client.ID),
		logger.Int("observers", len(h.clients)))
}

func (h *Hub) broadcastToClients(message []byte) {
	h.mu.RLock()
	clientList := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clientList = append(clientList, client)
	}
	h.mu.RUnlock()

	for _, client := range clientList {
		select {
		case client.Send <- message:
		default:
			// Send buffer full, the observer stopped reading.
			h.mu.Lock()
			h.removeClient(client)
			h.mu.Unlock()
		}
	}
}

func (h *Hub) cleanup() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		close(client.Send)
	}
	h.clients = make(map[*Client]bool)
}
