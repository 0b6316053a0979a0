package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Hub maintains the set of active viewers per topic and broadcasts messages to them.
type Hub struct {
	name   string
	logger *slog.Logger

	// Registered clients, by topic
	topics map[string]map[*Client]bool

	// Inbound messages to broadcast
	broadcast chan Message

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Guards topics for readers outside the loop
	mu sync.RWMutex

	// Closed when Run returns
	done chan struct{}

	running atomic.Bool
	dropped atomic.Uint64
}

// New creates a new Hub
func New(name string, logger *slog.Logger) *Hub {
	return &Hub{
		name:       name,
		logger:     logger.With("hub", name),
		topics:     make(map[string]map[*Client]bool),
		broadcast:  make(chan Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop until ctx is done. On exit every client's send
// channel is closed so its write pump sends a close frame.
// This should be called in a goroutine
func (h *Hub) Run(ctx context.Context) {
	h.running.Store(true)
	defer func() {
		h.running.Store(false)
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for topic, clients := range h.topics {
				for client := range clients {
					close(client.send)
				}
				delete(h.topics, topic)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			clients, ok := h.topics[client.topic]
			if !ok {
				clients = make(map[*Client]bool)
				h.topics[client.topic] = clients
			}
			clients[client] = true
			count := len(clients)
			h.mu.Unlock()
			h.logger.Info("viewer connected", "topic", client.topic, "viewers", count)

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			count := len(h.topics[client.topic])
			h.mu.Unlock()
			h.logger.Info("viewer disconnected", "topic", client.topic, "viewers", count)

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.topics[message.Topic] {
				select {
				case client.send <- message:
				default:
					// Client's buffer is full, they're too slow
					h.remove(client)
					h.logger.Warn("dropped slow viewer", "topic", message.Topic)
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove must be called with mu held.
func (h *Hub) remove(client *Client) {
	clients, ok := h.topics[client.topic]
	if !ok || !clients[client] {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.topics, client.topic)
	}
}

func (h *Hub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Broadcast queues a message for every viewer of its topic. Never blocks; when the
// queue is full the message is dropped.
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	default:
		h.dropped.Add(1)
		h.logger.Debug("broadcast queue full, dropping message", "topic", msg.Topic)
	}
}

// Publish broadcasts pre-encoded bytes to a topic. Topics without viewers are
// skipped before queueing.
func (h *Hub) Publish(topic string, data []byte) {
	if h.ClientCount(topic) == 0 {
		return
	}
	h.Broadcast(NewMessage(topic, data))
}

// PublishJSON encodes and publishes a JSON message
func (h *Hub) PublishJSON(topic string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Publish(topic, data)
	return nil
}

// ClientCount returns the number of viewers of a topic
func (h *Hub) ClientCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// Total returns the number of viewers across all topics
func (h *Hub) Total() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, clients := range h.topics {
		n += len(clients)
	}
	return n
}

// Dropped returns how many broadcasts were dropped on a full queue.
func (h *Hub) Dropped() uint64 { return h.dropped.Load() }

// IsRunning returns whether the hub is running
func (h *Hub) IsRunning() bool {
	return h.running.Load()
}
