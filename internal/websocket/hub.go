package websocket

import (
	"encoding/json"
	"sync"

	"github.com/dom/task-manager/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Hub fans task changes out to every live connection of the task's owner.
// Connections of other users never see them.
type Hub struct {
	clients    map[uuid.UUID]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan *userMessage
	disconnect chan uuid.UUID
	stop       chan struct{}
	done       chan struct{} // closed when Run() exits
	stopOnce   sync.Once
	logger     *zap.Logger
	mu         sync.RWMutex
}

type userMessage struct {
	userID uuid.UUID
	data   []byte
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *userMessage, 256),
		disconnect: make(chan uuid.UUID),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.stop:
			h.mu.Lock()
			for _, set := range h.clients {
				for client := range set {
					client.Close()
				}
			}
			h.clients = make(map[uuid.UUID]map[*Client]bool)
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			set, ok := h.clients[client.userID]
			if !ok {
				set = make(map[*Client]bool)
				h.clients[client.userID] = set
			}
			set[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients[msg.userID] {
				select {
				case client.send <- msg.data:
				default:
					// Slow consumer.
					h.logger.Warn("dropping slow feed connection", zap.String("user_id", msg.userID.String()))
					h.remove(client)
				}
			}
			h.mu.Unlock()

		case userID := <-h.disconnect:
			h.mu.Lock()
			for client := range h.clients[userID] {
				h.remove(client)
			}
			h.mu.Unlock()
		}
	}
}

// remove must be called with h.mu held.
func (h *Hub) remove(client *Client) {
	set, ok := h.clients[client.userID]
	if !ok || !set[client] {
		return
	}
	delete(set, client)
	if len(set) == 0 {
		delete(h.clients, client.userID)
	}
	client.Close()
}

// Stop closes every connection and blocks until Run has returned.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
	<-h.done
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.Close()
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish queues event for every connection of the task's owner.
func (h *Hub) Publish(event domain.TaskEvent, task *domain.Task) {
	msg, err := NewMessage(MessageType(event), task)
	if err != nil {
		h.logger.Error("failed to build feed message", zap.Error(err))
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to marshal feed message", zap.Error(err))
		return
	}

	select {
	case h.broadcast <- &userMessage{userID: task.OwnerID, data: data}:
	case <-h.done:
	}
}

// DisconnectUser closes every live connection of userID.
func (h *Hub) DisconnectUser(userID uuid.UUID) {
	select {
	case h.disconnect <- userID:
	case <-h.done:
	}
}

// Connections returns the number of open connections of userID.
func (h *Hub) Connections(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}
