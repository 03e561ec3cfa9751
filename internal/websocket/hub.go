package websocket

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"livechat/internal/models"
	"livechat/pkg/logger"
)

type directMessage struct {
	userIDs map[string]bool
	data    []byte
}

// Hub fans stream events out to the clients watching one room.
type Hub struct {
	roomID     string
	clients    map[*Client]bool
	Broadcast  chan []byte
	Register   chan *Client
	Unregister chan *Client
	direct     chan directMessage
	shutdown   chan struct{}
	done       chan struct{}
	stopOnce   sync.Once
	count      atomic.Int64
}

func NewHub(roomID string) *Hub {
	return &Hub{
		roomID:     roomID,
		clients:    make(map[*Client]bool),
		Broadcast:  make(chan []byte, 64),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		direct:     make(chan directMessage, 64),
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	defer close(h.done)
	for {
		select {
		case <-h.shutdown:
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.count.Store(0)
			return

		case client := <-h.Register:
			h.clients[client] = true
			h.count.Store(int64(len(h.clients)))
			logger.Info("User %s subscribed to room %s", client.username, h.roomID)

		case client := <-h.Unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.count.Store(int64(len(h.clients)))
				logger.Info("User %s left room %s stream", client.username, h.roomID)
			}

		case message := <-h.Broadcast:
			h.deliver(message, nil)

		case dm := <-h.direct:
			h.deliver(dm.data, dm.userIDs)
		}
	}
}

// deliver sends message to every client, or only to the listed users.
// Clients that cannot keep up are dropped.
func (h *Hub) deliver(message []byte, only map[string]bool) {
	for client := range h.clients {
		if only != nil && !only[client.userID] {
			continue
		}
		select {
		case client.send <- message:
		default:
			close(client.send)
			delete(h.clients, client)
		}
	}
	h.count.Store(int64(len(h.clients)))
}

func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}

// ShutdownHub stops Run and closes every client's queue. It is safe to call
// more than once.
func (h *Hub) ShutdownHub() {
	h.stopOnce.Do(func() { close(h.shutdown) })
}

func (h *Hub) join(c *Client) bool {
	select {
	case h.Register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.Unregister <- c:
	case <-h.done:
	}
}

// Manager owns one hub per room.
type Manager struct {
	hubs  map[string]*Hub
	mutex sync.Mutex
	stop  chan struct{}
	once  sync.Once
}

func NewManager(cleanupInterval time.Duration) *Manager {
	m := &Manager{
		hubs: make(map[string]*Hub),
		stop: make(chan struct{}),
	}
	go m.cleanupUnusedHubs(cleanupInterval)
	return m
}

func (m *Manager) GetHubForRoom(roomID string) *Hub {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	hub, exists := m.hubs[roomID]
	if !exists {
		hub = NewHub(roomID)
		m.hubs[roomID] = hub
		go hub.Run()
	}
	return hub
}

// Subscribe registers c with the hub of roomID, replacing a hub that was
// shut down in the meantime.
func (m *Manager) Subscribe(roomID string, c *Client) {
	for {
		hub := m.GetHubForRoom(roomID)
		c.hub = hub
		if hub.join(c) {
			return
		}
	}
}

// Publish pushes msg to its room's subscribers, or for a private message to
// the sender's and recipient's streams in every room.
func (m *Manager) Publish(msg models.Message) {
	data, err := json.Marshal(models.StreamEvent{Type: models.StreamEventMessage, Data: msg})
	if err != nil {
		logger.Error("Error marshaling stream event: %v", err)
		return
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if !msg.IsPrivate() {
		if hub, ok := m.hubs[msg.RoomID]; ok {
			m.enqueue(hub, hub.Broadcast, data)
		}
		return
	}

	dm := directMessage{userIDs: map[string]bool{msg.SenderID: true, msg.RecipientID: true}, data: data}
	for _, hub := range m.hubs {
		select {
		case hub.direct <- dm:
		case <-hub.done:
		default:
			logger.Warn("Dropping private stream event for room %s: hub busy", hub.roomID)
		}
	}
}

func (m *Manager) enqueue(hub *Hub, ch chan []byte, data []byte) {
	select {
	case ch <- data:
	case <-hub.done:
	default:
		logger.Warn("Dropping stream event for room %s: hub busy", hub.roomID)
	}
}

// Close shuts every hub down and stops the cleanup loop.
func (m *Manager) Close() {
	m.once.Do(func() { close(m.stop) })

	m.mutex.Lock()
	defer m.mutex.Unlock()
	for roomID, hub := range m.hubs {
		hub.ShutdownHub()
		delete(m.hubs, roomID)
	}
}

func (m *Manager) cleanupUnusedHubs(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
		}

		m.mutex.Lock()
		for roomID, hub := range m.hubs {
			if hub.ClientCount() == 0 {
				hub.ShutdownHub()
				delete(m.hubs, roomID)
				logger.Debug("Cleaned up unused hub for room %s", roomID)
			}
		}
		m.mutex.Unlock()
	}
}
