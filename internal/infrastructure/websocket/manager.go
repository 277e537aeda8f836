package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"nearbuy/internal/domain/entity"
	"nearbuy/internal/infrastructure/metrics"
	"nearbuy/internal/infrastructure/ratelimit"
	"nearbuy/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8 * 1024
	sendBuffer     = 64
)

// Broker fans room events out to the connections that joined the room.
type Broker interface {
	Join(client *Client, roomID string)
	Leave(client *Client, roomID string)
	Broadcast(ctx context.Context, roomID, eventType string, data interface{})
}

// ChatService is the part of the chat use case the socket protocol drives.
type ChatService interface {
	AuthorizeRoom(ctx context.Context, userID, roomID string) error
	SendMessage(ctx context.Context, userID, roomID, content string) (*entity.ChatMessage, error)
}

// Client is one websocket connection of an authenticated user.
type Client struct {
	UserID string
	Conn   *websocket.Conn
	Send   chan []byte

	rooms map[string]struct{}
}

func NewClient(userID string, conn *websocket.Conn) *Client {
	return &Client{
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, sendBuffer),
		rooms:  make(map[string]struct{}),
	}
}

// Manager tracks connections and room membership for this instance. With a
// Relay attached, broadcasts travel through it so every instance delivers
// them to its own members.
type Manager struct {
	clients    map[*Client]struct{}
	rooms      map[string]map[*Client]struct{}
	Register   chan *Client
	Unregister chan *Client
	done       chan struct{}
	mutex      sync.RWMutex

	relay   Relay
	chat    ChatService
	limiter *ratelimit.RateLimiter
	log     zerolog.Logger
}

var _ Broker = (*Manager)(nil)

func NewManager(limiter *ratelimit.RateLimiter) *Manager {
	return &Manager{
		clients:    make(map[*Client]struct{}),
		rooms:      make(map[string]map[*Client]struct{}),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		done:       make(chan struct{}),
		limiter:    limiter,
		log:        logger.With("component", "websocket"),
	}
}

// SetChatService wires the use case that persists messages sent over the socket.
func (m *Manager) SetChatService(chat ChatService) {
	m.chat = chat
}

func (m *Manager) SetRelay(relay Relay) {
	m.relay = relay
}

// Start runs the registration loop and, when a relay is set, its subscriber.
func (m *Manager) Start(ctx context.Context) error {
	if m.relay != nil {
		if err := m.relay.Subscribe(ctx, m.deliver); err != nil {
			return err
		}
	}

	go func() {
		defer close(m.done)
		for {
			select {
			case client := <-m.Register:
				m.mutex.Lock()
				m.clients[client] = struct{}{}
				m.mutex.Unlock()
				metrics.WSConnections.Inc()
				m.log.Debug().Str("user_id", client.UserID).Msg("client registered")

			case client := <-m.Unregister:
				m.remove(client)

			case <-ctx.Done():
				m.mutex.Lock()
				for client := range m.clients {
					close(client.Send)
				}
				m.clients = make(map[*Client]struct{})
				m.rooms = make(map[string]map[*Client]struct{})
				m.mutex.Unlock()
				return
			}
		}
	}()
	return nil
}

func (m *Manager) remove(client *Client) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, ok := m.clients[client]; !ok {
		return
	}
	for roomID := range client.rooms {
		m.leaveLocked(client, roomID)
	}
	delete(m.clients, client)
	close(client.Send)
	metrics.WSConnections.Dec()
	m.log.Debug().Str("user_id", client.UserID).Msg("client unregistered")
}

// Connect hands client to the loop. It reports false when the loop has
// stopped or ctx ends before the loop accepts the client.
func (m *Manager) Connect(ctx context.Context, client *Client) bool {
	select {
	case m.Register <- client:
		return true
	case <-m.done:
		return false
	case <-ctx.Done():
		return false
	}
}

// disconnect asks the loop to drop client without blocking the caller.
func (m *Manager) disconnect(client *Client) {
	go func() {
		select {
		case m.Unregister <- client:
		case <-m.done:
		}
	}()
}

// Join is a no-op for clients that are not registered.
func (m *Manager) Join(client *Client, roomID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, ok := m.clients[client]; !ok {
		return
	}
	members, ok := m.rooms[roomID]
	if !ok {
		members = make(map[*Client]struct{})
		m.rooms[roomID] = members
	}
	members[client] = struct{}{}
	client.rooms[roomID] = struct{}{}
}

func (m *Manager) Leave(client *Client, roomID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.leaveLocked(client, roomID)
}

func (m *Manager) leaveLocked(client *Client, roomID string) {
	delete(client.rooms, roomID)
	if members, ok := m.rooms[roomID]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(m.rooms, roomID)
		}
	}
}

// RoomSize returns the number of local connections joined to roomID.
func (m *Manager) RoomSize(roomID string) int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.rooms[roomID])
}

// Broadcast is fire and forget: delivery failures are logged, never returned.
func (m *Manager) Broadcast(ctx context.Context, roomID, eventType string, data interface{}) {
	payload, err := json.Marshal(newMessage(eventType, data))
	if err != nil {
		m.log.Error().Err(err).Str("event", eventType).Msg("failed to encode broadcast")
		return
	}

	if m.relay != nil {
		err := m.relay.Publish(ctx, roomID, payload)
		if err == nil {
			return
		}
		m.log.Warn().Err(err).Str("room_id", roomID).Msg("relay publish failed, delivering locally")
	}
	m.deliver(roomID, payload)
}

func (m *Manager) deliver(roomID string, payload []byte) {
	var slow []*Client

	m.mutex.RLock()
	for client := range m.rooms[roomID] {
		select {
		case client.Send <- payload:
		default:
			slow = append(slow, client)
		}
	}
	m.mutex.RUnlock()

	for _, client := range slow {
		m.log.Warn().Str("user_id", client.UserID).Msg("send buffer full, dropping connection")
		m.disconnect(client)
	}
}

// ReadPump reads client frames until the connection fails, then unregisters.
func (c *Client) ReadPump(m *Manager) {
	defer func() {
		m.disconnect(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				m.log.Warn().Err(err).Str("user_id", c.UserID).Msg("unexpected close")
			}
			return
		}
		m.HandleClientMessage(c, message)
	}
}

// WritePump drains Send to the connection and keeps it alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
