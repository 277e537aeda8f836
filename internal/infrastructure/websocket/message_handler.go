package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	apperrors "nearbuy/pkg/errors"
)

// Client to server events.
const (
	MessageTypePing        = "ping"
	MessageTypeJoin        = "join"
	MessageTypeLeave       = "leave"
	MessageTypeSendMessage = "send_message"
)

// Server to client events.
const (
	MessageTypePong         = "pong"
	MessageTypeJoined       = "joined"
	MessageTypeError        = "error"
	MessageTypeNewMessage   = "new_message"
	MessageTypeMessagesRead = "messages_read"
)

const handleTimeout = 10 * time.Second

type WSMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp string      `json:"timestamp"`
}

func newMessage(eventType string, data interface{}) WSMessage {
	return WSMessage{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

type clientMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type RoomData struct {
	RoomID string `json:"room_id"`
}

type SendMessageData struct {
	RoomID  string `json:"room_id"`
	Content string `json:"content"`
	// UserID is optional; when present it must be the authenticated user.
	UserID string `json:"user_id,omitempty"`
}

type ErrorData struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// HandleClientMessage dispatches one frame received from client.
func (m *Manager) HandleClientMessage(client *Client, raw []byte) {
	var msg clientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		m.sendError(client, "Invalid message format", "")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	switch msg.Type {
	case MessageTypePing:
		m.sendToClient(client, newMessage(MessageTypePong, map[string]string{"status": "alive"}))

	case MessageTypeJoin:
		var data RoomData
		if !m.decode(client, msg.Data, &data) {
			return
		}
		m.handleJoin(ctx, client, data)

	case MessageTypeLeave:
		var data RoomData
		if !m.decode(client, msg.Data, &data) {
			return
		}
		m.Leave(client, data.RoomID)

	case MessageTypeSendMessage:
		var data SendMessageData
		if !m.decode(client, msg.Data, &data) {
			return
		}
		m.handleSendMessage(ctx, client, data)

	default:
		m.log.Debug().Str("type", msg.Type).Str("user_id", client.UserID).Msg("unknown message type")
		m.sendError(client, "Unknown message type", "")
	}
}

func (m *Manager) decode(client *Client, raw json.RawMessage, v interface{}) bool {
	if len(raw) == 0 {
		m.sendError(client, "Missing data", "")
		return false
	}
	if err := json.Unmarshal(raw, v); err != nil {
		m.sendError(client, "Invalid data format", "")
		return false
	}
	return true
}

func (m *Manager) handleJoin(ctx context.Context, client *Client, data RoomData) {
	if data.RoomID == "" {
		m.sendError(client, "Missing room_id", "")
		return
	}
	if m.chat == nil {
		m.sendError(client, "Chat is unavailable", "")
		return
	}
	if err := m.chat.AuthorizeRoom(ctx, client.UserID, data.RoomID); err != nil {
		m.sendAppError(client, err)
		return
	}

	m.Join(client, data.RoomID)
	m.sendToClient(client, newMessage(MessageTypeJoined, data))
}

func (m *Manager) handleSendMessage(ctx context.Context, client *Client, data SendMessageData) {
	if data.RoomID == "" || data.Content == "" {
		m.sendError(client, "Missing required fields", "")
		return
	}
	if data.UserID != "" && data.UserID != client.UserID {
		m.sendError(client, "Cannot send messages as another user", "FORBIDDEN")
		return
	}
	if m.limiter != nil {
		if ok, _ := m.limiter.Allow(client.UserID, MessageTypeSendMessage); !ok {
			m.sendError(client, "Too many messages, slow down", "TOO_MANY_REQUESTS")
			return
		}
	}
	if m.chat == nil {
		m.sendError(client, "Chat is unavailable", "")
		return
	}

	// The use case broadcasts new_message to the room once stored.
	if _, err := m.chat.SendMessage(ctx, client.UserID, data.RoomID, data.Content); err != nil {
		m.sendAppError(client, err)
	}
}

func (m *Manager) sendToClient(client *Client, message WSMessage) {
	payload, err := json.Marshal(message)
	if err != nil {
		m.log.Error().Err(err).Str("user_id", client.UserID).Msg("failed to encode message")
		return
	}

	m.mutex.RLock()
	_, registered := m.clients[client]
	if registered {
		select {
		case client.Send <- payload:
		default:
			registered = false
		}
	}
	m.mutex.RUnlock()

	if !registered {
		m.disconnect(client)
	}
}

func (m *Manager) sendError(client *Client, message, code string) {
	m.sendToClient(client, newMessage(MessageTypeError, ErrorData{Message: message, Code: code}))
}

func (m *Manager) sendAppError(client *Client, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		m.sendError(client, appErr.Message, appErr.Code)
		return
	}
	m.log.Error().Err(err).Str("user_id", client.UserID).Msg("chat operation failed")
	m.sendError(client, "An unexpected error occurred", "INTERNAL_ERROR")
}
