package websocket

import (
	"encoding/json"
	"time"

	"github.com/dom/task-manager/internal/domain"
)

type MessageType string

const (
	// Server to Client
	MessageTypeConnected   MessageType = "CONNECTED"
	MessageTypeTaskCreated MessageType = MessageType(domain.TaskCreated)
	MessageTypeTaskUpdated MessageType = MessageType(domain.TaskUpdated)
	MessageTypeTaskDeleted MessageType = MessageType(domain.TaskDeleted)
)

type Message struct {
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp int64           `json:"timestamp"`
}

func NewMessage(msgType MessageType, payload interface{}) (*Message, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{
		Type:      msgType,
		Payload:   payloadBytes,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

type ConnectedPayload struct {
	UserID string `json:"userId"`
}
