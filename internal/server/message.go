package server

import (
	"encoding/json"
	"time"
)

// MessageType identifies a websocket message.
type MessageType string

const (
	// Server to client.
	MessageTypeSnapshot MessageType = "snapshot"
	MessageTypeError    MessageType = "error"
	MessageTypeAck      MessageType = "ack"

	// Client to server.
	MessageTypeAction MessageType = "action"
	MessageTypeLeave  MessageType = "leave"
	MessageTypeSitOut MessageType = "sit_out"
	MessageTypeSitIn  MessageType = "sit_in"
)

// Message is the websocket envelope in both directions.
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	RequestID string          `json:"request_id,omitempty"`
}

// NewMessage creates a new message with the current timestamp.
func NewMessage(messageType MessageType, data any) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// ActionRequest is the body of POST /v1/tables/:id/action and of an action
// message. Hand and Street, when set, must match the hand in progress or the
// action is rejected as stale.
type ActionRequest struct {
	Hand   string `json:"hand,omitempty"`
	Street string `json:"street,omitempty"`
	Kind   string `json:"kind"`
	Amount int    `json:"amount,omitempty"`
}

// JoinRequest is the body of POST /v1/tables/:id/join. A missing seat takes
// the lowest free one.
type JoinRequest struct {
	Seat  *int   `json:"seat,omitempty"`
	BuyIn int    `json:"buy_in"`
	Name  string `json:"name,omitempty"`
}

// RebuyRequest is the body of POST /v1/tables/:id/rebuy.
type RebuyRequest struct {
	Amount int `json:"amount"`
}

// ErrorData describes a failed request.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// TableInfo summarises a stored table for listings.
type TableInfo struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Seats      int    `json:"seats"`
	SmallBlind int    `json:"small_blind"`
	BigBlind   int    `json:"big_blind"`
	MinBuyIn   int    `json:"min_buy_in"`
	MaxBuyIn   int    `json:"max_buy_in"`
	Running    bool   `json:"running"`
}
