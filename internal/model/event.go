// internal/model/event.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of event
type EventType string

const (
	EventInstanceConnecting    EventType = "INSTANCE_CONNECTING"
	EventInstanceConnected     EventType = "INSTANCE_CONNECTED"
	EventInstanceDisconnected  EventType = "INSTANCE_DISCONNECTED"
	EventInstanceConnectFailed EventType = "INSTANCE_CONNECT_FAILED"
	EventInstanceError         EventType = "INSTANCE_ERROR"
	EventTxFrame               EventType = "TX_FRAME"
	EventRxFrame               EventType = "RX_FRAME"
)

// EventKind tells which fields of an Event are meaningful
type EventKind string

const (
	EventKindConnect EventKind = "connect"
	EventKindError   EventKind = "error"
	EventKindFrame   EventKind = "frame"
)

// Kind classifies the event type
func (t EventType) Kind() EventKind {
	switch t {
	case EventInstanceError:
		return EventKindError
	case EventTxFrame, EventRxFrame:
		return EventKindFrame
	default:
		return EventKindConnect
	}
}

// Event is published by value. Connect events use Message, error events use
// Code and Message, frame events use Printable.
type Event struct {
	ID         uuid.UUID `json:"id"`
	Type       EventType `json:"type"`
	InstanceID string    `json:"instance_id"`
	Message    string    `json:"message,omitempty"`
	Code       int       `json:"code,omitempty"`
	Printable  string    `json:"printable,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewConnectEvent creates a connection lifecycle event
func NewConnectEvent(t EventType, instanceID, message string) Event {
	return Event{ID: uuid.New(), Type: t, InstanceID: instanceID, Message: message, Timestamp: time.Now()}
}

// NewErrorEvent creates an INSTANCE_ERROR event
func NewErrorEvent(instanceID string, code int, message string) Event {
	return Event{ID: uuid.New(), Type: EventInstanceError, InstanceID: instanceID, Code: code, Message: message, Timestamp: time.Now()}
}

// NewFrameEvent creates a TX_FRAME or RX_FRAME event
func NewFrameEvent(t EventType, instanceID, printable string) Event {
	return Event{ID: uuid.New(), Type: t, InstanceID: instanceID, Printable: printable, Timestamp: time.Now()}
}
