// internal/handler/websocket_types.go
package handler

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"light-controller-service/internal/model"
)

// Client represents a WebSocket client
type Client struct {
	ID          string          `json:"id"`
	Connection  *websocket.Conn `json:"-"`
	Send        chan []byte     `json:"-"`
	Type        string          `json:"type"` // events, controller
	InstanceID  *string         `json:"instance_id,omitempty"`
	UserAgent   string          `json:"user_agent"`
	RemoteAddr  string          `json:"remote_addr"`
	ConnectedAt time.Time       `json:"connected_at"`

	mu            sync.RWMutex
	subscriptions map[string]bool
}

// Subscribe limits delivery to the given instance ids
func (c *Client) Subscribe(instanceID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subscriptions == nil {
		c.subscriptions = make(map[string]bool)
	}
	c.subscriptions[instanceID] = true
}

// Unsubscribe removes an instance id filter
func (c *Client) Unsubscribe(instanceID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subscriptions, instanceID)
}

// Subscriptions returns the current instance id filters
func (c *Client) Subscriptions() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.subscriptions))
	for id := range c.subscriptions {
		out = append(out, id)
	}
	return out
}

// Wants reports whether an event should be delivered to the client.
// Controller clients only see their instance; event clients see everything
// unless they subscribed to specific instances.
func (c *Client) Wants(event model.Event) bool {
	if c.InstanceID != nil {
		return *c.InstanceID == event.InstanceID
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.subscriptions) == 0 {
		return true
	}
	return c.subscriptions[event.InstanceID]
}

// WebSocketMessage represents a WebSocket message
type WebSocketMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"request_id,omitempty"`
}

// ConnectionManager tracks connected WebSocket clients
type ConnectionManager struct {
	clients map[string]*Client
	mutex   sync.RWMutex
}

// NewConnectionManager creates a new connection manager
func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{
		clients: make(map[string]*Client),
	}
}

// Register registers a new client
func (cm *ConnectionManager) Register(client *Client) {
	cm.mutex.Lock()
	cm.clients[client.ID] = client
	cm.mutex.Unlock()
}

// Unregister removes a client and closes its send channel once.
// Callers must stop every producer of client.Send first.
func (cm *ConnectionManager) Unregister(client *Client) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()
	if _, ok := cm.clients[client.ID]; ok {
		delete(cm.clients, client.ID)
		close(client.Send)
	}
}

// Count returns the number of connected clients
func (cm *ConnectionManager) Count() int {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()
	return len(cm.clients)
}

// GetControllerClients returns clients bound to a specific controller
func (cm *ConnectionManager) GetControllerClients(instanceID string) []*Client {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	var clients []*Client
	for _, client := range cm.clients {
		if client.InstanceID != nil && *client.InstanceID == instanceID {
			clients = append(clients, client)
		}
	}
	return clients
}

// GetStats returns connection statistics
func (cm *ConnectionManager) GetStats() *ConnectionStats {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	stats := &ConnectionStats{
		TotalConnections: len(cm.clients),
		ByType:           make(map[string]int),
		Clients:          make([]*Client, 0, len(cm.clients)),
	}

	for _, client := range cm.clients {
		stats.ByType[client.Type]++
		stats.Clients = append(stats.Clients, client)
	}

	return stats
}

// ConnectionStats represents connection statistics
type ConnectionStats struct {
	TotalConnections int            `json:"total_connections"`
	ByType           map[string]int `json:"by_type"`
	Clients          []*Client      `json:"clients"`
}
