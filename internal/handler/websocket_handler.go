// internal/handler/websocket_handler.go
package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"light-controller-service/internal/eventbus"
	"light-controller-service/internal/model"
	"light-controller-service/internal/service"
	"light-controller-service/internal/utils"
)

const (
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 54 * time.Second
	wsWriteWait  = 10 * time.Second
)

// WebSocketHandler streams bus events to WebSocket clients
type WebSocketHandler struct {
	upgrader          websocket.Upgrader
	connections       *ConnectionManager
	controllerService *service.ControllerService
	bus               *eventbus.Bus
	bufferSize        int
	logger            *utils.ServiceLogger
}

// NewWebSocketHandler creates a new WebSocket handler. allowedOrigins empty
// or containing "*" accepts every origin.
func NewWebSocketHandler(
	controllerService *service.ControllerService,
	bufferSize int,
	allowedOrigins []string,
	logger *zap.Logger,
) *WebSocketHandler {
	if bufferSize <= 0 {
		bufferSize = 256
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}

	return &WebSocketHandler{
		upgrader:          upgrader,
		connections:       NewConnectionManager(),
		controllerService: controllerService,
		bus:               controllerService.Bus(),
		bufferSize:        bufferSize,
		logger:            utils.NewServiceLogger(logger, "websocket-handler"),
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}

// RegisterRoutes registers WebSocket routes
func (h *WebSocketHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/events", h.HandleEventConnection)
	router.GET("/controllers/:instance_id", h.HandleControllerConnection)
	router.GET("/stats", h.HandleStats)
}

// HandleStats reports connected clients, optionally narrowed to one controller
func (h *WebSocketHandler) HandleStats(c *gin.Context) {
	if instanceID := c.Query("instance_id"); instanceID != "" {
		clients := h.connections.GetControllerClients(instanceID)
		utils.SuccessResponse(c, http.StatusOK, "Controller clients", gin.H{
			"instance_id": instanceID,
			"count":       len(clients),
			"clients":     clients,
		})
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "WebSocket stats", h.GetConnectionStats())
}

// HandleEventConnection streams events of every controller. Clients may
// narrow the stream with subscribe messages.
func (h *WebSocketHandler) HandleEventConnection(c *gin.Context) {
	h.serve(c, "events", nil)
}

// HandleControllerConnection streams the events of one controller
func (h *WebSocketHandler) HandleControllerConnection(c *gin.Context) {
	instanceID := c.Param("instance_id")
	if _, err := h.controllerService.View(instanceID); err != nil {
		utils.ErrorResponse(c, http.StatusNotFound, "Controller not found", err)
		return
	}
	h.serve(c, "controller", &instanceID)
}

func (h *WebSocketHandler) serve(c *gin.Context, kind string, instanceID *string) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket connection", zap.Error(err))
		return
	}

	client := &Client{
		ID:          uuid.New().String(),
		Connection:  conn,
		Send:        make(chan []byte, h.bufferSize),
		Type:        kind,
		InstanceID:  instanceID,
		UserAgent:   c.Request.UserAgent(),
		RemoteAddr:  c.Request.RemoteAddr,
		ConnectedAt: time.Now(),
	}

	h.connections.Register(client)
	fields := []zap.Field{zap.String("client_id", client.ID), zap.String("type", kind)}
	if instanceID != nil {
		fields = append(fields, zap.String("instance_id", *instanceID))
	}
	h.logger.Info("WebSocket client connected", fields...)

	events, sub := h.bus.SubscribeChan(h.bufferSize)
	pumpDone := make(chan struct{})

	go h.pumpEvents(client, events, pumpDone)
	go h.handleClientWrite(client)

	if instanceID != nil {
		h.sendInitialStatus(client, *instanceID)
	}

	go h.handleClientRead(client, func() {
		sub.Unsubscribe()
		<-pumpDone
		h.connections.Unregister(client)
		h.logger.Info("WebSocket client disconnected", zap.String("client_id", client.ID))
	})
}

// pumpEvents forwards bus events the client wants until the subscription closes
func (h *WebSocketHandler) pumpEvents(client *Client, events <-chan model.Event, done chan<- struct{}) {
	defer close(done)
	for event := range events {
		if !client.Wants(event) {
			continue
		}
		h.sendMessage(client, &WebSocketMessage{
			Type:      "event",
			Data:      event,
			Timestamp: event.Timestamp,
		})
	}
}

// handleClientRead reads client messages until the connection fails, then runs cleanup
func (h *WebSocketHandler) handleClientRead(client *Client, cleanup func()) {
	defer func() {
		cleanup()
		client.Connection.Close()
	}()

	client.Connection.SetReadDeadline(time.Now().Add(wsPongWait))
	client.Connection.SetPongHandler(func(string) error {
		client.Connection.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	for {
		_, messageBytes, err := client.Connection.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Error("WebSocket read error",
					zap.Error(err),
					zap.String("client_id", client.ID),
				)
			}
			return
		}

		var message WebSocketMessage
		if err := json.Unmarshal(messageBytes, &message); err != nil {
			h.sendError(client, "invalid message")
			continue
		}

		h.handleClientMessage(client, &message)
	}
}

// handleClientWrite drains client.Send and keeps the connection alive
func (h *WebSocketHandler) handleClientWrite(client *Client) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		client.Connection.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			client.Connection.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				client.Connection.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := client.Connection.WriteMessage(websocket.TextMessage, message); err != nil {
				h.logger.Error("WebSocket write error",
					zap.Error(err),
					zap.String("client_id", client.ID),
				)
				return
			}

		case <-ticker.C:
			client.Connection.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := client.Connection.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleClientMessage handles incoming client messages
func (h *WebSocketHandler) handleClientMessage(client *Client, message *WebSocketMessage) {
	switch message.Type {
	case "subscribe":
		if id, ok := instanceIDOf(message); ok {
			client.Subscribe(id)
			h.sendMessage(client, &WebSocketMessage{
				Type:      "subscription_confirmed",
				Data:      map[string]interface{}{"instance_id": id, "subscriptions": client.Subscriptions()},
				Timestamp: time.Now(),
				RequestID: message.RequestID,
			})
			return
		}
		h.sendError(client, "instance_id is required")
	case "unsubscribe":
		if id, ok := instanceIDOf(message); ok {
			client.Unsubscribe(id)
		}
	case "status":
		if client.InstanceID == nil {
			h.sendError(client, "status is only available on controller connections")
			return
		}
		h.sendInitialStatus(client, *client.InstanceID)
	case "ping":
		h.sendMessage(client, &WebSocketMessage{
			Type:      "pong",
			Timestamp: time.Now(),
			RequestID: message.RequestID,
		})
	default:
		h.logger.Warn("Unknown message type",
			zap.String("type", message.Type),
			zap.String("client_id", client.ID),
		)
		h.sendError(client, "unknown message type: "+message.Type)
	}
}

func instanceIDOf(message *WebSocketMessage) (string, bool) {
	data, ok := message.Data.(map[string]interface{})
	if !ok {
		return "", false
	}
	id, ok := data["instance_id"].(string)
	return id, ok && id != ""
}

// sendInitialStatus sends the controller view to a client
func (h *WebSocketHandler) sendInitialStatus(client *Client, instanceID string) {
	view, err := h.controllerService.View(instanceID)
	if err != nil {
		h.sendError(client, err.Error())
		return
	}
	h.sendMessage(client, &WebSocketMessage{
		Type:      "status",
		Data:      view,
		Timestamp: time.Now(),
	})
}

// sendMessage queues a message without blocking
func (h *WebSocketHandler) sendMessage(client *Client, message *WebSocketMessage) {
	messageBytes, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("Failed to marshal WebSocket message", zap.Error(err))
		return
	}

	select {
	case client.Send <- messageBytes:
	default:
		h.logger.Warn("Client send channel full, dropping message",
			zap.String("client_id", client.ID),
		)
	}
}

// sendError sends an error message to a client
func (h *WebSocketHandler) sendError(client *Client, errorMsg string) {
	h.sendMessage(client, &WebSocketMessage{
		Type:      "error",
		Data:      map[string]interface{}{"error": errorMsg},
		Timestamp: time.Now(),
	})
}

// GetConnectionStats returns connection statistics
func (h *WebSocketHandler) GetConnectionStats() *ConnectionStats {
	return h.connections.GetStats()
}

// ClientCount returns the number of connected clients
func (h *WebSocketHandler) ClientCount() int {
	return h.connections.Count()
}
