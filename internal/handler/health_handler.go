// internal/handler/health_handler.go
package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"light-controller-service/internal/config"
	"light-controller-service/internal/service"
	"light-controller-service/internal/utils"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	controllerService *service.ControllerService
	clients           func() int
	config            *config.Config
	startedAt         time.Time
	logger            *utils.ServiceLogger
}

// NewHealthHandler creates a new health handler. clients reports the
// number of connected WebSocket clients and may be nil.
func NewHealthHandler(controllerService *service.ControllerService, clients func() int, config *config.Config, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		controllerService: controllerService,
		clients:           clients,
		config:            config,
		startedAt:         time.Now(),
		logger:            utils.NewServiceLogger(logger, "health-handler"),
	}
}

// RegisterRoutes registers health check routes
func (h *HealthHandler) RegisterRoutes(router gin.IRoutes) {
	router.GET("/health", h.HealthCheck)
	router.GET("/health/controllers", h.ControllersHealthCheck)
	router.GET("/ready", h.ReadinessCheck)
	router.GET("/live", h.LivenessCheck)
}

// HealthCheck reports service metadata and controller connectivity.
// Disconnected controllers do not make the service unhealthy.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	health := &HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Service:   h.config.App.Name,
		Version:   h.config.App.Version,
		Uptime:    time.Since(h.startedAt).Round(time.Second).String(),
		Checks:    make(map[string]CheckResult),
	}

	total := h.controllerService.Count()
	connected := h.controllerService.ConnectedCount()
	status := "healthy"
	if total > 0 && connected < total {
		status = "degraded"
	}
	health.Checks["controllers"] = CheckResult{
		Status: status,
		Data: map[string]interface{}{
			"registered": total,
			"connected":  connected,
		},
	}

	if h.clients != nil {
		health.Checks["websocket"] = CheckResult{
			Status: "healthy",
			Data:   map[string]interface{}{"clients": h.clients()},
		}
	}

	c.JSON(http.StatusOK, health)
}

// ControllersHealthCheck reports the link state of every controller
func (h *HealthHandler) ControllersHealthCheck(c *gin.Context) {
	views := h.controllerService.List()
	checks := make(map[string]CheckResult, len(views))
	for _, v := range views {
		result := CheckResult{
			Status: "healthy",
			Data: map[string]interface{}{
				"template_id":  v.Template.TemplateID,
				"connect_type": v.Instance.Connection.ConnectType,
			},
		}
		if !v.Connected {
			result.Status = "disconnected"
		}
		checks[v.Instance.Info.InstanceID] = result
	}

	c.JSON(http.StatusOK, gin.H{
		"timestamp":   time.Now(),
		"controllers": checks,
	})
}

// ReadinessCheck for Kubernetes readiness probe
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	if h.controllerService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "controller service not initialized",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      "ready",
		"controllers": h.controllerService.Count(),
		"timestamp":   time.Now(),
	})
}

// LivenessCheck for Kubernetes liveness probe
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"timestamp": time.Now(),
	})
}

// HealthResponse represents health check response
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Service   string                 `json:"service"`
	Version   string                 `json:"version"`
	Uptime    string                 `json:"uptime"`
	Checks    map[string]CheckResult `json:"checks"`
}

// CheckResult represents individual check result
type CheckResult struct {
	Status  string                 `json:"status"`
	Message string                 `json:"message,omitempty"`
	Data    map[string]interface{} `json:"data,omitempty"`
}
