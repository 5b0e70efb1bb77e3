// internal/handler/discovery_handler.go
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"light-controller-service/internal/discovery"
	"light-controller-service/internal/utils"
)

// DiscoveryHandler lists serial ports and probes TCP targets
type DiscoveryHandler struct {
	scanners *discovery.ScannerManager
	logger   *utils.ServiceLogger
}

// NewDiscoveryHandler creates a new discovery handler
func NewDiscoveryHandler(scanners *discovery.ScannerManager, logger *zap.Logger) *DiscoveryHandler {
	return &DiscoveryHandler{
		scanners: scanners,
		logger:   utils.NewServiceLogger(logger, "discovery-handler"),
	}
}

// RegisterRoutes registers discovery routes
func (h *DiscoveryHandler) RegisterRoutes(router *gin.RouterGroup) {
	d := router.Group("/discovery")
	{
		d.GET("/scan", h.Scan)
		d.GET("/scanners", h.ListScanners)
	}
	router.GET("/serial-ports", h.ListSerialPorts)
}

// Scan runs the scanners. ?type=all|serial|tcp, ?timeout=10s
func (h *DiscoveryHandler) Scan(c *gin.Context) {
	scanType := c.DefaultQuery("type", "all")
	timeout, err := time.ParseDuration(c.DefaultQuery("timeout", "10s"))
	if err != nil || timeout <= 0 {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid timeout", err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
	defer cancel()

	var endpoints []*discovery.Endpoint
	if scanType == "all" {
		endpoints, err = h.scanners.ScanAll(ctx)
	} else {
		endpoints, err = h.scanners.ScanByType(ctx, scanType)
	}
	if err != nil {
		h.logger.Error("Failed to scan", zap.String("type", scanType), zap.Error(err))
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to scan", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Scan completed", gin.H{
		"endpoints_found": len(endpoints),
		"endpoints":       endpoints,
	})
}

// ListSerialPorts lists the serial ports of the host
func (h *DiscoveryHandler) ListSerialPorts(c *gin.Context) {
	ports, err := h.scanners.ScanByType(c.Request.Context(), "serial")
	if err != nil {
		h.logger.Error("Failed to list serial ports", zap.Error(err))
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to list serial ports", err)
		return
	}
	if ports == nil {
		ports = []*discovery.Endpoint{}
	}
	utils.SuccessResponse(c, http.StatusOK, "Serial ports retrieved successfully", gin.H{
		"ports": ports,
		"total": len(ports),
	})
}

// ListScanners lists the available scanner types
func (h *DiscoveryHandler) ListScanners(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Scanners retrieved successfully", gin.H{
		"scanners": h.scanners.GetAvailableScanners(),
	})
}
