// internal/handler/controller_handler.go
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"light-controller-service/internal/controller"
	"light-controller-service/internal/model"
	"light-controller-service/internal/service"
	"light-controller-service/internal/transport"
	"light-controller-service/internal/utils"
)

// ControllerHandler handles controller-related HTTP requests
type ControllerHandler struct {
	controllerService *service.ControllerService
	logger            *utils.ServiceLogger
}

// NewControllerHandler creates a new controller handler
func NewControllerHandler(controllerService *service.ControllerService, logger *zap.Logger) *ControllerHandler {
	return &ControllerHandler{
		controllerService: controllerService,
		logger:            utils.NewServiceLogger(logger, "controller-handler"),
	}
}

// RegisterRoutes registers controller routes
func (h *ControllerHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/tools", h.ListTools)

	controllers := router.Group("/controllers")
	{
		controllers.GET("", h.ListControllers)

		ctrl := controllers.Group("/:instance_id")
		{
			ctrl.GET("", h.GetController)
			ctrl.POST("/connect", h.ConnectController)
			ctrl.POST("/disconnect", h.DisconnectController)
			ctrl.POST("/reconnect", h.ReConnectController)
			ctrl.PUT("/connection", h.UpdateConnection)
			ctrl.POST("/params", h.SetParam)
		}
	}
}

// paramSetBody is the body of POST /controllers/:instance_id/params
type paramSetBody struct {
	ParamKey  string              `json:"param_key" binding:"required"`
	Location  model.ParamLocation `json:"location"`
	ChannelID string              `json:"channel_id"`
	Value     string              `json:"value"`
}

// ListControllers lists every registered controller
func (h *ControllerHandler) ListControllers(c *gin.Context) {
	list := h.controllerService.List()
	utils.SuccessResponse(c, http.StatusOK, "Controllers retrieved successfully", gin.H{
		"controllers": list,
		"total":       len(list),
	})
}

// GetController returns one controller with its current values
func (h *ControllerHandler) GetController(c *gin.Context) {
	view, err := h.controllerService.View(c.Param("instance_id"))
	if err != nil {
		h.respondError(c, "Failed to get controller", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Controller retrieved successfully", view)
}

// ConnectController opens the controller transport
func (h *ControllerHandler) ConnectController(c *gin.Context) {
	instanceID := c.Param("instance_id")
	if err := h.controllerService.Connect(instanceID); err != nil {
		h.logger.Warn("Failed to connect controller", zap.String("instance_id", instanceID), zap.Error(err))
		h.respondError(c, "Failed to connect controller", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Controller connected", gin.H{"instance_id": instanceID, "connected": true})
}

// DisconnectController closes the controller transport
func (h *ControllerHandler) DisconnectController(c *gin.Context) {
	instanceID := c.Param("instance_id")
	if err := h.controllerService.Disconnect(instanceID); err != nil {
		h.respondError(c, "Failed to disconnect controller", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Controller disconnected", gin.H{"instance_id": instanceID, "connected": false})
}

// ReConnectController reopens the controller transport
func (h *ControllerHandler) ReConnectController(c *gin.Context) {
	instanceID := c.Param("instance_id")
	if err := h.controllerService.ReConnect(instanceID); err != nil {
		h.logger.Warn("Failed to reconnect controller", zap.String("instance_id", instanceID), zap.Error(err))
		h.respondError(c, "Failed to reconnect controller", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Controller reconnected", gin.H{"instance_id": instanceID, "connected": true})
}

// UpdateConnection replaces the connection config; ?reconnect=true reopens the transport
func (h *ControllerHandler) UpdateConnection(c *gin.Context) {
	instanceID := c.Param("instance_id")

	var cfg model.ConnectionConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	cfg.ConnectType = model.ParseConnectType(string(cfg.ConnectType))

	reconnect, _ := strconv.ParseBool(c.DefaultQuery("reconnect", "false"))
	if err := h.controllerService.UpdateConnection(instanceID, cfg, reconnect); err != nil {
		h.respondError(c, "Failed to update connection", err)
		return
	}

	view, err := h.controllerService.View(instanceID)
	if err != nil {
		h.respondError(c, "Failed to get controller", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Connection updated", view)
}

// SetParam writes a parameter value. ?send=false builds and saves without sending.
func (h *ControllerHandler) SetParam(c *gin.Context) {
	instanceID := c.Param("instance_id")

	var body paramSetBody
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	send, err := strconv.ParseBool(c.DefaultQuery("send", "true"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid send flag", err)
		return
	}

	req := model.ParamSetRequest{
		InstanceID: instanceID,
		ParamKey:   body.ParamKey,
		Location:   model.ParamLocation(strings.ToUpper(string(body.Location))),
		ChannelID:  body.ChannelID,
		Value:      body.Value,
	}

	result, err := h.controllerService.SetParam(req, send)
	if err != nil {
		h.respondError(c, "Failed to set parameter", err)
		return
	}

	if !result.OK {
		utils.FailureResponse(c, paramFailureStatus(result.Message), result.Message, result)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, result.Message, result)
}

// ListTools lists the parser tools templates can reference
func (h *ControllerHandler) ListTools(c *gin.Context) {
	stringTools, bytesTools := h.controllerService.Tools()
	utils.SuccessResponse(c, http.StatusOK, "Parser tools retrieved successfully", gin.H{
		"string_tools":       stringTools,
		"bytes_tools":        bytesTools,
		"strict_passthrough": h.controllerService.StrictPassthrough(),
	})
}

func paramFailureStatus(message string) int {
	switch {
	case message == controller.MessageNotConnected:
		return http.StatusConflict
	case strings.HasPrefix(message, "SendBytes failed"):
		return http.StatusBadGateway
	default:
		return http.StatusUnprocessableEntity
	}
}

func (h *ControllerHandler) respondError(c *gin.Context, message string, err error) {
	switch {
	case errors.Is(err, service.ErrControllerNotFound):
		utils.ErrorResponse(c, http.StatusNotFound, "Controller not found", err)
	case errors.Is(err, transport.ErrInvalidConfig), errors.Is(err, transport.ErrUnknownConnectType):
		utils.ErrorResponse(c, http.StatusBadRequest, message, err)
	default:
		utils.ErrorResponse(c, http.StatusBadGateway, message, err)
	}
}
