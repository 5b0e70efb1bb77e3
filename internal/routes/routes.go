// internal/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"light-controller-service/internal/config"
	"light-controller-service/internal/discovery"
	"light-controller-service/internal/handler"
	"light-controller-service/internal/middleware"
	"light-controller-service/internal/service"
	"light-controller-service/internal/utils"
)

// Router holds all dependencies for routing
type Router struct {
	config            *config.Config
	logger            *zap.Logger
	controllerService *service.ControllerService
	scanners          *discovery.ScannerManager
}

// NewRouter creates a new router instance
func NewRouter(
	config *config.Config,
	logger *zap.Logger,
	controllerService *service.ControllerService,
	scanners *discovery.ScannerManager,
) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		config:            config,
		logger:            logger,
		controllerService: controllerService,
		scanners:          scanners,
	}
}

// SetupRouter creates and configures the Gin router
func (r *Router) SetupRouter() *gin.Engine {
	// gin's debug mode only in development or with app.debug outside production
	if r.config.IsProduction() || !r.config.IsDebugEnabled() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	r.addMiddleware(router)
	r.addRoutes(router)

	return router
}

// addMiddleware adds middleware to the router
func (r *Router) addMiddleware(router *gin.Engine) {
	router.Use(middleware.RecoveryMiddleware(r.logger))
	router.Use(middleware.RequestIDMiddleware())

	serviceLogger := utils.NewServiceLogger(r.logger, "http-server")
	router.Use(middleware.LoggingMiddleware(serviceLogger))

	router.Use(middleware.CORSMiddleware(&r.config.Security))

	r.logger.Debug("Middleware configured")
}

// addRoutes sets up all application routes
func (r *Router) addRoutes(router *gin.Engine) {
	wsHandler := handler.NewWebSocketHandler(
		r.controllerService,
		r.config.Events.BufferSize,
		r.config.Security.AllowedOrigins,
		r.logger,
	)
	healthHandler := handler.NewHealthHandler(r.controllerService, wsHandler.ClientCount, r.config, r.logger)
	controllerHandler := handler.NewControllerHandler(r.controllerService, r.logger)
	discoveryHandler := handler.NewDiscoveryHandler(r.scanners, r.logger)

	healthHandler.RegisterRoutes(router)

	apiV1 := router.Group("/api/v1")
	controllerHandler.RegisterRoutes(apiV1)
	discoveryHandler.RegisterRoutes(apiV1)

	wsHandler.RegisterRoutes(router.Group("/ws"))

	r.logger.Info("All routes configured successfully")
}
