// cmd/server/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"light-controller-service/internal/config"
	"light-controller-service/internal/discovery"
	serialscan "light-controller-service/internal/discovery/serial"
	tcpscan "light-controller-service/internal/discovery/tcp"
	"light-controller-service/internal/eventbus"
	"light-controller-service/internal/model"
	"light-controller-service/internal/routes"
	"light-controller-service/internal/service"
	"light-controller-service/internal/utils"
)

// Application represents the main application
type Application struct {
	config *config.Config
	logger *zap.Logger
	server *http.Server

	bus               *eventbus.Bus
	controllerService *service.ControllerService
	scanners          *discovery.ScannerManager

	journal *eventbus.ChanSubscription
}

func main() {
	configPath := flag.String("config", os.Getenv("LIGHT_SERVICE_CONFIG"), "path to the YAML config file")
	flag.Parse()

	app, err := NewApplication(*configPath)
	if err != nil {
		fmt.Printf("Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	if err := app.Start(); err != nil {
		app.logger.Fatal("Failed to start application", zap.Error(err))
	}
}

// NewApplication creates a new application instance
func NewApplication(configPath string) (*Application, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := utils.NewLogger(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	serviceLogger := utils.NewServiceLogger(logger, cfg.App.Name)
	serviceLogger.LogServiceStart(cfg.App.Version, cfg)

	app := &Application{
		config: cfg,
		logger: logger,
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.initializeDiscovery()

	if err := app.initializeServer(); err != nil {
		return nil, fmt.Errorf("failed to initialize server: %w", err)
	}

	return app, nil
}

// initializeServices creates the event bus and the controller runtimes
func (app *Application) initializeServices() error {
	app.bus = eventbus.New(app.logger)
	app.startEventJournal()

	app.controllerService = service.NewControllerService(app.bus, service.Options{
		Transport:         service.TransportOptions(app.config.Transport),
		StrictPassthrough: app.config.Framing.StrictPassthrough,
	}, app.logger)

	if err := app.controllerService.LoadFromConfig(app.config.Controllers); err != nil {
		return err
	}

	app.logger.Info("Services initialized successfully",
		zap.Int("controllers", app.controllerService.Count()),
		zap.Bool("strict_passthrough", app.config.Framing.StrictPassthrough),
	)
	return nil
}

// initializeDiscovery registers the serial and TCP scanners
func (app *Application) initializeDiscovery() {
	app.scanners = discovery.NewScannerManager(app.logger)
	app.scanners.RegisterScanner(serialscan.NewScanner(app.logger))
	app.scanners.RegisterScanner(tcpscan.NewScanner(app.logger, &tcpscan.Config{
		ConnTimeout: app.config.Transport.ConnectTimeout,
	}, app.controllerService.SocketTargets))
}

// initializeServer sets up HTTP server and routes
func (app *Application) initializeServer() error {
	routerManager := routes.NewRouter(
		app.config,
		app.logger,
		app.controllerService,
		app.scanners,
	)

	router := routerManager.SetupRouter()

	app.server = &http.Server{
		Addr:         app.config.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  app.config.Server.ReadTimeout,
		WriteTimeout: app.config.Server.WriteTimeout,
		IdleTimeout:  app.config.Server.IdleTimeout,
	}

	app.logger.Info("HTTP server initialized",
		zap.String("address", app.config.GetServerAddr()),
	)

	return nil
}

// startEventJournal subscribes the journal before any controller connects
func (app *Application) startEventJournal() {
	events, sub := app.bus.SubscribeChan(app.config.Events.BufferSize)
	app.journal = sub
	go app.runEventJournal(events)
}

// runEventJournal writes every bus event to the log until the subscription closes
func (app *Application) runEventJournal(events <-chan model.Event) {
	journal := app.logger.With(zap.String("component", "event-journal"))
	for event := range events {
		fields := []zap.Field{
			zap.String("event_id", event.ID.String()),
			zap.String("type", string(event.Type)),
			zap.String("instance_id", event.InstanceID),
		}

		switch event.Type.Kind() {
		case model.EventKindError:
			journal.Warn("Controller error",
				append(fields, zap.Int("code", event.Code), zap.String("message", event.Message))...)
		case model.EventKindFrame:
			journal.Debug("Controller frame", append(fields, zap.String("frame", event.Printable))...)
		default:
			journal.Info("Controller state", append(fields, zap.String("message", event.Message))...)
		}
	}
}

// waitForShutdown waits for shutdown signal and performs graceful shutdown
func (app *Application) waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	app.logger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	app.shutdown()
}

// shutdown performs graceful shutdown
func (app *Application) shutdown() {
	serviceLogger := utils.NewServiceLogger(app.logger, app.config.App.Name)
	serviceLogger.LogServiceStop("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		app.logger.Info("HTTP server stopped")
	}

	if err := app.controllerService.Close(); err != nil {
		app.logger.Error("Controller close error", zap.Error(err))
	}

	if app.journal != nil {
		app.journal.Unsubscribe()
	}

	app.logger.Info("Application shutdown completed")

	if err := utils.CloseLogger(app.logger); err != nil {
		fmt.Printf("Logger close error: %v\n", err)
	}
}

// Start serves HTTP until a shutdown signal arrives
func (app *Application) Start() error {
	go func() {
		app.logger.Info("Starting HTTP server",
			zap.String("address", app.server.Addr),
		)

		if err := app.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	app.waitForShutdown()

	return nil
}
