// internal/service/controller_service.go
package service

import (
	"errors"
	"fmt"
	"net"
	"sort"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"light-controller-service/internal/config"
	"light-controller-service/internal/controller"
	"light-controller-service/internal/eventbus"
	"light-controller-service/internal/framing"
	"light-controller-service/internal/model"
	"light-controller-service/internal/protocol"
	"light-controller-service/internal/transport"
	"light-controller-service/internal/utils"
)

var (
	ErrControllerNotFound = errors.New("controller not found")
	ErrDuplicateInstance  = errors.New("controller instance already registered")
	ErrEmptyInstanceID    = errors.New("instance_id is required")
)

// Options configures the shared collaborators of every runtime
type Options struct {
	Transport         transport.Options
	StrictPassthrough bool

	// NewTransport overrides backend construction; nil builds a transport.Link
	NewTransport func() transport.Transport
}

// ControllerView is the read model of one registered controller
type ControllerView struct {
	Template  model.TemplateInfo  `json:"template"`
	Instance  model.InstanceState `json:"instance"`
	Connected bool                `json:"connected"`
	LastTx    string              `json:"last_tx,omitempty"`
}

// ControllerService owns the runtimes of all configured controllers.
// Runtimes share one event bus, one tool registry and one wrapper.
type ControllerService struct {
	mu       sync.RWMutex
	runtimes map[string]*controller.Runtime

	bus          *eventbus.Bus
	factory      *protocol.Factory
	wrapper      *framing.Wrapper
	newTransport func() transport.Transport

	base   *zap.Logger
	logger *utils.ServiceLogger
}

// TransportOptions maps the transport config section onto backend options
func TransportOptions(cfg config.TransportConfig) transport.Options {
	return transport.Options{
		ConnectTimeout: cfg.ConnectTimeout,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleBackoff:    cfg.IdleBackoff,
		ReadBufferSize: cfg.ReadBufferSize,
		KeepAlive:      cfg.KeepAlive,
	}
}

// NewControllerService creates a new controller service instance
func NewControllerService(bus *eventbus.Bus, opts Options, logger *zap.Logger) *ControllerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if bus == nil {
		bus = eventbus.New(logger)
	}

	newTransport := opts.NewTransport
	if newTransport == nil {
		backends := transport.NewFactory(opts.Transport, logger)
		newTransport = func() transport.Transport {
			return transport.NewLink(backends, logger)
		}
	}

	return &ControllerService{
		runtimes:     make(map[string]*controller.Runtime),
		bus:          bus,
		factory:      protocol.NewFactory(logger),
		wrapper:      framing.NewWrapper(opts.StrictPassthrough),
		newTransport: newTransport,
		base:         logger,
		logger:       utils.NewServiceLogger(logger, "controller-service"),
	}
}

// Bus returns the shared event bus
func (cs *ControllerService) Bus() *eventbus.Bus {
	return cs.bus
}

// Tools returns the names of the registered string and byte tools
func (cs *ControllerService) Tools() (stringTools, bytesTools []string) {
	return cs.factory.StringTools(), cs.factory.BytesTools()
}

// StrictPassthrough reports whether EMPTY/EMPTY framing is rejected
func (cs *ControllerService) StrictPassthrough() bool {
	return cs.wrapper.Strict()
}

// Register binds a template and an instance into a new runtime
func (cs *ControllerService) Register(tpl model.TemplateDef, inst model.InstanceState) (*controller.Runtime, error) {
	id := inst.Info.InstanceID
	if id == "" {
		return nil, ErrEmptyInstanceID
	}
	if err := tpl.Normalize(); err != nil {
		return nil, fmt.Errorf("instance %s: %w", id, err)
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()

	if _, exists := cs.runtimes[id]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateInstance, id)
	}

	rt := controller.New(tpl, inst, controller.Dependencies{
		Factory:      cs.factory,
		Wrapper:      cs.wrapper,
		Bus:          cs.bus,
		NewTransport: cs.newTransport,
		Logger:       cs.base,
	})
	cs.runtimes[id] = rt

	cs.logger.Info("Controller registered",
		zap.String("instance_id", id),
		zap.String("template_id", tpl.Info.TemplateID),
		zap.String("protocol_type", string(tpl.Info.ProtocolType)),
		zap.String("connect_type", string(inst.Connection.ConnectType)),
	)
	return rt, nil
}

// LoadFromConfig registers every configured controller and connects those
// marked auto_connect. A failed auto connect is logged, not returned.
func (cs *ControllerService) LoadFromConfig(entries []config.ControllerEntry) error {
	for _, entry := range entries {
		tpl, inst, err := entry.LoadDefinitions()
		if err != nil {
			return fmt.Errorf("failed to load controller: %w", err)
		}
		rt, err := cs.Register(tpl, inst)
		if err != nil {
			return err
		}
		if entry.AutoConnect {
			if err := rt.Connect(); err != nil {
				cs.logger.Warn("Auto connect failed",
					zap.String("instance_id", inst.Info.InstanceID),
					zap.Error(err),
				)
			}
		}
	}
	return nil
}

// Get returns the runtime of an instance
func (cs *ControllerService) Get(instanceID string) (*controller.Runtime, error) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	rt, ok := cs.runtimes[instanceID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrControllerNotFound, instanceID)
	}
	return rt, nil
}

// View returns the read model of one controller
func (cs *ControllerService) View(instanceID string) (ControllerView, error) {
	rt, err := cs.Get(instanceID)
	if err != nil {
		return ControllerView{}, err
	}
	return viewOf(rt), nil
}

// List returns all controllers ordered by instance id
func (cs *ControllerService) List() []ControllerView {
	cs.mu.RLock()
	ids := make([]string, 0, len(cs.runtimes))
	for id := range cs.runtimes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	list := make([]ControllerView, 0, len(ids))
	for _, id := range ids {
		list = append(list, viewOf(cs.runtimes[id]))
	}
	cs.mu.RUnlock()
	return list
}

func viewOf(rt *controller.Runtime) ControllerView {
	inst := rt.Instance()
	inst.Connection.Connected = rt.IsConnected()
	return ControllerView{
		Template:  rt.Template().Info,
		Instance:  inst,
		Connected: inst.Connection.Connected,
		LastTx:    rt.LastTx(),
	}
}

// Connect opens the transport of an instance
func (cs *ControllerService) Connect(instanceID string) error {
	rt, err := cs.Get(instanceID)
	if err != nil {
		return err
	}
	if err := rt.Connect(); err != nil {
		return fmt.Errorf("failed to connect controller: %w", err)
	}
	return nil
}

// Disconnect closes the transport of an instance
func (cs *ControllerService) Disconnect(instanceID string) error {
	rt, err := cs.Get(instanceID)
	if err != nil {
		return err
	}
	rt.Disconnect()
	return nil
}

// ReConnect reopens the transport of an instance with its current config
func (cs *ControllerService) ReConnect(instanceID string) error {
	rt, err := cs.Get(instanceID)
	if err != nil {
		return err
	}
	if err := rt.ReConnect(); err != nil {
		return fmt.Errorf("failed to reconnect controller: %w", err)
	}
	return nil
}

// UpdateConnection validates and stores a new connection config. With
// reconnect the transport is reopened immediately.
func (cs *ControllerService) UpdateConnection(instanceID string, cfg model.ConnectionConfig, reconnect bool) error {
	rt, err := cs.Get(instanceID)
	if err != nil {
		return err
	}
	if err := transport.ValidateConfig(cfg); err != nil {
		return fmt.Errorf("invalid connection config: %w", err)
	}

	rt.UpdateConnectionConfig(cfg)
	cs.logger.Info("Connection config updated",
		zap.String("instance_id", instanceID),
		zap.String("connect_type", string(cfg.ConnectType)),
		zap.Bool("reconnect", reconnect),
	)

	if !reconnect {
		return nil
	}
	if err := rt.ReConnect(); err != nil {
		return fmt.Errorf("failed to reconnect controller: %w", err)
	}
	return nil
}

// SetParam writes a parameter value. With send the built command goes out
// over the transport, otherwise it is only built and returned.
func (cs *ControllerService) SetParam(req model.ParamSetRequest, send bool) (model.ParamSetResult, error) {
	rt, err := cs.Get(req.InstanceID)
	if err != nil {
		return model.ParamSetResult{}, err
	}
	if send {
		return rt.SetParamAndSend(req), nil
	}
	return rt.SetParamAndBuildCommand(req), nil
}

// Remove closes and forgets an instance
func (cs *ControllerService) Remove(instanceID string) error {
	cs.mu.Lock()
	rt, ok := cs.runtimes[instanceID]
	delete(cs.runtimes, instanceID)
	cs.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrControllerNotFound, instanceID)
	}
	return rt.Close()
}

// SocketTargets returns the dest_ip:dest_port of every SOCKET controller
func (cs *ControllerService) SocketTargets() []string {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	var targets []string
	for _, rt := range cs.runtimes {
		conn := rt.Instance().Connection
		if conn.ConnectType != model.ConnectTypeSocket || conn.Socket.DestIP == "" {
			continue
		}
		targets = append(targets, net.JoinHostPort(conn.Socket.DestIP, strconv.Itoa(conn.Socket.DestPort)))
	}
	sort.Strings(targets)
	return targets
}

// Count returns the number of registered controllers
func (cs *ControllerService) Count() int {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return len(cs.runtimes)
}

// ConnectedCount returns the number of controllers with an open transport
func (cs *ControllerService) ConnectedCount() int {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	n := 0
	for _, rt := range cs.runtimes {
		if rt.IsConnected() {
			n++
		}
	}
	return n
}

// Close releases every runtime
func (cs *ControllerService) Close() error {
	cs.mu.Lock()
	runtimes := cs.runtimes
	cs.runtimes = make(map[string]*controller.Runtime)
	cs.mu.Unlock()

	var errs []error
	for id, rt := range runtimes {
		if err := rt.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", id, err))
		}
	}
	cs.logger.Info("Controllers closed", zap.Int("count", len(runtimes)))
	return errors.Join(errs...)
}
