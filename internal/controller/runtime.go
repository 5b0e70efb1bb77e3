// internal/controller/runtime.go
package controller

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"light-controller-service/internal/eventbus"
	"light-controller-service/internal/framing"
	"light-controller-service/internal/model"
	"light-controller-service/internal/protocol"
	"light-controller-service/internal/transport"
	"light-controller-service/internal/utils"
)

// Result messages
const (
	MessageOK           = "OK"
	MessageSent         = "OK (sent)"
	MessageNoClients    = "OK (no clients)"
	MessageNotConnected = "Not connected"
)

// CodeFramingError is the INSTANCE_ERROR code for corrupt received frames
const CodeFramingError = 4001

var (
	ErrParamNotFound    = errors.New("parameter not found in template")
	ErrLocationMismatch = errors.New("location mismatch")
	ErrLocationUnknown  = errors.New("parameter location unknown")
	ErrChannelRequired  = errors.New("channel_id is required for CHANNEL location")
	ErrChannelNotFound  = errors.New("channel not found in instance")
	ErrNoDeviceAddress  = errors.New("byte_transmission_params.device_address is empty")
	ErrNoTransport      = errors.New("transport could not be created")
)

// Dependencies are shared collaborators of a runtime. Zero fields get defaults.
type Dependencies struct {
	Factory      *protocol.Factory
	Wrapper      *framing.Wrapper
	Bus          *eventbus.Bus
	NewTransport func() transport.Transport
	Logger       *zap.Logger
}

// Runtime drives one controller instance: it validates parameter writes, keeps
// the instance values, builds and frames commands, and republishes transport
// activity as events.
type Runtime struct {
	tpl     model.TemplateDef
	factory *protocol.Factory
	wrapper *framing.Wrapper
	bus     *eventbus.Bus
	newTr   func() transport.Transport
	logger  *utils.ControllerLogger

	// lifecycle serialises Connect, Disconnect, ReConnect and Close
	lifecycle sync.Mutex

	mu      sync.RWMutex
	inst    model.InstanceState
	tr      transport.Transport
	cbBound bool

	// parser reassembles received BYTE frames
	parser *framing.Parser
}

// New binds a template and an instance
func New(tpl model.TemplateDef, inst model.InstanceState, deps Dependencies) *Runtime {
	base := deps.Logger
	if base == nil {
		base = zap.NewNop()
	}
	if deps.Factory == nil {
		deps.Factory = protocol.NewFactory(base)
	}
	if deps.Wrapper == nil {
		deps.Wrapper = framing.NewWrapper(false)
	}
	if deps.Bus == nil {
		deps.Bus = eventbus.New(base)
	}
	if deps.NewTransport == nil {
		deps.NewTransport = func() transport.Transport {
			return transport.NewLink(transport.NewFactory(transport.DefaultOptions(), base), base)
		}
	}

	inst = inst.Clone()
	if inst.Info.TemplateID == "" {
		inst.Info.TemplateID = tpl.Info.TemplateID
	}
	inst.Connection.Connected = false

	return &Runtime{
		tpl:     tpl,
		factory: deps.Factory,
		wrapper: deps.Wrapper,
		bus:     deps.Bus,
		newTr:   deps.NewTransport,
		logger:  utils.NewControllerLogger(base, inst.Info.InstanceID, tpl.Info.TemplateID),
		inst:    inst,
		parser:  framing.NewParser(),
	}
}

// InstanceID returns the bound instance id
func (r *Runtime) InstanceID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.inst.Info.InstanceID
}

// Template returns the bound template
func (r *Runtime) Template() model.TemplateDef {
	return r.tpl
}

// Instance returns a snapshot of the instance state
func (r *Runtime) Instance() model.InstanceState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.inst.Clone()
}

// Bus returns the bus events are published on
func (r *Runtime) Bus() *eventbus.Bus {
	return r.bus
}

// Connect opens the transport with the instance connection config
func (r *Runtime) Connect() error {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()
	return r.connectLocked()
}

func (r *Runtime) connectLocked() error {
	id := r.InstanceID()
	r.bus.Publish(model.NewConnectEvent(model.EventInstanceConnecting, id, "connecting..."))

	tr, err := r.ensureTransport()
	if err != nil {
		r.logger.LogConnection("connect", false, err)
		r.bus.Publish(model.NewConnectEvent(model.EventInstanceConnectFailed, id, err.Error()))
		return err
	}

	r.mu.RLock()
	cfg := r.inst.Connection
	r.mu.RUnlock()

	if err := tr.Connect(cfg); err != nil {
		r.logger.LogConnection("connect", false, err)
		r.bus.Publish(model.NewConnectEvent(model.EventInstanceConnectFailed, id, err.Error()))
		return fmt.Errorf("connect %s: %w", id, err)
	}

	r.parser.Reset()
	r.setConnected(true)
	r.logger.LogConnection("connect", true, nil)
	r.bus.Publish(model.NewConnectEvent(model.EventInstanceConnected, id, "connected"))
	return nil
}

// ensureTransport creates the transport on first use and binds its callbacks once
func (r *Runtime) ensureTransport() (transport.Transport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.tr == nil {
		r.tr = r.newTr()
		if r.tr == nil {
			return nil, ErrNoTransport
		}
	}
	if !r.cbBound {
		r.tr.SetOnReceive(r.handleReceive)
		r.tr.SetOnDisconnected(r.handleDisconnected)
		r.tr.SetOnError(r.handleError)
		r.cbBound = true
	}
	return r.tr, nil
}

func (r *Runtime) currentTransport() transport.Transport {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tr
}

// Disconnect closes the transport. Without a transport a DISCONNECTED event is
// published directly.
func (r *Runtime) Disconnect() {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()
	r.disconnectLocked()
}

func (r *Runtime) disconnectLocked() {
	tr := r.currentTransport()
	if tr == nil {
		r.setConnected(false)
		r.bus.Publish(model.NewConnectEvent(model.EventInstanceDisconnected, r.InstanceID(), "disconnected (no transport)"))
		return
	}
	tr.Disconnect()
	r.setConnected(false)
	r.logger.LogConnection("disconnect", true, nil)
}

// ReConnect disconnects and connects again with the current config
func (r *Runtime) ReConnect() error {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()

	if tr := r.currentTransport(); tr != nil {
		tr.Disconnect()
		r.setConnected(false)
	}
	return r.connectLocked()
}

// UpdateConnectionConfig replaces the connection config used by the next Connect
func (r *Runtime) UpdateConnectionConfig(cfg model.ConnectionConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg.Connected = r.inst.Connection.Connected
	r.inst.Connection = cfg
}

// LastTx returns the printable form of the last payload the transport sent,
// or "" when nothing was sent or the transport does not record it
func (r *Runtime) LastTx() string {
	rec, ok := r.currentTransport().(transport.TxRecorder)
	if !ok {
		return ""
	}
	last := rec.LastTx()
	if len(last) == 0 {
		return ""
	}
	return formatHex(last)
}

// IsConnected reports the transport state
func (r *Runtime) IsConnected() bool {
	tr := r.currentTransport()
	return tr != nil && tr.IsConnected()
}

// Close disconnects and releases the transport
func (r *Runtime) Close() error {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()

	r.mu.Lock()
	tr := r.tr
	r.tr = nil
	r.cbBound = false
	r.mu.Unlock()

	r.setConnected(false)
	if tr == nil {
		return nil
	}
	return tr.Close()
}

func (r *Runtime) setConnected(v bool) {
	r.mu.Lock()
	r.inst.Connection.Connected = v
	r.mu.Unlock()
}

func (r *Runtime) markedConnected() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.inst.Connection.Connected
}
