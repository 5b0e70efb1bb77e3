// internal/transport/link.go
package transport

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"light-controller-service/internal/model"
)

// Link binds callbacks to whichever backend the current config selects. The
// backend is recreated when the connect type changes; callbacks survive the swap.
type Link struct {
	callbacks

	factory *Factory
	logger  *zap.Logger

	lifecycle sync.Mutex

	mu          sync.RWMutex
	backend     Transport
	backendType model.ConnectType
	cfg         model.ConnectionConfig
	hasCfg      bool
	lastTx      []byte
}

// NewLink creates an unbound link
func NewLink(factory *Factory, logger *zap.Logger) *Link {
	if logger == nil {
		logger = zap.NewNop()
	}
	if factory == nil {
		factory = NewFactory(DefaultOptions(), logger)
	}
	return &Link{
		factory: factory,
		logger:  logger.With(zap.String("component", "transport-link")),
	}
}

// Connect validates cfg, swaps the backend if needed and connects it
func (l *Link) Connect(cfg model.ConnectionConfig) error {
	l.lifecycle.Lock()
	defer l.lifecycle.Unlock()
	return l.connectLocked(cfg)
}

func (l *Link) connectLocked(cfg model.ConnectionConfig) error {
	if err := ValidateConfig(cfg); err != nil {
		code := CodeInvalidConfig
		if errors.Is(err, ErrUnknownConnectType) {
			code = CodeUnknownConnectType
		}
		l.emitError(code, err.Error())
		return newError(code, "connect", err)
	}
	cfg = normalize(cfg)

	backend, err := l.ensureBackend(cfg.ConnectType)
	if err != nil {
		l.emitError(CodeOf(err), err.Error())
		return err
	}

	l.mu.Lock()
	l.cfg = cfg
	l.hasCfg = true
	l.mu.Unlock()

	// the backend reports its own failure through OnError
	return backend.Connect(cfg)
}

func (l *Link) ensureBackend(ct model.ConnectType) (Transport, error) {
	l.mu.Lock()
	old := l.backend
	if old != nil && l.backendType == ct {
		l.mu.Unlock()
		return old, nil
	}
	l.backend = nil
	l.mu.Unlock()

	if old != nil {
		l.logger.Info("Replacing transport backend", zap.String("connect_type", string(ct)))
		_ = old.Close()
	}

	backend, err := l.factory.Create(ct)
	if err != nil {
		return nil, err
	}
	if backend == nil {
		return nil, newError(CodeCreateFailed, "create transport", ErrNoBackend)
	}
	backend.SetOnReceive(l.emitReceive)
	backend.SetOnError(l.emitError)
	backend.SetOnDisconnected(l.emitDisconnected)

	l.mu.Lock()
	l.backend = backend
	l.backendType = ct
	l.mu.Unlock()
	return backend, nil
}

func (l *Link) current() Transport {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.backend
}

// Disconnect closes the connection and reports a manual disconnect if one was open
func (l *Link) Disconnect() {
	l.lifecycle.Lock()
	defer l.lifecycle.Unlock()
	l.disconnectLocked()
}

func (l *Link) disconnectLocked() {
	backend := l.current()
	if backend == nil {
		return
	}
	was := backend.IsConnected()
	backend.Disconnect()
	if was {
		l.emitDisconnected("manual disconnect")
	}
}

// ReConnect disconnects and connects again with the last config
func (l *Link) ReConnect() error {
	l.lifecycle.Lock()
	defer l.lifecycle.Unlock()

	l.mu.RLock()
	cfg, ok := l.cfg, l.hasCfg
	l.mu.RUnlock()
	if !ok {
		return newError(CodeInvalidConfig, "reconnect", ErrInvalidConfig)
	}
	l.disconnectLocked()
	return l.connectLocked(cfg)
}

func (l *Link) IsConnected() bool {
	backend := l.current()
	return backend != nil && backend.IsConnected()
}

func (l *Link) State() State {
	backend := l.current()
	if backend == nil {
		return StateUnconnected
	}
	return backend.State()
}

// Config returns the last config passed to Connect
func (l *Link) Config() (model.ConnectionConfig, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cfg, l.hasCfg
}

// SendBytes writes through the backend and remembers the payload
func (l *Link) SendBytes(data []byte) error {
	if len(data) == 0 {
		err := newError(CodeEmptyPayload, "send", ErrEmptyPayload)
		l.emitError(err.Code, err.Error())
		return err
	}
	backend := l.current()
	if backend == nil {
		err := newError(CodeNoBackend, "send", ErrNoBackend)
		l.emitError(err.Code, err.Error())
		return err
	}
	if !backend.IsConnected() {
		err := newError(CodeNotConnected, "send", ErrNotConnected)
		l.emitError(err.Code, err.Error())
		return err
	}

	if err := backend.SendBytes(data); err != nil {
		return err
	}

	l.mu.Lock()
	l.lastTx = append(l.lastTx[:0], data...)
	l.mu.Unlock()
	return nil
}

// LastTx returns a copy of the last payload sent successfully
func (l *Link) LastTx() []byte {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.lastTx == nil {
		return nil
	}
	return append([]byte(nil), l.lastTx...)
}

// Peers delegates to the current backend when it fans out
func (l *Link) Peers() (int, bool) {
	l.mu.RLock()
	backend := l.backend
	l.mu.RUnlock()
	if f, ok := backend.(Fanout); ok {
		return f.Peers()
	}
	return 0, false
}

// Close releases the backend
func (l *Link) Close() error {
	l.lifecycle.Lock()
	defer l.lifecycle.Unlock()

	l.disconnectLocked()

	l.mu.Lock()
	backend := l.backend
	l.backend = nil
	l.mu.Unlock()
	if backend != nil {
		return backend.Close()
	}
	return nil
}
