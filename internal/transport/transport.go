// internal/transport/transport.go
package transport

import (
	"sync"
	"time"

	"light-controller-service/internal/model"
)

// State represents the lifecycle state of a transport
type State int32

const (
	StateUnconnected State = iota
	StateConnecting
	StateConnected
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateClosing:
		return "CLOSING"
	default:
		return "UNCONNECTED"
	}
}

// ReceiveFunc gets a private copy of every received chunk
type ReceiveFunc func(peer string, data []byte)

// DisconnectFunc is called with a human-readable reason
type DisconnectFunc func(reason string)

// ErrorFunc is called with a transport error code and message
type ErrorFunc func(code int, message string)

// Transport owns one physical connection and its background reader.
// Callbacks run on the reader goroutine.
type Transport interface {
	Connect(cfg model.ConnectionConfig) error
	Disconnect()
	ReConnect() error
	IsConnected() bool
	State() State
	SendBytes(data []byte) error

	SetOnReceive(fn ReceiveFunc)
	SetOnDisconnected(fn DisconnectFunc)
	SetOnError(fn ErrorFunc)

	// Close disconnects and stops the reader goroutine
	Close() error
}

// Fanout is implemented by transports that send to however many peers are
// attached. The bool is false when the current backend is point-to-point.
type Fanout interface {
	Peers() (int, bool)
}

// TxRecorder remembers the last payload sent successfully
type TxRecorder interface {
	LastTx() []byte
}

// Options tunes the I/O behaviour shared by all backends
type Options struct {
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleBackoff    time.Duration
	ReadBufferSize int
	KeepAlive      bool
}

// DefaultOptions returns the stock timings: 4 KiB reads, 50 ms idle backoff
func DefaultOptions() Options {
	return Options{
		ConnectTimeout: 5 * time.Second,
		ReadTimeout:    200 * time.Millisecond,
		WriteTimeout:   2 * time.Second,
		IdleBackoff:    50 * time.Millisecond,
		ReadBufferSize: 4096,
		KeepAlive:      true,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = def.ConnectTimeout
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = def.ReadTimeout
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = def.WriteTimeout
	}
	if o.IdleBackoff <= 0 {
		o.IdleBackoff = def.IdleBackoff
	}
	if o.ReadBufferSize <= 0 {
		o.ReadBufferSize = def.ReadBufferSize
	}
	return o
}

// callbacks holds the user callbacks of a backend
type callbacks struct {
	mu             sync.RWMutex
	onReceive      ReceiveFunc
	onDisconnected DisconnectFunc
	onError        ErrorFunc
}

func (c *callbacks) SetOnReceive(fn ReceiveFunc) {
	c.mu.Lock()
	c.onReceive = fn
	c.mu.Unlock()
}

func (c *callbacks) SetOnDisconnected(fn DisconnectFunc) {
	c.mu.Lock()
	c.onDisconnected = fn
	c.mu.Unlock()
}

func (c *callbacks) SetOnError(fn ErrorFunc) {
	c.mu.Lock()
	c.onError = fn
	c.mu.Unlock()
}

func (c *callbacks) emitReceive(peer string, data []byte) {
	c.mu.RLock()
	fn := c.onReceive
	c.mu.RUnlock()
	if fn != nil {
		fn(peer, data)
	}
}

func (c *callbacks) emitDisconnected(reason string) {
	c.mu.RLock()
	fn := c.onDisconnected
	c.mu.RUnlock()
	if fn != nil {
		fn(reason)
	}
}

func (c *callbacks) emitError(code int, message string) {
	c.mu.RLock()
	fn := c.onError
	c.mu.RUnlock()
	if fn != nil {
		fn(code, message)
	}
}

// sleepOrDone waits d or until done is closed; it reports false when done fired
func sleepOrDone(done <-chan struct{}, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-done:
		return false
	case <-t.C:
		return true
	}
}
