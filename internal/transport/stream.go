// internal/transport/stream.go
package transport

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"light-controller-service/internal/model"
)

// endpoint is an open byte stream: a TCP connection or a serial port
type endpoint interface {
	io.ReadWriteCloser
}

// dialFunc opens an endpoint for cfg and names the peer reported to OnReceive
type dialFunc func(cfg model.ConnectionConfig) (endpoint, string, error)

// streamTransport implements the point-to-point backends. One reader goroutine
// is started on the first successful connect and lives until Close; while
// disconnected it idles in IdleBackoff steps.
type streamTransport struct {
	callbacks

	kind   string
	opts   Options
	logger *zap.Logger
	dial   dialFunc

	// armRead / armWrite set per-call deadlines where the endpoint supports them
	armRead  func(ep endpoint)
	armWrite func(ep endpoint)

	lifecycle sync.Mutex

	mu     sync.RWMutex
	ep     endpoint
	peer   string
	cfg    model.ConnectionConfig
	hasCfg bool

	writeMu   sync.Mutex
	connected atomic.Bool
	state     atomic.Int32

	readerOnce sync.Once
	done       chan struct{}
	closeOnce  sync.Once
	closed     atomic.Bool
	wg         sync.WaitGroup
}

func newStreamTransport(kind string, opts Options, logger *zap.Logger, dial dialFunc) *streamTransport {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &streamTransport{
		kind:     kind,
		opts:     opts.withDefaults(),
		logger:   logger.With(zap.String("transport", kind)),
		dial:     dial,
		armRead:  func(endpoint) {},
		armWrite: func(endpoint) {},
		done:     make(chan struct{}),
	}
}

// Connect drops any existing connection and opens a new one
func (s *streamTransport) Connect(cfg model.ConnectionConfig) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	return s.connectLocked(cfg)
}

func (s *streamTransport) connectLocked(cfg model.ConnectionConfig) error {
	if s.closed.Load() {
		return newError(CodeConnectFailed, s.kind+" connect", ErrClosed)
	}

	s.disconnectLocked()

	s.mu.Lock()
	s.cfg = cfg
	s.hasCfg = true
	s.mu.Unlock()

	s.setState(StateConnecting)
	ep, peer, err := s.dial(cfg)
	if err != nil {
		s.setState(StateUnconnected)
		msg := fmt.Sprintf("%s connect failed: %v", s.kind, err)
		s.logger.Error("Connect failed", zap.Error(err))
		s.emitError(CodeConnectFailed, msg)
		return newError(CodeConnectFailed, s.kind+" connect", err)
	}

	s.mu.Lock()
	s.ep = ep
	s.peer = peer
	s.mu.Unlock()
	s.connected.Store(true)
	s.setState(StateConnected)

	s.readerOnce.Do(func() {
		s.wg.Add(1)
		go s.readLoop()
	})

	s.logger.Info("Connected", zap.String("peer", peer))
	return nil
}

// Disconnect closes the endpoint. Errors raised by the reader afterwards are suppressed.
func (s *streamTransport) Disconnect() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	s.disconnectLocked()
}

func (s *streamTransport) disconnectLocked() {
	s.connected.Store(false)

	s.mu.Lock()
	ep := s.ep
	s.ep = nil
	s.mu.Unlock()

	if ep != nil {
		if err := ep.Close(); err != nil {
			s.logger.Debug("Close endpoint", zap.Error(err))
		}
		s.logger.Info("Disconnected")
	}
	if !s.closed.Load() {
		s.setState(StateUnconnected)
	}
}

// ReConnect reconnects with the last config passed to Connect
func (s *streamTransport) ReConnect() error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.RLock()
	cfg, ok := s.cfg, s.hasCfg
	s.mu.RUnlock()
	if !ok {
		return newError(CodeInvalidConfig, s.kind+" reconnect", ErrInvalidConfig)
	}
	return s.connectLocked(cfg)
}

// IsConnected requires both the logical flag and an open endpoint
func (s *streamTransport) IsConnected() bool {
	if !s.connected.Load() {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ep != nil
}

func (s *streamTransport) State() State {
	return State(s.state.Load())
}

func (s *streamTransport) setState(st State) {
	s.state.Store(int32(st))
}

// SendBytes performs one synchronous write. A failed write marks the link down.
func (s *streamTransport) SendBytes(data []byte) error {
	if len(data) == 0 {
		return newError(CodeEmptyPayload, s.kind+" write", ErrEmptyPayload)
	}

	s.mu.RLock()
	ep := s.ep
	s.mu.RUnlock()
	if ep == nil || !s.connected.Load() {
		return newError(CodeNotConnected, s.kind+" write", ErrNotConnected)
	}

	s.writeMu.Lock()
	s.armWrite(ep)
	_, err := ep.Write(data)
	s.writeMu.Unlock()

	if err != nil {
		s.connected.Store(false)
		s.setState(StateUnconnected)
		s.logger.Error("Write failed", zap.Error(err))
		s.emitError(CodeWriteFailed, fmt.Sprintf("%s write failed: %v", s.kind, err))
		return newError(CodeWriteFailed, s.kind+" write", err)
	}

	s.logger.Debug("Write completed", zap.Int("bytes", len(data)))
	return nil
}

// Close stops the reader goroutine and waits for it
func (s *streamTransport) Close() error {
	s.closeOnce.Do(func() {
		s.lifecycle.Lock()
		s.closed.Store(true)
		s.setState(StateClosing)
		s.disconnectLocked()
		close(s.done)
		s.lifecycle.Unlock()

		s.wg.Wait()
		s.setState(StateUnconnected)
	})
	return nil
}

func (s *streamTransport) current() (endpoint, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ep, s.peer
}

func (s *streamTransport) readLoop() {
	defer s.wg.Done()

	buf := make([]byte, s.opts.ReadBufferSize)
	for {
		select {
		case <-s.done:
			return
		default:
		}

		ep, peer := s.current()
		if ep == nil || !s.connected.Load() {
			if !sleepOrDone(s.done, s.opts.IdleBackoff) {
				return
			}
			continue
		}

		s.armRead(ep)
		n, err := ep.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			s.emitReceive(peer, chunk)
		}
		if err == nil || isTimeout(err) {
			continue
		}

		// Disconnect or Close swapped the endpoint out; not a fault
		if cur, _ := s.current(); cur != ep || !s.connected.Load() {
			continue
		}

		s.connected.Store(false)
		s.setState(StateUnconnected)
		s.logger.Warn("Read failed", zap.Error(err))
		s.emitError(CodeReadFailed, fmt.Sprintf("%s read failed: %v", s.kind, err))
		if !sleepOrDone(s.done, s.opts.IdleBackoff) {
			return
		}
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
