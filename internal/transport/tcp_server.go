// internal/transport/tcp_server.go
package transport

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"light-controller-service/internal/model"
)

// session is one accepted client
type session struct {
	id      uint64
	conn    net.Conn
	peer    string
	writeMu sync.Mutex
}

// TCPServer listens on socket.ip_address:socket.port and broadcasts writes to
// every accepted client. Clients are kept until their own read fails; malformed
// application data never closes a session.
type TCPServer struct {
	callbacks

	opts   Options
	logger *zap.Logger

	lifecycle sync.Mutex

	mu       sync.Mutex
	listener net.Listener
	sessions map[uint64]*session
	nextID   uint64
	cfg      model.ConnectionConfig
	hasCfg   bool
	wg       sync.WaitGroup

	state atomic.Int32
}

// NewTCPServer creates a TCP server backend
func NewTCPServer(opts Options, logger *zap.Logger) *TCPServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TCPServer{
		opts:     opts.withDefaults(),
		logger:   logger.With(zap.String("transport", "TCPServer")),
		sessions: make(map[uint64]*session),
	}
}

// Connect starts listening. Any previous listener and its sessions are closed first.
func (s *TCPServer) Connect(cfg model.ConnectionConfig) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	return s.connectLocked(cfg)
}

func (s *TCPServer) connectLocked(cfg model.ConnectionConfig) error {
	s.stopLocked()

	s.mu.Lock()
	s.cfg = cfg
	s.hasCfg = true
	s.mu.Unlock()

	s.state.Store(int32(StateConnecting))
	host := cfg.Socket.IPAddress
	if host == "0.0.0.0" {
		host = ""
	}
	address := net.JoinHostPort(host, strconv.Itoa(cfg.Socket.Port))

	ln, err := net.Listen("tcp", address)
	if err != nil {
		s.state.Store(int32(StateUnconnected))
		s.logger.Error("Listen failed", zap.String("address", address), zap.Error(err))
		s.emitError(CodeConnectFailed, fmt.Sprintf("TCP server listen failed: %v", err))
		return newError(CodeConnectFailed, "tcp listen", err)
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	s.state.Store(int32(StateConnected))

	s.wg.Add(1)
	go s.acceptLoop(ln)

	s.logger.Info("TCP server listening", zap.String("address", ln.Addr().String()))
	return nil
}

// Addr returns the bound listen address, or nil when not listening
func (s *TCPServer) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Disconnect closes the listener and all sessions
func (s *TCPServer) Disconnect() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	s.stopLocked()
}

func (s *TCPServer) stopLocked() {
	s.mu.Lock()
	ln := s.listener
	s.listener = nil
	sessions := s.sessions
	s.sessions = make(map[uint64]*session)
	s.mu.Unlock()

	if ln == nil && len(sessions) == 0 {
		return
	}
	s.state.Store(int32(StateClosing))
	if ln != nil {
		_ = ln.Close()
	}
	for _, sess := range sessions {
		_ = sess.conn.Close()
	}
	s.wg.Wait()
	s.state.Store(int32(StateUnconnected))
	s.logger.Info("TCP server stopped")
}

// ReConnect restarts the listener with the last config
func (s *TCPServer) ReConnect() error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	cfg, ok := s.cfg, s.hasCfg
	s.mu.Unlock()
	if !ok {
		return newError(CodeInvalidConfig, "tcp server reconnect", ErrInvalidConfig)
	}
	return s.connectLocked(cfg)
}

// IsConnected reports whether the server is listening
func (s *TCPServer) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listener != nil
}

func (s *TCPServer) State() State {
	return State(s.state.Load())
}

// SessionCount returns the number of live client sessions
func (s *TCPServer) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Peers reports the session count; a server always fans out
func (s *TCPServer) Peers() (int, bool) {
	return s.SessionCount(), true
}

// SendBytes writes data to every session. A failing session does not stop the
// broadcast; an error is returned only when no session accepted the data.
func (s *TCPServer) SendBytes(data []byte) error {
	if len(data) == 0 {
		return newError(CodeEmptyPayload, "tcp broadcast", ErrEmptyPayload)
	}

	s.mu.Lock()
	if s.listener == nil {
		s.mu.Unlock()
		return newError(CodeNotConnected, "tcp broadcast", ErrNotConnected)
	}
	targets := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		targets = append(targets, sess)
	}
	s.mu.Unlock()

	if len(targets) == 0 {
		s.logger.Debug("Broadcast with no clients", zap.Int("bytes", len(data)))
		return nil
	}

	var errs []error
	for _, sess := range targets {
		sess.writeMu.Lock()
		_ = sess.conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
		_, err := sess.conn.Write(data)
		sess.writeMu.Unlock()
		if err != nil {
			s.logger.Warn("Session write failed", zap.Uint64("session", sess.id), zap.String("peer", sess.peer), zap.Error(err))
			s.emitError(CodeWriteFailed, fmt.Sprintf("TCP server write to %s failed: %v", sess.peer, err))
			errs = append(errs, err)
		}
	}
	if len(errs) == len(targets) {
		return newError(CodeWriteFailed, "tcp broadcast", errors.Join(errs...))
	}
	return nil
}

// Close stops listening and waits for all goroutines
func (s *TCPServer) Close() error {
	s.Disconnect()
	return nil
}

func (s *TCPServer) acceptLoop(ln net.Listener) {
	defer s.wg.Done()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn("Accept failed", zap.Error(err))
			s.emitError(CodeAcceptFailed, fmt.Sprintf("TCP server accept failed: %v", err))
			time.Sleep(s.opts.IdleBackoff)
			continue
		}

		peer := conn.RemoteAddr().String()
		if host, _, splitErr := net.SplitHostPort(peer); splitErr == nil {
			peer = host
		}

		s.mu.Lock()
		if s.listener != ln {
			s.mu.Unlock()
			_ = conn.Close()
			return
		}
		s.nextID++
		sess := &session{id: s.nextID, conn: conn, peer: peer}
		s.sessions[sess.id] = sess
		s.wg.Add(1)
		s.mu.Unlock()

		s.logger.Info("Client connected", zap.Uint64("session", sess.id), zap.String("peer", peer))
		go s.readSession(sess)
	}
}

// readSession keeps one read pending per client until the read fails
func (s *TCPServer) readSession(sess *session) {
	defer s.wg.Done()

	buf := make([]byte, s.opts.ReadBufferSize)
	for {
		n, err := sess.conn.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			s.emitReceive(sess.peer, chunk)
		}
		if err != nil {
			s.mu.Lock()
			_, live := s.sessions[sess.id]
			delete(s.sessions, sess.id)
			s.mu.Unlock()
			_ = sess.conn.Close()
			if live {
				s.logger.Info("Client disconnected", zap.Uint64("session", sess.id), zap.String("peer", sess.peer), zap.Error(err))
			}
			return
		}
	}
}
