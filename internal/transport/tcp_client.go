// internal/transport/tcp_client.go
package transport

import (
	"net"
	"strconv"
	"time"

	"go.uber.org/zap"

	"light-controller-service/internal/model"
)

// TCPClient dials socket.dest_ip:socket.dest_port
type TCPClient struct {
	*streamTransport
}

// NewTCPClient creates a TCP client backend
func NewTCPClient(opts Options, logger *zap.Logger) *TCPClient {
	c := &TCPClient{}
	c.streamTransport = newStreamTransport("TCP", opts, logger, c.dial)
	c.armRead = func(ep endpoint) {
		if conn, ok := ep.(net.Conn); ok {
			_ = conn.SetReadDeadline(time.Now().Add(c.opts.ReadTimeout))
		}
	}
	c.armWrite = func(ep endpoint) {
		if conn, ok := ep.(net.Conn); ok {
			_ = conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
		}
	}
	return c
}

func (c *TCPClient) dial(cfg model.ConnectionConfig) (endpoint, string, error) {
	host := cfg.Socket.DestIP
	if host == "" {
		host = "127.0.0.1"
	}
	address := net.JoinHostPort(host, strconv.Itoa(cfg.Socket.DestPort))

	dialer := &net.Dialer{Timeout: c.opts.ConnectTimeout}
	if c.opts.KeepAlive {
		dialer.KeepAlive = 30 * time.Second
	} else {
		dialer.KeepAlive = -1
	}

	c.logger.Info("Opening TCP connection", zap.String("address", address))
	conn, err := dialer.Dial("tcp", address)
	if err != nil {
		return nil, "", err
	}
	return conn, host, nil
}
