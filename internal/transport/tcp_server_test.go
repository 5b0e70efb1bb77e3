package transport

import (
	"bytes"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"light-controller-service/internal/model"
)

func serverConfig() model.ConnectionConfig {
	return model.ConnectionConfig{
		ConnectType: model.ConnectTypeSocketServer,
		Socket:      model.SocketParams{IPAddress: "127.0.0.1", Port: 0},
	}
}

func dialServer(t *testing.T, srv *TCPServer) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestTCPServerReceivesFromClients(t *testing.T) {
	srv := NewTCPServer(testOptions(), nil)
	defer srv.Close()
	rec := &recorder{}
	rec.bind(srv)

	require.NoError(t, srv.Connect(serverConfig()))
	assert.True(t, srv.IsConnected())

	conn := dialServer(t, srv)
	_, err := conn.Write([]byte("hello"))
	require.NoError(t, err)

	require.Eventually(t, func() bool { return bytes.Equal(rec.received(), []byte("hello")) }, waitFor, tick)
	assert.Equal(t, "127.0.0.1", rec.firstPeer())
}

func TestTCPServerBroadcastWithoutClients(t *testing.T) {
	srv := NewTCPServer(testOptions(), nil)
	defer srv.Close()
	require.NoError(t, srv.Connect(serverConfig()))

	n, fan := srv.Peers()
	assert.True(t, fan)
	assert.Zero(t, n)
	assert.NoError(t, srv.SendBytes([]byte{0x01}))

	dialServer(t, srv)
	require.Eventually(t, func() bool { n, _ := srv.Peers(); return n == 1 }, waitFor, tick)
}

func TestTCPServerBroadcast(t *testing.T) {
	srv := NewTCPServer(testOptions(), nil)
	defer srv.Close()
	require.NoError(t, srv.Connect(serverConfig()))

	a := dialServer(t, srv)
	b := dialServer(t, srv)
	require.Eventually(t, func() bool { return srv.SessionCount() == 2 }, waitFor, tick)

	require.NoError(t, srv.SendBytes([]byte{0xAA, 0x55}))
	for _, conn := range []net.Conn{a, b} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(waitFor)))
		got := make([]byte, 2)
		_, err := io.ReadFull(conn, got)
		require.NoError(t, err)
		assert.Equal(t, []byte{0xAA, 0x55}, got)
	}
}

func TestTCPServerDropsClosedSession(t *testing.T) {
	srv := NewTCPServer(testOptions(), nil)
	defer srv.Close()
	require.NoError(t, srv.Connect(serverConfig()))

	a := dialServer(t, srv)
	b := dialServer(t, srv)
	require.Eventually(t, func() bool { return srv.SessionCount() == 2 }, waitFor, tick)

	require.NoError(t, a.Close())
	require.Eventually(t, func() bool { return srv.SessionCount() == 1 }, waitFor, tick)

	require.NoError(t, srv.SendBytes([]byte("x")))
	require.NoError(t, b.SetReadDeadline(time.Now().Add(waitFor)))
	got := make([]byte, 1)
	_, err := io.ReadFull(b, got)
	require.NoError(t, err)
	assert.Equal(t, "x", string(got))
}

func TestTCPServerKeepsSessionOnGarbage(t *testing.T) {
	srv := NewTCPServer(testOptions(), nil)
	defer srv.Close()
	require.NoError(t, srv.Connect(serverConfig()))

	conn := dialServer(t, srv)
	_, err := conn.Write([]byte{0xFF, 0x00, 0xFF})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return srv.SessionCount() == 1 }, waitFor, tick)
	require.Never(t, func() bool { return srv.SessionCount() != 1 }, 100*time.Millisecond, tick)
}

func TestTCPServerDisconnect(t *testing.T) {
	srv := NewTCPServer(testOptions(), nil)
	defer srv.Close()

	err := srv.SendBytes([]byte{0x01})
	assert.ErrorIs(t, err, ErrNotConnected)

	require.NoError(t, srv.Connect(serverConfig()))
	conn := dialServer(t, srv)
	require.Eventually(t, func() bool { return srv.SessionCount() == 1 }, waitFor, tick)

	srv.Disconnect()
	assert.False(t, srv.IsConnected())
	assert.Equal(t, 0, srv.SessionCount())
	assert.Nil(t, srv.Addr())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(waitFor)))
	_, err = conn.Read(make([]byte, 1))
	assert.Error(t, err)

	require.NoError(t, srv.ReConnect())
	assert.True(t, srv.IsConnected())
}

func TestTCPServerListenFailure(t *testing.T) {
	ln, port := listenLoopback(t)
	defer ln.Close()

	srv := NewTCPServer(testOptions(), nil)
	defer srv.Close()
	rec := &recorder{}
	rec.bind(srv)

	cfg := serverConfig()
	cfg.Socket.Port = port
	err := srv.Connect(cfg)
	require.Error(t, err)
	assert.Equal(t, CodeConnectFailed, CodeOf(err))
	assert.Equal(t, []int{CodeConnectFailed}, rec.errorCodes())
}
