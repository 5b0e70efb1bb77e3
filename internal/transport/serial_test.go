package transport

import (
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"

	"light-controller-service/internal/model"
)

// fakePort behaves like a serial port: reads time out with (0, nil)
type fakePort struct {
	mu       sync.Mutex
	incoming chan []byte
	written  []byte
	timeout  time.Duration
	closed   chan struct{}
	failErr  error
}

func newFakePort() *fakePort {
	return &fakePort{incoming: make(chan []byte, 16), closed: make(chan struct{}), timeout: 10 * time.Millisecond}
}

func (p *fakePort) Read(b []byte) (int, error) {
	p.mu.Lock()
	fail := p.failErr
	p.mu.Unlock()
	if fail != nil {
		return 0, fail
	}
	select {
	case <-p.closed:
		return 0, errors.New("port has been closed")
	case data := <-p.incoming:
		return copy(b, data), nil
	case <-time.After(p.timeout):
		return 0, nil
	}
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.written = append(p.written, b...)
	return len(b), nil
}

func (p *fakePort) Close() error {
	select {
	case <-p.closed:
	default:
		close(p.closed)
	}
	return nil
}

func (p *fakePort) SetReadTimeout(t time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.timeout = t
	return nil
}

func (p *fakePort) writtenBytes() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]byte(nil), p.written...)
}

func (p *fakePort) fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failErr = err
}

func serialConfig() model.ConnectionConfig {
	return model.ConnectionConfig{
		ConnectType: model.ConnectTypeSerial,
		Serial:      model.SerialParams{Port: "COM3", BaudRate: 9600, DataBits: 8, StopBits: 2, Parity: 2},
	}
}

func TestSerialTransport(t *testing.T) {
	port := newFakePort()
	var gotName string
	var gotMode *serial.Mode
	opener := func(name string, mode *serial.Mode) (Port, error) {
		gotName, gotMode = name, mode
		return port, nil
	}

	tr := NewSerialTransport(testOptions(), nil, opener)
	defer tr.Close()
	rec := &recorder{}
	rec.bind(tr)

	require.NoError(t, tr.Connect(serialConfig()))
	assert.True(t, tr.IsConnected())
	assert.Equal(t, "COM3", gotName)
	assert.Equal(t, 9600, gotMode.BaudRate)
	assert.Equal(t, serial.TwoStopBits, gotMode.StopBits)
	assert.Equal(t, serial.EvenParity, gotMode.Parity)

	require.NoError(t, tr.SendBytes([]byte{0x01, 0x06}))
	assert.Equal(t, []byte{0x01, 0x06}, port.writtenBytes())

	port.incoming <- []byte{0x11, 0x22}
	require.Eventually(t, func() bool { return bytes.Equal(rec.received(), []byte{0x11, 0x22}) }, waitFor, tick)
	assert.Equal(t, "COM3", rec.firstPeer())

	port.fail(errors.New("device reset by peer"))
	require.Eventually(t, func() bool { return !tr.IsConnected() }, waitFor, tick)
	require.Eventually(t, func() bool { return len(rec.errorCodes()) > 0 }, waitFor, tick)
	assert.Equal(t, CodeReadFailed, rec.errorCodes()[0])
}

func TestSerialTransportOpenFailure(t *testing.T) {
	opener := func(string, *serial.Mode) (Port, error) {
		return nil, errors.New("no such file or directory")
	}
	tr := NewSerialTransport(testOptions(), nil, opener)
	defer tr.Close()
	rec := &recorder{}
	rec.bind(tr)

	err := tr.Connect(serialConfig())
	require.Error(t, err)
	assert.Equal(t, CodeConnectFailed, CodeOf(err))
	assert.Equal(t, []int{CodeConnectFailed}, rec.errorCodes())
}

func TestSerialMode(t *testing.T) {
	tests := []struct {
		name     string
		params   model.SerialParams
		stopBits serial.StopBits
		parity   serial.Parity
		dataBits int
	}{
		{"defaults", model.SerialParams{BaudRate: 9600}, serial.OneStopBit, serial.NoParity, 8},
		{"two stop bits", model.SerialParams{StopBits: 2, DataBits: 7}, serial.TwoStopBits, serial.NoParity, 7},
		{"odd", model.SerialParams{StopBits: 1, Parity: 1}, serial.OneStopBit, serial.OddParity, 8},
		{"even", model.SerialParams{Parity: 2}, serial.OneStopBit, serial.EvenParity, 8},
		{"unknown parity", model.SerialParams{Parity: 5, StopBits: 3}, serial.OneStopBit, serial.NoParity, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mode := SerialMode(tt.params)
			assert.Equal(t, tt.stopBits, mode.StopBits)
			assert.Equal(t, tt.parity, mode.Parity)
			assert.Equal(t, tt.dataBits, mode.DataBits)
		})
	}
}
