package controller

import (
	"errors"
	"sync"

	"light-controller-service/internal/model"
	"light-controller-service/internal/transport"
)

// fakeTransport counts calls and lets tests inject callbacks
type fakeTransport struct {
	mu         sync.Mutex
	connected  bool
	connectErr error
	sendErr    error
	sendCalls  int
	sent       [][]byte
	lastCfg    model.ConnectionConfig
	onReceive  transport.ReceiveFunc
	onDisc     transport.DisconnectFunc
	onError    transport.ErrorFunc
	closeCalls int

	// fanout makes the fake report peers like a TCP server
	fanout bool
	peers  int
}

func (f *fakeTransport) Connect(cfg model.ConnectionConfig) error {
	f.mu.Lock()
	f.lastCfg = cfg
	err := f.connectErr
	f.connected = err == nil
	onError := f.onError
	f.mu.Unlock()
	if err != nil && onError != nil {
		onError(transport.CodeConnectFailed, err.Error())
	}
	return err
}

func (f *fakeTransport) Disconnect() {
	f.mu.Lock()
	was := f.connected
	f.connected = false
	onDisc := f.onDisc
	f.mu.Unlock()
	if was && onDisc != nil {
		onDisc("manual disconnect")
	}
}

func (f *fakeTransport) ReConnect() error {
	f.Disconnect()
	return f.Connect(f.lastCfg)
}

func (f *fakeTransport) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeTransport) State() transport.State {
	if f.IsConnected() {
		return transport.StateConnected
	}
	return transport.StateUnconnected
}

func (f *fakeTransport) SendBytes(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendCalls++
	if f.sendErr != nil {
		return f.sendErr
	}
	if !f.connected {
		return errors.New("not connected")
	}
	f.sent = append(f.sent, append([]byte(nil), data...))
	return nil
}

func (f *fakeTransport) SetOnReceive(fn transport.ReceiveFunc) {
	f.mu.Lock()
	f.onReceive = fn
	f.mu.Unlock()
}

func (f *fakeTransport) SetOnDisconnected(fn transport.DisconnectFunc) {
	f.mu.Lock()
	f.onDisc = fn
	f.mu.Unlock()
}

func (f *fakeTransport) SetOnError(fn transport.ErrorFunc) {
	f.mu.Lock()
	f.onError = fn
	f.mu.Unlock()
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	f.closeCalls++
	f.connected = false
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) Peers() (int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.peers, f.fanout
}

func (f *fakeTransport) LastTx() []byte {
	return f.lastSent()
}

func (f *fakeTransport) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sendCalls
}

func (f *fakeTransport) lastSent() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return nil
	}
	return f.sent[len(f.sent)-1]
}

// receive simulates bytes arriving from the device
func (f *fakeTransport) receive(data []byte) {
	f.mu.Lock()
	fn := f.onReceive
	f.mu.Unlock()
	fn("fake", data)
}

// fail simulates a transport error callback
func (f *fakeTransport) fail(code int, msg string) {
	f.mu.Lock()
	f.connected = false
	fn := f.onError
	f.mu.Unlock()
	fn(code, msg)
}
