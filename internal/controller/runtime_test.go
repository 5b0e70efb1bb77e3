package controller

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"light-controller-service/internal/eventbus"
	"light-controller-service/internal/model"
	"light-controller-service/internal/transport"
)

func stringTemplate() model.TemplateDef {
	return model.TemplateDef{
		Info: model.TemplateInfo{
			TemplateID:   "ascii-4ch",
			ChannelMax:   4,
			ProtocolType: model.ProtocolTypeString,
		},
		Params: map[string]model.ParamDef{
			"brightness": {
				Key:      "brightness",
				Location: model.ParamLocationChannel,
				Command: model.CommandRule{
					Commit:      model.CommitSaveAndSend,
					CmdTemplate: "S<ch><val>#",
					Placeholders: map[string]model.PlaceholderRule{
						"ch":  {Source: "channel_num", ParserTool: "NumberToUpperAlpha", ExtraParam: []string{"true"}},
						"val": {Source: "param_value", ParserTool: "NumberToFixedDec", ExtraParam: []string{"4"}},
					},
				},
			},
			"mode": {
				Key:      "mode",
				Location: model.ParamLocationGlobal,
				Command:  model.CommandRule{Commit: model.CommitSaveOnly, CmdTemplate: "M<val>"},
			},
			"broken": {
				Key:      "broken",
				Location: model.ParamLocationGlobal,
				Command:  model.CommandRule{Commit: model.CommitSendOnly, CmdTemplate: "B<missing>"},
			},
		},
	}
}

func byteTemplate() model.TemplateDef {
	return model.TemplateDef{
		Info: model.TemplateInfo{
			TemplateID:   "rtu-4ch",
			ChannelMax:   4,
			ProtocolType: model.ProtocolTypeByte,
			ByteParams: model.ByteTransmissionParams{
				HeaderType:    model.HeaderEmpty,
				TailType:      model.TailCRC16Modbus,
				DeviceAddress: "01",
			},
		},
		Params: map[string]model.ParamDef{
			"brightness": {
				Key:      "brightness",
				Location: model.ParamLocationChannel,
				Command: model.CommandRule{
					Commit:      model.CommitSendOnly,
					CmdTemplate: "06 <reg> <val>",
					Placeholders: map[string]model.PlaceholderRule{
						"reg": {Source: "channel_index", Endian: true, ParserTool: "ByteConversion", ExtraParam: []string{"2", "0x0001", "0"}},
						"val": {Source: "param_value", Endian: true, ParserTool: "ByteConversion", ExtraParam: []string{"2", "0", "0"}},
					},
				},
			},
		},
	}
}

func testInstance() model.InstanceState {
	return model.InstanceState{
		Info: model.InstanceInfo{InstanceID: "lamp-1"},
		Connection: model.ConnectionConfig{
			ConnectType: model.ConnectTypeSocket,
			Socket:      model.SocketParams{DestIP: "10.0.0.20", DestPort: 8000},
		},
		Channels: []model.ChannelItem{
			{ChannelID: "ch1", Index: 0},
			{ChannelID: "ch2", Index: 1},
		},
	}
}

type eventLog struct {
	mu     sync.Mutex
	events []model.Event
}

func (l *eventLog) handle(e model.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) types() []model.EventType {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]model.EventType, 0, len(l.events))
	for _, e := range l.events {
		out = append(out, e.Type)
	}
	return out
}

func (l *eventLog) ofType(t model.EventType) []model.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []model.Event
	for _, e := range l.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func (l *eventLog) reset() {
	l.mu.Lock()
	l.events = nil
	l.mu.Unlock()
}

func newTestRuntime(t *testing.T, tpl model.TemplateDef) (*Runtime, *fakeTransport, *eventLog) {
	t.Helper()
	fake := &fakeTransport{}
	bus := eventbus.New(nil)
	log := &eventLog{}
	sub := bus.Subscribe(log.handle)
	t.Cleanup(sub.Unsubscribe)

	rt := New(tpl, testInstance(), Dependencies{
		Bus:          bus,
		NewTransport: func() transport.Transport { return fake },
	})
	t.Cleanup(func() { _ = rt.Close() })
	return rt, fake, log
}

func TestSaveOnlyNeverSends(t *testing.T) {
	rt, fake, _ := newTestRuntime(t, stringTemplate())
	require.NoError(t, rt.Connect())

	res := rt.SetParamAndSend(model.ParamSetRequest{ParamKey: "mode", Value: "auto"})
	assert.True(t, res.OK)
	assert.Equal(t, MessageOK, res.Message)
	assert.Empty(t, res.CommandOut)
	assert.Equal(t, 0, fake.calls())
	assert.Equal(t, "auto", rt.Instance().GlobalValues["mode"])
}

func TestChannelValidationBeforeWrite(t *testing.T) {
	rt, fake, _ := newTestRuntime(t, stringTemplate())
	require.NoError(t, rt.Connect())

	tests := []struct {
		name string
		req  model.ParamSetRequest
	}{
		{"unknown channel", model.ParamSetRequest{ParamKey: "brightness", ChannelID: "ch9", Value: "10"}},
		{"missing channel", model.ParamSetRequest{ParamKey: "brightness", Value: "10"}},
		{"location mismatch", model.ParamSetRequest{ParamKey: "brightness", Location: model.ParamLocationGlobal, ChannelID: "ch1", Value: "10"}},
		{"unknown param", model.ParamSetRequest{ParamKey: "hue", Value: "10"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := rt.SetParamAndSend(tt.req)
			assert.False(t, res.OK)
			assert.NotEmpty(t, res.Message)
		})
	}

	inst := rt.Instance()
	assert.Empty(t, inst.ChannelValues)
	assert.Empty(t, inst.GlobalValues)
	assert.Equal(t, 0, fake.calls())
}

func TestSetParamAndSendString(t *testing.T) {
	rt, fake, log := newTestRuntime(t, stringTemplate())
	require.NoError(t, rt.Connect())

	res := rt.SetParamAndSend(model.ParamSetRequest{ParamKey: "brightness", ChannelID: "ch1", Value: "100"})
	require.True(t, res.OK, res.Message)
	assert.Equal(t, MessageSent, res.Message)
	assert.Equal(t, "SA0100#", res.CommandOut)
	assert.Equal(t, []byte("SA0100#"), fake.lastSent())
	assert.Equal(t, "100", rt.Instance().ChannelValues["brightness"]["ch1"])

	tx := log.ofType(model.EventTxFrame)
	require.Len(t, tx, 1)
	assert.Equal(t, "SA0100#", tx[0].Printable)
	assert.Equal(t, "lamp-1", tx[0].InstanceID)
}

func TestSetParamAndSendByte(t *testing.T) {
	rt, fake, log := newTestRuntime(t, byteTemplate())
	require.NoError(t, rt.Connect())

	res := rt.SetParamAndSend(model.ParamSetRequest{ParamKey: "brightness", Location: model.ParamLocationChannel, ChannelID: "ch1", Value: "100"})
	require.True(t, res.OK, res.Message)

	want := []byte{0x01, 0x06, 0x00, 0x01, 0x00, 0x64, 0xD9, 0xE1}
	assert.Equal(t, want, fake.lastSent())
	assert.Equal(t, "0x01 06 00 01 00 64 D9 E1", res.CommandOut)
	require.Len(t, log.ofType(model.EventTxFrame), 1)
	assert.Equal(t, res.CommandOut, log.ofType(model.EventTxFrame)[0].Printable)
}

func TestSendToServerWithoutClients(t *testing.T) {
	rt, fake, log := newTestRuntime(t, stringTemplate())
	require.NoError(t, rt.Connect())
	fake.mu.Lock()
	fake.fanout = true
	fake.mu.Unlock()

	res := rt.SetParamAndSend(model.ParamSetRequest{ParamKey: "brightness", ChannelID: "ch1", Value: "7"})
	require.True(t, res.OK, res.Message)
	assert.Equal(t, MessageNoClients, res.Message)
	assert.Len(t, log.ofType(model.EventTxFrame), 1)

	fake.mu.Lock()
	fake.peers = 2
	fake.mu.Unlock()
	res = rt.SetParamAndSend(model.ParamSetRequest{ParamKey: "brightness", ChannelID: "ch1", Value: "8"})
	assert.Equal(t, MessageSent, res.Message)
}

func TestMisconfiguredRuleIsLogged(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	tpl := stringTemplate()
	tpl.Info.ProtocolType = model.ProtocolTypeUnknown

	fake := &fakeTransport{}
	rt := New(tpl, testInstance(), Dependencies{
		Bus:          eventbus.New(nil),
		NewTransport: func() transport.Transport { return fake },
		Logger:       zap.New(core),
	})
	t.Cleanup(func() { _ = rt.Close() })
	require.NoError(t, rt.Connect())

	res := rt.SetParamAndSend(model.ParamSetRequest{ParamKey: "brightness", ChannelID: "ch1", Value: "1"})
	assert.False(t, res.OK)

	entries := logs.FilterMessage("Template command rule is misconfigured").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "brightness", entries[0].ContextMap()["param_key"])
}

func TestLastTx(t *testing.T) {
	rt, _, _ := newTestRuntime(t, stringTemplate())
	assert.Empty(t, rt.LastTx())

	require.NoError(t, rt.Connect())
	assert.Empty(t, rt.LastTx())

	res := rt.SetParamAndSend(model.ParamSetRequest{ParamKey: "brightness", ChannelID: "ch1", Value: "1"})
	require.True(t, res.OK, res.Message)
	assert.Equal(t, "0x53 41 30 30 30 31 23", rt.LastTx())
}

func TestSendWhileDisconnectedKeepsValue(t *testing.T) {
	rt, fake, _ := newTestRuntime(t, stringTemplate())

	res := rt.SetParamAndSend(model.ParamSetRequest{ParamKey: "brightness", ChannelID: "ch2", Value: "5"})
	assert.False(t, res.OK)
	assert.Equal(t, MessageNotConnected, res.Message)
	assert.Equal(t, "5", rt.Instance().ChannelValues["brightness"]["ch2"])
	assert.Equal(t, 0, fake.calls())
}

func TestBuildFailureKeepsValue(t *testing.T) {
	rt, fake, _ := newTestRuntime(t, stringTemplate())
	require.NoError(t, rt.Connect())

	res := rt.SetParamAndSend(model.ParamSetRequest{ParamKey: "broken", Value: "x"})
	assert.False(t, res.OK)
	assert.Contains(t, res.Message, "missing placeholder rule")
	assert.Equal(t, "x", rt.Instance().GlobalValues["broken"])
	assert.Equal(t, 0, fake.calls())
}

func TestSendFailure(t *testing.T) {
	rt, fake, log := newTestRuntime(t, stringTemplate())
	require.NoError(t, rt.Connect())
	fake.sendErr = errors.New("broken pipe")

	res := rt.SetParamAndSend(model.ParamSetRequest{ParamKey: "brightness", ChannelID: "ch1", Value: "1"})
	assert.False(t, res.OK)
	assert.Equal(t, "SendBytes failed: broken pipe", res.Message)
	assert.Empty(t, log.ofType(model.EventTxFrame))
}

func TestSetParamAndBuildCommandDoesNotSend(t *testing.T) {
	rt, fake, _ := newTestRuntime(t, byteTemplate())

	res := rt.SetParamAndBuildCommand(model.ParamSetRequest{ParamKey: "brightness", ChannelID: "ch2", Value: "255"})
	require.True(t, res.OK, res.Message)
	assert.Equal(t, MessageOK, res.Message)
	assert.Contains(t, res.CommandOut, "0x01 06 00 02 00 FF")
	assert.Equal(t, 0, fake.calls())
}

func TestByteTemplateWithoutAddress(t *testing.T) {
	tpl := byteTemplate()
	tpl.Info.ByteParams.DeviceAddress = ""
	rt, _, _ := newTestRuntime(t, tpl)

	res := rt.SetParamAndBuildCommand(model.ParamSetRequest{ParamKey: "brightness", ChannelID: "ch1", Value: "1"})
	assert.False(t, res.OK)
	assert.Contains(t, res.Message, "device_address")
}

func TestConnectLifecycleEvents(t *testing.T) {
	rt, fake, log := newTestRuntime(t, stringTemplate())

	require.NoError(t, rt.Connect())
	assert.Equal(t, []model.EventType{model.EventInstanceConnecting, model.EventInstanceConnected}, log.types())
	assert.True(t, rt.IsConnected())
	assert.True(t, rt.Instance().Connection.Connected)
	assert.Equal(t, "10.0.0.20", fake.lastCfg.Socket.DestIP)

	log.reset()
	rt.Disconnect()
	assert.Equal(t, []model.EventType{model.EventInstanceDisconnected}, log.types())
	assert.Equal(t, "manual disconnect", log.ofType(model.EventInstanceDisconnected)[0].Message)
	assert.False(t, rt.Instance().Connection.Connected)
}

func TestConnectFailure(t *testing.T) {
	rt, fake, log := newTestRuntime(t, stringTemplate())
	fake.connectErr = errors.New("connection refused")

	err := rt.Connect()
	require.Error(t, err)
	assert.Equal(t, []model.EventType{
		model.EventInstanceConnecting,
		model.EventInstanceError,
		model.EventInstanceConnectFailed,
	}, log.types())
	assert.False(t, rt.Instance().Connection.Connected)
}

func TestDisconnectWithoutTransport(t *testing.T) {
	rt, _, log := newTestRuntime(t, stringTemplate())

	rt.Disconnect()
	assert.Equal(t, []model.EventType{model.EventInstanceDisconnected}, log.types())
}

func TestErrorClassifier(t *testing.T) {
	rt, fake, log := newTestRuntime(t, stringTemplate())
	require.NoError(t, rt.Connect())
	log.reset()

	fake.fail(transport.CodeWriteFailed, "i/o timeout")
	assert.Equal(t, []model.EventType{model.EventInstanceError}, log.types())

	log.reset()
	fake.fail(transport.CodeReadFailed, "TCP read failed: EOF")
	assert.Equal(t, []model.EventType{model.EventInstanceError, model.EventInstanceDisconnected}, log.types())
	assert.Equal(t, transport.CodeReadFailed, log.ofType(model.EventInstanceError)[0].Code)

	log.reset()
	fake.fail(transport.CodeReadFailed, "connection reset by peer")
	assert.Equal(t, []model.EventType{model.EventInstanceError}, log.types(), "already disconnected")
}

func TestImpliesDisconnect(t *testing.T) {
	for _, msg := range []string{"EOF", "connection reset by peer", "write: broken pipe", "peer disconnected", "use of closed network connection"} {
		assert.True(t, impliesDisconnect(msg), msg)
	}
	for _, msg := range []string{"i/o timeout", "permission denied", ""} {
		assert.False(t, impliesDisconnect(msg), msg)
	}
}

func TestReceiveReassemblesByteFrames(t *testing.T) {
	rt, fake, log := newTestRuntime(t, byteTemplate())
	require.NoError(t, rt.Connect())
	log.reset()

	frame := []byte{0x01, 0x06, 0x00, 0x01, 0x00, 0x64, 0xD9, 0xE1}
	fake.receive(frame[:3])
	assert.Empty(t, log.ofType(model.EventRxFrame))
	fake.receive(frame[3:])

	rx := log.ofType(model.EventRxFrame)
	require.Len(t, rx, 1)
	assert.Equal(t, "0x01 06 00 01 00 64 D9 E1", rx[0].Printable)
}

func TestReceiveStringChunks(t *testing.T) {
	rt, fake, log := newTestRuntime(t, stringTemplate())
	require.NoError(t, rt.Connect())
	log.reset()

	fake.receive([]byte("OK"))
	rx := log.ofType(model.EventRxFrame)
	require.Len(t, rx, 1)
	assert.Equal(t, "0x4F 4B", rx[0].Printable)
}

func TestUpdateConnectionConfigAndReConnect(t *testing.T) {
	rt, fake, _ := newTestRuntime(t, stringTemplate())
	require.NoError(t, rt.Connect())

	rt.UpdateConnectionConfig(model.ConnectionConfig{
		ConnectType: model.ConnectTypeSerial,
		Serial:      model.SerialParams{Port: "COM4", BaudRate: 115200},
	})
	require.NoError(t, rt.ReConnect())
	assert.Equal(t, "COM4", fake.lastCfg.Serial.Port)
	assert.True(t, rt.Instance().Connection.Connected)
}

func TestReceiveResyncsNoiseInSameChunk(t *testing.T) {
	rt, fake, log := newTestRuntime(t, byteTemplate())
	require.NoError(t, rt.Connect())
	log.reset()

	fake.receive([]byte{0xFF, 0x01, 0x06, 0x00, 0x01, 0x00, 0x64, 0xD9, 0xE1})

	rx := log.ofType(model.EventRxFrame)
	require.Len(t, rx, 1)
	assert.Equal(t, "0x01 06 00 01 00 64 D9 E1", rx[0].Printable)
	assert.Empty(t, log.ofType(model.EventInstanceError))
	assert.Zero(t, rt.parser.Buffered())
}
