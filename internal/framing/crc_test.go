package framing

import (
	"testing"

	"github.com/goburrow/modbus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeCRC16ModbusReferenceVectors(t *testing.T) {
	cases := []struct {
		data []byte
		want uint16
	}{
		{[]byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x0A}, 0xCDC5},
		{[]byte{0x01, 0x06, 0x00, 0x01, 0x00, 0x64}, 0xE1D9},
		{[]byte{0x11, 0x06, 0x00, 0x02, 0x00, 0xFF}, 0xDA6A},
		{[]byte{0x01, 0x10, 0x00, 0x00, 0x00, 0x01, 0x02, 0x00, 0x32}, 0x8527},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ComputeCRC16Modbus(tc.data), "data % X", tc.data)
	}
}

func TestAppendCRC16ModbusByteOrder(t *testing.T) {
	body := []byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x0A}

	lowFirst := AppendCRC16Modbus(append([]byte(nil), body...), false)
	assert.Equal(t, []byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x0A, 0xC5, 0xCD}, lowFirst)
	assert.True(t, CheckCRC16Modbus(lowFirst, false))
	assert.False(t, CheckCRC16Modbus(lowFirst, true))

	highFirst := AppendCRC16Modbus(append([]byte(nil), body...), true)
	assert.Equal(t, []byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x0A, 0xCD, 0xC5}, highFirst)
	assert.True(t, CheckCRC16Modbus(highFirst, true))
	assert.False(t, CheckCRC16Modbus(highFirst, false))
}

func TestCheckCRC16ModbusRejectsShortFrames(t *testing.T) {
	assert.False(t, CheckCRC16Modbus(nil, false))
	assert.False(t, CheckCRC16Modbus([]byte{0x01, 0x03, 0x00, 0xC5, 0xCD}, false))
}

func TestAppendCRC16ModbusMatchesRTUPackager(t *testing.T) {
	handler := modbus.NewRTUClientHandler("/dev/null")
	handler.SlaveId = 0x11

	pdu := &modbus.ProtocolDataUnit{FunctionCode: 0x06, Data: []byte{0x00, 0x02, 0x00, 0xFF}}
	want, err := handler.Encode(pdu)
	require.NoError(t, err)

	got := AppendCRC16Modbus([]byte{0x11, 0x06, 0x00, 0x02, 0x00, 0xFF}, false)
	assert.Equal(t, want, got)
}
