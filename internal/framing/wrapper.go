// internal/framing/wrapper.go
package framing

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"

	"light-controller-service/internal/model"
)

const mbapHeaderLen = 7

// mbapTxnID is shared by every Wrapper in the process
var mbapTxnID atomic.Uint32

func nextTransactionID() uint16 {
	return uint16(mbapTxnID.Add(1))
}

// Wrapper turns a bare PDU into on-wire bytes
type Wrapper struct {
	strict bool
}

// NewWrapper creates a wrapper. In strict mode EMPTY/EMPTY passthrough is rejected.
func NewWrapper(strict bool) *Wrapper {
	return &Wrapper{strict: strict}
}

// Strict reports whether passthrough is rejected
func (w *Wrapper) Strict() bool {
	return w.strict
}

// WrapPDU frames pdu according to params:
//   - ModbusTCP_MBAP header: MBAP header with the device address as unit id, no CRC
//   - EMPTY header + CRC_16_Modbus tail: address + pdu + CRC
//   - EMPTY header + EMPTY tail: pdu unchanged unless strict
func (w *Wrapper) WrapPDU(pdu []byte, params model.ByteTransmissionParams) ([]byte, error) {
	if len(pdu) == 0 {
		return nil, ErrEmptyPDU
	}

	addr, err := ParseDeviceAddress(params.DeviceAddress)
	if err != nil {
		return nil, err
	}

	switch {
	case params.IsMBAP():
		return encodeMBAP(pdu, addr)
	case params.HeaderIsEmpty() && params.IsCRC16():
		frame := make([]byte, 0, 1+len(pdu)+2)
		frame = append(frame, addr)
		frame = append(frame, pdu...)
		return AppendCRC16Modbus(frame, params.CRCEndian), nil
	case params.HeaderIsEmpty() && params.TailIsEmpty():
		if w.strict {
			return nil, ErrPassthroughDisabled
		}
		return append([]byte(nil), pdu...), nil
	default:
		return nil, fmt.Errorf("%w: header=%q tail=%q", ErrUnsupportedFraming, params.HeaderType, params.TailType)
	}
}

func encodeMBAP(pdu []byte, unitID byte) ([]byte, error) {
	length := 1 + len(pdu)
	if length > 0xFFFF {
		return nil, ErrPDUTooLarge
	}
	adu := make([]byte, mbapHeaderLen, mbapHeaderLen+len(pdu))
	binary.BigEndian.PutUint16(adu[0:], nextTransactionID())
	binary.BigEndian.PutUint16(adu[2:], 0)
	binary.BigEndian.PutUint16(adu[4:], uint16(length))
	adu[6] = unitID
	return append(adu, pdu...), nil
}
