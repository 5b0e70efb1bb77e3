// internal/framing/crc.go
package framing

import "github.com/sigurn/crc16"

// minRTUFrame is address + function + one data byte + two CRC bytes, rounded up
// to reject very short windows.
const minRTUFrame = 6

var modbusTable = crc16.MakeTable(crc16.CRC16_MODBUS)

// ComputeCRC16Modbus returns the CRC16/MODBUS checksum (poly 0xA001 reflected, init 0xFFFF)
func ComputeCRC16Modbus(data []byte) uint16 {
	return crc16.Checksum(data, modbusTable)
}

// AppendCRC16Modbus appends the checksum of frame to frame.
// crcEndian true puts the high byte first.
func AppendCRC16Modbus(frame []byte, crcEndian bool) []byte {
	crc := ComputeCRC16Modbus(frame)
	lo, hi := byte(crc), byte(crc>>8)
	if crcEndian {
		return append(frame, hi, lo)
	}
	return append(frame, lo, hi)
}

// CheckCRC16Modbus verifies the trailing two CRC bytes of frame
func CheckCRC16Modbus(frame []byte, crcEndian bool) bool {
	n := len(frame)
	if n < minRTUFrame {
		return false
	}
	c0, c1 := frame[n-2], frame[n-1]
	var got uint16
	if crcEndian {
		got = uint16(c0)<<8 | uint16(c1)
	} else {
		got = uint16(c1)<<8 | uint16(c0)
	}
	return ComputeCRC16Modbus(frame[:n-2]) == got
}
