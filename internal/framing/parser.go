// internal/framing/parser.go
package framing

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/sigurn/crc16"

	"light-controller-service/internal/model"
)

// MaxBuffered bounds the receive buffer kept between chunks. It holds a few
// maximum-size Modbus frames.
const MaxBuffered = 2048

// Parser reassembles frames from a byte stream. One Parser per logical stream.
type Parser struct {
	mu  sync.Mutex
	buf []byte
}

// NewParser creates an empty parser
func NewParser() *Parser {
	return &Parser{}
}

// Reset drops buffered bytes
func (p *Parser) Reset() {
	p.mu.Lock()
	p.buf = p.buf[:0]
	p.mu.Unlock()
}

// Buffered returns the number of bytes waiting for a complete frame
func (p *Parser) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.buf)
}

// Feed appends data and cuts every complete frame it can.
//
// On corrupt input the parser drops a single leading byte and stops the pass, so
// resynchronisation advances at most one byte per call. Feeding an empty chunk runs
// another pass over the buffered bytes. The returned error reports a corrupt MBAP
// header; frames cut before it are still returned.
func (p *Parser) Feed(data []byte, params model.ByteTransmissionParams) ([][]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.buf = append(p.buf, data...)

	var frames [][]byte
	switch {
	case params.IsMBAP():
		for {
			frame, err := p.cutMBAP()
			if err != nil {
				return frames, err
			}
			if frame == nil {
				return frames, nil
			}
			frames = append(frames, frame)
		}
	case params.IsCRC16():
		for {
			frame := p.cutCRC(params.CRCEndian)
			if frame == nil {
				return frames, nil
			}
			frames = append(frames, frame)
		}
	default:
		if len(p.buf) > 0 {
			frames = append(frames, p.take(len(p.buf)))
		}
		return frames, nil
	}
}

// Drain runs further passes after Feed while another pass would make progress:
// a complete frame or a corrupt MBAP header at the front, or CRC mode bytes that
// precede a complete frame later in the buffer. A partial frame at the front is
// left for the next chunk. Afterwards the buffer is cut to its newest MaxBuffered bytes, reported
// as ErrBufferOverflow. The first error seen is returned.
func (p *Parser) Drain(params model.ByteTransmissionParams) ([][]byte, error) {
	var (
		frames   [][]byte
		firstErr error
	)
	for {
		p.mu.Lock()
		before := len(p.buf)
		progress := p.progressAhead(params)
		p.mu.Unlock()
		if !progress {
			break
		}

		got, err := p.Feed(nil, params)
		frames = append(frames, got...)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		if p.Buffered() >= before {
			break
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if excess := len(p.buf) - MaxBuffered; excess > 0 {
		p.buf = append(p.buf[:0], p.buf[excess:]...)
		if firstErr == nil {
			firstErr = fmt.Errorf("%w: dropped %d bytes", ErrBufferOverflow, excess)
		}
	}
	return frames, firstErr
}

func (p *Parser) progressAhead(params model.ByteTransmissionParams) bool {
	switch {
	case params.IsMBAP():
		if len(p.buf) < mbapHeaderLen {
			return false
		}
		lengthField := int(binary.BigEndian.Uint16(p.buf[4:6]))
		return lengthField < 2 || len(p.buf) >= 6+lengthField
	case params.IsCRC16():
		for start := 0; start+minRTUFrame <= len(p.buf); start++ {
			if crcFrameAt(p.buf[start:], params.CRCEndian) {
				return true
			}
		}
	}
	return false
}

// crcFrameAt reports whether some prefix of b is a complete CRC frame
func crcFrameAt(b []byte, crcEndian bool) bool {
	crc := crc16.Init(modbusTable)
	for end := 0; end+2 <= len(b); end++ {
		if end >= minRTUFrame-2 {
			sum := crc16.Complete(crc, modbusTable)
			c0, c1 := b[end], b[end+1]
			var got uint16
			if crcEndian {
				got = uint16(c0)<<8 | uint16(c1)
			} else {
				got = uint16(c1)<<8 | uint16(c0)
			}
			if sum == got {
				return true
			}
		}
		crc = crc16.Update(crc, b[end:end+1], modbusTable)
	}
	return false
}

func (p *Parser) take(n int) []byte {
	frame := make([]byte, n)
	copy(frame, p.buf[:n])
	p.buf = append(p.buf[:0], p.buf[n:]...)
	return frame
}

func (p *Parser) dropOne() {
	p.buf = append(p.buf[:0], p.buf[1:]...)
}

func (p *Parser) cutMBAP() ([]byte, error) {
	if len(p.buf) < mbapHeaderLen {
		return nil, nil
	}
	lengthField := int(binary.BigEndian.Uint16(p.buf[4:6]))
	if lengthField < 2 {
		p.dropOne()
		return nil, fmt.Errorf("%w: %d", ErrMBAPLength, lengthField)
	}
	full := 6 + lengthField
	if len(p.buf) < full {
		return nil, nil
	}
	return p.take(full), nil
}

func (p *Parser) cutCRC(crcEndian bool) []byte {
	if len(p.buf) < minRTUFrame {
		return nil
	}
	for n := minRTUFrame; n <= len(p.buf); n++ {
		if CheckCRC16Modbus(p.buf[:n], crcEndian) {
			return p.take(n)
		}
	}
	p.dropOne()
	return nil
}

// ExtractPayload strips framing from one complete frame.
// MBAP yields function code + data, CRC mode yields address + PDU, EMPTY is identity.
func ExtractPayload(frame []byte, params model.ByteTransmissionParams) ([]byte, error) {
	switch {
	case params.IsMBAP():
		if len(frame) < mbapHeaderLen+1 {
			return nil, ErrFrameTooShort
		}
		full := 6 + int(binary.BigEndian.Uint16(frame[4:6]))
		if len(frame) != full {
			return nil, fmt.Errorf("%w: header says %d bytes, frame has %d", ErrMBAPLength, full, len(frame))
		}
		return append([]byte(nil), frame[mbapHeaderLen:]...), nil
	case params.IsCRC16():
		if !CheckCRC16Modbus(frame, params.CRCEndian) {
			return nil, ErrCRCMismatch
		}
		return append([]byte(nil), frame[:len(frame)-2]...), nil
	default:
		return append([]byte(nil), frame...), nil
	}
}
