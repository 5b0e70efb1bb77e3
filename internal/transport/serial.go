// internal/transport/serial.go
package transport

import (
	"time"

	"go.bug.st/serial"
	"go.uber.org/zap"

	"light-controller-service/internal/model"
)

// Port is the subset of serial.Port the serial backend uses
type Port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
	SetReadTimeout(t time.Duration) error
}

// PortOpener opens a serial port; replaced in tests
type PortOpener func(name string, mode *serial.Mode) (Port, error)

// OpenSerialPort opens a real port through go.bug.st/serial
func OpenSerialPort(name string, mode *serial.Mode) (Port, error) {
	return serial.Open(name, mode)
}

// SerialTransport talks to a controller over a serial port
type SerialTransport struct {
	*streamTransport
	open PortOpener
}

// NewSerialTransport creates a serial backend. A nil opener uses OpenSerialPort.
func NewSerialTransport(opts Options, logger *zap.Logger, open PortOpener) *SerialTransport {
	if open == nil {
		open = OpenSerialPort
	}
	t := &SerialTransport{open: open}
	t.streamTransport = newStreamTransport("Serial", opts, logger, t.dial)
	return t
}

// SerialMode maps SerialParams to a port mode.
// Stop bits 2 means two, anything else one. Parity 1 is odd, 2 even, anything else none.
func SerialMode(p model.SerialParams) *serial.Mode {
	mode := &serial.Mode{
		BaudRate: p.BaudRate,
		DataBits: p.DataBits,
		StopBits: serial.OneStopBit,
		Parity:   serial.NoParity,
	}
	if mode.DataBits == 0 {
		mode.DataBits = 8
	}
	if p.StopBits == 2 {
		mode.StopBits = serial.TwoStopBits
	}
	switch p.Parity {
	case 1:
		mode.Parity = serial.OddParity
	case 2:
		mode.Parity = serial.EvenParity
	}
	return mode
}

func (t *SerialTransport) dial(cfg model.ConnectionConfig) (endpoint, string, error) {
	mode := SerialMode(cfg.Serial)

	t.logger.Info("Opening serial port",
		zap.String("port", cfg.Serial.Port),
		zap.Int("baud_rate", mode.BaudRate),
	)

	port, err := t.open(cfg.Serial.Port, mode)
	if err != nil {
		return nil, "", err
	}
	// Reads return (0, nil) on timeout so the loop can observe shutdown
	if err := port.SetReadTimeout(t.opts.ReadTimeout); err != nil {
		_ = port.Close()
		return nil, "", err
	}
	return port, cfg.Serial.Port, nil
}
