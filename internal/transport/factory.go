// internal/transport/factory.go
package transport

import (
	"fmt"

	"go.uber.org/zap"

	"light-controller-service/internal/model"
)

// Factory creates transport backends keyed by connect type
type Factory struct {
	Options    Options
	PortOpener PortOpener
	Logger     *zap.Logger
}

// NewFactory creates a backend factory
func NewFactory(opts Options, logger *zap.Logger) *Factory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Factory{Options: opts, Logger: logger}
}

// Create returns a fresh backend for connectType
func (f *Factory) Create(connectType model.ConnectType) (Transport, error) {
	switch connectType {
	case model.ConnectTypeSerial:
		return NewSerialTransport(f.Options, f.Logger, f.PortOpener), nil
	case model.ConnectTypeSocket:
		return NewTCPClient(f.Options, f.Logger), nil
	case model.ConnectTypeSocketServer:
		return NewTCPServer(f.Options, f.Logger), nil
	default:
		return nil, newError(CodeUnknownConnectType, "create transport",
			fmt.Errorf("%w: %q", ErrUnknownConnectType, connectType))
	}
}

// ValidateConfig checks the fields the selected backend needs
func ValidateConfig(cfg model.ConnectionConfig) error {
	switch cfg.ConnectType {
	case model.ConnectTypeSerial:
		if cfg.Serial.Port == "" {
			return fmt.Errorf("%w: serial port is required", ErrInvalidConfig)
		}
		if cfg.Serial.BaudRate <= 0 {
			return fmt.Errorf("%w: invalid baud rate: %d", ErrInvalidConfig, cfg.Serial.BaudRate)
		}
		if cfg.Serial.DataBits != 0 && (cfg.Serial.DataBits < 5 || cfg.Serial.DataBits > 8) {
			return fmt.Errorf("%w: invalid data bits: %d", ErrInvalidConfig, cfg.Serial.DataBits)
		}
	case model.ConnectTypeSocket:
		if cfg.Socket.DestIP == "" {
			return fmt.Errorf("%w: dest_ip is required", ErrInvalidConfig)
		}
		if cfg.Socket.DestPort < 1 || cfg.Socket.DestPort > 65535 {
			return fmt.Errorf("%w: invalid port number: %d", ErrInvalidConfig, cfg.Socket.DestPort)
		}
	case model.ConnectTypeSocketServer:
		if cfg.Socket.Port < 0 || cfg.Socket.Port > 65535 {
			return fmt.Errorf("%w: invalid port number: %d", ErrInvalidConfig, cfg.Socket.Port)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownConnectType, cfg.ConnectType)
	}
	return nil
}

// normalize fills serial defaults
func normalize(cfg model.ConnectionConfig) model.ConnectionConfig {
	if cfg.ConnectType == model.ConnectTypeSerial {
		if cfg.Serial.DataBits == 0 {
			cfg.Serial.DataBits = 8
		}
		if cfg.Serial.StopBits == 0 {
			cfg.Serial.StopBits = 1
		}
	}
	return cfg
}
