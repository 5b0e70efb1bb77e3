// internal/model/connection.go
package model

import "strings"

// ConnectType selects the transport backend of a controller
type ConnectType string

const (
	ConnectTypeUnknown      ConnectType = ""
	ConnectTypeSerial       ConnectType = "SERIAL"
	ConnectTypeSocket       ConnectType = "SOCKET"
	ConnectTypeSocketServer ConnectType = "SOCKET_SERVER"
)

// ParseConnectType maps a case-insensitive name to a ConnectType
func ParseConnectType(s string) ConnectType {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "SERIAL":
		return ConnectTypeSerial
	case "SOCKET", "TCP", "TCP_CLIENT":
		return ConnectTypeSocket
	case "SOCKET_SERVER", "TCP_SERVER":
		return ConnectTypeSocketServer
	default:
		return ConnectTypeUnknown
	}
}

// SerialParams represents serial port settings.
// StopBits: 2 means two stop bits, anything else one.
// Parity: 1 odd, 2 even, anything else none.
type SerialParams struct {
	Port     string `json:"port" mapstructure:"port"`
	BaudRate int    `json:"baud_rate" mapstructure:"baud_rate"`
	DataBits int    `json:"data_bits" mapstructure:"data_bits"`
	StopBits int    `json:"stop_bits" mapstructure:"stop_bits"`
	Parity   int    `json:"parity" mapstructure:"parity"`
}

// SocketParams represents TCP settings. The client backend dials DestIP:DestPort,
// the server backend listens on IPAddress:Port.
type SocketParams struct {
	IPAddress  string `json:"ip_address" mapstructure:"ip_address"`
	SubnetMask string `json:"subnet_mask" mapstructure:"subnet_mask"`
	Gateway    string `json:"gateway" mapstructure:"gateway"`
	Port       int    `json:"port" mapstructure:"port"`
	DestIP     string `json:"dest_ip" mapstructure:"dest_ip"`
	DestPort   int    `json:"dest_port" mapstructure:"dest_port"`
}

// ConnectionConfig describes how to reach a controller.
// Connected is advisory; the transport owns the real state.
type ConnectionConfig struct {
	ConnectType ConnectType  `json:"connect_type" mapstructure:"connect_type"`
	Connected   bool         `json:"connected" mapstructure:"connected"`
	Serial      SerialParams `json:"serial" mapstructure:"serial"`
	Socket      SocketParams `json:"socket" mapstructure:"socket"`
}
