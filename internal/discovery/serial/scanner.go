// internal/discovery/serial/scanner.go
package serial

import (
	"context"
	"fmt"
	"sort"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
	"go.uber.org/zap"

	"light-controller-service/internal/discovery"
	"light-controller-service/internal/model"
)

// DetailLister returns the ports with their USB details
type DetailLister func() ([]*enumerator.PortDetails, error)

// NameLister returns bare port names
type NameLister func() ([]string, error)

// Scanner lists the serial ports of the host
type Scanner struct {
	logger  *zap.Logger
	details DetailLister
	names   NameLister
}

// NewScanner creates a new serial scanner backed by the OS enumerator
func NewScanner(logger *zap.Logger) *Scanner {
	return NewScannerWithListers(logger, enumerator.GetDetailedPortsList, serial.GetPortsList)
}

// NewScannerWithListers creates a scanner with replaceable listers.
// When the detail lister fails the name lister is used instead.
func NewScannerWithListers(logger *zap.Logger, details DetailLister, names NameLister) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{
		logger:  logger.With(zap.String("scanner", "serial")),
		details: details,
		names:   names,
	}
}

// GetScannerType returns scanner type
func (s *Scanner) GetScannerType() string {
	return "serial"
}

// IsAvailable checks if serial scanning is available
func (s *Scanner) IsAvailable() bool {
	return s.details != nil || s.names != nil
}

// Scan enumerates serial ports sorted by name
func (s *Scanner) Scan(ctx context.Context) ([]*discovery.Endpoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	endpoints, err := s.scanDetailed()
	if err != nil {
		s.logger.Debug("Detailed port listing failed, falling back to names", zap.Error(err))
		endpoints, err = s.scanNames()
		if err != nil {
			return nil, fmt.Errorf("failed to get serial ports: %w", err)
		}
	}

	sort.Slice(endpoints, func(i, j int) bool { return endpoints[i].Name < endpoints[j].Name })
	s.logger.Debug("Serial scan completed", zap.Int("ports_found", len(endpoints)))
	return endpoints, nil
}

func (s *Scanner) scanDetailed() ([]*discovery.Endpoint, error) {
	if s.details == nil {
		return nil, fmt.Errorf("no detail lister")
	}
	ports, err := s.details()
	if err != nil {
		return nil, err
	}

	endpoints := make([]*discovery.Endpoint, 0, len(ports))
	for _, p := range ports {
		ep := &discovery.Endpoint{
			ConnectType: model.ConnectTypeSerial,
			Name:        p.Name,
			Reachable:   true,
		}
		if p.IsUSB {
			ep.USB = &discovery.USBInfo{VID: p.VID, PID: p.PID, SerialNumber: p.SerialNumber}
		}
		endpoints = append(endpoints, ep)
	}
	return endpoints, nil
}

func (s *Scanner) scanNames() ([]*discovery.Endpoint, error) {
	if s.names == nil {
		return nil, fmt.Errorf("no name lister")
	}
	names, err := s.names()
	if err != nil {
		return nil, err
	}

	endpoints := make([]*discovery.Endpoint, 0, len(names))
	for _, name := range names {
		endpoints = append(endpoints, &discovery.Endpoint{
			ConnectType: model.ConnectTypeSerial,
			Name:        name,
			Reachable:   true,
		})
	}
	return endpoints, nil
}
