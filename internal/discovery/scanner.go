// internal/discovery/scanner.go
package discovery

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"light-controller-service/internal/model"
)

// Scanner enumerates endpoints a controller can be attached to
type Scanner interface {
	Scan(ctx context.Context) ([]*Endpoint, error)
	GetScannerType() string
	IsAvailable() bool
}

// USBInfo carries the USB identity of a serial adapter
type USBInfo struct {
	VID          string `json:"vid"`
	PID          string `json:"pid"`
	SerialNumber string `json:"serial_number,omitempty"`
}

// Endpoint represents a discovered serial port or TCP target
type Endpoint struct {
	ConnectType model.ConnectType `json:"connect_type"`
	Name        string            `json:"name"`
	USB         *USBInfo          `json:"usb,omitempty"`
	Reachable   bool              `json:"reachable"`
	Error       string            `json:"error,omitempty"`
}

// ScannerManager manages all endpoint scanners
type ScannerManager struct {
	mu       sync.RWMutex
	scanners map[string]Scanner
	logger   *zap.Logger
}

// NewScannerManager creates a new scanner manager
func NewScannerManager(logger *zap.Logger) *ScannerManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScannerManager{
		scanners: make(map[string]Scanner),
		logger:   logger,
	}
}

// RegisterScanner registers a scanner under its type
func (sm *ScannerManager) RegisterScanner(scanner Scanner) {
	scannerType := scanner.GetScannerType()
	sm.mu.Lock()
	sm.scanners[scannerType] = scanner
	sm.mu.Unlock()
	sm.logger.Info("Scanner registered", zap.String("type", scannerType))
}

// ScanAll runs every available scanner. A failing scanner is logged and skipped.
func (sm *ScannerManager) ScanAll(ctx context.Context) ([]*Endpoint, error) {
	var all []*Endpoint

	for _, scannerType := range sm.GetAvailableScanners() {
		if err := ctx.Err(); err != nil {
			return all, err
		}

		sm.mu.RLock()
		scanner := sm.scanners[scannerType]
		sm.mu.RUnlock()

		endpoints, err := scanner.Scan(ctx)
		if err != nil {
			sm.logger.Error("Scanner failed", zap.String("type", scannerType), zap.Error(err))
			continue
		}

		all = append(all, endpoints...)
		sm.logger.Info("Scanner completed",
			zap.String("type", scannerType),
			zap.Int("endpoints_found", len(endpoints)),
		)
	}

	return all, nil
}

// ScanByType runs one scanner
func (sm *ScannerManager) ScanByType(ctx context.Context, scannerType string) ([]*Endpoint, error) {
	sm.mu.RLock()
	scanner, exists := sm.scanners[scannerType]
	sm.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("scanner type not found: %s", scannerType)
	}
	if !scanner.IsAvailable() {
		return nil, fmt.Errorf("scanner not available: %s", scannerType)
	}

	return scanner.Scan(ctx)
}

// GetAvailableScanners returns the sorted types of available scanners
func (sm *ScannerManager) GetAvailableScanners() []string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	var available []string
	for scannerType, scanner := range sm.scanners {
		if scanner.IsAvailable() {
			available = append(available, scannerType)
		}
	}
	sort.Strings(available)
	return available
}
