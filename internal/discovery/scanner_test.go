package discovery

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"light-controller-service/internal/model"
)

type stubScanner struct {
	kind      string
	available bool
	result    []*Endpoint
	err       error
}

func (s *stubScanner) Scan(context.Context) ([]*Endpoint, error) { return s.result, s.err }
func (s *stubScanner) GetScannerType() string                    { return s.kind }
func (s *stubScanner) IsAvailable() bool                         { return s.available }

func TestScanAllSkipsFailingAndUnavailable(t *testing.T) {
	sm := NewScannerManager(nil)
	sm.RegisterScanner(&stubScanner{kind: "serial", available: true, result: []*Endpoint{{ConnectType: model.ConnectTypeSerial, Name: "COM1"}}})
	sm.RegisterScanner(&stubScanner{kind: "tcp", available: true, err: errors.New("boom")})
	sm.RegisterScanner(&stubScanner{kind: "usb", available: false, result: []*Endpoint{{Name: "never"}}})

	all, err := sm.ScanAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "COM1", all[0].Name)

	assert.Equal(t, []string{"serial", "tcp"}, sm.GetAvailableScanners())
}

func TestScanByType(t *testing.T) {
	sm := NewScannerManager(nil)
	sm.RegisterScanner(&stubScanner{kind: "serial", available: true, result: []*Endpoint{{Name: "COM2"}}})
	sm.RegisterScanner(&stubScanner{kind: "off", available: false})

	got, err := sm.ScanByType(context.Background(), "serial")
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = sm.ScanByType(context.Background(), "missing")
	assert.Error(t, err)
	_, err = sm.ScanByType(context.Background(), "off")
	assert.Error(t, err)
}

func TestScanAllHonoursCancelledContext(t *testing.T) {
	sm := NewScannerManager(nil)
	sm.RegisterScanner(&stubScanner{kind: "serial", available: true})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := sm.ScanAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
