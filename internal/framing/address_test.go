package framing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDeviceAddress(t *testing.T) {
	valid := map[string]byte{
		"1":        0x01,
		"01":       0x01,
		"0x01":     0x01,
		"0X1":      0x01,
		"0x0001":   0x01,
		"0001":     0x01,
		" 0x11 ":   0x11,
		"fe":       0xFE,
		"0xAb":     0xAB,
		"0x00F7":   0xF7,
		"A":        0x0A,
		"00000012": 0x12,
	}
	for in, want := range valid {
		got, err := ParseDeviceAddress(in)
		require.NoError(t, err, "input %q", in)
		assert.Equal(t, want, got, "input %q", in)
	}

	invalid := []string{"", "   ", "0x", "001", "12345", "0xG1", "zz", "0x 01", "1 2"}
	for _, in := range invalid {
		_, err := ParseDeviceAddress(in)
		assert.ErrorIs(t, err, ErrInvalidDeviceAddress, "input %q", in)
	}
}
