// internal/framing/address.go
package framing

import (
	"fmt"
	"strings"
)

// ParseDeviceAddress parses a one-byte hex device address.
//
// Accepted: "1", "01", "0x1", "0x01", "0x0001", "0001". With more than two digits only the
// last two count. Without a 0x prefix a digit count above one must be even, so "001" is rejected.
func ParseDeviceAddress(s string) (byte, error) {
	raw := s
	s = strings.TrimSpace(s)
	prefixed := len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
	if prefixed {
		s = s[2:]
	}
	if s == "" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDeviceAddress, raw)
	}
	for i := 0; i < len(s); i++ {
		if !isHexDigit(s[i]) {
			return 0, fmt.Errorf("%w: %q", ErrInvalidDeviceAddress, raw)
		}
	}
	if !prefixed && len(s) > 1 && len(s)%2 != 0 {
		return 0, fmt.Errorf("%w: %q has an odd number of digits", ErrInvalidDeviceAddress, raw)
	}
	if len(s) > 2 {
		s = s[len(s)-2:]
	}
	if len(s) == 1 {
		return hexValue(s[0]), nil
	}
	return hexValue(s[0])<<4 | hexValue(s[1]), nil
}
