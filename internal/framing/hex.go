// internal/framing/hex.go
package framing

import (
	"fmt"
	"strings"
	"unicode"
)

const hexDigits = "0123456789ABCDEF"

// FormatHex renders bytes as "0x01 02 0A"
func FormatHex(b []byte) string {
	if len(b) == 0 {
		return "0x"
	}
	return "0x" + FormatHexPlain(b)
}

// FormatHexPlain renders bytes as "01 02 0A"
func FormatHexPlain(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b) * 3)
	for i, c := range b {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteByte(hexDigits[c>>4])
		sb.WriteByte(hexDigits[c&0x0F])
	}
	return sb.String()
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func hexValue(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}

// ExtractHex keeps only the hex digits of s, wherever they are, and decodes
// them two per byte. An odd digit count gets a leading zero. Nothing is
// stripped first, so the 0 of a "0x" stays a digit.
func ExtractHex(s string) ([]byte, error) {
	digits := make([]byte, 0, len(s)+1)
	for i := 0; i < len(s); i++ {
		if isHexDigit(s[i]) {
			digits = append(digits, s[i])
		}
	}
	if len(digits) == 0 {
		return nil, fmt.Errorf("%w in %q", ErrNoHexDigits, s)
	}
	if len(digits)%2 != 0 {
		digits = append([]byte{'0'}, digits...)
	}
	out := make([]byte, len(digits)/2)
	for i := range out {
		out[i] = hexValue(digits[2*i])<<4 | hexValue(digits[2*i+1])
	}
	return out, nil
}

// DecodeHexLiteral decodes a hex literal such as "0x01 06" or "01-06".
// Whitespace is removed, then one leading "0x" prefix, then non-hex characters.
func DecodeHexLiteral(s string) ([]byte, error) {
	compact := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	if len(compact) >= 2 && compact[0] == '0' && (compact[1] == 'x' || compact[1] == 'X') {
		compact = compact[2:]
	}
	return ExtractHex(compact)
}
