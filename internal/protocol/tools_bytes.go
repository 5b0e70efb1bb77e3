// internal/protocol/tools_bytes.go
package protocol

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"light-controller-service/internal/framing"
)

func parseDecimalU64(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty decimal", ErrInvalidToolInput)
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid decimal %q", ErrInvalidToolInput, s)
	}
	return v, nil
}

// parseLooseHexU64 reads the hex digits of s as one number; no digits means zero
func parseLooseHexU64(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	var digits strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F') {
			digits.WriteByte(c)
		}
	}
	if digits.Len() == 0 {
		return 0, nil
	}
	v, err := strconv.ParseUint(digits.String(), 16, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: hex %q too large", ErrInvalidToolInput, s)
	}
	return v, nil
}

// toolByteConversion emits base+increment as a fixed-width integer.
// extra: [0]=width in bytes (1..8), [1]=base as hex, [2]=default increment as decimal.
// A non-empty input overrides the default increment.
func toolByteConversion(input string, extra []string, bigEndian bool) ([]byte, error) {
	if len(extra) < 3 {
		return nil, fmt.Errorf("%w: ByteConversion: need extra_param[0]=bytes,[1]=base_hex,[2]=inc_dec", ErrInvalidToolInput)
	}
	width, err := parseDecimalU64(extra[0])
	if err != nil {
		return nil, err
	}
	if width < 1 || width > 8 {
		return nil, fmt.Errorf("%w: ByteConversion: bytes must be in [1..8]", ErrInvalidToolInput)
	}
	base, err := parseLooseHexU64(extra[1])
	if err != nil {
		return nil, err
	}
	incSrc := strings.TrimSpace(input)
	if incSrc == "" {
		incSrc = extra[2]
	}
	inc, err := parseDecimalU64(incSrc)
	if err != nil {
		return nil, err
	}

	maxv := uint64(math.MaxUint64)
	if width < 8 {
		maxv = 1<<(8*width) - 1
	}
	switch {
	case base > maxv:
		return nil, fmt.Errorf("%w: ByteConversion: base exceeds width", ErrInvalidToolInput)
	case inc > maxv:
		return nil, fmt.Errorf("%w: ByteConversion: increment exceeds width", ErrInvalidToolInput)
	case inc > maxv-base:
		return nil, fmt.Errorf("%w: ByteConversion: addition overflow", ErrInvalidToolInput)
	}
	sum := base + inc

	out := make([]byte, width)
	for i := uint64(0); i < width; i++ {
		if bigEndian {
			out[i] = byte(sum >> (8 * (width - 1 - i)))
		} else {
			out[i] = byte(sum >> (8 * i))
		}
	}
	return out, nil
}

func toolGetRawData(_ string, extra []string, _ bool) ([]byte, error) {
	if len(extra) == 0 {
		return nil, fmt.Errorf("%w: GetRawData: extra_param[0] required", ErrInvalidToolInput)
	}
	out, err := framing.DecodeHexLiteral(extra[0])
	if err != nil {
		return nil, fmt.Errorf("%w: GetRawData: %v", ErrInvalidToolInput, err)
	}
	return out, nil
}

// toolGetStringMapValueToBytes looks up "label<hex>" and emits the hex bytes,
// reversed when little-endian is requested
func toolGetStringMapValueToBytes(input string, extra []string, bigEndian bool) ([]byte, error) {
	key := strings.TrimSpace(input)
	if key == "" {
		return nil, fmt.Errorf("%w: GetStringMapValueToBytes: empty input", ErrInvalidToolInput)
	}
	if len(extra) == 0 {
		return nil, fmt.Errorf("%w: GetStringMapValueToBytes: extra_param empty", ErrInvalidToolInput)
	}
	hexText, ok := lookupLabel(key, extra)
	if !ok {
		return nil, fmt.Errorf("%w: GetStringMapValueToBytes: no mapping for %q", ErrInvalidToolInput, key)
	}
	out, err := framing.DecodeHexLiteral(hexText)
	if err != nil {
		return nil, fmt.Errorf("%w: GetStringMapValueToBytes: %v", ErrInvalidToolInput, err)
	}
	if !bigEndian {
		slices.Reverse(out)
	}
	return out, nil
}
