// internal/protocol/tools_string.go
package protocol

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

func toolDoNothing(input string, _ []string) (string, error) {
	return strings.TrimSpace(input), nil
}

// toolNumberToUpperAlpha maps 1..26 to a letter; extra[0] "true" selects upper case
func toolNumberToUpperAlpha(input string, extra []string) (string, error) {
	v := strings.TrimSpace(input)
	if v == "" {
		return "", fmt.Errorf("%w: NumberToUpperAlpha: empty input", ErrInvalidToolInput)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return "", fmt.Errorf("%w: NumberToUpperAlpha: invalid decimal %q", ErrInvalidToolInput, v)
	}
	if n < 1 || n > 26 {
		return "", fmt.Errorf("%w: NumberToUpperAlpha: %d out of range [1..26]", ErrInvalidToolInput, n)
	}
	if len(extra) == 0 {
		return "", fmt.Errorf("%w: NumberToUpperAlpha: missing extra_param[0]=true/false", ErrInvalidToolInput)
	}

	var base byte
	switch strings.ToLower(strings.TrimSpace(extra[0])) {
	case "true":
		base = 'A'
	case "false":
		base = 'a'
	default:
		return "", fmt.Errorf("%w: NumberToUpperAlpha: extra_param[0] must be true/false", ErrInvalidToolInput)
	}
	return string(rune(base + byte(n-1))), nil
}

// toolNumberToFixedDec zero-pads a signed decimal to extra[0] digits
func toolNumberToFixedDec(input string, extra []string) (string, error) {
	v := strings.TrimSpace(input)
	if v == "" {
		return "", fmt.Errorf("%w: NumberToFixedDec: empty input", ErrInvalidToolInput)
	}
	if len(extra) == 0 {
		return "", fmt.Errorf("%w: NumberToFixedDec: missing extra_param[0]=width", ErrInvalidToolInput)
	}
	width, err := strconv.Atoi(strings.TrimSpace(extra[0]))
	if err != nil {
		return "", fmt.Errorf("%w: NumberToFixedDec: width invalid", ErrInvalidToolInput)
	}
	if width < 0 || width > 100000 {
		return "", fmt.Errorf("%w: NumberToFixedDec: width %d out of range", ErrInvalidToolInput, width)
	}

	sign, digits := "", v
	if v[0] == '+' || v[0] == '-' {
		sign, digits = v[:1], v[1:]
		if digits == "" {
			return "", fmt.Errorf("%w: NumberToFixedDec: invalid signed decimal", ErrInvalidToolInput)
		}
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return "", fmt.Errorf("%w: NumberToFixedDec: invalid decimal %q", ErrInvalidToolInput, v)
		}
	}
	if len(digits) >= width {
		return v, nil
	}
	return sign + strings.Repeat("0", width-len(digits)) + digits, nil
}

// lookupLabel finds the value of a "label<value>" item whose label matches key case-insensitively
func lookupLabel(key string, items []string) (string, bool) {
	want := strings.ToLower(strings.TrimSpace(key))
	for _, item := range items {
		item = strings.TrimSpace(item)
		lt := strings.LastIndexByte(item, '<')
		if lt < 0 {
			continue
		}
		gt := strings.IndexByte(item[lt+1:], '>')
		if gt <= 0 {
			continue
		}
		label := strings.ToLower(strings.TrimSpace(item[:lt]))
		if label == want {
			return strings.TrimSpace(item[lt+1 : lt+1+gt]), true
		}
	}
	return "", false
}

func toolGetStringMapValue(input string, extra []string) (string, error) {
	key := strings.TrimSpace(input)
	if key == "" {
		return "", fmt.Errorf("%w: GetStringMapValue: empty input", ErrInvalidToolInput)
	}
	if len(extra) == 0 {
		return "", fmt.Errorf("%w: GetStringMapValue: extra_param empty", ErrInvalidToolInput)
	}
	v, ok := lookupLabel(key, extra)
	if !ok {
		return "", fmt.Errorf("%w: GetStringMapValue: no mapping for %q", ErrInvalidToolInput, key)
	}
	return v, nil
}

// toolDigitalCharacterCalculation applies extra[1] (add/subtract/multiply/divide/modulo)
// with operand extra[0] to the integer input
func toolDigitalCharacterCalculation(input string, extra []string) (string, error) {
	lhs := strings.TrimSpace(input)
	if lhs == "" {
		return "", fmt.Errorf("%w: DigitalCharacterCalculation: empty input", ErrInvalidToolInput)
	}
	if len(extra) < 2 {
		return "", fmt.Errorf("%w: DigitalCharacterCalculation: need extra_param[0]=operand, [1]=operator", ErrInvalidToolInput)
	}
	a, err := strconv.ParseInt(lhs, 10, 64)
	if err != nil {
		return "", fmt.Errorf("%w: invalid integer %q", ErrInvalidToolInput, lhs)
	}
	b, err := strconv.ParseInt(strings.TrimSpace(extra[0]), 10, 64)
	if err != nil {
		return "", fmt.Errorf("%w: invalid integer %q", ErrInvalidToolInput, extra[0])
	}

	var r int64
	overflow := false
	switch strings.ToLower(strings.TrimSpace(extra[1])) {
	case "add":
		r = a + b
		overflow = (b > 0 && r < a) || (b < 0 && r > a)
	case "subtract":
		r = a - b
		overflow = (b < 0 && r < a) || (b > 0 && r > a)
	case "multiply":
		r = a * b
		overflow = a != 0 && (r/a != b || (a == -1 && b == math.MinInt64))
	case "divide":
		if b == 0 {
			return "", fmt.Errorf("%w: division by zero", ErrInvalidToolInput)
		}
		overflow = a == math.MinInt64 && b == -1
		r = a / b
	case "modulo":
		if b == 0 {
			return "", fmt.Errorf("%w: modulo by zero", ErrInvalidToolInput)
		}
		if b != -1 {
			r = a % b
		}
	default:
		return "", fmt.Errorf("%w: operator must be add/subtract/multiply/divide/modulo", ErrInvalidToolInput)
	}
	if overflow {
		return "", fmt.Errorf("%w: integer overflow", ErrInvalidToolInput)
	}
	return strconv.FormatInt(r, 10), nil
}
