package transport

import (
	"errors"
	"fmt"
)

// Error codes reported through Error and the OnError callback
const (
	CodeUnknownConnectType = 1001
	CodeInvalidConfig      = 1002
	CodeCreateFailed       = 1003
	CodeConnectFailed      = 1004
	CodeNoBackend          = 2001
	CodeNotConnected       = 2002
	CodeEmptyPayload       = 2003
	CodeWriteFailed        = 2004
	CodeReadFailed         = 3001
	CodeAcceptFailed       = 3002
)

var (
	ErrUnknownConnectType = errors.New("unknown connect type")
	ErrInvalidConfig      = errors.New("invalid connection config")
	ErrNoBackend          = errors.New("transport backend not created")
	ErrNotConnected       = errors.New("not connected")
	ErrEmptyPayload       = errors.New("empty payload")
	ErrClosed             = errors.New("transport closed")
)

// Error is a transport failure with a numeric code
type Error struct {
	Code int
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s failed (code %d): %v", e.Op, e.Code, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(code int, op string, err error) *Error {
	return &Error{Code: code, Op: op, Err: err}
}

// CodeOf extracts the code of a transport error, or 0
func CodeOf(err error) int {
	var te *Error
	if errors.As(err, &te) {
		return te.Code
	}
	return 0
}
