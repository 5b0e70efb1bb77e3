package framing

import "errors"

var (
	ErrEmptyPDU             = errors.New("pdu is empty")
	ErrPDUTooLarge          = errors.New("pdu too large for MBAP length field")
	ErrInvalidDeviceAddress = errors.New("device address is invalid or empty")
	ErrUnsupportedFraming   = errors.New("unsupported header/tail combination")
	ErrPassthroughDisabled  = errors.New("EMPTY/EMPTY passthrough is disabled in strict mode")
	ErrFrameTooShort        = errors.New("frame too short")
	ErrMBAPLength           = errors.New("MBAP length field invalid")
	ErrCRCMismatch          = errors.New("CRC check failed")
	ErrNoHexDigits          = errors.New("no hex digits")
	ErrBufferOverflow       = errors.New("receive buffer overflow")
)
