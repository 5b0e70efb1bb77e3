package protocol

import "errors"

var (
	ErrEmptyTemplate           = errors.New("cmd_template is empty")
	ErrEmptyResult             = errors.New("command result is empty")
	ErrMissingPlaceholder      = errors.New("missing placeholder rule")
	ErrUnknownSource           = errors.New("unsupported placeholder source")
	ErrUnknownTool             = errors.New("unknown parser_tool")
	ErrMissingParserTool       = errors.New("BYTE mode requires a parser_tool")
	ErrDeviceAddressInTemplate = errors.New("BYTE cmd_template must not contain <DeviceAddress>")
	ErrUnclosedPlaceholder     = errors.New("missing '>' for placeholder")
	ErrEmptyPlaceholderName    = errors.New("empty placeholder name")
	ErrInvalidToolInput        = errors.New("invalid tool input")
	ErrUnsupportedProtocol     = errors.New("unsupported protocol type")
)
