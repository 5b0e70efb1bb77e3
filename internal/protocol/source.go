package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// resolveSource maps a placeholder source to its raw value.
// channel_num is one-based, channel_index zero-based.
func resolveSource(source, paramValue string, channelIndex int) (string, error) {
	switch strings.ToLower(strings.TrimSpace(source)) {
	case "param_value":
		return paramValue, nil
	case "channel_num":
		return strconv.Itoa(channelIndex + 1), nil
	case "channel_index":
		return strconv.Itoa(channelIndex), nil
	case "", "empty":
		return "", nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownSource, source)
	}
}
