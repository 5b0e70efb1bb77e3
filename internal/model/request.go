// internal/model/request.go
package model

// ParamSetRequest asks a runtime to write one parameter value
type ParamSetRequest struct {
	InstanceID string        `json:"instance_id"`
	ParamKey   string        `json:"param_key" binding:"required"`
	Location   ParamLocation `json:"location"`
	ChannelID  string        `json:"channel_id,omitempty"`
	Value      string        `json:"value"`
}

// ParamSetResult reports the outcome of a ParamSetRequest
type ParamSetResult struct {
	OK         bool   `json:"ok"`
	Message    string `json:"message"`
	CommandOut string `json:"command_out,omitempty"`
}

// BuiltPayload is the transient output of one build pass
type BuiltPayload struct {
	ProtocolType ProtocolType
	StringCmd    string
	FrameBytes   []byte
	Printable    string
}
