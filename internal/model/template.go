// internal/model/template.go
package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidTemplate marks a template with an unrecognised enum value
var ErrInvalidTemplate = errors.New("invalid template")

// ProtocolType represents how commands are encoded
type ProtocolType string

const (
	ProtocolTypeUnknown ProtocolType = ""
	ProtocolTypeString  ProtocolType = "STRING"
	ProtocolTypeByte    ProtocolType = "BYTE"
)

// ParamLocation represents where a parameter value is stored
type ParamLocation string

const (
	ParamLocationUnknown ParamLocation = ""
	ParamLocationGlobal  ParamLocation = "GLOBAL"
	ParamLocationChannel ParamLocation = "CHANNEL"
)

// ValueType represents the declared type of a parameter value
type ValueType string

const (
	ValueTypeInt    ValueType = "INT"
	ValueTypeDouble ValueType = "DOUBLE"
	ValueTypeBool   ValueType = "BOOL"
	ValueTypeString ValueType = "STRING"
	ValueTypeEnum   ValueType = "ENUM"
	ValueTypeBytes  ValueType = "BYTES"
)

// CommandScope represents whether a command addresses the controller or one channel
type CommandScope string

const (
	CommandScopeGlobal  CommandScope = "GLOBAL"
	CommandScopeChannel CommandScope = "CHANNEL"
)

// CommandWhen represents when a command is triggered
type CommandWhen string

const (
	CommandWhenOnChange CommandWhen = "ON_CHANGE"
	CommandWhenOnCommit CommandWhen = "ON_COMMIT"
	CommandWhenManual   CommandWhen = "MANUAL"
)

// CommitPolicy represents whether a parameter write is saved, sent or both
type CommitPolicy string

const (
	CommitSendOnly    CommitPolicy = "SEND_ONLY"
	CommitSaveOnly    CommitPolicy = "SAVE_ONLY"
	CommitSaveAndSend CommitPolicy = "SAVE_AND_SEND"
)

// Header and tail names understood by the framing layer
const (
	HeaderEmpty      = "EMPTY"
	HeaderModbusMBAP = "ModbusTCP_MBAP"
	TailEmpty        = "EMPTY"
	TailCRC16Modbus  = "CRC_16_Modbus"
)

// ByteTransmissionParams is shared by the frame wrapper and the frame parser
// so that encoding and decoding agree.
type ByteTransmissionParams struct {
	HeaderType    string `json:"header_type" mapstructure:"header_type"`
	TailType      string `json:"tail_type" mapstructure:"tail_type"`
	DeviceAddress string `json:"device_address" mapstructure:"device_address"`
	CRCEndian     bool   `json:"crc_endian" mapstructure:"crc_endian"`
}

// IsMBAP reports whether the header selects Modbus-TCP framing
func (p ByteTransmissionParams) IsMBAP() bool {
	return strings.EqualFold(strings.TrimSpace(p.HeaderType), HeaderModbusMBAP)
}

// IsCRC16 reports whether the tail selects a CRC16-Modbus check
func (p ByteTransmissionParams) IsCRC16() bool {
	return strings.EqualFold(strings.TrimSpace(p.TailType), TailCRC16Modbus)
}

// HeaderIsEmpty reports whether no header is configured
func (p ByteTransmissionParams) HeaderIsEmpty() bool {
	return isEmptyMarker(p.HeaderType)
}

// TailIsEmpty reports whether no tail is configured
func (p ByteTransmissionParams) TailIsEmpty() bool {
	return isEmptyMarker(p.TailType)
}

func isEmptyMarker(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || strings.EqualFold(s, "EMPTY")
}

// PlaceholderRule resolves one <name> token of a command template
type PlaceholderRule struct {
	Source     string   `json:"source" mapstructure:"source"`
	Endian     bool     `json:"endian" mapstructure:"endian"`
	ParserTool string   `json:"parser_tool" mapstructure:"parser_tool"`
	ExtraParam []string `json:"extra_param" mapstructure:"extra_param"`
}

// CommandRule describes how a parameter write becomes a command
type CommandRule struct {
	When         CommandWhen                `json:"when" mapstructure:"when"`
	Scope        CommandScope               `json:"scope" mapstructure:"scope"`
	Commit       CommitPolicy               `json:"commit" mapstructure:"commit"`
	CmdTemplate  string                     `json:"cmd_template" mapstructure:"cmd_template"`
	Placeholders map[string]PlaceholderRule `json:"placeholders" mapstructure:"placeholders"`
}

// ParamDef is one parameter declared by a template
type ParamDef struct {
	Key          string        `json:"key" mapstructure:"key"`
	Location     ParamLocation `json:"location" mapstructure:"location"`
	DisplayName  string        `json:"display_name" mapstructure:"display_name"`
	ValueType    ValueType     `json:"value_type" mapstructure:"value_type"`
	DefaultValue string        `json:"default_value" mapstructure:"default_value"`
	Command      CommandRule   `json:"command" mapstructure:"command"`
}

// TemplateInfo carries template metadata
type TemplateInfo struct {
	TemplateID      string                 `json:"template_id" mapstructure:"template_id"`
	TemplateVersion string                 `json:"template_version" mapstructure:"template_version"`
	Factory         string                 `json:"factory" mapstructure:"factory"`
	ControllerModel string                 `json:"controller_model" mapstructure:"controller_model"`
	ControllerType  string                 `json:"controller_type" mapstructure:"controller_type"`
	ChannelMax      int                    `json:"channel_max" mapstructure:"channel_max"`
	ConnectTypes    []ConnectType          `json:"connect_types" mapstructure:"connect_types"`
	ProtocolType    ProtocolType           `json:"protocol_type" mapstructure:"protocol_type"`
	ByteParams      ByteTransmissionParams `json:"byte_transmission_params" mapstructure:"byte_transmission_params"`
}

// TemplateDef describes one controller model and its parameters
type TemplateDef struct {
	Info   TemplateInfo        `json:"info" mapstructure:"info"`
	Params map[string]ParamDef `json:"params" mapstructure:"params"`
}

// ParseProtocolType maps a case-insensitive name to a ProtocolType
func ParseProtocolType(s string) ProtocolType {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "STRING":
		return ProtocolTypeString
	case "BYTE":
		return ProtocolTypeByte
	default:
		return ProtocolTypeUnknown
	}
}

// ParseParamLocation maps a case-insensitive name to a ParamLocation
func ParseParamLocation(s string) ParamLocation {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "GLOBAL":
		return ParamLocationGlobal
	case "CHANNEL":
		return ParamLocationChannel
	default:
		return ParamLocationUnknown
	}
}

// ParseCommitPolicy maps a case-insensitive name to a CommitPolicy; "" when unknown
func ParseCommitPolicy(s string) CommitPolicy {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "SEND_ONLY":
		return CommitSendOnly
	case "SAVE_ONLY":
		return CommitSaveOnly
	case "SAVE_AND_SEND":
		return CommitSaveAndSend
	default:
		return ""
	}
}

// Normalize rewrites protocol type, connect types, parameter locations and
// commit policies to their canonical spelling. Empty values stay empty; any
// other unrecognised value is an ErrInvalidTemplate.
func (t *TemplateDef) Normalize() error {
	if raw := string(t.Info.ProtocolType); raw != "" {
		if t.Info.ProtocolType = ParseProtocolType(raw); t.Info.ProtocolType == ProtocolTypeUnknown {
			return fmt.Errorf("%w: protocol_type %q", ErrInvalidTemplate, raw)
		}
	}
	for i, ct := range t.Info.ConnectTypes {
		if t.Info.ConnectTypes[i] = ParseConnectType(string(ct)); t.Info.ConnectTypes[i] == ConnectTypeUnknown {
			return fmt.Errorf("%w: connect type %q", ErrInvalidTemplate, ct)
		}
	}

	for key, def := range t.Params {
		if raw := string(def.Location); raw != "" {
			if def.Location = ParseParamLocation(raw); def.Location == ParamLocationUnknown {
				return fmt.Errorf("%w: param %s location %q", ErrInvalidTemplate, key, raw)
			}
		}
		if raw := string(def.Command.Commit); raw != "" {
			if def.Command.Commit = ParseCommitPolicy(raw); def.Command.Commit == "" {
				return fmt.Errorf("%w: param %s commit %q", ErrInvalidTemplate, key, raw)
			}
		}
		t.Params[key] = def
	}
	return nil
}

// FindParam looks up a parameter definition by key
func (t *TemplateDef) FindParam(key string) (ParamDef, bool) {
	def, ok := t.Params[key]
	return def, ok
}
