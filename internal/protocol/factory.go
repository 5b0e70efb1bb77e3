// internal/protocol/factory.go
package protocol

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"light-controller-service/internal/framing"
	"light-controller-service/internal/model"
)

const deviceAddressToken = "DeviceAddress"

type placeholder struct {
	start, end int // [start, end) covers "<...>"
	name       string
}

// scanPlaceholders finds closed, non-empty <name> tokens. An unclosed '<' ends the scan.
func scanPlaceholders(tpl string) []placeholder {
	var out []placeholder
	for i := 0; i < len(tpl); {
		lt := strings.IndexByte(tpl[i:], '<')
		if lt < 0 {
			break
		}
		lt += i
		gt := strings.IndexByte(tpl[lt+1:], '>')
		if gt < 0 {
			break
		}
		gt += lt + 1
		if name := strings.TrimSpace(tpl[lt+1 : gt]); name != "" {
			out = append(out, placeholder{start: lt, end: gt + 1, name: name})
		}
		i = gt + 1
	}
	return out
}

func uniqueNames(tokens []placeholder) []string {
	seen := make(map[string]struct{}, len(tokens))
	names := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if _, ok := seen[tok.name]; ok {
			continue
		}
		seen[tok.name] = struct{}{}
		names = append(names, tok.name)
	}
	sort.Strings(names)
	return names
}

// BuildCommand renders a STRING protocol command. Each distinct placeholder is
// resolved once and every occurrence is replaced.
func (f *Factory) BuildCommand(rule model.CommandRule, value string, channelIndex int) (string, error) {
	tpl := rule.CmdTemplate
	if tpl == "" {
		return "", ErrEmptyTemplate
	}

	tokens := scanPlaceholders(tpl)
	resolved := make(map[string]string, len(tokens))
	for _, name := range uniqueNames(tokens) {
		ph, ok := rule.Placeholders[name]
		if !ok {
			return "", fmt.Errorf("%w for <%s>", ErrMissingPlaceholder, name)
		}
		raw, err := resolveSource(ph.Source, value, channelIndex)
		if err != nil {
			return "", fmt.Errorf("placeholder <%s>: %w", name, err)
		}
		text, err := f.applyString(ph.ParserTool, raw, ph.ExtraParam)
		if err != nil {
			return "", fmt.Errorf("placeholder <%s>: %w", name, err)
		}
		resolved[name] = text
	}

	var sb strings.Builder
	last := 0
	for _, tok := range tokens {
		sb.WriteString(tpl[last:tok.start])
		sb.WriteString(resolved[tok.name])
		last = tok.end
	}
	sb.WriteString(tpl[last:])

	out := sb.String()
	if out == "" {
		return "", ErrEmptyResult
	}
	return out, nil
}

// BuildBytesCommand renders a BYTE protocol PDU. Literal runs contribute their hex
// digits; placeholders go through the bytes tools. The device address is never part
// of the PDU.
func (f *Factory) BuildBytesCommand(rule model.CommandRule, value string, channelIndex int) ([]byte, error) {
	tpl := rule.CmdTemplate
	if tpl == "" {
		return nil, ErrEmptyTemplate
	}
	if strings.Contains(tpl, "<"+deviceAddressToken+">") {
		return nil, ErrDeviceAddressInTemplate
	}

	var out []byte
	pos := 0
	for pos < len(tpl) {
		lt := strings.IndexByte(tpl[pos:], '<')
		if lt < 0 {
			out = appendLiteral(out, tpl[pos:])
			break
		}
		lt += pos
		out = appendLiteral(out, tpl[pos:lt])

		gt := strings.IndexByte(tpl[lt+1:], '>')
		if gt < 0 {
			return nil, ErrUnclosedPlaceholder
		}
		gt += lt + 1
		name := strings.TrimSpace(tpl[lt+1 : gt])
		if name == "" {
			return nil, ErrEmptyPlaceholderName
		}
		if name == deviceAddressToken {
			return nil, ErrDeviceAddressInTemplate
		}

		ph, ok := rule.Placeholders[name]
		if !ok {
			return nil, fmt.Errorf("%w for <%s>", ErrMissingPlaceholder, name)
		}
		raw, err := resolveSource(ph.Source, value, channelIndex)
		if err != nil {
			return nil, fmt.Errorf("placeholder <%s>: %w", name, err)
		}
		b, err := f.applyBytes(ph, raw)
		if err != nil {
			return nil, fmt.Errorf("placeholder <%s>: %w", name, err)
		}
		out = append(out, b...)
		pos = gt + 1
	}

	if len(out) == 0 {
		return nil, ErrEmptyResult
	}
	return out, nil
}

// appendLiteral appends the hex digits of a literal run; runs without digits add nothing
func appendLiteral(out []byte, text string) []byte {
	b, err := framing.ExtractHex(text)
	if err != nil {
		return out
	}
	return append(out, b...)
}

// applyBytes runs a bytes tool, or a string tool whose output is read as hex
func (f *Factory) applyBytes(ph model.PlaceholderRule, raw string) ([]byte, error) {
	name := strings.TrimSpace(ph.ParserTool)
	if name == "" {
		return nil, ErrMissingParserTool
	}

	if tool, ok := f.bytesTool(name); ok {
		out, err := tool(raw, ph.ExtraParam, ph.Endian)
		if err != nil {
			return nil, fmt.Errorf("bytes parser_tool %q failed: %w", name, err)
		}
		return out, nil
	}

	if tool, ok := f.stringTool(name); ok {
		text, err := tool(raw, ph.ExtraParam)
		if err != nil {
			return nil, fmt.Errorf("string parser_tool %q failed: %w", name, err)
		}
		out, err := framing.ExtractHex(text)
		if err != nil {
			return nil, fmt.Errorf("string parser_tool %q output: %w", name, err)
		}
		f.logger.Debug("String tool used in BYTE mode", zap.String("tool", name), zap.String("output", text))
		return out, nil
	}

	return nil, fmt.Errorf("%w (bytes): %s", ErrUnknownTool, name)
}

// Build dispatches on the protocol type and fills a BuiltPayload.
// For BYTE the payload holds the bare PDU; framing is added later.
func (f *Factory) Build(protocol model.ProtocolType, rule model.CommandRule, value string, channelIndex int) (model.BuiltPayload, error) {
	switch protocol {
	case model.ProtocolTypeString:
		cmd, err := f.BuildCommand(rule, value, channelIndex)
		if err != nil {
			return model.BuiltPayload{}, err
		}
		return model.BuiltPayload{ProtocolType: protocol, StringCmd: cmd, Printable: cmd}, nil
	case model.ProtocolTypeByte:
		pdu, err := f.BuildBytesCommand(rule, value, channelIndex)
		if err != nil {
			return model.BuiltPayload{}, err
		}
		return model.BuiltPayload{ProtocolType: protocol, FrameBytes: pdu, Printable: framing.FormatHex(pdu)}, nil
	default:
		return model.BuiltPayload{}, fmt.Errorf("%w: %q", ErrUnsupportedProtocol, protocol)
	}
}

// IsConfigError reports whether err comes from template or rule configuration
// rather than from the runtime value
func IsConfigError(err error) bool {
	for _, target := range []error{
		ErrEmptyTemplate, ErrMissingPlaceholder, ErrUnknownSource, ErrUnknownTool,
		ErrMissingParserTool, ErrDeviceAddressInTemplate, ErrUnclosedPlaceholder,
		ErrEmptyPlaceholderName, ErrUnsupportedProtocol,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
