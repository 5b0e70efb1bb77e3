// internal/protocol/registry.go
package protocol

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// StringTool transforms a resolved placeholder value into substitution text
type StringTool func(input string, extra []string) (string, error)

// BytesTool transforms a resolved placeholder value into bytes.
// bigEndian comes from the placeholder rule's endian flag.
type BytesTool func(input string, extra []string, bigEndian bool) ([]byte, error)

// Factory builds commands from templates. It owns the tool registries and is
// safe for concurrent use; construct one per process and share it.
type Factory struct {
	stringTools map[string]StringTool
	bytesTools  map[string]BytesTool
	mu          sync.RWMutex
	logger      *zap.Logger
}

// NewFactory creates a factory with the built-in tools registered
func NewFactory(logger *zap.Logger) *Factory {
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &Factory{
		stringTools: make(map[string]StringTool),
		bytesTools:  make(map[string]BytesTool),
		logger:      logger.With(zap.String("component", "protocol-factory")),
	}

	f.RegisterStringTool("DoNothing", toolDoNothing)
	f.RegisterStringTool("NumberToUpperAlpha", toolNumberToUpperAlpha)
	f.RegisterStringTool("NumberToFixedDec", toolNumberToFixedDec)
	f.RegisterStringTool("GetStringMapValue", toolGetStringMapValue)
	f.RegisterStringTool("DigitalCharacterCalculation", toolDigitalCharacterCalculation)

	f.RegisterBytesTool("ByteConversion", toolByteConversion)
	f.RegisterBytesTool("GetRawData", toolGetRawData)
	f.RegisterBytesTool("GetStringMapValueToBytes", toolGetStringMapValueToBytes)

	return f
}

// RegisterStringTool adds or replaces a string tool
func (f *Factory) RegisterStringTool(name string, tool StringTool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.stringTools[name] = tool
	f.logger.Debug("String tool registered", zap.String("tool", name))
}

// RegisterBytesTool adds or replaces a bytes tool
func (f *Factory) RegisterBytesTool(name string, tool BytesTool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.bytesTools[name] = tool
	f.logger.Debug("Bytes tool registered", zap.String("tool", name))
}

// StringTools lists registered string tool names
func (f *Factory) StringTools() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	names := make([]string, 0, len(f.stringTools))
	for name := range f.stringTools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BytesTools lists registered bytes tool names
func (f *Factory) BytesTools() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	names := make([]string, 0, len(f.bytesTools))
	for name := range f.bytesTools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (f *Factory) stringTool(name string) (StringTool, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	tool, ok := f.stringTools[name]
	return tool, ok
}

func (f *Factory) bytesTool(name string) (BytesTool, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	tool, ok := f.bytesTools[name]
	return tool, ok
}

// applyString runs the named string tool. An empty name means DoNothing.
func (f *Factory) applyString(toolName, raw string, extra []string) (string, error) {
	name := strings.TrimSpace(toolName)
	if name == "" {
		name = "DoNothing"
	}
	tool, ok := f.stringTool(name)
	if !ok {
		return "", fmt.Errorf("%w (string): %s", ErrUnknownTool, name)
	}
	out, err := tool(raw, extra)
	if err != nil {
		return "", fmt.Errorf("parser_tool %q failed: %w", name, err)
	}
	return out, nil
}
