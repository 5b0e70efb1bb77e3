// internal/utils/logger.go
package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"light-controller-service/internal/config"
)

const defaultLogFile = "./logs/light-controller-service.log"

// NewLogger builds the process logger from the logging section
func NewLogger(cfg *config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	sink, err := logSink(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create log sink: %w", err)
	}

	core := zapcore.NewCore(logEncoder(cfg.Format), sink, level)
	return zap.New(core,
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	), nil
}

func logEncoder(format string) zapcore.Encoder {
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "timestamp"
	ec.MessageKey = "message"
	ec.EncodeTime = zapcore.TimeEncoderOfLayout(time.RFC3339)
	ec.EncodeLevel = zapcore.LowercaseLevelEncoder
	ec.EncodeCaller = zapcore.ShortCallerEncoder

	if format == "console" {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		ec.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")
		return zapcore.NewConsoleEncoder(ec)
	}
	return zapcore.NewJSONEncoder(ec)
}

// logSink maps output to stdout, stderr or a rotated file
func logSink(cfg *config.LoggingConfig) (zapcore.WriteSyncer, error) {
	switch cfg.Output {
	case "stdout":
		return zapcore.Lock(os.Stdout), nil
	case "stderr":
		return zapcore.Lock(os.Stderr), nil
	}

	path := cfg.Output
	if path == "" {
		path = defaultLogFile
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}), nil
}

// ControllerLogger carries instance and template ids on every entry
type ControllerLogger struct {
	*zap.Logger
}

// NewControllerLogger creates a controller-scoped logger
func NewControllerLogger(base *zap.Logger, instanceID, templateID string) *ControllerLogger {
	if base == nil {
		base = zap.NewNop()
	}
	return &ControllerLogger{Logger: base.With(
		zap.String("component", "controller"),
		zap.String("instance_id", instanceID),
		zap.String("template_id", templateID),
	)}
}

// LogConnection logs a connect, disconnect or reconnect attempt
func (cl *ControllerLogger) LogConnection(action string, success bool, err error) {
	if err != nil {
		cl.Error("Controller connection event",
			zap.String("action", action), zap.Bool("success", success), zap.Error(err))
		return
	}
	cl.Info("Controller connection event", zap.String("action", action), zap.Bool("success", success))
}

// LogTxFrame logs an outgoing command
func (cl *ControllerLogger) LogTxFrame(printable string, size int) {
	cl.Info("TX", zap.String("frame", printable), zap.Int("bytes", size))
}

// LogRxFrame logs a received chunk or frame
func (cl *ControllerLogger) LogRxFrame(peer, printable string) {
	cl.Debug("RX", zap.String("peer", peer), zap.String("frame", printable))
}

// LogParamSet logs a parameter write and its result
func (cl *ControllerLogger) LogParamSet(paramKey, channelID, value string, duration time.Duration, ok bool, message string) {
	fields := []zap.Field{
		zap.String("param_key", paramKey),
		zap.String("channel_id", channelID),
		zap.String("value", value),
		zap.Duration("duration", duration),
		zap.String("result", message),
	}
	if ok {
		cl.Info("Parameter set", fields...)
		return
	}
	cl.Warn("Parameter set failed", fields...)
}

// ServiceLogger tags entries with a service name
type ServiceLogger struct {
	*zap.Logger
}

// NewServiceLogger creates a service-scoped logger
func NewServiceLogger(base *zap.Logger, serviceName string) *ServiceLogger {
	if base == nil {
		base = zap.NewNop()
	}
	return &ServiceLogger{Logger: base.With(zap.String("service", serviceName))}
}

// LogServiceStart logs startup with the effective configuration
func (sl *ServiceLogger) LogServiceStart(version string, cfg interface{}) {
	sl.Info("Service starting", zap.String("version", version), zap.Any("config", cfg))
}

// LogServiceStop logs shutdown
func (sl *ServiceLogger) LogServiceStop(reason string) {
	sl.Info("Service stopping", zap.String("reason", reason))
}

// APIRequest is one served HTTP request
type APIRequest struct {
	Method     string
	Path       string
	RequestID  string
	InstanceID string
	ClientIP   string
	UserAgent  string
	Status     int
	Duration   time.Duration
}

// LogAPIRequest logs a served request; 4xx at warn and 5xx at error
func (sl *ServiceLogger) LogAPIRequest(req APIRequest) {
	level := zapcore.InfoLevel
	switch {
	case req.Status >= 500:
		level = zapcore.ErrorLevel
	case req.Status >= 400:
		level = zapcore.WarnLevel
	}

	ce := sl.Check(level, "API request")
	if ce == nil {
		return
	}
	fields := []zap.Field{
		zap.String("method", req.Method),
		zap.String("path", req.Path),
		zap.Int("status_code", req.Status),
		zap.Duration("duration", req.Duration),
		zap.String("client_ip", req.ClientIP),
		zap.String("user_agent", req.UserAgent),
	}
	if req.RequestID != "" {
		fields = append(fields, zap.String("request_id", req.RequestID))
	}
	if req.InstanceID != "" {
		fields = append(fields, zap.String("instance_id", req.InstanceID))
	}
	ce.Write(fields...)
}

// CloseLogger flushes buffered entries
func CloseLogger(logger *zap.Logger) error {
	return logger.Sync()
}
