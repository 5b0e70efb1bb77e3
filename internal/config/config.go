// internal/config/config.go
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"light-controller-service/internal/model"
)

// Config represents the application configuration
type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Server      ServerConfig      `mapstructure:"server"`
	Security    SecurityConfig    `mapstructure:"security"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Transport   TransportConfig   `mapstructure:"transport"`
	Framing     FramingConfig     `mapstructure:"framing"`
	Events      EventsConfig      `mapstructure:"events"`
	Controllers []ControllerEntry `mapstructure:"controllers"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// SecurityConfig represents security configuration
type SecurityConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// TransportConfig tunes every transport backend
type TransportConfig struct {
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleBackoff    time.Duration `mapstructure:"idle_backoff"`
	ReadBufferSize int           `mapstructure:"read_buffer_size"`
	KeepAlive      bool          `mapstructure:"keep_alive"`
}

// FramingConfig controls the transmission wrapper.
// With StrictPassthrough a BYTE template without a known header or tail is rejected
// instead of sending the bare PDU.
type FramingConfig struct {
	StrictPassthrough bool `mapstructure:"strict_passthrough"`
}

// EventsConfig represents event fan-out settings
type EventsConfig struct {
	BufferSize int `mapstructure:"buffer_size"`
}

// ControllerEntry points at a template document and an instance document.
// Both are JSON files; they are decoded with their JSON field names so
// parameter keys and placeholder names keep their case.
type ControllerEntry struct {
	TemplateFile string `mapstructure:"template_file"`
	InstanceFile string `mapstructure:"instance_file"`
	AutoConnect  bool   `mapstructure:"auto_connect"`
}

// AppConfig represents application metadata
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

// Load loads configuration from the given file (or ./config.yaml, ./configs/config.yaml)
// and environment variables prefixed with LIGHT_SERVICE.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	v.SetEnvPrefix("LIGHT_SERVICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil, fmt.Errorf("config file not found: %w", err)
		}
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8085")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")

	v.SetDefault("security.allowed_origins", []string{"*"})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.max_size", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 28)
	v.SetDefault("logging.compress", true)

	// Transport defaults
	v.SetDefault("transport.connect_timeout", "5s")
	v.SetDefault("transport.read_timeout", "200ms")
	v.SetDefault("transport.write_timeout", "2s")
	v.SetDefault("transport.idle_backoff", "50ms")
	v.SetDefault("transport.read_buffer_size", 4096)
	v.SetDefault("transport.keep_alive", true)

	v.SetDefault("framing.strict_passthrough", false)
	v.SetDefault("events.buffer_size", 256)

	// App defaults
	v.SetDefault("app.name", "light-controller-service")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.debug", false)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Server.Host == "" {
		return fmt.Errorf("server.host is required")
	}
	if config.Server.Port == "" {
		return fmt.Errorf("server.port is required")
	}

	validEnvs := []string{"development", "staging", "production", "test"}
	if !contains(validEnvs, config.App.Environment) {
		return fmt.Errorf("app.environment must be one of: %v", validEnvs)
	}

	validLevels := []string{"debug", "info", "warn", "error", "fatal"}
	if !contains(validLevels, config.Logging.Level) {
		return fmt.Errorf("logging.level must be one of: %v", validLevels)
	}

	if config.Transport.ReadBufferSize < 0 {
		return fmt.Errorf("transport.read_buffer_size must not be negative")
	}
	if config.Events.BufferSize <= 0 {
		return fmt.Errorf("events.buffer_size must be positive")
	}

	for i, c := range config.Controllers {
		if c.TemplateFile == "" || c.InstanceFile == "" {
			return fmt.Errorf("controllers[%d]: template_file and instance_file are required", i)
		}
	}

	return nil
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

// LoadDefinitions reads the template and instance documents of an entry
func (c ControllerEntry) LoadDefinitions() (model.TemplateDef, model.InstanceState, error) {
	var tpl model.TemplateDef
	if err := readJSON(c.TemplateFile, &tpl); err != nil {
		return model.TemplateDef{}, model.InstanceState{}, fmt.Errorf("template %s: %w", c.TemplateFile, err)
	}
	if err := tpl.Normalize(); err != nil {
		return model.TemplateDef{}, model.InstanceState{}, fmt.Errorf("template %s: %w", c.TemplateFile, err)
	}

	var inst model.InstanceState
	if err := readJSON(c.InstanceFile, &inst); err != nil {
		return model.TemplateDef{}, model.InstanceState{}, fmt.Errorf("instance %s: %w", c.InstanceFile, err)
	}

	if inst.Info.InstanceID == "" {
		return model.TemplateDef{}, model.InstanceState{}, fmt.Errorf("instance %s: instance_id is required", c.InstanceFile)
	}
	if inst.Info.TemplateID != "" && tpl.Info.TemplateID != "" && inst.Info.TemplateID != tpl.Info.TemplateID {
		return model.TemplateDef{}, model.InstanceState{}, fmt.Errorf("instance %s references template %q, got %q",
			c.InstanceFile, inst.Info.TemplateID, tpl.Info.TemplateID)
	}

	return tpl, inst, nil
}

func readJSON(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

// GetServerAddr returns the server address
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// IsProduction checks if the environment is production
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment checks if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsDebugEnabled checks if debug mode is enabled
func (c *Config) IsDebugEnabled() bool {
	return c.App.Debug || c.IsDevelopment()
}
