package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"gqlrelay/internal/core/engine"
	"gqlrelay/internal/pkg/logger"
)

// EnvPrefix prefixes environment overrides, e.g. GQLRELAY_ENDPOINT_URL
const EnvPrefix = "GQLRELAY"

// Config is the typed view of the loaded configuration
type Config struct {
	Log         logger.Config  `mapstructure:"log"`
	Endpoint    EndpointConfig `mapstructure:"endpoint"`
	Server      ServerConfig   `mapstructure:"server"`
	Tracing     TracingConfig  `mapstructure:"tracing"`
	Middlewares []engine.Step  `mapstructure:"middlewares"`
	Routes      []engine.Route `mapstructure:"routes"`
}

// EndpointConfig configures the terminal executor
type EndpointConfig struct {
	// URL replaces the built-in "/graphql" default
	URL string `mapstructure:"url"`
	// BaseURL resolves relative request URLs
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ServerConfig configures the proxy server
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// ForwardHeaders are copied from proxied client requests
	ForwardHeaders []string `mapstructure:"forward_headers"`
	// WriteTimeout bounds one proxied request; zero derives it from the
	// endpoint timeout and the retry steps
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// TracingConfig configures OpenTelemetry
type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name"`
}

// Engine returns the middleware chain configuration
func (c *Config) Engine() *engine.EngineConfig {
	return &engine.EngineConfig{
		Middlewares: c.Middlewares,
		Routes:      c.Routes,
	}
}

// Addr returns host:port of the proxy server
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// SetDefaults registers default values on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("endpoint.timeout", 60*time.Second)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.forward_headers", []string{"Authorization"})
	v.SetDefault("server.write_timeout", time.Duration(0))
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "gqlrelay")
}

// Init 初始化配置，加载 .env 和 config.yaml
func Init(cfgFile string) {
	// Load .env file (ignore if not exists)
	_ = godotenv.Load()

	if err := ReadInto(viper.GetViper(), cfgFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
	}
}

// ReadInto wires defaults, environment and the config file into v. A missing
// default config file is not an error; a missing explicit one is.
func ReadInto(v *viper.Viper, cfgFile string) error {
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return err
		}
	}
	return nil
}

// Load decodes the global viper state into a Config
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom decodes v into a Config
func LoadFrom(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return nil, fmt.Errorf("invalid server port %d", cfg.Server.Port)
	}
	return &cfg, nil
}
