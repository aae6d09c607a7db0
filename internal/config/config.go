package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/objectfs/readpath/internal/metrics"
	"github.com/objectfs/readpath/internal/storage/s3"
	"github.com/objectfs/readpath/internal/transport"
	"github.com/objectfs/readpath/pkg/types"
	"github.com/objectfs/readpath/pkg/utils"
)

// Configuration represents the complete application configuration
type Configuration struct {
	Global    GlobalConfig    `yaml:"global"`
	Transport TransportConfig `yaml:"transport"`
	Read      ReadConfig      `yaml:"read"`
	Storage   StorageConfig   `yaml:"storage"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// GlobalConfig represents global application settings
type GlobalConfig struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	LogFile   string `yaml:"log_file"`
}

// TransportConfig represents the HTTP transport shared by every stream of a session
type TransportConfig struct {
	Kind          string `yaml:"kind"`
	ProxyAddress  string `yaml:"proxy_address"`
	ProxyUsername string `yaml:"proxy_username"`
	ProxyPassword string `yaml:"proxy_password"`
	CACertFile    string `yaml:"ca_cert_file"`

	Timeouts TimeoutConfig `yaml:"timeouts"`

	KeepAlivePeriod     time.Duration `yaml:"keep_alive_period"`
	MaxIdleConns        int           `yaml:"max_idle_conns"`
	MaxIdleConnsPerHost int           `yaml:"max_idle_conns_per_host"`
}

// TimeoutConfig represents timeout settings
type TimeoutConfig struct {
	Connect        time.Duration `yaml:"connect"`
	TLSHandshake   time.Duration `yaml:"tls_handshake"`
	ResponseHeader time.Duration `yaml:"response_header"`
	IdleConn       time.Duration `yaml:"idle_conn"`
}

// ReadConfig represents per-stream read options
type ReadConfig struct {
	TraceLogEnabled bool `yaml:"trace_log_enabled"`
}

// StorageConfig represents object store settings
type StorageConfig struct {
	S3 s3.Config `yaml:"s3"`
}

// MetricsConfig represents metrics settings
type MetricsConfig struct {
	Enabled      bool              `yaml:"enabled"`
	Namespace    string            `yaml:"namespace"`
	Subsystem    string            `yaml:"subsystem"`
	CustomLabels map[string]string `yaml:"custom_labels"`
}

// NewDefault returns a configuration with sensible defaults
func NewDefault() *Configuration {
	s3cfg := s3.NewDefaultConfig()

	return &Configuration{
		Global: GlobalConfig{
			LogLevel:  "INFO",
			LogFormat: "text",
		},
		Transport: TransportConfig{
			Kind: string(transport.DefaultKind),
			Timeouts: TimeoutConfig{
				Connect:      30 * time.Second,
				TLSHandshake: 10 * time.Second,
				IdleConn:     90 * time.Second,
			},
			KeepAlivePeriod: 30 * time.Second,
			MaxIdleConns:    100,
		},
		Read: ReadConfig{
			TraceLogEnabled: false,
		},
		Storage: StorageConfig{
			S3: *s3cfg,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "objectfs",
			Subsystem: "readpath",
		},
	}
}

// LoadFromFile loads configuration from a YAML file
func (c *Configuration) LoadFromFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// LoadFromEnv loads configuration from environment variables
func (c *Configuration) LoadFromEnv() error {
	// Global settings
	if val := os.Getenv("OBJECTFS_LOG_LEVEL"); val != "" {
		c.Global.LogLevel = val
	}
	if val := os.Getenv("OBJECTFS_LOG_FORMAT"); val != "" {
		c.Global.LogFormat = val
	}
	if val := os.Getenv("OBJECTFS_LOG_FILE"); val != "" {
		c.Global.LogFile = val
	}

	// Transport settings
	if val := os.Getenv("OBJECTFS_TRANSPORT_KIND"); val != "" {
		c.Transport.Kind = val
	}
	if val := os.Getenv("OBJECTFS_PROXY_ADDRESS"); val != "" {
		c.Transport.ProxyAddress = val
	}
	if val := os.Getenv("OBJECTFS_PROXY_USERNAME"); val != "" {
		c.Transport.ProxyUsername = val
	}
	if val := os.Getenv("OBJECTFS_PROXY_PASSWORD"); val != "" {
		c.Transport.ProxyPassword = val
	}
	if val := os.Getenv("OBJECTFS_CA_CERT_FILE"); val != "" {
		c.Transport.CACertFile = val
	}
	if val := os.Getenv("OBJECTFS_CONNECT_TIMEOUT"); val != "" {
		duration, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("invalid OBJECTFS_CONNECT_TIMEOUT: %w", err)
		}
		c.Transport.Timeouts.Connect = duration
	}
	if val := os.Getenv("OBJECTFS_KEEP_ALIVE_PERIOD"); val != "" {
		duration, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("invalid OBJECTFS_KEEP_ALIVE_PERIOD: %w", err)
		}
		c.Transport.KeepAlivePeriod = duration
	}
	if val := os.Getenv("OBJECTFS_MAX_IDLE_CONNS"); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid OBJECTFS_MAX_IDLE_CONNS: %w", err)
		}
		c.Transport.MaxIdleConns = n
	}

	// Read settings
	if val := os.Getenv("OBJECTFS_TRACE_LOG"); val != "" {
		c.Read.TraceLogEnabled = strings.ToLower(val) == "true"
	}

	// Storage settings
	if val := os.Getenv("OBJECTFS_S3_REGION"); val != "" {
		c.Storage.S3.Region = val
	}
	if val := os.Getenv("OBJECTFS_S3_ENDPOINT"); val != "" {
		c.Storage.S3.Endpoint = val
	}
	if val := os.Getenv("OBJECTFS_S3_FORCE_PATH_STYLE"); val != "" {
		c.Storage.S3.ForcePathStyle = strings.ToLower(val) == "true"
	}
	if val := os.Getenv("OBJECTFS_S3_MAX_RETRIES"); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid OBJECTFS_S3_MAX_RETRIES: %w", err)
		}
		c.Storage.S3.MaxRetries = n
	}

	// Metrics settings
	if val := os.Getenv("OBJECTFS_METRICS_ENABLED"); val != "" {
		c.Metrics.Enabled = strings.ToLower(val) == "true"
	}

	return nil
}

// SaveToFile saves the configuration to a YAML file
func (c *Configuration) SaveToFile(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(filename), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(filename, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration. Proxy address syntax is checked by the
// transport factory, which reports it as an argument error.
func (c *Configuration) Validate() error {
	if _, err := utils.ParseLogLevel(c.Global.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level: %s", c.Global.LogLevel)
	}

	switch strings.ToLower(c.Global.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("invalid log_format: %s (must be one of: text, json)", c.Global.LogFormat)
	}

	if _, err := transport.ParseKind(c.Transport.Kind); err != nil {
		return fmt.Errorf("invalid transport kind: %w", err)
	}

	if c.Transport.MaxIdleConns < 0 || c.Transport.MaxIdleConnsPerHost < 0 {
		return fmt.Errorf("idle connection limits cannot be negative")
	}

	if c.Transport.KeepAlivePeriod < 0 {
		return fmt.Errorf("keep_alive_period cannot be negative")
	}

	if c.Storage.S3.MaxRetries < 0 {
		return fmt.Errorf("s3 max_retries cannot be negative")
	}

	return nil
}

// TransportOptions converts the transport section into factory options.
func (c *Configuration) TransportOptions() (transport.Options, error) {
	kind, err := transport.ParseKind(c.Transport.Kind)
	if err != nil {
		return transport.Options{}, err
	}

	return transport.Options{
		Kind:                  kind,
		ProxyAddress:          c.Transport.ProxyAddress,
		ProxyUsername:         c.Transport.ProxyUsername,
		ProxyPassword:         transport.Secret(c.Transport.ProxyPassword),
		ConnectTimeout:        c.Transport.Timeouts.Connect,
		KeepAlivePeriod:       c.Transport.KeepAlivePeriod,
		IdleConnTimeout:       c.Transport.Timeouts.IdleConn,
		TLSHandshakeTimeout:   c.Transport.Timeouts.TLSHandshake,
		ResponseHeaderTimeout: c.Transport.Timeouts.ResponseHeader,
		MaxIdleConns:          c.Transport.MaxIdleConns,
		MaxIdleConnsPerHost:   c.Transport.MaxIdleConnsPerHost,
		CACertFile:            c.Transport.CACertFile,
	}, nil
}

// ReadOptions returns the options applied to every stream.
func (c *Configuration) ReadOptions() types.ReadOptions {
	return types.ReadOptions{TraceLogEnabled: c.Read.TraceLogEnabled}
}

// S3Config returns a copy of the S3 client settings.
func (c *Configuration) S3Config() *s3.Config {
	cfg := c.Storage.S3
	return &cfg
}

// MetricsConfig converts the metrics section into collector settings.
func (c *Configuration) MetricsConfig() *metrics.Config {
	return &metrics.Config{
		Enabled:   c.Metrics.Enabled,
		Path:      "/metrics",
		Namespace: c.Metrics.Namespace,
		Subsystem: c.Metrics.Subsystem,
		Labels:    c.Metrics.CustomLabels,
	}
}

// LoggerConfig returns the logger settings. Output is left nil, so the logger writes to
// stderr unless the caller opens LogFile.
func (c *Configuration) LoggerConfig() utils.LoggerConfig {
	return utils.LoggerConfig{
		Level:  c.Global.LogLevel,
		Format: c.Global.LogFormat,
	}
}
