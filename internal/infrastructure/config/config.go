package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is returned when validation fails.
var ErrInvalid = errors.New("config: invalid")

// Config is the root configuration structure for Gray Logic Dispatch.
type Config struct {
	Site      SiteConfig      `yaml:"site"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
	Security  SecurityConfig  `yaml:"security"`
	Registry  RegistryConfig  `yaml:"registry"`
	Devices   []DeviceConfig  `yaml:"devices"`
	Programs  ProgramsConfig  `yaml:"programs"`
}

// SiteConfig contains site-specific information.
type SiteConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// DatabaseConfig contains SQLite settings for the execution log.
type DatabaseConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT client and embedded broker settings.
type MQTTConfig struct {
	Enabled   bool                 `yaml:"enabled"`
	Broker    MQTTBrokerConfig     `yaml:"broker"`
	Auth      MQTTAuthConfig       `yaml:"auth"`
	QoS       int                  `yaml:"qos"`
	Reconnect MQTTReconnectConfig  `yaml:"reconnect"`
	Embedded  EmbeddedBrokerConfig `yaml:"embedded"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
// The embedded broker admits exactly these credentials when set.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// EmbeddedBrokerConfig runs an in-process broker on mqtt.broker.port.
type EmbeddedBrokerConfig struct {
	Enabled bool `yaml:"enabled"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// SecurityConfig contains security settings.
type SecurityConfig struct {
	JWT JWTConfig `yaml:"jwt"`
}

// JWTConfig contains JWT token settings.
type JWTConfig struct {
	Secret         string `yaml:"secret"`
	AccessTokenTTL int    `yaml:"access_token_ttl"` // minutes
}

// RegistryConfig selects how device identities are minted.
type RegistryConfig struct {
	// Identity is "uuid" (default) or "sequence".
	Identity string `yaml:"identity"`
	// Prefix is the sequence identity prefix.
	Prefix string `yaml:"prefix"`
	// MaxDevices bounds sequence identities. 0 means unbounded.
	MaxDevices uint64 `yaml:"max_devices"`
}

// DeviceConfig declares a simulated device registered at startup.
// Name is the alias programs use to refer to it.
type DeviceConfig struct {
	Name      string `yaml:"name"`
	Type      string `yaml:"type"`
	LatencyMS int    `yaml:"latency_ms"`
}

// ProgramsConfig points at an optional YAML program library merged over
// the built-in programs.
type ProgramsConfig struct {
	File string `yaml:"file"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The loading order is defaults, then file values, then environment
// variables of the form GRAYLOGIC_SECTION_KEY (e.g. GRAYLOGIC_API_PORT).
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path) //nolint:gosec // path comes from the operator
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Default returns the built-in configuration with environment overrides applied.
func Default() (*Config, error) {
	cfg := defaultConfig()
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults: the three demo
// devices, everything external switched off.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:   "site-001",
			Name: "Gray Logic",
		},
		Database: DatabaseConfig{
			Path:        "./data/dispatch.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "graylogic-dispatch",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
		Security: SecurityConfig{
			JWT: JWTConfig{AccessTokenTTL: 60},
		},
		Registry: RegistryConfig{
			Identity: "uuid",
			Prefix:   "dev",
		},
		Devices: []DeviceConfig{
			{Name: "hue_light", Type: "switch", LatencyMS: 500},
			{Name: "speaker", Type: "speaker", LatencyMS: 500},
			{Name: "toilet", Type: "toilet", LatencyMS: 500},
		},
	}
}

// applyEnvOverrides applies GRAYLOGIC_* environment variables.
func applyEnvOverrides(cfg *Config) {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	setBool := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}

	setBool("GRAYLOGIC_DATABASE_ENABLED", &cfg.Database.Enabled)
	setString("GRAYLOGIC_DATABASE_PATH", &cfg.Database.Path)

	setBool("GRAYLOGIC_MQTT_ENABLED", &cfg.MQTT.Enabled)
	setString("GRAYLOGIC_MQTT_HOST", &cfg.MQTT.Broker.Host)
	setInt("GRAYLOGIC_MQTT_PORT", &cfg.MQTT.Broker.Port)
	setString("GRAYLOGIC_MQTT_USERNAME", &cfg.MQTT.Auth.Username)
	setString("GRAYLOGIC_MQTT_PASSWORD", &cfg.MQTT.Auth.Password)
	setBool("GRAYLOGIC_MQTT_EMBEDDED", &cfg.MQTT.Embedded.Enabled)

	setBool("GRAYLOGIC_API_ENABLED", &cfg.API.Enabled)
	setString("GRAYLOGIC_API_HOST", &cfg.API.Host)
	setInt("GRAYLOGIC_API_PORT", &cfg.API.Port)

	setBool("GRAYLOGIC_INFLUXDB_ENABLED", &cfg.InfluxDB.Enabled)
	setString("GRAYLOGIC_INFLUXDB_URL", &cfg.InfluxDB.URL)
	setString("GRAYLOGIC_INFLUXDB_TOKEN", &cfg.InfluxDB.Token)

	setString("GRAYLOGIC_LOG_LEVEL", &cfg.Logging.Level)
	setString("GRAYLOGIC_JWT_SECRET", &cfg.Security.JWT.Secret)
	setString("GRAYLOGIC_PROGRAMS_FILE", &cfg.Programs.File)
}

// Validate checks the configuration for errors and security issues.
// Sections that are disabled are not checked.
func (c *Config) Validate() error {
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}
	if c.Database.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.Enabled || c.MQTT.Embedded.Enabled {
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			errs = append(errs, "mqtt.qos must be 0, 1, or 2")
		}
		if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
			errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
		}
	}

	if c.API.Enabled {
		if c.API.Port < 1 || c.API.Port > 65535 {
			errs = append(errs, "api.port must be between 1 and 65535")
		}
		// Tokens signed with a short secret can be brute-forced.
		const minJWTSecretLength = 32
		if c.Security.JWT.Secret == "" {
			errs = append(errs, "security.jwt.secret is required when the API is enabled (set GRAYLOGIC_JWT_SECRET)")
		} else if len(c.Security.JWT.Secret) < minJWTSecretLength {
			errs = append(errs, "security.jwt.secret must be at least 32 characters")
		}
	}

	if c.InfluxDB.Enabled && (c.InfluxDB.URL == "" || c.InfluxDB.Bucket == "") {
		errs = append(errs, "influxdb.url and influxdb.bucket are required when enabled")
	}

	switch c.Registry.Identity {
	case "uuid", "sequence":
	default:
		errs = append(errs, fmt.Sprintf("registry.identity %q must be uuid or sequence", c.Registry.Identity))
	}

	seen := make(map[string]bool, len(c.Devices))
	for i, d := range c.Devices {
		switch {
		case d.Name == "":
			errs = append(errs, fmt.Sprintf("devices[%d].name is required", i))
		case seen[d.Name]:
			errs = append(errs, fmt.Sprintf("devices[%d].name %q is duplicated", i, d.Name))
		}
		seen[d.Name] = true
		if d.Type == "" {
			errs = append(errs, fmt.Sprintf("devices[%d].type is required", i))
		}
		if d.LatencyMS < 0 {
			errs = append(errs, fmt.Sprintf("devices[%d].latency_ms must not be negative", i))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(errs, "; "))
	}
	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c APIConfig) GetReadTimeout() time.Duration {
	return time.Duration(c.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c APIConfig) GetWriteTimeout() time.Duration {
	return time.Duration(c.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c APIConfig) GetIdleTimeout() time.Duration {
	return time.Duration(c.Timeouts.Idle) * time.Second
}

// Latency returns the device's simulated latency.
func (d DeviceConfig) Latency() time.Duration {
	return time.Duration(d.LatencyMS) * time.Millisecond
}
