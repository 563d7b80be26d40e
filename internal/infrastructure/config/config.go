package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the Gray Logic uplink agent.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Device     DeviceConfig     `yaml:"device"`
	Network    NetworkConfig    `yaml:"network"`
	Broker     BrokerConfig     `yaml:"broker"`
	Supervisor SupervisorConfig `yaml:"supervisor"`
	Zones      []string         `yaml:"zones"`
	Audit      AuditConfig      `yaml:"audit"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// DeviceConfig identifies this device towards the cloud broker.
type DeviceConfig struct {
	// ID is the device identifier registered with the IoT hub.
	// It becomes the MQTT client ID and part of the topic namespace.
	ID string `yaml:"id"`

	// Secret is the device credential used as the broker session password.
	// Set via UPLINK_DEVICE_SECRET in production, never in the file.
	Secret string `yaml:"secret"`

	// KeySlot selects which slot of the security element holds the
	// device private key. Slot 0 on factory-provisioned hardware.
	KeySlot int `yaml:"key_slot"`

	// KeyFile is the PEM key file for the software security element.
	// Ignored when real hardware is present.
	KeyFile string `yaml:"key_file"`
}

// NetworkConfig contains radio network association settings.
type NetworkConfig struct {
	// Interface is the network interface carrying the radio link (e.g. "wlan0").
	Interface string `yaml:"interface"`

	// SSID and Passphrase identify the network to associate with.
	SSID       string `yaml:"ssid"`
	Passphrase string `yaml:"passphrase"`

	// JoinCommand is the command template used to trigger association.
	// {ssid} and {passphrase} are substituted. Empty disables active joins
	// (the link is then expected to be managed externally).
	JoinCommand []string `yaml:"join_command"`

	// RetryInterval is the fixed delay between association attempts (seconds).
	// Retries are unbounded: an unattended device must not give up on a
	// transceiver that is merely slow to register.
	RetryInterval int `yaml:"retry_interval"`
}

// BrokerConfig contains cloud broker connection settings.
type BrokerConfig struct {
	// Host is the IoT hub hostname (e.g. "hub-name.azure-devices.net").
	Host string `yaml:"host"`

	// Port is the MQTT-over-TLS port. Default 8883.
	Port int `yaml:"port"`

	// Keepalive is the MQTT keep-alive interval (seconds). The supervisor
	// poll cadence must be shorter than this or the broker drops the session.
	Keepalive int `yaml:"keepalive"`

	// RetryInterval is the fixed delay between connect attempts (seconds).
	RetryInterval int `yaml:"retry_interval"`

	// InboundQueue is the capacity of the devicebound frame queue.
	InboundQueue int `yaml:"inbound_queue"`
}

// SupervisorConfig contains control-loop timing settings.
type SupervisorConfig struct {
	// PollInterval is the loop tick period (milliseconds).
	PollInterval int `yaml:"poll_interval"`

	// HeartbeatInterval is the period between heartbeat publishes (seconds).
	HeartbeatInterval int `yaml:"heartbeat_interval"`
}

// AuditConfig contains local command history settings.
type AuditConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// TelemetryConfig contains InfluxDB connection settings.
type TelemetryConfig struct {
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

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: UPLINK_SECTION_KEY
// For example: UPLINK_DEVICE_SECRET, UPLINK_BROKER_HOST
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
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

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Device: DeviceConfig{
			KeySlot: 0,
		},
		Network: NetworkConfig{
			Interface:     "wlan0",
			RetryInterval: 5,
		},
		Broker: BrokerConfig{
			Port:          8883,
			Keepalive:     60,
			RetryInterval: 5,
			InboundQueue:  16,
		},
		Supervisor: SupervisorConfig{
			PollInterval:      100,
			HeartbeatInterval: 5,
		},
		Audit: AuditConfig{
			Enabled:     true,
			Path:        "./data/uplink.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: UPLINK_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Device
	if v := os.Getenv("UPLINK_DEVICE_ID"); v != "" {
		cfg.Device.ID = v
	}
	if v := os.Getenv("UPLINK_DEVICE_SECRET"); v != "" {
		cfg.Device.Secret = v
	}

	// Network
	if v := os.Getenv("UPLINK_NETWORK_SSID"); v != "" {
		cfg.Network.SSID = v
	}
	if v := os.Getenv("UPLINK_NETWORK_PASSPHRASE"); v != "" {
		cfg.Network.Passphrase = v
	}

	// Broker
	if v := os.Getenv("UPLINK_BROKER_HOST"); v != "" {
		cfg.Broker.Host = v
	}

	// Telemetry
	if v := os.Getenv("UPLINK_TELEMETRY_TOKEN"); v != "" {
		cfg.Telemetry.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Device.ID == "" {
		errs = append(errs, "device.id is required")
	}
	if c.Device.Secret == "" {
		errs = append(errs, "device.secret is required (set UPLINK_DEVICE_SECRET environment variable)")
	}
	if c.Device.KeySlot < 0 {
		errs = append(errs, "device.key_slot must not be negative")
	}

	if c.Broker.Host == "" {
		errs = append(errs, "broker.host is required")
	}
	if c.Broker.Port < 1 || c.Broker.Port > 65535 {
		errs = append(errs, "broker.port must be between 1 and 65535")
	}
	if c.Broker.Keepalive < 1 {
		errs = append(errs, "broker.keepalive must be at least 1 second")
	}

	if c.Supervisor.PollInterval < 1 {
		errs = append(errs, "supervisor.poll_interval must be at least 1 millisecond")
	}
	if c.Supervisor.HeartbeatInterval < 1 {
		errs = append(errs, "supervisor.heartbeat_interval must be at least 1 second")
	}

	// The poll cadence services the broker keep-alive; a tick period at or
	// beyond the keep-alive window guarantees dropped sessions.
	if c.Broker.Keepalive >= 1 && c.Supervisor.PollInterval >= 1 &&
		c.PollInterval() >= c.KeepaliveInterval() {
		errs = append(errs, "supervisor.poll_interval must be shorter than broker.keepalive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// PollInterval returns the supervisor tick period as a Duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Supervisor.PollInterval) * time.Millisecond
}

// HeartbeatInterval returns the heartbeat period as a Duration.
func (c *Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.Supervisor.HeartbeatInterval) * time.Second
}

// KeepaliveInterval returns the broker keep-alive as a Duration.
func (c *Config) KeepaliveInterval() time.Duration {
	return time.Duration(c.Broker.Keepalive) * time.Second
}

// NetworkRetryInterval returns the link association retry delay as a Duration.
func (c *Config) NetworkRetryInterval() time.Duration {
	return time.Duration(c.Network.RetryInterval) * time.Second
}

// BrokerRetryInterval returns the broker connect retry delay as a Duration.
func (c *Config) BrokerRetryInterval() time.Duration {
	return time.Duration(c.Broker.RetryInterval) * time.Second
}
