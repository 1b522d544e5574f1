// Package config loads and validates the figma-mcp configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Second-peer policies for the plugin socket.
const (
	PolicyReplace = "replace"
	PolicyReject  = "reject"
)

// DefaultMaxMessageBytes bounds one inbound plugin frame. Export results
// carry whole base64-encoded images in a single frame, so this sits far
// above the websocket library's 32 KiB default.
const DefaultMaxMessageBytes = 16 << 20

// Config is the top-level application configuration.
type Config struct {
	Bridge   BridgeConfig   `yaml:"bridge"`
	Commands CommandsConfig `yaml:"commands"`
	Breaker  BreakerConfig  `yaml:"breaker"`
	Logger   LoggerConfig   `yaml:"logger"`
	Tracer   TracerConfig   `yaml:"tracer"`
	Audit    AuditConfig    `yaml:"audit"`
}

// BridgeConfig holds plugin socket settings.
type BridgeConfig struct {
	// Addr is the listen address for the plugin WebSocket.
	Addr string `yaml:"addr"`
	// OnSecondPeer decides what happens when a plugin connects while another
	// is active: "replace" (new plugin wins, matching the original behavior)
	// or "reject" (new connection is closed).
	OnSecondPeer string `yaml:"on_second_peer"`
	// MaxMessageBytes caps the size of one inbound frame from the plugin.
	// -1 removes the cap.
	MaxMessageBytes int64 `yaml:"max_message_bytes"`
}

// CommandsConfig holds command dispatch settings.
type CommandsConfig struct {
	// Timeout bounds how long a command waits for its reply.
	Timeout time.Duration `yaml:"timeout"`
	// MaxOutstanding bounds the pending-command table so a stalled plugin
	// cannot grow it without limit.
	MaxOutstanding int `yaml:"max_outstanding"`
}

// BreakerConfig configures the circuit breaker around plugin commands.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures before the circuit opens.
	MaxFailures uint32 `yaml:"max_failures"`
	// Timeout is how long the circuit stays open before transitioning to half-open.
	Timeout time.Duration `yaml:"timeout"`
	// Interval is the cyclic period of the closed state for clearing failure counts.
	Interval time.Duration `yaml:"interval"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
	Output string `yaml:"output"` // stderr, a file path; never stdout (MCP owns it)
}

// TracerConfig holds OpenTelemetry settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"` // stdout or noop
}

// AuditConfig holds command audit log settings.
type AuditConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"` // SQLite database path
}

// Defaults returns a Config populated with default values.
// Port 8765 matches what the Figma plugin dials.
func Defaults() *Config {
	return &Config{
		Bridge: BridgeConfig{
			Addr:            "127.0.0.1:8765",
			OnSecondPeer:    PolicyReplace,
			MaxMessageBytes: DefaultMaxMessageBytes,
		},
		Commands: CommandsConfig{
			Timeout:        5 * time.Second,
			MaxOutstanding: 32,
		},
		Breaker: BreakerConfig{
			MaxFailures: 5,
			Timeout:     30 * time.Second,
			Interval:    60 * time.Second,
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Tracer: TracerConfig{
			Enabled:  false,
			Exporter: "noop",
		},
		Audit: AuditConfig{
			Enabled: false,
			Path:    "figma-mcp-audit.db",
		},
	}
}

// Load reads a YAML config file and merges it over Defaults.
// A missing file is not an error: defaults apply.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if err := Validate(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints and rejects unusable values.
func Validate(cfg *Config) error {
	if cfg.Bridge.Addr == "" {
		return fmt.Errorf("bridge.addr must not be empty")
	}
	switch cfg.Bridge.OnSecondPeer {
	case PolicyReplace, PolicyReject:
	default:
		return fmt.Errorf("bridge.on_second_peer must be %q or %q, got %q",
			PolicyReplace, PolicyReject, cfg.Bridge.OnSecondPeer)
	}
	if cfg.Commands.Timeout <= 0 {
		return fmt.Errorf("commands.timeout must be positive, got %s", cfg.Commands.Timeout)
	}
	if cfg.Commands.MaxOutstanding <= 0 {
		return fmt.Errorf("commands.max_outstanding must be positive, got %d", cfg.Commands.MaxOutstanding)
	}
	switch cfg.Logger.Output {
	case "stdout":
		// stdout carries MCP stdio framing; log lines there corrupt the protocol.
		return fmt.Errorf("logger.output must not be stdout")
	}
	if cfg.Bridge.MaxMessageBytes == 0 || cfg.Bridge.MaxMessageBytes < -1 {
		return fmt.Errorf("bridge.max_message_bytes must be positive or -1, got %d", cfg.Bridge.MaxMessageBytes)
	}
	if cfg.Audit.Enabled && cfg.Audit.Path == "" {
		return fmt.Errorf("audit.path must be set when audit is enabled")
	}
	return nil
}

// durationValue accepts both "5s" strings and integer nanoseconds, so the
// documented duration settings work as written in YAML.
type durationValue time.Duration

func (d *durationValue) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, perr := time.ParseDuration(s)
		if perr != nil {
			return fmt.Errorf("invalid duration %q: %w", s, perr)
		}
		*d = durationValue(parsed)
		return nil
	}
	var n int64
	if err := value.Decode(&n); err == nil {
		*d = durationValue(n)
		return nil
	}
	return fmt.Errorf("invalid duration %q", value.Value)
}

// UnmarshalYAML lets commands.timeout take human-readable values. Absent
// fields keep whatever the struct already holds, so defaults survive a
// partial override.
func (c *CommandsConfig) UnmarshalYAML(value *yaml.Node) error {
	raw := struct {
		Timeout        durationValue `yaml:"timeout"`
		MaxOutstanding int           `yaml:"max_outstanding"`
	}{
		Timeout:        durationValue(c.Timeout),
		MaxOutstanding: c.MaxOutstanding,
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	c.Timeout = time.Duration(raw.Timeout)
	c.MaxOutstanding = raw.MaxOutstanding
	return nil
}

// UnmarshalYAML mirrors CommandsConfig for the breaker durations.
func (c *BreakerConfig) UnmarshalYAML(value *yaml.Node) error {
	raw := struct {
		MaxFailures uint32        `yaml:"max_failures"`
		Timeout     durationValue `yaml:"timeout"`
		Interval    durationValue `yaml:"interval"`
	}{
		MaxFailures: c.MaxFailures,
		Timeout:     durationValue(c.Timeout),
		Interval:    durationValue(c.Interval),
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	c.MaxFailures = raw.MaxFailures
	c.Timeout = time.Duration(raw.Timeout)
	c.Interval = time.Duration(raw.Interval)
	return nil
}
