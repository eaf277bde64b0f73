package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultConfigPath is where the CLI looks for a config file when -config is
// not given. A missing file at this path is not an error.
const DefaultConfigPath = "eim.json"

// Config is the process configuration. It is loaded once at start-up and
// passed by reference to everything that needs it.
type Config struct {
	Database DatabaseConfig `json:"database"`
	Serial   SerialConfig   `json:"serial"`
	Server   ServerConfig   `json:"server"`
}

// DatabaseConfig describes the experiment store.
type DatabaseConfig struct {
	// Path is the SQLite database file.
	Path        string  `json:"path"`
	BusyTimeout *string `json:"busy_timeout,omitempty"` // duration string like "5s"
	AutoMigrate *bool   `json:"auto_migrate,omitempty"`
	ReadOnly    bool    `json:"read_only,omitempty"`
}

// SerialConfig describes the BioEmo capture port.
type SerialConfig struct {
	Port     string `json:"port"`
	BaudRate int    `json:"baud_rate,omitempty"`
	DataBits int    `json:"data_bits,omitempty"`
	StopBits int    `json:"stop_bits,omitempty"`
	Parity   string `json:"parity,omitempty"`
	// SampleRateHz is the rate the board emits readings at.
	SampleRateHz *float64 `json:"sample_rate_hz,omitempty"`
}

// ServerConfig describes the HTTP and gRPC listeners.
type ServerConfig struct {
	Listen     string `json:"listen"`
	GRPCListen string `json:"grpc_listen,omitempty"`
	// Prefix is the default SI prefix for conductance responses.
	Prefix *string `json:"prefix,omitempty"`
}

// Default returns a configuration suitable for local development.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "eim.db"},
		Serial:   SerialConfig{Port: "/dev/ttyACM0"},
		Server:   ServerConfig{Listen: ":8080"},
	}
}

// Load reads a Config from a JSON file. The file must have a .json extension
// and be under 1MB. Fields omitted from the file keep the values from Default.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault loads path, falling back to Default when path is the default
// location and no file exists there.
func LoadOrDefault(path string) (*Config, error) {
	if path == DefaultConfigPath {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return Default(), nil
		}
	}
	return Load(path)
}

// Validate checks that the configuration values are valid.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Database.BusyTimeout != nil && *c.Database.BusyTimeout != "" {
		d, err := time.ParseDuration(*c.Database.BusyTimeout)
		if err != nil {
			return fmt.Errorf("invalid database.busy_timeout '%s': %w", *c.Database.BusyTimeout, err)
		}
		if d < 0 {
			return fmt.Errorf("database.busy_timeout must be non-negative, got %s", d)
		}
	}

	if c.Serial.BaudRate < 0 {
		return fmt.Errorf("serial.baud_rate must be non-negative, got %d", c.Serial.BaudRate)
	}
	if c.Serial.SampleRateHz != nil && *c.Serial.SampleRateHz < 0 {
		return fmt.Errorf("serial.sample_rate_hz must be non-negative, got %f", *c.Serial.SampleRateHz)
	}

	if c.Server.Prefix != nil {
		switch *c.Server.Prefix {
		case "unit", "kilo", "mega", "giga", "milli", "micro", "nano":
		default:
			return fmt.Errorf("server.prefix %q is not a known SI prefix", *c.Server.Prefix)
		}
	}

	return nil
}

// GetBusyTimeout returns the SQLite busy timeout or the default.
func (d DatabaseConfig) GetBusyTimeout() time.Duration {
	if d.BusyTimeout == nil || *d.BusyTimeout == "" {
		return 5 * time.Second // default
	}
	t, err := time.ParseDuration(*d.BusyTimeout)
	if err != nil {
		return 5 * time.Second // default on parse error
	}
	return t
}

// GetAutoMigrate returns whether migrations run on open. Defaults to true.
func (d DatabaseConfig) GetAutoMigrate() bool {
	if d.AutoMigrate == nil {
		return true
	}
	return *d.AutoMigrate
}

// GetSampleRateHz returns the capture sample rate or the default.
func (s SerialConfig) GetSampleRateHz() float64 {
	if s.SampleRateHz == nil {
		return 10 // default
	}
	return *s.SampleRateHz
}

// GetPrefix returns the conductance prefix or the default.
func (s ServerConfig) GetPrefix() string {
	if s.Prefix == nil {
		return "micro" // microsiemens
	}
	return *s.Prefix
}
