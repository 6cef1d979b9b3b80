// Package config handles configuration loading, validation, and management for tactiled.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"tactiled/internal/hybrid"
	"tactiled/internal/pattern"
	"tactiled/internal/protocol"
)

// Version is the current configuration schema version.
const Version = 1

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TACTILED_"

// Config holds the complete configuration.
type Config struct {
	// Version is the configuration schema version.
	Version int `toml:"version" json:"version" yaml:"version"`

	// Device describes the actuator hardware.
	Device DeviceConfig `toml:"device" json:"device" yaml:"device"`

	// Encoding selects how text becomes patterns.
	Encoding EncodingConfig `toml:"encoding" json:"encoding" yaml:"encoding"`

	// Protocol controls framing and the session preamble.
	Protocol ProtocolConfig `toml:"protocol" json:"protocol" yaml:"protocol"`

	// History configures the session journal.
	History HistoryConfig `toml:"history" json:"history" yaml:"history"`

	// Logging configuration.
	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging"`

	// Metrics configuration.
	Metrics MetricsConfig `toml:"metrics" json:"metrics" yaml:"metrics"`
}

// DeviceConfig holds actuator hardware configuration.
type DeviceConfig struct {
	// ActuatorCount is the number of actuators on the device (1-8).
	ActuatorCount int `toml:"actuator_count" json:"actuator_count" yaml:"actuator_count"`

	// DefaultIntensity is the intensity assumed by table entries that omit one.
	DefaultIntensity int `toml:"default_intensity" json:"default_intensity" yaml:"default_intensity"`
}

// EncodingConfig holds text encoding configuration.
type EncodingConfig struct {
	// Strategy is one of "letter", "phoneme", "adaptive", "word_level".
	Strategy string `toml:"strategy" json:"strategy" yaml:"strategy"`

	// TablesPath is an optional YAML or JSON table file overriding the
	// built-in tables.
	TablesPath string `toml:"tables_path" json:"tables_path" yaml:"tables_path"`

	// Normalize applies NFC normalization to input text.
	Normalize bool `toml:"normalize" json:"normalize" yaml:"normalize"`
}

// ProtocolConfig holds wire protocol configuration.
type ProtocolConfig struct {
	// Batch sends PATTERN_BATCH messages instead of one message per pattern.
	Batch bool `toml:"batch" json:"batch" yaml:"batch"`

	// MaxBatchPayload caps the payload of each batch message (2-255).
	MaxBatchPayload int `toml:"max_batch_payload" json:"max_batch_payload" yaml:"max_batch_payload"`

	// Intensity, Speed and PatternSpacing are sent as CONFIG messages when
	// a session starts.
	Intensity      int `toml:"intensity" json:"intensity" yaml:"intensity"`
	Speed          int `toml:"speed" json:"speed" yaml:"speed"`
	PatternSpacing int `toml:"pattern_spacing" json:"pattern_spacing" yaml:"pattern_spacing"`
}

// HistoryConfig holds session journal configuration.
type HistoryConfig struct {
	// Enabled records every framed session.
	Enabled bool `toml:"enabled" json:"enabled" yaml:"enabled"`

	// Path is the SQLite database file.
	Path string `toml:"path" json:"path" yaml:"path"`

	// RetentionDays prunes older sessions when the journal is opened.
	// Zero keeps everything.
	RetentionDays int `toml:"retention_days" json:"retention_days" yaml:"retention_days"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level: "debug", "info", "warn", "error".
	Level string `toml:"level" json:"level" yaml:"level"`

	// Format is the log format: "text" or "json".
	Format string `toml:"format" json:"format" yaml:"format"`

	// Output is the log output: "stdout", "stderr", "file", or "both".
	Output string `toml:"output" json:"output" yaml:"output"`

	// FilePath is the path to the log file (when Output is "file" or "both").
	FilePath string `toml:"file_path" json:"file_path" yaml:"file_path"`

	// MaxSizeMB is the maximum log file size before rotation.
	MaxSizeMB int `toml:"max_size_mb" json:"max_size_mb" yaml:"max_size_mb"`

	// MaxBackups is the number of old log files to keep.
	MaxBackups int `toml:"max_backups" json:"max_backups" yaml:"max_backups"`

	// Compress determines whether to compress rotated logs.
	Compress bool `toml:"compress" json:"compress" yaml:"compress"`

	// RedactText keeps the text being encoded out of log records.
	RedactText bool `toml:"redact_text" json:"redact_text" yaml:"redact_text"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled turns on encoder metrics collection.
	Enabled bool `toml:"enabled" json:"enabled" yaml:"enabled"`

	// Format is the exposition format: "prometheus" or "json".
	Format string `toml:"format" json:"format" yaml:"format"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	dir := DataDir()

	return &Config{
		Version: Version,
		Device: DeviceConfig{
			ActuatorCount:    pattern.MaxActuators,
			DefaultIntensity: pattern.DefaultIntensity,
		},
		Encoding: EncodingConfig{
			Strategy:  hybrid.HybridAdaptive.String(),
			Normalize: true,
		},
		Protocol: ProtocolConfig{
			Batch:           true,
			MaxBatchPayload: protocol.MaxPayloadSize,
			Intensity:       200,
			Speed:           100,
			PatternSpacing:  50,
		},
		History: HistoryConfig{
			Enabled:       false,
			Path:          filepath.Join(dir, "history.db"),
			RetentionDays: 30,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stderr",
			FilePath:   filepath.Join(PlatformLogDir(), "tactiled.log"),
			MaxSizeMB:  10,
			MaxBackups: 3,
			Compress:   true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Format:  "prometheus",
		},
	}
}

// ConfigPath returns the default configuration file path.
func ConfigPath() string {
	return filepath.Join(PlatformConfigDir(), "config.toml")
}

// DataDir returns the base data directory.
// Uses platform-specific paths or the TACTILED_DATA_DIR environment override.
func DataDir() string {
	if envDir := os.Getenv(EnvPrefix + "DATA_DIR"); envDir != "" {
		return envDir
	}
	return PlatformDataDir()
}

// Load reads configuration from the specified path.
// If the file doesn't exist, returns default configuration.
// Supports TOML, JSON, and YAML formats based on file extension.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg, err := loadConfigFromFile(path)
	if err != nil {
		return nil, err
	}

	cfg.ApplyEnvOverrides()
	return cfg, nil
}

// loadConfigFromFile reads and parses a config file over the defaults.
func loadConfigFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode JSON: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode YAML: %w", err)
		}
	default:
		// TOML is the default format
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("decode TOML: %w", err)
		}
	}

	return cfg, nil
}

// Save writes the configuration to path, choosing the encoding by extension.
func (c *Config) Save(path string) error {
	var data []byte
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		data, err = json.MarshalIndent(c, "", "  ")
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		var buf bytes.Buffer
		err = toml.NewEncoder(&buf).Encode(c)
		data = buf.Bytes()
	}
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	return ValidateConfig(c)
}

// Strategy returns the configured encoding strategy.
func (c *Config) Strategy() (hybrid.Strategy, error) {
	return hybrid.ParseStrategy(c.Encoding.Strategy)
}

// EnsureDirectories creates the directories the configured files live in.
func (c *Config) EnsureDirectories() error {
	var dirs []string
	if c.History.Enabled {
		dirs = append(dirs, filepath.Dir(c.History.Path))
	}
	if c.Logging.Output == "file" || c.Logging.Output == "both" {
		dirs = append(dirs, filepath.Dir(c.Logging.FilePath))
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables are prefixed with TACTILED_ and use underscores.
// Unparseable values are ignored.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv(EnvPrefix + "STRATEGY"); v != "" {
		c.Encoding.Strategy = v
	}
	if v := os.Getenv(EnvPrefix + "TABLES_PATH"); v != "" {
		c.Encoding.TablesPath = v
	}
	if v, ok := envInt("ACTUATOR_COUNT"); ok {
		c.Device.ActuatorCount = v
	}
	if v, ok := envBool("BATCH"); ok {
		c.Protocol.Batch = v
	}

	if v, ok := envBool("HISTORY_ENABLED"); ok {
		c.History.Enabled = v
	}
	if v := os.Getenv(EnvPrefix + "HISTORY_PATH"); v != "" {
		c.History.Path = v
	}

	if v := os.Getenv(EnvPrefix + "LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(EnvPrefix + "LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv(EnvPrefix + "LOG_PATH"); v != "" {
		c.Logging.FilePath = v
	}

	if v, ok := envBool("METRICS_ENABLED"); ok {
		c.Metrics.Enabled = v
	}
}

func envBool(name string) (bool, bool) {
	v := os.Getenv(EnvPrefix + name)
	if v == "" {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}

func envInt(name string) (int, bool) {
	v := os.Getenv(EnvPrefix + name)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}
