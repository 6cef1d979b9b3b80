package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tactiled/internal/hybrid"
)

func TestDefaultConfig(t *testing.T) {
	t.Setenv("TACTILED_DATA_DIR", "/var/lib/tactiled")

	cfg := DefaultConfig()
	if cfg == nil {
		t.Fatal("DefaultConfig returned nil")
	}

	if cfg.Device.ActuatorCount != 8 {
		t.Errorf("expected 8 actuators, got %d", cfg.Device.ActuatorCount)
	}
	if cfg.Protocol.MaxBatchPayload != 255 {
		t.Errorf("expected max batch payload 255, got %d", cfg.Protocol.MaxBatchPayload)
	}
	if !cfg.Protocol.Batch {
		t.Error("batching should be on by default")
	}
	if !cfg.Encoding.Normalize {
		t.Error("normalization should be on by default")
	}
	if cfg.History.Path != filepath.Join("/var/lib/tactiled", "history.db") {
		t.Errorf("history path should follow TACTILED_DATA_DIR: %s", cfg.History.Path)
	}

	s, err := cfg.Strategy()
	if err != nil {
		t.Fatalf("Strategy failed: %v", err)
	}
	if s != hybrid.HybridAdaptive {
		t.Errorf("expected adaptive strategy, got %v", s)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestConfigPath(t *testing.T) {
	path := ConfigPath()
	if !strings.HasSuffix(path, "config.toml") {
		t.Errorf("expected path ending with config.toml, got %s", path)
	}
	if !strings.Contains(path, "tactiled") {
		t.Errorf("config path should contain tactiled: %s", path)
	}
}

func TestLoadNonexistent(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Encoding.Strategy != "adaptive" {
		t.Errorf("expected default strategy, got %s", cfg.Encoding.Strategy)
	}
}

func TestLoadFormats(t *testing.T) {
	files := map[string]string{
		"config.toml": `
[encoding]
strategy = "word_level"

[protocol]
max_batch_payload = 128
batch = false
`,
		"config.json": `{"encoding": {"strategy": "word_level"}, "protocol": {"max_batch_payload": 128, "batch": false}}`,
		"config.yaml": `
encoding:
  strategy: word_level
protocol:
  max_batch_payload: 128
  batch: false
`,
	}

	for name, content := range files {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			if err := os.WriteFile(path, []byte(content), 0600); err != nil {
				t.Fatalf("failed to write config: %v", err)
			}

			cfg, err := Load(path)
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if cfg.Encoding.Strategy != "word_level" {
				t.Errorf("expected word_level, got %s", cfg.Encoding.Strategy)
			}
			if cfg.Protocol.MaxBatchPayload != 128 {
				t.Errorf("expected 128, got %d", cfg.Protocol.MaxBatchPayload)
			}
			if cfg.Protocol.Batch {
				t.Error("expected batching off")
			}
			// untouched sections keep their defaults
			if cfg.Protocol.Intensity != 200 {
				t.Errorf("expected default intensity 200, got %d", cfg.Protocol.Intensity)
			}
			if !cfg.Encoding.Normalize {
				t.Error("expected default normalize")
			}
		})
	}
}

func TestLoadInvalid(t *testing.T) {
	for name, content := range map[string]string{
		"bad.toml": "this is not valid toml {{{",
		"bad.json": `{"encoding": `,
		"bad.yaml": "encoding: [unterminated",
	} {
		path := filepath.Join(t.TempDir(), name)
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}
		if _, err := Load(path); err == nil {
			t.Errorf("%s: expected decode error", name)
		}
	}
}

func TestSaveRoundTrip(t *testing.T) {
	for _, ext := range []string{".toml", ".json", ".yaml"} {
		t.Run(ext, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Encoding.Strategy = "phoneme"
			cfg.Device.ActuatorCount = 6
			cfg.History.Enabled = true

			path := filepath.Join(t.TempDir(), "nested", "config"+ext)
			if err := cfg.Save(path); err != nil {
				t.Fatalf("Save failed: %v", err)
			}

			loaded, err := Load(path)
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if *loaded != *cfg {
				t.Errorf("round trip mismatch:\n got %+v\nwant %+v", loaded, cfg)
			}
		})
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("TACTILED_STRATEGY", "letter")
	t.Setenv("TACTILED_TABLES_PATH", "/etc/tactiled/tables.yaml")
	t.Setenv("TACTILED_ACTUATOR_COUNT", "4")
	t.Setenv("TACTILED_BATCH", "false")
	t.Setenv("TACTILED_HISTORY_ENABLED", "true")
	t.Setenv("TACTILED_HISTORY_PATH", "/tmp/h.db")
	t.Setenv("TACTILED_LOG_LEVEL", "debug")
	t.Setenv("TACTILED_METRICS_ENABLED", "not-a-bool")

	cfg := DefaultConfig()
	cfg.ApplyEnvOverrides()

	if cfg.Encoding.Strategy != "letter" {
		t.Errorf("expected letter, got %s", cfg.Encoding.Strategy)
	}
	if cfg.Encoding.TablesPath != "/etc/tactiled/tables.yaml" {
		t.Errorf("unexpected tables path %s", cfg.Encoding.TablesPath)
	}
	if cfg.Device.ActuatorCount != 4 {
		t.Errorf("expected 4 actuators, got %d", cfg.Device.ActuatorCount)
	}
	if cfg.Protocol.Batch {
		t.Error("expected batching off")
	}
	if !cfg.History.Enabled || cfg.History.Path != "/tmp/h.db" {
		t.Errorf("history overrides not applied: %+v", cfg.History)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected debug, got %s", cfg.Logging.Level)
	}
	if !cfg.Metrics.Enabled {
		t.Error("unparseable bool should leave the default")
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"version", func(c *Config) { c.Version = 9 }, "version"},
		{"actuators", func(c *Config) { c.Device.ActuatorCount = 9 }, "device.actuator_count"},
		{"no actuators", func(c *Config) { c.Device.ActuatorCount = 0 }, "device.actuator_count"},
		{"intensity", func(c *Config) { c.Device.DefaultIntensity = 300 }, "device.default_intensity"},
		{"strategy", func(c *Config) { c.Encoding.Strategy = "morse" }, "encoding.strategy"},
		{"tables", func(c *Config) { c.Encoding.TablesPath = "tables.txt" }, "encoding.tables_path"},
		{"batch payload", func(c *Config) { c.Protocol.MaxBatchPayload = 256 }, "protocol.max_batch_payload"},
		{"speed", func(c *Config) { c.Protocol.Speed = -1 }, "protocol.speed"},
		{"history path", func(c *Config) { c.History.Enabled = true; c.History.Path = "" }, "history.path"},
		{"retention", func(c *Config) { c.History.RetentionDays = -1 }, "history.retention_days"},
		{"log level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"log output", func(c *Config) { c.Logging.Output = "syslog" }, "logging.output"},
		{"log file", func(c *Config) { c.Logging.Output = "file"; c.Logging.FilePath = "" }, "logging.file_path"},
		{"metrics", func(c *Config) { c.Metrics.Format = "statsd" }, "metrics.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}

			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("expected ValidationErrors, got %T", err)
			}
			if len(verrs) != 1 || verrs.Fields()[0] != tt.field {
				t.Errorf("expected one error on %s, got %v", tt.field, verrs)
			}
		})
	}
}

func TestValidateCollectsAll(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Encoding.Strategy = "morse"
	cfg.Protocol.Intensity = 999
	cfg.Logging.Format = "xml"

	var verrs ValidationErrors
	if !errors.As(cfg.Validate(), &verrs) {
		t.Fatal("expected ValidationErrors")
	}
	if len(verrs) != 3 {
		t.Errorf("expected 3 errors, got %d: %v", len(verrs), verrs)
	}
	if !strings.Contains(verrs.Error(), "encoding.strategy") {
		t.Errorf("message should name the field: %s", verrs.Error())
	}
}

func TestClone(t *testing.T) {
	cfg := DefaultConfig()
	clone := cfg.Clone()
	clone.Encoding.Strategy = "letter"

	if cfg.Encoding.Strategy == "letter" {
		t.Error("modifying the clone changed the original")
	}
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.History.Enabled = true
	cfg.History.Path = filepath.Join(dir, "data", "history.db")
	cfg.Logging.Output = "file"
	cfg.Logging.FilePath = filepath.Join(dir, "logs", "tactiled.log")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, sub := range []string{"data", "logs"} {
		if info, err := os.Stat(filepath.Join(dir, sub)); err != nil || !info.IsDir() {
			t.Errorf("expected directory %s", sub)
		}
	}
}

func TestFindConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TACTILED_DATA_DIR", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	if got := FindConfigFile(); got != "" {
		t.Fatalf("expected no config file, got %s", got)
	}

	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("metrics:\n  enabled: false\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if got := FindConfigFile(); got != path {
		t.Errorf("expected %s, got %s", path, got)
	}
}
