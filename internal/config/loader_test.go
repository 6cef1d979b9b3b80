package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
}

func TestLoaderLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeConfig(t, path, "[encoding]\nstrategy = \"phoneme\"\n")

	l := NewLoader(path)
	defer l.Close()

	if l.Config() != nil {
		t.Error("Config should be nil before Load")
	}
	cfg, err := l.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Encoding.Strategy != "phoneme" {
		t.Errorf("expected phoneme, got %s", cfg.Encoding.Strategy)
	}
	if l.Config() != cfg {
		t.Error("Config should return the loaded configuration")
	}
}

func TestLoaderLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeConfig(t, path, "[device]\nactuator_count = 12\n")

	l := NewLoader(path)
	defer l.Close()

	if _, err := l.Load(); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoaderWatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeConfig(t, path, "[encoding]\nstrategy = \"adaptive\"\n")

	l := NewLoader(path)
	defer l.Close()
	if _, err := l.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	changed := make(chan *Config, 4)
	l.OnChange(func(c *Config) { changed <- c })

	if err := l.Watch(); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	writeConfig(t, path, "[encoding]\nstrategy = \"letter\"\n")

	select {
	case cfg := <-changed:
		if cfg.Encoding.Strategy != "letter" {
			t.Errorf("expected letter, got %s", cfg.Encoding.Strategy)
		}
		if l.Config().Encoding.Strategy != "letter" {
			t.Error("loader should hold the reloaded configuration")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}

	// an invalid file is reported and the last good config stays
	writeConfig(t, path, "[encoding]\nstrategy = \"morse\"\n")

	select {
	case err := <-l.Errors():
		if err == nil {
			t.Error("expected a reload error")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload error")
	}
	if l.Config().Encoding.Strategy != "letter" {
		t.Errorf("invalid reload replaced the config: %s", l.Config().Encoding.Strategy)
	}
}

func TestLoaderIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	writeConfig(t, path, "")

	l := NewLoader(path)
	defer l.Close()
	if _, err := l.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	changed := make(chan *Config, 1)
	l.OnChange(func(c *Config) { changed <- c })
	if err := l.Watch(); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	writeConfig(t, filepath.Join(dir, "other.toml"), "[encoding]\nstrategy = \"letter\"\n")

	select {
	case <-changed:
		t.Error("unrelated file triggered a reload")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestLoaderCloseWithoutWatch(t *testing.T) {
	l := NewLoader(filepath.Join(t.TempDir(), "config.toml"))
	if err := l.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}
