package config

import (
	"os"
	"path/filepath"
	"runtime"
)

const appName = "tactiled"

// PlatformDataDir returns the platform-specific data directory.
//
// Platform paths:
//   - macOS:   ~/Library/Application Support/tactiled/
//   - Linux:   ~/.local/share/tactiled/
//   - Windows: %LOCALAPPDATA%\tactiled\
//
// Falls back to ~/.tactiled if platform detection fails.
func PlatformDataDir() string {
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDir(), "Library", "Application Support", appName)
	case "linux":
		if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
			return filepath.Join(xdgData, appName)
		}
		return filepath.Join(homeDir(), ".local", "share", appName)
	case "windows":
		return windowsLocalDir()
	default:
		return fallbackDataDir()
	}
}

// PlatformConfigDir returns the platform-specific config directory.
//
// Platform paths:
//   - macOS:   ~/Library/Application Support/tactiled/
//   - Linux:   ~/.config/tactiled/
//   - Windows: %LOCALAPPDATA%\tactiled\
func PlatformConfigDir() string {
	switch runtime.GOOS {
	case "linux":
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			return filepath.Join(xdgConfig, appName)
		}
		return filepath.Join(homeDir(), ".config", appName)
	default:
		return PlatformDataDir()
	}
}

// PlatformLogDir returns the platform-specific log directory.
//
// Platform paths:
//   - macOS:   ~/Library/Logs/tactiled/
//   - Linux:   ~/.local/state/tactiled/
//   - Windows: %LOCALAPPDATA%\tactiled\logs\
func PlatformLogDir() string {
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDir(), "Library", "Logs", appName)
	case "linux":
		if xdgState := os.Getenv("XDG_STATE_HOME"); xdgState != "" {
			return filepath.Join(xdgState, appName)
		}
		return filepath.Join(homeDir(), ".local", "state", appName)
	case "windows":
		return filepath.Join(windowsLocalDir(), "logs")
	default:
		return filepath.Join(fallbackDataDir(), "logs")
	}
}

func windowsLocalDir() string {
	if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
		return filepath.Join(localAppData, appName)
	}
	return filepath.Join(homeDir(), "AppData", "Local", appName)
}

func fallbackDataDir() string {
	return filepath.Join(homeDir(), "."+appName)
}

func homeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	home, _ := os.UserHomeDir()
	return home
}

// SupportedConfigFormats lists the config file extensions Load understands.
func SupportedConfigFormats() []string {
	return []string{"toml", "json", "yaml", "yml"}
}

// FindConfigFile searches for a config file in standard locations.
// Returns the path to the first found config file, or empty string if none found.
func FindConfigFile() string {
	// Search order:
	// 1. Current directory
	// 2. Config directory
	// 3. Data directory
	searchDirs := []string{".", PlatformConfigDir(), DataDir()}

	for _, dir := range searchDirs {
		for _, ext := range SupportedConfigFormats() {
			path := filepath.Join(dir, "config."+ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}
