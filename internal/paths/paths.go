// Package paths resolves the configuration and data directories of the
// tickets CLI. Each is chosen by precedence: command-line flag, then
// configuration value (data only), then environment, then a default.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppName names the per-user directories under the platform roots.
const AppName = "tickets"

// CWD-relative directory names.
const (
	DefaultConfigDirName = ".tickets"
	DefaultDataDirName   = ".tickets-db"
)

// ConfigFileName is the configuration file inside the config directory.
const ConfigFileName = "config.yaml"

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "TICKETS_CONFIG_DIR"
	EnvDataDir   = "TICKETS_DATA_DIR"
)

// platformDir holds platform-detection functions that can be overridden in tests.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// userDir returns <root>/tickets. On Linux root is $xdgEnv, falling back to
// ~/<linuxFallback...>; elsewhere it is os.UserConfigDir.
func userDir(xdgEnv string, linuxFallback ...string) (string, error) {
	if runtime.GOOS != "linux" {
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, AppName), nil
	}
	if xdg := os.Getenv(xdgEnv); xdg != "" {
		return filepath.Join(xdg, AppName), nil
	}
	home, err := platformDir.homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(append(append([]string{home}, linuxFallback...), AppName)...), nil
}

// DefaultConfigDir returns the platform-specific default configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/tickets (fallback ~/.config/tickets)
// macOS:   ~/Library/Application Support/tickets
// Windows: %APPDATA%/tickets
func DefaultConfigDir() (string, error) {
	return userDir("XDG_CONFIG_HOME", ".config")
}

// DefaultDataDir returns the platform-specific default data directory.
//
// Linux:   $XDG_DATA_HOME/tickets (fallback ~/.local/share/tickets)
// macOS and Windows: same as DefaultConfigDir.
func DefaultDataDir() (string, error) {
	return userDir("XDG_DATA_HOME", ".local", "share")
}

// firstAbs returns the absolute form of the first non-empty candidate.
func firstAbs(candidates ...string) (string, bool, error) {
	for _, c := range candidates {
		if c != "" {
			abs, err := filepath.Abs(c)
			return abs, true, err
		}
	}
	return "", false, nil
}

// ResolveConfigDir returns the configuration directory:
// flag > TICKETS_CONFIG_DIR > DefaultConfigDir().
func ResolveConfigDir(flag string) (string, error) {
	if dir, ok, err := firstAbs(flag, os.Getenv(EnvConfigDir)); ok || err != nil {
		return dir, err
	}
	return DefaultConfigDir()
}

// ResolveDataDir returns the data directory:
// flag > config value > TICKETS_DATA_DIR > $(CWD)/.tickets-db.
func ResolveDataDir(flag, configValue string) (string, error) {
	if dir, ok, err := firstAbs(flag, configValue, os.Getenv(EnvDataDir)); ok || err != nil {
		return dir, err
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, DefaultDataDirName), nil
}

// ConfigFile returns the path of the configuration file in configDir.
func ConfigFile(configDir string) string {
	return filepath.Join(configDir, ConfigFileName)
}
