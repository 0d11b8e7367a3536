package paths

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultDirs_Linux(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("linux-only test")
	}
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	tests := []struct {
		name   string
		env    string
		envVal string
		fn     func() (string, error)
		want   string
	}{
		{"config uses XDG_CONFIG_HOME", "XDG_CONFIG_HOME", "/tmp/xdg-config", DefaultConfigDir, "/tmp/xdg-config/tickets"},
		{"config falls back to ~/.config", "XDG_CONFIG_HOME", "", DefaultConfigDir, filepath.Join(home, ".config", "tickets")},
		{"data uses XDG_DATA_HOME", "XDG_DATA_HOME", "/tmp/xdg-data", DefaultDataDir, "/tmp/xdg-data/tickets"},
		{"data falls back to ~/.local/share", "XDG_DATA_HOME", "", DefaultDataDir, filepath.Join(home, ".local", "share", "tickets")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.env, tt.envVal)
			got, err := tt.fn()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDefaultDirs_HomeError(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("linux-only test")
	}
	t.Setenv("XDG_CONFIG_HOME", "")
	orig := platformDir.homeDir
	platformDir.homeDir = func() (string, error) { return "", errors.New("no home") }
	t.Cleanup(func() { platformDir.homeDir = orig })

	_, err := DefaultConfigDir()
	assert.Error(t, err)
}

func TestDefaultDirs_Darwin(t *testing.T) {
	if runtime.GOOS != "darwin" {
		t.Skip("darwin-only test")
	}
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	want := filepath.Join(home, "Library", "Application Support", "tickets")

	got, err := DefaultConfigDir()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	got, err = DefaultDataDir()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestResolveConfigDir(t *testing.T) {
	tests := []struct {
		name    string
		flag    string
		envVal  string
		wantSub string // substring the result must contain
	}{
		{"flag wins over env", "/explicit/config", "/env/config", "/explicit/config"},
		{"env wins when flag empty", "", "/env/config", "/env/config"},
		{"platform default when both empty", "", "", "tickets"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvConfigDir, tt.envVal)
			got, err := ResolveConfigDir(tt.flag)
			require.NoError(t, err)
			assert.Contains(t, got, tt.wantSub)
		})
	}
}

func TestResolveDataDir(t *testing.T) {
	cwd, err := os.Getwd()
	require.NoError(t, err)

	tests := []struct {
		name        string
		flag        string
		configValue string
		envVal      string
		want        string
	}{
		{"flag wins over all", "/flag/data", "/config/data", "/env/data", "/flag/data"},
		{"config wins over env", "", "/config/data", "/env/data", "/config/data"},
		{"env wins when flag and config empty", "", "", "/env/data", "/env/data"},
		{"CWD default when all empty", "", "", "", filepath.Join(cwd, DefaultDataDirName)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvDataDir, tt.envVal)
			got, err := ResolveDataDir(tt.flag, tt.configValue)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_RelativeBecomesAbsolute(t *testing.T) {
	t.Setenv(EnvConfigDir, "relative/env")
	t.Setenv(EnvDataDir, "")

	got, err := ResolveConfigDir("")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got), "expected absolute path, got %s", got)

	got, err = ResolveDataDir("", "relative/config")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got), "expected absolute path, got %s", got)
}

func TestConfigFile(t *testing.T) {
	assert.Equal(t, filepath.Join("/etc/tickets", "config.yaml"), ConfigFile("/etc/tickets"))
}
