package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/tickets/internal/acl"
	"github.com/mesh-intelligence/tickets/internal/logging"
	"github.com/mesh-intelligence/tickets/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"

	cfgKeyBackend   = "backend"
	cfgKeyDataDir   = "data_dir"
	cfgKeyLogLevel  = "log_level"
	cfgKeyLogFormat = "log_format"
	cfgKeyActorUUID = "actor.uuid"
	cfgKeyActorName = "actor.name"
)

// Environment overrides for individual keys.
var envBindings = map[string]string{
	cfgKeyActorUUID: "TICKETS_ACTOR_UUID",
	cfgKeyActorName: "TICKETS_ACTOR_NAME",
	cfgKeyLogLevel:  "TICKETS_LOG_LEVEL",
}

// settings is the decoded content of config.yaml.
type settings struct {
	Backend     string              `mapstructure:"backend"`
	DataDir     string              `mapstructure:"data_dir"`
	BusyTimeout time.Duration       `mapstructure:"busy_timeout"`
	LogLevel    string              `mapstructure:"log_level"`
	LogFormat   string              `mapstructure:"log_format"`
	Actor       types.Actor         `mapstructure:"actor"`
	Roles       map[string][]string `mapstructure:"roles"`
}

// configFile is the structure written to config.yaml by init.
type configFile struct {
	Backend   string      `yaml:"backend"`
	DataDir   string      `yaml:"data_dir,omitempty"`
	LogLevel  string      `yaml:"log_level"`
	LogFormat string      `yaml:"log_format"`
	Actor     types.Actor `yaml:"actor"`
}

const configHeader = `# tickets configuration
#
# roles maps a role name to the capabilities it grants; when absent the
# built-in admin, user and observer roles apply.
`

// loadConfig reads config.yaml from configDir. A missing file is not an
// error; defaults apply.
func loadConfig(configDir string) (*viper.Viper, error) {
	v := viper.New()
	v.SetDefault(cfgKeyBackend, types.BackendSQLite)
	v.SetDefault(cfgKeyLogLevel, "warn")
	v.SetDefault(cfgKeyLogFormat, logging.FormatConsole)
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, sysError("bind %s: %w", env, err)
		}
	}
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

func decodeSettings(v *viper.Viper) (settings, error) {
	var s settings
	if err := v.Unmarshal(&s); err != nil {
		return settings{}, fmt.Errorf("decode config: %w", err)
	}
	return s, nil
}

// gate returns the role gate for the configured role table.
func (s settings) gate() *acl.RoleGate {
	if len(s.Roles) == 0 {
		return acl.NewRoleGate(acl.DefaultRoles())
	}
	return acl.NewRoleGate(s.Roles)
}

// actor returns the configured actor or an error telling the user how to
// set one.
func (s settings) actor() (types.Actor, error) {
	if s.Actor.UUID == "" {
		return types.Actor{}, errors.New("no actor configured: run 'tickets init' or set actor.uuid")
	}
	return s.Actor, nil
}

// writeConfigIfMissing creates config.yaml with the given values unless the
// file already exists. It reports whether it wrote the file.
func writeConfigIfMissing(path string, cfg configFile) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("stat config file: %w", err)
	}

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, append([]byte(configHeader), data...), 0o644); err != nil {
		return false, err
	}
	return true, nil
}
