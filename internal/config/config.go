package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "WORKFLOWDESK"

// EnvConfigPath names an explicit config file.
const EnvConfigPath = "WORKFLOWDESK_CONFIG_PATH"

const (
	appDirName     = "workflowdesk"
	configFileName = "config.yaml"
)

// Short environment names for the settings people set most.
var envAliases = map[string]string{
	"api.base_url":   "WORKFLOWDESK_API_URL",
	"api.token":      "WORKFLOWDESK_API_TOKEN",
	"api.tenant_id":  "WORKFLOWDESK_TENANT_ID",
	"logging.level":  "WORKFLOWDESK_LOG_LEVEL",
	"logging.format": "WORKFLOWDESK_LOG_FORMAT",
}

// Loader loads configuration with Viper.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a [Loader] with defaults and environment bindings.
func NewLoader() *Loader {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, DefaultConfig())
	for key, env := range envAliases {
		// BindEnv only fails without a key.
		_ = v.BindEnv(key, env, EnvPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")))
	}

	return &Loader{v: v}
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("api.base_url", cfg.API.BaseURL)
	v.SetDefault("api.token", cfg.API.Token)
	v.SetDefault("api.tenant_id", cfg.API.TenantID)
	v.SetDefault("api.timeout", cfg.API.Timeout)
	v.SetDefault("logging.level", string(cfg.Logging.Level))
	v.SetDefault("logging.format", string(cfg.Logging.Format))
	v.SetDefault("board.default_template", cfg.Board.DefaultTemplate)
	v.SetDefault("board.show_completed", cfg.Board.ShowCompleted)
	v.SetDefault("board.card_width", cfg.Board.CardWidth)
	v.SetDefault("snapshot_path", cfg.SnapshotPath)
}

// Load reads the first config file found and applies environment overrides.
// A missing config file is not an error.
func (l *Loader) Load() (*Config, error) {
	if path := os.Getenv(EnvConfigPath); path != "" {
		return l.LoadFromFile(path)
	}

	if dir, err := ConfigDir(); err == nil {
		l.v.AddConfigPath(dir)
	}
	l.v.AddConfigPath(".")
	l.v.SetConfigName(strings.TrimSuffix(configFileName, filepath.Ext(configFileName)))

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return l.unmarshal()
}

// LoadFromFile reads the given config file and applies environment overrides.
func (l *Loader) LoadFromFile(path string) (*Config, error) {
	l.v.SetConfigFile(path)
	if err := l.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	return l.unmarshal()
}

// ConfigFileUsed returns the config file that was read, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

func (l *Loader) unmarshal() (*Config, error) {
	cfg := &Config{}
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ConfigDir returns the platform config directory for workflowdesk.
func ConfigDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user config dir: %w", err)
	}
	return filepath.Join(base, appDirName), nil
}

// DefaultConfigPath returns the path of the user config file.
func DefaultConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// EnsureConfigDir creates the user config directory if needed.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	return nil
}

// WriteDefault writes the default configuration as YAML to path, or to
// [DefaultConfigPath] when path is empty, and returns the path written.
// An existing file is left alone unless overwrite is set.
func WriteDefault(path string, overwrite bool) (string, error) {
	if path == "" {
		if err := EnsureConfigDir(); err != nil {
			return "", err
		}
		p, err := DefaultConfigPath()
		if err != nil {
			return "", err
		}
		path = p
	}

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v, DefaultConfig())

	write := v.SafeWriteConfigAs
	if overwrite {
		write = v.WriteConfigAs
	}
	if err := write(path); err != nil {
		return "", fmt.Errorf("failed to write config: %w", err)
	}
	return path, nil
}
