// Package config provides configuration loading and management for workflowdesk.
//
// Configuration is loaded using Viper, supporting YAML config files and environment
// variable overrides. The defaults work for a local API; production use needs at
// least the API URL and token.
//
// Key types:
//   - [Config] is the root configuration container with all settings
//   - [Loader] handles Viper-based configuration loading
//   - [APIConfig] holds the workflow API connection settings
//   - [BoardConfig] holds board rendering preferences
//
// Configuration priority (highest to lowest):
//  1. Command-line flags (--api-url, applied by the cli package)
//  2. Environment variables (WORKFLOWDESK_ prefix)
//  3. Config file specified by WORKFLOWDESK_CONFIG_PATH
//  4. User config directory (platform-standard):
//     - Linux: ~/.config/workflowdesk/config.yaml
//     - macOS: ~/Library/Application Support/workflowdesk/config.yaml
//     - Windows: %APPDATA%\workflowdesk\config.yaml
//  5. ./config.yaml
//  6. [DefaultConfig] defaults
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"workflowdesk/internal/api"
	"workflowdesk/internal/logging"
)

// Config represents the root configuration structure.
type Config struct {
	// API contains the workflow API connection settings.
	API APIConfig `mapstructure:"api"`

	// Logging controls diagnostic log level and format.
	Logging logging.Config `mapstructure:"logging"`

	// Board contains board rendering preferences.
	Board BoardConfig `mapstructure:"board"`

	// SnapshotPath points at an offline snapshot file. When set, commands read
	// from it instead of the API.
	SnapshotPath string `mapstructure:"snapshot_path"`
}

// APIConfig contains workflow API connection settings.
type APIConfig struct {
	// BaseURL is the server root, e.g. https://tax.example.com.
	// Can be overridden with WORKFLOWDESK_API_URL.
	BaseURL string `mapstructure:"base_url"`

	// Token is sent as a bearer token. Can be overridden with WORKFLOWDESK_API_TOKEN.
	Token string `mapstructure:"token"`

	// TenantID is sent as X-Tenant-ID when set. Can be overridden with
	// WORKFLOWDESK_TENANT_ID.
	TenantID string `mapstructure:"tenant_id"`

	// Timeout bounds each request. Default: 30s.
	Timeout time.Duration `mapstructure:"timeout"`
}

// BoardConfig contains board rendering preferences.
type BoardConfig struct {
	// DefaultTemplate is the template id shown when board is run without
	// --template. Empty selects the first active template.
	DefaultTemplate string `mapstructure:"default_template"`

	// ShowCompleted controls whether the completed list is printed under the
	// board. Default: true.
	ShowCompleted bool `mapstructure:"show_completed"`

	// CardWidth is the width of one board column in cells. Default: 28.
	CardWidth int `mapstructure:"card_width"`
}

// DefaultConfig returns a [Config] with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "http://localhost:8000",
			Timeout: api.DefaultTimeout,
		},
		Logging: logging.Config{
			Level:  logging.LevelInfo,
			Format: logging.FormatText,
		},
		Board: BoardConfig{
			ShowCompleted: true,
			CardWidth:     28,
		},
	}
}

// Validate normalizes the configuration and reports the first invalid setting.
func (c *Config) Validate() error {
	if err := c.Logging.Finalize(); err != nil {
		return err
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive, got %s", c.API.Timeout)
	}
	if c.Board.CardWidth < 12 {
		return fmt.Errorf("board.card_width must be at least 12, got %d", c.Board.CardWidth)
	}
	return nil
}

// ErrNoAPIURL indicates no API URL is configured.
var ErrNoAPIURL = errors.New("api.base_url is not set (use --api-url or WORKFLOWDESK_API_URL)")

// ClientConfig returns the API client settings, checking the URL.
func (c *Config) ClientConfig() (api.Config, error) {
	raw := strings.TrimSpace(c.API.BaseURL)
	if raw == "" {
		return api.Config{}, ErrNoAPIURL
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return api.Config{}, fmt.Errorf("invalid api.base_url %q: must be an absolute http(s) URL", raw)
	}
	return api.Config{
		BaseURL:  raw,
		Token:    c.API.Token,
		TenantID: c.API.TenantID,
		Timeout:  c.API.Timeout,
	}, nil
}
