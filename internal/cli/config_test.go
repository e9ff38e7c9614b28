package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workflowdesk/internal/apitest"
	"workflowdesk/internal/config"
	"workflowdesk/internal/logging"
)

func TestConfigInitCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "workflowdesk.yaml")
	app, buf := newTestApp(t, nil)

	_, err := execute(app, "", "--config", path, "config", "init")

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "✓ Wrote "+path)
	cfg, err := config.NewLoader().LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig().API.BaseURL, cfg.API.BaseURL)
}

func TestConfigInitCommand_Existing(t *testing.T) {
	path := writeFile(t, "config.yaml", "board:\n  card_width: 40\n")

	app, buf := newTestApp(t, nil)
	_, err := execute(app, "", "--config", path, "config", "init")
	requireExitCode(t, err, 1)
	assert.Contains(t, buf.String(), "failed to write config")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "card_width: 40")

	app, _ = newTestApp(t, nil)
	_, err = execute(app, "", "--config", path, "config", "init", "--force")
	require.NoError(t, err)
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "card_width: 28")
}

func TestConfigInitCommand_UserConfigDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	want, err := config.DefaultConfigPath()
	if err != nil {
		t.Skip("no user config dir on this platform")
	}
	app, _ := newTestApp(t, nil)

	_, err = execute(app, "", "config", "init")

	require.NoError(t, err)
	assert.FileExists(t, want)
}

func TestConfigPathCommand(t *testing.T) {
	t.Run("explicit", func(t *testing.T) {
		app, _ := newTestApp(t, nil)

		out, err := execute(app, "", "--config", "/etc/wd.yaml", "config", "path")

		require.NoError(t, err)
		assert.Equal(t, "/etc/wd.yaml", strings.TrimSpace(out))
	})

	t.Run("default", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", t.TempDir())
		want, err := config.DefaultConfigPath()
		if err != nil {
			t.Skip("no user config dir on this platform")
		}
		app, _ := newTestApp(t, nil)

		out, err := execute(app, "", "config", "path")

		require.NoError(t, err)
		assert.Equal(t, want, strings.TrimSpace(out))
	})
}

func TestGlobalFlags_LogLevel(t *testing.T) {
	srv := apitest.New(t)
	srv.SeedPipeline()

	app, _ := newTestApp(t, srv)
	_, err := execute(app, "", "--log-level", "DEBUG", "templates", "list")
	require.NoError(t, err)
	assert.Equal(t, logging.LevelDebug, app.Config.Logging.Level)
	assert.Equal(t, logging.FormatText, app.Config.Logging.Format)

	app, buf := newTestApp(t, srv)
	_, err = execute(app, "", "--log-level", "verbose", "templates", "list")
	requireExitCode(t, err, 1)
	assert.Contains(t, buf.String(), "invalid log level")
}
