package cli

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"workflowdesk/internal/apitest"
	"workflowdesk/internal/config"
	"workflowdesk/internal/output"
	"workflowdesk/internal/snapshot"
)

// MockConfirmer is a mock for testing.
type MockConfirmer struct {
	// Answer is returned for every prompt.
	Answer bool
	// Err is returned instead of an answer when set.
	Err error
	// Prompts records every prompt shown.
	Prompts []string
}

func (m *MockConfirmer) Confirm(ctx context.Context, prompt string) (bool, error) {
	m.Prompts = append(m.Prompts, prompt)
	if m.Err != nil {
		return false, m.Err
	}
	return m.Answer, nil
}

// newTestApp creates an App pointed at srv whose printer writes to the
// returned buffer.
func newTestApp(t *testing.T, srv *apitest.Server) (*App, *bytes.Buffer) {
	t.Helper()
	t.Setenv(snapshot.EnvPath, "")

	cfg := config.DefaultConfig()
	if srv != nil {
		cfg.API.BaseURL = srv.URL()
	}
	buf := &bytes.Buffer{}
	return &App{
		Config:  cfg,
		Printer: output.NewPrinterWithWriter(buf),
		Logger:  slog.New(slog.DiscardHandler),
	}, buf
}

// execute runs the root command with args and returns the error and
// everything cobra itself wrote.
func execute(app *App, stdin string, args ...string) (string, error) {
	rootCmd := NewRootCommand(app)
	outBuf := &bytes.Buffer{}
	rootCmd.SetOut(outBuf)
	rootCmd.SetErr(outBuf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return outBuf.String(), err
}

// writeFile writes content to name in a temporary directory and returns the
// path.
func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}
