package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhubert/navgroup/config"
	"github.com/zhubert/navgroup/logger"
	"github.com/zhubert/navgroup/paths"
)

func TestMain(m *testing.M) {
	logger.Reset()
	logger.Init(os.DevNull)

	code := m.Run()

	logger.Reset()
	os.Exit(code)
}

// setupHome points every navgroup path at a fresh temp dir.
func setupHome(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(paths.HomeEnv, dir)
	paths.Reset()
	t.Cleanup(paths.Reset)
	return dir
}

// newTestConfig writes a config file under a fresh home and returns its path.
func newTestConfig(t *testing.T, edit func(*config.Config)) string {
	t.Helper()
	path := filepath.Join(setupHome(t), "config.json")

	cfg, err := config.LoadFrom(path)
	require.NoError(t, err)
	if edit != nil {
		edit(cfg)
	}
	require.NoError(t, cfg.Save())
	return path
}

// execute runs the root command with args and returns what it printed.
func execute(t *testing.T, opts *RootOptions, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := newRootCommand(opts)
	cmd.SetOut(buf)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

// decodeResponse unmarshals a json-format response, with data into v.
func decodeResponse(t *testing.T, out string, v any) CLIResponse {
	t.Helper()
	var raw struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
		Error  string          `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &raw), "output: %s", out)
	if v != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, v))
	}
	return CLIResponse{Status: raw.Status, Error: raw.Error}
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()

	assert.Equal(t, "navgroup", cmd.Use)
	assert.True(t, cmd.SilenceUsage)
	assert.True(t, cmd.SilenceErrors)

	for _, name := range []string{"state", "push", "store", "spawn", "close", "doctor", "logs"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, sub.Name())
	}
}

func TestRootGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	for _, name := range []string{"verbose", "debug", "format", "config"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
	}
	assert.Equal(t, "v", cmd.PersistentFlags().Lookup("verbose").Shorthand)
	assert.Equal(t, "text", cmd.PersistentFlags().Lookup("format").DefValue)
}

func TestRootInvalidFormat(t *testing.T) {
	cfgPath := newTestConfig(t, nil)

	_, err := execute(t, &RootOptions{}, "--config", cfgPath, "--format", "yaml", "logs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestRootInvalidConfig(t *testing.T) {
	setupHome(t)
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"store_backend":"redis"}`), 0644))

	_, err := execute(t, &RootOptions{}, "--config", path, "logs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config")
}

func TestRootDefaultConfigPath(t *testing.T) {
	home := setupHome(t)

	opts := &RootOptions{}
	_, err := execute(t, opts, "logs")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "config.json"), opts.cfg.FilePath())
}
