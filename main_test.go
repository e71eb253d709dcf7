package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xenocpu/internal/config"
	"xenocpu/internal/models"
	"xenocpu/internal/services"
)

const testConfig = `
auth:
  secret_key: "0123456789abcdef0123456789abcdef"
stress:
  buffer_elements: 64
  pause_interval: 5ms
benchmark:
  single_core_limit: 2000
  multi_core_limit: 5000
  warmup_iterations: 10
  cooldown: 0s
  single_core_trial_gap: 0s
  multi_core_trial_gap: 0s
logging:
  level: error
`

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "xenocpu.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out, _, err := executeSplit(t, args...)
	return out, err
}

func executeSplit(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(append([]string{"--config", writeConfig(t)}, args...))
	err := rootCmd.Execute()
	return out.String(), errOut.String(), err
}

func TestTokenCommand(t *testing.T) {
	out, errOut, err := executeSplit(t, "token", "--client-name", "dash-board")
	require.NoError(t, err)
	assert.Contains(t, errOut, "expires ")

	cfg, err := config.Load(writeConfig(t))
	require.NoError(t, err)
	claims, err := services.NewAuthService(cfg.Auth, log).ValidateToken(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "dash-board", claims.ClientName)
}

func TestTokenCommandRejectsBadName(t *testing.T) {
	_, err := execute(t, "token", "--client-name", "bad name!")
	assert.Error(t, err)
}

func TestBenchSingleJSON(t *testing.T) {
	out, err := execute(t, "bench", "single", "--json")
	require.NoError(t, err)

	var result models.BenchmarkResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, models.BenchmarkSingleCore, result.Kind)
	assert.Equal(t, 1, result.Threads)
	assert.Greater(t, result.Score, 0.0)
}

func TestStressCommandStopsAfterDuration(t *testing.T) {
	out, err := execute(t, "stress", "--threads", "2", "--duration", "50ms")
	require.NoError(t, err)
	assert.Contains(t, out, "stressing 2 threads")
}

func TestBadConfigPath(t *testing.T) {
	rootCmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml"), "info"})
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	assert.Error(t, rootCmd.Execute())
}
