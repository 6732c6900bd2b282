package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestEnvironmentVariableExpansion(t *testing.T) {
	testCases := []struct {
		name       string
		envVars    map[string]string
		yamlConfig string
		validate   func(*testing.T, *Config)
	}{
		{
			name:    "basic env var expansion",
			envVars: map[string]string{"QUILL_TEST_KEY": "test-key-123"},
			yamlConfig: `
llm:
    provider: openai
    api_key: ${QUILL_TEST_KEY}
    model: gpt-4o-mini`,
			validate: func(t *testing.T, c *Config) {
				assert.Equal(t, "test-key-123", c.LLM.APIKey)
			},
		},
		{
			name: "missing env var",
			yamlConfig: `
llm:
    provider: openai
    api_key: "${QUILL_MISSING_KEY}"
    model: gpt-4o-mini`,
			validate: func(t *testing.T, c *Config) {
				assert.Empty(t, c.LLM.APIKey)
			},
		},
		{
			name: "default value",
			yamlConfig: `
server:
    port: ${QUILL_TEST_PORT:-4100}`,
			validate: func(t *testing.T, c *Config) {
				assert.Equal(t, 4100, c.Server.Port)
			},
		},
		{
			name:    "set value wins over default",
			envVars: map[string]string{"QUILL_TEST_PORT": "4200"},
			yamlConfig: `
server:
    port: ${QUILL_TEST_PORT:-4100}`,
			validate: func(t *testing.T, c *Config) {
				assert.Equal(t, 4200, c.Server.Port)
			},
		},
		{
			name: "multiple env vars in single value",
			envVars: map[string]string{
				"QUILL_API_HOST":    "localhost:11434",
				"QUILL_API_VERSION": "v1",
			},
			yamlConfig: `
providers:
    local:
        backend: ollama_native
        model: llama3
        endpoint: http://${QUILL_API_HOST}/${QUILL_API_VERSION}`,
			validate: func(t *testing.T, c *Config) {
				assert.Equal(t, "http://localhost:11434/v1", c.Providers["local"].Endpoint)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.envVars {
				t.Setenv(k, v)
			}

			config, err := Load(strings.NewReader(tc.yamlConfig))
			require.NoError(t, err)
			tc.validate(t, config)
		})
	}
}

func TestLoadFileWithDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("QUILL_DOTENV_KEY=from-dotenv\n"), 0o600))
	path := writeConfig(t, dir, "llm:\n  provider: openai\n  model: gpt-4o-mini\n  api_key: ${QUILL_DOTENV_KEY}\n")
	t.Cleanup(func() { os.Unsetenv("QUILL_DOTENV_KEY") })

	config, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", config.LLM.APIKey)
}

func TestDotEnvDoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("QUILL_OVERRIDE_KEY=file\n"), 0o600))
	t.Setenv("QUILL_OVERRIDE_KEY", "process")

	require.NoError(t, LoadDotEnv(envFile, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "process", os.Getenv("QUILL_OVERRIDE_KEY"))
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open config file")
}

func TestConfigWatcherReload(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "logging:\n  level: info\n")

	watcher, err := NewConfigWatcher(path, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer watcher.Close()

	assert.Equal(t, "info", watcher.GetCurrentConfig().Logging.Level)
	updates := watcher.Subscribe()

	// an invalid file is ignored
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: loud\n"), 0o600))
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, "info", watcher.GetCurrentConfig().Logging.Level)

	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: debug\n"), 0o600))
	// a write may surface as several events; wait for the final content
	deadline := time.After(3 * time.Second)
	for {
		select {
		case cfg := <-updates:
			if cfg.Logging.Level != "debug" {
				continue
			}
		case <-deadline:
			t.Fatal("timed out waiting for config reload")
		}
		break
	}
	assert.Equal(t, "debug", watcher.GetCurrentConfig().Logging.Level)
}

func TestStaticWatcher(t *testing.T) {
	cfg := DefaultConfig()
	w := NewStaticWatcher(cfg)
	assert.Same(t, cfg, w.GetCurrentConfig())
	select {
	case <-w.Subscribe():
		t.Fatal("static watcher must never deliver")
	default:
	}
	assert.NoError(t, w.Close())
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "quill.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}
