package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaultConfig(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML)
	require.NoError(t, err)

	assert.NotEmpty(t, cfg.Literature.Feeds, "expected feeds to be populated")
	assert.Equal(t, "openai", cfg.Generator.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.Generator.OpenAIModel)
	assert.Equal(t, "OPENAI_API_KEY", cfg.Generator.APIKeyEnv)
	assert.Equal(t, 2000, cfg.Generator.MaxTokens)
	assert.InDelta(t, 0.8, cfg.Generator.Temperature, 1e-9)
	assert.True(t, cfg.Generator.FallbackOnError)
	assert.Equal(t, 8000, cfg.Server.Port)
}

func TestParseMinimalConfig(t *testing.T) {
	data := []byte(`
generator:
  provider: ollama
  ollama_model: llama3.1
server:
  port: 9000
`)
	cfg, err := parse(data)
	require.NoError(t, err)

	assert.Equal(t, "ollama", cfg.Generator.Provider)
	assert.Equal(t, "llama3.1", cfg.Generator.OllamaModel)
	assert.Equal(t, 9000, cfg.Server.Port)
	// Defaults should still be set for unspecified fields
	assert.Equal(t, "http://localhost:11434", cfg.Generator.OllamaURL)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 6, cfg.Server.RateLimit.PerMinute)
	assert.Empty(t, cfg.Literature.Feeds)
}

func TestParseInvalidYAML(t *testing.T) {
	_, err := parse([]byte("generator: [unclosed"))
	assert.Error(t, err)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, DefaultConfigYAML, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.Literature.Feeds)
}

func TestResolveConfigPathExplicitMissing(t *testing.T) {
	_, err := ResolveConfigPath(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestGetDataDir(t *testing.T) {
	cfg := &Config{}
	assert.NotEmpty(t, cfg.GetDataDir())

	cfg.Output.DataDir = "/custom/path"
	assert.Equal(t, "/custom/path", cfg.GetDataDir())
}

func TestDurations(t *testing.T) {
	assert.Equal(t, 60*time.Second, Generator{}.Timeout())
	assert.Equal(t, 5*time.Second, Generator{TimeoutSeconds: 5}.Timeout())
	assert.Equal(t, 24*time.Hour, Auth{}.TokenTTL())
	assert.Equal(t, 2*time.Hour, Auth{TokenTTLHours: 2}.TokenTTL())
}

func TestAuthSecretFromEnv(t *testing.T) {
	t.Setenv("TEST_SOLUTIONLAB_SECRET", "s3cret")
	a := Auth{SecretEnv: "TEST_SOLUTIONLAB_SECRET"}
	assert.Equal(t, "s3cret", a.Secret())
	assert.Empty(t, Auth{}.Secret())
}
