package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Generator  Generator  `yaml:"generator"`
	Literature Literature `yaml:"literature"`
	Auth       Auth       `yaml:"auth"`
	Output     Output     `yaml:"output"`
	Server     Server     `yaml:"server"`
	Logging    Logging    `yaml:"logging"`
}

type Generator struct {
	Provider        string  `yaml:"provider"`
	OpenAIModel     string  `yaml:"openai_model"`
	BaseURL         string  `yaml:"base_url"`
	APIKeyEnv       string  `yaml:"api_key_env"`
	OllamaModel     string  `yaml:"ollama_model"`
	OllamaURL       string  `yaml:"ollama_url"`
	GeminiModel     string  `yaml:"gemini_model"`
	GeminiAPIKeyEnv string  `yaml:"gemini_api_key_env"`
	MaxTokens       int     `yaml:"max_tokens"`
	Temperature     float64 `yaml:"temperature"`
	TimeoutSeconds  int     `yaml:"timeout_seconds"`
	FallbackOnError bool    `yaml:"fallback_on_error"`
}

type Literature struct {
	Feeds    []Feed        `yaml:"feeds"`
	NewsAPI  NewsAPIConfig `yaml:"newsapi"`
	MaxItems int           `yaml:"max_items"`
	DaysBack int           `yaml:"days_back"`
}

type Feed struct {
	URL  string `yaml:"url"`
	Name string `yaml:"name"`
}

type NewsAPIConfig struct {
	Enabled   bool   `yaml:"enabled"`
	APIKeyEnv string `yaml:"api_key_env"`
	PageSize  int    `yaml:"page_size"`
}

type Auth struct {
	SecretEnv     string `yaml:"secret_env"`
	CLIUser       string `yaml:"cli_user"`
	TokenTTLHours int    `yaml:"token_ttl_hours"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Host      string    `yaml:"host"`
	Port      int       `yaml:"port"`
	RateLimit RateLimit `yaml:"rate_limit"`
}

// RateLimit bounds problem submissions per authenticated user.
// PerMinute <= 0 disables limiting.
type RateLimit struct {
	PerMinute int `yaml:"per_minute"`
	Burst     int `yaml:"burst"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for solutionlab.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "solutionlab")
}

// DataDir returns the XDG data directory for solutionlab.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "solutionlab")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/solutionlab/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'solutionlab init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg, err := parse(nil)
	if err != nil {
		// parse of empty input cannot fail
		panic(err)
	}
	return cfg
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Generator: Generator{
			Provider:        "openai",
			OpenAIModel:     "gpt-4o-mini",
			BaseURL:         "https://api.openai.com/v1",
			APIKeyEnv:       "OPENAI_API_KEY",
			OllamaModel:     "qwen2.5:7b",
			OllamaURL:       "http://localhost:11434",
			GeminiModel:     "gemini-2.5-flash",
			GeminiAPIKeyEnv: "GEMINI_API_KEY",
			MaxTokens:       2000,
			Temperature:     0.8,
			TimeoutSeconds:  60,
			FallbackOnError: true,
		},
		Literature: Literature{
			NewsAPI: NewsAPIConfig{
				Enabled:   false,
				APIKeyEnv: "NEWSAPI_KEY",
				PageSize:  20,
			},
			MaxItems: 8,
			DaysBack: 30,
		},
		Auth: Auth{
			SecretEnv:     "SOLUTIONLAB_JWT_SECRET",
			CLIUser:       "local",
			TokenTTLHours: 24,
		},
		Server: Server{
			Host:      "127.0.0.1",
			Port:      8000,
			RateLimit: RateLimit{PerMinute: 6, Burst: 2},
		},
		Logging: Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// Timeout returns the upstream request timeout.
func (g Generator) Timeout() time.Duration {
	if g.TimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(g.TimeoutSeconds) * time.Second
}

// TokenTTL returns the lifetime of development tokens issued by the CLI.
func (a Auth) TokenTTL() time.Duration {
	if a.TokenTTLHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(a.TokenTTLHours) * time.Hour
}

// Secret reads the token signing secret from the environment.
func (a Auth) Secret() string {
	if a.SecretEnv == "" {
		return ""
	}
	return os.Getenv(a.SecretEnv)
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
