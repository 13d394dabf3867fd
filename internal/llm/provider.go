package llm

import (
	"context"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/TobiSchelling/solutionlab/internal/config"
)

// CreateProvider creates an LLM provider based on configuration. It always
// returns a provider; when nothing is reachable the result reports
// IsConfigured() == false and callers fall back to demo output.
func CreateProvider(ctx context.Context, cfg config.Generator, logger *zap.Logger) Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout()

	switch strings.ToLower(cfg.Provider) {
	case "ollama":
		p := NewOllamaProvider(cfg.OllamaModel, cfg.OllamaURL, timeout, logger)
		if p.IsConfigured() {
			logger.Info("using ollama", zap.String("model", cfg.OllamaModel))
			return p
		}
		logger.Warn("ollama not available, trying openai")
	case "gemini":
		p, err := NewGeminiProvider(ctx, cfg.GeminiModel, os.Getenv(cfg.GeminiAPIKeyEnv), "")
		if err != nil {
			logger.Warn("gemini client unavailable", zap.Error(err))
		} else if p.IsConfigured() {
			logger.Info("using gemini", zap.String("model", cfg.GeminiModel))
			return p
		} else {
			logger.Warn("gemini API key not set, trying openai", zap.String("env", cfg.GeminiAPIKeyEnv))
		}
	}

	p := NewOpenAIProvider(cfg.OpenAIModel, os.Getenv(cfg.APIKeyEnv), cfg.BaseURL, timeout)
	if p.IsConfigured() {
		logger.Info("using openai", zap.String("model", cfg.OpenAIModel))
	} else {
		logger.Warn("no LLM credential found, solutions will use demo mode", zap.String("env", cfg.APIKeyEnv))
	}
	return p
}
