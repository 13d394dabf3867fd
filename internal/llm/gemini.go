package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiProvider generates text with Google's Gemini API.
type GeminiProvider struct {
	Model  string
	client *genai.Client
}

// NewGeminiProvider creates a Gemini provider. Without an API key the
// provider is returned unconfigured. baseURL overrides the API endpoint.
func NewGeminiProvider(ctx context.Context, model, apiKey, baseURL string) (*GeminiProvider, error) {
	p := &GeminiProvider{Model: model}
	if apiKey == "" {
		return p, nil
	}

	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	p.client = client
	return p, nil
}

func (g *GeminiProvider) Name() string { return "gemini" }

func (g *GeminiProvider) IsConfigured() bool {
	return g.client != nil
}

func (g *GeminiProvider) Generate(ctx context.Context, r Request) (string, error) {
	if g.client == nil {
		return "", fmt.Errorf("gemini: %w", ErrNotConfigured)
	}

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(r.Temperature)),
		MaxOutputTokens: int32(r.MaxTokens),
	}
	if r.System != "" {
		config.SystemInstruction = genai.NewContentFromText(r.System, genai.RoleUser)
	}
	if r.JSON {
		config.ResponseMIMEType = "application/json"
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.Model, genai.Text(r.Prompt), config)
	if err != nil {
		return "", mapGeminiError(err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errors.New("empty gemini response")
	}
	return text, nil
}

// mapGeminiError converts API errors into *StatusError so callers can
// inspect the HTTP status the same way for every provider.
func mapGeminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &StatusError{Provider: "gemini", Code: apiErr.Code, Body: apiErr.Message}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &StatusError{Provider: "gemini", Code: apiErrPtr.Code, Body: apiErrPtr.Message}
	}
	return fmt.Errorf("gemini request: %w", err)
}
