package provider

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ashwch/coreshell/internal/config"
	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

var ErrMissingAPIKey = errors.New("missing API key")

// contentGenerator is the slice of *genai.Models the adapter needs.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type GeminiAdapter struct {
	name   string
	cfg    config.ProviderConfig
	apiKey string
	dial   func(ctx context.Context, apiKey string) (contentGenerator, error)
}

func NewGeminiAdapter(name string, cfg config.ProviderConfig) (Generator, error) {
	if strings.TrimSpace(cfg.APIKeyEnv) == "" {
		cfg.APIKeyEnv = "GEMINI_API_KEY"
	}
	return &GeminiAdapter{
		name:   name,
		cfg:    cfg,
		apiKey: resolveAPIKey(cfg),
		dial:   dialGemini,
	}, nil
}

// resolveAPIKey prefers the environment over the config file.
func resolveAPIKey(cfg config.ProviderConfig) string {
	if env := strings.TrimSpace(os.Getenv(cfg.APIKeyEnv)); env != "" {
		return env
	}
	return strings.TrimSpace(cfg.APIKey)
}

func dialGemini(ctx context.Context, apiKey string) (contentGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return client.Models, nil
}

func (a *GeminiAdapter) Name() string {
	return a.name
}

func (a *GeminiAdapter) Type() string {
	return "gemini"
}

func (a *GeminiAdapter) HealthCheck() error {
	if a.apiKey == "" {
		return fmt.Errorf("%w: set %s or providers.%s.api_key", ErrMissingAPIKey, a.cfg.APIKeyEnv, a.name)
	}
	return nil
}

func (a *GeminiAdapter) Generate(ctx context.Context, req Request) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := a.HealthCheck(); err != nil {
		return "", err
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return "", fmt.Errorf("prompt cannot be empty")
	}
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = defaultGeminiModel
	}

	models, err := a.dial(ctx, a.apiKey)
	if err != nil {
		return "", err
	}
	resp, err := models.GenerateContent(ctx, model, genai.Text(req.Prompt), &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0.2),
	})
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	if resp == nil {
		return "", fmt.Errorf("gemini returned no response")
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("gemini returned an empty response")
	}
	return text, nil
}
