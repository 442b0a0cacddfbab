package provider

import (
	"context"
	"fmt"

	"github.com/ashwch/coreshell/internal/config"
)

type Request struct {
	Prompt string
	Model  string
}

// Generator turns a prompt into raw model text. Parsing is the caller's job.
type Generator interface {
	Name() string
	Type() string
	Generate(ctx context.Context, req Request) (string, error)
}

type HealthChecker interface {
	HealthCheck() error
}

type Factory func(name string, cfg config.ProviderConfig) (Generator, error)

type Registry struct {
	factories map[string]Factory
}

func NewRegistry() *Registry {
	r := &Registry{factories: map[string]Factory{}}
	r.Register("command", NewCommandAdapter)
	r.Register("gemini", NewGeminiAdapter)
	return r
}

func (r *Registry) Register(providerType string, factory Factory) {
	if r.factories == nil {
		r.factories = map[string]Factory{}
	}
	r.factories[providerType] = factory
}

func (r *Registry) Build(name string, cfg config.ProviderConfig) (Generator, error) {
	providerType := cfg.Type
	if providerType == "" {
		providerType = "command"
	}
	factory, ok := r.factories[providerType]
	if !ok {
		return nil, fmt.Errorf("unsupported provider type: %s", providerType)
	}
	return factory(name, cfg)
}

func (r *Registry) Validate(cfg config.Config) []error {
	issues := []error{}
	for _, name := range cfg.ProviderNames() {
		providerCfg := cfg.Providers[name]
		if providerCfg.Enabled != nil && !*providerCfg.Enabled {
			continue
		}
		adapter, err := r.Build(name, providerCfg)
		if err != nil {
			issues = append(issues, fmt.Errorf("provider %q invalid: %w", name, err))
			continue
		}
		if checker, ok := adapter.(HealthChecker); ok {
			if err := checker.HealthCheck(); err != nil {
				issues = append(issues, fmt.Errorf("provider %q health check failed: %w", name, err))
			}
		}
	}
	return issues
}
