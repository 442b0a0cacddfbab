package provider

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ashwch/coreshell/internal/config"
	"github.com/ashwch/coreshell/internal/logging"
	"go.uber.org/zap"
)

// ErrNoProvider means no enabled provider passed its health check.
var ErrNoProvider = errors.New("no AI provider is available")

type Service struct {
	registry *Registry
	logger   *zap.Logger
}

func NewService(registry *Registry, logger *zap.Logger) *Service {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Service{registry: registry, logger: logging.OrNop(logger)}
}

type link struct {
	gen   Generator
	model string
}

// Chain tries its generators in order and returns the first success.
type Chain struct {
	links  []link
	logger *zap.Logger
}

// Build assembles the ready providers for cfg, preferred first. model may be
// an alias, a provider model id, auto-fast, auto-main, or empty.
func (s *Service) Build(cfg config.Config, preferredProvider, model string) (*Chain, error) {
	if cfg.AIDisabled() || isDisabledName(preferredProvider) {
		return nil, fmt.Errorf("%w: AI disabled by configuration", ErrNoProvider)
	}

	order := providerOrder(cfg, preferredProvider)
	issues := make([]string, 0, len(order))
	chain := &Chain{logger: s.logger}
	for _, name := range order {
		providerCfg := cfg.Providers[name]
		if providerCfg.Enabled != nil && !*providerCfg.Enabled {
			continue
		}

		adapter, err := s.registry.Build(name, providerCfg)
		if err != nil {
			issues = append(issues, fmt.Sprintf("%s: %v", name, err))
			continue
		}
		if checker, ok := adapter.(HealthChecker); ok {
			if err := checker.HealthCheck(); err != nil {
				s.logger.Debug("provider skipped", zap.String("provider", name), zap.Error(err))
				issues = append(issues, fmt.Sprintf("%s: %v", name, err))
				continue
			}
		}
		chain.links = append(chain.links, link{gen: adapter, model: resolveModel(providerCfg, model)})
	}

	if len(chain.links) == 0 {
		if len(issues) == 0 {
			return nil, ErrNoProvider
		}
		return nil, fmt.Errorf("%w: %s", ErrNoProvider, strings.Join(issues, " | "))
	}
	return chain, nil
}

func (c *Chain) Name() string {
	if c == nil || len(c.links) == 0 {
		return ""
	}
	return c.links[0].gen.Name()
}

func (c *Chain) Names() []string {
	if c == nil {
		return nil
	}
	names := make([]string, 0, len(c.links))
	for _, l := range c.links {
		names = append(names, l.gen.Name())
	}
	return names
}

// Generate stops early once ctx is done so a deadline covers the whole chain.
func (c *Chain) Generate(ctx context.Context, prompt string) (string, error) {
	if c == nil || len(c.links) == 0 {
		return "", ErrNoProvider
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var errs []error
	for _, l := range c.links {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		text, err := l.gen.Generate(ctx, Request{Prompt: prompt, Model: l.model})
		if err != nil {
			c.logger.Warn("provider failed", zap.String("provider", l.gen.Name()), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", l.gen.Name(), err))
			continue
		}
		c.logger.Debug("provider answered", zap.String("provider", l.gen.Name()), zap.String("model", l.model))
		return text, nil
	}
	if len(errs) == 1 {
		return "", errs[0]
	}
	return "", &chainError{errs: errs}
}

// chainError keeps every link's error reachable through errors.Is and errors.As.
type chainError struct {
	errs []error
}

func (e *chainError) Error() string {
	parts := make([]string, 0, len(e.errs))
	for _, err := range e.errs {
		parts = append(parts, err.Error())
	}
	return "all providers failed: " + strings.Join(parts, " | ")
}

func (e *chainError) Unwrap() []error { return e.errs }

func isDisabledName(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case config.ProviderNone, "off", "local":
		return true
	default:
		return false
	}
}

func providerOrder(cfg config.Config, preferredProvider string) []string {
	seen := map[string]struct{}{}
	order := make([]string, 0, len(cfg.Providers))

	add := func(name string) {
		name = strings.TrimSpace(strings.ToLower(name))
		if name == "" || name == config.ProviderAuto {
			return
		}
		if _, ok := cfg.Providers[name]; !ok {
			return
		}
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		order = append(order, name)
	}

	add(preferredProvider)
	add(cfg.Provider)
	add("gemini")

	for _, name := range cfg.ProviderNames() {
		add(name)
	}
	return order
}

func resolveModel(providerCfg config.ProviderConfig, requested string) string {
	model := strings.TrimSpace(requested)
	explicitRequested := model != ""
	if model == "" {
		model = strings.TrimSpace(providerCfg.Model)
	}
	switch model {
	case "auto-fast":
		model = pickModelAliasBySpeed(providerCfg, []string{"fast", "balanced"})
	case "auto-main":
		model = pickModelAliasBySpeed(providerCfg, []string{"quality", "balanced", "fast"})
	default:
		if strings.HasPrefix(model, "auto-") {
			model = strings.TrimSpace(providerCfg.Model)
		}
	}

	if explicitRequested && providerModelIsUnknown(providerCfg, model) {
		model = strings.TrimSpace(providerCfg.Model)
	}
	if providerModelIsUnknown(providerCfg, model) {
		model = fallbackKnownModel(providerCfg)
	}
	if strings.TrimSpace(model) == "" {
		return ""
	}
	if def, ok := providerCfg.Models[model]; ok {
		if strings.TrimSpace(def.ProviderModel) != "" {
			return strings.TrimSpace(def.ProviderModel)
		}
	}
	return model
}

func fallbackKnownModel(providerCfg config.ProviderConfig) string {
	if len(providerCfg.Models) == 0 {
		return strings.TrimSpace(providerCfg.Model)
	}
	if alias := pickModelAliasBySpeed(providerCfg, []string{"fast", "balanced", "quality"}); alias != "" {
		if !providerModelIsUnknown(providerCfg, alias) {
			return alias
		}
	}
	aliases := sortedAliases(providerCfg.Models)
	if len(aliases) == 0 {
		return ""
	}
	return aliases[0]
}

func providerModelIsUnknown(providerCfg config.ProviderConfig, model string) bool {
	model = strings.TrimSpace(model)
	if model == "" || len(providerCfg.Models) == 0 {
		return false
	}
	if _, ok := providerCfg.Models[model]; ok {
		return false
	}
	for _, details := range providerCfg.Models {
		if strings.EqualFold(strings.TrimSpace(details.ProviderModel), model) {
			return false
		}
	}
	return true
}

func pickModelAliasBySpeed(providerCfg config.ProviderConfig, speedOrder []string) string {
	if len(providerCfg.Models) == 0 {
		return strings.TrimSpace(providerCfg.Model)
	}

	speedRank := map[string]int{}
	for idx, speed := range speedOrder {
		speedRank[strings.ToLower(strings.TrimSpace(speed))] = idx
	}

	bestAlias := ""
	bestRank := len(speedOrder) + 1
	for _, alias := range sortedAliases(providerCfg.Models) {
		rank, ok := speedRank[strings.ToLower(strings.TrimSpace(providerCfg.Models[alias].Speed))]
		if !ok {
			continue
		}
		if rank < bestRank {
			bestAlias = alias
			bestRank = rank
		}
	}
	if bestAlias != "" {
		return bestAlias
	}
	return strings.TrimSpace(providerCfg.Model)
}

func sortedAliases(models map[string]config.ModelConfig) []string {
	aliases := make([]string, 0, len(models))
	for alias := range models {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	return aliases
}
