package resolver

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/ashwch/coreshell/internal/config"
	"github.com/ashwch/coreshell/internal/provider"
)

type stallingGenerator struct{ name string }

func (s stallingGenerator) Name() string { return s.name }
func (s stallingGenerator) Type() string { return "stall" }
func (s stallingGenerator) Generate(ctx context.Context, _ provider.Request) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func stallingChain(t *testing.T, names ...string) *provider.Chain {
	t.Helper()
	registry := &provider.Registry{}
	registry.Register("stall", func(name string, _ config.ProviderConfig) (provider.Generator, error) {
		return stallingGenerator{name: name}, nil
	})
	cfg := config.Default()
	cfg.Providers = map[string]config.ProviderConfig{}
	for _, name := range names {
		cfg.Providers[name] = config.ProviderConfig{Type: "stall", Model: "m"}
	}
	chain, err := provider.NewService(registry, nil).Build(cfg, "", "")
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return chain
}

func TestResolveChainTimeoutReportsDeadline(t *testing.T) {
	for _, names := range [][]string{{"one"}, {"one", "two"}} {
		r := New(builtinBase(t), stallingChain(t, names...), WithTimeout(20*time.Millisecond))
		got := r.Resolve(context.Background(), "deploy kubernetes pod")
		if got.Status != StatusAIFailed {
			t.Fatalf("%v: expected ai_failed, got %+v", names, got)
		}
		if !strings.Contains(got.Message, "no answer within 20ms") {
			t.Fatalf("%v: expected timeout wording, got %q", names, got.Message)
		}
	}
}
