package config

import (
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/ashwch/coreshell/internal/appdirs"
	"github.com/google/go-cmp/cmp"
	"github.com/pelletier/go-toml/v2"
)

func TestSetGetTopLevelKeys(t *testing.T) {
	cfg := Default()

	sets := map[string]string{
		"ai.timeout_seconds": "45",
		"favorites.backend":  "sqlite",
		"favorites.path":     "/tmp/favs.db",
		"ui.backend":         "plain",
		"log.level":          "debug",
		"provider":           "Gemini",
	}
	for key, value := range sets {
		if err := cfg.Set(key, value); err != nil {
			t.Fatalf("set %s failed: %v", key, err)
		}
	}
	if err := cfg.Set("locale", "es-mx"); err != nil {
		t.Fatalf("set locale failed: %v", err)
	}

	want := map[string]string{
		"ai.timeout_seconds": "45",
		"favorites.backend":  "sqlite",
		"favorites.path":     "/tmp/favs.db",
		"ui.backend":         "plain",
		"log.level":          "debug",
		"provider":           "gemini",
		"locale":             "es-MX",
	}
	for key, expected := range want {
		got, err := cfg.Get(key)
		if err != nil {
			t.Fatalf("get %s failed: %v", key, err)
		}
		if got != expected {
			t.Fatalf("%s: expected %q, got %q", key, expected, got)
		}
	}
}

func TestSetRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"ai.timeout_seconds": "0",
		"favorites.backend":  "redis",
		"ui.backend":         "neon-ui",
		"log.level":          "loud",
		"locale":             "%%bad-locale",
		"provider":           "",
		"unknown.key":        "x",
	}
	for key, value := range cases {
		cfg := Default()
		if err := cfg.Set(key, value); err == nil {
			t.Fatalf("expected %s=%q to be rejected", key, value)
		}
	}
}

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.UI.Backend != "bubbletea" {
		t.Fatalf("expected default ui backend bubbletea, got %q", cfg.UI.Backend)
	}
	if cfg.Locale != "auto" {
		t.Fatalf("expected default locale auto, got %q", cfg.Locale)
	}
	if cfg.AI.TimeoutSeconds != 20 {
		t.Fatalf("expected 20s default AI timeout, got %d", cfg.AI.TimeoutSeconds)
	}
	if cfg.Favorites.Backend != FavoritesJSON {
		t.Fatalf("expected json favorites backend, got %q", cfg.Favorites.Backend)
	}
	gemini := cfg.Providers["gemini"]
	if gemini.Type != "gemini" || gemini.APIKeyEnv != "GEMINI_API_KEY" {
		t.Fatalf("unexpected gemini defaults: %+v", gemini)
	}
	if claude := cfg.Providers["claude"]; claude.Enabled == nil || *claude.Enabled {
		t.Fatalf("expected command providers disabled by default")
	}
}

func TestProviderKeys(t *testing.T) {
	cfg := Default()
	if err := cfg.Set("providers.gemini.api_key", "AIza-secret"); err != nil {
		t.Fatalf("set api_key failed: %v", err)
	}
	if err := cfg.Set("providers.claude.enabled", "yes"); err != nil {
		t.Fatalf("set enabled failed: %v", err)
	}
	if err := cfg.Set("providers.claude.args", "-p, {prompt}"); err != nil {
		t.Fatalf("set args failed: %v", err)
	}
	if err := cfg.Set("providers.gemini.models.lite.provider_model", "gemini-2.5-flash-lite"); err != nil {
		t.Fatalf("set model alias failed: %v", err)
	}

	if got, _ := cfg.Get("providers.gemini.api_key"); got != "<redacted>" {
		t.Fatalf("expected api key to be masked, got %q", got)
	}
	if cfg.Providers["gemini"].APIKey != "AIza-secret" {
		t.Fatalf("expected raw api key to be stored")
	}
	if got, _ := cfg.Get("providers.claude.enabled"); got != "true" {
		t.Fatalf("expected claude enabled, got %q", got)
	}
	if diff := cmp.Diff([]string{"-p", "{prompt}"}, cfg.Providers["claude"].Args); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}
	if got, _ := cfg.Get("providers.gemini.models.lite.provider_model"); got != "gemini-2.5-flash-lite" {
		t.Fatalf("expected new model alias, got %q", got)
	}
	if err := cfg.Set("providers.claude.enabled", "maybe"); err == nil {
		t.Fatalf("expected invalid bool to be rejected")
	}
}

func TestSetUnknownProviderCreatesCommandProvider(t *testing.T) {
	cfg := Default()
	if err := cfg.Set("providers.llm.model", "mini"); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	p := cfg.Providers["llm"]
	if p.Type != "command" || p.Command != "llm" || p.Model != "mini" {
		t.Fatalf("unexpected provider: %+v", p)
	}
}

func TestAIDisabled(t *testing.T) {
	cfg := Default()
	if cfg.AIDisabled() {
		t.Fatalf("auto must not disable AI")
	}
	for _, value := range []string{"none", "off", "local"} {
		cfg.Provider = value
		if !cfg.AIDisabled() {
			t.Fatalf("expected provider=%s to disable AI", value)
		}
	}
}

func TestSummaryMasksSecrets(t *testing.T) {
	cfg := Default()
	cfg.Providers["gemini"] = ProviderConfig{Type: "gemini", APIKey: "AIzaSyD-real-key", Model: "gemini-flash"}
	summary := cfg.Summary()
	if summary["providers.gemini.api_key"] != "<redacted>" {
		t.Fatalf("expected masked api key, got %q", summary["providers.gemini.api_key"])
	}
	if summary["ai.timeout_seconds"] != "20" {
		t.Fatalf("expected timeout in summary, got %q", summary["ai.timeout_seconds"])
	}
}

func TestNormalizeFillsMissingValues(t *testing.T) {
	cfg := Config{Providers: map[string]ProviderConfig{"gemini": {Model: "gemini-pro"}}}
	cfg.normalize()

	if cfg.AI.TimeoutSeconds != 20 || cfg.Favorites.Backend != FavoritesJSON || cfg.Log.Level != "off" {
		t.Fatalf("expected defaults to be filled, got %+v", cfg)
	}
	gemini := cfg.Providers["gemini"]
	if gemini.Model != "gemini-pro" {
		t.Fatalf("expected explicit model to survive normalize, got %q", gemini.Model)
	}
	if gemini.Type != "gemini" || gemini.Models["gemini-flash"].ProviderModel == "" {
		t.Fatalf("expected gemini defaults merged, got %+v", gemini)
	}
	if _, ok := cfg.Providers["ollama"]; !ok {
		t.Fatalf("expected default providers to be added")
	}
}

func TestLoadOrCreateWritesDefaultThenReadsBack(t *testing.T) {
	t.Setenv(appdirs.HomeEnv, t.TempDir())

	cfg, path, err := LoadOrCreate()
	if err != nil {
		t.Fatalf("LoadOrCreate failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected config file to be created: %v", err)
	}
	cfg.Favorites.Backend = FavoritesSQLite
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	again, _, err := LoadOrCreate()
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if again.Favorites.Backend != FavoritesSQLite {
		t.Fatalf("expected persisted favorites backend, got %q", again.Favorites.Backend)
	}
}

func TestLoadOrCreateRejectsBrokenTOML(t *testing.T) {
	t.Setenv(appdirs.HomeEnv, t.TempDir())
	path, err := appdirs.ConfigFilePath()
	if err != nil {
		t.Fatalf("config path failed: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	if err := os.WriteFile(path, []byte("provider = [unterminated"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if _, _, err := LoadOrCreate(); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestSaveUsesPrivateFileMode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not portable on windows")
	}

	cfg := Default()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat config failed: %v", err)
	}
	if perms := info.Mode().Perm(); perms&0o077 != 0 {
		t.Fatalf("expected private permissions, got %o", perms)
	}
}

func TestSaveAtomicWriteProducesParseableConfigUnderConcurrentSaves(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			cfg := Default()
			if idx%2 == 0 {
				cfg.Provider = "gemini"
			} else {
				cfg.Provider = "ollama"
			}
			if err := Save(path, cfg); err != nil {
				t.Errorf("save failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	bytes, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config failed: %v", err)
	}
	var parsed Config
	if err := toml.Unmarshal(bytes, &parsed); err != nil {
		t.Fatalf("expected final config to be parseable TOML, got error: %v\ncontent:\n%s", err, string(bytes))
	}
}
