package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ashwch/coreshell/internal/appdirs"
	"github.com/ashwch/coreshell/internal/i18n"
	"github.com/pelletier/go-toml/v2"
)

const (
	ProviderAuto = "auto"
	ProviderNone = "none"

	FavoritesJSON   = "json"
	FavoritesSQLite = "sqlite"
)

type ModelConfig struct {
	ProviderModel string `toml:"provider_model,omitempty" json:"provider_model,omitempty"`
	Speed         string `toml:"speed,omitempty" json:"speed,omitempty"`
	Description   string `toml:"description,omitempty" json:"description,omitempty"`
}

type ProviderConfig struct {
	Type      string                 `toml:"type,omitempty" json:"type,omitempty"`
	Command   string                 `toml:"command,omitempty" json:"command,omitempty"`
	Enabled   *bool                  `toml:"enabled,omitempty" json:"enabled,omitempty"`
	Model     string                 `toml:"model" json:"model"`
	APIKey    string                 `toml:"api_key,omitempty" json:"-"`
	APIKeyEnv string                 `toml:"api_key_env,omitempty" json:"api_key_env,omitempty"`
	Args      []string               `toml:"args,omitempty" json:"args,omitempty"`
	Models    map[string]ModelConfig `toml:"models,omitempty" json:"models,omitempty"`
}

type AIConfig struct {
	TimeoutSeconds int `toml:"timeout_seconds" json:"timeout_seconds"`
}

type FavoritesConfig struct {
	Backend string `toml:"backend" json:"backend"`
	Path    string `toml:"path,omitempty" json:"path,omitempty"`
}

type UIConfig struct {
	Backend string `toml:"backend" json:"backend"`
}

type LogConfig struct {
	Level string `toml:"level" json:"level"`
	File  string `toml:"file,omitempty" json:"file,omitempty"`
}

type Config struct {
	Version   int                       `toml:"version" json:"version"`
	Locale    string                    `toml:"locale" json:"locale"`
	Provider  string                    `toml:"provider" json:"provider"`
	AI        AIConfig                  `toml:"ai" json:"ai"`
	Providers map[string]ProviderConfig `toml:"providers" json:"providers"`
	Favorites FavoritesConfig           `toml:"favorites" json:"favorites"`
	UI        UIConfig                  `toml:"ui" json:"ui"`
	Log       LogConfig                 `toml:"log" json:"log"`
}

func Default() Config {
	return Config{
		Version:   1,
		Locale:    "auto",
		Provider:  ProviderAuto,
		AI:        AIConfig{TimeoutSeconds: 20},
		Providers: defaultProviderCatalog(),
		Favorites: FavoritesConfig{Backend: FavoritesJSON},
		UI:        UIConfig{Backend: "bubbletea"},
		Log:       LogConfig{Level: "off"},
	}
}

func defaultProviderCatalog() map[string]ProviderConfig {
	return map[string]ProviderConfig{
		"gemini": {
			Type:      "gemini",
			Enabled:   boolPtr(true),
			Model:     "gemini-flash",
			APIKeyEnv: "GEMINI_API_KEY",
			Models: map[string]ModelConfig{
				"gemini-flash": {
					ProviderModel: "gemini-2.5-flash",
					Speed:         "fast",
					Description:   "Fast default for command lookups",
				},
				"gemini-pro": {
					ProviderModel: "gemini-2.5-pro",
					Speed:         "quality",
					Description:   "Slower, better at unusual requests",
				},
			},
		},
		"claude": {
			Type:    "command",
			Command: "claude",
			Enabled: boolPtr(false),
			Model:   "haiku",
			Args:    []string{"-p", "--model", "{model}", "{prompt}"},
			Models: map[string]ModelConfig{
				"haiku":  {ProviderModel: "haiku", Speed: "fast"},
				"sonnet": {ProviderModel: "sonnet", Speed: "quality"},
			},
		},
		"ollama": {
			Type:    "command",
			Command: "ollama",
			Enabled: boolPtr(false),
			Model:   "llama3.2",
			Args:    []string{"run", "{model}", "{prompt}"},
			Models:  map[string]ModelConfig{},
		},
	}
}

func LoadOrCreate() (Config, string, error) {
	path, err := appdirs.ConfigFilePath()
	if err != nil {
		return Config{}, "", err
	}

	cfg := Default()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if _, err := appdirs.EnsureConfigDir(); err != nil {
			return Config{}, "", err
		}
		if err := Save(path, cfg); err != nil {
			return Config{}, "", err
		}
		return cfg, path, nil
	}
	if err != nil {
		return Config{}, "", fmt.Errorf("could not stat config path: %w", err)
	}

	bytes, err := os.ReadFile(path)
	if err != nil {
		return Config{}, "", fmt.Errorf("could not read config file: %w", err)
	}

	if err := toml.Unmarshal(bytes, &cfg); err != nil {
		return Config{}, "", fmt.Errorf("could not parse config file: %w", err)
	}
	cfg.normalize()
	return cfg, path, nil
}

func Save(path string, cfg Config) error {
	cfg.normalize()
	payload, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("could not serialize config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("could not create config dir: %w", err)
	}
	tempFile, err := os.CreateTemp(dir, ".coreshell-config-*.toml")
	if err != nil {
		return fmt.Errorf("could not create temp config file: %w", err)
	}
	tempPath := tempFile.Name()
	cleanup := func() {
		_ = os.Remove(tempPath)
	}

	if _, err := tempFile.Write(payload); err != nil {
		_ = tempFile.Close()
		cleanup()
		return fmt.Errorf("could not write temp config file: %w", err)
	}
	if err := tempFile.Chmod(0o600); err != nil {
		_ = tempFile.Close()
		cleanup()
		return fmt.Errorf("could not secure temp config file permissions: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		cleanup()
		return fmt.Errorf("could not close temp config file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		cleanup()
		return fmt.Errorf("could not atomically replace config file: %w", err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		return fmt.Errorf("could not secure config file permissions: %w", err)
	}
	return nil
}

func (c *Config) normalize() {
	defaults := Default()
	if c.Version == 0 {
		c.Version = defaults.Version
	}
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	if c.Provider == "" {
		c.Provider = defaults.Provider
	}
	c.Locale = normalizeLocaleSetting(c.Locale, defaults.Locale)
	if c.AI.TimeoutSeconds <= 0 {
		c.AI.TimeoutSeconds = defaults.AI.TimeoutSeconds
	}
	c.Favorites.Backend = normalizeFavoritesBackend(c.Favorites.Backend, defaults.Favorites.Backend)
	c.UI.Backend = normalizeUIBackend(c.UI.Backend, defaults.UI.Backend)
	c.Log.Level = normalizeLogLevel(c.Log.Level, defaults.Log.Level)
	if c.Providers == nil {
		c.Providers = map[string]ProviderConfig{}
	}

	for name, def := range defaultProviderCatalog() {
		current, ok := c.Providers[name]
		if !ok {
			c.Providers[name] = def
			continue
		}
		mergeProviderDefaults(&current, def)
		c.Providers[name] = current
	}

	for name, provider := range c.Providers {
		if provider.Type == "" {
			provider.Type = "command"
		}
		if provider.Type == "command" && provider.Command == "" {
			provider.Command = name
		}
		if provider.Enabled == nil {
			provider.Enabled = boolPtr(true)
		}
		if provider.Models == nil {
			provider.Models = map[string]ModelConfig{}
		}
		if provider.Model == "" {
			provider.Model = pickFirstModelAlias(provider.Models)
		}
		c.Providers[name] = provider
	}
}

func mergeProviderDefaults(target *ProviderConfig, defaults ProviderConfig) {
	if target.Type == "" {
		target.Type = defaults.Type
	}
	if target.Command == "" {
		target.Command = defaults.Command
	}
	if target.Enabled == nil {
		target.Enabled = defaults.Enabled
	}
	if target.Model == "" {
		target.Model = defaults.Model
	}
	if target.APIKeyEnv == "" {
		target.APIKeyEnv = defaults.APIKeyEnv
	}
	if len(target.Args) == 0 {
		target.Args = append([]string(nil), defaults.Args...)
	}
	if target.Models == nil {
		target.Models = map[string]ModelConfig{}
	}
	for alias, defModel := range defaults.Models {
		if _, ok := target.Models[alias]; !ok {
			target.Models[alias] = defModel
		}
	}
}

// AIDisabled reports whether the provider setting turns the AI tier off.
func (c Config) AIDisabled() bool {
	switch strings.ToLower(strings.TrimSpace(c.Provider)) {
	case ProviderNone, "off", "local":
		return true
	default:
		return false
	}
}

func (c *Config) Set(key, value string) error {
	key = strings.TrimSpace(strings.ToLower(key))
	value = strings.TrimSpace(value)

	if strings.HasPrefix(key, "providers.") {
		if err := c.setProviderKey(key, value); err != nil {
			return err
		}
		c.normalize()
		return nil
	}

	switch key {
	case "locale":
		c.Locale = normalizeLocaleSetting(value, "")
		if c.Locale == "" {
			return fmt.Errorf("locale must be 'auto' or a locale like en, en-US, es, es-MX")
		}
	case "provider":
		if value == "" {
			return fmt.Errorf("provider cannot be empty")
		}
		c.Provider = strings.ToLower(value)
	case "ai.timeout_seconds":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("ai.timeout_seconds must be a positive number")
		}
		c.AI.TimeoutSeconds = n
	case "favorites.backend":
		c.Favorites.Backend = normalizeFavoritesBackend(value, "")
		if c.Favorites.Backend == "" {
			return fmt.Errorf("favorites.backend must be one of json|sqlite")
		}
	case "favorites.path":
		c.Favorites.Path = value
	case "ui.backend":
		c.UI.Backend = normalizeUIBackend(value, "")
		if c.UI.Backend == "" {
			return fmt.Errorf("ui.backend must be one of auto|bubbletea|huh|tview|plain")
		}
	case "log.level":
		c.Log.Level = normalizeLogLevel(value, "")
		if c.Log.Level == "" {
			return fmt.Errorf("log.level must be one of off|debug|info|warn|error")
		}
	case "log.file":
		c.Log.File = value
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	c.normalize()
	return nil
}

func (c *Config) setProviderKey(key, value string) error {
	parts := strings.Split(key, ".")
	if len(parts) < 3 {
		return fmt.Errorf("invalid provider key: %s", key)
	}
	providerName := parts[1]
	provider := c.ensureProvider(providerName)

	if len(parts) == 3 {
		switch parts[2] {
		case "model":
			provider.Model = value
		case "type":
			provider.Type = value
		case "command":
			provider.Command = value
		case "api_key":
			provider.APIKey = value
		case "api_key_env":
			provider.APIKeyEnv = value
		case "enabled":
			b, err := parseBool(value)
			if err != nil {
				return fmt.Errorf("providers.%s.enabled must be boolean", providerName)
			}
			provider.Enabled = boolPtr(b)
		case "args":
			provider.Args = splitCommaList(value)
		default:
			return fmt.Errorf("unknown provider field: %s", parts[2])
		}
		c.Providers[providerName] = provider
		return nil
	}

	if len(parts) == 5 && parts[2] == "models" {
		alias := parts[3]
		field := parts[4]
		model := provider.Models[alias]
		switch field {
		case "provider_model":
			model.ProviderModel = value
		case "speed":
			model.Speed = value
		case "description":
			model.Description = value
		default:
			return fmt.Errorf("unknown model field: %s", field)
		}
		provider.Models[alias] = model
		c.Providers[providerName] = provider
		return nil
	}

	return fmt.Errorf("unsupported provider key path: %s", key)
}

func (c *Config) ensureProvider(name string) ProviderConfig {
	if c.Providers == nil {
		c.Providers = map[string]ProviderConfig{}
	}
	provider, ok := c.Providers[name]
	if !ok {
		provider = ProviderConfig{
			Type:    "command",
			Command: name,
			Enabled: boolPtr(true),
			Models:  map[string]ModelConfig{},
		}
		c.Providers[name] = provider
	}
	if provider.Models == nil {
		provider.Models = map[string]ModelConfig{}
	}
	return provider
}

func (c Config) Get(key string) (string, error) {
	key = strings.TrimSpace(strings.ToLower(key))

	if strings.HasPrefix(key, "providers.") {
		return c.getProviderKey(key)
	}

	switch key {
	case "locale":
		return c.Locale, nil
	case "provider":
		return c.Provider, nil
	case "ai.timeout_seconds":
		return strconv.Itoa(c.AI.TimeoutSeconds), nil
	case "favorites.backend":
		return c.Favorites.Backend, nil
	case "favorites.path":
		return c.Favorites.Path, nil
	case "ui.backend":
		return c.UI.Backend, nil
	case "log.level":
		return c.Log.Level, nil
	case "log.file":
		return c.Log.File, nil
	default:
		return "", fmt.Errorf("unknown config key: %s", key)
	}
}

func (c Config) getProviderKey(key string) (string, error) {
	parts := strings.Split(key, ".")
	if len(parts) < 3 {
		return "", fmt.Errorf("invalid provider key: %s", key)
	}
	providerName := parts[1]
	provider, ok := c.Providers[providerName]
	if !ok {
		return "", fmt.Errorf("unknown provider: %s", providerName)
	}

	if len(parts) == 3 {
		switch parts[2] {
		case "model":
			return provider.Model, nil
		case "type":
			return provider.Type, nil
		case "command":
			return provider.Command, nil
		case "api_key":
			if strings.TrimSpace(provider.APIKey) == "" {
				return "", nil
			}
			return "<redacted>", nil
		case "api_key_env":
			return provider.APIKeyEnv, nil
		case "enabled":
			return strconv.FormatBool(provider.Enabled == nil || *provider.Enabled), nil
		case "args":
			return strings.Join(provider.Args, ","), nil
		default:
			return "", fmt.Errorf("unknown provider field: %s", parts[2])
		}
	}

	if len(parts) == 5 && parts[2] == "models" {
		alias := parts[3]
		field := parts[4]
		model, ok := provider.Models[alias]
		if !ok {
			return "", fmt.Errorf("unknown model alias: %s", alias)
		}
		switch field {
		case "provider_model":
			return model.ProviderModel, nil
		case "speed":
			return model.Speed, nil
		case "description":
			return model.Description, nil
		default:
			return "", fmt.Errorf("unknown model field: %s", field)
		}
	}

	return "", fmt.Errorf("unsupported provider key path: %s", key)
}

func (c Config) ProviderNames() []string {
	names := make([]string, 0, len(c.Providers))
	for name := range c.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Summary lists effective settings with secrets masked, for --show-config.
func (c Config) Summary() map[string]string {
	out := map[string]string{}
	for _, key := range []string{"locale", "provider", "ai.timeout_seconds", "favorites.backend", "favorites.path", "ui.backend", "log.level", "log.file"} {
		value, _ := c.Get(key)
		out[key] = value
	}
	for _, name := range c.ProviderNames() {
		for _, field := range []string{"type", "enabled", "model", "command", "api_key", "api_key_env"} {
			value, err := c.Get("providers." + name + "." + field)
			if err != nil || value == "" {
				continue
			}
			out["providers."+name+"."+field] = value
		}
	}
	return out
}

func parseBool(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid bool: %s", value)
	}
}

func splitCommaList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}

func pickFirstModelAlias(models map[string]ModelConfig) string {
	if len(models) == 0 {
		return ""
	}
	aliases := make([]string, 0, len(models))
	for alias := range models {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	return aliases[0]
}

func boolPtr(v bool) *bool {
	b := v
	return &b
}

func normalizeUIBackend(value string, fallback string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "auto", "bubbletea", "huh", "tview", "plain":
		return normalized
	default:
		return strings.ToLower(strings.TrimSpace(fallback))
	}
}

func normalizeFavoritesBackend(value string, fallback string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case FavoritesJSON, FavoritesSQLite:
		return normalized
	case "sqlite3", "db":
		return FavoritesSQLite
	default:
		return strings.ToLower(strings.TrimSpace(fallback))
	}
}

func normalizeLogLevel(value string, fallback string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "off", "debug", "info", "warn", "error":
		return normalized
	case "none", "false":
		return "off"
	case "warning":
		return "warn"
	default:
		return strings.ToLower(strings.TrimSpace(fallback))
	}
}

func normalizeLocaleSetting(value string, fallback string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		trimmed = strings.TrimSpace(fallback)
	}
	if strings.EqualFold(trimmed, "auto") {
		return "auto"
	}
	return i18n.NormalizeLocale(trimmed)
}
