package i18n

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/ashwch/coreshell/internal/appdirs"
)

const LocaleEnv = "CORESHELL_LOCALE"

type Catalog struct {
	Locale   string        `json:"locale"`
	Loader   LoaderCatalog `json:"loader"`
	Messages Messages      `json:"messages"`
}

type LoaderCatalog struct {
	Thinking []string `json:"thinking"`
}

// Messages holds the user-facing strings. Fields containing %s take one argument.
type Messages struct {
	Title          string `json:"title"`
	Placeholder    string `json:"placeholder"`
	Help           string `json:"help"`
	EmptyQuery     string `json:"empty_query"`
	AIUnavailable  string `json:"ai_unavailable"`
	AIFailed       string `json:"ai_failed"`
	GeneratedByAI  string `json:"generated_by_ai"`
	FoundLocally   string `json:"found_locally"`
	MacHeader      string `json:"mac_header"`
	WinHeader      string `json:"win_header"`
	Saved          string `json:"saved"`
	AlreadySaved   string `json:"already_saved"`
	SaveFailed     string `json:"save_failed"`
	NothingToSave  string `json:"nothing_to_save"`
	Removed        string `json:"removed"`
	ConfirmRemove  string `json:"confirm_remove"`
	FavoritesTitle string `json:"favorites_title"`
	EmptyFavorites string `json:"empty_favorites"`
	Copied         string `json:"copied"`
	CopyFailed     string `json:"copy_failed"`
	KeyPrompt      string `json:"key_prompt"`
	KeySaved       string `json:"key_saved"`
}

func LoadCatalog(requestedLocale string) Catalog {
	locale := NormalizeLocale(requestedLocale)
	if locale == "" {
		locale = DetectLocale()
	}
	if locale == "" {
		locale = "en"
	}
	base := baseCatalogForLocale(locale)

	if override, ok := loadCommunityCatalog(locale); ok {
		merged := mergeCatalog(base, override)
		if strings.TrimSpace(override.Locale) != "" {
			merged.Locale = NormalizeLocale(override.Locale)
		} else {
			merged.Locale = locale
		}
		return merged
	}

	base.Locale = locale
	return base
}

// Builtin returns the compiled-in catalog for locale without reading
// community overrides from disk.
func Builtin(locale string) Catalog {
	base := baseCatalogForLocale(locale)
	if normalized := NormalizeLocale(locale); normalized != "" {
		base.Locale = normalized
	}
	return base
}

func baseCatalogForLocale(locale string) Catalog {
	normalized := strings.ToLower(NormalizeLocale(locale))
	switch {
	case strings.HasPrefix(normalized, "es"):
		// Spanish first, English fills whatever is missing.
		base := mergeCatalog(defaultEnglishCatalog(), defaultSpanishCatalog())
		base.Loader.Thinking = defaultSpanishCatalog().Loader.Thinking
		base.Locale = "es"
		return base
	default:
		base := defaultEnglishCatalog()
		base.Locale = "en"
		return base
	}
}

func DetectLocale() string {
	candidates := []string{
		os.Getenv(LocaleEnv),
		os.Getenv("LC_ALL"),
		os.Getenv("LC_MESSAGES"),
		os.Getenv("LANG"),
	}
	for _, candidate := range candidates {
		if normalized := NormalizeLocale(candidate); normalized != "" {
			return normalized
		}
	}
	return "en"
}

func NormalizeLocale(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	trimmed = strings.Split(trimmed, ".")[0]
	trimmed = strings.Split(trimmed, "@")[0]
	trimmed = strings.ReplaceAll(trimmed, "_", "-")

	parts := strings.Split(trimmed, "-")
	if len(parts) == 1 {
		lang := strings.ToLower(parts[0])
		if !isValidLocaleToken(lang, true) {
			return ""
		}
		return lang
	}
	lang := strings.ToLower(parts[0])
	region := strings.ToUpper(parts[1])
	if !isValidLocaleToken(lang, true) {
		return ""
	}
	if region == "" {
		return lang
	}
	if !isValidLocaleToken(strings.ToLower(region), false) {
		return ""
	}
	return lang + "-" + region
}

func isValidLocaleToken(token string, lettersOnly bool) bool {
	if len(token) < 2 || len(token) > 8 {
		return false
	}
	for _, r := range token {
		if r >= 'a' && r <= 'z' {
			continue
		}
		if !lettersOnly && r >= '0' && r <= '9' {
			continue
		}
		return false
	}
	return true
}

// Thinking picks a loader line; seed is usually a tick counter.
func (c Catalog) Thinking(seed int) string {
	if len(c.Loader.Thinking) == 0 {
		return "thinking"
	}
	if seed < 0 {
		seed = -seed
	}
	return c.Loader.Thinking[seed%len(c.Loader.Thinking)]
}

func loadCommunityCatalog(locale string) (Catalog, bool) {
	localesDir, err := appdirs.LocalesDir()
	if err != nil {
		return Catalog{}, false
	}

	normalized := NormalizeLocale(locale)
	if normalized == "" {
		return Catalog{}, false
	}
	lang := normalized
	if idx := strings.Index(lang, "-"); idx > 0 {
		lang = lang[:idx]
	}

	paths := []string{
		filepath.Join(localesDir, normalized+".json"),
	}
	if lang != normalized {
		paths = append(paths, filepath.Join(localesDir, lang+".json"))
	}

	for _, path := range paths {
		loaded, ok := loadCatalogFile(path)
		if ok {
			return loaded, true
		}
	}
	return Catalog{}, false
}

func loadCatalogFile(path string) (Catalog, bool) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, false
	}
	var catalog Catalog
	if err := json.Unmarshal(bytes, &catalog); err != nil {
		return Catalog{}, false
	}
	return catalog, true
}

func mergeCatalog(base Catalog, override Catalog) Catalog {
	merged := base
	merged.Loader.Thinking = mergeStringSlices(base.Loader.Thinking, override.Loader.Thinking)

	b, o := base.Messages, override.Messages
	merged.Messages = Messages{
		Title:          pick(b.Title, o.Title),
		Placeholder:    pick(b.Placeholder, o.Placeholder),
		Help:           pick(b.Help, o.Help),
		EmptyQuery:     pick(b.EmptyQuery, o.EmptyQuery),
		AIUnavailable:  pick(b.AIUnavailable, o.AIUnavailable),
		AIFailed:       pick(b.AIFailed, o.AIFailed),
		GeneratedByAI:  pick(b.GeneratedByAI, o.GeneratedByAI),
		FoundLocally:   pick(b.FoundLocally, o.FoundLocally),
		MacHeader:      pick(b.MacHeader, o.MacHeader),
		WinHeader:      pick(b.WinHeader, o.WinHeader),
		Saved:          pick(b.Saved, o.Saved),
		AlreadySaved:   pick(b.AlreadySaved, o.AlreadySaved),
		SaveFailed:     pick(b.SaveFailed, o.SaveFailed),
		NothingToSave:  pick(b.NothingToSave, o.NothingToSave),
		Removed:        pick(b.Removed, o.Removed),
		ConfirmRemove:  pick(b.ConfirmRemove, o.ConfirmRemove),
		FavoritesTitle: pick(b.FavoritesTitle, o.FavoritesTitle),
		EmptyFavorites: pick(b.EmptyFavorites, o.EmptyFavorites),
		Copied:         pick(b.Copied, o.Copied),
		CopyFailed:     pick(b.CopyFailed, o.CopyFailed),
		KeyPrompt:      pick(b.KeyPrompt, o.KeyPrompt),
		KeySaved:       pick(b.KeySaved, o.KeySaved),
	}
	return merged
}

func pick(base, override string) string {
	if strings.TrimSpace(override) != "" {
		return override
	}
	return base
}

func mergeStringSlices(base []string, override []string) []string {
	if len(base) == 0 && len(override) == 0 {
		return nil
	}
	seen := map[string]struct{}{}
	merged := make([]string, 0, len(base)+len(override))
	appendUnique := func(items []string) {
		for _, item := range items {
			trimmed := strings.TrimSpace(item)
			if trimmed == "" {
				continue
			}
			if _, exists := seen[trimmed]; exists {
				continue
			}
			seen[trimmed] = struct{}{}
			merged = append(merged, trimmed)
		}
	}
	appendUnique(base)
	appendUnique(override)
	return merged
}

func defaultEnglishCatalog() Catalog {
	return Catalog{
		Locale: "en",
		Loader: LoaderCatalog{
			Thinking: []string{
				"asking the AI helper",
				"looking for a command that fits",
				"checking both shells",
				"translating intent into a command",
				"finding the right flags",
			},
		},
		Messages: Messages{
			Title:          "CoreShell",
			Placeholder:    "what do you want to do? e.g. list files, my ip, git push",
			Help:           "enter search | ctrl+s save | tab favorites | ctrl+y copy | esc quit",
			EmptyQuery:     "Type what you want to do first.",
			AIUnavailable:  "Not in the local knowledge base and the AI helper is not configured. Set GEMINI_API_KEY or run coreshell --setup-key.",
			AIFailed:       "AI error: %s",
			GeneratedByAI:  "Generated by AI",
			FoundLocally:   "From the local knowledge base",
			MacHeader:      "macOS / Linux",
			WinHeader:      "Windows",
			Saved:          "Saved to favorites: %s",
			AlreadySaved:   "Already in favorites: %s",
			SaveFailed:     "Could not save favorites: %s",
			NothingToSave:  "Nothing to save yet. Search for a command first.",
			Removed:        "Removed from favorites: %s",
			ConfirmRemove:  "Remove %s from favorites?",
			FavoritesTitle: "My toolbox",
			EmptyFavorites: "Your toolbox is empty. Save a command with ctrl+s.",
			Copied:         "Copied to clipboard: %s",
			CopyFailed:     "Could not copy to clipboard: %s",
			KeyPrompt:      "Gemini API key",
			KeySaved:       "API key saved to %s",
		},
	}
}

func defaultSpanishCatalog() Catalog {
	return Catalog{
		Locale: "es",
		Loader: LoaderCatalog{
			Thinking: []string{
				"consultando a la IA",
				"buscando un comando que encaje",
				"revisando ambas terminales",
				"traduciendo tu idea a un comando",
				"eligiendo las opciones correctas",
			},
		},
		Messages: Messages{
			Placeholder:    "¿qué quieres hacer? ej. listar archivos, mi ip, git push",
			Help:           "enter buscar | ctrl+s guardar | tab favoritos | ctrl+y copiar | esc salir",
			EmptyQuery:     "Escribe primero lo que quieres hacer.",
			AIUnavailable:  "No está en la base local y la IA no está configurada. Define GEMINI_API_KEY o ejecuta coreshell --setup-key.",
			AIFailed:       "Error de IA: %s",
			GeneratedByAI:  "Generado por IA",
			FoundLocally:   "De la base de conocimiento local",
			MacHeader:      "macOS / Linux",
			WinHeader:      "Windows",
			Saved:          "Guardado en favoritos: %s",
			AlreadySaved:   "Ya está en favoritos: %s",
			SaveFailed:     "No se pudieron guardar los favoritos: %s",
			NothingToSave:  "Nada que guardar todavía. Busca un comando primero.",
			Removed:        "Eliminado de favoritos: %s",
			ConfirmRemove:  "¿Eliminar %s de favoritos?",
			FavoritesTitle: "Mi caja de herramientas",
			EmptyFavorites: "Tu caja de herramientas está vacía. Guarda un comando con ctrl+s.",
			Copied:         "Copiado al portapapeles: %s",
			CopyFailed:     "No se pudo copiar al portapapeles: %s",
			KeyPrompt:      "Clave de API de Gemini",
			KeySaved:       "Clave de API guardada en %s",
		},
	}
}
