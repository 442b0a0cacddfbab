package i18n

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ashwch/coreshell/internal/appdirs"
)

func TestNormalizeLocale(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "en_US.UTF-8", want: "en-US"},
		{in: "es-MX", want: "es-MX"},
		{in: "fr", want: "fr"},
		{in: "pt_BR@latin", want: "pt-BR"},
		{in: "%%bad", want: ""},
		{in: "", want: ""},
	}
	for _, tc := range cases {
		if got := NormalizeLocale(tc.in); got != tc.want {
			t.Fatalf("NormalizeLocale(%q)=%q want=%q", tc.in, got, tc.want)
		}
	}
}

func TestDetectLocalePrefersCoreShellEnv(t *testing.T) {
	t.Setenv(LocaleEnv, "es_ES.UTF-8")
	t.Setenv("LANG", "en_US.UTF-8")
	if got := DetectLocale(); got != "es-ES" {
		t.Fatalf("expected es-ES, got %q", got)
	}
}

func TestLoadCatalogSpanishFallsBackToEnglish(t *testing.T) {
	t.Setenv(appdirs.HomeEnv, t.TempDir())

	catalog := LoadCatalog("es-MX")
	if catalog.Locale != "es-MX" {
		t.Fatalf("expected requested locale to be kept, got %q", catalog.Locale)
	}
	if !strings.Contains(catalog.Messages.Saved, "favoritos") {
		t.Fatalf("expected Spanish saved message, got %q", catalog.Messages.Saved)
	}
	if catalog.Messages.Title != "CoreShell" {
		t.Fatalf("expected English title fallback, got %q", catalog.Messages.Title)
	}
	if !strings.Contains(catalog.Thinking(0), "IA") {
		t.Fatalf("expected Spanish loader line, got %q", catalog.Thinking(0))
	}
}

func TestLoadCatalogMergesCommunityOverrides(t *testing.T) {
	t.Setenv(appdirs.HomeEnv, t.TempDir())
	t.Setenv(LocaleEnv, "fr-FR")

	localesDir, err := appdirs.LocalesDir()
	if err != nil {
		t.Fatalf("locales dir failed: %v", err)
	}
	if err := os.MkdirAll(localesDir, 0o755); err != nil {
		t.Fatalf("mkdir locales failed: %v", err)
	}

	override := `{
	  "locale": "fr-FR",
	  "loader": {
	    "thinking": ["je cherche une commande"]
	  },
	  "messages": {
	    "saved": "Enregistré dans les favoris : %s"
	  }
	}`
	if err := os.WriteFile(filepath.Join(localesDir, "fr.json"), []byte(override), 0o644); err != nil {
		t.Fatalf("write locale override failed: %v", err)
	}

	catalog := LoadCatalog("")
	if !strings.EqualFold(catalog.Locale, "fr-FR") {
		t.Fatalf("expected merged locale fr-FR, got %q", catalog.Locale)
	}
	if !strings.HasPrefix(catalog.Messages.Saved, "Enregistré") {
		t.Fatalf("expected override saved message, got %q", catalog.Messages.Saved)
	}
	// untouched messages keep the English text
	if catalog.Messages.Removed != defaultEnglishCatalog().Messages.Removed {
		t.Fatalf("expected english fallback for removed, got %q", catalog.Messages.Removed)
	}
	found := false
	for _, line := range catalog.Loader.Thinking {
		if line == "je cherche une commande" {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("expected community loader line to be merged")
	}
}

func TestThinkingRotates(t *testing.T) {
	catalog := defaultEnglishCatalog()
	if catalog.Thinking(0) == catalog.Thinking(1) {
		t.Fatalf("expected consecutive seeds to rotate loader lines")
	}
	if catalog.Thinking(len(catalog.Loader.Thinking)) != catalog.Thinking(0) {
		t.Fatalf("expected loader rotation to wrap")
	}
	if got := (Catalog{}).Thinking(3); got != "thinking" {
		t.Fatalf("expected empty catalog fallback, got %q", got)
	}
}
