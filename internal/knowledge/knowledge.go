package knowledge

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/ashwch/coreshell/internal/command"
)

// OverrideEnv names a JSON file whose entries are appended after the builtin ones.
const OverrideEnv = "CORESHELL_KNOWLEDGE_FILE"

//go:embed commands.json
var builtinCommandsJSON []byte

var builtinOnce sync.Once
var builtinBase *Base
var builtinErr error

type Entry struct {
	Phrase   string `json:"phrase"`
	Category string `json:"category,omitempty"`
	Mac      string `json:"mac"`
	Win      string `json:"win"`
	Desc     string `json:"desc"`
}

// Base is an immutable, ordered phrase to command mapping.
type Base struct {
	entries []Entry
}

// Builtin returns the embedded knowledge base, extended by OverrideEnv when set.
func Builtin() (*Base, error) {
	builtinOnce.Do(func() {
		builtinBase, builtinErr = loadBuiltin()
	})
	if builtinErr != nil {
		return nil, builtinErr
	}
	return builtinBase, nil
}

func loadBuiltin() (*Base, error) {
	entries, err := Parse(builtinCommandsJSON)
	if err != nil {
		return nil, err
	}

	overridePath := strings.TrimSpace(os.Getenv(OverrideEnv))
	if overridePath != "" {
		overrideBytes, err := os.ReadFile(overridePath)
		if err != nil {
			return nil, fmt.Errorf("knowledge: could not read %s: %w", OverrideEnv, err)
		}
		overrideEntries, err := Parse(overrideBytes)
		if err != nil {
			return nil, fmt.Errorf("knowledge: invalid %s: %w", OverrideEnv, err)
		}
		entries = append(entries, overrideEntries...)
	}

	return New(entries)
}

func Parse(payload []byte) ([]Entry, error) {
	var entries []Entry
	if err := json.Unmarshal(payload, &entries); err != nil {
		return nil, fmt.Errorf("could not parse knowledge JSON: %w", err)
	}
	return entries, nil
}

// New validates entries and keeps their order. Phrases are lowercased and must be unique.
func New(entries []Entry) (*Base, error) {
	out := make([]Entry, 0, len(entries))
	seen := map[string]struct{}{}
	for idx, entry := range entries {
		normalized, err := normalizeEntry(entry)
		if err != nil {
			return nil, fmt.Errorf("knowledge entry %d: %w", idx, err)
		}
		if _, exists := seen[normalized.Phrase]; exists {
			return nil, fmt.Errorf("knowledge entry %d: duplicate phrase %q", idx, normalized.Phrase)
		}
		seen[normalized.Phrase] = struct{}{}
		out = append(out, normalized)
	}
	return &Base{entries: out}, nil
}

func normalizeEntry(in Entry) (Entry, error) {
	entry := in
	entry.Phrase = normalizeQuery(entry.Phrase)
	entry.Category = strings.ToLower(strings.TrimSpace(entry.Category))
	entry.Mac = strings.TrimSpace(entry.Mac)
	entry.Win = strings.TrimSpace(entry.Win)
	entry.Desc = strings.TrimSpace(entry.Desc)

	if entry.Phrase == "" {
		return Entry{}, fmt.Errorf("missing phrase")
	}
	if entry.Mac == "" || entry.Win == "" {
		return Entry{}, fmt.Errorf("phrase %q missing mac or win command", entry.Phrase)
	}
	if entry.Desc == "" {
		return Entry{}, fmt.Errorf("phrase %q missing desc", entry.Phrase)
	}
	return entry, nil
}

// Lookup returns the record of the first phrase, in base order, that contains
// the lowercased and trimmed query.
func (b *Base) Lookup(query string) (command.Record, bool) {
	if b == nil {
		return command.Record{}, false
	}
	q := normalizeQuery(query)
	for _, entry := range b.entries {
		if strings.Contains(entry.Phrase, q) {
			return entry.Record(), true
		}
	}
	return command.Record{}, false
}

func (b *Base) Entries() []Entry {
	if b == nil {
		return nil
	}
	return append([]Entry(nil), b.entries...)
}

func (b *Base) Len() int {
	if b == nil {
		return 0
	}
	return len(b.entries)
}

func (e Entry) Record() command.Record {
	return command.Record{
		Name: e.Phrase,
		Mac:  e.Mac,
		Win:  e.Win,
		Desc: e.Desc,
	}
}

func normalizeQuery(input string) string {
	return strings.ToLower(strings.TrimSpace(input))
}
