package favorites

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ashwch/coreshell/internal/command"
	"github.com/ashwch/coreshell/internal/logging"
	"github.com/sahilm/fuzzy"
	"go.uber.org/zap"
)

var ErrOutOfRange = errors.New("favorite index out of range")

type AddResult int

const (
	Added AddResult = iota + 1
	AlreadyExists
)

func (r AddResult) String() string {
	switch r {
	case Added:
		return "added"
	case AlreadyExists:
		return "already_exists"
	default:
		return "unknown"
	}
}

// Backend persists the whole list. Load on a missing store returns an empty list.
type Backend interface {
	Load() ([]command.Record, error)
	Save(records []command.Record) error
}

// Match is a Filter hit; Index points into List().
type Match struct {
	Index  int            `json:"index"`
	Record command.Record `json:"record"`
}

// Store is the user's ordered favorites list, unique by name.
type Store struct {
	mu      sync.Mutex
	backend Backend
	logger  *zap.Logger
	records []command.Record
	loaded  bool
}

func NewStore(backend Backend, logger *zap.Logger) *Store {
	return &Store{backend: backend, logger: logging.OrNop(logger)}
}

// ensureLoaded reads the backend once, and only while the list is empty.
// Failures are logged; the list simply starts empty.
func (s *Store) ensureLoaded() {
	if s.loaded {
		return
	}
	s.loaded = true
	if len(s.records) > 0 || s.backend == nil {
		return
	}
	records, err := s.backend.Load()
	if err != nil {
		s.logger.Warn("could not load favorites", zap.Error(err))
		return
	}
	s.records = normalize(records)
	s.logger.Debug("favorites loaded", zap.Int("count", len(s.records)))
}

func normalize(records []command.Record) []command.Record {
	out := make([]command.Record, 0, len(records))
	seen := map[string]struct{}{}
	for _, record := range records {
		if strings.TrimSpace(record.Name) == "" {
			continue
		}
		if _, exists := seen[record.Name]; exists {
			continue
		}
		seen[record.Name] = struct{}{}
		out = append(out, record)
	}
	return out
}

func (s *Store) Add(record command.Record) (AddResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded()

	if strings.TrimSpace(record.Name) == "" {
		return 0, fmt.Errorf("favorite name cannot be empty")
	}
	for _, existing := range s.records {
		if existing.Name == record.Name {
			return AlreadyExists, nil
		}
	}

	previous := s.records
	next := make([]command.Record, len(previous), len(previous)+1)
	copy(next, previous)
	next = append(next, record)
	if err := s.persist(next); err != nil {
		return 0, err
	}
	s.records = next
	return Added, nil
}

// Remove deletes the entry at index (0-based, List order).
func (s *Store) Remove(index int) (command.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded()

	if index < 0 || index >= len(s.records) {
		return command.Record{}, fmt.Errorf("%w: index %d, %d favorites", ErrOutOfRange, index, len(s.records))
	}
	removed := s.records[index]
	next := make([]command.Record, 0, len(s.records)-1)
	next = append(next, s.records[:index]...)
	next = append(next, s.records[index+1:]...)
	if err := s.persist(next); err != nil {
		return command.Record{}, err
	}
	s.records = next
	return removed, nil
}

func (s *Store) List() []command.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded()
	return append([]command.Record(nil), s.records...)
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded()
	return len(s.records)
}

// Filter fuzzy-matches pattern against names, best match first. A blank
// pattern returns every entry in list order.
func (s *Store) Filter(pattern string) []Match {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded()

	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		out := make([]Match, len(s.records))
		for i, record := range s.records {
			out[i] = Match{Index: i, Record: record}
		}
		return out
	}

	targets := make([]string, len(s.records))
	for i, record := range s.records {
		targets[i] = record.Name
	}
	matches := fuzzy.Find(pattern, targets)
	out := make([]Match, len(matches))
	for i, m := range matches {
		out[i] = Match{Index: m.Index, Record: s.records[m.Index]}
	}
	return out
}

func (s *Store) persist(records []command.Record) error {
	if s.backend == nil {
		return nil
	}
	if err := s.backend.Save(records); err != nil {
		s.logger.Warn("could not save favorites", zap.Error(err))
		return fmt.Errorf("could not save favorites: %w", err)
	}
	return nil
}
