package favorites

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ashwch/coreshell/internal/command"
)

const FileName = "favorites.json"

// FileBackend keeps favorites as a JSON array of records.
type FileBackend struct {
	Path string
}

func NewFileBackend(path string) *FileBackend {
	return &FileBackend{Path: path}
}

func (b *FileBackend) Load() ([]command.Record, error) {
	bytes, err := os.ReadFile(b.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not read favorites file: %w", err)
	}
	if len(bytes) == 0 {
		return nil, nil
	}
	var records []command.Record
	if err := json.Unmarshal(bytes, &records); err != nil {
		return nil, fmt.Errorf("could not parse favorites file: %w", err)
	}
	return records, nil
}

func (b *FileBackend) Save(records []command.Record) error {
	if records == nil {
		records = []command.Record{}
	}
	payload, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("could not encode favorites: %w", err)
	}

	dir := filepath.Dir(b.Path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("could not create favorites dir: %w", err)
	}
	tempFile, err := os.CreateTemp(dir, ".coreshell-favorites-*.json")
	if err != nil {
		return fmt.Errorf("could not create temp favorites file: %w", err)
	}
	tempPath := tempFile.Name()
	cleanup := func() {
		_ = os.Remove(tempPath)
	}
	if _, err := tempFile.Write(payload); err != nil {
		_ = tempFile.Close()
		cleanup()
		return fmt.Errorf("could not write temp favorites file: %w", err)
	}
	if err := tempFile.Chmod(0o600); err != nil {
		_ = tempFile.Close()
		cleanup()
		return fmt.Errorf("could not secure temp favorites file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		cleanup()
		return fmt.Errorf("could not close temp favorites file: %w", err)
	}
	if err := os.Rename(tempPath, b.Path); err != nil {
		cleanup()
		return fmt.Errorf("could not atomically replace favorites file: %w", err)
	}
	return nil
}
