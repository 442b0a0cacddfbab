package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestNewOffReturnsNop(t *testing.T) {
	t.Setenv(LevelEnv, "")
	logger, err := New("off", "")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if logger.Core().Enabled(zap.ErrorLevel) {
		t.Fatalf("expected no-op logger")
	}
}

func TestNewWritesJSONLines(t *testing.T) {
	t.Setenv(LevelEnv, "")
	path := filepath.Join(t.TempDir(), "logs", DefaultFileName)

	logger, err := New("info", path)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("hidden")
	logger.Info("lookup", zap.String("query", "mi ip"))
	_ = logger.Sync()

	bytes, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(bytes)), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one info line, got %d: %q", len(lines), string(bytes))
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("expected JSON log line: %v", err)
	}
	if entry["msg"] != "lookup" || entry["query"] != "mi ip" || entry["logger"] != "coreshell" {
		t.Fatalf("unexpected log entry: %+v", entry)
	}
}

func TestLevelEnvOverridesConfig(t *testing.T) {
	t.Setenv(LevelEnv, "off")
	logger, err := New("debug", filepath.Join(t.TempDir(), DefaultFileName))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if logger.Core().Enabled(zap.ErrorLevel) {
		t.Fatalf("expected env to turn logging off")
	}
}

func TestNewRejectsBadLevel(t *testing.T) {
	t.Setenv(LevelEnv, "")
	if _, err := New("chatty", filepath.Join(t.TempDir(), DefaultFileName)); err == nil {
		t.Fatalf("expected invalid level error")
	}
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Fatalf("expected a logger")
	}
	base := zap.NewExample()
	if OrNop(base) != base {
		t.Fatalf("expected logger passthrough")
	}
}
