package favorites

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/ashwch/coreshell/internal/appdirs"
	"github.com/ashwch/coreshell/internal/command"
	"github.com/google/go-cmp/cmp"
)

func sampleRecords() []command.Record {
	return []command.Record{
		{Name: "mi ip", Mac: "ifconfig | grep inet", Win: "ipconfig", Desc: "Muestra tu dirección IP local."},
		{Name: "deploy kubernetes pod", Mac: "kubectl apply -f pod.yaml", Win: "kubectl apply -f pod.yaml", Desc: "Deploys a pod"},
		{Name: "quotes \"and\" unicode ✓", Mac: "echo 'hi'", Win: "Write-Output \"hi\"", Desc: "edge"},
	}
}

func TestFileBackendRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", FileName)
	backend := NewFileBackend(path)

	if got, err := backend.Load(); err != nil || len(got) != 0 {
		t.Fatalf("expected missing file to load empty, got %v err=%v", got, err)
	}
	if err := backend.Save(sampleRecords()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, err := backend.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if diff := cmp.Diff(sampleRecords(), got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestFileBackendUsesPrivateMode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not portable on windows")
	}
	path := filepath.Join(t.TempDir(), FileName)
	if err := NewFileBackend(path).Save(sampleRecords()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if perms := info.Mode().Perm(); perms&0o077 != 0 {
		t.Fatalf("expected private permissions, got %o", perms)
	}
}

func TestFileBackendRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte("{not an array"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if _, err := NewFileBackend(path).Load(); err == nil {
		t.Fatalf("expected parse error")
	}

	store := NewStore(NewFileBackend(path), nil)
	if store.Len() != 0 {
		t.Fatalf("expected store to swallow load failure")
	}
}

func TestFileBackendReadsOriginalLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	payload := `[{"name": "git push", "mac": "git push origin main", "win": "git push origin main", "desc": "Sube tus cambios."}]`
	if err := os.WriteFile(path, []byte(payload), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	got, err := NewFileBackend(path).Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(got) != 1 || got[0].Name != "git push" || got[0].Desc != "Sube tus cambios." {
		t.Fatalf("unexpected records %+v", got)
	}
}

func TestSQLiteBackendRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), DatabaseName)
	backend, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	defer backend.Close()

	if got, err := backend.Load(); err != nil || len(got) != 0 {
		t.Fatalf("expected empty database, got %v err=%v", got, err)
	}
	if err := backend.Save(sampleRecords()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	replaced := sampleRecords()[1:]
	if err := backend.Save(replaced); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}
	got, err := backend.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if diff := cmp.Diff(replaced, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestSQLiteBackendDuplicateNameFailsAtomically(t *testing.T) {
	backend, err := OpenSQLite(filepath.Join(t.TempDir(), DatabaseName))
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	defer backend.Close()

	if err := backend.Save(sampleRecords()[:1]); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	dup := []command.Record{sampleRecords()[1], sampleRecords()[1]}
	if err := backend.Save(dup); err == nil {
		t.Fatalf("expected unique constraint failure")
	}
	got, err := backend.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if diff := cmp.Diff(sampleRecords()[:1], got); diff != "" {
		t.Fatalf("expected previous rows kept after failed save (-want +got):\n%s", diff)
	}
}

func TestSQLiteBackendPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), DatabaseName)
	first, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	store := NewStore(first, nil)
	if _, err := store.Add(sampleRecords()[0]); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	second, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer second.Close()
	if diff := cmp.Diff(sampleRecords()[:1], NewStore(second, nil).List()); diff != "" {
		t.Fatalf("reopen mismatch (-want +got):\n%s", diff)
	}
}

func TestOpenBackendByKind(t *testing.T) {
	t.Setenv(appdirs.HomeEnv, t.TempDir())

	jsonBackend, closeJSON, err := OpenBackend("json", "")
	if err != nil {
		t.Fatalf("OpenBackend json failed: %v", err)
	}
	defer closeJSON()
	fileBackend, ok := jsonBackend.(*FileBackend)
	if !ok || filepath.Base(fileBackend.Path) != FileName {
		t.Fatalf("expected default json backend, got %#v", jsonBackend)
	}

	sqliteBackend, closeSQLite, err := OpenBackend("sqlite", "")
	if err != nil {
		t.Fatalf("OpenBackend sqlite failed: %v", err)
	}
	defer closeSQLite()
	if _, ok := sqliteBackend.(*SQLiteBackend); !ok {
		t.Fatalf("expected sqlite backend, got %T", sqliteBackend)
	}

	if _, _, err := OpenBackend("redis", ""); err == nil {
		t.Fatalf("expected unknown backend error")
	}
}
