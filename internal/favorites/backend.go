package favorites

import (
	"fmt"
	"strings"

	"github.com/ashwch/coreshell/internal/appdirs"
)

// OpenBackend picks the backend by kind ("json" or "sqlite"). An empty path
// means the default file in the state directory. The returned close func is
// never nil.
func OpenBackend(kind, path string) (Backend, func() error, error) {
	noop := func() error { return nil }
	kind = strings.ToLower(strings.TrimSpace(kind))
	path = strings.TrimSpace(path)

	switch kind {
	case "", "json":
		if path == "" {
			resolved, err := appdirs.StateFilePath(FileName)
			if err != nil {
				return nil, noop, err
			}
			path = resolved
		}
		return NewFileBackend(path), noop, nil
	case "sqlite":
		if path == "" {
			resolved, err := appdirs.StateFilePath(DatabaseName)
			if err != nil {
				return nil, noop, err
			}
			path = resolved
		}
		backend, err := OpenSQLite(path)
		if err != nil {
			return nil, noop, err
		}
		return backend, backend.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown favorites backend: %s", kind)
	}
}
