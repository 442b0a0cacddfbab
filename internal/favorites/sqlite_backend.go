package favorites

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ashwch/coreshell/internal/command"
	_ "modernc.org/sqlite"
)

const DatabaseName = "favorites.db"

// SQLiteBackend stores one row per favorite; position keeps display order.
type SQLiteBackend struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLiteBackend, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("could not create favorites dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("could not open favorites database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("could not configure favorites database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("could not configure favorites database: %w", err)
	}

	backend := &SQLiteBackend{db: db}
	if err := backend.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return backend, nil
}

func (b *SQLiteBackend) migrate() error {
	_, err := b.db.Exec(`
		CREATE TABLE IF NOT EXISTS favorites (
			position INTEGER NOT NULL,
			name TEXT NOT NULL UNIQUE,
			mac TEXT NOT NULL DEFAULT '',
			win TEXT NOT NULL DEFAULT '',
			"desc" TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_favorites_position ON favorites(position);
	`)
	if err != nil {
		return fmt.Errorf("could not migrate favorites database: %w", err)
	}
	return nil
}

func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}

func (b *SQLiteBackend) Load() ([]command.Record, error) {
	rows, err := b.db.Query(`SELECT name, mac, win, "desc" FROM favorites ORDER BY position ASC`)
	if err != nil {
		return nil, fmt.Errorf("could not query favorites: %w", err)
	}
	defer rows.Close()

	var records []command.Record
	for rows.Next() {
		var r command.Record
		if err := rows.Scan(&r.Name, &r.Mac, &r.Win, &r.Desc); err != nil {
			return nil, fmt.Errorf("could not scan favorite: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Save replaces every row in a single transaction.
func (b *SQLiteBackend) Save(records []command.Record) (err error) {
	tx, err := b.db.Begin()
	if err != nil {
		return fmt.Errorf("could not begin favorites transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = errors.Join(err, rbErr)
			}
		}
	}()

	if _, err = tx.Exec(`DELETE FROM favorites`); err != nil {
		return fmt.Errorf("could not clear favorites: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO favorites (position, name, mac, win, "desc") VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("could not prepare favorite insert: %w", err)
	}
	defer stmt.Close()
	for i, r := range records {
		if _, err = stmt.Exec(i, r.Name, r.Mac, r.Win, r.Desc); err != nil {
			return fmt.Errorf("could not insert favorite %q: %w", r.Name, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit favorites: %w", err)
	}
	return nil
}
