package loader

import (
	"database/sql"
	"os"

	"github.com/pkg/errors"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a Source backed by a SQLite database holding a modules
// table.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens or creates the module database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "set busy timeout")
	}
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS modules (
		name TEXT PRIMARY KEY,
		source TEXT NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create modules table")
	}
	log.Debugf("opened module database %s", path)
	return &SQLiteStore{db: db, path: path}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Lookup(name string) (string, bool, error) {
	var src string
	err := s.db.QueryRow("SELECT source FROM modules WHERE name = ?", name).Scan(&src)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "query module %q in %s", name, s.path)
	}
	return src, true, nil
}

// Put stores or replaces a module.
func (s *SQLiteStore) Put(name, source string) error {
	_, err := s.db.Exec(`INSERT INTO modules (name, source) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET source = excluded.source`, name, source)
	return errors.Wrapf(err, "store module %q", name)
}

// Delete removes a module. Deleting a missing module is not an error.
func (s *SQLiteStore) Delete(name string) error {
	_, err := s.db.Exec("DELETE FROM modules WHERE name = ?", name)
	return errors.Wrapf(err, "delete module %q", name)
}

// Names lists the stored modules in name order.
func (s *SQLiteStore) Names() ([]string, error) {
	rows, err := s.db.Query("SELECT name FROM modules ORDER BY name")
	if err != nil {
		return nil, errors.Wrap(err, "list modules")
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, "list modules")
		}
		names = append(names, name)
	}
	return names, errors.Wrap(rows.Err(), "list modules")
}

// ImportDir stores every module file below root, replacing modules with the
// same name. It returns the number of modules stored.
func (s *SQLiteStore) ImportDir(root string) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, errors.Wrap(err, "begin import")
	}
	defer tx.Rollback()

	n := 0
	err = walkModules(root, func(name, path string) error {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		_, err = tx.Exec(`INSERT INTO modules (name, source) VALUES (?, ?)
			ON CONFLICT(name) DO UPDATE SET source = excluded.source`, name, string(data))
		if err != nil {
			return errors.Wrapf(err, "store module %q", name)
		}
		n++
		return nil
	})
	if err != nil {
		return 0, errors.Wrapf(err, "import %s", root)
	}
	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "commit import")
	}
	log.Infof("imported %d modules from %s", n, root)
	return n, nil
}
