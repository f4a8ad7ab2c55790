package document

import (
	"database/sql"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite" // pure go sqlite driver
)

// The whole document is stored as one row under this key.
const snapshotKey = "dataset"

// sqlSnapshotter stores the serialized document in a single-row key/payload
// table; SQLite and Postgres share the implementation.
type sqlSnapshotter struct {
	db *sqlx.DB
}

// NewSQLiteSnapshotter opens (creating if needed) a SQLite-backed snapshot store.
func NewSQLiteSnapshotter(path string) (Snapshotter, error) {
	if path == "" {
		path = "peerhive.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, errors.Wrap(err, "creating database directory")
		}
	}

	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "opening sqlite")
	}
	if _, err = db.Exec(`CREATE TABLE IF NOT EXISTS state (
		key     TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "creating state table")
	}
	return &sqlSnapshotter{db: db}, nil
}

func (s *sqlSnapshotter) Load() ([]byte, error) {
	var payload []byte
	err := s.db.Get(&payload, s.db.Rebind(`SELECT payload FROM state WHERE key = ?`), snapshotKey)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "selecting snapshot")
	}
	return payload, nil
}

func (s *sqlSnapshotter) Save(payload []byte) error {
	_, err := s.db.Exec(
		s.db.Rebind(`INSERT INTO state (key, payload) VALUES (?, ?)
			ON CONFLICT (key) DO UPDATE SET payload = excluded.payload`),
		snapshotKey, payload,
	)
	return errors.Wrap(err, "upserting snapshot")
}

func (s *sqlSnapshotter) Close() error {
	return s.db.Close()
}
