package document

import (
	"net/url"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/peerhive/backend/core"
)

// NewPostgresSnapshotter opens a Postgres-backed snapshot store. The state
// table shape matches the SQLite backend.
func NewPostgresSnapshotter(conf *core.Config) (Snapshotter, error) {
	sslMode := "require"
	if conf.Database.DisableTLS {
		sslMode = "disable"
	}
	q := make(url.Values)
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(conf.Database.User, conf.Database.Password),
		Host:     conf.Database.Address(),
		Path:     conf.Database.Name,
		RawQuery: q.Encode(),
	}

	db, err := sqlx.Connect("postgres", u.String())
	if err != nil {
		return nil, errors.Wrap(err, "opening postgres")
	}
	if _, err = db.Exec(`CREATE TABLE IF NOT EXISTS state (
		key     TEXT PRIMARY KEY,
		payload BYTEA NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "creating state table")
	}
	return &sqlSnapshotter{db: db}, nil
}
