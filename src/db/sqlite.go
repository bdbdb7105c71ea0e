package db

import (
	"RainMatrix/src/types"
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// createdAtLayout sorts lexicographically, which Prune relies on.
const createdAtLayout = "2006-01-02 15:04:05"

const schema = `
CREATE TABLE IF NOT EXISTS rain_cache (
  query_date  TEXT NOT NULL,
  target_date TEXT NOT NULL,
  tz          TEXT NOT NULL,
  country     TEXT NOT NULL,
  model       TEXT NOT NULL,
  places_sig  TEXT NOT NULL,
  html        TEXT NOT NULL,
  created_at  TEXT NOT NULL,
  PRIMARY KEY (query_date, target_date, tz, country, model, places_sig)
)`

type CacheOptions struct {
	TTL       time.Duration
	Retention time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

func (o CacheOptions) withDefaults() CacheOptions {
	if o.TTL <= 0 {
		o.TTL = time.Hour
	}
	if o.Retention <= 0 {
		o.Retention = 48 * time.Hour
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

type SQLiteStore struct {
	db   *sqlx.DB
	opts CacheOptions
}

var _ types.PageCache = (*SQLiteStore)(nil)

// OpenSQLite opens (creating if needed) the cache database at path and
// ensures the schema exists.
func OpenSQLite(ctx context.Context, path string, opts CacheOptions) (*SQLiteStore, error) {
	dsn := "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(10000)"
	conn, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite cache")
	}

	store := NewSQLiteStore(conn, opts)
	if err := store.Init(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return store, nil
}

func NewSQLiteStore(conn *sqlx.DB, opts CacheOptions) *SQLiteStore {
	return &SQLiteStore{db: conn, opts: opts.withDefaults()}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "create rain_cache table")
	}
	return nil
}

type cacheRow struct {
	HTML      string `db:"html"`
	CreatedAt string `db:"created_at"`
}

// Get returns the cached page. Rows older than the TTL, or with an
// unreadable timestamp, count as misses.
func (s *SQLiteStore) Get(ctx context.Context, key types.CacheKey) (string, bool, error) {
	var row cacheRow
	err := s.db.GetContext(ctx, &row, `
SELECT html, created_at
FROM rain_cache
WHERE query_date=? AND target_date=? AND tz=? AND country=? AND model=? AND places_sig=?`,
		key.QueryDate, key.TargetDate, key.TZ, key.Country, key.Model, key.PlacesSig)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "query cache")
	}

	created, err := time.Parse(createdAtLayout, row.CreatedAt)
	if err != nil {
		log.WithField("created_at", row.CreatedAt).Debug("unparseable cache timestamp, treating as expired")
		return "", false, nil
	}
	if s.opts.Now().UTC().Sub(created) > s.opts.TTL {
		return "", false, nil
	}

	return row.HTML, true, nil
}

func (s *SQLiteStore) Put(ctx context.Context, key types.CacheKey, html string) error {
	_, err := s.db.ExecContext(ctx, `
INSERT OR REPLACE INTO rain_cache
  (query_date, target_date, tz, country, model, places_sig, html, created_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?)`,
		key.QueryDate, key.TargetDate, key.TZ, key.Country, key.Model, key.PlacesSig,
		html, s.opts.Now().UTC().Format(createdAtLayout))
	if err != nil {
		return errors.Wrap(err, "store cache row")
	}
	return nil
}

// Prune deletes rows older than the retention window.
func (s *SQLiteStore) Prune(ctx context.Context) (int64, error) {
	cutoff := s.opts.Now().UTC().Add(-s.opts.Retention).Format(createdAtLayout)
	res, err := s.db.ExecContext(ctx, `DELETE FROM rain_cache WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, errors.Wrap(err, "prune cache")
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) Purge(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM rain_cache`)
	if err != nil {
		return 0, errors.Wrap(err, "purge cache")
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
