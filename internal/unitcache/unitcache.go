// Package unitcache stores compiled units in a database, keyed by a digest
// of everything the compilation depended on.
package unitcache

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/hex"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/nikandfor/errors"
	"github.com/nikandfor/tlog"
	"github.com/xyproto/env/v2"
	"golang.org/x/crypto/blake2b"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/therealbnut/rune/internal/ir"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var ErrUnsupportedDriver = errors.New("unsupported cache driver")

var schema = map[string]string{
	DriverSQLite: `CREATE TABLE IF NOT EXISTS units (
	key TEXT PRIMARY KEY,
	build_id TEXT NOT NULL,
	data BLOB NOT NULL,
	created INTEGER NOT NULL,
	hits INTEGER NOT NULL DEFAULT 0
)`,
	DriverPostgres: `CREATE TABLE IF NOT EXISTS units (
	key TEXT PRIMARY KEY,
	build_id TEXT NOT NULL,
	data BYTEA NOT NULL,
	created BIGINT NOT NULL,
	hits BIGINT NOT NULL DEFAULT 0
)`,
}

// Cache is a persistent unit cache.
type Cache struct {
	db     *sql.DB
	driver string
}

// Stats summarizes the cache contents.
type Stats struct {
	Entries int64
	Bytes   int64
	Hits    int64

	Oldest time.Time
	Newest time.Time
}

// Key digests parts into a cache key. Parts are length prefixed so that
// moving bytes between adjacent parts changes the key.
func Key(parts ...[]byte) string {
	h, err := blake2b.New256(nil)
	if err != nil {
		panic(err)
	}

	var l [8]byte
	for _, p := range parts {
		binary.LittleEndian.PutUint64(l[:], uint64(len(p)))
		h.Write(l[:])
		h.Write(p)
	}

	return hex.EncodeToString(h.Sum(nil))
}

// DefaultDSN is the sqlite database in the user cache directory.
func DefaultDSN() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", errors.Wrap(err, "user cache dir")
	}
	return filepath.Join(dir, "rune", "units.db"), nil
}

// OpenFromEnv opens the cache selected by RUNE_CACHE_DRIVER and
// RUNE_CACHE_DSN, defaulting to sqlite in the user cache directory.
func OpenFromEnv(ctx context.Context) (*Cache, error) {
	driver := env.Str("RUNE_CACHE_DRIVER", DriverSQLite)
	dsn := env.Str("RUNE_CACHE_DSN")

	if dsn == "" {
		if driver != DriverSQLite {
			return nil, errors.New("RUNE_CACHE_DSN is required for driver %v", driver)
		}

		var err error
		dsn, err = DefaultDSN()
		if err != nil {
			return nil, err
		}
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, errors.Wrap(err, "create cache dir")
		}
	}

	return Open(ctx, driver, dsn)
}

// Open connects to the database and creates the table if needed.
func Open(ctx context.Context, driver, dsn string) (*Cache, error) {
	ddl, ok := schema[driver]
	if !ok {
		return nil, errors.Wrap(ErrUnsupportedDriver, "%v", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open %v", driver)
	}

	if driver == DriverSQLite {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}

	if _, err := db.ExecContext(ctx, ddl); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "create table")
	}

	tlog.V("cache").Printw("open", "driver", driver)

	return &Cache{db: db, driver: driver}, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

// rebind rewrites ? placeholders into the numbered form postgres expects.
func (c *Cache) rebind(q string) string {
	if c.driver != DriverPostgres {
		return q
	}

	var b strings.Builder
	n := 0
	for i := 0; i < len(q); i++ {
		if q[i] != '?' {
			b.WriteByte(q[i])
			continue
		}
		n++
		b.WriteByte('$')
		b.WriteString(strconv.Itoa(n))
	}
	return b.String()
}

// Get returns the unit stored under key. A miss is not an error.
func (c *Cache) Get(ctx context.Context, key string) (*ir.Unit, bool, error) {
	var data []byte

	err := c.db.QueryRowContext(ctx, c.rebind(`SELECT data FROM units WHERE key = ?`), key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		tlog.V("cache").Printw("miss", "key", key)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "get %v", key)
	}

	u, err := ir.ReadUnit(bytes.NewReader(data))
	if err != nil {
		return nil, false, errors.Wrap(err, "decode %v", key)
	}

	if _, err := c.db.ExecContext(ctx, c.rebind(`UPDATE units SET hits = hits + 1 WHERE key = ?`), key); err != nil {
		return nil, false, errors.Wrap(err, "count hit")
	}

	tlog.V("cache").Printw("hit", "key", key, "build_id", u.BuildID, "size", len(data))

	return u, true, nil
}

// Put stores u under key, replacing any previous entry.
func (c *Cache) Put(ctx context.Context, key string, u *ir.Unit) error {
	var buf bytes.Buffer
	if err := ir.WriteUnit(&buf, u); err != nil {
		return errors.Wrap(err, "encode")
	}

	_, err := c.db.ExecContext(ctx, c.rebind(`INSERT INTO units (key, build_id, data, created, hits) VALUES (?, ?, ?, ?, 0)
ON CONFLICT (key) DO UPDATE SET build_id = excluded.build_id, data = excluded.data, created = excluded.created, hits = 0`),
		key, u.BuildID.String(), buf.Bytes(), time.Now().UnixNano())
	if err != nil {
		return errors.Wrap(err, "put %v", key)
	}

	tlog.V("cache").Printw("put", "key", key, "build_id", u.BuildID, "size", buf.Len())

	return nil
}

// Stats reports the number and total size of the cached units.
func (c *Cache) Stats(ctx context.Context) (Stats, error) {
	var (
		s              Stats
		oldest, newest sql.NullInt64
	)

	err := c.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(LENGTH(data)), 0), COALESCE(SUM(hits), 0), MIN(created), MAX(created) FROM units`).
		Scan(&s.Entries, &s.Bytes, &s.Hits, &oldest, &newest)
	if err != nil {
		return Stats{}, errors.Wrap(err, "stats")
	}

	if oldest.Valid {
		s.Oldest = time.Unix(0, oldest.Int64)
	}
	if newest.Valid {
		s.Newest = time.Unix(0, newest.Int64)
	}

	return s, nil
}

// Prune removes entries stored before t and returns how many were removed.
func (c *Cache) Prune(ctx context.Context, t time.Time) (int64, error) {
	res, err := c.db.ExecContext(ctx, c.rebind(`DELETE FROM units WHERE created < ?`), t.UnixNano())
	if err != nil {
		return 0, errors.Wrap(err, "prune")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "prune")
	}

	tlog.V("cache").Printw("prune", "before", t, "removed", n)

	return n, nil
}
