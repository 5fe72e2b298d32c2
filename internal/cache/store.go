// Package cache provides a persistent, file-backed TTL cache for external
// identifier lookups, with single-flight coalescing of concurrent misses for
// the same key.
package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	_ "github.com/mattn/go-sqlite3" // embedded SQLite driver
	"golang.org/x/sync/singleflight"
)

const (
	sqliteDriver = "sqlite3"
	ctxTimeout   = 5 * time.Second
)

// Entry is a single resolved (organism, identifier) lookup result.
type Entry struct {
	Valid         bool
	CanonicalName string
	Provider      string
	StoredAt      time.Time
	ExpiresAt     time.Time
}

// Stats summarizes cache activity across its lifetime.
type Stats struct {
	Hits           int64
	Misses         int64
	Writes         int64
	Evictions      int64
	ByteSize       int64
	ByProvider     map[string]int64
}

// Config describes how to open a Store.
type Config struct {
	Path string
	TTL  time.Duration
}

// Store is a SQLite-backed, single-flight-coalesced TTL cache. The zero
// value is not usable; build one with Open.
type Store struct {
	db     *sql.DB
	path   string
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
}

// Open opens (and if necessary initializes) the SQLite-backed cache at
// cfg.Path. If the file exists but is unreadable or corrupted, it is moved
// aside and a fresh store is created in its place — the cache is a
// best-effort performance layer, never a source of truth, so data loss on
// corruption is an acceptable trade for availability.
func Open(cfg Config) (*Store, error) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{}))

	db, err := sql.Open(sqliteDriver, cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("cache: opening store %q: %w", cfg.Path, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), ctxTimeout)
	defer cancel()

	// Ping alone does not read the file; querying sqlite_master makes SQLite
	// parse the database header, so a corrupted file fails here.
	var tableCount int
	if err := db.QueryRowContext(ctx, `SELECT count(*) FROM sqlite_master`).Scan(&tableCount); err != nil {
		_ = db.Close()

		if quarantineErr := quarantineCorruptStore(cfg.Path); quarantineErr != nil {
			return nil, fmt.Errorf("cache: store %q unreadable and could not be quarantined: %w", cfg.Path, quarantineErr)
		}

		logger.Warn("cache store was corrupted; re-created", slog.String("path", cfg.Path))

		db, err = sql.Open(sqliteDriver, cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("cache: re-opening store %q after quarantine: %w", cfg.Path, err)
		}

		if err := db.PingContext(ctx); err != nil {
			return nil, fmt.Errorf("cache: store %q still unreadable after re-create: %w", cfg.Path, err)
		}
	}

	if _, err := db.ExecContext(ctx, schemaDDL); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("cache: initializing schema: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}

	return &Store{db: db, path: cfg.Path, ttl: ttl, logger: logger}, nil
}

const defaultTTL = 7 * 24 * time.Hour

const schemaDDL = `
CREATE TABLE IF NOT EXISTS lookup_cache (
	organism       TEXT NOT NULL,
	identifier     TEXT NOT NULL,
	valid          INTEGER NOT NULL,
	canonical_name TEXT,
	provider       TEXT NOT NULL,
	stored_at      INTEGER NOT NULL,
	expires_at     INTEGER NOT NULL,
	PRIMARY KEY (organism, identifier)
);
CREATE TABLE IF NOT EXISTS cache_stats (
	id        INTEGER PRIMARY KEY CHECK (id = 1),
	hits      INTEGER NOT NULL DEFAULT 0,
	misses    INTEGER NOT NULL DEFAULT 0,
	writes    INTEGER NOT NULL DEFAULT 0,
	evictions INTEGER NOT NULL DEFAULT 0
);
INSERT OR IGNORE INTO cache_stats (id, hits, misses, writes, evictions) VALUES (1, 0, 0, 0, 0);
`

func quarantineCorruptStore(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	return os.Rename(path, path+fmt.Sprintf(".corrupt.%d", time.Now().UnixNano()))
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get looks up (organism, identifier), returning the cached entry only if
// it exists and has not expired.
func (s *Store) Get(ctx context.Context, organism, identifier string) (Entry, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT valid, canonical_name, provider, stored_at, expires_at
		 FROM lookup_cache WHERE organism = ? AND identifier = ?`,
		organism, identifier,
	)

	var (
		entry         Entry
		canonicalName sql.NullString
		storedAtUnix  int64
		expiresAtUnix int64
	)

	err := row.Scan(&entry.Valid, &canonicalName, &entry.Provider, &storedAtUnix, &expiresAtUnix)
	if errors.Is(err, sql.ErrNoRows) {
		_, _ = s.db.ExecContext(ctx, `UPDATE cache_stats SET misses = misses + 1 WHERE id = 1`)

		return Entry{}, false, nil
	}

	if err != nil {
		return Entry{}, false, fmt.Errorf("cache: reading entry: %w", err)
	}

	entry.CanonicalName = canonicalName.String
	entry.StoredAt = time.Unix(storedAtUnix, 0).UTC()
	entry.ExpiresAt = time.Unix(expiresAtUnix, 0).UTC()

	if time.Now().After(entry.ExpiresAt) {
		_, _ = s.db.ExecContext(ctx, `UPDATE cache_stats SET misses = misses + 1 WHERE id = 1`)

		return Entry{}, false, nil
	}

	_, _ = s.db.ExecContext(ctx, `UPDATE cache_stats SET hits = hits + 1 WHERE id = 1`)

	return entry, true, nil
}

// Put writes an entry keyed by (organism, identifier), overwriting any
// existing value for that key.
func (s *Store) Put(ctx context.Context, organism, identifier string, entry Entry) error {
	if entry.ExpiresAt.IsZero() {
		entry.ExpiresAt = time.Now().Add(s.ttl)
	}

	if entry.StoredAt.IsZero() {
		entry.StoredAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO lookup_cache (organism, identifier, valid, canonical_name, provider, stored_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (organism, identifier) DO UPDATE SET
			valid = excluded.valid, canonical_name = excluded.canonical_name,
			provider = excluded.provider, stored_at = excluded.stored_at, expires_at = excluded.expires_at`,
		organism, identifier, entry.Valid, entry.CanonicalName, entry.Provider,
		entry.StoredAt.Unix(), entry.ExpiresAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("cache: writing entry: %w", err)
	}

	_, _ = s.db.ExecContext(ctx, `UPDATE cache_stats SET writes = writes + 1 WHERE id = 1`)

	return nil
}

// ClearExpired deletes every entry whose expires_at has passed. Idempotent:
// calling it with nothing expired is a no-op that returns 0.
func (s *Store) ClearExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM lookup_cache WHERE expires_at < ?`, time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("cache: clearing expired entries: %w", err)
	}

	n, _ := res.RowsAffected()

	if n > 0 {
		_, _ = s.db.ExecContext(ctx, `UPDATE cache_stats SET evictions = evictions + ? WHERE id = 1`, n)
	}

	return n, nil
}

// Purge removes every entry unconditionally.
func (s *Store) Purge(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM lookup_cache`)
	if err != nil {
		return fmt.Errorf("cache: purging store: %w", err)
	}

	return nil
}

// Warm pre-populates the cache by resolving each pair through resolve and
// writing the result, skipping pairs that already have a live entry.
func (s *Store) Warm(ctx context.Context, pairs [][2]string, resolve func(ctx context.Context, organism, identifier string) (Entry, error)) error {
	for _, pair := range pairs {
		organism, identifier := pair[0], pair[1]

		if _, hit, err := s.Get(ctx, organism, identifier); err == nil && hit {
			continue
		}

		entry, err := resolve(ctx, organism, identifier)
		if err != nil {
			return fmt.Errorf("cache: warming %s|%s: %w", organism, identifier, err)
		}

		if err := s.Put(ctx, organism, identifier, entry); err != nil {
			return err
		}
	}

	return nil
}

// Stats reports cumulative cache activity since the store was created.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var stats Stats

	row := s.db.QueryRowContext(ctx, `SELECT hits, misses, writes, evictions FROM cache_stats WHERE id = 1`)
	if err := row.Scan(&stats.Hits, &stats.Misses, &stats.Writes, &stats.Evictions); err != nil {
		return Stats{}, fmt.Errorf("cache: reading stats: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT provider, COUNT(*) FROM lookup_cache GROUP BY provider`)
	if err != nil {
		return Stats{}, fmt.Errorf("cache: reading per-provider counts: %w", err)
	}

	defer rows.Close()

	stats.ByProvider = make(map[string]int64)

	for rows.Next() {
		var (
			provider string
			count    int64
		)

		if err := rows.Scan(&provider, &count); err != nil {
			return Stats{}, fmt.Errorf("cache: scanning provider count: %w", err)
		}

		stats.ByProvider[provider] = count
	}

	if info, err := os.Stat(s.path); err == nil {
		stats.ByteSize = info.Size()
	}

	return stats, rows.Err()
}

// GetOrResolve looks up (organism, identifier) in the cache; on a miss it
// calls resolve, writes the result back (unless the caller marks it
// degraded via writeBack=false), and returns it. Concurrent calls for the
// same key within one process collapse onto a single resolve invocation.
func (s *Store) GetOrResolve(
	ctx context.Context, organism, identifier string,
	resolve func(ctx context.Context) (entry Entry, writeBack bool, err error),
) (Entry, bool, error) {
	if entry, hit, err := s.Get(ctx, organism, identifier); err != nil {
		return Entry{}, false, err
	} else if hit {
		return entry, true, nil
	}

	key := organism + "\x00" + identifier

	result, err, _ := s.group.Do(key, func() (any, error) {
		entry, writeBack, err := resolve(ctx)
		if err != nil {
			return Entry{}, err
		}

		if writeBack {
			if err := s.Put(ctx, organism, identifier, entry); err != nil {
				return Entry{}, err
			}
		}

		return entry, nil
	})
	if err != nil {
		return Entry{}, false, err
	}

	return result.(Entry), false, nil
}
