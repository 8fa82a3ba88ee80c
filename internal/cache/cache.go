package cache

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// schema is the single flat key-value table. Keys are namespaced
// strings (see keys.go), values are JSON documents.
const schema = `CREATE TABLE IF NOT EXISTS kv (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`

// Options configures the cache store.
type Options struct {
	// Path is the filesystem path to the SQLite database file. The
	// parent directory must exist. The file is created if it does not
	// exist.
	Path string

	// Logger receives operational messages. If nil, logs are
	// discarded.
	Logger *slog.Logger
}

// Store is the durable cache: a single embedded SQLite database
// holding file location records and catalog metadata under namespaced
// keys.
//
// All access is serialized through one process-wide mutex over a
// single connection. Every write commits before the call returns
// (synchronous=FULL), so a record stored here survives a crash
// immediately after Store returns.
type Store struct {
	mu     sync.Mutex
	conn   *sqlite.Conn
	logger *slog.Logger
	path   string
}

// Open opens (creating if necessary) the cache database at
// opts.Path. The caller must call Close when done.
func Open(opts Options) (*Store, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("cache: Path is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	conn, err := sqlite.OpenConn(opts.Path, sqlite.OpenReadWrite|sqlite.OpenCreate|sqlite.OpenWAL)
	if err != nil {
		return nil, fmt.Errorf("cache: opening %s: %w", opts.Path, err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		// Callers rely on a returned write having reached the disk.
		"PRAGMA synchronous=FULL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			conn.Close()
			return nil, fmt.Errorf("cache: %s: %w", pragma, err)
		}
	}

	if err := sqlitex.ExecuteTransient(conn, schema, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("cache: creating schema: %w", err)
	}

	logger.Info("cache opened", "path", opts.Path)
	return &Store{conn: conn, logger: logger, path: opts.Path}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("cache: closing %s: %w", s.path, err)
	}
	return nil
}

// put upserts one key. Callers hold s.mu.
func (s *Store) put(ctx context.Context, key, value string) error {
	defer s.conn.SetInterrupt(s.conn.SetInterrupt(ctx.Done()))

	err := sqlitex.Execute(s.conn,
		`INSERT INTO kv (key, value) VALUES (?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		&sqlitex.ExecOptions{Args: []any{key, value}})
	if err != nil {
		return fmt.Errorf("cache: store %s: %w", key, err)
	}
	return nil
}

// get reads one key, returning ("", false, nil) when absent. Callers
// hold s.mu.
func (s *Store) get(ctx context.Context, key string) (string, bool, error) {
	defer s.conn.SetInterrupt(s.conn.SetInterrupt(ctx.Done()))

	var value string
	found := false
	err := sqlitex.Execute(s.conn,
		`SELECT value FROM kv WHERE key = ?`,
		&sqlitex.ExecOptions{
			Args: []any{key},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				value = stmt.ColumnText(0)
				found = true
				return nil
			},
		})
	if err != nil {
		return "", false, fmt.Errorf("cache: lookup %s: %w", key, err)
	}
	return value, found, nil
}

// scanPrefix visits every key with the given prefix in key order.
// Callers hold s.mu.
func (s *Store) scanPrefix(ctx context.Context, prefix string, visit func(key, value string) error) error {
	defer s.conn.SetInterrupt(s.conn.SetInterrupt(ctx.Done()))

	// Keys are ASCII, so prefix+0xFF upper-bounds the prefix range.
	err := sqlitex.Execute(s.conn,
		`SELECT key, value FROM kv WHERE key >= ? AND key < ? ORDER BY key`,
		&sqlitex.ExecOptions{
			Args: []any{prefix, prefix + "\xff"},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				return visit(stmt.ColumnText(0), stmt.ColumnText(1))
			},
		})
	if err != nil {
		return fmt.Errorf("cache: scan %s: %w", prefix, err)
	}
	return nil
}

// exists reports whether a key is present. Callers hold s.mu.
func (s *Store) exists(ctx context.Context, key string) (bool, error) {
	_, found, err := s.get(ctx, key)
	return found, err
}
