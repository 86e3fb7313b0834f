package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/hupe1980/taskmesh/logging"
)

// defaultPragmas enable WAL and wait on locks instead of failing fast.
const defaultPragmas = "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"

// timeLayout is fixed width so stored timestamps compare lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Options configures a Store.
type Options struct {
	Logger logging.Logger
	// Now overrides the clock used for timestamps.
	Now func() time.Time
	// MaxOpenConns caps the pool; zero keeps the database/sql default.
	MaxOpenConns int
}

// Store is a SQLite backed task.Store, session.Store and session.Directory.
type Store struct {
	db     *sql.DB
	logger logging.Logger
	now    func() time.Time
}

// Open opens (creating if needed) the database at path and applies pending
// migrations. Query parameters already present in path are kept; the default
// pragmas are appended only when path carries none.
func Open(ctx context.Context, path string, optFns ...func(o *Options)) (*Store, error) {
	opts := Options{
		Logger: logging.NoOpLogger{},
		Now:    func() time.Time { return time.Now().UTC() },
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	dsn := path
	if !strings.Contains(path, "?") {
		dsn = path + "?" + defaultPragmas
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open task db: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if err := migrate(ctx, db); err != nil {
		db.Close() //nolint:errcheck
		return nil, err
	}

	opts.Logger.Debug("store.sqlite.opened", "path", path)
	return &Store{db: db, logger: opts.Logger, now: opts.Now}, nil
}

// DB exposes the underlying handle (tests, diagnostics).
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

// parseTimeOrZero parses a stored timestamp, returning zero time on error.
func parseTimeOrZero(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339Nano, s)
	}
	return t
}

func parseTimePtr(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t := parseTimeOrZero(ns.String)
	return &t
}
