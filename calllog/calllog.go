// Package calllog looks up entries of the device call log so recordings can
// be dated and attributed to a phone number.
//
// The call log is read-only. SQLiteLog reads an exported call-log database
// with a calls(number, date, duration) table where date is in Unix
// milliseconds and duration in seconds.
package calllog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/poiesic/vocald/core"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrInvalidMaxAttempts is returned when a retry is requested with no attempts.
	ErrInvalidMaxAttempts = errors.New("max attempts must be greater than zero")

	// ErrPathRequired is returned when opening a call log without a path.
	ErrPathRequired = errors.New("call log path required")
)

const (
	defaultMaxAttempts = 4
	defaultBaseDelay   = 50 * time.Millisecond
)

// Log finds the call closest to a moment in time.
type Log interface {
	// Lookup returns the call whose start is nearest to at and no further
	// than tolerance away, or nil when there is none.
	Lookup(ctx context.Context, at time.Time, tolerance time.Duration) (*core.CallEntry, error)
}

// Noop is a Log with no entries.
type Noop struct{}

// Lookup always returns nil.
func (Noop) Lookup(ctx context.Context, at time.Time, tolerance time.Duration) (*core.CallEntry, error) {
	return nil, nil
}

// SQLiteLog reads calls from an SQLite database.
type SQLiteLog struct {
	db          *sql.DB
	logger      *slog.Logger
	maxAttempts int
	baseDelay   time.Duration
}

var _ Log = (*SQLiteLog)(nil)

// Option configures a SQLiteLog.
type Option func(*SQLiteLog) error

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *SQLiteLog) error {
		if logger != nil {
			l.logger = logger
		}
		return nil
	}
}

// WithRetry sets how often a busy database is retried and the initial delay.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(l *SQLiteLog) error {
		if maxAttempts <= 0 {
			return ErrInvalidMaxAttempts
		}
		l.maxAttempts = maxAttempts
		l.baseDelay = baseDelay
		return nil
	}
}

// Open opens the call-log database at path in read-only mode.
func Open(path string, opts ...Option) (*SQLiteLog, error) {
	if path == "" {
		return nil, ErrPathRequired
	}

	l := &SQLiteLog{
		logger:      slog.Default(),
		maxAttempts: defaultMaxAttempts,
		baseDelay:   defaultBaseDelay,
	}
	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, err
		}
	}
	l.logger = l.logger.With("component", "calllog")

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open call log: %w", err)
	}
	db, err := sql.Open("sqlite", dsn(abs))
	if err != nil {
		return nil, fmt.Errorf("failed to open call log: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open call log: %w", err)
	}
	l.db = db
	return l, nil
}

// dsn builds a read-only URI for an absolute path. The busy timeout is a
// DSN pragma so every pooled connection gets it.
func dsn(path string) string {
	p := filepath.ToSlash(path)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p // windows volume
	}
	u := url.URL{
		Scheme:   "file",
		Path:     p,
		RawQuery: "mode=ro&_pragma=busy_timeout(1000)",
	}
	return u.String()
}

// Close closes the database.
func (l *SQLiteLog) Close() error {
	return l.db.Close()
}

const lookupQuery = `SELECT number, date, duration FROM calls
WHERE date BETWEEN ? AND ?
ORDER BY ABS(date - ?), date
LIMIT 1`

// Lookup returns the call nearest to at within tolerance.
func (l *SQLiteLog) Lookup(ctx context.Context, at time.Time, tolerance time.Duration) (*core.CallEntry, error) {
	if tolerance < 0 {
		tolerance = -tolerance
	}
	atMs := at.UnixMilli()
	tolMs := tolerance.Milliseconds()

	var (
		entry *core.CallEntry
		found bool
	)
	err := RetryWithBackoff(ctx, func() error {
		var (
			number    sql.NullString
			dateMs    int64
			durationS sql.NullInt64
		)
		row := l.db.QueryRowContext(ctx, lookupQuery, atMs-tolMs, atMs+tolMs, atMs)
		switch err := row.Scan(&number, &dateMs, &durationS); {
		case errors.Is(err, sql.ErrNoRows):
			found = false
			return nil
		case err != nil:
			return err
		}
		found = true
		entry = &core.CallEntry{
			PhoneNumber: number.String,
			Start:       time.UnixMilli(dateMs).UTC(),
			Duration:    time.Duration(durationS.Int64) * time.Second,
		}
		return nil
	}, isBusy, l.maxAttempts, l.baseDelay)
	if err != nil {
		return nil, fmt.Errorf("call log lookup: %w", err)
	}
	if !found {
		return nil, nil
	}
	l.logger.Debug("matched call", "at", at, "start", entry.Start, "number", entry.PhoneNumber)
	return entry, nil
}

// isBusy reports whether err is a transient SQLITE_BUSY or SQLITE_LOCKED.
func isBusy(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return true
	}
	return false
}
