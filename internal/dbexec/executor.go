// Package dbexec is the seam between the SQL backend and database/sql.
// The backend runs every statement through a QueryExecutor, which lets tests
// substitute sqlmock and lets the server add statement logging.
package dbexec

import (
	"context"
	"database/sql"
	"log/slog"
	"time"
)

// Rows is the subset of *sql.Rows the backend scans.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// QueryExecutor runs statements for the SQL backend.
type QueryExecutor interface {
	QueryContext(ctx context.Context, query string, args ...any) (Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// StandardExecutor runs statements directly against a pool.
type StandardExecutor struct {
	db *sql.DB
}

func NewStandardExecutor(db *sql.DB) *StandardExecutor {
	return &StandardExecutor{db: db}
}

func (e *StandardExecutor) QueryContext(ctx context.Context, query string, args ...any) (Rows, error) {
	if e.db == nil {
		return nil, sql.ErrConnDone
	}
	return e.db.QueryContext(ctx, query, args...)
}

func (e *StandardExecutor) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if e.db == nil {
		return nil, sql.ErrConnDone
	}
	return e.db.ExecContext(ctx, query, args...)
}

// LoggingExecutor logs each statement at debug level, and failures at warn
// level. Argument values are never logged.
type LoggingExecutor struct {
	next   QueryExecutor
	logger *slog.Logger
}

// WithStatementLogging wraps next. A nil logger returns next unchanged.
func WithStatementLogging(next QueryExecutor, logger *slog.Logger) QueryExecutor {
	if logger == nil {
		return next
	}
	return &LoggingExecutor{next: next, logger: logger}
}

func (e *LoggingExecutor) QueryContext(ctx context.Context, query string, args ...any) (Rows, error) {
	start := time.Now()
	rows, err := e.next.QueryContext(ctx, query, args...)
	e.log(ctx, "query", query, len(args), start, err)
	return rows, err
}

func (e *LoggingExecutor) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	result, err := e.next.ExecContext(ctx, query, args...)
	e.log(ctx, "exec", query, len(args), start, err)
	return result, err
}

func (e *LoggingExecutor) log(ctx context.Context, kind, query string, argCount int, start time.Time, err error) {
	attrs := []slog.Attr{
		slog.String("kind", kind),
		slog.String("statement", query),
		slog.Int("args", argCount),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
		e.logger.LogAttrs(ctx, slog.LevelWarn, "sql statement failed", attrs...)
		return
	}
	e.logger.LogAttrs(ctx, slog.LevelDebug, "sql statement", attrs...)
}
