// Package logging wraps github.com/rs/zerolog behind a small leveled
// surface (Info/Warn/Err/Audit): a package-level logger configured
// with RFC3339 timestamps and a caller field, installed as the context
// default at process start. Domain failures — the typed validator
// responses — are never logged through this package; programming
// failures always are, at Err level.
package logging

import (
	"context"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the leveled logging surface every handler and command in
// this module uses.
type Logger struct {
	z zerolog.Logger
}

var defaultLogger = New("info", os.Stdout)

// New builds a Logger at the given level, writing to w. An
// unrecognized level falls back to info.
func New(level string, w io.Writer) *Logger {
	if w == nil {
		w = os.Stdout
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339
	z := zerolog.New(w).Level(lvl).With().Timestamp().Caller().Logger()
	return &Logger{z: z}
}

// Set installs l as the process-wide default logger and the
// zerolog default context logger.
func Set(l *Logger) {
	defaultLogger = l
	zerolog.DefaultContextLogger = &l.z
}

// Get returns the process-wide default logger.
func Get() *Logger {
	return defaultLogger
}

// FromContext returns the logger attached to ctx, or the process-wide
// default if none was attached.
func FromContext(ctx context.Context) *Logger {
	z := zerolog.Ctx(ctx)
	if z.GetLevel() == zerolog.Disabled {
		return Get()
	}
	return &Logger{z: *z}
}

// Info logs an informational message.
func (l *Logger) Info(msg string) {
	l.z.Info().Msg(msg)
}

// Warn logs a warning.
func (l *Logger) Warn(msg string) {
	l.z.Warn().Msg(msg)
}

// Err logs a programming failure: always at error level, always
// including the error value.
func (l *Logger) Err(err error, msg string) {
	l.z.Error().Err(err).Msg(msg)
}

// Audit logs an access/audit-worthy event at info level with a
// dedicated field so it can be filtered independently of ordinary
// informational logs.
func (l *Logger) Audit(msg string) {
	l.z.Info().Bool("audit", true).Msg(msg)
}

// Debug logs a debug-level message.
func (l *Logger) Debug(msg string) {
	l.z.Debug().Msg(msg)
}

// WithField returns a derived Logger carrying an additional structured
// field, for request-scoped context (path, method, database name).
func (l *Logger) WithField(key, value string) *Logger {
	return &Logger{z: l.z.With().Str(key, value).Logger()}
}

// Middleware returns HTTP middleware emitting a debug-level access log
// line per request. Access logs are never error-level: a domain failure
// response is an expected output, not a programming failure.
func Middleware(l *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r)
			l.z.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Msg("request handled")
		})
	}
}
