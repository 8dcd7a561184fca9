// Package logger provides the storefront logging setup built on top of Uber's Zap logging library.
// It includes a Logger wrapper, a field helper that masks bearer credentials, and HTTP middleware
// that logs requests served by the storefront gateway and the mock API.
package logger

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/middleware"
	"go.uber.org/zap"
)

const credentialPrefixLen = 8

// Logger wraps the zap.Logger to provide additional logging functionality.
type Logger struct {
	*zap.Logger
}

// CreateLogger creates and configures a Logger with the specified log level.
// If the level cannot be parsed, a production logger at info level is returned together with the error.
func CreateLogger(level string) (*Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return fallback(), err
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	cfg.DisableStacktrace = true

	zl, err := cfg.Build()
	if err != nil {
		return fallback(), err
	}
	return &Logger{Logger: zl}, nil
}

func fallback() *Logger {
	zl, err := zap.NewProduction()
	if err != nil {
		log.Println(err)
		return Nop()
	}
	return &Logger{Logger: zl}
}

// Nop returns a Logger that discards everything. Used by tests.
func Nop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// Named returns a child logger tagged with a component name.
func (l *Logger) Named(name string) *Logger {
	return &Logger{Logger: l.Logger.Named(name)}
}

// With returns a child logger that adds fields to every entry.
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{Logger: l.Logger.With(fields...)}
}

// Credential renders a bearer credential as its first characters and length, never the full value.
func Credential(key, token string) zap.Field {
	token = strings.TrimSpace(token)
	if token == "" {
		return zap.String(key, "")
	}
	if len(token) <= credentialPrefixLen {
		return zap.String(key, strings.Repeat("*", len(token)))
	}
	return zap.Dict(key,
		zap.String("prefix", token[:credentialPrefixLen]+"..."),
		zap.Int("length", len(token)))
}

// WithLogging returns HTTP middleware that logs every served request:
// method, path, status, duration, response size and the caller's request id.
func (l *Logger) WithLogging() func(h http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			started := time.Now()
			defer func() {
				l.Info("served",
					zap.String("method", r.Method),
					zap.String("uri", r.URL.Path),
					zap.String("request_id", r.Header.Get("X-Request-ID")),
					zap.Int("status", ww.Status()),
					zap.Duration("duration", time.Since(started)),
					zap.Int("size", ww.BytesWritten()))
			}()
			h.ServeHTTP(ww, r)
		}
		return http.HandlerFunc(fn)
	}
}
