// Package trace tags each request with an ID and logs its outcome.
package trace

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	applog "github.com/prathap-k00/expense-tracker/internal/log"
)

type contextKey struct{}

// HeaderRequestID is echoed on every response and honoured when a proxy supplies a UUID.
const HeaderRequestID = "X-Request-ID"

// SlowRequest is the duration above which a completed request is logged as slow.
const SlowRequest = time.Second

type Middleware struct {
	clientIP func(*http.Request) string

	requests     atomic.Int64
	clientErrors atomic.Int64
	serverErrors atomic.Int64
	slow         atomic.Int64
}

// Stats counts requests since start-up by outcome.
type Stats struct {
	Requests     int64
	ClientErrors int64
	ServerErrors int64
	Slow         int64
}

func NewMiddleware(clientIP func(*http.Request) string) *Middleware {
	return &Middleware{clientIP: clientIP}
}

func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.requests.Add(1)

		id := r.Header.Get(HeaderRequestID)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, id)
		ctx := WithRequestID(r.Context(), id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))
		elapsed := time.Since(start)

		level := slog.LevelInfo
		switch {
		case rec.status >= 500:
			level = slog.LevelError
			m.serverErrors.Add(1)
		case rec.status >= 400:
			level = slog.LevelWarn
			m.clientErrors.Add(1)
		}
		msg := "HTTP request completed"
		if elapsed > SlowRequest {
			m.slow.Add(1)
			msg = "Slow HTTP request"
			level = max(level, slog.LevelWarn)
		}

		attrs := []any{
			applog.FieldRequestID, id,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldStatusCode, rec.status,
			applog.FieldDuration, elapsed.Milliseconds(),
		}
		if m.clientIP != nil {
			attrs = append(attrs, applog.FieldClientIP, m.clientIP(r))
		}
		slog.Log(ctx, level, msg, attrs...)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status  int
	written bool
}

func (rec *statusRecorder) WriteHeader(code int) {
	if !rec.written {
		rec.status = code
		rec.written = true
	}
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	rec.written = true
	return rec.ResponseWriter.Write(b)
}

func (rec *statusRecorder) Unwrap() http.ResponseWriter {
	return rec.ResponseWriter
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// GetRequestID returns the request ID, or "" outside a traced request.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}

func (m *Middleware) Stats() Stats {
	return Stats{
		Requests:     m.requests.Load(),
		ClientErrors: m.clientErrors.Load(),
		ServerErrors: m.serverErrors.Load(),
		Slow:         m.slow.Load(),
	}
}
