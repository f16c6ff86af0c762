// ABOUTME: Request logging and per-caller rate limiting middleware
// ABOUTME: The status recorder passes Flush through so SSE responses still stream

package server

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/schmitech/orbit-chat/internal/auth"
	"github.com/schmitech/orbit-chat/internal/dedupe"
)

// statusRecorder captures the response status for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(p []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(p)
	r.bytes += n
	return n, err
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func loggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}

			next.ServeHTTP(rec, r)

			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}
			level := slog.LevelInfo
			if status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			logger.Log(r.Context(), level, "request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", rec.bytes,
				"duration", time.Since(start),
				"request_id", r.Header.Get(dedupe.HeaderRequestID),
			)
		})
	}
}

// limiterIdleTTL is how long an unused caller keeps its limiter.
const limiterIdleTTL = 10 * time.Minute

type callerLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter keeps one token bucket per caller.
type rateLimiter struct {
	rps   rate.Limit
	burst int
	now   func() time.Time

	mu        sync.Mutex
	callers   map[string]*callerLimiter
	lastSweep time.Time
}

func newRateLimiter(rps float64, burst int) *rateLimiter {
	return &rateLimiter{
		rps:     rate.Limit(rps),
		burst:   burst,
		now:     time.Now,
		callers: make(map[string]*callerLimiter),
	}
}

// reserve takes a token for caller. When none is available it returns false
// and how long the caller should wait.
func (l *rateLimiter) reserve(caller string) (bool, time.Duration) {
	now := l.now()

	l.mu.Lock()
	c, ok := l.callers[caller]
	if !ok {
		c = &callerLimiter{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.callers[caller] = c
	}
	c.lastSeen = now
	if now.Sub(l.lastSweep) > limiterIdleTTL {
		for k, v := range l.callers {
			if now.Sub(v.lastSeen) > limiterIdleTTL {
				delete(l.callers, k)
			}
		}
		l.lastSweep = now
	}
	l.mu.Unlock()

	if c.limiter.AllowN(now, 1) {
		return true, 0
	}
	// time until one token refills
	wait := time.Duration(float64(time.Second) / float64(l.rps))
	return false, wait
}

// callerKey identifies the caller by API key prefix, falling back to the
// remote IP for anonymous requests.
func callerKey(r *http.Request) string {
	if prefix := auth.KeyPrefixFromContext(r.Context()); prefix != "" {
		return "key:" + prefix
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

func rateLimitMiddleware(l *rateLimiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller := callerKey(r)
			ok, wait := l.reserve(caller)
			if !ok {
				logger.Warn("rate limit exceeded", "caller", caller, "path", r.URL.Path)
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
				sendError(w, http.StatusTooManyRequests, "Rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
