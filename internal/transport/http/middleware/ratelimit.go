package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ryanuber/go-glob"

	"pms/internal/requestctx"
	"pms/internal/transport/http/api"
)

// RateLimitKeyFunc names the bucket a request is counted against.
type RateLimitKeyFunc func(r *http.Request) string

// pruneAbove is the bucket count past which expired buckets are swept.
const pruneAbove = 4096

type rateBucket struct {
	count int
	reset time.Time
}

type fixedWindow struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	keyFn   RateLimitKeyFunc
	now     func() time.Time
	buckets map[string]*rateBucket
}

func newFixedWindow(limit int, window time.Duration, keyFn RateLimitKeyFunc) *fixedWindow {
	if keyFn == nil {
		keyFn = actorOrIPKey
	}
	return &fixedWindow{
		limit:   limit,
		window:  window,
		keyFn:   keyFn,
		now:     time.Now,
		buckets: map[string]*rateBucket{},
	}
}

// take counts one request against key and returns what is left of the
// window.
func (fw *fixedWindow) take(key string) (remaining int, resetIn time.Duration, ok bool) {
	now := fw.now()
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if len(fw.buckets) > pruneAbove {
		for k, b := range fw.buckets {
			if now.After(b.reset) {
				delete(fw.buckets, k)
			}
		}
	}
	bucket, found := fw.buckets[key]
	if !found || now.After(bucket.reset) {
		bucket = &rateBucket{reset: now.Add(fw.window)}
		fw.buckets[key] = bucket
	}
	bucket.count++
	return max(fw.limit-bucket.count, 0), bucket.reset.Sub(now), bucket.count <= fw.limit
}

// admit writes the quota headers and, past the limit, a 429.
func (fw *fixedWindow) admit(w http.ResponseWriter, r *http.Request) bool {
	if fw.limit <= 0 {
		return true
	}
	key := fw.keyFn(r)
	if key == "" {
		key = clientIPKey(r)
	}
	remaining, resetIn, ok := fw.take(key)
	resetSec := ceilSeconds(resetIn)

	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(fw.limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	h.Set("X-RateLimit-Reset", strconv.Itoa(resetSec))
	if ok {
		return true
	}
	h.Set("Retry-After", strconv.Itoa(max(resetSec, 1)))
	requestctx.Logger(r.Context()).Warn("rate limit exceeded",
		"key", key,
		"method", r.Method,
		"path", r.URL.Path,
		"limit", fw.limit,
	)
	api.Fail(w, http.StatusTooManyRequests, "rate_limited", "too many requests", GetRequestID(r.Context()))
	return false
}

func (fw *fixedWindow) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fw.admit(w, r) {
			next.ServeHTTP(w, r)
		}
	})
}

// RateLimit allows limit requests per key in each window. A nil keyFn keys
// by caller, then by client IP.
func RateLimit(limit int, window time.Duration, keyFn RateLimitKeyFunc) func(http.Handler) http.Handler {
	return newFixedWindow(limit, window, keyFn).middleware
}

type rateScope int

const (
	scopeNone rateScope = iota
	scopeLogin
	scopeActor
)

// sensitiveRoutes lists the throttled mutations. Paths are globs relative
// to /api/v1.
var sensitiveRoutes = []struct {
	method string
	path   string
	scope  rateScope
}{
	{http.MethodPost, "/auth/login", scopeLogin},
	{http.MethodPost, "/ipps/*/submit", scopeActor},
	{http.MethodPatch, "/ipps/*/verify", scopeActor},
	{http.MethodPatch, "/ipps/*/approval", scopeActor},
	{http.MethodPost, "/ipps/*/evidences", scopeActor},
	{http.MethodPatch, "/achievements/*/verification", scopeActor},
	{http.MethodPatch, "/monthly-approvals/*", scopeActor},
}

func routeScope(r *http.Request) rateScope {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1")
	for _, route := range sensitiveRoutes {
		if r.Method == route.method && glob.Glob(route.path, path) {
			return route.scope
		}
	}
	return scopeNone
}

// SensitiveMutationRateLimit throttles logins to a quarter of baseLimit,
// counted per IP and per account, and workflow transitions to half of it
// per caller. Other requests pass untouched.
func SensitiveMutationRateLimit(baseLimit int, window time.Duration) func(http.Handler) http.Handler {
	loginLimit := max(baseLimit/4, 1)
	loginByIP := newFixedWindow(loginLimit, window, clientIPKey)
	loginByNPK := newFixedWindow(loginLimit, window, LoginFieldOrIPKey("npk"))
	transitions := newFixedWindow(max(baseLimit/2, 1), window, actorOrIPKey)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch routeScope(r) {
			case scopeLogin:
				if !loginByIP.admit(w, r) || !loginByNPK.admit(w, r) {
					return
				}
			case scopeActor:
				if !transitions.admit(w, r) {
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// LoginFieldOrIPKey keys login attempts by the account named in the JSON
// body, falling back to the client IP.
func LoginFieldOrIPKey(field string) RateLimitKeyFunc {
	return func(r *http.Request) string {
		if value := peekJSONField(r, field); value != "" {
			return field + ":" + strings.ToLower(value)
		}
		return clientIPKey(r)
	}
}

func actorOrIPKey(r *http.Request) string {
	if user, ok := GetUser(r.Context()); ok && user.NPK != "" {
		return "user:" + user.NPK
	}
	return clientIPKey(r)
}

func clientIPKey(r *http.Request) string {
	if fwd, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ","); strings.TrimSpace(fwd) != "" {
		return strings.TrimSpace(fwd)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}

// peekJSONField reads a string field from a JSON body and restores the
// body for the handler.
func peekJSONField(r *http.Request, field string) string {
	if r.Body == nil || !strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
		return ""
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, 64*1024))
	r.Body = replayBody{Reader: io.MultiReader(bytes.NewReader(raw), r.Body), Closer: r.Body}
	if err != nil || len(raw) == 0 {
		return ""
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return ""
	}
	value, _ := payload[field].(string)
	return strings.TrimSpace(value)
}

type replayBody struct {
	io.Reader
	io.Closer
}
