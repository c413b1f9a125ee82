package cache

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "reviewpulse:resp:"

// CachedPrefixes are the route prefixes whose responses depend only on the
// dataset and the analytics policy. Service endpoints, the dataset summary and
// alerts change between reloads and are never cached.
var CachedPrefixes = []string{"/api/v1/companies/", "/api/v1/stores/"}

// Cacheable reports whether path falls under CachedPrefixes.
func Cacheable(path string) bool {
	for _, p := range CachedPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// Backend is the key/value store behind the cache.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Ping(ctx context.Context) error
}

// RedisBackend stores entries in Redis.
type RedisBackend struct {
	client *redis.Client
}

// NewRedis connects lazily to addr.
func NewRedis(addr, password string) *RedisBackend {
	return &RedisBackend{client: redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
	})}
}

func (r *RedisBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (r *RedisBackend) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	return r.client.Set(ctx, key, val, ttl).Err()
}

func (r *RedisBackend) Ping(ctx context.Context) error { return r.client.Ping(ctx).Err() }

// Close releases the connection pool.
func (r *RedisBackend) Close() error { return r.client.Close() }

// Cache is a response cache. A nil *Cache is valid and caches nothing.
type Cache struct {
	backend Backend
	ttl     time.Duration
	lookups *prometheus.CounterVec
}

// New wraps backend. ttl bounds how long an entry outlives its dataset.
func New(backend Backend, ttl time.Duration) *Cache {
	return &Cache{
		backend: backend,
		ttl:     ttl,
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reviewpulse_response_cache_lookups_total",
			Help: "Response cache lookups by result (hit, miss, error).",
		}, []string{"result"}),
	}
}

// Register adds the cache collectors to reg.
func (c *Cache) Register(reg prometheus.Registerer) error {
	if c == nil {
		return nil
	}
	return reg.Register(c.lookups)
}

// Ping checks the backend. A nil cache is always healthy.
func (c *Cache) Ping(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.backend.Ping(ctx)
}

// Key builds the cache key for a request served from dataset version.
func Key(version string, r *http.Request) string {
	return keyPrefix + version + ":" + r.URL.Path + "?" + r.URL.RawQuery
}

// Middleware serves cached GET responses of Cacheable paths and stores
// successful ones. version identifies the dataset and policy currently served;
// an empty version bypasses the cache.
func (c *Cache) Middleware(version func() string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if c == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet || !Cacheable(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			v := version()
			if v == "" {
				next.ServeHTTP(w, r)
				return
			}
			key := Key(v, r)

			body, ok, err := c.backend.Get(r.Context(), key)
			switch {
			case err != nil:
				c.lookups.WithLabelValues("error").Inc()
				slog.Warn("cache: get failed, serving uncached", "key", key, "err", err)
			case ok:
				c.lookups.WithLabelValues("hit").Inc()
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("X-Cache", "HIT")
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write(body)
				return
			default:
				c.lookups.WithLabelValues("miss").Inc()
			}

			rec := &recorder{ResponseWriter: w, status: http.StatusOK}
			w.Header().Set("X-Cache", "MISS")
			next.ServeHTTP(rec, r)
			if rec.status != http.StatusOK {
				return
			}
			if err := c.backend.Set(r.Context(), key, rec.buf.Bytes(), c.ttl); err != nil {
				c.lookups.WithLabelValues("error").Inc()
				slog.Warn("cache: set failed", "key", key, "err", err)
			}
		})
	}
}

// recorder tees the response body so it can be stored after the handler returns.
type recorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	buf         bytes.Buffer
}

func (r *recorder) WriteHeader(code int) {
	if r.wroteHeader {
		return
	}
	r.status = code
	r.wroteHeader = true
	r.ResponseWriter.WriteHeader(code)
}

func (r *recorder) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	r.buf.Write(b)
	return r.ResponseWriter.Write(b)
}
