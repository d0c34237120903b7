package middleware

import (
    "bytes"
    "context"
    "crypto/sha1"
    "encoding/json"
    "fmt"
    "log"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/resource-booking/internal/booking"
    "github.com/iliyamo/resource-booking/internal/config"
)

// ResponseCache stores successful catalogue responses in Redis.  Cached
// availability goes stale as soon as a reservation changes, so the cache
// is also a booking.Observer and drops every entry on each transition.
type ResponseCache struct {
    cfg config.CacheConfig
    rdb *redis.Client
}

var _ booking.Observer = (*ResponseCache)(nil)

// NewResponseCache returns nil when caching is disabled or Redis is absent;
// a nil *ResponseCache is safe to use and does nothing.
func NewResponseCache(cfg config.CacheConfig, rdb *redis.Client) *ResponseCache {
    if !cfg.Enabled || rdb == nil {
        return nil
    }
    if cfg.TTL <= 0 {
        cfg.TTL = 15 * time.Second
    }
    return &ResponseCache{cfg: cfg, rdb: rdb}
}

type cachedResponse struct {
    Status int         `json:"s"`
    Header http.Header `json:"h"`
    Body   []byte      `json:"b"`
}

// bodyRecorder tees the response body while passing it through.
type bodyRecorder struct {
    http.ResponseWriter
    status    int
    buf       bytes.Buffer
    limit     int
    truncated bool
}

func (w *bodyRecorder) WriteHeader(code int) {
    w.status = code
    w.ResponseWriter.WriteHeader(code)
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
    if w.limit > 0 && w.buf.Len()+len(b) > w.limit {
        w.truncated = true
    } else {
        w.buf.Write(b)
    }
    return w.ResponseWriter.Write(b)
}

func (rc *ResponseCache) key(c echo.Context) string {
    r := c.Request()
    var parts []string
    switch strings.ToLower(rc.cfg.KeyStrategy) {
    case "route":
        parts = []string{"route", c.Path()}
    case "method_route":
        parts = []string{"method", r.Method, "route", c.Path()}
    case "method_route_query":
        parts = []string{"method", r.Method, "route", c.Path(), "q", r.URL.RawQuery}
    default:
        parts = []string{"route", c.Path(), "q", r.URL.RawQuery}
    }
    // Path parameters are part of the key; c.Path() is the route pattern.
    parts = append(parts, "p", strings.Join(c.ParamValues(), ","))
    sum := sha1.Sum([]byte(strings.Join(parts, ":")))
    return fmt.Sprintf("%s:%x", rc.cfg.Prefix, sum[:])
}

// Middleware serves hits from Redis and stores 200 responses on a miss.
// Non-cacheable methods pass through untouched.
func (rc *ResponseCache) Middleware() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        if rc == nil {
            return next
        }
        return func(c echo.Context) error {
            if !rc.cfg.Methods[strings.ToUpper(c.Request().Method)] {
                return next(c)
            }
            ctx := c.Request().Context()
            key := rc.key(c)

            if raw, err := rc.rdb.Get(ctx, key).Bytes(); err == nil {
                var cr cachedResponse
                if json.Unmarshal(raw, &cr) == nil {
                    h := c.Response().Header()
                    for k, vals := range cr.Header {
                        if strings.EqualFold(k, "Content-Length") {
                            continue
                        }
                        h[k] = append([]string(nil), vals...)
                    }
                    h.Set("X-Cache", "HIT")
                    c.Response().WriteHeader(cr.Status)
                    _, err := c.Response().Write(cr.Body)
                    return err
                }
            }

            rec := &bodyRecorder{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: rc.cfg.MaxBodyBytes}
            c.Response().Writer = rec
            c.Response().Header().Set("X-Cache", "MISS")
            if err := next(c); err != nil {
                return err
            }
            if rec.status != http.StatusOK || rec.truncated {
                return nil
            }
            payload, err := json.Marshal(cachedResponse{Status: rec.status, Header: c.Response().Header().Clone(), Body: rec.buf.Bytes()})
            if err == nil {
                _ = rc.rdb.Set(context.Background(), key, payload, rc.cfg.TTL).Err()
            }
            return nil
        }
    }
}

// Purge deletes every entry under the cache prefix.
func (rc *ResponseCache) Purge(ctx context.Context) error {
    if rc == nil {
        return nil
    }
    iter := rc.rdb.Scan(ctx, 0, rc.cfg.Prefix+":*", 200).Iterator()
    var keys []string
    for iter.Next(ctx) {
        keys = append(keys, iter.Val())
    }
    if err := iter.Err(); err != nil {
        return err
    }
    if len(keys) == 0 {
        return nil
    }
    return rc.rdb.Del(ctx, keys...).Err()
}

// ReservationChanged drops cached availability after any transition.
func (rc *ResponseCache) ReservationChanged(ctx context.Context, ev booking.Event) {
    if err := rc.Purge(ctx); err != nil {
        log.Printf("cache: purge after reservation %d failed: %v", ev.ReservationID, err)
    }
}

// PurgeOnWrite runs after mutating admin routes so catalogue edits show up
// immediately.
func (rc *ResponseCache) PurgeOnWrite() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        if rc == nil {
            return next
        }
        return func(c echo.Context) error {
            err := next(c)
            if c.Request().Method != http.MethodGet && c.Response().Status < 400 {
                if perr := rc.Purge(context.Background()); perr != nil {
                    log.Printf("cache: purge after %s %s failed: %v", c.Request().Method, c.Path(), perr)
                }
            }
            return err
        }
    }
}
