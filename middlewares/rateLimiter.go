package middlewares

import (
	"net/http"
	"strconv"
	"time"

	"kit-marketplace/logger"

	"github.com/redis/go-redis/v9"
)

const rateWindow = time.Minute

// RateLimitMiddleware allows maxRequests per minute per client IP and path,
// counted in Redis. Requests pass through when Redis is unavailable.
func RateLimitMiddleware(rdb *redis.Client, maxRequests int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			key := "rate:" + getIPAddress(r) + ":" + r.URL.Path

			// EXPIRE NX on every request re-arms a window whose expiry was lost
			// without extending a live one.
			var incr *redis.IntCmd
			var ttlCmd *redis.DurationCmd
			_, err := rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				incr = pipe.Incr(ctx, key)
				pipe.ExpireNX(ctx, key, rateWindow)
				ttlCmd = pipe.TTL(ctx, key)
				return nil
			})
			if err != nil {
				logger.Error.Printf("rate limiter unavailable: %v", err)
				next.ServeHTTP(w, r)
				return
			}
			count := incr.Val()

			remaining := maxRequests - count
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(maxRequests, 10))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

			reset := rateWindow
			if ttl := ttlCmd.Val(); ttl > 0 {
				reset = ttl
			}
			w.Header().Set("X-RateLimit-Reset", strconv.Itoa(int(reset.Seconds())))

			if count > maxRequests {
				http.Error(w, "Rate limit exceeded. Try again later.", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
