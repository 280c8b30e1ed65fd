package middlewares

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("ok"))
})

func TestRateLimitMiddleware(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer rdb.Close()

	h := RateLimitMiddleware(rdb, 2)(okHandler)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/history", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		resp := httptest.NewRecorder()
		h.ServeHTTP(resp, req)
		codes = append(codes, resp.Code)
		if i == 0 {
			assert.Equal(t, "2", resp.Header().Get("X-RateLimit-Limit"))
			assert.Equal(t, "1", resp.Header().Get("X-RateLimit-Remaining"))
		}
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// other clients have their own window
	req := httptest.NewRequest(http.MethodGet, "/history", nil)
	req.RemoteAddr = "10.0.0.2:5555"
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusOK, resp.Code)
}

// dropExpireOnce lets the first transaction that carries an EXPIRE commit
// without it, leaving the counter with no TTL.
type dropExpireOnce struct {
	dropped atomic.Bool
}

func (h *dropExpireOnce) DialHook(next redis.DialHook) redis.DialHook { return next }

func (h *dropExpireOnce) ProcessHook(next redis.ProcessHook) redis.ProcessHook { return next }

func (h *dropExpireOnce) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		kept := make([]redis.Cmder, 0, len(cmds))
		var expire redis.Cmder
		for _, cmd := range cmds {
			if cmd.Name() == "expire" && expire == nil && !h.dropped.Load() {
				expire = cmd
				continue
			}
			kept = append(kept, cmd)
		}
		if expire == nil {
			return next(ctx, cmds)
		}
		h.dropped.Store(true)
		if err := next(ctx, kept); err != nil {
			return err
		}
		err := errors.New("expire lost")
		expire.SetErr(err)
		return err
	}
}

func TestRateLimitWindowSurvivesLostExpire(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer rdb.Close()
	rdb.AddHook(&dropExpireOnce{})

	h := RateLimitMiddleware(rdb, 1)(okHandler)
	serve := func() int {
		req := httptest.NewRequest(http.MethodGet, "/items/kit-1", nil)
		req.RemoteAddr = "10.0.0.3:5555"
		resp := httptest.NewRecorder()
		h.ServeHTTP(resp, req)
		return resp.Code
	}

	// the counter is written but its expiry is lost; the request fails open
	assert.Equal(t, http.StatusOK, serve())
	key := "rate:10.0.0.3:/items/kit-1"
	assert.Equal(t, "1", mustGet(t, s, key))
	assert.Zero(t, s.TTL(key))

	assert.Equal(t, http.StatusTooManyRequests, serve())
	assert.Equal(t, time.Minute, s.TTL(key))

	s.FastForward(24 * time.Hour)
	assert.Equal(t, http.StatusOK, serve())
}

func TestRateLimitDoesNotExtendLiveWindow(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer rdb.Close()

	h := RateLimitMiddleware(rdb, 10)(okHandler)
	req := httptest.NewRequest(http.MethodGet, "/history", nil)
	req.RemoteAddr = "10.0.0.4:5555"
	h.ServeHTTP(httptest.NewRecorder(), req)

	s.FastForward(40 * time.Second)
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	assert.Equal(t, 20*time.Second, s.TTL("rate:10.0.0.4:/history"))
	assert.Equal(t, "20", resp.Header().Get("X-RateLimit-Reset"))
}

func mustGet(t *testing.T, s *miniredis.Miniredis, key string) string {
	t.Helper()
	v, err := s.Get(key)
	require.NoError(t, err)
	return v
}

func TestRateLimitFailsOpen(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	defer rdb.Close()

	resp := httptest.NewRecorder()
	RateLimitMiddleware(rdb, 1)(okHandler).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestResponseTimeHeader(t *testing.T) {
	resp := httptest.NewRecorder()
	ResponseTimeMiddleware(okHandler).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, resp.Header().Get("X-Response-Time"))
	assert.Equal(t, "ok", resp.Body.String())
}

func TestResponseTimeWriterFlushes(t *testing.T) {
	resp := httptest.NewRecorder()
	h := ResponseTimeMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, ok := w.(http.Flusher)
		require.True(t, ok)
		f.Flush()
	}))
	h.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, resp.Flushed)
}

func TestResponseTimeHeaderWithoutBody(t *testing.T) {
	resp := httptest.NewRecorder()
	ResponseTimeMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})).
		ServeHTTP(resp, httptest.NewRequest(http.MethodDelete, "/history", nil))
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.NotEmpty(t, resp.Header().Get("X-Response-Time"))
}

func TestResponseTimeKeepsFirstStatus(t *testing.T) {
	resp := httptest.NewRecorder()
	var tw *timingWriter
	ResponseTimeMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tw = w.(*timingWriter)
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("missing"))
	})).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/items/nope", nil))

	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, http.StatusNotFound, tw.status)
	assert.Same(t, http.ResponseWriter(resp), tw.Unwrap())
}

func TestGetIPAddressPrefersForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", getIPAddress(req))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	assert.Equal(t, "192.0.2.1", getIPAddress(req))
}
