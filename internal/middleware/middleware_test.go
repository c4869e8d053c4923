package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"quotaflow-go/internal/monitoring"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	return r
}

func serve(r *gin.Engine, method, path string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequestID(t *testing.T) {
	t.Run("Generate request ID when not provided", func(t *testing.T) {
		r := newRouter(RequestID())
		var seen string
		r.GET("/test", func(c *gin.Context) {
			seen = c.GetString(RequestIDKey)
			c.String(http.StatusOK, "OK")
		})

		w := serve(r, http.MethodGet, "/test", nil)
		rid := w.Header().Get(RequestIDHeader)
		require.NotEmpty(t, rid)
		assert.Equal(t, rid, seen)
		_, err := uuid.Parse(rid)
		assert.NoError(t, err)
	})

	t.Run("Propagate caller request ID", func(t *testing.T) {
		r := newRouter(RequestID())
		r.GET("/test", func(c *gin.Context) { c.Status(http.StatusNoContent) })
		w := serve(r, http.MethodGet, "/test", map[string]string{RequestIDHeader: "abc-123"})
		assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
	})

	t.Run("Replace oversized request ID", func(t *testing.T) {
		r := newRouter(RequestID())
		r.GET("/test", func(c *gin.Context) { c.Status(http.StatusNoContent) })
		w := serve(r, http.MethodGet, "/test", map[string]string{RequestIDHeader: strings.Repeat("x", 500)})
		assert.Len(t, w.Header().Get(RequestIDHeader), 36)
	})
}

func TestRequestLogger(t *testing.T) {
	r := newRouter(RequestID(), RequestLogger())
	r.GET("/ok", func(c *gin.Context) {
		c.Set("feature", "generate")
		c.String(http.StatusOK, "OK")
	})
	r.GET("/fail", func(c *gin.Context) { c.String(http.StatusBadGateway, "bad") })

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/ok", nil).Code)
	assert.Equal(t, http.StatusBadGateway, serve(r, http.MethodGet, "/fail", nil).Code)
}

func TestRateLimiter(t *testing.T) {
	t.Run("Block requests exceeding limit", func(t *testing.T) {
		r := newRouter(RateLimiter(1, 1))
		r.GET("/test", func(c *gin.Context) { c.String(http.StatusOK, "OK") })

		before := testutil.ToFloat64(monitoring.RateLimitRejectedTotal)
		assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/test", nil).Code)
		w := serve(r, http.MethodGet, "/test", nil)
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "1", w.Header().Get("Retry-After"))
		assert.Contains(t, w.Body.String(), "rate_limit_error")
		assert.Equal(t, before+1, testutil.ToFloat64(monitoring.RateLimitRejectedTotal))
	})

	t.Run("Separate limiters per client", func(t *testing.T) {
		r := newRouter(RateLimiter(1, 1))
		r.GET("/test", func(c *gin.Context) { c.String(http.StatusOK, "OK") })

		req1 := httptest.NewRequest(http.MethodGet, "/test", nil)
		req1.RemoteAddr = "10.0.0.1:1234"
		req2 := httptest.NewRequest(http.MethodGet, "/test", nil)
		req2.RemoteAddr = "10.0.0.2:1234"
		for _, req := range []*http.Request{req1, req2} {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, http.StatusOK, w.Code)
		}
	})

	t.Run("Defaults for non-positive settings", func(t *testing.T) {
		r := newRouter(RateLimiter(0, 0))
		r.GET("/test", func(c *gin.Context) { c.String(http.StatusOK, "OK") })
		for i := 0; i < 20; i++ {
			require.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/test", nil).Code)
		}
	})
}

func TestLimiterSetForgetsIdleKeys(t *testing.T) {
	set := newLimiterSet(1, 1, time.Minute)
	clock := time.Now()
	set.now = func() time.Time { return clock }

	assert.Zero(t, set.take("a"))
	assert.Zero(t, set.take("b"))
	require.Equal(t, 2, set.len())
	assert.Greater(t, set.take("a"), time.Duration(0))

	clock = clock.Add(3 * time.Minute)
	assert.Zero(t, set.take("c"))
	assert.Equal(t, 1, set.len())
}

func TestRateLimiterByHeader(t *testing.T) {
	r := newRouter(RateLimiter(1, 1, ByHeader("X-API-Key")))
	r.GET("/test", func(c *gin.Context) { c.String(http.StatusOK, "OK") })

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/test", map[string]string{"X-API-Key": "a"}).Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/test", map[string]string{"X-API-Key": "b"}).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(r, http.MethodGet, "/test", map[string]string{"X-API-Key": "a"}).Code)
}

func TestRecovery(t *testing.T) {
	t.Run("Recover from panic", func(t *testing.T) {
		r := newRouter(Recovery())
		r.GET("/panic", func(c *gin.Context) { panic("test panic") })
		before := testutil.ToFloat64(monitoring.PanicsRecoveredTotal.WithLabelValues("http"))
		w := serve(r, http.MethodGet, "/panic", nil)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "panic_recovered")
		assert.Equal(t, before+1, testutil.ToFloat64(monitoring.PanicsRecoveredTotal.WithLabelValues("http")))
	})

	t.Run("Custom recovery writer", func(t *testing.T) {
		var got any
		r := newRouter(RecoveryWithWriter(func(c *gin.Context, err any) { got = err }))
		r.GET("/panic", func(c *gin.Context) { panic("boom") })
		serve(r, http.MethodGet, "/panic", nil)
		assert.Equal(t, "boom", got)
	})
}

func TestSafeGoRecovers(t *testing.T) {
	done := make(chan struct{})
	SafeGo("test", func() {
		defer close(done)
		panic("goroutine panic")
	})
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("goroutine did not run")
	}
}

func TestMetricsMiddleware(t *testing.T) {
	r := newRouter(Metrics())
	r.GET("/v1/pool", func(c *gin.Context) { c.Status(http.StatusOK) })

	counter := monitoring.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/v1/pool", "2xx")
	before := testutil.ToFloat64(counter)
	serve(r, http.MethodGet, "/v1/pool", nil)
	assert.Equal(t, before+1, testutil.ToFloat64(counter))

	unmatched := monitoring.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "unmatched", "4xx")
	before = testutil.ToFloat64(unmatched)
	serve(r, http.MethodGet, "/nope", nil)
	assert.Equal(t, before+1, testutil.ToFloat64(unmatched))
}

func TestMetricsHandlerExposesQuotaflowMetrics(t *testing.T) {
	monitoring.CredentialRotationsTotal.Add(0)
	r := newRouter()
	r.GET("/metrics", MetricsHandler())
	w := serve(r, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "# HELP")
	assert.Contains(t, body, "quotaflow_credential_rotations_total")
}
