package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/pawwatch/api/internal/logger"
	"github.com/pawwatch/api/internal/ratelimit"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubChecker struct {
	result *ratelimit.CheckResult
	err    error
}

func (s stubChecker) Check(context.Context, string, string) (*ratelimit.CheckResult, error) {
	return s.result, s.err
}

func quietLog() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newRouter(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw...)
	r.POST("/submit", func(c *gin.Context) { c.Status(http.StatusCreated) })
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return r
}

func TestRateLimit(t *testing.T) {
	t.Run("allowed", func(t *testing.T) {
		r := newRouter(RateLimit(stubChecker{result: &ratelimit.CheckResult{Allowed: true, Limit: 5, Remaining: 4}}, ratelimit.ActionSubmit, quietLog()))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/submit", nil))

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "4", w.Header().Get("X-RateLimit-Remaining"))
	})

	t.Run("limited", func(t *testing.T) {
		before := testutil.ToFloat64(reportSubmissionsRejectedTotal.WithLabelValues("rate_limited"))

		r := newRouter(RateLimit(stubChecker{result: &ratelimit.CheckResult{Allowed: false, Limit: 5}}, ratelimit.ActionSubmit, quietLog()))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/submit", nil))

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, before+1, testutil.ToFloat64(reportSubmissionsRejectedTotal.WithLabelValues("rate_limited")))
	})

	t.Run("storage failure fails open", func(t *testing.T) {
		r := newRouter(RateLimit(stubChecker{err: errors.New("redis down")}, ratelimit.ActionSubmit, quietLog()))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/submit", nil))

		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("nil checker", func(t *testing.T) {
		r := newRouter(RateLimit(nil, ratelimit.ActionSubmit, quietLog()))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/submit", nil))

		assert.Equal(t, http.StatusCreated, w.Code)
	})
}

func TestRequestLogger_SetsRequestID(t *testing.T) {
	l := logger.NewLogger("test", "error")
	r := newRouter(RequestLogger(l))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "abc")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc", w.Header().Get(RequestIDHeader))
}

func TestCORS(t *testing.T) {
	r := newRouter(CORS("http://localhost:3000"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/submit", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsMiddleware(t *testing.T) {
	r := newRouter(MetricsMiddleware())
	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/ping", "200"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, before+1, testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/ping", "200")))
}

func TestDomainRecorders(t *testing.T) {
	before := testutil.ToFloat64(reportsSubmittedTotal.WithLabelValues("sick"))
	RecordReportSubmitted("sick")
	assert.Equal(t, before+1, testutil.ToFloat64(reportsSubmittedTotal.WithLabelValues("sick")))

	beforeLoc := testutil.ToFloat64(reportValidationFailuresTotal.WithLabelValues("location"))
	RecordValidationFailure([]string{"location", "status"})
	assert.Equal(t, beforeLoc+1, testutil.ToFloat64(reportValidationFailuresTotal.WithLabelValues("location")))

	SetActiveSessions(3)
	assert.Equal(t, 3.0, testutil.ToFloat64(visitorSessionsActive))
}
