package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pawwatch/api/internal/ratelimit"
)

// RateChecker is satisfied by *ratelimit.Limiter.
type RateChecker interface {
	Check(ctx context.Context, clientID, action string) (*ratelimit.CheckResult, error)
}

// RateLimit rejects a client that exceeded the action's window with 429. A
// nil checker or a storage failure lets the request through.
func RateLimit(checker RateChecker, action string, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if checker == nil {
			c.Next()
			return
		}

		result, err := checker.Check(c.Request.Context(), c.ClientIP(), action)
		if err != nil {
			log.WithError(err).WithField("action", action).Warn("rate limit check failed, allowing request")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(result.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt, 10))

		if !result.Allowed {
			RecordSubmissionRejected("rate_limited")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many submissions, please wait before reporting again"})
			return
		}
		c.Next()
	}
}
