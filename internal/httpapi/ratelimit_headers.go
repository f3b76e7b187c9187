package httpapi

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"ruleoracle/internal/ratelimit"
)

const (
	minuteWindow = time.Minute
	hourWindow   = time.Hour
)

// writeRateLimitHeaders sets the documented X-RateLimit-* headers, plus
// Retry-After when the request was rejected.
func writeRateLimitHeaders(c *gin.Context, r ratelimit.Result) {
	c.Header("X-RateLimit-Limit", strconv.Itoa(r.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(r.Remaining))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(r.ResetAt.Unix(), 10))
	if !r.Allowed {
		retryAfter := int(time.Until(r.ResetAt).Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		c.Header("Retry-After", strconv.Itoa(retryAfter))
	}
}
