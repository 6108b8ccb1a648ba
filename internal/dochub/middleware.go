package dochub

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kart-io/logger"

	"github.com/kart-io/dochub/internal/pkg/textutil"
)

// HeaderXRequestID is the header carrying the request ID.
const HeaderXRequestID = "X-Request-ID"

// RequestID returns a middleware that adds a unique request ID to each request.
// An incoming X-Request-ID header is preserved so callers can correlate logs.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderXRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(HeaderXRequestID, requestID)
		c.Set("request_id", requestID)
		c.Next()
	}
}

// AccessLog returns a middleware that logs HTTP requests with the
// structured logger. Health and metrics probes are skipped.
func AccessLog() gin.HandlerFunc {
	skip := map[string]struct{}{
		"/healthz": {},
		"/metrics": {},
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		logger.Infow("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
			"request_id", c.GetString("request_id"),
		)
	}
}

// CORS returns a middleware that handles cross-origin requests for the
// given origins. An empty list disables cross-origin access entirely.
func CORS(allowOrigins []string) gin.HandlerFunc {
	allowAll := textutil.ContainsString(allowOrigins, "*")

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" {
			if allowAll || textutil.ContainsString(allowOrigins, origin) {
				c.Header("Access-Control-Allow-Origin", origin)
				c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, HEAD, OPTIONS")
				c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Request-ID")
				c.Header("Access-Control-Max-Age", "86400")
			}
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
