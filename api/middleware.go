package api

import (
	"math"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "github.com/memtensor/accounts/pkg/errors"
)

// loggingMiddleware emits one structured entry per request
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()

		s.logger.Info("HTTP Request", map[string]interface{}{
			"method":      c.Request.Method,
			"path":        path,
			"status_code": c.Writer.Status(),
			"latency":     time.Since(start).String(),
			"client_ip":   c.ClientIP(),
			"user_agent":  c.Request.UserAgent(),
			"request_id":  c.GetString("request_id"),
		})
	}
}

// requestIDMiddleware adds a unique request ID to each request
func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// metricsMiddleware collects request metrics
func (s *Server) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		labels := map[string]string{
			"method": c.Request.Method,
			"route":  route,
			"status": strconv.Itoa(c.Writer.Status()),
		}
		s.metrics.Counter("http_requests_total", 1, labels)
		s.metrics.Timer("http_request_duration_ms", float64(time.Since(start).Milliseconds()), map[string]string{
			"route": route,
		})
	}
}

// rateLimitMiddleware limits requests per client IP within scope.
// Limiter failures are logged and the request is let through.
func (s *Server) rateLimitMiddleware(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := scope + ":" + c.ClientIP()
		allowed, retryAfter, err := s.limiter.Allow(c.Request.Context(), key)
		if err != nil {
			s.logger.Warn("Rate limiter unavailable", map[string]interface{}{
				"scope": scope,
				"error": err.Error(),
			})
			c.Next()
			return
		}

		if !allowed {
			seconds := int(math.Ceil(retryAfter.Seconds()))
			if seconds < 1 {
				seconds = 1
			}
			c.Header("Retry-After", strconv.Itoa(seconds))
			s.respondError(c, apperrors.NewRateLimitedError(), managementFailure)
			c.Abort()
			return
		}

		c.Next()
	}
}
