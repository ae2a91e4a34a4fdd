package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeti47/framegrab/server/core/ccc/logging"
	"github.com/yeti47/framegrab/server/core/ccc/metrics"
	"github.com/yeti47/framegrab/server/core/stats"
)

// InFlightMiddleware counts requests and optionally limits concurrent extractions
type InFlightMiddleware struct {
	logger  logging.Logger
	counter *stats.InFlightCounter
	limiter stats.Limiter
}

// NewInFlightMiddleware creates the middleware. A nil limiter admits everything.
func NewInFlightMiddleware(logger logging.Logger, counter *stats.InFlightCounter, limiter stats.Limiter) *InFlightMiddleware {
	if logger == nil {
		logger = logging.NopLogger
	}
	if limiter == nil {
		limiter = stats.Unlimited
	}

	return &InFlightMiddleware{
		logger:  logger,
		counter: counter,
		limiter: limiter,
	}
}

// Track increments the in-flight counter for the duration of every request
func (m *InFlightMiddleware) Track() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := m.counter.Enter()
		defer token.Exit()

		m.logger.Debug("Request started", "path", c.FullPath(), "in_flight", m.counter.Snapshot())
		c.Next()
	}
}

// Limit rejects extraction requests with 429 while the limiter is exhausted
func (m *InFlightMiddleware) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.limiter.TryAcquire() {
			m.logger.Warn("Rejecting request, concurrency limit reached", "path", c.FullPath())
			metrics.RejectedRequests.Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many concurrent extractions, try again later"})
			return
		}
		defer m.limiter.Release()
		c.Next()
	}
}
