package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/hxuan190/relay-swap/internal/common"
)

const maxTrackedClients = 10000

// RateLimiter is a per client IP token bucket. The least recently seen clients are forgotten first.
type RateLimiter struct {
	rate    rate.Limit
	burst   int
	clients *common.BoundedLRU[string, *rate.Limiter]
}

func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		rate:    rate.Limit(perSecond),
		burst:   burst,
		clients: common.NewBoundedLRU[string, *rate.Limiter](maxTrackedClients, nil),
	}
}

func (rl *RateLimiter) limiter(ip string) *rate.Limiter {
	return rl.clients.GetOrCreate(ip, func() *rate.Limiter {
		return rate.NewLimiter(rl.rate, rl.burst)
	})
}

func (rl *RateLimiter) RateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.limiter(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"success": false, "error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
