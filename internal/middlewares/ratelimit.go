package middlewares

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Gopher0727/WhisperWall/utils/ratelimit"
)

// PostRateLimitMiddleware 匿名留言限流中间件
// 按来源 IP 计数：留言不需要登录，IP 是唯一能用的限流标识。
// limiter 为 nil 时直接放行（未配置 Redis 的部署）。
func PostRateLimitMiddleware(limiter ratelimit.Limiter, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		allowed, err := limiter.Allow(c.Request.Context(), "ip:"+c.ClientIP(), limit, window)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error": "服务暂时不可用，请稍后再试",
			})
			return
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "留言太频繁了，请稍后再试",
			})
			return
		}
		c.Next()
	}
}
