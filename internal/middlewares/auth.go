package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Gopher0727/WhisperWall/pkg/utils"
)

// ContextMemberID 认证通过后写入 gin.Context 的键
const ContextMemberID = "member_id"

// AuthMiddleware JWT 认证中间件
// token 由外部身份服务签发，这里只做验证并把 member_id 写入上下文。
func AuthMiddleware(tokens *utils.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var token string

		// 1. 尝试从请求头获取 Bearer token
		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) == 2 && parts[0] == "Bearer" {
				token = parts[1]
			}
		}

		// 2. 请求头没有时退回 Query 参数
		if token == "" {
			token = c.Query("token")
		}

		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "未提供认证 Token",
			})
			return
		}

		claims, err := tokens.Parse(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Token 无效或已过期",
			})
			return
		}

		c.Set(ContextMemberID, claims.MemberID)
		c.Next()
	}
}
