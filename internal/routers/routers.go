package routers

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	appconfig "github.com/Gopher0727/WhisperWall/config"
	"github.com/Gopher0727/WhisperWall/internal/handlers"
	"github.com/Gopher0727/WhisperWall/internal/middlewares"
	"github.com/Gopher0727/WhisperWall/internal/utils"
	logger "github.com/Gopher0727/WhisperWall/middleware/log"
	pkgutils "github.com/Gopher0727/WhisperWall/pkg/utils"
	"github.com/Gopher0727/WhisperWall/utils/ratelimit"
)

// SetupRoutes 设置所有路由
func SetupRoutes(r *gin.Engine, cfg *appconfig.Config,
	memberHandler *handlers.MemberHandler,
	messageHandler *handlers.MessageHandler,
	tokens *pkgutils.TokenManager,
	limiter ratelimit.Limiter, // 为 nil 时发帖接口不限流
	pool *utils.WorkerPool, // 为 nil 时请求直接在 gin 协程里执行
	log *logger.Logger,
) {
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	r.Use(cors.New(corsConfig))

	// 链路追踪 + 请求日志
	r.Use(logger.TraceMiddleware(log))

	// 不支持的 HTTP 方法按入参错误处理
	r.HandleMethodNotAllowed = true
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "不支持的请求方法",
		})
	})

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"Status": "OK",
		})
	})

	// 异步处理中间件
	// 将请求放入 Worker Pool 中排队执行
	r.Use(middlewares.AsyncMiddleware(pool))

	RegisterMemberRoutes(r, cfg, memberHandler, messageHandler, tokens, limiter)
}

// RegisterMemberRoutes 注册留言墙路由
func RegisterMemberRoutes(r *gin.Engine, cfg *appconfig.Config,
	memberHandler *handlers.MemberHandler,
	messageHandler *handlers.MessageHandler,
	tokens *pkgutils.TokenManager,
	limiter ratelimit.Limiter,
) {
	memberGroup := r.Group("/api/v1/members")
	{
		memberGroup.POST("", memberHandler.Register)      // 注册留言墙
		memberGroup.GET("/:member_id", memberHandler.Get) // 墙主人公开资料

		// 留言：发帖限流，读取与回复不限流
		memberGroup.POST("/:member_id/messages",
			middlewares.PostRateLimitMiddleware(limiter,
				cfg.RateLimit.PostLimit,
				time.Duration(cfg.RateLimit.WindowSecond)*time.Second),
			messageHandler.PostMessage)
		memberGroup.GET("/:member_id/messages", messageHandler.ListMessages)
		memberGroup.GET("/:member_id/messages/:message_id", messageHandler.GetMessage)
		memberGroup.POST("/:member_id/messages/:message_id/reply", messageHandler.PostReply)

		// 屏蔽开关只有墙主人本人可以操作
		memberGroup.PUT("/:member_id/messages/:message_id/deny",
			middlewares.AuthMiddleware(tokens),
			messageHandler.SetVisibility)
	}
}
