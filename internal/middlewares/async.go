package middlewares

import (
	"github.com/gin-gonic/gin"

	"github.com/Gopher0727/WhisperWall/internal/utils"
)

// AsyncMiddleware 异步处理中间件
// 将请求的处理逻辑提交到 Worker Pool 中执行，而不是在 Gin 分配的
// Goroutine 中直接执行，从而严格控制并发处理的请求数量。
// 队列有缓冲，请求不会被立即拒绝，而是排队等待处理。
func AsyncMiddleware(pool *utils.WorkerPool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if pool == nil {
			c.Next()
			return
		}

		// 无缓冲通道，主 Goroutine 同步等待 worker 处理完成。
		// gin.Context 不是线程安全的，但同一时间只有 worker 在操作 c，
		// 主 Goroutine 阻塞在 <-done 上，所以是安全的。
		done := make(chan struct{})

		pool.Submit(func() {
			defer close(done)
			c.Next()
		})

		<-done
	}
}
