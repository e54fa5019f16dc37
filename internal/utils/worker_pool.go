package utils

import (
	"sync"

	"go.uber.org/zap"
)

// WorkerPool 通用协程池
// 把请求处理收敛到固定数量的 worker 上，防止高并发下 Goroutine 暴涨。
type WorkerPool struct {
	jobQueue  chan func()
	workerNum int
	logger    *zap.Logger
	wg        sync.WaitGroup
	quit      chan struct{}
}

// NewWorkerPool 创建一个新的协程池（显式构造并注入，不走全局单例）
func NewWorkerPool(workerNum, queueSize int, logger *zap.Logger) *WorkerPool {
	return &WorkerPool{
		jobQueue:  make(chan func(), queueSize),
		workerNum: workerNum,
		logger:    logger,
		quit:      make(chan struct{}),
	}
}

// Start 启动协程池
func (p *WorkerPool) Start() {
	for i := range p.workerNum {
		p.wg.Add(1)
		go func(workerID int) {
			defer p.wg.Done()
			for {
				select {
				case job := <-p.jobQueue:
					// 用 recover 防止单个任务 panic 拖垮整个 worker
					func() {
						defer func() {
							if r := recover(); r != nil {
								p.logger.Error("worker 任务 panic",
									zap.Int("worker_id", workerID),
									zap.Any("panic", r),
								)
							}
						}()
						job()
					}()
				case <-p.quit:
					return
				}
			}
		}(i)
	}
	p.logger.Info("WorkerPool 已启动", zap.Int("workers", p.workerNum))
}

// Submit 提交任务到协程池
// 队列满时阻塞等待空位：请求排队变慢，而不是被拒绝。
func (p *WorkerPool) Submit(job func()) {
	p.jobQueue <- job
}

// Stop 停止协程池并等待在途任务结束
func (p *WorkerPool) Stop() {
	close(p.quit)
	p.wg.Wait()
}
