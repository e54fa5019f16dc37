package main

import (
	"log"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Gopher0727/WhisperWall/config"
	"github.com/Gopher0727/WhisperWall/internal/handlers"
	"github.com/Gopher0727/WhisperWall/internal/repositories"
	"github.com/Gopher0727/WhisperWall/internal/routers"
	"github.com/Gopher0727/WhisperWall/internal/services"
	"github.com/Gopher0727/WhisperWall/internal/storage"
	"github.com/Gopher0727/WhisperWall/internal/utils"
	logger "github.com/Gopher0727/WhisperWall/middleware/log"
	"github.com/Gopher0727/WhisperWall/pkg/mq"
	pkgutils "github.com/Gopher0727/WhisperWall/pkg/utils"
	"github.com/Gopher0727/WhisperWall/utils/ratelimit"
)

func main() {
	cfg, err := config.LoadConfig("./config.toml")
	if err != nil {
		log.Fatalf("配置初始化失败: %v", err)
	}

	// 初始化日志
	appLogger, err := logger.NewLogger(&cfg.Logging)
	if err != nil {
		log.Fatalf("日志初始化失败: %v", err)
	}
	defer appLogger.Close()

	// 初始化 PostgreSQL
	dsn := storage.BuildDSN(cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.User, cfg.Postgres.Password, cfg.Postgres.DBName)
	postgres, err := storage.InitPostgres(dsn, cfg.Postgres.MaxIdleConns, cfg.Postgres.MaxOpenConns)
	if err != nil {
		log.Fatalf("postgres 初始化失败: %v", err)
	}

	// 初始化 Redis
	// Redis 不可用时以降级模式运行：不限流、不走首页缓存
	redisClient, err := storage.InitRedis(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.PoolSize, cfg.Redis.MinIdleConns)
	if err != nil {
		log.Printf("redis 初始化失败: %v。系统将以降级模式运行（不限流、不缓存）。", err)
		redisClient = nil
	}

	// 初始化 Kafka Producer
	// Kafka 不可用时以降级模式运行：留言事件不对外广播
	var publisher services.EventPublisher
	kafkaProducer, err := mq.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	if err != nil {
		log.Printf("Kafka 生产者初始化失败: %v。系统将以降级模式运行（不广播留言事件）。", err)
	} else {
		defer kafkaProducer.Close()
		publisher = kafkaProducer
	}

	// 初始化 Worker Pool (协程池)
	// 用于异步处理请求，防止高并发下 Goroutine 暴涨
	pool := utils.NewWorkerPool(cfg.WorkerPool.Size, cfg.WorkerPool.QueueSize, appLogger.Logger)
	pool.Start()
	defer pool.Stop()

	// 初始化限流器（按来源 IP 限制匿名留言频率）
	var limiter ratelimit.Limiter
	if redisClient != nil {
		limiter = ratelimit.NewFixedWindowLimiter(redisClient, appLogger.Logger, cfg.RateLimit.FailOpen)
	}

	// 初始化 JWT
	tokens := pkgutils.NewTokenManager(cfg.JWT.Secret, time.Duration(cfg.JWT.TTLHour)*time.Hour)

	// 初始化仓储层
	memberRepo := repositories.NewMemberRepository(postgres)
	messageRepo := repositories.NewMessageRepository(postgres)

	// 初始化服务层
	memberService := services.NewMemberService(postgres, memberRepo)
	messageService := services.NewMessageService(postgres, memberRepo, messageRepo, redisClient, publisher, appLogger.Logger,
		services.MessageServiceOptions{
			DefaultPageSize: int64(cfg.Board.DefaultPageSize),
			MaxPageSize:     int64(cfg.Board.MaxPageSize),
			MaxContentLen:   cfg.Board.MaxContentLen,
			CacheTTL:        time.Duration(cfg.Board.CacheTTLSecond) * time.Second,
		})

	// 初始化处理器
	memberHandler := handlers.NewMemberHandler(memberService, tokens, appLogger.Logger)
	messageHandler := handlers.NewMessageHandler(messageService, appLogger.Logger)

	// 配置并创建 Gin 引擎
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())

	// 设置路由
	routers.SetupRoutes(r,
		cfg,
		memberHandler,
		messageHandler,
		tokens,
		limiter,
		pool,
		appLogger,
	)

	// 启动服务器
	log.Printf("正在启动服务器，监听端口 :%d\n", cfg.Server.Port)
	if err := r.Run(":" + strconv.FormatInt(int64(cfg.Server.Port), 10)); err != nil {
		log.Fatalf("启动服务器失败: %v", err)
	}
}
