package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Postgres   PostgresConfig   `mapstructure:"postgres"`
	Redis      RedisConfig      `mapstructure:"redis"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	RateLimit  RateLimitConfig  `mapstructure:"ratelimit"`
	Board      BoardConfig      `mapstructure:"board"`
	WorkerPool WorkerPoolConfig `mapstructure:"worker_pool"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type PostgresConfig struct {
	Host         string `mapstructure:"host"`
	Port         string `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	DBName       string `mapstructure:"dbname"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type RedisConfig struct {
	Host         string `mapstructure:"host"`
	Port         string `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
}

type JWTConfig struct {
	Secret  string `mapstructure:"secret"`
	TTLHour int    `mapstructure:"ttl_hour"` // token 有效期（小时）
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// RateLimitConfig 匿名留言的限流配置（按来源 IP）
type RateLimitConfig struct {
	PostLimit    int  `mapstructure:"post_limit"`    // 窗口内允许的留言条数
	WindowSecond int  `mapstructure:"window_second"` // 窗口长度（秒）
	FailOpen     bool `mapstructure:"fail_open"`     // Redis 不可用时是否放行
}

// BoardConfig 留言墙业务配置
type BoardConfig struct {
	DefaultPageSize int `mapstructure:"default_page_size"` // listWithPage 默认 size
	MaxPageSize     int `mapstructure:"max_page_size"`     // 单页上限
	MaxContentLen   int `mapstructure:"max_content_len"`   // 留言最大长度
	CacheTTLSecond  int `mapstructure:"cache_ttl_second"`  // 首页缓存过期时间（秒）
}

type WorkerPoolConfig struct {
	Size      int `mapstructure:"size"`
	QueueSize int `mapstructure:"queue_size"`
}

type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	FilePath string `mapstructure:"file_path"`
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)

	v.SetDefault("server.port", 9000)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("board.default_page_size", 10)
	v.SetDefault("board.max_page_size", 100)
	v.SetDefault("board.max_content_len", 1000)
	v.SetDefault("board.cache_ttl_second", 60)
	v.SetDefault("jwt.ttl_hour", 24)
	v.SetDefault("worker_pool.size", 64)
	v.SetDefault("worker_pool.queue_size", 1024)
	v.SetDefault("ratelimit.post_limit", 10)
	v.SetDefault("ratelimit.window_second", 60)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")

	if err := v.ReadInConfig(); err != nil {
		// 如果文件不存在，可以根据情况决定是报错还是使用默认值
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	// 将配置反序列化到结构体
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	return &config, nil
}
