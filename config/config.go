package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"db"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Log       LogConfig       `mapstructure:"log"`
	AI        AIConfig        `mapstructure:"ai"`
	Report    ReportConfig    `mapstructure:"report"`
	Analytics AnalyticsConfig `mapstructure:"analytics"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Cron      CronConfig      `mapstructure:"cron"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port           int        `mapstructure:"port"`
	BodyLimitBytes int64      `mapstructure:"body_limit_bytes"`
	CORS           CORSConfig `mapstructure:"cors"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig PostgreSQL 数据库配置
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // 分钟
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis 配置（限流 + 统计缓存）
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// AIConfig 进程级默认 AI 服务配置
// 数据库 system_config.api_config 存在时优先使用数据库配置
type AIConfig struct {
	Provider string `mapstructure:"provider"`
	URL      string `mapstructure:"url"`
	Model    string `mapstructure:"model"`
	Key      string `mapstructure:"key"`

	// 提交后自动生成：短超时、少 token、低温度
	InlineTimeout     time.Duration `mapstructure:"inline_timeout"`
	InlineMaxTokens   int           `mapstructure:"inline_max_tokens"`
	InlineTemperature float32       `mapstructure:"inline_temperature"`

	// 手动触发（/generate-ai-report）
	ManualTimeout     time.Duration `mapstructure:"manual_timeout"`
	ManualMaxTokens   int           `mapstructure:"manual_max_tokens"`
	ManualTemperature float32       `mapstructure:"manual_temperature"`

	// 连通性测试
	ConnTestTimeout   time.Duration `mapstructure:"conn_test_timeout"`
	ConnTestMaxTokens int           `mapstructure:"conn_test_max_tokens"`
}

// ReportConfig 后台报告生成配置
type ReportConfig struct {
	Workers            int  `mapstructure:"workers"`
	QueueSize          int  `mapstructure:"queue_size"`
	PositionalFallback bool `mapstructure:"positional_fallback"`
}

// AnalyticsConfig 统计配置
type AnalyticsConfig struct {
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	ReportPerMinute int `mapstructure:"report_per_minute"`
}

// CronConfig 定时任务配置
type CronConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	DailyReportSpec string `mapstructure:"daily_report_spec"`
}

// Load 从 .env、配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	// .env 不存在时忽略
	_ = godotenv.Load()

	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.body_limit_bytes", 10<<20)
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:3000"})

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "neurogen_exam")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "Asia/Shanghai")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("ai.provider", "qwen")
	v.SetDefault("ai.url", "https://dashscope.aliyuncs.com/compatible-mode/v1/chat/completions")
	v.SetDefault("ai.model", "qwen-turbo")
	v.SetDefault("ai.key", "")
	v.SetDefault("ai.inline_timeout", "15s")
	v.SetDefault("ai.inline_max_tokens", 1000)
	v.SetDefault("ai.inline_temperature", 0.5)
	v.SetDefault("ai.manual_timeout", "30s")
	v.SetDefault("ai.manual_max_tokens", 2000)
	v.SetDefault("ai.manual_temperature", 0.7)
	v.SetDefault("ai.conn_test_timeout", "15s")
	v.SetDefault("ai.conn_test_max_tokens", 50)

	v.SetDefault("report.workers", 2)
	v.SetDefault("report.queue_size", 64)
	v.SetDefault("report.positional_fallback", true)

	v.SetDefault("analytics.cache_ttl", "60s")

	v.SetDefault("rate_limit.report_per_minute", 10)

	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.daily_report_spec", "10 0 * * *")

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("NEUROGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	if c.Report.Workers <= 0 {
		return fmt.Errorf("配置校验失败: report.workers 必须大于 0")
	}
	if c.Report.QueueSize <= 0 {
		return fmt.Errorf("配置校验失败: report.queue_size 必须大于 0")
	}
	for name, t := range map[string]float32{
		"ai.inline_temperature": c.AI.InlineTemperature,
		"ai.manual_temperature": c.AI.ManualTemperature,
	} {
		if t < 0 || t > 2 {
			return fmt.Errorf("配置校验失败: %s 必须在 0-2 之间", name)
		}
	}
	if c.AI.InlineTimeout <= 0 || c.AI.ManualTimeout <= 0 {
		return fmt.Errorf("配置校验失败: ai 超时时间必须大于 0")
	}
	return nil
}
