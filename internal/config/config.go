package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 全局配置结构体（完全匹配config.yaml）
type Config struct {
	Server    ServerConfig              `mapstructure:"server"`    // 服务器配置
	Postgres  PostgresConfig            `mapstructure:"postgres"`  // PostgreSQL配置
	Sync      SyncConfig                `mapstructure:"sync"`      // 同步调度配置
	Email     EmailConfig               `mapstructure:"email"`     // 邮件配置
	Auth      AuthConfig                `mapstructure:"auth"`      // 鉴权配置
	Platforms map[string]PlatformConfig `mapstructure:"platforms"` // 外部平台独立配置
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port int    `mapstructure:"port"` // 服务端口
	Mode string `mapstructure:"mode"` // Gin运行模式：debug/release/test
}

// PostgresConfig PostgreSQL数据库配置
type PostgresConfig struct {
	DSN             string        `mapstructure:"dsn"`               // 连接DSN
	MaxOpenConns    int           `mapstructure:"max_open_conns"`    // 最大打开连接数
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`    // 最大空闲连接数
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"` // 连接最大存活时间
}

// SyncConfig 同步调度配置
type SyncConfig struct {
	Cron            string `mapstructure:"cron"`             // 每日同步Cron表达式
	Concurrency     int    `mapstructure:"concurrency"`      // 批量同步并发上限（保护外部API限流）
	SubmissionCount int    `mapstructure:"submission_count"` // 每个句柄拉取的最近提交条数
	InactiveDays    int    `mapstructure:"inactive_days"`    // 多少天无提交触发提醒邮件
}

// EmailConfig 邮件配置（SES），From为空则整体禁用发信
type EmailConfig struct {
	Region      string `mapstructure:"region"`       // AWS区域
	From        string `mapstructure:"from"`         // 发件地址
	FromName    string `mapstructure:"from_name"`    // 发件人显示名
	FrontendURL string `mapstructure:"frontend_url"` // 邮件内跳转的前端地址
}

// AuthConfig 鉴权配置
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"` // JWT签名密钥
}

// PlatformConfig 单个外部平台的独立配置
type PlatformConfig struct {
	BaseURL    string `mapstructure:"base_url"`    // API基础地址
	Timeout    int    `mapstructure:"timeout"`     // 请求超时（秒）
	RetryCount int    `mapstructure:"retry_count"` // 拉取失败重试次数（0=不重试）
	Proxy      string `mapstructure:"proxy"`       // 代理地址
}

// LoadConfig 加载配置文件（config/config.yaml），敏感项从 .env 覆盖（不提交 git）
func LoadConfig() (*Config, error) {
	// 1. 加载 .env（若存在），env 中的值会覆盖 config.yaml 中同名字段
	_ = godotenv.Load() // 忽略错误（.env 可不存在）

	// 2. 读取 config.yaml
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	viper.SetTypeByDefaultValue(true)
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	// 3. 敏感字段：用 env 覆盖（优先级 env > yaml）
	overrideFromEnv(&cfg)
	applyDefaults(&cfg)
	return &cfg, nil
}

// overrideFromEnv 用环境变量覆盖敏感配置
func overrideFromEnv(cfg *Config) {
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("SES_FROM_EMAIL"); v != "" {
		cfg.Email.From = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		cfg.Email.Region = v
	}
	if p, ok := cfg.Platforms["codeforces"]; ok {
		if v := os.Getenv("CODEFORCES_PROXY"); v != "" {
			p.Proxy = v
		}
		cfg.Platforms["codeforces"] = p
	}
}

// applyDefaults 关键字段缺省兜底，保证调度与拉取在最小配置下可用
func applyDefaults(cfg *Config) {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "debug"
	}
	if cfg.Sync.Cron == "" {
		cfg.Sync.Cron = "0 2 * * *" // 每日凌晨2点
	}
	if cfg.Sync.Concurrency <= 0 {
		cfg.Sync.Concurrency = 4
	}
	if cfg.Sync.SubmissionCount < 1000 {
		cfg.Sync.SubmissionCount = 1000 // 至少覆盖最近1000条提交
	}
	if cfg.Sync.InactiveDays <= 0 {
		cfg.Sync.InactiveDays = 7
	}
}
