package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`              // 数据库文件路径
	MaxOpenConns    int           `mapstructure:"max_open_conns"`    // 最大连接数
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`    // 最大空闲连接数
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"` // 连接最大生命周期
	AutoMigrate     bool          `mapstructure:"auto_migrate"`      // 是否自动迁移
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port     int    `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`
}

// ReliabilityConfig 可靠性配置
// 控制一次逻辑发送的重试预算和退避节奏
type ReliabilityConfig struct {
	MaxRetries  int           `mapstructure:"max_retries"`  // 最大尝试次数，默认 3
	BaseDelay   time.Duration `mapstructure:"base_delay"`   // 退避基准延迟，默认 1s
	SendTimeout time.Duration `mapstructure:"send_timeout"` // 单次逻辑发送总超时
}

// QuotaConfig 配额配置
type QuotaConfig struct {
	DefaultLimit    int64  `mapstructure:"default_limit"`     // 新用户默认月度上限
	DefaultPlanName string `mapstructure:"default_plan_name"` // 新用户默认套餐名
}

// Config 应用配置
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Reliability ReliabilityConfig `mapstructure:"reliability"`
	Quota       QuotaConfig       `mapstructure:"quota"`
}

// LoadConfig 加载配置（默认值 + 环境变量覆盖）
func LoadConfig() (*Config, error) {
	// 默认配置
	config := &Config{
		Server: ServerConfig{
			Port:     8080,
			LogLevel: "info",
		},
		Database: DatabaseConfig{
			Path:            "./data/aegisx.db",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: time.Hour,
			AutoMigrate:     true,
		},
		Reliability: ReliabilityConfig{
			MaxRetries:  3,
			BaseDelay:   time.Second,
			SendTimeout: 120 * time.Second,
		},
		Quota: QuotaConfig{
			DefaultLimit:    50,
			DefaultPlanName: "free",
		},
	}

	// 支持环境变量覆盖
	if dbPath := os.Getenv("DATABASE_PATH"); dbPath != "" {
		config.Database.Path = dbPath
	}

	if port := os.Getenv("SERVER_PORT"); port != "" {
		var p int
		if _, err := fmt.Sscanf(port, "%d", &p); err == nil {
			config.Server.Port = p
		}
	}

	if retries := os.Getenv("AI_MAX_RETRIES"); retries != "" {
		if n, err := strconv.Atoi(retries); err == nil && n > 0 {
			config.Reliability.MaxRetries = n
		}
	}

	if delay := os.Getenv("AI_BASE_DELAY_MS"); delay != "" {
		if ms, err := strconv.Atoi(delay); err == nil && ms > 0 {
			config.Reliability.BaseDelay = time.Duration(ms) * time.Millisecond
		}
	}

	if timeout := os.Getenv("AI_SEND_TIMEOUT_S"); timeout != "" {
		if s, err := strconv.Atoi(timeout); err == nil && s > 0 {
			config.Reliability.SendTimeout = time.Duration(s) * time.Second
		}
	}

	if limit := os.Getenv("QUOTA_DEFAULT_LIMIT"); limit != "" {
		if n, err := strconv.ParseInt(limit, 10, 64); err == nil && n >= 0 {
			config.Quota.DefaultLimit = n
		}
	}

	return config, nil
}
