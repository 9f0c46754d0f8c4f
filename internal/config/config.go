package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config 全局配置结构
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	MySQL   MySQLConfig   `mapstructure:"mysql"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Kafka   KafkaConfig   `mapstructure:"kafka"`
	AI      AIConfig      `mapstructure:"ai"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Billing BillingConfig `mapstructure:"billing"`
	Job     JobConfig     `mapstructure:"job"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	// Enabled 为 false 时不连接 Redis，聊天锁退化为无锁（单机部署）
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers []string         `mapstructure:"brokers"`
	Topic   KafkaTopicConfig `mapstructure:"topic"`
}

type KafkaTopicConfig struct {
	BillingEvents string `mapstructure:"billing_events"`
	ChatEvents    string `mapstructure:"chat_events"`
}

// AIConfig 外部 AI 服务配置
type AIConfig struct {
	Endpoint       string `mapstructure:"endpoint"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type AuthConfig struct {
	JWTSecret     string `mapstructure:"jwt_secret"`
	TokenTTLHours int    `mapstructure:"token_ttl_hours"`
	// WebhookSecret 计费系统回调的共享密钥，请求头 X-Billing-Secret 必须匹配
	WebhookSecret string `mapstructure:"webhook_secret"`
}

// BillingConfig 订阅计费业务参数
type BillingConfig struct {
	FreeTierID    int64 `mapstructure:"free_tier_id"`   // 免费档 tier_id（锚点取注册时间）
	SignupCredits int64 `mapstructure:"signup_credits"` // 注册赠送回复次数
	RenewalDay    int   `mapstructure:"renewal_day"`    // 续期窗口起点（天）
	OverdueDay    int   `mapstructure:"overdue_day"`    // 超过该天数标记为欠费
}

type JobConfig struct {
	ReconcileIntervalHours int `mapstructure:"reconcile_interval_hours"`
	OutboxMaxRetryCount    int `mapstructure:"outbox_max_retry_count"`
	PendingSweepMinutes    int `mapstructure:"pending_sweep_minutes"`
}

func (a *AIConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

func (a *AuthConfig) TokenTTL() time.Duration {
	return time.Duration(a.TokenTTLHours) * time.Hour
}

var GlobalConfig *Config

// LoadConfig 加载配置文件
func LoadConfig(configPath string) *Config {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("读取配置文件失败: %v", err)
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		log.Fatalf("解析配置文件失败: %v", err)
	}

	applyDefaults(config)

	GlobalConfig = config
	return config
}

// applyDefaults 未配置的业务参数使用默认值
func applyDefaults(c *Config) {
	if c.Billing.FreeTierID == 0 {
		c.Billing.FreeTierID = 4
	}
	if c.Billing.SignupCredits == 0 {
		c.Billing.SignupCredits = 20
	}
	if c.Billing.RenewalDay == 0 {
		c.Billing.RenewalDay = 30
	}
	if c.Billing.OverdueDay == 0 {
		c.Billing.OverdueDay = 33
	}
	if c.AI.TimeoutSeconds == 0 {
		c.AI.TimeoutSeconds = 30
	}
	if c.Auth.TokenTTLHours == 0 {
		c.Auth.TokenTTLHours = 168
	}
	if c.Job.ReconcileIntervalHours == 0 {
		c.Job.ReconcileIntervalHours = 24
	}
	if c.Job.OutboxMaxRetryCount == 0 {
		c.Job.OutboxMaxRetryCount = 5
	}
	if c.Job.PendingSweepMinutes == 0 {
		c.Job.PendingSweepMinutes = 10
	}
}

// Default 返回一套用于测试的内置配置
func Default() *Config {
	c := &Config{}
	applyDefaults(c)
	return c
}
