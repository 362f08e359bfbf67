package config

import (
	"fmt"
	"strings"

	"github.com/dujiao-next/storefront/internal/logger"
	"github.com/dujiao-next/storefront/internal/pricing"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Queue    QueueConfig    `mapstructure:"queue"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Pricing  PricingConfig  `mapstructure:"pricing"`
	Cart     CartConfig     `mapstructure:"cart"`
	Coupon   CouponConfig   `mapstructure:"coupon"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug / release

	ReadTimeoutSeconds     int `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds    int `mapstructure:"write_timeout_seconds"`
	IdleTimeoutSeconds     int `mapstructure:"idle_timeout_seconds"`
	ShutdownTimeoutSeconds int `mapstructure:"shutdown_timeout_seconds"`
}

// LogConfig 日志配置
type LogConfig struct {
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ToLoggerOptions 转换为 logger 配置
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

// DatabasePoolConfig 数据库连接池配置
type DatabasePoolConfig struct {
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int `mapstructure:"conn_max_idle_time_seconds"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver string             `mapstructure:"driver"` // 数据库驱动（sqlite/postgres）
	DSN    string             `mapstructure:"dsn"`    // 数据库连接串
	Pool   DatabasePoolConfig `mapstructure:"pool"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// QueueConfig 异步队列配置
type QueueConfig struct {
	Enabled     bool           `mapstructure:"enabled"`
	Host        string         `mapstructure:"host"`
	Port        int            `mapstructure:"port"`
	Password    string         `mapstructure:"password"`
	DB          int            `mapstructure:"db"`
	Concurrency int            `mapstructure:"concurrency"`
	Queues      map[string]int `mapstructure:"queues"`
}

// PricingConfig 价格规则配置
type PricingConfig struct {
	FreeShippingThreshold string `mapstructure:"free_shipping_threshold"` // 包邮门槛（严格大于）
	FlatShippingFee       string `mapstructure:"flat_shipping_fee"`       // 固定运费
	TaxRate               string `mapstructure:"tax_rate"`                // 税率（作用于小计）
}

// ToPolicy 转换为价格规则，空值使用默认规则
func (c PricingConfig) ToPolicy() (pricing.Policy, error) {
	policy := pricing.DefaultPolicy()
	fields := []struct {
		name   string
		raw    string
		target *decimal.Decimal
	}{
		{name: "free_shipping_threshold", raw: c.FreeShippingThreshold, target: &policy.FreeShippingThreshold},
		{name: "flat_shipping_fee", raw: c.FlatShippingFee, target: &policy.FlatShippingFee},
		{name: "tax_rate", raw: c.TaxRate, target: &policy.TaxRate},
	}
	for _, field := range fields {
		raw := strings.TrimSpace(field.raw)
		if raw == "" {
			continue
		}
		value, err := decimal.NewFromString(raw)
		if err != nil {
			return pricing.Policy{}, fmt.Errorf("pricing.%s invalid: %w", field.name, err)
		}
		if value.IsNegative() {
			return pricing.Policy{}, fmt.Errorf("pricing.%s must not be negative", field.name)
		}
		*field.target = value
	}
	return policy, nil
}

// CartConfig 购物车配置
type CartConfig struct {
	IdleExpireMinutes int `mapstructure:"idle_expire_minutes"` // 闲置过期时间（0 表示不过期）
	MaxItems          int `mapstructure:"max_items"`           // 单个购物车最多行项
	MaxQuantity       int `mapstructure:"max_quantity"`        // 单行最大数量

	SweepIntervalMinutes int `mapstructure:"sweep_interval_minutes"` // 闲置购物车兜底扫描间隔
	SweepBatchSize       int `mapstructure:"sweep_batch_size"`       // 单次扫描删除上限
}

// CouponConfig 优惠码配置
type CouponConfig struct {
	DefaultCode        string `mapstructure:"default_code"`         // 内置优惠码
	DefaultPercent     string `mapstructure:"default_percent"`      // 内置优惠百分比
	RulesCacheSeconds  int    `mapstructure:"rules_cache_seconds"`  // 规则表缓存时间
	ResetOnClear       bool   `mapstructure:"reset_on_clear"`       // 清空购物车时重置优惠码
	ApplyRateLimit     int    `mapstructure:"apply_rate_limit"`     // 窗口内最多尝试次数
	ApplyWindowSeconds int    `mapstructure:"apply_window_seconds"` // 限流窗口
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// Load 从 config.yml 加载配置
func Load() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")     // 从当前目录查找
	viper.AddConfigPath("./")    // 备用路径
	viper.AddConfigPath("../")   // 如果从 cmd/server 运行
	viper.AddConfigPath("./etc") // etc 文件夹

	// 设置默认值（可选）
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("server.read_timeout_seconds", 15)
	viper.SetDefault("server.write_timeout_seconds", 30)
	viper.SetDefault("server.idle_timeout_seconds", 120)
	viper.SetDefault("server.shutdown_timeout_seconds", 10)
	viper.SetDefault("log.dir", "")
	viper.SetDefault("log.filename", "app.log")
	viper.SetDefault("log.max_size_mb", 100)
	viper.SetDefault("log.max_backups", 7)
	viper.SetDefault("log.max_age_days", 30)
	viper.SetDefault("log.compress", true)
	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.dsn", "./db/storefront.db")
	viper.SetDefault("database.pool.max_open_conns", 1)
	viper.SetDefault("database.pool.max_idle_conns", 1)
	viper.SetDefault("database.pool.conn_max_lifetime_seconds", 0)
	viper.SetDefault("database.pool.conn_max_idle_time_seconds", 0)
	viper.SetDefault("redis.enabled", true)
	viper.SetDefault("redis.host", "127.0.0.1")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.prefix", "sf")
	viper.SetDefault("queue.enabled", true)
	viper.SetDefault("queue.host", "127.0.0.1")
	viper.SetDefault("queue.port", 6379)
	viper.SetDefault("queue.password", "")
	viper.SetDefault("queue.db", 1)
	viper.SetDefault("queue.concurrency", 10)
	viper.SetDefault("queue.queues", map[string]int{
		"default": 10,
	})
	viper.SetDefault("cors.allowed_origins", []string{"*"})
	viper.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	viper.SetDefault("cors.allowed_headers", []string{
		"Content-Type",
		"Content-Length",
		"Accept-Encoding",
		"Accept-Language",
		"Cache-Control",
		"X-Requested-With",
		"X-Request-ID",
	})
	viper.SetDefault("cors.allow_credentials", true)
	viper.SetDefault("cors.max_age", 600)
	viper.SetDefault("pricing.free_shipping_threshold", "50")
	viper.SetDefault("pricing.flat_shipping_fee", "5.99")
	viper.SetDefault("pricing.tax_rate", "0.08")
	viper.SetDefault("cart.idle_expire_minutes", 10080)
	viper.SetDefault("cart.max_items", 100)
	viper.SetDefault("cart.max_quantity", 999)
	viper.SetDefault("cart.sweep_interval_minutes", 10)
	viper.SetDefault("cart.sweep_batch_size", 200)
	viper.SetDefault("coupon.default_code", "STUDENT10")
	viper.SetDefault("coupon.default_percent", "10")
	viper.SetDefault("coupon.rules_cache_seconds", 300)
	viper.SetDefault("coupon.reset_on_clear", true)
	viper.SetDefault("coupon.apply_rate_limit", 10)
	viper.SetDefault("coupon.apply_window_seconds", 60)
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")

	// 环境变量支持
	viper.AutomaticEnv()                                   // 自动读取环境变量
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // 将 . 替换为 _ (例如 server.port -> SERVER_PORT)

	// 读取配置文件
	if err := viper.ReadInConfig(); err != nil {
		logger.Warnw("config_file_read_failed",
			"error", err,
			"fallback", "env_or_defaults",
		)
	} else {
		logger.Infow("config_file_loaded", "file", viper.ConfigFileUsed())
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		logger.Errorw("config_unmarshal_failed", "error", err)
		panic(fmt.Errorf("配置解析失败: %w", err))
	}

	return &cfg
}
