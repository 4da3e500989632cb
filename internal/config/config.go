package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"bookswap/pkg/money"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config 全局配置结构
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Log          LogConfig          `mapstructure:"log"`
	MySQL        MySQLConfig        `mapstructure:"mysql"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Kafka        KafkaConfig        `mapstructure:"kafka"`
	Lock         LockConfig         `mapstructure:"lock"`
	Cache        CacheConfig        `mapstructure:"cache"`
	Ledger       LedgerConfig       `mapstructure:"ledger"`
	Verification VerificationConfig `mapstructure:"verification"`
	Jobs         JobsConfig         `mapstructure:"jobs"`
}

type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	LogSQL       bool   `mapstructure:"log_sql"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Enabled bool             `mapstructure:"enabled"`
	Brokers []string         `mapstructure:"brokers"`
	Topic   KafkaTopicConfig `mapstructure:"topic"`
}

type KafkaTopicConfig struct {
	LedgerEvents string `mapstructure:"ledger_events"`
}

// LockConfig 钱包锁配置，backend 为 redis 或 local
type LockConfig struct {
	Backend       string        `mapstructure:"backend"`
	TTL           time.Duration `mapstructure:"ttl"`
	RetryInterval time.Duration `mapstructure:"retry_interval"`
	MaxRetries    int           `mapstructure:"max_retries"`
}

type CacheConfig struct {
	PackageTTL time.Duration `mapstructure:"package_ttl"`
}

// LedgerConfig 充值相关参数，金额单位为 Birr
type LedgerConfig struct {
	MinTopUp        float64 `mapstructure:"min_topup"`
	ZCoinPerBirr    float64 `mapstructure:"zcoin_per_birr"`
	AmountTolerance float64 `mapstructure:"amount_tolerance"`
}

func (c LedgerConfig) MinTopUpAmount() decimal.Decimal { return money.FromFloat(c.MinTopUp) }
func (c LedgerConfig) Rate() decimal.Decimal           { return money.FromFloat(c.ZCoinPerBirr) }
func (c LedgerConfig) Tolerance() decimal.Decimal      { return money.FromFloat(c.AmountTolerance) }

type VerificationConfig struct {
	Mock      bool           `mapstructure:"mock"`
	UserAgent string         `mapstructure:"user_agent"`
	Telebirr  ProviderConfig `mapstructure:"telebirr"`
	Abyssinia ProviderConfig `mapstructure:"abyssinia"`
}

type ProviderConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	Timeout       time.Duration `mapstructure:"timeout"`
	DefaultSuffix string        `mapstructure:"default_suffix"`
}

type JobsConfig struct {
	OutboxEnabled   bool          `mapstructure:"outbox_enabled"`
	OutboxInterval  time.Duration `mapstructure:"outbox_interval"`
	OutboxBatchSize int           `mapstructure:"outbox_batch_size"`
	MaxRetryCount   int           `mapstructure:"max_retry_count"`
	AuditEnabled    bool          `mapstructure:"audit_enabled"`
	AuditInterval   time.Duration `mapstructure:"audit_interval"`
	AuditBatchSize  int           `mapstructure:"audit_batch_size"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("mysql.host", "127.0.0.1")
	v.SetDefault("mysql.port", 3306)
	v.SetDefault("mysql.user", "root")
	v.SetDefault("mysql.database", "bookswap")
	v.SetDefault("mysql.max_open_conns", 50)
	v.SetDefault("mysql.max_idle_conns", 10)

	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"127.0.0.1:9092"})
	v.SetDefault("kafka.topic.ledger_events", "zcoin_ledger_events")

	v.SetDefault("lock.backend", "local")
	v.SetDefault("lock.ttl", 30*time.Second)
	v.SetDefault("lock.retry_interval", 100*time.Millisecond)
	v.SetDefault("lock.max_retries", 50)

	v.SetDefault("cache.package_ttl", 5*time.Minute)

	v.SetDefault("ledger.min_topup", 10)
	v.SetDefault("ledger.zcoin_per_birr", 10)
	v.SetDefault("ledger.amount_tolerance", 0.50)

	v.SetDefault("verification.mock", false)
	v.SetDefault("verification.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36")
	v.SetDefault("verification.telebirr.base_url", "https://transactioninfo.ethiotelecom.et/receipt")
	v.SetDefault("verification.telebirr.timeout", 15*time.Second)
	v.SetDefault("verification.abyssinia.base_url", "https://cs.bankofabyssinia.com/api/onlineSlip/getDetails/")
	v.SetDefault("verification.abyssinia.timeout", 20*time.Second)
	v.SetDefault("verification.abyssinia.default_suffix", "90172")

	v.SetDefault("jobs.outbox_enabled", true)
	v.SetDefault("jobs.outbox_interval", time.Second)
	v.SetDefault("jobs.outbox_batch_size", 100)
	v.SetDefault("jobs.max_retry_count", 5)
	v.SetDefault("jobs.audit_enabled", true)
	v.SetDefault("jobs.audit_interval", 10*time.Minute)
	v.SetDefault("jobs.audit_batch_size", 200)
}

// LoadConfig 加载配置文件，环境变量 BOOKSWAP_* 覆盖文件中的同名项。
// configPath 为空时只使用默认值和环境变量。
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("BOOKSWAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configPath, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default 返回内置默认配置
func Default() *Config {
	cfg, err := LoadConfig("")
	if err != nil {
		panic(err)
	}
	return cfg
}

func (c *Config) Validate() error {
	if c.Ledger.MinTopUp <= 0 {
		return errors.New("ledger.min_topup must be positive")
	}
	if c.Ledger.ZCoinPerBirr <= 0 {
		return errors.New("ledger.zcoin_per_birr must be positive")
	}
	if c.Ledger.AmountTolerance < 0 {
		return errors.New("ledger.amount_tolerance must not be negative")
	}
	switch c.Lock.Backend {
	case "redis", "local":
	default:
		return fmt.Errorf("lock.backend must be redis or local, got %q", c.Lock.Backend)
	}
	if !c.Verification.Mock {
		if c.Verification.Telebirr.BaseURL == "" || c.Verification.Abyssinia.BaseURL == "" {
			return errors.New("verification base urls are required when mock mode is off")
		}
	}
	return nil
}
