// Package config loads configs/config.yaml and the process environment into
// a typed Config. Keys can be overridden with HASHPAY_<SECTION>_<KEY>
// variables. Secrets come from the environment or a .env file only.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	WalletStoreSQL   = "sql"
	WalletStoreRedis = "redis"
)

type Config struct {
	Server      ServerConfig  `mapstructure:"server"`
	DB          DBConfig      `mapstructure:"db"`
	Chain       ChainConfig   `mapstructure:"chain"`
	WalletStore string        `mapstructure:"wallet_store"`
	Redis       RedisConfig   `mapstructure:"redis"`
	Pricing     PricingConfig `mapstructure:"pricing"`
	Log         LogConfig     `mapstructure:"log"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	AllowOrigins    []string      `mapstructure:"allow_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DBConfig struct {
	Driver   string `mapstructure:"driver"`
	Path     string `mapstructure:"path"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Username string `mapstructure:"username"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	Password string `mapstructure:"-"`
}

type ChainConfig struct {
	RPCURL          string        `mapstructure:"rpc_url"`
	ContractAddress string        `mapstructure:"contract_address"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	BalanceTimeout  time.Duration `mapstructure:"balance_timeout"`
	SendTimeout     time.Duration `mapstructure:"send_timeout"`
	RateLimit       float64       `mapstructure:"rate_limit"`
	RateBurst       int           `mapstructure:"rate_burst"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	DB       int    `mapstructure:"db"`
	Password string `mapstructure:"-"`
}

type PricingConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	BaseURL  string        `mapstructure:"base_url"`
	Currency string        `mapstructure:"currency"`
	Timeout  time.Duration `mapstructure:"timeout"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
	APIKey   string        `mapstructure:"-"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("db.driver", "sqlite3")
	v.SetDefault("db.path", "hashpay.db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("chain.rpc_url", "http://127.0.0.1:8545")
	v.SetDefault("chain.connect_timeout", 30*time.Second)
	v.SetDefault("chain.balance_timeout", 10*time.Second)
	v.SetDefault("chain.send_timeout", 30*time.Second)
	v.SetDefault("chain.rate_limit", 10)
	v.SetDefault("chain.rate_burst", 5)
	v.SetDefault("wallet_store", WalletStoreSQL)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("pricing.enabled", true)
	v.SetDefault("pricing.currency", "usd")
	v.SetDefault("pricing.timeout", 5*time.Second)
	v.SetDefault("pricing.cache_ttl", 10*time.Minute)
	v.SetDefault("log.level", "info")
}

// Load reads .env (optional) and then config.yaml from dir. A missing yaml
// file leaves the defaults and the environment in charge.
func Load(dir string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Infof("no .env file loaded: %s", err)
	}

	v := viper.New()
	setDefaults(v)
	v.AddConfigPath(dir)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.SetEnvPrefix("HASHPAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "read config")
		}
		logrus.Warnf("config file not found in %s, using defaults", dir)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	cfg.DB.Password = os.Getenv("DB_PASSWORD")
	cfg.Redis.Password = os.Getenv("REDIS_PASSWORD")
	cfg.Pricing.APIKey = os.Getenv("PRICE_API_KEY")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.WalletStore {
	case WalletStoreSQL, WalletStoreRedis:
	default:
		return errors.Errorf("wallet_store must be %q or %q, got %q", WalletStoreSQL, WalletStoreRedis, c.WalletStore)
	}
	switch c.DB.Driver {
	case "sqlite3", "postgres":
	default:
		return errors.Errorf("unsupported db.driver %q", c.DB.Driver)
	}
	if c.Chain.RPCURL == "" {
		return errors.New("chain.rpc_url is required")
	}
	return nil
}

// LogLevel falls back to info for unknown names.
func (c *Config) LogLevel() logrus.Level {
	level, err := logrus.ParseLevel(c.Log.Level)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}
