package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatflowers/dukabill/pkg/types"
	"github.com/spf13/viper"
	"go.uber.org/fx"
)

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type DBConfig struct {
	// DSN of the postgres database. Empty keeps everything in memory.
	DSN string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type LogConfig struct {
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

type AdminConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

type SweeperConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
	LeaseTTL time.Duration `mapstructure:"lease_ttl"`
}

type EntitlementConfig struct {
	KeyPrefix string        `mapstructure:"key_prefix"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type StatsConfig struct {
	USDToKSHRate float64       `mapstructure:"usd_to_ksh_rate"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
}

type CallbackConfig struct {
	RateLimit float64 `mapstructure:"rate_limit"`
	RateBurst int     `mapstructure:"rate_burst"`
}

type Env string

const (
	EnvDev  Env = "dev"
	EnvProd Env = "prod"
)

type Config struct {
	Env         Env                    `mapstructure:"env"`
	Server      ServerConfig           `mapstructure:"server"`
	Database    DBConfig               `mapstructure:"database"`
	Redis       RedisConfig            `mapstructure:"redis"`
	Log         LogConfig              `mapstructure:"log"`
	Admin       AdminConfig            `mapstructure:"admin"`
	Sweeper     SweeperConfig          `mapstructure:"sweeper"`
	Entitlement EntitlementConfig      `mapstructure:"entitlement"`
	Stats       StatsConfig            `mapstructure:"stats"`
	Callback    CallbackConfig         `mapstructure:"callback"`
	Plans       []*types.PlanItem      `mapstructure:"plans"`
	Extensions  []*types.ExtensionItem `mapstructure:"extensions"`
	MetricsAddr string                 `mapstructure:"metrics_addr"`
}

func (c *Config) GetPlan(planType types.PlanType) *types.PlanItem {
	for _, item := range c.Plans {
		if item.Type == planType {
			return item
		}
	}
	return nil
}

func (c *Config) GetExtension(kind types.ExtensionKind) *types.ExtensionItem {
	for _, item := range c.Extensions {
		if item.Kind == kind {
			return item
		}
	}
	return nil
}

func New() (*Config, error) {
	v := viper.New()
	// Allow overriding config file via env:
	// - APP_CONFIG_FILE: absolute or relative file path (e.g., /etc/app/prod.yaml)
	// - APP_CONFIG_NAME: config base name without extension (default: "config")
	if file := os.Getenv("APP_CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
	} else {
		cfgName := os.Getenv("APP_CONFIG_NAME")
		if cfgName == "" {
			cfgName = "config"
		}
		v.SetConfigName(cfgName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// no config file at all is fine: defaults and env still apply
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "dev")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8888)
	v.SetDefault("database.dsn", "")
	v.SetDefault("redis.addr", "")
	v.SetDefault("metrics_addr", ":90")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("sweeper.enabled", true)
	v.SetDefault("sweeper.interval", time.Hour)
	v.SetDefault("sweeper.lease_ttl", 5*time.Minute)
	v.SetDefault("entitlement.key_prefix", "entitlement")
	v.SetDefault("entitlement.timeout", 5*time.Second)
	v.SetDefault("stats.usd_to_ksh_rate", 130.0)
	v.SetDefault("stats.cache_ttl", 0)
	v.SetDefault("callback.rate_limit", 20.0)
	v.SetDefault("callback.rate_burst", 40)

	v.SetDefault("plans", []map[string]any{
		{
			"type":          "monthly",
			"name":          "Monthly Plan",
			"duration_days": 30,
			"prices": []map[string]any{
				{"currency": "KSH", "amount": 2000},
				{"currency": "USD", "amount": 10},
			},
		},
		{
			"type":          "yearly",
			"name":          "Yearly Plan",
			"duration_days": 365,
			"prices": []map[string]any{
				{"currency": "KSH", "amount": 20000},
				{"currency": "USD", "amount": 100},
			},
		},
	})
	v.SetDefault("extensions", []map[string]any{
		{"kind": "1-month", "duration_days": 30},
		{"kind": "2-months", "duration_days": 60},
	})
}

var Module = fx.Options(
	fx.Provide(New),
)
