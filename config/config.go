package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Leveling LevelingConfig `mapstructure:"leveling"`
	Game     GameConfig     `mapstructure:"game"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	HTTPAddress    string          `mapstructure:"http_address"`
	RPCAddress     string          `mapstructure:"rpc_address"`
	MonitorAddress string          `mapstructure:"monitor_address"`
	ReadTimeout    time.Duration   `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration   `mapstructure:"write_timeout"`
	RateLimit      RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig bounds requests per client address on the /auth routes.
type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
	Burst             int `mapstructure:"burst"`
	MaxClients        int `mapstructure:"max_clients"`
}

type DatabaseConfig struct {
	Driver       string         `mapstructure:"driver"`
	Postgres     PostgresConfig `mapstructure:"postgres"`
	SQLite       SQLiteConfig   `mapstructure:"sqlite"`
	MaxIdleConns int            `mapstructure:"max_idle_conns"`
	MaxOpenConns int            `mapstructure:"max_open_conns"`
	TxTimeout    time.Duration  `mapstructure:"tx_timeout"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN renders the lib/pq connection string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode)
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type AuthConfig struct {
	JWTSecret  string        `mapstructure:"jwt_secret"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
	BcryptCost int           `mapstructure:"bcrypt_cost"`
}

type LevelingConfig struct {
	BaseXP             int     `mapstructure:"base_xp"`
	Growth             float64 `mapstructure:"growth"`
	StatPointsPerLevel int     `mapstructure:"stat_points_per_level"`
}

type GameConfig struct {
	Timezone      string        `mapstructure:"timezone"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	SweepBatch    int           `mapstructure:"sweep_batch"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_address", ":8080")
	v.SetDefault("server.rpc_address", ":8081")
	v.SetDefault("server.monitor_address", ":9090")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.rate_limit.requests_per_minute", 30)
	v.SetDefault("server.rate_limit.burst", 10)
	v.SetDefault("server.rate_limit.max_clients", 10000)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "postgres")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.dbname", "sololeveling")
	v.SetDefault("database.postgres.sslmode", "disable")
	v.SetDefault("database.sqlite.path", "sololeveling.db")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.tx_timeout", 5*time.Second)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", 7*24*time.Hour)
	v.SetDefault("auth.bcrypt_cost", 10)

	v.SetDefault("leveling.base_xp", 100)
	v.SetDefault("leveling.growth", 1.25)
	v.SetDefault("leveling.stat_points_per_level", 5)

	v.SetDefault("game.timezone", "UTC")
	v.SetDefault("game.sweep_interval", 0)
	v.SetDefault("game.sweep_batch", 100)

	v.SetDefault("log.level", "info")
}

// LoadConfig reads config.yaml from path when present, then applies SOLO_*
// environment overrides (SOLO_AUTH_JWT_SECRET sets auth.jwt_secret).
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("SOLO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first setting that would keep the server from running.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("config: unsupported database.driver %q", c.Database.Driver)
	}
	rl := c.Server.RateLimit
	if rl.RequestsPerMinute <= 0 || rl.Burst <= 0 || rl.MaxClients <= 0 {
		return errors.New("config: server.rate_limit values must be positive")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("config: auth.jwt_secret is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("config: auth.token_ttl must be positive")
	}
	if c.Leveling.BaseXP <= 0 {
		return errors.New("config: leveling.base_xp must be positive")
	}
	if c.Leveling.Growth <= 1 {
		return errors.New("config: leveling.growth must be greater than 1")
	}
	if c.Leveling.StatPointsPerLevel < 0 {
		return errors.New("config: leveling.stat_points_per_level must not be negative")
	}
	if _, err := time.LoadLocation(c.Game.Timezone); err != nil {
		return fmt.Errorf("config: game.timezone: %w", err)
	}
	return nil
}

// Location returns the time zone that defines a calendar day for daily resets.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Game.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
