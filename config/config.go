package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration settings for the service
type Config struct {
	Environment string          `mapstructure:"environment"`
	Server      ServerConfig    `mapstructure:"server"`
	Log         LogConfig       `mapstructure:"log"`
	Database    DatabaseConfig  `mapstructure:"database"`
	Redis       RedisConfig     `mapstructure:"redis"`
	RocketMQ    RocketMQConfig  `mapstructure:"rocketmq"`
	Voting      VotingConfig    `mapstructure:"voting"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
	Scheduler   SchedConfig     `mapstructure:"scheduler"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowOrigins    []string      `mapstructure:"allow_origins"`
}

// LogConfig holds logging configuration. An empty OutputPath logs to stdout.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	MaxSize    int    `mapstructure:"max_size"` // megabytes
	MaxAge     int    `mapstructure:"max_age"`  // days
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
	Debug      bool   `mapstructure:"debug"`
}

// DatabaseConfig selects the gorm dialector. Driver is one of mysql, postgres or sqlite.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	SlowThreshold   time.Duration `mapstructure:"slow_threshold"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// RedisConfig enables the shared cache, the submission lock and the Redis event queue.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
	Queue    string `mapstructure:"queue"`
}

type RocketMQConfig struct {
	Enabled     bool     `mapstructure:"enabled"`
	NameServers []string `mapstructure:"name_servers"`
	GroupName   string   `mapstructure:"group_name"`
	Topic       string   `mapstructure:"topic"`
	Retries     int      `mapstructure:"retries"`
}

// VotingConfig holds the cache and lock policy of the voting core
type VotingConfig struct {
	ResultsCacheTTL time.Duration `mapstructure:"results_cache_ttl"`
	StatusCacheTTL  time.Duration `mapstructure:"status_cache_ttl"`
	SubmitLockTTL   time.Duration `mapstructure:"submit_lock_ttl"`
	SearchLimit     int           `mapstructure:"search_limit"`
	SearchMaxLimit  int           `mapstructure:"search_max_limit"`
}

// RateLimitConfig throttles ballot submissions per voter
type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	Rate    float64 `mapstructure:"rate"`
	Burst   int     `mapstructure:"burst"`
}

type SchedConfig struct {
	Enabled          bool   `mapstructure:"enabled"`
	AutoCloseExpired bool   `mapstructure:"auto_close_expired"`
	AutoCloseSpec    string `mapstructure:"auto_close_spec"`
	CachePurgeSpec   string `mapstructure:"cache_purge_spec"`
}

// Load reads the configuration file and environment variables.
// An empty path relies on defaults and the environment only.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	v.SetEnvPrefix("VOTING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("server.port", "8090")
	v.SetDefault("server.shutdown_timeout", "5s")
	v.SetDefault("server.allow_origins", []string{"*"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.output_path", "")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_age", 30)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.compress", true)
	v.SetDefault("log.debug", false)

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.dsn", "voteuser:votepassword@tcp(mysql:3306)/votingdb?charset=utf8mb4&parseTime=True&loc=UTC")
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.slow_threshold", "1s")
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.queue", "voting_events")

	v.SetDefault("rocketmq.enabled", false)
	v.SetDefault("rocketmq.name_servers", []string{"localhost:9876"})
	v.SetDefault("rocketmq.group_name", "voting_producer")
	v.SetDefault("rocketmq.topic", "voting_events")
	v.SetDefault("rocketmq.retries", 2)

	v.SetDefault("voting.results_cache_ttl", "5m")
	v.SetDefault("voting.status_cache_ttl", "30s")
	v.SetDefault("voting.submit_lock_ttl", "10s")
	v.SetDefault("voting.search_limit", 20)
	v.SetDefault("voting.search_max_limit", 500)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.rate", 1.0)
	v.SetDefault("rate_limit.burst", 3)

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.auto_close_expired", false)
	v.SetDefault("scheduler.auto_close_spec", "0 * * * * *")
	v.SetDefault("scheduler.cache_purge_spec", "0 */5 * * * *")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := c.validateDatabase(); err != nil {
		return fmt.Errorf("database config: %w", err)
	}
	if err := c.validateVoting(); err != nil {
		return fmt.Errorf("voting config: %w", err)
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis config: addr cannot be empty when enabled")
	}
	if c.RocketMQ.Enabled && len(c.RocketMQ.NameServers) == 0 {
		return fmt.Errorf("rocketmq config: name_servers cannot be empty when enabled")
	}
	if c.RateLimit.Enabled && (c.RateLimit.Rate <= 0 || c.RateLimit.Burst <= 0) {
		return fmt.Errorf("rate_limit config: rate and burst must be positive")
	}
	return nil
}

func (c *Config) validateDatabase() error {
	switch c.Database.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("dsn cannot be empty")
	}
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("max_open_conns must be positive")
	}
	return nil
}

func (c *Config) validateVoting() error {
	if c.Voting.ResultsCacheTTL <= 0 {
		return fmt.Errorf("results_cache_ttl must be positive")
	}
	if c.Voting.StatusCacheTTL <= 0 {
		return fmt.Errorf("status_cache_ttl must be positive")
	}
	if c.Voting.SearchMaxLimit <= 0 {
		return fmt.Errorf("search_max_limit must be positive")
	}
	if c.Voting.SearchLimit <= 0 || c.Voting.SearchLimit > c.Voting.SearchMaxLimit {
		return fmt.Errorf("search_limit must be between 1 and %d", c.Voting.SearchMaxLimit)
	}
	return nil
}

// IsProduction reports whether the service runs in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
