package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// The values are read by Viper from a config file or environment variables.
type Config struct {
	Server    ServerConfig   `mapstructure:"server"`
	Database  DatabaseConfig `mapstructure:"database"`
	S3        S3Config       `mapstructure:"s3"`
	JWT       JWTConfig      `mapstructure:"jwt"`
	Admin     AdminConfig    `mapstructure:"admin"`
	Redis     RedisConfig    `mapstructure:"redis"`
	Schedule  ScheduleConfig `mapstructure:"schedule"`
	Advisor   LLMConfig      `mapstructure:"advisor"`
	Generator LLMConfig      `mapstructure:"generator"`
	Log       LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

type DatabaseConfig struct {
	URI  string `mapstructure:"uri"`
	Name string `mapstructure:"name"`
}

// S3Config points at the bucket that keeps archived plan versions.
// An empty bucket name disables archiving.
type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

// JWTConfig defines JWT specific configuration
type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Expiration time.Duration `mapstructure:"expiration"`
}

// AdminConfig seeds one admin account at startup. Empty Email skips it.
type AdminConfig struct {
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
}

// RedisConfig enables the distributed repair lock. Empty Addr falls back to
// an in-process lock (single instance deployments).
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	LockTTL  time.Duration `mapstructure:"lock_ttl"`
}

// ScheduleConfig controls the local calendar and the daily renewal run.
type ScheduleConfig struct {
	Timezone           string        `mapstructure:"timezone"`
	RenewalCron        string        `mapstructure:"renewal_cron"` // robfig/cron spec, seconds first
	RenewalConcurrency int           `mapstructure:"renewal_concurrency"`
	RenewalTaskTimeout time.Duration `mapstructure:"renewal_task_timeout"`
}

// Location resolves Timezone; an empty value means UTC.
func (s ScheduleConfig) Location() (*time.Location, error) {
	if s.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(s.Timezone)
}

// LLMConfig configures an OpenAI-compatible chat completions endpoint.
type LLMConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type LogConfig struct {
	Mode string `mapstructure:"mode"` // "development" or "production"
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// server.address -> SERVER_ADDRESS, schedule.renewal_cron -> SCHEDULE_RENEWAL_CRON
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))

	// Every key gets a default so AutomaticEnv can find it during Unmarshal.
	v.SetDefault("server.address", ":8080")
	v.SetDefault("database.uri", "mongodb://localhost:27017")
	v.SetDefault("database.name", "routine_planner")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.access_key_id", "")
	v.SetDefault("s3.secret_access_key", "")
	v.SetDefault("s3.bucket_name", "")
	v.SetDefault("s3.use_ssl", true)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiration", "1h")
	v.SetDefault("admin.email", "")
	v.SetDefault("admin.password", "")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.lock_ttl", "60s")
	v.SetDefault("schedule.timezone", "UTC")
	v.SetDefault("schedule.renewal_cron", "0 5 0 * * *") // 00:05:00 every day
	v.SetDefault("schedule.renewal_concurrency", 4)
	v.SetDefault("schedule.renewal_task_timeout", "2m")
	v.SetDefault("advisor.base_url", "https://api.openai.com/v1")
	v.SetDefault("advisor.api_key", "")
	v.SetDefault("advisor.model", "gpt-4o-mini")
	v.SetDefault("advisor.timeout", "20s")
	v.SetDefault("generator.base_url", "https://api.openai.com/v1")
	v.SetDefault("generator.api_key", "")
	v.SetDefault("generator.model", "gpt-4o-mini")
	v.SetDefault("generator.timeout", "90s")
	v.SetDefault("log.mode", "development")

	err = v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		// No file; defaults and env vars only.
		err = nil
	} else if err != nil {
		return
	}

	if err = v.Unmarshal(&config); err != nil {
		return
	}
	if _, err = config.Schedule.Location(); err != nil {
		return
	}
	return config, nil
}
