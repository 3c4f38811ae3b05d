package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Notify    NotifyConfig
	Directory DirectoryConfig
	Mail      MailConfig
	WhatsApp  WhatsAppConfig
}

type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type RateLimitConfig struct {
	BatchPerMin int
}

type NotifyConfig struct {
	Workers      int
	SendTimeout  time.Duration
	MaxBatchSize int
	RatePerSec   int
	JobTTL       time.Duration
	JobMax       int
	JanitorEvery time.Duration
}

type DirectoryConfig struct {
	BaseURL string
	APIKey  string
}

type MailConfig struct {
	APIURL string
	APIKey string
	Sender string
}

type WhatsAppConfig struct {
	APIURL   string
	APIKey   string
	Template string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Defaults
	viper.SetDefault("server.port", "3000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("ratelimit.batch_per_min", 10)
	viper.SetDefault("notify.workers", 5)
	viper.SetDefault("notify.send_timeout", "15s")
	viper.SetDefault("notify.max_batch_size", 50)
	viper.SetDefault("notify.rate_per_sec", 10)
	viper.SetDefault("notify.job_ttl", "24h")
	viper.SetDefault("notify.job_max", 500)
	viper.SetDefault("notify.janitor_every", "1m")
	viper.SetDefault("directory.base_url", "")
	viper.SetDefault("directory.api_key", "")
	viper.SetDefault("mail.api_url", "")
	viper.SetDefault("mail.api_key", "")
	viper.SetDefault("mail.sender", "no-reply@sitegate.app")
	viper.SetDefault("whatsapp.api_url", "")
	viper.SetDefault("whatsapp.api_key", "")
	viper.SetDefault("whatsapp.template", "account_credentials")

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:     viper.GetString("server.port"),
			Env:      viper.GetString("server.env"),
			LogLevel: viper.GetString("server.log_level"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		RateLimit: RateLimitConfig{
			BatchPerMin: viper.GetInt("ratelimit.batch_per_min"),
		},
		Notify: NotifyConfig{
			Workers:      viper.GetInt("notify.workers"),
			SendTimeout:  viper.GetDuration("notify.send_timeout"),
			MaxBatchSize: viper.GetInt("notify.max_batch_size"),
			RatePerSec:   viper.GetInt("notify.rate_per_sec"),
			JobTTL:       viper.GetDuration("notify.job_ttl"),
			JobMax:       viper.GetInt("notify.job_max"),
			JanitorEvery: viper.GetDuration("notify.janitor_every"),
		},
		Directory: DirectoryConfig{
			BaseURL: viper.GetString("directory.base_url"),
			APIKey:  viper.GetString("directory.api_key"),
		},
		Mail: MailConfig{
			APIURL: viper.GetString("mail.api_url"),
			APIKey: viper.GetString("mail.api_key"),
			Sender: viper.GetString("mail.sender"),
		},
		WhatsApp: WhatsAppConfig{
			APIURL:   viper.GetString("whatsapp.api_url"),
			APIKey:   viper.GetString("whatsapp.api_key"),
			Template: viper.GetString("whatsapp.template"),
		},
	}

	return cfg, nil
}
