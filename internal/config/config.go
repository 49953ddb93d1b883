package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/ikraamdaanis/discourse/internal/cache"
	"github.com/ikraamdaanis/discourse/internal/pubsub"
	"github.com/ikraamdaanis/discourse/internal/session"
	pkgconfig "github.com/ikraamdaanis/discourse/pkg/config"
	"github.com/ikraamdaanis/discourse/pkg/database"
	"github.com/ikraamdaanis/discourse/pkg/log"
)

type Config struct {
	Server    ServerConfig
	Database  database.Config
	PubSub    pubsub.Config
	Cache     CacheConfig
	WebSocket WebSocketConfig
	History   HistoryConfig
	Session   session.Config
	Log       log.Config
}

type ServerConfig struct {
	Host string
	Port int
}

type WebSocketConfig struct {
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
}

type CacheConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Redis   cache.Config
}

type HistoryConfig struct {
	PageSize    int `mapstructure:"page_size"`
	MaxPageSize int `mapstructure:"max_page_size"`
}

func Load() (*Config, error) {
	v, err := pkgconfig.Load("./config", "config")
	if err != nil {
		return nil, err
	}

	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "discourse")
	v.SetDefault("database.dbname", "discourse")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("pubsub.driver", "memory")
	v.SetDefault("pubsub.redis.address", "localhost:6379")
	v.SetDefault("pubsub.kafka.brokers", "localhost:9092")
	v.SetDefault("pubsub.kafka.topic", "chat-events")
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.redis.address", "localhost:6379")
	v.SetDefault("cache.redis.prefix", "chat:pages")
	v.SetDefault("cache.redis.ttl", "5m")
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.pong_wait", "60s")
	v.SetDefault("websocket.write_wait", "10s")
	v.SetDefault("websocket.max_message_size", 4096)
	v.SetDefault("history.page_size", 15)
	v.SetDefault("history.max_page_size", 50)
	v.SetDefault("session.initial_backoff", "500ms")
	v.SetDefault("session.max_backoff", "30s")
	v.SetDefault("session.max_attempts", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.service_name", "discourse")

	// Override from environment
	v.BindEnv("server.port", "PORT")
	v.BindEnv("database.host", "DATABASE_HOST")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("pubsub.driver", "PUBSUB_DRIVER")
	v.BindEnv("pubsub.redis.address", "REDIS_ADDRESS")
	v.BindEnv("pubsub.kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("cache.redis.address", "CACHE_REDIS_ADDRESS")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Parse durations
	cfg.WebSocket.PingInterval = parseDuration(v, "websocket.ping_interval", 30*time.Second)
	cfg.WebSocket.PongWait = parseDuration(v, "websocket.pong_wait", 60*time.Second)
	cfg.WebSocket.WriteWait = parseDuration(v, "websocket.write_wait", 10*time.Second)
	cfg.Cache.Redis.TTL = parseDuration(v, "cache.redis.ttl", 5*time.Minute)
	cfg.Session.InitialBackoff = parseDuration(v, "session.initial_backoff", 500*time.Millisecond)
	cfg.Session.MaxBackoff = parseDuration(v, "session.max_backoff", 30*time.Second)

	return &cfg, nil
}

func parseDuration(v *viper.Viper, key string, defaultVal time.Duration) time.Duration {
	str := v.GetString(key)
	d, err := time.ParseDuration(str)
	if err != nil {
		return defaultVal
	}
	return d
}
