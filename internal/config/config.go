package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Presence backends.
const (
	PresenceMemory = "memory"
	PresenceRedis  = "redis"
)

const defaultJWTSecret = "secret"

// Config holds all configuration for the server.
type Config struct {
	Port        string
	Env         string
	DatabaseURL string
	RedisURL    string
	JWTSecret   string

	PresenceBackend string

	KafkaBrokers []string
	KafkaTopic   string

	HistoryTTL   time.Duration
	HistoryLimit int
	SendBuffer   int
	CORSOrigins  string
}

// Load reads configuration from the environment, after loading .env when
// present.
func Load() (*Config, error) {
	// Ignore a missing .env (e.g. in production)
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)
	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "3001")
	v.SetDefault("ENV", "development")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("JWT_SECRET", defaultJWTSecret)
	v.SetDefault("PRESENCE_BACKEND", PresenceMemory)
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_TOPIC", "chat.message-events")
	v.SetDefault("HISTORY_TTL", "60s")
	v.SetDefault("HISTORY_LIMIT", 50)
	v.SetDefault("WS_SEND_BUFFER", 64)
	v.SetDefault("CORS_ORIGINS", "*")
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Port:            v.GetString("PORT"),
		Env:             v.GetString("ENV"),
		DatabaseURL:     v.GetString("DATABASE_URL"),
		RedisURL:        v.GetString("REDIS_URL"),
		JWTSecret:       v.GetString("JWT_SECRET"),
		PresenceBackend: strings.ToLower(v.GetString("PRESENCE_BACKEND")),
		KafkaBrokers:    splitList(v.GetString("KAFKA_BROKERS")),
		KafkaTopic:      v.GetString("KAFKA_TOPIC"),
		HistoryTTL:      v.GetDuration("HISTORY_TTL"),
		HistoryLimit:    v.GetInt("HISTORY_LIMIT"),
		SendBuffer:      v.GetInt("WS_SEND_BUFFER"),
		CORSOrigins:     v.GetString("CORS_ORIGINS"),
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.PresenceBackend {
	case PresenceMemory:
	case PresenceRedis:
		if c.RedisURL == "" {
			return errors.New("PRESENCE_BACKEND=redis requires REDIS_URL")
		}
	default:
		return fmt.Errorf("unknown PRESENCE_BACKEND %q", c.PresenceBackend)
	}
	if c.HistoryTTL <= 0 {
		return fmt.Errorf("HISTORY_TTL must be positive, got %s", c.HistoryTTL)
	}
	if c.HistoryLimit <= 0 || c.SendBuffer <= 0 {
		return errors.New("HISTORY_LIMIT and WS_SEND_BUFFER must be positive")
	}

	// In production, require real backing services and a real secret
	if c.Env == "production" {
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required in production")
		}
		if c.JWTSecret == "" || c.JWTSecret == defaultJWTSecret {
			return errors.New("JWT_SECRET must be set in production")
		}
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func splitList(s string) []string {
	var out []string
	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry != "" {
			out = append(out, entry)
		}
	}
	return out
}
