package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Log struct {
		Level     string
		Format    string
		Component string
		Source    bool
	}

	DB struct {
		DSN      string
		Host     string
		Port     string
		User     string
		Password string
		Name     string
	}

	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	HTTP struct {
		Host string
		Port string
	}

	Auth struct {
		JWTSecret string
	}

	Match struct {
		// CandidateLimit is the default page size for candidate fetches
		// when the client does not ask for one.
		CandidateLimit int
		// CounterTTL bounds how long cached unread/like counters live.
		CounterTTLSeconds int
		// ReconcileSpec is the cron schedule for the mutual-like
		// reconciliation sweep.
		ReconcileSpec string
	}
}

// New loads configuration from environment variables (and an optional .env
// file in the working directory), falling back to development defaults.
func New() *Config {
	v := viper.New()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		log.Println("no .env file found, reading environment only")
	}

	setDefaults(v)

	cfg := &Config{}

	cfg.Log.Level = v.GetString("LOG_LEVEL")
	cfg.Log.Format = v.GetString("LOG_FORMAT")
	cfg.Log.Component = v.GetString("LOG_COMPONENT")
	cfg.Log.Source = v.GetBool("LOG_SOURCE")

	cfg.DB.DSN = strings.TrimSpace(v.GetString("MYSQL_DSN"))
	if cfg.DB.DSN == "" {
		cfg.DB.Host = v.GetString("DB_HOST")
		cfg.DB.Port = v.GetString("DB_PORT")
		cfg.DB.User = v.GetString("DB_USER")
		cfg.DB.Password = v.GetString("DB_PASSWORD")
		cfg.DB.Name = v.GetString("DB_NAME")

		cfg.DB.DSN = fmt.Sprintf(
			"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
			cfg.DB.User, cfg.DB.Password, cfg.DB.Host, cfg.DB.Port, cfg.DB.Name,
		)
	}

	cfg.Redis.Addr = v.GetString("REDIS_ADDR")
	cfg.Redis.Password = v.GetString("REDIS_PASSWORD")
	cfg.Redis.DB = v.GetInt("REDIS_DB")

	cfg.HTTP.Host = v.GetString("HTTP_HOST")
	cfg.HTTP.Port = v.GetString("HTTP_PORT")

	cfg.Auth.JWTSecret = v.GetString("JWT_SECRET")

	cfg.Match.CandidateLimit = v.GetInt("MATCH_CANDIDATE_LIMIT")
	cfg.Match.CounterTTLSeconds = v.GetInt("MATCH_COUNTER_TTL_SECONDS")
	cfg.Match.ReconcileSpec = v.GetString("MATCH_RECONCILE_SPEC")

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("LOG_COMPONENT", "http_server")
	v.SetDefault("LOG_SOURCE", false)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "3306")
	v.SetDefault("DB_USER", "root")
	v.SetDefault("DB_PASSWORD", "root")
	v.SetDefault("DB_NAME", "fitmatch")

	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("HTTP_HOST", "127.0.0.1")
	v.SetDefault("HTTP_PORT", "8080")

	v.SetDefault("JWT_SECRET", "dev-secret-change-me")

	v.SetDefault("MATCH_CANDIDATE_LIMIT", 10)
	v.SetDefault("MATCH_COUNTER_TTL_SECONDS", 3600)
	v.SetDefault("MATCH_RECONCILE_SPEC", "@every 1m")
}
