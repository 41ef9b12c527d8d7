package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Port                  string
	AllowedOrigin         string
	DatabaseDriver        string
	DatabaseURL           string
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	AuthSecret            string
	AccessTokenTTLMinutes int
	LoginMaxAttempts      int
	LoginWindowSeconds    int
	LogLevel              string
	LogFormat             string
	TopProductsLimit      int
}

// Load reads the environment, optionally overlaid on a .env file in the
// working directory. Secrets have no defaults.
func Load() Config {
	return load(".env")
}

func load(envFile string) Config {
	v := viper.New()
	v.SetConfigFile(envFile)
	v.SetConfigType("env")
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		var pathErr *fs.PathError
		if !errors.As(err, &pathErr) {
			log.Warn().Err(err).Str("file", envFile).Msg("ignoring unreadable env file")
		}
	}

	v.SetDefault("PORT", "8080")
	v.SetDefault("ALLOWED_ORIGIN", "http://127.0.0.1:3000")
	v.SetDefault("DATABASE_DRIVER", "postgres")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("ACCESS_TOKEN_TTL_MINUTES", 480)
	v.SetDefault("LOGIN_MAX_ATTEMPTS", 5)
	v.SetDefault("LOGIN_WINDOW_SECONDS", 300)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("TOP_PRODUCTS_LIMIT", 5)

	return Config{
		Port:                  v.GetString("PORT"),
		AllowedOrigin:         v.GetString("ALLOWED_ORIGIN"),
		DatabaseDriver:        strings.ToLower(strings.TrimSpace(v.GetString("DATABASE_DRIVER"))),
		DatabaseURL:           strings.TrimSpace(v.GetString("DATABASE_URL")),
		RedisAddr:             v.GetString("REDIS_ADDR"),
		RedisPassword:         v.GetString("REDIS_PASSWORD"),
		RedisDB:               v.GetInt("REDIS_DB"),
		AuthSecret:            strings.TrimSpace(v.GetString("AUTH_SECRET")),
		AccessTokenTTLMinutes: positiveOr(v.GetInt("ACCESS_TOKEN_TTL_MINUTES"), 480),
		LoginMaxAttempts:      positiveOr(v.GetInt("LOGIN_MAX_ATTEMPTS"), 5),
		LoginWindowSeconds:    positiveOr(v.GetInt("LOGIN_WINDOW_SECONDS"), 300),
		LogLevel:              strings.ToLower(v.GetString("LOG_LEVEL")),
		LogFormat:             strings.ToLower(v.GetString("LOG_FORMAT")),
		TopProductsLimit:      positiveOr(v.GetInt("TOP_PRODUCTS_LIMIT"), 5),
	}
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func positiveOr(value int, fallback int) int {
	if value < 1 {
		return fallback
	}
	return value
}
