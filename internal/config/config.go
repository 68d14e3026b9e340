package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                  string
	AllowedOrigin         string
	DatabaseURL           string
	MigrateOnStart        bool
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	StatsCacheTTLSeconds  int
	AuthSecret            string
	AdminUsername         string
	AdminPasswordHash     string
	AccessTokenTTLMinutes int
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() Config {
	_ = godotenv.Load()

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	statsTTL, err := strconv.Atoi(getEnv("STATS_CACHE_TTL_SECONDS", "300"))
	if err != nil || statsTTL < 1 {
		statsTTL = 300
	}
	tokenTTL, err := strconv.Atoi(getEnv("ACCESS_TOKEN_TTL_MINUTES", "480"))
	if err != nil || tokenTTL < 1 {
		tokenTTL = 480
	}
	migrateOnStart, err := strconv.ParseBool(getEnv("MIGRATE_ON_START", "true"))
	if err != nil {
		migrateOnStart = true
	}

	return Config{
		Port:                  getEnv("PORT", "8080"),
		AllowedOrigin:         getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		MigrateOnStart:        migrateOnStart,
		RedisAddr:             os.Getenv("REDIS_ADDR"),
		RedisPassword:         os.Getenv("REDIS_PASSWORD"),
		RedisDB:               redisDB,
		StatsCacheTTLSeconds:  statsTTL,
		AuthSecret:            strings.TrimSpace(os.Getenv("AUTH_SECRET")),
		AdminUsername:         getEnv("ADMIN_USERNAME", "admin"),
		AdminPasswordHash:     strings.TrimSpace(os.Getenv("ADMIN_PASSWORD_HASH")),
		AccessTokenTTLMinutes: tokenTTL,
	}
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

// AuthEnabled reports whether the API should require a bearer token.
func (c Config) AuthEnabled() bool {
	return c.AuthSecret != ""
}

func getEnv(key string, fallback string) string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	return val
}
