package shared

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	LogLevel    string
	HTTPAddr    string
	MetricsAddr string

	StoreBackend string // firebase|redis|mysql
	AuthMode     string // firebase|header

	FirebaseProjectID   string
	FirebaseDatabaseURL string
	FirebaseCredentials string

	MySQLDSN  string
	RedisAddr string
	RedisDB   int
	RedisPass string

	GeminiBase  string
	GeminiKey   string
	GeminiModel string
	GeminiRPS   int

	RefreshInterval time.Duration
	RefreshSeason   string

	SeedFile       string
	SeedStartIndex int
	SeedWorkers    int
}

func Load() Config {
	// a missing .env is fine; real env vars win over it
	_ = godotenv.Load()

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	c := Config{
		AppEnv:              env("APP_ENV", "prod"),
		LogLevel:            env("LOG_LEVEL", ""),
		HTTPAddr:            env("HTTP_ADDR", ":8080"),
		MetricsAddr:         env("METRICS_ADDR", ""),
		StoreBackend:        strings.ToLower(env("STORE_BACKEND", "firebase")),
		AuthMode:            strings.ToLower(env("AUTH_MODE", "firebase")),
		FirebaseProjectID:   env("FIREBASE_PROJECT_ID", ""),
		FirebaseDatabaseURL: env("FIREBASE_DATABASE_URL", ""),
		FirebaseCredentials: env("FIREBASE_CREDENTIALS", ""),
		MySQLDSN:            env("MYSQL_DSN", "root:root@tcp(localhost:3306)/nanjing?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:           env("REDIS_ADDR", "localhost:6379"),
		RedisPass:           env("REDIS_PASSWORD", ""),
		RedisDB:             atoi("REDIS_DB", 0),
		GeminiBase:          env("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
		GeminiKey:           env("GEMINI_API_KEY", ""),
		GeminiModel:         env("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiRPS:           atoi("GEMINI_RPS", 2),
		RefreshInterval:     time.Duration(atoi("REFRESH_INTERVAL_SECONDS", 0)) * time.Second,
		RefreshSeason:       env("REFRESH_SEASON", ""),
		SeedFile:            env("SEED_FILE", "locations.json"),
		SeedStartIndex:      atoi("SEED_START_INDEX", 0),
		SeedWorkers:         atoi("SEED_WORKERS", 4),
	}
	if c.GeminiKey == "" {
		log.Warn().Msg("GEMINI_API_KEY is empty; chat endpoints will be disabled")
	}
	if c.AuthMode == "header" && c.AppEnv != "dev" && c.AppEnv != "development" {
		log.Warn().Str("env", c.AppEnv).Msg("AUTH_MODE=header trusts client headers; forcing firebase outside dev")
		c.AuthMode = "firebase"
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
