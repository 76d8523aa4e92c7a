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
	HTTPAddr    string
	MetricsAddr string
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string
	CacheTTL    time.Duration

	CatalogBase  string
	CatalogKey   string
	CatalogRPS   int
	SyncPageSize int
	SyncWorkers  int
	SyncDetails  bool

	FXBase         string
	FXKey          string
	FXBaseCurrency string
	DefaultCcy     string

	TranslateBase string
	TranslateKey  string
}

// Load reads the environment, after merging an optional .env file (existing vars win).
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg(".env could not be parsed")
	}

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ":9100"),
		MySQLDSN:    env("MYSQL_DSN", "root:root@tcp(localhost:3306)/dubaihaus?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:   env("REDIS_ADDR", "localhost:6379"),
		RedisPass:   env("REDIS_PASSWORD", ""),
		RedisDB:     atoi("REDIS_DB", 0),
		CacheTTL:    time.Duration(atoi("CACHE_TTL_SECONDS", 300)) * time.Second,

		CatalogBase:  env("CATALOG_BASE_URL", "https://api.reelly.io/api/v1"),
		CatalogKey:   env("CATALOG_API_KEY", ""),
		CatalogRPS:   atoi("CATALOG_RPS", 5),
		SyncPageSize: atoi("SYNC_PAGE_SIZE", 100),
		SyncWorkers:  atoi("SYNC_WORKERS", 4),
		SyncDetails:  envBool("SYNC_FETCH_DETAILS", false),

		FXBase:         env("FX_BASE_URL", "https://v6.exchangerate-api.com/v6"),
		FXKey:          env("FX_API_KEY", ""),
		FXBaseCurrency: strings.ToUpper(env("FX_BASE_CURRENCY", "AED")),
		DefaultCcy:     strings.ToUpper(env("DEFAULT_CURRENCY", "AED")),

		TranslateBase: env("TRANSLATE_BASE_URL", "https://api-free.deepl.com"),
		TranslateKey:  env("TRANSLATE_API_KEY", ""),
	}
	if c.CatalogKey == "" {
		log.Warn().Msg("CATALOG_API_KEY is empty")
	}
	if c.FXKey == "" {
		log.Warn().Msg("FX_API_KEY is empty; currency conversion will fall back to source prices")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envBool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
