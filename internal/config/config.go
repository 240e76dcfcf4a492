package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	APIBaseURL         string
	EventsURL          string
	StoreMode          string
	StateFile          string
	StateEncryptionKey string
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	RedisKeyPrefix     string
	HTTPTimeout        time.Duration
	RefreshSkew        time.Duration
	PageSize           int
	CheckoutHoldTTL    time.Duration

	// Devserver settings, used only by cmd/devserver.
	DevListenAddr string
	DevJWTSecret  string
	DevAccessTTL  time.Duration
}

func Load() Config {
	return Config{
		APIBaseURL:         getEnv("STOREFRONT_API_URL", "http://localhost:5000/api"),
		EventsURL:          getEnv("STOREFRONT_EVENTS_URL", "ws://localhost:5000/events"),
		StoreMode:          getEnv("STOREFRONT_STORE_MODE", "file"),
		StateFile:          getEnv("STOREFRONT_STATE_FILE", ".storefront.json"),
		StateEncryptionKey: getEnv("STOREFRONT_STATE_KEY", ""),
		RedisAddr:          getEnv("STOREFRONT_REDIS_ADDR", ""),
		RedisPassword:      getEnv("STOREFRONT_REDIS_PASSWORD", ""),
		RedisDB:            getInt("STOREFRONT_REDIS_DB", 0),
		RedisKeyPrefix:     getEnv("STOREFRONT_REDIS_PREFIX", "storefront:"),
		HTTPTimeout:        getDuration("STOREFRONT_HTTP_TIMEOUT", 10*time.Second),
		RefreshSkew:        getDuration("STOREFRONT_REFRESH_SKEW", 30*time.Second),
		PageSize:           getInt("STOREFRONT_PAGE_SIZE", 5),
		CheckoutHoldTTL:    getDuration("STOREFRONT_CHECKOUT_HOLD_TTL", 5*time.Minute),
		DevListenAddr:      getEnv("STOREFRONT_DEV_LISTEN_ADDR", ":5000"),
		DevJWTSecret:       getEnv("STOREFRONT_DEV_JWT_SECRET", "dev-secret"),
		DevAccessTTL:       getDuration("STOREFRONT_DEV_ACCESS_TTL", 15*time.Minute),
	}
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
