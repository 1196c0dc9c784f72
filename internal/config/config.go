// Package config loads service configuration from the environment.
// Every knob has a documented default; an unset environment is a fully
// working local configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	// Cache providers.
	ProviderRedis  = "redis"
	ProviderMemory = "memory"
	ProviderOff    = "off"
)

type Config struct {
	ListenAddr string // LISTEN_ADDR, default ":5000"

	MongoHost string // MONGO_HOST, default "localhost"
	MongoPort int    // MONGO_PORT, default 27017

	RedisHost string // REDIS_HOST, default "localhost"
	RedisPort int    // REDIS_PORT, default 6379

	CacheProvider string        // CACHE_PROVIDER: redis|memory|off, default redis
	CacheCodec    string        // CACHE_CODEC: json|msgpack|cbor, default json
	CacheTTL      time.Duration // CACHE_TTL, default 300s

	EnrichDelay time.Duration // ENRICH_DELAY, default 100ms
}

func FromEnv() (Config, error) {
	cfg := Config{
		ListenAddr:    getenv("LISTEN_ADDR", ":5000"),
		MongoHost:     getenv("MONGO_HOST", "localhost"),
		RedisHost:     getenv("REDIS_HOST", "localhost"),
		CacheProvider: getenv("CACHE_PROVIDER", ProviderRedis),
		CacheCodec:    getenv("CACHE_CODEC", "json"),
	}

	var err error
	if cfg.MongoPort, err = intEnv("MONGO_PORT", 27017); err != nil {
		return Config{}, err
	}
	if cfg.RedisPort, err = intEnv("REDIS_PORT", 6379); err != nil {
		return Config{}, err
	}
	if cfg.CacheTTL, err = durEnv("CACHE_TTL", 300*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.EnrichDelay, err = durEnv("ENRICH_DELAY", 100*time.Millisecond); err != nil {
		return Config{}, err
	}

	switch cfg.CacheProvider {
	case ProviderRedis, ProviderMemory, ProviderOff:
	default:
		return Config{}, fmt.Errorf("config: unknown CACHE_PROVIDER %q", cfg.CacheProvider)
	}
	return cfg, nil
}

func (c Config) MongoAddr() string {
	return fmt.Sprintf("%s:%d", c.MongoHost, c.MongoPort)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}

func durEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}
