package config

// Redis backs the selection store, the swap journal, rate limiting and the
// layout cache.  If the server cannot be reached at startup the client is
// nil and callers fall back to in-process stores and disable the rest.

import (
    "context"
    "crypto/tls"
    "strings"
    "time"

    "github.com/redis/go-redis/v9"
)

// RedisConfig holds connection settings.
//   REDIS_URL – full redis:// or rediss:// URL, wins over everything else
//   REDIS_HOST and REDIS_PORT – hostname and port of the Redis server
//   REDIS_ADDR – host:port shorthand
//   REDIS_PASSWORD – optional password
//   REDIS_DB – database number (default 0)
//   REDIS_TLS – enable TLS when "true" or "1"
type RedisConfig struct {
    URL      string
    Addr     string
    Password string
    DB       int
    TLS      bool
}

func LoadRedisConfig() RedisConfig {
    addr := envStr("REDIS_ADDR", "localhost:6379")
    host, port := envStr("REDIS_HOST", ""), envStr("REDIS_PORT", "")
    if host != "" && port != "" {
        addr = host + ":" + port
    }
    tlsEnv := envStr("REDIS_TLS", "")
    return RedisConfig{
        URL:      envStr("REDIS_URL", ""),
        Addr:     addr,
        Password: envStr("REDIS_PASSWORD", ""),
        DB:       envInt("REDIS_DB", 0),
        TLS:      strings.EqualFold(tlsEnv, "true") || tlsEnv == "1",
    }
}

// Options converts the config into go-redis options.
func (c RedisConfig) Options() (*redis.Options, error) {
    if c.URL != "" {
        return redis.ParseURL(c.URL)
    }
    opts := &redis.Options{Addr: c.Addr, Password: c.Password, DB: c.DB}
    if c.TLS {
        opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
    }
    return opts, nil
}

// NewRedisClient connects and pings with a short timeout.  The returned
// client is nil if the options are invalid or the server does not answer.
func NewRedisClient(cfg RedisConfig) *redis.Client {
    opts, err := cfg.Options()
    if err != nil {
        return nil
    }
    client := redis.NewClient(opts)
    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    if err := client.Ping(ctx).Err(); err != nil {
        _ = client.Close()
        return nil
    }
    return client
}
