package config

import (
    "os"
    "path/filepath"
    "testing"
    "time"

    "github.com/alicebob/miniredis/v2"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/retreat-allocation/internal/allocation"
    "github.com/iliyamo/retreat-allocation/internal/model"
)

func TestLoadAllocationConfig(t *testing.T) {
    t.Setenv("ALLOC_BATCH_SIZE", "0")
    t.Setenv("RELEASE_ON_CANCEL", "off")
    t.Setenv("ALLOC_WRITE_TIMEOUT", "nonsense")

    cfg := LoadAllocationConfig()
    require.Equal(t, allocation.DefaultBatchSize, cfg.BatchSize)
    require.False(t, cfg.ReleaseOnCancel)
    require.Equal(t, 30*time.Second, cfg.WriteTimeout)
}

func TestLoadRateLimitConfig(t *testing.T) {
    t.Setenv("RATE_LIMIT_BURST", "5")
    t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
    t.Setenv("RATE_LIMIT_TTL", "1s")

    cfg := LoadRateLimitConfig()
    require.Equal(t, 5, cfg.Capacity)
    require.Equal(t, 10*time.Second, cfg.TTL, "ttl is raised to five refill intervals")
    require.Equal(t, "user_route", cfg.KeyStrategy)
}

func TestLoadSeatingDefaults(t *testing.T) {
    cfg, err := LoadSeatingDefaults("")
    require.NoError(t, err)
    require.Equal(t, model.WingSeating{Columns: 8, ChowkyColumns: 2, Rows: 10, Prefix: "M"}, cfg.Male)
    require.Equal(t, "F", cfg.Female.Prefix)

    custom, err := ParseSeating([]byte("[seating.male]\ncolumns = 3\nrows = 2\n"))
    require.NoError(t, err)
    require.Equal(t, 3, custom.Male.Columns)
    require.Zero(t, custom.Female.Rows)

    _, err = ParseSeating([]byte("[seating.male\ncolumns = "))
    require.Error(t, err)

    _, err = LoadSeatingDefaults("/does/not/exist.toml")
    require.Error(t, err)

    bare := filepath.Join(t.TempDir(), "seating.toml")
    require.NoError(t, os.WriteFile(bare, []byte("[seating.male]\ncolumns = 2\nrows = 1\n[seating.female]\ncolumns = 2\nrows = 1\n"), 0o600))
    _, err = LoadSeatingDefaults(bare)
    require.ErrorContains(t, err, "distinct prefixes")
}

func TestNewRedisClient(t *testing.T) {
    mr := miniredis.RunT(t)
    client := NewRedisClient(RedisConfig{Addr: mr.Addr()})
    require.NotNil(t, client)
    defer client.Close()

    require.Nil(t, NewRedisClient(RedisConfig{URL: "not a url"}))
}

func TestLoadCacheConfig(t *testing.T) {
    t.Setenv("CACHE_METHODS", "get, head")
    cfg := LoadCacheConfig()
    require.True(t, cfg.Methods["GET"])
    require.True(t, cfg.Methods["HEAD"])
    require.Equal(t, "layout", cfg.Prefix)
}
