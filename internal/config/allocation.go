package config

import (
    "time"

    "github.com/iliyamo/retreat-allocation/internal/allocation"
)

// AllocationConfig tunes the allocation service around the engine.
type AllocationConfig struct {
    BatchSize       int           // concurrent writes per persistence batch
    ReleaseOnCancel bool          // clear resource labels when a participant is cancelled
    WriteTimeout    time.Duration // budget of the detached write phase
    SelectionTTL    time.Duration // how long a pending selection survives
    JournalTTL      time.Duration // how long swap journal entries are kept
    SeatingFile     string        // TOML file with default seating per wing
}

// LoadAllocationConfig reads ALLOC_* variables.
func LoadAllocationConfig() AllocationConfig {
    cfg := AllocationConfig{
        BatchSize:       envInt("ALLOC_BATCH_SIZE", allocation.DefaultBatchSize),
        ReleaseOnCancel: envBool("RELEASE_ON_CANCEL", true),
        WriteTimeout:    envDur("ALLOC_WRITE_TIMEOUT", 30*time.Second),
        SelectionTTL:    envDur("ALLOC_SELECTION_TTL", 15*time.Minute),
        JournalTTL:      envDur("ALLOC_JOURNAL_TTL", 24*time.Hour),
        SeatingFile:     envStr("SEATING_DEFAULTS_FILE", ""),
    }
    if cfg.BatchSize < 1 { cfg.BatchSize = allocation.DefaultBatchSize }
    if cfg.WriteTimeout <= 0 { cfg.WriteTimeout = 30 * time.Second }
    return cfg
}
