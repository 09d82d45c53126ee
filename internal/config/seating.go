package config

import (
    _ "embed"
    "fmt"
    "os"

    "github.com/pelletier/go-toml/v2"

    "github.com/iliyamo/retreat-allocation/internal/allocation"
    "github.com/iliyamo/retreat-allocation/internal/model"
)

//go:embed seating.default.toml
var defaultSeatingTOML []byte

// seatingFile is the on-disk shape of a seating defaults file.
type seatingFile struct {
    Seating model.SeatingConfig `toml:"seating"`
}

// ParseSeating decodes a seating defaults document.
func ParseSeating(data []byte) (model.SeatingConfig, error) {
    var f seatingFile
    if err := toml.Unmarshal(data, &f); err != nil {
        return model.SeatingConfig{}, fmt.Errorf("parse seating defaults: %w", err)
    }
    return f.Seating, nil
}

// LoadSeatingDefaults returns the seating layout used by courses that have
// none of their own.  An empty path selects the embedded defaults.
func LoadSeatingDefaults(path string) (model.SeatingConfig, error) {
    data := defaultSeatingTOML
    if path != "" {
        b, err := os.ReadFile(path)
        if err != nil {
            return model.SeatingConfig{}, fmt.Errorf("read seating defaults: %w", err)
        }
        data = b
    }
    cfg, err := ParseSeating(data)
    if err != nil {
        return model.SeatingConfig{}, err
    }
    if shared := allocation.SharedLabels(cfg); len(shared) > 0 {
        return model.SeatingConfig{}, fmt.Errorf("seating defaults: both wings generate label %q; set distinct prefixes", shared[0])
    }
    return cfg, nil
}
