package store

import (
	"fmt"

	"github.com/bassista/atlas/internal/config"
	"github.com/bassista/atlas/internal/geo"
)

const (
	DriverSQLite = "sqlite"
	DriverFile   = "file"
	DriverMemory = "memory"
)

// NewStoreFromConfig opens the driver selected by cfg.Driver.
func NewStoreFromConfig(cfg config.StoreConfig, indexer *geo.Indexer) (Store, error) {
	switch cfg.Driver {
	case DriverSQLite, "":
		return NewSQLiteStore(cfg.Path, indexer)
	case DriverFile:
		return NewFileStore(cfg.Path, indexer)
	case DriverMemory:
		return NewMemoryStore(indexer), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
