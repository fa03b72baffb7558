package badger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/healthscope/internal/common"
)

// BadgerDB manages the Badger database connection
type BadgerDB struct {
	store  *badgerhold.Store
	logger arbor.ILogger
	config *common.BadgerConfig
}

// storeOptions returns badgerhold options for config. Records are JSON encoded
// so free-form abnormal_values maps round-trip.
func storeOptions(config *common.BadgerConfig) badgerhold.Options {
	options := badgerhold.DefaultOptions
	options.Encoder = json.Marshal
	options.Decoder = json.Unmarshal

	if config.InMemory {
		options.Options = badger.DefaultOptions("").WithInMemory(true)
	} else {
		options.Dir = config.Path
		options.ValueDir = config.Path
	}
	options.Logger = nil // Disable default badger logger to use arbor
	return options
}

// NewBadgerDB creates a new Badger database connection
func NewBadgerDB(logger arbor.ILogger, config *common.BadgerConfig) (*BadgerDB, error) {
	if !config.InMemory {
		if config.ResetOnStartup {
			if _, err := os.Stat(config.Path); err == nil {
				logger.Debug().Str("path", config.Path).Msg("Deleting existing database (reset_on_startup=true)")
				if err := os.RemoveAll(config.Path); err != nil {
					logger.Warn().Err(err).Str("path", config.Path).Msg("Failed to delete database directory")
				}
			}
		}

		if err := os.MkdirAll(filepath.Clean(config.Path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	logger.Debug().Str("path", config.Path).Bool("in_memory", config.InMemory).Msg("Opening Badger database connection")

	store, err := badgerhold.Open(storeOptions(config))
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database at %s: %w", config.Path, err)
	}

	logger.Debug().Str("path", config.Path).Msg("Badger database initialized")

	return &BadgerDB{
		store:  store,
		logger: logger,
		config: config,
	}, nil
}

// Store returns the underlying badgerhold store
func (b *BadgerDB) Store() *badgerhold.Store {
	return b.store
}

// Close closes the database connection
func (b *BadgerDB) Close() error {
	if b.store != nil {
		return b.store.Close()
	}
	return nil
}
