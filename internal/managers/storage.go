package managers

import (
	"context"
	"fmt"
	"sync"

	"github.com/chrissnell/remoterover/internal/log"
	"github.com/chrissnell/remoterover/internal/storage"
	"github.com/chrissnell/remoterover/internal/storage/timescaledb"
	"github.com/chrissnell/remoterover/internal/types"
	"github.com/chrissnell/remoterover/pkg/config"
)

// StorageManager holds our active storage backends
type StorageManager struct {
	Engines          []StorageEngine
	EventDistributor chan types.LogEntry
}

// StorageEngine holds a backend storage engine's interface as well as
// a channel for passing event log entries to the engine
type StorageEngine struct {
	Engine storage.StorageEngineInterface
	C      chan<- types.LogEntry
}

// NewStorageManager creates a StorageManager object, populated with all
// configured storage engines, and starts the event distributor. With no
// storage configured the distributor simply discards mirrored entries.
func NewStorageManager(ctx context.Context, wg *sync.WaitGroup, cfg *config.ConfigData) (*StorageManager, error) {
	s := StorageManager{}

	// The distributor buffer absorbs event bursts; the event log's mirror
	// push never blocks on it.
	s.EventDistributor = make(chan types.LogEntry, 4096)

	go s.startEventDistributor(ctx, wg)

	if cfg.Storage.TimescaleDB != nil && cfg.Storage.TimescaleDB.ConnectionString != "" {
		if err := s.AddEngine(ctx, wg, "timescaledb", cfg); err != nil {
			return &s, fmt.Errorf("could not add TimescaleDB storage backend: %v", err)
		}
	}

	return &s, nil
}

// GetEventDistributor returns the event distributor channel
func (s *StorageManager) GetEventDistributor() chan types.LogEntry {
	return s.EventDistributor
}

// AddEngine adds a new StorageEngine of name engineName to our StorageManager
func (s *StorageManager) AddEngine(ctx context.Context, wg *sync.WaitGroup, engineName string, cfg *config.ConfigData) error {
	switch engineName {
	case "timescaledb":
		se := StorageEngine{}
		engine, err := timescaledb.New(ctx, cfg.Storage.TimescaleDB.ConnectionString)
		if err != nil {
			return err
		}
		se.Engine = engine
		se.C = se.Engine.StartStorageEngine(ctx, wg)
		s.Engines = append(s.Engines, se)
	default:
		return fmt.Errorf("unknown storage engine %q", engineName)
	}

	return nil
}

// startEventDistributor receives mirrored event log entries and fans them
// out to the storage backends. A backend that cannot keep up loses entries
// rather than stalling the others; the file log remains authoritative.
func (s *StorageManager) startEventDistributor(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)
	defer wg.Done()

	for {
		select {
		case e := <-s.EventDistributor:
			for _, engine := range s.Engines {
				select {
				case engine.C <- e:
				default:
					log.Warnf("storage engine channel full, %s entry not mirrored", e.Action)
				}
			}
		case <-ctx.Done():
			return
		}
	}
}
