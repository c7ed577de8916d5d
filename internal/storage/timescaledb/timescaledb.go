// Package timescaledb mirrors rover event log entries into a TimescaleDB
// hypertable for long-term querying.
package timescaledb

import (
	"context"
	"sync"
	"time"

	"github.com/chrissnell/remoterover/internal/log"
	"github.com/chrissnell/remoterover/internal/types"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Storage holds the connection for a TimescaleDB storage backend
type Storage struct {
	TimescaleDBConn *gorm.DB
}

// roverEvent maps a LogEntry onto the rover_events table.
type roverEvent struct {
	types.LogEntry
}

func (roverEvent) TableName() string {
	return "rover_events"
}

// New sets up a new TimescaleDB storage backend: it connects, creates the
// events table, and converts it into a hypertable.
func New(ctx context.Context, connectionString string) (*Storage, error) {
	t := Storage{}

	dbLogger := logger.New(
		zap.NewStdLog(log.GetZapLogger()),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: false,
			Colorful:                  false,
		},
	)

	log.Info("connecting to TimescaleDB...")
	var err error
	t.TimescaleDBConn, err = gorm.Open(postgres.Open(connectionString), &gorm.Config{Logger: dbLogger})
	if err != nil {
		log.Warn("warning: unable to create a TimescaleDB connection:", err)
		return nil, err
	}

	log.Info("creating rover events table...")
	if err := t.TimescaleDBConn.WithContext(ctx).Exec(createTableSQL).Error; err != nil {
		log.Warn("warning: could not create table in database")
		return nil, err
	}

	log.Info("creating TimescaleDB extension...")
	if err := t.TimescaleDBConn.WithContext(ctx).Exec(createExtensionSQL).Error; err != nil {
		log.Warn("warning: could not create TimescaleDB extension")
		return nil, err
	}

	log.Info("creating hypertable...")
	if err := t.TimescaleDBConn.WithContext(ctx).Exec(createHypertableSQL).Error; err != nil {
		log.Warn("warning: could not create hypertable")
		return nil, err
	}

	return &t, nil
}

// StartStorageEngine creates a goroutine loop to receive event log entries
// and send them off to TimescaleDB
func (t *Storage) StartStorageEngine(ctx context.Context, wg *sync.WaitGroup) chan<- types.LogEntry {
	log.Info("starting TimescaleDB storage engine...")
	eventChan := make(chan types.LogEntry, 10)
	go t.processEvents(ctx, wg, eventChan)
	return eventChan
}

func (t *Storage) processEvents(ctx context.Context, wg *sync.WaitGroup, events <-chan types.LogEntry) {
	wg.Add(1)
	defer wg.Done()

	for {
		select {
		case e := <-events:
			if err := t.StoreEvent(e); err != nil {
				// Keep mirroring; the file log remains the source of truth.
				log.Error("could not mirror event to TimescaleDB:", err)
			}
		case <-ctx.Done():
			log.Info("cancellation request received, cancelling event mirror")
			return
		}
	}
}

// StoreEvent stores one event log entry in TimescaleDB
func (t *Storage) StoreEvent(e types.LogEntry) error {
	return t.TimescaleDBConn.Create(&roverEvent{LogEntry: e}).Error
}
