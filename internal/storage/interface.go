// Package storage defines interfaces and implementations for long-term
// rover event storage backends. Backends mirror the append-only event log;
// they are strictly optional and never gate an append's durability.
package storage

import (
	"context"
	"sync"

	"github.com/chrissnell/remoterover/internal/types"
)

// StorageEngineInterface is an interface that provides a few standardized
// methods for various storage backends
type StorageEngineInterface interface {
	StartStorageEngine(context.Context, *sync.WaitGroup) chan<- types.LogEntry
}
